package statistics

import (
	"gorgonia.org/tensor"

	"github.com/nvr-ai/go-quant/common"
)

// baseCollector carries the state machine shared by all collector variants:
// shape validation, sample accounting and finalization with a cached result.
type baseCollector struct {
	opts      CollectorOptions
	samples   int
	finalized bool
	cached    *MinMaxTensorStatistic
}

// ingest validates batch against the configured input shape and advances the
// sample count. Called at the top of every RegisterInput implementation.
func (c *baseCollector) ingest(batch *tensor.Dense) error {
	if c.finalized {
		return &common.InvalidStateError{Op: "RegisterInput", State: "FINALIZED"}
	}
	got := batch.Shape()
	want := c.opts.InputShape
	if len(got) != len(want) {
		return &common.ShapeMismatchError{Want: want.Clone(), Got: got.Clone()}
	}
	for i := range want {
		if i == 0 && c.opts.PerSample {
			continue
		}
		if got[i] != want[i] {
			return &common.ShapeMismatchError{Want: want.Clone(), Got: got.Clone()}
		}
	}
	if c.opts.PerSample {
		c.samples += got[0]
	} else {
		c.samples++
	}
	return nil
}

// finalize transitions to the FINALIZED state, computing the statistic once
// via compute and caching it. Subsequent calls return the cached result.
func (c *baseCollector) finalize(compute func() (mins, maxs []float32)) (*MinMaxTensorStatistic, error) {
	if c.finalized {
		return c.cached, nil
	}
	if c.samples == 0 {
		return nil, &common.InvalidStateError{Op: "GetStatistics", State: "EMPTY"}
	}
	mins, maxs := compute()
	c.finalized = true
	c.cached = newStatistic(mins, maxs, c.opts.ScaleShape)
	return c.cached, nil
}

// Collected returns the number of samples registered so far.
func (c *baseCollector) Collected() int {
	return c.samples
}
