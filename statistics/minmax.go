package statistics

import (
	"github.com/chewxy/math32"
	"gorgonia.org/tensor"
)

// MinMaxCollector keeps a running elementwise minimum and maximum across all
// registered batches. O(1) memory in the number of batches.
type MinMaxCollector struct {
	baseCollector
	mins []float32
	maxs []float32
}

// NewMinMaxCollector creates a min/max collector for the given shape contract.
func NewMinMaxCollector(opts CollectorOptions) *MinMaxCollector {
	n := opts.sliceCount()
	c := &MinMaxCollector{
		baseCollector: baseCollector{opts: opts},
		mins:          make([]float32, n),
		maxs:          make([]float32, n),
	}
	for i := 0; i < n; i++ {
		c.mins[i] = math32.Inf(1)
		c.maxs[i] = math32.Inf(-1)
	}
	return c
}

// RegisterInput folds one batch into the running extremes.
func (c *MinMaxCollector) RegisterInput(batch *tensor.Dense) error {
	if err := c.ingest(batch); err != nil {
		return err
	}
	mins, maxs := sliceMinMax(batch.Data().([]float32), batch.Shape(), c.opts.ChannelAxis, c.opts.AbsMax)
	for i := range mins {
		if mins[i] < c.mins[i] {
			c.mins[i] = mins[i]
		}
		if maxs[i] > c.maxs[i] {
			c.maxs[i] = maxs[i]
		}
	}
	return nil
}

// GetStatistics finalizes the collector and returns the running extremes.
func (c *MinMaxCollector) GetStatistics() (*MinMaxTensorStatistic, error) {
	return c.finalize(func() ([]float32, []float32) {
		mins := make([]float32, len(c.mins))
		maxs := make([]float32, len(c.maxs))
		copy(mins, c.mins)
		copy(maxs, c.maxs)
		return mins, maxs
	})
}
