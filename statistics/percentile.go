package statistics

import (
	"sort"

	"gorgonia.org/tensor"
)

// PercentileCollector buffers all registered values and produces the values at
// the configured lower and upper percentiles, linearly interpolated over the
// sorted buffer, independently per slice.
type PercentileCollector struct {
	baseCollector
	minPercentile float64
	maxPercentile float64
	buffers       [][]float32
}

// NewPercentileCollector creates a percentile collector. Bounds are percents
// in [0, 100]; bound validation happens at configuration time.
func NewPercentileCollector(opts CollectorOptions, minPercentile, maxPercentile float64) *PercentileCollector {
	return &PercentileCollector{
		baseCollector: baseCollector{opts: opts},
		minPercentile: minPercentile,
		maxPercentile: maxPercentile,
		buffers:       make([][]float32, opts.sliceCount()),
	}
}

// RegisterInput appends the batch values to the per-slice buffers.
func (c *PercentileCollector) RegisterInput(batch *tensor.Dense) error {
	if err := c.ingest(batch); err != nil {
		return err
	}
	appendPerSlice(c.buffers, batch.Data().([]float32), batch.Shape(), c.opts.ChannelAxis)
	return nil
}

// GetStatistics finalizes the collector and returns the per-slice percentile
// values.
func (c *PercentileCollector) GetStatistics() (*MinMaxTensorStatistic, error) {
	return c.finalize(func() ([]float32, []float32) {
		mins := make([]float32, len(c.buffers))
		maxs := make([]float32, len(c.buffers))
		for ch, buffer := range c.buffers {
			sorted := make([]float32, len(buffer))
			copy(sorted, buffer)
			sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
			mins[ch] = percentileOf(sorted, c.minPercentile)
			maxs[ch] = percentileOf(sorted, c.maxPercentile)
		}
		return mins, maxs
	})
}
