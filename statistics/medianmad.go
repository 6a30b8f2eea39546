package statistics

import (
	"github.com/chewxy/math32"
	"gorgonia.org/tensor"
)

// madScale rescales the median absolute deviation to a consistent estimate of
// the standard deviation for normally distributed data.
const madScale = 1.4826

// sigmas is the width of the resulting band in rescaled deviations.
const sigmas = 3

// MedianMADCollector buffers all registered values and produces a three-sigma
// band around the median: median ± 3·1.4826·MAD, where MAD is the median
// absolute deviation from the median. Exact zeros are discarded before the
// medians are taken, so zero-padded activations do not drag the band towards
// zero.
type MedianMADCollector struct {
	baseCollector
	buffers [][]float32
}

// NewMedianMADCollector creates a three-sigma collector for the given shape
// contract.
func NewMedianMADCollector(opts CollectorOptions) *MedianMADCollector {
	return &MedianMADCollector{
		baseCollector: baseCollector{opts: opts},
		buffers:       make([][]float32, opts.sliceCount()),
	}
}

// RegisterInput appends the batch values to the per-slice buffers.
func (c *MedianMADCollector) RegisterInput(batch *tensor.Dense) error {
	if err := c.ingest(batch); err != nil {
		return err
	}
	appendPerSlice(c.buffers, batch.Data().([]float32), batch.Shape(), c.opts.ChannelAxis)
	return nil
}

// GetStatistics finalizes the collector and returns the per-slice bands.
func (c *MedianMADCollector) GetStatistics() (*MinMaxTensorStatistic, error) {
	return c.finalize(func() ([]float32, []float32) {
		mins := make([]float32, len(c.buffers))
		maxs := make([]float32, len(c.buffers))
		for ch, buffer := range c.buffers {
			values := make([]float32, 0, len(buffer))
			for _, v := range buffer {
				if v != 0 {
					values = append(values, v)
				}
			}
			if len(values) == 0 {
				continue
			}
			median := medianOf(values)
			deviations := make([]float32, len(values))
			for i, v := range values {
				deviations[i] = math32.Abs(v - median)
			}
			mad := medianOf(deviations)
			halfWidth := sigmas * madScale * mad
			mins[ch] = median - halfWidth
			maxs[ch] = median + halfWidth
		}
		return mins, maxs
	})
}
