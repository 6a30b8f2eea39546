package statistics

import (
	"github.com/chewxy/math32"
	"gorgonia.org/tensor"
)

// MixedMinMaxCollector tracks both the absolute extremes across all batches
// and the means of per-sample extremes, then blends them: each bound uses the
// mean-based reduction only where the collector was configured to, falling
// back to the absolute extreme otherwise. Weight statistics always use the
// absolute extremes.
type MixedMinMaxCollector struct {
	baseCollector
	useMeansOfMins bool
	useMeansOfMaxs bool
	mins           []float32
	maxs           []float32
	acc            meanAccumulator
}

// NewMixedMinMaxCollector creates a mixed min/max collector. useMeansOfMins
// and useMeansOfMaxs select the mean-based reduction for the respective bound.
func NewMixedMinMaxCollector(opts CollectorOptions, useMeansOfMins, useMeansOfMaxs bool) *MixedMinMaxCollector {
	n := opts.sliceCount()
	c := &MixedMinMaxCollector{
		baseCollector:  baseCollector{opts: opts},
		useMeansOfMins: useMeansOfMins,
		useMeansOfMaxs: useMeansOfMaxs,
		mins:           make([]float32, n),
		maxs:           make([]float32, n),
		acc:            newMeanAccumulator(n),
	}
	for i := 0; i < n; i++ {
		c.mins[i] = math32.Inf(1)
		c.maxs[i] = math32.Inf(-1)
	}
	return c
}

// RegisterInput folds one batch into both reductions.
func (c *MixedMinMaxCollector) RegisterInput(batch *tensor.Dense) error {
	if err := c.ingest(batch); err != nil {
		return err
	}
	data := batch.Data().([]float32)
	shape := batch.Shape()
	mins, maxs := sliceMinMax(data, shape, c.opts.ChannelAxis, c.opts.AbsMax)
	for i := range mins {
		if mins[i] < c.mins[i] {
			c.mins[i] = mins[i]
		}
		if maxs[i] > c.maxs[i] {
			c.maxs[i] = maxs[i]
		}
	}
	c.acc.add(data, shape, c.opts.ChannelAxis, c.opts.PerSample, c.opts.AbsMax)
	return nil
}

// GetStatistics finalizes the collector and returns the blended extremes.
func (c *MixedMinMaxCollector) GetStatistics() (*MinMaxTensorStatistic, error) {
	return c.finalize(func() ([]float32, []float32) {
		meanMins, meanMaxs := c.acc.means()
		mins := make([]float32, len(c.mins))
		maxs := make([]float32, len(c.maxs))
		copy(mins, c.mins)
		copy(maxs, c.maxs)
		if c.useMeansOfMins {
			mins = meanMins
		}
		if c.useMeansOfMaxs {
			maxs = meanMaxs
		}
		return mins, maxs
	})
}
