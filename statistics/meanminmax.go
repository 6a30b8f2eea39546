package statistics

import (
	"gorgonia.org/tensor"
)

// meanAccumulator tracks running sums of per-sample (or per-batch) minimums
// and maximums, one pair per statistic slice.
type meanAccumulator struct {
	sumMins []float32
	sumMaxs []float32
	count   int
}

func newMeanAccumulator(slices int) meanAccumulator {
	return meanAccumulator{
		sumMins: make([]float32, slices),
		sumMaxs: make([]float32, slices),
	}
}

// add folds one batch into the running sums. With perSample, the leading axis
// is unrolled and every sample contributes its own extremes, which makes the
// aggregate invariant to batch chunking.
func (a *meanAccumulator) add(data []float32, shape tensor.Shape, channelAxis int, perSample, absMax bool) {
	if perSample && shape[0] > 0 && channelAxis != 0 {
		sampleSize := len(data) / shape[0]
		sampleShape := shape[1:]
		sampleAxis := channelAxis
		if sampleAxis > 0 {
			sampleAxis--
		}
		for s := 0; s < shape[0]; s++ {
			sample := data[s*sampleSize : (s+1)*sampleSize]
			mins, maxs := sliceMinMax(sample, sampleShape, sampleAxis, absMax)
			for i := range mins {
				a.sumMins[i] += mins[i]
				a.sumMaxs[i] += maxs[i]
			}
			a.count++
		}
		return
	}
	mins, maxs := sliceMinMax(data, shape, channelAxis, absMax)
	for i := range mins {
		a.sumMins[i] += mins[i]
		a.sumMaxs[i] += maxs[i]
	}
	a.count++
}

// means returns the arithmetic means of the accumulated extremes.
func (a *meanAccumulator) means() (mins, maxs []float32) {
	mins = make([]float32, len(a.sumMins))
	maxs = make([]float32, len(a.sumMaxs))
	n := float32(a.count)
	for i := range mins {
		mins[i] = a.sumMins[i] / n
		maxs[i] = a.sumMaxs[i] / n
	}
	return mins, maxs
}

// MeanMinMaxCollector aggregates the arithmetic mean of per-sample minimums
// and maximums with a running sum and count. O(1) memory, no buffering.
type MeanMinMaxCollector struct {
	baseCollector
	acc meanAccumulator
}

// NewMeanMinMaxCollector creates a mean-min/max collector for the given shape
// contract.
func NewMeanMinMaxCollector(opts CollectorOptions) *MeanMinMaxCollector {
	return &MeanMinMaxCollector{
		baseCollector: baseCollector{opts: opts},
		acc:           newMeanAccumulator(opts.sliceCount()),
	}
}

// RegisterInput folds one batch into the running sums.
func (c *MeanMinMaxCollector) RegisterInput(batch *tensor.Dense) error {
	if err := c.ingest(batch); err != nil {
		return err
	}
	c.acc.add(batch.Data().([]float32), batch.Shape(), c.opts.ChannelAxis, c.opts.PerSample, c.opts.AbsMax)
	return nil
}

// GetStatistics finalizes the collector and returns the mean extremes.
func (c *MeanMinMaxCollector) GetStatistics() (*MinMaxTensorStatistic, error) {
	return c.finalize(c.acc.means)
}
