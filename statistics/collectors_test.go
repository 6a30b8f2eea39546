package statistics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorgonia.org/tensor"

	"github.com/nvr-ai/go-quant/common"
)

// syntheticBatch builds a [1, channels, 100, 100] batch where every channel
// holds the value i*100+j at row i, column j, covering 0..9999.
func syntheticBatch(channels int) *tensor.Dense {
	backing := make([]float32, channels*100*100)
	for c := 0; c < channels; c++ {
		for i := 0; i < 100; i++ {
			for j := 0; j < 100; j++ {
				backing[c*10000+i*100+j] = float32(i*100 + j)
			}
		}
	}
	return tensor.New(tensor.WithShape(1, channels, 100, 100), tensor.Of(tensor.Float32), tensor.WithBacking(backing))
}

func perTensorOpts(absMax bool) CollectorOptions {
	return CollectorOptions{
		InputShape:  tensor.Shape{1, 3, 100, 100},
		ScaleShape:  tensor.Shape{1},
		ChannelAxis: -1,
		PerSample:   true,
		AbsMax:      absMax,
	}
}

func perChannelOpts(absMax bool) CollectorOptions {
	return CollectorOptions{
		InputShape:  tensor.Shape{1, 3, 100, 100},
		ScaleShape:  tensor.Shape{1, 3, 1, 1},
		ChannelAxis: 1,
		PerSample:   true,
		AbsMax:      absMax,
	}
}

func TestMinMaxCollectorSyntheticRange(t *testing.T) {
	c := NewMinMaxCollector(perTensorOpts(true))
	require.NoError(t, c.RegisterInput(syntheticBatch(3)), "registering a matching batch should succeed")

	stat, err := c.GetStatistics()
	require.NoError(t, err, "finalization should succeed")
	assert.Equal(t, []float32{0}, stat.MinValues.Data().([]float32), "minimum of 0..9999 should be 0")
	assert.Equal(t, []float32{9999}, stat.MaxValues.Data().([]float32), "maximum of 0..9999 should be 9999")
}

func TestMinMaxCollectorPerChannel(t *testing.T) {
	c := NewMinMaxCollector(perChannelOpts(true))
	require.NoError(t, c.RegisterInput(syntheticBatch(3)))

	stat, err := c.GetStatistics()
	require.NoError(t, err)
	assert.Equal(t, tensor.Shape{1, 3, 1, 1}, stat.MaxValues.Shape(), "statistic must follow the scale shape")
	assert.Equal(t, []float32{9999, 9999, 9999}, stat.MaxValues.Data().([]float32),
		"identical channels should yield identical per-channel maxima")
}

func TestMinMaxCollectorAbsMaxKeepsRawMin(t *testing.T) {
	opts := CollectorOptions{
		InputShape:  tensor.Shape{1, 4},
		ScaleShape:  tensor.Shape{1},
		ChannelAxis: -1,
		PerSample:   true,
		AbsMax:      true,
	}
	c := NewMinMaxCollector(opts)
	batch := tensor.New(tensor.WithShape(1, 4), tensor.Of(tensor.Float32),
		tensor.WithBacking([]float32{-8, -1, 2, 3}))
	require.NoError(t, c.RegisterInput(batch))

	stat, err := c.GetStatistics()
	require.NoError(t, err)
	assert.Equal(t, []float32{-8}, stat.MinValues.Data().([]float32),
		"minimum must stay on raw values so signedness can be inferred")
	assert.Equal(t, []float32{8}, stat.MaxValues.Data().([]float32),
		"maximum must be taken over absolute values")
}

func TestMeanMinMaxCollectorAveragesPerSample(t *testing.T) {
	opts := CollectorOptions{
		InputShape:  tensor.Shape{1, 2},
		ScaleShape:  tensor.Shape{1},
		ChannelAxis: -1,
		PerSample:   true,
	}
	c := NewMeanMinMaxCollector(opts)
	batch := tensor.New(tensor.WithShape(2, 2), tensor.Of(tensor.Float32),
		tensor.WithBacking([]float32{1, 3, 5, 7}))
	require.NoError(t, c.RegisterInput(batch))

	stat, err := c.GetStatistics()
	require.NoError(t, err)
	assert.Equal(t, []float32{3}, stat.MinValues.Data().([]float32), "mean of per-sample minima 1 and 5")
	assert.Equal(t, []float32{5}, stat.MaxValues.Data().([]float32), "mean of per-sample maxima 3 and 7")
}

func TestMixedMinMaxCollectorBlendsReductions(t *testing.T) {
	opts := CollectorOptions{
		InputShape:  tensor.Shape{1, 2},
		ScaleShape:  tensor.Shape{1},
		ChannelAxis: -1,
		PerSample:   true,
	}
	c := NewMixedMinMaxCollector(opts, false, true)
	batch := tensor.New(tensor.WithShape(2, 2), tensor.Of(tensor.Float32),
		tensor.WithBacking([]float32{-4, 3, 5, 7}))
	require.NoError(t, c.RegisterInput(batch))

	stat, err := c.GetStatistics()
	require.NoError(t, err)
	assert.Equal(t, []float32{-4}, stat.MinValues.Data().([]float32),
		"lower bound keeps the absolute minimum when means of mins are off")
	assert.Equal(t, []float32{5}, stat.MaxValues.Data().([]float32),
		"upper bound averages the per-sample maxima 3 and 7")
}

func TestMedianMADCollectorReferenceBand(t *testing.T) {
	c := NewMedianMADCollector(perTensorOpts(false))
	require.NoError(t, c.RegisterInput(syntheticBatch(3)))

	stat, err := c.GetStatistics()
	require.NoError(t, err)
	// Zeros are discarded, so the median of 1..9999 is 5000 and the MAD 2500:
	// the band is 5000 ± 3·1.4826·2500. Tolerance follows the reference
	// fixtures.
	assert.InDelta(t, -6119.5, stat.MinValues.Data().([]float32)[0], 1.0)
	assert.InDelta(t, 16119.5, stat.MaxValues.Data().([]float32)[0], 1.0)
}

func TestPercentileCollectorReferenceValues(t *testing.T) {
	c := NewPercentileCollector(perTensorOpts(false), 32.10, 67.89)
	require.NoError(t, c.RegisterInput(syntheticBatch(3)))

	stat, err := c.GetStatistics()
	require.NoError(t, err)
	low := stat.MinValues.Data().([]float32)[0]
	high := stat.MaxValues.Data().([]float32)[0]
	assert.InDelta(t, 3210, low, 1.0, "32.10th percentile of 0..9999")
	assert.InDelta(t, 6788.3, high, 1.0, "67.89th percentile of 0..9999")
	assert.InDelta(t, 3578.6, high-low, 1.0, "derived range for asymmetric init")
}

func TestPercentileCollectorPerChannelIndependence(t *testing.T) {
	opts := CollectorOptions{
		InputShape:  tensor.Shape{1, 2, 4},
		ScaleShape:  tensor.Shape{1, 2, 1},
		ChannelAxis: 1,
		PerSample:   true,
	}
	c := NewPercentileCollector(opts, 0, 100)
	batch := tensor.New(tensor.WithShape(1, 2, 4), tensor.Of(tensor.Float32),
		tensor.WithBacking([]float32{1, 2, 3, 4, 10, 20, 30, 40}))
	require.NoError(t, c.RegisterInput(batch))

	stat, err := c.GetStatistics()
	require.NoError(t, err)
	assert.Equal(t, []float32{1, 10}, stat.MinValues.Data().([]float32),
		"channel slices must be aggregated independently")
	assert.Equal(t, []float32{4, 40}, stat.MaxValues.Data().([]float32))
}

// chunkedBatches returns the same 8 samples once as a single batch and once
// as four 2-sample batches.
func chunkedBatches() (whole *tensor.Dense, chunks []*tensor.Dense) {
	backing := make([]float32, 8*2*3)
	for i := range backing {
		backing[i] = float32((i*31)%17) - 7.5
	}
	whole = tensor.New(tensor.WithShape(8, 2, 3), tensor.Of(tensor.Float32), tensor.WithBacking(backing))
	for s := 0; s < 4; s++ {
		chunk := make([]float32, 2*2*3)
		copy(chunk, backing[s*12:(s+1)*12])
		chunks = append(chunks, tensor.New(tensor.WithShape(2, 2, 3), tensor.Of(tensor.Float32), tensor.WithBacking(chunk)))
	}
	return whole, chunks
}

func TestCollectorsAreChunkingInvariant(t *testing.T) {
	opts := CollectorOptions{
		InputShape:  tensor.Shape{1, 2, 3},
		ScaleShape:  tensor.Shape{1, 2, 1},
		ChannelAxis: 1,
		PerSample:   true,
	}
	builders := map[string]func() Collector{
		"min_max":      func() Collector { return NewMinMaxCollector(opts) },
		"mean_min_max": func() Collector { return NewMeanMinMaxCollector(opts) },
		"threesigma":   func() Collector { return NewMedianMADCollector(opts) },
		"percentile":   func() Collector { return NewPercentileCollector(opts, 10, 90) },
	}
	whole, chunks := chunkedBatches()

	for name, build := range builders {
		t.Run(name, func(t *testing.T) {
			one := build()
			require.NoError(t, one.RegisterInput(whole))
			wholeStat, err := one.GetStatistics()
			require.NoError(t, err)

			many := build()
			for _, chunk := range chunks {
				require.NoError(t, many.RegisterInput(chunk))
			}
			chunkStat, err := many.GetStatistics()
			require.NoError(t, err)

			assert.InDeltaSlice(t, wholeStat.MinValues.Data().([]float32),
				chunkStat.MinValues.Data().([]float32), 1e-4,
				"aggregate must not depend on batch chunking")
			assert.InDeltaSlice(t, wholeStat.MaxValues.Data().([]float32),
				chunkStat.MaxValues.Data().([]float32), 1e-4,
				"aggregate must not depend on batch chunking")
		})
	}
}

func TestCollectorStateMachine(t *testing.T) {
	c := NewMinMaxCollector(perTensorOpts(true))
	require.NoError(t, c.RegisterInput(syntheticBatch(3)))
	assert.Equal(t, 1, c.Collected(), "one sample registered")

	first, err := c.GetStatistics()
	require.NoError(t, err)
	second, err := c.GetStatistics()
	require.NoError(t, err)
	assert.Same(t, first, second, "repeated finalization must return the cached result")

	err = c.RegisterInput(syntheticBatch(3))
	require.Error(t, err, "registering after finalization is a usage error")
	assert.True(t, common.IsInvalidStateError(err))
}

func TestCollectorRejectsMismatchedShapes(t *testing.T) {
	c := NewMinMaxCollector(perTensorOpts(true))
	bad := tensor.New(tensor.WithShape(1, 3, 50, 100), tensor.Of(tensor.Float32),
		tensor.WithBacking(make([]float32, 3*50*100)))
	err := c.RegisterInput(bad)
	require.Error(t, err, "non-batch dimensions must match the configured shape")
	assert.True(t, common.IsShapeMismatchError(err))

	// The batch axis may vary for per-sample collectors.
	grown := tensor.New(tensor.WithShape(2, 3, 100, 100), tensor.Of(tensor.Float32),
		tensor.WithBacking(make([]float32, 2*3*100*100)))
	assert.NoError(t, c.RegisterInput(grown))
	assert.Equal(t, 2, c.Collected())
}

func TestWeightCollectorRequiresExactShape(t *testing.T) {
	opts := CollectorOptions{
		InputShape:  tensor.Shape{4, 2},
		ScaleShape:  tensor.Shape{1},
		ChannelAxis: -1,
		PerSample:   false,
	}
	c := NewMinMaxCollector(opts)
	bad := tensor.New(tensor.WithShape(3, 2), tensor.Of(tensor.Float32),
		tensor.WithBacking(make([]float32, 6)))
	err := c.RegisterInput(bad)
	require.Error(t, err, "weight collectors have no free batch axis")
	assert.True(t, common.IsShapeMismatchError(err))
}

func TestEmptyCollectorCannotFinalize(t *testing.T) {
	c := NewMeanMinMaxCollector(perTensorOpts(false))
	_, err := c.GetStatistics()
	require.Error(t, err, "finalizing without data has no meaningful statistic")
	assert.True(t, common.IsInvalidStateError(err))
}
