// Package statistics - streaming tensor statistic collectors used by
// quantization range initialization.
//
// A collector is bound to a single quantization point, ingests calibration
// batches through RegisterInput and produces one aggregated min/max statistic
// through GetStatistics. Per-channel statistics are computed independently per
// slice along a configured channel axis.
package statistics

import (
	"gorgonia.org/tensor"
)

// MinMaxTensorStatistic is the universal statistic result. Every collector
// variant normalizes its aggregate to a pair of tensors shaped exactly like
// the scale shape of the quantizer the collector was created for.
type MinMaxTensorStatistic struct {
	// MinValues holds the aggregated lower bounds.
	MinValues *tensor.Dense
	// MaxValues holds the aggregated upper bounds.
	MaxValues *tensor.Dense
}

func newStatistic(mins, maxs []float32, scaleShape tensor.Shape) *MinMaxTensorStatistic {
	return &MinMaxTensorStatistic{
		MinValues: tensor.New(tensor.WithShape(scaleShape...), tensor.Of(tensor.Float32), tensor.WithBacking(mins)),
		MaxValues: tensor.New(tensor.WithShape(scaleShape...), tensor.Of(tensor.Float32), tensor.WithBacking(maxs)),
	}
}

// Collector is a stateful accumulator over calibration batches.
//
// Lifecycle: zero or more RegisterInput calls, then GetStatistics. The first
// GetStatistics call finalizes the collector; registering further inputs is a
// usage error, and repeated GetStatistics calls return the same cached result
// without recomputation. A collector instance is owned exclusively by the
// quantization point it was created for.
type Collector interface {
	// RegisterInput ingests one calibration batch. The batch must match the
	// configured input shape; sample-batched collectors allow the leading axis
	// to vary.
	RegisterInput(batch *tensor.Dense) error
	// GetStatistics finalizes the collector and returns the aggregate.
	GetStatistics() (*MinMaxTensorStatistic, error)
	// Collected returns the number of samples registered so far.
	Collected() int
}

// CollectorOptions is the shape contract every collector is constructed with.
type CollectorOptions struct {
	// InputShape is the expected shape of registered batches, including the
	// leading batch axis for activation collectors.
	InputShape tensor.Shape
	// ScaleShape is the shape the resulting statistic tensors must have.
	ScaleShape tensor.Shape
	// ChannelAxis is the axis of InputShape along which statistics are kept
	// separate. Negative means per-tensor: one statistic over all values.
	ChannelAxis int
	// PerSample marks the leading axis of InputShape as a batch of independent
	// samples: its size may vary between batches and averaging collectors
	// aggregate per sample rather than per batch.
	PerSample bool
	// AbsMax tracks the maximum of absolute values instead of the signed
	// maximum, as symmetric quantization requires. Minimums are always tracked
	// on the raw values so signedness can still be inferred.
	AbsMax bool
}

// sliceCount returns the number of independent statistic slices.
func (o CollectorOptions) sliceCount() int {
	if o.ChannelAxis < 0 {
		return 1
	}
	return o.InputShape[o.ChannelAxis]
}
