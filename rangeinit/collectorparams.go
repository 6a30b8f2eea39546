package rangeinit

import (
	"gorgonia.org/tensor"

	"github.com/nvr-ai/go-quant/common"
	"github.com/nvr-ai/go-quant/metatypes"
	"github.com/nvr-ai/go-quant/quantization"
)

// CollectorParams is the statistical shape contract for one quantization
// point: what tensor the collector will see, whether statistics are kept per
// channel, and the aggregation hints derived from the quantization mode and
// the weight/activation semantics.
type CollectorParams struct {
	// IsWeights marks the point as a weight quantization site. Weight tensors
	// are registered exactly once and carry no batch axis.
	IsWeights bool
	// Mode is the quantization mode of the target quantizer.
	Mode quantization.Mode
	// PerChannel keeps statistics separate per slice along ChannelAxis.
	PerChannel bool
	// InputShape is the shape of the tensors the collector will ingest,
	// including the leading batch axis for activations.
	InputShape tensor.Shape
	// ChannelAxis indexes the channel dimension of InputShape.
	ChannelAxis int
}

// NewCollectorParams validates and builds the shape contract.
func NewCollectorParams(isWeights bool, mode quantization.Mode, perChannel bool,
	inputShape tensor.Shape, channelAxis int) (CollectorParams, error) {
	if perChannel && (channelAxis < 0 || channelAxis >= len(inputShape)) {
		return CollectorParams{}, common.NewConfigurationError(
			"channel axis %d out of range for input shape %v", channelAxis, inputShape)
	}
	return CollectorParams{
		IsWeights:   isWeights,
		Mode:        mode,
		PerChannel:  perChannel,
		InputShape:  inputShape.Clone(),
		ChannelAxis: channelAxis,
	}, nil
}

// DefaultChannelAxis returns the channel-axis convention for a quantization
// point: the registered weight axis of the operator for weights, the NCHW
// activation channel axis otherwise.
func DefaultChannelAxis(isWeights bool, opType string) int {
	if isWeights {
		return metatypes.WeightChannelAxis(opType)
	}
	return metatypes.ActivationChannelAxis
}

// ScaleShape derives the shape of the resulting scale/threshold tensors:
// (1,) for per-tensor, the input shape with every axis but the channel axis
// set to one for per-channel.
func (p CollectorParams) ScaleShape() tensor.Shape {
	if !p.PerChannel {
		return tensor.Shape{1}
	}
	shape := make(tensor.Shape, len(p.InputShape))
	for i := range shape {
		shape[i] = 1
	}
	shape[p.ChannelAxis] = p.InputShape[p.ChannelAxis]
	return shape
}

// UseAbsMax reports whether maximums are tracked over absolute values, as the
// symmetric grid requires.
func (p CollectorParams) UseAbsMax() bool {
	return p.Mode == quantization.ModeSymmetric
}

// UseMeansOfMins reports whether the mixed reduction averages per-sample
// minimums for the lower bound. Only asymmetric per-tensor activation
// statistics do; everything else keeps the absolute minimum.
func (p CollectorParams) UseMeansOfMins() bool {
	return !p.IsWeights && !p.PerChannel && p.Mode == quantization.ModeAsymmetric
}

// UseMeansOfMaxs reports whether the mixed reduction averages per-sample
// maximums for the upper bound. Per-tensor activation statistics do; weights
// keep the absolute extremes.
func (p CollectorParams) UseMeansOfMaxs() bool {
	return !p.IsWeights && !p.PerChannel
}

// UsePerSampleStats reports whether the leading axis of the input is a batch
// of independent samples. Weight tensors have no batch axis.
func (p CollectorParams) UsePerSampleStats() bool {
	return !p.IsWeights
}
