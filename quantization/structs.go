// Package quantization - fake-quantization modules and their numeric
// initialization from collected tensor statistics.
package quantization

import (
	"fmt"

	"gorgonia.org/tensor"
)

// QuantizerGroup tags a quantizer as operating on weights or activations.
type QuantizerGroup string

const (
	// GroupWeights marks weight quantizers.
	GroupWeights QuantizerGroup = "weights"
	// GroupActivations marks activation quantizers.
	GroupActivations QuantizerGroup = "activations"
)

// Mode selects the quantization scheme.
type Mode string

const (
	// ModeSymmetric quantizes on a zero-centered grid described by a scale.
	ModeSymmetric Mode = "symmetric"
	// ModeAsymmetric quantizes on a shifted grid described by a lower bound
	// and a range.
	ModeAsymmetric Mode = "asymmetric"
)

// InsertionPoint identifies where quantization occurs: a graph-node name, a
// quantizer group, and for activations an optional input-port index. Created
// once per quantizer during graph analysis; immutable.
type InsertionPoint struct {
	// TargetNodeName is the graph-node identifier.
	TargetNodeName string
	// Group tags the point as a weight or activation quantization site.
	Group QuantizerGroup
	// InputPortID is the input port quantized at an activation point. A
	// negative value means the operator output is quantized.
	InputPortID int
}

// NewWeightInsertionPoint returns the insertion point for nodeName's weights.
func NewWeightInsertionPoint(nodeName string) InsertionPoint {
	return InsertionPoint{TargetNodeName: nodeName, Group: GroupWeights, InputPortID: -1}
}

// NewActivationInsertionPoint returns the insertion point for an activation of
// nodeName. Pass a negative port for the operator output.
func NewActivationInsertionPoint(nodeName string, inputPortID int) InsertionPoint {
	return InsertionPoint{TargetNodeName: nodeName, Group: GroupActivations, InputPortID: inputPortID}
}

// MatchIdentifiers returns the identifiers scope rules are matched against:
// the bare node name, and for activations additionally the port-qualified
// form ("name|OUTPUT" or "name|INPUT<port>") so exact patterns can pin a
// specific port.
func (p InsertionPoint) MatchIdentifiers() []string {
	if p.Group != GroupActivations {
		return []string{p.TargetNodeName}
	}
	if p.InputPortID < 0 {
		return []string{p.TargetNodeName, p.TargetNodeName + "|OUTPUT"}
	}
	return []string{p.TargetNodeName, fmt.Sprintf("%s|INPUT%d", p.TargetNodeName, p.InputPortID)}
}

// String formats the insertion point for logs and error messages.
func (p InsertionPoint) String() string {
	ids := p.MatchIdentifiers()
	return fmt.Sprintf("%s[%s]", ids[len(ids)-1], p.Group)
}

// QuantizerSpec fixes the structural parameters of a quantizer at graph-build
// time. Only the numeric fields of the quantizer are mutated afterward.
type QuantizerSpec struct {
	// NumBits is the quantization bit width.
	NumBits int
	// Mode selects symmetric or asymmetric quantization.
	Mode Mode
	// SignednessToForce overrides inferred signedness when non-nil.
	SignednessToForce *bool
	// ScaleShape is the shape of the scale/threshold tensors: (1,) for
	// per-tensor, keepdims-style for per-channel.
	ScaleShape tensor.Shape
	// NarrowRange reserves one quantization level to keep the grid symmetric
	// for signed weight quantization.
	NarrowRange bool
}

// Quantizer is a fake-quantization module. Its numeric parameters are set
// exactly once, either by range initialization from collected statistics or by
// restoring persisted state.
type Quantizer interface {
	// Spec returns the structural parameters fixed at build time.
	Spec() QuantizerSpec
	// Initialized reports whether the numeric parameters have been set.
	Initialized() bool
	// ApplyMinMaxInit sets the numeric parameters from aggregated statistics.
	// Destructive: overwrites prior scale state.
	ApplyMinMaxInit(minValues, maxValues *tensor.Dense) error
	// Quantize performs the forward fake-quantization transform.
	Quantize(x *tensor.Dense) (*tensor.Dense, error)
	// Backward is the declared gradient rule for the fake-quantization
	// boundary: a straight-through pass of the incoming gradient.
	Backward(grad *tensor.Dense) *tensor.Dense
}
