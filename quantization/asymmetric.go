package quantization

import (
	"github.com/chewxy/math32"
	"gorgonia.org/tensor"

	"github.com/nvr-ai/go-quant/common"
)

// AsymmetricQuantizer fake-quantizes on a shifted grid described by a lower
// bound and a span. NarrowRange does not apply to the asymmetric grid.
type AsymmetricQuantizer struct {
	spec QuantizerSpec

	// Eps is the lower floor for the range.
	Eps float32
	// InputLow is the lower bound parameter, shaped to the scale shape.
	InputLow *tensor.Dense
	// InputRange is the span parameter, shaped to the scale shape. Both
	// tensors are overwritten in place by initialization; their identity never
	// changes after construction.
	InputRange *tensor.Dense

	initialized bool
}

// NewAsymmetricQuantizer builds an uninitialized asymmetric quantizer with a
// zero lower bound and a unit range.
func NewAsymmetricQuantizer(spec QuantizerSpec) (*AsymmetricQuantizer, error) {
	if spec.Mode != ModeAsymmetric {
		return nil, common.NewConfigurationError("asymmetric quantizer requires mode %q, got %q", ModeAsymmetric, spec.Mode)
	}
	if _, err := channelAxisOf(spec.ScaleShape); err != nil {
		return nil, err
	}
	return &AsymmetricQuantizer{
		spec:       spec,
		Eps:        defaultRangeEps,
		InputLow:   tensor.New(tensor.WithShape(spec.ScaleShape...), tensor.Of(tensor.Float32)),
		InputRange: tensor.Ones(tensor.Float32, spec.ScaleShape...),
	}, nil
}

// Spec returns the structural parameters fixed at build time.
func (q *AsymmetricQuantizer) Spec() QuantizerSpec { return q.spec }

// Initialized reports whether the bounds have been set.
func (q *AsymmetricQuantizer) Initialized() bool { return q.initialized }

// ApplyMinMaxInit sets input_low to the collected minimums and input_range to
// max − min, floored at Eps to avoid a degenerate zero-width range.
func (q *AsymmetricQuantizer) ApplyMinMaxInit(minValues, maxValues *tensor.Dense) error {
	if !minValues.Shape().Eq(q.spec.ScaleShape) || !maxValues.Shape().Eq(q.spec.ScaleShape) {
		return &common.ShapeMismatchError{Want: q.spec.ScaleShape.Clone(), Got: minValues.Shape().Clone()}
	}
	mins := minValues.Data().([]float32)
	maxs := maxValues.Data().([]float32)
	low := q.InputLow.Data().([]float32)
	span := q.InputRange.Data().([]float32)
	for i := range low {
		low[i] = mins[i]
		r := maxs[i] - mins[i]
		if r < q.Eps {
			r = q.Eps
		}
		span[i] = r
	}
	q.initialized = true
	return nil
}

// Quantize rounds x onto the asymmetric grid and dequantizes back. The input
// is not modified.
func (q *AsymmetricQuantizer) Quantize(x *tensor.Dense) (*tensor.Dense, error) {
	axis, err := channelAxisOf(q.spec.ScaleShape)
	if err != nil {
		return nil, err
	}
	if axis >= 0 && len(x.Shape()) != len(q.spec.ScaleShape) {
		return nil, &common.ShapeMismatchError{Want: q.spec.ScaleShape.Clone(), Got: x.Shape().Clone()}
	}
	levels := Levels(q.spec.NumBits, false)

	out := x.Clone().(*tensor.Dense)
	data := out.Data().([]float32)
	low := q.InputLow.Data().([]float32)
	span := q.InputRange.Data().([]float32)
	stride, count := scaleStride(x.Shape(), axis)
	for i, v := range data {
		ch := broadcastIndex(i, stride, count)
		step := span[ch] / float32(levels-1)
		level := math32.Round((v - low[ch]) / step)
		if level < 0 {
			level = 0
		}
		if level > float32(levels-1) {
			level = float32(levels - 1)
		}
		data[i] = low[ch] + level*step
	}
	return out, nil
}

// Backward passes the incoming gradient straight through.
func (q *AsymmetricQuantizer) Backward(grad *tensor.Dense) *tensor.Dense {
	return grad.Clone().(*tensor.Dense)
}
