package quantization

import (
	"github.com/chewxy/math32"
	"gorgonia.org/tensor"

	"github.com/nvr-ai/go-quant/common"
)

// defaultRangeEps floors scale and range parameters away from zero so an
// all-constant calibration tensor cannot produce a degenerate quantizer.
const defaultRangeEps float32 = 1e-16

// SymmetricQuantizer fake-quantizes on a zero-centered grid. Its range is a
// per-tensor or per-channel scale; signedness is inferred at initialization
// from the collected minimums unless forced by the spec.
type SymmetricQuantizer struct {
	spec QuantizerSpec

	// Eps is the lower floor for the scale.
	Eps float32
	// Scale is the multiplicative range parameter, shaped to the scale shape.
	// Initialization overwrites its values in place; the tensor identity never
	// changes after construction.
	Scale *tensor.Dense
	// Signed reports whether the quantization grid includes negative levels.
	Signed bool

	initialized bool
}

// NewSymmetricQuantizer builds an uninitialized symmetric quantizer with a
// unit scale.
func NewSymmetricQuantizer(spec QuantizerSpec) (*SymmetricQuantizer, error) {
	if spec.Mode != ModeSymmetric {
		return nil, common.NewConfigurationError("symmetric quantizer requires mode %q, got %q", ModeSymmetric, spec.Mode)
	}
	if _, err := channelAxisOf(spec.ScaleShape); err != nil {
		return nil, err
	}
	q := &SymmetricQuantizer{
		spec:  spec,
		Eps:   defaultRangeEps,
		Scale: tensor.Ones(tensor.Float32, spec.ScaleShape...),
	}
	if spec.SignednessToForce != nil {
		q.Signed = *spec.SignednessToForce
	}
	return q, nil
}

// Spec returns the structural parameters fixed at build time.
func (q *SymmetricQuantizer) Spec() QuantizerSpec { return q.spec }

// Initialized reports whether the scale has been set.
func (q *SymmetricQuantizer) Initialized() bool { return q.initialized }

// ApplyMinMaxInit sets the scale to max(|min|, |max|) elementwise, floored at
// Eps, and infers signedness: signed iff any collected minimum is negative,
// unless the spec forces a signedness.
func (q *SymmetricQuantizer) ApplyMinMaxInit(minValues, maxValues *tensor.Dense) error {
	if !minValues.Shape().Eq(q.spec.ScaleShape) || !maxValues.Shape().Eq(q.spec.ScaleShape) {
		return &common.ShapeMismatchError{Want: q.spec.ScaleShape.Clone(), Got: minValues.Shape().Clone()}
	}
	mins := minValues.Data().([]float32)
	maxs := maxValues.Data().([]float32)

	signed := false
	for _, v := range mins {
		if v < 0 {
			signed = true
			break
		}
	}
	if q.spec.SignednessToForce != nil {
		signed = *q.spec.SignednessToForce
	}
	q.Signed = signed

	scale := q.Scale.Data().([]float32)
	for i := range scale {
		s := math32.Max(math32.Abs(mins[i]), math32.Abs(maxs[i]))
		if s < q.Eps {
			s = q.Eps
		}
		scale[i] = s
	}
	q.initialized = true
	return nil
}

// Quantize rounds x onto the symmetric grid and dequantizes back. The input
// is not modified.
func (q *SymmetricQuantizer) Quantize(x *tensor.Dense) (*tensor.Dense, error) {
	axis, err := channelAxisOf(q.spec.ScaleShape)
	if err != nil {
		return nil, err
	}
	if axis >= 0 && len(x.Shape()) != len(q.spec.ScaleShape) {
		return nil, &common.ShapeMismatchError{Want: q.spec.ScaleShape.Clone(), Got: x.Shape().Clone()}
	}
	levels := Levels(q.spec.NumBits, q.spec.NarrowRange)
	levelLow, levelHigh := LevelBounds(levels, q.Signed)

	out := x.Clone().(*tensor.Dense)
	data := out.Data().([]float32)
	scale := q.Scale.Data().([]float32)
	stride, count := scaleStride(x.Shape(), axis)
	for i, v := range data {
		step := scale[broadcastIndex(i, stride, count)] / float32(levelHigh)
		level := math32.Round(v / step)
		if level < float32(levelLow) {
			level = float32(levelLow)
		}
		if level > float32(levelHigh) {
			level = float32(levelHigh)
		}
		data[i] = level * step
	}
	return out, nil
}

// Backward passes the incoming gradient straight through.
func (q *SymmetricQuantizer) Backward(grad *tensor.Dense) *tensor.Dense {
	return grad.Clone().(*tensor.Dense)
}
