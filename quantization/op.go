package quantization

import (
	"fmt"
	"hash"
	"hash/fnv"

	"github.com/chewxy/hm"
	"github.com/pkg/errors"
	"gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

// fakeQuantOp adapts a Quantizer to a gorgonia graph operation. The forward
// pass is the quantize-dequantize transform; the declared gradient rule is a
// straight-through pass of the incoming gradient, not a derivative of the
// forward formula.
type fakeQuantOp struct {
	q Quantizer
}

// FakeQuantize applies fake quantization to a graph node. The returned node
// carries the quantized values forward and passes gradients straight through
// on the backward pass.
func FakeQuantize(q Quantizer, x *gorgonia.Node) (*gorgonia.Node, error) {
	return gorgonia.ApplyOp(&fakeQuantOp{q: q}, x)
}

func (op *fakeQuantOp) Arity() int { return 1 }

func (op *fakeQuantOp) Type() hm.Type {
	a := hm.TypeVariable('a')
	return hm.NewFnType(a, a)
}

func (op *fakeQuantOp) InferShape(inputs ...gorgonia.DimSizer) (tensor.Shape, error) {
	if len(inputs) != 1 {
		return nil, errors.Errorf("fake-quant expects 1 input, got %d", len(inputs))
	}
	shape, ok := inputs[0].(tensor.Shape)
	if !ok {
		return nil, errors.Errorf("fake-quant cannot infer shape from %T", inputs[0])
	}
	return shape.Clone(), nil
}

func (op *fakeQuantOp) Do(vals ...gorgonia.Value) (gorgonia.Value, error) {
	if len(vals) != 1 {
		return nil, errors.Errorf("fake-quant expects 1 value, got %d", len(vals))
	}
	t, ok := vals[0].(*tensor.Dense)
	if !ok {
		return nil, errors.Errorf("fake-quant expects a dense tensor, got %T", vals[0])
	}
	return op.q.Quantize(t)
}

func (op *fakeQuantOp) ReturnsPtr() bool     { return false }
func (op *fakeQuantOp) CallsExtern() bool    { return false }
func (op *fakeQuantOp) OverwritesInput() int { return -1 }

func (op *fakeQuantOp) WriteHash(h hash.Hash) {
	fmt.Fprintf(h, "fakeQuant(%s,%d,%v)", op.q.Spec().Mode, op.q.Spec().NumBits, op.q.Spec().ScaleShape)
}

func (op *fakeQuantOp) Hashcode() uint32 {
	h := fnv.New32a()
	op.WriteHash(h)
	return h.Sum32()
}

func (op *fakeQuantOp) String() string {
	return fmt.Sprintf("FakeQuant(%s)", op.q.Spec().Mode)
}

// DiffWRT reports that the op is differentiable with respect to its input.
func (op *fakeQuantOp) DiffWRT(inputs int) []bool { return []bool{true} }

// SymDiff declares the straight-through gradient: the incoming gradient is
// the gradient of the input.
func (op *fakeQuantOp) SymDiff(inputs gorgonia.Nodes, output, grad *gorgonia.Node) (gorgonia.Nodes, error) {
	if len(inputs) != 1 {
		return nil, errors.Errorf("fake-quant expects 1 input, got %d", len(inputs))
	}
	return gorgonia.Nodes{grad}, nil
}
