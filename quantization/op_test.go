package quantization

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

func TestFakeQuantizeForwardAndStraightThroughGradient(t *testing.T) {
	q, err := NewSymmetricQuantizer(symSpec(tensor.Shape{1}))
	require.NoError(t, err)
	require.NoError(t, q.ApplyMinMaxInit(scalar(0), scalar(10)))

	g := gorgonia.NewGraph()
	x := gorgonia.NewMatrix(g, tensor.Float32, gorgonia.WithShape(2, 2), gorgonia.WithName("x"))
	y, err := FakeQuantize(q, x)
	require.NoError(t, err, "applying the op should succeed")

	cost, err := gorgonia.Sum(y)
	require.NoError(t, err)
	grads, err := gorgonia.Grad(cost, x)
	require.NoError(t, err, "the op declares a gradient rule")
	require.Len(t, grads, 1)

	xt := tensor.New(tensor.WithShape(2, 2), tensor.Of(tensor.Float32),
		tensor.WithBacking([]float32{0, 2.5, 5, 100}))
	require.NoError(t, gorgonia.Let(x, xt))

	m := gorgonia.NewTapeMachine(g)
	defer m.Close()
	require.NoError(t, m.RunAll())

	forward := y.Value().Data().([]float32)
	assert.InDelta(t, 0, forward[0], 1e-6)
	assert.InDelta(t, 2.5, forward[1], 0.05)
	assert.InDelta(t, 5, forward[2], 0.05)
	assert.InDelta(t, 10, forward[3], 1e-4, "out-of-range values clamp in the forward pass")

	gradient := grads[0].Value().Data().([]float32)
	assert.Equal(t, []float32{1, 1, 1, 1}, gradient,
		"the backward pass is a straight-through identity, not the derivative of the forward formula")
}

func TestFakeQuantOpInfersInputShape(t *testing.T) {
	q, err := NewSymmetricQuantizer(symSpec(tensor.Shape{1}))
	require.NoError(t, err)
	op := &fakeQuantOp{q: q}

	shape, err := op.InferShape(tensor.Shape{3, 4})
	require.NoError(t, err)
	assert.Equal(t, tensor.Shape{3, 4}, shape)
	assert.Equal(t, 1, op.Arity())
	assert.Equal(t, []bool{true}, op.DiffWRT(1))
}
