package metatypes

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLookup(t *testing.T) {
	m, ok := Lookup("Conv")
	require.True(t, ok)
	assert.Equal(t, "ConvOp", m.Name)
	require.True(t, m.HasWeights())
	assert.Equal(t, 1, m.Weights.WeightPortID)
	assert.Equal(t, 2, m.Weights.BiasPortID)
	assert.Equal(t, []HWOp{HWOpConvolution}, m.HWOps)

	m, ok = Lookup("Clip")
	require.True(t, ok, "every op type string of a metatype is indexed")
	assert.Equal(t, "ReluOp", m.Name)
	assert.False(t, m.HasWeights())

	_, ok = Lookup("SomeCustomOp")
	assert.False(t, ok)
}

func TestWeightChannelAxis(t *testing.T) {
	assert.Equal(t, 0, WeightChannelAxis("Conv"), "convolutions enumerate filters on axis 0")
	assert.Equal(t, 1, WeightChannelAxis("ConvTranspose"), "transposed convolutions on axis 1")
	assert.Equal(t, 0, WeightChannelAxis("Gemm"))
	assert.Equal(t, DefaultWeightChannelAxis, WeightChannelAxis("Relu"), "weightless ops fall back")
	assert.Equal(t, DefaultWeightChannelAxis, WeightChannelAxis("SomeCustomOp"))
}

func TestWeightedOpTypes(t *testing.T) {
	assert.Equal(t, []string{"Conv", "ConvTranspose", "Gemm"}, WeightedOpTypes())
}
