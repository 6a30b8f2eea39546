package quantization

import (
	"gorgonia.org/tensor"

	"github.com/nvr-ai/go-quant/common"
)

// Levels returns the number of quantization levels for the given bit width.
// NarrowRange drops one level so the signed grid stays symmetric.
func Levels(numBits int, narrowRange bool) int {
	levels := 1 << uint(numBits)
	if narrowRange {
		levels--
	}
	return levels
}

// LevelBounds returns the integer grid bounds for the given level count.
// Signed grids are centered on zero; unsigned grids start at zero.
func LevelBounds(levels int, signed bool) (low, high int) {
	if signed {
		low = -(levels / 2)
		high = levels - levels/2 - 1
		return low, high
	}
	return 0, levels - 1
}

// channelAxisOf returns the axis a keepdims scale shape varies along, or -1
// for a per-tensor shape. Scale shapes varying along more than one axis are
// rejected.
func channelAxisOf(scaleShape tensor.Shape) (int, error) {
	axis := -1
	for i, d := range scaleShape {
		if d > 1 {
			if axis >= 0 {
				return 0, common.NewConfigurationError("scale shape %v varies along more than one axis", scaleShape)
			}
			axis = i
		}
	}
	return axis, nil
}

// broadcastIndex maps a flat element index of a tensor with the given shape to
// the index of its scale element. stride and count come from scaleStride.
func broadcastIndex(i, stride, count int) int {
	if count == 1 {
		return 0
	}
	return (i / stride) % count
}

// scaleStride returns the per-channel stride and channel count for applying a
// scale tensor along axis of shape. axis < 0 is per-tensor.
func scaleStride(shape tensor.Shape, axis int) (stride, count int) {
	if axis < 0 {
		return 1, 1
	}
	stride = 1
	for i := axis + 1; i < len(shape); i++ {
		stride *= shape[i]
	}
	return stride, shape[axis]
}
