package statistics

import (
	"math"
	"sort"

	"github.com/chewxy/math32"
	"gorgonia.org/tensor"
)

// innerStride returns the number of contiguous values between consecutive
// channel increments for a row-major layout.
func innerStride(shape tensor.Shape, channelAxis int) int {
	stride := 1
	for i := channelAxis + 1; i < len(shape); i++ {
		stride *= shape[i]
	}
	return stride
}

// sliceMinMax computes per-slice minimum and maximum over data laid out
// row-major with the given shape. channelAxis < 0 reduces the whole tensor to
// a single slice. With absMax, maximums are taken over absolute values while
// minimums stay on the raw values.
func sliceMinMax(data []float32, shape tensor.Shape, channelAxis int, absMax bool) (mins, maxs []float32) {
	count := 1
	stride := len(data)
	if channelAxis >= 0 {
		count = shape[channelAxis]
		stride = innerStride(shape, channelAxis)
	}
	mins = make([]float32, count)
	maxs = make([]float32, count)
	for ch := range mins {
		mins[ch] = math32.Inf(1)
		maxs[ch] = math32.Inf(-1)
	}
	for i, v := range data {
		ch := (i / stride) % count
		if v < mins[ch] {
			mins[ch] = v
		}
		m := v
		if absMax {
			m = math32.Abs(v)
		}
		if m > maxs[ch] {
			maxs[ch] = m
		}
	}
	return mins, maxs
}

// appendPerSlice appends every value of data to the buffer of its slice.
// buffers must have one entry per slice (a single entry when channelAxis < 0).
func appendPerSlice(buffers [][]float32, data []float32, shape tensor.Shape, channelAxis int) {
	if channelAxis < 0 {
		buffers[0] = append(buffers[0], data...)
		return
	}
	count := shape[channelAxis]
	stride := innerStride(shape, channelAxis)
	for i, v := range data {
		ch := (i / stride) % count
		buffers[ch] = append(buffers[ch], v)
	}
}

// percentileOf returns the value at percentile p in [0, 100] of sorted,
// linearly interpolated between the two nearest order statistics.
func percentileOf(sorted []float32, p float64) float32 {
	if len(sorted) == 0 {
		return 0
	}
	if len(sorted) == 1 {
		return sorted[0]
	}
	idx := p / 100 * float64(len(sorted)-1)
	lo := int(math.Floor(idx))
	hi := int(math.Ceil(idx))
	if lo < 0 {
		lo = 0
	}
	if hi > len(sorted)-1 {
		hi = len(sorted) - 1
	}
	if lo == hi {
		return sorted[lo]
	}
	frac := float32(idx - float64(lo))
	return sorted[lo] + (sorted[hi]-sorted[lo])*frac
}

// medianOf returns the median of values, averaging the two middle order
// statistics for even counts. values is sorted in place.
func medianOf(values []float32) float32 {
	sort.Slice(values, func(i, j int) bool { return values[i] < values[j] })
	return percentileOf(values, 50)
}
