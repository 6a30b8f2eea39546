package rangeinit

import (
	"context"
	"encoding/binary"
	"io"
	"math"
	"os"
	"path/filepath"
	"sort"

	"github.com/pkg/errors"
	"gorgonia.org/tensor"

	"github.com/nvr-ai/go-quant/common"
)

// SliceLoader serves pre-built calibration batches from memory.
type SliceLoader struct {
	batches   []*tensor.Dense
	batchSize int
	next      int
}

// NewSliceLoader wraps a slice of batches. All batches must share the same
// leading batch dimension.
func NewSliceLoader(batches []*tensor.Dense) (*SliceLoader, error) {
	if len(batches) == 0 {
		return nil, common.NewConfigurationError("calibration loader requires at least one batch")
	}
	size := batches[0].Shape()[0]
	for i, b := range batches {
		if b.Shape()[0] != size {
			return nil, common.NewConfigurationError(
				"calibration batch %d has %d samples, want %d", i, b.Shape()[0], size)
		}
	}
	return &SliceLoader{batches: batches, batchSize: size}, nil
}

// Next returns the next batch, or io.EOF when all batches were served.
// Calibration data carries no targets.
func (l *SliceLoader) Next(ctx context.Context) (input, target *tensor.Dense, err error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	if l.next >= len(l.batches) {
		return nil, nil, io.EOF
	}
	b := l.batches[l.next]
	l.next++
	return b, nil, nil
}

// BatchSize is the number of samples per batch.
func (l *SliceLoader) BatchSize() int { return l.batchSize }

// Reset rewinds the loader to the first batch.
func (l *SliceLoader) Reset() { l.next = 0 }

// LoadDirectoryBatches reads every ".bin" file in a directory as one
// calibration batch of the given shape: raw little-endian float32 values, in
// lexical file order.
//
// Arguments:
// - dir: Directory path containing raw tensor files.
// - shape: Shape of each batch, leading batch axis included.
//
// Returns:
// - *SliceLoader: Loader serving one batch per file.
// - error: Error if reading fails or a file size does not match the shape.
func LoadDirectoryBatches(dir string, shape tensor.Shape) (*SliceLoader, error) {
	files, err := os.ReadDir(dir)
	if err != nil {
		return nil, errors.Wrap(err, "reading calibration directory")
	}

	var paths []string
	for _, file := range files {
		if file.IsDir() || filepath.Ext(file.Name()) != ".bin" {
			continue
		}
		paths = append(paths, filepath.Join(dir, file.Name()))
	}
	sort.Strings(paths)
	if len(paths) == 0 {
		return nil, common.NewConfigurationError("no calibration batches found in %s", dir)
	}

	want := shape.TotalSize()
	batches := make([]*tensor.Dense, 0, len(paths))
	for _, path := range paths {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, errors.Wrapf(err, "reading calibration batch %s", path)
		}
		if len(raw) != want*4 {
			return nil, common.NewConfigurationError(
				"calibration batch %s holds %d bytes, want %d for shape %v", path, len(raw), want*4, shape)
		}
		data := make([]float32, want)
		for i := range data {
			data[i] = math.Float32frombits(binary.LittleEndian.Uint32(raw[i*4:]))
		}
		batches = append(batches, tensor.New(tensor.WithShape(shape...), tensor.WithBacking(data)))
	}
	return NewSliceLoader(batches)
}
