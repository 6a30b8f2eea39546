package quantization

import (
	"sort"

	"gorgonia.org/tensor"

	"github.com/nvr-ai/go-quant/common"
)

// Parameter path suffixes used in persisted state keys. A full key is
// "<quantizer name>.<suffix>".
const (
	ParamScale      = "scale"
	ParamSigned     = "signed"
	ParamInputLow   = "input_low"
	ParamInputRange = "input_range"
)

// ParamState is a flat mapping from fully-qualified quantizer parameter path
// to tensor value.
type ParamState map[string]*tensor.Dense

// LoadState overwrites quantizer parameters from persisted state, bypassing
// range initialization for every quantizer with at least one matching key.
//
// Values are copied into the existing parameter tensors: loading state for one
// quantizer never reallocates or replaces the tensors of any other quantizer.
// Keys that match no quantizer are ignored. Returns the sorted names of the
// quantizers that were restored.
func LoadState(state ParamState, quantizers map[string]Quantizer) ([]string, error) {
	var restored []string
	for name, q := range quantizers {
		matched, err := restoreQuantizer(state, name, q)
		if err != nil {
			return nil, err
		}
		if matched {
			restored = append(restored, name)
		}
	}
	sort.Strings(restored)
	return restored, nil
}

func restoreQuantizer(state ParamState, name string, q Quantizer) (bool, error) {
	matched := false
	switch qt := q.(type) {
	case *SymmetricQuantizer:
		if t, ok := state[name+"."+ParamScale]; ok {
			if err := copyInto(qt.Scale, t); err != nil {
				return false, err
			}
			matched = true
		}
		if t, ok := state[name+"."+ParamSigned]; ok {
			qt.Signed = scalarOf(t) != 0
			matched = true
		}
		if matched {
			qt.initialized = true
		}
	case *AsymmetricQuantizer:
		if t, ok := state[name+"."+ParamInputLow]; ok {
			if err := copyInto(qt.InputLow, t); err != nil {
				return false, err
			}
			matched = true
		}
		if t, ok := state[name+"."+ParamInputRange]; ok {
			if err := copyInto(qt.InputRange, t); err != nil {
				return false, err
			}
			matched = true
		}
		if matched {
			qt.initialized = true
		}
	}
	return matched, nil
}

// copyInto copies src values into dst without replacing dst's backing array.
func copyInto(dst, src *tensor.Dense) error {
	if !dst.Shape().Eq(src.Shape()) {
		return &common.ShapeMismatchError{Want: dst.Shape().Clone(), Got: src.Shape().Clone()}
	}
	copy(dst.Data().([]float32), src.Data().([]float32))
	return nil
}

// scalarOf reads a 0/1 flag persisted as a one-element tensor.
func scalarOf(t *tensor.Dense) float32 {
	data := t.Data().([]float32)
	if len(data) == 0 {
		return 0
	}
	return data[0]
}
