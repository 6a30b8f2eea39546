// Package config - decoding of the external range-initialization
// configuration section into resolver parameters.
//
// The section is either a single global rule or an ordered list of per-layer
// rules. Both JSON and YAML documents are accepted; percentile bounds may be
// written as strings or numbers.
package config

import (
	"bytes"
	"strconv"

	json "github.com/goccy/go-json"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/nvr-ai/go-quant/common"
	"github.com/nvr-ai/go-quant/quantization"
	"github.com/nvr-ai/go-quant/rangeinit"
)

// DefaultInitType is assumed when a rule omits the initializer type.
const DefaultInitType = rangeinit.InitTypeMixedMinMax

// Rule mirrors one entry of the range-initialization section.
type Rule struct {
	// Type is the initializer name. Defaults to DefaultInitType.
	Type string `json:"type,omitempty" yaml:"type,omitempty"`
	// NumInitSamples is the sample budget. Defaults to
	// rangeinit.DefaultNumInitSamples.
	NumInitSamples *int `json:"num_init_samples,omitempty" yaml:"num_init_samples,omitempty"`
	// Params holds initializer-specific parameters; values may be strings or
	// numbers.
	Params map[string]interface{} `json:"params,omitempty" yaml:"params,omitempty"`
	// TargetScopes are scope patterns the rule targets.
	TargetScopes []string `json:"target_scopes,omitempty" yaml:"target_scopes,omitempty"`
	// IgnoredScopes are scope patterns the rule excludes.
	IgnoredScopes []string `json:"ignored_scopes,omitempty" yaml:"ignored_scopes,omitempty"`
	// TargetQuantizerGroup optionally restricts the rule to "weights" or
	// "activations".
	TargetQuantizerGroup string `json:"target_quantizer_group,omitempty" yaml:"target_quantizer_group,omitempty"`
}

// Section is the decoded range-initialization section.
type Section struct {
	// Global is set when the section is a single rule object.
	Global *Rule
	// PerLayer is set when the section is a rule list.
	PerLayer []Rule
}

// UnmarshalJSON accepts either a rule object or a rule array.
func (s *Section) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimLeft(data, " \t\r\n")
	if len(trimmed) > 0 && trimmed[0] == '[' {
		return json.Unmarshal(data, &s.PerLayer)
	}
	s.Global = &Rule{}
	return json.Unmarshal(data, s.Global)
}

// UnmarshalYAML accepts either a rule mapping or a rule sequence.
func (s *Section) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.SequenceNode {
		return node.Decode(&s.PerLayer)
	}
	s.Global = &Rule{}
	return node.Decode(s.Global)
}

// ParseJSON decodes a JSON range-initialization section into resolver
// parameters.
func ParseJSON(data []byte) (*rangeinit.RangeInitParams, error) {
	var s Section
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, errors.Wrap(err, "decoding range init section")
	}
	return s.Params()
}

// ParseYAML decodes a YAML range-initialization section into resolver
// parameters.
func ParseYAML(data []byte) (*rangeinit.RangeInitParams, error) {
	var s Section
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, errors.Wrap(err, "decoding range init section")
	}
	return s.Params()
}

// Params converts the decoded section into validated resolver parameters.
func (s *Section) Params() (*rangeinit.RangeInitParams, error) {
	out := &rangeinit.RangeInitParams{}
	if s.Global != nil {
		if len(s.Global.TargetScopes) > 0 || len(s.Global.IgnoredScopes) > 0 || s.Global.TargetQuantizerGroup != "" {
			return nil, common.NewConfigurationError("the global range init rule cannot carry scope filters")
		}
		cfg, err := s.Global.config()
		if err != nil {
			return nil, err
		}
		out.GlobalConfig = &cfg
	}
	for i := range s.PerLayer {
		r := &s.PerLayer[i]
		cfg, err := r.config()
		if err != nil {
			return nil, err
		}
		perLayer := rangeinit.PerLayerRangeInitConfig{
			RangeInitConfig: cfg,
			TargetScopes:    r.TargetScopes,
			IgnoredScopes:   r.IgnoredScopes,
			TargetGroup:     quantization.QuantizerGroup(r.TargetQuantizerGroup),
		}
		if err := perLayer.Validate(); err != nil {
			return nil, err
		}
		out.PerLayerConfigs = append(out.PerLayerConfigs, perLayer)
	}
	if out.GlobalConfig == nil && len(out.PerLayerConfigs) == 0 {
		return nil, common.NewConfigurationError("empty range init section")
	}
	return out, nil
}

func (r *Rule) config() (rangeinit.RangeInitConfig, error) {
	initType := DefaultInitType
	if r.Type != "" {
		initType = rangeinit.InitType(r.Type)
	}
	samples := rangeinit.DefaultNumInitSamples
	if r.NumInitSamples != nil {
		samples = *r.NumInitSamples
	}
	var params map[string]float64
	if len(r.Params) > 0 {
		params = make(map[string]float64, len(r.Params))
		for k, v := range r.Params {
			f, err := toFloat(v)
			if err != nil {
				return rangeinit.RangeInitConfig{}, common.NewConfigurationError(
					"range init parameter %q: %v", k, err)
			}
			params[k] = f
		}
	}
	cfg := rangeinit.RangeInitConfig{
		InitType:       initType,
		NumInitSamples: samples,
		Params:         params,
	}
	if err := cfg.Validate(); err != nil {
		return rangeinit.RangeInitConfig{}, err
	}
	return cfg, nil
}

// toFloat accepts the numeric encodings the decoders produce, plus strings.
func toFloat(v interface{}) (float64, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	case int:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case uint64:
		return float64(n), nil
	case json.Number:
		return n.Float64()
	case string:
		f, err := strconv.ParseFloat(n, 64)
		if err != nil {
			return 0, errors.Errorf("cannot parse %q as a number", n)
		}
		return f, nil
	default:
		return 0, errors.Errorf("unsupported value type %T", v)
	}
}
