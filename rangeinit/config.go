// Package rangeinit - configuration resolution and calibration driving for
// quantization range initialization.
//
// A RangeInitParams holds a global default rule plus an ordered list of
// per-layer rules; for every quantization insertion point it resolves the
// effective rule, which the collector factory turns into a bound statistic
// collector. The runner drives calibration data through the collectors and
// initializes the quantizers from the finalized statistics.
package rangeinit

import (
	"github.com/nvr-ai/go-quant/common"
	"github.com/nvr-ai/go-quant/quantization"
	"github.com/nvr-ai/go-quant/scopes"
)

// InitType names a statistic aggregation algorithm.
type InitType string

const (
	// InitTypeMinMax tracks running elementwise extremes.
	InitTypeMinMax InitType = "min_max"
	// InitTypeMixedMinMax blends mean-based and absolute extremes.
	InitTypeMixedMinMax InitType = "mixed_min_max"
	// InitTypeMeanMinMax averages per-sample extremes.
	InitTypeMeanMinMax InitType = "mean_min_max"
	// InitTypeThreeSigma takes a three-sigma band around the median.
	InitTypeThreeSigma InitType = "threesigma"
	// InitTypePercentile takes interpolated percentile values.
	InitTypePercentile InitType = "percentile"
)

// Percentile parameter keys in RangeInitConfig.Params.
const (
	ParamMinPercentile = "min_percentile"
	ParamMaxPercentile = "max_percentile"
)

// Defaults applied when the configuration omits the corresponding field.
const (
	DefaultNumInitSamples = 256
	DefaultMinPercentile  = 0.1
	DefaultMaxPercentile  = 99.9
)

var initTypes = map[InitType]bool{
	InitTypeMinMax:      true,
	InitTypeMixedMinMax: true,
	InitTypeMeanMinMax:  true,
	InitTypeThreeSigma:  true,
	InitTypePercentile:  true,
}

// RangeInitConfig is one range-initialization rule: the aggregation algorithm,
// the sample budget, and algorithm-specific parameters (only meaningful for
// the percentile initializer). Equality is structural.
type RangeInitConfig struct {
	// InitType selects the aggregation algorithm.
	InitType InitType
	// NumInitSamples is the number of calibration samples to aggregate.
	// Zero leaves the affected quantizers at their default scale.
	NumInitSamples int
	// Params holds algorithm-specific parameters by name.
	Params map[string]float64
}

// Validate checks the rule invariants: a known initializer type, a
// non-negative sample budget, and percentile bounds inside [0, 100] with
// min < max.
func (c RangeInitConfig) Validate() error {
	if !initTypes[c.InitType] {
		return common.NewConfigurationError("unknown range init type %q", c.InitType)
	}
	if c.NumInitSamples < 0 {
		return common.NewConfigurationError("num_init_samples must be non-negative, got %d", c.NumInitSamples)
	}
	if c.InitType == InitTypePercentile {
		minP, maxP := c.PercentileBounds()
		if minP < 0 || maxP > 100 || minP >= maxP {
			return common.NewConfigurationError(
				"percentile bounds must satisfy 0 <= min < max <= 100, got [%v, %v]", minP, maxP)
		}
	}
	return nil
}

// PercentileBounds returns the configured percentile bounds, falling back to
// the defaults where unset.
func (c RangeInitConfig) PercentileBounds() (minPercentile, maxPercentile float64) {
	minPercentile = DefaultMinPercentile
	maxPercentile = DefaultMaxPercentile
	if v, ok := c.Params[ParamMinPercentile]; ok {
		minPercentile = v
	}
	if v, ok := c.Params[ParamMaxPercentile]; ok {
		maxPercentile = v
	}
	return minPercentile, maxPercentile
}

// Clone returns a deep copy, so a resolved rule handed to one quantization
// point cannot leak mutations into another.
func (c RangeInitConfig) Clone() RangeInitConfig {
	clone := c
	if c.Params != nil {
		clone.Params = make(map[string]float64, len(c.Params))
		for k, v := range c.Params {
			clone.Params[k] = v
		}
	}
	return clone
}

// Equal reports structural equality.
func (c RangeInitConfig) Equal(other RangeInitConfig) bool {
	if c.InitType != other.InitType || c.NumInitSamples != other.NumInitSamples {
		return false
	}
	if len(c.Params) != len(other.Params) {
		return false
	}
	for k, v := range c.Params {
		if ov, ok := other.Params[k]; !ok || ov != v {
			return false
		}
	}
	return true
}

// PerLayerRangeInitConfig is a RangeInitConfig plus an applicability
// predicate: target scopes, ignored scopes, and an optional quantizer-group
// filter. Constructed once at algorithm-build time; immutable thereafter.
type PerLayerRangeInitConfig struct {
	RangeInitConfig

	// TargetScopes restricts the rule to points whose identifier matches at
	// least one pattern. Empty matches all.
	TargetScopes []string
	// IgnoredScopes excludes points whose identifier matches any pattern.
	IgnoredScopes []string
	// TargetGroup restricts the rule to one quantizer group. Empty matches
	// both.
	TargetGroup quantization.QuantizerGroup
}

// AppliesTo reports whether the rule applies to the given insertion point.
func (c PerLayerRangeInitConfig) AppliesTo(point quantization.InsertionPoint) bool {
	if c.TargetGroup != "" && c.TargetGroup != point.Group {
		return false
	}
	ids := point.MatchIdentifiers()
	if len(c.TargetScopes) > 0 {
		matched := false
		for _, id := range ids {
			if scopes.MatchesAny(id, c.TargetScopes) {
				matched = true
				break
			}
		}
		if !matched {
			return false
		}
	}
	for _, id := range ids {
		if scopes.MatchesAny(id, c.IgnoredScopes) {
			return false
		}
	}
	return true
}

// Validate checks the rule and its group filter.
func (c PerLayerRangeInitConfig) Validate() error {
	if err := c.RangeInitConfig.Validate(); err != nil {
		return err
	}
	switch c.TargetGroup {
	case "", quantization.GroupWeights, quantization.GroupActivations:
		return nil
	default:
		return common.NewConfigurationError("unknown target quantizer group %q", c.TargetGroup)
	}
}
