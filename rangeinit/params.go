package rangeinit

import (
	"github.com/nvr-ai/go-quant/common"
	"github.com/nvr-ai/go-quant/quantization"
)

// RangeInitParams resolves the effective range-initialization rule for every
// quantization insertion point: the global default first, then every
// applicable per-layer rule in declaration order, last match winning. Rules
// must therefore be ordered general to specific.
type RangeInitParams struct {
	// GlobalConfig is the default rule. May be nil when every point is
	// covered by a per-layer rule.
	GlobalConfig *RangeInitConfig
	// PerLayerConfigs are the per-layer rules in declaration order.
	PerLayerConfigs []PerLayerRangeInitConfig
}

// Validate checks the global rule and every per-layer rule.
func (p *RangeInitParams) Validate() error {
	if p.GlobalConfig != nil {
		if err := p.GlobalConfig.Validate(); err != nil {
			return err
		}
	}
	for i := range p.PerLayerConfigs {
		if err := p.PerLayerConfigs[i].Validate(); err != nil {
			return err
		}
	}
	return nil
}

// InitConfigForPoint returns the effective rule for the given insertion
// point: a copy, so downstream mutation cannot leak across points. Fails with
// a ConfigurationError when no per-layer rule applies and no global default
// exists.
func (p *RangeInitParams) InitConfigForPoint(point quantization.InsertionPoint) (RangeInitConfig, error) {
	var resolved *RangeInitConfig
	if p.GlobalConfig != nil {
		resolved = p.GlobalConfig
	}
	for i := range p.PerLayerConfigs {
		if p.PerLayerConfigs[i].AppliesTo(point) {
			resolved = &p.PerLayerConfigs[i].RangeInitConfig
		}
	}
	if resolved == nil {
		return RangeInitConfig{}, common.NewConfigurationError(
			"no range init configuration applies to %s and no global default is set", point)
	}
	return resolved.Clone(), nil
}
