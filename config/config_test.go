package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nvr-ai/go-quant/common"
	"github.com/nvr-ai/go-quant/quantization"
	"github.com/nvr-ai/go-quant/rangeinit"
)

func TestParseJSONGlobalRule(t *testing.T) {
	params, err := ParseJSON([]byte(`{"type": "min_max", "num_init_samples": 64}`))
	require.NoError(t, err)
	require.NotNil(t, params.GlobalConfig)
	assert.Equal(t, rangeinit.InitTypeMinMax, params.GlobalConfig.InitType)
	assert.Equal(t, 64, params.GlobalConfig.NumInitSamples)
	assert.Empty(t, params.PerLayerConfigs)
}

func TestParseJSONDefaults(t *testing.T) {
	params, err := ParseJSON([]byte(`{}`))
	require.NoError(t, err)
	require.NotNil(t, params.GlobalConfig)
	assert.Equal(t, rangeinit.InitTypeMixedMinMax, params.GlobalConfig.InitType)
	assert.Equal(t, rangeinit.DefaultNumInitSamples, params.GlobalConfig.NumInitSamples)
}

func TestParseJSONPerLayerRules(t *testing.T) {
	doc := `[
		{"type": "min_max", "num_init_samples": 1, "target_scopes": ["{re}.*"]},
		{"type": "percentile", "num_init_samples": 10,
		 "params": {"min_percentile": "0.1", "max_percentile": "99.9"},
		 "target_quantizer_group": "activations",
		 "target_scopes": ["conv_1|OUTPUT"],
		 "ignored_scopes": ["{re}.*bias.*"]}
	]`
	params, err := ParseJSON([]byte(doc))
	require.NoError(t, err)
	assert.Nil(t, params.GlobalConfig)
	require.Len(t, params.PerLayerConfigs, 2)

	first := params.PerLayerConfigs[0]
	assert.Equal(t, rangeinit.InitTypeMinMax, first.InitType)
	assert.Equal(t, []string{"{re}.*"}, first.TargetScopes)

	second := params.PerLayerConfigs[1]
	assert.Equal(t, rangeinit.InitTypePercentile, second.InitType)
	assert.Equal(t, quantization.GroupActivations, second.TargetGroup)
	assert.Equal(t, []string{"conv_1|OUTPUT"}, second.TargetScopes)
	assert.Equal(t, []string{"{re}.*bias.*"}, second.IgnoredScopes)
	minP, maxP := second.PercentileBounds()
	assert.Equal(t, 0.1, minP, "string-encoded percentile bounds decode numerically")
	assert.Equal(t, 99.9, maxP)
}

func TestParseYAML(t *testing.T) {
	t.Run("global mapping", func(t *testing.T) {
		params, err := ParseYAML([]byte("type: mean_min_max\nnum_init_samples: 32\n"))
		require.NoError(t, err)
		require.NotNil(t, params.GlobalConfig)
		assert.Equal(t, rangeinit.InitTypeMeanMinMax, params.GlobalConfig.InitType)
		assert.Equal(t, 32, params.GlobalConfig.NumInitSamples)
	})

	t.Run("per-layer sequence", func(t *testing.T) {
		doc := `
- type: threesigma
  num_init_samples: 1
  target_scopes:
    - "{re}/model_input_0"
  target_quantizer_group: activations
- type: percentile
  num_init_samples: 10
  params:
    min_percentile: 32.1
    max_percentile: 67.89
`
		params, err := ParseYAML([]byte(doc))
		require.NoError(t, err)
		require.Len(t, params.PerLayerConfigs, 2)
		assert.Equal(t, rangeinit.InitTypeThreeSigma, params.PerLayerConfigs[0].InitType)
		minP, maxP := params.PerLayerConfigs[1].PercentileBounds()
		assert.Equal(t, 32.1, minP)
		assert.Equal(t, 67.89, maxP)
	})
}

func TestGlobalRuleRejectsScopeFilters(t *testing.T) {
	_, err := ParseJSON([]byte(`{"type": "min_max", "target_scopes": ["conv_0"]}`))
	require.Error(t, err)
	assert.True(t, common.IsConfigurationError(err))
}

func TestEmptySectionIsAnError(t *testing.T) {
	_, err := ParseJSON([]byte(`[]`))
	require.Error(t, err)
	assert.True(t, common.IsConfigurationError(err))
}

func TestUnknownInitTypeIsRejectedAtDecode(t *testing.T) {
	_, err := ParseJSON([]byte(`{"type": "batch_norm"}`))
	require.Error(t, err)
	assert.True(t, common.IsConfigurationError(err))
}

func TestUnknownGroupIsRejected(t *testing.T) {
	_, err := ParseJSON([]byte(`[{"type": "min_max", "target_quantizer_group": "biases"}]`))
	require.Error(t, err)
	assert.True(t, common.IsConfigurationError(err))
}

func TestUnparsableParamIsRejected(t *testing.T) {
	_, err := ParseJSON([]byte(`{"type": "percentile", "params": {"min_percentile": "low"}}`))
	require.Error(t, err)
	assert.True(t, common.IsConfigurationError(err))
}

func TestDecodedParamsResolveAgainstPoints(t *testing.T) {
	doc := `[
		{"type": "min_max", "num_init_samples": 1, "target_scopes": ["{re}.*"]},
		{"type": "mean_min_max", "num_init_samples": 2,
		 "target_scopes": ["{re}features/.*"]}
	]`
	params, err := ParseJSON([]byte(doc))
	require.NoError(t, err)

	cfg, err := params.InitConfigForPoint(quantization.NewActivationInsertionPoint("features/conv_0", -1))
	require.NoError(t, err)
	assert.Equal(t, rangeinit.InitTypeMeanMinMax, cfg.InitType)

	cfg, err = params.InitConfigForPoint(quantization.NewActivationInsertionPoint("/model_input_0", -1))
	require.NoError(t, err)
	assert.Equal(t, rangeinit.InitTypeMinMax, cfg.InitType)
}
