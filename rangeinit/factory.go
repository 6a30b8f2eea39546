package rangeinit

import (
	"gorgonia.org/tensor"

	"github.com/nvr-ai/go-quant/common"
	"github.com/nvr-ai/go-quant/statistics"
)

// CreateCollector instantiates the statistic collector for a resolved rule,
// with accumulators shaped for the given scale shape. Dispatch is on the
// initializer type; an unknown type fails here, at construction time, never
// during input registration.
func CreateCollector(cfg RangeInitConfig, scaleShape tensor.Shape,
	params CollectorParams) (statistics.Collector, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if !scaleShape.Eq(params.ScaleShape()) {
		return nil, common.NewConfigurationError(
			"scale shape %v does not match the collector contract %v", scaleShape, params.ScaleShape())
	}

	channelAxis := -1
	if params.PerChannel {
		channelAxis = params.ChannelAxis
	}
	opts := statistics.CollectorOptions{
		InputShape:  params.InputShape.Clone(),
		ScaleShape:  scaleShape.Clone(),
		ChannelAxis: channelAxis,
		PerSample:   params.UsePerSampleStats(),
		AbsMax:      params.UseAbsMax(),
	}

	switch cfg.InitType {
	case InitTypeMinMax:
		return statistics.NewMinMaxCollector(opts), nil
	case InitTypeMixedMinMax:
		return statistics.NewMixedMinMaxCollector(opts, params.UseMeansOfMins(), params.UseMeansOfMaxs()), nil
	case InitTypeMeanMinMax:
		return statistics.NewMeanMinMaxCollector(opts), nil
	case InitTypeThreeSigma:
		return statistics.NewMedianMADCollector(opts), nil
	case InitTypePercentile:
		minP, maxP := cfg.PercentileBounds()
		return statistics.NewPercentileCollector(opts, minP, maxP), nil
	default:
		return nil, common.NewConfigurationError("unknown range init type %q", cfg.InitType)
	}
}
