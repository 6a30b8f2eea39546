package rangeinit

import (
	"context"
	"io"
	"log/slog"

	"github.com/pkg/errors"
	"gorgonia.org/tensor"

	"github.com/nvr-ai/go-quant/common"
	"github.com/nvr-ai/go-quant/quantization"
	"github.com/nvr-ai/go-quant/statistics"
)

// DataLoader produces a finite or counted-infinite sequence of calibration
// (input, target) pairs. Next returns io.EOF when exhausted.
type DataLoader interface {
	Next(ctx context.Context) (input, target *tensor.Dense, err error)
	// BatchSize is the number of samples per batch.
	BatchSize() int
}

// TensorExtractor pulls the tensor observed at one activation quantization
// point out of a calibration batch.
type TensorExtractor func(input *tensor.Dense) (*tensor.Dense, error)

// InitPoint binds a quantizer to the data its collector will see: the weight
// tensor for weight points, an extractor over calibration batches for
// activation points.
type InitPoint struct {
	// Point identifies the quantization site.
	Point quantization.InsertionPoint
	// Quantizer is the module to initialize.
	Quantizer quantization.Quantizer
	// Params is the statistical shape contract for the site.
	Params CollectorParams
	// Activation extracts this point's tensor from a calibration batch.
	// Required for activation points.
	Activation TensorExtractor
	// Weight is the weight tensor, registered exactly once.
	// Required for weight points.
	Weight *tensor.Dense
}

// Broadcaster propagates finalized quantizer parameters from one rank to the
// others after initialization completes. Collector accumulation is not
// mergeable across processes, so data-parallel convergence goes through
// parameter broadcast, never through partial-statistic merging.
type Broadcaster interface {
	Broadcast(ctx context.Context, quantizers []quantization.Quantizer) error
}

// NopBroadcaster is the single-process Broadcaster.
type NopBroadcaster struct{}

// Broadcast does nothing.
func (NopBroadcaster) Broadcast(context.Context, []quantization.Quantizer) error { return nil }

// Runner drives range initialization: it resolves the rule for every point,
// binds collectors, streams calibration batches through them, and applies the
// finalized statistics to the quantizers.
type Runner struct {
	params      *RangeInitParams
	log         *slog.Logger
	broadcaster Broadcaster
}

// NewRunner builds a runner. A nil logger discards log output; a nil
// broadcaster keeps initialization process-local.
func NewRunner(params *RangeInitParams, log *slog.Logger, broadcaster Broadcaster) *Runner {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	if broadcaster == nil {
		broadcaster = NopBroadcaster{}
	}
	return &Runner{params: params, log: log, broadcaster: broadcaster}
}

// binding is one point with its resolved rule and bound collector.
type binding struct {
	point     *InitPoint
	cfg       RangeInitConfig
	collector statistics.Collector
}

// satisfied reports whether the collector has met its sample budget.
func (b *binding) satisfied() bool {
	return b.collector.Collected() >= b.cfg.NumInitSamples
}

// Run initializes every point from calibration data. Configuration errors
// surface before any batch is pulled. Quantizers already initialized (for
// example from persisted state) are skipped. Points resolving to a zero
// sample budget are left at their default scale.
func (r *Runner) Run(ctx context.Context, points []InitPoint, loader DataLoader) error {
	bound, activations, err := r.bind(points)
	if err != nil {
		return err
	}

	if len(activations) > 0 {
		if err := r.collect(ctx, activations, loader); err != nil {
			return err
		}
	}

	quantizers := make([]quantization.Quantizer, 0, len(bound))
	for _, b := range bound {
		stat, err := b.collector.GetStatistics()
		if err != nil {
			return errors.Wrapf(err, "finalizing statistics for %s", b.point.Point)
		}
		if err := b.point.Quantizer.ApplyMinMaxInit(stat.MinValues, stat.MaxValues); err != nil {
			return errors.Wrapf(err, "initializing quantizer at %s", b.point.Point)
		}
		quantizers = append(quantizers, b.point.Quantizer)
	}

	return r.broadcaster.Broadcast(ctx, quantizers)
}

// bind resolves rules and creates collectors for every eligible point, and
// registers each weight tensor exactly once. All configuration failures
// happen here, before calibration work begins.
func (r *Runner) bind(points []InitPoint) (bound, activations []*binding, err error) {
	for i := range points {
		p := &points[i]
		if p.Quantizer.Initialized() {
			r.log.Debug("skipping restored quantizer", "point", p.Point.String())
			continue
		}
		cfg, err := r.params.InitConfigForPoint(p.Point)
		if err != nil {
			return nil, nil, err
		}
		if cfg.NumInitSamples == 0 {
			r.log.Debug("zero sample budget, leaving default scale", "point", p.Point.String())
			continue
		}
		collector, err := CreateCollector(cfg, p.Quantizer.Spec().ScaleShape, p.Params)
		if err != nil {
			return nil, nil, err
		}
		b := &binding{point: p, cfg: cfg, collector: collector}
		switch p.Point.Group {
		case quantization.GroupWeights:
			if p.Weight == nil {
				return nil, nil, common.NewConfigurationError("weight point %s has no weight tensor", p.Point)
			}
			if err := collector.RegisterInput(p.Weight); err != nil {
				return nil, nil, errors.Wrapf(err, "registering weights for %s", p.Point)
			}
		case quantization.GroupActivations:
			if p.Activation == nil {
				return nil, nil, common.NewConfigurationError("activation point %s has no extractor", p.Point)
			}
			activations = append(activations, b)
		default:
			return nil, nil, common.NewConfigurationError("unknown quantizer group %q", p.Point.Group)
		}
		bound = append(bound, b)
	}
	return bound, activations, nil
}

// collect streams calibration batches into the activation collectors until
// every sample budget is met or the loader is exhausted.
func (r *Runner) collect(ctx context.Context, activations []*binding, loader DataLoader) error {
	if loader == nil {
		return common.NewConfigurationError("activation range init requires a calibration data loader")
	}
	for {
		pending := false
		for _, b := range activations {
			if !b.satisfied() {
				pending = true
				break
			}
		}
		if !pending {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		input, _, err := loader.Next(ctx)
		if err == io.EOF {
			r.log.Debug("calibration data exhausted before all sample budgets were met")
			return nil
		}
		if err != nil {
			return errors.Wrap(err, "pulling calibration batch")
		}

		for _, b := range activations {
			if b.satisfied() {
				continue
			}
			t, err := b.point.Activation(input)
			if err != nil {
				return errors.Wrapf(err, "extracting activation for %s", b.point.Point)
			}
			if err := b.collector.RegisterInput(t); err != nil {
				return errors.Wrapf(err, "registering batch for %s", b.point.Point)
			}
		}
	}
}
