package sim

import (
	"context"
	"fmt"
	"math"
	"sync"

	"go.uber.org/zap"

	"github.com/san-kum/motorsim/internal/cascade"
	"github.com/san-kum/motorsim/internal/clock"
	"github.com/san-kum/motorsim/internal/config"
	"github.com/san-kum/motorsim/internal/metrics"
	"github.com/san-kum/motorsim/internal/telemetry"
)

// Result is the outcome of a simulated-time run.
type Result struct {
	Config  config.Config
	Samples []telemetry.Sample
	Metrics map[string]float64
	Steps   int
	// Finished reports that a calibration run reached its duration.
	Finished bool
}

// Final returns the last admitted sample.
func (r *Result) Final() telemetry.Sample {
	if len(r.Samples) == 0 {
		return telemetry.Sample{}
	}
	return r.Samples[len(r.Samples)-1]
}

// DefaultMetrics returns the run metrics that apply to cfg.
func DefaultMetrics(cfg config.Config) ([]metrics.Metric, error) {
	mode, err := cascade.ResolveMode(cfg.Controller)
	if err != nil {
		return nil, err
	}
	return []metrics.Metric{
		metrics.NewControlEffort(),
		metrics.NewSaturation(cfg.Controller.VoltageBound),
		metrics.NewTrackingError(mode.Stage()),
		metrics.NewEnergy(cfg.Motor.K),
	}, nil
}

// Simulate runs cfg for duration seconds of simulated time. Every tick lasts
// exactly one nominal period, so results are reproducible. A calibration run
// ends early once it stops itself.
func Simulate(ctx context.Context, cfg config.Config, duration float64, logger *zap.Logger) (*Result, error) {
	if duration <= 0 || math.IsNaN(duration) || math.IsInf(duration, 0) {
		return nil, fmt.Errorf("duration must be positive, got %f", duration)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	ms, err := DefaultMetrics(cfg)
	if err != nil {
		return nil, err
	}
	set := metrics.NewSet(ms...)

	window := telemetry.NewWindow()
	target := telemetry.NewTarget(cfg.Controller.Target)
	ctrl, err := cascade.New(cfg, window, target,
		cascade.WithClockSource(clock.NewFixedStep(clock.Period(cfg.Controller.Frequency))),
		cascade.WithLogger(logger),
		cascade.WithObservers(set),
	)
	if err != nil {
		return nil, err
	}
	if err := ctrl.Start(); err != nil {
		return nil, err
	}

	steps := int(math.Round(duration * cfg.Controller.Frequency))
	result := &Result{
		Config:  cfg,
		Samples: make([]telemetry.Sample, 0, steps),
	}

	for i := 0; i < steps; i++ {
		select {
		case <-ctx.Done():
			return result, ctx.Err()
		default:
		}

		s, admitted, err := ctrl.CalculatePoint(ctx)
		if err != nil {
			return result, err
		}
		result.Steps++
		if !admitted {
			result.Finished = true
			break
		}
		result.Samples = append(result.Samples, s)
	}

	result.Metrics = set.Summary()
	return result, nil
}

// Ensemble simulates several configs concurrently.
type Ensemble struct {
	logger *zap.Logger
}

func NewEnsemble(logger *zap.Logger) *Ensemble {
	return &Ensemble{logger: logger}
}

// Run returns one result per config, in order. The first error wins.
func (e *Ensemble) Run(ctx context.Context, cfgs []config.Config, duration float64) ([]*Result, error) {
	results := make([]*Result, len(cfgs))
	errs := make([]error, len(cfgs))

	var wg sync.WaitGroup
	for i, cfg := range cfgs {
		wg.Add(1)
		go func(idx int, cfg config.Config) {
			defer wg.Done()
			results[idx], errs[idx] = Simulate(ctx, cfg, duration, e.logger)
		}(i, cfg)
	}

	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}

	return results, nil
}
