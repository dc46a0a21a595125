package automation

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/san-kum/motorsim/internal/config"
	"github.com/san-kum/motorsim/internal/optim"
	"github.com/san-kum/motorsim/internal/sim"
	"github.com/san-kum/motorsim/internal/telemetry"
)

// ParameterSweep varies one tunable across [Min, Max] in Steps values.
type ParameterSweep struct {
	Base     config.Config
	Param    string
	Min      float64
	Max      float64
	Steps    int
	Duration float64
}

type SweepResult struct {
	Value   float64
	Final   telemetry.Sample
	Metrics map[string]float64
}

// RunSweep simulates every sweep point concurrently.
func RunSweep(ctx context.Context, sweep ParameterSweep, logger *zap.Logger) ([]SweepResult, error) {
	if sweep.Steps < 1 {
		return nil, fmt.Errorf("sweep needs at least one step, got %d", sweep.Steps)
	}

	var tunable *config.Tunable
	for _, tn := range config.Tunables() {
		if tn.Name == sweep.Param {
			tunable = &tn
			break
		}
	}
	if tunable == nil {
		return nil, fmt.Errorf("unknown parameter %q", sweep.Param)
	}

	values := optim.Linspace(sweep.Min, sweep.Max, sweep.Steps)
	cfgs := make([]config.Config, len(values))
	for i, v := range values {
		cfg := sweep.Base
		tunable.Set(&cfg, v)
		if err := cfg.Validate(); err != nil {
			return nil, fmt.Errorf("%s=%g: %w", sweep.Param, v, err)
		}
		cfgs[i] = cfg
	}

	results, err := sim.NewEnsemble(logger).Run(ctx, cfgs, sweep.Duration)
	if err != nil {
		return nil, err
	}

	out := make([]SweepResult, len(results))
	for i, r := range results {
		out[i] = SweepResult{Value: values[i], Final: r.Final(), Metrics: r.Metrics}
	}
	return out, nil
}
