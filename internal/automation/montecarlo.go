package automation

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"time"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/stat"

	"github.com/san-kum/motorsim/internal/config"
	"github.com/san-kum/motorsim/internal/sim"
)

// MotorParams are the tunables perturbed when MonteCarloConfig.Params is
// empty.
var MotorParams = []string{"motor.j", "motor.b", "motor.l", "motor.r", "motor.k"}

// settleFraction is the tail of a run inspected for voltage saturation.
const settleFraction = 0.1

// MonteCarloConfig perturbs each named parameter by a uniform factor in
// [1-Perturbation, 1+Perturbation] for every trial.
type MonteCarloConfig struct {
	Base         config.Config
	Params       []string
	Perturbation float64
	Trials       int
	Duration     float64
	Seed         int64
}

type MonteCarloResult struct {
	Trial   int
	Params  map[string]float64
	Metrics map[string]float64
	// Settled is false when the drive was still saturated over the tail of
	// the run, or any sample was not finite.
	Settled bool
}

// RunMonteCarlo runs the trials concurrently. A zero seed draws one from the
// clock.
func RunMonteCarlo(ctx context.Context, mc MonteCarloConfig, logger *zap.Logger) ([]MonteCarloResult, error) {
	if mc.Trials < 1 {
		return nil, fmt.Errorf("monte carlo needs at least one trial, got %d", mc.Trials)
	}
	if mc.Perturbation < 0 || mc.Perturbation >= 1 {
		return nil, fmt.Errorf("perturbation must be in [0, 1), got %g", mc.Perturbation)
	}

	names := mc.Params
	if len(names) == 0 {
		names = MotorParams
	}
	byName := make(map[string]config.Tunable)
	for _, tn := range config.Tunables() {
		byName[tn.Name] = tn
	}
	for _, n := range names {
		if _, ok := byName[n]; !ok {
			return nil, fmt.Errorf("unknown parameter %q", n)
		}
	}

	seed := mc.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(seed))

	cfgs := make([]config.Config, mc.Trials)
	params := make([]map[string]float64, mc.Trials)
	for trial := range cfgs {
		cfg := mc.Base
		p := make(map[string]float64, len(names))
		for _, n := range names {
			tn := byName[n]
			v := tn.Get(&cfg) * (1 + (rng.Float64()-0.5)*2*mc.Perturbation)
			tn.Set(&cfg, v)
			p[n] = v
		}
		cfgs[trial] = cfg
		params[trial] = p
	}

	results, err := sim.NewEnsemble(logger).Run(ctx, cfgs, mc.Duration)
	if err != nil {
		return nil, err
	}

	out := make([]MonteCarloResult, len(results))
	for i, r := range results {
		out[i] = MonteCarloResult{
			Trial:   i,
			Params:  params[i],
			Metrics: r.Metrics,
			Settled: settled(r),
		}
	}
	return out, nil
}

func settled(r *sim.Result) bool {
	if len(r.Samples) == 0 {
		return false
	}
	bound := r.Config.Controller.VoltageBound
	tail := int(math.Ceil(float64(len(r.Samples)) * settleFraction))
	for i, s := range r.Samples {
		for _, v := range []float64{s.Position, s.Velocity, s.Voltage, s.Torque} {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return false
			}
		}
		if i >= len(r.Samples)-tail && math.Abs(s.Voltage) >= bound {
			return false
		}
	}
	return true
}

// MonteCarloSummary aggregates one metric across trials.
type MonteCarloSummary struct {
	Settled   int
	Unsettled int
	Mean      float64
	StdDev    float64
	Worst     float64
}

func MonteCarloStats(results []MonteCarloResult, metric string) MonteCarloSummary {
	var sum MonteCarloSummary
	vals := make([]float64, 0, len(results))
	for _, r := range results {
		if r.Settled {
			sum.Settled++
		} else {
			sum.Unsettled++
		}
		if v, ok := r.Metrics[metric]; ok {
			vals = append(vals, v)
		}
	}
	if len(vals) == 0 {
		return sum
	}

	sum.Mean = stat.Mean(vals, nil)
	if len(vals) > 1 {
		sum.StdDev = stat.StdDev(vals, nil)
	}
	sum.Worst = vals[0]
	for _, v := range vals {
		sum.Worst = max(sum.Worst, v)
	}
	return sum
}
