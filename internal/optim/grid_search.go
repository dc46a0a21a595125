// Package optim tunes controller gains and motor parameters by exhaustive
// search over simulated runs.
package optim

import (
	"context"
	"errors"
	"fmt"
	"math"

	"go.uber.org/zap"

	"github.com/san-kum/motorsim/internal/config"
	"github.com/san-kum/motorsim/internal/sim"
)

// ErrNoCandidates is returned when every grid point fails validation.
var ErrNoCandidates = errors.New("optim: no valid candidates")

// Axis is one tunable and the values to try for it.
type Axis struct {
	Name   string
	Values []float64
}

// Linspace returns n evenly spaced values from lo to hi inclusive.
func Linspace(lo, hi float64, n int) []float64 {
	if n <= 1 {
		return []float64{lo}
	}
	out := make([]float64, n)
	step := (hi - lo) / float64(n-1)
	for i := range out {
		out[i] = lo + float64(i)*step
	}
	return out
}

// Best is the winning grid point.
type Best struct {
	Params map[string]float64
	Value  float64
	Config config.Config
	// Evaluated counts the candidates that passed validation.
	Evaluated int
}

type GridSearch struct {
	axes     []Axis
	tunables []config.Tunable
	logger   *zap.Logger
}

func NewGridSearch(logger *zap.Logger, axes ...Axis) (*GridSearch, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	byName := make(map[string]config.Tunable)
	for _, tn := range config.Tunables() {
		byName[tn.Name] = tn
	}

	g := &GridSearch{axes: axes, logger: logger}
	for _, ax := range axes {
		tn, ok := byName[ax.Name]
		if !ok {
			return nil, fmt.Errorf("optim: unknown tunable %q", ax.Name)
		}
		if len(ax.Values) == 0 {
			return nil, fmt.Errorf("optim: axis %q has no values", ax.Name)
		}
		g.tunables = append(g.tunables, tn)
	}
	return g, nil
}

// Search simulates every grid point for duration seconds and returns the one
// minimising metric. Points whose config fails validation are skipped.
func (g *GridSearch) Search(ctx context.Context, base config.Config, duration float64, metric string) (Best, error) {
	var (
		cfgs   []config.Config
		params []map[string]float64
	)
	g.expand(0, base, make(map[string]float64), func(cfg config.Config, p map[string]float64) {
		if err := cfg.Validate(); err != nil {
			g.logger.Debug("skipping candidate", zap.Any("params", p), zap.Error(err))
			return
		}
		cfgs = append(cfgs, cfg)
		params = append(params, p)
	})
	if len(cfgs) == 0 {
		return Best{}, ErrNoCandidates
	}

	results, err := sim.NewEnsemble(g.logger).Run(ctx, cfgs, duration)
	if err != nil {
		return Best{}, err
	}

	best := Best{Value: math.Inf(1), Evaluated: len(results)}
	for i, r := range results {
		val, ok := r.Metrics[metric]
		if !ok {
			return Best{}, fmt.Errorf("optim: unknown metric %q", metric)
		}
		if val < best.Value {
			best.Value = val
			best.Params = params[i]
			best.Config = cfgs[i]
		}
	}

	g.logger.Info("grid search finished",
		zap.Int("candidates", best.Evaluated),
		zap.String("metric", metric),
		zap.Float64("best", best.Value),
		zap.Any("params", best.Params),
	)
	return best, nil
}

func (g *GridSearch) expand(depth int, cfg config.Config, current map[string]float64, visit func(config.Config, map[string]float64)) {
	if depth == len(g.axes) {
		visit(cfg, current)
		return
	}

	tn := g.tunables[depth]
	for _, val := range g.axes[depth].Values {
		next := make(map[string]float64, len(current)+1)
		for k, v := range current {
			next[k] = v
		}
		next[tn.Name] = val

		c := cfg
		tn.Set(&c, val)
		g.expand(depth+1, c, next, visit)
	}
}
