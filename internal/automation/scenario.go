// Package automation drives batches of simulated runs: scripted scenarios,
// single-parameter sweeps and Monte Carlo robustness trials.
package automation

import (
	"context"
	"fmt"
	"os"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/san-kum/motorsim/internal/config"
	"github.com/san-kum/motorsim/internal/control"
	"github.com/san-kum/motorsim/internal/sim"
)

// Scenario defines a scripted sequence of runs.
type Scenario struct {
	Name        string         `yaml:"name"`
	Description string         `yaml:"description"`
	Steps       []ScenarioStep `yaml:"steps"`
}

// ScenarioStep is one run. Preset picks the starting config (defaults when
// empty); the remaining fields override it.
type ScenarioStep struct {
	Name        string             `yaml:"name"`
	Preset      string             `yaml:"preset"`
	Integrator  string             `yaml:"integrator"`
	Control     string             `yaml:"control"`
	Calibration string             `yaml:"calibration"`
	Target      *float64           `yaml:"target"`
	Duration    float64            `yaml:"duration"`
	Params      map[string]float64 `yaml:"params"`
}

type StepResult struct {
	Name   string
	Result *sim.Result
}

// LoadScenario loads a scenario from a YAML file.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var scenario Scenario
	if err := yaml.Unmarshal(data, &scenario); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if len(scenario.Steps) == 0 {
		return nil, fmt.Errorf("scenario %q has no steps", scenario.Name)
	}
	return &scenario, nil
}

// Config builds the validated config for the step.
func (s ScenarioStep) Config() (config.Config, error) {
	cfg := config.DefaultConfig()
	if s.Preset != "" {
		p, ok := config.GetPreset(s.Preset)
		if !ok {
			return config.Config{}, fmt.Errorf("unknown preset %q (available: %v)", s.Preset, config.ListPresets())
		}
		cfg = p
	}

	if s.Integrator != "" {
		cfg.Plant.Integrator = s.Integrator
	}
	if s.Control != "" {
		cfg.Controller.Control = config.ControlOption(s.Control)
	}
	if s.Calibration != "" {
		cfg.Controller.Calibration = control.Stage(s.Calibration)
	}
	if s.Target != nil {
		cfg.Controller.Target = *s.Target
	}
	if err := applyParams(&cfg, s.Params); err != nil {
		return config.Config{}, err
	}
	return cfg, cfg.Validate()
}

func applyParams(cfg *config.Config, params map[string]float64) error {
	if len(params) == 0 {
		return nil
	}
	byName := make(map[string]config.Tunable)
	for _, tn := range config.Tunables() {
		byName[tn.Name] = tn
	}
	for name, v := range params {
		tn, ok := byName[name]
		if !ok {
			return fmt.Errorf("unknown parameter %q", name)
		}
		tn.Set(cfg, v)
	}
	return nil
}

// RunScenario executes the steps in order. The results gathered so far are
// returned with the first error.
func RunScenario(ctx context.Context, scenario *Scenario, logger *zap.Logger) ([]StepResult, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	results := make([]StepResult, 0, len(scenario.Steps))

	for i, step := range scenario.Steps {
		name := step.Name
		if name == "" {
			name = fmt.Sprintf("step-%d", i+1)
		}
		logger.Info("running scenario step",
			zap.String("scenario", scenario.Name),
			zap.String("step", name),
			zap.Int("index", i+1),
			zap.Int("of", len(scenario.Steps)),
		)

		cfg, err := step.Config()
		if err != nil {
			return results, fmt.Errorf("step %d (%s): %w", i+1, name, err)
		}

		duration := step.Duration
		if duration == 0 {
			duration = cfg.Controller.Duration
		}

		result, err := sim.Simulate(ctx, cfg, duration, logger)
		if err != nil {
			return results, fmt.Errorf("step %d (%s) run: %w", i+1, name, err)
		}

		results = append(results, StepResult{Name: name, Result: result})
	}

	return results, nil
}
