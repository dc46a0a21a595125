package config

import (
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"strings"

	"github.com/knadh/koanf"
	kyaml "github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"gopkg.in/yaml.v3"

	"github.com/san-kum/motorsim/internal/clock"
	"github.com/san-kum/motorsim/internal/control"
	"github.com/san-kum/motorsim/internal/dynamo"
	"github.com/san-kum/motorsim/internal/integrators"
	"github.com/san-kum/motorsim/internal/motor"
)

const (
	DefaultVoltageBound  = 12.0
	DefaultVelocityBound = 1500.0
	DefaultTorqueBound   = 0.5
	DefaultDuration      = 5.0
	DefaultFrequency     = 1000.0
	DefaultTarget        = 180.0

	// EnvPrefix selects the environment variables Load reads. Nested keys
	// are separated by a double underscore, e.g.
	// MOTORSIM_CONTROLLER__VOLTAGE_BOUND.
	EnvPrefix = "MOTORSIM_"
)

// ControlOption selects how many cascade stages run outside calibration.
type ControlOption string

const (
	ControlPos       ControlOption = "pos"
	ControlPosVelTrq ControlOption = "pos_vel_trq"
)

// Config is a complete snapshot of everything the control loop needs.
// Every snapshot received by the loop replaces the previous one entirely.
type Config struct {
	Motor      motor.Config     `yaml:"motor" koanf:"motor"`
	Plant      PlantConfig      `yaml:"plant" koanf:"plant"`
	Position   control.Config   `yaml:"position" koanf:"position"`
	Velocity   control.Config   `yaml:"velocity" koanf:"velocity"`
	Torque     control.Config   `yaml:"torque" koanf:"torque"`
	Controller ControllerConfig `yaml:"controller" koanf:"controller"`
}

type PlantConfig struct {
	// Integrator is "zoh" for the exact discretization or the name of a
	// numerical stepper.
	Integrator string `yaml:"integrator" koanf:"integrator"`
}

type ControllerConfig struct {
	VoltageBound  float64 `yaml:"voltage_bound" koanf:"voltage_bound"`   // V
	VelocityBound float64 `yaml:"velocity_bound" koanf:"velocity_bound"` // rpm
	TorqueBound   float64 `yaml:"torque_bound" koanf:"torque_bound"`     // N·m
	Duration      float64 `yaml:"duration" koanf:"duration"`             // s
	Frequency     float64 `yaml:"frequency" koanf:"frequency"`           // Hz

	// Calibration, when set, isolates one stage against a fixed setpoint.
	Calibration control.Stage `yaml:"calibration" koanf:"calibration"`
	Control     ControlOption `yaml:"control" koanf:"control"`
	Target      float64       `yaml:"target" koanf:"target"` // deg

	Start bool `yaml:"start" koanf:"start"`
	End   bool `yaml:"end" koanf:"end"`
}

func DefaultConfig() Config {
	return Config{
		Motor: motor.DefaultConfig(),
		Plant: PlantConfig{Integrator: integrators.ZOH},
		Position: control.Config{
			Kp: 3, Ki: 0, Kd: 0.1, Stage: control.StagePosition,
		},
		Velocity: control.Config{
			Kp: 0.005, Ki: 0, Kd: 0, Stage: control.StageVelocity,
		},
		Torque: control.Config{
			Kp: 20, Ki: 2000, Kd: 0, Stage: control.StageTorque,
		},
		Controller: ControllerConfig{
			VoltageBound:  DefaultVoltageBound,
			VelocityBound: DefaultVelocityBound,
			TorqueBound:   DefaultTorqueBound,
			Duration:      DefaultDuration,
			Frequency:     DefaultFrequency,
			Control:       ControlPos,
			Target:        DefaultTarget,
		},
	}
}

// PID returns the gains of the given cascade stage.
func (c Config) PID(stage control.Stage) control.Config {
	switch stage {
	case control.StageVelocity:
		return c.Velocity
	case control.StageTorque:
		return c.Torque
	default:
		return c.Position
	}
}

// Validate reports the first precondition the snapshot violates.
func (c Config) Validate() error {
	if err := c.Motor.Validate(); err != nil {
		return err
	}
	if _, err := integrators.Lookup(c.Plant.Integrator); err != nil {
		return err
	}

	for _, slot := range []struct {
		want control.Stage
		cfg  control.Config
	}{
		{control.StagePosition, c.Position},
		{control.StageVelocity, c.Velocity},
		{control.StageTorque, c.Torque},
	} {
		if err := slot.cfg.Validate(); err != nil {
			return err
		}
		if slot.cfg.Stage != slot.want {
			return fmt.Errorf("%s gains tagged %q: %w", slot.want, slot.cfg.Stage, dynamo.ErrUnknownName)
		}
	}

	return c.Controller.Validate()
}

func (c ControllerConfig) Validate() error {
	bounds := []struct {
		name     string
		value    float64
		positive bool
	}{
		{"controller.voltage_bound", c.VoltageBound, false},
		{"controller.velocity_bound", c.VelocityBound, false},
		{"controller.torque_bound", c.TorqueBound, false},
		{"controller.duration", c.Duration, true},
		{"controller.frequency", c.Frequency, true},
	}
	for _, b := range bounds {
		bad := math.IsNaN(b.value) || math.IsInf(b.value, 0) || b.value < 0 || (b.positive && b.value == 0)
		if bad {
			return &dynamo.ParameterError{Name: b.name, Value: b.value, Wrapped: dynamo.ErrParameterBounds}
		}
	}
	if !clock.InRange(c.Frequency) {
		return &dynamo.ParameterError{Name: "controller.frequency", Value: c.Frequency, Wrapped: dynamo.ErrParameterBounds}
	}

	if c.Calibration != "" {
		if _, err := control.ParseStage(string(c.Calibration)); err != nil {
			return fmt.Errorf("controller.calibration: %w", err)
		}
	}
	switch c.Control {
	case ControlPos, ControlPosVelTrq:
	default:
		return fmt.Errorf("controller.control %q: %w", c.Control, dynamo.ErrUnknownName)
	}
	return nil
}

// Load layers compiled defaults, the YAML file at path and MOTORSIM_
// environment variables, then validates the result. A missing file or an
// empty path leaves the defaults in place.
func Load(path string) (Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(DefaultConfig(), "koanf"), nil); err != nil {
		return Config{}, fmt.Errorf("load defaults: %w", err)
	}

	if path != "" {
		if err := k.Load(file.Provider(path), kyaml.Parser()); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("load %s: %w", path, err)
		}
	}

	err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, EnvPrefix)), "__", ".")
	}), nil)
	if err != nil {
		return Config{}, fmt.Errorf("load environment: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func Save(path string, cfg Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
