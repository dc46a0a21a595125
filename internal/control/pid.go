package control

import (
	"fmt"
	"math"

	"github.com/san-kum/motorsim/internal/dynamo"
)

type Config struct {
	Kp    float64 `yaml:"kp" koanf:"kp"`
	Ki    float64 `yaml:"ki" koanf:"ki"`
	Kd    float64 `yaml:"kd" koanf:"kd"`
	Stage Stage   `yaml:"stage" koanf:"stage"`
}

func (c Config) Validate() error {
	if _, err := ParseStage(string(c.Stage)); err != nil {
		return err
	}
	gains := []struct {
		name  string
		value float64
	}{
		{"kp", c.Kp}, {"ki", c.Ki}, {"kd", c.Kd},
	}
	for _, g := range gains {
		if math.IsNaN(g.value) || math.IsInf(g.value, 0) {
			return &dynamo.ParameterError{Name: fmt.Sprintf("%s.%s", c.Stage, g.name), Value: g.value, Wrapped: dynamo.ErrParameterBounds}
		}
	}
	return nil
}

type PID struct {
	Config

	integral   dynamo.Integrator
	derivative dynamo.Derivative
}

func New(cfg Config) *PID {
	return &PID{Config: cfg}
}

// GenerateControl runs one step of the control law and saturates the result
// to [-bound, bound]. bound must be non-negative and delta non-zero.
func (p *PID) GenerateControl(measured, target, delta, bound float64) float64 {
	err := target - measured

	p.derivative.Derivate(delta, err)
	p.integral.Integrate(delta, err)

	out := p.Kp*err + p.Kd*p.derivative.State() + p.Ki*p.integral.State()
	return math.Max(-bound, math.Min(bound, out))
}

// Reset replaces the gains and clears the integral and derivative memory.
func (p *PID) Reset(cfg Config) {
	p.Config = cfg
	p.integral.Reset()
	p.derivative.Reset()
}

// Integral returns the accumulated error integral.
func (p *PID) Integral() float64 {
	return p.integral.State()
}
