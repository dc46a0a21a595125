package config

import "github.com/san-kum/motorsim/internal/control"

// Tunable is a scalar field of Config that an operator may edit live.
type Tunable struct {
	Name string
	Get  func(*Config) float64
	Set  func(*Config, float64)
}

// Tunables lists the editable gains followed by the motor parameters.
func Tunables() []Tunable {
	var out []Tunable
	for _, stage := range control.Stages {
		stage := stage
		out = append(out,
			Tunable{
				Name: stage.String() + ".kp",
				Get:  func(c *Config) float64 { return c.pid(stage).Kp },
				Set:  func(c *Config, v float64) { c.pid(stage).Kp = v },
			},
			Tunable{
				Name: stage.String() + ".ki",
				Get:  func(c *Config) float64 { return c.pid(stage).Ki },
				Set:  func(c *Config, v float64) { c.pid(stage).Ki = v },
			},
			Tunable{
				Name: stage.String() + ".kd",
				Get:  func(c *Config) float64 { return c.pid(stage).Kd },
				Set:  func(c *Config, v float64) { c.pid(stage).Kd = v },
			},
		)
	}
	return append(out,
		Tunable{"motor.j", func(c *Config) float64 { return c.Motor.J }, func(c *Config, v float64) { c.Motor.J = v }},
		Tunable{"motor.b", func(c *Config) float64 { return c.Motor.B }, func(c *Config, v float64) { c.Motor.B = v }},
		Tunable{"motor.l", func(c *Config) float64 { return c.Motor.L }, func(c *Config, v float64) { c.Motor.L = v }},
		Tunable{"motor.r", func(c *Config) float64 { return c.Motor.R }, func(c *Config, v float64) { c.Motor.R = v }},
		Tunable{"motor.k", func(c *Config) float64 { return c.Motor.K }, func(c *Config, v float64) { c.Motor.K = v }},
	)
}

func (c *Config) pid(stage control.Stage) *control.Config {
	switch stage {
	case control.StageVelocity:
		return &c.Velocity
	case control.StageTorque:
		return &c.Torque
	default:
		return &c.Position
	}
}
