// Package cascade drives the motor plant with up to three chained PID loops
// and records the result into a shared telemetry window.
package cascade

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/san-kum/motorsim/internal/clock"
	"github.com/san-kum/motorsim/internal/config"
	"github.com/san-kum/motorsim/internal/control"
	"github.com/san-kum/motorsim/internal/dynamo"
	"github.com/san-kum/motorsim/internal/integrators"
	"github.com/san-kum/motorsim/internal/motor"
	"github.com/san-kum/motorsim/internal/telemetry"
)

// Observer is notified of every sample admitted to the window.
type Observer interface {
	OnSample(s telemetry.Sample)
}

type Option func(*Controller)

func WithClockSource(src clock.Source) Option {
	return func(c *Controller) { c.source = src }
}

func WithLogger(l *zap.Logger) Option {
	return func(c *Controller) { c.logger = l }
}

func WithObservers(obs ...Observer) Option {
	return func(c *Controller) { c.observers = append(c.observers, obs...) }
}

// Controller owns the plant and the three PID loops. It is not safe for
// concurrent use; only the window and target are shared.
type Controller struct {
	cfg   config.Config
	mode  Mode
	state State

	plant    *motor.Motor
	position *control.PID
	velocity *control.PID
	torque   *control.PID

	source clock.Source
	clock  *clock.Clock

	setpoint float64

	window *telemetry.Window
	target *telemetry.Target

	logger    *zap.Logger
	observers []Observer
}

func New(cfg config.Config, window *telemetry.Window, target *telemetry.Target, opts ...Option) (*Controller, error) {
	c := &Controller{
		window:   window,
		target:   target,
		source:   clock.SystemSource,
		logger:   zap.NewNop(),
		position: control.New(cfg.Position),
		velocity: control.New(cfg.Velocity),
		torque:   control.New(cfg.Torque),
	}
	for _, opt := range opts {
		opt(c)
	}
	if err := c.Reset(cfg); err != nil {
		return nil, err
	}
	return c, nil
}

// Reset applies cfg to every sub-component, clears the telemetry window and
// returns the controller to Idle. An invalid cfg leaves the controller
// untouched.
func (c *Controller) Reset(cfg config.Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	mode, err := ResolveMode(cfg.Controller)
	if err != nil {
		return err
	}
	stepper, err := integrators.Lookup(cfg.Plant.Integrator)
	if err != nil {
		return err
	}
	plant, err := motor.New(cfg.Motor, motor.WithStepper(stepper))
	if err != nil {
		return err
	}

	c.cfg = cfg
	c.mode = mode
	c.plant = plant
	c.position.Reset(cfg.Position)
	c.velocity.Reset(cfg.Velocity)
	c.torque.Reset(cfg.Torque)
	c.clock = clock.New(cfg.Controller.Frequency, c.source)
	c.window.Clear()
	c.state = StateIdle

	c.logger.Debug("controller reset",
		zap.Stringer("mode", mode),
		zap.String("integrator", cfg.Plant.Integrator),
		zap.Float64("frequency", cfg.Controller.Frequency),
	)
	return nil
}

// Start begins a run. Starting a running controller is a no-op.
func (c *Controller) Start() error {
	switch c.state {
	case StateStopped:
		return ErrStopped
	case StateRunningDirect, StateRunningCalibration:
		return nil
	}

	c.clock = clock.New(c.cfg.Controller.Frequency, c.source)
	if c.mode.Calibrating() {
		c.state = StateRunningCalibration
	} else {
		c.state = StateRunningDirect
	}
	c.logger.Info("run started", zap.Stringer("mode", c.mode))
	return nil
}

func (c *Controller) Stop() {
	if c.state == StateStopped {
		return
	}
	c.state = StateStopped
	c.logger.Info("run stopped", zap.Float64("elapsed", c.clock.TimeSinceStart()))
}

// CalculatePoint waits for the next tick, drives the plant for the elapsed
// delta and records the outcome. The returned bool reports whether the
// sample was admitted to the window; a calibration run that has exceeded its
// duration is stopped instead. A plant state that is no longer finite stops
// the run and returns an error wrapping dynamo.ErrInvalidState.
func (c *Controller) CalculatePoint(ctx context.Context) (telemetry.Sample, bool, error) {
	if !c.state.Running() {
		return telemetry.Sample{}, false, ErrNotRunning
	}
	if err := c.clock.Tick(ctx); err != nil {
		return telemetry.Sample{}, false, err
	}

	delta := c.clock.Delta()
	now := c.clock.TimeSinceStart()

	voltage := c.GenerateControl(delta)
	c.plant.Advance(delta, voltage)
	if !c.plant.State().IsValid() {
		c.Stop()
		return telemetry.Sample{}, false, fmt.Errorf("plant diverged at t=%gs: %w", now, dynamo.ErrInvalidState)
	}

	s := telemetry.Sample{
		Time:     now,
		Position: c.plant.Position(),
		Velocity: c.plant.Velocity(),
		Voltage:  voltage,
		Torque:   c.plant.Torque(),
		Setpoint: c.setpoint,
	}

	if c.state == StateRunningCalibration && now > c.cfg.Controller.Duration {
		c.state = StateStopped
		c.logger.Info("calibration finished",
			zap.Stringer("mode", c.mode),
			zap.Float64("duration", c.cfg.Controller.Duration),
		)
		return s, false, nil
	}

	c.window.Append(s, c.cfg.Controller.Duration)
	for _, o := range c.observers {
		o.OnSample(s)
	}
	return s, true, nil
}

// GenerateControl computes the drive voltage for the current mode, advancing
// the integral and derivative memory of every stage it routes through.
func (c *Controller) GenerateControl(delta float64) float64 {
	b := c.cfg.Controller
	switch c.mode {
	case ModePosition:
		c.setpoint = c.target.Get()
		return c.position.GenerateControl(c.plant.Position(), c.setpoint, delta, b.VoltageBound)
	case ModeCascade:
		c.setpoint = c.target.Get()
		return c.fromPosition(c.setpoint, delta)
	case ModeCalibratePosition:
		c.setpoint = CalibrationPosition
		return c.fromPosition(c.setpoint, delta)
	case ModeCalibrateVelocity:
		c.setpoint = b.VelocityBound / 2
		return c.fromVelocity(c.setpoint, delta)
	case ModeCalibrateTorque:
		c.setpoint = b.TorqueBound / 2
		return c.fromTorque(c.setpoint, delta)
	}
	return 0
}

func (c *Controller) fromPosition(target, delta float64) float64 {
	velocity := c.position.GenerateControl(c.plant.Position(), target, delta, c.cfg.Controller.VelocityBound)
	return c.fromVelocity(velocity, delta)
}

func (c *Controller) fromVelocity(target, delta float64) float64 {
	torque := c.velocity.GenerateControl(c.plant.Velocity(), target, delta, c.cfg.Controller.TorqueBound)
	return c.fromTorque(torque, delta)
}

func (c *Controller) fromTorque(target, delta float64) float64 {
	return c.torque.GenerateControl(c.plant.Torque(), target, delta, c.cfg.Controller.VoltageBound)
}

func (c *Controller) State() State { return c.state }

func (c *Controller) Mode() Mode { return c.mode }

func (c *Controller) Config() config.Config { return c.cfg }

// Plant exposes the motor for inspection.
func (c *Controller) Plant() *motor.Motor { return c.plant }

// Period is the nominal tick period in seconds.
func (c *Controller) Period() float64 {
	return c.clock.Period().Seconds()
}

// Delta is the measured duration of the last tick in seconds.
func (c *Controller) Delta() float64 { return c.clock.Delta() }
