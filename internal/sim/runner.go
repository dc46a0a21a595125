// Package sim runs the cascade controller: Runner is the real-time control
// loop fed by a Link, Simulate and Ensemble replay configs in simulated
// time.
package sim

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/san-kum/motorsim/internal/cascade"
	"github.com/san-kum/motorsim/internal/clock"
	"github.com/san-kum/motorsim/internal/config"
	"github.com/san-kum/motorsim/internal/dynamo"
	"github.com/san-kum/motorsim/internal/telemetry"
)

const (
	DefaultIdleInterval = 50 * time.Millisecond

	// overrunFactor is how many nominal periods a tick may take before it
	// is reported as an overrun.
	overrunFactor = 1.5
)

// ResetObserver is implemented by observers that count applied resets.
type ResetObserver interface {
	OnReset(mode string)
}

// OverrunObserver is implemented by observers that count late ticks.
type OverrunObserver interface {
	OnOverrun()
}

// Status is a snapshot of the control loop, safe to read from any goroutine.
type Status struct {
	State cascade.State
	Mode  cascade.Mode
}

type RunnerOption func(*Runner)

func WithLogger(l *zap.Logger) RunnerOption {
	return func(r *Runner) { r.logger = l }
}

func WithClockSource(src clock.Source) RunnerOption {
	return func(r *Runner) { r.source = src }
}

// WithObservers registers observers for admitted samples. Observers that
// also implement ResetObserver or OverrunObserver receive those events.
func WithObservers(obs ...cascade.Observer) RunnerOption {
	return func(r *Runner) { r.observers = append(r.observers, obs...) }
}

func WithIdleInterval(d time.Duration) RunnerOption {
	return func(r *Runner) { r.idle = d }
}

type Runner struct {
	ctrl *cascade.Controller
	cfg  config.Config
	link *Link

	source    clock.Source
	observers []cascade.Observer
	logger    *zap.Logger
	overruns  *rate.Limiter
	idle      time.Duration

	state atomic.Int32
	mode  atomic.Int32
}

// NewRunner builds the controller for cfg. If cfg has the start flag set the
// run begins on the first cycle.
func NewRunner(cfg config.Config, window *telemetry.Window, target *telemetry.Target, link *Link, opts ...RunnerOption) (*Runner, error) {
	r := &Runner{
		link:     link,
		logger:   zap.NewNop(),
		overruns: rate.NewLimiter(rate.Every(time.Second), 1),
		idle:     DefaultIdleInterval,
	}
	for _, opt := range opts {
		opt(r)
	}

	ctrl, err := cascade.New(cfg, window, target,
		cascade.WithLogger(r.logger),
		cascade.WithClockSource(r.source),
		cascade.WithObservers(r.observers...),
	)
	if err != nil {
		return nil, err
	}
	r.ctrl = ctrl
	r.cfg = cfg
	r.afterReset()
	return r, nil
}

func (r *Runner) Status() Status {
	return Status{
		State: cascade.State(r.state.Load()),
		Mode:  cascade.Mode(r.mode.Load()),
	}
}

// Config returns the snapshot currently applied. Only the Run goroutine may
// call it while Run is active.
func (r *Runner) Config() config.Config {
	return r.cfg
}

// Run executes the control loop until the end flag is set, the link is
// closed or ctx is done. All three are clean exits.
func (r *Runner) Run(ctx context.Context) error {
	r.logger.Info("control loop started", zap.Stringer("mode", r.ctrl.Mode()))
	defer r.logger.Info("control loop finished")

	updates := r.link.Updates()
	for {
		if r.cfg.Controller.End {
			r.logger.Info("end requested")
			return nil
		}
		if ctx.Err() != nil {
			return nil
		}

		select {
		case cfg, ok := <-updates:
			if !ok {
				r.logger.Info("observer disconnected")
				return nil
			}
			r.apply(cfg)
			continue
		default:
		}

		if !r.ctrl.State().Running() {
			select {
			case <-ctx.Done():
				return nil
			case cfg, ok := <-updates:
				if !ok {
					r.logger.Info("observer disconnected")
					return nil
				}
				r.apply(cfg)
			case <-time.After(r.idle):
			}
			continue
		}

		if err := r.step(ctx); err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil
			}
			return err
		}
	}
}

func (r *Runner) step(ctx context.Context) error {
	if _, _, err := r.ctrl.CalculatePoint(ctx); err != nil {
		if !errors.Is(err, dynamo.ErrInvalidState) {
			return err
		}
		r.logger.Error("run aborted, waiting for a new config", zap.Error(err))
	}

	period := r.ctrl.Period()
	if delta := r.ctrl.Delta(); delta > overrunFactor*period {
		for _, o := range r.observers {
			if oo, ok := o.(OverrunObserver); ok {
				oo.OnOverrun()
			}
		}
		if r.overruns.Allow() {
			r.logger.Warn("tick overrun",
				zap.Float64("delta", delta),
				zap.Float64("period", period),
			)
		}
	}

	if r.ctrl.State() == cascade.StateStopped {
		r.cfg.Controller.Start = false
		r.state.Store(int32(cascade.StateStopped))
	}
	return nil
}

// apply performs the full reset a received snapshot demands. An invalid
// snapshot is logged and the previous one stays in effect. A snapshot with
// the start flag cleared stops a running controller before the reset.
func (r *Runner) apply(cfg config.Config) {
	if cfg.Controller.End {
		r.cfg.Controller.End = true
		return
	}
	if err := cfg.Validate(); err != nil {
		r.logger.Error("config rejected, keeping previous", zap.Error(err))
		return
	}
	if !cfg.Controller.Start && r.ctrl.State().Running() {
		r.ctrl.Stop()
	}
	if err := r.ctrl.Reset(cfg); err != nil {
		r.logger.Error("config rejected, keeping previous", zap.Error(err))
		return
	}
	r.cfg = cfg
	r.logger.Info("config applied",
		zap.Stringer("mode", r.ctrl.Mode()),
		zap.Bool("start", cfg.Controller.Start),
	)
	for _, o := range r.observers {
		if ro, ok := o.(ResetObserver); ok {
			ro.OnReset(r.ctrl.Mode().String())
		}
	}
	r.afterReset()
}

func (r *Runner) afterReset() {
	if r.cfg.Controller.Start {
		if err := r.ctrl.Start(); err != nil {
			r.logger.Error("start failed", zap.Error(err))
		}
	}
	r.state.Store(int32(r.ctrl.State()))
	r.mode.Store(int32(r.ctrl.Mode()))
}
