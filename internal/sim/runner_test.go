package sim

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"

	"github.com/san-kum/motorsim/internal/cascade"
	"github.com/san-kum/motorsim/internal/clock"
	"github.com/san-kum/motorsim/internal/config"
	"github.com/san-kum/motorsim/internal/control"
	"github.com/san-kum/motorsim/internal/metrics"
	"github.com/san-kum/motorsim/internal/telemetry"
)

type harness struct {
	runner *Runner
	link   *Link
	window *telemetry.Window
	target *telemetry.Target
	done   chan error
	cancel context.CancelFunc
}

func startRunner(t *testing.T, cfg config.Config, opts ...RunnerOption) *harness {
	t.Helper()

	h := &harness{
		link:   NewLink(),
		window: telemetry.NewWindow(),
		target: telemetry.NewTarget(cfg.Controller.Target),
		done:   make(chan error, 1),
	}
	opts = append([]RunnerOption{
		WithLogger(zaptest.NewLogger(t)),
		WithClockSource(clock.NewFixedStep(time.Millisecond)),
		WithIdleInterval(5 * time.Millisecond),
	}, opts...)

	r, err := NewRunner(cfg, h.window, h.target, h.link, opts...)
	require.NoError(t, err)
	h.runner = r

	ctx, cancel := context.WithCancel(context.Background())
	h.cancel = cancel
	go func() { h.done <- r.Run(ctx) }()

	t.Cleanup(func() {
		cancel()
		<-h.done
	})
	return h
}

func (h *harness) wait(t *testing.T) error {
	t.Helper()
	select {
	case err := <-h.done:
		h.done <- err
		return err
	case <-time.After(5 * time.Second):
		t.Fatal("runner did not exit")
		return nil
	}
}

func TestRunnerExitsWhenLinkCloses(t *testing.T) {
	h := startRunner(t, config.DefaultConfig())
	assert.Equal(t, cascade.StateIdle, h.runner.Status().State)

	h.link.Close()
	assert.NoError(t, h.wait(t))
}

func TestRunnerExitsOnEndFlag(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Controller.Start = true
	h := startRunner(t, cfg)

	end := cfg
	end.Controller.End = true
	require.NoError(t, h.link.Publish(end))
	assert.NoError(t, h.wait(t))
}

func TestRunnerExitsOnCancel(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Controller.Start = true
	h := startRunner(t, cfg)

	h.cancel()
	assert.NoError(t, h.wait(t))
}

func TestRunnerRecordsWhileRunningAndResetsOnConfig(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Controller.Start = true
	h := startRunner(t, cfg)

	assert.Eventually(t, func() bool { return h.window.Len() >= 100 }, 5*time.Second, time.Millisecond)
	assert.Equal(t, cascade.StateRunningDirect, h.runner.Status().State)

	stop := cfg
	stop.Controller.Start = false
	require.NoError(t, h.link.Publish(stop))

	assert.Eventually(t, func() bool {
		return h.runner.Status().State == cascade.StateIdle && h.window.Len() == 0
	}, 5*time.Second, time.Millisecond)

	h.link.Close()
	require.NoError(t, h.wait(t))
	assert.Equal(t, stop, h.runner.Config())
}

func TestRunnerCalibrationParksAfterDuration(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Controller.Calibration = control.StageTorque
	cfg.Controller.Duration = 0.05
	cfg.Controller.Start = true

	set := metrics.NewSet(metrics.NewControlEffort())
	h := startRunner(t, cfg, WithObservers(set))
	assert.Equal(t, cascade.ModeCalibrateTorque, h.runner.Status().Mode)

	assert.Eventually(t, func() bool {
		return h.runner.Status().State == cascade.StateStopped
	}, 5*time.Second, time.Millisecond)
	assert.Equal(t, 50, h.window.Len())
	assert.Greater(t, set.Summary()["control_effort"], 0.0)

	h.link.Close()
	require.NoError(t, h.wait(t))
	assert.False(t, h.runner.Config().Controller.Start)
	assert.Equal(t, 50, h.window.Len())
}

func TestRunnerRejectsInvalidConfig(t *testing.T) {
	cfg := config.DefaultConfig()
	h := startRunner(t, cfg)

	bad := cfg
	bad.Motor.K = -1
	bad.Controller.Start = true
	require.NoError(t, h.link.Publish(bad))

	assert.Never(t, func() bool {
		return h.runner.Status().State != cascade.StateIdle
	}, 100*time.Millisecond, 5*time.Millisecond)

	h.link.Close()
	require.NoError(t, h.wait(t))
	assert.Equal(t, cfg, h.runner.Config())
}

func TestRunnerReportsResetsAndOverruns(t *testing.T) {
	reg := prometheus.NewRegistry()
	collector, err := metrics.NewCollector(reg, "motorsim")
	require.NoError(t, err)

	cfg := config.DefaultConfig()
	h := startRunner(t, cfg,
		WithObservers(collector),
		// every tick observes two periods
		WithClockSource(clock.NewFixedStep(2*time.Millisecond)),
	)

	start := cfg
	start.Controller.Start = true
	require.NoError(t, h.link.Publish(start))

	assert.Eventually(t, func() bool {
		return testutil.ToFloat64(collector.Samples) >= 10
	}, 5*time.Second, time.Millisecond)
	assert.Equal(t, 1.0, testutil.ToFloat64(collector.Resets.WithLabelValues("pos")))
	assert.GreaterOrEqual(t, testutil.ToFloat64(collector.Overruns), 10.0)
}

func TestRunnerStopsBeforeResetOnStartCleared(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	cfg := config.DefaultConfig()
	cfg.Controller.Start = true
	h := startRunner(t, cfg, WithLogger(zap.New(core)))

	assert.Eventually(t, func() bool { return h.window.Len() >= 10 }, 5*time.Second, time.Millisecond)

	stop := cfg
	stop.Controller.Start = false
	require.NoError(t, h.link.Publish(stop))

	assert.Eventually(t, func() bool {
		return h.runner.Status().State == cascade.StateIdle
	}, 5*time.Second, time.Millisecond)
	assert.Equal(t, 1, logs.FilterMessage("run stopped").Len())
}

func TestRunnerParksDivergedRun(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Plant.Integrator = "euler"
	cfg.Controller.Frequency = 10
	cfg.Controller.Start = true
	h := startRunner(t, cfg, WithClockSource(clock.NewFixedStep(100*time.Millisecond)))

	assert.Eventually(t, func() bool {
		return h.runner.Status().State == cascade.StateStopped
	}, 5*time.Second, time.Millisecond)

	// the loop survives and accepts a fresh run
	restart := config.DefaultConfig()
	restart.Controller.Start = true
	require.NoError(t, h.link.Publish(restart))
	assert.Eventually(t, func() bool {
		return h.runner.Status().State == cascade.StateRunningDirect
	}, 5*time.Second, time.Millisecond)
}

func TestNewRunnerRejectsInvalidConfig(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Controller.Frequency = -1

	_, err := NewRunner(cfg, telemetry.NewWindow(), telemetry.NewTarget(0), NewLink())
	assert.Error(t, err)
}
