package cascade_test

import (
	"context"
	"math"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap/zaptest"

	"github.com/san-kum/motorsim/internal/cascade"
	"github.com/san-kum/motorsim/internal/clock"
	"github.com/san-kum/motorsim/internal/config"
	"github.com/san-kum/motorsim/internal/control"
	"github.com/san-kum/motorsim/internal/dynamo"
	"github.com/san-kum/motorsim/internal/telemetry"
)

type recorder struct {
	samples []telemetry.Sample
}

func (r *recorder) OnSample(s telemetry.Sample) {
	r.samples = append(r.samples, s)
}

func newController(cfg config.Config, window *telemetry.Window, target *telemetry.Target, opts ...cascade.Option) *cascade.Controller {
	opts = append([]cascade.Option{
		cascade.WithClockSource(clock.NewFixedStep(time.Millisecond)),
		cascade.WithLogger(zaptest.NewLogger(GinkgoT())),
	}, opts...)
	c, err := cascade.New(cfg, window, target, opts...)
	Expect(err).NotTo(HaveOccurred())
	return c
}

func runTicks(c *cascade.Controller, n int) []telemetry.Sample {
	var out []telemetry.Sample
	for i := 0; i < n; i++ {
		s, _, err := c.CalculatePoint(context.Background())
		Expect(err).NotTo(HaveOccurred())
		out = append(out, s)
	}
	return out
}

var _ = Describe("ResolveMode", func() {
	DescribeTable("maps the controller config to a single mode",
		func(calibration control.Stage, option config.ControlOption, want cascade.Mode) {
			mode, err := cascade.ResolveMode(config.ControllerConfig{Calibration: calibration, Control: option})
			Expect(err).NotTo(HaveOccurred())
			Expect(mode).To(Equal(want))
		},
		Entry("position only", control.Stage(""), config.ControlPos, cascade.ModePosition),
		Entry("full cascade", control.Stage(""), config.ControlPosVelTrq, cascade.ModeCascade),
		Entry("calibration overrides pos", control.StagePosition, config.ControlPos, cascade.ModeCalibratePosition),
		Entry("calibration overrides cascade", control.StageVelocity, config.ControlPosVelTrq, cascade.ModeCalibrateVelocity),
		Entry("torque calibration", control.StageTorque, config.ControlPos, cascade.ModeCalibrateTorque),
	)

	It("rejects unknown names", func() {
		_, err := cascade.ResolveMode(config.ControllerConfig{Control: "trq"})
		Expect(err).To(MatchError(dynamo.ErrUnknownName))

		_, err = cascade.ResolveMode(config.ControllerConfig{Calibration: "current", Control: config.ControlPos})
		Expect(err).To(MatchError(dynamo.ErrUnknownName))
	})

	It("reports calibration modes", func() {
		Expect(cascade.ModeCascade.Calibrating()).To(BeFalse())
		Expect(cascade.ModeCalibrateTorque.Calibrating()).To(BeTrue())
	})
})

var _ = Describe("Controller", func() {
	var (
		cfg    config.Config
		window *telemetry.Window
		target *telemetry.Target
	)

	BeforeEach(func() {
		cfg = config.DefaultConfig()
		window = telemetry.NewWindow()
		target = telemetry.NewTarget(180)
	})

	It("rejects an invalid config at construction", func() {
		cfg.Motor.J = 0
		_, err := cascade.New(cfg, window, target)
		Expect(err).To(MatchError(dynamo.ErrParameterBounds))
	})

	Context("when idle", func() {
		It("refuses to compute points", func() {
			c := newController(cfg, window, target)
			Expect(c.State()).To(Equal(cascade.StateIdle))

			_, _, err := c.CalculatePoint(context.Background())
			Expect(err).To(MatchError(cascade.ErrNotRunning))
		})
	})

	Context("in position mode", func() {
		It("drives the shaft to the live target", func() {
			c := newController(cfg, window, target)
			Expect(c.Start()).To(Succeed())
			Expect(c.State()).To(Equal(cascade.StateRunningDirect))

			samples := runTicks(c, 1000)
			last := samples[len(samples)-1]
			Expect(last.Time).To(BeNumerically("~", 1.0, 1e-9))
			Expect(last.Position).To(BeNumerically(">", 0))
			Expect(last.Position).To(BeNumerically("<=", 181))
			Expect(last.Position).To(BeNumerically("~", 180, 1))
		})

		It("keeps every voltage inside the bound", func() {
			c := newController(cfg, window, target)
			Expect(c.Start()).To(Succeed())

			for _, s := range runTicks(c, 300) {
				Expect(s.Voltage).To(BeNumerically("<=", cfg.Controller.VoltageBound))
				Expect(s.Voltage).To(BeNumerically(">=", -cfg.Controller.VoltageBound))
			}
		})

		It("follows target changes between ticks", func() {
			c := newController(cfg, window, target)
			Expect(c.Start()).To(Succeed())
			runTicks(c, 500)

			target.Set(90)
			samples := runTicks(c, 1000)
			Expect(samples[len(samples)-1].Position).To(BeNumerically("~", 90, 1))
		})

		It("never stops on its own", func() {
			cfg.Controller.Duration = 0.1
			c := newController(cfg, window, target)
			Expect(c.Start()).To(Succeed())

			runTicks(c, 500)
			Expect(c.State()).To(Equal(cascade.StateRunningDirect))
			Expect(window.Len()).To(Equal(100))
		})
	})

	Context("in cascade mode", func() {
		It("converges through all three stages", func() {
			cfg.Controller.Control = config.ControlPosVelTrq
			c := newController(cfg, window, target)
			Expect(c.Mode()).To(Equal(cascade.ModeCascade))
			Expect(c.Start()).To(Succeed())

			samples := runTicks(c, 1000)
			last := samples[len(samples)-1]
			Expect(last.Position).To(BeNumerically("~", 180, 1))
			Expect(last.Position).To(BeNumerically("<=", 181))

			for _, s := range samples {
				Expect(s.Velocity).To(BeNumerically("<=", cfg.Controller.VelocityBound*1.1))
				Expect(s.Torque).To(BeNumerically("<=", cfg.Controller.TorqueBound*1.5))
			}
		})
	})

	Context("in calibration mode", func() {
		BeforeEach(func() {
			cfg.Controller.Calibration = control.StageTorque
			cfg.Controller.Duration = 0.05
		})

		It("admits samples until the duration, then stops", func() {
			rec := &recorder{}
			c := newController(cfg, window, target, cascade.WithObservers(rec))
			Expect(c.Start()).To(Succeed())
			Expect(c.State()).To(Equal(cascade.StateRunningCalibration))

			for i := 0; i < 50; i++ {
				_, admitted, err := c.CalculatePoint(context.Background())
				Expect(err).NotTo(HaveOccurred())
				Expect(admitted).To(BeTrue(), "tick %d", i+1)
			}
			_, admitted, err := c.CalculatePoint(context.Background())
			Expect(err).NotTo(HaveOccurred())
			Expect(admitted).To(BeFalse())

			Expect(c.State()).To(Equal(cascade.StateStopped))
			Expect(window.Len()).To(Equal(50))
			Expect(rec.samples).To(HaveLen(50))

			_, _, err = c.CalculatePoint(context.Background())
			Expect(err).To(MatchError(cascade.ErrNotRunning))
			Expect(c.Start()).To(MatchError(cascade.ErrStopped))
		})

		It("tracks half the torque bound", func() {
			c := newController(cfg, window, target)
			Expect(c.GenerateControl(0.001)).To(BeNumerically("~", 5.5, 1e-9))

			Expect(c.Reset(cfg)).To(Succeed())
			Expect(c.Start()).To(Succeed())
			samples := runTicks(c, 50)
			Expect(samples[len(samples)-1].Torque).To(BeNumerically("~", 0.25, 0.03))
		})

		It("drives velocity calibration toward half the velocity bound", func() {
			cfg.Controller.Calibration = control.StageVelocity
			cfg.Controller.Duration = 1.0
			c := newController(cfg, window, target)
			Expect(c.Start()).To(Succeed())

			samples := runTicks(c, 1000)
			Expect(samples[len(samples)-1].Velocity).To(BeNumerically("~", 750, 10))
		})

		It("ignores the live target in position calibration", func() {
			cfg.Controller.Calibration = control.StagePosition
			cfg.Controller.Duration = 2.0
			target.Set(45)
			c := newController(cfg, window, target)
			Expect(c.Start()).To(Succeed())

			samples := runTicks(c, 1000)
			Expect(samples[len(samples)-1].Position).To(BeNumerically("~", cascade.CalibrationPosition, 1))
		})
	})

	Describe("Reset", func() {
		It("clears the window and matches a fresh controller bit for bit", func() {
			used := newController(cfg, window, target)
			Expect(used.Start()).To(Succeed())
			runTicks(used, 137)
			Expect(window.Len()).To(Equal(137))

			Expect(used.Reset(cfg)).To(Succeed())
			Expect(used.State()).To(Equal(cascade.StateIdle))
			Expect(window.Len()).To(BeZero())
			Expect(window.Positions()).To(BeEmpty())

			fresh := newController(cfg, telemetry.NewWindow(), target)
			Expect(used.Start()).To(Succeed())
			Expect(fresh.Start()).To(Succeed())

			Expect(runTicks(used, 200)).To(Equal(runTicks(fresh, 200)))
			Expect(used.Plant().State()).To(Equal(fresh.Plant().State()))
		})

		It("clears a stopped run", func() {
			c := newController(cfg, window, target)
			Expect(c.Start()).To(Succeed())
			c.Stop()
			Expect(c.State()).To(Equal(cascade.StateStopped))
			Expect(c.Start()).To(MatchError(cascade.ErrStopped))

			Expect(c.Reset(cfg)).To(Succeed())
			Expect(c.Start()).To(Succeed())
		})

		It("keeps the previous config when the new one is invalid", func() {
			c := newController(cfg, window, target)
			bad := cfg
			bad.Controller.Frequency = 0

			Expect(c.Reset(bad)).To(MatchError(dynamo.ErrParameterBounds))
			Expect(c.Config()).To(Equal(cfg))
		})

		It("switches the plant integrator", func() {
			cfg.Plant.Integrator = "rk4"
			c := newController(cfg, window, target)
			Expect(c.Start()).To(Succeed())

			samples := runTicks(c, 1000)
			Expect(samples[len(samples)-1].Position).To(BeNumerically("~", 180, 1))
		})
	})

	It("stops and reports a diverging plant", func() {
		// explicit Euler at 10 Hz is unstable for the ~1 ms electrical pole
		cfg.Plant.Integrator = "euler"
		cfg.Controller.Frequency = 10
		c := newController(cfg, window, target, cascade.WithClockSource(clock.NewFixedStep(100*time.Millisecond)))
		Expect(c.Start()).To(Succeed())

		var err error
		for i := 0; i < 10000 && err == nil; i++ {
			_, _, err = c.CalculatePoint(context.Background())
		}
		Expect(err).To(MatchError(dynamo.ErrInvalidState))
		Expect(c.State()).To(Equal(cascade.StateStopped))
		Expect(window.Len()).To(BeNumerically(">", 0))
		for _, p := range window.Velocities() {
			Expect(math.IsNaN(p[1]) || math.IsInf(p[1], 0)).To(BeFalse())
		}

		Expect(c.Reset(config.DefaultConfig())).To(Succeed())
		Expect(c.State()).To(Equal(cascade.StateIdle))
	})

	It("returns the context error when cancelled mid-tick", func() {
		c := newController(cfg, window, target, cascade.WithClockSource(clock.NewFixedStep(0)))
		Expect(c.Start()).To(Succeed())

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, _, err := c.CalculatePoint(ctx)
		Expect(err).To(MatchError(context.Canceled))
	})
})
