package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/guptarohit/asciigraph"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/prometheus/common/expfmt"
	"github.com/spf13/cobra"
	"github.com/theckman/yacspin"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/san-kum/motorsim/internal/analysis"
	"github.com/san-kum/motorsim/internal/automation"
	"github.com/san-kum/motorsim/internal/cascade"
	"github.com/san-kum/motorsim/internal/config"
	"github.com/san-kum/motorsim/internal/export"
	"github.com/san-kum/motorsim/internal/integrators"
	"github.com/san-kum/motorsim/internal/logging"
	"github.com/san-kum/motorsim/internal/metrics"
	"github.com/san-kum/motorsim/internal/optim"
	"github.com/san-kum/motorsim/internal/sim"
	"github.com/san-kum/motorsim/internal/telemetry"
	"github.com/san-kum/motorsim/internal/viz"
)

const metricsNamespace = "motorsim"

func joinNames() string {
	return strings.Join(integrators.Names(), ", ")
}

// timeFlag reads --time from the command itself; the backing variable is
// shared between commands with different defaults.
func timeFlag(cmd *cobra.Command) float64 {
	v, err := cmd.Flags().GetFloat64("time")
	if err != nil {
		return duration
	}
	return v
}

func newLogger() (*zap.Logger, error) {
	return logging.New(logging.Options{Level: logLevel, Development: logDev})
}

// newFileLogger logs to --log-file so the terminal stays free for the
// interactive view.
func newFileLogger() (*zap.Logger, string, error) {
	if err := os.MkdirAll(filepath.Dir(logFile), 0755); err != nil {
		return nil, "", err
	}
	l, err := logging.New(logging.Options{Level: logLevel, Development: logDev, OutputPaths: []string{logFile}})
	return l, logFile, err
}

// simulate runs the command's config for --time simulated seconds.
func simulate(cmd *cobra.Command) (*sim.Result, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	logger, err := newLogger()
	if err != nil {
		return nil, err
	}
	defer logger.Sync()

	return sim.Simulate(cmd.Context(), cfg, timeFlag(cmd), logger)
}

// loadConfig resolves --preset or --config (plus MOTORSIM_ environment
// overrides) and applies --integrator.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	var (
		cfg config.Config
		err error
	)
	switch {
	case preset != "" && configFile != "":
		return cfg, errors.New("--preset and --config are mutually exclusive")
	case preset != "":
		var ok bool
		if cfg, ok = config.GetPreset(preset); !ok {
			return cfg, fmt.Errorf("unknown preset: %s (available: %v)", preset, config.ListPresets())
		}
	default:
		if cfg, err = config.Load(configFile); err != nil {
			return cfg, fmt.Errorf("failed to load config: %w", err)
		}
	}

	if cmd.Flags().Changed("integrator") {
		cfg.Plant.Integrator = integrator
	}
	return cfg, cfg.Validate()
}

func runLauncher(cmd *cobra.Command, args []string) error {
	final, err := tea.NewProgram(viz.NewLauncher(), tea.WithAltScreen()).Run()
	if err != nil {
		return err
	}
	cfg, ok := final.(viz.Launcher).Result()
	if !ok {
		return nil
	}
	return runLive(cmd.Context(), cfg)
}

func runLiveCmd(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	return runLive(cmd.Context(), cfg)
}

func runLive(ctx context.Context, cfg config.Config) error {
	logger, logPath, err := newFileLogger()
	if err != nil {
		return err
	}
	defer logger.Sync()

	reg := prometheus.NewRegistry()
	collector, err := metrics.NewCollector(reg, metricsNamespace)
	if err != nil {
		return err
	}

	window := telemetry.NewWindow()
	target := telemetry.NewTarget(cfg.Controller.Target)
	link := sim.NewLink()

	runner, err := sim.NewRunner(cfg, window, target, link,
		sim.WithLogger(logger),
		sim.WithObservers(collector),
	)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if metricsAddr != "" {
		srv := &http.Server{Addr: metricsAddr, Handler: promhttp.HandlerFor(reg, promhttp.HandlerOpts{})}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("metrics server", zap.Error(err))
			}
		}()
		defer srv.Shutdown(context.Background())
	}

	done := make(chan error, 1)
	go func() { done <- runner.Run(ctx) }()

	model := viz.NewModel(cfg, link, window, target, runner.Status)
	_, uiErr := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx)).Run()

	link.Close()
	cancel()
	runErr := <-done

	fmt.Printf("log written to %s\n", logPath)
	if uiErr != nil && !errors.Is(uiErr, tea.ErrProgramKilled) {
		return uiErr
	}
	return runErr
}

func runRealtime(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	cfg.Controller.Start = true
	wall := timeFlag(cmd)

	logger, err := newLogger()
	if err != nil {
		return err
	}
	defer logger.Sync()

	reg := prometheus.NewRegistry()
	collector, err := metrics.NewCollector(reg, metricsNamespace)
	if err != nil {
		return err
	}
	ms, err := sim.DefaultMetrics(cfg)
	if err != nil {
		return err
	}
	set := metrics.NewSet(ms...)

	window := telemetry.NewWindow()
	target := telemetry.NewTarget(cfg.Controller.Target)
	link := sim.NewLink()
	defer link.Close()

	runner, err := sim.NewRunner(cfg, window, target, link,
		sim.WithLogger(logger),
		sim.WithObservers(collector, set),
	)
	if err != nil {
		return err
	}

	spinner, err := yacspin.New(yacspin.Config{
		Frequency:         100 * time.Millisecond,
		CharSet:           yacspin.CharSets[14],
		Suffix:            " " + runner.Status().Mode.String(),
		SuffixAutoColon:   true,
		Message:           "starting",
		StopCharacter:     "✓",
		StopColors:        []string{"fgGreen"},
		StopFailCharacter: "✗",
		StopFailColors:    []string{"fgRed"},
	})
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), time.Duration(wall*float64(time.Second)))
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- runner.Run(ctx) }()

	_ = spinner.Start()
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	var runErr error
wait:
	for {
		select {
		case runErr = <-done:
			break wait
		case <-ticker.C:
			st := runner.Status()
			if latest, ok := window.Latest(); ok {
				spinner.Message(fmt.Sprintf("%s t=%.2fs pos=%.1f° vel=%.0frpm", st.State, latest.Time, latest.Position, latest.Velocity))
			}
			if st.State == cascade.StateStopped {
				cancel()
			}
		}
	}

	if runErr != nil {
		spinner.StopFailMessage(runErr.Error())
		_ = spinner.StopFail()
		return runErr
	}
	spinner.StopMessage("done")
	_ = spinner.Stop()

	printPlots(window.Positions(), window.Velocities())
	printMetrics(set.Summary())

	if showMetrics {
		families, err := reg.Gather()
		if err != nil {
			return err
		}
		enc := expfmt.NewEncoder(os.Stdout, expfmt.NewFormat(expfmt.TypeTextPlain))
		for _, mf := range families {
			if err := enc.Encode(mf); err != nil {
				return err
			}
		}
	}
	return nil
}

func runSimulation(cmd *cobra.Command, args []string) error {
	fmt.Printf("simulating %.2fs...\n", timeFlag(cmd))
	start := time.Now()

	result, err := simulate(cmd)
	if err != nil {
		return err
	}

	fmt.Printf("completed in %v\n", time.Since(start))
	fmt.Printf("steps: %d  samples: %d  finished: %v\n", result.Steps, len(result.Samples), result.Finished)

	printPlots(pointsOf(result.Samples, analysis.Position), pointsOf(result.Samples, analysis.Velocity))
	printMetrics(result.Metrics)
	return nil
}

func compareIntegrators(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	names := args
	if len(names) == 0 {
		names = integrators.Names()
	}

	cfgs := make([]config.Config, len(names))
	for i, name := range names {
		c := cfg
		c.Plant.Integrator = name
		if err := c.Validate(); err != nil {
			return err
		}
		cfgs[i] = c
	}

	logger, err := newLogger()
	if err != nil {
		return err
	}
	defer logger.Sync()

	start := time.Now()
	results, err := sim.NewEnsemble(logger).Run(cmd.Context(), cfgs, timeFlag(cmd))
	if err != nil {
		return err
	}
	fmt.Printf("%d runs in %v\n\n", len(results), time.Since(start))

	ref := results[0].Final()
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "integrator\tposition\tvelocity\ttorque\ttracking_error\tenergy\t|Δvelocity|")
	for i, r := range results {
		f := r.Final()
		fmt.Fprintf(w, "%s\t%.4f\t%.4f\t%.5f\t%.5f\t%.5f\t%.2e\n",
			names[i], f.Position, f.Velocity, f.Torque,
			r.Metrics["tracking_error"], r.Metrics["energy"], math.Abs(f.Velocity-ref.Velocity))
	}
	return w.Flush()
}

func plotRun(cmd *cobra.Command, args []string) error {
	f, ok := analysis.Fields[field]
	if !ok {
		return fmt.Errorf("unknown field %q", field)
	}
	result, err := simulate(cmd)
	if err != nil {
		return err
	}
	samples := result.Samples
	if len(samples) < 2 {
		return errors.New("too few samples to plot")
	}

	fmt.Println(asciigraph.Plot(analysis.Values(samples, f),
		asciigraph.Height(12),
		asciigraph.Width(80),
		asciigraph.Caption(field),
	))

	if svgPath != "" {
		if err := writeFile(svgPath, func(w io.Writer) error {
			return export.SeriesSVG(w, pointsOf(samples, f), 800, 300, "#00ffcc", field)
		}); err != nil {
			return err
		}
		fmt.Printf("wrote %s\n", svgPath)
	}

	if dialSVG != "" {
		final := result.Final()
		canvas := viz.NewCanvas(20, 10)
		canvas.Dial(final.Position, result.Config.Controller.Target)
		if err := writeFile(dialSVG, func(w io.Writer) error {
			return export.CanvasSVG(w, canvas, 6, "#00ffcc")
		}); err != nil {
			return err
		}
		fmt.Printf("wrote %s\n", dialSVG)
	}
	return nil
}

func analyzeRun(cmd *cobra.Command, args []string) error {
	result, err := simulate(cmd)
	if err != nil {
		return err
	}
	samples := result.Samples
	if len(samples) == 0 {
		return errors.New("no samples")
	}

	mode, err := cascade.ResolveMode(result.Config.Controller)
	if err != nil {
		return err
	}
	stage := mode.Stage()
	f := analysis.Fields[stage.String()]
	target := result.Final().Setpoint

	resp := analysis.Step(analysis.Values(samples, f), analysis.Times(samples), target, 0.02)
	fmt.Printf("step response (%s, target %.4g %s)\n", stage, target, stage.Unit())
	fmt.Printf("  rise time      %.4fs\n", resp.RiseTime)
	fmt.Printf("  peak time      %.4fs\n", resp.PeakTime)
	fmt.Printf("  overshoot      %.2f%%\n", resp.Overshoot*100)
	fmt.Printf("  settling time  %.4fs\n", resp.SettlingTime)
	fmt.Printf("  final error    %.4g %s\n", resp.SteadyStateErr, stage.Unit())

	settledFrom := len(samples) - resp.SettledSamples
	if resp.SettledSamples == 0 {
		settledFrom = len(samples) / 2
	}
	for _, name := range []string{"velocity", "torque", "voltage"} {
		vals := analysis.Values(samples, analysis.Fields[name])
		rs := analysis.Ripple(vals, settledFrom)
		line := fmt.Sprintf("  %-8s mean %10.4f  std %10.4f  p-p %10.4f", name, rs.Mean, rs.StdDev, rs.PeakToPeak)
		if peak, ok := analysis.Dominant(analysis.Spectrum(vals[settledFrom:], result.Config.Controller.Frequency)); ok {
			line += fmt.Sprintf("  dominant %.1fHz", peak.Frequency)
		}
		fmt.Println(line)
	}
	return nil
}

func exportRun(cmd *cobra.Command, args []string) error {
	var write func(io.Writer, *sim.Result) error
	switch format {
	case "csv":
		write = func(w io.Writer, r *sim.Result) error { return export.WriteCSV(w, r.Samples) }
	case "json":
		write = export.WriteJSON
	default:
		return fmt.Errorf("unknown format %q, want csv or json", format)
	}

	result, err := simulate(cmd)
	if err != nil {
		return err
	}
	if outPath == "" {
		return write(os.Stdout, result)
	}
	return writeFile(outPath, func(w io.Writer) error { return write(w, result) })
}

func tuneGains(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if len(gridParams) == 0 {
		return errors.New("at least one --param name=lo:hi:n is required")
	}

	axes := make([]optim.Axis, 0, len(gridParams))
	for _, arg := range gridParams {
		ax, err := parseAxis(arg)
		if err != nil {
			return err
		}
		axes = append(axes, ax)
	}

	logger, err := newLogger()
	if err != nil {
		return err
	}
	defer logger.Sync()

	g, err := optim.NewGridSearch(logger, axes...)
	if err != nil {
		return err
	}
	best, err := g.Search(cmd.Context(), cfg, timeFlag(cmd), metric)
	if err != nil {
		return err
	}

	fmt.Printf("evaluated %d candidates, best %s = %.6g\n", best.Evaluated, metric, best.Value)
	names := make([]string, 0, len(best.Params))
	for k := range best.Params {
		names = append(names, k)
	}
	sort.Strings(names)
	for _, k := range names {
		fmt.Printf("  %s = %.6g\n", k, best.Params[k])
	}

	if writeConfig != "" {
		if err := config.Save(writeConfig, best.Config); err != nil {
			return err
		}
		fmt.Printf("wrote %s\n", writeConfig)
	}
	return nil
}

// parseAxis reads name=lo:hi:n.
func parseAxis(arg string) (optim.Axis, error) {
	name, rng, ok := strings.Cut(arg, "=")
	if !ok {
		return optim.Axis{}, fmt.Errorf("bad --param %q, want name=lo:hi:n", arg)
	}
	parts := strings.Split(rng, ":")
	if len(parts) != 3 {
		return optim.Axis{}, fmt.Errorf("bad --param %q, want name=lo:hi:n", arg)
	}
	lo, err := strconv.ParseFloat(parts[0], 64)
	if err != nil {
		return optim.Axis{}, fmt.Errorf("--param %s lo: %w", name, err)
	}
	hi, err := strconv.ParseFloat(parts[1], 64)
	if err != nil {
		return optim.Axis{}, fmt.Errorf("--param %s hi: %w", name, err)
	}
	n, err := strconv.Atoi(parts[2])
	if err != nil || n < 1 {
		return optim.Axis{}, fmt.Errorf("--param %s count must be a positive integer", name)
	}
	return optim.Axis{Name: name, Values: optim.Linspace(lo, hi, n)}, nil
}

func runSweep(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger, err := newLogger()
	if err != nil {
		return err
	}
	defer logger.Sync()

	results, err := automation.RunSweep(cmd.Context(), automation.ParameterSweep{
		Base:     cfg,
		Param:    sweepParam,
		Min:      sweepMin,
		Max:      sweepMax,
		Steps:    sweepSteps,
		Duration: timeFlag(cmd),
	}, logger)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "%s\tposition\tvelocity\ttracking_error\tcontrol_effort\tsaturation\tenergy\n", sweepParam)
	for _, r := range results {
		fmt.Fprintf(w, "%.6g\t%.3f\t%.2f\t%.5f\t%.4f\t%.3f\t%.5f\n",
			r.Value, r.Final.Position, r.Final.Velocity,
			r.Metrics["tracking_error"], r.Metrics["control_effort"], r.Metrics["saturation"], r.Metrics["energy"])
	}
	return w.Flush()
}

func runMonteCarlo(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger, err := newLogger()
	if err != nil {
		return err
	}
	defer logger.Sync()

	results, err := automation.RunMonteCarlo(cmd.Context(), automation.MonteCarloConfig{
		Base:         cfg,
		Perturbation: perturbation,
		Trials:       trials,
		Duration:     timeFlag(cmd),
		Seed:         seed,
	}, logger)
	if err != nil {
		return err
	}

	s := automation.MonteCarloStats(results, metric)
	fmt.Printf("trials: %d  settled: %d  unsettled: %d\n", len(results), s.Settled, s.Unsettled)
	fmt.Printf("%s: mean %.5g  std %.5g  worst %.5g\n", metric, s.Mean, s.StdDev, s.Worst)
	return nil
}

func runScenario(cmd *cobra.Command, args []string) error {
	sc, err := automation.LoadScenario(args[0])
	if err != nil {
		return err
	}
	logger, err := newLogger()
	if err != nil {
		return err
	}
	defer logger.Sync()

	results, err := automation.RunScenario(cmd.Context(), sc, logger)
	for _, r := range results {
		f := r.Result.Final()
		fmt.Printf("%-16s t=%.3fs pos=%.2f° vel=%.1frpm trq=%.4f\n", r.Name, f.Time, f.Position, f.Velocity, f.Torque)
	}
	return err
}

func printConfig(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if writeConfig != "" {
		return config.Save(writeConfig, cfg)
	}
	out, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	_, err = os.Stdout.Write(out)
	return err
}

func printPlots(pos, vel []telemetry.Point) {
	for _, s := range []struct {
		points  []telemetry.Point
		caption string
	}{
		{pos, "position (deg)"},
		{vel, "velocity (rpm)"},
	} {
		if len(s.points) < 2 {
			continue
		}
		vals := make([]float64, len(s.points))
		for i, p := range s.points {
			vals[i] = p[1]
		}
		fmt.Println(asciigraph.Plot(vals, asciigraph.Height(10), asciigraph.Width(70), asciigraph.Caption(s.caption)))
		fmt.Println()
	}
}

func printMetrics(m map[string]float64) {
	names := make([]string, 0, len(m))
	for k := range m {
		names = append(names, k)
	}
	sort.Strings(names)

	fmt.Println("metrics:")
	for _, k := range names {
		fmt.Printf("  %s: %.6f\n", k, m[k])
	}
}

func pointsOf(samples []telemetry.Sample, f analysis.Field) []telemetry.Point {
	out := make([]telemetry.Point, len(samples))
	for i, s := range samples {
		out[i] = telemetry.Point{s.Time, f(s)}
	}
	return out
}

func writeFile(path string, fn func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := fn(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
