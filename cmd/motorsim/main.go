package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/san-kum/motorsim/internal/config"
)

var (
	logFile  string
	logLevel string
	logDev   bool

	configFile string
	preset     string
	integrator string
	duration   float64

	metricsAddr string
	showMetrics bool

	field   string
	svgPath string
	dialSVG string
	outPath string
	format  string

	metric       string
	gridParams   []string
	writeConfig  string
	sweepParam   string
	sweepMin     float64
	sweepMax     float64
	sweepSteps   int
	trials       int
	perturbation float64
	seed         int64
)

// main registers the motorsim commands. With no subcommand it opens the
// preset launcher followed by the live view.
func main() {
	rootCmd := &cobra.Command{
		Use:          "motorsim",
		Short:        "dc motor cascade control simulator",
		SilenceUsage: true,
		RunE:         runLauncher,
	}

	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "motorsim.log", "log file used while the interactive view owns the terminal")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVar(&logDev, "log-dev", false, "human readable development logs")

	liveCmd := &cobra.Command{
		Use:   "live",
		Short: "run the control loop in real time with the interactive view",
		RunE:  runLiveCmd,
	}
	configFlags(liveCmd)
	liveCmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "serve prometheus metrics on this address")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "run the control loop in real time without the interactive view",
		RunE:  runRealtime,
	}
	configFlags(runCmd)
	runCmd.Flags().Float64Var(&duration, "time", 5.0, "wall-clock seconds to run (calibrations stop on their own)")
	runCmd.Flags().BoolVar(&showMetrics, "metrics", false, "print prometheus metrics after the run")

	simCmd := &cobra.Command{
		Use:   "sim",
		Short: "simulate a run in simulated time",
		RunE:  runSimulation,
	}
	configFlags(simCmd)
	simCmd.Flags().Float64Var(&duration, "time", 5.0, "simulated seconds")

	compareCmd := &cobra.Command{
		Use:   "compare [integrator...]",
		Short: "run the same closed loop under several plant integrators",
		RunE:  compareIntegrators,
	}
	configFlags(compareCmd)
	compareCmd.Flags().Float64Var(&duration, "time", 1.0, "simulated seconds")

	plotCmd := &cobra.Command{
		Use:   "plot",
		Short: "simulate and plot one quantity",
		RunE:  plotRun,
	}
	configFlags(plotCmd)
	plotCmd.Flags().Float64Var(&duration, "time", 1.0, "simulated seconds")
	plotCmd.Flags().StringVar(&field, "field", "position", "position, velocity, voltage or torque")
	plotCmd.Flags().StringVar(&svgPath, "svg", "", "also write the plot as svg")
	plotCmd.Flags().StringVar(&dialSVG, "dial", "", "write the final shaft dial as svg")

	analyzeCmd := &cobra.Command{
		Use:   "analyze",
		Short: "simulate and report step response and ripple spectrum",
		RunE:  analyzeRun,
	}
	configFlags(analyzeCmd)
	analyzeCmd.Flags().Float64Var(&duration, "time", 1.0, "simulated seconds")

	exportCmd := &cobra.Command{
		Use:   "export",
		Short: "simulate and write the samples as csv or json",
		RunE:  exportRun,
	}
	configFlags(exportCmd)
	exportCmd.Flags().Float64Var(&duration, "time", 1.0, "simulated seconds")
	exportCmd.Flags().StringVar(&format, "format", "csv", "csv or json")
	exportCmd.Flags().StringVarP(&outPath, "out", "o", "", "output file (default stdout)")

	tuneCmd := &cobra.Command{
		Use:     "tune",
		Short:   "grid search gains or motor parameters",
		Example: "  motorsim tune --param position.kp=1:5:9 --param position.kd=0:0.2:5 --metric tracking_error",
		RunE:    tuneGains,
	}
	configFlags(tuneCmd)
	tuneCmd.Flags().StringArrayVar(&gridParams, "param", nil, "name=lo:hi:n, repeatable")
	tuneCmd.Flags().StringVar(&metric, "metric", "tracking_error", "metric to minimise")
	tuneCmd.Flags().Float64Var(&duration, "time", 1.0, "simulated seconds per candidate")
	tuneCmd.Flags().StringVar(&writeConfig, "write", "", "save the winning config to this path")

	sweepCmd := &cobra.Command{
		Use:   "sweep",
		Short: "sweep one parameter and tabulate the run metrics",
		RunE:  runSweep,
	}
	configFlags(sweepCmd)
	sweepCmd.Flags().StringVar(&sweepParam, "param", "position.kp", "parameter to sweep")
	sweepCmd.Flags().Float64Var(&sweepMin, "min", 1, "first value")
	sweepCmd.Flags().Float64Var(&sweepMax, "max", 5, "last value")
	sweepCmd.Flags().IntVar(&sweepSteps, "steps", 5, "number of values")
	sweepCmd.Flags().Float64Var(&duration, "time", 1.0, "simulated seconds per value")

	monteCarloCmd := &cobra.Command{
		Use:   "montecarlo",
		Short: "perturb the motor parameters and check the loop still settles",
		RunE:  runMonteCarlo,
	}
	configFlags(monteCarloCmd)
	monteCarloCmd.Flags().IntVar(&trials, "trials", 20, "number of trials")
	monteCarloCmd.Flags().Float64Var(&perturbation, "perturbation", 0.2, "relative spread of each parameter")
	monteCarloCmd.Flags().Int64Var(&seed, "seed", 0, "random seed (0 draws one)")
	monteCarloCmd.Flags().StringVar(&metric, "metric", "tracking_error", "metric to summarise")
	monteCarloCmd.Flags().Float64Var(&duration, "time", 1.0, "simulated seconds per trial")

	scenarioCmd := &cobra.Command{
		Use:   "scenario [file]",
		Short: "run a scripted sequence of simulations",
		Args:  cobra.ExactArgs(1),
		RunE:  runScenario,
	}

	presetsCmd := &cobra.Command{
		Use:   "presets",
		Short: "list available presets",
		Run: func(cmd *cobra.Command, args []string) {
			for _, p := range config.ListPresets() {
				fmt.Printf("  %s\n", p)
			}
		},
	}

	configCmd := &cobra.Command{
		Use:   "config",
		Short: "print the effective config as yaml",
		RunE:  printConfig,
	}
	configFlags(configCmd)
	configCmd.Flags().StringVar(&writeConfig, "write", "", "write to this path instead of stdout")

	rootCmd.AddCommand(liveCmd, runCmd, simCmd, compareCmd, plotCmd, analyzeCmd, exportCmd,
		tuneCmd, sweepCmd, monteCarloCmd, scenarioCmd, presetsCmd, configCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// configFlags registers the flags read by loadConfig.
func configFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&configFile, "config", "", "config file path (yaml)")
	cmd.Flags().StringVar(&preset, "preset", "", "start from a named preset")
	cmd.Flags().StringVar(&integrator, "integrator", "", "plant integrator ("+joinNames()+")")
}
