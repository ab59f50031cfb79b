package main

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/san-kum/ufosim/internal/config"
	"github.com/san-kum/ufosim/internal/logging"
	"github.com/san-kum/ufosim/internal/sim"
)

var (
	configFile string
	envFile    string
	logLevel   string
	preset     string

	dt       float64
	duration float64
	theta    float64
	omega    float64
	integ    float64
	ePrev    float64
	paused   bool
	thetaRef float64
	uLimit   float64
	kp       float64
	ki       float64
	kd       float64

	heuristic bool
	outDir    string
	addr      string
	style     string
	mode      string
	format    string
	outFile   string
	pngFile   string
	phase     bool
	sweepFrom float64
	sweepTo   float64
	sweepN    int
	sweepOver string
	theme     string
	metric    string
	gridKp    []float64
	gridKi    []float64
	gridKd    []float64
	trials    int
	perturb   float64
	tolerance float64
	seed      int64
)

// main registers the ufosim commands and runs the root command, exiting
// with status 1 on error.
func main() {
	rootCmd := &cobra.Command{
		Use:           "ufosim",
		Short:         "UFO attitude PID simulator and tuner",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path (yaml)")
	rootCmd.PersistentFlags().StringVar(&envFile, "env", ".env", "dotenv file with OPENAI_* settings")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&preset, "preset", "", "scenario preset (see 'ufosim presets')")

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "serve /control, /tune, /rollout and /gains over HTTP",
		RunE:  runServe,
	}
	serveCmd.Flags().StringVar(&addr, "addr", config.DefaultAddr, "listen address")

	stepCmd := &cobra.Command{
		Use:   "step",
		Short: "advance one control tick and print the result as JSON",
		RunE:  runStep,
	}
	addSimFlags(stepCmd)
	stepCmd.Flags().Float64Var(&integ, "integ", 0, "integral accumulator")
	stepCmd.Flags().Float64Var(&ePrev, "e-prev", 0, "previous error")
	stepCmd.Flags().BoolVar(&paused, "paused", false, "freeze the plant")
	stepCmd.Flags().Float64Var(&thetaRef, "theta-ref", sim.DefaultThetaRef, "reference angle")

	rolloutCmd := &cobra.Command{
		Use:   "rollout",
		Short: "score a gain triple over a fixed horizon",
		RunE:  runRollout,
	}
	addSimFlags(rolloutCmd)
	addDurationFlag(rolloutCmd)
	rolloutCmd.Flags().BoolVar(&heuristic, "heuristic", false, "use heuristic gains")

	gainsCmd := &cobra.Command{
		Use:   "gains",
		Short: "print heuristic gains for a disturbance and step size",
		RunE:  runGains,
	}
	gainsCmd.Flags().Float64Var(&theta, "theta0", sim.DefaultTheta0, "initial angle")
	gainsCmd.Flags().Float64Var(&dt, "dt", sim.DefaultRolloutDt, "timestep")

	tuneCmd := &cobra.Command{
		Use:   "tune",
		Short: "ask the tuner for gains and score them against the heuristic",
		RunE:  runTune,
	}
	tuneCmd.Flags().Float64Var(&theta, "theta0", sim.DefaultTheta0, "initial angle")
	tuneCmd.Flags().Float64Var(&dt, "dt", sim.DefaultRolloutDt, "timestep")
	addDurationFlag(tuneCmd)
	tuneCmd.Flags().StringVar(&style, "style", "", "no_tools or agent_tool")
	tuneCmd.Flags().StringVar(&mode, "mode", "", "structured or raw")

	compareCmd := &cobra.Command{
		Use:   "compare kp,ki,kd [kp,ki,kd ...]",
		Short: "score gain triples side by side with the heuristic baseline",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runCompare,
	}
	compareCmd.Flags().Float64Var(&theta, "theta0", sim.DefaultTheta0, "initial angle")
	compareCmd.Flags().Float64Var(&dt, "dt", sim.DefaultRolloutDt, "timestep")
	addDurationFlag(compareCmd)

	sweepCmd := &cobra.Command{
		Use:   "sweep",
		Short: "roll out across a range of theta0 or one gain",
		RunE:  runSweep,
	}
	addSimFlags(sweepCmd)
	addDurationFlag(sweepCmd)
	sweepCmd.Flags().StringVar(&sweepOver, "over", "theta0", "swept quantity: theta0, Kp, Ki or Kd")
	sweepCmd.Flags().Float64Var(&sweepFrom, "from", 0.5, "first value")
	sweepCmd.Flags().Float64Var(&sweepTo, "to", 5.0, "last value")
	sweepCmd.Flags().IntVar(&sweepN, "n", 10, "number of values")

	searchCmd := &cobra.Command{
		Use:   "search",
		Short: "grid search the gains that minimise a rollout metric",
		RunE:  runSearch,
	}
	addSimFlags(searchCmd)
	addDurationFlag(searchCmd)
	searchCmd.Flags().StringVar(&metric, "metric", "iae", "metric to minimise")
	searchCmd.Flags().Float64SliceVar(&gridKp, "grid-kp", []float64{0.5, 1, 2, 4, 8}, "kp values")
	searchCmd.Flags().Float64SliceVar(&gridKi, "grid-ki", []float64{0, 0.05, 0.2}, "ki values")
	searchCmd.Flags().Float64SliceVar(&gridKd, "grid-kd", []float64{0.3, 0.9, 1.5, 3}, "kd values")

	scenarioCmd := &cobra.Command{
		Use:   "scenario <file.yaml>",
		Short: "run a scripted sequence of rollouts",
		Args:  cobra.ExactArgs(1),
		RunE:  runScenario,
	}
	scenarioCmd.Flags().StringVar(&outDir, "out-dir", ".", "directory for save_as trace files")

	montecarloCmd := &cobra.Command{
		Use:   "montecarlo",
		Short: "roll out from randomly perturbed initial states",
		RunE:  runMonteCarlo,
	}
	addSimFlags(montecarloCmd)
	addDurationFlag(montecarloCmd)
	montecarloCmd.Flags().IntVar(&trials, "trials", 100, "number of trials")
	montecarloCmd.Flags().Float64Var(&perturb, "perturb", 0.5, "max perturbation of theta0 and omega0")
	montecarloCmd.Flags().Float64Var(&tolerance, "tol", 0.05, "|theta| tolerance at the horizon")
	montecarloCmd.Flags().Int64Var(&seed, "seed", 0, "random seed (0 = time based)")

	plotCmd := &cobra.Command{
		Use:   "plot [trace.csv]",
		Short: "plot theta and u of an exported trace or a fresh rollout",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runPlot,
	}
	addSimFlags(plotCmd)
	addDurationFlag(plotCmd)
	plotCmd.Flags().BoolVar(&heuristic, "heuristic", false, "use heuristic gains")
	plotCmd.Flags().StringVar(&pngFile, "png", "", "also write a PNG plot to this file")
	plotCmd.Flags().BoolVar(&phase, "phase", false, "draw the theta/omega phase portrait")

	exportCmd := &cobra.Command{
		Use:   "export [trace.csv]",
		Short: "export a rollout trace as csv or json",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runExport,
	}
	addSimFlags(exportCmd)
	addDurationFlag(exportCmd)
	exportCmd.Flags().BoolVar(&heuristic, "heuristic", false, "use heuristic gains")
	exportCmd.Flags().StringVar(&format, "format", "csv", "csv or json")
	exportCmd.Flags().StringVarP(&outFile, "out", "o", "", "output file (default stdout)")

	liveCmd := &cobra.Command{
		Use:   "live",
		Short: "animate the UFO in the terminal",
		RunE:  runLive,
	}
	addSimFlags(liveCmd)
	liveCmd.Flags().StringVar(&style, "style", "", "tuner style for the t key")
	liveCmd.Flags().StringVar(&theme, "theme", "night", "color theme")

	presetsCmd := &cobra.Command{
		Use:   "presets",
		Short: "list scenario presets",
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, name := range config.ListPresets() {
				p := config.GetPreset(name)
				fmt.Printf("  %-10s theta=%.2f omega=%.2f dt=%.3f time=%.0fs\n",
					name, p.InitState.Theta, p.InitState.Omega, p.Dt, p.Duration)
			}
			return nil
		},
	}

	rootCmd.AddCommand(serveCmd, stepCmd, rolloutCmd, gainsCmd, tuneCmd, compareCmd, sweepCmd, searchCmd, scenarioCmd, montecarloCmd, plotCmd, exportCmd, liveCmd, presetsCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func addSimFlags(cmd *cobra.Command) {
	cmd.Flags().Float64Var(&dt, "dt", config.DefaultDt, "timestep")
	cmd.Flags().Float64Var(&theta, "theta", config.DefaultTheta, "initial angle")
	cmd.Flags().Float64Var(&omega, "omega", 0, "initial angular velocity")
	cmd.Flags().Float64Var(&uLimit, "u-limit", config.DefaultULimit, "actuator limit")
	cmd.Flags().Float64Var(&kp, "kp", config.DefaultKp, "pid kp")
	cmd.Flags().Float64Var(&ki, "ki", config.DefaultKi, "pid ki")
	cmd.Flags().Float64Var(&kd, "kd", config.DefaultKd, "pid kd")
}

func addDurationFlag(cmd *cobra.Command) {
	cmd.Flags().Float64Var(&duration, "time", config.DefaultDuration, "duration in seconds")
}

// loadConfig layers defaults, the config file, the environment, a preset
// and finally explicitly set flags.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.DefaultConfig()
	if configFile != "" {
		loaded, err := config.Load(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = loaded
	}
	var envFiles []string
	if envFile != "" {
		envFiles = append(envFiles, envFile)
	}
	if err := cfg.ApplyEnv(envFiles...); err != nil {
		return nil, fmt.Errorf("failed to load env: %w", err)
	}
	if preset != "" {
		if err := cfg.ApplyPreset(preset); err != nil {
			return nil, err
		}
	}

	flags := cmd.Flags()
	set := func(name string, dst *float64, v float64) {
		if flags.Lookup(name) != nil && flags.Changed(name) {
			*dst = v
		}
	}
	set("dt", &cfg.Dt, dt)
	set("time", &cfg.Duration, duration)
	set("theta", &cfg.InitState.Theta, theta)
	set("theta0", &cfg.InitState.Theta, theta)
	set("omega", &cfg.InitState.Omega, omega)
	set("theta-ref", &cfg.ThetaRef, thetaRef)
	set("u-limit", &cfg.ULimit, uLimit)
	set("kp", &cfg.Gains.Kp, kp)
	set("ki", &cfg.Gains.Ki, ki)
	set("kd", &cfg.Gains.Kd, kd)
	if flags.Lookup("heuristic") != nil && flags.Changed("heuristic") {
		cfg.Gains.Heuristic = heuristic
	}
	if flags.Lookup("addr") != nil && flags.Changed("addr") {
		cfg.Server.Addr = addr
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	if style != "" {
		cfg.Tuner.Style = style
	}
	if mode != "" {
		cfg.Tuner.Mode = mode
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newLogger(cfg *config.Config) *logrus.Logger {
	return logging.New(cfg.Log)
}
