package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"text/tabwriter"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"
	"github.com/guptarohit/asciigraph"
	"github.com/spf13/cobra"
	"gonum.org/v1/gonum/stat"

	"github.com/san-kum/ufosim/internal/analysis"
	"github.com/san-kum/ufosim/internal/automation"
	"github.com/san-kum/ufosim/internal/control"
	"github.com/san-kum/ufosim/internal/dynamo"
	"github.com/san-kum/ufosim/internal/export"
	"github.com/san-kum/ufosim/internal/optim"
	"github.com/san-kum/ufosim/internal/server"
	"github.com/san-kum/ufosim/internal/sim"
	"github.com/san-kum/ufosim/internal/tuner"
	"github.com/san-kum/ufosim/internal/viz"
)

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	log := newLogger(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	p := tuner.NewFromOptions(cfg.TunerOptions(), log)
	return server.New(cfg, p, log).ListenAndServe(ctx)
}

func runStep(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	s := cfg.GetInitState()
	s.Integ = integ
	s.EPrev = ePrev
	s.Paused = paused
	if err := s.Validate(); err != nil {
		return err
	}

	next, e, u := sim.Step(cfg.Dt, s, cfg.GetGains(), cfg.ThetaRef, cfg.ULimit)
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(struct {
		State sim.State `json:"state"`
		Error float64   `json:"error"`
		U     float64   `json:"u"`
	}{next, e, u})
}

func runRollout(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	rc := cfg.RolloutConfig()
	g := cfg.GetGains()

	fmt.Printf("rollout: theta0=%.3f omega0=%.3f dt=%.4f time=%.1fs\n", rc.Theta0, rc.Omega0, rc.Dt, rc.Seconds)
	fmt.Printf("gains:   %s\n\n", g)

	printMetrics(os.Stdout, sim.Rollout(rc, g))
	return nil
}

func printMetrics(w io.Writer, m sim.Metrics) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "METRIC\tVALUE")
	for _, k := range []string{"iae", "max_abs_error", "max_abs_u", "fuel"} {
		fmt.Fprintf(tw, "%s\t%.4f\n", k, m.Map()[k])
	}
	tw.Flush()
}

func runGains(cmd *cobra.Command, args []string) error {
	if err := dynamo.CheckFinite("theta0", theta); err != nil {
		return err
	}
	if err := dynamo.CheckFinite("dt", dt); err != nil {
		return err
	}
	g := control.Heuristic(theta, dt)
	fmt.Printf("kp=%.4f ki=%.4f kd=%.4f\n", g.Kp, g.Ki, g.Kd)
	fmt.Printf("note: %s\n", control.HeuristicNote)
	return nil
}

func runTune(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	log := newLogger(cfg)

	st, err := tuner.ParseStyle(cfg.Tuner.Style)
	if err != nil {
		return err
	}
	md, err := tuner.ParseMode(cfg.Tuner.Mode)
	if err != nil {
		return err
	}
	req := tuner.Request{
		ID:     uuid.NewString(),
		Dt:     cfg.Dt,
		Theta0: cfg.InitState.Theta,
		Style:  st,
		Mode:   md,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	p, err := tuner.NewFromOptions(cfg.TunerOptions(), log).Propose(ctx, req)
	if err != nil {
		return err
	}

	fmt.Printf("source: %s  style: %s  output: %s  tool_called: %v\n",
		p.Meta.Source, p.Meta.Style, p.Meta.Output, p.Meta.ToolCalled)
	if p.Kind != tuner.KindGains {
		fmt.Printf("raw:\n%s\n", p.Raw)
	} else {
		fmt.Printf("proposed: %s\n", p.Gains)
	}
	fmt.Println()

	scores, err := tuner.Compare(ctx, cfg.RolloutConfig(), p)
	if err != nil {
		return err
	}
	return printScores(os.Stdout, sim.RankByIAE(scores))
}

func runCompare(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	rc := cfg.RolloutConfig()

	candidates := make([]sim.Candidate, 0, len(args)+1)
	for _, arg := range args {
		g, err := parseTriple(arg)
		if err != nil {
			return err
		}
		candidates = append(candidates, sim.Candidate{Name: arg, Gains: g.Clamp()})
	}
	candidates = append(candidates, sim.Candidate{Name: "heuristic", Gains: control.Heuristic(rc.Theta0, rc.Dt)})

	scores, err := sim.Evaluate(cmd.Context(), rc, candidates)
	if err != nil {
		return err
	}
	return printScores(os.Stdout, sim.RankByIAE(scores))
}

// parseTriple reads "kp,ki,kd".
func parseTriple(s string) (control.Gains, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 3 {
		return control.Gains{}, fmt.Errorf("expected kp,ki,kd, got %q", s)
	}
	var v [3]float64
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return control.Gains{}, fmt.Errorf("gain %q: %w", p, err)
		}
		v[i] = f
	}
	g := control.Gains{Kp: v[0], Ki: v[1], Kd: v[2]}
	return g, g.Validate()
}

func printScores(w io.Writer, scores []sim.Score) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "CANDIDATE\tKP\tKI\tKD\tIAE\tMAX|E|\tMAX|U|\tFUEL")
	for _, s := range scores {
		fmt.Fprintf(tw, "%s\t%.3f\t%.3f\t%.3f\t%.4f\t%.4f\t%.4f\t%.4f\n",
			s.Name, s.Gains.Kp, s.Gains.Ki, s.Gains.Kd,
			s.Metrics.IAE, s.Metrics.MaxAbsError, s.Metrics.MaxAbsU, s.Metrics.Fuel)
	}
	return tw.Flush()
}

func runSweep(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	values := analysis.Linspace(sweepFrom, sweepTo, sweepN)

	var res *analysis.SweepResult
	if sweepOver == "theta0" {
		gainsFor := func(theta0, dt float64) control.Gains { return cfg.GetGains() }
		if cfg.Gains.Heuristic {
			gainsFor = control.Heuristic
		}
		res, err = analysis.SweepTheta0(cmd.Context(), cfg.RolloutConfig(), values, gainsFor)
	} else {
		res, err = analysis.SweepGain(cmd.Context(), cfg.RolloutConfig(), cfg.GetGains(), sweepOver, values)
	}
	if err != nil {
		return err
	}

	fmt.Printf("sweep over %s (%d points)\n\n", res.Name, len(res.Points))
	tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "%s\tIAE\tMAX|E|\tMAX|U|\tFUEL\n", strings.ToUpper(res.Name))
	for _, p := range res.Points {
		fmt.Fprintf(tw, "%.4f\t%.4f\t%.4f\t%.4f\t%.4f\n",
			p.Param, p.Metrics.IAE, p.Metrics.MaxAbsError, p.Metrics.MaxAbsU, p.Metrics.Fuel)
	}
	tw.Flush()

	fmt.Println()
	tw = tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "METRIC\tMEAN\tSTDDEV\tMIN\tMAX")
	for _, k := range []string{"iae", "max_abs_error", "max_abs_u", "fuel"} {
		s := res.Summary[k]
		fmt.Fprintf(tw, "%s\t%.4f\t%.4f\t%.4f\t%.4f\n", k, s.Mean, s.StdDev, s.Min, s.Max)
	}
	return tw.Flush()
}

// traceFor reads an exported csv trace when a path is given and records a
// fresh rollout otherwise. A trace read from csv carries no metrics.
func traceFor(cmd *cobra.Command, args []string) (*sim.Trace, error) {
	if len(args) == 1 {
		f, err := os.Open(args[0])
		if err != nil {
			return nil, err
		}
		defer f.Close()
		samples, err := export.ReadCSV(f)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", args[0], err)
		}
		return &sim.Trace{Samples: samples}, nil
	}
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	return sim.Record(cfg.RolloutConfig(), cfg.GetGains()), nil
}

func runPlot(cmd *cobra.Command, args []string) error {
	tr, err := traceFor(cmd, args)
	if err != nil {
		return err
	}
	if len(tr.Samples) == 0 {
		return fmt.Errorf("trace has no samples")
	}

	if phase {
		fmt.Println("phase portrait (theta vs omega)")
		fmt.Println(analysis.ScatterASCII(analysis.PhasePortrait(tr), 60, 20))
	} else {
		fmt.Println(asciigraph.Plot(tr.Column("theta"),
			asciigraph.Height(12), asciigraph.Width(70), asciigraph.Caption("theta (rad)")))
		fmt.Println()
		fmt.Println(asciigraph.Plot(tr.Column("u"),
			asciigraph.Height(8), asciigraph.Width(70), asciigraph.Caption("u (clamped)")))
	}
	fmt.Printf("\nsettling time (|e|<0.05): %.2fs\n", analysis.SettlingTime(tr, 0.05))
	if len(args) == 0 {
		fmt.Printf("iae: %.4f\n", tr.Metrics.IAE)
	}

	if pngFile != "" {
		if err := export.SavePNG(pngFile, tr); err != nil {
			return err
		}
		fmt.Printf("wrote %s\n", pngFile)
	}
	return nil
}

func runExport(cmd *cobra.Command, args []string) error {
	tr, err := traceFor(cmd, args)
	if err != nil {
		return err
	}

	var w io.Writer = os.Stdout
	if outFile != "" {
		f, err := os.Create(outFile)
		if err != nil {
			return err
		}
		defer f.Close()
		w = f
	}

	switch format {
	case "csv":
		return export.WriteCSV(w, tr.Samples)
	case "json":
		return export.WriteJSON(w, tr)
	default:
		return fmt.Errorf("unknown format: %s (csv or json)", format)
	}
}

func runLive(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	st, err := tuner.ParseStyle(cfg.Tuner.Style)
	if err != nil {
		return err
	}

	// The tui owns the terminal, so tuner logs are discarded.
	log := newLogger(cfg)
	log.SetOutput(io.Discard)

	m := viz.NewModel(viz.Options{
		Dt:       cfg.Dt,
		ThetaRef: cfg.ThetaRef,
		ULimit:   cfg.ULimit,
		State:    cfg.GetInitState(),
		Gains:    cfg.GetGains(),
		Theme:    theme,
		Tuner:    tuner.NewFromOptions(cfg.TunerOptions(), log),
		Style:    st,
	})
	_, err = tea.NewProgram(m, tea.WithAltScreen()).Run()
	return err
}

func runSearch(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	gs := optim.NewGridSearch([]string{"Kp", "Ki", "Kd"}, [][]float64{gridKp, gridKi, gridKd})
	res, err := gs.Search(cmd.Context(), cfg.RolloutConfig(), cfg.GetGains(), metric)
	if err != nil {
		return err
	}

	fmt.Printf("evaluated %d candidates\n", res.Evaluated)
	fmt.Printf("best %s: %.4f\n", res.Metric, res.Value)
	fmt.Printf("gains:  %s\n", res.Gains)
	return nil
}

func runScenario(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	sc, err := automation.LoadScenario(args[0])
	if err != nil {
		return err
	}

	if err := os.MkdirAll(outDir, 0755); err != nil {
		return err
	}

	fmt.Printf("scenario: %s\n", sc.Name)
	if sc.Description != "" {
		fmt.Printf("  %s\n", sc.Description)
	}
	fmt.Println()

	results, err := automation.RunScenario(cmd.Context(), sc, *cfg, outDir, newLogger(cfg))
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "STEP\tGAINS\tIAE\tMAX|U|\tFUEL\tFILE")
	for _, r := range results {
		fmt.Fprintf(tw, "%d\t%s\t%.4f\t%.4f\t%.4f\t%s\n",
			r.Index+1, r.Gains, r.Metrics.IAE, r.Metrics.MaxAbsU, r.Metrics.Fuel, r.File)
	}
	return tw.Flush()
}

func runMonteCarlo(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	results, err := automation.RunMonteCarlo(cmd.Context(), &automation.MonteCarloConfig{
		Base:         cfg.RolloutConfig(),
		Gains:        cfg.GetGains(),
		Perturbation: perturb,
		NumTrials:    trials,
		Tolerance:    tolerance,
		Seed:         seed,
	})
	if err != nil {
		return err
	}

	iae := make([]float64, 0, len(results))
	for _, r := range results {
		if !r.Diverged {
			iae = append(iae, r.Metrics.IAE)
		}
	}
	settled, unsettled, diverged := automation.MonteCarloStats(results)

	fmt.Printf("trials: %d  settled: %d  unsettled: %d  diverged: %d\n",
		len(results), settled, unsettled, diverged)
	if len(iae) > 0 {
		mean, std := stat.MeanStdDev(iae, nil)
		fmt.Printf("iae: mean=%.4f std=%.4f\n", mean, std)
	}
	return nil
}
