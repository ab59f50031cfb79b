package automation

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/san-kum/ufosim/internal/config"
	"github.com/san-kum/ufosim/internal/control"
	"github.com/san-kum/ufosim/internal/dynamo"
	"github.com/san-kum/ufosim/internal/export"
	"github.com/san-kum/ufosim/internal/sim"
)

// Scenario defines a scripted sequence of rollouts
type Scenario struct {
	Name        string         `yaml:"name"`
	Description string         `yaml:"description"`
	Steps       []ScenarioStep `yaml:"steps"`
}

// ScenarioStep is one rollout. Zero fields inherit from the base config,
// applied after Preset.
type ScenarioStep struct {
	Preset    string   `yaml:"preset"`
	Theta0    *float64 `yaml:"theta0"`
	Omega0    *float64 `yaml:"omega0"`
	Dt        float64  `yaml:"dt"`
	Duration  float64  `yaml:"duration"`
	ULimit    float64  `yaml:"u_limit"`
	Kp        *float64 `yaml:"kp"`
	Ki        *float64 `yaml:"ki"`
	Kd        *float64 `yaml:"kd"`
	Heuristic bool     `yaml:"heuristic"`
	// SaveAs names a CSV file for the step's trace, relative to the
	// output directory.
	SaveAs string `yaml:"save_as"`
}

// StepResult is the outcome of one scenario step.
type StepResult struct {
	Index   int
	Gains   control.Gains
	Metrics sim.Metrics
	File    string
}

// LoadScenario loads a scenario from a YAML file
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var scenario Scenario
	if err := yaml.Unmarshal(data, &scenario); err != nil {
		return nil, err
	}
	if len(scenario.Steps) == 0 {
		return nil, fmt.Errorf("%s: scenario has no steps", path)
	}

	return &scenario, nil
}

// Resolve layers the step over a copy of base and validates the result.
func (s ScenarioStep) Resolve(base config.Config) (*config.Config, error) {
	cfg := base
	if s.Preset != "" {
		if err := cfg.ApplyPreset(s.Preset); err != nil {
			return nil, err
		}
	}
	if s.Theta0 != nil {
		cfg.InitState.Theta = *s.Theta0
	}
	if s.Omega0 != nil {
		cfg.InitState.Omega = *s.Omega0
	}
	if s.Dt != 0 {
		cfg.Dt = s.Dt
	}
	if s.Duration != 0 {
		cfg.Duration = s.Duration
	}
	if s.ULimit != 0 {
		cfg.ULimit = s.ULimit
	}
	for _, g := range []struct {
		v   *float64
		dst *float64
	}{
		{s.Kp, &cfg.Gains.Kp},
		{s.Ki, &cfg.Gains.Ki},
		{s.Kd, &cfg.Gains.Kd},
	} {
		if g.v != nil {
			*g.dst = *g.v
		}
	}
	cfg.Gains.Heuristic = cfg.Gains.Heuristic || s.Heuristic

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// RunScenario executes all steps in order. Steps with save_as write their
// trace under outDir; an empty outDir skips writing.
func RunScenario(ctx context.Context, scenario *Scenario, base config.Config, outDir string, log logrus.FieldLogger) ([]StepResult, error) {
	results := make([]StepResult, 0, len(scenario.Steps))

	for i, step := range scenario.Steps {
		if err := ctx.Err(); err != nil {
			return results, err
		}

		cfg, err := step.Resolve(base)
		if err != nil {
			return results, fmt.Errorf("step %d: %w", i+1, err)
		}

		g := cfg.GetGains()
		log.WithFields(logrus.Fields{
			"step":   i + 1,
			"of":     len(scenario.Steps),
			"theta0": cfg.InitState.Theta,
			"dt":     cfg.Dt,
		}).Info("running scenario step")

		tr := sim.Record(cfg.RolloutConfig(), g)
		res := StepResult{Index: i, Gains: g, Metrics: tr.Metrics}

		if step.SaveAs != "" && outDir != "" {
			path := filepath.Join(outDir, step.SaveAs)
			if err := writeTrace(path, tr); err != nil {
				return results, fmt.Errorf("step %d save: %w", i+1, err)
			}
			res.File = path
		}

		results = append(results, res)
	}

	return results, nil
}

func writeTrace(path string, tr *sim.Trace) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := export.WriteCSV(f, tr.Samples); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// MonteCarloConfig perturbs the initial state of a base rollout
type MonteCarloConfig struct {
	Base         sim.RolloutConfig
	Gains        control.Gains
	Perturbation float64
	NumTrials    int
	// Tolerance on |theta| at the end of the horizon for a trial to count
	// as settled.
	Tolerance float64
	Seed      int64
}

// MonteCarloResult is one perturbed trial
type MonteCarloResult struct {
	TrialID    int
	Theta0     float64
	Omega0     float64
	FinalTheta float64
	Metrics    sim.Metrics
	Settled    bool
	Diverged   bool
}

// Validate rejects a negative trial count and a perturbation that is
// negative or not finite.
func (c *MonteCarloConfig) Validate() error {
	if c.NumTrials < 0 {
		return &dynamo.InputError{Field: "num_trials", Value: float64(c.NumTrials), Wrapped: dynamo.ErrInvalidInput}
	}
	if err := dynamo.CheckFinite("perturbation", c.Perturbation); err != nil {
		return err
	}
	if c.Perturbation < 0 {
		return &dynamo.InputError{Field: "perturbation", Value: c.Perturbation, Wrapped: dynamo.ErrInvalidInput}
	}
	return nil
}

// RunMonteCarlo executes trials with uniform perturbations of theta0 and
// omega0 in [-Perturbation, Perturbation]. FinalTheta is the angle after
// the last tick of the horizon.
func RunMonteCarlo(ctx context.Context, cfg *MonteCarloConfig) ([]MonteCarloResult, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	results := make([]MonteCarloResult, 0, cfg.NumTrials)

	rng := rand.New(rand.NewSource(cfg.Seed))
	if cfg.Seed == 0 {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}

	for trial := 0; trial < cfg.NumTrials; trial++ {
		if err := ctx.Err(); err != nil {
			return results, err
		}

		rc := cfg.Base
		rc.Theta0 += (rng.Float64() - 0.5) * 2 * cfg.Perturbation
		rc.Omega0 += (rng.Float64() - 0.5) * 2 * cfg.Perturbation

		last := &lastTick{}
		m := sim.RolloutObserved(rc, cfg.Gains, last)
		final, _, _ := sim.Step(rc.Dt, last.state, cfg.Gains, sim.DefaultThetaRef, rc.ULimit)

		diverged := !dynamo.IsFinite(final.Theta) || !dynamo.IsFinite(m.IAE)
		results = append(results, MonteCarloResult{
			TrialID:    trial,
			Theta0:     rc.Theta0,
			Omega0:     rc.Omega0,
			FinalTheta: final.Theta,
			Metrics:    m,
			Settled:    !diverged && math.Abs(final.Theta) < cfg.Tolerance,
			Diverged:   diverged,
		})
	}

	return results, nil
}

// lastTick keeps the state the most recent tick started from; stepping it
// once more gives the state at the end of the horizon.
type lastTick struct {
	state sim.State
}

func (f *lastTick) OnStep(k int, s sim.State, e, u float64) {
	f.state = s
}

// MonteCarloStats counts settled, unsettled and diverged trials
func MonteCarloStats(results []MonteCarloResult) (settled, unsettled, diverged int) {
	for _, r := range results {
		switch {
		case r.Diverged:
			diverged++
		case r.Settled:
			settled++
		default:
			unsettled++
		}
	}
	return
}
