package analysis

import (
	"context"
	"fmt"
	"runtime"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/stat"

	"github.com/san-kum/ufosim/internal/control"
	"github.com/san-kum/ufosim/internal/sim"
)

// SweepPoint is one rollout of a sweep.
type SweepPoint struct {
	Param   float64       `json:"param"`
	Gains   control.Gains `json:"gains"`
	Metrics sim.Metrics   `json:"metrics"`
}

// Summary is the mean and sample standard deviation of one metric across
// the sweep.
type Summary struct {
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"stddev"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
}

type SweepResult struct {
	Name    string             `json:"name"`
	Points  []SweepPoint       `json:"points"`
	Summary map[string]Summary `json:"summary"`
}

// Linspace returns n evenly spaced values from lo to hi inclusive.
func Linspace(lo, hi float64, n int) []float64 {
	if n <= 1 {
		return []float64{lo}
	}
	out := make([]float64, n)
	step := (hi - lo) / float64(n-1)
	for i := range out {
		out[i] = lo + float64(i)*step
	}
	out[n-1] = hi
	return out
}

// SweepTheta0 rolls out gainsFor(theta0, dt) for every theta0 in values.
// With control.Heuristic as gainsFor this shows how the baseline copes
// across disturbance sizes, including the jump at 2.5 rad.
func SweepTheta0(ctx context.Context, base sim.RolloutConfig, values []float64, gainsFor func(theta0, dt float64) control.Gains) (*SweepResult, error) {
	return sweep(ctx, "theta0", values, func(v float64) (sim.RolloutConfig, control.Gains, error) {
		cfg := base
		cfg.Theta0 = v
		return cfg, gainsFor(v, cfg.Dt), nil
	})
}

// SweepGain varies one gain ("Kp", "Ki" or "Kd") of g, keeping the others
// fixed. Values outside the gain range are clamped.
func SweepGain(ctx context.Context, cfg sim.RolloutConfig, g control.Gains, param string, values []float64) (*SweepResult, error) {
	if _, ok := g.GetParams()[param]; !ok {
		return nil, fmt.Errorf("unknown param: %s", param)
	}
	return sweep(ctx, param, values, func(v float64) (sim.RolloutConfig, control.Gains, error) {
		next := g
		err := next.SetParam(param, v)
		return cfg, next, err
	})
}

func sweep(ctx context.Context, name string, values []float64, at func(v float64) (sim.RolloutConfig, control.Gains, error)) (*SweepResult, error) {
	points := make([]SweepPoint, len(values))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))

	for i, v := range values {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			cfg, gains, err := at(v)
			if err != nil {
				return err
			}
			points[i] = SweepPoint{Param: v, Gains: gains, Metrics: sim.Rollout(cfg, gains)}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return &SweepResult{Name: name, Points: points, Summary: summarize(points)}, nil
}

func summarize(points []SweepPoint) map[string]Summary {
	if len(points) == 0 {
		return map[string]Summary{}
	}

	cols := make(map[string][]float64)
	for _, p := range points {
		for k, v := range p.Metrics.Map() {
			cols[k] = append(cols[k], v)
		}
	}

	out := make(map[string]Summary, len(cols))
	for k, xs := range cols {
		s := Summary{Min: xs[0], Max: xs[0]}
		for _, x := range xs {
			if x < s.Min {
				s.Min = x
			}
			if x > s.Max {
				s.Max = x
			}
		}
		if len(xs) > 1 {
			s.Mean, s.StdDev = stat.MeanStdDev(xs, nil)
		} else {
			s.Mean = xs[0]
		}
		out[k] = s
	}
	return out
}
