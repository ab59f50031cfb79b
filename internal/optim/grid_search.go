package optim

import (
	"context"
	"fmt"
	"math"

	"github.com/san-kum/ufosim/internal/control"
	"github.com/san-kum/ufosim/internal/sim"
)

// GridSearch scores every combination of the given gain values and keeps
// the one with the lowest metric. Gains not named keep the base value.
type GridSearch struct {
	paramNames []string
	ranges     [][]float64
}

func NewGridSearch(params []string, ranges [][]float64) *GridSearch {
	return &GridSearch{paramNames: params, ranges: ranges}
}

// Result is the best candidate found by a search.
type Result struct {
	Gains     control.Gains `json:"gains"`
	Metric    string        `json:"metric"`
	Value     float64       `json:"value"`
	Evaluated int           `json:"evaluated"`
}

// Search scores the grid in parallel through sim.Evaluate. Candidates whose
// metric is not finite never win; if none is finite an error is returned.
func (g *GridSearch) Search(ctx context.Context, cfg sim.RolloutConfig, base control.Gains, metricName string) (*Result, error) {
	if len(g.paramNames) != len(g.ranges) {
		return nil, fmt.Errorf("grid search: %d params but %d ranges", len(g.paramNames), len(g.ranges))
	}
	if _, ok := (sim.Metrics{}).Map()[metricName]; !ok {
		return nil, fmt.Errorf("grid search: unknown metric %q", metricName)
	}

	var candidates []sim.Candidate
	if err := g.expand(0, base, &candidates); err != nil {
		return nil, err
	}

	scores, err := sim.Evaluate(ctx, cfg, candidates)
	if err != nil {
		return nil, err
	}

	best := math.Inf(1)
	var bestGains control.Gains
	found := false
	for _, s := range scores {
		val := s.Metrics.Map()[metricName]
		if !math.IsNaN(val) && val < best {
			best = val
			bestGains = s.Gains
			found = true
		}
	}
	if !found {
		return nil, fmt.Errorf("grid search: no candidate produced a finite %s", metricName)
	}

	return &Result{Gains: bestGains, Metric: metricName, Value: best, Evaluated: len(scores)}, nil
}

func (g *GridSearch) expand(depth int, current control.Gains, out *[]sim.Candidate) error {
	if depth == len(g.paramNames) {
		*out = append(*out, sim.Candidate{Name: current.String(), Gains: current})
		return nil
	}

	paramName := g.paramNames[depth]
	for _, val := range g.ranges[depth] {
		next := current
		if err := next.SetParam(paramName, val); err != nil {
			return err
		}
		if err := g.expand(depth+1, next, out); err != nil {
			return err
		}
	}
	return nil
}
