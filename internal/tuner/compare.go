package tuner

import (
	"context"

	"github.com/san-kum/ufosim/internal/control"
	"github.com/san-kum/ufosim/internal/sim"
)

// Compare scores a proposal against the heuristic baseline for the same
// rollout. A raw-text proposal has no gains, so only the baseline is scored.
func Compare(ctx context.Context, cfg sim.RolloutConfig, p *Proposal) ([]sim.Score, error) {
	candidates := make([]sim.Candidate, 0, 2)
	if p != nil && p.Kind == KindGains {
		candidates = append(candidates, sim.Candidate{Name: "proposed", Gains: p.Gains})
	}
	candidates = append(candidates, sim.Candidate{
		Name:  "heuristic",
		Gains: control.Heuristic(cfg.Theta0, cfg.Dt),
	})
	return sim.Evaluate(ctx, cfg, candidates)
}
