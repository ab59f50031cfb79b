package sim

import (
	"context"
	"runtime"
	"sort"

	"github.com/san-kum/ufosim/internal/control"
	"golang.org/x/sync/errgroup"
)

// Candidate is a named gain triple to score.
type Candidate struct {
	Name  string        `json:"name"`
	Gains control.Gains `json:"gains"`
}

// Score pairs a candidate with its rollout metrics.
type Score struct {
	Candidate
	Metrics Metrics `json:"metrics"`
}

// Evaluate scores every candidate under the same rollout configuration. The
// rollouts run in parallel; results keep the candidates' order. A canceled
// context stops candidates that have not started yet.
func Evaluate(ctx context.Context, cfg RolloutConfig, candidates []Candidate) ([]Score, error) {
	scores := make([]Score, len(candidates))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))

	for i, c := range candidates {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			scores[i] = Score{Candidate: c, Metrics: Rollout(cfg, c.Gains)}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return scores, nil
}

// RankByIAE returns a copy of scores ordered from lowest to highest iae.
// Ties keep their input order.
func RankByIAE(scores []Score) []Score {
	ranked := make([]Score, len(scores))
	copy(ranked, scores)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Metrics.IAE < ranked[j].Metrics.IAE
	})
	return ranked
}
