package tuner

import (
	"context"
	"encoding/json"

	"github.com/san-kum/ufosim/internal/control"
)

// HeuristicProposer answers from control.Heuristic without any network
// call. It is the fallback when no model is configured.
type HeuristicProposer struct{}

func NewHeuristic() *HeuristicProposer {
	return &HeuristicProposer{}
}

func (h *HeuristicProposer) Propose(ctx context.Context, req Request) (*Proposal, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	g, err := finalize(control.Heuristic(req.Theta0, req.Dt))
	if err != nil {
		return nil, err
	}

	p := &Proposal{Kind: KindGains, Gains: g, Meta: newMeta(req, "heuristic")}
	if req.Mode == ModeRaw {
		raw, err := json.Marshal(g)
		if err != nil {
			return nil, err
		}
		p.Kind = KindRawText
		p.Raw = string(raw)
	}
	return p, nil
}
