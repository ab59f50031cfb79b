package tuner

import (
	"context"
	"errors"
	"fmt"

	"github.com/san-kum/ufosim/internal/control"
	"github.com/san-kum/ufosim/internal/dynamo"
)

// ErrUpstream wraps failures of the external model service.
var ErrUpstream = errors.New("tuner: upstream model call failed")

// Style selects whether the model may call the deterministic gain tool.
type Style string

const (
	StyleNoTools   Style = "no_tools"
	StyleAgentTool Style = "agent_tool"
)

func ParseStyle(s string) (Style, error) {
	switch Style(s) {
	case StyleNoTools, StyleAgentTool:
		return Style(s), nil
	case "":
		return StyleAgentTool, nil
	}
	return "", fmt.Errorf("unknown style: %s (want %s or %s)", s, StyleNoTools, StyleAgentTool)
}

// Mode selects the response shape. Structured asks for a gain object and
// parses it; raw forwards the model text untouched.
type Mode string

const (
	ModeStructured Mode = "structured"
	ModeRaw        Mode = "raw"
)

func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeStructured, ModeRaw:
		return Mode(s), nil
	case "":
		return ModeStructured, nil
	}
	return "", fmt.Errorf("unknown mode: %s (want %s or %s)", s, ModeStructured, ModeRaw)
}

// Kind tags which variant a Proposal carries.
type Kind string

const (
	KindGains   Kind = "gains"
	KindRawText Kind = "raw_text"
)

// Request is one tuning question: which gains for this step size and
// initial disturbance.
type Request struct {
	ID     string  `json:"id,omitempty"`
	Dt     float64 `json:"dt"`
	Theta0 float64 `json:"theta0"`
	Style  Style   `json:"style"`
	Mode   Mode    `json:"mode"`
}

func (r Request) Validate() error {
	if err := dynamo.CheckFinite("dt", r.Dt); err != nil {
		return err
	}
	if r.Dt < 0 {
		return &dynamo.InputError{Field: "dt", Value: r.Dt, Wrapped: dynamo.ErrInvalidInput}
	}
	return dynamo.CheckFinite("theta0", r.Theta0)
}

// ToolCall records one tool invocation made by the model.
type ToolCall struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

type Meta struct {
	Mode           string     `json:"mode"`
	Style          Style      `json:"style"`
	Output         Mode       `json:"output"`
	Source         string     `json:"source"`
	Model          string     `json:"model,omitempty"`
	RequestID      string     `json:"request_id,omitempty"`
	ToolCalled     bool       `json:"tool_called"`
	ToolCalls      []ToolCall `json:"tool_calls"`
	ToolOutputLast string     `json:"tool_output_last,omitempty"`
}

// Proposal is the answer of a Proposer. When Kind is KindGains, Gains has
// been validated and clamped; otherwise Raw holds the unparsed text.
type Proposal struct {
	Kind  Kind          `json:"kind"`
	Gains control.Gains `json:"gains"`
	Raw   string        `json:"raw,omitempty"`
	Meta  Meta          `json:"meta"`
}

// Proposer suggests a gain triple. Each call is a single shot: there is no
// feedback from rollout scores into later proposals.
type Proposer interface {
	Propose(ctx context.Context, req Request) (*Proposal, error)
}

func newMeta(req Request, source string) Meta {
	return Meta{
		Mode:      "single_shot",
		Style:     req.Style,
		Output:    req.Mode,
		Source:    source,
		RequestID: req.ID,
		ToolCalls: []ToolCall{},
	}
}

// finalize runs every proposed triple through the same path as the
// heuristic: reject non-finite values, then clamp into range.
func finalize(g control.Gains) (control.Gains, error) {
	if err := g.Validate(); err != nil {
		return control.Gains{}, err
	}
	return g.Clamp(), nil
}
