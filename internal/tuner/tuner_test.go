package tuner

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/sashabaranov/go-openai"
	"github.com/sirupsen/logrus"

	"github.com/san-kum/ufosim/internal/control"
	"github.com/san-kum/ufosim/internal/dynamo"
	"github.com/san-kum/ufosim/internal/sim"
)

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func TestParseStyleMode(t *testing.T) {
	if s, err := ParseStyle(""); err != nil || s != StyleAgentTool {
		t.Errorf("expected default agent_tool, got %q, %v", s, err)
	}
	if _, err := ParseStyle("auto"); err == nil {
		t.Error("expected error for unknown style")
	}
	if m, err := ParseMode("raw"); err != nil || m != ModeRaw {
		t.Errorf("expected raw, got %q, %v", m, err)
	}
	if _, err := ParseMode("json"); err == nil {
		t.Error("expected error for unknown mode")
	}
}

func TestRequestValidate(t *testing.T) {
	tests := []struct {
		name string
		req  Request
		ok   bool
	}{
		{"ok", Request{Dt: 0.05, Theta0: 3}, true},
		{"zero dt", Request{Dt: 0, Theta0: 3}, true},
		{"negative dt", Request{Dt: -0.1, Theta0: 3}, false},
		{"nan dt", Request{Dt: math.NaN(), Theta0: 3}, false},
		{"inf theta0", Request{Dt: 0.05, Theta0: math.Inf(1)}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate()
			if tt.ok && err != nil {
				t.Errorf("expected nil, got %v", err)
			}
			if !tt.ok && !errors.Is(err, dynamo.ErrInvalidInput) {
				t.Errorf("expected ErrInvalidInput, got %v", err)
			}
		})
	}
}

func TestParseGains(t *testing.T) {
	tests := []struct {
		name string
		text string
		want control.Gains
		ok   bool
	}{
		{"plain", `{"kp":2.5,"ki":0.1,"kd":0.9,"note":"x"}`, control.Gains{Kp: 2.5, Ki: 0.1, Kd: 0.9, Note: "x"}, true},
		{"fenced", "```json\n{\"kp\":1,\"ki\":0,\"kd\":2}\n```", control.Gains{Kp: 1, Kd: 2}, true},
		{"prose", `Here you go: {"kp":3,"ki":0.2,"kd":1} good luck`, control.Gains{Kp: 3, Ki: 0.2, Kd: 1}, true},
		{"missing kd", `{"kp":3,"ki":0.2}`, control.Gains{}, false},
		{"no object", "use kp=3", control.Gains{}, false},
		{"broken", `{"kp":3,`, control.Gains{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseGains(tt.text)
			if tt.ok != (err == nil) {
				t.Fatalf("expected ok=%v, got err %v", tt.ok, err)
			}
			if tt.ok && got != tt.want {
				t.Errorf("expected %+v, got %+v", tt.want, got)
			}
		})
	}
}

func TestHeuristicProposer(t *testing.T) {
	p := NewHeuristic()
	req := Request{Dt: 0.05, Theta0: 3, Style: StyleAgentTool, Mode: ModeStructured, ID: "r1"}

	got, err := p.Propose(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Kind != KindGains {
		t.Fatalf("expected gains, got %s", got.Kind)
	}
	want := control.Heuristic(3, 0.05)
	if got.Gains != want {
		t.Errorf("expected %+v, got %+v", want, got.Gains)
	}
	if got.Meta.Mode != "single_shot" || got.Meta.Source != "heuristic" || got.Meta.RequestID != "r1" {
		t.Errorf("unexpected meta %+v", got.Meta)
	}

	req.Mode = ModeRaw
	got, err = p.Propose(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Kind != KindRawText || !strings.Contains(got.Raw, `"kp":3.9`) {
		t.Errorf("expected raw JSON text, got %s %q", got.Kind, got.Raw)
	}

	if _, err := p.Propose(context.Background(), Request{Dt: math.NaN()}); !errors.Is(err, dynamo.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput, got %v", err)
	}
}

// fakeChat serves /v1/chat/completions from a list of canned replies and
// keeps the decoded requests.
type fakeChat struct {
	replies  []openai.ChatCompletionMessage
	mu       sync.Mutex
	requests []openai.ChatCompletionRequest
}

func (f *fakeChat) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/v1/chat/completions" {
		http.NotFound(w, r)
		return
	}
	var req openai.ChatCompletionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	f.mu.Lock()
	f.requests = append(f.requests, req)
	n := len(f.requests) - 1
	f.mu.Unlock()

	if n >= len(f.replies) {
		http.Error(w, `{"error":{"message":"no more replies"}}`, http.StatusInternalServerError)
		return
	}
	resp := openai.ChatCompletionResponse{
		ID:     "chatcmpl-test",
		Object: "chat.completion",
		Model:  req.Model,
		Choices: []openai.ChatCompletionChoice{
			{Index: 0, Message: f.replies[n], FinishReason: openai.FinishReasonStop},
		},
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

func newTestProposer(t *testing.T, f *fakeChat) *OpenAIProposer {
	t.Helper()
	srv := httptest.NewServer(f)
	t.Cleanup(srv.Close)
	return NewOpenAI(Options{APIKey: "test", BaseURL: srv.URL + "/v1", Model: "test-model"}, quietLogger())
}

func assistant(content string) openai.ChatCompletionMessage {
	return openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: content}
}

func TestOpenAIProposerNoTools(t *testing.T) {
	f := &fakeChat{replies: []openai.ChatCompletionMessage{
		assistant(`{"kp": 12, "ki": -1, "kd": 1.5, "note": "aggressive"}`),
	}}
	p := newTestProposer(t, f)

	got, err := p.Propose(context.Background(), Request{Dt: 0.05, Theta0: 1, Style: StyleNoTools, Mode: ModeStructured})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Kind != KindGains {
		t.Fatalf("expected gains, got %s (%q)", got.Kind, got.Raw)
	}
	want := control.Gains{Kp: 10, Ki: 0, Kd: 1.5, Note: "aggressive"}
	if got.Gains != want {
		t.Errorf("expected clamped %+v, got %+v", want, got.Gains)
	}
	if got.Meta.ToolCalled {
		t.Error("expected no tool call")
	}

	if len(f.requests) != 1 {
		t.Fatalf("expected 1 request, got %d", len(f.requests))
	}
	req := f.requests[0]
	if len(req.Tools) != 0 {
		t.Errorf("expected no tools registered, got %d", len(req.Tools))
	}
	if req.ResponseFormat == nil || req.ResponseFormat.Type != openai.ChatCompletionResponseFormatTypeJSONObject {
		t.Error("expected json_object response format")
	}
	if req.Model != "test-model" {
		t.Errorf("expected model test-model, got %s", req.Model)
	}
	if !strings.Contains(req.Messages[1].Content, "theta0 = 1 rad") {
		t.Errorf("user prompt missing theta0: %q", req.Messages[1].Content)
	}
}

func TestOpenAIProposerToolRound(t *testing.T) {
	toolMsg := openai.ChatCompletionMessage{
		Role: openai.ChatMessageRoleAssistant,
		ToolCalls: []openai.ToolCall{{
			ID:   "call_1",
			Type: openai.ToolTypeFunction,
			Function: openai.FunctionCall{
				Name:      gainsToolName,
				Arguments: `{"theta0": 3, "dt": 0.05}`,
			},
		}},
	}
	f := &fakeChat{replies: []openai.ChatCompletionMessage{
		toolMsg,
		assistant(`{"kp": 3.9, "ki": 1.17, "kd": 2.9, "note": "from tool"}`),
	}}
	p := newTestProposer(t, f)

	got, err := p.Propose(context.Background(), Request{ID: "abc", Dt: 0.05, Theta0: 3, Style: StyleAgentTool, Mode: ModeStructured})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !got.Meta.ToolCalled || len(got.Meta.ToolCalls) != 1 {
		t.Fatalf("expected one tool call, got %+v", got.Meta)
	}
	if got.Meta.ToolCalls[0].Name != gainsToolName {
		t.Errorf("expected %s, got %s", gainsToolName, got.Meta.ToolCalls[0].Name)
	}
	if !strings.Contains(got.Meta.ToolOutputLast, `"kp":3.9`) {
		t.Errorf("unexpected tool output %q", got.Meta.ToolOutputLast)
	}
	if got.Meta.RequestID != "abc" {
		t.Errorf("expected request id abc, got %s", got.Meta.RequestID)
	}

	if len(f.requests) != 2 {
		t.Fatalf("expected 2 requests, got %d", len(f.requests))
	}
	if len(f.requests[0].Tools) != 1 {
		t.Error("expected tool registered on first request")
	}
	follow := f.requests[1].Messages
	last := follow[len(follow)-1]
	if last.Role != openai.ChatMessageRoleTool || last.ToolCallID != "call_1" {
		t.Errorf("expected tool result message, got %+v", last)
	}
}

func TestOpenAIProposerRawAndUnparseable(t *testing.T) {
	f := &fakeChat{replies: []openai.ChatCompletionMessage{
		assistant("kp around 3 should do"),
		assistant("I would go with kp=3"),
	}}
	p := newTestProposer(t, f)

	got, err := p.Propose(context.Background(), Request{Dt: 0.05, Theta0: 1, Style: StyleNoTools, Mode: ModeRaw})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Kind != KindRawText || got.Raw != "kp around 3 should do" {
		t.Errorf("expected raw text, got %s %q", got.Kind, got.Raw)
	}
	if f.requests[0].ResponseFormat != nil {
		t.Error("raw mode should not request a json object")
	}

	got, err = p.Propose(context.Background(), Request{Dt: 0.05, Theta0: 1, Style: StyleNoTools, Mode: ModeStructured})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Kind != KindRawText {
		t.Errorf("expected raw fallback for unparseable output, got %s", got.Kind)
	}
}

func TestOpenAIProposerUpstreamError(t *testing.T) {
	p := newTestProposer(t, &fakeChat{})

	_, err := p.Propose(context.Background(), Request{Dt: 0.05, Theta0: 1, Style: StyleNoTools, Mode: ModeStructured})
	if !errors.Is(err, ErrUpstream) {
		t.Errorf("expected ErrUpstream, got %v", err)
	}
}

func TestRunTool(t *testing.T) {
	out := runTool(openai.ToolCall{Function: openai.FunctionCall{Name: gainsToolName, Arguments: `{"theta0":1,"dt":0.005}`}})
	var g control.Gains
	if err := json.Unmarshal([]byte(out), &g); err != nil {
		t.Fatalf("tool output not JSON: %v", err)
	}
	if g != control.Heuristic(1, 0.005) {
		t.Errorf("expected heuristic gains, got %+v", g)
	}

	if out := runTool(openai.ToolCall{Function: openai.FunctionCall{Name: "other"}}); !strings.Contains(out, "unknown tool") {
		t.Errorf("expected unknown tool error, got %q", out)
	}
	if out := runTool(openai.ToolCall{Function: openai.FunctionCall{Name: gainsToolName, Arguments: "{"}}); !strings.Contains(out, "bad arguments") {
		t.Errorf("expected bad arguments error, got %q", out)
	}
}

func TestNewFromOptions(t *testing.T) {
	if _, ok := NewFromOptions(Options{}, quietLogger()).(*HeuristicProposer); !ok {
		t.Error("expected heuristic proposer without API key")
	}
	if _, ok := NewFromOptions(Options{APIKey: "k"}, quietLogger()).(*OpenAIProposer); !ok {
		t.Error("expected OpenAI proposer with API key")
	}
}

func TestCompare(t *testing.T) {
	cfg := sim.DefaultRolloutConfig()
	prop := &Proposal{Kind: KindGains, Gains: control.Gains{Kp: 2, Ki: 0.05, Kd: 0.9}}

	scores, err := Compare(context.Background(), cfg, prop)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(scores) != 2 || scores[0].Name != "proposed" || scores[1].Name != "heuristic" {
		t.Fatalf("unexpected scores %+v", scores)
	}
	if scores[0].Metrics != sim.Rollout(cfg, prop.Gains) {
		t.Error("proposed score does not match a direct rollout")
	}

	scores, err = Compare(context.Background(), cfg, &Proposal{Kind: KindRawText, Raw: "?"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(scores) != 1 || scores[0].Name != "heuristic" {
		t.Errorf("expected baseline only, got %+v", scores)
	}
}
