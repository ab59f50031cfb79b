package tuner

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/sashabaranov/go-openai"
	"github.com/sirupsen/logrus"

	"github.com/san-kum/ufosim/internal/control"
)

const DefaultModel = "gpt-4.1-mini"

// Options configures the model-backed proposer.
type Options struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
}

// OpenAIProposer asks a chat completion model for gains. One proposal costs
// one completion, plus one follow-up when the model calls the gain tool.
type OpenAIProposer struct {
	client *openai.Client
	model  string
	log    logrus.FieldLogger
}

func NewOpenAI(opts Options, log logrus.FieldLogger) *OpenAIProposer {
	cfg := openai.DefaultConfig(opts.APIKey)
	if opts.BaseURL != "" {
		cfg.BaseURL = opts.BaseURL
	}
	if opts.Timeout > 0 {
		cfg.HTTPClient = &http.Client{Timeout: opts.Timeout}
	}
	model := opts.Model
	if model == "" {
		model = DefaultModel
	}
	return &OpenAIProposer{client: openai.NewClientWithConfig(cfg), model: model, log: log}
}

func (p *OpenAIProposer) Propose(ctx context.Context, req Request) (*Proposal, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	creq := openai.ChatCompletionRequest{
		Model: p.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: instructions(req.Style, req.Mode)},
			{Role: openai.ChatMessageRoleUser, Content: userPrompt(req)},
		},
	}
	if req.Mode == ModeStructured {
		creq.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		}
	}
	if req.Style == StyleAgentTool {
		creq.Tools = []openai.Tool{gainsTool}
	}

	meta := newMeta(req, "openai")
	meta.Model = p.model
	log := p.log.WithFields(logrus.Fields{
		"request_id": req.ID,
		"style":      req.Style,
		"mode":       req.Mode,
	})

	start := time.Now()
	msg, err := p.complete(ctx, creq)
	if err != nil {
		return nil, err
	}

	if len(msg.ToolCalls) > 0 && req.Style == StyleAgentTool {
		creq.Messages = append(creq.Messages, msg)
		for _, call := range msg.ToolCalls {
			out := runTool(call)
			meta.ToolCalled = true
			meta.ToolCalls = append(meta.ToolCalls, ToolCall{
				ID:        call.ID,
				Name:      call.Function.Name,
				Arguments: call.Function.Arguments,
			})
			meta.ToolOutputLast = out
			creq.Messages = append(creq.Messages, openai.ChatCompletionMessage{
				Role:       openai.ChatMessageRoleTool,
				Content:    out,
				ToolCallID: call.ID,
			})
		}
		creq.ToolChoice = "none"

		msg, err = p.complete(ctx, creq)
		if err != nil {
			return nil, err
		}
	}

	log = log.WithFields(logrus.Fields{
		"tool_called": meta.ToolCalled,
		"elapsed":     time.Since(start),
	})
	return p.finish(log, req, msg.Content, meta), nil
}

func (p *OpenAIProposer) complete(ctx context.Context, creq openai.ChatCompletionRequest) (openai.ChatCompletionMessage, error) {
	resp, err := p.client.CreateChatCompletion(ctx, creq)
	if err != nil {
		return openai.ChatCompletionMessage{}, fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	if len(resp.Choices) == 0 {
		return openai.ChatCompletionMessage{}, fmt.Errorf("%w: empty choices", ErrUpstream)
	}
	return resp.Choices[0].Message, nil
}

func (p *OpenAIProposer) finish(log logrus.FieldLogger, req Request, content string, meta Meta) *Proposal {
	raw := &Proposal{Kind: KindRawText, Raw: content, Meta: meta}
	if req.Mode == ModeRaw {
		log.Debug("raw proposal")
		return raw
	}

	g, err := parseGains(content)
	if err == nil {
		g, err = finalize(g)
	}
	if err != nil {
		log.WithError(err).Warn("model output is not a usable gain triple")
		return raw
	}

	log.WithField("gains", g.String()).Info("proposal")
	return &Proposal{Kind: KindGains, Gains: g, Meta: meta}
}

type toolArgs struct {
	Theta0 float64 `json:"theta0"`
	Dt     float64 `json:"dt"`
}

// runTool serves a tool call locally and returns the JSON the model sees.
func runTool(call openai.ToolCall) string {
	if call.Function.Name != gainsToolName {
		return fmt.Sprintf(`{"error":"unknown tool %q"}`, call.Function.Name)
	}

	var args toolArgs
	if err := json.Unmarshal([]byte(call.Function.Arguments), &args); err != nil {
		return fmt.Sprintf(`{"error":%q}`, "bad arguments: "+err.Error())
	}

	out, err := json.Marshal(control.Heuristic(args.Theta0, args.Dt))
	if err != nil {
		return fmt.Sprintf(`{"error":%q}`, err.Error())
	}
	return string(out)
}

// NewFromOptions returns the model-backed proposer when an API key is set and
// the heuristic otherwise.
func NewFromOptions(opts Options, log logrus.FieldLogger) Proposer {
	if opts.APIKey == "" {
		log.Info("no OpenAI API key configured, using heuristic tuner")
		return NewHeuristic()
	}
	log.WithField("model", opts.Model).Info("using OpenAI tuner")
	return NewOpenAI(opts, log)
}
