package tuner

import (
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai"
	"github.com/sashabaranov/go-openai/jsonschema"
)

const gainsToolName = "compute_pid_gains"

const baseInstructions = `You choose PID gains for a UFO attitude controller.
The plant state is theta (rad) and omega (rad/s); the goal is theta -> 0.
Gain ranges: kp in [0, 10], ki in [0, 2], kd in [0, 5].
Prefer stable gains with little overshoot.
`

const structuredSuffix = `Answer with a single JSON object {"kp": number, "ki": number, "kd": number, "note": string} and nothing else.
`

func instructions(style Style, mode Mode) string {
	var b strings.Builder
	b.WriteString(baseInstructions)
	if mode == ModeStructured {
		b.WriteString(structuredSuffix)
	}
	switch style {
	case StyleAgentTool:
		b.WriteString("You may call " + gainsToolName + "(theta0, dt) to get a deterministic baseline.\n")
	default:
		b.WriteString("No tools are available.\n")
	}
	return b.String()
}

func userPrompt(req Request) string {
	return fmt.Sprintf("Tune PID gains for the UFO attitude controller.\n"+
		"- dt: %v\n"+
		"- initial condition: theta0 = %v rad, omega0 = 0 rad/s\n"+
		"Goal: theta -> 0 with a stable, low-overshoot response.\n",
		req.Dt, req.Theta0)
}

var gainsTool = openai.Tool{
	Type: openai.ToolTypeFunction,
	Function: &openai.FunctionDefinition{
		Name:        gainsToolName,
		Description: "Deterministic PID gain heuristic: kp grows with |theta0|, kd follows dt, ki stays small.",
		Parameters: jsonschema.Definition{
			Type: jsonschema.Object,
			Properties: map[string]jsonschema.Definition{
				"theta0": {Type: jsonschema.Number, Description: "initial attitude angle in rad"},
				"dt":     {Type: jsonschema.Number, Description: "simulation step in seconds"},
			},
			Required: []string{"theta0", "dt"},
		},
	},
}
