package tool

import (
	"errors"
	"fmt"

	"github.com/voxhall/ensemble/core"
)

// invokeSpecialistTool synchronously delegates a sub-prompt to a transient
// instance of another persona. The specialist runs under the caller's own
// session and memory identifiers (read from the ToolContext, never from
// model-supplied arguments) and its answer is wrapped in an agent-message tag
// so downstream chunking treats it as one atomic unit.
//
// Failures are returned inline as the tool result, not as errors, so the
// parent persona can react in natural language instead of losing the turn.
type invokeSpecialistTool struct{}

// NewInvokeSpecialistTool constructs the specialist bridge tool.
func NewInvokeSpecialistTool() Tool { return &invokeSpecialistTool{} }

func (t *invokeSpecialistTool) Name() string { return "invoke_specialist" }

func (t *invokeSpecialistTool) Description() string {
	return "Delegate a sub-task to another specialist persona by name and receive its answer inline."
}

func (t *invokeSpecialistTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"prompt":     map[string]any{"type": "string", "description": "The sub-task to hand to the specialist"},
			"agent_name": map[string]any{"type": "string", "description": "Target specialist persona name"},
		},
		"required": []string{"prompt", "agent_name"},
	}
}

// TagSpecialistResult wraps a specialist's text so it survives re-chunking as
// an atomic unit.
func TagSpecialistResult(personaName, result string) string {
	return fmt.Sprintf("<agent-message agent='%s'>%s</agent-message>", personaName, result)
}

func (t *invokeSpecialistTool) Call(tc *core.ToolContext, args map[string]any) (any, error) {
	prompt, _ := args["prompt"].(string)
	agentName, _ := args["agent_name"].(string)
	if agentName == "" {
		return "Error: invoke_specialist requires a non-empty 'agent_name'.", nil
	}
	if prompt == "" {
		return "Error: invoke_specialist requires a non-empty 'prompt'.", nil
	}

	result, err := tc.InvokeSpecialist(agentName, prompt)
	if err != nil {
		tc.Logger().Error("specialist invocation failed",
			"specialist", agentName, "depth", tc.Depth(), "error", err.Error())
		if errors.Is(err, core.ErrDepthExceeded) {
			return fmt.Sprintf("Error: cannot invoke specialist %q: maximum invocation depth (%d) exceeded.",
				agentName, core.MaxSpecialistDepth), nil
		}
		return fmt.Sprintf("Error: specialist %q could not be invoked: %v", agentName, err), nil
	}

	return TagSpecialistResult(agentName, result), nil
}
