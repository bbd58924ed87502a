// Package tool implements the capability layer exposed to persona instances:
// schema-validated function calling, the specialist invocation bridge, the
// knowledge retrieval path and the turn-log readback tool. Tool failures are
// returned as inline strings so the invoking persona can react in natural
// language; they never abort the parent turn.
package tool

import (
	"fmt"

	"github.com/voxhall/ensemble/core"
	"github.com/voxhall/ensemble/internal/util"
)

// Tool is the interface every persona capability implements.
//
// Implementations should provide clear snake_case names, a minimal JSON
// schema for their arguments, and be safe for concurrent use. Every tool has
// access to a ToolContext carrying the session/memory identifiers of the turn
// it runs in; tools read these from the context, never from model-supplied
// arguments.
type Tool interface {
	// Name returns the unique identifier for this tool.
	Name() string

	// Description is provided to the model to guide tool selection.
	Description() string

	// Parameters returns a JSON schema describing the expected arguments.
	Parameters() map[string]any

	// Call executes the tool with already-parsed arguments.
	Call(toolCtx *core.ToolContext, args map[string]any) (any, error)
}

// ValidationError represents parameter validation errors with detailed information.
type ValidationError = util.ValidationError

// ToolError represents errors that occur during tool execution.
type ToolError struct {
	Tool    string `json:"tool"`              // Name of the tool that failed
	Message string `json:"message"`           // Error message
	Code    string `json:"code"`              // Error code for categorization
	Details any    `json:"details,omitempty"` // Additional error details
}

func (e *ToolError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("tool error [%s] in %s: %s", e.Code, e.Tool, e.Message)
	}
	return fmt.Sprintf("tool error in %s: %s", e.Tool, e.Message)
}

// NewToolError creates a new ToolError with the specified details.
func NewToolError(tool, message, code string) *ToolError {
	return &ToolError{
		Tool:    tool,
		Message: message,
		Code:    code,
	}
}
