package core

import (
	"context"
	"fmt"

	"github.com/voxhall/ensemble/logging"
)

// ToolContext provides a constrained, auditable surface for tool
// implementations invoked by a persona instance. It exposes the identifiers
// of the turn the tool runs in (tools read session/memory ids from here, not
// from model-supplied arguments) plus the specialist invoker wired in by the
// agent factory.
type ToolContext struct {
	turnCtx        *TurnContext
	functionCallID string
	invoker        SpecialistInvoker

	*loggerAdapter
}

// NewToolContext constructs a tool context bound to a parent TurnContext and
// unique functionCallID.
func NewToolContext(turnCtx *TurnContext, functionCallID string, invoker SpecialistInvoker) *ToolContext {
	return &ToolContext{
		turnCtx:        turnCtx,
		functionCallID: functionCallID,
		invoker:        invoker,
		loggerAdapter:  newLoggerAdapter(turnCtx.Logger()),
	}
}

// Context returns the context associated with the tool invocation.
func (tc *ToolContext) Context() context.Context { return tc.turnCtx.Context }

// TurnContext returns the parent turn context.
func (tc *ToolContext) TurnContext() *TurnContext { return tc.turnCtx }

// SessionID returns the session id the invoking persona is bound to.
func (tc *ToolContext) SessionID() string { return tc.turnCtx.SessionID }

// MemoryID returns the memory id the invoking persona is bound to.
func (tc *ToolContext) MemoryID() string { return tc.turnCtx.MemoryID }

// PersonaName returns the name of the invoking persona.
func (tc *ToolContext) PersonaName() string { return tc.turnCtx.PersonaName }

// Depth returns the specialist invocation depth of the invoking persona.
func (tc *ToolContext) Depth() int { return tc.turnCtx.Depth }

// FunctionCallID returns the function call id of this invocation.
func (tc *ToolContext) FunctionCallID() string { return tc.functionCallID }

// Logger returns the logger associated with the tool invocation.
func (tc *ToolContext) Logger() logging.Logger { return tc.loggerAdapter.Logger() }

// Collector returns the per-turn source collector.
func (tc *ToolContext) Collector() *SourceCollector { return tc.turnCtx.Collector }

// InvokeSpecialist delegates to the wired SpecialistInvoker using a child
// turn context derived from this tool's turn. Depth enforcement lives in the
// invoker so every path through it is capped.
func (tc *ToolContext) InvokeSpecialist(personaName, prompt string) (string, error) {
	if tc.invoker == nil {
		return "", fmt.Errorf("specialist invoker not configured: %w", ErrToolFailure)
	}
	return tc.invoker.InvokeSpecialist(tc.turnCtx.ForSpecialist(personaName), personaName, prompt)
}

// Validate performs a structural sanity check of the context.
func (tc *ToolContext) Validate() error {
	if tc.turnCtx == nil || tc.turnCtx.SessionID == "" || tc.functionCallID == "" {
		return fmt.Errorf("invalid ToolContext")
	}
	return nil
}
