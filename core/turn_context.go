package core

import (
	"context"

	"github.com/voxhall/ensemble/logging"
)

// MaxSpecialistDepth caps recursive specialist invocation chains. A persona
// whose tool set includes the specialist bridge could otherwise recurse
// without bound; the cap fails closed with ErrDepthExceeded.
const MaxSpecialistDepth = 4

// TurnContext carries the execution scope of one turn: the ambient
// cancellation context, the session/memory/persona identifiers the turn is
// bound to, the per-turn source collector, and the specialist invocation
// depth. Specialist invocations derive child contexts that share the
// collector and increment the depth.
type TurnContext struct {
	Context     context.Context
	TurnID      string
	SessionID   string
	MemoryID    string
	PersonaName string
	InvokedBy   string // orchestrator persona for specialist turns, empty at the root
	Depth       int
	Collector   *SourceCollector

	*loggerAdapter
}

// NewTurnContext constructs a root turn context (depth zero) with a fresh
// source collector.
func NewTurnContext(ctx context.Context, sessionID, memoryID, personaName string, logger logging.Logger) *TurnContext {
	return &TurnContext{
		Context:       ctx,
		TurnID:        NewID(),
		SessionID:     sessionID,
		MemoryID:      memoryID,
		PersonaName:   personaName,
		Collector:     NewSourceCollector(),
		loggerAdapter: newLoggerAdapter(logger),
	}
}

// Done returns a channel closed when the underlying context is cancelled.
func (tc *TurnContext) Done() <-chan struct{} { return tc.Context.Done() }

// Err returns the cancellation error (if any) from the underlying context.
func (tc *TurnContext) Err() error { return tc.Context.Err() }

// ForSpecialist derives a child context for a specialist invocation. The
// child reuses the caller's session and memory identifiers, shares the
// collector and turn id, and carries an incremented depth.
func (tc *TurnContext) ForSpecialist(personaName string) *TurnContext {
	return &TurnContext{
		Context:       tc.Context,
		TurnID:        tc.TurnID,
		SessionID:     tc.SessionID,
		MemoryID:      tc.MemoryID,
		PersonaName:   personaName,
		InvokedBy:     tc.PersonaName,
		Depth:         tc.Depth + 1,
		Collector:     tc.Collector,
		loggerAdapter: tc.loggerAdapter,
	}
}

// SpecialistInvoker builds a transient instance of another persona and
// invokes it synchronously. Implemented by the agent factory; consumed by the
// specialist bridge tool. The returned string is the specialist's raw text,
// not yet wrapped in an agent-message tag.
type SpecialistInvoker interface {
	InvokeSpecialist(tc *TurnContext, personaName, prompt string) (string, error)
}
