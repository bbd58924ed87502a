package tool

import (
	"fmt"
	"strings"

	"github.com/voxhall/ensemble/core"
	"github.com/voxhall/ensemble/memory"
)

// DefaultLookupMaxResults bounds how many turn events a lookup returns when
// the model does not ask for a specific count.
const DefaultLookupMaxResults = 5

// lookupEventsTool reconstructs a human-readable transcript from the durable
// turn log for a named persona. Retrieval tries the batched listing first and
// degrades to per-event reads before giving up with an inline error.
type lookupEventsTool struct {
	log memory.TurnLog
}

// NewLookupEventsTool constructs the turn-log readback tool.
func NewLookupEventsTool(log memory.TurnLog) Tool { return &lookupEventsTool{log: log} }

func (t *lookupEventsTool) Name() string { return "lookup_events" }

func (t *lookupEventsTool) Description() string {
	return "Look up recent conversation events recorded for a persona in this session."
}

func (t *lookupEventsTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"agent_name":  map[string]any{"type": "string", "description": "Persona whose events to look up"},
			"max_results": map[string]any{"type": "integer", "description": "Maximum number of events to return"},
		},
		"required": []string{"agent_name"},
	}
}

func (t *lookupEventsTool) Call(tc *core.ToolContext, args map[string]any) (any, error) {
	agentName, _ := args["agent_name"].(string)
	if agentName == "" {
		return "Error: lookup_events requires a non-empty 'agent_name'.", nil
	}
	max := DefaultLookupMaxResults
	if raw, ok := args["max_results"].(float64); ok && raw > 0 {
		max = int(raw)
	}
	if t.log == nil {
		return "No event log is configured for this session.", nil
	}

	actorID := memory.NormalizeActorID(agentName)
	events, err := t.log.ListTurns(tc.Context(), tc.MemoryID(), actorID, tc.SessionID(), max)
	if err != nil {
		tc.Logger().Warn("batched turn listing failed, reading per event",
			"persona", agentName, "error", err.Error())
		events, err = t.listPerEvent(tc, actorID, max)
	}
	if err != nil {
		tc.Logger().Error("turn lookup failed", "persona", agentName, "error", err.Error())
		return fmt.Sprintf("Error: could not look up events for %q: %v", agentName, err), nil
	}
	if len(events) == 0 {
		return fmt.Sprintf("No recorded events for %q in this session.", agentName), nil
	}
	return formatTranscript(events), nil
}

// listPerEvent is the degraded retrieval path: read the log length, then
// fetch the most recent events one index at a time.
func (t *lookupEventsTool) listPerEvent(tc *core.ToolContext, actorID string, max int) ([]memory.TurnEvent, error) {
	length, err := t.log.Length(tc.Context(), tc.MemoryID(), actorID, tc.SessionID())
	if err != nil {
		return nil, fmt.Errorf("event log length: %w", err)
	}
	start := length - max
	if start < 0 {
		start = 0
	}
	events := make([]memory.TurnEvent, 0, length-start)
	for i := start; i < length; i++ {
		ev, err := t.log.GetEvent(tc.Context(), tc.MemoryID(), actorID, tc.SessionID(), i)
		if err != nil {
			return nil, fmt.Errorf("event %d: %w", i, err)
		}
		events = append(events, ev)
	}
	return events, nil
}

func formatTranscript(events []memory.TurnEvent) string {
	lines := make([]string, 0, len(events))
	for _, ev := range events {
		lines = append(lines, fmt.Sprintf("%s: %s", ev.Role, ev.Text))
	}
	return strings.Join(lines, "\n")
}
