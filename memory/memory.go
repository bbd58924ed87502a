// Package memory implements the tiered memory contract personas consume
// transparently: a durable short-term turn log keyed by
// (memory id, actor id, session id), and conversation-history compaction
// via either a persistence-backed manager or a pure in-process summarizer.
// Tier selection happens per session in Adapter based on the memory id.
package memory

import (
	"context"
	"strings"
	"time"

	"github.com/voxhall/ensemble/core"
)

// DefaultMemoryID is the sentinel meaning "no memory configured". Sessions
// carrying it get no turn-logging hooks and fall back to the in-process
// summarizer.
const DefaultMemoryID = "DEFAULT_MEMORY"

// CompactionThreshold is the transcript length past which the
// persistence-backed history manager applies summarization as a secondary
// compaction strategy.
const CompactionThreshold = 40

// NormalizeActorID converts a persona name to a validator-safe durable actor
// identifier (underscores become hyphens). Every place an actor id is derived
// must go through this function or turn-logging and lookup silently diverge.
func NormalizeActorID(personaName string) string {
	return strings.ReplaceAll(personaName, "_", "-")
}

// TurnEvent is one entry of the durable short-term turn log.
type TurnEvent struct {
	Role      string    `json:"role"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

// TurnLog is the durable event log behind the short-term memory tier. Entries
// are scoped by (memoryID, actorID, sessionID); actorID must already be
// normalized.
type TurnLog interface {
	// Append adds an event to the end of the log.
	Append(ctx context.Context, memoryID, actorID, sessionID string, ev TurnEvent) error

	// ListTurns returns up to max most-recent events in chronological order.
	// This is the batched retrieval path.
	ListTurns(ctx context.Context, memoryID, actorID, sessionID string, max int) ([]TurnEvent, error)

	// GetEvent returns the event at the given index (0 = oldest). Used by
	// the per-event fallback retrieval path.
	GetEvent(ctx context.Context, memoryID, actorID, sessionID string, index int) (TurnEvent, error)

	// Length returns the number of events in the log.
	Length(ctx context.Context, memoryID, actorID, sessionID string) (int, error)
}

// Hook observes transcript mutations. Hooks attached to an instance fire for
// every added message; failures are logged and swallowed so memory problems
// never abort a turn.
type Hook interface {
	OnMessageAdded(ctx context.Context, msg core.Message)
}

// HistoryManager compacts a transcript before it is sent to the model. The
// returned slice is always a fresh copy.
type HistoryManager interface {
	Compact(ctx context.Context, msgs []core.Message) ([]core.Message, error)
}
