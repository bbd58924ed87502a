package memory

import (
	"context"

	"github.com/voxhall/ensemble/core"
)

// PersistentManager is the persistence-backed HistoryManager used when a
// real memory id is configured. Durability comes from the turn-log hooks
// attached alongside it; Compact applies summarization only as a secondary
// strategy once the in-context transcript exceeds CompactionThreshold.
type PersistentManager struct {
	log        TurnLog
	memoryID   string
	actorID    string
	sessionID  string
	threshold  int
	summarizer *Summarizer
}

// NewPersistentManager constructs a manager bound to one
// (memoryID, actorID, sessionID) triple. actorID must be normalized.
func NewPersistentManager(log TurnLog, memoryID, actorID, sessionID string) *PersistentManager {
	return &PersistentManager{
		log:        log,
		memoryID:   memoryID,
		actorID:    actorID,
		sessionID:  sessionID,
		threshold:  CompactionThreshold,
		summarizer: NewSummarizer(),
	}
}

// Compact implements HistoryManager.
func (m *PersistentManager) Compact(ctx context.Context, msgs []core.Message) ([]core.Message, error) {
	if len(msgs) <= m.threshold {
		return core.CloneMessages(msgs), nil
	}
	return m.summarizer.Compact(ctx, msgs)
}

// Log exposes the backing turn log (used by the events lookup tool).
func (m *PersistentManager) Log() TurnLog { return m.log }
