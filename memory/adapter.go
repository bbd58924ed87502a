package memory

import (
	"github.com/voxhall/ensemble/logging"
)

// Adapter selects the memory tier for a (persona, session, memory id)
// binding. With the DefaultMemoryID sentinel no hooks are attached and
// history compaction is the pure in-process Summarizer; with a real memory
// id every transcript message is appended to the durable turn log and
// compaction is persistence-backed.
type Adapter struct {
	log    TurnLog
	logger logging.Logger
}

// AdapterOptions holds dependency overrides passed to NewAdapter.
type AdapterOptions struct {
	Logger logging.Logger
}

// NewAdapter constructs an Adapter over the given turn log.
func NewAdapter(log TurnLog, optFns ...func(o *AdapterOptions)) *Adapter {
	opts := AdapterOptions{Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Adapter{log: log, logger: opts.Logger}
}

// BuildHooks returns the turn-logging hooks for the binding, or nil when no
// memory is configured.
func (a *Adapter) BuildHooks(personaName, sessionID, memoryID string) []Hook {
	if memoryID == DefaultMemoryID || a.log == nil {
		return nil
	}
	return []Hook{&turnLogHook{
		log:       a.log,
		memoryID:  memoryID,
		actorID:   NormalizeActorID(personaName),
		sessionID: sessionID,
		logger:    a.logger,
	}}
}

// BuildHistoryManager returns the history manager for the binding: the
// in-process Summarizer under the sentinel, otherwise the persistence-backed
// manager.
func (a *Adapter) BuildHistoryManager(personaName, sessionID, memoryID string) HistoryManager {
	if memoryID == DefaultMemoryID || a.log == nil {
		return NewSummarizer()
	}
	return NewPersistentManager(a.log, memoryID, NormalizeActorID(personaName), sessionID)
}

// Log exposes the configured turn log (nil when none was provided).
func (a *Adapter) Log() TurnLog { return a.log }
