package session

import (
	"sync"

	"github.com/voxhall/ensemble/agent"
	"github.com/voxhall/ensemble/logging"
)

// entry is the per-session slot: the currently active persona instance plus
// the lock serializing turns within the session.
type entry struct {
	turnMu      sync.Mutex
	personaName string
	instance    *agent.Instance
}

// RegistryOptions holds dependency overrides passed to NewRegistry.
type RegistryOptions struct {
	Logger logging.Logger
}

// Registry caches one active persona instance per session and decides reuse
// versus rebuild when a turn arrives. A request for the cached persona reuses
// the live instance with refreshed identifiers; a request for a different
// persona saves the outgoing transcript to the context store, builds a fresh
// instance and seeds it from any transcript saved for that persona earlier in
// the session.
type Registry struct {
	mu       sync.Mutex
	factory  *agent.Factory
	contexts *ContextStore
	sessions map[string]*entry
	logger   logging.Logger
}

// NewRegistry constructs a Registry over the given factory and context store.
func NewRegistry(factory *agent.Factory, contexts *ContextStore, optFns ...func(o *RegistryOptions)) *Registry {
	opts := RegistryOptions{Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Registry{
		factory:  factory,
		contexts: contexts,
		sessions: make(map[string]*entry),
		logger:   opts.Logger,
	}
}

func (r *Registry) entryFor(sessionID string) *entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.sessions[sessionID]
	if !ok {
		e = &entry{}
		r.sessions[sessionID] = e
	}
	return e
}

// BeginTurn acquires the session's turn lock, serializing turns within one
// session while leaving other sessions untouched. The returned func releases
// the lock and must be called when the turn ends.
func (r *Registry) BeginTurn(sessionID string) (end func()) {
	e := r.entryFor(sessionID)
	e.turnMu.Lock()
	return e.turnMu.Unlock
}

// Resolve returns the instance serving the persona for this turn. Callers
// hold the session's turn lock (BeginTurn). Construction failures abort the
// turn and propagate.
func (r *Registry) Resolve(sessionID, personaName, memoryID string) (*agent.Instance, error) {
	e := r.entryFor(sessionID)

	if e.instance != nil && e.personaName == personaName {
		e.instance.RefreshIdentifiers(sessionID, memoryID)
		r.logger.Debug("reusing cached persona instance",
			"session_id", sessionID, "persona", personaName)
		return e.instance, nil
	}

	if e.instance != nil {
		r.logger.Info("persona switch, saving outgoing transcript",
			"session_id", sessionID, "from", e.personaName, "to", personaName)
		r.contexts.Save(sessionID, e.personaName, e.instance.Transcript())
	}

	inst, err := r.factory.Build(personaName, sessionID, memoryID)
	if err != nil {
		return nil, err
	}
	if saved := r.contexts.Load(sessionID, personaName); saved != nil {
		inst.SeedTranscript(saved)
	}

	e.personaName = personaName
	e.instance = inst
	return inst, nil
}

// Clear evicts the session's cached instance and saved contexts.
func (r *Registry) Clear(sessionID string) {
	r.mu.Lock()
	delete(r.sessions, sessionID)
	r.mu.Unlock()
	r.contexts.Clear(sessionID)
}
