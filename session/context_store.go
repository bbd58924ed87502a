// Package session keeps per-session persona state: the context store that
// preserves transcripts across persona switches and the registry that decides
// instance reuse versus rebuild. Both are keyed by session id; turns within
// one session are serialized by a per-session lock while distinct sessions
// proceed independently.
package session

import (
	"sync"

	"github.com/voxhall/ensemble/core"
)

// ContextStore preserves trimmed persona transcripts across switches within a
// session. It is consulted only at switch boundaries: while a persona remains
// the cached active one its transcript lives in the instance, not here.
type ContextStore struct {
	mu       sync.RWMutex
	contexts map[string]map[string][]core.Message // sessionID -> personaName -> transcript
}

// NewContextStore creates an empty context store.
func NewContextStore() *ContextStore {
	return &ContextStore{contexts: make(map[string]map[string][]core.Message)}
}

// Save stores a persona's transcript for later restoration, trimming to the
// most recent core.MaxContextMessages entries.
func (s *ContextStore) Save(sessionID, personaName string, msgs []core.Message) {
	trimmed := core.TrimMessages(msgs, core.MaxContextMessages)

	s.mu.Lock()
	defer s.mu.Unlock()
	personas, ok := s.contexts[sessionID]
	if !ok {
		personas = make(map[string][]core.Message)
		s.contexts[sessionID] = personas
	}
	personas[personaName] = trimmed
}

// Load returns the saved transcript for a persona in a session, or nil when
// none was saved.
func (s *ContextStore) Load(sessionID, personaName string) []core.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	msgs, ok := s.contexts[sessionID][personaName]
	if !ok {
		return nil
	}
	return core.CloneMessages(msgs)
}

// Clear drops every saved transcript for a session.
func (s *ContextStore) Clear(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.contexts, sessionID)
}
