package core

import "sync"

// SourceCollector accumulates retrieval results for one top-level turn,
// keyed by the persona that issued the retrieval. A fresh collector is
// constructed when the turn begins, so emptiness at turn start holds by
// construction rather than by a reset protocol. Safe for concurrent use:
// specialist invocations within the turn share the parent's collector.
type SourceCollector struct {
	mu      sync.Mutex
	entries map[string][]SourceEntry
}

// NewSourceCollector constructs an empty collector for a single turn.
func NewSourceCollector() *SourceCollector {
	return &SourceCollector{entries: make(map[string][]SourceEntry)}
}

// Add appends a retrieval result under the given persona name.
func (c *SourceCollector) Add(personaName string, entry SourceEntry) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[personaName] = append(c.entries[personaName], entry)
}

// Empty reports whether no sources were collected during the turn.
func (c *SourceCollector) Empty() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries) == 0
}

// Snapshot returns a copy of the accumulated entries keyed by persona name.
func (c *SourceCollector) Snapshot() map[string][]SourceEntry {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[string][]SourceEntry, len(c.entries))
	for name, entries := range c.entries {
		cp := make([]SourceEntry, len(entries))
		copy(cp, entries)
		out[name] = cp
	}
	return out
}
