package memory

import (
	"context"
	"fmt"
	"sync"
)

// InMemoryTurnLog is a naive process-local TurnLog. Concurrency is protected
// by RWMutex. Suitable only for tests and demos; use RedisTurnLog for a
// durable log.
type InMemoryTurnLog struct {
	mu     sync.RWMutex
	events map[string][]TurnEvent
}

// NewInMemoryTurnLog creates a new in-memory turn log.
func NewInMemoryTurnLog() *InMemoryTurnLog {
	return &InMemoryTurnLog{events: make(map[string][]TurnEvent)}
}

func (l *InMemoryTurnLog) key(memoryID, actorID, sessionID string) string {
	return fmt.Sprintf("%s:%s:%s", memoryID, actorID, sessionID)
}

// Append implements TurnLog.
func (l *InMemoryTurnLog) Append(_ context.Context, memoryID, actorID, sessionID string, ev TurnEvent) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	k := l.key(memoryID, actorID, sessionID)
	l.events[k] = append(l.events[k], ev)
	return nil
}

// ListTurns implements TurnLog.
func (l *InMemoryTurnLog) ListTurns(_ context.Context, memoryID, actorID, sessionID string, max int) ([]TurnEvent, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	events := l.events[l.key(memoryID, actorID, sessionID)]
	if max > 0 && len(events) > max {
		events = events[len(events)-max:]
	}
	out := make([]TurnEvent, len(events))
	copy(out, events)
	return out, nil
}

// GetEvent implements TurnLog.
func (l *InMemoryTurnLog) GetEvent(_ context.Context, memoryID, actorID, sessionID string, index int) (TurnEvent, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	events := l.events[l.key(memoryID, actorID, sessionID)]
	if index < 0 || index >= len(events) {
		return TurnEvent{}, fmt.Errorf("turn event index %d out of range", index)
	}
	return events[index], nil
}

// Length implements TurnLog.
func (l *InMemoryTurnLog) Length(_ context.Context, memoryID, actorID, sessionID string) (int, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.events[l.key(memoryID, actorID, sessionID)]), nil
}
