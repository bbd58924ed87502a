package memory

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisTurnLog is a TurnLog backed by Redis lists. Keys are namespaced as
// "turnlog:{memoryID}:{actorID}:{sessionID}" and trimmed to a bounded length
// on append so a long-lived session cannot grow without limit.
type RedisTurnLog struct {
	client  redis.UniversalClient
	prefix  string
	maxSize int64
}

// RedisTurnLogOptions configures the Redis turn log.
type RedisTurnLogOptions struct {
	Prefix  string // key prefix, default "turnlog"
	MaxSize int64  // max retained events per key, default 500
}

// NewRedisTurnLog creates a TurnLog backed by the given Redis client.
func NewRedisTurnLog(client redis.UniversalClient, optFns ...func(o *RedisTurnLogOptions)) *RedisTurnLog {
	opts := RedisTurnLogOptions{Prefix: "turnlog", MaxSize: 500}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &RedisTurnLog{client: client, prefix: opts.Prefix, maxSize: opts.MaxSize}
}

func (r *RedisTurnLog) key(memoryID, actorID, sessionID string) string {
	return fmt.Sprintf("%s:%s:%s:%s", r.prefix, memoryID, actorID, sessionID)
}

// Append implements TurnLog.
func (r *RedisTurnLog) Append(ctx context.Context, memoryID, actorID, sessionID string, ev TurnEvent) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal turn event: %w", err)
	}
	key := r.key(memoryID, actorID, sessionID)
	if err := r.client.RPush(ctx, key, payload).Err(); err != nil {
		return fmt.Errorf("append turn event: %w", err)
	}
	return r.client.LTrim(ctx, key, -r.maxSize, -1).Err()
}

// ListTurns implements TurnLog (batched retrieval path).
func (r *RedisTurnLog) ListTurns(ctx context.Context, memoryID, actorID, sessionID string, max int) ([]TurnEvent, error) {
	start := int64(0)
	if max > 0 {
		start = int64(-max)
	}
	raw, err := r.client.LRange(ctx, r.key(memoryID, actorID, sessionID), start, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("list turn events: %w", err)
	}
	events := make([]TurnEvent, 0, len(raw))
	for _, item := range raw {
		var ev TurnEvent
		if err := json.Unmarshal([]byte(item), &ev); err != nil {
			return nil, fmt.Errorf("decode turn event: %w", err)
		}
		events = append(events, ev)
	}
	return events, nil
}

// GetEvent implements TurnLog (per-event fallback path).
func (r *RedisTurnLog) GetEvent(ctx context.Context, memoryID, actorID, sessionID string, index int) (TurnEvent, error) {
	raw, err := r.client.LIndex(ctx, r.key(memoryID, actorID, sessionID), int64(index)).Result()
	if err != nil {
		return TurnEvent{}, fmt.Errorf("get turn event %d: %w", index, err)
	}
	var ev TurnEvent
	if err := json.Unmarshal([]byte(raw), &ev); err != nil {
		return TurnEvent{}, fmt.Errorf("decode turn event %d: %w", index, err)
	}
	return ev, nil
}

// Length implements TurnLog.
func (r *RedisTurnLog) Length(ctx context.Context, memoryID, actorID, sessionID string) (int, error) {
	n, err := r.client.LLen(ctx, r.key(memoryID, actorID, sessionID)).Result()
	if err != nil {
		return 0, fmt.Errorf("turn log length: %w", err)
	}
	return int(n), nil
}
