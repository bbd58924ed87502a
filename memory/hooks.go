package memory

import (
	"context"
	"time"

	"github.com/voxhall/ensemble/core"
	"github.com/voxhall/ensemble/logging"
)

// now is a hook point for tests that assert on timestamps.
var now = func() time.Time { return time.Now().UTC() }

// turnLogHook appends every added transcript message to the durable turn log
// under the (memoryID, actorID, sessionID) triple it was built for.
type turnLogHook struct {
	log       TurnLog
	memoryID  string
	actorID   string
	sessionID string
	logger    logging.Logger
}

// OnMessageAdded implements Hook. Append failures are logged and swallowed;
// a degraded turn log must not abort the turn.
func (h *turnLogHook) OnMessageAdded(ctx context.Context, msg core.Message) {
	text := msg.Text()
	if text == "" {
		return
	}
	ev := TurnEvent{Role: msg.Role, Text: text, Timestamp: now()}
	if err := h.log.Append(ctx, h.memoryID, h.actorID, h.sessionID, ev); err != nil {
		h.logger.Warn("memory.hook.append_failed",
			"memory_id", h.memoryID,
			"actor_id", h.actorID,
			"session_id", h.sessionID,
			"error", err.Error(),
		)
	}
}
