// Package pipeline drives a single turn end to end: payload normalization,
// session and instance resolution, input assembly, streaming delivery with a
// blocking fallback and re-segmentation, and terminal sources emission.
package pipeline

import (
	"encoding/json"
	"fmt"

	"github.com/voxhall/ensemble/core"
	"github.com/voxhall/ensemble/memory"
)

// PlaceholderSessionID is substituted when an inbound payload carries no
// session id. The paired memory id is the no-memory sentinel, which
// intentionally forces the summarizer memory tier.
const PlaceholderSessionID = "NO_SESSION"

// PromptPart is one element of a structured prompt payload.
type PromptPart struct {
	Text     string       `json:"text,omitempty"`
	Document *DocumentRef `json:"document,omitempty"`
}

// DocumentRef is an attached document travelling with the turn payload.
type DocumentRef struct {
	Name   string `json:"name,omitempty"`
	Format string `json:"format,omitempty"`
	Bytes  []byte `json:"bytes,omitempty"`
}

// SessionMetadata carries identifier overrides nested in the payload. Fields
// fill gaps left by the top-level identifiers.
type SessionMetadata struct {
	SessionID string `json:"session_id,omitempty"`
	MemoryID  string `json:"memory_id,omitempty"`
	AgentName string `json:"agent_name,omitempty"`
}

// TurnRequest is the inbound turn payload. Prompt is either a plain string or
// a list of PromptParts; Stream defaults to true.
type TurnRequest struct {
	Prompt              json.RawMessage  `json:"prompt"`
	Media               map[string]any   `json:"media,omitempty"` // pass-through, unused by core logic
	Stream              *bool            `json:"stream,omitempty"`
	SessionID           string           `json:"session_id,omitempty"`
	MemoryID            string           `json:"memory_id,omitempty"`
	AgentName           string           `json:"agent_name,omitempty"`
	SessionMetadata     *SessionMetadata `json:"session_metadata,omitempty"`
	DirectMentionTarget string           `json:"direct_mention_target,omitempty"`
}

// ParseTurnRequest decodes a raw turn payload.
func ParseTurnRequest(raw []byte) (*TurnRequest, error) {
	var req TurnRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		return nil, fmt.Errorf("decode turn request: %w", err)
	}
	return &req, nil
}

// turnParams is the fully defaulted routing view of a request.
type turnParams struct {
	sessionID   string
	memoryID    string
	personaName string
	stream      bool
}

// normalize applies the metadata fallbacks, the direct-mention routing
// override and the no-session defaults.
func (r *TurnRequest) normalize() turnParams {
	p := turnParams{
		sessionID:   r.SessionID,
		memoryID:    r.MemoryID,
		personaName: r.AgentName,
		stream:      r.Stream == nil || *r.Stream,
	}
	if meta := r.SessionMetadata; meta != nil {
		if p.sessionID == "" {
			p.sessionID = meta.SessionID
		}
		if p.memoryID == "" {
			p.memoryID = meta.MemoryID
		}
		if p.personaName == "" {
			p.personaName = meta.AgentName
		}
	}
	if r.DirectMentionTarget != "" {
		p.personaName = r.DirectMentionTarget
	}

	if p.sessionID == "" {
		p.sessionID = PlaceholderSessionID
		p.memoryID = memory.DefaultMemoryID
	}
	if p.memoryID == "" {
		p.memoryID = memory.DefaultMemoryID
	}
	return p
}

// promptParts decodes the prompt union: a plain string becomes a single text
// part, a list passes through.
func (r *TurnRequest) promptParts() ([]PromptPart, error) {
	if len(r.Prompt) == 0 {
		return nil, fmt.Errorf("turn request has no prompt")
	}

	var text string
	if err := json.Unmarshal(r.Prompt, &text); err == nil {
		return []PromptPart{{Text: text}}, nil
	}

	var parts []PromptPart
	if err := json.Unmarshal(r.Prompt, &parts); err != nil {
		return nil, fmt.Errorf("prompt must be a string or a part list: %w", err)
	}
	return parts, nil
}

// Documents returns the attached documents as core parts.
func (r *TurnRequest) Documents() ([]core.DocumentPart, error) {
	parts, err := r.promptParts()
	if err != nil {
		return nil, err
	}
	var docs []core.DocumentPart
	for _, p := range parts {
		if p.Document != nil {
			docs = append(docs, core.DocumentPart{
				Name:   p.Document.Name,
				Format: p.Document.Format,
				Bytes:  p.Document.Bytes,
			})
		}
	}
	return docs, nil
}
