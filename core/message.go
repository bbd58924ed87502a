package core

import (
	"strings"

	"github.com/google/uuid"
)

// Conversation roles used throughout the module.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
	RoleTool      = "tool"
)

// MaxContextMessages bounds every persisted transcript. Saving a transcript
// keeps only the most recent MaxContextMessages entries, dropping the oldest.
const MaxContextMessages = 30

// Message is one entry of a persona transcript: a role plus ordered content
// parts. Transcripts are ordered mutable slices of Message owned by a single
// agent instance.
type Message struct {
	Role  string `json:"role"`
	Parts []Part `json:"content"`
}

// NewUserMessage creates a user message with a single text part.
func NewUserMessage(text string) Message {
	return Message{Role: RoleUser, Parts: []Part{TextPart{Text: text}}}
}

// NewAssistantMessage creates an assistant message with a single text part.
func NewAssistantMessage(text string) Message {
	return Message{Role: RoleAssistant, Parts: []Part{TextPart{Text: text}}}
}

// Text concatenates all text parts of the message in order.
func (m Message) Text() string {
	var b strings.Builder
	for _, p := range m.Parts {
		if tp, ok := p.(TextPart); ok {
			b.WriteString(tp.Text)
		}
	}
	return b.String()
}

// FunctionCalls returns any FunctionCall parts preserving original order.
func (m Message) FunctionCalls() []FunctionCall {
	var calls []FunctionCall
	for _, p := range m.Parts {
		if fc, ok := p.(FunctionCallPart); ok {
			calls = append(calls, fc.FunctionCall)
		}
	}
	return calls
}

// TrimMessages returns the most recent max messages as a fresh slice. The
// returned slice is always a copy so callers can mutate it safely.
func TrimMessages(msgs []Message, max int) []Message {
	if max <= 0 || len(msgs) <= max {
		out := make([]Message, len(msgs))
		copy(out, msgs)
		return out
	}
	out := make([]Message, max)
	copy(out, msgs[len(msgs)-max:])
	return out
}

// CloneMessages returns a shallow copy of the transcript slice. Parts are
// treated as immutable after construction so a slice copy is sufficient.
func CloneMessages(msgs []Message) []Message {
	out := make([]Message, len(msgs))
	copy(out, msgs)
	return out
}

// NewID generates a unique identifier used for turn and function-call
// correlation.
func NewID() string { return uuid.NewString() }
