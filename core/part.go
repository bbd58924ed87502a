package core

// Part represents a polymorphic segment of role-based message content.
// Concrete part types implement the unexported isPart marker enabling a
// closed set.
type Part interface{ isPart() }

// TextPart is a plain text content segment.
type TextPart struct {
	Text     string         // Plain UTF-8 text
	Metadata map[string]any // Optional producer-provided metadata
}

// isPart implements the Part interface for TextPart.
func (TextPart) isPart() {}

// DocumentPart references an attached document. Bytes may be empty when the
// document was pre-summarized upstream and only the summary travels with the
// turn input.
type DocumentPart struct {
	Name    string // Original filename hint
	Format  string // e.g. "pdf", "txt", "png"
	Bytes   []byte // Raw contents (optional)
	Summary string // Pre-processed summary text (optional)
}

// isPart implements the Part interface for DocumentPart.
func (DocumentPart) isPart() {}

// CachePointPart marks a prompt-cache boundary. It is appended as the final
// content part when the target persona supports prompt caching and carries no
// payload of its own.
type CachePointPart struct{}

// isPart implements the Part interface for CachePointPart.
func (CachePointPart) isPart() {}

// FunctionCall describes a tool invocation request surfaced by a model.
type FunctionCall struct {
	ID        string `json:"id,omitempty"`        // Optional stable id
	Name      string `json:"name"`                // Tool name
	Arguments string `json:"arguments,omitempty"` // Serialized JSON argument payload
}

// FunctionCallPart wraps a FunctionCall as a content part.
type FunctionCallPart struct {
	FunctionCall FunctionCall
	Metadata     map[string]any
}

// isPart implements the Part interface for FunctionCallPart.
func (FunctionCallPart) isPart() {}

// FunctionResponse describes the outcome of a function call.
type FunctionResponse struct {
	ID       string `json:"id,omitempty"`       // Matches originating FunctionCall ID
	Name     string `json:"name"`               // Function name
	Response any    `json:"response,omitempty"` // Successful result (any shape)
	Error    string `json:"error,omitempty"`    // Populated on failure
}

// FunctionResponsePart wraps a FunctionResponse as a content part.
type FunctionResponsePart struct {
	FunctionResponse FunctionResponse
	Metadata         map[string]any
}

// isPart implements the Part interface for FunctionResponsePart.
func (FunctionResponsePart) isPart() {}
