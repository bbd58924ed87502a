package core

// Chunk is one unit of incrementally delivered response content. Concrete
// chunk types implement the unexported isChunk marker enabling a closed set:
// MessageChunk for streamed content events, TextChunk for re-segmented
// fallback output and error strings, and SourcesChunk as the optional
// terminal sources envelope.
type Chunk interface{ isChunk() }

// MessageChunk carries one streamed content event relabeled with the display
// name of the persona serving the turn.
type MessageChunk struct {
	Message  Message `json:"message"`
	TeamName string  `json:"teamName"`
	TurnID   string  `json:"turnId,omitempty"`
}

// isChunk implements the Chunk interface for MessageChunk.
func (MessageChunk) isChunk() {}

// TextChunk is a plain string chunk used on the blocking fallback path and
// for caller-visible error strings.
type TextChunk string

// isChunk implements the Chunk interface for TextChunk.
func (TextChunk) isChunk() {}

// SourcesChunk is the terminal envelope emitted once per turn when any
// retrieval tool accumulated sources, keyed by persona name.
type SourcesChunk struct {
	Type    string                   `json:"type"` // always "sources"
	Sources map[string][]SourceEntry `json:"sources"`
}

// isChunk implements the Chunk interface for SourcesChunk.
func (SourcesChunk) isChunk() {}

// Citation is a single retrieval hit returned by a knowledge source.
type Citation struct {
	Text     string  `json:"text"`
	Location string  `json:"location,omitempty"`
	Score    float64 `json:"score,omitempty"`
}

// SourceEntry records one retrieval tool call: the query issued, the raw
// citations returned and the condensed excerpt handed back to the persona.
type SourceEntry struct {
	Query     string     `json:"query"`
	Citations []Citation `json:"citations"`
	Excerpt   string     `json:"excerpt,omitempty"`
}
