package model

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/voxhall/ensemble/core"
)

// ToolDefinition declaratively exposes a callable function to the model.
type ToolDefinition struct {
	Type     string             `json:"type"` // "function"
	Function FunctionDefinition `json:"function"`
}

// FunctionDefinition describes an individual function (tool) exposed to the
// model. Parameters is a JSON Schema object (draft agnostic, minimal subset
// expected).
type FunctionDefinition struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"` // JSON Schema
}

// GenerationParams carries the per-persona model parameters resolved from
// configuration. Zero values mean "use the provider default".
type GenerationParams struct {
	ModelID     string  `json:"model_id,omitempty"`
	Temperature float64 `json:"temperature,omitempty"`
	TopP        float64 `json:"top_p,omitempty"`
	MaxTokens   int64   `json:"max_tokens,omitempty"`
}

// Request captures the normalized model input produced by a persona instance.
type Request struct {
	Instructions string           `json:"instructions"` // System prompt
	Messages     []core.Message   `json:"messages"`     // Transcript converted to provider messages
	Tools        []ToolDefinition `json:"tools,omitempty"`
	Stream       bool             `json:"stream,omitempty"`
	Params       GenerationParams `json:"params,omitempty"`
}

// TokenUsage captures token usage statistics for a response.
type TokenUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Response is a (partial or final) chunk emitted by a streaming model.
type Response struct {
	ID           string       `json:"id"`
	Partial      bool         `json:"partial"`
	Content      core.Message `json:"content"`
	FinishReason string       `json:"finish_reason"` // "stop", "length", "tool_calls", etc.
	Usage        *TokenUsage  `json:"usage,omitempty"`
}

// Info contains metadata about a model implementation.
type Info struct {
	Name          string `json:"name"`
	Provider      string `json:"provider"` // "openai", "anthropic", "mock", etc.
	SupportsTools bool   `json:"supports_tools"`
}

// Model is the minimal interface required by persona instances to drive
// generation.
type Model interface {
	Generate(ctx context.Context, req Request) (<-chan Response, <-chan error)

	// Info returns information about the model implementation.
	Info() Info
}

// MockModel is a lightweight in-memory Model useful for tests & examples. It
// can be scripted to fail mid-stream after N partial events (exercising the
// blocking fallback path) and to answer a prompt with a function call before
// the final text.
type MockModel struct {
	mu              sync.Mutex
	info            Info
	responses       map[string]string
	functionCalls   map[string]core.FunctionCall
	failStreamAfter int // number of partials before a scripted stream error; <0 disables
	failBlocking    bool
}

// NewMockModel constructs a MockModel with basic tool support enabled.
func NewMockModel(name, provider string) *MockModel {
	return &MockModel{
		info: Info{
			Name:          name,
			Provider:      provider,
			SupportsTools: true,
		},
		responses:       make(map[string]string),
		functionCalls:   make(map[string]core.FunctionCall),
		failStreamAfter: -1,
	}
}

// AddResponse registers a deterministic canned completion for an input prompt.
func (m *MockModel) AddResponse(prompt, response string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses[prompt] = response
}

// AddFunctionCall scripts a function call to be emitted the first time the
// given prompt is seen. After the tool response round-trips, the canned text
// response is returned as usual.
func (m *MockModel) AddFunctionCall(prompt string, call core.FunctionCall) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.functionCalls[prompt] = call
}

// FailStreamAfter scripts a stream error after n partial events. Blocking
// calls are unaffected, which mirrors a provider whose streaming endpoint is
// flaky while its blocking endpoint succeeds.
func (m *MockModel) FailStreamAfter(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failStreamAfter = n
}

// FailBlocking scripts every non-streaming call to fail, for exercising the
// terminal fallback-failure path.
func (m *MockModel) FailBlocking(fail bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failBlocking = fail
}

// Generate implements Model; emits optional streaming word chunks then the
// final response.
func (m *MockModel) Generate(ctx context.Context, req Request) (<-chan Response, <-chan error) {
	respCh := make(chan Response, 16)
	errCh := make(chan error, 1)

	go func() {
		defer close(respCh)
		defer close(errCh)
		if len(req.Messages) == 0 {
			errCh <- fmt.Errorf("no messages provided")
			return
		}

		inputText, lastRole := m.lastInput(req.Messages)

		m.mu.Lock()
		call, hasCall := m.functionCalls[inputText]
		full := m.responses[inputText]
		failAfter := m.failStreamAfter
		failBlocking := m.failBlocking
		m.mu.Unlock()

		// A pending tool response means the call round already happened.
		if hasCall && lastRole != core.RoleTool {
			respCh <- Response{
				Partial: false,
				Content: core.Message{
					Role:  core.RoleAssistant,
					Parts: []core.Part{core.FunctionCallPart{FunctionCall: call}},
				},
				FinishReason: "tool_calls",
			}
			return
		}

		if full == "" {
			full = fmt.Sprintf("Mock response to: %s", inputText)
		}

		if !req.Stream && failBlocking {
			errCh <- fmt.Errorf("mock blocking failure")
			return
		}

		if req.Stream {
			emitted := 0
			for _, word := range strings.SplitAfter(full, " ") {
				if failAfter >= 0 && emitted >= failAfter {
					errCh <- fmt.Errorf("mock stream failure after %d events", emitted)
					return
				}
				select {
				case <-ctx.Done():
					errCh <- ctx.Err()
					return
				case respCh <- Response{
					Partial: true,
					Content: core.Message{
						Role:  core.RoleAssistant,
						Parts: []core.Part{core.TextPart{Text: word}},
					},
				}:
					emitted++
				}
			}
		}
		respCh <- Response{
			Partial: false,
			Content: core.Message{
				Role:  core.RoleAssistant,
				Parts: []core.Part{core.TextPart{Text: full}},
			},
			FinishReason: "stop",
		}
	}()
	return respCh, errCh
}

// lastInput returns the text of the most recent user message plus the role of
// the last message (to detect pending tool responses).
func (m *MockModel) lastInput(msgs []core.Message) (string, string) {
	lastRole := msgs[len(msgs)-1].Role
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].Role == core.RoleUser {
			return msgs[i].Text(), lastRole
		}
	}
	return msgs[len(msgs)-1].Text(), lastRole
}

// Info implements Model interface.
func (m *MockModel) Info() Info { return m.info }
