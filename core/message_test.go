package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTrimMessages(t *testing.T) {
	msgs := make([]Message, 0, 40)
	for i := 0; i < 40; i++ {
		msgs = append(msgs, NewUserMessage(string(rune('a'+i%26))))
	}

	trimmed := TrimMessages(msgs, MaxContextMessages)
	assert.Len(t, trimmed, MaxContextMessages)
	// The kept messages must be exactly the most recent suffix of the input.
	assert.Equal(t, msgs[len(msgs)-MaxContextMessages:], trimmed)

	short := TrimMessages(msgs[:5], MaxContextMessages)
	assert.Len(t, short, 5)
	assert.Equal(t, msgs[:5], short)
}

func TestTrimMessagesReturnsCopy(t *testing.T) {
	msgs := []Message{NewUserMessage("one"), NewAssistantMessage("two")}
	trimmed := TrimMessages(msgs, 10)
	trimmed[0] = NewUserMessage("mutated")
	assert.Equal(t, "one", msgs[0].Text())
}

func TestMessageText(t *testing.T) {
	m := Message{Role: RoleAssistant, Parts: []Part{
		TextPart{Text: "hello "},
		DocumentPart{Name: "plan.pdf"},
		TextPart{Text: "world"},
		CachePointPart{},
	}}
	assert.Equal(t, "hello world", m.Text())
}

func TestMessageFunctionCalls(t *testing.T) {
	m := Message{Role: RoleAssistant, Parts: []Part{
		TextPart{Text: "calling"},
		FunctionCallPart{FunctionCall: FunctionCall{ID: "1", Name: "invoke_specialist"}},
		FunctionCallPart{FunctionCall: FunctionCall{ID: "2", Name: "lookup_events"}},
	}}
	calls := m.FunctionCalls()
	assert.Len(t, calls, 2)
	assert.Equal(t, "invoke_specialist", calls[0].Name)
}
