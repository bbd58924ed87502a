package tool

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voxhall/ensemble/core"
	"github.com/voxhall/ensemble/knowledge"
	"github.com/voxhall/ensemble/logging"
	"github.com/voxhall/ensemble/memory"
)

// Interface compliance (compile-time assertions)
var (
	_ Tool = (*FunctionTool)(nil)
	_ Tool = (*invokeSpecialistTool)(nil)
	_ Tool = (*retrieveKnowledgeTool)(nil)
	_ Tool = (*lookupEventsTool)(nil)
)

type fakeInvoker struct {
	result     string
	err        error
	gotPersona string
	gotDepth   int
}

func (f *fakeInvoker) InvokeSpecialist(tc *core.TurnContext, personaName, prompt string) (string, error) {
	f.gotPersona = personaName
	f.gotDepth = tc.Depth
	if f.err != nil {
		return "", f.err
	}
	return f.result, nil
}

func newToolContext(t *testing.T, invoker core.SpecialistInvoker) *core.ToolContext {
	t.Helper()
	turnCtx := core.NewTurnContext(context.Background(), "s1", "m1", "RootAgent", logging.NoOpLogger{})
	return core.NewToolContext(turnCtx, "fc-1", invoker)
}

func TestTagSpecialistResult(t *testing.T) {
	assert.Equal(t,
		"<agent-message agent='VerificationAgent'>All claims check out.</agent-message>",
		TagSpecialistResult("VerificationAgent", "All claims check out."))
}

func TestInvokeSpecialistToolTagsResult(t *testing.T) {
	invoker := &fakeInvoker{result: "done"}
	tc := newToolContext(t, invoker)

	out, err := NewInvokeSpecialistTool().Call(tc, map[string]any{
		"prompt":     "verify this",
		"agent_name": "VerificationAgent",
	})
	require.NoError(t, err)
	assert.Equal(t, "<agent-message agent='VerificationAgent'>done</agent-message>", out)
	assert.Equal(t, "VerificationAgent", invoker.gotPersona)
	assert.Equal(t, 1, invoker.gotDepth)
}

func TestInvokeSpecialistToolDepthExceededInline(t *testing.T) {
	invoker := &fakeInvoker{err: fmt.Errorf("depth 5: %w", core.ErrDepthExceeded)}
	tc := newToolContext(t, invoker)

	out, err := NewInvokeSpecialistTool().Call(tc, map[string]any{
		"prompt":     "go deeper",
		"agent_name": "RecursiveAgent",
	})
	require.NoError(t, err)
	assert.Contains(t, out, "maximum invocation depth")
}

func TestInvokeSpecialistToolFailureStaysInline(t *testing.T) {
	invoker := &fakeInvoker{err: errors.New("model unavailable")}
	tc := newToolContext(t, invoker)

	out, err := NewInvokeSpecialistTool().Call(tc, map[string]any{
		"prompt":     "x",
		"agent_name": "BrokenAgent",
	})
	require.NoError(t, err)
	assert.Contains(t, out, "could not be invoked")
	assert.Contains(t, out, "model unavailable")
}

// scriptedRetriever returns a fixed citation set regardless of query.
type scriptedRetriever struct{ citations []core.Citation }

func (r scriptedRetriever) Retrieve(context.Context, string, string) ([]core.Citation, error) {
	return r.citations, nil
}

func TestRetrieveKnowledgeFiltersRefusals(t *testing.T) {
	retriever := scriptedRetriever{citations: []core.Citation{
		{Text: "Q2 revenue grew 14 percent.", Score: 0.91},
		{Text: RefusalMarker},
	}}
	tc := newToolContext(t, nil)

	out, err := NewRetrieveKnowledgeTool(retriever).Call(tc, map[string]any{
		"agent_name":           "VerificationAgent",
		"knowledge_base_query": "revenue",
	})
	require.NoError(t, err)

	// Condensed output drops the refusal but the raw entry keeps it.
	assert.Contains(t, out, "Q2 revenue grew 14 percent.")
	assert.NotContains(t, out, RefusalMarker)

	sources := tc.Collector().Snapshot()
	require.Len(t, sources["VerificationAgent"], 1)
	entry := sources["VerificationAgent"][0]
	assert.Equal(t, "revenue", entry.Query)
	assert.Len(t, entry.Citations, 2)
}

func TestStaticRetrieverScopedMatch(t *testing.T) {
	retriever := knowledge.NewStaticRetriever()
	retriever.AddDocument("VerificationAgent", core.Citation{Text: "Q2 revenue grew 14 percent."})
	retriever.AddDocument("OtherAgent", core.Citation{Text: "unrelated revenue note"})
	tc := newToolContext(t, nil)

	out, err := NewRetrieveKnowledgeTool(retriever).Call(tc, map[string]any{
		"agent_name":           "VerificationAgent",
		"knowledge_base_query": "revenue",
	})
	require.NoError(t, err)
	assert.Contains(t, out, "Q2 revenue grew 14 percent.")
	assert.NotContains(t, out, "unrelated")
}

func TestRetrieveKnowledgeErrorStaysInline(t *testing.T) {
	tc := newToolContext(t, nil)

	out, err := NewRetrieveKnowledgeTool(failingRetriever{}).Call(tc, map[string]any{
		"agent_name":           "A",
		"knowledge_base_query": "q",
	})
	require.NoError(t, err)
	assert.Contains(t, out, "Error: knowledge retrieval failed")
	assert.True(t, tc.Collector().Empty())
}

type failingRetriever struct{}

func (failingRetriever) Retrieve(context.Context, string, string) ([]core.Citation, error) {
	return nil, errors.New("index offline")
}

func seedEvents(t *testing.T, log memory.TurnLog) {
	t.Helper()
	ctx := context.Background()
	for i, text := range []string{"plan the campaign", "here is the plan", "refine it"} {
		role := "user"
		if i%2 == 1 {
			role = "assistant"
		}
		require.NoError(t, log.Append(ctx, "m1", "root-agent", "s1", memory.TurnEvent{Role: role, Text: text}))
	}
}

func TestLookupEventsBatched(t *testing.T) {
	log := memory.NewInMemoryTurnLog()
	seedEvents(t, log)
	tc := newToolContext(t, nil)

	out, err := NewLookupEventsTool(log).Call(tc, map[string]any{"agent_name": "root_agent"})
	require.NoError(t, err)
	assert.Equal(t, "user: plan the campaign\nassistant: here is the plan\nuser: refine it", out)
}

// listFailingLog forces the batched path to fail so the per-event fallback runs.
type listFailingLog struct{ *memory.InMemoryTurnLog }

func (l listFailingLog) ListTurns(context.Context, string, string, string, int) ([]memory.TurnEvent, error) {
	return nil, errors.New("batched read unsupported")
}

func TestLookupEventsPerEventFallback(t *testing.T) {
	inner := memory.NewInMemoryTurnLog()
	seedEvents(t, inner)
	tc := newToolContext(t, nil)

	out, err := NewLookupEventsTool(listFailingLog{inner}).Call(tc, map[string]any{
		"agent_name":  "root_agent",
		"max_results": float64(2),
	})
	require.NoError(t, err)
	assert.Equal(t, "assistant: here is the plan\nuser: refine it", out)
}

// deadLog fails every operation, driving lookup to its inline error.
type deadLog struct{}

func (deadLog) Append(context.Context, string, string, string, memory.TurnEvent) error {
	return errors.New("log unavailable")
}
func (deadLog) ListTurns(context.Context, string, string, string, int) ([]memory.TurnEvent, error) {
	return nil, errors.New("log unavailable")
}
func (deadLog) GetEvent(context.Context, string, string, string, int) (memory.TurnEvent, error) {
	return memory.TurnEvent{}, errors.New("log unavailable")
}
func (deadLog) Length(context.Context, string, string, string) (int, error) {
	return 0, errors.New("log unavailable")
}

func TestLookupEventsErrorStaysInline(t *testing.T) {
	tc := newToolContext(t, nil)

	out, err := NewLookupEventsTool(deadLog{}).Call(tc, map[string]any{"agent_name": "root_agent"})
	require.NoError(t, err)
	assert.Contains(t, out, "Error: could not look up events")
}

func TestFunctionToolValidation(t *testing.T) {
	sum := NewFunctionTool("calculate_sum", "Add two numbers",
		map[string]any{
			"type": "object",
			"properties": map[string]any{
				"a": map[string]any{"type": "number"},
				"b": map[string]any{"type": "number"},
			},
			"required": []any{"a", "b"},
		},
		func(_ *core.ToolContext, args map[string]any) (any, error) {
			return args["a"].(float64) + args["b"].(float64), nil
		},
	)
	tc := newToolContext(t, nil)

	result, err := sum.Call(tc, map[string]any{"a": 1.5, "b": 2.5})
	require.NoError(t, err)
	assert.Equal(t, 4.0, result)

	_, err = sum.Call(tc, map[string]any{"a": 1.5})
	var toolErr *ToolError
	require.ErrorAs(t, err, &toolErr)
	assert.Equal(t, "VALIDATION_ERROR", toolErr.Code)
}

func TestFunctionToolExecutionError(t *testing.T) {
	boom := NewFunctionTool("boom", "Always fails",
		map[string]any{"type": "object", "properties": map[string]any{}},
		func(*core.ToolContext, map[string]any) (any, error) {
			return nil, errors.New("kaput")
		},
	)
	tc := newToolContext(t, nil)

	_, err := boom.Call(tc, map[string]any{})
	var toolErr *ToolError
	require.ErrorAs(t, err, &toolErr)
	assert.Equal(t, "EXECUTION_ERROR", toolErr.Code)
	assert.Equal(t, "kaput", toolErr.Message)
}

func TestRegistryBuild(t *testing.T) {
	reg := NewRegistry(Deps{Retriever: knowledge.NewStaticRetriever(), TurnLog: memory.NewInMemoryTurnLog()})

	tools, err := reg.Build([]string{"invoke_specialist", "lookup_events"})
	require.NoError(t, err)
	require.Len(t, tools, 2)
	assert.Equal(t, "invoke_specialist", tools[0].Name())
	assert.Equal(t, "lookup_events", tools[1].Name())

	_, err = reg.Build([]string{"no_such_tool"})
	assert.Error(t, err)
}
