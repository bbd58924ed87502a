package agent

import (
	"bytes"
	"context"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voxhall/ensemble/core"
	"github.com/voxhall/ensemble/knowledge"
	"github.com/voxhall/ensemble/logging"
	"github.com/voxhall/ensemble/memory"
	"github.com/voxhall/ensemble/model"
	"github.com/voxhall/ensemble/persona"
	"github.com/voxhall/ensemble/tool"
)

var _ core.SpecialistInvoker = (*Factory)(nil)

func newTurnContext(sessionID, memoryID, personaName string) *core.TurnContext {
	return core.NewTurnContext(context.Background(), sessionID, memoryID, personaName, logging.NoOpLogger{})
}

func basicInstance(mdl model.Model, tools []tool.Tool, mem *memory.Adapter, memoryID string) *Instance {
	return NewInstance(InstanceConfig{
		Persona: &persona.Config{
			Name:         "RootAgent",
			Instructions: "Be helpful.",
		},
		Model:     mdl,
		Tools:     tools,
		Memory:    mem,
		SessionID: "s1",
		MemoryID:  memoryID,
	})
}

func TestInstanceComplete(t *testing.T) {
	mdl := model.NewMockModel("test", "mock")
	mdl.AddResponse("hello", "hi there")
	inst := basicInstance(mdl, nil, nil, memory.DefaultMemoryID)
	tc := newTurnContext("s1", memory.DefaultMemoryID, "RootAgent")

	inst.SubmitInput(tc.Context, core.NewUserMessage("hello"))
	out, err := inst.Complete(tc)
	require.NoError(t, err)
	assert.Equal(t, "hi there", out)

	transcript := inst.Transcript()
	require.Len(t, transcript, 2)
	assert.Equal(t, core.RoleUser, transcript[0].Role)
	assert.Equal(t, core.RoleAssistant, transcript[1].Role)
}

func TestInstanceToolLoop(t *testing.T) {
	mdl := model.NewMockModel("test", "mock")
	mdl.AddResponse("what is 2+3", "the sum is 5")
	mdl.AddFunctionCall("what is 2+3", core.FunctionCall{
		ID:        "fc-1",
		Name:      "calculate_sum",
		Arguments: `{"a": 2, "b": 3}`,
	})

	var gotArgs map[string]any
	sum := tool.NewFunctionTool("calculate_sum", "Add two numbers",
		map[string]any{
			"type": "object",
			"properties": map[string]any{
				"a": map[string]any{"type": "number"},
				"b": map[string]any{"type": "number"},
			},
		},
		func(_ *core.ToolContext, args map[string]any) (any, error) {
			gotArgs = args
			return args["a"].(float64) + args["b"].(float64), nil
		},
	)

	inst := basicInstance(mdl, []tool.Tool{sum}, nil, memory.DefaultMemoryID)
	tc := newTurnContext("s1", memory.DefaultMemoryID, "RootAgent")

	inst.SubmitInput(tc.Context, core.NewUserMessage("what is 2+3"))
	out, err := inst.Complete(tc)
	require.NoError(t, err)
	assert.Equal(t, "the sum is 5", out)
	assert.Equal(t, map[string]any{"a": 2.0, "b": 3.0}, gotArgs)

	// user, assistant(call), tool response, assistant(final)
	transcript := inst.Transcript()
	require.Len(t, transcript, 4)
	assert.Equal(t, core.RoleTool, transcript[2].Role)
}

func TestInstanceLogsToolAndModelCalls(t *testing.T) {
	var buf bytes.Buffer
	logger := logging.NewLogger(&logging.LoggerConfig{
		Level:  logging.LogLevelInfo,
		Format: "text",
		Output: &buf,
	})

	mdl := model.NewMockModel("test", "mock")
	mdl.AddResponse("ping", "pong")
	mdl.AddFunctionCall("ping", core.FunctionCall{ID: "fc-1", Name: "echo", Arguments: `{}`})

	echo := tool.NewFunctionTool("echo", "Echo back",
		map[string]any{"type": "object", "properties": map[string]any{}},
		func(_ *core.ToolContext, _ map[string]any) (any, error) { return "echoed", nil },
	)

	inst := NewInstance(InstanceConfig{
		Persona:   &persona.Config{Name: "RootAgent", Instructions: "Be helpful."},
		Model:     mdl,
		Tools:     []tool.Tool{echo},
		SessionID: "s1",
		MemoryID:  memory.DefaultMemoryID,
		Logger:    logger,
	})
	tc := core.NewTurnContext(context.Background(), "s1", memory.DefaultMemoryID, "RootAgent", logger)

	inst.SubmitInput(tc.Context, core.NewUserMessage("ping"))
	_, err := inst.Complete(tc)
	require.NoError(t, err)

	logged := buf.String()
	assert.Contains(t, logged, "Tool execution completed")
	assert.Contains(t, logged, "Model call completed")
	assert.Contains(t, logged, "tool_name=echo")
}

func TestInstanceStreamForwardsPartials(t *testing.T) {
	mdl := model.NewMockModel("test", "mock")
	mdl.AddResponse("stream it", "one two three")
	inst := basicInstance(mdl, nil, nil, memory.DefaultMemoryID)
	tc := newTurnContext("s1", memory.DefaultMemoryID, "RootAgent")

	inst.SubmitInput(tc.Context, core.NewUserMessage("stream it"))
	respCh, errCh := inst.Stream(tc)

	var partials []string
	for resp := range respCh {
		partials = append(partials, resp.Content.Text())
	}
	require.NoError(t, <-errCh)
	assert.Equal(t, []string{"one ", "two ", "three"}, partials)

	// Final response landed in the transcript.
	transcript := inst.Transcript()
	require.Len(t, transcript, 2)
	assert.Equal(t, "one two three", transcript[1].Text())
}

func TestInstanceStreamFailureThenCompleteFallsBack(t *testing.T) {
	mdl := model.NewMockModel("test", "mock")
	mdl.AddResponse("flaky", "full answer")
	mdl.FailStreamAfter(1)
	inst := basicInstance(mdl, nil, nil, memory.DefaultMemoryID)
	tc := newTurnContext("s1", memory.DefaultMemoryID, "RootAgent")

	inst.SubmitInput(tc.Context, core.NewUserMessage("flaky"))
	respCh, errCh := inst.Stream(tc)
	for range respCh {
	}
	err := <-errCh
	require.ErrorIs(t, err, core.ErrStreamFailure)

	// The same input is still the transcript tail; the blocking path
	// answers without duplicating it.
	out, err := inst.Complete(tc)
	require.NoError(t, err)
	assert.Equal(t, "full answer", out)

	transcript := inst.Transcript()
	require.Len(t, transcript, 2)
	assert.Equal(t, core.RoleUser, transcript[0].Role)
}

func TestInstanceHooksRecordTurns(t *testing.T) {
	log := memory.NewInMemoryTurnLog()
	mdl := model.NewMockModel("test", "mock")
	mdl.AddResponse("remember this", "noted")
	inst := basicInstance(mdl, nil, memory.NewAdapter(log), "mem-1")
	tc := newTurnContext("s1", "mem-1", "RootAgent")

	inst.SubmitInput(tc.Context, core.NewUserMessage("remember this"))
	_, err := inst.Complete(tc)
	require.NoError(t, err)

	events, err := log.ListTurns(tc.Context, "mem-1", "RootAgent", "s1", 0)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "remember this", events[0].Text)
	assert.Equal(t, "noted", events[1].Text)
}

func newTestFactory(t *testing.T) *Factory {
	t.Helper()

	v := viper.New()
	v.Set("personas.RootAgent", map[string]any{
		"name":        "RootAgent",
		"description": "Root orchestrator",
	})
	v.Set("personas.VerificationAgent", map[string]any{
		"name":         "VerificationAgent",
		"description":  "Verifies claims",
		"collaborator": true,
	})
	v.Set("model_inputs.RootAgent", map[string]any{"provider": "mock"})
	v.Set("model_inputs.VerificationAgent", map[string]any{"provider": "mock"})

	resolver := persona.NewResolver(v, t.TempDir())
	mem := memory.NewAdapter(memory.NewInMemoryTurnLog())
	registry := tool.NewRegistry(tool.Deps{
		Retriever: knowledge.NewStaticRetriever(),
		TurnLog:   memory.NewInMemoryTurnLog(),
	})

	mdl := model.NewMockModel("test", "mock")
	mdl.AddResponse("verify: the sky is green", "It is not.")
	mdl.AddResponse("check everything", "All checked.")

	return NewFactory(resolver, mem, registry, map[string]model.Model{"mock": mdl})
}

func TestFactoryBuild(t *testing.T) {
	f := newTestFactory(t)

	inst, err := f.Build("RootAgent", "s1", memory.DefaultMemoryID)
	require.NoError(t, err)
	assert.Equal(t, "RootAgent", inst.Name())
	assert.Equal(t, "s1", inst.SessionID())
}

func TestFactoryBuildUnknownProvider(t *testing.T) {
	f := newTestFactory(t)

	_, err := f.Build("GhostAgent", "s1", memory.DefaultMemoryID)
	require.ErrorIs(t, err, core.ErrConstructionFailure)
}

func TestFactoryInvokeSpecialist(t *testing.T) {
	f := newTestFactory(t)
	tc := newTurnContext("s1", memory.DefaultMemoryID, "RootAgent")

	out, err := f.InvokeSpecialist(tc.ForSpecialist("VerificationAgent"), "VerificationAgent", "verify: the sky is green")
	require.NoError(t, err)
	assert.Equal(t, "It is not.", out)
}

func TestFactoryInvokeSpecialistDepthCap(t *testing.T) {
	f := newTestFactory(t)

	tc := newTurnContext("s1", memory.DefaultMemoryID, "RootAgent")
	for i := 0; i <= core.MaxSpecialistDepth; i++ {
		tc = tc.ForSpecialist("VerificationAgent")
	}

	_, err := f.InvokeSpecialist(tc, "VerificationAgent", "check everything")
	require.ErrorIs(t, err, core.ErrDepthExceeded)
}

func TestInstanceCompactsLongHistory(t *testing.T) {
	mdl := model.NewMockModel("test", "mock")
	mdl.AddResponse("next", "ok")
	inst := basicInstance(mdl, nil, memory.NewAdapter(nil), memory.DefaultMemoryID)
	tc := newTurnContext("s1", memory.DefaultMemoryID, "RootAgent")

	seed := make([]core.Message, 0, 20)
	for i := 0; i < 20; i++ {
		seed = append(seed, core.NewUserMessage("filler"))
	}
	inst.SeedTranscript(seed)

	inst.SubmitInput(tc.Context, core.NewUserMessage("next"))
	_, err := inst.Complete(tc)
	require.NoError(t, err)

	// Summarizer compaction ran: one summary message plus the verbatim
	// window plus the new exchange.
	transcript := inst.Transcript()
	assert.Less(t, len(transcript), 21)
	assert.Contains(t, transcript[0].Text(), "Conversation summary:")
}