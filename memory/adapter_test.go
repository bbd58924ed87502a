package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voxhall/ensemble/core"
)

func TestNormalizeActorID(t *testing.T) {
	assert.Equal(t, "media-planning-agent", NormalizeActorID("media_planning_agent"))
	assert.Equal(t, "VerificationAgent", NormalizeActorID("VerificationAgent"))
	assert.Equal(t, "a-b-c", NormalizeActorID("a_b_c"))
}

func TestAdapterNoMemorySentinel(t *testing.T) {
	a := NewAdapter(NewInMemoryTurnLog())

	// Sentinel memory id: no hooks, in-process summarizer.
	hooks := a.BuildHooks("PersonaA", "s1", DefaultMemoryID)
	assert.Nil(t, hooks)

	mgr := a.BuildHistoryManager("PersonaA", "s1", DefaultMemoryID)
	_, isSummarizer := mgr.(*Summarizer)
	assert.True(t, isSummarizer)
}

func TestAdapterConfiguredMemory(t *testing.T) {
	log := NewInMemoryTurnLog()
	a := NewAdapter(log)

	hooks := a.BuildHooks("persona_a", "s1", "mem-1")
	require.Len(t, hooks, 1)

	mgr := a.BuildHistoryManager("persona_a", "s1", "mem-1")
	_, isPersistent := mgr.(*PersistentManager)
	assert.True(t, isPersistent)

	// Hook writes under the normalized actor id.
	ctx := context.Background()
	hooks[0].OnMessageAdded(ctx, core.NewUserMessage("hello"))

	events, err := log.ListTurns(ctx, "mem-1", "persona-a", "s1", 0)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "hello", events[0].Text)
}

func TestSummarizerPreservesRecentVerbatim(t *testing.T) {
	s := NewSummarizer()
	msgs := make([]core.Message, 0, 20)
	for i := 0; i < 20; i++ {
		msgs = append(msgs, core.NewUserMessage("message number "+string(rune('a'+i))))
	}

	out, err := s.Compact(context.Background(), msgs)
	require.NoError(t, err)

	// One summary message plus the verbatim window.
	require.Len(t, out, DefaultKeepRecent+1)
	assert.Contains(t, out[0].Text(), "Conversation summary:")
	assert.Equal(t, msgs[len(msgs)-DefaultKeepRecent:], out[1:])
}

func TestSummarizerShortTranscriptUntouched(t *testing.T) {
	s := NewSummarizer()
	msgs := []core.Message{core.NewUserMessage("hi"), core.NewAssistantMessage("hello")}

	out, err := s.Compact(context.Background(), msgs)
	require.NoError(t, err)
	assert.Equal(t, msgs, out)
}

func TestPersistentManagerThreshold(t *testing.T) {
	mgr := NewPersistentManager(NewInMemoryTurnLog(), "m1", "a", "s1")

	under := make([]core.Message, CompactionThreshold)
	for i := range under {
		under[i] = core.NewUserMessage("x")
	}
	out, err := mgr.Compact(context.Background(), under)
	require.NoError(t, err)
	assert.Len(t, out, CompactionThreshold)

	over := append(under, core.NewUserMessage("y"))
	out, err = mgr.Compact(context.Background(), over)
	require.NoError(t, err)
	assert.Less(t, len(out), len(over))
}
