package persona

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestResolver(t *testing.T, instructions map[string]string) *Resolver {
	t.Helper()

	dir := t.TempDir()
	for name, text := range instructions {
		err := os.WriteFile(filepath.Join(dir, name+".md"), []byte(text), 0o644)
		require.NoError(t, err)
	}

	v := viper.New()
	v.Set("personas.MediaPlanningAgent", map[string]any{
		"name":             "MediaPlanningAgent",
		"description":      "Plans media campaigns",
		"supports_caching": true,
		"injectable_values": map[string]any{
			"ORGANIZATION": "Voxhall",
			"MAX_BUDGET":   5000,
		},
	})
	v.Set("personas.VerificationAgent", map[string]any{
		"name":         "VerificationAgent",
		"description":  "Verifies claims",
		"collaborator": true,
		"tools":        []string{"retrieve_knowledge_base_results_tool"},
	})
	v.Set("model_inputs.MediaPlanningAgent", map[string]any{
		"provider":    "anthropic",
		"model_id":    "claude-sonnet-4-20250514",
		"temperature": 0.7,
		"max_tokens":  2048,
		"collaborators": map[string]any{
			"VerificationAgent": map[string]any{
				"provider":    "openai",
				"model_id":    "gpt-4o-mini",
				"temperature": 0.1,
			},
		},
	})
	v.Set("model_inputs.VerificationAgent", map[string]any{
		"provider": "mock",
		"model_id": "standalone-model",
	})

	return NewResolver(v, dir)
}

func TestResolveRootPersona(t *testing.T) {
	r := newTestResolver(t, map[string]string{
		"MediaPlanningAgent": "You are {{PERSONA_NAME}} at {{ORGANIZATION}}. Budget cap: {{MAX_BUDGET}}.",
	})

	cfg, err := r.Resolve("MediaPlanningAgent")
	require.NoError(t, err)

	assert.Equal(t, "MediaPlanningAgent", cfg.Name)
	assert.Equal(t, "anthropic", cfg.Provider)
	assert.Equal(t, "claude-sonnet-4-20250514", cfg.Params.ModelID)
	assert.InDelta(t, 0.7, cfg.Params.Temperature, 1e-9)
	assert.EqualValues(t, 2048, cfg.Params.MaxTokens)
	assert.True(t, cfg.SupportsCaching)
	assert.False(t, cfg.Collaborator)
	assert.Equal(t, DefaultTools, cfg.Tools)
	assert.Equal(t, "You are MediaPlanningAgent at Voxhall. Budget cap: 5000.", cfg.Instructions)
}

func TestResolveCollaboratorNestedInputs(t *testing.T) {
	r := newTestResolver(t, map[string]string{"VerificationAgent": "Verify carefully."})

	// Resolved on behalf of the orchestrator: the nested entry wins.
	cfg, err := r.Resolve("VerificationAgent", func(o *ResolveOptions) {
		o.InvokedBy = "MediaPlanningAgent"
	})
	require.NoError(t, err)
	assert.True(t, cfg.Collaborator)
	assert.Equal(t, "openai", cfg.Provider)
	assert.Equal(t, "gpt-4o-mini", cfg.Params.ModelID)
	assert.Equal(t, []string{"retrieve_knowledge_base_results_tool"}, cfg.Tools)

	// Resolved standalone: the top-level entry applies.
	cfg, err = r.Resolve("VerificationAgent")
	require.NoError(t, err)
	assert.Equal(t, "mock", cfg.Provider)
	assert.Equal(t, "standalone-model", cfg.Params.ModelID)
}

func TestResolveMissingInstructionFileDegrades(t *testing.T) {
	r := newTestResolver(t, nil)

	cfg, err := r.Resolve("MediaPlanningAgent")
	require.NoError(t, err)
	assert.Equal(t, MissingInstructionsPrefix+"MediaPlanningAgent", cfg.Instructions)
}

func TestResolveUndeclaredPersonaDegrades(t *testing.T) {
	r := newTestResolver(t, nil)

	cfg, err := r.Resolve("GhostAgent")
	require.NoError(t, err)
	assert.Equal(t, "GhostAgent", cfg.Name)
	assert.Empty(t, cfg.Provider)
	assert.Equal(t, DefaultTools, cfg.Tools)
	assert.True(t, strings.HasPrefix(cfg.Instructions, MissingInstructionsPrefix))
}

func TestListPersonas(t *testing.T) {
	r := newTestResolver(t, nil)

	list := r.ListPersonas()
	require.Len(t, list, 2)
	assert.Equal(t, "MediaPlanningAgent", list[0].Name)
	assert.Equal(t, "Plans media campaigns", list[0].Description)
	assert.Equal(t, "VerificationAgent", list[1].Name)
}

func TestPersonaNameListInjection(t *testing.T) {
	r := newTestResolver(t, map[string]string{
		"MediaPlanningAgent": "Available specialists: {{PERSONA_NAME_LIST}}",
	})

	cfg, err := r.Resolve("MediaPlanningAgent")
	require.NoError(t, err)
	assert.Contains(t, cfg.Instructions, `"name":"MediaPlanningAgent"`)
	assert.Contains(t, cfg.Instructions, `"description":"Verifies claims"`)
}
