// Package persona resolves named agent configurations: instruction text with
// placeholder substitution, model parameters from a viper-backed configuration
// tree, declared tool sets, and the root-vs-collaborator classification that
// decides which branch of the model-parameter tree applies.
package persona

import (
	"github.com/voxhall/ensemble/model"
)

// MissingInstructionsPrefix is the literal degraded-guidance text used when a
// persona's instruction file cannot be read. The turn proceeds with it.
const MissingInstructionsPrefix = "⚠️ MISSING INSTRUCTIONS for "

// DefaultTools is the tool set granted to personas that declare none.
var DefaultTools = []string{
	"invoke_specialist",
	"retrieve_knowledge_base_results_tool",
	"lookup_events",
}

// Config is one fully resolved persona: everything a factory needs to build a
// live instance.
type Config struct {
	Name            string
	TeamName        string // display name on outbound chunks; defaults to Name
	Description     string
	Instructions    string
	Provider        string // "anthropic", "openai", "mock"; empty means factory default
	Params          model.GenerationParams
	Tools           []string
	Collaborator    bool
	SupportsCaching bool
}

// NameDescription is one entry of the discoverable-persona listing injected
// into instruction templates.
type NameDescription struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}
