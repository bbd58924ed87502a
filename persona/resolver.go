package persona

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/viper"

	"github.com/voxhall/ensemble/logging"
	"github.com/voxhall/ensemble/model"
)

// personaSpec mirrors one entry of the "personas" configuration subtree.
// Viper lowercases map keys, so the display name is carried explicitly.
type personaSpec struct {
	Name             string         `mapstructure:"name"`
	TeamName         string         `mapstructure:"team_name"`
	Description      string         `mapstructure:"description"`
	Collaborator     bool           `mapstructure:"collaborator"`
	SupportsCaching  bool           `mapstructure:"supports_caching"`
	Tools            []string       `mapstructure:"tools"`
	InjectableValues map[string]any `mapstructure:"injectable_values"`
}

// modelInputs mirrors one entry of the "model_inputs" configuration subtree.
// Collaborators lets an orchestrator tune the personas it invokes differently
// than another orchestrator would.
type modelInputs struct {
	Provider      string                 `mapstructure:"provider"`
	ModelID       string                 `mapstructure:"model_id"`
	Temperature   float64                `mapstructure:"temperature"`
	TopP          float64                `mapstructure:"top_p"`
	MaxTokens     int64                  `mapstructure:"max_tokens"`
	Collaborators map[string]modelInputs `mapstructure:"collaborators"`
}

// ResolverOptions holds dependency overrides passed to NewResolver.
type ResolverOptions struct {
	Logger logging.Logger
}

// Resolver loads persona configurations from a flat-file instruction
// directory (one "<name>.md" per persona) and a viper configuration tree
// holding descriptions, tool grants, and model inputs.
type Resolver struct {
	v              *viper.Viper
	instructionDir string
	logger         logging.Logger
}

// NewResolver creates a Resolver over the given viper tree and instruction
// directory.
func NewResolver(v *viper.Viper, instructionDir string, optFns ...func(o *ResolverOptions)) *Resolver {
	opts := ResolverOptions{Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Resolver{v: v, instructionDir: instructionDir, logger: opts.Logger}
}

// ResolveOptions carries the per-call context of a Resolve.
type ResolveOptions struct {
	// InvokedBy names the orchestrator on whose behalf a collaborator is
	// being resolved. Collaborator model inputs nest under the invoking
	// orchestrator's configuration; empty means root resolution.
	InvokedBy string
}

// Resolve returns the full configuration for a persona name. Missing pieces
// degrade rather than abort: an absent instruction file yields placeholder
// guidance, absent model inputs leave provider defaults in force, and an
// undeclared tool list falls back to DefaultTools.
func (r *Resolver) Resolve(name string, optFns ...func(o *ResolveOptions)) (*Config, error) {
	var opts ResolveOptions
	for _, fn := range optFns {
		fn(&opts)
	}

	var spec personaSpec
	if r.v.IsSet("personas." + name) {
		if err := r.v.UnmarshalKey("personas."+name, &spec); err != nil {
			return nil, fmt.Errorf("unmarshal persona %q: %w", name, err)
		}
	} else {
		r.logger.Warn("persona not declared in configuration", "persona", name)
	}

	inputs, err := r.resolveModelInputs(name, spec.Collaborator, opts.InvokedBy)
	if err != nil {
		return nil, err
	}

	tools := spec.Tools
	if tools == nil {
		tools = append([]string(nil), DefaultTools...)
	}

	teamName := spec.TeamName
	if teamName == "" {
		teamName = name
	}

	cfg := &Config{
		Name:        name,
		TeamName:    teamName,
		Description: spec.Description,
		Provider:    inputs.Provider,
		Params: model.GenerationParams{
			ModelID:     inputs.ModelID,
			Temperature: inputs.Temperature,
			TopP:        inputs.TopP,
			MaxTokens:   inputs.MaxTokens,
		},
		Tools:           tools,
		Collaborator:    spec.Collaborator,
		SupportsCaching: spec.SupportsCaching,
	}
	cfg.Instructions = RenderInstructions(r.loadInstructions(name), name, spec.InjectableValues, r.ListPersonas())
	return cfg, nil
}

// resolveModelInputs picks the model-parameter source. A root persona reads
// its own model_inputs entry; a collaborator resolved on behalf of an
// orchestrator reads the entry nested under that orchestrator, falling back
// to its own top-level entry when the orchestrator declares none.
func (r *Resolver) resolveModelInputs(name string, collaborator bool, invokedBy string) (modelInputs, error) {
	var inputs modelInputs

	if collaborator && invokedBy != "" {
		var parent modelInputs
		if r.v.IsSet("model_inputs." + invokedBy) {
			if err := r.v.UnmarshalKey("model_inputs."+invokedBy, &parent); err != nil {
				return inputs, fmt.Errorf("unmarshal model inputs for %q: %w", invokedBy, err)
			}
			// Viper lowercases the collaborator map keys, so match them
			// case-insensitively against the persona name.
			for key, nested := range parent.Collaborators {
				if strings.EqualFold(key, name) {
					return nested, nil
				}
			}
		}
	}

	if r.v.IsSet("model_inputs." + name) {
		if err := r.v.UnmarshalKey("model_inputs."+name, &inputs); err != nil {
			return inputs, fmt.Errorf("unmarshal model inputs for %q: %w", name, err)
		}
	} else {
		r.logger.Warn("no model inputs configured, provider defaults apply", "persona", name)
	}
	return inputs, nil
}

// loadInstructions reads the persona's instruction file. A missing or
// unreadable file degrades to placeholder guidance so the turn can proceed.
func (r *Resolver) loadInstructions(name string) string {
	path := filepath.Join(r.instructionDir, name+".md")
	raw, err := os.ReadFile(path)
	if err != nil {
		r.logger.Warn("instruction file unavailable", "persona", name, "path", path, "error", err)
		return MissingInstructionsPrefix + name
	}
	return string(raw)
}

// ListPersonas returns the discoverable persona name/description pairs in
// deterministic order, for name-list injection and routing surfaces.
func (r *Resolver) ListPersonas() []NameDescription {
	var declared map[string]personaSpec
	if err := r.v.UnmarshalKey("personas", &declared); err != nil {
		r.logger.Warn("persona listing unavailable", "error", err)
		return nil
	}

	out := make([]NameDescription, 0, len(declared))
	for key, spec := range declared {
		name := spec.Name
		if name == "" {
			name = key
		}
		out = append(out, NameDescription{Name: name, Description: spec.Description})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
