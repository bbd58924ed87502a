package agent

import (
	"fmt"

	"github.com/voxhall/ensemble/core"
	"github.com/voxhall/ensemble/logging"
	"github.com/voxhall/ensemble/memory"
	"github.com/voxhall/ensemble/model"
	"github.com/voxhall/ensemble/persona"
	"github.com/voxhall/ensemble/tool"
)

// stackLogger is satisfied by logging.TurnLogger; construction failures carry
// a stack snapshot when the configured logger supports it.
type stackLogger interface {
	ErrorWithStack(err error, msg string, args ...any)
}

// FactoryOptions holds dependency overrides passed to NewFactory.
type FactoryOptions struct {
	// DefaultProvider is used when a persona declares no provider. Empty
	// means an undeclared provider is a construction failure.
	DefaultProvider string
	Logger          logging.Logger
}

// Factory builds ready-to-invoke persona instances from resolved
// configuration, the memory adapter and the declarative tool registry. It
// also implements core.SpecialistInvoker: specialist bridge tools route
// through the factory so every invocation path enforces the depth cap.
type Factory struct {
	resolver        *persona.Resolver
	mem             *memory.Adapter
	registry        *tool.Registry
	providers       map[string]model.Model
	defaultProvider string
	logger          logging.Logger
}

// NewFactory constructs a Factory. The providers map keys are the provider
// names persona configurations reference ("anthropic", "openai", "mock").
func NewFactory(resolver *persona.Resolver, mem *memory.Adapter, registry *tool.Registry, providers map[string]model.Model, optFns ...func(o *FactoryOptions)) *Factory {
	opts := FactoryOptions{Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Factory{
		resolver:        resolver,
		mem:             mem,
		registry:        registry,
		providers:       providers,
		defaultProvider: opts.DefaultProvider,
		logger:          opts.Logger,
	}
}

// BuildOptions carries the per-call context of a Build.
type BuildOptions struct {
	// InvokedBy names the orchestrator a collaborator is built for; its
	// model inputs then resolve from the orchestrator's nested entry.
	InvokedBy string
}

// Build constructs a live instance of the named persona bound to the given
// session and memory identifiers. Failures are logged with a stack snapshot
// and wrapped in core.ErrConstructionFailure; the caller aborts the turn.
func (f *Factory) Build(personaName, sessionID, memoryID string, optFns ...func(o *BuildOptions)) (*Instance, error) {
	var opts BuildOptions
	for _, fn := range optFns {
		fn(&opts)
	}

	cfg, err := f.resolver.Resolve(personaName, func(o *persona.ResolveOptions) {
		o.InvokedBy = opts.InvokedBy
	})
	if err != nil {
		return nil, f.constructionFailure(personaName, fmt.Errorf("resolve persona: %w", err))
	}

	mdl, err := f.selectModel(cfg)
	if err != nil {
		return nil, f.constructionFailure(personaName, err)
	}

	tools, err := f.registry.Build(cfg.Tools)
	if err != nil {
		return nil, f.constructionFailure(personaName, fmt.Errorf("build tools: %w", err))
	}

	return NewInstance(InstanceConfig{
		Persona:   cfg,
		Model:     mdl,
		Tools:     tools,
		Memory:    f.mem,
		SessionID: sessionID,
		MemoryID:  memoryID,
		Invoker:   f,
		Logger:    f.logger,
	}), nil
}

func (f *Factory) selectModel(cfg *persona.Config) (model.Model, error) {
	provider := cfg.Provider
	if provider == "" {
		provider = f.defaultProvider
	}
	mdl, ok := f.providers[provider]
	if !ok {
		return nil, fmt.Errorf("no model provider %q for persona %q", provider, cfg.Name)
	}
	return mdl, nil
}

func (f *Factory) constructionFailure(personaName string, err error) error {
	wrapped := fmt.Errorf("persona %q: %v: %w", personaName, err, core.ErrConstructionFailure)
	if sl, ok := f.logger.(stackLogger); ok {
		sl.ErrorWithStack(wrapped, "instance construction failed")
	} else {
		f.logger.Error("instance construction failed", "persona", personaName, "error", wrapped.Error())
	}
	return wrapped
}

// InvokeSpecialist implements core.SpecialistInvoker: it builds a transient
// instance of the target persona under the caller's session and memory
// identifiers and invokes it synchronously. The depth cap fails closed before
// any construction happens.
func (f *Factory) InvokeSpecialist(tc *core.TurnContext, personaName, prompt string) (string, error) {
	if tc.Depth > core.MaxSpecialistDepth {
		f.logger.Error("specialist invocation depth cap reached",
			"specialist", personaName, "depth", tc.Depth)
		return "", fmt.Errorf("invoking %q at depth %d: %w", personaName, tc.Depth, core.ErrDepthExceeded)
	}

	inst, err := f.Build(personaName, tc.SessionID, tc.MemoryID, func(o *BuildOptions) {
		o.InvokedBy = tc.InvokedBy
	})
	if err != nil {
		return "", fmt.Errorf("%v: %w", err, core.ErrToolFailure)
	}

	inst.SubmitInput(tc.Context, core.NewUserMessage(prompt))
	text, err := inst.Complete(tc)
	if err != nil {
		return "", fmt.Errorf("specialist %q failed: %v: %w", personaName, err, core.ErrToolFailure)
	}
	return text, nil
}
