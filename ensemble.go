// Package ensemble provides a high-level façade over the persona resolver,
// session registry and delivery pipeline, enabling rapid construction of a
// multi-persona conversational core. Most applications interact with this
// package by:
//  1. Creating an Ensemble via New() with a persona definition tree and the
//     model providers to serve it
//  2. Running turns (Run for the chunk stream, RunSync to drain it)
//
// Defaults are safe for local development: no durable turn log (every session
// runs on the in-process summarizer memory tier), a no-op logger and the
// static in-memory knowledge retriever.
package ensemble

import (
	"context"
	"time"

	"github.com/spf13/viper"

	"github.com/voxhall/ensemble/agent"
	"github.com/voxhall/ensemble/core"
	"github.com/voxhall/ensemble/knowledge"
	"github.com/voxhall/ensemble/logging"
	"github.com/voxhall/ensemble/memory"
	"github.com/voxhall/ensemble/model"
	"github.com/voxhall/ensemble/persona"
	"github.com/voxhall/ensemble/pipeline"
	"github.com/voxhall/ensemble/session"
	"github.com/voxhall/ensemble/tool"
)

// Options configures the Ensemble instance.
type Options struct {
	// TurnLog is the durable short-term memory backend. Nil disables the
	// durable tier; every session then uses the in-process summarizer.
	TurnLog memory.TurnLog

	// Retriever backs the knowledge retrieval tool. Defaults to an empty
	// static retriever.
	Retriever knowledge.Retriever

	// Summarizer pre-processes document attachments. Nil skips attachments.
	Summarizer pipeline.AttachmentSummarizer

	// DefaultProvider serves personas that declare no provider.
	DefaultProvider string

	// ModelTimeout bounds a turn's model work. Zero means the pipeline
	// default.
	ModelTimeout time.Duration

	// Logger (defaults to NoOp logger if nil)
	Logger logging.Logger
}

// Ensemble aggregates the wired subsystems behind a small surface.
type Ensemble struct {
	resolver *persona.Resolver
	registry *session.Registry
	pipeline *pipeline.Pipeline
}

// New wires an Ensemble from a persona definition tree (the "personas" and
// "model_inputs" sections), an instruction directory and the model providers
// persona configurations reference.
func New(personaTree *viper.Viper, instructionDir string, providers map[string]model.Model, optFns ...func(o *Options)) *Ensemble {
	opts := Options{
		Retriever: knowledge.NewStaticRetriever(),
		Logger:    logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	resolver := persona.NewResolver(personaTree, instructionDir, func(o *persona.ResolverOptions) {
		o.Logger = opts.Logger
	})
	mem := memory.NewAdapter(opts.TurnLog, func(o *memory.AdapterOptions) {
		o.Logger = opts.Logger
	})
	registry := tool.NewRegistry(tool.Deps{Retriever: opts.Retriever, TurnLog: opts.TurnLog})
	factory := agent.NewFactory(resolver, mem, registry, providers, func(o *agent.FactoryOptions) {
		o.DefaultProvider = opts.DefaultProvider
		o.Logger = opts.Logger
	})
	sessions := session.NewRegistry(factory, session.NewContextStore(), func(o *session.RegistryOptions) {
		o.Logger = opts.Logger
	})
	pl := pipeline.New(sessions, func(o *pipeline.Options) {
		o.Logger = opts.Logger
		o.Summarizer = opts.Summarizer
		if opts.ModelTimeout > 0 {
			o.ModelTimeout = opts.ModelTimeout
		}
	})

	return &Ensemble{resolver: resolver, registry: sessions, pipeline: pl}
}

// Run executes one turn and returns the chunk stream.
func (e *Ensemble) Run(ctx context.Context, req *pipeline.TurnRequest) <-chan core.Chunk {
	return e.pipeline.Run(ctx, req)
}

// RunSync executes one turn and drains the stream into a slice.
func (e *Ensemble) RunSync(ctx context.Context, req *pipeline.TurnRequest) []core.Chunk {
	var chunks []core.Chunk
	for c := range e.pipeline.Run(ctx, req) {
		chunks = append(chunks, c)
	}
	return chunks
}

// Personas lists the discoverable persona name/description pairs.
func (e *Ensemble) Personas() []persona.NameDescription {
	return e.resolver.ListPersonas()
}

// ClearSession evicts a session's cached instance and saved persona contexts.
func (e *Ensemble) ClearSession(sessionID string) {
	e.registry.Clear(sessionID)
}
