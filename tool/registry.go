package tool

import (
	"fmt"

	"github.com/voxhall/ensemble/knowledge"
	"github.com/voxhall/ensemble/memory"
)

// Deps carries the shared collaborators tool constructors may need.
type Deps struct {
	Retriever knowledge.Retriever
	TurnLog   memory.TurnLog
}

// Constructor builds one tool instance from the shared dependencies.
type Constructor func(deps Deps) Tool

// Registry maps declarative tool ids to constructors. Persona configurations
// name tools by id; the agent factory resolves them here once at instance
// construction, with no runtime introspection.
type Registry struct {
	deps         Deps
	constructors map[string]Constructor
}

// NewRegistry creates a Registry pre-populated with the standard tool set.
func NewRegistry(deps Deps) *Registry {
	r := &Registry{deps: deps, constructors: make(map[string]Constructor)}
	r.Register("invoke_specialist", func(Deps) Tool { return NewInvokeSpecialistTool() })
	r.Register("retrieve_knowledge_base_results_tool", func(d Deps) Tool { return NewRetrieveKnowledgeTool(d.Retriever) })
	r.Register("lookup_events", func(d Deps) Tool { return NewLookupEventsTool(d.TurnLog) })
	return r
}

// Register adds or replaces a constructor for a tool id.
func (r *Registry) Register(id string, ctor Constructor) { r.constructors[id] = ctor }

// Build resolves a persona's declared tool ids into live tool instances.
// Unknown ids are an error: a persona must not silently lose a declared
// capability.
func (r *Registry) Build(ids []string) ([]Tool, error) {
	tools := make([]Tool, 0, len(ids))
	for _, id := range ids {
		ctor, ok := r.constructors[id]
		if !ok {
			return nil, fmt.Errorf("unknown tool id %q", id)
		}
		tools = append(tools, ctor(r.deps))
	}
	return tools, nil
}
