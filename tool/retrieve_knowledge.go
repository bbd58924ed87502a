package tool

import (
	"fmt"
	"strings"

	"github.com/voxhall/ensemble/core"
	"github.com/voxhall/ensemble/knowledge"
)

// RefusalMarker is the literal citation text a knowledge source returns when
// it declines a query. Citations carrying it are filtered from the condensed
// output handed back to the persona; the raw entry still lands in the source
// collector.
const RefusalMarker = "Sorry, I am unable to assist you with this request."

// retrieveKnowledgeTool queries a persona-scoped knowledge source, records
// the raw result in the per-turn source collector and returns a condensed
// <sources> block of generated excerpts.
type retrieveKnowledgeTool struct {
	retriever knowledge.Retriever
}

// NewRetrieveKnowledgeTool constructs the knowledge retrieval tool over the
// given retriever.
func NewRetrieveKnowledgeTool(retriever knowledge.Retriever) Tool {
	return &retrieveKnowledgeTool{retriever: retriever}
}

func (t *retrieveKnowledgeTool) Name() string { return "retrieve_knowledge_base_results_tool" }

func (t *retrieveKnowledgeTool) Description() string {
	return "Search the knowledge base scoped to a persona and return supporting excerpts."
}

func (t *retrieveKnowledgeTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"agent_name":           map[string]any{"type": "string", "description": "Persona whose knowledge base to query"},
			"knowledge_base_query": map[string]any{"type": "string", "description": "The retrieval query"},
		},
		"required": []string{"agent_name", "knowledge_base_query"},
	}
}

func (t *retrieveKnowledgeTool) Call(tc *core.ToolContext, args map[string]any) (any, error) {
	agentName, _ := args["agent_name"].(string)
	query, _ := args["knowledge_base_query"].(string)
	if agentName == "" || query == "" {
		return "Error: retrieve_knowledge_base_results_tool requires 'agent_name' and 'knowledge_base_query'.", nil
	}
	if t.retriever == nil {
		return "Error: no knowledge source is configured.", nil
	}

	citations, err := t.retriever.Retrieve(tc.Context(), agentName, query)
	if err != nil {
		tc.Logger().Error("knowledge retrieval failed", "persona", agentName, "error", err.Error())
		return fmt.Sprintf("Error: knowledge retrieval failed: %v", err), nil
	}

	excerpt := condenseCitations(citations)
	tc.Collector().Add(agentName, core.SourceEntry{
		Query:     query,
		Citations: citations,
		Excerpt:   excerpt,
	})
	return excerpt, nil
}

// condenseCitations builds the <sources> block returned to the persona,
// dropping citations whose text is the literal refusal marker.
func condenseCitations(citations []core.Citation) string {
	var b strings.Builder
	b.WriteString("<sources>")
	for _, c := range citations {
		if strings.TrimSpace(c.Text) == RefusalMarker {
			continue
		}
		b.WriteString("\n")
		b.WriteString(c.Text)
	}
	b.WriteString("\n</sources>")
	return b.String()
}
