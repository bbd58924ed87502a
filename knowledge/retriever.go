// Package knowledge defines the retrieval contract personas use to consult
// their knowledge sources. The core only depends on the Retriever interface;
// the backing index (vector store, managed knowledge base, etc.) is an
// external collaborator.
package knowledge

import (
	"context"
	"strings"
	"sync"

	"github.com/voxhall/ensemble/core"
)

// Retriever performs a retrieval against the knowledge source scoped to a
// persona, returning raw citations.
type Retriever interface {
	Retrieve(ctx context.Context, personaName, query string) ([]core.Citation, error)
}

// StaticRetriever is a process-local Retriever serving citations from
// registered documents via case-insensitive substring matching. Suitable for
// tests and demos; swap for a semantic index in production.
type StaticRetriever struct {
	mu   sync.RWMutex
	docs map[string][]core.Citation // personaName -> citations
}

// NewStaticRetriever constructs an empty static retriever.
func NewStaticRetriever() *StaticRetriever {
	return &StaticRetriever{docs: make(map[string][]core.Citation)}
}

// AddDocument registers a citation under a persona's knowledge scope.
func (r *StaticRetriever) AddDocument(personaName string, c core.Citation) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.docs[personaName] = append(r.docs[personaName], c)
}

// Retrieve returns every registered citation whose text contains the query
// (case-insensitive). An empty query matches everything in scope.
func (r *StaticRetriever) Retrieve(_ context.Context, personaName, query string) ([]core.Citation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var results []core.Citation
	q := strings.ToLower(query)
	for _, c := range r.docs[personaName] {
		if q == "" || strings.Contains(strings.ToLower(c.Text), q) {
			results = append(results, c)
		}
	}
	return results, nil
}
