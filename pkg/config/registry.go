package config

import (
	"fmt"
	"sync"
)

// Registry is a thread-safe store of backend documents. A document may name
// another registered document via "extends"; Resolve folds the whole chain,
// deepest ancestor first, before decoding.
type Registry struct {
	mu   sync.RWMutex
	docs map[string]Document
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{docs: make(map[string]Document)}
}

// Register stores a document under its id. Re-registering an id overwrites
// the previous document.
func (r *Registry) Register(id string, doc Document) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.docs[id] = doc.Clone()
}

// IDs returns the registered backend ids.
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.docs))
	for id := range r.docs {
		ids = append(ids, id)
	}
	return ids
}

// Exists reports whether a document is registered under id.
func (r *Registry) Exists(id string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.docs[id]
	return ok
}

// Resolve produces the Definition for a backend id by collecting its
// override chain, deep-merging it in declaration order, and decoding the
// result. A cycle or a dangling "extends" reference is a configuration
// error.
func (r *Registry) Resolve(id string) (*Definition, error) {
	chain, err := r.chain(id)
	if err != nil {
		return nil, err
	}
	merged := DeepExtend(chain[0], chain[1:]...)
	// The leaf's id wins even when an ancestor sets one.
	merged["id"] = id
	delete(merged, "extends")
	return Decode(merged)
}

// chain returns the documents from the deepest ancestor down to id.
func (r *Registry) chain(id string) ([]Document, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var chain []Document
	seen := make(map[string]bool)
	current := id
	for current != "" {
		if seen[current] {
			return nil, fmt.Errorf("backend %q: cyclic extends chain through %q", id, current)
		}
		seen[current] = true
		doc, ok := r.docs[current]
		if !ok {
			return nil, fmt.Errorf("backend %q: unknown document %q in extends chain", id, current)
		}
		chain = append([]Document{doc}, chain...)
		current = doc.String("extends", "")
	}
	return chain, nil
}
