// Package session tracks connected clients and the last configuration accepted from
// any of them.
package session

import (
	"fmt"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/choi857/kinetic-simulator/errors"
	"github.com/choi857/kinetic-simulator/template"
)

// Registry maps connection ids to entries and holds the global fallback configuration
type Registry struct {
	mu       sync.RWMutex
	entries  map[string]*Entry
	fallback atomic.Pointer[template.Config]
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]*Entry)}
}

// Open registers a new awaiting entry
func (r *Registry) Open(id string) (*Entry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.entries[id]; exists {
		return nil, errors.WrapInvalid(fmt.Errorf("%w: duplicate session id %q", errors.ErrInvalidData, id),
			"session", "Open", "register session")
	}
	e := newEntry(id)
	r.entries[id] = e
	return e, nil
}

// Get returns the entry for id
func (r *Registry) Get(id string) (*Entry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[id]
	return e, ok
}

// Remove closes and forgets the entry for id. Unknown ids are ignored.
func (r *Registry) Remove(id string) {
	r.mu.Lock()
	e, ok := r.entries[id]
	delete(r.entries, id)
	r.mu.Unlock()

	if ok {
		e.Close()
	}
}

// Len returns the number of open entries
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// CountByState returns how many entries are in each state
func (r *Registry) CountByState() map[State]int {
	r.mu.RLock()
	entries := make([]*Entry, 0, len(r.entries))
	for _, e := range r.entries {
		entries = append(entries, e)
	}
	r.mu.RUnlock()

	counts := make(map[State]int)
	for _, e := range entries {
		counts[e.State()]++
	}
	return counts
}

// IDs returns the open entry ids in sorted order
func (r *Registry) IDs() []string {
	r.mu.RLock()
	ids := make([]string, 0, len(r.entries))
	for id := range r.entries {
		ids = append(ids, id)
	}
	r.mu.RUnlock()

	sort.Strings(ids)
	return ids
}

// CloseAll closes and removes every entry
func (r *Registry) CloseAll() {
	r.mu.Lock()
	entries := r.entries
	r.entries = make(map[string]*Entry)
	r.mu.Unlock()

	for _, e := range entries {
		e.Close()
	}
}

// SetFallback records cfg as the latest accepted configuration. Last writer wins.
func (r *Registry) SetFallback(cfg *template.Config) {
	if cfg != nil {
		r.fallback.Store(cfg)
	}
}

// Fallback returns the latest accepted configuration, or nil before the first one
func (r *Registry) Fallback() *template.Config {
	return r.fallback.Load()
}
