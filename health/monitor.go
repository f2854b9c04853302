package health

import (
	"encoding/json"
	"net/http"
	"sort"
	"sync"
	"time"
)

// Reporter supplies a live status on demand
type Reporter interface {
	Health() Status
}

// ReporterFunc adapts a function to Reporter
type ReporterFunc func() Status

// Health implements Reporter
func (f ReporterFunc) Health() Status { return f() }

// Monitor tracks the health of named components. Components either push
// statuses with Update or register a Reporter that is polled on read.
type Monitor struct {
	mu        sync.RWMutex
	statuses  map[string]Status
	reporters map[string]Reporter
}

// NewMonitor creates an empty monitor
func NewMonitor() *Monitor {
	return &Monitor{
		statuses:  make(map[string]Status),
		reporters: make(map[string]Reporter),
	}
}

// Update stores a pushed status for name
func (m *Monitor) Update(name string, status Status) {
	status.Component = name
	if status.Timestamp.IsZero() {
		status.Timestamp = time.Now()
	}

	m.mu.Lock()
	m.statuses[name] = status
	m.mu.Unlock()
}

// Register polls r whenever name is read; it replaces any pushed status
func (m *Monitor) Register(name string, r Reporter) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.statuses, name)
	m.reporters[name] = r
}

// Remove stops tracking name
func (m *Monitor) Remove(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.statuses, name)
	delete(m.reporters, name)
}

// Get returns the current status for name
func (m *Monitor) Get(name string) (Status, bool) {
	m.mu.RLock()
	r, polled := m.reporters[name]
	status, pushed := m.statuses[name]
	m.mu.RUnlock()

	if polled {
		s := r.Health()
		s.Component = name
		return s, true
	}
	return status, pushed
}

// Components lists tracked names, sorted
func (m *Monitor) Components() []string {
	m.mu.RLock()
	names := make([]string, 0, len(m.statuses)+len(m.reporters))
	for name := range m.statuses {
		names = append(names, name)
	}
	for name := range m.reporters {
		names = append(names, name)
	}
	m.mu.RUnlock()

	sort.Strings(names)
	return names
}

// AggregateHealth returns the combined status of every tracked component
func (m *Monitor) AggregateHealth(system string) Status {
	names := m.Components()
	subs := make([]Status, 0, len(names))
	for _, name := range names {
		if s, ok := m.Get(name); ok {
			subs = append(subs, s)
		}
	}
	return Aggregate(system, subs)
}

// Handler serves AggregateHealth as JSON, 200 when healthy and 503 otherwise
func (m *Monitor) Handler(system string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		status := m.AggregateHealth(system)
		w.Header().Set("Content-Type", "application/json")
		if !status.IsHealthy() {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		_ = json.NewEncoder(w).Encode(status)
	})
}
