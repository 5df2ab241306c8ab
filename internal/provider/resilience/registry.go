package resilience

import (
	"sync"
	"time"

	"github.com/sony/gobreaker/v2"
)

// AdapterHealth is a point-in-time health snapshot of one adapter.
type AdapterHealth struct {
	Name          string           `json:"name"`
	CircuitState  string           `json:"circuitState"`
	Counts        gobreaker.Counts `json:"counts"`
	LastSuccessAt *time.Time       `json:"lastSuccessAt,omitempty"`
	LastFailureAt *time.Time       `json:"lastFailureAt,omitempty"`
	LastError     string           `json:"lastError,omitempty"`
}

// Healthy reports whether the adapter's circuit is closed.
func (h *AdapterHealth) Healthy() bool {
	return h.CircuitState == gobreaker.StateClosed.String()
}

// Registry tracks the Callers of all adapters for health reporting.
type Registry struct {
	mu       sync.RWMutex
	adapters map[string]*trackedAdapter
}

type trackedAdapter struct {
	caller        *Caller
	lastSuccessAt *time.Time
	lastFailureAt *time.Time
	lastError     string
}

// NewRegistry creates an empty adapter registry.
func NewRegistry() *Registry {
	return &Registry{adapters: make(map[string]*trackedAdapter)}
}

// Register adds a caller under its adapter name.
func (r *Registry) Register(caller *Caller) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.adapters[caller.Name()] = &trackedAdapter{caller: caller}
}

// RecordSuccess notes a successful call for an adapter.
func (r *Registry) RecordSuccess(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if a, ok := r.adapters[name]; ok {
		now := time.Now()
		a.lastSuccessAt = &now
	}
}

// RecordFailure notes a failed call for an adapter.
func (r *Registry) RecordFailure(name string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if a, ok := r.adapters[name]; ok {
		now := time.Now()
		a.lastFailureAt = &now
		if err != nil {
			a.lastError = err.Error()
		}
	}
}

// Health returns the snapshot for one adapter, or nil if unknown.
func (r *Registry) Health(name string) *AdapterHealth {
	r.mu.RLock()
	defer r.mu.RUnlock()

	a, ok := r.adapters[name]
	if !ok {
		return nil
	}
	return a.snapshot(name)
}

// AllHealth returns snapshots for every registered adapter.
func (r *Registry) AllHealth() []*AdapterHealth {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*AdapterHealth, 0, len(r.adapters))
	for name, a := range r.adapters {
		out = append(out, a.snapshot(name))
	}
	return out
}

func (a *trackedAdapter) snapshot(name string) *AdapterHealth {
	return &AdapterHealth{
		Name:          name,
		CircuitState:  a.caller.State().String(),
		Counts:        a.caller.Counts(),
		LastSuccessAt: a.lastSuccessAt,
		LastFailureAt: a.lastFailureAt,
		LastError:     a.lastError,
	}
}
