// Package provider defines the capability every video intelligence provider
// implements and the registry the orchestrator selects them from
package provider

import (
	"context"
	"slices"
	"strings"
	"sync"

	perr "vidbrief/internal/platform/errors"
	"vidbrief/internal/services/media/domain"
)

// Adapter submits sources, polls jobs and fetches results for one provider
type Adapter interface {
	Name() domain.ProviderName
	Submit(ctx context.Context, src domain.ResolvedSource, opts domain.SubmitOptions) (domain.ProviderJob, error)
	Poll(ctx context.Context, job domain.ProviderJob) (domain.ProviderJob, error)
	FetchResult(ctx context.Context, job domain.ProviderJob, op domain.Operation, opts domain.ResultOptions) (domain.RawResult, error)
}

// Warmer is implemented by adapters that can prepare their group (index or
// collection) ahead of the first request
type Warmer interface {
	Warm(ctx context.Context) error
}

// Registry maps provider names to adapters
type Registry struct {
	mu       sync.RWMutex
	adapters map[domain.ProviderName]Adapter
	order    []domain.ProviderName
	def      domain.ProviderName
}

// NewRegistry returns an empty registry preferring def
func NewRegistry(def domain.ProviderName) *Registry {
	return &Registry{adapters: map[domain.ProviderName]Adapter{}, def: def}
}

// Register adds or replaces an adapter
func (r *Registry) Register(a Adapter) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.adapters[a.Name()]; !ok {
		r.order = append(r.order, a.Name())
	}
	r.adapters[a.Name()] = a
}

// Get returns the named adapter, or the default when name is empty
func (r *Registry) Get(name string) (Adapter, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return r.Default()
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	if a, ok := r.adapters[domain.ProviderName(name)]; ok {
		return a, nil
	}
	return nil, perr.WithField(perr.InvalidRequestf("provider %q is not configured", name), "provider")
}

// Default returns the configured default, falling back to the first registered
func (r *Registry) Default() (Adapter, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if a, ok := r.adapters[r.def]; ok {
		return a, nil
	}
	if len(r.order) > 0 {
		return r.adapters[r.order[0]], nil
	}
	return nil, perr.Unavailablef("no video provider is configured")
}

// DefaultName reports the name Default resolves to, or "" when empty
func (r *Registry) DefaultName() domain.ProviderName {
	a, err := r.Default()
	if err != nil {
		return ""
	}
	return a.Name()
}

// Names lists registered providers in registration order
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.order))
	for _, n := range r.order {
		out = append(out, string(n))
	}
	return out
}

// Has reports whether name is registered
func (r *Registry) Has(name string) bool {
	return slices.Contains(r.Names(), strings.ToLower(strings.TrimSpace(name)))
}

// Warmers returns every registered adapter that can warm up
func (r *Registry) Warmers() map[domain.ProviderName]Warmer {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := map[domain.ProviderName]Warmer{}
	for n, a := range r.adapters {
		if w, ok := a.(Warmer); ok {
			out[n] = w
		}
	}
	return out
}
