// ABOUTME: Provider registry and per-user capability map resolution
// ABOUTME: Splits read resolution (capability map) from write resolution (identity provider)
package provider

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/harperreed/deskhand/models"
)

// Registry holds provider instances by ID. It is built once at session start.
type Registry struct {
	mu        sync.RWMutex
	providers map[string]Provider
}

// NewRegistry creates a registry from the given providers.
func NewRegistry(providers ...Provider) *Registry {
	r := &Registry{providers: make(map[string]Provider)}
	for _, p := range providers {
		r.Register(p)
	}
	return r
}

// Register adds or replaces a provider.
func (r *Registry) Register(p Provider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers[p.ID()] = p
}

// Get returns the provider with the given ID.
func (r *Registry) Get(id string) (Provider, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.providers[id]
	return p, ok
}

// IDs returns the registered provider IDs sorted.
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.providers))
	for id := range r.providers {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// CapabilityMap binds each capability to exactly one provider ID.
type CapabilityMap map[models.Capability]string

// DefaultCapabilityMap returns the bindings used before a user changes settings.
func DefaultCapabilityMap() CapabilityMap {
	return CapabilityMap{
		models.CapabilityCalendar: GoogleID,
		models.CapabilityTasks:    GoogleID,
		models.CapabilityContacts: ReplicaID,
		models.CapabilityFiles:    GoogleID,
		models.CapabilityNotes:    ReplicaID,
		models.CapabilityMail:     GoogleID,
		models.CapabilityIdentity: GoogleID,
	}
}

// Clone returns an independent copy.
func (m CapabilityMap) Clone() CapabilityMap {
	out := make(CapabilityMap, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// Resolve returns the read provider bound to c.
func (m CapabilityMap) Resolve(reg *Registry, c models.Capability) (Provider, error) {
	id, ok := m[c]
	if !ok || id == "" {
		return nil, &ConfigurationError{Capability: c, Reason: "no provider bound"}
	}
	p, ok := reg.Get(id)
	if !ok {
		return nil, &ConfigurationError{Capability: c, ProviderID: id, Reason: "provider is not available"}
	}
	return p, nil
}

// ResolveWrite returns the provider that must receive mutations for c: the
// canonical identity provider, so writes land on the authoritative account even
// when reads are served elsewhere. Notes are cache-native and keep their binding.
func (m CapabilityMap) ResolveWrite(reg *Registry, c models.Capability) (Provider, error) {
	if c == models.CapabilityNotes {
		return m.Resolve(reg, c)
	}
	p, err := m.Resolve(reg, models.CapabilityIdentity)
	if err != nil {
		return nil, &ConfigurationError{Capability: c, Reason: fmt.Sprintf("writes require an identity provider (%v)", err)}
	}
	return p, nil
}

// As narrows p to the interface T needed to serve capability c.
func As[T any](p Provider, c models.Capability) (T, error) {
	typed, ok := p.(T)
	if !ok {
		var zero T
		return zero, &ConfigurationError{Capability: c, ProviderID: p.ID(), Reason: "operation not implemented by provider"}
	}
	return typed, nil
}

// Authenticated returns the capabilities whose bound provider reports an
// authenticated session. Providers without an auth step of their own, such as
// the cache, hold data synced from the identity account and follow its state.
func (m CapabilityMap) Authenticated(ctx context.Context, reg *Registry) []models.Capability {
	identity := false
	if p, err := m.Resolve(reg, models.CapabilityIdentity); err == nil {
		if a, ok := p.(Authenticator); ok {
			identity = a.IsAuthenticated(ctx)
		}
	}

	var out []models.Capability
	for _, c := range models.AllCapabilities {
		p, err := m.Resolve(reg, c)
		if err != nil {
			continue
		}
		authed := identity
		if a, ok := p.(Authenticator); ok {
			authed = a.IsAuthenticated(ctx)
		}
		if authed {
			out = append(out, c)
		}
	}
	return out
}
