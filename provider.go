// FILE: lixenwraith/secureconfig/provider.go
package secureconfig

import (
	"fmt"
	"slices"
	"sync"
)

// Provider reversibly transforms a section's plaintext payload into
// protected cipher data. The section path is authenticated alongside the
// payload, so cipher data only opens under the path it was sealed for.
// Output is bound to the provider's key material and is not portable to a
// machine that lacks it.
type Provider interface {
	// Name identifies the provider in persisted sections.
	Name() string
	// Seal protects plaintext for the given section path.
	Seal(section string, plaintext []byte) (string, error)
	// Open reverses Seal.
	Open(section string, cipherData string) ([]byte, error)
}

// ProviderRegistry resolves providers by the name recorded in a protected
// section. The first registered provider is the one used to protect.
type ProviderRegistry struct {
	mu        sync.RWMutex
	providers map[string]Provider
	order     []string
}

// NewProviderRegistry registers the given providers in order.
func NewProviderRegistry(providers ...Provider) *ProviderRegistry {
	r := &ProviderRegistry{providers: make(map[string]Provider)}
	for _, p := range providers {
		r.Register(p)
	}
	return r
}

// Register adds or replaces a provider. Nil providers are ignored.
func (r *ProviderRegistry) Register(p Provider) {
	if p == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	name := p.Name()
	if _, exists := r.providers[name]; !exists {
		r.order = append(r.order, name)
	}
	r.providers[name] = p
}

// Default returns the provider used for new protection.
func (r *ProviderRegistry) Default() (Provider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if len(r.order) == 0 {
		return nil, fmt.Errorf("%w: no provider registered", ErrUnknownProvider)
	}
	return r.providers[r.order[0]], nil
}

// Lookup returns the provider registered under name.
func (r *ProviderRegistry) Lookup(name string) (Provider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.providers[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, name)
	}
	return p, nil
}

// Names returns the registered provider names in registration order.
func (r *ProviderRegistry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.order)
}
