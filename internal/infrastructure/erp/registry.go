package erp

import (
	"fmt"
	"sort"

	domain "github.com/bizpulse/backend/internal/domain/erp"
)

// Registry maps provider types to adapter instances. It is populated once
// at process start and read-only afterwards, so no locking is needed.
type Registry struct {
	adapters map[domain.ProviderType]domain.ProviderAdapter
}

// NewRegistry creates a registry holding the given adapters.
func NewRegistry(adapters ...domain.ProviderAdapter) *Registry {
	r := &Registry{adapters: make(map[domain.ProviderType]domain.ProviderAdapter, len(adapters))}
	for _, adapter := range adapters {
		r.adapters[adapter.ProviderType()] = adapter
	}
	return r
}

// GetAdapter returns the adapter registered for the provider type.
func (r *Registry) GetAdapter(providerType domain.ProviderType) (domain.ProviderAdapter, error) {
	adapter, ok := r.adapters[providerType]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnsupportedProvider, providerType)
	}
	return adapter, nil
}

// ListProviders returns the registered provider types in stable order.
func (r *Registry) ListProviders() []domain.ProviderType {
	providers := make([]domain.ProviderType, 0, len(r.adapters))
	for providerType := range r.adapters {
		providers = append(providers, providerType)
	}
	sort.Slice(providers, func(i, j int) bool { return providers[i] < providers[j] })
	return providers
}

// Ensure Registry implements the AdapterRegistry interface
var _ domain.AdapterRegistry = (*Registry)(nil)
