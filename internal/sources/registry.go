package sources

import (
	"sort"

	"go.uber.org/zap"

	"github.com/ppiankov/compintel/internal/model"
)

// Registry resolves provider kinds to adapters
type Registry struct {
	adapters map[model.ProviderKind]Adapter
}

// NewRegistry creates a registry holding exactly the given adapters
func NewRegistry(adapters ...Adapter) *Registry {
	r := &Registry{adapters: make(map[model.ProviderKind]Adapter, len(adapters))}
	for _, a := range adapters {
		r.adapters[a.Kind()] = a
	}
	return r
}

// NewDefaultRegistry wires every provider from configuration. Each adapter
// is wrapped in its own circuit breaker. Adapters without credentials are
// still registered so their kind is reported unavailable.
func NewDefaultRegistry(cfg model.SourcesConfig, fetcher *Fetcher, logger *zap.Logger) *Registry {
	n := cfg.MaxResults
	adapters := []Adapter{
		NewWebSearch(fetcher, cfg.WebSearch, n),
		NewProtocolTVL(fetcher, cfg.DeFiLlama, n),
		NewOnChainLiquidity(fetcher, cfg.DexScreener, n),
		NewTokenMarketData(fetcher, cfg.CoinGecko, n),
		NewTokenSecurity(fetcher, cfg.GoPlus, cfg.DexScreener, n),
	}
	for i, a := range adapters {
		adapters[i] = WithBreaker(a, cfg.Breaker, logger)
	}
	return NewRegistry(adapters...)
}

// Get returns the adapter for kind
func (r *Registry) Get(kind model.ProviderKind) (Adapter, bool) {
	a, ok := r.adapters[kind]
	return a, ok
}

// Kinds returns the registered kinds, sorted
func (r *Registry) Kinds() []model.ProviderKind {
	kinds := make([]model.ProviderKind, 0, len(r.adapters))
	for k := range r.adapters {
		kinds = append(kinds, k)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
	return kinds
}

// BreakerStates reports each provider's breaker state for health checks.
// Adapters without a breaker are omitted.
func (r *Registry) BreakerStates() map[model.ProviderKind]string {
	states := make(map[model.ProviderKind]string)
	for kind, a := range r.adapters {
		if b, ok := a.(*breakerAdapter); ok {
			states[kind] = b.State().String()
		}
	}
	return states
}
