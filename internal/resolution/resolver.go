package resolution

import (
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	appLog "calingen/internal/log"
	"calingen/internal/model"
	"calingen/internal/plugin"
	"calingen/internal/storage"
)

var (
	resolutionsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "calingen_resolutions_total",
		Help: "Number of full event resolution runs.",
	})
	providerCacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "calingen_provider_cache_hits_total",
		Help: "Number of provider results served from the per-year cache.",
	})
)

type cacheKey struct {
	provider string
	year     int
}

// Resolver merges a user's stored events with the contributions of the
// user's active event providers into one deduplicated entry list per
// request.
//
// Provider results are cached per (provider, year): providers are
// deterministic for a given year, so the cache lives for the process
// lifetime and is only bounded, never invalidated.
type Resolver struct {
	store *storage.Store
	cache *lru.Cache[cacheKey, *model.CalendarEntryList]

	// Providers is the registry consulted for active provider lookups.
	// It defaults to the package-level registry.
	Providers *plugin.Registry[plugin.EventProvider]
}

// NewResolver creates a Resolver with a provider cache of the given size.
func NewResolver(store *storage.Store, cacheSize int) (*Resolver, error) {
	if cacheSize <= 0 {
		cacheSize = 64
	}
	cache, err := lru.New[cacheKey, *model.CalendarEntryList](cacheSize)
	if err != nil {
		return nil, fmt.Errorf("resolution: create cache: %w", err)
	}
	return &Resolver{
		store:     store,
		cache:     cache,
		Providers: plugin.Events,
	}, nil
}

// Resolve builds the merged entry list for one user and year. Ordering
// across providers is irrelevant (the merge is a set union); callers use
// Sorted() on the result for the render-ready projection.
func (r *Resolver) Resolve(user string, year int) (*model.CalendarEntryList, error) {
	resolutionsTotal.Inc()

	result, err := r.store.EventEntries(user, year)
	if err != nil {
		return nil, err
	}

	state, err := r.store.ProviderState(user)
	if err != nil {
		return nil, err
	}

	for _, id := range state.Active {
		entries, err := r.providerEntries(id, year)
		if err != nil {
			return nil, err
		}
		result.Merge(entries)
	}
	return result, nil
}

func (r *Resolver) providerEntries(id string, year int) (*model.CalendarEntryList, error) {
	key := cacheKey{provider: id, year: year}
	if entries, ok := r.cache.Get(key); ok {
		providerCacheHits.Inc()
		return entries, nil
	}

	provider, err := r.Providers.Get(id)
	if err != nil {
		// The reconciled active list should only contain live providers;
		// a miss here means the provider vanished between reconciliation
		// and resolution. Skip it rather than failing the whole run.
		appLog.Warn("skipping vanished event provider", "provider", id)
		return model.NewCalendarEntryList(), nil
	}

	entries, err := provider.Resolve(year)
	if err != nil {
		return nil, fmt.Errorf("resolution: provider %q: %w", id, err)
	}
	r.cache.Add(key, entries)
	return entries, nil
}
