package fetch

import (
	"context"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/nimbus-labs/model-aggregator/catalog"
	"github.com/nimbus-labs/model-aggregator/internal/circuitbreaker"
)

// Aggregator fans FetchProvider out across every configured provider
// concurrently, waits for all of them to settle, and returns a single
// deterministically sorted list.
type Aggregator struct {
	client    *http.Client
	registry  *catalog.ProviderRegistry
	breakers  map[string]*circuitbreaker.CircuitBreaker
	breakersM sync.Mutex
	timeout   time.Duration
}

// NewAggregator builds an Aggregator over registry's providers, lazily
// creating one CircuitBreaker per provider base URL on first use.
func NewAggregator(client *http.Client, registry *catalog.ProviderRegistry, timeout time.Duration) *Aggregator {
	return &Aggregator{
		client:   client,
		registry: registry,
		breakers: make(map[string]*circuitbreaker.CircuitBreaker),
		timeout:  timeout,
	}
}

func (a *Aggregator) breakerFor(baseURL string) *circuitbreaker.CircuitBreaker {
	a.breakersM.Lock()
	defer a.breakersM.Unlock()
	if cb, ok := a.breakers[baseURL]; ok {
		return cb
	}
	cb := circuitbreaker.New(5, 1, 30*time.Second)
	a.breakers[baseURL] = cb
	return cb
}

// GatherModels launches FetchProvider for every registered provider in
// parallel, waits for all to settle (a failing provider never blocks or
// aborts the others), and returns the concatenated result sorted by
// (provider.base_url, lower(model_id)).
func (a *Aggregator) GatherModels(ctx context.Context) []catalog.Model {
	providers := a.registry.All()
	results := make([][]catalog.Model, len(providers))

	var wg sync.WaitGroup
	for i, p := range providers {
		wg.Add(1)
		go func(i int, p *catalog.Provider) {
			defer wg.Done()
			cb := a.breakerFor(p.BaseURL)
			results[i] = FetchProvider(ctx, a.client, p, a.timeout, cb)
		}(i, p)
	}
	wg.Wait()

	var merged []catalog.Model
	for _, r := range results {
		merged = append(merged, r...)
	}

	sort.Slice(merged, func(i, j int) bool {
		if merged[i].Key.ProviderBaseURL != merged[j].Key.ProviderBaseURL {
			return merged[i].Key.ProviderBaseURL < merged[j].Key.ProviderBaseURL
		}
		return strings.ToLower(merged[i].Key.ModelID) < strings.ToLower(merged[j].Key.ModelID)
	})
	return merged
}

// CircuitStates returns the current circuit breaker state per provider, for
// the metrics sweep in tasks.Manager's refresh loop.
func (a *Aggregator) CircuitStates() map[string]circuitbreaker.State {
	a.breakersM.Lock()
	defer a.breakersM.Unlock()
	out := make(map[string]circuitbreaker.State, len(a.breakers))
	for baseURL, cb := range a.breakers {
		out[baseURL] = cb.State()
	}
	return out
}
