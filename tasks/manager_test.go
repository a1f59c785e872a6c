package tasks

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nimbus-labs/model-aggregator/catalog"
	"github.com/nimbus-labs/model-aggregator/docinfo"
	"github.com/nimbus-labs/model-aggregator/enrich"
	"github.com/nimbus-labs/model-aggregator/fetch"
	"github.com/nimbus-labs/model-aggregator/internal/cache"
)

func newTestManager(t *testing.T, providerSrv *httptest.Server) (*Manager, *catalog.Store) {
	t.Helper()
	store := catalog.NewStore()
	p := &catalog.Provider{BaseURL: providerSrv.URL, InternalBaseURL: providerSrv.URL}
	registry := catalog.NewProviderRegistry([]*catalog.Provider{p})
	agg := fetch.NewAggregator(providerSrv.Client(), registry, time.Second)

	enricher := &enrich.Enricher{
		Docs:    &docinfo.Fetcher{Cache: cache.NewMemory(10, time.Minute), Extractor: noopExtractor{}},
		Prompts: enrich.Prompts{System: "sys", User: "usr"},
	}

	m := &Manager{
		Store:           store,
		Aggregator:      agg,
		Enricher:        enricher,
		FetchInterval:   50 * time.Millisecond,
		EnrichIdleSleep: 50 * time.Millisecond,
		EnrichBatchSize: 5,
	}
	return m, store
}

type noopExtractor struct{}

func (noopExtractor) Extract(context.Context, string) (string, error) { return "", nil }

func TestManager_StartPopulatesStoreFromRefreshLoop(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[{"id":"model-a"}]`))
	}))
	defer srv.Close()

	m, store := newTestManager(t, srv)
	m.Start(context.Background())
	defer m.Stop()

	require.Eventually(t, func() bool {
		return store.Len() == 1
	}, time.Second, 10*time.Millisecond)
}

func TestManager_StopIsIdempotent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	m, _ := newTestManager(t, srv)
	m.Start(context.Background())
	m.Stop()
	assert.NotPanics(t, m.Stop)
}

func TestManager_StartIsIdempotent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	m, _ := newTestManager(t, srv)
	ctx := context.Background()
	m.Start(ctx)
	m.Start(ctx) // must not spawn a second pair of loops
	m.Stop()
}

func TestManager_RestartClearsStore(t *testing.T) {
	callCount := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		callCount++
		_, _ = w.Write([]byte(`[{"id":"model-a"}]`))
	}))
	defer srv.Close()

	m, store := newTestManager(t, srv)
	m.Start(context.Background())

	require.Eventually(t, func() bool {
		return store.Len() == 1
	}, time.Second, 10*time.Millisecond)

	m.Restart(context.Background())
	defer m.Stop()

	require.Eventually(t, func() bool {
		return store.Len() == 1
	}, time.Second, 10*time.Millisecond)
}

func TestManager_EnrichLoopAppliesMatchedEnrichment(t *testing.T) {
	providerSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[{"id":"matched"},{"id":"unmatched"}]`))
	}))
	defer providerSrv.Close()

	content, err := json.Marshal(`[{"id":"matched","base_url":"` + providerSrv.URL + `","summary":"s"}]`)
	require.NoError(t, err)
	brainSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{
			"id":"c","object":"chat.completion","created":1,"model":"brain",
			"choices":[{"index":0,"message":{"role":"assistant","content":` + string(content) + `},"finish_reason":"stop"}]
		}`))
	}))
	defer brainSrv.Close()

	m, store := newTestManager(t, providerSrv)
	m.Enricher.Brain = enrich.NewBrainClient(brainSrv.URL, "", "brain")

	m.Start(context.Background())
	defer m.Stop()

	require.Eventually(t, func() bool {
		for _, entry := range store.Snapshot() {
			if entry.ID == "matched" && entry.Summary == "s" {
				return true
			}
		}
		return false
	}, 3*time.Second, 20*time.Millisecond)
}
