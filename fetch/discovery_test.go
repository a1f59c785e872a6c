package fetch

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
	"github.com/nimbus-labs/model-aggregator/internal/circuitbreaker"
)

func newProvider(t *testing.T, srv *httptest.Server) *catalog.Provider {
	t.Helper()
	return &catalog.Provider{BaseURL: srv.URL, InternalBaseURL: srv.URL}
}

func TestFetchProvider_TaggedList(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"object":"list","data":[{"id":"model-a","owned_by":"acme"},{"id":"model-b"}]}`))
	}))
	defer srv.Close()

	models := FetchProvider(context.Background(), srv.Client(), newProvider(t, srv), time.Second, nil)

	require.Len(t, models, 2)
	assert.Equal(t, "model-a", models[0].Key.ModelID)
	assert.Equal(t, srv.URL, models[0].Key.ProviderBaseURL)
	assert.Equal(t, srv.URL, models[0].Meta.BaseURL)
	assert.JSONEq(t, `"acme"`, string(models[0].Raw["owned_by"]))

	entry := catalog.ToEntry(models[0])
	b, err := json.Marshal(entry)
	require.NoError(t, err)
	var decoded map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(b, &decoded))
	assert.JSONEq(t, `"acme"`, string(decoded["owned_by"]))
}

func TestFetchProvider_TaggedSingleton(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data":{"id":"solo-model"}}`))
	}))
	defer srv.Close()

	models := FetchProvider(context.Background(), srv.Client(), newProvider(t, srv), time.Second, nil)

	require.Len(t, models, 1)
	assert.Equal(t, "solo-model", models[0].Key.ModelID)
}

func TestFetchProvider_BareList(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[{"id":"bare-model"}]`))
	}))
	defer srv.Close()

	models := FetchProvider(context.Background(), srv.Client(), newProvider(t, srv), time.Second, nil)

	require.Len(t, models, 1)
	assert.Equal(t, "bare-model", models[0].Key.ModelID)
}

func TestFetchProvider_UnknownShapeYieldsEmpty(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`"just a string"`))
	}))
	defer srv.Close()

	models := FetchProvider(context.Background(), srv.Client(), newProvider(t, srv), time.Second, nil)

	assert.Empty(t, models)
}

func TestFetchProvider_EntryWithoutStringIDIsSkipped(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[{"no_id":"x"},{"id":123},{"id":"ok"}]`))
	}))
	defer srv.Close()

	models := FetchProvider(context.Background(), srv.Client(), newProvider(t, srv), time.Second, nil)

	require.Len(t, models, 1)
	assert.Equal(t, "ok", models[0].Key.ModelID)
}

func TestFetchProvider_NonOKStatusYieldsEmpty(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`boom`))
	}))
	defer srv.Close()

	models := FetchProvider(context.Background(), srv.Client(), newProvider(t, srv), time.Second, nil)

	assert.Empty(t, models)
}

func TestFetchProvider_UnreachableYieldsEmpty(t *testing.T) {
	p := &catalog.Provider{BaseURL: "https://dead.example", InternalBaseURL: "http://127.0.0.1:1"}

	models := FetchProvider(context.Background(), http.DefaultClient, p, 200*time.Millisecond, nil)

	assert.Empty(t, models)
}

func TestFetchProvider_BearerHeaderSentWhenAPIKeySet(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		_, _ = w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	p := newProvider(t, srv)
	p.APIKey = "secret-key"
	FetchProvider(context.Background(), srv.Client(), p, time.Second, nil)

	assert.Equal(t, "Bearer secret-key", gotAuth)
}

func TestFetchProvider_CircuitOpenSkipsDial(t *testing.T) {
	dialed := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		dialed = true
		_, _ = w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	cb := circuitbreaker.New(1, 1, time.Minute)
	cb.RecordFailure() // opens after 1 failure

	models := FetchProvider(context.Background(), srv.Client(), newProvider(t, srv), time.Second, cb)

	assert.Empty(t, models)
	assert.False(t, dialed, "dial must be skipped while circuit is open")
}
