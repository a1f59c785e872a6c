// Package fetch implements the provider fetcher and aggregator: dialing
// each configured provider's /models endpoint, tolerating whatever shape
// it returns, and merging the results into a deterministic, sorted list
// ready for catalog.Store.UpdateModels.
package fetch

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/nimbus-labs/model-aggregator/catalog"
	"github.com/nimbus-labs/model-aggregator/internal/circuitbreaker"
	"github.com/nimbus-labs/model-aggregator/internal/logging"
	"github.com/nimbus-labs/model-aggregator/internal/metrics"
)

// rawEntry is one element of whatever shape a provider's /models endpoint
// returns, decoded just far enough to know whether it's usable.
type rawEntry = map[string]json.RawMessage

// taggedList is the envelope shape a provider may wrap its entries in:
// {"data": [...]} or {"data": {...}} (a lone object).
type taggedList struct {
	Data json.RawMessage `json:"data"`
}

// FetchProvider dials a single provider's /models endpoint and returns its
// current model list. It never returns an error to the caller: any
// failure (unreachable, timeout, non-2xx, malformed JSON, circuit open) is
// logged and yields an empty slice, so one broken provider never starves
// the others.
func FetchProvider(ctx context.Context, client *http.Client, p *catalog.Provider, timeout time.Duration, breaker *circuitbreaker.CircuitBreaker) []catalog.Model {
	log := logging.FromContext(ctx).With("provider", p.BaseURL)

	if breaker != nil && !breaker.Allow() {
		metrics.ProviderFetchErrors.WithLabelValues(p.BaseURL, "circuit_open").Inc()
		log.Warn("provider fetch skipped, circuit open")
		return nil
	}

	reqCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	url := p.InternalBaseURL + "/models"
	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, url, nil)
	if err != nil {
		recordFailure(breaker)
		metrics.ProviderFetchErrors.WithLabelValues(p.BaseURL, "connection").Inc()
		log.Error("failed to build discovery request", "error", err)
		return nil
	}
	if p.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+p.APIKey)
	}

	resp, err := client.Do(req)
	if err != nil {
		recordFailure(breaker)
		metrics.ProviderFetchErrors.WithLabelValues(p.BaseURL, "connection").Inc()
		log.Error("provider discovery request failed", "error", err)
		return nil
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		recordFailure(breaker)
		metrics.ProviderFetchErrors.WithLabelValues(p.BaseURL, "connection").Inc()
		log.Error("failed to read discovery response", "error", err)
		return nil
	}

	if resp.StatusCode != http.StatusOK {
		recordFailure(breaker)
		metrics.ProviderFetchErrors.WithLabelValues(p.BaseURL, "http_status").Inc()
		log.Error("provider discovery returned non-200", "status", resp.StatusCode, "body", truncate(body, 256))
		return nil
	}

	entries, err := decodeEntries(body)
	if err != nil {
		recordFailure(breaker)
		metrics.ProviderFetchErrors.WithLabelValues(p.BaseURL, "malformed_payload").Inc()
		log.Error("provider discovery payload malformed", "error", err)
		return nil
	}

	if breaker != nil {
		breaker.RecordSuccess()
	}

	models := make([]catalog.Model, 0, len(entries))
	for _, e := range entries {
		idRaw, ok := e["id"]
		if !ok {
			continue
		}
		var id string
		if err := json.Unmarshal(idRaw, &id); err != nil || id == "" {
			continue
		}
		models = append(models, catalog.Model{
			Key:      catalog.ModelKey{ProviderBaseURL: p.BaseURL, ModelID: id},
			Provider: p,
			Raw:      e,
			Meta:     catalog.ModelMeta{BaseURL: p.BaseURL},
		})
	}
	return models
}

func recordFailure(breaker *circuitbreaker.CircuitBreaker) {
	if breaker != nil {
		breaker.RecordFailure()
	}
}

// decodeEntries accepts the three payload shapes named in spec: a tagged
// list ({"data":[...]}), a tagged singleton ({"data":{...}}), or a bare
// list ([...]). Any other top-level shape yields an error, which callers
// treat as "empty result, logged" — never a panic.
func decodeEntries(body []byte) ([]rawEntry, error) {
	var asList []rawEntry
	if err := json.Unmarshal(body, &asList); err == nil {
		return asList, nil
	}

	var tagged taggedList
	if err := json.Unmarshal(body, &tagged); err == nil && tagged.Data != nil {
		var list []rawEntry
		if err := json.Unmarshal(tagged.Data, &list); err == nil {
			return list, nil
		}
		var single rawEntry
		if err := json.Unmarshal(tagged.Data, &single); err == nil {
			return []rawEntry{single}, nil
		}
		return nil, fmt.Errorf("\"data\" field is neither a list nor an object")
	}

	return nil, fmt.Errorf("payload is neither a list nor a {\"data\": ...} object")
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
