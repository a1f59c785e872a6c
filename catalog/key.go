// Package catalog implements the model catalog engine: the in-memory
// authoritative store of discovered models, the deduplicating enrichment
// queue, and the read-only snapshot projection served to clients.
package catalog

import "strings"

// ModelKey is the equality/hash key for a model: two models are the same
// iff their provider base URL and model id match.
type ModelKey struct {
	ProviderBaseURL string
	ModelID         string
}

// Provider is a resolved, validated reference to one upstream endpoint.
// InternalBaseURL is the URL actually dialled; it defaults to BaseURL when
// the operator doesn't set an override, and must never leak into a snapshot.
type Provider struct {
	BaseURL         string
	InternalBaseURL string
	APIKey          string
	Label           string
	FilesSizeGatherer *FilesSizeGathererConfig
}

// FilesSizeGathererConfig describes the external script used to gather a
// model's on-disk footprint, per-provider or as a global default.
type FilesSizeGathererConfig struct {
	Path           string
	BasePath       string
	TimeoutSeconds int
}

// ProviderRegistry looks providers up by base URL. Adapted from the
// teacher's providers.Registry, re-keyed from provider name to base URL to
// match ModelKey's identity rule.
type ProviderRegistry struct {
	byBaseURL map[string]*Provider
}

// NewProviderRegistry builds a registry from a list of resolved providers.
func NewProviderRegistry(providers []*Provider) *ProviderRegistry {
	r := &ProviderRegistry{byBaseURL: make(map[string]*Provider, len(providers))}
	for _, p := range providers {
		r.byBaseURL[p.BaseURL] = p
	}
	return r
}

// Get returns the provider registered under baseURL, if any.
func (r *ProviderRegistry) Get(baseURL string) (*Provider, bool) {
	p, ok := r.byBaseURL[baseURL]
	return p, ok
}

// All returns every registered provider in no particular order.
func (r *ProviderRegistry) All() []*Provider {
	out := make([]*Provider, 0, len(r.byBaseURL))
	for _, p := range r.byBaseURL {
		out = append(out, p)
	}
	return out
}

// normalizeModelID strips everything from the first ':' onward, matching
// the documentation fetcher's id-normalization rule (e.g. "llama3:8b" ->
// "llama3"). docinfo.NormalizeModelID applies the same rule; the doc
// fetcher uses that copy, not this one.
func normalizeModelID(id string) string {
	if i := strings.IndexByte(id, ':'); i >= 0 {
		return id[:i]
	}
	return id
}

// NormalizeModelID exposes normalizeModelID for other packages.
func NormalizeModelID(id string) string {
	return normalizeModelID(id)
}
