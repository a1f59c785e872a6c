package docinfo

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"

	"github.com/nimbus-labs/model-aggregator/internal/cache"
	"github.com/nimbus-labs/model-aggregator/internal/logging"
)

// Snippet is one documentation fragment pulled from a configured website
// source for a given model.
type Snippet struct {
	SourceLabel string
	ModelID     string
	Markdown    string
}

// Extractor renders a URL to markdown. The default implementation fetches
// the page over HTTP and converts it with html-to-markdown; tests supply a
// fake.
type Extractor interface {
	Extract(ctx context.Context, url string) (string, error)
}

// HTTPExtractor fetches url's body over HTTP and converts the rendered
// HTML to markdown in-process, replacing the original implementation's
// out-of-process extract2md helper (no Go equivalent exists; an in-process
// converter from the same ecosystem the example pack uses for this job is
// the idiomatic substitute).
type HTTPExtractor struct {
	Client *http.Client
}

// Extract implements Extractor.
func (e HTTPExtractor) Extract(ctx context.Context, url string) (string, error) {
	client := e.Client
	if client == nil {
		client = http.DefaultClient
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("building request: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetching page: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("page returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 5<<20))
	if err != nil {
		return "", fmt.Errorf("reading page body: %w", err)
	}

	markdown, err := htmltomarkdown.ConvertString(string(body))
	if err != nil {
		return "", fmt.Errorf("converting html to markdown: %w", err)
	}
	return markdown, nil
}

// Fetcher pulls documentation snippets for a model from every configured
// website source, caching results (including confirmed misses) for TTL.
type Fetcher struct {
	Sources   []WebsiteSource
	Cache     cache.Cache
	Extractor Extractor
	TTL       time.Duration
}

// NewFetcher builds a Fetcher with an in-memory TTL+LRU cache and the
// default HTTP+html-to-markdown extractor.
func NewFetcher(sources []WebsiteSource, ttl time.Duration) *Fetcher {
	return &Fetcher{
		Sources:   sources,
		Cache:     cache.NewMemory(4096, ttl),
		Extractor: HTTPExtractor{},
		TTL:       ttl,
	}
}

// FetchModelMarkdown returns markdown snippets from every configured
// source for modelID (not yet normalized), preserving source order and
// dropping empty results. Per-source fetches run concurrently; a single
// source's failure never aborts the others.
func (f *Fetcher) FetchModelMarkdown(ctx context.Context, modelID string) []Snippet {
	normalized := NormalizeModelID(modelID)
	if len(f.Sources) == 0 {
		return nil
	}

	results := make([]*string, len(f.Sources))
	var wg sync.WaitGroup
	for i, source := range f.Sources {
		wg.Add(1)
		go func(i int, source WebsiteSource) {
			defer wg.Done()
			results[i] = f.getMarkdownForSource(ctx, source, normalized)
		}(i, source)
	}
	wg.Wait()

	snippets := make([]Snippet, 0, len(f.Sources))
	for i, source := range f.Sources {
		if results[i] != nil && *results[i] != "" {
			snippets = append(snippets, Snippet{
				SourceLabel: source.ProviderLabel,
				ModelID:     normalized,
				Markdown:    *results[i],
			})
		}
	}
	return snippets
}

func (f *Fetcher) getMarkdownForSource(ctx context.Context, source WebsiteSource, modelID string) *string {
	cacheKey := source.Key + "\x00" + modelID
	if cached, ok := f.Cache.Get(cacheKey); ok {
		return cached
	}

	markdown := f.downloadMarkdown(ctx, source, modelID)
	f.Cache.Set(cacheKey, markdown)
	return markdown
}

func (f *Fetcher) downloadMarkdown(ctx context.Context, source WebsiteSource, modelID string) *string {
	url := source.BuildURL(modelID)
	markdown, err := f.Extractor.Extract(ctx, url)
	if err != nil {
		logging.FromContext(ctx).Debug("website markdown extraction failed", "source", source.Key, "url", url, "error", err)
		return nil
	}
	if markdown == "" {
		return nil
	}
	return &markdown
}
