// Package docinfo implements the documentation fetcher: pulling markdown
// snippets about a model from configured external catalog websites,
// behind a TTL+LRU negative-caching layer.
package docinfo

import (
	"fmt"
	"regexp"
	"strings"
)

// WebsiteSource is one configured external catalog page. URLTemplate must
// contain the literal placeholder "{model_id}".
type WebsiteSource struct {
	Key           string
	ProviderLabel string
	URLTemplate   string
}

// BuildURL renders the source's template for the given (already
// normalized) model id.
func (s WebsiteSource) BuildURL(modelID string) string {
	return strings.ReplaceAll(s.URLTemplate, "{model_id}", modelID)
}

var slugNonAlnum = regexp.MustCompile(`[^a-z0-9]+`)

func slugify(value string) (string, error) {
	slug := slugNonAlnum.ReplaceAllString(strings.ToLower(value), "-")
	slug = strings.Trim(slug, "-")
	if slug == "" {
		return "", fmt.Errorf("model info source name must contain alphanumeric characters")
	}
	return slug, nil
}

// SourceConfig is the configuration-level shape a WebsiteSource is built
// from; it mirrors modelagg.ModelInfoSourceConfig without importing the
// root package, keeping docinfo dependency-free of process wiring.
type SourceConfig struct {
	Name        string
	URLTemplate string
}

// BuildSources validates and slugifies a list of source configs into
// WebsiteSource values. Config-time validation (ValidateConfig) already
// rejects missing placeholders and duplicate slugs; this performs the same
// checks defensively so docinfo is safe to use standalone.
func BuildSources(configs []SourceConfig) ([]WebsiteSource, error) {
	if len(configs) == 0 {
		return nil, nil
	}

	sources := make([]WebsiteSource, 0, len(configs))
	seen := make(map[string]struct{}, len(configs))

	for _, cfg := range configs {
		label := strings.TrimSpace(cfg.Name)
		template := strings.TrimSpace(cfg.URLTemplate)

		if label == "" {
			return nil, fmt.Errorf("model_info_sources entry missing name")
		}
		if template == "" {
			return nil, fmt.Errorf("model_info_sources entry %q missing url_template", label)
		}
		if !strings.Contains(template, "{model_id}") {
			return nil, fmt.Errorf("url_template for %q must include {model_id}", label)
		}

		key, err := slugify(label)
		if err != nil {
			return nil, err
		}
		if _, dup := seen[key]; dup {
			return nil, fmt.Errorf("duplicate model_info source key %q, provide unique names", key)
		}
		seen[key] = struct{}{}

		sources = append(sources, WebsiteSource{Key: key, ProviderLabel: label, URLTemplate: template})
	}

	return sources, nil
}

// NormalizeModelID trims everything from the first ':' onward, e.g.
// "llama3:8b" -> "llama3".
func NormalizeModelID(id string) string {
	if i := strings.IndexByte(id, ':'); i >= 0 {
		return id[:i]
	}
	return id
}
