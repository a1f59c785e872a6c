package modelagg

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// ConfigEnvVar is the environment variable naming the config file path.
// Unset is a hard startup error, matching spec.md §6.
const ConfigEnvVar = "LLM_AGGREGATOR_CONFIG"

// LoadConfigFromEnv reads ConfigEnvVar and loads the settings it names.
func LoadConfigFromEnv() (*Settings, error) {
	path := os.Getenv(ConfigEnvVar)
	if path == "" {
		return nil, fmt.Errorf("%s is not set", ConfigEnvVar)
	}
	return LoadConfig(path)
}

// LoadConfig reads and parses a config file from the given path. Supported
// formats: JSON (.json), YAML (.yaml, .yml).
func LoadConfig(path string) (*Settings, error) {
	data, err := os.ReadFile(path) //nolint:gosec
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var cfg Settings
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parsing YAML config: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parsing JSON config: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported config file extension %q: use .json, .yaml, or .yml", ext)
	}

	applyDefaults(&cfg)
	return &cfg, nil
}

func applyDefaults(cfg *Settings) {
	if cfg.Host == "" {
		cfg.Host = "0.0.0.0"
	}
	if cfg.Port == 0 {
		cfg.Port = 8080
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if cfg.LogFormat == "" {
		cfg.LogFormat = "json"
	}
	if cfg.Brain.MaxBatchSize == 0 {
		cfg.Brain.MaxBatchSize = 5
	}
	for i := range cfg.Providers {
		if cfg.Providers[i].InternalBaseURL == "" {
			cfg.Providers[i].InternalBaseURL = cfg.Providers[i].BaseURL
		}
	}
	for i := range cfg.Providers {
		g := cfg.Providers[i].FilesSizeGatherer
		if g != nil && g.TimeoutSeconds == 0 {
			g.TimeoutSeconds = 15
		}
	}
	if cfg.FilesSizeGatherer != nil && cfg.FilesSizeGatherer.TimeoutSeconds == 0 {
		cfg.FilesSizeGatherer.TimeoutSeconds = 15
	}
}

var modelIDPlaceholder = regexp.MustCompile(`\{model_id\}`)

// ValidateConfig fails fast on the configuration mistakes spec.md §6 names:
// missing brain prompts, empty provider list, duplicate provider base URLs,
// a model-info source template missing {model_id}, or duplicate slugified
// source names.
func ValidateConfig(cfg Settings) error {
	if strings.TrimSpace(cfg.BrainPrompts.System) == "" {
		return fmt.Errorf("brain_prompts.system must not be empty")
	}
	if strings.TrimSpace(cfg.BrainPrompts.User) == "" {
		return fmt.Errorf("brain_prompts.user must not be empty")
	}
	if cfg.Brain.BaseURL == "" {
		return fmt.Errorf("brain.base_url must not be empty")
	}
	if cfg.Brain.ID == "" {
		return fmt.Errorf("brain.id must not be empty")
	}

	if len(cfg.Providers) == 0 {
		return fmt.Errorf("at least one provider is required")
	}
	seenBaseURLs := make(map[string]struct{}, len(cfg.Providers))
	for _, p := range cfg.Providers {
		if p.BaseURL == "" {
			return fmt.Errorf("provider base_url must not be empty")
		}
		if _, dup := seenBaseURLs[p.BaseURL]; dup {
			return fmt.Errorf("duplicate provider base_url: %q", p.BaseURL)
		}
		seenBaseURLs[p.BaseURL] = struct{}{}
		if g := p.FilesSizeGatherer; g != nil {
			if err := validateGatherer(*g); err != nil {
				return fmt.Errorf("provider %q files_size_gatherer: %w", p.BaseURL, err)
			}
		}
	}

	if cfg.FilesSizeGatherer != nil {
		if err := validateGatherer(*cfg.FilesSizeGatherer); err != nil {
			return fmt.Errorf("files_size_gatherer: %w", err)
		}
	}

	seenSlugs := make(map[string]struct{}, len(cfg.ModelInfoSources))
	for _, s := range cfg.ModelInfoSources {
		if s.Name == "" {
			return fmt.Errorf("model_info_sources entry missing name")
		}
		if !modelIDPlaceholder.MatchString(s.URLTemplate) {
			return fmt.Errorf("model_info_sources %q: url_template must contain {model_id}", s.Name)
		}
		slug := slugify(s.Name)
		if _, dup := seenSlugs[slug]; dup {
			return fmt.Errorf("model_info_sources: duplicate slug %q (from name %q)", slug, s.Name)
		}
		seenSlugs[slug] = struct{}{}
	}

	return nil
}

func validateGatherer(g FilesSizeGathererConfig) error {
	if strings.TrimSpace(g.Path) == "" {
		return fmt.Errorf("path must not be empty")
	}
	if strings.TrimSpace(g.BasePath) == "" {
		return fmt.Errorf("base_path must not be empty")
	}
	return nil
}

var slugNonAlnum = regexp.MustCompile(`[^a-z0-9]+`)

// slugify matches docinfo's source-key normalization so validation catches
// the same collisions the doc fetcher would otherwise silently merge.
func slugify(name string) string {
	s := strings.ToLower(strings.TrimSpace(name))
	s = slugNonAlnum.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}
