// Package modelagg holds the aggregator's settings type and loader. The
// core catalog engine lives in sibling packages (catalog, fetch, enrich,
// docinfo, tasks); this package is the thin, out-of-core configuration
// surface spec.md §6 describes.
package modelagg

import (
	"encoding/json"
	"fmt"
	"time"
)

// Duration wraps time.Duration so config files can write "30s" / "12h"
// instead of raw nanosecond integers, for both YAML and JSON.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(unmarshal func(any) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (d *Duration) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// MarshalJSON implements json.Marshaler.
func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

// Dur returns the underlying time.Duration.
func (d Duration) Dur() time.Duration { return time.Duration(d) }

// Settings is the aggregator's validated configuration, built once at
// startup and owned by the process entry point — never a package-level
// global.
type Settings struct {
	Host string `json:"host" yaml:"host"`
	Port int    `json:"port" yaml:"port"`

	LogLevel        string            `json:"log_level" yaml:"log_level"`
	LogFormat       string            `json:"log_format" yaml:"log_format"`
	LoggerOverrides map[string]string `json:"logger_overrides,omitempty" yaml:"logger_overrides,omitempty"`

	Brain        BrainConfig  `json:"brain" yaml:"brain"`
	BrainPrompts PromptConfig `json:"brain_prompts" yaml:"brain_prompts"`
	Time         TimeConfig   `json:"time" yaml:"time"`

	Providers []ProviderConfig `json:"providers" yaml:"providers"`

	// FilesSizeGatherer is the global default used by providers that don't
	// set their own.
	FilesSizeGatherer *FilesSizeGathererConfig `json:"files_size_gatherer,omitempty" yaml:"files_size_gatherer,omitempty"`

	ModelInfoSources []ModelInfoSourceConfig `json:"model_info_sources,omitempty" yaml:"model_info_sources,omitempty"`

	UI UIConfig `json:"ui" yaml:"ui"`
}

// BrainConfig describes the enrichment LLM endpoint.
type BrainConfig struct {
	BaseURL      string `json:"base_url" yaml:"base_url"`
	ID           string `json:"id" yaml:"id"`
	APIKey       string `json:"api_key,omitempty" yaml:"api_key,omitempty"`
	MaxBatchSize int    `json:"max_batch_size" yaml:"max_batch_size"`
}

// PromptConfig holds the brain's prompt templates.
type PromptConfig struct {
	System                  string `json:"system" yaml:"system"`
	User                    string `json:"user" yaml:"user"`
	ModelInfoPrefixTemplate string `json:"model_info_prefix_template" yaml:"model_info_prefix_template"`
}

// TimeConfig holds every configurable duration in the system. Values are
// parsed as Go duration strings ("30s", "12h") by the loader.
type TimeConfig struct {
	FetchModelsInterval     Duration `json:"fetch_models_interval" yaml:"fetch_models_interval"`
	FetchModelsTimeout      Duration `json:"fetch_models_timeout" yaml:"fetch_models_timeout"`
	EnrichModelsTimeout     Duration `json:"enrich_models_timeout" yaml:"enrich_models_timeout"`
	EnrichIdleSleep         Duration `json:"enrich_idle_sleep" yaml:"enrich_idle_sleep"`
	WebsiteMarkdownCacheTTL Duration `json:"website_markdown_cache_ttl" yaml:"website_markdown_cache_ttl"`
}

// ProviderConfig is one upstream OpenAI-compatible endpoint, as read from
// config. See catalog.Provider for the resolved runtime form.
type ProviderConfig struct {
	BaseURL           string                   `json:"base_url" yaml:"base_url"`
	InternalBaseURL   string                   `json:"internal_base_url,omitempty" yaml:"internal_base_url,omitempty"`
	APIKey            string                   `json:"api_key,omitempty" yaml:"api_key,omitempty"`
	FilesSizeGatherer *FilesSizeGathererConfig `json:"files_size_gatherer,omitempty" yaml:"files_size_gatherer,omitempty"`
}

// FilesSizeGathererConfig configures the external model-size script.
type FilesSizeGathererConfig struct {
	Path           string `json:"path" yaml:"path"`
	BasePath       string `json:"base_path" yaml:"base_path"`
	TimeoutSeconds int    `json:"timeout_seconds,omitempty" yaml:"timeout_seconds,omitempty"`
}

// ModelInfoSourceConfig names one scraped documentation source.
type ModelInfoSourceConfig struct {
	Name        string `json:"name" yaml:"name"`
	URLTemplate string `json:"url_template" yaml:"url_template"`
}

// UIConfig controls the static UI the HTTP surface serves.
type UIConfig struct {
	StaticEnabled    bool   `json:"static_enabled" yaml:"static_enabled"`
	CustomStaticPath string `json:"custom_static_path,omitempty" yaml:"custom_static_path,omitempty"`
}
