// Command modelaggd is the aggregator's long-running server: it loads
// config, builds the provider registry, starts the refresh and enrichment
// loops, and serves the read-only catalog over HTTP.
package main

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	modelagg "github.com/nimbus-labs/model-aggregator"
	"github.com/nimbus-labs/model-aggregator/catalog"
	"github.com/nimbus-labs/model-aggregator/docinfo"
	"github.com/nimbus-labs/model-aggregator/enrich"
	"github.com/nimbus-labs/model-aggregator/fetch"
	"github.com/nimbus-labs/model-aggregator/internal/clearlimit"
	"github.com/nimbus-labs/model-aggregator/internal/logging"
	"github.com/nimbus-labs/model-aggregator/internal/statsring"
	"github.com/nimbus-labs/model-aggregator/internal/version"
	"github.com/nimbus-labs/model-aggregator/tasks"
)

func main() {
	cfg, err := modelagg.LoadConfigFromEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "loading config: %v\n", err)
		os.Exit(1)
	}
	if err := modelagg.ValidateConfig(*cfg); err != nil {
		fmt.Fprintf(os.Stderr, "invalid config: %v\n", err)
		os.Exit(1)
	}

	logging.SetupWithOverrides(cfg.LogLevel, cfg.LogFormat, cfg.LoggerOverrides)
	log := logging.Logger
	log.Info("starting modelaggd", "version", version.Short())

	registry := catalog.NewProviderRegistry(resolveProviders(cfg.Providers))
	store := catalog.NewStore()
	aggregator := fetch.NewAggregator(http.DefaultClient, registry, cfg.Time.FetchModelsTimeout.Dur())

	sources, err := docinfo.BuildSources(toSourceConfigs(cfg.ModelInfoSources))
	if err != nil {
		log.Error("invalid model_info_sources", "error", err)
		os.Exit(1)
	}
	docs := docinfo.NewFetcher(sources, cfg.Time.WebsiteMarkdownCacheTTL.Dur())

	brain := enrich.NewBrainClient(cfg.Brain.BaseURL, cfg.Brain.APIKey, cfg.Brain.ID)
	enricher := &enrich.Enricher{
		Brain: brain,
		Docs:  docs,
		Prompts: enrich.Prompts{
			System:                  cfg.BrainPrompts.System,
			User:                    cfg.BrainPrompts.User,
			ModelInfoPrefixTemplate: cfg.BrainPrompts.ModelInfoPrefixTemplate,
		},
		FilesSizeGatherer: toCatalogGatherer(cfg.FilesSizeGatherer),
	}

	stats := statsring.New(0)

	manager := &tasks.Manager{
		Store:           store,
		Aggregator:      aggregator,
		Enricher:        enricher,
		Stats:           stats,
		FetchInterval:   cfg.Time.FetchModelsInterval.Dur(),
		EnrichIdleSleep: cfg.Time.EnrichIdleSleep.Dur(),
		EnrichBatchSize: cfg.Brain.MaxBatchSize,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	manager.Start(ctx)

	srv := &server{
		store:       store,
		stats:       stats,
		manager:     manager,
		clearLimit:  clearlimit.New(1, 3),
		corsOrigins: corsOriginsFromEnv(),
		staticUI:    cfg.UI.StaticEnabled,
	}

	addr := cfg.Host + ":" + strconv.Itoa(cfg.Port)
	httpServer := &http.Server{
		Addr:         addr,
		Handler:      newRouter(srv),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		log.Info("shutting down gracefully")
		manager.Stop()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			log.Error("shutdown error", "error", err)
		}
	}()

	log.Info("listening", "addr", addr)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		stop()
		log.Error("server error", "error", err)
		os.Exit(1)
	}
	log.Info("server stopped")
}

func resolveProviders(configs []modelagg.ProviderConfig) []*catalog.Provider {
	out := make([]*catalog.Provider, 0, len(configs))
	for _, c := range configs {
		out = append(out, &catalog.Provider{
			BaseURL:           c.BaseURL,
			InternalBaseURL:   c.InternalBaseURL,
			APIKey:            c.APIKey,
			Label:             labelFromBaseURL(c.BaseURL),
			FilesSizeGatherer: toCatalogGatherer(c.FilesSizeGatherer),
		})
	}
	return out
}

func labelFromBaseURL(baseURL string) string {
	if u, err := url.Parse(baseURL); err == nil && u.Host != "" {
		return u.Host
	}
	return baseURL
}

func toCatalogGatherer(c *modelagg.FilesSizeGathererConfig) *catalog.FilesSizeGathererConfig {
	if c == nil {
		return nil
	}
	return &catalog.FilesSizeGathererConfig{
		Path:           c.Path,
		BasePath:       c.BasePath,
		TimeoutSeconds: c.TimeoutSeconds,
	}
}

func toSourceConfigs(configs []modelagg.ModelInfoSourceConfig) []docinfo.SourceConfig {
	out := make([]docinfo.SourceConfig, 0, len(configs))
	for _, c := range configs {
		out = append(out, docinfo.SourceConfig{Name: c.Name, URLTemplate: c.URLTemplate})
	}
	return out
}

func corsOriginsFromEnv() []string {
	origins := os.Getenv("CORS_ORIGINS")
	if origins == "" {
		return nil
	}
	return strings.Split(origins, ",")
}
