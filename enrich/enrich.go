package enrich

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/openai/openai-go"

	"github.com/nimbus-labs/model-aggregator/catalog"
	"github.com/nimbus-labs/model-aggregator/docinfo"
	"github.com/nimbus-labs/model-aggregator/internal/logging"
	"github.com/nimbus-labs/model-aggregator/internal/metrics"
)

const brainTemperature = 0.2

// Prompts holds the configured prompt templates used to build the brain's
// chat message list.
type Prompts struct {
	System                  string
	User                    string
	ModelInfoPrefixTemplate string
}

// Enricher runs the sequential, one-model-at-a-time enrichment batch
// described by spec.md §4.E: gather a model's file size, fetch its
// documentation snippets, ask the brain for structured metadata, and merge
// whatever comes back without clobbering what's already known.
type Enricher struct {
	Brain             *BrainClient
	Docs              *docinfo.Fetcher
	Prompts           Prompts
	FilesSizeGatherer *catalog.FilesSizeGathererConfig
}

// EnrichBatch processes models sequentially — the brain is a constrained
// serial resource, so there is deliberately no per-model fan-out here. It
// returns the models that got at least one matching response entry merged
// in, and separately the ones that didn't (empty response, no match, parse
// failure) for the caller to requeue.
func (e *Enricher) EnrichBatch(ctx context.Context, models []catalog.Model) (enriched, failed []catalog.Model) {
	for _, model := range models {
		start := time.Now()
		result := e.enrichOne(ctx, model)
		outcome := "failed"
		if result != nil {
			outcome = "enriched"
			enriched = append(enriched, *result)
		} else {
			failed = append(failed, model)
		}
		metrics.EnrichDuration.WithLabelValues(outcome).Observe(time.Since(start).Seconds())
	}
	return enriched, failed
}

// enrichOne runs steps 1-6 of §4.E for a single model and returns the
// merged model, or nil if no response entry matched it.
func (e *Enricher) enrichOne(ctx context.Context, model catalog.Model) *catalog.Model {
	log := logging.FromContext(ctx).With("model_id", model.Key.ModelID, "base_url", model.Key.ProviderBaseURL)

	if model.Meta.Size == nil {
		gatherer := resolveGathererConfig(model.Provider, e.FilesSizeGatherer)
		if gatherer != nil {
			if size, ok := GatherFilesSize(ctx, gatherer, model.Key.ModelID); ok {
				model.Meta.Size = &size
			}
		}
	}

	var snippets []docinfo.Snippet
	if e.Docs != nil {
		snippets = e.Docs.FetchModelMarkdown(ctx, model.Key.ModelID)
	}

	messages, err := e.buildMessages(model, snippets)
	if err != nil {
		log.Error("failed to build enrichment messages", "error", err)
		return nil
	}

	content, err := e.Brain.ChatCompletion(ctx, messages, brainTemperature)
	if err != nil || strings.TrimSpace(content) == "" {
		log.Warn("brain returned no usable content", "error", err)
		return nil
	}

	entries := extractJSONArray(content)
	if len(entries) == 0 {
		log.Warn("brain response contained no parseable entries")
		return nil
	}

	inputModels := map[catalog.ModelKey]catalog.Model{model.Key: model}
	matched := matchAndMerge(ctx, inputModels, entries)
	if len(matched) == 0 {
		return nil
	}
	return &matched[0]
}

// buildMessages assembles the chat message list per spec.md §4.E step 3:
// system prompt, user prompt, one message per doc snippet, then the final
// single-item JSON array describing the model in its public (snapshot)
// form.
func (e *Enricher) buildMessages(model catalog.Model, snippets []docinfo.Snippet) ([]openai.ChatCompletionMessageParamUnion, error) {
	messages := []openai.ChatCompletionMessageParamUnion{
		openai.SystemMessage(e.Prompts.System),
		openai.UserMessage(e.Prompts.User),
	}

	for _, snippet := range snippets {
		prefix := e.renderPrefix(snippet)
		content := prefix + "\n\n" + strings.TrimSpace(snippet.Markdown)
		messages = append(messages, openai.UserMessage(content))
	}

	entry := catalog.ToEntry(model)
	modelJSON, err := json.Marshal([]catalog.Entry{entry})
	if err != nil {
		return nil, err
	}
	messages = append(messages, openai.UserMessage(string(modelJSON)))

	return messages, nil
}

// renderPrefix substitutes {model_id} and {provider_label} in the
// configured template. A malformed template (e.g. referencing a field
// that doesn't exist) degrades gracefully: substitution is literal
// string replacement, so there's nothing to fail on beyond an empty
// template, which just yields an empty prefix.
func (e *Enricher) renderPrefix(snippet docinfo.Snippet) string {
	template := e.Prompts.ModelInfoPrefixTemplate
	if template == "" {
		template = "Model-Info for {model_id} from {provider_label}:"
	}
	replacer := strings.NewReplacer(
		"{model_id}", snippet.ModelID,
		"{provider_label}", snippet.SourceLabel,
	)
	return replacer.Replace(template)
}
