package enrich

import (
	"context"
	"encoding/json"

	"github.com/nimbus-labs/model-aggregator/catalog"
	"github.com/nimbus-labs/model-aggregator/internal/logging"
)

// matchAndMerge matches brain response entries to the input models by
// (id, base_url) — the open-question resolution documented in
// SPEC_FULL.md §9 — and merges each matched entry's extra fields into that
// model's meta without overwriting existing keys. It returns the models
// that got a match; callers determine "failed" as the complement of
// matched against the original input.
func matchAndMerge(ctx context.Context, inputModels map[catalog.ModelKey]catalog.Model, entries []map[string]json.RawMessage) []catalog.Model {
	log := logging.FromContext(ctx)
	var enriched []catalog.Model

	for _, entry := range entries {
		if err := validateResponseEntry(entry); err != nil {
			log.Warn("brain response entry failed schema validation", "error", err)
			continue
		}

		var id, baseURL string
		_ = json.Unmarshal(entry["id"], &id)
		_ = json.Unmarshal(entry["base_url"], &baseURL)

		key := catalog.ModelKey{ProviderBaseURL: baseURL, ModelID: id}
		model, ok := inputModels[key]
		if !ok {
			log.Warn("brain response entry matched no input model", "id", id, "base_url", baseURL)
			continue
		}

		merged := model
		merged.Meta = model.Meta.Clone()
		merged.Meta.MergeFrom(entry)
		enriched = append(enriched, merged)
	}

	return enriched
}
