package catalog

import (
	"encoding/json"
	"sort"
	"strings"
)

// Entry is the read-only projection of one catalog model served to
// clients. Its JSON shape is OpenAI's `/v1/models` list-item shape plus
// the spec's enrichment fields, and it enforces SNAPSHOT-PURITY: a
// Provider's InternalBaseURL and APIKey never reach this type.
type Entry struct {
	ID             string                     `json:"id"`
	Object         string                     `json:"object"`
	BaseURL        string                     `json:"base_url"`
	Summary        string                     `json:"summary,omitempty"`
	Types          []string                   `json:"types,omitempty"`
	RecommendedUse string                     `json:"recommended_use,omitempty"`
	Priority       *int                       `json:"priority,omitempty"`
	Size           *int64                     `json:"size,omitempty"`
	Raw            map[string]json.RawMessage `json:"-"`
	Extra          map[string]json.RawMessage `json:"-"`
}

// rawPassthroughSkip lists Raw keys that never flatten into the entry:
// id and object are canonical/derived and always come from ModelKey, never
// from the upstream payload.
var rawPassthroughSkip = map[string]struct{}{
	"id":     {},
	"object": {},
}

// MarshalJSON flattens Raw and Extra alongside the known fields, so every
// upstream provider field and every unrecognized enrichment key round-trips
// into the served payload without a nested wrapper. Precedence on key
// collisions: known struct fields win, then Extra (enrichment), then Raw
// (upstream) — mirroring the original source's dict-of-raw-payload-plus-
// meta-overlay model.
func (e Entry) MarshalJSON() ([]byte, error) {
	type known Entry
	base, err := json.Marshal(known(e))
	if err != nil {
		return nil, err
	}
	if len(e.Raw) == 0 && len(e.Extra) == 0 {
		return base, nil
	}

	var decoded map[string]json.RawMessage
	if err := json.Unmarshal(base, &decoded); err != nil {
		return nil, err
	}

	merged := make(map[string]json.RawMessage, len(decoded)+len(e.Raw)+len(e.Extra))
	for k, v := range decoded {
		merged[k] = v
	}
	for k, v := range e.Raw {
		if _, skip := rawPassthroughSkip[k]; skip {
			continue
		}
		if _, isKnown := decoded[k]; isKnown {
			continue
		}
		merged[k] = v
	}
	for k, v := range e.Extra {
		if _, isKnown := decoded[k]; isKnown {
			continue
		}
		merged[k] = v
	}
	return json.Marshal(merged)
}

// Snapshot returns the current catalog as a client-facing, sorted slice.
// Sort order is (base_url, lower(id)) per spec.md's SNAPSHOT-PURITY note,
// so repeated calls against an unchanged store are byte-for-byte stable.
func (s *Store) Snapshot() []Entry {
	s.mu.Lock()
	models := make([]Model, 0, len(s.models))
	for _, m := range s.models {
		models = append(models, m)
	}
	s.mu.Unlock()

	out := make([]Entry, 0, len(models))
	for _, m := range models {
		out = append(out, ToEntry(m))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].BaseURL != out[j].BaseURL {
			return out[i].BaseURL < out[j].BaseURL
		}
		return strings.ToLower(out[i].ID) < strings.ToLower(out[j].ID)
	})
	return out
}

// ToEntry converts one catalog model into its read-only client-facing
// projection. Exposed so the enricher can build the same public JSON
// shape it sends to the brain as the one served over HTTP. Per spec.md
// §4.A/§4.G, upstream fields in m.Raw are preserved alongside the known
// meta fields and meta.Extra, not discarded.
func ToEntry(m Model) Entry {
	return Entry{
		ID:             m.Key.ModelID,
		Object:         "model",
		BaseURL:        m.Key.ProviderBaseURL,
		Summary:        m.Meta.Summary,
		Types:          m.Meta.Types,
		RecommendedUse: m.Meta.RecommendedUse,
		Priority:       m.Meta.Priority,
		Size:           m.Meta.Size,
		Raw:            m.Raw,
		Extra:          m.Meta.Extra,
	}
}
