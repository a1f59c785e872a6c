package catalog

import "encoding/json"

// ModelMeta is the tagged container described in the design notes: known
// fields get first-class struct fields, anything else lands in Extra so
// unrecognized provider or brain fields survive round-trips.
type ModelMeta struct {
	BaseURL        string
	Summary        string
	Types          []string
	RecommendedUse string
	Priority       *int
	Size           *int64
	Extra          map[string]json.RawMessage
}

// knownMetaFields lists the struct fields MergeFrom treats specially; any
// other key from a merge source goes into Extra.
var knownMetaFields = map[string]struct{}{
	"base_url":        {},
	"summary":         {},
	"types":           {},
	"recommended_use": {},
	"priority":        {},
	"size":            {},
	"id":              {}, // never stored: the canonical id always comes from ModelKey
	"provider":        {}, // matching hint only, never stored as meta
}

// MergeFrom merges fields from a brain/provider response into m, without
// overwriting any field that already has a value. This is the single rule
// named in spec.md §4.E step 6 and design note §9, applied uniformly to
// known fields and to Extra.
func (m *ModelMeta) MergeFrom(fields map[string]json.RawMessage) {
	if m.Extra == nil {
		m.Extra = make(map[string]json.RawMessage)
	}
	for key, raw := range fields {
		switch key {
		case "base_url":
			continue // identity field, never overwritten from a merge source
		case "id", "provider":
			continue // matching hints, not stored
		case "summary":
			if m.Summary == "" {
				var v string
				if json.Unmarshal(raw, &v) == nil {
					m.Summary = v
				}
			}
		case "types":
			if len(m.Types) == 0 {
				var v []string
				if json.Unmarshal(raw, &v) == nil {
					m.Types = v
				}
			}
		case "recommended_use":
			if m.RecommendedUse == "" {
				var v string
				if json.Unmarshal(raw, &v) == nil {
					m.RecommendedUse = v
				}
			}
		case "priority":
			if m.Priority == nil {
				var v int
				if json.Unmarshal(raw, &v) == nil {
					m.Priority = &v
				}
			}
		case "size":
			if m.Size == nil {
				var v int64
				if json.Unmarshal(raw, &v) == nil {
					m.Size = &v
				}
			}
		default:
			if _, exists := m.Extra[key]; !exists {
				m.Extra[key] = raw
			}
		}
	}
}

// Clone returns a deep-enough copy of m suitable for storing an
// independently mutable model record.
func (m ModelMeta) Clone() ModelMeta {
	out := m
	if m.Types != nil {
		out.Types = append([]string(nil), m.Types...)
	}
	if m.Priority != nil {
		p := *m.Priority
		out.Priority = &p
	}
	if m.Size != nil {
		s := *m.Size
		out.Size = &s
	}
	if m.Extra != nil {
		out.Extra = make(map[string]json.RawMessage, len(m.Extra))
		for k, v := range m.Extra {
			out.Extra[k] = v
		}
	}
	return out
}

// Model is one catalog entry: its identity, a back-reference to the
// provider that produced it, the raw upstream payload verbatim, and
// whatever enrichment metadata has accumulated.
type Model struct {
	Key      ModelKey
	Provider *Provider
	Raw      map[string]json.RawMessage
	Meta     ModelMeta
}

// providerMetaEquivalent compares the provider-sourced fields of two raw
// payloads for §4.C's "provider meta changed" re-enqueue rule. Two raw
// payloads are equivalent iff they marshal identically once the canonical
// id/object fields are ignored (those are derived, not provider metadata).
func providerMetaEquivalent(a, b map[string]json.RawMessage) bool {
	for k, av := range a {
		if k == "id" || k == "object" {
			continue
		}
		bv, ok := b[k]
		if !ok || string(av) != string(bv) {
			return false
		}
	}
	for k := range b {
		if k == "id" || k == "object" {
			continue
		}
		if _, ok := a[k]; !ok {
			return false
		}
	}
	return true
}
