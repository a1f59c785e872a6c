package enrich

import (
	"encoding/json"
	"strings"
)

// stripMarkdownFence removes a single ``` or ```json fence wrapping text,
// if present.
func stripMarkdownFence(text string) string {
	trimmed := strings.TrimSpace(text)
	switch {
	case strings.HasPrefix(trimmed, "```json") && strings.HasSuffix(trimmed, "```"):
		return strings.TrimSpace(trimmed[len("```json") : len(trimmed)-3])
	case strings.HasPrefix(trimmed, "```") && strings.HasSuffix(trimmed, "```") && len(trimmed) >= 6:
		return strings.TrimSpace(trimmed[3 : len(trimmed)-3])
	default:
		return trimmed
	}
}

// extractJSONArray is a best-effort extraction of a JSON array from a
// string that should contain one. The brain is expected to return a pure
// JSON list, but in practice may wrap it in markdown fences or surrounding
// prose; this strips fences, tries a fast-path parse, and otherwise finds
// the outermost matching '[' ... ']' pair.
func extractJSONArray(text string) []map[string]json.RawMessage {
	stripped := stripMarkdownFence(text)
	if stripped == "" {
		return nil
	}

	if list, ok := tryParseArray(stripped); ok {
		return list
	}

	start := strings.IndexByte(stripped, '[')
	end := strings.LastIndexByte(stripped, ']')
	if start == -1 || end == -1 || end <= start {
		return nil
	}
	if list, ok := tryParseArray(stripped[start : end+1]); ok {
		return list
	}
	return nil
}

func tryParseArray(s string) ([]map[string]json.RawMessage, bool) {
	var list []map[string]json.RawMessage
	if err := json.Unmarshal([]byte(s), &list); err != nil {
		return nil, false
	}
	return list, true
}
