package enrich

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
)

func rawEntry(t *testing.T, fields map[string]any) map[string]json.RawMessage {
	t.Helper()
	out := make(map[string]json.RawMessage, len(fields))
	for k, v := range fields {
		b, err := json.Marshal(v)
		if err != nil {
			t.Fatalf("marshal %q: %v", k, err)
		}
		out[k] = b
	}
	return out
}

func TestValidateResponseEntry_Valid(t *testing.T) {
	entry := rawEntry(t, map[string]any{"id": "m", "base_url": "https://x", "summary": "s"})
	assert.NoError(t, validateResponseEntry(entry))
}

func TestValidateResponseEntry_MissingID(t *testing.T) {
	entry := rawEntry(t, map[string]any{"base_url": "https://x"})
	assert.Error(t, validateResponseEntry(entry))
}

func TestValidateResponseEntry_EmptyBaseURL(t *testing.T) {
	entry := rawEntry(t, map[string]any{"id": "m", "base_url": ""})
	assert.Error(t, validateResponseEntry(entry))
}

func TestValidateResponseEntry_NonStringID(t *testing.T) {
	entry := rawEntry(t, map[string]any{"id": 5, "base_url": "https://x"})
	assert.Error(t, validateResponseEntry(entry))
}
