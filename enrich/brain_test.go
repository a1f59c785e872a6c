package enrich

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/openai/openai-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBrainClient_ChatCompletion_ReturnsContent(t *testing.T) {
	var gotAuth, gotModel string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		gotModel, _ = body["model"].(string)

		_, _ = w.Write([]byte(`{
			"id": "chatcmpl-1",
			"object": "chat.completion",
			"created": 1,
			"model": "brain-model",
			"choices": [{"index": 0, "message": {"role": "assistant", "content": "[{\"id\":\"m\"}]"}, "finish_reason": "stop"}]
		}`))
	}))
	defer srv.Close()

	client := NewBrainClient(srv.URL, "brain-model", "brain-model")
	content, err := client.ChatCompletion(context.Background(), []openai.ChatCompletionMessageParamUnion{
		openai.UserMessage("hi"),
	}, 0.2)

	require.NoError(t, err)
	assert.Equal(t, `[{"id":"m"}]`, content)
	assert.Equal(t, "Bearer brain-model", gotAuth)
	assert.Equal(t, "brain-model", gotModel)
}

func TestBrainClient_ChatCompletion_NoAPIKeySendsNoAuth(t *testing.T) {
	var gotAuth string
	gotAuthSet := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotAuthSet = gotAuth != ""
		_, _ = w.Write([]byte(`{
			"id": "chatcmpl-1", "object": "chat.completion", "created": 1, "model": "m",
			"choices": [{"index": 0, "message": {"role": "assistant", "content": "ok"}, "finish_reason": "stop"}]
		}`))
	}))
	defer srv.Close()

	client := NewBrainClient(srv.URL, "", "m")
	_, err := client.ChatCompletion(context.Background(), []openai.ChatCompletionMessageParamUnion{openai.UserMessage("hi")}, 0.2)

	require.NoError(t, err)
	assert.False(t, gotAuthSet, "no Authorization header should be sent without an api key")
}

func TestBrainClient_ChatCompletion_HTTPErrorIsReturned(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error": "boom"}`))
	}))
	defer srv.Close()

	client := NewBrainClient(srv.URL, "", "m")
	_, err := client.ChatCompletion(context.Background(), []openai.ChatCompletionMessageParamUnion{openai.UserMessage("hi")}, 0.2)

	assert.Error(t, err)
}

func TestBrainClient_ChatCompletion_NoChoicesIsAnError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"id":"x","object":"chat.completion","created":1,"model":"m","choices":[]}`))
	}))
	defer srv.Close()

	client := NewBrainClient(srv.URL, "", "m")
	_, err := client.ChatCompletion(context.Background(), []openai.ChatCompletionMessageParamUnion{openai.UserMessage("hi")}, 0.2)

	assert.Error(t, err)
}
