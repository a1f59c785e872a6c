package enrich

import (
	"context"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/nimbus-labs/model-aggregator/internal/logging"
)

// BrainClient calls the configured enrichment LLM with a chat-completion
// request and returns the raw text content of its first choice. A bearer
// token is sent only when apiKey is non-empty, mirroring the brain's
// convention that the token equals the model id when set at all.
type BrainClient struct {
	client openai.Client
	model  string
}

// NewBrainClient builds a client pointed at the brain's base URL.
func NewBrainClient(baseURL, apiKey, model string) *BrainClient {
	opts := []option.RequestOption{option.WithBaseURL(baseURL)}
	if apiKey != "" {
		opts = append(opts, option.WithAPIKey(apiKey))
	}
	return &BrainClient{client: openai.NewClient(opts...), model: model}
}

// ChatCompletion sends messages with the given temperature and returns the
// first choice's message content. Any transport, HTTP, or shape error is
// logged and reported back as ("", err) so the caller treats it the same
// as a malformed JSON response — the enrichment of this one model fails
// and it is requeued.
func (b *BrainClient) ChatCompletion(ctx context.Context, messages []openai.ChatCompletionMessageParamUnion, temperature float64) (string, error) {
	params := openai.ChatCompletionNewParams{
		Model:       b.model,
		Messages:    messages,
		Temperature: openai.Float(temperature),
	}

	completion, err := b.client.Chat.Completions.New(ctx, params)
	if err != nil {
		logging.FromContext(ctx).Error("brain chat completion call failed", "error", err)
		return "", err
	}
	if len(completion.Choices) == 0 {
		logging.FromContext(ctx).Error("brain response had no choices")
		return "", errNoChoices
	}

	content := completion.Choices[0].Message.Content
	return content, nil
}

var errNoChoices = brainError("brain response had no choices")

type brainError string

func (e brainError) Error() string { return string(e) }
