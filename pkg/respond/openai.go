package respond

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// OpenAI answers through the chat completions API. It is configured only
// while a non-empty API key is set.
type OpenAI struct {
	model     openai.ChatModel
	maxTokens int64
	reqOpts   []option.RequestOption

	mu     sync.RWMutex
	apiKey string
}

// OpenAIOption customizes the OpenAI responder.
type OpenAIOption func(*OpenAI)

// WithOpenAIModel overrides the default model.
func WithOpenAIModel(model openai.ChatModel) OpenAIOption {
	return func(o *OpenAI) { o.model = model }
}

// WithOpenAIKey sets the initial API key.
func WithOpenAIKey(key string) OpenAIOption {
	return func(o *OpenAI) { o.apiKey = key }
}

// WithOpenAIRequestOptions appends client options, e.g. a base URL override
// for tests.
func WithOpenAIRequestOptions(opts ...option.RequestOption) OpenAIOption {
	return func(o *OpenAI) { o.reqOpts = append(o.reqOpts, opts...) }
}

// NewOpenAI returns an unconfigured OpenAI responder.
func NewOpenAI(opts ...OpenAIOption) *OpenAI {
	o := &OpenAI{
		model:     openai.ChatModelGPT3_5Turbo,
		maxTokens: 150,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Name returns the display name.
func (o *OpenAI) Name() string { return "OpenAI GPT-3.5" }

// SetCredential replaces the API key.
func (o *OpenAI) SetCredential(value string) {
	o.mu.Lock()
	o.apiKey = value
	o.mu.Unlock()
}

// Configured reports whether a non-empty API key is set.
func (o *OpenAI) Configured() bool {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.apiKey != ""
}

// Respond sends the user text as a single-turn chat completion.
func (o *OpenAI) Respond(ctx context.Context, text string) (string, error) {
	o.mu.RLock()
	key := o.apiKey
	o.mu.RUnlock()
	if key == "" {
		return "", fmt.Errorf("%w: OpenAI API key is not set", ErrUnconfigured)
	}

	clientOpts := append([]option.RequestOption{option.WithAPIKey(key)}, o.reqOpts...)
	client := openai.NewClient(clientOpts...)

	completion, err := client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: o.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(text),
		},
		MaxTokens: openai.Int(o.maxTokens),
	})
	if err != nil {
		var apiErr *openai.Error
		if errors.As(err, &apiErr) {
			msg := apiErr.Message
			if msg == "" {
				msg = apiErr.Error()
			}
			return "", fmt.Errorf("%w: %s", ErrUpstream, msg)
		}
		return "", fmt.Errorf("%w: %v", ErrUpstream, err)
	}

	if len(completion.Choices) == 0 || completion.Choices[0].Message.Content == "" {
		return "", fmt.Errorf("%w: no completion choices", ErrMalformedResponse)
	}
	return completion.Choices[0].Message.Content, nil
}
