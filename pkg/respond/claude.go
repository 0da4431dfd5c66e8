package respond

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// Claude answers through the Anthropic messages API. It is configured only
// while a non-empty API key is set.
type Claude struct {
	model     anthropic.Model
	maxTokens int64
	reqOpts   []option.RequestOption

	mu     sync.RWMutex
	apiKey string
}

// ClaudeOption customizes the Claude responder.
type ClaudeOption func(*Claude)

// WithClaudeModel overrides the default model.
func WithClaudeModel(model anthropic.Model) ClaudeOption {
	return func(c *Claude) { c.model = model }
}

// WithClaudeKey sets the initial API key.
func WithClaudeKey(key string) ClaudeOption {
	return func(c *Claude) { c.apiKey = key }
}

// WithClaudeRequestOptions appends client options, e.g. a base URL override
// for tests.
func WithClaudeRequestOptions(opts ...option.RequestOption) ClaudeOption {
	return func(c *Claude) { c.reqOpts = append(c.reqOpts, opts...) }
}

// NewClaude returns an unconfigured Claude responder.
func NewClaude(opts ...ClaudeOption) *Claude {
	c := &Claude{
		model:     anthropic.ModelClaude3_5HaikuLatest,
		maxTokens: 256,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Name returns the display name.
func (c *Claude) Name() string { return "Claude 3.5 Haiku" }

// SetCredential replaces the API key.
func (c *Claude) SetCredential(value string) {
	c.mu.Lock()
	c.apiKey = value
	c.mu.Unlock()
}

// Configured reports whether a non-empty API key is set.
func (c *Claude) Configured() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.apiKey != ""
}

// Respond sends the user text as a single-turn message.
func (c *Claude) Respond(ctx context.Context, text string) (string, error) {
	c.mu.RLock()
	key := c.apiKey
	c.mu.RUnlock()
	if key == "" {
		return "", fmt.Errorf("%w: Anthropic API key is not set", ErrUnconfigured)
	}

	clientOpts := append([]option.RequestOption{option.WithAPIKey(key)}, c.reqOpts...)
	client := anthropic.NewClient(clientOpts...)

	msg, err := client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     c.model,
		MaxTokens: c.maxTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(text)),
		},
	})
	if err != nil {
		var apiErr *anthropic.Error
		if errors.As(err, &apiErr) {
			return "", fmt.Errorf("%w: %s", ErrUpstream, apiErr.Error())
		}
		return "", fmt.Errorf("%w: %v", ErrUpstream, err)
	}

	for _, block := range msg.Content {
		if block.Type == "text" && block.Text != "" {
			return block.Text, nil
		}
	}
	return "", fmt.Errorf("%w: no text content block", ErrMalformedResponse)
}
