package respond

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"
)

const defaultGeminiEndpoint = "https://generativelanguage.googleapis.com/v1beta/models/gemini-1.5-flash:generateContent"

// Gemini talks to the Google Generative Language REST API. It is configured
// only while a non-empty API key is set.
type Gemini struct {
	endpoint string
	client   *http.Client

	mu     sync.RWMutex
	apiKey string
}

// GeminiOption customizes the Gemini responder.
type GeminiOption func(*Gemini)

// WithGeminiEndpoint overrides the generateContent URL. Used by tests.
func WithGeminiEndpoint(url string) GeminiOption {
	return func(g *Gemini) { g.endpoint = url }
}

// WithGeminiHTTPClient overrides the HTTP client, including its timeout policy.
func WithGeminiHTTPClient(client *http.Client) GeminiOption {
	return func(g *Gemini) { g.client = client }
}

// WithGeminiKey sets the initial API key.
func WithGeminiKey(key string) GeminiOption {
	return func(g *Gemini) { g.apiKey = key }
}

// NewGemini returns an unconfigured Gemini responder.
func NewGemini(opts ...GeminiOption) *Gemini {
	g := &Gemini{
		endpoint: defaultGeminiEndpoint,
		client:   &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Name returns the display name.
func (g *Gemini) Name() string { return "Gemini 1.5 Flash" }

// SetCredential replaces the API key.
func (g *Gemini) SetCredential(value string) {
	g.mu.Lock()
	g.apiKey = value
	g.mu.Unlock()
}

// Configured reports whether a non-empty API key is set.
func (g *Gemini) Configured() bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.apiKey != ""
}

type geminiRequest struct {
	Contents []geminiContent `json:"contents"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiResponse struct {
	Candidates []struct {
		Content struct {
			Parts []geminiPart `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Respond sends the user text to the generateContent endpoint and extracts
// the first candidate's text.
func (g *Gemini) Respond(ctx context.Context, text string) (string, error) {
	g.mu.RLock()
	key := g.apiKey
	g.mu.RUnlock()
	if key == "" {
		return "", fmt.Errorf("%w: Gemini API key is not set", ErrUnconfigured)
	}

	payload, err := json.Marshal(geminiRequest{
		Contents: []geminiContent{{Parts: []geminiPart{{Text: text}}}},
	})
	if err != nil {
		return "", fmt.Errorf("respond: encode gemini request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.endpoint+"?key="+key, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("respond: build gemini request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	defer resp.Body.Close()

	var body geminiResponse
	decodeErr := json.NewDecoder(resp.Body).Decode(&body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := fmt.Sprintf("gemini returned status %d", resp.StatusCode)
		if decodeErr == nil && body.Error != nil && body.Error.Message != "" {
			msg = body.Error.Message
		}
		return "", fmt.Errorf("%w: %s", ErrUpstream, msg)
	}
	if decodeErr != nil {
		return "", fmt.Errorf("%w: %v", ErrMalformedResponse, decodeErr)
	}
	if len(body.Candidates) == 0 || len(body.Candidates[0].Content.Parts) == 0 ||
		body.Candidates[0].Content.Parts[0].Text == "" {
		return "", fmt.Errorf("%w: no candidate text", ErrMalformedResponse)
	}
	return body.Candidates[0].Content.Parts[0].Text, nil
}
