package respond

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/openai/openai-go/option"
)

func newOpenAITest(url string) *OpenAI {
	return NewOpenAI(
		WithOpenAIKey("test-key"),
		WithOpenAIRequestOptions(option.WithBaseURL(url), option.WithMaxRetries(0)),
	)
}

func TestOpenAIUnconfigured(t *testing.T) {
	o := NewOpenAI()
	if o.Configured() {
		t.Fatal("configured without a key")
	}
	if _, err := o.Respond(context.Background(), "hello"); !errors.Is(err, ErrUnconfigured) {
		t.Fatalf("err = %v, want ErrUnconfigured", err)
	}
	o.SetCredential("sk-test")
	if !o.Configured() {
		t.Fatal("not configured after SetCredential")
	}
}

func TestOpenAISuccess(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "chatcmpl-1",
			"object": "chat.completion",
			"choices": [{"index": 0, "message": {"role": "assistant", "content": "mocked reply"}, "finish_reason": "stop"}]
		}`))
	}))
	defer server.Close()

	reply, err := newOpenAITest(server.URL).Respond(context.Background(), "hello")
	if err != nil {
		t.Fatalf("respond: %v", err)
	}
	if reply != "mocked reply" {
		t.Fatalf("reply = %q", reply)
	}
}

func TestOpenAIUpstreamError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error": {"message": "Incorrect API key provided", "type": "invalid_request_error"}}`))
	}))
	defer server.Close()

	_, err := newOpenAITest(server.URL).Respond(context.Background(), "hello")
	if !errors.Is(err, ErrUpstream) {
		t.Fatalf("err = %v, want ErrUpstream", err)
	}
}

func TestOpenAIMalformedResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id": "chatcmpl-1", "object": "chat.completion", "choices": []}`))
	}))
	defer server.Close()

	_, err := newOpenAITest(server.URL).Respond(context.Background(), "hello")
	if !errors.Is(err, ErrMalformedResponse) {
		t.Fatalf("err = %v, want ErrMalformedResponse", err)
	}
}
