package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestRenderTemplate(t *testing.T) {
	body := "Classify {{url}} for {{ vertical }} sites."
	rendered, err := RenderTemplate(body, map[string]string{
		"url":      "https://example.com/botox",
		"vertical": "aesthetics",
	})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	want := "Classify https://example.com/botox for aesthetics sites."
	if rendered != want {
		t.Fatalf("rendered = %q, want %q", rendered, want)
	}
}

func TestRenderTemplateMissingPlaceholder(t *testing.T) {
	_, err := RenderTemplate("Summarize {{site}} in {{tone}}.", map[string]string{"site": "x"})
	if err == nil {
		t.Fatal("expected error for unresolved placeholder")
	}
}

func TestExtractJSON(t *testing.T) {
	cases := []struct {
		name  string
		input string
		want  string
		ok    bool
	}{
		{
			name:  "bare object",
			input: `{"page_type":"PROCEDURE","confidence":0.91}`,
			want:  `{"page_type":"PROCEDURE","confidence":0.91}`,
			ok:    true,
		},
		{
			name:  "fenced",
			input: "```json\n{\"page_type\":\"FAQ\"}\n```",
			want:  `{"page_type":"FAQ"}`,
			ok:    true,
		},
		{
			name:  "prose around object",
			input: `Sure, here is the result: {"page_type":"HOMEPAGE"} hope that helps`,
			want:  `{"page_type":"HOMEPAGE"}`,
			ok:    true,
		},
		{
			name:  "nested braces in string",
			input: `{"note":"uses {braces}","ok":true}`,
			want:  `{"note":"uses {braces}","ok":true}`,
			ok:    true,
		},
		{
			name:  "no object",
			input: "I cannot answer that.",
			ok:    false,
		},
		{
			name:  "unbalanced",
			input: `{"page_type":"FAQ"`,
			ok:    false,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ExtractJSON(tc.input)
			if tc.ok {
				if err != nil {
					t.Fatalf("extract: %v", err)
				}
				if got != tc.want {
					t.Fatalf("got %q, want %q", got, tc.want)
				}
				return
			}
			if err == nil {
				t.Fatalf("expected error, got %q", got)
			}
		})
	}
}

func TestExtractJSONField(t *testing.T) {
	doc, err := ExtractJSON("```json\n{\"page_type\":\"LOCATION_PAGE\",\"confidence\":0.8}\n```")
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if got := Field(doc, "page_type").String(); got != "LOCATION_PAGE" {
		t.Fatalf("page_type = %q", got)
	}
	if got := Field(doc, "confidence").Float(); got != 0.8 {
		t.Fatalf("confidence = %v", got)
	}
}

func TestRetryingClientRecoversFromTransientFailure(t *testing.T) {
	calls := 0
	inner := ClientFunc(func(ctx context.Context, req Request) (Response, error) {
		calls++
		if calls < 3 {
			return Response{}, retryable(errors.New("status 503"))
		}
		return Response{Text: "ok", Provider: "func"}, nil
	})

	client := NewRetryingClient(inner, nil)
	client.baseWait = time.Millisecond

	resp, err := client.Complete(context.Background(), Request{Prompt: "hi"})
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if resp.Text != "ok" {
		t.Fatalf("text = %q", resp.Text)
	}
	if calls != 3 {
		t.Fatalf("calls = %d, want 3", calls)
	}
}

func TestRetryingClientStopsOnPermanentError(t *testing.T) {
	calls := 0
	inner := ClientFunc(func(ctx context.Context, req Request) (Response, error) {
		calls++
		return Response{}, errors.New("status 401")
	})

	client := NewRetryingClient(inner, nil)
	client.baseWait = time.Millisecond

	if _, err := client.Complete(context.Background(), Request{Prompt: "hi"}); err == nil {
		t.Fatal("expected error")
	}
	if calls != 1 {
		t.Fatalf("calls = %d, want 1", calls)
	}
}

func TestRetryingClientExhaustsAttempts(t *testing.T) {
	calls := 0
	inner := ClientFunc(func(ctx context.Context, req Request) (Response, error) {
		calls++
		return Response{}, retryable(errors.New("status 500"))
	})

	client := NewRetryingClient(inner, nil)
	client.baseWait = time.Millisecond

	if _, err := client.Complete(context.Background(), Request{Prompt: "hi"}); err == nil {
		t.Fatal("expected error after exhausting attempts")
	}
	if calls != 3 {
		t.Fatalf("calls = %d, want 3", calls)
	}
}

func TestOpenAIClientComplete(t *testing.T) {
	var gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		if r.URL.Path != "/chat/completions" {
			t.Errorf("path = %q", r.URL.Path)
		}
		fmt.Fprint(w, `{
			"choices": [{"message": {"content": "PROCEDURE"}}],
			"usage": {"prompt_tokens": 42, "completion_tokens": 3}
		}`)
	}))
	defer server.Close()

	client, err := NewOpenAIClient(server.Client(), "test-key", "", server.URL)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	resp, err := client.Complete(context.Background(), Request{Prompt: "classify this"})
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if resp.Text != "PROCEDURE" {
		t.Fatalf("text = %q", resp.Text)
	}
	if resp.Usage.PromptTokens != 42 || resp.Usage.CompletionTokens != 3 {
		t.Fatalf("usage = %+v", resp.Usage)
	}
	if gotAuth != "Bearer test-key" {
		t.Fatalf("auth header = %q", gotAuth)
	}
}

func TestOpenAIClientRateLimitIsRetryable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	client, err := NewOpenAIClient(server.Client(), "test-key", "", server.URL)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	_, err = client.Complete(context.Background(), Request{Prompt: "hi"})
	var re retryableError
	if !errors.As(err, &re) {
		t.Fatalf("expected retryable error, got %v", err)
	}
}

func TestAnthropicClientComplete(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("x-api-key") != "test-key" {
			t.Errorf("x-api-key = %q", r.Header.Get("x-api-key"))
		}
		if r.Header.Get("anthropic-version") == "" {
			t.Error("missing anthropic-version header")
		}
		fmt.Fprint(w, `{
			"content": [{"type": "text", "text": "FAQ"}],
			"usage": {"input_tokens": 10, "output_tokens": 2}
		}`)
	}))
	defer server.Close()

	client, err := NewAnthropicClient(server.Client(), "test-key", "", server.URL)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	resp, err := client.Complete(context.Background(), Request{Prompt: "classify"})
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if resp.Text != "FAQ" {
		t.Fatalf("text = %q", resp.Text)
	}
	if resp.Usage.PromptTokens != 10 {
		t.Fatalf("usage = %+v", resp.Usage)
	}
}

func TestAnthropicClientBadStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, `{"error": {"message": "bad request"}}`)
	}))
	defer server.Close()

	client, err := NewAnthropicClient(server.Client(), "test-key", "", server.URL)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	_, err = client.Complete(context.Background(), Request{Prompt: "hi"})
	if err == nil {
		t.Fatal("expected error")
	}
	var re retryableError
	if errors.As(err, &re) {
		t.Fatal("4xx should not be retryable")
	}
}
