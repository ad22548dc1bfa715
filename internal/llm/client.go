// Package llm provides a provider-agnostic completion client used by the
// classification and schema-generation pipelines.
package llm

import (
	"context"
	"fmt"
	"regexp"
	"strings"
)

// Request describes one completion call.
type Request struct {
	Model       string
	System      string
	Prompt      string
	MaxTokens   int
	Temperature float64
}

// Usage reports token consumption for a completed call.
type Usage struct {
	PromptTokens     int
	CompletionTokens int
}

// Response is the raw completion text plus accounting.
type Response struct {
	Text     string
	Model    string
	Provider string
	Usage    Usage
}

// Client executes completion requests against one provider.
type Client interface {
	Complete(ctx context.Context, req Request) (Response, error)
	Provider() string
}

// ClientFunc adapts a function to the Client interface, primarily for tests.
type ClientFunc func(ctx context.Context, req Request) (Response, error)

func (f ClientFunc) Complete(ctx context.Context, req Request) (Response, error) {
	return f(ctx, req)
}

func (f ClientFunc) Provider() string { return "func" }

var placeholderPattern = regexp.MustCompile(`\{\{\s*([a-zA-Z0-9_]+)\s*\}\}`)

// RenderTemplate substitutes {{name}} placeholders from values. A placeholder
// with no value is an error so template braces never reach a provider.
func RenderTemplate(body string, values map[string]string) (string, error) {
	var missing []string
	rendered := placeholderPattern.ReplaceAllStringFunc(body, func(match string) string {
		name := placeholderPattern.FindStringSubmatch(match)[1]
		value, ok := values[name]
		if !ok {
			missing = append(missing, name)
			return match
		}
		return value
	})
	if len(missing) > 0 {
		return "", fmt.Errorf("unresolved placeholders: %s", strings.Join(missing, ", "))
	}
	return rendered, nil
}
