package schema

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/auroraseo/clinicgraph/internal/domain/prompt"
	"github.com/auroraseo/clinicgraph/internal/llm"
)

const (
	// maxFillFields bounds LLM-generated free-text fields per document.
	maxFillFields = 5
	minFillChars  = 20
	maxFillChars  = 600
)

const defaultFillPrompt = `You write concise marketing-neutral copy for medical practice websites. Write the "{{field}}" text for the page below. Respond with the text only, no quotes or preamble, 1-3 sentences.

Practice: {{practice}}
Page title: {{title}}
Page excerpt: {{excerpt}}`

// errFillRejected marks an LLM fill response that failed length validation.
var errFillRejected = fmt.Errorf("llm fill response rejected")

// resolveDescription walks the fallback chain for a page description:
// meta description, then the excerpt, then an LLM fill-in when a client is
// configured. The second return reports whether the LLM produced the value.
func (s *Service) resolveDescription(ctx context.Context, in builderInput) (string, bool, error) {
	if !isPlaceholder(in.Page.MetaDescription) {
		return strings.TrimSpace(in.Page.MetaDescription), false, nil
	}
	if excerpt := strings.TrimSpace(in.Page.Excerpt); len(excerpt) >= minFillChars {
		if len(excerpt) > maxFillChars {
			excerpt = excerpt[:maxFillChars]
		}
		return excerpt, false, nil
	}

	filled, err := s.fillField(ctx, in, "description")
	if err != nil {
		return "", false, err
	}
	return filled, filled != "", nil
}

// fillField asks the LLM for one free-text field value. Responses outside the
// length bounds are rejected. A nil client or missing prompt yields an empty
// value, not an error; generation proceeds without the field.
func (s *Service) fillField(ctx context.Context, in builderInput, field string) (string, error) {
	if s.client == nil {
		return "", nil
	}

	values := map[string]string{
		"field":    field,
		"practice": in.Account.Name,
		"title":    in.Page.Title,
		"excerpt":  clip(in.Page.Excerpt, 800),
	}

	var req llm.Request
	if s.prompts != nil {
		if _, rendered, err := s.prompts.Render(ctx, in.Account.ID, prompt.PurposeSchemaFill, values); err == nil {
			req = rendered
		}
	}
	if req.Prompt == "" {
		body, err := llm.RenderTemplate(defaultFillPrompt, values)
		if err != nil {
			return "", err
		}
		req = llm.Request{Prompt: body}
	}

	resp, err := s.client.Complete(ctx, req)
	if err != nil {
		return "", fmt.Errorf("fill %s: %w", field, err)
	}

	text := strings.TrimSpace(strings.Trim(strings.TrimSpace(resp.Text), `"`))
	if len(text) < minFillChars || len(text) > maxFillChars {
		return "", fmt.Errorf("%w: %s is %d chars, want %d-%d", errFillRejected, field, len(text), minFillChars, maxFillChars)
	}
	return text, nil
}

// clip truncates to at most max bytes without splitting a rune.
func clip(s string, max int) string {
	if len(s) <= max {
		return s
	}
	for max > 0 && !utf8.RuneStart(s[max]) {
		max--
	}
	return s[:max]
}
