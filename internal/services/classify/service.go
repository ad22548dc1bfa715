// Package classify assigns page types to crawled pages. Cheap URL heuristics
// run first; everything they cannot settle goes through a two-pass LLM
// pipeline (site summary, then per-page classification).
package classify

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"unicode/utf8"

	"golang.org/x/sync/errgroup"

	"github.com/auroraseo/clinicgraph/internal/domain/page"
	"github.com/auroraseo/clinicgraph/internal/domain/prompt"
	"github.com/auroraseo/clinicgraph/internal/domain/review"
	"github.com/auroraseo/clinicgraph/internal/llm"
	"github.com/auroraseo/clinicgraph/internal/services/prompts"
	"github.com/auroraseo/clinicgraph/internal/services/reviews"
	"github.com/auroraseo/clinicgraph/internal/storage"
	"github.com/auroraseo/clinicgraph/pkg/logger"
)

// heuristicThreshold is the confidence at which a URL heuristic hit skips
// the LLM entirely.
const heuristicThreshold = 0.9

// defaultSummaryPrompt and defaultClassifyPrompt back the pipeline when no
// prompt row is configured. Accounts override them through the prompts API.
const (
	defaultSummaryPrompt = `You summarize medical practice websites. Given this page inventory (path and title per line), describe in 2-3 sentences what the practice does, its specialty, and notable services.

{{inventory}}`

	defaultClassifyPrompt = `You classify pages of a medical practice website into exactly one of: HOMEPAGE, PROCEDURE, SERVICE, TEAM_MEMBER, ABOUT, CONTACT, BLOG_POST, FAQ, LOCATION_PAGE, OTHER.

Practice summary: {{summary}}

Page path: {{path}}
Page title: {{title}}
Headings: {{headings}}
Excerpt: {{excerpt}}

Respond with a JSON object: {"page_type": "...", "confidence": 0.0}`
)

// Service classifies pages.
type Service struct {
	pages   storage.PageStore
	prompts *prompts.Service
	reviews *reviews.Service
	client  llm.Client
	log     *logger.Logger

	mu        sync.Mutex
	summaries map[string]string
}

// New constructs a classification service.
func New(pages storage.PageStore, promptSvc *prompts.Service, reviewSvc *reviews.Service, client llm.Client, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("classify")
	}
	return &Service{
		pages:     pages,
		prompts:   promptSvc,
		reviews:   reviewSvc,
		client:    client,
		log:       log,
		summaries: make(map[string]string),
	}
}

// InvalidateSummary drops the cached site summary for an account so the next
// classification pass regenerates it. Called after a fresh crawl.
func (s *Service) InvalidateSummary(accountID string) {
	s.mu.Lock()
	delete(s.summaries, accountID)
	s.mu.Unlock()
}

// SiteSummary returns the cached practice summary for an account, generating
// it from the page inventory on first use.
func (s *Service) SiteSummary(ctx context.Context, accountID string) (string, error) {
	s.mu.Lock()
	if summary, ok := s.summaries[accountID]; ok {
		s.mu.Unlock()
		return summary, nil
	}
	s.mu.Unlock()

	if s.client == nil {
		return "", fmt.Errorf("llm client not configured")
	}

	all, err := s.pages.ListPages(ctx, accountID)
	if err != nil {
		return "", err
	}
	var inventory strings.Builder
	for _, p := range all {
		if p.Status == page.StatusFailed {
			continue
		}
		fmt.Fprintf(&inventory, "%s\t%s\n", p.Path, p.Title)
	}
	if inventory.Len() == 0 {
		return "", fmt.Errorf("account %s has no crawled pages to summarize", accountID)
	}

	req, err := s.renderPrompt(ctx, accountID, prompt.PurposeSiteSummary, defaultSummaryPrompt,
		map[string]string{"inventory": inventory.String()})
	if err != nil {
		return "", err
	}

	resp, err := s.client.Complete(ctx, req)
	if err != nil {
		return "", fmt.Errorf("site summary: %w", err)
	}
	summary := strings.TrimSpace(resp.Text)

	s.mu.Lock()
	s.summaries[accountID] = summary
	s.mu.Unlock()
	s.log.WithField("account", accountID).Info("site summary generated")
	return summary, nil
}

// ClassifyPage assigns a page type to one page and persists the result. The
// heuristic pass runs first; the LLM pass only when heuristics are not
// confident enough.
func (s *Service) ClassifyPage(ctx context.Context, p page.Page) (page.Page, error) {
	if hit, ok := classifyByPath(p.Path); ok && hit.Confidence >= heuristicThreshold {
		p.PageType = hit.PageType
		p.Confidence = hit.Confidence
		p.ClassifiedBy = page.SourceHeuristic
		p.Status = page.StatusClassified
		return s.pages.UpdatePage(ctx, p)
	}

	summary, err := s.SiteSummary(ctx, p.AccountID)
	if err != nil {
		return page.Page{}, err
	}

	req, err := s.renderPrompt(ctx, p.AccountID, prompt.PurposeClassify, defaultClassifyPrompt,
		map[string]string{
			"summary":  summary,
			"path":     p.Path,
			"title":    p.Title,
			"headings": strings.Join(p.Headings, "; "),
			"excerpt":  clip(p.Excerpt, 1200),
		})
	if err != nil {
		return page.Page{}, err
	}

	resp, err := s.client.Complete(ctx, req)
	if err != nil {
		return page.Page{}, fmt.Errorf("classify page %s: %w", p.ID, err)
	}

	doc, err := llm.ExtractJSON(resp.Text)
	if err != nil {
		return s.sendToReview(ctx, p, review.ReasonClassifyParse, err.Error())
	}

	rawType := llm.Field(doc, "page_type").String()
	pageType, known := page.ParseType(rawType)
	if !known {
		return s.sendToReview(ctx, p, review.ReasonClassifyUnknown,
			fmt.Sprintf("model returned %q", rawType))
	}

	confidence := llm.Field(doc, "confidence").Float()
	if confidence <= 0 || confidence > 1 {
		confidence = 0.5
	}

	p.PageType = pageType
	p.Confidence = confidence
	p.ClassifiedBy = page.SourceLLM
	p.Status = page.StatusClassified
	return s.pages.UpdatePage(ctx, p)
}

// ClassifyBatch classifies every fetched page of an account, fanning the LLM
// calls out over a bounded worker group. It returns the number of pages
// classified.
func (s *Service) ClassifyBatch(ctx context.Context, accountID string, limit int) (int, error) {
	if limit <= 0 {
		limit = 10
	}
	pending, err := s.pages.ListPagesByStatus(ctx, accountID, page.StatusFetched, limit)
	if err != nil {
		return 0, err
	}
	if len(pending) == 0 {
		return 0, nil
	}

	// warm the summary once before fanning out, but only when some page
	// will actually fall through to the LLM pass
	needsLLM := false
	for _, p := range pending {
		if hit, ok := classifyByPath(p.Path); !ok || hit.Confidence < heuristicThreshold {
			needsLLM = true
			break
		}
	}
	if needsLLM {
		if _, err := s.SiteSummary(ctx, accountID); err != nil {
			return 0, err
		}
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for _, p := range pending {
		p := p
		g.Go(func() error {
			_, err := s.ClassifyPage(ctx, p)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return 0, err
	}
	return len(pending), nil
}

// sendToReview marks the page OTHER/needs_review and enqueues a review item.
func (s *Service) sendToReview(ctx context.Context, p page.Page, reason, detail string) (page.Page, error) {
	p.PageType = page.TypeOther
	p.Confidence = 0
	p.ClassifiedBy = page.SourceLLM
	p.Status = page.StatusNeedsReview

	updated, err := s.pages.UpdatePage(ctx, p)
	if err != nil {
		return page.Page{}, err
	}
	if s.reviews != nil {
		if _, err := s.reviews.Enqueue(ctx, review.Item{
			AccountID: p.AccountID,
			PageID:    p.ID,
			Reason:    reason,
			Detail:    detail,
		}); err != nil {
			s.log.WithError(err).Warnf("enqueue review for page %s", p.ID)
		}
	}
	return updated, nil
}

func (s *Service) renderPrompt(ctx context.Context, accountID string, purpose prompt.Purpose, fallback string, values map[string]string) (llm.Request, error) {
	if s.prompts != nil {
		if _, req, err := s.prompts.Render(ctx, accountID, purpose, values); err == nil {
			return req, nil
		}
	}
	body, err := llm.RenderTemplate(fallback, values)
	if err != nil {
		return llm.Request{}, err
	}
	return llm.Request{Prompt: body}, nil
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
