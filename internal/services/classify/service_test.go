package classify

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/auroraseo/clinicgraph/internal/domain/account"
	"github.com/auroraseo/clinicgraph/internal/domain/page"
	"github.com/auroraseo/clinicgraph/internal/domain/review"
	"github.com/auroraseo/clinicgraph/internal/llm"
	"github.com/auroraseo/clinicgraph/internal/services/prompts"
	"github.com/auroraseo/clinicgraph/internal/services/reviews"
	"github.com/auroraseo/clinicgraph/internal/storage/memory"
)

func TestClassifyByPath(t *testing.T) {
	cases := []struct {
		path string
		want page.Type
		hit  bool
	}{
		{"/", page.TypeHomepage, true},
		{"", page.TypeHomepage, true},
		{"/blog/summer-skincare-tips", page.TypeBlogPost, true},
		{"/team/dr-jane-smith", page.TypeTeamMember, true},
		{"/contact", page.TypeContact, true},
		{"/about-us", page.TypeAbout, true},
		{"/faq", page.TypeFAQ, true},
		{"/locations/downtown", page.TypeLocation, true},
		{"/treatments/laser-resurfacing", page.TypeProcedure, true},
		{"/botox", page.TypeProcedure, true},
		{"/lip-filler-guide", page.TypeProcedure, true},
		{"/patient-portal", page.TypeOther, false},
	}
	for _, tc := range cases {
		got, ok := classifyByPath(tc.path)
		if ok != tc.hit {
			t.Fatalf("classifyByPath(%q) hit = %v, want %v", tc.path, ok, tc.hit)
		}
		if ok && got.PageType != tc.want {
			t.Fatalf("classifyByPath(%q) = %s, want %s", tc.path, got.PageType, tc.want)
		}
	}
}

func setup(t *testing.T, client llm.Client) (*Service, *memory.Store, string) {
	t.Helper()
	store := memory.New()
	acct, err := store.CreateAccount(context.Background(), account.Account{Name: "c", Domain: "c.com"})
	if err != nil {
		t.Fatalf("create account: %v", err)
	}
	promptSvc := prompts.New(store, store, nil)
	reviewSvc := reviews.New(store, nil)
	return New(store, promptSvc, reviewSvc, client, nil), store, acct.ID
}

func fetchedPage(t *testing.T, store *memory.Store, accountID, url, path, title string) page.Page {
	t.Helper()
	p, err := store.UpsertPage(context.Background(), page.Page{
		AccountID: accountID,
		URL:       url,
		Path:      path,
		Title:     title,
		Status:    page.StatusFetched,
	})
	if err != nil {
		t.Fatalf("upsert page: %v", err)
	}
	return p
}

func TestClassifyPageHeuristicSkipsLLM(t *testing.T) {
	llmCalled := false
	client := llm.ClientFunc(func(ctx context.Context, req llm.Request) (llm.Response, error) {
		llmCalled = true
		return llm.Response{Text: "{}"}, nil
	})
	svc, store, accountID := setup(t, client)
	p := fetchedPage(t, store, accountID, "https://c.com/contact", "/contact", "Contact Us")

	classified, err := svc.ClassifyPage(context.Background(), p)
	if err != nil {
		t.Fatalf("classify: %v", err)
	}
	if llmCalled {
		t.Fatal("LLM should not be called for high-confidence heuristic")
	}
	if classified.PageType != page.TypeContact || classified.ClassifiedBy != page.SourceHeuristic {
		t.Fatalf("page = %+v", classified)
	}
	if classified.Status != page.StatusClassified {
		t.Fatalf("status = %q", classified.Status)
	}
}

func TestClassifyPageLLMPass(t *testing.T) {
	var sawSummaryCall, sawClassifyCall bool
	client := llm.ClientFunc(func(ctx context.Context, req llm.Request) (llm.Response, error) {
		if strings.Contains(req.Prompt, "page inventory") {
			sawSummaryCall = true
			return llm.Response{Text: "A dermatology practice offering cosmetic treatments."}, nil
		}
		sawClassifyCall = true
		if !strings.Contains(req.Prompt, "dermatology practice") {
			t.Errorf("classify prompt missing site summary: %q", req.Prompt)
		}
		return llm.Response{Text: "```json\n{\"page_type\": \"SERVICE\", \"confidence\": 0.82}\n```"}, nil
	})
	svc, store, accountID := setup(t, client)
	p := fetchedPage(t, store, accountID, "https://c.com/skin-care", "/skin-care", "Skin Care")

	classified, err := svc.ClassifyPage(context.Background(), p)
	if err != nil {
		t.Fatalf("classify: %v", err)
	}
	if !sawSummaryCall || !sawClassifyCall {
		t.Fatalf("summary=%v classify=%v", sawSummaryCall, sawClassifyCall)
	}
	if classified.PageType != page.TypeService {
		t.Fatalf("type = %s", classified.PageType)
	}
	if classified.Confidence != 0.82 {
		t.Fatalf("confidence = %v", classified.Confidence)
	}
	if classified.ClassifiedBy != page.SourceLLM {
		t.Fatalf("classified_by = %q", classified.ClassifiedBy)
	}
}

func TestClassifyPageUnknownTypeGoesToReview(t *testing.T) {
	client := llm.ClientFunc(func(ctx context.Context, req llm.Request) (llm.Response, error) {
		if strings.Contains(req.Prompt, "page inventory") {
			return llm.Response{Text: "summary"}, nil
		}
		return llm.Response{Text: `{"page_type": "LANDING_PAGE", "confidence": 0.9}`}, nil
	})
	svc, store, accountID := setup(t, client)
	p := fetchedPage(t, store, accountID, "https://c.com/promo", "/promo", "Promo")

	classified, err := svc.ClassifyPage(context.Background(), p)
	if err != nil {
		t.Fatalf("classify: %v", err)
	}
	if classified.PageType != page.TypeOther || classified.Status != page.StatusNeedsReview {
		t.Fatalf("page = %+v", classified)
	}

	items, err := store.ListReviewItems(context.Background(), accountID, review.StateOpen)
	if err != nil {
		t.Fatalf("list reviews: %v", err)
	}
	if len(items) != 1 || items[0].Reason != review.ReasonClassifyUnknown {
		t.Fatalf("items = %+v", items)
	}
}

func TestClassifyPageParseFailureGoesToReview(t *testing.T) {
	client := llm.ClientFunc(func(ctx context.Context, req llm.Request) (llm.Response, error) {
		if strings.Contains(req.Prompt, "page inventory") {
			return llm.Response{Text: "summary"}, nil
		}
		return llm.Response{Text: "I think this is probably a services page."}, nil
	})
	svc, store, accountID := setup(t, client)
	p := fetchedPage(t, store, accountID, "https://c.com/misc", "/misc", "Misc")

	classified, err := svc.ClassifyPage(context.Background(), p)
	if err != nil {
		t.Fatalf("classify: %v", err)
	}
	if classified.Status != page.StatusNeedsReview {
		t.Fatalf("status = %q", classified.Status)
	}

	items, _ := store.ListReviewItems(context.Background(), accountID, review.StateOpen)
	if len(items) != 1 || items[0].Reason != review.ReasonClassifyParse {
		t.Fatalf("items = %+v", items)
	}
}

func TestSiteSummaryCachedPerAccount(t *testing.T) {
	summaryCalls := 0
	client := llm.ClientFunc(func(ctx context.Context, req llm.Request) (llm.Response, error) {
		summaryCalls++
		return llm.Response{Text: "summary"}, nil
	})
	svc, store, accountID := setup(t, client)
	fetchedPage(t, store, accountID, "https://c.com/x", "/x", "X")

	for i := 0; i < 3; i++ {
		if _, err := svc.SiteSummary(context.Background(), accountID); err != nil {
			t.Fatalf("summary: %v", err)
		}
	}
	if summaryCalls != 1 {
		t.Fatalf("summary calls = %d, want 1", summaryCalls)
	}

	svc.InvalidateSummary(accountID)
	if _, err := svc.SiteSummary(context.Background(), accountID); err != nil {
		t.Fatalf("summary after invalidate: %v", err)
	}
	if summaryCalls != 2 {
		t.Fatalf("summary calls = %d, want 2", summaryCalls)
	}
}

func TestClassifyBatch(t *testing.T) {
	client := llm.ClientFunc(func(ctx context.Context, req llm.Request) (llm.Response, error) {
		if strings.Contains(req.Prompt, "page inventory") {
			return llm.Response{Text: "summary"}, nil
		}
		return llm.Response{Text: `{"page_type": "SERVICE", "confidence": 0.7}`}, nil
	})
	svc, store, accountID := setup(t, client)
	fetchedPage(t, store, accountID, "https://c.com/contact", "/contact", "Contact")
	fetchedPage(t, store, accountID, "https://c.com/opaque-1", "/opaque-1", "One")
	fetchedPage(t, store, accountID, "https://c.com/opaque-2", "/opaque-2", "Two")

	n, err := svc.ClassifyBatch(context.Background(), accountID, 10)
	if err != nil {
		t.Fatalf("batch: %v", err)
	}
	if n != 3 {
		t.Fatalf("classified = %d, want 3", n)
	}

	remaining, err := store.ListPagesByStatus(context.Background(), accountID, page.StatusFetched, 10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(remaining) != 0 {
		t.Fatalf("unclassified pages remain: %d", len(remaining))
	}
}

func TestClassifyBatchHeuristicOnlyWithoutClient(t *testing.T) {
	svc, store, accountID := setup(t, nil)
	fetchedPage(t, store, accountID, "https://c.com/contact", "/contact", "Contact")
	fetchedPage(t, store, accountID, "https://c.com/faq", "/faq", "FAQ")

	n, err := svc.ClassifyBatch(context.Background(), accountID, 10)
	if err != nil {
		t.Fatalf("batch without llm client: %v", err)
	}
	if n != 2 {
		t.Fatalf("classified = %d, want 2", n)
	}

	classified, err := store.ListPagesByStatus(context.Background(), accountID, page.StatusClassified, 10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	for _, p := range classified {
		if p.ClassifiedBy != page.SourceHeuristic {
			t.Fatalf("page %s classified by %q, want heuristic", p.Path, p.ClassifiedBy)
		}
	}
	if len(classified) != 2 {
		t.Fatalf("classified pages = %d, want 2", len(classified))
	}
}

func TestClassifyBatchSkipsSummaryWhenAllHeuristic(t *testing.T) {
	summaryCalls := 0
	client := llm.ClientFunc(func(ctx context.Context, req llm.Request) (llm.Response, error) {
		if strings.Contains(req.Prompt, "page inventory") {
			summaryCalls++
			return llm.Response{Text: "summary"}, nil
		}
		return llm.Response{Text: `{"page_type": "OTHER", "confidence": 0.5}`}, nil
	})
	svc, store, accountID := setup(t, client)
	fetchedPage(t, store, accountID, "https://c.com/contact", "/contact", "Contact")
	fetchedPage(t, store, accountID, "https://c.com/blog/post", "/blog/post", "Post")

	if _, err := svc.ClassifyBatch(context.Background(), accountID, 10); err != nil {
		t.Fatalf("batch: %v", err)
	}
	if summaryCalls != 0 {
		t.Fatalf("site summary requested %d times for heuristic-only batch", summaryCalls)
	}
}

func TestClassifyBatchExplicitLimitCoversAllPages(t *testing.T) {
	svc, store, accountID := setup(t, nil)
	for i := 0; i < 12; i++ {
		fetchedPage(t, store, accountID,
			fmt.Sprintf("https://c.com/faq/q-%d", i), fmt.Sprintf("/faq/q-%d", i), "FAQ")
	}

	n, err := svc.ClassifyBatch(context.Background(), accountID, 12)
	if err != nil {
		t.Fatalf("batch: %v", err)
	}
	if n != 12 {
		t.Fatalf("classified = %d, want 12", n)
	}
}
