package schema

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/auroraseo/clinicgraph/internal/domain/account"
	"github.com/auroraseo/clinicgraph/internal/domain/location"
	"github.com/auroraseo/clinicgraph/internal/domain/page"
	"github.com/auroraseo/clinicgraph/internal/domain/review"
	"github.com/auroraseo/clinicgraph/internal/domain/schemadoc"
	"github.com/auroraseo/clinicgraph/internal/llm"
	"github.com/auroraseo/clinicgraph/internal/services/prompts"
	"github.com/auroraseo/clinicgraph/internal/services/reviews"
	"github.com/auroraseo/clinicgraph/internal/storage/memory"
)

type fixture struct {
	svc     *Service
	store   *memory.Store
	account account.Account
}

func newFixture(t *testing.T, client llm.Client) *fixture {
	t.Helper()
	store := memory.New()
	acct, err := store.CreateAccount(context.Background(), account.Account{
		Name:     "Lakeside Dermatology",
		Domain:   "lakesidederm.com",
		Vertical: "dermatology",
		Status:   account.StatusActive,
	})
	if err != nil {
		t.Fatalf("create account: %v", err)
	}
	svc := New(store, store, store, store,
		prompts.New(store, store, nil),
		reviews.New(store, nil),
		client, nil)
	return &fixture{svc: svc, store: store, account: acct}
}

func (f *fixture) addLocation(t *testing.T, name, city string, primary bool) location.Location {
	t.Helper()
	loc, err := f.store.CreateLocation(context.Background(), location.Location{
		AccountID:  f.account.ID,
		Name:       name,
		Street:     "100 Main St",
		City:       city,
		Region:     "WA",
		PostalCode: "98101",
		Country:    "US",
		Phone:      "+1-206-555-0100",
		Primary:    primary,
	})
	if err != nil {
		t.Fatalf("create location: %v", err)
	}
	return loc
}

func (f *fixture) addClassifiedPage(t *testing.T, path string, pt page.Type, extra func(*page.Page)) page.Page {
	t.Helper()
	p := page.Page{
		AccountID:       f.account.ID,
		URL:             "https://lakesidederm.com" + path,
		Path:            path,
		Title:           "Page Title",
		MetaDescription: "A useful description of this page for patients.",
		Status:          page.StatusClassified,
		PageType:        pt,
		Confidence:      0.95,
		ClassifiedBy:    page.SourceHeuristic,
		ContentHash:     "hash-1",
	}
	if extra != nil {
		extra(&p)
	}
	created, err := f.store.UpsertPage(context.Background(), p)
	if err != nil {
		t.Fatalf("upsert page: %v", err)
	}
	return created
}

func decodeGraph(t *testing.T, payload string) []map[string]any {
	t.Helper()
	var envelope struct {
		Context string           `json:"@context"`
		Graph   []map[string]any `json:"@graph"`
	}
	if err := json.Unmarshal([]byte(payload), &envelope); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if envelope.Context != "https://schema.org" {
		t.Fatalf("@context = %q", envelope.Context)
	}
	return envelope.Graph
}

func nodeOfType(graph []map[string]any, typ string) map[string]any {
	for _, n := range graph {
		if n["@type"] == typ {
			return n
		}
	}
	return nil
}

func TestGenerateHomepageInlinesFewLocations(t *testing.T) {
	f := newFixture(t, nil)
	f.addLocation(t, "Lakeside Main", "Seattle", true)
	f.addLocation(t, "Lakeside East", "Bellevue", false)
	p := f.addClassifiedPage(t, "/", page.TypeHomepage, nil)

	doc, err := f.svc.Generate(context.Background(), p.ID, false)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if doc.Status != schemadoc.StatusDraft {
		t.Fatalf("status = %q", doc.Status)
	}
	if len(doc.Issues) != 0 {
		t.Fatalf("issues = %v", doc.Issues)
	}

	graph := decodeGraph(t, doc.Payload)
	clinics := 0
	for _, n := range graph {
		if n["@type"] == "MedicalClinic" {
			clinics++
		}
	}
	// org node plus two inlined locations
	if clinics != 3 {
		t.Fatalf("MedicalClinic nodes = %d, want 3", clinics)
	}

	reloaded, _ := f.store.GetPage(context.Background(), p.ID)
	if reloaded.Status != page.StatusGenerated {
		t.Fatalf("page status = %q", reloaded.Status)
	}
}

func TestGenerateHomepageRollsUpManyLocations(t *testing.T) {
	f := newFixture(t, nil)
	f.addLocation(t, "Main", "Seattle", true)
	for i, city := range []string{"Bellevue", "Tacoma", "Everett", "Renton"} {
		f.addLocation(t, fmt.Sprintf("Branch %d", i), city, false)
	}
	p := f.addClassifiedPage(t, "/", page.TypeHomepage, nil)

	doc, err := f.svc.Generate(context.Background(), p.ID, false)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	graph := decodeGraph(t, doc.Payload)
	clinics := 0
	var org map[string]any
	for _, n := range graph {
		if n["@type"] == "MedicalClinic" {
			clinics++
			if n["areaServed"] != nil {
				org = n
			}
		}
	}
	// org plus the primary only
	if clinics != 2 {
		t.Fatalf("MedicalClinic nodes = %d, want 2", clinics)
	}
	if org == nil {
		t.Fatal("organization node missing areaServed roll-up")
	}
	areas, ok := org["areaServed"].([]any)
	if !ok || len(areas) != 5 {
		t.Fatalf("areaServed = %v", org["areaServed"])
	}
}

func TestGenerateProcedure(t *testing.T) {
	f := newFixture(t, nil)
	f.addLocation(t, "Main", "Seattle", true)
	p := f.addClassifiedPage(t, "/treatments/botox", page.TypeProcedure, func(p *page.Page) {
		p.Title = "Botox Injections"
	})

	doc, err := f.svc.Generate(context.Background(), p.ID, false)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	graph := decodeGraph(t, doc.Payload)
	proc := nodeOfType(graph, "MedicalProcedure")
	if proc == nil {
		t.Fatal("MedicalProcedure node missing")
	}
	if proc["name"] != "Botox Injections" {
		t.Fatalf("name = %v", proc["name"])
	}
	if proc["description"] != "A useful description of this page for patients." {
		t.Fatalf("description = %v", proc["description"])
	}
}

func TestGenerateMediumTierRequiresRequest(t *testing.T) {
	f := newFixture(t, nil)
	f.addLocation(t, "Main", "Seattle", true)
	p := f.addClassifiedPage(t, "/blog/skincare", page.TypeBlogPost, func(p *page.Page) {
		p.Title = "Skincare Tips"
	})

	if _, err := f.svc.Generate(context.Background(), p.ID, false); err == nil {
		t.Fatal("expected tier block for unrequested MEDIUM page")
	}

	doc, err := f.svc.Generate(context.Background(), p.ID, true)
	if err != nil {
		t.Fatalf("requested generate: %v", err)
	}
	if nodeOfType(decodeGraph(t, doc.Payload), "BlogPosting") == nil {
		t.Fatal("BlogPosting node missing")
	}
}

func TestGenerateLowTierAlwaysRefused(t *testing.T) {
	f := newFixture(t, nil)
	p := f.addClassifiedPage(t, "/misc", page.TypeOther, nil)

	if _, err := f.svc.Generate(context.Background(), p.ID, true); err == nil {
		t.Fatal("expected refusal for LOW tier")
	}
}

func TestTierOverrideChangesGate(t *testing.T) {
	f := newFixture(t, nil)
	f.addLocation(t, "Main", "Seattle", true)

	// demote PROCEDURE to LOW for this account
	if _, err := f.svc.SetTier(context.Background(), f.account.ID, page.TypeProcedure, schemadoc.TierLow); err != nil {
		t.Fatalf("set tier: %v", err)
	}
	p := f.addClassifiedPage(t, "/treatments/botox", page.TypeProcedure, nil)
	if _, err := f.svc.Generate(context.Background(), p.ID, true); err == nil {
		t.Fatal("expected refusal after override to LOW")
	}

	if err := f.svc.ClearTier(context.Background(), f.account.ID, page.TypeProcedure); err != nil {
		t.Fatalf("clear tier: %v", err)
	}
	if _, err := f.svc.Generate(context.Background(), p.ID, false); err != nil {
		t.Fatalf("generate after clearing override: %v", err)
	}
}

func TestPreflightFailureQueuesReview(t *testing.T) {
	f := newFixture(t, nil)
	// no locations at all
	p := f.addClassifiedPage(t, "/", page.TypeHomepage, nil)

	_, err := f.svc.Generate(context.Background(), p.ID, false)
	if err == nil {
		t.Fatal("expected preflight failure")
	}
	items, _ := f.store.ListReviewItems(context.Background(), f.account.ID, review.StateOpen)
	if len(items) != 1 || items[0].Reason != review.ReasonPreflight {
		t.Fatalf("items = %+v", items)
	}
}

func TestGenerateFAQ(t *testing.T) {
	f := newFixture(t, nil)
	f.addLocation(t, "Main", "Seattle", true)
	p := f.addClassifiedPage(t, "/faq", page.TypeFAQ, func(p *page.Page) {
		p.Headings = []string{
			"What is Botox?",
			"How long do fillers last",
			"Our Clinic",
		}
		p.Excerpt = "FAQ What is Botox? Botox is a purified protein that relaxes muscles. " +
			"How long do fillers last Most fillers last 6 to 18 months depending on the product."
	})

	doc, err := f.svc.Generate(context.Background(), p.ID, false)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	faq := nodeOfType(decodeGraph(t, doc.Payload), "FAQPage")
	if faq == nil {
		t.Fatal("FAQPage node missing")
	}
	entities, ok := faq["mainEntity"].([]any)
	if !ok || len(entities) != 2 {
		t.Fatalf("mainEntity = %v", faq["mainEntity"])
	}
}

func TestGenerateFAQTooFewPairsFailsPreflight(t *testing.T) {
	f := newFixture(t, nil)
	f.addLocation(t, "Main", "Seattle", true)
	p := f.addClassifiedPage(t, "/faq", page.TypeFAQ, func(p *page.Page) {
		p.Headings = []string{"What is Botox?"}
		p.Excerpt = "What is Botox? A purified protein."
	})

	if _, err := f.svc.Generate(context.Background(), p.ID, false); err == nil {
		t.Fatal("expected preflight failure for a single pair")
	}
}

func TestDescriptionFallsBackToExcerpt(t *testing.T) {
	f := newFixture(t, nil)
	f.addLocation(t, "Main", "Seattle", true)
	p := f.addClassifiedPage(t, "/treatments/botox", page.TypeProcedure, func(p *page.Page) {
		p.MetaDescription = "TBD"
		p.Excerpt = "Botox smooths dynamic wrinkles by relaxing the underlying muscle."
	})

	doc, err := f.svc.Generate(context.Background(), p.ID, false)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	proc := nodeOfType(decodeGraph(t, doc.Payload), "MedicalProcedure")
	if !strings.Contains(proc["description"].(string), "smooths dynamic wrinkles") {
		t.Fatalf("description = %v", proc["description"])
	}
	if len(doc.LLMFields) != 0 {
		t.Fatalf("llm fields = %v", doc.LLMFields)
	}
}

func TestDescriptionLLMFill(t *testing.T) {
	client := llm.ClientFunc(func(ctx context.Context, req llm.Request) (llm.Response, error) {
		return llm.Response{Text: "Botox is a quick injectable treatment that softens expression lines."}, nil
	})
	f := newFixture(t, client)
	f.addLocation(t, "Main", "Seattle", true)
	p := f.addClassifiedPage(t, "/treatments/botox", page.TypeProcedure, func(p *page.Page) {
		p.MetaDescription = ""
		p.Excerpt = "short"
	})

	doc, err := f.svc.Generate(context.Background(), p.ID, false)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if len(doc.LLMFields) != 1 || doc.LLMFields[0] != "description" {
		t.Fatalf("llm fields = %v", doc.LLMFields)
	}
}

func TestDescriptionLLMFillRejectedOnLength(t *testing.T) {
	client := llm.ClientFunc(func(ctx context.Context, req llm.Request) (llm.Response, error) {
		return llm.Response{Text: "Too short."}, nil
	})
	f := newFixture(t, client)
	f.addLocation(t, "Main", "Seattle", true)
	p := f.addClassifiedPage(t, "/treatments/botox", page.TypeProcedure, func(p *page.Page) {
		p.MetaDescription = ""
		p.Excerpt = "x"
	})

	doc, err := f.svc.Generate(context.Background(), p.ID, false)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if len(doc.LLMFields) != 0 {
		t.Fatalf("llm fields = %v", doc.LLMFields)
	}
	items, _ := f.store.ListReviewItems(context.Background(), f.account.ID, review.StateOpen)
	if len(items) != 1 || items[0].Reason != review.ReasonLLMFill {
		t.Fatalf("items = %+v", items)
	}
}

func TestMarkStaleOnContentChange(t *testing.T) {
	f := newFixture(t, nil)
	f.addLocation(t, "Main", "Seattle", true)
	p := f.addClassifiedPage(t, "/treatments/botox", page.TypeProcedure, nil)

	doc, err := f.svc.Generate(context.Background(), p.ID, false)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	// simulate a recrawl changing the page content
	reloaded, _ := f.store.GetPage(context.Background(), p.ID)
	reloaded.ContentHash = "hash-2"
	if _, err := f.store.UpdatePage(context.Background(), reloaded); err != nil {
		t.Fatalf("update page: %v", err)
	}

	stale, err := f.svc.MarkStale(context.Background(), f.account.ID)
	if err != nil {
		t.Fatalf("mark stale: %v", err)
	}
	if stale != 1 {
		t.Fatalf("stale = %d, want 1", stale)
	}
	staleDoc, _ := f.svc.Get(context.Background(), doc.ID)
	if staleDoc.Status != schemadoc.StatusStale {
		t.Fatalf("doc status = %q", staleDoc.Status)
	}
	stalePage, _ := f.store.GetPage(context.Background(), p.ID)
	if stalePage.Status != page.StatusClassified {
		t.Fatalf("page status = %q", stalePage.Status)
	}
}

func TestGenerateBatchSkipsBlockedPages(t *testing.T) {
	f := newFixture(t, nil)
	f.addLocation(t, "Main", "Seattle", true)
	f.addClassifiedPage(t, "/treatments/botox", page.TypeProcedure, nil)
	f.addClassifiedPage(t, "/blog/post", page.TypeBlogPost, nil)
	f.addClassifiedPage(t, "/misc", page.TypeOther, nil)

	n, err := f.svc.GenerateBatch(context.Background(), f.account.ID, 10)
	if err != nil {
		t.Fatalf("batch: %v", err)
	}
	if n != 1 {
		t.Fatalf("generated = %d, want 1", n)
	}
}

func TestApproveAndReject(t *testing.T) {
	f := newFixture(t, nil)
	f.addLocation(t, "Main", "Seattle", true)
	p := f.addClassifiedPage(t, "/treatments/botox", page.TypeProcedure, nil)

	doc, err := f.svc.Generate(context.Background(), p.ID, false)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	approved, err := f.svc.Approve(context.Background(), doc.ID)
	if err != nil {
		t.Fatalf("approve: %v", err)
	}
	if approved.Status != schemadoc.StatusApproved {
		t.Fatalf("status = %q", approved.Status)
	}
	rejected, err := f.svc.Reject(context.Background(), doc.ID)
	if err != nil {
		t.Fatalf("reject: %v", err)
	}
	if rejected.Status != schemadoc.StatusRejected {
		t.Fatalf("status = %q", rejected.Status)
	}
}

func TestExportCSV(t *testing.T) {
	f := newFixture(t, nil)
	f.addLocation(t, "Main", "Seattle", true)
	p := f.addClassifiedPage(t, "/treatments/botox", page.TypeProcedure, nil)
	if _, err := f.svc.Generate(context.Background(), p.ID, false); err != nil {
		t.Fatalf("generate: %v", err)
	}

	var buf bytes.Buffer
	if err := f.svc.ExportCSV(context.Background(), &buf, f.account.ID); err != nil {
		t.Fatalf("export: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("lines = %d, want 2", len(lines))
	}
	if !strings.HasPrefix(lines[0], "url,path,status") {
		t.Fatalf("header = %q", lines[0])
	}
	if !strings.Contains(lines[1], "PROCEDURE") || !strings.Contains(lines[1], "HIGH") {
		t.Fatalf("row = %q", lines[1])
	}
}

func TestQuestionLike(t *testing.T) {
	cases := map[string]bool{
		"What is Botox?":           true,
		"How long do results last": true,
		"Can I exercise after?":    true,
		"Our Services":             false,
		"Meet Dr. Smith":           false,
		"":                         false,
	}
	for heading, want := range cases {
		if got := questionLike(heading); got != want {
			t.Fatalf("questionLike(%q) = %v, want %v", heading, got, want)
		}
	}
}

func TestGenerateRetriesNeedsReviewPage(t *testing.T) {
	f := newFixture(t, nil)
	f.addLocation(t, "Lakeside Main", "Seattle", true)
	p := f.addClassifiedPage(t, "/", page.TypeHomepage, func(p *page.Page) {
		p.Status = page.StatusNeedsReview
	})

	doc, err := f.svc.Generate(context.Background(), p.ID, true)
	if err != nil {
		t.Fatalf("generate after review flag: %v", err)
	}
	if doc.Status != schemadoc.StatusDraft {
		t.Fatalf("doc status = %q", doc.Status)
	}

	reloaded, _ := f.store.GetPage(context.Background(), p.ID)
	if reloaded.Status != page.StatusGenerated {
		t.Fatalf("page status = %q, want %q", reloaded.Status, page.StatusGenerated)
	}
}

func TestClipKeepsRuneBoundary(t *testing.T) {
	s := "x" + strings.Repeat("é", 400) // boundary lands mid-rune
	out := clip(s, 601)
	if len(out) > 601 {
		t.Fatalf("clip returned %d bytes, want <= 601", len(out))
	}
	if !utf8.ValidString(out) {
		t.Fatalf("clip produced invalid UTF-8: %q", out[len(out)-4:])
	}
	if short := "abc"; clip(short, 10) != short {
		t.Fatal("clip should not touch strings under the limit")
	}
}
