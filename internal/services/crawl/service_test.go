package crawl

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/auroraseo/clinicgraph/internal/config"
	"github.com/auroraseo/clinicgraph/internal/domain/account"
	"github.com/auroraseo/clinicgraph/internal/domain/crawljob"
	"github.com/auroraseo/clinicgraph/internal/domain/page"
	"github.com/auroraseo/clinicgraph/internal/storage/memory"
)

func testConfig() config.CrawlerConfig {
	return config.CrawlerConfig{
		UserAgent:      "test-crawler",
		MaxPages:       50,
		MaxDepth:       3,
		RequestDelay:   time.Millisecond,
		RequestTimeout: 5 * time.Second,
	}
}

func siteHandler(pages map[string]string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, ok := pages[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprint(w, body)
	})
}

func TestRunCrawlsSameSiteBreadthFirst(t *testing.T) {
	site := map[string]string{
		"/": `<html><head><title>Lakeside Dermatology</title>
			<meta name="description" content="Dermatology practice"></head>
			<body><h1>Welcome</h1>
			<a href="/services/botox">Botox</a>
			<a href="/about/">About</a>
			<a href="/about">About dup</a>
			<a href="https://elsewhere.example.com/page">External</a>
			<a href="mailto:info@clinic.com">Mail</a>
			<a href="/brochure.pdf">Brochure</a>
			</body></html>`,
		"/services/botox": `<html><head><title>Botox</title></head>
			<body><h1>Botox Injections</h1><p>Smooth lines.</p></body></html>`,
		"/about": `<html><head><title>About</title></head>
			<body><h2>Our Practice</h2><a href="/">Home</a></body></html>`,
	}
	server := httptest.NewServer(siteHandler(site))
	defer server.Close()

	store := memory.New()
	acct, _ := store.CreateAccount(context.Background(), account.Account{Name: "c", Domain: "c.com"})

	svc := New(store, store, store, testConfig(), nil)
	svc.WithClient(server.Client())

	job, err := svc.Enqueue(context.Background(), crawljob.Job{
		AccountID: acct.ID,
		SeedURL:   server.URL,
	})
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	done, err := svc.Run(context.Background(), job.ID)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if done.Status != crawljob.StatusCompleted {
		t.Fatalf("status = %q, error = %q", done.Status, done.Error)
	}
	if done.Fetched != 3 {
		t.Fatalf("fetched = %d, want 3", done.Fetched)
	}

	pages, err := store.ListPages(context.Background(), acct.ID)
	if err != nil {
		t.Fatalf("list pages: %v", err)
	}
	if len(pages) != 3 {
		t.Fatalf("pages = %d, want 3", len(pages))
	}

	var home page.Page
	for _, p := range pages {
		if p.Path == "/" {
			home = p
		}
	}
	if home.Title != "Lakeside Dermatology" {
		t.Fatalf("title = %q", home.Title)
	}
	if home.MetaDescription != "Dermatology practice" {
		t.Fatalf("meta = %q", home.MetaDescription)
	}
	if len(home.Headings) == 0 || home.Headings[0] != "Welcome" {
		t.Fatalf("headings = %v", home.Headings)
	}
	if home.Status != page.StatusFetched {
		t.Fatalf("status = %q", home.Status)
	}
	if home.ContentHash == "" {
		t.Fatal("content hash missing")
	}
}

func TestRunRecordsFailedPages(t *testing.T) {
	site := map[string]string{
		"/": `<html><body><a href="/gone">Gone</a></body></html>`,
	}
	server := httptest.NewServer(siteHandler(site))
	defer server.Close()

	store := memory.New()
	acct, _ := store.CreateAccount(context.Background(), account.Account{Name: "c", Domain: "c.com"})

	svc := New(store, store, store, testConfig(), nil)
	svc.WithClient(server.Client())

	job, _ := svc.Enqueue(context.Background(), crawljob.Job{AccountID: acct.ID, SeedURL: server.URL})
	done, err := svc.Run(context.Background(), job.ID)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if done.Failed != 1 {
		t.Fatalf("failed = %d, want 1", done.Failed)
	}

	failed, err := store.GetPageByURL(context.Background(), acct.ID, server.URL+"/gone")
	if err != nil {
		t.Fatalf("get failed page: %v", err)
	}
	if failed.Status != page.StatusFailed || failed.HTTPStatus != http.StatusNotFound {
		t.Fatalf("page = %+v", failed)
	}
}

func TestRunHonorsMaxPages(t *testing.T) {
	// every page links to the next so the crawl would run forever
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		next := r.URL.Path + "x"
		fmt.Fprintf(w, `<html><body><a href="%s">next</a></body></html>`, next)
	}))
	defer server.Close()

	store := memory.New()
	acct, _ := store.CreateAccount(context.Background(), account.Account{Name: "c", Domain: "c.com"})

	cfg := testConfig()
	svc := New(store, store, store, cfg, nil)
	svc.WithClient(server.Client())

	job, _ := svc.Enqueue(context.Background(), crawljob.Job{
		AccountID: acct.ID,
		SeedURL:   server.URL,
		MaxPages:  4,
		MaxDepth:  50,
	})
	done, err := svc.Run(context.Background(), job.ID)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if done.Fetched != 4 {
		t.Fatalf("fetched = %d, want 4", done.Fetched)
	}
}

func TestRunSkipsNonHTML(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/feed" {
			w.Header().Set("Content-Type", "application/xml")
			fmt.Fprint(w, "<rss/>")
			return
		}
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, `<html><body><a href="/feed">Feed</a></body></html>`)
	}))
	defer server.Close()

	store := memory.New()
	acct, _ := store.CreateAccount(context.Background(), account.Account{Name: "c", Domain: "c.com"})

	svc := New(store, store, store, testConfig(), nil)
	svc.WithClient(server.Client())

	job, _ := svc.Enqueue(context.Background(), crawljob.Job{AccountID: acct.ID, SeedURL: server.URL})
	done, err := svc.Run(context.Background(), job.ID)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if done.Skipped != 1 {
		t.Fatalf("skipped = %d, want 1", done.Skipped)
	}
	if done.Fetched != 1 {
		t.Fatalf("fetched = %d, want 1", done.Fetched)
	}
}

func TestRunRejectsNonPendingJob(t *testing.T) {
	store := memory.New()
	acct, _ := store.CreateAccount(context.Background(), account.Account{Name: "c", Domain: "c.com"})
	svc := New(store, store, store, testConfig(), nil)

	job, _ := svc.Enqueue(context.Background(), crawljob.Job{AccountID: acct.ID, SeedURL: "https://c.com"})
	job.Status = crawljob.StatusCompleted
	if _, err := store.UpdateCrawlJob(context.Background(), job); err != nil {
		t.Fatalf("update: %v", err)
	}

	if _, err := svc.Run(context.Background(), job.ID); err == nil {
		t.Fatal("expected error running a completed job")
	}
}

func TestNormalizeURL(t *testing.T) {
	cases := []struct {
		in   string
		want string
		ok   bool
	}{
		{"HTTPS://Clinic.COM/About/", "https://clinic.com/About", true},
		{"https://clinic.com/faq#q1", "https://clinic.com/faq", true},
		{"https://clinic.com/", "https://clinic.com/", true},
		{"ftp://clinic.com/x", "", false},
	}
	for _, tc := range cases {
		got, err := normalizeURL(tc.in)
		if tc.ok {
			if err != nil {
				t.Fatalf("normalize %q: %v", tc.in, err)
			}
			if got.String() != tc.want {
				t.Fatalf("normalize %q = %q, want %q", tc.in, got.String(), tc.want)
			}
			continue
		}
		if err == nil {
			t.Fatalf("normalize %q: expected error", tc.in)
		}
	}
}

func TestCrawlable(t *testing.T) {
	for _, bad := range []string{"mailto:a@b.c", "tel:+1555", "javascript:void(0)", "/image.png", "/doc.pdf?dl=1", "#", ""} {
		if crawlable(bad) {
			t.Fatalf("crawlable(%q) = true", bad)
		}
	}
	for _, good := range []string{"/about", "https://clinic.com/services/botox", "/faq?tab=2"} {
		if !crawlable(good) {
			t.Fatalf("crawlable(%q) = false", good)
		}
	}
}

func TestParseDocumentExtractsExcerpt(t *testing.T) {
	raw := `<html><head><title>T</title><script>ignored()</script></head>
		<body><h1>Heading</h1><p>Visible text here.</p><style>.x{}</style></body></html>`
	base, _ := normalizeURL("https://clinic.com/")
	doc, err := parseDocument(strings.NewReader(raw), base)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if strings.Contains(doc.Excerpt, "ignored") {
		t.Fatalf("script text leaked into excerpt: %q", doc.Excerpt)
	}
	if !strings.Contains(doc.Excerpt, "Visible text here.") {
		t.Fatalf("excerpt = %q", doc.Excerpt)
	}
}

type recordingInvalidator struct {
	accounts []string
}

func (r *recordingInvalidator) InvalidateSummary(accountID string) {
	r.accounts = append(r.accounts, accountID)
}

func TestRunInvalidatesSummaryCache(t *testing.T) {
	site := map[string]string{
		"/": `<html><head><title>Home</title></head><body><h1>Welcome</h1></body></html>`,
	}
	server := httptest.NewServer(siteHandler(site))
	defer server.Close()

	store := memory.New()
	acct, _ := store.CreateAccount(context.Background(), account.Account{Name: "c", Domain: "c.com"})

	svc := New(store, store, store, testConfig(), nil)
	svc.WithClient(server.Client())
	inv := &recordingInvalidator{}
	svc.SetInvalidator(inv)

	job, err := svc.Enqueue(context.Background(), crawljob.Job{AccountID: acct.ID, SeedURL: server.URL})
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	if _, err := svc.Run(context.Background(), job.ID); err != nil {
		t.Fatalf("run: %v", err)
	}

	if len(inv.accounts) != 1 || inv.accounts[0] != acct.ID {
		t.Fatalf("cache invalidations = %v, want one for %s", inv.accounts, acct.ID)
	}
}

func TestParseDocumentExcerptKeepsRuneBoundary(t *testing.T) {
	// title "Home" plus the joining space puts the two-byte runes on odd
	// offsets, so a byte-index cut at the limit would land mid-rune
	raw := `<html><head><title>Home</title></head><body><p>` +
		strings.Repeat("é", 1200) + `</p></body></html>`
	base, _ := normalizeURL("https://clinic.com/")
	doc, err := parseDocument(strings.NewReader(raw), base)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(doc.Excerpt) > 2000 {
		t.Fatalf("excerpt is %d bytes, want <= 2000", len(doc.Excerpt))
	}
	if !utf8.ValidString(doc.Excerpt) {
		t.Fatal("excerpt truncation split a rune")
	}
}
