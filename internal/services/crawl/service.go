// Package crawl implements same-site breadth-first crawling of client
// websites, feeding page rows to the classification pipeline.
package crawl

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/auroraseo/clinicgraph/internal/config"
	"github.com/auroraseo/clinicgraph/internal/domain/crawljob"
	"github.com/auroraseo/clinicgraph/internal/domain/page"
	"github.com/auroraseo/clinicgraph/internal/metrics"
	"github.com/auroraseo/clinicgraph/internal/storage"
	"github.com/auroraseo/clinicgraph/pkg/logger"
)

const maxBodyBytes = 2 << 20

// SummaryInvalidator drops per-account caches derived from crawled pages.
// The classifier's site summary registers here so a fresh crawl retires it.
type SummaryInvalidator interface {
	InvalidateSummary(accountID string)
}

// Service manages crawl jobs and executes them.
type Service struct {
	accounts    storage.AccountStore
	pages       storage.PageStore
	jobs        storage.CrawlJobStore
	client      *http.Client
	cfg         config.CrawlerConfig
	log         *logger.Logger
	invalidator SummaryInvalidator
}

// New constructs a crawl service.
func New(accounts storage.AccountStore, pages storage.PageStore, jobs storage.CrawlJobStore, cfg config.CrawlerConfig, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("crawl")
	}
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	return &Service{
		accounts: accounts,
		pages:    pages,
		jobs:     jobs,
		client:   &http.Client{Timeout: timeout},
		cfg:      cfg,
		log:      log,
	}
}

// SetInvalidator registers a cache to drop after each crawl run.
func (s *Service) SetInvalidator(inv SummaryInvalidator) {
	s.invalidator = inv
}

// WithClient overrides the HTTP client, primarily for tests.
func (s *Service) WithClient(client *http.Client) {
	if client != nil {
		s.client = client
	}
}

// Enqueue records a pending crawl job for an account. Empty limits fall back
// to the configured defaults; the seed URL falls back to the account domain.
func (s *Service) Enqueue(ctx context.Context, job crawljob.Job) (crawljob.Job, error) {
	if job.AccountID == "" {
		return crawljob.Job{}, fmt.Errorf("account_id is required")
	}
	acct, err := s.accounts.GetAccount(ctx, job.AccountID)
	if err != nil {
		return crawljob.Job{}, fmt.Errorf("account validation failed: %w", err)
	}
	if job.SeedURL == "" {
		job.SeedURL = "https://" + acct.Domain
	}
	if _, err := normalizeURL(job.SeedURL); err != nil {
		return crawljob.Job{}, fmt.Errorf("invalid seed url: %w", err)
	}
	if job.MaxPages <= 0 || job.MaxPages > s.cfg.MaxPages {
		job.MaxPages = s.cfg.MaxPages
	}
	if job.MaxDepth <= 0 || job.MaxDepth > s.cfg.MaxDepth {
		job.MaxDepth = s.cfg.MaxDepth
	}
	if job.DelayMS <= 0 {
		job.DelayMS = int(s.cfg.RequestDelay / time.Millisecond)
	}
	job.Status = crawljob.StatusPending

	created, err := s.jobs.CreateCrawlJob(ctx, job)
	if err != nil {
		return crawljob.Job{}, err
	}
	s.log.WithField("account", job.AccountID).Infof("crawl job %s enqueued for %s", created.ID, job.SeedURL)
	return created, nil
}

// Get retrieves a crawl job.
func (s *Service) Get(ctx context.Context, id string) (crawljob.Job, error) {
	return s.jobs.GetCrawlJob(ctx, id)
}

// List returns crawl jobs for an account.
func (s *Service) List(ctx context.Context, accountID string) ([]crawljob.Job, error) {
	return s.jobs.ListCrawlJobs(ctx, accountID)
}

// Run executes one crawl job to completion. It claims the job, walks the
// site breadth-first within the job's limits, and records the outcome on the
// job row. Context cancellation marks the job failed.
func (s *Service) Run(ctx context.Context, jobID string) (crawljob.Job, error) {
	job, err := s.jobs.GetCrawlJob(ctx, jobID)
	if err != nil {
		return crawljob.Job{}, err
	}
	if job.Status != crawljob.StatusPending {
		return job, fmt.Errorf("crawl job %s is %s, not pending", jobID, job.Status)
	}

	job.Status = crawljob.StatusRunning
	job.StartedAt = time.Now().UTC()
	if job, err = s.jobs.UpdateCrawlJob(ctx, job); err != nil {
		return crawljob.Job{}, err
	}
	s.log.WithField("account", job.AccountID).Infof("crawl job %s started", job.ID)

	crawlErr := s.walk(ctx, &job)

	job.EndedAt = time.Now().UTC()
	if crawlErr != nil {
		job.Status = crawljob.StatusFailed
		job.Error = crawlErr.Error()
		s.log.WithError(crawlErr).Warnf("crawl job %s failed", job.ID)
	} else {
		job.Status = crawljob.StatusCompleted
		s.log.Infof("crawl job %s completed: %d fetched, %d failed, %d skipped",
			job.ID, job.Fetched, job.Failed, job.Skipped)
	}

	updated, err := s.jobs.UpdateCrawlJob(context.WithoutCancel(ctx), job)
	if err != nil {
		return job, err
	}
	if s.invalidator != nil && job.Fetched > 0 {
		s.invalidator.InvalidateSummary(job.AccountID)
	}
	return updated, crawlErr
}

type frontierEntry struct {
	url   *url.URL
	depth int
}

func (s *Service) walk(ctx context.Context, job *crawljob.Job) error {
	seed, err := normalizeURL(job.SeedURL)
	if err != nil {
		return fmt.Errorf("invalid seed url: %w", err)
	}

	delay := time.Duration(job.DelayMS) * time.Millisecond
	if delay <= 0 {
		delay = time.Second
	}
	limiter := rate.NewLimiter(rate.Every(delay), 1)

	frontier := []frontierEntry{{url: seed, depth: 0}}
	seen := map[string]struct{}{seed.String(): {}}

	for len(frontier) > 0 {
		if job.Fetched+job.Failed >= job.MaxPages {
			break
		}
		entry := frontier[0]
		frontier = frontier[1:]

		if err := limiter.Wait(ctx); err != nil {
			return err
		}

		links, fetchErr := s.fetchPage(ctx, job, entry)
		if fetchErr != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			job.Failed++
			metrics.RecordCrawlFetch("error")
			s.log.WithError(fetchErr).Warnf("fetch %s failed", entry.url)
			continue
		}

		if entry.depth >= job.MaxDepth {
			continue
		}
		for _, link := range links {
			normalized, err := normalizeURL(link)
			if err != nil || !sameSite(seed, normalized) {
				continue
			}
			key := normalized.String()
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			frontier = append(frontier, frontierEntry{url: normalized, depth: entry.depth + 1})
		}
	}
	return nil
}

// fetchPage downloads one URL and persists its page row. Non-HTML responses
// and foreign-host redirects are counted as skipped, not failed.
func (s *Service) fetchPage(ctx context.Context, job *crawljob.Job, entry frontierEntry) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, entry.url.String(), nil)
	if err != nil {
		return nil, err
	}
	if s.cfg.UserAgent != "" {
		req.Header.Set("User-Agent", s.cfg.UserAgent)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		s.recordFailure(ctx, job, entry, 0)
		return nil, err
	}
	defer resp.Body.Close()

	finalURL := resp.Request.URL
	if !sameSite(entry.url, finalURL) {
		job.Skipped++
		metrics.RecordCrawlFetch("skipped")
		return nil, nil
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType != "" && !strings.Contains(contentType, "text/html") {
		job.Skipped++
		metrics.RecordCrawlFetch("skipped")
		return nil, nil
	}

	if resp.StatusCode >= 400 {
		s.recordFailure(ctx, job, entry, resp.StatusCode)
		job.Failed++
		metrics.RecordCrawlFetch("error")
		return nil, nil
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		s.recordFailure(ctx, job, entry, resp.StatusCode)
		return nil, err
	}

	doc, err := parseDocument(bytes.NewReader(body), finalURL)
	if err != nil {
		s.recordFailure(ctx, job, entry, resp.StatusCode)
		return nil, err
	}

	hash := sha256.Sum256(body)
	row := page.Page{
		AccountID:       job.AccountID,
		URL:             entry.url.String(),
		Path:            entry.url.Path,
		Title:           doc.Title,
		MetaDescription: doc.MetaDescription,
		Headings:        doc.Headings,
		Excerpt:         doc.Excerpt,
		Status:          page.StatusFetched,
		HTTPStatus:      resp.StatusCode,
		ContentHash:     hex.EncodeToString(hash[:]),
		Depth:           entry.depth,
		FetchedAt:       time.Now().UTC(),
	}
	if _, err := s.pages.UpsertPage(ctx, row); err != nil {
		return nil, fmt.Errorf("persist page: %w", err)
	}

	job.Fetched++
	metrics.RecordCrawlFetch("ok")
	return doc.Links, nil
}

func (s *Service) recordFailure(ctx context.Context, job *crawljob.Job, entry frontierEntry, status int) {
	if ctx.Err() != nil {
		return
	}
	row := page.Page{
		AccountID:  job.AccountID,
		URL:        entry.url.String(),
		Path:       entry.url.Path,
		Status:     page.StatusFailed,
		HTTPStatus: status,
		Depth:      entry.depth,
		FetchedAt:  time.Now().UTC(),
	}
	if _, err := s.pages.UpsertPage(ctx, row); err != nil {
		s.log.WithError(err).Warnf("persist failed page %s", entry.url)
	}
}
