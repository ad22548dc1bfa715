// Package app wires the services, stores and background workers into one
// lifecycle-managed application.
package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/auroraseo/clinicgraph/internal/config"
	"github.com/auroraseo/clinicgraph/internal/domain/account"
	"github.com/auroraseo/clinicgraph/internal/domain/crawljob"
	"github.com/auroraseo/clinicgraph/internal/llm"
	"github.com/auroraseo/clinicgraph/internal/services/accounts"
	"github.com/auroraseo/clinicgraph/internal/services/classify"
	"github.com/auroraseo/clinicgraph/internal/services/crawl"
	"github.com/auroraseo/clinicgraph/internal/services/linkplans"
	"github.com/auroraseo/clinicgraph/internal/services/locations"
	"github.com/auroraseo/clinicgraph/internal/services/prompts"
	"github.com/auroraseo/clinicgraph/internal/services/reviews"
	schemasvc "github.com/auroraseo/clinicgraph/internal/services/schema"
	"github.com/auroraseo/clinicgraph/internal/storage"
	"github.com/auroraseo/clinicgraph/internal/storage/memory"
	"github.com/auroraseo/clinicgraph/internal/system"
	"github.com/auroraseo/clinicgraph/pkg/logger"
)

// Stores encapsulates persistence dependencies. Nil stores default to the
// in-memory implementation.
type Stores struct {
	Accounts  storage.AccountStore
	Locations storage.LocationStore
	Pages     storage.PageStore
	Prompts   storage.PromptStore
	Schemas   storage.SchemaStore
	LinkPlans storage.LinkPlanStore
	Reviews   storage.ReviewStore
	CrawlJobs storage.CrawlJobStore
}

func (s *Stores) fillDefaults() {
	mem := memory.New()
	if s.Accounts == nil {
		s.Accounts = mem
	}
	if s.Locations == nil {
		s.Locations = mem
	}
	if s.Pages == nil {
		s.Pages = mem
	}
	if s.Prompts == nil {
		s.Prompts = mem
	}
	if s.Schemas == nil {
		s.Schemas = mem
	}
	if s.LinkPlans == nil {
		s.LinkPlans = mem
	}
	if s.Reviews == nil {
		s.Reviews = mem
	}
	if s.CrawlJobs == nil {
		s.CrawlJobs = mem
	}
}

// Application ties the domain services together and manages their lifecycle.
type Application struct {
	manager *system.Manager
	log     *logger.Logger

	Stores Stores

	Accounts  *accounts.Service
	Locations *locations.Service
	Prompts   *prompts.Service
	LinkPlans *linkplans.Service
	Reviews   *reviews.Service
	Crawl     *crawl.Service
	Classify  *classify.Service
	Schema    *schemasvc.Service
}

// New builds a fully initialised application with the provided stores. The
// LLM client may be nil; the LLM-backed pipelines are disabled then.
func New(cfg *config.Config, stores Stores, client llm.Client, log *logger.Logger) (*Application, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if log == nil {
		log = logger.NewDefault("app")
	}
	stores.fillDefaults()

	manager := system.NewManager()

	acctService := accounts.New(stores.Accounts, log)
	locService := locations.New(stores.Accounts, stores.Locations, log)
	promptService := prompts.New(stores.Accounts, stores.Prompts, log)
	linkService := linkplans.New(stores.Pages, stores.LinkPlans, log)
	reviewService := reviews.New(stores.Reviews, log)
	crawlService := crawl.New(stores.Accounts, stores.Pages, stores.CrawlJobs, cfg.Crawler, log)
	classifyService := classify.New(stores.Pages, promptService, reviewService, client, log)
	crawlService.SetInvalidator(classifyService)
	schemaService := schemasvc.New(stores.Accounts, stores.Locations, stores.Pages, stores.Schemas,
		promptService, reviewService, client, log)

	if err := manager.Register(crawl.NewRunner(crawlService, cfg.Crawler.PollInterval, log)); err != nil {
		return nil, fmt.Errorf("register crawl runner: %w", err)
	}

	if client != nil {
		dispatcher := classify.NewDispatcher(classifyService, stores.Accounts,
			cfg.Scheduler.ClassifyInterval, cfg.LLM.ClassifyBatch, log)
		if err := manager.Register(dispatcher); err != nil {
			return nil, fmt.Errorf("register classify dispatcher: %w", err)
		}
	} else {
		log.Warn("no llm client configured; classify dispatcher disabled")
	}

	if err := manager.Register(schemasvc.NewRunner(schemaService, cfg.Scheduler.SchemaInterval, 10, log)); err != nil {
		return nil, fmt.Errorf("register schema runner: %w", err)
	}

	if cfg.Scheduler.RecrawlCron != "" {
		recrawl, err := newRecrawlScheduler(cfg.Scheduler.RecrawlCron, acctService, crawlService, log)
		if err != nil {
			return nil, fmt.Errorf("configure recrawl schedule: %w", err)
		}
		if err := manager.Register(recrawl); err != nil {
			return nil, fmt.Errorf("register recrawl scheduler: %w", err)
		}
	}

	return &Application{
		manager:   manager,
		log:       log,
		Stores:    stores,
		Accounts:  acctService,
		Locations: locService,
		Prompts:   promptService,
		LinkPlans: linkService,
		Reviews:   reviewService,
		Crawl:     crawlService,
		Classify:  classifyService,
		Schema:    schemaService,
	}, nil
}

// BuildLLMClient constructs the configured completion provider wrapped with
// retries. A missing API key yields a nil client, not an error.
func BuildLLMClient(ctx context.Context, cfg config.LLMConfig, log *logger.Logger) (llm.Client, error) {
	if cfg.APIKey == "" {
		return nil, nil
	}
	httpClient := &http.Client{Timeout: 60 * time.Second}

	var inner llm.Client
	var err error
	switch cfg.Provider {
	case "openai", "":
		inner, err = llm.NewOpenAIClient(httpClient, cfg.APIKey, cfg.Model, cfg.BaseURL)
	case "anthropic":
		inner, err = llm.NewAnthropicClient(httpClient, cfg.APIKey, cfg.Model, cfg.BaseURL)
	case "gemini":
		inner, err = llm.NewGeminiClient(ctx, cfg.APIKey, cfg.Model)
	default:
		return nil, fmt.Errorf("unknown llm provider %q", cfg.Provider)
	}
	if err != nil {
		return nil, err
	}
	return llm.NewRetryingClient(inner, log), nil
}

// Attach registers an additional lifecycle-managed service. Call before Start.
func (a *Application) Attach(service system.Service) error {
	return a.manager.Register(service)
}

// Start begins all registered services.
func (a *Application) Start(ctx context.Context) error {
	return a.manager.Start(ctx)
}

// Stop stops all services.
func (a *Application) Stop(ctx context.Context) error {
	return a.manager.Stop(ctx)
}

var _ system.Service = (*recrawlScheduler)(nil)

// recrawlScheduler enqueues a crawl for every active account on a cron
// schedule so page data stays fresh without manual triggers.
type recrawlScheduler struct {
	cron     *cron.Cron
	spec     string
	accounts *accounts.Service
	crawl    *crawl.Service
	log      *logger.Logger
	entry    cron.EntryID
}

func newRecrawlScheduler(spec string, acctService *accounts.Service, crawlService *crawl.Service, log *logger.Logger) (*recrawlScheduler, error) {
	if _, err := cron.ParseStandard(spec); err != nil {
		return nil, fmt.Errorf("invalid cron spec %q: %w", spec, err)
	}
	return &recrawlScheduler{
		cron:     cron.New(),
		spec:     spec,
		accounts: acctService,
		crawl:    crawlService,
		log:      log,
	}, nil
}

func (s *recrawlScheduler) Name() string { return "recrawl-scheduler" }

func (s *recrawlScheduler) Start(ctx context.Context) error {
	entry, err := s.cron.AddFunc(s.spec, func() { s.enqueueAll(ctx) })
	if err != nil {
		return err
	}
	s.entry = entry
	s.cron.Start()
	s.log.Infof("recrawl scheduler started with spec %q", s.spec)
	return nil
}

func (s *recrawlScheduler) Stop(ctx context.Context) error {
	stopCtx := s.cron.Stop()
	select {
	case <-stopCtx.Done():
	case <-ctx.Done():
		return ctx.Err()
	}
	s.log.Info("recrawl scheduler stopped")
	return nil
}

func (s *recrawlScheduler) enqueueAll(ctx context.Context) {
	accts, err := s.accounts.ListAccounts(ctx)
	if err != nil {
		s.log.WithError(err).Warn("recrawl sweep failed")
		return
	}
	for _, acct := range accts {
		if acct.Status != account.StatusActive {
			continue
		}
		if _, err := s.crawl.Enqueue(ctx, crawljob.Job{AccountID: acct.ID}); err != nil {
			s.log.WithError(err).Warnf("enqueue recrawl for account %s", acct.ID)
		}
	}
}
