// Package main is a one-shot pipeline runner. It crawls an account's site
// and optionally classifies the pages and generates structured data,
// without starting the API server.
package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/lib/pq"

	app "github.com/auroraseo/clinicgraph/internal/app"
	"github.com/auroraseo/clinicgraph/internal/config"
	"github.com/auroraseo/clinicgraph/internal/domain/account"
	"github.com/auroraseo/clinicgraph/internal/domain/crawljob"
	"github.com/auroraseo/clinicgraph/internal/storage/postgres"
	"github.com/auroraseo/clinicgraph/pkg/logger"
)

func main() {
	configPath := flag.String("config", "", "Path to YAML configuration file")
	accountID := flag.String("account", "", "Account ID to crawl")
	domain := flag.String("domain", "", "Create a throwaway account for this domain instead of -account")
	seed := flag.String("seed", "", "Seed URL override")
	maxPages := flag.Int("max-pages", 0, "Page limit override")
	maxDepth := flag.Int("max-depth", 0, "Depth limit override")
	runClassify := flag.Bool("classify", false, "Classify fetched pages after the crawl")
	runGenerate := flag.Bool("generate", false, "Generate schema documents after classification")
	exportCSV := flag.Bool("csv", false, "Write the page report as CSV to stdout")
	flag.Parse()

	cfg := config.LoadOrDefault(*configPath)
	log := logger.New(logger.LoggingConfig{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: "stderr",
	}).WithField("component", "crawlctl")

	if *accountID == "" && *domain == "" {
		fmt.Fprintln(os.Stderr, "either -account or -domain is required")
		os.Exit(2)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	stores, closeStore, err := buildStores(cfg)
	if err != nil {
		log.WithError(err).Error("initialize storage")
		os.Exit(1)
	}
	defer closeStore()

	llmClient, err := app.BuildLLMClient(ctx, cfg.LLM, log)
	if err != nil {
		log.WithError(err).Error("initialize llm client")
		os.Exit(1)
	}
	if llmClient == nil && *runClassify {
		log.Warn("no llm api key configured; pages that heuristics cannot classify will fail")
	}

	application, err := app.New(cfg, stores, llmClient, log)
	if err != nil {
		log.WithError(err).Error("build application")
		os.Exit(1)
	}

	target := *accountID
	if target == "" {
		acct, err := application.Accounts.CreateAccount(ctx, account.Account{
			Name:   *domain,
			Domain: *domain,
		})
		if err != nil {
			log.WithError(err).Error("create account")
			os.Exit(1)
		}
		target = acct.ID
		log.Infof("created account %s for %s", acct.ID, acct.Domain)
	}

	job, err := application.Crawl.Enqueue(ctx, crawljob.Job{
		AccountID: target,
		SeedURL:   *seed,
		MaxPages:  *maxPages,
		MaxDepth:  *maxDepth,
	})
	if err != nil {
		log.WithError(err).Error("enqueue crawl")
		os.Exit(1)
	}

	job, err = application.Crawl.Run(ctx, job.ID)
	if err != nil {
		log.WithError(err).Error("crawl failed")
		os.Exit(1)
	}
	log.Infof("crawl %s: fetched=%d failed=%d skipped=%d", job.Status, job.Fetched, job.Failed, job.Skipped)

	// batch limits default to a small page count; a one-shot run covers
	// every page the crawl produced
	crawled, err := application.Stores.Pages.ListPages(ctx, target)
	if err != nil {
		log.WithError(err).Error("list pages")
		os.Exit(1)
	}

	if *runClassify {
		n, err := application.Classify.ClassifyBatch(ctx, target, len(crawled))
		if err != nil {
			log.WithError(err).Error("classification failed")
			os.Exit(1)
		}
		log.Infof("classified %d pages", n)
	}

	if *runGenerate {
		n, err := application.Schema.GenerateBatch(ctx, target, len(crawled))
		if err != nil {
			log.WithError(err).Error("schema generation failed")
			os.Exit(1)
		}
		log.Infof("generated %d schema documents", n)
	}

	if *exportCSV {
		if err := application.Schema.ExportCSV(ctx, os.Stdout, target); err != nil {
			log.WithError(err).Error("export failed")
			os.Exit(1)
		}
	}
}

func buildStores(cfg *config.Config) (app.Stores, func(), error) {
	if cfg.Database.Driver != "postgres" {
		return app.Stores{}, func() {}, nil
	}
	db, err := sql.Open("postgres", cfg.Database.DSN)
	if err != nil {
		return app.Stores{}, nil, err
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return app.Stores{}, nil, err
	}
	store := postgres.New(db)
	return app.Stores{
		Accounts:  store,
		Locations: store,
		Pages:     store,
		Prompts:   store,
		Schemas:   store,
		LinkPlans: store,
		Reviews:   store,
		CrawlJobs: store,
	}, func() { db.Close() }, nil
}
