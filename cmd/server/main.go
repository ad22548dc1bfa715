// Package main runs the clinicgraph API server with its background
// crawl, classification and schema pipelines.
package main

import (
	"context"
	"database/sql"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	_ "github.com/lib/pq"

	app "github.com/auroraseo/clinicgraph/internal/app"
	"github.com/auroraseo/clinicgraph/internal/config"
	"github.com/auroraseo/clinicgraph/internal/httpapi"
	"github.com/auroraseo/clinicgraph/internal/metrics"
	"github.com/auroraseo/clinicgraph/internal/middleware"
	"github.com/auroraseo/clinicgraph/internal/storage/postgres"
	"github.com/auroraseo/clinicgraph/pkg/logger"
)

func main() {
	configPath := flag.String("config", "", "Path to YAML configuration file")
	auditPath := flag.String("audit-log", "", "Append audit entries as JSONL to this file")
	corsOrigins := flag.String("cors-origins", "", "Comma-separated allowed CORS origins, * for any")
	flag.Parse()

	var cfg *config.Config
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			logger.NewDefault("main").WithError(err).Error("load configuration")
			os.Exit(1)
		}
		cfg = loaded
	} else {
		cfg = config.LoadOrDefault("")
	}

	log := logger.New(logger.LoggingConfig{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	}).WithField("component", "main")

	stores, closeStore, err := buildStores(cfg, log)
	if err != nil {
		log.WithError(err).Error("initialize storage")
		os.Exit(1)
	}
	defer closeStore()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	llmClient, err := app.BuildLLMClient(ctx, cfg.LLM, log)
	if err != nil {
		log.WithError(err).Error("initialize llm client")
		os.Exit(1)
	}

	application, err := app.New(cfg, stores, llmClient, log)
	if err != nil {
		log.WithError(err).Error("build application")
		os.Exit(1)
	}

	api, err := httpapi.NewHandler(application, httpapi.Options{
		JWTSecret: []byte(cfg.Auth.JWTSecret),
		TokenTTL:  cfg.Auth.TokenExpiry,
		AuditPath: *auditPath,
	})
	if err != nil {
		log.WithError(err).Error("build api handler")
		os.Exit(1)
	}

	root := http.NewServeMux()
	root.Handle("/metrics", metrics.Handler())
	root.Handle("/", api)

	// the limiter sits inside auth so it keys on the authenticated user
	var handler http.Handler = metrics.InstrumentHandler(root)
	if cfg.Server.RateLimitRPS > 0 {
		handler = middleware.NewRateLimiter(cfg.Server.RateLimitRPS, cfg.Server.RateLimitBurst, log).Handler(handler)
	}
	auth := middleware.NewAuth([]byte(cfg.Auth.JWTSecret), log, []string{"/healthz", "/metrics"})
	handler = auth.Handler(handler)
	if *corsOrigins != "" {
		handler = middleware.NewCORS(strings.Split(*corsOrigins, ",")).Handler(handler)
	}

	if err := application.Start(ctx); err != nil {
		log.WithError(err).Error("start application")
		os.Exit(1)
	}

	server := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Infof("listening on %s", server.Addr)
		if err := server.ListenAndServe(); err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received")
	case err := <-errCh:
		log.WithError(err).Error("server error")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("server shutdown")
	}
	if err := application.Stop(shutdownCtx); err != nil {
		log.WithError(err).Warn("application shutdown")
	}
	log.Info("stopped")
}

func buildStores(cfg *config.Config, log *logger.Logger) (app.Stores, func(), error) {
	if cfg.Database.Driver != "postgres" {
		log.Info("using in-memory storage")
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
	log.Info("connected to postgres")
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
