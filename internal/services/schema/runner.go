package schema

import (
	"context"
	"sync"
	"time"

	"github.com/auroraseo/clinicgraph/internal/domain/account"
	"github.com/auroraseo/clinicgraph/internal/system"
	"github.com/auroraseo/clinicgraph/pkg/logger"
)

var _ system.Service = (*Runner)(nil)

// Runner periodically generates documents for classified HIGH-tier pages and
// flags stale ones whose content changed.
type Runner struct {
	service   *Service
	log       *logger.Logger
	interval  time.Duration
	batchSize int

	mu      sync.Mutex
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	running bool
}

// NewRunner constructs a lifecycle-managed schema runner.
func NewRunner(service *Service, interval time.Duration, batchSize int, log *logger.Logger) *Runner {
	if log == nil {
		log = logger.NewDefault("schema-runner")
	}
	if interval <= 0 {
		interval = 30 * time.Second
	}
	if batchSize <= 0 {
		batchSize = 10
	}
	return &Runner{service: service, log: log, interval: interval, batchSize: batchSize}
}

func (r *Runner) Name() string { return "schema-runner" }

func (r *Runner) Start(ctx context.Context) error {
	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		return nil
	}
	runCtx, cancel := context.WithCancel(ctx)
	r.cancel = cancel
	r.running = true
	r.mu.Unlock()

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		ticker := time.NewTicker(r.interval)
		defer ticker.Stop()
		for {
			select {
			case <-runCtx.Done():
				return
			case <-ticker.C:
				r.tick(runCtx)
			}
		}
	}()

	r.log.Info("schema runner started")
	return nil
}

func (r *Runner) Stop(ctx context.Context) error {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return nil
	}
	cancel := r.cancel
	r.running = false
	r.cancel = nil
	r.mu.Unlock()

	if cancel != nil {
		cancel()
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		r.wg.Wait()
	}()

	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}

	r.log.Info("schema runner stopped")
	return nil
}

func (r *Runner) tick(ctx context.Context) {
	accts, err := r.service.accounts.ListAccounts(ctx)
	if err != nil {
		r.log.WithError(err).Warn("schema runner tick failed")
		return
	}
	for _, acct := range accts {
		if acct.Status != account.StatusActive {
			continue
		}
		if stale, err := r.service.MarkStale(ctx, acct.ID); err != nil {
			r.log.WithError(err).Warnf("mark stale for account %s failed", acct.ID)
		} else if stale > 0 {
			r.log.WithField("account", acct.ID).Infof("%d schema docs marked stale", stale)
		}

		n, err := r.service.GenerateBatch(ctx, acct.ID, r.batchSize)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			r.log.WithError(err).Warnf("schema batch for account %s failed", acct.ID)
			continue
		}
		if n > 0 {
			r.log.WithField("account", acct.ID).Infof("generated %d schema docs", n)
		}
	}
}
