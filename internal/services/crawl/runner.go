package crawl

import (
	"context"
	"sync"
	"time"

	"github.com/auroraseo/clinicgraph/internal/system"
	"github.com/auroraseo/clinicgraph/pkg/logger"
)

var _ system.Service = (*Runner)(nil)

// Runner periodically picks up pending crawl jobs and executes them one at a
// time per tick.
type Runner struct {
	service  *Service
	log      *logger.Logger
	interval time.Duration

	mu      sync.Mutex
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	running bool
}

// NewRunner constructs a lifecycle-managed crawl runner.
func NewRunner(service *Service, interval time.Duration, log *logger.Logger) *Runner {
	if log == nil {
		log = logger.NewDefault("crawl-runner")
	}
	if interval <= 0 {
		interval = 15 * time.Second
	}
	return &Runner{service: service, log: log, interval: interval}
}

func (r *Runner) Name() string { return "crawl-runner" }

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

	r.log.Info("crawl runner started")
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

	r.log.Info("crawl runner stopped")
	return nil
}

func (r *Runner) tick(ctx context.Context) {
	jobs, err := r.service.jobs.ListPendingCrawlJobs(ctx)
	if err != nil {
		r.log.WithError(err).Warn("crawl runner tick failed")
		return
	}
	if len(jobs) == 0 {
		return
	}
	// one job per tick keeps load on client sites predictable
	if _, err := r.service.Run(ctx, jobs[0].ID); err != nil && ctx.Err() == nil {
		r.log.WithError(err).Warnf("crawl job %s run failed", jobs[0].ID)
	}
}
