package classify

import (
	"context"
	"sync"
	"time"

	"github.com/auroraseo/clinicgraph/internal/domain/account"
	"github.com/auroraseo/clinicgraph/internal/storage"
	"github.com/auroraseo/clinicgraph/internal/system"
	"github.com/auroraseo/clinicgraph/pkg/logger"
)

var _ system.Service = (*Dispatcher)(nil)

// Dispatcher periodically sweeps every active account for fetched pages and
// classifies them batch by batch.
type Dispatcher struct {
	service   *Service
	accounts  storage.AccountStore
	log       *logger.Logger
	interval  time.Duration
	batchSize int

	mu      sync.Mutex
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	running bool
}

// NewDispatcher constructs a lifecycle-managed classification dispatcher.
func NewDispatcher(service *Service, accounts storage.AccountStore, interval time.Duration, batchSize int, log *logger.Logger) *Dispatcher {
	if log == nil {
		log = logger.NewDefault("classify-dispatcher")
	}
	if interval <= 0 {
		interval = 30 * time.Second
	}
	if batchSize <= 0 {
		batchSize = 10
	}
	return &Dispatcher{
		service:   service,
		accounts:  accounts,
		log:       log,
		interval:  interval,
		batchSize: batchSize,
	}
}

func (d *Dispatcher) Name() string { return "classify-dispatcher" }

func (d *Dispatcher) Start(ctx context.Context) error {
	d.mu.Lock()
	if d.running {
		d.mu.Unlock()
		return nil
	}
	runCtx, cancel := context.WithCancel(ctx)
	d.cancel = cancel
	d.running = true
	d.mu.Unlock()

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		ticker := time.NewTicker(d.interval)
		defer ticker.Stop()
		for {
			select {
			case <-runCtx.Done():
				return
			case <-ticker.C:
				d.tick(runCtx)
			}
		}
	}()

	d.log.Info("classify dispatcher started")
	return nil
}

func (d *Dispatcher) Stop(ctx context.Context) error {
	d.mu.Lock()
	if !d.running {
		d.mu.Unlock()
		return nil
	}
	cancel := d.cancel
	d.running = false
	d.cancel = nil
	d.mu.Unlock()

	if cancel != nil {
		cancel()
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		d.wg.Wait()
	}()

	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}

	d.log.Info("classify dispatcher stopped")
	return nil
}

func (d *Dispatcher) tick(ctx context.Context) {
	accts, err := d.accounts.ListAccounts(ctx)
	if err != nil {
		d.log.WithError(err).Warn("classify dispatcher tick failed")
		return
	}
	for _, acct := range accts {
		if acct.Status != account.StatusActive {
			continue
		}
		n, err := d.service.ClassifyBatch(ctx, acct.ID, d.batchSize)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			d.log.WithError(err).Warnf("classify batch for account %s failed", acct.ID)
			continue
		}
		if n > 0 {
			d.log.WithField("account", acct.ID).Infof("classified %d pages", n)
		}
	}
}
