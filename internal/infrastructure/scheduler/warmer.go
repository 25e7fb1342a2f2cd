package scheduler

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// OrganizationLister lists the organizations that have projection inputs
type OrganizationLister interface {
	ListOrganizations(ctx context.Context) ([]uuid.UUID, error)
}

// CacheWarmer recomputes every organization's baseline report on a fixed
// interval so that dashboard reads are served from the report cache.
type CacheWarmer struct {
	interval time.Duration
	lister   OrganizationLister
	pool     *Pool
	logger   *zap.Logger

	mu   sync.Mutex
	stop context.CancelFunc
	done chan struct{}
}

// NewCacheWarmer creates a warmer submitting jobs to pool
func NewCacheWarmer(interval time.Duration, lister OrganizationLister, pool *Pool, logger *zap.Logger) *CacheWarmer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CacheWarmer{
		interval: interval,
		lister:   lister,
		pool:     pool,
		logger:   logger.Named("cache_warmer"),
	}
}

// Start starts the pool and the first warm-up round, then one round per
// interval until Stop.
func (w *CacheWarmer) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.stop != nil {
		return nil
	}
	if err := w.pool.Start(ctx); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	w.stop = cancel
	w.done = make(chan struct{})
	go w.loop(ctx)

	w.logger.Info("Cache warmer started", zap.Duration("interval", w.interval))
	return nil
}

// Stop ends the ticker loop and drains the pool
func (w *CacheWarmer) Stop(ctx context.Context) error {
	w.mu.Lock()
	if w.stop == nil {
		w.mu.Unlock()
		return nil
	}
	w.stop()
	done := w.done
	w.stop = nil
	w.mu.Unlock()

	<-done
	return w.pool.Stop(ctx)
}

func (w *CacheWarmer) loop(ctx context.Context) {
	defer close(w.done)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.WarmAll(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.WarmAll(ctx)
		}
	}
}

// WarmAll submits one baseline job per organization and returns how many
// were queued. Organizations whose previous job is still pending are skipped.
func (w *CacheWarmer) WarmAll(ctx context.Context) int {
	orgs, err := w.lister.ListOrganizations(ctx)
	if err != nil {
		w.logger.Error("Failed to list organizations", zap.Error(err))
		return 0
	}

	queued, skipped := 0, 0
	for _, org := range orgs {
		err := w.pool.Submit(WarmJob{OrganizationID: org})
		switch {
		case err == nil:
			queued++
		case errors.Is(err, ErrAlreadyQueued):
			skipped++
		case errors.Is(err, ErrQueueFull):
			// the rest waits for the next round
			w.logger.Warn("Warm-up queue full",
				zap.Int("queued", queued),
				zap.Int("organizations", len(orgs)),
			)
			return queued
		default:
			w.logger.Warn("Failed to submit warm-up job",
				zap.String("organization_id", org.String()),
				zap.Error(err),
			)
			return queued
		}
	}
	w.logger.Debug("Warm-up round queued", zap.Int("queued", queued), zap.Int("skipped", skipped))
	return queued
}
