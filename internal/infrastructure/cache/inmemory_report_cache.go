package cache

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/agrodash/backend/internal/domain/report"
)

type reportEntry struct {
	report    *report.ConsolidatedReport
	expiresAt time.Time
}

// InMemoryReportCache keeps reports in process memory. Stored reports are
// shared with readers and must not be mutated after Set.
type InMemoryReportCache struct {
	mu        sync.RWMutex
	entries   map[string]reportEntry
	now       func() time.Time
	stopChan  chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// NewInMemoryReportCache creates the cache and starts a loop that evicts
// expired entries every cleanupInterval.
func NewInMemoryReportCache(cleanupInterval time.Duration) *InMemoryReportCache {
	if cleanupInterval <= 0 {
		cleanupInterval = time.Minute
	}
	c := &InMemoryReportCache{
		entries:  make(map[string]reportEntry),
		now:      time.Now,
		stopChan: make(chan struct{}),
	}
	c.wg.Add(1)
	go c.cleanupLoop(cleanupInterval)
	return c
}

// Get returns a live entry
func (c *InMemoryReportCache) Get(_ context.Context, key report.CacheKey) (*report.ConsolidatedReport, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.entries[key.String()]
	if !ok || !c.now().Before(e.expiresAt) {
		return nil, false, nil
	}
	return e.report, true, nil
}

// Set stores rep until ttl elapses
func (c *InMemoryReportCache) Set(_ context.Context, key report.CacheKey, rep *report.ConsolidatedReport, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key.String()] = reportEntry{report: rep, expiresAt: c.now().Add(ttl)}
	return nil
}

// InvalidateOrganization drops every entry of the organization
func (c *InMemoryReportCache) InvalidateOrganization(_ context.Context, organizationID uuid.UUID) error {
	prefix := organizationID.String() + ":"

	c.mu.Lock()
	defer c.mu.Unlock()
	for k := range c.entries {
		if strings.HasPrefix(k, prefix) {
			delete(c.entries, k)
		}
	}
	return nil
}

// Len returns the number of stored entries, expired ones included
func (c *InMemoryReportCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Close stops the cleanup loop. Safe to call more than once.
func (c *InMemoryReportCache) Close() error {
	c.closeOnce.Do(func() {
		close(c.stopChan)
		c.wg.Wait()
	})
	return nil
}

func (c *InMemoryReportCache) cleanupLoop(interval time.Duration) {
	defer c.wg.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-c.stopChan:
			return
		case <-ticker.C:
			c.evictExpired()
		}
	}
}

func (c *InMemoryReportCache) evictExpired() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	for k, e := range c.entries {
		if !now.Before(e.expiresAt) {
			delete(c.entries, k)
		}
	}
}

var _ report.ReportCache = (*InMemoryReportCache)(nil)
