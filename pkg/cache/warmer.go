package cache

import (
	"context"
	"log/slog"
	"time"

	"github.com/lepinkainen/feed-timeline/pkg/dbinterfaces"
	"github.com/lepinkainen/feed-timeline/pkg/feed"
)

// SourceFunc returns the currently configured sources
type SourceFunc func() ([]feed.SourceRef, error)

// Warmer periodically refreshes the timeline for the configured sources
type Warmer struct {
	cache    *RefreshCache
	sources  SourceFunc
	interval time.Duration
	ttl      time.Duration
	cleanup  dbinterfaces.CleanupProvider
}

// NewWarmer creates a warmer refreshing every interval
func NewWarmer(cache *RefreshCache, sources SourceFunc, interval, ttl time.Duration) *Warmer {
	return &Warmer{
		cache:    cache,
		sources:  sources,
		interval: interval,
		ttl:      ttl,
	}
}

// WithCleanup expires stale rows of store after every refresh
func (w *Warmer) WithCleanup(store dbinterfaces.CleanupProvider) *Warmer {
	w.cleanup = store
	return w
}

// Run warms immediately and then on every tick until ctx is done
func (w *Warmer) Run(ctx context.Context) error {
	if w.interval <= 0 {
		slog.Debug("Cache warmer disabled")
		<-ctx.Done()
		return ctx.Err()
	}

	w.WarmOnce(ctx)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			w.WarmOnce(ctx)
		}
	}
}

// WarmOnce refreshes the current source list; an empty list is skipped
func (w *Warmer) WarmOnce(ctx context.Context) {
	sources, err := w.sources()
	if err != nil {
		slog.Warn("Failed to load sources for cache warm-up", "error", err)
		return
	}
	if len(sources) == 0 {
		return
	}

	start := time.Now()
	timeline := w.cache.Refresh(ctx, sources, w.ttl)
	slog.Info("Refreshed timeline", "sources", len(sources), "items", len(timeline), "duration", time.Since(start))

	if w.cleanup != nil {
		if err := w.cleanup.CleanupExpired(); err != nil {
			slog.Warn("Failed to clean up expired timelines", "error", err)
		}
	}
}
