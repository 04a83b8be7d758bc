// Package cache keeps aggregated timelines fresh without refetching on every request.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/lepinkainen/feed-timeline/pkg/feed"
)

// Aggregator produces a timeline for a list of sources
type Aggregator interface {
	Aggregate(ctx context.Context, sources []feed.SourceRef) feed.Timeline
}

// Store is an optional second tier that survives restarts
type Store interface {
	Load(fingerprint string) (Entry, bool, error)
	Save(entry Entry, ttl time.Duration) error
	Delete(fingerprint string) error
}

// Entry is one cached aggregation result
type Entry struct {
	Fingerprint string        `json:"fingerprint"`
	Timeline    feed.Timeline `json:"timeline"`
	FetchedAt   time.Time     `json:"fetched_at"`
}

// Fresh reports whether the entry is younger than ttl at now
func (e Entry) Fresh(now time.Time, ttl time.Duration) bool {
	return now.Sub(e.FetchedAt) < ttl
}

// Options configures a RefreshCache
type Options struct {
	// MaxEntries bounds the number of fingerprints kept in memory; 0 is unbounded
	MaxEntries int
	Store      Store
	Now        func() time.Time
}

// RefreshCache wraps an Aggregator with a TTL'd, coalescing cache keyed by source list
type RefreshCache struct {
	agg   Aggregator
	store Store
	max   int
	now   func() time.Time

	mu      sync.Mutex
	entries map[string]Entry
	group   singleflight.Group
}

// New creates a cache in front of agg
func New(agg Aggregator, opts Options) *RefreshCache {
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	return &RefreshCache{
		agg:     agg,
		store:   opts.Store,
		max:     opts.MaxEntries,
		now:     now,
		entries: make(map[string]Entry),
	}
}

// Fingerprint identifies a source list; the order of URLs is significant
func Fingerprint(sources []feed.SourceRef) string {
	urls := make([]string, len(sources))
	for i, s := range sources {
		urls[i] = strings.TrimSpace(s.URL)
	}
	sum := sha256.Sum256([]byte(strings.Join(urls, "\n")))
	return hex.EncodeToString(sum[:])
}

// GetOrAggregate returns the cached timeline for sources when it is younger than ttl,
// otherwise aggregates once and caches the result. Concurrent callers share one aggregation.
func (c *RefreshCache) GetOrAggregate(ctx context.Context, sources []feed.SourceRef, ttl time.Duration) feed.Timeline {
	return c.GetOrAggregateEntry(ctx, sources, ttl).Timeline
}

// GetOrAggregateEntry is GetOrAggregate returning the entry that was served,
// so the timeline and its FetchedAt always belong to the same aggregation
func (c *RefreshCache) GetOrAggregateEntry(ctx context.Context, sources []feed.SourceRef, ttl time.Duration) Entry {
	fp := Fingerprint(sources)
	if entry, ok := c.lookup(fp, ttl); ok {
		return entry
	}

	v, _, shared := c.group.Do(fp, func() (any, error) {
		// another flight may have finished between the lookup and Do
		if entry, ok := c.lookup(fp, ttl); ok {
			return entry, nil
		}
		if entry, ok := c.loadStored(fp, ttl); ok {
			c.put(entry)
			return entry, nil
		}
		return c.aggregate(context.WithoutCancel(ctx), fp, sources, ttl), nil
	})
	if shared {
		slog.Debug("Joined in-flight aggregation", "fingerprint", short(fp))
	}

	return v.(Entry)
}

// Refresh re-aggregates sources regardless of the cached entry's age
func (c *RefreshCache) Refresh(ctx context.Context, sources []feed.SourceRef, ttl time.Duration) feed.Timeline {
	fp := Fingerprint(sources)
	v, _, _ := c.group.Do(fp, func() (any, error) {
		return c.aggregate(context.WithoutCancel(ctx), fp, sources, ttl), nil
	})
	return v.(Entry).Timeline
}

// Entry returns the cached entry for sources regardless of age
func (c *RefreshCache) Entry(sources []feed.SourceRef) (Entry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.entries[Fingerprint(sources)]
	return entry, ok
}

// Invalidate drops the entry for sources from both tiers
func (c *RefreshCache) Invalidate(sources []feed.SourceRef) {
	fp := Fingerprint(sources)

	c.mu.Lock()
	delete(c.entries, fp)
	c.mu.Unlock()

	if c.store != nil {
		if err := c.store.Delete(fp); err != nil {
			slog.Warn("Failed to delete stored timeline", "fingerprint", short(fp), "error", err)
		}
	}
}

// Purge drops every in-memory entry
func (c *RefreshCache) Purge() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]Entry)
}

// Len returns the number of in-memory entries
func (c *RefreshCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *RefreshCache) lookup(fp string, ttl time.Duration) (Entry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[fp]
	if !ok || !entry.Fresh(c.now(), ttl) {
		return Entry{}, false
	}
	return entry, true
}

func (c *RefreshCache) loadStored(fp string, ttl time.Duration) (Entry, bool) {
	if c.store == nil {
		return Entry{}, false
	}

	entry, ok, err := c.store.Load(fp)
	if err != nil {
		slog.Warn("Failed to load stored timeline", "fingerprint", short(fp), "error", err)
		return Entry{}, false
	}
	if !ok || !entry.Fresh(c.now(), ttl) {
		return Entry{}, false
	}

	slog.Debug("Loaded timeline from store", "fingerprint", short(fp), "items", len(entry.Timeline))
	return entry, true
}

func (c *RefreshCache) aggregate(ctx context.Context, fp string, sources []feed.SourceRef, ttl time.Duration) Entry {
	timeline := c.agg.Aggregate(ctx, sources)
	if timeline == nil {
		timeline = feed.Timeline{}
	}

	entry := Entry{Fingerprint: fp, Timeline: timeline, FetchedAt: c.now()}
	c.put(entry)

	if c.store != nil {
		if err := c.store.Save(entry, ttl); err != nil {
			slog.Warn("Failed to store timeline", "fingerprint", short(fp), "error", err)
		}
	}

	slog.Debug("Cached timeline", "fingerprint", short(fp), "sources", len(sources), "items", len(timeline))
	return entry
}

// put replaces the entry for its fingerprint and evicts the oldest entries over the limit
func (c *RefreshCache) put(entry Entry) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[entry.Fingerprint] = entry

	for c.max > 0 && len(c.entries) > c.max {
		oldest := ""
		for fp, e := range c.entries {
			if fp == entry.Fingerprint {
				continue
			}
			if oldest == "" || e.FetchedAt.Before(c.entries[oldest].FetchedAt) {
				oldest = fp
			}
		}
		if oldest == "" {
			return
		}
		delete(c.entries, oldest)
		slog.Debug("Evicted cached timeline", "fingerprint", short(oldest))
	}
}

func short(fp string) string {
	if len(fp) > 12 {
		return fp[:12]
	}
	return fp
}
