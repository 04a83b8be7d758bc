// Package aggregator fans out over feed sources and merges the results into one timeline.
package aggregator

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/lepinkainen/feed-timeline/pkg/feed"
)

// Fetcher retrieves the raw bytes of one feed
type Fetcher interface {
	Fetch(ctx context.Context, url string, timeout time.Duration) ([]byte, bool)
}

// ParseFunc turns raw feed bytes into items
type ParseFunc func(raw []byte) ([]feed.Item, bool)

// Config bounds the engine's work per aggregation
type Config struct {
	// Timeout applies to each source separately
	Timeout time.Duration
	// MaxConcurrency caps in-flight fetches; 0 runs one goroutine per source
	MaxConcurrency int
}

// DefaultConfig returns the engine defaults
func DefaultConfig() Config {
	return Config{
		Timeout:        10 * time.Second,
		MaxConcurrency: 8,
	}
}

// Engine aggregates feeds concurrently with independent failure per source
type Engine struct {
	fetcher Fetcher
	parse   ParseFunc
	config  Config
}

// NewEngine creates an engine using feed.Parse for parsing
func NewEngine(fetcher Fetcher, config Config) *Engine {
	return &Engine{
		fetcher: fetcher,
		parse:   feed.Parse,
		config:  config,
	}
}

// WithParser replaces the parse step
func (e *Engine) WithParser(parse ParseFunc) *Engine {
	if parse != nil {
		e.parse = parse
	}
	return e
}

// Aggregate fetches every source, merges the items newest first and drops repeated links.
// Failing sources contribute nothing; it never returns an error.
func (e *Engine) Aggregate(ctx context.Context, sources []feed.SourceRef) feed.Timeline {
	timeline, _ := e.AggregateReport(ctx, sources)
	return timeline
}

// AggregateReport is Aggregate plus the outcome of every source, in source order
func (e *Engine) AggregateReport(ctx context.Context, sources []feed.SourceRef) (feed.Timeline, []Report) {
	if len(sources) == 0 {
		return feed.Timeline{}, nil
	}

	start := time.Now()
	results := make([][]feed.Item, len(sources))
	reports := make([]Report, len(sources))

	var g errgroup.Group
	if e.config.MaxConcurrency > 0 {
		g.SetLimit(e.config.MaxConcurrency)
	}

	for i, src := range sources {
		g.Go(func() error {
			results[i], reports[i] = e.collect(ctx, src)
			return nil
		})
	}
	_ = g.Wait()

	total := 0
	for _, items := range results {
		total += len(items)
	}

	// merge in source order so ties keep a deterministic position
	merged := make(feed.Timeline, 0, total)
	for _, items := range results {
		merged = append(merged, items...)
	}

	timeline := Dedupe(SortTimeline(merged))

	slog.Debug("Aggregated feeds",
		"sources", len(sources),
		"failed", countFailed(reports),
		"items", len(timeline),
		"duration", time.Since(start))

	return timeline, reports
}

// collect runs fetch and parse for one source; a panic is contained to that source
func (e *Engine) collect(ctx context.Context, src feed.SourceRef) (items []feed.Item, report Report) {
	start := time.Now()
	report = Report{URL: src.URL}

	defer func() {
		if r := recover(); r != nil {
			slog.Warn("Source aggregation panicked", "url", src.URL, "panic", r)
			items = nil
			report.Status = StatusFetchFailed
			report.Items = 0
		}
		report.Duration = time.Since(start)
	}()

	raw, ok := e.fetcher.Fetch(ctx, src.URL, e.config.Timeout)
	if !ok {
		slog.Debug("Skipping source, fetch failed", "url", src.URL)
		report.Status = StatusFetchFailed
		return nil, report
	}

	items, ok = e.parse(raw)
	if !ok {
		slog.Debug("Skipping source, parse failed", "url", src.URL, "bytes", len(raw))
		report.Status = StatusParseFailed
		return nil, report
	}

	report.Status = StatusOK
	report.Items = len(items)
	return items, report
}

// SortTimeline orders items by publish date, newest first; undated items go last.
// The sort is stable so equal dates keep their merge order.
func SortTimeline(items feed.Timeline) feed.Timeline {
	sort.SliceStable(items, func(i, j int) bool {
		return newer(items[i].PublishedAt, items[j].PublishedAt)
	})
	return items
}

func newer(a, b time.Time) bool {
	switch {
	case a.IsZero():
		return false
	case b.IsZero():
		return true
	default:
		return a.After(b)
	}
}

// Dedupe drops items whose link already appeared earlier in the timeline.
// Items without a link are always kept.
func Dedupe(items feed.Timeline) feed.Timeline {
	seen := make(map[string]struct{}, len(items))
	out := items[:0]

	for _, item := range items {
		if item.Link != "" {
			if _, dup := seen[item.Link]; dup {
				continue
			}
			seen[item.Link] = struct{}{}
		}
		out = append(out, item)
	}

	return out
}
