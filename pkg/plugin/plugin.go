// Package plugin adapts the aggregator to a host content-management surface.
package plugin

import (
	"bytes"
	"context"
	"fmt"
	"html"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/lepinkainen/feed-timeline/pkg/cache"
	"github.com/lepinkainen/feed-timeline/pkg/feed"
	"github.com/lepinkainen/feed-timeline/pkg/render"
	"github.com/lepinkainen/feed-timeline/pkg/settings"
)

const (
	// PageSlug is the menu slug the timeline is served under
	PageSlug = "timeline"
	// PageName is the menu label for the timeline
	PageName = "Timeline"
)

// Extension is the hook surface a host calls into
type Extension interface {
	CSS() string
	JS() string
	Settings(loggedIn bool) string
	Menu(items []render.MenuItem) []render.MenuItem
	Page(ctx context.Context, req PageRequest) string
}

// PageRequest carries the host's per-request state
type PageRequest struct {
	CurrentPage string
	// Content is what the host would render when the page is not ours
	Content  string
	ViewMode render.ViewMode
}

// Config wires the aggregator's collaborators
type Config struct {
	Store    settings.Store
	Cache    *cache.RefreshCache
	HTML     *render.HTMLRenderer
	TTL      time.Duration
	AssetURL string
}

// Aggregator implements Extension on top of the refresh cache
type Aggregator struct {
	store    settings.Store
	cache    *cache.RefreshCache
	html     *render.HTMLRenderer
	ttl      time.Duration
	assetURL string
}

var _ Extension = (*Aggregator)(nil)

// NewAggregator creates the extension; it performs no I/O
func NewAggregator(cfg Config) *Aggregator {
	return &Aggregator{
		store:    cfg.Store,
		cache:    cfg.Cache,
		html:     cfg.HTML,
		ttl:      cfg.TTL,
		assetURL: strings.TrimRight(cfg.AssetURL, "/"),
	}
}

// CSS returns the stylesheet link tag
func (a *Aggregator) CSS() string {
	return fmt.Sprintf(`<link rel="stylesheet" href="%s">`, html.EscapeString(a.assetURL+"/style.css"))
}

// JS returns the inline view toggle script
func (a *Aggregator) JS() string {
	return "<script>\n" + string(a.html.Script()) + "</script>"
}

// Settings returns the feed list form fragment for logged-in users
func (a *Aggregator) Settings(loggedIn bool) string {
	if !loggedIn {
		return ""
	}

	feeds, err := settings.FeedsText(a.store)
	if err != nil {
		slog.Error("Failed to load feed list for settings", "error", err)
		return ""
	}

	var buf bytes.Buffer
	if err := a.html.RenderSettings(&buf, render.SettingsView{Feeds: feeds, ReadOnly: settings.IsReadOnly(a.store)}); err != nil {
		slog.Error("Failed to render settings", "error", err)
		return ""
	}
	return buf.String()
}

// Menu adds the timeline page unless the host already lists it
func (a *Aggregator) Menu(items []render.MenuItem) []render.MenuItem {
	for _, item := range items {
		if item.Slug == PageSlug {
			return items
		}
	}
	return append(items, render.MenuItem{Slug: PageSlug, Name: PageName})
}

// Page renders the timeline when the host is on the timeline page and passes content through otherwise
func (a *Aggregator) Page(ctx context.Context, req PageRequest) string {
	if req.CurrentPage != PageSlug {
		return req.Content
	}

	var buf bytes.Buffer
	if err := a.RenderTimeline(ctx, &buf, req.ViewMode); err != nil {
		slog.Error("Failed to render timeline", "error", err)
		return req.Content
	}
	return buf.String()
}

// Sources returns the configured feeds
func (a *Aggregator) Sources() ([]feed.SourceRef, error) {
	return settings.LoadSources(a.store)
}

// Timeline returns the cached (or freshly aggregated) view of the configured feeds
func (a *Aggregator) Timeline(ctx context.Context, mode render.ViewMode) (render.View, error) {
	sources, err := a.Sources()
	if err != nil {
		return render.View{}, err
	}

	view := render.View{
		SourceCount: len(sources),
		Mode:        render.ParseViewMode(string(mode)),
		Fingerprint: cache.Fingerprint(sources),
	}
	if len(sources) == 0 {
		view.Timeline = feed.Timeline{}
		return view, nil
	}

	entry := a.cache.GetOrAggregateEntry(ctx, sources, a.ttl)
	view.Timeline = entry.Timeline
	view.Updated = entry.FetchedAt
	return view, nil
}

// RenderTimeline writes the HTML timeline for the configured feeds
func (a *Aggregator) RenderTimeline(ctx context.Context, w io.Writer, mode render.ViewMode) error {
	view, err := a.Timeline(ctx, mode)
	if err != nil {
		return err
	}
	return a.html.Render(w, view)
}

// UpdateFeeds stores a submitted feed list and drops the cached timeline of the previous list
func (a *Aggregator) UpdateFeeds(raw string) ([]feed.SourceRef, error) {
	previous, err := a.Sources()
	if err != nil {
		return nil, err
	}

	sources, err := settings.SaveFeeds(a.store, raw)
	if err != nil {
		return nil, err
	}

	a.cache.Invalidate(previous)
	slog.Info("Updated feed list", "feeds", len(sources))
	return sources, nil
}
