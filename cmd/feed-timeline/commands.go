package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"golang.org/x/sync/errgroup"

	"github.com/lepinkainen/feed-timeline/internal/server"
	"github.com/lepinkainen/feed-timeline/pkg/aggregator"
	"github.com/lepinkainen/feed-timeline/pkg/cache"
	"github.com/lepinkainen/feed-timeline/pkg/feed"
	"github.com/lepinkainen/feed-timeline/pkg/filesystem"
	"github.com/lepinkainen/feed-timeline/pkg/preview"
	"github.com/lepinkainen/feed-timeline/pkg/render"
	"github.com/lepinkainen/feed-timeline/pkg/settings"
)

const watchDebounce = 250 * time.Millisecond

// serve runs the HTTP host, the cache warmer and the settings watcher until interrupted
func (a *app) serve(addr string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if addr == "" {
		addr = a.cfg.Server.Addr
	}

	deps := server.Deps{
		Plugin: a.plugin,
		HTML:   a.html,
		Cache:  a.cache,
		Store:  a.store,
	}
	if a.db != nil {
		deps.Database = a.db
	}
	if a.cacheStore != nil {
		deps.Stats = a.cacheStore
	}

	srv := server.New(server.Config{
		Addr:     addr,
		AssetURL: a.cfg.Server.AssetURL,
		Admin:    a.cfg.Server.Admin,
		Feed:     render.DefaultOptions(),
	}, deps)

	// the watcher observes the parent directory, which must exist before the first save
	if a.fileStore != nil {
		if err := filesystem.EnsureDirectoryExists(a.fileStore.Path()); err != nil {
			return err
		}
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return srv.ListenAndServe(ctx)
	})

	g.Go(func() error {
		warmer := cache.NewWarmer(a.cache, a.plugin.Sources, a.cfg.Refresh.Interval, a.cfg.Cache.TTL)
		if a.cacheStore != nil {
			warmer.WithCleanup(a.cacheStore)
		}
		return ignoreCanceled(warmer.Run(ctx))
	})

	if a.fileStore != nil {
		g.Go(func() error {
			return ignoreCanceled(settings.Watch(ctx, a.fileStore.Path(), watchDebounce, a.reloadSettings))
		})
	}

	return g.Wait()
}

// reloadSettings picks up an external edit of the settings file
func (a *app) reloadSettings() {
	if err := a.fileStore.Reload(); err != nil {
		slog.Warn("Failed to reload settings file", "path", a.fileStore.Path(), "error", err)
		return
	}
	sources, err := a.plugin.Sources()
	if err != nil {
		slog.Warn("Failed to read reloaded feed list", "error", err)
		return
	}
	slog.Info("Reloaded feed list", "path", a.fileStore.Path(), "feeds", len(sources))
}

func ignoreCanceled(err error) error {
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// fetch aggregates once and writes the timeline in the requested format
func (a *app) fetch(stdout, stderr io.Writer, format, view string, report bool, outfile string) error {
	renderer, info, err := render.DefaultRegistry.Create(format, render.DefaultOptions())
	if err != nil {
		return err
	}

	sources, err := a.plugin.Sources()
	if err != nil {
		return err
	}

	v := render.View{
		SourceCount: len(sources),
		Mode:        render.ParseViewMode(view),
		Fingerprint: cache.Fingerprint(sources),
	}

	switch {
	case len(sources) == 0:
		v.Timeline = feed.Timeline{}
	case report:
		// per-source results only exist for a live aggregation
		var reports []aggregator.Report
		v.Timeline, reports = a.engine.AggregateReport(context.Background(), sources)
		writeReports(stderr, reports)
	default:
		entry := a.cache.GetOrAggregateEntry(context.Background(), sources, a.cfg.Cache.TTL)
		v.Timeline = entry.Timeline
		v.Updated = entry.FetchedAt
	}

	var buf bytes.Buffer
	if err := renderer.Render(&buf, v); err != nil {
		return err
	}

	if outfile == "" {
		_, err := stdout.Write(buf.Bytes())
		return err
	}

	if err := filesystem.WriteFileAtomic(outfile, buf.Bytes(), 0o644); err != nil {
		return err
	}
	slog.Info("Timeline written", "path", outfile, "format", info.Name, "items", len(v.Timeline), "size", humanize.Bytes(uint64(buf.Len())))
	return nil
}

// writeReports prints one line per source
func writeReports(w io.Writer, reports []aggregator.Report) {
	failed := 0
	for _, r := range reports {
		if !r.OK() {
			failed++
		}
		fmt.Fprintf(w, "%-12s %4d items %8s  %s\n", r.Status, r.Items, r.Duration.Round(time.Millisecond), r.URL)
	}
	fmt.Fprintf(w, "%d sources, %d failed\n", len(reports), failed)
}

// clearCache drops every cached timeline so the next read aggregates again
func (a *app) clearCache(w io.Writer) error {
	a.cache.Purge()
	if a.cacheStore == nil {
		fmt.Fprintln(w, "Cleared in-memory cache")
		return nil
	}
	if err := a.cacheStore.Clear(); err != nil {
		return err
	}
	fmt.Fprintln(w, "Cleared stored timelines")
	return nil
}

// listFeeds prints the configured feed URLs
func (a *app) listFeeds(w io.Writer) error {
	sources, err := a.plugin.Sources()
	if err != nil {
		return err
	}
	if len(sources) == 0 {
		fmt.Fprintln(w, "No feeds configured")
		return nil
	}
	for _, s := range sources {
		fmt.Fprintln(w, s.URL)
	}
	return nil
}

func (a *app) addFeed(w io.Writer, url string) error {
	added, err := settings.AddFeed(a.store, url)
	if err != nil {
		return err
	}
	if !added {
		fmt.Fprintf(w, "Already configured: %s\n", url)
		return nil
	}
	fmt.Fprintf(w, "Added: %s\n", url)
	return nil
}

func (a *app) removeFeed(w io.Writer, url string) error {
	removed, err := settings.RemoveFeed(a.store, url)
	if err != nil {
		return err
	}
	if !removed {
		fmt.Fprintf(w, "Not configured: %s\n", url)
		return nil
	}
	fmt.Fprintf(w, "Removed: %s\n", url)
	return nil
}

// setFeeds replaces the feed list from a file, or stdin for "-"
func (a *app) setFeeds(w io.Writer, stdin io.Reader, path string) error {
	var raw []byte
	var err error
	if path == "" || path == "-" {
		raw, err = io.ReadAll(stdin)
	} else {
		raw, err = os.ReadFile(path)
	}
	if err != nil {
		return fmt.Errorf("failed to read feed list: %w", err)
	}

	sources, err := a.plugin.UpdateFeeds(string(raw))
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "Configured %d feeds\n", len(sources))
	return nil
}

// preview browses the timeline in the terminal, or prints one entry when index is set
func (a *app) preview(w io.Writer, index int) error {
	view, err := a.plugin.Timeline(context.Background(), render.ListView)
	if err != nil {
		return err
	}

	if index >= 0 {
		if index >= len(view.Timeline) {
			return fmt.Errorf("index %d out of range, timeline has %d items", index, len(view.Timeline))
		}
		_, err := fmt.Fprintln(w, preview.FormatAtomEntry(view.Timeline[index]))
		return err
	}

	return preview.Run(view.Timeline, render.DefaultOptions().Title)
}
