// Package server hosts the timeline, exports and settings over HTTP.
package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"html/template"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/lepinkainen/feed-timeline/pkg/cache"
	"github.com/lepinkainen/feed-timeline/pkg/dbinterfaces"
	"github.com/lepinkainen/feed-timeline/pkg/plugin"
	"github.com/lepinkainen/feed-timeline/pkg/render"
	"github.com/lepinkainen/feed-timeline/pkg/settings"
)

const settingsSlug = "settings"

// Config controls the HTTP host
type Config struct {
	Addr     string
	AssetURL string
	// Admin enables feed list edits through POST /settings
	Admin bool
	// Feed holds the metadata used by the export formats
	Feed render.Options
}

// Deps are the components the server routes to
type Deps struct {
	Plugin   *plugin.Aggregator
	HTML     *render.HTMLRenderer
	Cache    *cache.RefreshCache
	Store    settings.Store
	Registry *render.Registry
	// Database and Stats are optional; when set /healthz reports them
	Database dbinterfaces.Database
	Stats    dbinterfaces.StatsProvider
}

// Server serves the timeline page, feed exports, settings and health
type Server struct {
	cfg  Config
	deps Deps
	mux  *http.ServeMux
}

// New creates the server and registers its routes
func New(cfg Config, deps Deps) *Server {
	if cfg.AssetURL == "" {
		cfg.AssetURL = "/assets"
	}
	cfg.AssetURL = strings.TrimRight(cfg.AssetURL, "/")
	if deps.Registry == nil {
		deps.Registry = render.DefaultRegistry
	}

	s := &Server{cfg: cfg, deps: deps, mux: http.NewServeMux()}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/"+plugin.PageSlug, http.StatusFound)
	})
	s.mux.HandleFunc("GET /"+plugin.PageSlug, s.handleTimeline)
	s.mux.HandleFunc("GET /feed/{format}", s.handleFeed)
	s.mux.HandleFunc("GET /"+settingsSlug, s.handleSettings)
	s.mux.HandleFunc("POST /"+settingsSlug, s.handleSettingsUpdate)
	s.mux.HandleFunc("GET /healthz", s.handleHealth)
	s.mux.HandleFunc("GET "+s.cfg.AssetURL+"/style.css", s.handleAsset("text/css; charset=utf-8", s.deps.HTML.Stylesheet))
	s.mux.HandleFunc("GET "+s.cfg.AssetURL+"/script.js", s.handleAsset("text/javascript; charset=utf-8", s.deps.HTML.Script))
}

// Handler returns the root handler with request logging
func (s *Server) Handler() http.Handler {
	return logRequests(s.mux)
}

// ListenAndServe serves until ctx is canceled, then shuts down gracefully
func (s *Server) ListenAndServe(ctx context.Context) error {
	server := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("HTTP server listening", "addr", s.cfg.Addr)
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()

	slog.Info("Shutting down HTTP server")
	if err := server.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return nil
}

// viewMode reads the layout preference the browser toggle stored
func viewMode(r *http.Request) render.ViewMode {
	if c, err := r.Cookie(render.ViewModeCookie); err == nil {
		return render.ParseViewMode(c.Value)
	}
	return render.ListView
}

// menu lists the pages the host navigation shows
func (s *Server) menu() []render.MenuItem {
	items := []render.MenuItem{}
	items = s.deps.Plugin.Menu(items)
	if s.cfg.Admin {
		items = append(items, render.MenuItem{Slug: settingsSlug, Name: "Settings"})
	}
	return items
}

func (s *Server) writePage(w http.ResponseWriter, current string, body template.HTML) {
	page := render.PageView{
		Title:   s.cfg.Feed.Title,
		Current: current,
		Menu:    s.menu(),
		Head:    template.HTML(s.deps.Plugin.CSS()),
		Body:    body,
		Scripts: template.HTML(s.deps.Plugin.JS()),
	}

	var buf bytes.Buffer
	if err := s.deps.HTML.RenderPage(&buf, page); err != nil {
		slog.Error("Failed to render page", "page", current, "error", err)
		http.Error(w, "failed to render page", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(buf.Bytes())
}

func (s *Server) handleTimeline(w http.ResponseWriter, r *http.Request) {
	body := s.deps.Plugin.Page(r.Context(), plugin.PageRequest{
		CurrentPage: plugin.PageSlug,
		ViewMode:    viewMode(r),
	})
	s.writePage(w, plugin.PageSlug, template.HTML(body))
}

func (s *Server) handleFeed(w http.ResponseWriter, r *http.Request) {
	renderer, info, err := s.deps.Registry.Create(r.PathValue("format"), s.cfg.Feed)
	if errors.Is(err, render.ErrUnknownFormat) {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	if err != nil {
		slog.Error("Failed to create renderer", "format", r.PathValue("format"), "error", err)
		http.Error(w, "failed to create renderer", http.StatusInternalServerError)
		return
	}

	view, err := s.deps.Plugin.Timeline(r.Context(), viewMode(r))
	if err != nil {
		slog.Error("Failed to load timeline", "error", err)
		http.Error(w, "failed to load timeline", http.StatusInternalServerError)
		return
	}

	var buf bytes.Buffer
	if err := renderer.Render(&buf, view); err != nil {
		slog.Error("Failed to render timeline", "format", info.Name, "error", err)
		http.Error(w, "failed to render timeline", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", info.ContentType)
	if !view.Updated.IsZero() {
		w.Header().Set("Last-Modified", view.Updated.UTC().Format(http.TimeFormat))
	}
	_, _ = w.Write(buf.Bytes())
}

func (s *Server) handleSettings(w http.ResponseWriter, r *http.Request) {
	if !s.cfg.Admin {
		http.NotFound(w, r)
		return
	}

	var body strings.Builder
	body.WriteString(`<form method="post" action="/` + settingsSlug + `">`)
	body.WriteString(s.deps.Plugin.Settings(true))
	if !settings.IsReadOnly(s.deps.Store) {
		body.WriteString(`<button type="submit" class="btn btn-primary">Save</button>`)
	}
	body.WriteString(`</form>`)

	s.writePage(w, settingsSlug, template.HTML(body.String()))
}

func (s *Server) handleSettingsUpdate(w http.ResponseWriter, r *http.Request) {
	if !s.cfg.Admin || settings.IsReadOnly(s.deps.Store) {
		http.Error(w, settings.ErrReadOnly.Error(), http.StatusForbidden)
		return
	}

	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}

	if _, err := s.deps.Plugin.UpdateFeeds(r.PostFormValue("rssFeeds")); err != nil {
		if errors.Is(err, settings.ErrReadOnly) {
			http.Error(w, err.Error(), http.StatusForbidden)
			return
		}
		slog.Error("Failed to save feed list", "error", err)
		http.Error(w, "failed to save feed list", http.StatusInternalServerError)
		return
	}

	http.Redirect(w, r, "/"+settingsSlug, http.StatusSeeOther)
}

// health is the /healthz response body
type health struct {
	Status       string         `json:"status"`
	Feeds        int            `json:"feeds"`
	CacheEntries int            `json:"cache_entries"`
	Database     string         `json:"database,omitempty"`
	Store        map[string]any `json:"store,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	h := health{Status: "ok", CacheEntries: s.deps.Cache.Len()}
	status := http.StatusOK

	if sources, err := s.deps.Plugin.Sources(); err != nil {
		slog.Warn("Health check could not read settings", "error", err)
		h.Status = "degraded"
		status = http.StatusServiceUnavailable
	} else {
		h.Feeds = len(sources)
	}

	if s.deps.Database != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		h.Database = "ok"
		if err := s.deps.Database.Ping(ctx); err != nil {
			slog.Warn("Health check could not reach the database", "error", err)
			h.Database = "unreachable"
			h.Status = "degraded"
			status = http.StatusServiceUnavailable
		}
	}

	if s.deps.Stats != nil {
		stats, err := s.deps.Stats.GetStats()
		if err != nil {
			slog.Warn("Health check could not read cache stats", "error", err)
			h.Status = "degraded"
			status = http.StatusServiceUnavailable
		}
		h.Store = stats
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(h); err != nil {
		slog.Debug("Failed to write health response", "error", err)
	}
}

func (s *Server) handleAsset(contentType string, content func() []byte) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", contentType)
		w.Header().Set("Cache-Control", "public, max-age=3600")
		_, _ = w.Write(content())
	}
}

// statusRecorder captures the response status for logging
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		slog.Debug("HTTP request", "method", r.Method, "path", r.URL.Path, "status", rec.status, "duration", time.Since(start))
	})
}
