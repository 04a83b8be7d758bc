package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/lepinkainen/feed-timeline/internal/config"
	"github.com/lepinkainen/feed-timeline/pkg/settings"
)

const upstreamRSS = `<?xml version="1.0"?>
<rss version="2.0"><channel><title>Upstream</title><link>https://upstream.example.com/</link>
<item><title>Newest</title><link>https://upstream.example.com/2</link><pubDate>Tue, 02 Jan 2024 10:00:00 GMT</pubDate></item>
<item><title>Oldest</title><link>https://upstream.example.com/1</link><pubDate>Mon, 01 Jan 2024 10:00:00 GMT</pubDate></item>
</channel></rss>`

func testConfig(t *testing.T) *config.Config {
	t.Helper()

	cfg := &config.Config{}
	cfg.Fetch.Timeout = 2 * time.Second
	cfg.Aggregate.MaxConcurrency = 4
	cfg.Cache.TTL = time.Hour
	cfg.Settings.Backend = config.BackendMemory
	cfg.Database.Driver = "sqlite"
	cfg.Database.Path = filepath.Join(t.TempDir(), "feeds.db")
	cfg.Server.AssetURL = "/assets"
	return cfg
}

func newTestApp(t *testing.T, cfg *config.Config) *app {
	t.Helper()

	a, err := newApp(cfg)
	if err != nil {
		t.Fatalf("newApp() error = %v", err)
	}
	t.Cleanup(func() { _ = a.Close() })
	return a
}

func upstream(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/broken" {
			http.Error(w, "gone", http.StatusGone)
			return
		}
		_, _ = w.Write([]byte(upstreamRSS))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestCommandName(t *testing.T) {
	tests := map[string]string{
		"serve":              "serve",
		"feeds add <url>":    "feeds add",
		"feeds set <file>":   "feeds set",
		"feeds set":          "feeds set",
		"preview":            "preview",
		"feeds remove <url>": "feeds remove",
		"cache clear":        "cache clear",
	}

	for in, want := range tests {
		if got := commandName(in); got != want {
			t.Errorf("commandName(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestFeedCommands(t *testing.T) {
	a := newTestApp(t, testConfig(t))
	var out bytes.Buffer

	if err := a.listFeeds(&out); err != nil {
		t.Fatalf("listFeeds() error = %v", err)
	}
	if !strings.Contains(out.String(), "No feeds configured") {
		t.Errorf("empty list output = %q", out.String())
	}

	steps := []struct {
		name string
		run  func() error
		want string
	}{
		{"add", func() error { return a.addFeed(&out, "https://a.example.com/feed") }, "Added: https://a.example.com/feed"},
		{"add duplicate", func() error { return a.addFeed(&out, "https://a.example.com/feed") }, "Already configured"},
		{"add second", func() error { return a.addFeed(&out, "https://b.example.com/feed") }, "Added"},
		{"remove", func() error { return a.removeFeed(&out, "https://a.example.com/feed") }, "Removed"},
		{"remove missing", func() error { return a.removeFeed(&out, "https://a.example.com/feed") }, "Not configured"},
		{"list", func() error { return a.listFeeds(&out) }, "https://b.example.com/feed"},
	}

	for _, step := range steps {
		out.Reset()
		if err := step.run(); err != nil {
			t.Fatalf("%s: error = %v", step.name, err)
		}
		if !strings.Contains(out.String(), step.want) {
			t.Errorf("%s: output %q missing %q", step.name, out.String(), step.want)
		}
	}

	if err := a.addFeed(&out, "not a url"); err == nil {
		t.Error("addFeed() should reject an invalid URL")
	}
}

func TestSetFeeds(t *testing.T) {
	a := newTestApp(t, testConfig(t))
	var out bytes.Buffer

	stdin := strings.NewReader("https://a.example.com/feed\n\nhttps://b.example.com/feed\n")
	if err := a.setFeeds(&out, stdin, "-"); err != nil {
		t.Fatalf("setFeeds(stdin) error = %v", err)
	}
	if !strings.Contains(out.String(), "Configured 2 feeds") {
		t.Errorf("output = %q", out.String())
	}

	path := filepath.Join(t.TempDir(), "feeds.txt")
	if err := os.WriteFile(path, []byte("https://c.example.com/feed\n"), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	out.Reset()
	if err := a.setFeeds(&out, nil, path); err != nil {
		t.Fatalf("setFeeds(file) error = %v", err)
	}

	got, err := settings.FeedsText(a.store)
	if err != nil {
		t.Fatalf("FeedsText() error = %v", err)
	}
	if got != "https://c.example.com/feed" {
		t.Errorf("feeds = %q", got)
	}

	if err := a.setFeeds(&out, nil, filepath.Join(t.TempDir(), "missing.txt")); err == nil {
		t.Error("setFeeds() should fail for a missing file")
	}
}

func TestReadOnlySettings(t *testing.T) {
	cfg := testConfig(t)
	cfg.Settings.ReadOnly = true
	a := newTestApp(t, cfg)

	if err := a.addFeed(&bytes.Buffer{}, "https://a.example.com/feed"); err == nil {
		t.Error("addFeed() should fail on a read-only store")
	}
}

func TestFetch(t *testing.T) {
	srv := upstream(t)
	a := newTestApp(t, testConfig(t))
	if _, err := settings.SaveFeeds(a.store, srv.URL+"/feed.xml\n"+srv.URL+"/broken"); err != nil {
		t.Fatalf("SaveFeeds() error = %v", err)
	}

	t.Run("json to stdout", func(t *testing.T) {
		var stdout, stderr bytes.Buffer
		if err := a.fetch(&stdout, &stderr, "json", "list", false, ""); err != nil {
			t.Fatalf("fetch() error = %v", err)
		}

		var doc struct {
			Items []struct {
				Title string `json:"title"`
			} `json:"items"`
		}
		if err := json.Unmarshal(stdout.Bytes(), &doc); err != nil {
			t.Fatalf("invalid JSON: %v\n%s", err, stdout.String())
		}
		if len(doc.Items) != 2 || doc.Items[0].Title != "Newest" {
			t.Errorf("items = %+v", doc.Items)
		}
		if stderr.Len() != 0 {
			t.Errorf("stderr should be empty without --report, got %q", stderr.String())
		}
	})

	t.Run("report", func(t *testing.T) {
		var stdout, stderr bytes.Buffer
		if err := a.fetch(&stdout, &stderr, "rss", "list", true, ""); err != nil {
			t.Fatalf("fetch() error = %v", err)
		}
		report := stderr.String()
		for _, want := range []string{"ok", "fetch failed", "2 sources, 1 failed"} {
			if !strings.Contains(report, want) {
				t.Errorf("report missing %q:\n%s", want, report)
			}
		}
		if !strings.Contains(stdout.String(), "<rss") {
			t.Error("rss output missing")
		}
	})

	t.Run("outfile", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "out", "timeline.xml")
		if err := a.fetch(&bytes.Buffer{}, &bytes.Buffer{}, "atom", "list", false, path); err != nil {
			t.Fatalf("fetch() error = %v", err)
		}
		data, err := os.ReadFile(path)
		if err != nil {
			t.Fatalf("ReadFile() error = %v", err)
		}
		if !strings.Contains(string(data), "<feed") {
			t.Error("atom output missing")
		}
	})

	t.Run("unknown format", func(t *testing.T) {
		if err := a.fetch(&bytes.Buffer{}, &bytes.Buffer{}, "opml", "list", false, ""); err == nil {
			t.Error("fetch() should reject an unknown format")
		}
	})
}

func TestFetchWithoutFeeds(t *testing.T) {
	a := newTestApp(t, testConfig(t))

	var stdout bytes.Buffer
	if err := a.fetch(&stdout, &bytes.Buffer{}, "html", "grid", false, ""); err != nil {
		t.Fatalf("fetch() error = %v", err)
	}
	if !strings.Contains(stdout.String(), "No RSS feeds configured") {
		t.Errorf("html output = %q", stdout.String())
	}
}

func TestPreviewIndex(t *testing.T) {
	srv := upstream(t)
	a := newTestApp(t, testConfig(t))
	if _, err := settings.SaveFeeds(a.store, srv.URL+"/feed.xml"); err != nil {
		t.Fatalf("SaveFeeds() error = %v", err)
	}

	var out bytes.Buffer
	if err := a.preview(&out, 1); err != nil {
		t.Fatalf("preview() error = %v", err)
	}
	if !strings.Contains(out.String(), "<entry>") || !strings.Contains(out.String(), "Oldest") {
		t.Errorf("preview output = %q", out.String())
	}

	if err := a.preview(&out, 5); err == nil {
		t.Error("preview() should reject an out-of-range index")
	}
}

func TestPersistentBackends(t *testing.T) {
	srv := upstream(t)
	cfg := testConfig(t)
	cfg.Settings.Backend = config.BackendSQL
	cfg.Cache.Persist = true

	a := newTestApp(t, cfg)
	if a.db == nil || a.cacheStore == nil {
		t.Fatal("database-backed components should be wired")
	}
	if _, err := settings.SaveFeeds(a.store, srv.URL+"/feed.xml"); err != nil {
		t.Fatalf("SaveFeeds() error = %v", err)
	}
	if err := a.fetch(&bytes.Buffer{}, &bytes.Buffer{}, "json", "list", false, ""); err != nil {
		t.Fatalf("fetch() error = %v", err)
	}

	stats, err := a.cacheStore.GetStats()
	if err != nil {
		t.Fatalf("GetStats() error = %v", err)
	}
	if stats["total_entries"] != int64(1) {
		t.Errorf("stored timelines = %v, want 1", stats["total_entries"])
	}

	var out bytes.Buffer
	if err := a.clearCache(&out); err != nil {
		t.Fatalf("clearCache() error = %v", err)
	}
	if !strings.Contains(out.String(), "Cleared stored timelines") {
		t.Errorf("clearCache() output = %q", out.String())
	}
	if a.cache.Len() != 0 {
		t.Errorf("memory entries after clear = %d, want 0", a.cache.Len())
	}
	stats, err = a.cacheStore.GetStats()
	if err != nil {
		t.Fatalf("GetStats() error = %v", err)
	}
	if stats["total_entries"] != int64(0) {
		t.Errorf("stored timelines after clear = %v, want 0", stats["total_entries"])
	}
}

func TestFileBackend(t *testing.T) {
	cfg := testConfig(t)
	cfg.Settings.Backend = config.BackendFile
	cfg.Settings.Path = filepath.Join(t.TempDir(), "feeds.toml")

	a := newTestApp(t, cfg)
	if a.fileStore == nil {
		t.Fatal("file store should be wired")
	}
	if err := a.addFeed(&bytes.Buffer{}, "https://a.example.com/feed"); err != nil {
		t.Fatalf("addFeed() error = %v", err)
	}

	reopened, err := settings.OpenFileStore(cfg.Settings.Path)
	if err != nil {
		t.Fatalf("OpenFileStore() error = %v", err)
	}
	if got, _ := settings.FeedsText(reopened); got != "https://a.example.com/feed" {
		t.Errorf("persisted feeds = %q", got)
	}

	a.reloadSettings()
}
