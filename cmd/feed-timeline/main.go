// Package main provides the CLI entry point for feed-timeline.
package main

import (
	"log/slog"
	"os"
	"strings"

	"github.com/alecthomas/kong"
	kongyaml "github.com/alecthomas/kong-yaml"

	"github.com/lepinkainen/feed-timeline/internal/config"
	"github.com/lepinkainen/feed-timeline/internal/logger"
)

// CLI structure
var CLI struct {
	Config string `help:"Configuration file path" default:"config.yaml"`
	Debug  bool   `help:"Enable debug logging" default:"false"`

	Serve struct {
		Addr string `help:"Listen address, overrides server.addr"`
	} `cmd:"serve" help:"Serve the timeline, feed exports and settings over HTTP."`

	Fetch struct {
		Format  string `help:"Output format (html, atom, rss, json)" short:"f" default:"atom"`
		View    string `help:"Layout for the html format" enum:"list,grid" default:"list"`
		Report  bool   `help:"Print per-source results to stderr"`
		Outfile string `help:"Output file path, stdout when empty" short:"o"`
	} `cmd:"fetch" help:"Aggregate the configured feeds once and write the timeline."`

	Feeds struct {
		List struct{} `cmd:"list" help:"List configured feeds."`

		Add struct {
			URL string `arg:"" help:"Feed URL"`
		} `cmd:"add" help:"Add a feed."`

		Remove struct {
			URL string `arg:"" help:"Feed URL"`
		} `cmd:"remove" help:"Remove a feed."`

		Set struct {
			File string `arg:"" optional:"" help:"File with one feed URL per line, - for stdin" default:"-"`
		} `cmd:"set" help:"Replace the feed list."`
	} `cmd:"feeds" help:"Manage the feed list."`

	Cache struct {
		Clear struct{} `cmd:"clear" help:"Drop cached timelines from memory and the database."`
	} `cmd:"cache" help:"Manage the timeline cache."`

	Preview struct {
		Index int `help:"Output the Atom entry for a specific item index (0-based) to stdout" default:"-1"`
	} `cmd:"preview" help:"Browse the aggregated timeline interactively."`
}

func main() {
	// Parse CLI with Kong YAML configuration file loading
	ctx := kong.Parse(&CLI,
		kong.Configuration(kongyaml.Loader, "cli.yaml", "~/.feed-timeline/cli.yaml"),
	)

	cfg, err := config.LoadConfig(CLI.Config)
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	closeLog, err := logger.Init(logger.Config{
		Level:      cfg.Log.Level,
		File:       cfg.Log.File,
		MaxSize:    cfg.Log.MaxSize,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAge:     cfg.Log.MaxAge,
	}, CLI.Debug)
	if err != nil {
		slog.Error("Failed to initialize logging", "error", err)
		os.Exit(1)
	}
	defer func() { _ = closeLog() }()

	if code := run(ctx.Command(), cfg); code != 0 {
		_ = closeLog()
		os.Exit(code)
	}
}

// run dispatches the parsed command and returns the exit code
func run(command string, cfg *config.Config) int {
	a, err := newApp(cfg)
	if err != nil {
		slog.Error("Failed to initialize", "error", err)
		return 1
	}
	defer func() {
		if err := a.Close(); err != nil {
			slog.Warn("Failed to close database", "error", err)
		}
	}()

	switch commandName(command) {
	case "serve":
		err = a.serve(CLI.Serve.Addr)
	case "fetch":
		err = a.fetch(os.Stdout, os.Stderr, CLI.Fetch.Format, CLI.Fetch.View, CLI.Fetch.Report, CLI.Fetch.Outfile)
	case "feeds list":
		err = a.listFeeds(os.Stdout)
	case "feeds add":
		err = a.addFeed(os.Stdout, CLI.Feeds.Add.URL)
	case "feeds remove":
		err = a.removeFeed(os.Stdout, CLI.Feeds.Remove.URL)
	case "feeds set":
		err = a.setFeeds(os.Stdout, os.Stdin, CLI.Feeds.Set.File)
	case "cache clear":
		err = a.clearCache(os.Stdout)
	case "preview":
		err = a.preview(os.Stdout, CLI.Preview.Index)
	default:
		panic(command)
	}

	if err != nil {
		slog.Error("Command failed", "command", commandName(command), "error", err)
		return 1
	}
	return 0
}

// commandName drops positional placeholders such as "<url>" from a kong command path
func commandName(command string) string {
	var parts []string
	for _, part := range strings.Fields(command) {
		if strings.HasPrefix(part, "<") {
			continue
		}
		parts = append(parts, part)
	}
	return strings.Join(parts, " ")
}
