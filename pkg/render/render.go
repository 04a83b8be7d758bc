// Package render turns a timeline into HTML, syndication feeds or JSON.
package render

import (
	"io"
	"strings"
	"time"

	"github.com/lepinkainen/feed-timeline/pkg/feed"
)

// ViewMode selects the timeline layout
type ViewMode string

const (
	ListView ViewMode = "list"
	GridView ViewMode = "grid"
)

// ViewModeCookie is the cookie the browser toggle stores the layout in
const ViewModeCookie = "rss_view_mode"

// ParseViewMode maps a stored preference to a layout, defaulting to list
func ParseViewMode(s string) ViewMode {
	switch ViewMode(strings.ToLower(strings.TrimSpace(s))) {
	case GridView:
		return GridView
	default:
		return ListView
	}
}

// View is everything a renderer needs for one timeline
type View struct {
	Timeline feed.Timeline
	// SourceCount is the number of configured feeds; zero selects the "not configured" state
	SourceCount int
	Mode        ViewMode
	// Fingerprint identifies the source list, used for export ids
	Fingerprint string
	Updated     time.Time
}

// Renderer writes a view in one output format
type Renderer interface {
	Render(w io.Writer, v View) error
}

// Options carries the feed metadata used by export renderers
type Options struct {
	Title       string
	Description string
	Link        string
	Author      string
}

// DefaultOptions returns the metadata used when none is configured
func DefaultOptions() Options {
	return Options{
		Title:       "Timeline",
		Description: "Aggregated feed timeline",
		Author:      "feed-timeline",
	}
}
