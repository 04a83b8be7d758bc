// Package feed holds the timeline data model and the tolerant feed parser.
package feed

import (
	"strings"
	"time"
)

// SourceRef identifies one configured feed by its URL
type SourceRef struct {
	URL string `json:"url"`
}

// Item represents one normalized entry from a feed
type Item struct {
	Title       string    `json:"title"`
	Link        string    `json:"link"`
	PublishedAt time.Time `json:"published_at"`
	Description string    `json:"description"`
	SourceTitle string    `json:"source_title"`
}

// HasDate reports whether the item carried a parseable publish date
func (i Item) HasDate() bool {
	return !i.PublishedAt.IsZero()
}

// Timeline is an ordered sequence of items, newest first
type Timeline []Item

// Links returns the item links in timeline order
func (t Timeline) Links() []string {
	links := make([]string, len(t))
	for i, item := range t {
		links[i] = item.Link
	}
	return links
}

// Titles returns the item titles in timeline order
func (t Timeline) Titles() []string {
	titles := make([]string, len(t))
	for i, item := range t {
		titles[i] = item.Title
	}
	return titles
}

// Newest returns the most recent publish date in the timeline, or the zero time
func (t Timeline) Newest() time.Time {
	var newest time.Time
	for _, item := range t {
		if item.PublishedAt.After(newest) {
			newest = item.PublishedAt
		}
	}
	return newest
}

// FeedType represents the type of syndication feed to export
type FeedType string

const (
	RSS  FeedType = "rss"
	Atom FeedType = "atom"
)

// ParseSources splits a newline-delimited URL list into source references.
// Lines are trimmed, blank lines are skipped and repeated URLs keep their first position.
func ParseSources(blob string) []SourceRef {
	lines := strings.Split(blob, "\n")
	seen := make(map[string]struct{}, len(lines))
	sources := make([]SourceRef, 0, len(lines))

	for _, line := range lines {
		url := strings.TrimSpace(line)
		if url == "" {
			continue
		}
		if _, dup := seen[url]; dup {
			continue
		}
		seen[url] = struct{}{}
		sources = append(sources, SourceRef{URL: url})
	}

	return sources
}

// FormatSources joins source URLs back into the newline-delimited settings form
func FormatSources(sources []SourceRef) string {
	urls := make([]string, len(sources))
	for i, s := range sources {
		urls[i] = s.URL
	}
	return strings.Join(urls, "\n")
}
