package feed

import (
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/gorilla/feeds"
)

// Generator exports a timeline as an RSS or Atom document
type Generator struct {
	Title       string
	Description string
	Link        string
	Author      string
	ID          string
}

// NewGenerator creates a new feed generator
func NewGenerator(title, description, link, author string) *Generator {
	return &Generator{
		Title:       title,
		Description: description,
		Link:        link,
		Author:      author,
	}
}

// Generate converts the timeline into a syndication feed
func (g *Generator) Generate(timeline Timeline, updated time.Time) *feeds.Feed {
	if updated.IsZero() {
		updated = time.Now().UTC()
	}

	out := &feeds.Feed{
		Title:       g.Title,
		Link:        &feeds.Link{Href: g.Link},
		Description: g.Description,
		Author:      &feeds.Author{Name: g.Author},
		Id:          g.ID,
		Created:     updated,
		Updated:     updated,
	}

	for _, item := range timeline {
		out.Items = append(out.Items, &feeds.Item{
			Title:       item.Title,
			Link:        &feeds.Link{Href: item.Link},
			Description: item.Description,
			Author:      &feeds.Author{Name: item.SourceTitle},
			Id:          item.Link,
			Created:     item.PublishedAt,
			Updated:     item.PublishedAt,
		})
	}

	slog.Debug("Generated feed", "title", g.Title, "items", len(out.Items))
	return out
}

// Write serializes the feed in the requested format
func (g *Generator) Write(w io.Writer, f *feeds.Feed, feedType FeedType) error {
	var err error
	switch feedType {
	case RSS:
		err = f.WriteRss(w)
	case Atom:
		err = f.WriteAtom(w)
	default:
		return fmt.Errorf("unsupported feed type: %s", feedType)
	}

	if err != nil {
		return fmt.Errorf("failed to write %s feed: %w", feedType, err)
	}
	return nil
}
