package render

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"

	"github.com/lepinkainen/feed-timeline/pkg/feed"
)

// FeedRenderer exports the timeline as RSS or Atom
type FeedRenderer struct {
	feedType feed.FeedType
	opts     Options
}

var _ Renderer = (*FeedRenderer)(nil)

// NewFeedRenderer creates an exporter for the given syndication format
func NewFeedRenderer(feedType feed.FeedType, opts Options) *FeedRenderer {
	return &FeedRenderer{feedType: feedType, opts: opts}
}

// Render writes the syndication document
func (r *FeedRenderer) Render(w io.Writer, v View) error {
	gen := feed.NewGenerator(r.opts.Title, r.opts.Description, r.opts.Link, r.opts.Author)
	gen.ID = FeedID(v.Fingerprint)

	updated := v.Updated
	if updated.IsZero() {
		updated = v.Timeline.Newest()
	}

	return gen.Write(w, gen.Generate(v.Timeline, updated), r.feedType)
}

// FeedID derives a stable urn:uuid for a source list fingerprint
func FeedID(fingerprint string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte("feed-timeline:"+fingerprint)).URN()
}

// JSONRenderer exports the timeline as a JSON document
type JSONRenderer struct {
	opts   Options
	indent bool
}

var _ Renderer = (*JSONRenderer)(nil)

// NewJSONRenderer creates a JSON exporter
func NewJSONRenderer(opts Options, indent bool) *JSONRenderer {
	return &JSONRenderer{opts: opts, indent: indent}
}

type jsonDocument struct {
	Title   string        `json:"title"`
	Link    string        `json:"link,omitempty"`
	ID      string        `json:"id"`
	Sources int           `json:"sources"`
	Updated time.Time     `json:"updated"`
	Items   feed.Timeline `json:"items"`
}

// Render writes the JSON document
func (r *JSONRenderer) Render(w io.Writer, v View) error {
	items := v.Timeline
	if items == nil {
		items = feed.Timeline{}
	}

	doc := jsonDocument{
		Title:   r.opts.Title,
		Link:    r.opts.Link,
		ID:      FeedID(v.Fingerprint),
		Sources: v.SourceCount,
		Updated: v.Updated.UTC(),
		Items:   items,
	}

	enc := json.NewEncoder(w)
	if r.indent {
		enc.SetIndent("", "  ")
	}
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("failed to encode timeline JSON: %w", err)
	}
	return nil
}
