package feed

import (
	"bytes"
	"encoding/xml"
	"errors"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"
	"golang.org/x/net/html/charset"

	"github.com/lepinkainen/feed-timeline/pkg/urlutils"
)

// Parse converts raw feed bytes into normalized items.
// It returns ok=false when the bytes are empty, not a feed, or malformed; it never panics.
func Parse(raw []byte) (items []Item, ok bool) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, false
	}

	defer func() {
		if r := recover(); r != nil {
			slog.Warn("Feed parser panicked", "panic", r)
			items, ok = nil, false
		}
	}()

	feedType := gofeed.DetectFeedType(bytes.NewReader(raw))
	if feedType == gofeed.FeedTypeRSS || feedType == gofeed.FeedTypeAtom {
		// gofeed recovers from broken markup, a feed has to be well-formed here
		if err := checkWellFormed(raw); err != nil {
			slog.Debug("Rejecting malformed feed", "error", err)
			return nil, false
		}
	}

	// gofeed parsers keep per-document state, so each call gets its own
	parsed, err := gofeed.NewParser().Parse(bytes.NewReader(raw))
	if err != nil {
		slog.Debug("Failed to parse feed", "error", err)
		return nil, false
	}
	if parsed.FeedType == "json" && parsed.FeedVersion == "" {
		slog.Debug("JSON document is not a JSON Feed")
		return nil, false
	}

	return convertItems(parsed), true
}

var errNoChannel = errors.New("document has no channel or feed element")

// checkWellFormed reads every XML token strictly and requires an RSS channel or Atom feed element
func checkWellFormed(raw []byte) error {
	decoder := xml.NewDecoder(bytes.NewReader(raw))
	decoder.Strict = true
	decoder.Entity = xml.HTMLEntity
	decoder.CharsetReader = charset.NewReaderLabel

	hasChannel := false
	for {
		tok, err := decoder.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return err
		}
		if start, isStart := tok.(xml.StartElement); isStart {
			switch strings.ToLower(start.Name.Local) {
			case "channel", "feed":
				hasChannel = true
			}
		}
	}

	if !hasChannel {
		return errNoChannel
	}
	return nil
}

// convertItems maps gofeed items onto the timeline model
func convertItems(parsed *gofeed.Feed) []Item {
	sourceTitle := strings.TrimSpace(parsed.Title)
	items := make([]Item, 0, len(parsed.Items))

	for _, it := range parsed.Items {
		if it == nil {
			continue
		}

		description := it.Description
		if strings.TrimSpace(description) == "" {
			description = it.Content
		}

		items = append(items, Item{
			Title:       strings.TrimSpace(it.Title),
			Link:        itemLink(it, parsed.Link),
			PublishedAt: itemDate(it),
			Description: description,
			SourceTitle: sourceTitle,
		})
	}

	return items
}

// itemLink picks the item link and resolves it against the channel link
func itemLink(it *gofeed.Item, channelLink string) string {
	link := strings.TrimSpace(it.Link)
	if link == "" && len(it.Links) > 0 {
		link = strings.TrimSpace(it.Links[0])
	}
	if link == "" || channelLink == "" {
		return link
	}

	resolved, err := urlutils.ResolveURL(channelLink, link)
	if err != nil {
		return link
	}
	return resolved
}

// itemDate prefers the published date, then the updated date, then our own layouts
func itemDate(it *gofeed.Item) time.Time {
	switch {
	case it.PublishedParsed != nil:
		return it.PublishedParsed.UTC()
	case it.UpdatedParsed != nil:
		return it.UpdatedParsed.UTC()
	case it.Published != "":
		return ParseDate(it.Published)
	default:
		return ParseDate(it.Updated)
	}
}
