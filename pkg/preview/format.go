// Package preview provides an interactive timeline browser using Bubble Tea TUI.
package preview

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/dustin/go-humanize"

	"github.com/lepinkainen/feed-timeline/pkg/feed"
)

var entryRegex = regexp.MustCompile(`(?s)<entry>.*?</entry>`)

// wrapText wraps text to the specified width, breaking at word boundaries when possible
func wrapText(text string, width int) string {
	if width <= 0 {
		width = 70
	}

	var result strings.Builder
	lineLen := 0

	for _, word := range strings.Fields(text) {
		wordLen := utf8.RuneCountInString(word)

		if lineLen > 0 && lineLen+1+wordLen > width {
			result.WriteString("\n")
			lineLen = 0
		}
		if lineLen > 0 {
			result.WriteString(" ")
			lineLen++
		}

		result.WriteString(word)
		lineLen += wordLen
	}

	return result.String()
}

// formatDate renders the publish date for list rows
func formatDate(t time.Time) string {
	if t.IsZero() {
		return "undated   "
	}
	return t.UTC().Format("2006-01-02")
}

// FormatCompactListItem formats a single timeline item in compact list format
// Example: " 1. 2024-03-01  [Example Blog] Post Title"
func FormatCompactListItem(index int, item feed.Item) string {
	const maxTitleLength = 70
	title := feed.Truncate(item.Title, maxTitleLength)
	source := feed.Truncate(item.SourceTitle, 24)

	return fmt.Sprintf("%2d. %s  [%s] %s", index+1, formatDate(item.PublishedAt), source, title)
}

// FormatDetailedItem formats a single timeline item with all metadata
func FormatDetailedItem(item feed.Item, now time.Time) string {
	var b strings.Builder

	b.WriteString("═══════════════════════════════════════════════════════════════════════\n")
	fmt.Fprintf(&b, "Title: %s\n", item.Title)
	fmt.Fprintf(&b, "Link: %s\n", item.Link)

	if item.SourceTitle != "" {
		fmt.Fprintf(&b, "Source: %s\n", item.SourceTitle)
	}

	if item.HasDate() {
		fmt.Fprintf(&b, "Published: %s (%s)\n", item.PublishedAt.UTC().Format(time.RFC3339), humanize.RelTime(item.PublishedAt, now, "ago", "from now"))
	} else {
		b.WriteString("Published: unknown\n")
	}

	if text := feed.PlainText(item.Description); text != "" {
		fmt.Fprintf(&b, "\nDescription:\n%s\n", wrapText(feed.Truncate(text, 1000), 70))
	}

	b.WriteString("═══════════════════════════════════════════════════════════════════════\n")

	return b.String()
}

// FormatAtomEntry renders the item as it would appear in the Atom export
func FormatAtomEntry(item feed.Item) string {
	gen := feed.NewGenerator("preview", "", "", "")

	var buf bytes.Buffer
	if err := gen.Write(&buf, gen.Generate(feed.Timeline{item}, item.PublishedAt), feed.Atom); err != nil {
		return fmt.Sprintf("Error generating feed: %s", err)
	}

	match := entryRegex.FindString(buf.String())
	if match == "" {
		return "No entry found in generated feed"
	}

	return wrapXMLContent(match, 80)
}

// wrapXMLContent wraps only the content inside tags, not the tags themselves
func wrapXMLContent(xml string, width int) string {
	var result strings.Builder

	for _, line := range strings.Split(xml, "\n") {
		remaining := line
		for len(remaining) > width {
			breakPoint := width
			for i := width - 1; i > width-20 && i > 0; i-- {
				if remaining[i] == ' ' || remaining[i] == '>' {
					breakPoint = i + 1
					break
				}
			}
			result.WriteString(remaining[:breakPoint])
			result.WriteString("\n")
			remaining = remaining[breakPoint:]
		}
		if remaining != "" {
			result.WriteString(remaining)
			result.WriteString("\n")
		}
	}

	return result.String()
}
