package render

import (
	"html/template"
	"time"

	"github.com/lepinkainen/feed-timeline/pkg/feed"
)

// summaryRunes caps description text shown per item
const summaryRunes = 600

// TemplateFuncs returns the helpers available to timeline templates
func TemplateFuncs() template.FuncMap {
	return template.FuncMap{
		"formatDate": formatDate,
		"summary":    summary,
		"plain":      feed.PlainText,
		"truncate":   feed.Truncate,
	}
}

// formatDate renders a publish date as YYYY-MM-DD, or nothing for undated items
func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format("2006-01-02")
}

// summary reduces an HTML description to bounded plain text
func summary(description string) string {
	return feed.Truncate(feed.PlainText(description), summaryRunes)
}
