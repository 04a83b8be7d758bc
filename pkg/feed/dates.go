package feed

import (
	"strings"
	"time"
)

// dateLayouts are tried in order when the feed library could not parse a date
var dateLayouts = []string{
	time.RFC1123Z,
	time.RFC1123,
	"Mon, 2 Jan 2006 15:04:05 -0700",
	"Mon, 2 Jan 2006 15:04:05 MST",
	"Mon, 2 Jan 2006 15:04 -0700",
	"Mon, 02 Jan 2006 15:04 -0700",
	"2 Jan 2006 15:04:05 -0700",
	"02 Jan 2006 15:04:05 MST",
	time.RFC822Z,
	time.RFC822,
	time.RFC850,
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05-0700",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05 -0700",
	"2006-01-02 15:04:05",
	"2006-01-02",
	time.ANSIC,
	time.UnixDate,
}

// ParseDate parses the date formats seen in RSS and Atom feeds.
// Unparseable or empty input yields the zero time, which sorts after every real date.
func ParseDate(raw string) time.Time {
	s := strings.Join(strings.Fields(raw), " ")
	if s == "" {
		return time.Time{}
	}

	// "UT" is valid RFC 822 but unknown to the time package
	if strings.HasSuffix(s, " UT") {
		s += "C"
	}

	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC()
		}
	}

	return time.Time{}
}
