package settings

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/lepinkainen/feed-timeline/pkg/feed"
	"github.com/lepinkainen/feed-timeline/pkg/urlutils"
)

// ErrInvalidFeedURL is returned when adding a URL that is not http(s)
var ErrInvalidFeedURL = errors.New("invalid feed URL")

// FeedsText returns the stored feed list as entered, or "" when unset
func FeedsText(s Store) (string, error) {
	raw, _, err := s.Get(Namespace, FeedsKey)
	if err != nil {
		return "", fmt.Errorf("failed to read feed list: %w", err)
	}
	return raw, nil
}

// LoadSources parses the stored feed list into source references
func LoadSources(s Store) ([]feed.SourceRef, error) {
	raw, err := FeedsText(s)
	if err != nil {
		return nil, err
	}
	return feed.ParseSources(raw), nil
}

// SaveFeeds normalizes a submitted feed list and stores it
func SaveFeeds(s Store, raw string) ([]feed.SourceRef, error) {
	sources := feed.ParseSources(raw)
	if err := s.Set(Namespace, FeedsKey, feed.FormatSources(sources)); err != nil {
		return nil, fmt.Errorf("failed to save feed list: %w", err)
	}
	return sources, nil
}

// AddFeed appends url to the feed list; it reports false when the URL was already present
func AddFeed(s Store, url string) (bool, error) {
	url = strings.TrimSpace(url)
	if !urlutils.IsFeedURL(url) {
		return false, fmt.Errorf("%w: %q", ErrInvalidFeedURL, url)
	}

	sources, err := LoadSources(s)
	if err != nil {
		return false, err
	}
	if slices.Contains(sources, feed.SourceRef{URL: url}) {
		return false, nil
	}

	sources = append(sources, feed.SourceRef{URL: url})
	if _, err := SaveFeeds(s, feed.FormatSources(sources)); err != nil {
		return false, err
	}
	return true, nil
}

// RemoveFeed drops url from the feed list; it reports false when the URL was not present
func RemoveFeed(s Store, url string) (bool, error) {
	url = strings.TrimSpace(url)

	sources, err := LoadSources(s)
	if err != nil {
		return false, err
	}

	total := len(sources)
	kept := slices.DeleteFunc(sources, func(src feed.SourceRef) bool { return src.URL == url })
	if len(kept) == total {
		return false, nil
	}

	if _, err := SaveFeeds(s, feed.FormatSources(kept)); err != nil {
		return false, err
	}
	return true, nil
}
