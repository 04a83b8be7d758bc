package settings

import (
	"errors"
	"reflect"
	"testing"

	"github.com/lepinkainen/feed-timeline/pkg/feed"
)

func urls(sources []feed.SourceRef) []string {
	var out []string
	for _, s := range sources {
		out = append(out, s.URL)
	}
	return out
}

func TestLoadSourcesUnset(t *testing.T) {
	sources, err := LoadSources(NewMemoryStore())
	if err != nil {
		t.Fatalf("LoadSources() error = %v", err)
	}
	if len(sources) != 0 {
		t.Errorf("LoadSources() = %v, want none", sources)
	}
}

func TestSaveFeedsNormalizes(t *testing.T) {
	s := NewMemoryStore()

	sources, err := SaveFeeds(s, "  https://a.example \r\n\n https://b.example\nhttps://a.example\n")
	if err != nil {
		t.Fatalf("SaveFeeds() error = %v", err)
	}
	if want := []string{"https://a.example", "https://b.example"}; !reflect.DeepEqual(urls(sources), want) {
		t.Errorf("SaveFeeds() = %v, want %v", urls(sources), want)
	}

	text, err := FeedsText(s)
	if err != nil {
		t.Fatalf("FeedsText() error = %v", err)
	}
	if text != "https://a.example\nhttps://b.example" {
		t.Errorf("stored text = %q", text)
	}
}

func TestAddAndRemoveFeed(t *testing.T) {
	s := NewMemoryStore()

	tests := []struct {
		name    string
		op      func() (bool, error)
		changed bool
		wantErr error
		want    []string
	}{
		{
			name:    "add first",
			op:      func() (bool, error) { return AddFeed(s, "https://a.example/rss") },
			changed: true,
			want:    []string{"https://a.example/rss"},
		},
		{
			name:    "add second",
			op:      func() (bool, error) { return AddFeed(s, " https://b.example/rss ") },
			changed: true,
			want:    []string{"https://a.example/rss", "https://b.example/rss"},
		},
		{
			name: "add duplicate",
			op:   func() (bool, error) { return AddFeed(s, "https://a.example/rss") },
			want: []string{"https://a.example/rss", "https://b.example/rss"},
		},
		{
			name:    "add invalid",
			op:      func() (bool, error) { return AddFeed(s, "ftp://nope") },
			wantErr: ErrInvalidFeedURL,
			want:    []string{"https://a.example/rss", "https://b.example/rss"},
		},
		{
			name:    "remove existing",
			op:      func() (bool, error) { return RemoveFeed(s, "https://a.example/rss") },
			changed: true,
			want:    []string{"https://b.example/rss"},
		},
		{
			name: "remove missing",
			op:   func() (bool, error) { return RemoveFeed(s, "https://zzz.example/rss") },
			want: []string{"https://b.example/rss"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			changed, err := tt.op()
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("error = %v, want %v", err, tt.wantErr)
				}
			} else if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if changed != tt.changed {
				t.Errorf("changed = %v, want %v", changed, tt.changed)
			}

			sources, _ := LoadSources(s)
			if got := urls(sources); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("feeds = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSaveFeedsReadOnly(t *testing.T) {
	if _, err := SaveFeeds(ReadOnly(NewMemoryStore()), "https://a.example"); !errors.Is(err, ErrReadOnly) {
		t.Errorf("SaveFeeds() error = %v, want ErrReadOnly", err)
	}
}
