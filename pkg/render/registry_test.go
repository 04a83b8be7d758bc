package render

import (
	"errors"
	"testing"

	"github.com/lepinkainen/feed-timeline/pkg/testutil"
)

func TestDefaultRegistryFormats(t *testing.T) {
	testutil.CompareGoldenSlice(t, "testdata/formats.golden.json", DefaultRegistry.List())
}

func TestRegistryCreate(t *testing.T) {
	tests := []struct {
		name        string
		format      string
		contentType string
		wantErr     error
	}{
		{name: "html", format: "html", contentType: "text/html; charset=utf-8"},
		{name: "atom uppercase", format: "ATOM", contentType: "application/atom+xml; charset=utf-8"},
		{name: "rss", format: "rss", contentType: "application/rss+xml; charset=utf-8"},
		{name: "json", format: " json ", contentType: "application/json"},
		{name: "unknown", format: "csv", wantErr: ErrUnknownFormat},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, info, err := DefaultRegistry.Create(tt.format, DefaultOptions())
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("Create(%q) error = %v, want %v", tt.format, err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Create(%q) error = %v", tt.format, err)
			}
			if r == nil {
				t.Fatal("Create() returned nil renderer")
			}
			if info.ContentType != tt.contentType {
				t.Errorf("ContentType = %q, want %q", info.ContentType, tt.contentType)
			}
		})
	}
}

func TestRegistryDuplicate(t *testing.T) {
	r := NewRegistry()
	info := &FormatInfo{Name: "txt", Factory: func(Options) (Renderer, error) { return nil, nil }}

	if err := r.Register(info); err != nil {
		t.Fatalf("first Register() error = %v", err)
	}
	if err := r.Register(&FormatInfo{Name: "TXT"}); err == nil {
		t.Error("duplicate Register() should fail")
	}
	if got := r.List(); len(got) != 1 || got[0] != "txt" {
		t.Errorf("List() = %v", got)
	}
}

func TestRegistryFactoryError(t *testing.T) {
	r := NewRegistry()
	_ = r.Register(&FormatInfo{Name: "broken", Factory: func(Options) (Renderer, error) {
		return nil, errors.New("no templates")
	}})

	if _, _, err := r.Create("broken", Options{}); err == nil {
		t.Error("Create() should surface factory errors")
	}
}
