package render

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"github.com/lepinkainen/feed-timeline/pkg/feed"
)

// ErrUnknownFormat is returned when no renderer is registered under a name
var ErrUnknownFormat = errors.New("unknown output format")

// Factory creates a renderer for one format
type Factory func(opts Options) (Renderer, error)

// FormatInfo contains metadata about an output format
type FormatInfo struct {
	Name        string
	Description string
	ContentType string
	Factory     Factory
}

// Registry manages the available output formats
type Registry struct {
	mu      sync.RWMutex
	formats map[string]*FormatInfo
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{formats: make(map[string]*FormatInfo)}
}

// Register adds a format to the registry
func (r *Registry) Register(info *FormatInfo) error {
	name := strings.ToLower(info.Name)

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.formats[name]; exists {
		return fmt.Errorf("format %s is already registered", name)
	}
	r.formats[name] = info
	return nil
}

// Get retrieves a format by name, case-insensitively
func (r *Registry) Get(name string) (*FormatInfo, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	info, exists := r.formats[strings.ToLower(strings.TrimSpace(name))]
	if !exists {
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, name)
	}
	return info, nil
}

// List returns all registered format names, sorted
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.formats))
	for name := range r.formats {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Create builds a renderer for the named format
func (r *Registry) Create(name string, opts Options) (Renderer, *FormatInfo, error) {
	info, err := r.Get(name)
	if err != nil {
		return nil, nil, err
	}

	renderer, err := info.Factory(opts)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create %s renderer: %w", info.Name, err)
	}
	return renderer, info, nil
}

// DefaultRegistry holds the built-in formats
var DefaultRegistry = newDefaultRegistry()

func newDefaultRegistry() *Registry {
	r := NewRegistry()

	builtins := []*FormatInfo{
		{
			Name:        "html",
			Description: "Timeline HTML fragment",
			ContentType: "text/html; charset=utf-8",
			Factory: func(Options) (Renderer, error) {
				r, err := NewHTMLRenderer()
				if err != nil {
					return nil, err
				}
				return r, nil
			},
		},
		{
			Name:        string(feed.Atom),
			Description: "Atom 1.0 feed",
			ContentType: "application/atom+xml; charset=utf-8",
			Factory: func(opts Options) (Renderer, error) {
				return NewFeedRenderer(feed.Atom, opts), nil
			},
		},
		{
			Name:        string(feed.RSS),
			Description: "RSS 2.0 feed",
			ContentType: "application/rss+xml; charset=utf-8",
			Factory: func(opts Options) (Renderer, error) {
				return NewFeedRenderer(feed.RSS, opts), nil
			},
		},
		{
			Name:        "json",
			Description: "JSON document",
			ContentType: "application/json",
			Factory: func(opts Options) (Renderer, error) {
				return NewJSONRenderer(opts, true), nil
			},
		},
	}

	for _, info := range builtins {
		if err := r.Register(info); err != nil {
			slog.Warn("Failed to register format", "format", info.Name, "error", err)
		}
	}
	return r
}
