package render

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"

	"github.com/lepinkainen/feed-timeline/templates"
)

var (
	// templateOverrideFS points at the developer-provided filesystem (usually the local templates directory).
	templateOverrideFS fs.FS = os.DirFS("templates")
	// templateFallbackFS is the embedded filesystem baked into the binary.
	templateFallbackFS fs.FS = templates.EmbeddedTemplates
)

// SetTemplateOverrideFS switches the primary filesystem used when loading templates
// and returns the previous one. A nil filesystem disables overrides.
func SetTemplateOverrideFS(f fs.FS) fs.FS {
	prev := templateOverrideFS
	templateOverrideFS = f
	return prev
}

// readTemplateFile returns name from the override filesystem, falling back to the embedded copy
func readTemplateFile(name string) ([]byte, error) {
	if templateOverrideFS != nil {
		data, err := fs.ReadFile(templateOverrideFS, name)
		if err == nil {
			slog.Debug("Using template override", "name", name)
			return data, nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			slog.Warn("Failed to read template override, using embedded copy", "name", name, "error", err)
		}
	}

	data, err := fs.ReadFile(templateFallbackFS, name)
	if err != nil {
		return nil, fmt.Errorf("failed to read template %s: %w", name, err)
	}
	return data, nil
}
