// Package templates embeds the timeline markup and its static assets.
package templates

import "embed"

// EmbeddedTemplates provides read-only access to template files compiled into the binary.
//
//go:embed *.tmpl *.css *.js
var EmbeddedTemplates embed.FS
