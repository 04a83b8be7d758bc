// Package configs provides the embedded default configuration for feed-timeline.
package configs

import _ "embed"

// DefaultYAML holds the built-in defaults every other config source is merged over.
//
//go:embed default.yaml
var DefaultYAML []byte
