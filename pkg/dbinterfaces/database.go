// Package dbinterfaces names the optional capabilities of the storage backends,
// so the HTTP host and the cache warmer can use them without importing a driver.
package dbinterfaces

import (
	"context"
	"io"
)

// Database is a connection the host can health check and close
type Database interface {
	io.Closer
	Ping(ctx context.Context) error
}

// StatsProvider reports entry counts for health output
type StatsProvider interface {
	GetStats() (map[string]any, error)
}

// CleanupProvider drops rows whose TTL has passed
type CleanupProvider interface {
	CleanupExpired() error
}
