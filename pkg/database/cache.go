package database

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/lepinkainen/feed-timeline/pkg/dbinterfaces"
)

// Cache is a TTL'd key/value table on top of the database
type Cache struct {
	db        *Database
	tableName string
	now       func() time.Time
}

var (
	_ dbinterfaces.StatsProvider   = (*Cache)(nil)
	_ dbinterfaces.CleanupProvider = (*Cache)(nil)
)

// NewCache creates a new cache instance
func NewCache(db *Database, tableName string) *Cache {
	return &Cache{
		db:        db,
		tableName: tableName,
		now:       time.Now,
	}
}

// WithClock replaces the time source used for expiry checks
func (c *Cache) WithClock(now func() time.Time) *Cache {
	c.now = now
	return c
}

// InitializeCache creates the cache table if it doesn't exist
func (c *Cache) InitializeCache() error {
	return c.db.ExecuteSchema(
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL,
			expires_at BIGINT NOT NULL,
			updated_at BIGINT NOT NULL
		)`, c.tableName),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS idx_%s_expires ON %s(expires_at)`, c.tableName, c.tableName),
	)
}

// Get retrieves a live value from the cache
func (c *Cache) Get(key string) (string, bool, error) {
	query := c.db.Rebind(fmt.Sprintf(`SELECT value FROM %s WHERE key = ? AND expires_at > ?`, c.tableName))

	var value string
	err := c.db.DB().QueryRow(query, key, c.nowMillis()).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to get cache value: %w", err)
	}

	return value, true, nil
}

// Set stores a value in the cache, replacing any previous value for key
func (c *Cache) Set(key, value string, ttl time.Duration) error {
	now := c.now()
	query := c.db.Rebind(fmt.Sprintf(`
		INSERT INTO %s (key, value, expires_at, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (key) DO UPDATE SET
			value = excluded.value,
			expires_at = excluded.expires_at,
			updated_at = excluded.updated_at
	`, c.tableName))

	_, err := c.db.DB().Exec(query, key, value, now.Add(ttl).UnixMilli(), now.UnixMilli())
	if err != nil {
		return fmt.Errorf("failed to set cache value: %w", err)
	}

	return nil
}

// Delete removes a value from the cache
func (c *Cache) Delete(key string) error {
	query := c.db.Rebind(fmt.Sprintf(`DELETE FROM %s WHERE key = ?`, c.tableName))

	if _, err := c.db.DB().Exec(query, key); err != nil {
		return fmt.Errorf("failed to delete cache value: %w", err)
	}

	return nil
}

// CleanupExpired removes expired entries from the cache
func (c *Cache) CleanupExpired() error {
	query := c.db.Rebind(fmt.Sprintf(`DELETE FROM %s WHERE expires_at <= ?`, c.tableName))

	result, err := c.db.DB().Exec(query, c.nowMillis())
	if err != nil {
		return fmt.Errorf("failed to cleanup expired entries: %w", err)
	}

	rowsAffected, _ := result.RowsAffected()
	if rowsAffected > 0 {
		slog.Debug("Cleaned up expired cache entries", "table", c.tableName, "count", rowsAffected)
	}

	return nil
}

// GetStats returns cache statistics
func (c *Cache) GetStats() (map[string]any, error) {
	var total, valid int64

	err := c.db.DB().QueryRow(fmt.Sprintf(`SELECT COUNT(*) FROM %s`, c.tableName)).Scan(&total)
	if err != nil {
		return nil, fmt.Errorf("failed to get total entries: %w", err)
	}

	query := c.db.Rebind(fmt.Sprintf(`SELECT COUNT(*) FROM %s WHERE expires_at > ?`, c.tableName))
	if err := c.db.DB().QueryRow(query, c.nowMillis()).Scan(&valid); err != nil {
		return nil, fmt.Errorf("failed to get valid entries: %w", err)
	}

	return map[string]any{
		"total_entries":   total,
		"valid_entries":   valid,
		"expired_entries": total - valid,
	}, nil
}

// Clear removes all entries from the cache
func (c *Cache) Clear() error {
	if _, err := c.db.DB().Exec(fmt.Sprintf(`DELETE FROM %s`, c.tableName)); err != nil {
		return fmt.Errorf("failed to clear cache: %w", err)
	}
	return nil
}

func (c *Cache) nowMillis() int64 {
	return c.now().UnixMilli()
}
