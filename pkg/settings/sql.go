package settings

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/lepinkainen/feed-timeline/pkg/database"
)

const settingsTable = "settings"

// SQLStore keeps settings in a database table
type SQLStore struct {
	db *database.Database
}

// NewSQLStore creates the settings table if needed
func NewSQLStore(db *database.Database) (*SQLStore, error) {
	err := db.ExecuteSchema(fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		namespace TEXT NOT NULL,
		key TEXT NOT NULL,
		value TEXT NOT NULL,
		PRIMARY KEY (namespace, key)
	)`, settingsTable))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize settings table: %w", err)
	}
	return &SQLStore{db: db}, nil
}

// Get returns the value for namespace/key
func (s *SQLStore) Get(namespace, key string) (string, bool, error) {
	query := s.db.Rebind(fmt.Sprintf(`SELECT value FROM %s WHERE namespace = ? AND key = ?`, settingsTable))

	var value string
	err := s.db.DB().QueryRow(query, namespace, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to get setting %s/%s: %w", namespace, key, err)
	}
	return value, true, nil
}

// Set upserts the value for namespace/key
func (s *SQLStore) Set(namespace, key, value string) error {
	query := s.db.Rebind(fmt.Sprintf(`
		INSERT INTO %s (namespace, key, value) VALUES (?, ?, ?)
		ON CONFLICT (namespace, key) DO UPDATE SET value = excluded.value
	`, settingsTable))

	if _, err := s.db.DB().Exec(query, namespace, key, value); err != nil {
		return fmt.Errorf("failed to set setting %s/%s: %w", namespace, key, err)
	}
	return nil
}
