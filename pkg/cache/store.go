package cache

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/lepinkainen/feed-timeline/pkg/database"
	"github.com/lepinkainen/feed-timeline/pkg/dbinterfaces"
)

const storeKeyPrefix = "timeline:"

// DatabaseStore persists cache entries as JSON in a database.Cache table
type DatabaseStore struct {
	kv *database.Cache
}

var (
	_ Store                        = (*DatabaseStore)(nil)
	_ dbinterfaces.StatsProvider   = (*DatabaseStore)(nil)
	_ dbinterfaces.CleanupProvider = (*DatabaseStore)(nil)
)

// NewDatabaseStore creates the backing table if needed and returns the store
func NewDatabaseStore(db *database.Database, table string) (*DatabaseStore, error) {
	kv := database.NewCache(db, table)
	if err := kv.InitializeCache(); err != nil {
		return nil, fmt.Errorf("failed to initialize timeline cache table: %w", err)
	}
	if err := kv.CleanupExpired(); err != nil {
		return nil, err
	}
	return &DatabaseStore{kv: kv}, nil
}

// Load reads the entry for fingerprint
func (s *DatabaseStore) Load(fingerprint string) (Entry, bool, error) {
	raw, ok, err := s.kv.Get(storeKeyPrefix + fingerprint)
	if err != nil || !ok {
		return Entry{}, false, err
	}

	var entry Entry
	if err := json.Unmarshal([]byte(raw), &entry); err != nil {
		return Entry{}, false, fmt.Errorf("failed to decode stored timeline: %w", err)
	}
	return entry, true, nil
}

// Save writes entry, expiring it after ttl
func (s *DatabaseStore) Save(entry Entry, ttl time.Duration) error {
	raw, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to encode timeline: %w", err)
	}
	return s.kv.Set(storeKeyPrefix+entry.Fingerprint, string(raw), ttl)
}

// Delete removes the entry for fingerprint
func (s *DatabaseStore) Delete(fingerprint string) error {
	return s.kv.Delete(storeKeyPrefix + fingerprint)
}

// GetStats reports the backing table's entry counts
func (s *DatabaseStore) GetStats() (map[string]any, error) {
	return s.kv.GetStats()
}

// Clear removes every stored timeline
func (s *DatabaseStore) Clear() error {
	return s.kv.Clear()
}

// CleanupExpired removes stored timelines whose TTL has passed
func (s *DatabaseStore) CleanupExpired() error {
	return s.kv.CleanupExpired()
}
