// Package settings provides the string key/value stores the feed list lives in.
package settings

import (
	"errors"
	"sync"
)

const (
	// Namespace groups the aggregator's settings
	Namespace = "config"
	// FeedsKey holds the newline-delimited feed URL list
	FeedsKey = "rssFeeds"
)

// ErrReadOnly is returned by Set on stores that refuse writes
var ErrReadOnly = errors.New("settings store is read-only")

// Store is a namespaced string key/value store
type Store interface {
	Get(namespace, key string) (string, bool, error)
	Set(namespace, key, value string) error
}

// MemoryStore keeps settings in process memory
type MemoryStore struct {
	mu     sync.RWMutex
	values map[string]map[string]string
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{values: make(map[string]map[string]string)}
}

// Get returns the value for namespace/key
func (m *MemoryStore) Get(namespace, key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	v, ok := m.values[namespace][key]
	return v, ok, nil
}

// Set stores the value for namespace/key
func (m *MemoryStore) Set(namespace, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	ns, ok := m.values[namespace]
	if !ok {
		ns = make(map[string]string)
		m.values[namespace] = ns
	}
	ns[key] = value
	return nil
}

type readOnlyStore struct {
	Store
}

// ReadOnly wraps s so every Set fails with ErrReadOnly
func ReadOnly(s Store) Store {
	return readOnlyStore{Store: s}
}

func (readOnlyStore) Set(string, string, string) error {
	return ErrReadOnly
}

// IsReadOnly reports whether s was wrapped by ReadOnly
func IsReadOnly(s Store) bool {
	_, ok := s.(readOnlyStore)
	return ok
}
