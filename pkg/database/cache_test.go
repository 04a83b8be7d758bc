package database

import (
	"testing"
	"time"
)

func TestCache(t *testing.T) {
	db := openTestDB(t)

	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	cache := NewCache(db, "timeline_cache").WithClock(func() time.Time { return now })
	if err := cache.InitializeCache(); err != nil {
		t.Fatalf("InitializeCache() error = %v", err)
	}
	// schema creation is idempotent
	if err := cache.InitializeCache(); err != nil {
		t.Fatalf("second InitializeCache() error = %v", err)
	}

	if _, ok, err := cache.Get("missing"); err != nil || ok {
		t.Fatalf("Get(missing) = ok %v, err %v", ok, err)
	}

	if err := cache.Set("k", "v1", time.Minute); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if err := cache.Set("k", "v2", time.Minute); err != nil {
		t.Fatalf("Set() overwrite error = %v", err)
	}

	value, ok, err := cache.Get("k")
	if err != nil || !ok || value != "v2" {
		t.Fatalf("Get(k) = %q, %v, %v; want v2", value, ok, err)
	}

	now = now.Add(2 * time.Minute)
	if _, ok, _ := cache.Get("k"); ok {
		t.Error("Get() returned an expired entry")
	}

	stats, err := cache.GetStats()
	if err != nil {
		t.Fatalf("GetStats() error = %v", err)
	}
	if stats["total_entries"] != int64(1) || stats["expired_entries"] != int64(1) {
		t.Errorf("GetStats() = %v", stats)
	}

	if err := cache.CleanupExpired(); err != nil {
		t.Fatalf("CleanupExpired() error = %v", err)
	}
	stats, _ = cache.GetStats()
	if stats["total_entries"] != int64(0) {
		t.Errorf("after cleanup total_entries = %v", stats["total_entries"])
	}
}

func TestCacheDeleteAndClear(t *testing.T) {
	db := openTestDB(t)
	cache := NewCache(db, "kv")
	if err := cache.InitializeCache(); err != nil {
		t.Fatalf("InitializeCache() error = %v", err)
	}

	for _, key := range []string{"a", "b", "c"} {
		if err := cache.Set(key, key, time.Hour); err != nil {
			t.Fatalf("Set(%s) error = %v", key, err)
		}
	}

	if err := cache.Delete("a"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, ok, _ := cache.Get("a"); ok {
		t.Error("deleted key still present")
	}
	if _, ok, _ := cache.Get("b"); !ok {
		t.Error("unrelated key was removed")
	}

	if err := cache.Clear(); err != nil {
		t.Fatalf("Clear() error = %v", err)
	}
	stats, err := cache.GetStats()
	if err != nil {
		t.Fatalf("GetStats() error = %v", err)
	}
	if stats["total_entries"] != int64(0) {
		t.Errorf("total_entries after Clear() = %v", stats["total_entries"])
	}
}
