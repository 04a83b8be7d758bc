package settings

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/lepinkainen/feed-timeline/pkg/database"
)

// storeFactories builds every Store implementation against a fresh backing
func storeFactories() map[string]func(t *testing.T) Store {
	return map[string]func(t *testing.T) Store{
		"memory": func(t *testing.T) Store { return NewMemoryStore() },
		"yaml": func(t *testing.T) Store {
			s, err := OpenFileStore(filepath.Join(t.TempDir(), "settings.yaml"))
			if err != nil {
				t.Fatalf("OpenFileStore() error = %v", err)
			}
			return s
		},
		"toml": func(t *testing.T) Store {
			s, err := OpenFileStore(filepath.Join(t.TempDir(), "settings.toml"))
			if err != nil {
				t.Fatalf("OpenFileStore() error = %v", err)
			}
			return s
		},
		"sql": func(t *testing.T) Store {
			db, err := database.NewDatabase(database.Config{Path: filepath.Join(t.TempDir(), "settings.db")})
			if err != nil {
				t.Fatalf("NewDatabase() error = %v", err)
			}
			t.Cleanup(func() { _ = db.Close() })
			s, err := NewSQLStore(db)
			if err != nil {
				t.Fatalf("NewSQLStore() error = %v", err)
			}
			return s
		},
	}
}

func TestStoreRoundTrip(t *testing.T) {
	for name, factory := range storeFactories() {
		t.Run(name, func(t *testing.T) {
			s := factory(t)

			if _, ok, err := s.Get(Namespace, FeedsKey); err != nil || ok {
				t.Fatalf("Get() on empty store = ok %v, err %v", ok, err)
			}

			blob := "https://a.example/rss\nhttps://b.example/atom"
			if err := s.Set(Namespace, FeedsKey, blob); err != nil {
				t.Fatalf("Set() error = %v", err)
			}
			if err := s.Set("other", FeedsKey, "unrelated"); err != nil {
				t.Fatalf("Set() other namespace error = %v", err)
			}
			if err := s.Set(Namespace, FeedsKey, blob+"\nhttps://c.example/feed"); err != nil {
				t.Fatalf("Set() overwrite error = %v", err)
			}

			got, ok, err := s.Get(Namespace, FeedsKey)
			if err != nil || !ok {
				t.Fatalf("Get() = ok %v, err %v", ok, err)
			}
			if want := blob + "\nhttps://c.example/feed"; got != want {
				t.Errorf("Get() = %q, want %q", got, want)
			}

			if other, _, _ := s.Get("other", FeedsKey); other != "unrelated" {
				t.Errorf("namespaces leaked: other = %q", other)
			}
		})
	}
}

func TestReadOnly(t *testing.T) {
	inner := NewMemoryStore()
	_ = inner.Set(Namespace, FeedsKey, "https://a.example")

	s := ReadOnly(inner)
	if !IsReadOnly(s) || IsReadOnly(inner) {
		t.Error("IsReadOnly() misreports")
	}

	if err := s.Set(Namespace, FeedsKey, "x"); !errors.Is(err, ErrReadOnly) {
		t.Errorf("Set() error = %v, want ErrReadOnly", err)
	}
	if got, _, _ := s.Get(Namespace, FeedsKey); got != "https://a.example" {
		t.Errorf("Get() through read-only wrapper = %q", got)
	}
}
