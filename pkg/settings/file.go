package settings

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/lepinkainen/feed-timeline/pkg/filesystem"
)

// values is the on-disk shape: namespace -> key -> value
type values map[string]map[string]string

type codec interface {
	decode(data []byte, v *values) error
	encode(v values) ([]byte, error)
}

type yamlCodec struct{}

func (yamlCodec) decode(data []byte, v *values) error { return yaml.Unmarshal(data, v) }
func (yamlCodec) encode(v values) ([]byte, error)     { return yaml.Marshal(v) }

type tomlCodec struct{}

func (tomlCodec) decode(data []byte, v *values) error {
	_, err := toml.Decode(string(data), v)
	return err
}

func (tomlCodec) encode(v values) ([]byte, error) {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func codecFor(path string) (codec, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return yamlCodec{}, nil
	case ".toml":
		return tomlCodec{}, nil
	default:
		return nil, fmt.Errorf("unsupported settings file extension %q (want .yaml, .yml or .toml)", filepath.Ext(path))
	}
}

// FileStore keeps settings in a YAML or TOML file, rewritten atomically on every Set
type FileStore struct {
	path  string
	codec codec

	mu   sync.RWMutex
	data values
}

// OpenFileStore loads path, which may not exist yet; the format follows the file extension
func OpenFileStore(path string) (*FileStore, error) {
	c, err := codecFor(path)
	if err != nil {
		return nil, err
	}

	fs := &FileStore{path: path, codec: c, data: make(values)}
	if err := fs.Reload(); err != nil {
		return nil, err
	}
	return fs, nil
}

// Path returns the backing file path
func (f *FileStore) Path() string {
	return f.path
}

// Reload re-reads the backing file, picking up external edits
func (f *FileStore) Reload() error {
	raw, err := os.ReadFile(f.path)
	if errors.Is(err, os.ErrNotExist) {
		slog.Debug("Settings file not found, starting empty", "path", f.path)
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read settings file %s: %w", f.path, err)
	}

	loaded := make(values)
	if err := f.codec.decode(raw, &loaded); err != nil {
		return fmt.Errorf("failed to decode settings file %s: %w", f.path, err)
	}
	if loaded == nil {
		loaded = make(values)
	}

	f.mu.Lock()
	f.data = loaded
	f.mu.Unlock()
	return nil
}

// Get returns the value for namespace/key
func (f *FileStore) Get(namespace, key string) (string, bool, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	v, ok := f.data[namespace][key]
	return v, ok, nil
}

// Set stores the value and rewrites the file
func (f *FileStore) Set(namespace, key, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	next := make(values, len(f.data)+1)
	for ns, kv := range f.data {
		cp := make(map[string]string, len(kv))
		for k, v := range kv {
			cp[k] = v
		}
		next[ns] = cp
	}
	if next[namespace] == nil {
		next[namespace] = make(map[string]string)
	}
	next[namespace][key] = value

	if err := f.write(next); err != nil {
		return err
	}
	f.data = next
	return nil
}

// write encodes the settings and replaces the file atomically
func (f *FileStore) write(v values) error {
	raw, err := f.codec.encode(v)
	if err != nil {
		return fmt.Errorf("failed to encode settings: %w", err)
	}

	if err := filesystem.WriteFileAtomic(f.path, raw, 0o644); err != nil {
		return fmt.Errorf("failed to write settings file: %w", err)
	}

	slog.Debug("Wrote settings file", "path", f.path, "bytes", len(raw))
	return nil
}
