// Package database wraps the sql connection used by the persistent cache tier and the settings table.
package database

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	_ "github.com/lib/pq"  // PostgreSQL driver
	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"github.com/lepinkainen/feed-timeline/pkg/dbinterfaces"
	"github.com/lepinkainen/feed-timeline/pkg/filesystem"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

var (
	// dbCache stores active database connections, keyed by driver and path
	dbCache = make(map[string]*Database)
	// cacheMutex protects the dbCache
	cacheMutex = &sync.Mutex{}
)

// Database represents a thread-safe database connection
type Database struct {
	db     *sql.DB
	mu     sync.RWMutex
	dbPath string
	driver string
}

// Ensure Database implements dbinterfaces.Database
var _ dbinterfaces.Database = (*Database)(nil)

// Config holds database configuration
type Config struct {
	// Path is a file path for sqlite and a connection string for postgres
	Path    string
	Driver  string
	Timeout time.Duration
}

// DefaultConfig returns the default database configuration
func DefaultConfig() Config {
	return Config{
		Driver:  DriverSQLite,
		Timeout: 30 * time.Second,
	}
}

// NewDatabase opens (or reuses) a connection for the configured driver and path
func NewDatabase(config Config) (*Database, error) {
	if config.Driver == "" {
		config.Driver = DriverSQLite
	}
	if config.Driver != DriverSQLite && config.Driver != DriverPostgres {
		return nil, fmt.Errorf("unsupported database driver %q", config.Driver)
	}
	if config.Path == "" {
		return nil, fmt.Errorf("database path is required")
	}

	cacheKey := config.Driver + ":" + config.Path

	cacheMutex.Lock()
	defer cacheMutex.Unlock()

	if db, ok := dbCache[cacheKey]; ok {
		return db, nil
	}

	if config.Driver == DriverSQLite {
		if err := filesystem.EnsureDirectoryExists(config.Path); err != nil {
			return nil, err
		}
	}

	db, err := sql.Open(config.Driver, config.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s database: %w", config.Driver, err)
	}

	if config.Driver == DriverSQLite {
		if err := configureSQLite(db, config.Timeout); err != nil {
			closeQuietly(db)
			return nil, err
		}
		// one writer at a time avoids SQLITE_BUSY under concurrent refreshes
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(10)
		db.SetMaxIdleConns(5)
	}
	db.SetConnMaxLifetime(time.Hour)

	if err := db.Ping(); err != nil {
		closeQuietly(db)
		return nil, fmt.Errorf("failed to connect to %s database: %w", config.Driver, err)
	}

	database := &Database{
		db:     db,
		dbPath: config.Path,
		driver: config.Driver,
	}
	dbCache[cacheKey] = database

	slog.Debug("Opened database", "driver", config.Driver, "path", redactDSN(config))
	return database, nil
}

func configureSQLite(db *sql.DB, timeout time.Duration) error {
	busy := 5000
	if timeout > 0 {
		busy = int(timeout / time.Millisecond)
	}

	pragmas := []string{
		fmt.Sprintf("PRAGMA busy_timeout=%d", busy),
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA temp_store=memory",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to apply %q: %w", pragma, err)
		}
	}
	return nil
}

func closeQuietly(db *sql.DB) {
	if closeErr := db.Close(); closeErr != nil {
		slog.Error("Failed to close database", "error", closeErr)
	}
}

func redactDSN(config Config) string {
	if config.Driver == DriverPostgres {
		return "<dsn>"
	}
	return config.Path
}

// Close closes the database connection
func (db *Database) Close() error {
	cacheMutex.Lock()
	defer cacheMutex.Unlock()

	delete(dbCache, db.driver+":"+db.dbPath)

	db.mu.Lock()
	defer db.mu.Unlock()

	if db.db != nil {
		return db.db.Close()
	}
	return nil
}

// Ping verifies the connection is usable
func (db *Database) Ping(ctx context.Context) error {
	if err := db.DB().PingContext(ctx); err != nil {
		return fmt.Errorf("failed to ping %s database: %w", db.driver, err)
	}
	return nil
}

// DB returns the underlying sql.DB instance (thread-safe)
func (db *Database) DB() *sql.DB {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return db.db
}

// Path returns the database file path or DSN
func (db *Database) Path() string {
	return db.dbPath
}

// Driver returns the sql driver name
func (db *Database) Driver() string {
	return db.driver
}

// Rebind rewrites ? placeholders into the driver's placeholder syntax
func (db *Database) Rebind(query string) string {
	if db.driver != DriverPostgres {
		return query
	}

	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// ExecuteSchema executes schema statements one by one
func (db *Database) ExecuteSchema(statements ...string) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	for _, stmt := range statements {
		if strings.TrimSpace(stmt) == "" {
			continue
		}
		if _, err := db.db.Exec(stmt); err != nil {
			return fmt.Errorf("failed to execute schema: %w", err)
		}
	}
	return nil
}
