package storage

import (
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schema string

// ABICache persists contract ABIs keyed by lower-case address
type ABICache struct {
	db  *sql.DB
	now func() time.Time
}

func NewABICache(dbPath string) (*ABICache, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create cache dir: %w", err)
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open cache db: %w", err)
	}

	// Enable WAL mode for better concurrency
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialise schema: %w", err)
	}

	return &ABICache{db: db, now: time.Now}, nil
}

func (c *ABICache) Close() error {
	return c.db.Close()
}

func normaliseKey(key string) string {
	return strings.ToLower(strings.TrimSpace(key))
}

// Get returns the cached ABI; read errors count as a miss
func (c *ABICache) Get(key string) ([]byte, bool) {
	var abi []byte
	err := c.db.QueryRow(
		"SELECT abi FROM abi_cache WHERE address = ?",
		normaliseKey(key),
	).Scan(&abi)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, false
	}
	if err != nil {
		return nil, false
	}

	return abi, true
}

func (c *ABICache) Put(key string, value []byte) error {
	_, err := c.db.Exec(
		"INSERT OR REPLACE INTO abi_cache (address, abi, fetched_at) VALUES (?, ?, ?)",
		normaliseKey(key), value, c.now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("store abi %s: %w", key, err)
	}
	return nil
}

// FetchedAt reports when an entry was stored
func (c *ABICache) FetchedAt(key string) (time.Time, bool) {
	var ts int64
	err := c.db.QueryRow(
		"SELECT fetched_at FROM abi_cache WHERE address = ?",
		normaliseKey(key),
	).Scan(&ts)
	if err != nil {
		return time.Time{}, false
	}
	return time.Unix(ts, 0), true
}

// GetStats reports cache size for monitoring
func (c *ABICache) GetStats() (map[string]int64, error) {
	stats := make(map[string]int64)

	var count int64
	if err := c.db.QueryRow("SELECT COUNT(*) FROM abi_cache").Scan(&count); err != nil {
		return nil, err
	}
	stats["abi_entries"] = count

	return stats, nil
}
