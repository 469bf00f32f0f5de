// Package badger implements the analysis cache on BadgerDB. The cache stores
// fetched file content and symbol extraction results keyed by content ref, so
// re-analyzing unchanged proposals skips host round-trips and re-parsing.
package badger

import (
	"os"
	"path/filepath"
	"time"

	badgerdb "github.com/dgraph-io/badger/v4"
	"github.com/mergeguard/mergeguard"
)

// Compile-time interface verification.
var _ mergeguard.Cache = (*Cache)(nil)

// DefaultTTL expires entries after a week. Keys embed the content ref, so
// expiry only bounds disk growth; it never serves stale data.
const DefaultTTL = 7 * 24 * time.Hour

// DefaultCacheDir returns the default cache directory. Uses XDG_CACHE_HOME if
// set, otherwise ~/.cache/mergeguard, or the system temp directory if home is
// unavailable.
func DefaultCacheDir() string {
	if xdg := os.Getenv("XDG_CACHE_HOME"); xdg != "" {
		return filepath.Join(xdg, "mergeguard")
	}
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return filepath.Join(os.TempDir(), "mergeguard")
	}
	return filepath.Join(home, ".cache", "mergeguard")
}

// Cache is a mergeguard.Cache backed by a local BadgerDB instance.
type Cache struct {
	db  *badgerdb.DB
	ttl time.Duration
}

// Open opens (or creates) the cache database at dir.
func Open(dir string) (*Cache, error) {
	opts := badgerdb.DefaultOptions(dir).WithLogger(nil)
	db, err := badgerdb.Open(opts)
	if err != nil {
		return nil, err
	}
	return &Cache{db: db, ttl: DefaultTTL}, nil
}

// Close releases the database.
func (c *Cache) Close() error {
	return c.db.Close()
}

// Get returns the cached value for key, if present.
func (c *Cache) Get(key string) ([]byte, bool) {
	var value []byte
	err := c.db.View(func(txn *badgerdb.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		value, err = item.ValueCopy(nil)
		return err
	})
	if err != nil {
		// Not-found and read failures both degrade to a miss; the caller
		// refetches.
		return nil, false
	}
	return value, true
}

// Set stores value under key with the cache TTL.
func (c *Cache) Set(key string, value []byte) error {
	return c.db.Update(func(txn *badgerdb.Txn) error {
		entry := badgerdb.NewEntry([]byte(key), value).WithTTL(c.ttl)
		return txn.SetEntry(entry)
	})
}
