// Package keystore persists small values (the session blob, UI preferences)
// across restarts. Two backends exist: a TOML file and a SQLite table.
package keystore

import (
	"errors"
	"fmt"
)

// Store is a durable string-keyed blob store.
type Store interface {
	// Get returns the value and whether the key exists.
	Get(key string) ([]byte, bool, error)
	Set(key string, value []byte) error
	Delete(key string) error
	Close() error
}

var (
	_ Store = (*FileStore)(nil)
	_ Store = (*SQLiteStore)(nil)
)

// ErrEmptyKey is returned for blank keys.
var ErrEmptyKey = errors.New("keystore: empty key")

// Open selects a backend by driver name ("file" or "sqlite").
func Open(driver, path string) (Store, error) {
	switch driver {
	case "", "file":
		return NewFileStore(path)
	case "sqlite":
		return OpenSQLite(path)
	default:
		return nil, fmt.Errorf("keystore: unknown driver %q", driver)
	}
}
