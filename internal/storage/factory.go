package storage

import (
	"fmt"
	"os"
)

const (
	envStoreKind = "CALMKIT_STORE"
	envDBPath    = "CALMKIT_DB_PATH"
)

// DefaultStoreKind is $CALMKIT_STORE, or memory.
func DefaultStoreKind() string {
	if kind := os.Getenv(envStoreKind); kind != "" {
		return kind
	}
	return "memory"
}

// DefaultDBPath is $CALMKIT_DB_PATH, or calmkit.db.
func DefaultDBPath() string {
	if path := os.Getenv(envDBPath); path != "" {
		return path
	}
	return "calmkit.db"
}

func NewStore(kind, sqlitePath string) (Store, error) {
	switch kind {
	case "", "memory":
		return NewMemoryStore(), nil
	case "sqlite":
		return newSQLiteStore(sqlitePath)
	default:
		return nil, fmt.Errorf("unsupported store backend: %s", kind)
	}
}

func CloseIfSupported(store Store) error {
	closer, ok := store.(interface{ Close() error })
	if !ok {
		return nil
	}
	return closer.Close()
}
