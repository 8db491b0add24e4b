package store

import (
	"context"
	"time"
)

// Entry is one persisted invocation outcome.
type Entry struct {
	// FnID names the function whose invocation produced this entry.
	FnID string
	// Payload is the opaque result bytes. For an entry recording a failed
	// invocation it holds the error text.
	Payload []byte
	// Valid is false for entries recording a failed invocation.
	Valid bool
	// CreatedAt is the wall clock time the entry was persisted.
	CreatedAt time.Time
}

// Store provides methods to read and write invocation outcomes keyed by
// their cache key. Implementations must be safe for concurrent use.
type Store interface {
	// Get returns the entry stored under the key. It returns
	// ErrEntryNotFound when no entry is present and ErrEntryCorrupt when an
	// entry is present but cannot be decoded.
	Get(ctx context.Context, key string) (*Entry, error)
	// Put stores the entry under the key, replacing any previous entry. The
	// write is atomic, a concurrent Get sees either the old or the new entry.
	Put(ctx context.Context, key string, entry *Entry) error
	// Exists reports whether an entry is present under the key. Presence
	// does not imply the entry is decodable.
	Exists(ctx context.Context, key string) (bool, error)
	// Close closes the store
	Close() error
}

// Manager manages the named stores of one backend.
type Manager interface {
	// CreateStore returns the named store, creating it when absent.
	CreateStore(ctx context.Context, name string) (Store, error)
	// DiscoverStores lists the names of the stores present in the backend.
	DiscoverStores(ctx context.Context) ([]string, error)
	// DeleteStore removes the named store together with all its entries.
	DeleteStore(ctx context.Context, name string) error
}
