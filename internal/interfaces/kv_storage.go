package interfaces

import (
	"context"
	"errors"
	"time"
)

// ErrKeyNotFound is returned when a key is not found in the key/value store
var ErrKeyNotFound = errors.New("key not found")

// KeyValuePair represents a single key/value pair with metadata
type KeyValuePair struct {
	Key       string    `json:"key"`
	Value     string    `json:"value"`
	UpdatedAt time.Time `json:"updated_at"`
}

// KeyValueStorage defines operations for generic key/value storage. The
// scheduler persists per-job settings here so enabled state and last-run
// timestamps survive restarts.
type KeyValueStorage interface {
	// Get retrieves a value by key, returns ErrKeyNotFound if absent
	Get(ctx context.Context, key string) (string, error)

	// Set inserts or updates a key/value pair
	Set(ctx context.Context, key string, value string) error

	// Delete removes a key/value pair, returns ErrKeyNotFound if absent
	Delete(ctx context.Context, key string) error

	// GetAll returns all key/value pairs as a map
	GetAll(ctx context.Context) (map[string]string, error)

	// ListByPrefix returns all pairs with keys starting with the prefix
	ListByPrefix(ctx context.Context, prefix string) ([]KeyValuePair, error)
}

// StorageManager aggregates the persistent stores the process owns.
type StorageManager interface {
	KeyValueStorage() KeyValueStorage
	Close() error
}
