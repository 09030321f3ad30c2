// Package ports defines interfaces for external service communication.
package ports

import "context"

// KVReader reads serialized values by key.
type KVReader interface {
	// Get returns the raw value stored under key. found is false when the
	// key has never been written.
	Get(ctx context.Context, key string) (value []byte, found bool, err error)
}

// KVTx is the store as seen from inside an Update.
type KVTx interface {
	KVReader

	// Set stores value under key, replacing any previous value.
	Set(ctx context.Context, key string, value []byte) error
}

// KVStore is a durable key-value store holding serialized values under
// named keys. Several processes may share one store.
type KVStore interface {
	KVTx

	// Update runs fn inside one write transaction. Reads in fn see the
	// latest committed state, and fn's writes are committed together when
	// it returns nil or discarded when it returns an error. Updates are
	// serialized across every process using the store.
	Update(ctx context.Context, fn func(tx KVTx) error) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases the underlying resources.
	Close() error
}

// VersionedKVStore is a KVStore that can report a per-key version without
// reading the value. The version changes on every write to the key.
type VersionedKVStore interface {
	KVStore

	Version(ctx context.Context, key string) (version int64, found bool, err error)
}
