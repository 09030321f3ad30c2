// Package cached wraps a KVStore with an in-memory read cache.
package cached

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/ersonp/influence-tracker/internal/domain/ports"
)

// Store is a validating read cache in front of a VersionedKVStore.
// A cached value is returned only while its version matches the wrapped
// store's, so writes made by other processes are seen on the next Get.
// Reads inside Update bypass the cache.
type Store struct {
	next  ports.VersionedKVStore
	cache *gocache.Cache
}

type cacheEntry struct {
	value   []byte
	version int64
}

// New wraps next. Values expire after ttl; ttl <= 0 keeps them until the
// key is written again.
func New(next ports.VersionedKVStore, ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = gocache.NoExpiration
	}
	return &Store{
		next:  next,
		cache: gocache.New(ttl, 10*time.Minute),
	}
}

// Get returns the cached value if it is still current, loading it from the
// wrapped store otherwise.
func (s *Store) Get(ctx context.Context, key string) ([]byte, bool, error) {
	version, found, err := s.next.Version(ctx, key)
	if err != nil {
		return nil, false, err
	}
	if !found {
		s.cache.Delete(key)
		return nil, false, nil
	}

	if v, ok := s.cache.Get(key); ok {
		if e := v.(cacheEntry); e.version == version {
			return clone(e.value), true, nil
		}
	}

	value, found, err := s.next.Get(ctx, key)
	if err != nil {
		return nil, false, err
	}
	if !found {
		s.cache.Delete(key)
		return nil, false, nil
	}
	// The value may be newer than version; a later Get then reloads it.
	s.cache.SetDefault(key, cacheEntry{value: clone(value), version: version})
	return value, true, nil
}

// Version reports the wrapped store's version of key.
func (s *Store) Version(ctx context.Context, key string) (int64, bool, error) {
	return s.next.Version(ctx, key)
}

// Set writes through to the wrapped store and drops the cached value.
func (s *Store) Set(ctx context.Context, key string, value []byte) error {
	s.cache.Delete(key)
	return s.next.Set(ctx, key, value)
}

// Update runs fn in a transaction of the wrapped store. Keys written by fn
// are dropped from the cache whether or not the transaction commits.
func (s *Store) Update(ctx context.Context, fn func(tx ports.KVTx) error) error {
	var written []string
	err := s.next.Update(ctx, func(tx ports.KVTx) error {
		return fn(&trackingTx{KVTx: tx, written: &written})
	})
	for _, key := range written {
		s.cache.Delete(key)
	}
	return err
}

// Delete removes key from the wrapped store and the cache.
func (s *Store) Delete(ctx context.Context, key string) error {
	s.cache.Delete(key)
	return s.next.Delete(ctx, key)
}

// Close flushes the cache and closes the wrapped store.
func (s *Store) Close() error {
	s.cache.Flush()
	return s.next.Close()
}

type trackingTx struct {
	ports.KVTx
	written *[]string
}

func (tx *trackingTx) Set(ctx context.Context, key string, value []byte) error {
	*tx.written = append(*tx.written, key)
	return tx.KVTx.Set(ctx, key, value)
}

func clone(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
