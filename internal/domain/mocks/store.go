// Package mocks provides hand-written test doubles for the domain ports.
package mocks

import (
	"context"
	"sync"

	"github.com/ersonp/influence-tracker/internal/domain/ports"
)

// KVStore is an in-memory mock implementation of ports.VersionedKVStore.
// Writes made inside Update are buffered and applied only when the update
// succeeds.
type KVStore struct {
	mu       sync.Mutex
	txMu     sync.Mutex
	Values   map[string][]byte
	Versions map[string]int64

	// GetErr is returned by Get when set.
	GetErr error
	// SetErr is returned by Set when set.
	SetErr error
	// FailSetKey makes Set fail with SetErr only for this key.
	FailSetKey string

	Gets int
	Sets int
}

// NewKVStore creates a new mock KVStore.
func NewKVStore() *KVStore {
	return &KVStore{
		Values:   make(map[string][]byte),
		Versions: make(map[string]int64),
	}
}

// Get returns the value stored under key.
func (m *KVStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Gets++
	if m.GetErr != nil {
		return nil, false, m.GetErr
	}
	v, ok := m.Values[key]
	if !ok {
		return nil, false, nil
	}
	return clone(v), true, nil
}

// Version returns the number of writes made to key.
func (m *KVStore) Version(_ context.Context, key string) (int64, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.GetErr != nil {
		return 0, false, m.GetErr
	}
	if _, ok := m.Values[key]; !ok {
		return 0, false, nil
	}
	return m.Versions[key], true, nil
}

// Set stores value under key.
func (m *KVStore) Set(_ context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.setErr(key); err != nil {
		return err
	}
	m.put(key, value)
	return nil
}

// Update runs fn with buffered writes, one update at a time.
func (m *KVStore) Update(ctx context.Context, fn func(tx ports.KVTx) error) error {
	m.txMu.Lock()
	defer m.txMu.Unlock()

	tx := &kvTx{store: m, pending: make(map[string][]byte)}
	if err := fn(tx); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for _, key := range tx.order {
		m.put(key, tx.pending[key])
	}
	return nil
}

// Delete removes key.
func (m *KVStore) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.Values, key)
	m.Versions[key]++
	return nil
}

// Close is a no-op.
func (m *KVStore) Close() error {
	return nil
}

func (m *KVStore) setErr(key string) error {
	if m.SetErr != nil && (m.FailSetKey == "" || m.FailSetKey == key) {
		return m.SetErr
	}
	return nil
}

// put must be called with mu held.
func (m *KVStore) put(key string, value []byte) {
	m.Values[key] = clone(value)
	m.Versions[key]++
	m.Sets++
}

type kvTx struct {
	store   *KVStore
	pending map[string][]byte
	order   []string
}

func (tx *kvTx) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if v, ok := tx.pending[key]; ok {
		return clone(v), true, nil
	}
	return tx.store.Get(ctx, key)
}

func (tx *kvTx) Set(_ context.Context, key string, value []byte) error {
	tx.store.mu.Lock()
	err := tx.store.setErr(key)
	tx.store.mu.Unlock()
	if err != nil {
		return err
	}

	if _, ok := tx.pending[key]; !ok {
		tx.order = append(tx.order, key)
	}
	tx.pending[key] = clone(value)
	return nil
}

func clone(b []byte) []byte {
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
