// Package kvstore provides the persistent key-value store shared by every stateful subsystem.
//
// Values are whole JSON blobs: every write replaces the entire value for its key.
package kvstore

import (
	"errors"
	"sort"
	"sync"
)

var (
	// ErrNotFound is returned by Get for a missing key.
	ErrNotFound = errors.New("key not found")
	// ErrQuotaExceeded is returned by Set when the write would exceed the store quota.
	ErrQuotaExceeded = errors.New("storage quota exceeded")
	// ErrInvalidKey is returned for empty keys.
	ErrInvalidKey = errors.New("invalid key")
)

// Store is a synchronous key-value store.
type Store interface {
	Get(key string) ([]byte, error)
	Set(key string, value []byte) error
	Remove(key string) error
	Keys() []string
	Clear() error
}

// Memory is an in-memory Store. The zero quota means unlimited.
type Memory struct {
	data  map[string][]byte
	quota int
	mu    sync.RWMutex
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{data: make(map[string][]byte)}
}

// WithQuota limits the total size of keys and values in bytes.
func (m *Memory) WithQuota(bytes int) *Memory {
	m.mu.Lock()
	m.quota = bytes
	m.mu.Unlock()
	return m
}

// Get returns a copy of the value stored under key.
func (m *Memory) Get(key string) ([]byte, error) {
	if key == "" {
		return nil, ErrInvalidKey
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[key]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), v...), nil
}

// Set stores value under key.
func (m *Memory) Set(key string, value []byte) error {
	if key == "" {
		return ErrInvalidKey
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.quota > 0 && usage(m.data, key, value) > m.quota {
		return ErrQuotaExceeded
	}
	m.data[key] = append([]byte(nil), value...)
	return nil
}

// Remove deletes key. Removing a missing key is not an error.
func (m *Memory) Remove(key string) error {
	if key == "" {
		return ErrInvalidKey
	}
	m.mu.Lock()
	delete(m.data, key)
	m.mu.Unlock()
	return nil
}

// Keys returns every stored key in sorted order.
func (m *Memory) Keys() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return sortedKeys(m.data)
}

// Clear removes every key.
func (m *Memory) Clear() error {
	m.mu.Lock()
	m.data = make(map[string][]byte)
	m.mu.Unlock()
	return nil
}

// usage computes the store size as it would be after writing key=value.
func usage(data map[string][]byte, key string, value []byte) int {
	total := len(key) + len(value)
	for k, v := range data {
		if k == key {
			continue
		}
		total += len(k) + len(v)
	}
	return total
}

func sortedKeys[V any](data map[string]V) []string {
	keys := make([]string, 0, len(data))
	for k := range data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
