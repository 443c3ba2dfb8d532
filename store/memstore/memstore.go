// Package memstore is an in-memory store.Backend, mostly for tests and tools.
package memstore

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/hengadev/rtti/store"
)

// Backend keeps blobs in a map. It is safe for concurrent use.
type Backend struct {
	mu   sync.RWMutex
	data map[string][]byte
}

func New() *Backend {
	return &Backend{data: make(map[string][]byte)}
}

func (b *Backend) Put(ctx context.Context, key string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.data[key] = slices.Clone(data)
	return nil
}

func (b *Backend) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	data, ok := b.data[key]
	if !ok {
		return nil, fmt.Errorf("%w: %s", store.ErrNotFound, key)
	}
	return slices.Clone(data), nil
}

func (b *Backend) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.data[key]; !ok {
		return fmt.Errorf("%w: %s", store.ErrNotFound, key)
	}
	delete(b.data, key)
	return nil
}

func (b *Backend) List(ctx context.Context, prefix string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	keys := make([]string, 0, len(b.data))
	for k := range b.data {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	slices.Sort(keys)
	return keys, nil
}

// Corrupt flips one bit of the blob stored under key. It exists to exercise
// checksum handling.
func (b *Backend) Corrupt(key string, offset int) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	data, ok := b.data[key]
	if !ok || offset < 0 || offset >= len(data) {
		return false
	}
	data[offset] ^= 0x01
	return true
}
