// Package store keeps serialized object graphs in a key/value backend. Every
// stored blob is wrapped in an envelope carrying the format version and a
// BLAKE2b-256 checksum of the payload.
package store

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/hengadev/rtti"
)

var (
	ErrNotFound         = errors.New("object not found")
	ErrChecksumMismatch = errors.New("checksum mismatch")
	ErrInvalidEnvelope  = errors.New("invalid envelope")
)

// Backend stores opaque blobs by key. Get and Delete return an error wrapping
// ErrNotFound for missing keys.
type Backend interface {
	Put(ctx context.Context, key string, data []byte) error
	Get(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
	// List returns the keys starting with prefix.
	List(ctx context.Context, prefix string) ([]string, error)
}

// Store saves and loads reflectable graphs under UUID keys.
type Store struct {
	backend    Backend
	serializer *rtti.Serializer
	prefix     string
}

// Option configures a Store.
type Option func(*Store) error

// WithKeyPrefix namespaces every key the store writes, e.g. "scenes/".
func WithKeyPrefix(prefix string) Option {
	return func(s *Store) error {
		if strings.ContainsRune(prefix, 0) {
			return fmt.Errorf("key prefix must not contain NUL bytes")
		}
		s.prefix = prefix
		return nil
	}
}

// New creates a Store writing through backend with serializer.
func New(backend Backend, serializer *rtti.Serializer, opts ...Option) (*Store, error) {
	if backend == nil {
		return nil, fmt.Errorf("backend must not be nil")
	}
	if serializer == nil {
		return nil, fmt.Errorf("serializer must not be nil")
	}
	s := &Store{backend: backend, serializer: serializer}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, fmt.Errorf("apply store option: %w", err)
		}
	}
	return s, nil
}

func (s *Store) key(id uuid.UUID) string { return s.prefix + id.String() }

// Save serializes obj and writes it under id, replacing any previous value.
func (s *Store) Save(ctx context.Context, id uuid.UUID, obj rtti.Reflectable) error {
	payload, err := s.serializer.Serialize(ctx, obj)
	if err != nil {
		return fmt.Errorf("serialize %s: %w", id, err)
	}
	if err := s.backend.Put(ctx, s.key(id), Seal(payload)); err != nil {
		return fmt.Errorf("put %s: %w", id, err)
	}
	return nil
}

// Load reads the graph stored under id. The root must be of type expected, or of
// any type when expected is rtti.NoType.
func (s *Store) Load(ctx context.Context, id uuid.UUID, expected rtti.TypeID) (rtti.Reflectable, error) {
	data, err := s.backend.Get(ctx, s.key(id))
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", id, err)
	}
	payload, err := Open(data)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", id, err)
	}
	obj, err := s.serializer.Deserialize(ctx, payload, expected)
	if err != nil {
		return nil, fmt.Errorf("deserialize %s: %w", id, err)
	}
	return obj, nil
}

// Delete removes the graph stored under id.
func (s *Store) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.backend.Delete(ctx, s.key(id)); err != nil {
		return fmt.Errorf("delete %s: %w", id, err)
	}
	return nil
}

// List returns the ids of every stored graph, sorted. Keys under the prefix that
// are not UUIDs are ignored.
func (s *Store) List(ctx context.Context) ([]uuid.UUID, error) {
	keys, err := s.backend.List(ctx, s.prefix)
	if err != nil {
		return nil, fmt.Errorf("list: %w", err)
	}
	ids := make([]uuid.UUID, 0, len(keys))
	for _, k := range keys {
		id, err := uuid.Parse(strings.TrimPrefix(k, s.prefix))
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })
	return ids, nil
}
