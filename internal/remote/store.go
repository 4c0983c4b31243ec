// Package remote pushes archives to and pulls them from a shared store.
package remote

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"sync"

	"github.com/binfalse/CombineArchive-fb/internal/config"
)

// ErrNotFound is returned when the requested archive does not exist in the
// store. Callers should use errors.Is to match it.
var ErrNotFound = errors.New("archive not found in remote store")

// Store is a remote archive store.
type Store interface {
	// Push uploads the archive under name, replacing any existing object.
	Push(ctx context.Context, name string, r io.Reader) error
	// Pull writes the archive stored under name to w. Missing archives
	// yield ErrNotFound.
	Pull(ctx context.Context, name string, w io.Writer) error
	// List returns the stored archive names in lexical order.
	List(ctx context.Context) ([]string, error)
}

// NewStoreFromConfig creates a Store implementation based on the remote config type.
func NewStoreFromConfig(ctx context.Context, cfg config.RemoteConfig) (Store, error) {
	switch cfg.Type {
	case "":
		return nil, fmt.Errorf("no remote store configured (set remote.type)")
	case "memory":
		return NewMemoryStore(), nil
	case "s3":
		if cfg.S3Bucket == "" {
			return nil, fmt.Errorf("s3 remote requires s3_bucket to be set")
		}
		return NewS3Store(ctx, cfg)
	default:
		return nil, fmt.Errorf("unknown remote type: %s", cfg.Type)
	}
}

// MemoryStore is an in-memory implementation of the Store interface, useful
// for testing and local experiments. Safe for concurrent use.
type MemoryStore struct {
	objects map[string][]byte
	mu      sync.RWMutex
}

// NewMemoryStore creates a new in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{objects: make(map[string][]byte)}
}

var _ Store = (*MemoryStore)(nil)

func (m *MemoryStore) Push(_ context.Context, name string, r io.Reader) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("failed to read archive: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.objects[name] = data
	return nil
}

func (m *MemoryStore) Pull(_ context.Context, name string, w io.Writer) error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	data, ok := m.objects[name]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, name)
	}

	if _, err := io.Copy(w, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("failed to write archive: %w", err)
	}
	return nil
}

func (m *MemoryStore) List(_ context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	names := make([]string, 0, len(m.objects))
	for name := range m.objects {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}
