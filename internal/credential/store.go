// Package credential persists the bearer credential the console uses to talk to
// the school API. A Store holds at most one credential under a fixed key; it
// never inspects or expires the value, the API is the only judge of validity.
package credential

import (
	"context"
	"errors"
	"sync"
)

// Key is the fixed name the credential is stored under in every backend.
const Key = "access_token"

// ErrNotFound is returned by Get when no credential is stored.
var ErrNotFound = errors.New("credential not found")

// Store is a single-slot credential store.
type Store interface {
	// Get returns the stored credential or ErrNotFound.
	Get(ctx context.Context) (string, error)
	// Set replaces the stored credential.
	Set(ctx context.Context, token string) error
	// Clear removes the stored credential. Clearing an empty store is not an error.
	Clear(ctx context.Context) error
}

// MemoryStore keeps the credential in process memory.
type MemoryStore struct {
	mu    sync.RWMutex
	token string
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Get returns the stored credential
func (s *MemoryStore) Get(_ context.Context) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.token == "" {
		return "", ErrNotFound
	}
	return s.token, nil
}

// Set stores the credential
func (s *MemoryStore) Set(_ context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = token
	return nil
}

// Clear forgets the credential
func (s *MemoryStore) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = ""
	return nil
}

// Has reports whether store currently holds a credential. Lookup failures
// other than ErrNotFound are returned to the caller.
func Has(ctx context.Context, store Store) (bool, error) {
	_, err := store.Get(ctx)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, ErrNotFound):
		return false, nil
	default:
		return false, err
	}
}

var (
	_ Store = (*MemoryStore)(nil)
	_ Store = (*FileStore)(nil)
	_ Store = (*RedisStore)(nil)
)
