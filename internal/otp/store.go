package otp

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrNotFound is returned when no live entry exists for a key.
var ErrNotFound = errors.New("otp entry not found")

// Store is a TTL-capable key-value capability for pending one-time codes.
// One entry per key; Set overwrites. CompareAndDelete must be atomic per
// key so that two concurrent verifications of the same code cannot both
// succeed.
type Store interface {
	Set(ctx context.Context, key string, value string, ttl time.Duration) error
	Get(ctx context.Context, key string) (string, error)
	CompareAndDelete(ctx context.Context, key string, expected string) (bool, error)
	Delete(ctx context.Context, key string) error
}

type memoryEntry struct {
	value    string
	expiryAt time.Time
}

// MemoryStore is a process-local Store used for tests and single-instance
// dev runs without Redis.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	now     func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries: map[string]memoryEntry{},
		now:     time.Now,
	}
}

// WithClock overrides the clock, for expiry tests.
func (s *MemoryStore) WithClock(now func() time.Time) *MemoryStore {
	s.now = now
	return s
}

func (s *MemoryStore) Set(_ context.Context, key string, value string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries[key] = memoryEntry{value: value, expiryAt: s.now().Add(ttl)}
	return nil
}

func (s *MemoryStore) Get(_ context.Context, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[key]
	if !ok {
		return "", ErrNotFound
	}
	if s.now().After(entry.expiryAt) {
		delete(s.entries, key)
		return "", ErrNotFound
	}

	return entry.value, nil
}

func (s *MemoryStore) CompareAndDelete(_ context.Context, key string, expected string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[key]
	if !ok {
		return false, nil
	}
	if s.now().After(entry.expiryAt) {
		delete(s.entries, key)
		return false, nil
	}
	if entry.value != expected {
		return false, nil
	}

	delete(s.entries, key)
	return true, nil
}

func (s *MemoryStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.entries, key)
	return nil
}
