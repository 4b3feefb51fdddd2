package store

import (
	"bytes"
	"context"
	"sync"

	"github.com/dgraph-io/ristretto/v2"
)

// MemoryStore is an in-process store backed by ristretto. Useful for tests
// and short-lived processes where persistence across runs is not needed.
//
// Ristretto may drop entries under cost pressure; a dropped entry surfaces
// as a cache miss, which the proxy treats as "run the task again".
type MemoryStore struct {
	rc *ristretto.Cache[string, []byte]

	// ristretto has no iteration, so namespace membership is tracked here
	// to support Clear.
	mu   sync.Mutex
	keys map[string]map[string]struct{}
}

// NewMemoryStore creates an in-memory store. maxCost bounds the number of
// entries the cache can hold (each entry has a cost of 1).
func NewMemoryStore(maxCost int64) (*MemoryStore, error) {
	rc, err := ristretto.NewCache(&ristretto.Config[string, []byte]{
		NumCounters: maxCost * 10,
		MaxCost:     maxCost,
		BufferItems: 64,
	})
	if err != nil {
		return nil, err
	}
	return &MemoryStore{
		rc:   rc,
		keys: make(map[string]map[string]struct{}),
	}, nil
}

// GetCached retrieves the value stored under (name, key).
func (s *MemoryStore) GetCached(_ context.Context, name, key string) ([]byte, bool, error) {
	if err := ValidateName(name); err != nil {
		return nil, false, err
	}
	if err := ValidateKey(key); err != nil {
		return nil, false, err
	}
	v, ok := s.rc.Get(join(name, key))
	if !ok {
		return nil, false, nil
	}
	return bytes.Clone(v), true, nil
}

// AddCached stores value under (name, key), replacing any prior value.
func (s *MemoryStore) AddCached(_ context.Context, name, key string, value []byte) error {
	if err := ValidateName(name); err != nil {
		return err
	}
	if err := ValidateKey(key); err != nil {
		return err
	}
	s.rc.Set(join(name, key), bytes.Clone(value), 1)
	s.rc.Wait()

	s.mu.Lock()
	ns := s.keys[name]
	if ns == nil {
		ns = make(map[string]struct{})
		s.keys[name] = ns
	}
	ns[key] = struct{}{}
	s.mu.Unlock()
	return nil
}

// RemoveCached removes (name, key). Removing an absent entry is not an error.
func (s *MemoryStore) RemoveCached(_ context.Context, name, key string) error {
	if err := ValidateName(name); err != nil {
		return err
	}
	if err := ValidateKey(key); err != nil {
		return err
	}
	s.rc.Del(join(name, key))
	s.rc.Wait()

	s.mu.Lock()
	if ns := s.keys[name]; ns != nil {
		delete(ns, key)
	}
	s.mu.Unlock()
	return nil
}

// Clear removes every entry in the named namespace, or all namespaces when
// name is empty.
func (s *MemoryStore) Clear(_ context.Context, name string) error {
	if name != "" {
		if err := ValidateName(name); err != nil {
			return err
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	for ns, keys := range s.keys {
		if name != "" && ns != name {
			continue
		}
		for k := range keys {
			s.rc.Del(join(ns, k))
		}
		delete(s.keys, ns)
	}
	s.rc.Wait()
	return nil
}

// Close releases the underlying ristretto cache.
func (s *MemoryStore) Close() {
	s.rc.Close()
}

// join builds the flat ristretto key for a (name, key) pair. NUL is safe as
// a separator because ValidateName and ValidateKey both reject it.
func join(name, key string) string {
	return name + "\x00" + key
}

// Ensure MemoryStore implements Store
var _ Store = (*MemoryStore)(nil)
