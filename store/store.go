package store

import (
	"context"
	"errors"
	"strings"
)

// MaxKeyLength is the maximum allowed length for a cache key.
const MaxKeyLength = 512

// DefaultName is the namespace used when a consumer does not pick one.
const DefaultName = "default"

// Sentinel errors for store operations.
var (
	ErrNilStore    = errors.New("store: store is nil")
	ErrInvalidKey  = errors.New("store: key is invalid")
	ErrKeyTooLong  = errors.New("store: key exceeds max length")
	ErrInvalidName = errors.New("store: namespace name is invalid")
)

// Store is the persistent cache consumed by the task proxy. Entries live
// under a (name, key) pair where name is a logical namespace.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Context: methods should honor cancellation/deadlines where applicable.
// - Errors: GetCached returns (nil, false, nil) on a miss; a non-nil error
//   means the store itself failed, not that the key is absent.
type Store interface {
	// GetCached retrieves the value stored under (name, key).
	GetCached(ctx context.Context, name, key string) ([]byte, bool, error)

	// AddCached stores value under (name, key), replacing any prior value.
	AddCached(ctx context.Context, name, key string, value []byte) error

	// RemoveCached removes (name, key). Idempotent - no error on miss.
	RemoveCached(ctx context.Context, name, key string) error

	// Clear removes every entry in the named namespace. An empty name
	// clears all namespaces.
	Clear(ctx context.Context, name string) error
}

// ValidateKey checks if a key is valid for caching.
func ValidateKey(key string) error {
	if key == "" || strings.TrimSpace(key) == "" {
		return ErrInvalidKey
	}
	if len(key) > MaxKeyLength {
		return ErrKeyTooLong
	}
	// Reject keys that cannot survive every backend: newlines break the
	// file layout, NUL bytes break prefix composition.
	if strings.ContainsAny(key, "\n\r\x00") {
		return ErrInvalidKey
	}
	return nil
}

// ValidateName checks if a namespace name is valid.
func ValidateName(name string) error {
	if name == "" || strings.TrimSpace(name) == "" {
		return ErrInvalidName
	}
	// Colons would make Redis key prefixes ambiguous; separators would
	// escape the file layout.
	if strings.ContainsAny(name, "\n\r\x00:/\\") {
		return ErrInvalidName
	}
	if name == "." || name == ".." {
		return ErrInvalidName
	}
	return nil
}
