package taskcache

import (
	"errors"
	"fmt"
)

// Sentinel errors for cache proxy configuration and input handling.
var (
	// ErrMissingTask indicates no wrapped task was supplied.
	ErrMissingTask = errors.New("taskcache: task is required")

	// ErrMissingStore indicates no backing store was supplied. The store is
	// always received through configuration; there is no ambient default.
	ErrMissingStore = errors.New("taskcache: store is required")

	// ErrStreamedContent indicates an input artifact carries streamed
	// contents. Callers must materialize contents in memory before caching.
	ErrStreamedContent = errors.New("taskcache: streamed contents are not supported, buffer the artifact before caching")

	// ErrUnsupportedValue indicates the extracted value cannot be encoded
	// for storage.
	ErrUnsupportedValue = errors.New("taskcache: unsupported cache value type")
)

// StoreError wraps a failure from the backing store so callers can tell
// store faults apart from task faults.
type StoreError struct {
	Op  string // "get", "add", "remove", or "clear"
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("taskcache: store %s failed: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}
