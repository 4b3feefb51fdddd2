// Package store defines the persistent key-value store consumed by the task
// cache proxy, namespaced so independent cache usages do not collide.
//
// It provides a file-backed store (the usual choice for build pipelines), an
// in-process ristretto-backed store for tests and short-lived processes, and
// a Redis-backed store for caches shared between machines.
package store
