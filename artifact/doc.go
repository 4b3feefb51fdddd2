// Package artifact defines the unit of work flowing through a cached
// pipeline: a file-like value carrying an in-memory content blob, path
// metadata, and arbitrary named properties that tasks may read and add to.
package artifact
