package artifact

import (
	"io"
	"io/fs"
	"maps"
	"time"
)

// Structural field names. These describe where an artifact lives rather than
// what a task produced, and are never overwritten when a cached result is
// merged onto a live artifact.
const (
	PropCwd      = "cwd"
	PropBase     = "base"
	PropPath     = "path"
	PropStat     = "stat"
	PropHistory  = "history"
	PropContents = "contents"
)

// Stat is the subset of file metadata the pipeline tracks.
type Stat struct {
	Mode    fs.FileMode
	Size    int64
	ModTime time.Time
}

// Artifact is a file-like unit of work.
//
// Contract:
// - Ownership: an artifact belongs to a single invocation at a time; callers
//   that need to keep one across invocations should Clone it.
// - Contents is the sole required input to the default fingerprint.
// - Stream is an escape hatch for lazily produced contents; the cache proxy
//   rejects streamed artifacts and requires pre-materialized Contents.
type Artifact struct {
	// Cwd is the working directory the artifact was created under.
	Cwd string

	// Base is the directory its Path is considered relative to.
	Base string

	// Path is the artifact's current path. Tasks may change it.
	Path string

	// History records every path the artifact has held, oldest first,
	// including the current one.
	History []string

	// Stat is optional file metadata.
	Stat *Stat

	// Contents is the in-memory content blob.
	Contents []byte

	// Stream, when non-nil, supplies contents lazily instead of Contents.
	Stream io.Reader

	// Props holds named properties. Tasks may attach arbitrary values here;
	// non-structural properties survive a cache round trip.
	Props map[string]any
}

// New creates an artifact with the given path and contents.
func New(path string, contents []byte) *Artifact {
	a := &Artifact{Contents: contents}
	if path != "" {
		a.SetPath(path)
	}
	return a
}

// IsStream reports whether the artifact carries streamed contents instead of
// an in-memory blob.
func (a *Artifact) IsStream() bool {
	return a.Stream != nil
}

// SetPath updates the artifact's path, recording the previous one in History.
func (a *Artifact) SetPath(path string) {
	if path == "" || path == a.Path {
		return
	}
	a.History = append(a.History, path)
	a.Path = path
}

// Prop looks up a named property. Structural fields and contents resolve by
// their reserved names; everything else comes from Props.
func (a *Artifact) Prop(name string) (any, bool) {
	switch name {
	case PropContents:
		return a.Contents, true
	case PropPath:
		return a.Path, true
	case PropBase:
		return a.Base, true
	case PropCwd:
		return a.Cwd, true
	}
	v, ok := a.Props[name]
	return v, ok
}

// SetProp attaches a named property, allocating Props on first use.
func (a *Artifact) SetProp(name string, value any) {
	if a.Props == nil {
		a.Props = make(map[string]any)
	}
	a.Props[name] = value
}

// Clone returns a deep copy of the artifact. The Stream field is shared, not
// copied; streamed artifacts cannot be duplicated safely.
func (a *Artifact) Clone() *Artifact {
	out := &Artifact{
		Cwd:    a.Cwd,
		Base:   a.Base,
		Path:   a.Path,
		Stream: a.Stream,
	}
	if a.History != nil {
		out.History = append([]string(nil), a.History...)
	}
	if a.Stat != nil {
		st := *a.Stat
		out.Stat = &st
	}
	if a.Contents != nil {
		out.Contents = append([]byte(nil), a.Contents...)
	}
	if a.Props != nil {
		out.Props = maps.Clone(a.Props)
	}
	return out
}

// IsStructural reports whether name refers to a structural field, one that
// describes the artifact's location and filesystem identity rather than
// task-produced state.
func IsStructural(name string) bool {
	switch name {
	case PropCwd, PropBase, PropPath, PropStat, PropHistory:
		return true
	}
	return false
}
