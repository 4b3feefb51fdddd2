package taskcache

import (
	"context"

	"github.com/jonwraymond/pipecache/artifact"
	"github.com/jonwraymond/pipecache/observe"
	"github.com/jonwraymond/pipecache/store"
)

// Version tags default cache keys. Bumping it invalidates every entry
// derived with the default fingerprint.
const Version = "1"

// KeyFunc derives the cache key for an invocation. Returning an empty key
// with a nil error is a deliberate bypass: the task runs, the store is never
// consulted, and nothing is cached.
type KeyFunc func(ctx context.Context, inputs []*artifact.Artifact) (string, error)

// SuccessFunc decides whether a task's output is eligible for caching. A
// false result skips the store write; the real output is still returned.
type SuccessFunc func(ctx context.Context, outputs []*artifact.Artifact) (bool, error)

// ValueFunc produces the cacheable projection of a task's output. Returning
// nil with a nil error skips caching for that run.
type ValueFunc func(ctx context.Context, outputs []*artifact.Artifact) (any, error)

// RestoreFunc rebuilds output artifacts from decoded stored values on a
// cache hit. When set it fully owns the hit path, including any staleness
// decision the default reconciliation would make.
type RestoreFunc func(ctx context.Context, inputs []*artifact.Artifact, values []StoredValue) ([]*artifact.Artifact, error)

// Defaulter lets a task declare its own cache defaults. Resolution order is
// caller overrides, then task defaults, then system defaults.
type Defaulter interface {
	CacheDefaults() Config
}

// Config is the per-proxy cache policy.
//
// Zero values mean "inherit": a zero field falls back to the task's declared
// default for that field, then to the system default. Many is the one
// exception a caller cannot un-set once a task default declares it, since
// false is indistinguishable from unset.
type Config struct {
	// Name is the cache namespace. Defaults to store.DefaultName so
	// independent usages under one store do not collide unless they opt in.
	Name string

	// TaskName labels telemetry. Optional.
	TaskName string

	// Store is the backing cache store. Required; there is no ambient
	// default store.
	Store store.Store

	// Version tags keys derived by the default fingerprint. Defaults to
	// the package Version.
	Version string

	// Key derives the fingerprint. Defaults to DefaultKey(Version).
	Key KeyFunc

	// Success gates cache population. Defaults to always cacheable.
	Success SuccessFunc

	// Value extracts the cacheable projection of the output. When nil,
	// ValueProp is used instead.
	Value ValueFunc

	// ValueProp names a single artifact property to project. Defaults to
	// "contents".
	ValueProp string

	// Restore rebuilds artifacts on a cache hit. When nil, the default
	// restore applies: merge-with-reconciliation in one-to-one mode,
	// verbatim reconstruction in many-to-many mode.
	Restore RestoreFunc

	// Many selects many-to-many mode: the whole ordered input batch is one
	// cache unit. Default is one-to-one.
	Many bool

	// Logger, Metrics, and Tracer instrument the proxy. All default to
	// no-ops.
	Logger  observe.Logger
	Metrics observe.Metrics
	Tracer  observe.Tracer
}

func systemDefaults() Config {
	return Config{
		Name:      store.DefaultName,
		Version:   Version,
		ValueProp: artifact.PropContents,
		Success:   alwaysCacheable,
		Logger:    observe.NopLogger(),
		Metrics:   observe.NopMetrics(),
		Tracer:    observe.NopTracer(),
	}
}

func alwaysCacheable(context.Context, []*artifact.Artifact) (bool, error) {
	return true, nil
}

// resolveConfig merges configuration tiers field by field: caller overrides
// beat task-declared defaults beat system defaults. The task may be nil
// (invalidation path).
func resolveConfig(task Task, override Config) Config {
	cfg := systemDefaults()
	if d, ok := task.(Defaulter); ok {
		applyOverrides(&cfg, d.CacheDefaults())
	}
	applyOverrides(&cfg, override)

	// The default key function depends on the resolved version tag, so it
	// is filled in last.
	if cfg.Key == nil {
		cfg.Key = DefaultKey(cfg.Version)
	}
	return cfg
}

func applyOverrides(dst *Config, src Config) {
	if src.Name != "" {
		dst.Name = src.Name
	}
	if src.TaskName != "" {
		dst.TaskName = src.TaskName
	}
	if src.Store != nil {
		dst.Store = src.Store
	}
	if src.Version != "" {
		dst.Version = src.Version
	}
	if src.Key != nil {
		dst.Key = src.Key
	}
	if src.Success != nil {
		dst.Success = src.Success
	}
	if src.Value != nil {
		dst.Value = src.Value
	}
	if src.ValueProp != "" {
		dst.ValueProp = src.ValueProp
	}
	if src.Restore != nil {
		dst.Restore = src.Restore
	}
	if src.Many {
		dst.Many = true
	}
	if src.Logger != nil {
		dst.Logger = src.Logger
	}
	if src.Metrics != nil {
		dst.Metrics = src.Metrics
	}
	if src.Tracer != nil {
		dst.Tracer = src.Tracer
	}
}

func (c Config) meta() observe.TaskMeta {
	return observe.TaskMeta{
		Name:    c.Name,
		Task:    c.TaskName,
		Version: c.Version,
		Many:    c.Many,
	}
}
