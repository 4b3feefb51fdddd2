package taskcache

import (
	"context"
	"time"

	"github.com/jonwraymond/pipecache/artifact"
	"github.com/jonwraymond/pipecache/observe"
	"github.com/jonwraymond/pipecache/store"
)

// Proxy memoizes the results of a wrapped task. Each invocation fingerprints
// the input(s), consults the store, and either reconstructs the cached
// result or executes the task and populates the store.
//
// Concurrency: a Proxy is safe for concurrent use, but invocations sharing a
// fingerprint are not deduplicated against each other. Two concurrent misses
// on the same key both execute and both store; the last store write wins.
type Proxy struct {
	task Task
	cfg  Config
}

// New builds a Proxy for task. Configuration resolves field by field with
// caller overrides beating task-declared defaults beating system defaults.
func New(task Task, override Config) (*Proxy, error) {
	if task == nil {
		return nil, ErrMissingTask
	}
	cfg := resolveConfig(task, override)
	if cfg.Store == nil {
		return nil, ErrMissingStore
	}
	return &Proxy{task: task, cfg: cfg}, nil
}

// Config returns the proxy's resolved configuration.
func (p *Proxy) Config() Config {
	return p.cfg
}

// ProcessFiles runs the proxied task over inputs, short-circuiting through
// the cache where possible. In one-to-one mode each input artifact is
// fingerprinted, looked up, and executed independently; in many-to-many mode
// the whole ordered batch is a single cache unit. Emission order is
// preserved in the returned outputs.
func (p *Proxy) ProcessFiles(ctx context.Context, inputs ...*artifact.Artifact) ([]*artifact.Artifact, error) {
	if err := rejectStreams(inputs); err != nil {
		return nil, err
	}
	if p.cfg.Many {
		return p.processBatch(ctx, inputs)
	}

	var outputs []*artifact.Artifact
	for _, in := range inputs {
		outs, err := p.processOne(ctx, in)
		if err != nil {
			return nil, err
		}
		outputs = append(outputs, outs...)
	}
	return outputs, nil
}

// RemoveCachedResult invalidates the cache entries for inputs without
// running the task.
func (p *Proxy) RemoveCachedResult(ctx context.Context, inputs ...*artifact.Artifact) error {
	return removeCached(ctx, p.cfg, inputs)
}

// RemoveCachedResult invalidates the cache entries for inputs. No task is
// needed; the configuration resolves the same way as New, minus task
// defaults.
func RemoveCachedResult(ctx context.Context, override Config, inputs ...*artifact.Artifact) error {
	cfg := resolveConfig(nil, override)
	if cfg.Store == nil {
		return ErrMissingStore
	}
	return removeCached(ctx, cfg, inputs)
}

// Clear empties the entire backing store, every namespace included. Failures
// surface to the caller.
func Clear(ctx context.Context, st store.Store) error {
	if st == nil {
		return ErrMissingStore
	}
	if err := st.Clear(ctx, ""); err != nil {
		return &StoreError{Op: "clear", Err: err}
	}
	return nil
}

func (p *Proxy) processOne(ctx context.Context, input *artifact.Artifact) ([]*artifact.Artifact, error) {
	batch := []*artifact.Artifact{input}

	key, err := p.cfg.Key(ctx, batch)
	if err != nil {
		return nil, err
	}
	if key == "" {
		// Deliberate bypass: no lookup, no store.
		return p.execute(ctx, batch, "")
	}

	raw, hit, err := p.cfg.Store.GetCached(ctx, p.cfg.Name, key)
	if err != nil {
		return nil, &StoreError{Op: "get", Err: err}
	}
	if hit {
		values := decodeStored(raw, false)
		if p.cfg.Restore != nil {
			p.recordLookup(ctx, key, true)
			return p.cfg.Restore(ctx, batch, values)
		}
		if merged, ok := reconcileHit(input, values[0]); ok {
			p.recordLookup(ctx, key, true)
			return []*artifact.Artifact{merged}, nil
		}
		// The stored result belongs to a different input path; treat it as
		// stale and re-run. A successful run overwrites the entry.
		p.cfg.Logger.WithTask(p.cfg.meta()).Debug(ctx, "stale cache entry, re-executing",
			observe.Field{Key: "key", Value: key})
	}
	p.recordLookup(ctx, key, false)
	return p.execute(ctx, batch, key)
}

func (p *Proxy) processBatch(ctx context.Context, inputs []*artifact.Artifact) ([]*artifact.Artifact, error) {
	key, err := p.cfg.Key(ctx, inputs)
	if err != nil {
		return nil, err
	}
	if key == "" {
		return p.execute(ctx, inputs, "")
	}

	raw, hit, err := p.cfg.Store.GetCached(ctx, p.cfg.Name, key)
	if err != nil {
		return nil, &StoreError{Op: "get", Err: err}
	}
	if hit {
		// Many-to-many trusts a hit verbatim; there is no per-path
		// staleness check in this mode.
		p.recordLookup(ctx, key, true)
		values := decodeStored(raw, true)
		if p.cfg.Restore != nil {
			return p.cfg.Restore(ctx, inputs, values)
		}
		return restoreArtifacts(values), nil
	}
	p.recordLookup(ctx, key, false)
	return p.execute(ctx, inputs, key)
}

// execute runs the wrapped task and, when key is non-empty and the output
// passes the success predicate, extracts, encodes, and stores a value. The
// task's real output is returned either way.
func (p *Proxy) execute(ctx context.Context, inputs []*artifact.Artifact, key string) ([]*artifact.Artifact, error) {
	meta := p.cfg.meta()
	log := p.cfg.Logger.WithTask(meta)

	execCtx, span := p.cfg.Tracer.StartSpan(ctx, meta)
	start := time.Now()
	outputs, err := runTask(execCtx, p.task, inputs, p.cfg.Many)
	duration := time.Since(start)
	p.cfg.Tracer.EndSpan(span, err)
	p.cfg.Metrics.RecordExecution(ctx, meta, duration, err)
	if err != nil {
		// Partial output was already discarded by the bridge; nothing is
		// cached for a failed run.
		log.Error(ctx, "task execution failed",
			observe.Field{Key: "error", Value: err.Error()})
		return nil, err
	}

	if key == "" {
		return outputs, nil
	}

	cacheable, err := p.cfg.Success(ctx, outputs)
	if err != nil {
		return nil, err
	}
	if !cacheable {
		log.Debug(ctx, "output failed success predicate, not cached",
			observe.Field{Key: "key", Value: key})
		return outputs, nil
	}

	value, err := extractValue(ctx, p.cfg, outputs)
	if err != nil {
		return nil, err
	}
	if value == nil {
		return outputs, nil
	}

	raw, err := encodeValue(value, inputs, outputs, p.cfg.Many)
	if err != nil {
		return nil, err
	}
	if err := p.cfg.Store.AddCached(ctx, p.cfg.Name, key, raw); err != nil {
		return nil, &StoreError{Op: "add", Err: err}
	}
	p.cfg.Metrics.RecordStore(ctx, meta)
	log.Debug(ctx, "result cached",
		observe.Field{Key: "key", Value: key},
		observe.Field{Key: "size", Value: len(raw)})
	return outputs, nil
}

func (p *Proxy) recordLookup(ctx context.Context, key string, hit bool) {
	p.cfg.Metrics.RecordLookup(ctx, p.cfg.meta(), hit)
	if hit {
		p.cfg.Logger.WithTask(p.cfg.meta()).Debug(ctx, "cache hit",
			observe.Field{Key: "key", Value: key})
	}
}

func removeCached(ctx context.Context, cfg Config, inputs []*artifact.Artifact) error {
	if cfg.Many {
		return removeKey(ctx, cfg, inputs)
	}
	for _, in := range inputs {
		if err := removeKey(ctx, cfg, []*artifact.Artifact{in}); err != nil {
			return err
		}
	}
	return nil
}

func removeKey(ctx context.Context, cfg Config, batch []*artifact.Artifact) error {
	key, err := cfg.Key(ctx, batch)
	if err != nil {
		return err
	}
	if key == "" {
		return nil
	}
	if err := cfg.Store.RemoveCached(ctx, cfg.Name, key); err != nil {
		return &StoreError{Op: "remove", Err: err}
	}
	return nil
}

func rejectStreams(inputs []*artifact.Artifact) error {
	for _, in := range inputs {
		if in.IsStream() {
			return ErrStreamedContent
		}
	}
	return nil
}
