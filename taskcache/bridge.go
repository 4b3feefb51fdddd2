package taskcache

import (
	"context"

	"github.com/jonwraymond/pipecache/artifact"
)

// Task is the wrapped transformation. Run consumes artifacts from in, emits
// results on out in whatever order it produces them, and returns nil once
// every output has been emitted, or an error to abort the invocation.
//
// Contract:
// - The bridge owns both channels; Run must not close out.
// - Run should honor ctx cancellation on every send and receive; in
//   one-to-one mode the bridge cancels ctx once it has the output it needs.
// - A Run that neither returns nor emits hangs the invocation. No timeout
//   is applied here; callers needing one wrap ctx at a higher level.
type Task interface {
	Run(ctx context.Context, in <-chan *artifact.Artifact, out chan<- *artifact.Artifact) error
}

// TaskFunc adapts a function to the Task interface.
type TaskFunc func(ctx context.Context, in <-chan *artifact.Artifact, out chan<- *artifact.Artifact) error

func (f TaskFunc) Run(ctx context.Context, in <-chan *artifact.Artifact, out chan<- *artifact.Artifact) error {
	return f(ctx, in, out)
}

// Map adapts a per-artifact transform into a Task. The transform is applied
// to each input in arrival order; the first error aborts the run.
func Map(fn func(ctx context.Context, a *artifact.Artifact) (*artifact.Artifact, error)) Task {
	return TaskFunc(func(ctx context.Context, in <-chan *artifact.Artifact, out chan<- *artifact.Artifact) error {
		for {
			select {
			case a, ok := <-in:
				if !ok {
					return nil
				}
				b, err := fn(ctx, a)
				if err != nil {
					return err
				}
				select {
				case out <- b:
				case <-ctx.Done():
					return ctx.Err()
				}
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	})
}

// runTask drives the wrapped task for one invocation and adapts its
// push-style output into a single awaited result.
//
// In one-to-one mode the inputs (exactly one) are written and the first
// emitted output completes the run. In many-to-many mode every input is
// written, the input channel is closed, and the run completes when the task
// returns. Outputs are collected in emission order. An error from the task
// discards everything collected so far.
//
// Teardown is deterministic on both paths: the task's context is canceled
// when runTask returns, and a drain goroutine consumes any in-flight sends
// so the task goroutine can always exit.
func runTask(ctx context.Context, task Task, inputs []*artifact.Artifact, many bool) ([]*artifact.Artifact, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	in := make(chan *artifact.Artifact, len(inputs))
	out := make(chan *artifact.Artifact)
	done := make(chan error, 1)

	go func() {
		err := task.Run(ctx, in, out)
		close(out)
		done <- err
	}()

	for _, a := range inputs {
		in <- a // buffered to len(inputs): never blocks
	}
	if many {
		close(in)
	}

	if !many {
		// Fast path: the first output completes the run.
		for a := range out {
			go func() {
				for range out {
				}
				<-done
			}()
			return []*artifact.Artifact{a}, nil
		}
		// The task finished without emitting.
		if err := <-done; err != nil {
			return nil, err
		}
		return nil, nil
	}

	var outputs []*artifact.Artifact
	for a := range out {
		outputs = append(outputs, a)
	}
	if err := <-done; err != nil {
		return nil, err
	}
	return outputs, nil
}
