package taskcache_test

import (
	"context"
	"fmt"
	"strings"

	"github.com/jonwraymond/pipecache/artifact"
	"github.com/jonwraymond/pipecache/store"
	"github.com/jonwraymond/pipecache/taskcache"
)

func ExampleNew() {
	ctx := context.Background()

	st, err := store.NewMemoryStore(1 << 20)
	if err != nil {
		panic(err)
	}
	defer st.Close()

	// A transform whose work is worth memoizing.
	calls := 0
	task := taskcache.Map(func(ctx context.Context, a *artifact.Artifact) (*artifact.Artifact, error) {
		calls++
		out := a.Clone()
		out.Contents = []byte(strings.ToUpper(string(a.Contents)))
		return out, nil
	})

	proxy, err := taskcache.New(task, taskcache.Config{Store: st})
	if err != nil {
		panic(err)
	}

	// First pass executes the task.
	outs, _ := proxy.ProcessFiles(ctx, artifact.New("greeting.txt", []byte("hello")))
	fmt.Println("First:", string(outs[0].Contents), "calls:", calls)

	// Identical contents hit the cache; the task does not run again.
	outs, _ = proxy.ProcessFiles(ctx, artifact.New("greeting.txt", []byte("hello")))
	fmt.Println("Second:", string(outs[0].Contents), "calls:", calls)
	// Output:
	// First: HELLO calls: 1
	// Second: HELLO calls: 1
}

func ExampleProxy_RemoveCachedResult() {
	ctx := context.Background()

	st, err := store.NewMemoryStore(1 << 20)
	if err != nil {
		panic(err)
	}
	defer st.Close()

	calls := 0
	task := taskcache.Map(func(ctx context.Context, a *artifact.Artifact) (*artifact.Artifact, error) {
		calls++
		return a.Clone(), nil
	})
	proxy, _ := taskcache.New(task, taskcache.Config{Store: st})

	in := func() *artifact.Artifact { return artifact.New("a.txt", []byte("data")) }

	_, _ = proxy.ProcessFiles(ctx, in())
	_ = proxy.RemoveCachedResult(ctx, in())
	_, _ = proxy.ProcessFiles(ctx, in())

	fmt.Println("calls:", calls)
	// Output:
	// calls: 2
}

func ExampleConfig_valueProp() {
	ctx := context.Background()

	st, err := store.NewMemoryStore(1 << 20)
	if err != nil {
		panic(err)
	}
	defer st.Close()

	// A linter attaches its findings as a property; only that property is
	// cached and restored, contents stay live.
	task := taskcache.Map(func(ctx context.Context, a *artifact.Artifact) (*artifact.Artifact, error) {
		out := a.Clone()
		out.SetProp("issues", float64(0))
		return out, nil
	})
	proxy, _ := taskcache.New(task, taskcache.Config{
		Store:     st,
		Name:      "lint",
		ValueProp: "issues",
	})

	_, _ = proxy.ProcessFiles(ctx, artifact.New("main.go", []byte("package main")))
	outs, _ := proxy.ProcessFiles(ctx, artifact.New("main.go", []byte("package main")))

	issues, _ := outs[0].Prop("issues")
	fmt.Println("issues:", issues)
	fmt.Println("contents:", string(outs[0].Contents))
	// Output:
	// issues: 0
	// contents: package main
}
