package taskcache

import (
	"context"
	"crypto/md5"
	"encoding/base64"
	"encoding/hex"
	"strings"
	"testing"

	"github.com/jonwraymond/pipecache/artifact"
)

func TestDefaultKey_Deterministic(t *testing.T) {
	key := DefaultKey("v1")
	ctx := context.Background()

	in := []*artifact.Artifact{artifact.New("a.txt", []byte("abc"))}

	k1, err := key(ctx, in)
	if err != nil {
		t.Fatalf("key failed: %v", err)
	}
	k2, err := key(ctx, []*artifact.Artifact{artifact.New("b.txt", []byte("abc"))})
	if err != nil {
		t.Fatalf("key failed: %v", err)
	}
	if k1 != k2 {
		t.Errorf("identical content produced different keys: %q vs %q", k1, k2)
	}
	if len(k1) != 32 {
		t.Errorf("expected 32 hex chars, got %d: %q", len(k1), k1)
	}
}

func TestDefaultKey_MatchesDocumentedDerivation(t *testing.T) {
	// key = hex(md5(version ++ base64(contents)))
	sum := md5.Sum([]byte("v1" + base64.StdEncoding.EncodeToString([]byte("abc"))))
	want := hex.EncodeToString(sum[:])

	got, err := DefaultKey("v1")(context.Background(), []*artifact.Artifact{
		artifact.New("a.txt", []byte("abc")),
	})
	if err != nil {
		t.Fatalf("key failed: %v", err)
	}
	if got != want {
		t.Errorf("key = %q, want %q", got, want)
	}
}

func TestDefaultKey_ContentSensitivity(t *testing.T) {
	key := DefaultKey("v1")
	ctx := context.Background()

	k1, _ := key(ctx, []*artifact.Artifact{artifact.New("a", []byte("abc"))})
	k2, _ := key(ctx, []*artifact.Artifact{artifact.New("a", []byte("abd"))})
	if k1 == k2 {
		t.Error("one-byte content change did not change the key")
	}

	k3, _ := DefaultKey("v2")(ctx, []*artifact.Artifact{artifact.New("a", []byte("abc"))})
	if k1 == k3 {
		t.Error("version change did not change the key")
	}
}

func TestDefaultKey_BatchOrderMatters(t *testing.T) {
	key := DefaultKey("v1")
	ctx := context.Background()

	a := artifact.New("a", []byte("aaa"))
	b := artifact.New("b", []byte("bbb"))

	k1, _ := key(ctx, []*artifact.Artifact{a, b})
	k2, _ := key(ctx, []*artifact.Artifact{b, a})
	if k1 == k2 {
		t.Error("batch order should contribute to the key")
	}
}

func TestDefaultKey_RejectsStreams(t *testing.T) {
	in := artifact.New("a.txt", nil)
	in.Stream = strings.NewReader("abc")

	_, err := DefaultKey("v1")(context.Background(), []*artifact.Artifact{in})
	if err != ErrStreamedContent {
		t.Errorf("expected ErrStreamedContent, got %v", err)
	}
}

func TestKeyFromProps(t *testing.T) {
	ctx := context.Background()
	key := KeyFromProps("v1", "lang", "target")

	mk := func(lang, target string) *artifact.Artifact {
		a := artifact.New("x", []byte("ignored"))
		a.SetProp("lang", lang)
		a.SetProp("target", target)
		return a
	}

	k1, err := key(ctx, []*artifact.Artifact{mk("go", "amd64")})
	if err != nil {
		t.Fatalf("key failed: %v", err)
	}
	k2, _ := key(ctx, []*artifact.Artifact{mk("go", "amd64")})
	if k1 != k2 {
		t.Error("identical props produced different keys")
	}

	k3, _ := key(ctx, []*artifact.Artifact{mk("go", "arm64")})
	if k1 == k3 {
		t.Error("changed prop did not change the key")
	}

	// Contents are deliberately excluded.
	other := mk("go", "amd64")
	other.Contents = []byte("different")
	k4, _ := key(ctx, []*artifact.Artifact{other})
	if k1 != k4 {
		t.Error("contents should not contribute to a props-based key")
	}
}
