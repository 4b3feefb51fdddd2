package artifact

import (
	"bytes"
	"strings"
	"testing"
	"time"
)

func TestNew_RecordsHistory(t *testing.T) {
	a := New("src/app.js", []byte("let x = 1"))

	if a.Path != "src/app.js" {
		t.Errorf("unexpected path: %q", a.Path)
	}
	if len(a.History) != 1 || a.History[0] != "src/app.js" {
		t.Errorf("unexpected history: %v", a.History)
	}
}

func TestSetPath(t *testing.T) {
	a := New("in.txt", nil)

	a.SetPath("out.txt")
	if a.Path != "out.txt" {
		t.Errorf("unexpected path: %q", a.Path)
	}
	if len(a.History) != 2 {
		t.Errorf("expected 2 history entries, got %v", a.History)
	}

	// Setting the same path again is a no-op.
	a.SetPath("out.txt")
	if len(a.History) != 2 {
		t.Errorf("same-path SetPath should not grow history, got %v", a.History)
	}

	// Empty path is ignored.
	a.SetPath("")
	if a.Path != "out.txt" {
		t.Errorf("empty SetPath changed path to %q", a.Path)
	}
}

func TestProp_StructuralAndCustom(t *testing.T) {
	a := New("a.txt", []byte("abc"))
	a.Base = "/src"
	a.Cwd = "/repo"
	a.SetProp("checksum", "deadbeef")

	tests := []struct {
		name string
		want any
	}{
		{"path", "a.txt"},
		{"base", "/src"},
		{"cwd", "/repo"},
		{"checksum", "deadbeef"},
	}
	for _, tt := range tests {
		got, ok := a.Prop(tt.name)
		if !ok {
			t.Errorf("Prop(%q) missing", tt.name)
			continue
		}
		if got != tt.want {
			t.Errorf("Prop(%q) = %v, want %v", tt.name, got, tt.want)
		}
	}

	contents, ok := a.Prop("contents")
	if !ok || !bytes.Equal(contents.([]byte), []byte("abc")) {
		t.Errorf("Prop(contents) = %v, %v", contents, ok)
	}

	if _, ok := a.Prop("missing"); ok {
		t.Error("Prop(missing) should report absence")
	}
}

func TestClone_IsIndependent(t *testing.T) {
	a := New("a.txt", []byte("abc"))
	a.Stat = &Stat{Size: 3, ModTime: time.Unix(100, 0)}
	a.SetProp("k", "v")

	b := a.Clone()
	b.Contents[0] = 'X'
	b.SetProp("k", "other")
	b.Stat.Size = 99
	b.SetPath("b.txt")

	if string(a.Contents) != "abc" {
		t.Errorf("clone mutated original contents: %q", a.Contents)
	}
	if v, _ := a.Prop("k"); v != "v" {
		t.Errorf("clone mutated original props: %v", v)
	}
	if a.Stat.Size != 3 {
		t.Errorf("clone mutated original stat: %d", a.Stat.Size)
	}
	if a.Path != "a.txt" || len(a.History) != 1 {
		t.Errorf("clone mutated original path state: %q %v", a.Path, a.History)
	}
}

func TestIsStream(t *testing.T) {
	a := New("a.txt", []byte("abc"))
	if a.IsStream() {
		t.Error("buffered artifact reported as stream")
	}
	a.Stream = strings.NewReader("abc")
	if !a.IsStream() {
		t.Error("streamed artifact not reported as stream")
	}
}

func TestIsStructural(t *testing.T) {
	for _, name := range []string{"cwd", "base", "path", "stat", "history"} {
		if !IsStructural(name) {
			t.Errorf("%q should be structural", name)
		}
	}
	for _, name := range []string{"contents", "checksum", ""} {
		if IsStructural(name) {
			t.Errorf("%q should not be structural", name)
		}
	}
}
