package main

import (
	"os"
	"path/filepath"
	"testing"
)

func TestYoutubeURL(t *testing.T) {
	if got := youtubeURL("dQw4w9WgXcQ"); got != "https://www.youtube.com/watch?v=dQw4w9WgXcQ" {
		t.Fatalf("bare id: got %q", got)
	}
	if got := youtubeURL("https://youtu.be/abc"); got != "https://youtu.be/abc" {
		t.Fatalf("full url should pass through, got %q", got)
	}
}

func TestExpandGlobs_DeduplicatesAndSorts(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"b.mkv", "a.mkv", "notes.txt"} {
		if err := os.WriteFile(filepath.Join(dir, name), nil, 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}

	got := expandGlobs([]string{
		filepath.Join(dir, "*.mkv"),
		filepath.Join(dir, "a.*"), // overlaps with the first pattern
	})

	want := []string{filepath.Join(dir, "a.mkv"), filepath.Join(dir, "b.mkv")}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
}

func TestExpandGlobs_NoMatches(t *testing.T) {
	if got := expandGlobs([]string{"/no/such/dir/*.mkv"}); len(got) != 0 {
		t.Fatalf("expected empty, got %v", got)
	}
}

func TestStringParams(t *testing.T) {
	if got := stringParams([]any{"a", "b"}); len(got) != 2 || got[0] != "a" {
		t.Fatalf("[]any: got %v", got)
	}
	if got := stringParams([]string{"x"}); len(got) != 1 || got[0] != "x" {
		t.Fatalf("[]string: got %v", got)
	}
	if got := stringParams(nil); got != nil {
		t.Fatalf("nil: got %v", got)
	}
	if got := stringParams("not-a-list"); got != nil {
		t.Fatalf("scalar: got %v", got)
	}
}

func TestIntField(t *testing.T) {
	data := map[string]any{"f": float64(4), "i": 7, "s": "9", "bad": "x"}

	if n, ok := intField(data, "f"); !ok || n != 4 {
		t.Fatalf("float64: got %d ok=%v", n, ok)
	}
	if n, ok := intField(data, "i"); !ok || n != 7 {
		t.Fatalf("int: got %d ok=%v", n, ok)
	}
	if n, ok := intField(data, "s"); !ok || n != 9 {
		t.Fatalf("string: got %d ok=%v", n, ok)
	}
	if _, ok := intField(data, "bad"); ok {
		t.Fatal("non-numeric string should not parse")
	}
	if _, ok := intField(data, "missing"); ok {
		t.Fatal("missing key should not parse")
	}
}
