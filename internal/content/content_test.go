package content

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
)

var pngHeader = []byte{0x89, 'P', 'N', 'G', 0x0d, 0x0a, 0x1a, 0x0a, 0, 0, 0, 0}

func TestNewAssetHashesBody(t *testing.T) {
	a, err := NewAsset("hello.txt", []byte("hello world"))
	if err != nil {
		t.Fatal(err)
	}
	if a.ID != HashBody([]byte("hello world")) {
		t.Fatalf("id %q does not match body hash", a.ID)
	}
	if len(a.ID) != 64 {
		t.Fatalf("id length = %d, want 64 hex chars", len(a.ID))
	}

	b, err := NewAsset("other-name.txt", []byte("hello world"))
	if err != nil {
		t.Fatal(err)
	}
	if a.ID != b.ID {
		t.Fatal("same body under different names produced different ids")
	}
}

func TestNewAssetContentType(t *testing.T) {
	tests := []struct {
		name string
		file string
		body []byte
		want string
	}{
		{"png by extension", "art.png", []byte("not really a png"), "image/png"},
		{"svg by extension", "art.svg", []byte("<svg/>"), "image/svg+xml"},
		{"json by extension", "meta.json", []byte(`{}`), "application/json"},
		{"sniffed png without extension", "art", pngHeader, "image/png"},
		{"sniffed text without extension", "readme", []byte("plain words"), "text/plain"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, err := NewAsset(tt.file, tt.body)
			if err != nil {
				t.Fatal(err)
			}
			if a.ContentType != tt.want {
				t.Fatalf("ContentType = %q, want %q", a.ContentType, tt.want)
			}
		})
	}
}

func TestNewAssetRejectsBadBodies(t *testing.T) {
	if _, err := NewAsset("empty.txt", nil); err == nil {
		t.Fatal("expected error for empty body")
	}
	big := make([]byte, MaxAssetBytes+1)
	if _, err := NewAsset("big.bin", big); err == nil {
		t.Fatal("expected error for oversized body")
	}
	if _, err := NewAsset("max.bin", make([]byte, MaxAssetBytes)); err != nil {
		t.Fatalf("body at the limit should be accepted: %v", err)
	}
}

func TestDirSource(t *testing.T) {
	dir := t.TempDir()
	files := map[string][]byte{
		"b.txt":   []byte("second"),
		"a.png":   pngHeader,
		".hidden": []byte("skip me"),
	}
	for name, body := range files {
		if err := os.WriteFile(filepath.Join(dir, name), body, 0o600); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.Mkdir(filepath.Join(dir, "sub"), 0o700); err != nil {
		t.Fatal(err)
	}

	src, err := NewDirSource(dir)
	if err != nil {
		t.Fatal(err)
	}

	names, err := src.List()
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"a.png", "b.txt"}
	if len(names) != len(want) {
		t.Fatalf("List() = %v, want %v", names, want)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Fatalf("List() = %v, want %v", names, want)
		}
	}

	a, err := src.Load("a.png")
	if err != nil {
		t.Fatal(err)
	}
	if a.ContentType != "image/png" {
		t.Fatalf("ContentType = %q, want image/png", a.ContentType)
	}
	if !bytes.Equal(a.Body, pngHeader) {
		t.Fatal("loaded body does not match file contents")
	}
}

func TestDirSourceRejectsTraversal(t *testing.T) {
	src, err := NewDirSource(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	for _, name := range []string{"", "../escape", "sub/child"} {
		if _, err := src.Load(name); err == nil {
			t.Fatalf("Load(%q) should have been rejected", name)
		}
	}
}

func TestNewDirSourceRejectsNonDirectory(t *testing.T) {
	file := filepath.Join(t.TempDir(), "plain")
	if err := os.WriteFile(file, []byte("x"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := NewDirSource(file); err == nil {
		t.Fatal("expected error for non-directory source")
	}
	if _, err := NewDirSource(filepath.Join(file, "missing")); err == nil {
		t.Fatal("expected error for missing directory")
	}
}
