package storage

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLocalStoreSave(t *testing.T) {
	dir := t.TempDir()
	s, err := NewLocalStore(filepath.Join(dir, "uploads"))
	if err != nil {
		t.Fatal(err)
	}
	url, err := s.Save(context.Background(), "a.png", "image/png", strings.NewReader("data"))
	if err != nil {
		t.Fatal(err)
	}
	if url != "/uploads/a.png" {
		t.Fatalf("url %q", url)
	}
	b, err := os.ReadFile(filepath.Join(dir, "uploads", "a.png"))
	if err != nil || string(b) != "data" {
		t.Fatalf("file: %q %v", b, err)
	}
	if _, err := s.Save(context.Background(), "a.png", "image/png", strings.NewReader("other")); err == nil {
		t.Fatal("existing file overwritten")
	}
}

func TestLocalStoreRejectsPaths(t *testing.T) {
	s, err := NewLocalStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	for _, name := range []string{"../x.png", "sub/x.png", ".."} {
		if _, err := s.Save(context.Background(), name, "image/png", strings.NewReader("x")); err == nil {
			t.Fatalf("%q accepted", name)
		}
	}
}
