package localfs

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestSaveOpenRemoveRoundTrip(t *testing.T) {
	storage, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("init storage: %v", err)
	}
	ctx := context.Background()

	if err := storage.Save(ctx, "user-1", "doc-1_a.pdf", strings.NewReader("%PDF-1.4")); err != nil {
		t.Fatalf("save: %v", err)
	}

	file, err := storage.Open(ctx, "user-1", "doc-1_a.pdf")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	content, err := io.ReadAll(file)
	file.Close()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(content) != "%PDF-1.4" {
		t.Fatalf("unexpected content %q", content)
	}

	if err := storage.Remove(ctx, "user-1", "doc-1_a.pdf"); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if _, err := storage.Open(ctx, "user-1", "doc-1_a.pdf"); err == nil {
		t.Fatalf("expected error after removal")
	}
}

func TestFilesAreIsolatedPerOwner(t *testing.T) {
	base := t.TempDir()
	storage, err := New(base)
	if err != nil {
		t.Fatalf("init storage: %v", err)
	}
	ctx := context.Background()

	if err := storage.Save(ctx, "user-1", "shared.pdf", strings.NewReader("first")); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := storage.Save(ctx, "user-2", "shared.pdf", strings.NewReader("second")); err != nil {
		t.Fatalf("save: %v", err)
	}

	if _, err := os.Stat(filepath.Join(base, "users", "user-1", "shared.pdf")); err != nil {
		t.Fatalf("owner path missing: %v", err)
	}

	file, err := storage.Open(ctx, "user-2", "shared.pdf")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	content, _ := io.ReadAll(file)
	file.Close()
	if string(content) != "second" {
		t.Fatalf("owners must not share files, got %q", content)
	}
}

func TestRemoveMissingFileIsNoError(t *testing.T) {
	storage, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("init storage: %v", err)
	}
	if err := storage.Remove(context.Background(), "user-1", "ghost.pdf"); err != nil {
		t.Fatalf("remove of a missing file must be idempotent: %v", err)
	}
}
