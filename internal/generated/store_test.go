package generated

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"
)

func TestPublishAndFetchOnce(t *testing.T) {
	store := NewStore(t.TempDir())
	ctx := context.Background()

	filename, err := store.Publish(ctx, []byte("%PDF-1.4 artifact"), "application/pdf")
	if err != nil {
		t.Fatalf("publish: %v", err)
	}
	if filename == "" {
		t.Fatalf("expected a filename")
	}

	data, contentType, err := store.FetchAndExpire(ctx, filename)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if string(data) != "%PDF-1.4 artifact" {
		t.Fatalf("unexpected content %q", data)
	}
	if contentType != "application/pdf" {
		t.Fatalf("unexpected content type %s", contentType)
	}

	// Second redemption of the same filename must fail identically to an
	// unknown filename.
	if _, _, err := store.FetchAndExpire(ctx, filename); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound on second fetch, got %v", err)
	}
}

func TestFetchUnknownFilename(t *testing.T) {
	store := NewStore(t.TempDir())
	for _, name := range []string{"does-not-exist.pdf", "../escape.pdf", ""} {
		if _, _, err := store.FetchAndExpire(context.Background(), name); !errors.Is(err, ErrNotFound) {
			t.Fatalf("expected ErrNotFound for %q, got %v", name, err)
		}
	}
}

func TestFetchRemovesBackingFile(t *testing.T) {
	dir := t.TempDir()
	store := NewStore(dir)
	ctx := context.Background()

	filename, err := store.Publish(ctx, []byte("%PDF"), "application/pdf")
	if err != nil {
		t.Fatalf("publish: %v", err)
	}
	if _, _, err := store.FetchAndExpire(ctx, filename); err != nil {
		t.Fatalf("fetch: %v", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("expected empty dir after redemption, found %d entries", len(entries))
	}
}

func TestFilenamesAreUnique(t *testing.T) {
	store := NewStore(t.TempDir())
	ctx := context.Background()

	seen := make(map[string]struct{})
	for i := 0; i < 20; i++ {
		filename, err := store.Publish(ctx, []byte("%PDF"), "application/pdf")
		if err != nil {
			t.Fatalf("publish %d: %v", i, err)
		}
		if _, dup := seen[filename]; dup {
			t.Fatalf("duplicate filename %s", filename)
		}
		seen[filename] = struct{}{}
	}
}

func TestPublishRejectsEmptyArtifact(t *testing.T) {
	store := NewStore(t.TempDir())
	if _, err := store.Publish(context.Background(), nil, "application/pdf"); err == nil {
		t.Fatalf("expected error for empty artifact")
	}
}

func TestPublishLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	store := NewStore(dir)

	if _, err := store.Publish(context.Background(), []byte("%PDF"), "application/pdf"); err != nil {
		t.Fatalf("publish: %v", err)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	for _, entry := range entries {
		if ext := entry.Name()[len(entry.Name())-4:]; ext == ".tmp" {
			t.Fatalf("temp file left behind: %s", entry.Name())
		}
	}
}

func TestSweepOlderThan(t *testing.T) {
	dir := t.TempDir()
	store := NewStore(dir)
	ctx := context.Background()

	oldName, err := store.Publish(ctx, []byte("%PDF old"), "application/pdf")
	if err != nil {
		t.Fatalf("publish: %v", err)
	}
	// Age the entry past the cutoff.
	store.mu.Lock()
	artifact := store.entries[oldName]
	artifact.CreatedAt = artifact.CreatedAt.Add(-2 * time.Hour)
	store.entries[oldName] = artifact
	store.mu.Unlock()

	freshName, err := store.Publish(ctx, []byte("%PDF fresh"), "application/pdf")
	if err != nil {
		t.Fatalf("publish: %v", err)
	}

	if removed := store.SweepOlderThan(ctx, time.Hour); removed != 1 {
		t.Fatalf("expected 1 removed, got %d", removed)
	}

	if _, _, err := store.FetchAndExpire(ctx, oldName); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected swept artifact gone, got %v", err)
	}
	if _, _, err := store.FetchAndExpire(ctx, freshName); err != nil {
		t.Fatalf("fresh artifact should survive sweep: %v", err)
	}
}
