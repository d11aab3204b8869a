package generated

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"cv-tailor-backend/internal/shared/telemetry"
)

// ErrNotFound covers unknown, already-redeemed, and invalid filenames alike,
// so a caller cannot tell which case occurred.
var ErrNotFound = errors.New("artifact not found")

// Artifact is a rendered document awaiting its single download.
type Artifact struct {
	Filename    string
	Path        string
	ContentType string
	SizeBytes   int64
	CreatedAt   time.Time
}

// Store owns rendered artifacts between publish and redemption. Filenames
// carry a high-entropy component because no authentication gates downloads.
type Store struct {
	dir string

	mu      sync.Mutex
	entries map[string]Artifact
}

// NewStore creates a generated-artifact store rooted at dir.
func NewStore(dir string) *Store {
	return &Store{dir: dir, entries: make(map[string]Artifact)}
}

// Publish durably stores the artifact and returns its opaque filename.
// The file is written to a temporary path and renamed, so a half-written
// artifact is never redeemable.
func (s *Store) Publish(ctx context.Context, data []byte, contentType string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if len(data) == 0 {
		return "", errors.New("empty artifact")
	}

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", fmt.Errorf("generated mkdir: %w", err)
	}

	now := time.Now().UTC()
	filename := fmt.Sprintf("resume_%d_%s%s", now.UnixMilli(), uuid.NewString(), extensionFor(contentType))
	finalPath := filepath.Join(s.dir, filename)
	tmpPath := finalPath + ".tmp"

	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return "", fmt.Errorf("generated write: %w", err)
	}
	if err := os.Rename(tmpPath, finalPath); err != nil {
		_ = os.Remove(tmpPath)
		return "", fmt.Errorf("generated publish: %w", err)
	}

	s.mu.Lock()
	s.entries[filename] = Artifact{
		Filename:    filename,
		Path:        finalPath,
		ContentType: contentType,
		SizeBytes:   int64(len(data)),
		CreatedAt:   now,
	}
	s.mu.Unlock()

	return filename, nil
}

// FetchAndExpire redeems an artifact exactly once: the entry is removed as
// part of the same operation that returns its bytes, so a repeated download
// yields ErrNotFound rather than stale content.
func (s *Store) FetchAndExpire(ctx context.Context, filename string) ([]byte, string, error) {
	if err := ctx.Err(); err != nil {
		return nil, "", err
	}

	s.mu.Lock()
	artifact, ok := s.entries[filename]
	if ok {
		delete(s.entries, filename)
	}
	s.mu.Unlock()

	if !ok {
		return nil, "", ErrNotFound
	}

	data, err := os.ReadFile(artifact.Path)
	s.removeFile(artifact.Path)
	if err != nil {
		return nil, "", ErrNotFound
	}
	return data, artifact.ContentType, nil
}

// SweepOlderThan purges artifacts that were never redeemed within maxAge.
// It returns the number of artifacts removed.
func (s *Store) SweepOlderThan(ctx context.Context, maxAge time.Duration) int {
	if err := ctx.Err(); err != nil {
		return 0
	}
	cutoff := time.Now().UTC().Add(-maxAge)

	s.mu.Lock()
	var stale []Artifact
	for name, artifact := range s.entries {
		if artifact.CreatedAt.Before(cutoff) {
			stale = append(stale, artifact)
			delete(s.entries, name)
		}
	}
	s.mu.Unlock()

	for _, artifact := range stale {
		s.removeFile(artifact.Path)
	}
	if len(stale) > 0 {
		telemetry.Info("generated.sweep", map[string]any{"removed": len(stale)})
	}
	return len(stale)
}

// removeFile is idempotent: a file already gone is fine, anything else is a
// logged warning so cleanup never masks a primary result.
func (s *Store) removeFile(path string) {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		telemetry.Warn("generated.remove.failed", map[string]any{
			"path": path,
			"err":  err.Error(),
		})
	}
}

func extensionFor(contentType string) string {
	if contentType == "application/pdf" {
		return ".pdf"
	}
	return ".bin"
}
