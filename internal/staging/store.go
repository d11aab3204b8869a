package staging

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"cv-tailor-backend/internal/shared/telemetry"
	"cv-tailor-backend/internal/shared/util"
)

// ErrValidation indicates the upload was rejected before any processing.
var ErrValidation = errors.New("validation failed")

// SourceDocument is an uploaded document in temporary custody of the store.
type SourceDocument struct {
	Path         string
	MediaType    string
	OriginalName string
	SizeBytes    int64
	CreatedAt    time.Time
}

// Store keeps uploaded documents on disk for the duration of one request.
// Each document gets a unique path, so concurrent requests never contend.
type Store struct {
	baseDir  string
	accepted map[string]struct{}
	maxBytes int64
}

// NewStore creates a staging store rooted at baseDir. Uploads with a media
// type outside accepted, empty uploads, and uploads over maxBytes are
// rejected at Stage time.
func NewStore(baseDir string, accepted []string, maxBytes int64) *Store {
	set := make(map[string]struct{}, len(accepted))
	for _, mt := range accepted {
		if trimmed := strings.ToLower(strings.TrimSpace(mt)); trimmed != "" {
			set[trimmed] = struct{}{}
		}
	}
	return &Store{baseDir: baseDir, accepted: set, maxBytes: maxBytes}
}

// Stage validates the upload and writes it to a freshly named path.
func (s *Store) Stage(ctx context.Context, data []byte, declaredMediaType, originalName string) (SourceDocument, error) {
	if err := ctx.Err(); err != nil {
		return SourceDocument{}, err
	}
	if len(data) == 0 {
		return SourceDocument{}, fmt.Errorf("%w: empty file", ErrValidation)
	}
	if s.maxBytes > 0 && int64(len(data)) > s.maxBytes {
		return SourceDocument{}, fmt.Errorf("%w: file exceeds %d bytes", ErrValidation, s.maxBytes)
	}
	mediaType := normalizeMediaType(declaredMediaType)
	if _, ok := s.accepted[mediaType]; !ok {
		return SourceDocument{}, fmt.Errorf("%w: media type %q is not accepted", ErrValidation, declaredMediaType)
	}

	sanitized, err := util.SanitizeFileName(originalName)
	if err != nil {
		sanitized = "upload"
	}

	if err := os.MkdirAll(s.baseDir, 0o755); err != nil {
		return SourceDocument{}, fmt.Errorf("staging mkdir: %w", err)
	}

	now := time.Now().UTC()
	name := fmt.Sprintf("%d_%s_%s", now.UnixNano(), randomID(), sanitized)
	fullPath := filepath.Join(s.baseDir, name)
	if err := os.WriteFile(fullPath, data, 0o644); err != nil {
		return SourceDocument{}, fmt.Errorf("staging write: %w", err)
	}

	return SourceDocument{
		Path:         fullPath,
		MediaType:    mediaType,
		OriginalName: sanitized,
		SizeBytes:    int64(len(data)),
		CreatedAt:    now,
	}, nil
}

// Release deletes the backing file. It is idempotent: a missing file is
// success, and any other failure is logged rather than returned so cleanup
// can never mask the primary result of a request.
func (s *Store) Release(ctx context.Context, doc SourceDocument) {
	_ = ctx
	if doc.Path == "" {
		return
	}
	if err := os.Remove(doc.Path); err != nil && !errors.Is(err, os.ErrNotExist) {
		telemetry.Warn("staging.release.failed", map[string]any{
			"path": doc.Path,
			"err":  err.Error(),
		})
	}
}

func normalizeMediaType(raw string) string {
	return strings.ToLower(strings.TrimSpace(strings.Split(raw, ";")[0]))
}

func randomID() string {
	var b [8]byte
	if _, err := rand.Read(b[:]); err != nil {
		return fmt.Sprintf("%d", time.Now().UnixNano())
	}
	return hex.EncodeToString(b[:])
}
