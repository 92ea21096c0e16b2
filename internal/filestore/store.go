// Package filestore keeps uploaded attachments and hands back their public URLs.
package filestore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"gitlab.com/timkado/api/daisi-chat-delivery/internal/apperrors"
	"gitlab.com/timkado/api/daisi-chat-delivery/pkg/logger"
)

// ErrTooLarge is returned when an upload exceeds the configured limit.
var ErrTooLarge = errors.New("file exceeds upload limit")

// Meta describes an incoming upload.
type Meta struct {
	Name        string
	ContentType string
}

// Blob is a stored upload.
type Blob struct {
	ID   string `json:"fileId"`
	URL  string `json:"url"`
	Size int64  `json:"size"`
}

// Store persists blobs and resolves their public URL.
type Store interface {
	StoreBlob(ctx context.Context, r io.Reader, meta Meta) (Blob, error)
	ResolveURL(ctx context.Context, id string) (string, error)
}

// LocalStore writes blobs under a base directory; the same directory is expected to be
// served at publicBaseURL.
type LocalStore struct {
	baseDir       string
	publicBaseURL string
	maxSize       int64
}

// NewLocalStore creates the base directory when missing.
func NewLocalStore(baseDir, publicBaseURL string, maxSize int64) (*LocalStore, error) {
	if baseDir == "" {
		return nil, fmt.Errorf("file storage base dir is empty")
	}
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("%w: create %s: %w", apperrors.ErrDependencyDegraded, baseDir, err)
	}
	return &LocalStore{
		baseDir:       baseDir,
		publicBaseURL: strings.TrimRight(publicBaseURL, "/"),
		maxSize:       maxSize,
	}, nil
}

// BaseDir is the directory blobs are written to.
func (s *LocalStore) BaseDir() string {
	return s.baseDir
}

// StoreBlob copies r into a new file named by a random id that keeps the original extension.
func (s *LocalStore) StoreBlob(ctx context.Context, r io.Reader, meta Meta) (Blob, error) {
	id := uuid.NewString() + strings.ToLower(filepath.Ext(meta.Name))

	tmp, err := os.CreateTemp(s.baseDir, ".upload-*")
	if err != nil {
		return Blob{}, fmt.Errorf("%w: create temp file: %w", apperrors.ErrDependencyDegraded, err)
	}
	defer os.Remove(tmp.Name())

	src := r
	if s.maxSize > 0 {
		src = io.LimitReader(r, s.maxSize+1)
	}
	n, err := io.Copy(tmp, src)
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return Blob{}, fmt.Errorf("%w: write blob: %w", apperrors.ErrDependencyDegraded, err)
	}
	if s.maxSize > 0 && n > s.maxSize {
		return Blob{}, fmt.Errorf("%w: %w", apperrors.ErrValidation, ErrTooLarge)
	}

	if err := os.Rename(tmp.Name(), filepath.Join(s.baseDir, id)); err != nil {
		return Blob{}, fmt.Errorf("%w: move blob: %w", apperrors.ErrDependencyDegraded, err)
	}

	logger.FromContext(ctx).Debug("Blob stored",
		zap.String("file_id", id),
		zap.String("origin_name", meta.Name),
		zap.Int64("size", n))
	return Blob{ID: id, URL: s.publicURL(id), Size: n}, nil
}

// ResolveURL returns the public URL of a stored blob.
func (s *LocalStore) ResolveURL(_ context.Context, id string) (string, error) {
	if id == "" || id != filepath.Base(id) || strings.HasPrefix(id, ".") {
		return "", fmt.Errorf("%w: invalid file id %q", apperrors.ErrValidation, id)
	}
	if _, err := os.Stat(filepath.Join(s.baseDir, id)); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("file %s: %w", id, apperrors.ErrNotFound)
		}
		return "", fmt.Errorf("%w: stat %s: %w", apperrors.ErrDependencyDegraded, id, err)
	}
	return s.publicURL(id), nil
}

func (s *LocalStore) publicURL(id string) string {
	return s.publicBaseURL + "/" + id
}
