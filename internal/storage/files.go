// Package storage manages the on-disk upload area: one directory per user,
// uuid file names, and path-traversal-guarded reads.
package storage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"pdf-rag/internal/apperr"

	"github.com/google/uuid"
)

// FileMeta describes a saved upload.
type FileMeta struct {
	Path             string // relative to the upload root, stored in the DB
	OriginalFilename string
	Size             int64
	MimeType         string
}

// FileStore saves and serves uploaded files under a single root directory.
type FileStore struct {
	root string
}

// NewFileStore creates the upload root if needed.
func NewFileStore(root string) (*FileStore, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve upload dir: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create upload dir: %w", err)
	}
	return &FileStore{root: abs}, nil
}

// SaveFile streams r to disk under the user's directory and returns the
// stored file's metadata. The on-disk name is a fresh uuid so originals can
// never collide or traverse.
func (s *FileStore) SaveFile(userID, originalFilename, mimeType string, r io.Reader) (*FileMeta, error) {
	userDir := filepath.Join(s.root, userID)
	if err := os.MkdirAll(userDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create user dir: %w", err)
	}

	storedName := uuid.New().String() + filepath.Ext(originalFilename)
	absPath := filepath.Join(userDir, storedName)

	f, err := os.Create(absPath)
	if err != nil {
		return nil, fmt.Errorf("failed to create file: %w", err)
	}

	size, err := io.Copy(f, r)
	closeErr := f.Close()
	if err == nil {
		err = closeErr
	}
	if err != nil {
		// Clean up the partial file.
		os.Remove(absPath)
		return nil, fmt.Errorf("failed to write file: %w", err)
	}

	return &FileMeta{
		Path:             filepath.Join(userID, storedName),
		OriginalFilename: originalFilename,
		Size:             size,
		MimeType:         mimeType,
	}, nil
}

// AbsolutePath resolves a stored relative path, rejecting anything that
// escapes the upload root or does not exist.
func (s *FileStore) AbsolutePath(relativePath string) (string, error) {
	full, err := filepath.Abs(filepath.Join(s.root, relativePath))
	if err != nil {
		return "", apperr.NotFound("file", relativePath)
	}

	if full != s.root && !strings.HasPrefix(full, s.root+string(filepath.Separator)) {
		return "", apperr.NotFound("file", relativePath)
	}

	info, err := os.Stat(full)
	if err != nil || info.IsDir() {
		return "", apperr.NotFound("file", relativePath)
	}

	return full, nil
}

// DeleteFile removes a stored file. Returns false when the file was already
// gone or the path was invalid; deletion is best-effort on document removal.
func (s *FileStore) DeleteFile(relativePath string) bool {
	full, err := s.AbsolutePath(relativePath)
	if err != nil {
		return false
	}
	return os.Remove(full) == nil
}
