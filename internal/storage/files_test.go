package storage

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"pdf-rag/internal/apperr"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStore(t *testing.T) *FileStore {
	t.Helper()
	s, err := NewFileStore(t.TempDir())
	require.NoError(t, err)
	return s
}

func TestSaveAndResolve(t *testing.T) {
	s := newStore(t)

	meta, err := s.SaveFile("user1", "resume.pdf", "application/pdf", strings.NewReader("%PDF-1.4 fake"))
	require.NoError(t, err)

	assert.Equal(t, "resume.pdf", meta.OriginalFilename)
	assert.Equal(t, int64(13), meta.Size)
	assert.Equal(t, "application/pdf", meta.MimeType)
	assert.True(t, strings.HasPrefix(meta.Path, "user1"+string(filepath.Separator)))
	assert.True(t, strings.HasSuffix(meta.Path, ".pdf"))

	abs, err := s.AbsolutePath(meta.Path)
	require.NoError(t, err)
	data, err := os.ReadFile(abs)
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.4 fake", string(data))
}

func TestAbsolutePathRejectsTraversal(t *testing.T) {
	s := newStore(t)

	for _, p := range []string{"../etc/passwd", "user1/../../etc/passwd", ".."} {
		_, err := s.AbsolutePath(p)
		require.Error(t, err, "path=%s", p)
		assert.True(t, apperr.IsNotFound(err), "path=%s", p)
	}
}

func TestAbsolutePathMissingFile(t *testing.T) {
	s := newStore(t)
	_, err := s.AbsolutePath("user1/nope.pdf")
	require.Error(t, err)
	assert.True(t, apperr.IsNotFound(err))
}

func TestDeleteFile(t *testing.T) {
	s := newStore(t)
	meta, err := s.SaveFile("user1", "a.pdf", "application/pdf", strings.NewReader("x"))
	require.NoError(t, err)

	assert.True(t, s.DeleteFile(meta.Path))
	assert.False(t, s.DeleteFile(meta.Path), "second delete reports false")
	assert.False(t, s.DeleteFile("../outside"))
}
