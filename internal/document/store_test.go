package document

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("connection reset") }

func TestStore_SaveAndRemove(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "uploads")
	store, err := NewStore(dir)
	require.NoError(t, err)

	path, err := store.Save("abc-123", strings.NewReader("%PDF-1.4 fake"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "abc-123.pdf"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.4 fake", string(data))

	require.NoError(t, store.Remove("abc-123"))
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))

	// Removing twice is fine.
	require.NoError(t, store.Remove("abc-123"))
}

func TestStore_SaveFailureLeavesNothing(t *testing.T) {
	dir := t.TempDir()
	store, err := NewStore(dir)
	require.NoError(t, err)

	_, err = store.Save("broken", failingReader{})
	require.Error(t, err)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestStore_RejectsPathLikeIDs(t *testing.T) {
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)

	for _, id := range []string{"", "../escape", "a/b", `a\b`} {
		_, err := store.Save(id, strings.NewReader("x"))
		assert.ErrorIs(t, err, ErrInvalidID, "id %q", id)
	}
}
