package storage

import (
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalStorageSaveOpenDelete(t *testing.T) {
	store, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	name, err := store.Save("reports/a.csv", []byte("x,y"))
	require.NoError(t, err)
	assert.Equal(t, "reports/a.csv", name)

	f, err := store.Open(name)
	require.NoError(t, err)
	data, err := io.ReadAll(f)
	require.NoError(t, err)
	require.NoError(t, f.Close())
	assert.Equal(t, "x,y", string(data))

	require.NoError(t, store.Delete(name))
	_, err = store.Open(name)
	require.Error(t, err)
}

func TestLocalStorageResolveStaysInBase(t *testing.T) {
	base := t.TempDir()
	store, err := NewLocalStorage(base)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(base, "etc/passwd"), store.resolve("../../etc/passwd"))
}

func TestLocalStorageCleanupOlderThan(t *testing.T) {
	base := t.TempDir()
	store, err := NewLocalStorage(base)
	require.NoError(t, err)
	_, err = store.Save("old.pdf", []byte("old"))
	require.NoError(t, err)
	past := time.Now().Add(-2 * time.Hour)
	require.NoError(t, os.Chtimes(filepath.Join(base, "old.pdf"), past, past))
	_, err = store.Save("new.pdf", []byte("new"))
	require.NoError(t, err)

	deleted, err := store.CleanupOlderThan(time.Hour)
	require.NoError(t, err)
	assert.Equal(t, []string{"old.pdf"}, deleted)
}
