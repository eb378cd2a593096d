package storage

import (
	"bytes"
	"io"
	"os"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLocalStorageRoundTrip(t *testing.T) {
	store, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	relPath := ContentPath("a1b2c3d4")
	payload := []byte("%PDF-1.4 hello")

	written, err := store.SaveStream(relPath, bytes.NewReader(payload))
	require.NoError(t, err)
	require.Equal(t, int64(len(payload)), written)

	file, err := store.Open(relPath)
	require.NoError(t, err)
	defer file.Close() //nolint:errcheck

	got, err := io.ReadAll(file)
	require.NoError(t, err)
	require.Equal(t, payload, got)

	require.NoError(t, store.Delete(relPath))
	_, err = store.Open(relPath)
	require.Error(t, err)

	// deleting again is harmless
	require.NoError(t, store.Delete(relPath))
}

func TestContentPathFanOut(t *testing.T) {
	require.Equal(t, "ab", string(ContentPath("abcdef")[0:2]))
	require.Contains(t, ContentPath("abcdef"), "abcdef.pdf")
	require.Equal(t, "00", string(ContentPath("x")[0:2]))
}

func TestLocalStorageDefaultsBaseDir(t *testing.T) {
	tmp := t.TempDir()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(tmp))
	t.Cleanup(func() { _ = os.Chdir(wd) })

	store, err := NewLocalStorage("")
	require.NoError(t, err)
	require.DirExists(t, store.Path(""))
}
