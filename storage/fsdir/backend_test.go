package fsdir

import (
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/folio/storage"
)

func newBackend(t *testing.T) (storage.Backend, string) {
	t.Helper()
	root := t.TempDir()
	b, err := New(root)
	require.NoError(t, err)
	t.Cleanup(func() { b.Close() })
	return b, root
}

func TestNew_CreatesRoot(t *testing.T) {
	root := filepath.Join(t.TempDir(), "store")
	b, err := New(root)
	require.NoError(t, err)
	defer b.Close()

	info, err := os.Stat(root)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestNew_RootIsFile(t *testing.T) {
	file := filepath.Join(t.TempDir(), "f")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o644))

	_, err := New(file)
	require.Error(t, err)
}

func TestWriteReadRemove(t *testing.T) {
	b, root := newBackend(t)
	path := filepath.Join(root, "notes", "a")

	require.NoError(t, b.Write(path, []byte("hello")))

	data, err := b.Read(path)
	require.NoError(t, err)
	assert.Equal(t, []byte("hello"), data)

	ok, err := b.Exists(path)
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, b.Remove(path))

	ok, err = b.Exists(path)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRead_NotFoundCarriesPath(t *testing.T) {
	b, root := newBackend(t)
	path := filepath.Join(root, "missing")

	_, err := b.Read(path)
	require.Error(t, err)
	assert.True(t, storage.IsNotExist(err))

	var ioErr *storage.IOError
	require.ErrorAs(t, err, &ioErr)
	assert.Equal(t, path, ioErr.Path)
}

func TestRemove_NotFound(t *testing.T) {
	b, root := newBackend(t)
	err := b.Remove(filepath.Join(root, "missing"))
	require.Error(t, err)
	assert.True(t, storage.IsNotExist(err))
}

func TestWrite_Overwrites(t *testing.T) {
	b, root := newBackend(t)
	path := filepath.Join(root, "a")

	require.NoError(t, b.Write(path, []byte("one")))
	require.NoError(t, b.Write(path, []byte("two")))

	data, err := b.Read(path)
	require.NoError(t, err)
	assert.Equal(t, []byte("two"), data)

	// no temp files left behind
	entries, err := os.ReadDir(root)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestRename(t *testing.T) {
	b, root := newBackend(t)
	oldPath := filepath.Join(root, "a", "1")
	newPath := filepath.Join(root, "b", "1")

	require.NoError(t, b.Write(oldPath, []byte("x")))
	require.NoError(t, b.Rename(oldPath, newPath))

	data, err := b.Read(newPath)
	require.NoError(t, err)
	assert.Equal(t, []byte("x"), data)

	ok, err := b.Exists(oldPath)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestList_FilesOnly(t *testing.T) {
	b, root := newBackend(t)
	for _, p := range []string{"a/1", "a/2", "b/1"} {
		require.NoError(t, b.Write(filepath.Join(root, filepath.FromSlash(p)), []byte(p)))
	}
	// noise that must never be yielded
	require.NoError(t, os.WriteFile(filepath.Join(root, "a", ".hidden"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "a", "1.lock"), []byte("x"), 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "empty"), 0o755))

	var got []string
	err := b.List(root, func(path string) error {
		rel, err := filepath.Rel(root, path)
		require.NoError(t, err)
		got = append(got, filepath.ToSlash(rel))
		return nil
	})
	require.NoError(t, err)
	sort.Strings(got)
	assert.Equal(t, []string{"a/1", "a/2", "b/1"}, got)
}

func TestList_Subdirectory(t *testing.T) {
	b, root := newBackend(t)
	for _, p := range []string{"a/1", "a/2", "b/1"} {
		require.NoError(t, b.Write(filepath.Join(root, filepath.FromSlash(p)), []byte(p)))
	}

	var got []string
	err := b.List(filepath.Join(root, "a"), func(path string) error {
		got = append(got, path)
		return nil
	})
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestList_MissingPrefixIsEmpty(t *testing.T) {
	b, root := newBackend(t)
	err := b.List(filepath.Join(root, "nothing"), func(string) error {
		t.Fatal("must not be called")
		return nil
	})
	require.NoError(t, err)
}

func TestList_StopWalk(t *testing.T) {
	b, root := newBackend(t)
	for _, p := range []string{"a/1", "a/2", "a/3"} {
		require.NoError(t, b.Write(filepath.Join(root, filepath.FromSlash(p)), []byte(p)))
	}

	count := 0
	err := b.List(root, func(string) error {
		count++
		return storage.ErrStopWalk
	})
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestAdvisoryLock(t *testing.T) {
	b, root := newBackend(t)
	locker, ok := b.(storage.Locker)
	require.True(t, ok, "fsdir backend must implement storage.Locker")

	path := filepath.Join(root, "a", "1")
	require.NoError(t, b.Write(path, []byte("x")))

	require.NoError(t, locker.Lock(path))

	err := locker.Lock(path)
	require.Error(t, err)
	assert.ErrorIs(t, err, storage.ErrLocked)

	require.NoError(t, locker.Unlock(path))
	require.NoError(t, locker.Lock(path))
	require.NoError(t, locker.Unlock(path))

	// unlocking twice is fine
	require.NoError(t, locker.Unlock(path))
}
