package billy

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	parentfs "github.com/b1zzu/scog/fs"
)

func testWriteReadRemove(t *testing.T, fs parentfs.Filesystem) {
	t.Helper()
	p := "nested/dir/file.txt"

	require.NoError(t, fs.WriteFile(p, []byte("hello"), 0o644))

	info, err := fs.Stat("nested/dir")
	require.NoError(t, err)
	assert.True(t, info.IsDir(), "WriteFile should create parent directories")

	b, err := fs.ReadFile(p)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(b))

	ok, err := fs.Exists(p)
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, fs.Remove(p))

	ok, err = fs.Exists(p)
	require.NoError(t, err)
	assert.False(t, ok)
}

func testStreamCopy(t *testing.T, fs parentfs.Filesystem) {
	t.Helper()
	require.NoError(t, fs.WriteFile("src.txt", []byte("abc"), 0o644))

	in, err := fs.Open("src.txt")
	require.NoError(t, err)
	defer in.Close()

	info, err := in.Stat()
	require.NoError(t, err)
	assert.Equal(t, int64(3), info.Size())

	out, err := fs.OpenFile("dst.txt", os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	require.NoError(t, err)
	n, err := io.Copy(out, in)
	require.NoError(t, err, "io.EOF must not surface as an error")
	assert.Equal(t, int64(3), n)
	require.NoError(t, out.Close())

	got, err := fs.ReadFile("dst.txt")
	require.NoError(t, err)
	assert.Equal(t, "abc", string(got))
}

func testMissing(t *testing.T, fs parentfs.Filesystem) {
	t.Helper()

	_, err := fs.Open("missing.txt")
	require.Error(t, err)
	assert.True(t, parentfs.IsNotExist(err), "wrapped error should still report not-exist")
	assert.Contains(t, err.Error(), `billy: open "missing.txt"`)

	_, err = fs.ReadDir("missing")
	assert.True(t, parentfs.IsNotExist(err))
}

func testReadDir(t *testing.T, fs parentfs.Filesystem) {
	t.Helper()
	require.NoError(t, fs.MkdirAll("dir/sub", 0o755))
	require.NoError(t, fs.WriteFile("dir/a", []byte("a"), 0o644))

	entries, err := fs.ReadDir("dir")
	require.NoError(t, err)
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	assert.ElementsMatch(t, []string{"a", "sub"}, names)
}

func testLstatBrokenSymlink(t *testing.T, fs *FS) {
	t.Helper()
	require.NoError(t, fs.Raw().Symlink("nowhere", "dangling"))

	_, err := fs.Stat("dangling")
	require.Error(t, err)

	info, err := fs.Lstat("dangling")
	require.NoError(t, err)
	assert.NotZero(t, info.Mode()&os.ModeSymlink)
}

func runSuite(t *testing.T, fs *FS) {
	t.Helper()
	testWriteReadRemove(t, fs)
	testStreamCopy(t, fs)
	testMissing(t, fs)
	testReadDir(t, fs)
	testLstatBrokenSymlink(t, fs)
}

func TestInMemoryFS_Suite(t *testing.T) {
	runSuite(t, NewInMemoryFS())
}

func TestOSFS_Suite(t *testing.T) {
	runSuite(t, NewOSFS(t.TempDir()))
}

func TestOSFS_Chmod(t *testing.T) {
	root := t.TempDir()
	fs := NewOSFS(root)
	require.NoError(t, fs.WriteFile("script.sh", []byte("#!/bin/sh\n"), 0o644))

	require.NoError(t, fs.Chmod("script.sh", 0o755))

	info, err := os.Stat(filepath.Join(root, "script.sh"))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o755), info.Mode().Perm())
}

func TestInMemoryFS_ChmodUnsupported(t *testing.T) {
	fs := NewInMemoryFS()
	require.NoError(t, fs.WriteFile("f", []byte("x"), 0o600))

	err := fs.Chmod("f", 0o644)
	require.Error(t, err)
	assert.ErrorIs(t, err, parentfs.ErrUnsupported)
}

func TestNewHostFS(t *testing.T) {
	assert.Equal(t, "/", NewHostFS("/").Root())
	assert.Equal(t, "/", NewHostFS("").Root())

	root := t.TempDir()
	host := NewHostFS(root)
	assert.Equal(t, root, host.Root())

	require.NoError(t, host.WriteFile("/home/u/.bashrc", []byte("x"), 0o644))
	_, err := os.Stat(filepath.Join(root, "home/u/.bashrc"))
	require.NoError(t, err, "absolute paths must resolve inside the chroot")

	require.NoError(t, host.Chmod("/home/u/.bashrc", 0o600))
	info, err := os.Stat(filepath.Join(root, "home/u/.bashrc"))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}
