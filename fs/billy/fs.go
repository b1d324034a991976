// Package billy implements the scog Filesystem interface on top of go-billy,
// for both the host operating system and in-memory trees used in tests.
package billy

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/osfs"
	"github.com/go-git/go-billy/v5/util"

	parentfs "github.com/b1zzu/scog/fs"
)

// FS implements the Filesystem interface using go-billy.
type FS struct {
	fs billy.Filesystem

	// osRoot is the host directory backing fs, empty for non-OS filesystems.
	osRoot string
}

var _ parentfs.Filesystem = (*FS)(nil)

// wrap prefixes err with the operation and path, keeping it matchable with
// errors.Is. A nil err stays nil.
func wrap(op, name string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("billy: %s %q: %w", op, name, err)
}

// Chmod changes the mode of name. go-billy's osfs chroot does not expose
// Chmod, so OS-backed trees go straight to the host; in-memory trees that
// cannot change modes report ErrUnsupported.
func (b *FS) Chmod(name string, mode os.FileMode) error {
	if b.osRoot != "" {
		return wrap("chmod", name, os.Chmod(b.hostPath(name), mode))
	}

	ch, ok := b.fs.(billy.Change)
	if !ok {
		return wrap("chmod", name, parentfs.ErrUnsupported)
	}
	return wrap("chmod", name, ch.Chmod(name, mode))
}

// Exists reports whether path exists. A missing path is not an error.
func (b *FS) Exists(path string) (bool, error) {
	_, err := b.fs.Stat(path)
	switch {
	case err == nil:
		return true, nil
	case os.IsNotExist(err):
		return false, nil
	default:
		return false, wrap("stat", path, err)
	}
}

func (b *FS) Lstat(name string) (os.FileInfo, error) {
	info, err := b.fs.Lstat(name)
	return info, wrap("lstat", name, err)
}

func (b *FS) MkdirAll(path string, perm os.FileMode) error {
	return wrap("mkdirall", path, b.fs.MkdirAll(path, perm))
}

//nolint:ireturn // the Filesystem interface returns fs.File
func (b *FS) Open(name string) (parentfs.File, error) {
	return b.OpenFile(name, os.O_RDONLY, 0)
}

//nolint:ireturn // the Filesystem interface returns fs.File
func (b *FS) OpenFile(name string, flag int, perm os.FileMode) (parentfs.File, error) {
	f, err := b.fs.OpenFile(name, flag, perm)
	if err != nil {
		return nil, wrap("open", name, err)
	}
	return &File{file: f, fs: b}, nil
}

func (b *FS) ReadDir(dirname string) ([]os.FileInfo, error) {
	list, err := b.fs.ReadDir(dirname)
	return list, wrap("readdir", dirname, err)
}

func (b *FS) ReadFile(path string) ([]byte, error) {
	data, err := util.ReadFile(b.fs, path)
	return data, wrap("readfile", path, err)
}

func (b *FS) Remove(name string) error {
	return wrap("remove", name, b.fs.Remove(name))
}

// Root is the directory every path is resolved against.
func (b *FS) Root() string {
	return b.fs.Root()
}

func (b *FS) Stat(name string) (os.FileInfo, error) {
	info, err := b.fs.Stat(name)
	return info, wrap("stat", name, err)
}

// WriteFile replaces filename with data, creating parent directories.
func (b *FS) WriteFile(filename string, data []byte, perm os.FileMode) error {
	if dir := filepath.Dir(filename); dir != "." && dir != "/" {
		if err := b.fs.MkdirAll(dir, 0o755); err != nil {
			return wrap("mkdirall", dir, err)
		}
	}
	return wrap("writefile", filename, util.WriteFile(b.fs, filename, data, perm))
}

// Raw returns the underlying go-billy filesystem, for go-git storage and
// for tests that need billy-only features such as symlinks.
//
//nolint:ireturn // exposes the adapter target
func (b *FS) Raw() billy.Filesystem {
	return b.fs
}

func (b *FS) hostPath(name string) string {
	return filepath.Join(b.osRoot, name)
}

// NewFS wraps an existing go-billy filesystem.
func NewFS(fsys billy.Filesystem) *FS {
	return &FS{fs: fsys}
}

// NewInMemoryFS creates a new in-memory filesystem.
func NewInMemoryFS() *FS {
	return &FS{fs: memfs.New()}
}

// NewOSFS creates a new OS filesystem rooted at path.
func NewOSFS(path string) *FS {
	return &FS{
		fs:     osfs.New(path),
		osRoot: path,
	}
}
