// Package fs defines the filesystem abstraction shared by the mirror and the
// version-control backends. Concrete implementations live in subpackages.
package fs

import (
	"errors"
	"io"
	"io/fs"
	"os"
)

// ErrUnsupported is returned by implementations that cannot perform an operation.
var ErrUnsupported = errors.New("operation not supported")

// File is an open file handle. The mirror only streams whole files, so no
// seeking is exposed.
type File interface {
	io.ReadWriteCloser
	Name() string
	Stat() (fs.FileInfo, error)
}

// Filesystem is the set of filesystem operations scog relies on.
// Paths are interpreted relative to the implementation's root; absolute
// paths resolve inside it.
type Filesystem interface {
	Chmod(name string, mode os.FileMode) error
	Exists(path string) (bool, error)
	Lstat(name string) (fs.FileInfo, error)
	MkdirAll(path string, perm os.FileMode) error
	Open(name string) (File, error)
	OpenFile(name string, flag int, perm os.FileMode) (File, error)
	ReadDir(dirname string) ([]fs.FileInfo, error)
	ReadFile(path string) ([]byte, error)
	Remove(name string) error
	Root() string
	Stat(name string) (fs.FileInfo, error)
	WriteFile(filename string, data []byte, perm os.FileMode) error
}

// IsNotExist reports whether err, possibly wrapped, means a path is missing.
func IsNotExist(err error) bool {
	return errors.Is(err, fs.ErrNotExist)
}
