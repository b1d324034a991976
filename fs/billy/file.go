package billy

import (
	"errors"
	"io"
	"io/fs"

	"github.com/go-git/go-billy/v5"
)

// File adapts a go-billy file to fs.File.
type File struct {
	file billy.File
	fs   *FS
}

func (f *File) Close() error {
	return wrap("close", f.file.Name(), f.file.Close())
}

func (f *File) Name() string {
	return f.file.Name()
}

// Read passes io.EOF through unwrapped so io.Copy and friends see it.
func (f *File) Read(p []byte) (int, error) {
	n, err := f.file.Read(p)
	if errors.Is(err, io.EOF) {
		return n, io.EOF
	}
	return n, wrap("read", f.file.Name(), err)
}

// Stat goes through the owning filesystem, since go-billy files carry no
// metadata of their own.
func (f *File) Stat() (fs.FileInfo, error) {
	return f.fs.Stat(f.file.Name())
}

func (f *File) Write(p []byte) (int, error) {
	n, err := f.file.Write(p)
	return n, wrap("write", f.file.Name(), err)
}
