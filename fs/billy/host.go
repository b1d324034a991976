package billy

import (
	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/osfs"
)

// nativeOS is an osfs that passes paths through untouched, so absolute host
// paths such as /home/u/.bashrc resolve as-is.
type nativeOS struct {
	osfs.ChrootOS
}

//nolint:ireturn // signature is dictated by billy.Filesystem
func (*nativeOS) Chroot(path string) (billy.Filesystem, error) {
	return osfs.New(path), nil
}

func (*nativeOS) Root() string {
	return "/"
}

// NewBaseOSFS returns the native filesystem.
func NewBaseOSFS() *FS {
	return &FS{fs: &nativeOS{}, osRoot: "/"}
}

// NewHostFS returns the filesystem used to address tracked paths on the host.
// A root of "/" (or empty) maps to the native filesystem; any other root is
// a chroot, which lets tests stage a fake host tree in a temporary directory.
func NewHostFS(root string) *FS {
	if root == "" || root == "/" {
		return NewBaseOSFS()
	}
	return NewOSFS(root)
}
