// Package fsbridge adapts scog's fs.Filesystem to the go-billy filesystems
// and storage go-git keeps repositories in.
package fsbridge

import (
	"fmt"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-git/v5/plumbing/cache"
	"github.com/go-git/go-git/v5/storage/filesystem"

	"github.com/b1zzu/scog/fs"
	fsb "github.com/b1zzu/scog/fs/billy"
)

// MinCacheSize is the smallest object cache Split will build.
const MinCacheSize = 100

// Layout is a working copy split into go-git's two halves.
type Layout struct {
	// Worktree is nil for bare repositories.
	Worktree billy.Filesystem
	Storage  *filesystem.Storage
}

// ToBillyFilesystem unwraps fsys, which must come from the fs/billy package.
//
//nolint:ireturn // go-git consumes billy.Filesystem
func ToBillyFilesystem(fsys fs.Filesystem) (billy.Filesystem, error) {
	billyFS, ok := fsys.(*fsb.FS)
	if !ok {
		return nil, fmt.Errorf("filesystem must be a billy.FS from fs/billy package, got %T", fsys)
	}
	return billyFS.Raw(), nil
}

// Split locates the working copy at workdir inside fsys. Storage lives in
// workdir/.git, or in workdir itself when bare. The object cache holds at
// least MinCacheSize entries.
func Split(fsys fs.Filesystem, workdir string, bare bool, cacheSize int) (*Layout, error) {
	root, err := ToBillyFilesystem(fsys)
	if err != nil {
		return nil, err
	}

	scoped, err := root.Chroot(workdir)
	if err != nil {
		return nil, fmt.Errorf("failed to chroot to workdir %q: %w", workdir, err)
	}

	l := &Layout{}
	dotGit := scoped
	if !bare {
		l.Worktree = scoped
		if dotGit, err = scoped.Chroot(".git"); err != nil {
			return nil, fmt.Errorf("failed to access .git directory: %w", err)
		}
	}

	if cacheSize < MinCacheSize {
		cacheSize = MinCacheSize
	}
	l.Storage = filesystem.NewStorage(dotGit, cache.NewObjectLRU(cache.FileSize(cacheSize)))
	return l, nil
}
