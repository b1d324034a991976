// Package mirror copies tracked host paths into a working copy and back.
//
// A tracked path is an absolute host path. Inside the working copy it lives
// at the same path with the leading separator removed, so /home/u/.bashrc is
// mirrored to home/u/.bashrc. Copies are whole-file and unconditional.
package mirror

import (
	"context"
	"errors"
	"io"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rs/zerolog"

	scogerr "github.com/b1zzu/scog/errors"
	"github.com/b1zzu/scog/fs"
)

// gitDir is never written by the mirror.
const gitDir = ".git"

// Mirror copies between the host filesystem and a working copy.
type Mirror struct {
	host fs.Filesystem
	repo fs.Filesystem
	log  zerolog.Logger
}

// Option configures a Mirror.
type Option func(*Mirror)

// WithLogger sets the logger used for per-file debug output.
func WithLogger(l zerolog.Logger) Option {
	return func(m *Mirror) {
		m.log = l
	}
}

// New returns a Mirror between host, which must resolve absolute host
// paths, and repo, which must be rooted at the working copy.
func New(host, repo fs.Filesystem, opts ...Option) *Mirror {
	m := &Mirror{
		host: host,
		repo: repo,
		log:  zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// RepoPath returns the slash separated working copy path of a tracked host path.
func RepoPath(tracked string) string {
	return strings.TrimLeft(filepath.ToSlash(filepath.Clean(tracked)), "/")
}

// CopyToRepo copies every tracked host path into the working copy and returns
// the repository-relative paths of the files written, in walk order.
// Tracked paths missing on the host are skipped.
func (m *Mirror) CopyToRepo(ctx context.Context, tracked []string) ([]string, error) {
	var copied []string
	for _, t := range tracked {
		rel, err := repoPath(t)
		if err != nil {
			return copied, err
		}

		c := copier{src: m.host, dst: m.repo, log: m.log}
		err = c.copy(ctx, filepath.Clean(t), rel, rel, &copied)
		if err != nil {
			return copied, err
		}
	}
	return copied, nil
}

// CopyToHost copies every tracked path from the working copy back to the host.
// Tracked paths missing from the working copy are skipped.
func (m *Mirror) CopyToHost(ctx context.Context, tracked []string) error {
	var copied []string
	for _, t := range tracked {
		rel, err := repoPath(t)
		if err != nil {
			return err
		}

		c := copier{src: m.repo, dst: m.host, log: m.log}
		if err := c.copy(ctx, rel, filepath.Clean(t), rel, &copied); err != nil {
			return err
		}
	}
	return nil
}

// repoPath validates a tracked path and maps it into the working copy.
func repoPath(tracked string) (string, error) {
	if !filepath.IsAbs(tracked) {
		return "", scogerr.NewWithContext(scogerr.CodeInvalidInput, "tracked path must be absolute",
			map[string]interface{}{"path": tracked})
	}

	rel := RepoPath(tracked)
	if rel == "" {
		return "", scogerr.NewWithContext(scogerr.CodeInvalidInput, "tracked path cannot be the filesystem root",
			map[string]interface{}{"path": tracked})
	}
	if first, _, _ := strings.Cut(rel, "/"); first == gitDir {
		return "", scogerr.NewWithContext(scogerr.CodeInvalidInput, "tracked path maps into the repository's .git directory",
			map[string]interface{}{"path": tracked})
	}
	return rel, nil
}

// copier copies one direction. rel is the repository-relative name of the
// current entry and is what gets reported as copied.
type copier struct {
	src fs.Filesystem
	dst fs.Filesystem
	log zerolog.Logger
}

func (c copier) copy(ctx context.Context, src, dst, rel string, copied *[]string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	info, err := c.src.Stat(src)
	if err != nil {
		if !fs.IsNotExist(err) {
			return copyErr(err, "failed to stat source", src, dst)
		}
		// Stat follows symlinks; a link that still exists is dangling.
		if _, lerr := c.src.Lstat(src); lerr == nil {
			return scogerr.NewWithContext(scogerr.CodeNotAFileOrDir, "source is a dangling symlink",
				map[string]interface{}{"source": src})
		}
		c.log.Debug().Str("source", src).Msg("skipping missing path")
		return nil
	}

	switch {
	case info.Mode().IsRegular():
		if err := c.copyFile(src, dst, info.Mode().Perm()); err != nil {
			return err
		}
		*copied = append(*copied, rel)
		return nil
	case info.IsDir():
		return c.copyDir(ctx, src, dst, rel, copied)
	default:
		return scogerr.NewWithContext(scogerr.CodeNotAFileOrDir, "source is neither a file nor a directory",
			map[string]interface{}{"source": src, "mode": info.Mode().String()})
	}
}

func (c copier) copyDir(ctx context.Context, src, dst, rel string, copied *[]string) error {
	if info, err := c.dst.Stat(dst); err == nil && !info.IsDir() {
		return scogerr.NewWithContext(scogerr.CodeDestinationConflict, "source is a directory but destination is not",
			map[string]interface{}{"source": src, "destination": dst})
	}

	entries, err := c.src.ReadDir(src)
	if err != nil {
		return copyErr(err, "failed to read directory", src, dst)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	for _, e := range entries {
		name := e.Name()
		if err := c.copy(ctx, joinLike(src, name), joinLike(dst, name), path.Join(rel, name), copied); err != nil {
			return err
		}
	}
	return nil
}

func (c copier) copyFile(src, dst string, perm os.FileMode) error {
	if info, err := c.dst.Stat(dst); err == nil && info.IsDir() {
		return scogerr.NewWithContext(scogerr.CodeDestinationConflict, "source is a file but destination is a directory",
			map[string]interface{}{"source": src, "destination": dst})
	}

	if parent := dirLike(dst); parent != "" {
		if err := c.dst.MkdirAll(parent, 0o755); err != nil {
			return copyErr(err, "failed to create destination directory", src, dst)
		}
	}

	in, err := c.src.Open(src)
	if err != nil {
		return copyErr(err, "failed to open source", src, dst)
	}
	defer in.Close()

	out, err := c.dst.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, perm)
	if err != nil {
		return copyErr(err, "failed to open destination", src, dst)
	}

	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return copyErr(err, "failed to copy contents", src, dst)
	}
	if err := out.Close(); err != nil {
		return copyErr(err, "failed to close destination", src, dst)
	}

	// OpenFile only applies perm to new files.
	if err := c.dst.Chmod(dst, perm); err != nil && !errors.Is(err, fs.ErrUnsupported) {
		return copyErr(err, "failed to set permissions", src, dst)
	}

	c.log.Debug().Str("source", src).Str("destination", dst).Msg("copied")
	return nil
}

// joinLike joins with the separator style of base: host paths use the OS
// separator, working copy paths use slashes.
func joinLike(base, name string) string {
	if filepath.IsAbs(base) {
		return filepath.Join(base, name)
	}
	return path.Join(base, name)
}

func dirLike(p string) string {
	var d string
	if filepath.IsAbs(p) {
		d = filepath.Dir(p)
	} else {
		d = path.Dir(p)
	}
	if d == "." {
		return ""
	}
	return d
}

func copyErr(err error, msg, src, dst string) error {
	return scogerr.WrapWithContext(err, scogerr.CodeCopyFailed, msg,
		map[string]interface{}{"source": src, "destination": dst})
}
