// Package lock serializes scog invocations against one working copy with an
// advisory file lock.
package lock

import (
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
	"github.com/rs/zerolog"

	scogerr "github.com/b1zzu/scog/errors"
)

// Lock is an exclusive lock held by this process.
type Lock struct {
	fl  *flock.Flock
	log zerolog.Logger
}

// Acquire takes the lock at path without blocking. It fails with a LOCKED
// error when another process holds it.
func Acquire(path string, log zerolog.Logger) (*Lock, error) {
	if path == "" {
		return nil, scogerr.New(scogerr.CodeInvalidInput, "lock path is required")
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, scogerr.WrapWithContext(err, scogerr.CodeInternal, "failed to create lock directory",
			map[string]interface{}{"path": path})
	}

	fl := flock.New(path)
	ok, err := fl.TryLock()
	if err != nil {
		return nil, scogerr.WrapWithContext(err, scogerr.CodeInternal, "failed to acquire lock",
			map[string]interface{}{"path": path})
	}
	if !ok {
		return nil, scogerr.NewWithContext(scogerr.CodeLocked, "another scog process is using the repository",
			map[string]interface{}{"path": path})
	}

	log.Debug().Str("path", path).Msg("lock acquired")
	return &Lock{fl: fl, log: log}, nil
}

// Path returns the lock file.
func (l *Lock) Path() string {
	return l.fl.Path()
}

// Release unlocks. Releasing twice is a no-op.
func (l *Lock) Release() error {
	if l == nil || !l.fl.Locked() {
		return nil
	}
	if err := l.fl.Unlock(); err != nil {
		return scogerr.WrapWithContext(err, scogerr.CodeInternal, "failed to release lock",
			map[string]interface{}{"path": l.fl.Path()})
	}
	l.log.Debug().Str("path", l.fl.Path()).Msg("lock released")
	return nil
}
