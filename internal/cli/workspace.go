package cli

import (
	"context"

	"github.com/b1zzu/scog/config"
	fsb "github.com/b1zzu/scog/fs/billy"
	"github.com/b1zzu/scog/git"
	"github.com/b1zzu/scog/gitcli"
	"github.com/b1zzu/scog/journal"
	"github.com/b1zzu/scog/lock"
	"github.com/b1zzu/scog/mirror"
	"github.com/b1zzu/scog/syncer"
	"github.com/b1zzu/scog/vcs"
)

// workspace is an opened working copy with everything a command needs.
type workspace struct {
	backend vcs.Backend
	sync    *syncer.Orchestrator
	journal *journal.Store
	lock    *lock.Lock
}

// open opens the working copy. Mutating commands also take the working
// copy lock.
func (a *app) open(ctx context.Context, mutating bool) (*workspace, error) {
	backend, err := a.openBackend(ctx)
	if err != nil {
		return nil, err
	}
	w := &workspace{backend: backend}

	if mutating {
		w.lock, err = lock.Acquire(a.settings.LockPath(), a.log)
		if err != nil {
			return nil, err
		}
	}

	if a.settings.Journal != "" {
		w.journal, err = journal.Open(ctx, a.settings.Journal)
		if err != nil {
			_ = w.Close()
			return nil, err
		}
	}

	opts := &syncer.Options{
		Backend: backend,
		Mirror:  mirror.New(fsb.NewHostFS(a.settings.HostRoot), fsb.NewOSFS(a.settings.Repo), mirror.WithLogger(a.log)),
		Tracked: config.Source{FS: fsb.NewBaseOSFS(), Path: a.settings.ConfigPath()},
		Logger:  &a.log,
	}
	if w.journal != nil {
		opts.Journal = w.journal
	}

	w.sync, err = syncer.New(opts)
	if err != nil {
		_ = w.Close()
		return nil, err
	}
	return w, nil
}

// Close releases the journal and the lock.
func (w *workspace) Close() error {
	var first error
	if w.journal != nil {
		first = w.journal.Close()
	}
	if err := w.lock.Release(); err != nil && first == nil {
		first = err
	}
	return first
}

func (a *app) openBackend(ctx context.Context) (vcs.Backend, error) {
	if a.settings.Backend == config.BackendCLI {
		return gitcli.Open(ctx, a.cliOptions())
	}
	return git.Open(ctx, a.libraryOptions())
}

func (a *app) cloneBackend(ctx context.Context, url string) (vcs.Backend, error) {
	if a.settings.Backend == config.BackendCLI {
		return gitcli.Clone(ctx, url, a.cliOptions())
	}
	return git.Clone(ctx, url, a.libraryOptions())
}

func (a *app) libraryOptions() *git.Options {
	auth := git.NewSSHAgentAuth()
	if a.settings.SSHKey != "" {
		auth = git.NewSSHKeyAuth(a.settings.SSHKey, "")
	}
	return &git.Options{
		FS:       fsb.NewOSFS(a.settings.Repo),
		Auth:     auth,
		Identity: a.settings.Identity,
		Logger:   &a.log,
	}
}

func (a *app) cliOptions() *gitcli.Options {
	return &gitcli.Options{
		Root:     a.settings.Repo,
		Identity: a.settings.Identity,
		Logger:   &a.log,
	}
}
