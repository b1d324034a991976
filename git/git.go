package git

import (
	"context"
	"path/filepath"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/transport"
	"github.com/rs/zerolog"

	scogerr "github.com/b1zzu/scog/errors"
	"github.com/b1zzu/scog/fs"
	"github.com/b1zzu/scog/git/internal/auth"
	"github.com/b1zzu/scog/git/internal/fsbridge"
	"github.com/b1zzu/scog/vcs"
)

const (
	// DefaultStorerCacheSize is the default size for the LRU object cache.
	DefaultStorerCacheSize = 1000

	// DefaultWorkdir is the default worktree directory name.
	DefaultWorkdir = "."

	// DefaultBranch is the initial branch of repositories created by Init.
	DefaultBranch = "main"
)

// Options configures repository discovery/creation and performance.
type Options struct {
	// FS is the REQUIRED native filesystem root (OS or in-memory).
	// All repository state lives within this filesystem.
	FS fs.Filesystem

	// Workdir is the path within FS for the worktree root.
	// Defaults to ".".
	Workdir string

	// Bare indicates a repository without a worktree. Only Init honors it;
	// sync operations need a worktree.
	Bare bool

	// StorerCacheSize sets the LRU objects cache entries.
	// Defaults to DefaultStorerCacheSize.
	StorerCacheSize int

	// Auth resolves per-URL credentials. If nil, no authentication is used.
	Auth AuthProvider

	// Identity is the author and committer of commits.
	// Defaults to vcs.DefaultIdentity.
	Identity vcs.Identity

	// Now stamps commits. Defaults to time.Now.
	Now func() time.Time

	// Logger receives debug output. Defaults to a disabled logger.
	Logger *zerolog.Logger
}

// Validate checks that the Options are properly configured.
func (o *Options) Validate() error {
	if o.FS == nil {
		return scogerr.New(scogerr.CodeInvalidInput, "FS is required")
	}

	if o.StorerCacheSize < 0 {
		return scogerr.New(scogerr.CodeInvalidInput, "StorerCacheSize cannot be negative")
	}

	if (o.Identity.Name == "") != (o.Identity.Email == "") {
		return scogerr.New(scogerr.CodeInvalidInput, "identity needs both name and email")
	}

	return nil
}

// applyDefaults sets default values for any unset fields in Options.
func (o *Options) applyDefaults() {
	if o.Workdir == "" {
		o.Workdir = DefaultWorkdir
	}

	if o.StorerCacheSize == 0 {
		o.StorerCacheSize = DefaultStorerCacheSize
	}

	if o.Identity.Name == "" {
		o.Identity = vcs.DefaultIdentity
	}

	if o.Now == nil {
		o.Now = time.Now
	}

	if o.Logger == nil {
		l := zerolog.Nop()
		o.Logger = &l
	}
}

// AuthProvider resolves authentication methods for git operations.
type AuthProvider interface {
	// Method returns the transport.AuthMethod for the given remote URL,
	// or nil if none is needed.
	Method(remoteURL string) (transport.AuthMethod, error)
}

// NewSSHAgentAuth authenticates ssh remotes through the running SSH agent.
func NewSSHAgentAuth() AuthProvider {
	return auth.NewSSHAgentProvider()
}

// NewSSHKeyAuth authenticates ssh remotes with a private key file.
func NewSSHKeyAuth(keyPath, passphrase string) AuthProvider {
	return auth.NewSSHKeyProvider(keyPath, passphrase)
}

// Repo is a go-git working copy. It implements vcs.Backend.
type Repo struct {
	repo     *git.Repository
	worktree *git.Worktree
	fs       fs.Filesystem
	options  Options
	log      zerolog.Logger
}

var _ vcs.Backend = (*Repo)(nil)

// Init creates a new repository whose initial branch is DefaultBranch.
func Init(ctx context.Context, opts *Options) (*Repo, error) {
	if err := opts.Validate(); err != nil {
		return nil, scogerr.Wrap(err, scogerr.CodeInvalidInput, "invalid options")
	}
	opts.applyDefaults()

	layout, err := fsbridge.Split(opts.FS, opts.Workdir, opts.Bare, opts.StorerCacheSize)
	if err != nil {
		return nil, scogerr.Wrap(err, scogerr.CodeInternal, "filesystem setup failed")
	}

	repo, err := git.InitWithOptions(
		layout.Storage,
		layout.Worktree,
		git.InitOptions{DefaultBranch: plumbing.NewBranchReferenceName(DefaultBranch)},
	)
	if err != nil {
		return nil, wrap(err, scogerr.CodeInternal, "failed to initialize repository", "workdir", opts.Workdir)
	}

	return newRepo(repo, opts)
}

// Open opens an existing repository at opts.Workdir.
func Open(ctx context.Context, opts *Options) (*Repo, error) {
	if err := opts.Validate(); err != nil {
		return nil, scogerr.Wrap(err, scogerr.CodeInvalidInput, "invalid options")
	}
	opts.applyDefaults()

	layout, err := fsbridge.Split(opts.FS, opts.Workdir, opts.Bare, opts.StorerCacheSize)
	if err != nil {
		return nil, scogerr.Wrap(err, scogerr.CodeInternal, "filesystem setup failed")
	}

	repo, err := git.Open(layout.Storage, layout.Worktree)
	if err != nil {
		return nil, wrap(err, scogerr.CodeInvalidInput, "failed to open repository", "workdir", opts.Workdir)
	}

	return newRepo(repo, opts)
}

// Clone clones remoteURL into opts.Workdir and checks out the remote's default branch.
//
// Context timeout/cancellation is honored during the clone operation.
func Clone(ctx context.Context, remoteURL string, opts *Options) (*Repo, error) {
	if remoteURL == "" {
		return nil, scogerr.New(scogerr.CodeInvalidInput, "remote URL cannot be empty")
	}

	if err := opts.Validate(); err != nil {
		return nil, scogerr.Wrap(err, scogerr.CodeInvalidInput, "invalid options")
	}
	opts.applyDefaults()

	layout, err := fsbridge.Split(opts.FS, opts.Workdir, false, opts.StorerCacheSize)
	if err != nil {
		return nil, scogerr.Wrap(err, scogerr.CodeCloneFailed, "filesystem setup failed")
	}

	cloneOpts := &git.CloneOptions{URL: remoteURL}
	if opts.Auth != nil {
		method, authErr := opts.Auth.Method(remoteURL)
		if authErr != nil {
			return nil, wrap(authErr, scogerr.CodeCloneFailed, "failed to get authentication method", "url", remoteURL)
		}
		cloneOpts.Auth = method
	}

	opts.Logger.Debug().Str("url", remoteURL).Str("workdir", opts.Workdir).Msg("cloning repository")

	repo, err := git.CloneContext(ctx, layout.Storage, layout.Worktree, cloneOpts)
	if err != nil {
		return nil, wrap(err, scogerr.CodeCloneFailed, "failed to clone repository", "url", remoteURL)
	}

	return newRepo(repo, opts)
}

func newRepo(repo *git.Repository, opts *Options) (*Repo, error) {
	r := &Repo{
		repo:    repo,
		fs:      opts.FS,
		options: *opts,
		log:     opts.Logger.With().Str("backend", "library").Logger(),
	}

	if !opts.Bare {
		worktree, err := repo.Worktree()
		if err != nil {
			return nil, scogerr.Wrap(err, scogerr.CodeInternal, "failed to get worktree")
		}
		r.worktree = worktree
	}

	return r, nil
}

// Root returns the worktree location on the host filesystem.
func (r *Repo) Root() string {
	return filepath.Join(r.fs.Root(), r.options.Workdir)
}

// requireWorktree fails for bare repositories.
func (r *Repo) requireWorktree() error {
	if r.worktree == nil {
		return scogerr.New(scogerr.CodeInvalidInput, "operation requires a worktree")
	}
	return nil
}
