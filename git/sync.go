package git

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/transport"

	scogerr "github.com/b1zzu/scog/errors"
	"github.com/b1zzu/scog/vcs"
)

// Remotes returns remote names in the order they are declared in the config.
func (r *Repo) Remotes(ctx context.Context) ([]string, error) {
	cfg, err := r.repo.Config()
	if err != nil {
		return nil, scogerr.Wrap(err, scogerr.CodeInternal, "failed to read repository config")
	}

	names := make([]string, 0, len(cfg.Remotes))
	seen := make(map[string]bool, len(cfg.Remotes))
	if cfg.Raw != nil {
		for _, sub := range cfg.Raw.Section("remote").Subsections {
			if _, ok := cfg.Remotes[sub.Name]; ok && !seen[sub.Name] {
				names = append(names, sub.Name)
				seen[sub.Name] = true
			}
		}
	}

	// Remotes not yet written to the raw config go last, by name.
	var rest []string
	for name := range cfg.Remotes {
		if !seen[name] {
			rest = append(rest, name)
		}
	}
	sort.Strings(rest)

	return append(names, rest...), nil
}

// authFor resolves credentials for the first URL of remote.
//
//nolint:ireturn // go-git requires transport.AuthMethod
func (r *Repo) authFor(remote string) (transport.AuthMethod, error) {
	if r.options.Auth == nil {
		return nil, nil
	}

	rem, err := r.repo.Remote(remote)
	if err != nil {
		return nil, err
	}
	urls := rem.Config().URLs
	if len(urls) == 0 {
		return nil, fmt.Errorf("remote %q has no URL", remote)
	}

	return r.options.Auth.Method(urls[0])
}

// FetchAll fetches every remote. Local branches and HEAD are never moved.
//
// Context timeout/cancellation is honored during the fetch operation.
func (r *Repo) FetchAll(ctx context.Context) error {
	remotes, err := r.Remotes(ctx)
	if err != nil {
		return err
	}

	for _, remote := range remotes {
		if err := r.fetch(ctx, remote); err != nil {
			return err
		}
	}
	return nil
}

func (r *Repo) fetch(ctx context.Context, remote string) error {
	method, err := r.authFor(remote)
	if err != nil {
		return wrap(err, scogerr.CodeFetchFailed, "failed to get authentication method", "remote", remote)
	}

	r.log.Debug().Str("remote", remote).Msg("fetching")

	err = r.repo.FetchContext(ctx, &git.FetchOptions{RemoteName: remote, Auth: method})
	switch {
	case err == nil,
		errors.Is(err, git.NoErrAlreadyUpToDate),
		errors.Is(err, transport.ErrEmptyRemoteRepository):
		return nil
	default:
		return wrap(err, scogerr.CodeFetchFailed, "failed to fetch from remote", "remote", remote)
	}
}

// upstream returns the upstream tip of the local branch name: its configured
// tracking branch, else "<primary remote>/<name>". ok is false when neither exists.
func (r *Repo) upstream(ctx context.Context, name string) (ref *plumbing.Reference, ok bool, err error) {
	var candidates []plumbing.ReferenceName

	cfg, err := r.repo.Config()
	if err != nil {
		return nil, false, scogerr.Wrap(err, scogerr.CodeInternal, "failed to read repository config")
	}
	if bc, found := cfg.Branches[name]; found && bc.Remote != "" && bc.Merge.IsBranch() {
		candidates = append(candidates, plumbing.NewRemoteReferenceName(bc.Remote, bc.Merge.Short()))
	}

	remotes, err := r.Remotes(ctx)
	if err != nil {
		return nil, false, err
	}
	if primary := vcs.PrimaryRemote(remotes); primary != "" {
		candidates = append(candidates, plumbing.NewRemoteReferenceName(primary, name))
	}

	for _, c := range candidates {
		ref, err := r.repo.Reference(c, true)
		if errors.Is(err, plumbing.ErrReferenceNotFound) {
			continue
		}
		if err != nil {
			return nil, false, wrap(err, scogerr.CodeInternal, "failed to read upstream", "ref", c.String())
		}
		return ref, true, nil
	}
	return nil, false, nil
}

// PullFastForward fetches all remotes, then moves the local branch name to its
// upstream tip when that is a fast-forward. A branch ahead of or equal to its
// upstream is left alone; diverged history fails with NOT_FAST_FORWARD and
// changes nothing. A branch without any upstream has nothing to pull.
//
// Context timeout/cancellation is honored during the fetch.
func (r *Repo) PullFastForward(ctx context.Context, name string) error {
	if err := r.requireWorktree(); err != nil {
		return err
	}

	if err := r.FetchAll(ctx); err != nil {
		return err
	}

	local := plumbing.NewBranchReferenceName(name)
	localRef, err := r.repo.Reference(local, true)
	if err != nil {
		return wrap(err, scogerr.CodeBranchNotFound, "branch not found", "branch", name)
	}

	upRef, ok, err := r.upstream(ctx, name)
	if err != nil {
		return err
	}
	if !ok {
		r.log.Debug().Str("branch", name).Msg("no upstream, nothing to pull")
		return nil
	}

	localHash, upHash := localRef.Hash(), upRef.Hash()
	if localHash == upHash {
		return nil
	}

	base, err := r.mergeBase(localHash, upHash)
	if err != nil {
		return wrap(err, scogerr.CodeInternal, "failed to compute merge base", "branch", name)
	}
	if base == upHash {
		// Local is ahead.
		return nil
	}
	if base != localHash {
		return fail(scogerr.CodeNotFastForward, "branch has diverged from its upstream, fix this manually",
			"branch", name, "upstream", upRef.Name().Short())
	}

	r.log.Debug().Str("branch", name).Str("from", localHash.String()).Str("to", upHash.String()).Msg("fast-forwarding")

	current, err := r.CurrentBranch(ctx)
	if err == nil && current == name {
		if err := r.worktree.Reset(&git.ResetOptions{Commit: upHash, Mode: git.MergeReset}); err != nil {
			return wrap(err, scogerr.CodeCheckoutFailed, "failed to update worktree", "branch", name)
		}
		return nil
	}

	if err := r.repo.Storer.SetReference(plumbing.NewHashReference(local, upHash)); err != nil {
		return wrap(err, scogerr.CodeInternal, "failed to move branch", "branch", name)
	}
	return nil
}

// mergeBase returns the best common ancestor of a and b, or the zero hash
// when the histories are unrelated.
func (r *Repo) mergeBase(a, b plumbing.Hash) (plumbing.Hash, error) {
	ca, err := r.repo.CommitObject(a)
	if err != nil {
		return plumbing.ZeroHash, err
	}
	cb, err := r.repo.CommitObject(b)
	if err != nil {
		return plumbing.ZeroHash, err
	}

	bases, err := ca.MergeBase(cb)
	if err != nil {
		return plumbing.ZeroHash, err
	}
	if len(bases) == 0 {
		return plumbing.ZeroHash, nil
	}
	return bases[0].Hash, nil
}

// PushBranch pushes the local branch name to the same-named ref on every
// remote. Pushes are never forced.
//
// Context timeout/cancellation is honored during the push operation.
func (r *Repo) PushBranch(ctx context.Context, name string) error {
	local := plumbing.NewBranchReferenceName(name)
	if _, err := r.repo.Reference(local, true); err != nil {
		return wrap(err, scogerr.CodeBranchNotFound, "branch not found", "branch", name)
	}

	remotes, err := r.Remotes(ctx)
	if err != nil {
		return err
	}

	spec := config.RefSpec(fmt.Sprintf("%s:%s", local, local))
	for _, remote := range remotes {
		method, err := r.authFor(remote)
		if err != nil {
			return wrap(err, scogerr.CodePushFailed, "failed to get authentication method", "remote", remote)
		}

		r.log.Debug().Str("branch", name).Str("remote", remote).Msg("pushing")

		err = r.repo.PushContext(ctx, &git.PushOptions{
			RemoteName: remote,
			RefSpecs:   []config.RefSpec{spec},
			Auth:       method,
		})
		if err != nil && !errors.Is(err, git.NoErrAlreadyUpToDate) {
			return wrap(err, scogerr.CodePushFailed, "failed to push branch", "branch", name, "remote", remote)
		}
	}
	return nil
}

// PushNewBranch pushes name to every remote and tracks it on the primary remote.
func (r *Repo) PushNewBranch(ctx context.Context, name string) error {
	if err := r.PushBranch(ctx, name); err != nil {
		return err
	}

	remotes, err := r.Remotes(ctx)
	if err != nil {
		return err
	}
	primary := vcs.PrimaryRemote(remotes)
	if primary == "" {
		return nil
	}

	if err := r.setUpstream(name, primary); err != nil {
		return scogerr.Wrap(err, scogerr.CodePushFailed, "failed to set upstream")
	}
	return nil
}
