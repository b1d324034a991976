package git

import (
	"context"
	"errors"
	"sort"
	"strings"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"

	scogerr "github.com/b1zzu/scog/errors"
	"github.com/b1zzu/scog/vcs"
)

// CurrentBranch returns the name of the currently checked out branch.
// It returns an error if HEAD is in a detached state.
func (r *Repo) CurrentBranch(ctx context.Context) (string, error) {
	head, err := r.repo.Head()
	if err != nil {
		return "", scogerr.Wrap(err, scogerr.CodeInternal, "failed to get HEAD reference")
	}

	if !head.Name().IsBranch() {
		return "", fail(scogerr.CodeInternal, "HEAD is detached", "commit", head.Hash().String())
	}

	return head.Name().Short(), nil
}

// ResolveBranch looks up name among local branches, then as "<remote>/<name>"
// for each remote in declaration order.
func (r *Repo) ResolveBranch(ctx context.Context, name string) (*vcs.Branch, error) {
	if name == "" {
		return nil, scogerr.New(scogerr.CodeInvalidInput, "branch name cannot be empty")
	}

	ref, err := r.repo.Reference(plumbing.NewBranchReferenceName(name), true)
	switch {
	case err == nil:
		return r.localBranch(name, ref.Hash())
	case !errors.Is(err, plumbing.ErrReferenceNotFound):
		return nil, wrap(err, scogerr.CodeInternal, "failed to read branch", "branch", name)
	}

	remotes, err := r.Remotes(ctx)
	if err != nil {
		return nil, err
	}

	for _, remote := range remotes {
		ref, err := r.repo.Reference(plumbing.NewRemoteReferenceName(remote, name), true)
		if errors.Is(err, plumbing.ErrReferenceNotFound) {
			continue
		}
		if err != nil {
			return nil, wrap(err, scogerr.CodeInternal, "failed to read remote branch", "branch", name, "remote", remote)
		}
		return &vcs.Branch{Name: name, Remote: remote, Hash: ref.Hash().String()}, nil
	}

	return nil, fail(scogerr.CodeBranchNotFound, "branch not found", "branch", name)
}

func (r *Repo) localBranch(name string, hash plumbing.Hash) (*vcs.Branch, error) {
	cfg, err := r.repo.Config()
	if err != nil {
		return nil, scogerr.Wrap(err, scogerr.CodeInternal, "failed to read repository config")
	}

	b := &vcs.Branch{Name: name, Hash: hash.String()}
	if bc, ok := cfg.Branches[name]; ok && bc.Remote != "" && bc.Merge.IsBranch() {
		b.Upstream = bc.Remote + "/" + bc.Merge.Short()
	}
	return b, nil
}

// CheckoutBranch switches the worktree to name. A branch that only exists on
// a remote is first created locally at the same commit, tracking that remote.
func (r *Repo) CheckoutBranch(ctx context.Context, name string) error {
	if err := r.requireWorktree(); err != nil {
		return err
	}

	b, err := r.ResolveBranch(ctx, name)
	if err != nil {
		return err
	}

	local := plumbing.NewBranchReferenceName(name)
	if b.IsRemote() {
		r.log.Debug().Str("branch", name).Str("remote", b.Remote).Msg("creating local branch from remote")

		ref := plumbing.NewHashReference(local, plumbing.NewHash(b.Hash))
		if err := r.repo.Storer.SetReference(ref); err != nil {
			return wrap(err, scogerr.CodeCheckoutFailed, "failed to create local branch", "branch", name)
		}
		if err := r.setUpstream(name, b.Remote); err != nil {
			return err
		}
	}

	if err := r.worktree.Checkout(&git.CheckoutOptions{Branch: local}); err != nil {
		return wrap(err, scogerr.CodeCheckoutFailed, "failed to checkout branch", "branch", name)
	}

	return nil
}

// CreateBranch creates name at base (HEAD when empty) and switches to it.
func (r *Repo) CreateBranch(ctx context.Context, name, base string) error {
	if err := r.requireWorktree(); err != nil {
		return err
	}
	if name == "" {
		return scogerr.New(scogerr.CodeInvalidInput, "branch name cannot be empty")
	}

	local := plumbing.NewBranchReferenceName(name)
	if err := local.Validate(); err != nil {
		return wrap(err, scogerr.CodeInvalidInput, "invalid branch name", "branch", name)
	}

	_, err := r.repo.Reference(local, true)
	if err == nil {
		return fail(scogerr.CodeBranchExists, "branch already exists", "branch", name)
	}
	if !errors.Is(err, plumbing.ErrReferenceNotFound) {
		return wrap(err, scogerr.CodeInternal, "failed to read branch", "branch", name)
	}

	opts := &git.CheckoutOptions{Branch: local, Create: true}
	if base != "" {
		hash, err := r.repo.ResolveRevision(plumbing.Revision(base))
		if err != nil {
			return wrap(err, scogerr.CodeBranchNotFound, "failed to resolve base revision", "base", base)
		}
		opts.Hash = *hash
	}

	if err := r.worktree.Checkout(opts); err != nil {
		return wrap(err, scogerr.CodeCheckoutFailed, "failed to create branch", "branch", name)
	}

	return nil
}

// DeleteBranch deletes a local branch together with its tracking configuration.
// The checked out branch cannot be deleted.
func (r *Repo) DeleteBranch(ctx context.Context, name string) error {
	local := plumbing.NewBranchReferenceName(name)

	if _, err := r.repo.Reference(local, true); err != nil {
		return wrap(err, scogerr.CodeDeleteBranchFailed, "branch does not exist", "branch", name)
	}

	if current, err := r.CurrentBranch(ctx); err == nil && current == name {
		return fail(scogerr.CodeDeleteBranchFailed, "cannot delete the checked out branch", "branch", name)
	}

	if err := r.repo.Storer.RemoveReference(local); err != nil {
		return wrap(err, scogerr.CodeDeleteBranchFailed, "failed to delete branch", "branch", name)
	}

	cfg, err := r.repo.Config()
	if err != nil {
		return wrap(err, scogerr.CodeDeleteBranchFailed, "failed to read repository config", "branch", name)
	}
	if _, ok := cfg.Branches[name]; ok {
		delete(cfg.Branches, name)
		if err := r.repo.SetConfig(cfg); err != nil {
			return wrap(err, scogerr.CodeDeleteBranchFailed, "failed to drop branch config", "branch", name)
		}
	}

	r.log.Debug().Str("branch", name).Msg("deleted branch")
	return nil
}

// Branches lists local branches followed by remote-tracking branches,
// each group sorted by name. Symbolic refs such as origin/HEAD are skipped.
func (r *Repo) Branches(ctx context.Context) ([]vcs.Branch, error) {
	remotes, err := r.Remotes(ctx)
	if err != nil {
		return nil, err
	}

	cfg, err := r.repo.Config()
	if err != nil {
		return nil, scogerr.Wrap(err, scogerr.CodeInternal, "failed to read repository config")
	}

	refs, err := r.repo.References()
	if err != nil {
		return nil, scogerr.Wrap(err, scogerr.CodeInternal, "failed to get references")
	}

	var local, remote []vcs.Branch
	err = refs.ForEach(func(ref *plumbing.Reference) error {
		if ref.Type() != plumbing.HashReference {
			return nil
		}

		switch {
		case ref.Name().IsBranch():
			b := vcs.Branch{Name: ref.Name().Short(), Hash: ref.Hash().String()}
			if bc, ok := cfg.Branches[b.Name]; ok && bc.Remote != "" && bc.Merge.IsBranch() {
				b.Upstream = bc.Remote + "/" + bc.Merge.Short()
			}
			local = append(local, b)
		case ref.Name().IsRemote():
			if b, ok := splitRemoteRef(ref, remotes); ok {
				remote = append(remote, b)
			}
		}
		return nil
	})
	if err != nil {
		return nil, scogerr.Wrap(err, scogerr.CodeInternal, "failed to iterate references")
	}

	sort.Slice(local, func(i, j int) bool { return local[i].Name < local[j].Name })
	sort.Slice(remote, func(i, j int) bool { return remote[i].FullName() < remote[j].FullName() })

	return append(local, remote...), nil
}

// splitRemoteRef maps refs/remotes/<remote>/<branch> onto a declared remote.
// Remote names may contain slashes, so the longest matching remote wins.
func splitRemoteRef(ref *plumbing.Reference, remotes []string) (vcs.Branch, bool) {
	short := strings.TrimPrefix(ref.Name().String(), "refs/remotes/")

	best := ""
	for _, remote := range remotes {
		if strings.HasPrefix(short, remote+"/") && len(remote) > len(best) {
			best = remote
		}
	}
	if best == "" {
		return vcs.Branch{}, false
	}

	return vcs.Branch{
		Name:   strings.TrimPrefix(short, best+"/"),
		Remote: best,
		Hash:   ref.Hash().String(),
	}, true
}

// setUpstream records remote/name as the upstream of the local branch name.
func (r *Repo) setUpstream(name, remote string) error {
	cfg, err := r.repo.Config()
	if err != nil {
		return wrap(err, scogerr.CodeInternal, "failed to read repository config", "branch", name)
	}

	cfg.Branches[name] = &config.Branch{
		Name:   name,
		Remote: remote,
		Merge:  plumbing.NewBranchReferenceName(name),
	}

	if err := r.repo.SetConfig(cfg); err != nil {
		return wrap(err, scogerr.CodeInternal, "failed to set upstream", "branch", name, "remote", remote)
	}
	return nil
}
