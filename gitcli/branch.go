package gitcli

import (
	"context"
	"sort"
	"strings"

	scogerr "github.com/b1zzu/scog/errors"
	"github.com/b1zzu/scog/vcs"
)

// CurrentBranch returns the checked out branch. A detached HEAD is an error.
func (b *Backend) CurrentBranch(ctx context.Context) (string, error) {
	out, err := b.run(ctx, "symbolic-ref", "--quiet", "--short", "HEAD")
	if exitedWith(err, 1) {
		return "", scogerr.New(scogerr.CodeInternal, "HEAD is detached")
	}
	if err != nil {
		return "", wrap(err, scogerr.CodeInternal, "failed to read HEAD")
	}
	return out, nil
}

// revParse resolves ref to a commit hash. ok is false when ref does not exist.
func (b *Backend) revParse(ctx context.Context, ref string) (hash string, ok bool, err error) {
	out, err := b.run(ctx, "rev-parse", "--verify", "--quiet", ref+"^{commit}")
	if exitedWith(err, 1) {
		return "", false, nil
	}
	if err != nil {
		return "", false, wrap(err, scogerr.CodeInternal, "failed to resolve ref", "ref", ref)
	}
	return out, true, nil
}

// configValue reads a single git config key. ok is false when it is unset.
func (b *Backend) configValue(ctx context.Context, key string) (value string, ok bool, err error) {
	out, err := b.run(ctx, "config", "--get", key)
	if exitedWith(err, 1) {
		return "", false, nil
	}
	if err != nil {
		return "", false, wrap(err, scogerr.CodeInternal, "failed to read config", "key", key)
	}
	return out, true, nil
}

// tracking returns the configured upstream remote and branch of name.
func (b *Backend) tracking(ctx context.Context, name string) (remote, branch string, err error) {
	remote, ok, err := b.configValue(ctx, "branch."+name+".remote")
	if err != nil || !ok {
		return "", "", err
	}
	merge, ok, err := b.configValue(ctx, "branch."+name+".merge")
	if err != nil || !ok || !strings.HasPrefix(merge, "refs/heads/") {
		return "", "", err
	}
	return remote, strings.TrimPrefix(merge, "refs/heads/"), nil
}

// ResolveBranch looks up name among local branches, then as "<remote>/<name>"
// for each remote in declaration order.
func (b *Backend) ResolveBranch(ctx context.Context, name string) (*vcs.Branch, error) {
	if name == "" {
		return nil, scogerr.New(scogerr.CodeInvalidInput, "branch name cannot be empty")
	}

	hash, ok, err := b.revParse(ctx, "refs/heads/"+name)
	if err != nil {
		return nil, err
	}
	if ok {
		br := &vcs.Branch{Name: name, Hash: hash}
		remote, merge, err := b.tracking(ctx, name)
		if err != nil {
			return nil, err
		}
		if remote != "" {
			br.Upstream = remote + "/" + merge
		}
		return br, nil
	}

	remotes, err := b.Remotes(ctx)
	if err != nil {
		return nil, err
	}

	for _, remote := range remotes {
		hash, ok, err := b.revParse(ctx, "refs/remotes/"+remote+"/"+name)
		if err != nil {
			return nil, err
		}
		if ok {
			return &vcs.Branch{Name: name, Remote: remote, Hash: hash}, nil
		}
	}

	return nil, fail(scogerr.CodeBranchNotFound, "branch not found", "branch", name)
}

// CheckoutBranch switches to name. A branch that only exists on a remote is
// first created locally at the same commit, tracking that remote.
func (b *Backend) CheckoutBranch(ctx context.Context, name string) error {
	br, err := b.ResolveBranch(ctx, name)
	if err != nil {
		return err
	}

	if br.IsRemote() {
		b.log.Debug().Str("branch", name).Str("remote", br.Remote).Msg("creating local branch from remote")

		if _, err := b.run(ctx, "branch", "--quiet", "--track", name, "refs/remotes/"+br.FullName()); err != nil {
			return wrap(err, scogerr.CodeCheckoutFailed, "failed to create local branch", "branch", name)
		}
	}

	if _, err := b.run(ctx, "checkout", "--quiet", name, "--"); err != nil {
		return wrap(err, scogerr.CodeCheckoutFailed, "failed to checkout branch", "branch", name)
	}
	return nil
}

// CreateBranch creates name at base (HEAD when empty) and switches to it.
func (b *Backend) CreateBranch(ctx context.Context, name, base string) error {
	if name == "" {
		return scogerr.New(scogerr.CodeInvalidInput, "branch name cannot be empty")
	}

	if _, err := b.run(ctx, "check-ref-format", "--branch", name); err != nil {
		return wrap(err, scogerr.CodeInvalidInput, "invalid branch name", "branch", name)
	}

	_, exists, err := b.revParse(ctx, "refs/heads/"+name)
	if err != nil {
		return err
	}
	if exists {
		return fail(scogerr.CodeBranchExists, "branch already exists", "branch", name)
	}

	args := []string{"checkout", "--quiet", "-b", name}
	if base != "" {
		hash, ok, err := b.revParse(ctx, base)
		if err != nil {
			return err
		}
		if !ok {
			return fail(scogerr.CodeBranchNotFound, "failed to resolve base revision", "base", base)
		}
		args = append(args, hash)
	}

	if _, err := b.run(ctx, args...); err != nil {
		return wrap(err, scogerr.CodeCheckoutFailed, "failed to create branch", "branch", name)
	}
	return nil
}

// DeleteBranch deletes a local branch together with its tracking configuration.
// The checked out branch cannot be deleted.
func (b *Backend) DeleteBranch(ctx context.Context, name string) error {
	_, exists, err := b.revParse(ctx, "refs/heads/"+name)
	if err != nil {
		return scogerr.Wrap(err, scogerr.CodeDeleteBranchFailed, "failed to read branch")
	}
	if !exists {
		return fail(scogerr.CodeDeleteBranchFailed, "branch does not exist", "branch", name)
	}

	if current, err := b.CurrentBranch(ctx); err == nil && current == name {
		return fail(scogerr.CodeDeleteBranchFailed, "cannot delete the checked out branch", "branch", name)
	}

	// -D: backup branches are never merged anywhere.
	if _, err := b.run(ctx, "branch", "--quiet", "-D", name); err != nil {
		return wrap(err, scogerr.CodeDeleteBranchFailed, "failed to delete branch", "branch", name)
	}

	b.log.Debug().Str("branch", name).Msg("deleted branch")
	return nil
}

const refFormat = "%(refname)%09%(objectname)%09%(upstream:short)%09%(symref)"

// Branches lists local branches followed by remote-tracking branches,
// each group sorted by name. Symbolic refs such as origin/HEAD are skipped.
func (b *Backend) Branches(ctx context.Context) ([]vcs.Branch, error) {
	remotes, err := b.Remotes(ctx)
	if err != nil {
		return nil, err
	}

	out, err := b.run(ctx, "for-each-ref", "--format="+refFormat, "refs/heads", "refs/remotes")
	if err != nil {
		return nil, wrap(err, scogerr.CodeInternal, "failed to list references")
	}

	local, remote := parseRefs(out, remotes)

	sort.Slice(local, func(i, j int) bool { return local[i].Name < local[j].Name })
	sort.Slice(remote, func(i, j int) bool { return remote[i].FullName() < remote[j].FullName() })

	return append(local, remote...), nil
}

// parseRefs splits for-each-ref output in refFormat into local and remote branches.
func parseRefs(out string, remotes []string) (local, remote []vcs.Branch) {
	for _, line := range strings.Split(out, "\n") {
		parts := strings.Split(line, "\t")
		if len(parts) != 4 || parts[3] != "" {
			continue
		}
		refname, hash, upstream := parts[0], parts[1], parts[2]

		switch {
		case strings.HasPrefix(refname, "refs/heads/"):
			local = append(local, vcs.Branch{
				Name:     strings.TrimPrefix(refname, "refs/heads/"),
				Hash:     hash,
				Upstream: upstream,
			})
		case strings.HasPrefix(refname, "refs/remotes/"):
			if br, ok := splitRemoteRef(strings.TrimPrefix(refname, "refs/remotes/"), hash, remotes); ok {
				remote = append(remote, br)
			}
		}
	}
	return local, remote
}

// splitRemoteRef maps "<remote>/<branch>" onto a declared remote.
// Remote names may contain slashes, so the longest matching remote wins.
func splitRemoteRef(short, hash string, remotes []string) (vcs.Branch, bool) {
	best := ""
	for _, r := range remotes {
		if strings.HasPrefix(short, r+"/") && len(r) > len(best) {
			best = r
		}
	}
	if best == "" {
		return vcs.Branch{}, false
	}
	return vcs.Branch{Name: strings.TrimPrefix(short, best+"/"), Remote: best, Hash: hash}, true
}
