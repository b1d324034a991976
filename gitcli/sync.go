package gitcli

import (
	"context"
	"strings"

	scogerr "github.com/b1zzu/scog/errors"
	"github.com/b1zzu/scog/vcs"
)

// Remotes returns remote names in the order they are declared in the config.
func (b *Backend) Remotes(ctx context.Context) ([]string, error) {
	// "git remote" sorts its output; config listing keeps file order.
	out, err := b.run(ctx, "config", "--get-regexp", `^remote\..*\.url$`)
	if exitedWith(err, 1) {
		return nil, nil
	}
	if err != nil {
		return nil, wrap(err, scogerr.CodeInternal, "failed to list remotes")
	}
	return parseRemotes(out), nil
}

func parseRemotes(out string) []string {
	var names []string
	seen := map[string]bool{}
	for _, line := range strings.Split(out, "\n") {
		key, _, _ := strings.Cut(line, " ")
		if !strings.HasPrefix(key, "remote.") || !strings.HasSuffix(key, ".url") {
			continue
		}
		name := strings.TrimSuffix(strings.TrimPrefix(key, "remote."), ".url")
		if name != "" && !seen[name] {
			names = append(names, name)
			seen[name] = true
		}
	}
	return names
}

// FetchAll fetches every remote. Local branches and HEAD are never moved.
func (b *Backend) FetchAll(ctx context.Context) error {
	remotes, err := b.Remotes(ctx)
	if err != nil {
		return err
	}

	for _, remote := range remotes {
		b.log.Debug().Str("remote", remote).Msg("fetching")

		if _, err := b.run(ctx, "fetch", "--quiet", remote); err != nil {
			return wrap(err, scogerr.CodeFetchFailed, "failed to fetch from remote", "remote", remote)
		}
	}
	return nil
}

// upstream returns the upstream ref and tip of the local branch name: its
// configured tracking branch, else "<primary remote>/<name>". ok is false
// when neither exists.
func (b *Backend) upstream(ctx context.Context, name string) (ref, hash string, ok bool, err error) {
	var candidates []string

	remote, merge, err := b.tracking(ctx, name)
	if err != nil {
		return "", "", false, err
	}
	if remote != "" {
		candidates = append(candidates, remote+"/"+merge)
	}

	remotes, err := b.Remotes(ctx)
	if err != nil {
		return "", "", false, err
	}
	if primary := vcs.PrimaryRemote(remotes); primary != "" {
		candidates = append(candidates, primary+"/"+name)
	}

	for _, c := range candidates {
		hash, found, err := b.revParse(ctx, "refs/remotes/"+c)
		if err != nil {
			return "", "", false, err
		}
		if found {
			return c, hash, true, nil
		}
	}
	return "", "", false, nil
}

// PullFastForward fetches all remotes, then moves the local branch name to its
// upstream tip when that is a fast-forward. A branch ahead of or equal to its
// upstream is left alone; diverged history fails with NOT_FAST_FORWARD and
// changes nothing. A branch without any upstream has nothing to pull.
func (b *Backend) PullFastForward(ctx context.Context, name string) error {
	if err := b.FetchAll(ctx); err != nil {
		return err
	}

	local, ok, err := b.revParse(ctx, "refs/heads/"+name)
	if err != nil {
		return err
	}
	if !ok {
		return fail(scogerr.CodeBranchNotFound, "branch not found", "branch", name)
	}

	upRef, up, ok, err := b.upstream(ctx, name)
	if err != nil {
		return err
	}
	if !ok {
		b.log.Debug().Str("branch", name).Msg("no upstream, nothing to pull")
		return nil
	}
	if up == local {
		return nil
	}

	base, err := b.run(ctx, "merge-base", local, up)
	if exitedWith(err, 1) {
		base = ""
	} else if err != nil {
		return wrap(err, scogerr.CodeInternal, "failed to compute merge base", "branch", name)
	}

	if base == up {
		// Local is ahead.
		return nil
	}
	if base != local {
		return fail(scogerr.CodeNotFastForward, "branch has diverged from its upstream, fix this manually",
			"branch", name, "upstream", upRef)
	}

	b.log.Debug().Str("branch", name).Str("from", local).Str("to", up).Msg("fast-forwarding")

	current, err := b.CurrentBranch(ctx)
	if err == nil && current == name {
		if _, err := b.run(ctx, "merge", "--quiet", "--ff-only", up); err != nil {
			return wrap(err, scogerr.CodeCheckoutFailed, "failed to update worktree", "branch", name)
		}
		return nil
	}

	if _, err := b.run(ctx, "update-ref", "refs/heads/"+name, up, local); err != nil {
		return wrap(err, scogerr.CodeInternal, "failed to move branch", "branch", name)
	}
	return nil
}

// PushBranch pushes the local branch name to the same-named ref on every
// remote. Pushes are never forced.
func (b *Backend) PushBranch(ctx context.Context, name string) error {
	_, ok, err := b.revParse(ctx, "refs/heads/"+name)
	if err != nil {
		return err
	}
	if !ok {
		return fail(scogerr.CodeBranchNotFound, "branch not found", "branch", name)
	}

	remotes, err := b.Remotes(ctx)
	if err != nil {
		return err
	}

	spec := "refs/heads/" + name + ":refs/heads/" + name
	for _, remote := range remotes {
		b.log.Debug().Str("branch", name).Str("remote", remote).Msg("pushing")

		if _, err := b.run(ctx, "push", "--quiet", remote, spec); err != nil {
			return wrap(err, scogerr.CodePushFailed, "failed to push branch", "branch", name, "remote", remote)
		}
	}
	return nil
}

// PushNewBranch pushes name to every remote and tracks it on the primary remote.
func (b *Backend) PushNewBranch(ctx context.Context, name string) error {
	if err := b.PushBranch(ctx, name); err != nil {
		return err
	}

	remotes, err := b.Remotes(ctx)
	if err != nil {
		return err
	}
	primary := vcs.PrimaryRemote(remotes)
	if primary == "" {
		return nil
	}

	// Written directly: --set-upstream-to needs the remote-tracking ref,
	// which push only creates when a fetch refspec covers it.
	for key, value := range map[string]string{
		"branch." + name + ".remote": primary,
		"branch." + name + ".merge":  "refs/heads/" + name,
	} {
		if _, err := b.run(ctx, "config", key, value); err != nil {
			return wrap(err, scogerr.CodePushFailed, "failed to set upstream", "branch", name, "remote", primary)
		}
	}
	return nil
}
