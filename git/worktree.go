package git

import (
	"context"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"

	scogerr "github.com/b1zzu/scog/errors"
)

// IsDirty reports whether the worktree or the index differs from HEAD.
// Untracked files are ignored.
func (r *Repo) IsDirty(ctx context.Context) (bool, error) {
	if err := r.requireWorktree(); err != nil {
		return false, err
	}

	status, err := r.worktree.Status()
	if err != nil {
		return false, scogerr.Wrap(err, scogerr.CodeInternal, "failed to get worktree status")
	}

	for _, s := range status {
		if s.Staging == git.Untracked && s.Worktree == git.Untracked {
			continue
		}
		if s.Staging != git.Unmodified || s.Worktree != git.Unmodified {
			return true, nil
		}
	}
	return false, nil
}

// Stage adds the repository-relative path to the index.
func (r *Repo) Stage(ctx context.Context, path string) error {
	if err := r.requireWorktree(); err != nil {
		return err
	}

	if path == "" {
		return scogerr.New(scogerr.CodeInvalidInput, "path cannot be empty")
	}

	if _, err := r.worktree.Add(path); err != nil {
		return wrap(err, scogerr.CodeStageFailed, "failed to stage path", "path", path)
	}
	return nil
}

// Commit records the index as a new commit on HEAD and returns its hash.
// Author and committer are the configured identity.
func (r *Repo) Commit(ctx context.Context, message string) (string, error) {
	if err := r.requireWorktree(); err != nil {
		return "", err
	}

	if message == "" {
		return "", scogerr.New(scogerr.CodeInvalidInput, "commit message cannot be empty")
	}

	if _, err := r.repo.Head(); err != nil {
		return "", scogerr.Wrap(err, scogerr.CodeCommitFailed, "repository has no HEAD commit")
	}

	sig := &object.Signature{
		Name:  r.options.Identity.Name,
		Email: r.options.Identity.Email,
		When:  r.options.Now(),
	}

	hash, err := r.worktree.Commit(message, &git.CommitOptions{
		Author:    sig,
		Committer: sig,
	})
	if err != nil {
		return "", scogerr.Wrap(err, scogerr.CodeCommitFailed, "failed to create commit")
	}

	r.log.Debug().Str("commit", hash.String()).Msg("committed")
	return hash.String(), nil
}
