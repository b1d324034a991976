package gitcli

import (
	"context"
	"fmt"

	scogerr "github.com/b1zzu/scog/errors"
)

// IsDirty reports whether the worktree or the index differs from HEAD.
// Untracked files are ignored.
func (b *Backend) IsDirty(ctx context.Context) (bool, error) {
	out, err := b.run(ctx, "status", "--porcelain", "--untracked-files=no")
	if err != nil {
		return false, wrap(err, scogerr.CodeInternal, "failed to get worktree status")
	}
	return out != "", nil
}

// Stage adds the repository-relative path to the index.
func (b *Backend) Stage(ctx context.Context, path string) error {
	if path == "" {
		return scogerr.New(scogerr.CodeInvalidInput, "path cannot be empty")
	}

	// Tracked paths are captured even when .gitignore matches them, as
	// go-git's Worktree.Add does.
	if _, err := b.run(ctx, "add", "--force", "--", path); err != nil {
		return wrap(err, scogerr.CodeStageFailed, "failed to stage path", "path", path)
	}
	return nil
}

// Commit records the index as a new commit on HEAD and returns its hash.
// Author and committer are the configured identity; hooks and signing
// configured by the user are bypassed.
func (b *Backend) Commit(ctx context.Context, message string) (string, error) {
	if message == "" {
		return "", scogerr.New(scogerr.CodeInvalidInput, "commit message cannot be empty")
	}

	if _, ok, err := b.revParse(ctx, "HEAD"); err != nil || !ok {
		if err == nil {
			err = fmt.Errorf("HEAD does not point to a commit")
		}
		return "", scogerr.Wrap(err, scogerr.CodeCommitFailed, "repository has no HEAD commit")
	}

	now := b.now()
	date := fmt.Sprintf("@%d %s", now.Unix(), now.Format("-0700"))
	env := map[string]string{
		"GIT_AUTHOR_NAME":     b.identity.Name,
		"GIT_AUTHOR_EMAIL":    b.identity.Email,
		"GIT_AUTHOR_DATE":     date,
		"GIT_COMMITTER_NAME":  b.identity.Name,
		"GIT_COMMITTER_EMAIL": b.identity.Email,
		"GIT_COMMITTER_DATE":  date,
	}

	_, err := b.runIn(ctx, b.root, env, "commit", "--quiet", "--no-verify", "--no-gpg-sign", "-m", message)
	if err != nil {
		return "", wrap(err, scogerr.CodeCommitFailed, "failed to create commit")
	}

	hash, err := b.run(ctx, "rev-parse", "HEAD")
	if err != nil {
		return "", wrap(err, scogerr.CodeCommitFailed, "failed to read new commit")
	}

	b.log.Debug().Str("commit", hash).Msg("committed")
	return hash, nil
}
