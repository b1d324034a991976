// Package git is the library backend for scog: a vcs.Backend implemented on
// go-git, with repository storage reached through scog's fs abstraction.
//
// Open an existing working copy and drive it through the vcs contract:
//
//	repo, err := git.Open(ctx, &git.Options{
//	    FS:      billyfs.NewOSFS(home),
//	    Workdir: ".scog",
//	})
//	if err != nil {
//	    return err
//	}
//	if err := repo.PullFastForward(ctx, "main"); err != nil {
//	    return err
//	}
//
// Or clone one:
//
//	repo, err := git.Clone(ctx, "git@example.com:me/dotfiles.git", &git.Options{
//	    FS:      billyfs.NewOSFS(home),
//	    Workdir: ".scog",
//	    Auth:    git.NewSSHAgentAuth(),
//	})
//
// # Error Handling
//
// Every failure carries a code from package errors (BRANCH_NOT_FOUND,
// NOT_FAST_FORWARD, PUSH_FAILED, ...), so callers match with errors.Is
// against the sentinels in that package rather than on go-git errors.
//
// # Remotes
//
// Remotes are visited in the order they are declared in .git/config. The
// primary remote, which receives upstream tracking for new branches and
// backs the fallback upstream "<primary>/<branch>", is "origin" when it
// exists and the first declared remote otherwise.
//
// # Thread Safety
//
// Repo is not safe for concurrent use; a working copy has a single owner
// for the duration of a sync run.
package git
