// Package vcs defines the version-control capability that the sync protocol
// is written against, plus the backup-branch naming contract shared by every
// implementation.
//
// Two implementations exist: package git drives go-git directly and package
// gitcli shells out to the git executable. Both classify failures with the
// codes from package errors so callers can match on them uniformly.
package vcs

import (
	"context"
	"fmt"
)

// DefaultRemote is the remote preferred as primary when it is declared.
const DefaultRemote = "origin"

// Branch describes a local branch or a remote-tracking branch.
type Branch struct {
	// Name is the short branch name without any remote prefix.
	Name string

	// Remote is the remote owning the branch, empty for local branches.
	Remote string

	// Hash is the tip commit.
	Hash string

	// Upstream is the configured "<remote>/<branch>" tracking ref, if any.
	Upstream string
}

// IsRemote reports whether b is a remote-tracking branch.
func (b Branch) IsRemote() bool {
	return b.Remote != ""
}

// FullName returns "<remote>/<name>" for remote branches and the name otherwise.
func (b Branch) FullName() string {
	if b.Remote == "" {
		return b.Name
	}
	return b.Remote + "/" + b.Name
}

// Identity is the author and committer used for commits made by scog.
type Identity struct {
	Name  string
	Email string
}

// DefaultIdentity is used when no identity is configured.
var DefaultIdentity = Identity{Name: "scog", Email: "scog@localhost"}

// String formats the identity as "Name <email>".
func (i Identity) String() string {
	return fmt.Sprintf("%s <%s>", i.Name, i.Email)
}

// Backend is a local working copy and its remotes.
// Backends never retry and never clean up after a failed operation.
type Backend interface {
	// Root returns the working copy root on the host filesystem.
	Root() string

	// CurrentBranch returns the checked out branch. A detached HEAD is an error.
	CurrentBranch(ctx context.Context) (string, error)

	// ResolveBranch finds a local branch named name, else "<remote>/<name>"
	// for each remote in declaration order.
	ResolveBranch(ctx context.Context, name string) (*Branch, error)

	// CheckoutBranch switches to name, creating a tracking local branch when
	// only a remote branch exists.
	CheckoutBranch(ctx context.Context, name string) error

	// CreateBranch creates name at base (HEAD when empty) and switches to it.
	CreateBranch(ctx context.Context, name, base string) error

	// DeleteBranch removes a local branch that is not checked out.
	DeleteBranch(ctx context.Context, name string) error

	// FetchAll fetches every remote without touching local branches.
	FetchAll(ctx context.Context) error

	// IsDirty reports whether the index or tracked files differ from HEAD.
	IsDirty(ctx context.Context) (bool, error)

	// PullFastForward fetches and fast-forwards name to its upstream.
	PullFastForward(ctx context.Context, name string) error

	// Stage adds one repository-relative path to the index.
	Stage(ctx context.Context, path string) error

	// Commit records the index on top of HEAD and returns the new commit hash.
	Commit(ctx context.Context, message string) (string, error)

	// PushBranch pushes name to the same-named ref on every remote.
	PushBranch(ctx context.Context, name string) error

	// PushNewBranch pushes name everywhere and sets its upstream on the primary remote.
	PushNewBranch(ctx context.Context, name string) error

	// Branches lists local and remote-tracking branches.
	Branches(ctx context.Context) ([]Branch, error)

	// Remotes lists remote names in declaration order.
	Remotes(ctx context.Context) ([]string, error)
}

// PrimaryRemote picks the remote that receives upstream tracking:
// DefaultRemote when declared, otherwise the first declared remote.
// It returns "" when remotes is empty.
func PrimaryRemote(remotes []string) string {
	for _, r := range remotes {
		if r == DefaultRemote {
			return r
		}
	}
	if len(remotes) == 0 {
		return ""
	}
	return remotes[0]
}
