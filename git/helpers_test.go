package git

import (
	"context"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/stretchr/testify/require"

	"github.com/b1zzu/scog/fs"
	fsb "github.com/b1zzu/scog/fs/billy"
)

var testEpoch = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

// testRepo is a helper struct that contains a test repository and its filesystem
type testRepo struct {
	repo *Repo
	fs   fs.Filesystem
	ctx  context.Context
}

func testOptions(fsys fs.Filesystem) *Options {
	return &Options{
		FS:      fsys,
		Workdir: ".",
		Now:     func() time.Time { return testEpoch },
	}
}

// setupTestRepo creates an empty repository on an in-memory filesystem.
func setupTestRepo(t *testing.T) *testRepo {
	t.Helper()

	ctx := context.Background()
	memFS := fsb.NewInMemoryFS()

	repo, err := Init(ctx, testOptions(memFS))
	require.NoError(t, err, "failed to initialize test repository")

	return &testRepo{repo: repo, fs: memFS, ctx: ctx}
}

// setupTestRepoWithCommit creates an in-memory repository whose main branch
// holds a single commit with README.md.
func setupTestRepoWithCommit(t *testing.T) *testRepo {
	t.Helper()

	tr := setupTestRepo(t)
	tr.writeFile(t, "README.md", "initial content")

	_, err := tr.repo.worktree.Add("README.md")
	require.NoError(t, err, "failed to add README.md")

	// Commit refuses an unborn HEAD, so the root commit goes through go-git.
	sig := &object.Signature{Name: "test", Email: "test@localhost", When: testEpoch}
	_, err = tr.repo.worktree.Commit("initial commit", &git.CommitOptions{Author: sig, Committer: sig})
	require.NoError(t, err, "failed to create initial commit")

	return tr
}

// requireGit skips tests that talk to on-disk remotes: go-git's file
// transport runs git-upload-pack and git-receive-pack.
func requireGit(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git executable not available")
	}
}

// setupBareRemote creates an empty bare repository on disk and returns its path.
func setupBareRemote(t *testing.T) string {
	t.Helper()
	requireGit(t)

	dir := filepath.Join(t.TempDir(), "origin.git")
	_, err := git.PlainInitWithOptions(dir, &git.PlainInitOptions{
		InitOptions: git.InitOptions{DefaultBranch: plumbing.NewBranchReferenceName(DefaultBranch)},
		Bare:        true,
	})
	require.NoError(t, err, "failed to create bare remote")
	return dir
}

// setupPublished creates a repository with one commit on main, published to
// a fresh bare remote named origin. It returns the repository and the remote path.
func setupPublished(t *testing.T) (*testRepo, string) {
	t.Helper()

	tr := setupTestRepoWithCommit(t)
	url := setupBareRemote(t)
	tr.addRemote(t, "origin", url)
	require.NoError(t, tr.repo.PushNewBranch(tr.ctx, "main"))
	return tr, url
}

// cloneTestRepo clones url into a new in-memory filesystem.
func cloneTestRepo(t *testing.T, url string) *testRepo {
	t.Helper()

	ctx := context.Background()
	memFS := fsb.NewInMemoryFS()

	repo, err := Clone(ctx, url, testOptions(memFS))
	require.NoError(t, err, "failed to clone %s", url)

	return &testRepo{repo: repo, fs: memFS, ctx: ctx}
}

func (tr *testRepo) writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, tr.fs.WriteFile(path, []byte(content), 0o644))
}

func (tr *testRepo) readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := tr.fs.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

// commitFile writes, stages and commits path, returning the commit hash.
func (tr *testRepo) commitFile(t *testing.T, path, content, msg string) string {
	t.Helper()

	tr.writeFile(t, path, content)
	require.NoError(t, tr.repo.Stage(tr.ctx, path))

	hash, err := tr.repo.Commit(tr.ctx, msg)
	require.NoError(t, err, "failed to commit %s", path)
	return hash
}

func (tr *testRepo) addRemote(t *testing.T, name, url string) {
	t.Helper()

	_, err := tr.repo.repo.CreateRemote(&config.RemoteConfig{Name: name, URLs: []string{url}})
	require.NoError(t, err, "failed to add remote %s", name)
}

// refHash returns the tip of a ref such as refs/heads/main.
func (tr *testRepo) refHash(t *testing.T, name plumbing.ReferenceName) string {
	t.Helper()

	ref, err := tr.repo.repo.Reference(name, true)
	require.NoError(t, err, "missing ref %s", name)
	return ref.Hash().String()
}

// remoteHash returns the tip of branch in the bare repository at url.
func remoteHash(t *testing.T, url, branch string) string {
	t.Helper()

	bare, err := git.PlainOpen(url)
	require.NoError(t, err)

	ref, err := bare.Reference(plumbing.NewBranchReferenceName(branch), true)
	require.NoError(t, err, "remote has no branch %s", branch)
	return ref.Hash().String()
}
