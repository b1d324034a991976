package git

import (
	"testing"

	"github.com/go-git/go-git/v5/plumbing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	scogerr "github.com/b1zzu/scog/errors"
	"github.com/b1zzu/scog/vcs"
)

func TestCurrentBranch(t *testing.T) {
	tests := []struct {
		name     string
		setup    func(t *testing.T) *testRepo
		want     string
		wantCode scogerr.ErrorCode
	}{
		{
			name:  "default branch",
			setup: setupTestRepoWithCommit,
			want:  "main",
		},
		{
			name: "after creating a branch",
			setup: func(t *testing.T) *testRepo {
				tr := setupTestRepoWithCommit(t)
				require.NoError(t, tr.repo.CreateBranch(tr.ctx, "feature", ""))
				return tr
			},
			want: "feature",
		},
		{
			name: "detached head",
			setup: func(t *testing.T) *testRepo {
				tr := setupTestRepoWithCommit(t)
				head, err := tr.repo.repo.Head()
				require.NoError(t, err)
				require.NoError(t, tr.repo.repo.Storer.SetReference(
					plumbing.NewHashReference(plumbing.HEAD, head.Hash())))
				return tr
			},
			wantCode: scogerr.CodeInternal,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := tt.setup(t)

			got, err := tr.repo.CurrentBranch(tr.ctx)
			if tt.wantCode != "" {
				require.Error(t, err)
				assert.Equal(t, tt.wantCode, scogerr.GetCode(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCreateBranch(t *testing.T) {
	t.Run("creates at head and switches", func(t *testing.T) {
		tr := setupTestRepoWithCommit(t)
		head := tr.refHash(t, "refs/heads/main")

		require.NoError(t, tr.repo.CreateBranch(tr.ctx, "feature", ""))

		current, err := tr.repo.CurrentBranch(tr.ctx)
		require.NoError(t, err)
		assert.Equal(t, "feature", current)
		assert.Equal(t, head, tr.refHash(t, "refs/heads/feature"))
	})

	t.Run("creates at base", func(t *testing.T) {
		tr := setupTestRepoWithCommit(t)
		first := tr.refHash(t, "refs/heads/main")
		tr.commitFile(t, "second.txt", "two", "second commit")

		require.NoError(t, tr.repo.CreateBranch(tr.ctx, "old", first))
		assert.Equal(t, first, tr.refHash(t, "refs/heads/old"))

		_, err := tr.fs.Stat("second.txt")
		assert.Error(t, err, "worktree should match the base commit")
	})

	t.Run("existing branch", func(t *testing.T) {
		tr := setupTestRepoWithCommit(t)

		err := tr.repo.CreateBranch(tr.ctx, "main", "")
		require.Error(t, err)
		assert.True(t, scogerr.Is(err, scogerr.ErrBranchExists))
	})

	t.Run("unknown base", func(t *testing.T) {
		tr := setupTestRepoWithCommit(t)

		err := tr.repo.CreateBranch(tr.ctx, "feature", "does-not-exist")
		require.Error(t, err)
		assert.Equal(t, scogerr.CodeBranchNotFound, scogerr.GetCode(err))
	})

	t.Run("invalid name", func(t *testing.T) {
		tr := setupTestRepoWithCommit(t)

		err := tr.repo.CreateBranch(tr.ctx, "bad..name", "")
		require.Error(t, err)
		assert.Equal(t, scogerr.CodeInvalidInput, scogerr.GetCode(err))
	})
}

func TestResolveBranch(t *testing.T) {
	seed, url := setupPublished(t)
	seed.commitFile(t, "x.txt", "x", "x")
	require.NoError(t, seed.repo.CreateBranch(seed.ctx, "laptop", ""))
	require.NoError(t, seed.repo.PushNewBranch(seed.ctx, "laptop"))

	clone := cloneTestRepo(t, url)

	t.Run("local branch wins", func(t *testing.T) {
		b, err := clone.repo.ResolveBranch(clone.ctx, "main")
		require.NoError(t, err)
		assert.False(t, b.IsRemote())
		assert.Equal(t, "main", b.Name)
	})

	t.Run("remote only branch", func(t *testing.T) {
		b, err := clone.repo.ResolveBranch(clone.ctx, "laptop")
		require.NoError(t, err)
		assert.Equal(t, "origin", b.Remote)
		assert.Equal(t, seed.refHash(t, "refs/heads/laptop"), b.Hash)
	})

	t.Run("missing", func(t *testing.T) {
		_, err := clone.repo.ResolveBranch(clone.ctx, "desktop")
		require.Error(t, err)
		assert.True(t, scogerr.Is(err, scogerr.ErrBranchNotFound))
	})

	t.Run("empty name", func(t *testing.T) {
		_, err := clone.repo.ResolveBranch(clone.ctx, "")
		require.Error(t, err)
		assert.Equal(t, scogerr.CodeInvalidInput, scogerr.GetCode(err))
	})
}

func TestCheckoutBranch(t *testing.T) {
	t.Run("local branch", func(t *testing.T) {
		tr := setupTestRepoWithCommit(t)
		require.NoError(t, tr.repo.CreateBranch(tr.ctx, "feature", ""))
		tr.commitFile(t, "feature.txt", "f", "feature commit")

		require.NoError(t, tr.repo.CheckoutBranch(tr.ctx, "main"))

		current, err := tr.repo.CurrentBranch(tr.ctx)
		require.NoError(t, err)
		assert.Equal(t, "main", current)
		_, err = tr.fs.Stat("feature.txt")
		assert.Error(t, err)
	})

	t.Run("remote only branch becomes tracking branch", func(t *testing.T) {
		seed, url := setupPublished(t)
		require.NoError(t, seed.repo.CreateBranch(seed.ctx, "laptop", ""))
		seed.commitFile(t, "laptop.txt", "l", "laptop commit")
		require.NoError(t, seed.repo.PushNewBranch(seed.ctx, "laptop"))

		clone := cloneTestRepo(t, url)
		require.NoError(t, clone.repo.CheckoutBranch(clone.ctx, "laptop"))

		current, err := clone.repo.CurrentBranch(clone.ctx)
		require.NoError(t, err)
		assert.Equal(t, "laptop", current)
		assert.Equal(t, "l", clone.readFile(t, "laptop.txt"))

		b, err := clone.repo.ResolveBranch(clone.ctx, "laptop")
		require.NoError(t, err)
		assert.False(t, b.IsRemote())
		assert.Equal(t, "origin/laptop", b.Upstream)
	})

	t.Run("missing branch", func(t *testing.T) {
		tr := setupTestRepoWithCommit(t)

		err := tr.repo.CheckoutBranch(tr.ctx, "nope")
		require.Error(t, err)
		assert.Equal(t, scogerr.CodeBranchNotFound, scogerr.GetCode(err))
	})
}

func TestDeleteBranch(t *testing.T) {
	t.Run("deletes branch and tracking config", func(t *testing.T) {
		tr, _ := setupPublished(t)
		require.NoError(t, tr.repo.CreateBranch(tr.ctx, "backup", ""))
		require.NoError(t, tr.repo.PushNewBranch(tr.ctx, "backup"))
		require.NoError(t, tr.repo.CheckoutBranch(tr.ctx, "main"))

		require.NoError(t, tr.repo.DeleteBranch(tr.ctx, "backup"))

		_, err := tr.repo.repo.Reference(plumbing.NewBranchReferenceName("backup"), true)
		assert.ErrorIs(t, err, plumbing.ErrReferenceNotFound)

		cfg, err := tr.repo.repo.Config()
		require.NoError(t, err)
		assert.NotContains(t, cfg.Branches, "backup")
	})

	t.Run("checked out branch", func(t *testing.T) {
		tr := setupTestRepoWithCommit(t)

		err := tr.repo.DeleteBranch(tr.ctx, "main")
		require.Error(t, err)
		assert.True(t, scogerr.Is(err, scogerr.ErrDeleteBranchFailed))
	})

	t.Run("missing branch", func(t *testing.T) {
		tr := setupTestRepoWithCommit(t)

		err := tr.repo.DeleteBranch(tr.ctx, "nope")
		require.Error(t, err)
		assert.Equal(t, scogerr.CodeDeleteBranchFailed, scogerr.GetCode(err))
	})
}

func TestBranches(t *testing.T) {
	seed, url := setupPublished(t)
	require.NoError(t, seed.repo.CreateBranch(seed.ctx, "laptop", ""))
	require.NoError(t, seed.repo.PushNewBranch(seed.ctx, "laptop"))

	clone := cloneTestRepo(t, url)
	require.NoError(t, clone.repo.CreateBranch(clone.ctx, "local-only", ""))

	branches, err := clone.repo.Branches(clone.ctx)
	require.NoError(t, err)

	var names []string
	for _, b := range branches {
		names = append(names, b.FullName())
	}
	assert.Equal(t, []string{"local-only", "main", "origin/laptop", "origin/main"}, names)

	assert.Equal(t, vcs.Branch{
		Name:     "main",
		Hash:     seed.refHash(t, "refs/heads/main"),
		Upstream: "origin/main",
	}, branches[1])
}

func TestSplitRemoteRef(t *testing.T) {
	ref := plumbing.NewHashReference("refs/remotes/team/shared/main", plumbing.ZeroHash)

	b, ok := splitRemoteRef(ref, []string{"team", "team/shared"})
	require.True(t, ok)
	assert.Equal(t, "team/shared", b.Remote)
	assert.Equal(t, "main", b.Name)

	_, ok = splitRemoteRef(ref, []string{"origin"})
	assert.False(t, ok)
}
