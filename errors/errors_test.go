package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestError_Error(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{
			name: "message only",
			err:  New(CodeRepositoryDirty, "repository is dirty"),
			want: "repository is dirty",
		},
		{
			name: "context sorted by key",
			err: NewWithContext(CodeBranchNotFound, "branch not found", map[string]interface{}{
				"remote": "origin",
				"branch": "main",
			}),
			want: "branch not found (branch=main, remote=origin)",
		},
		{
			name: "cause appended",
			err: WrapWithContext(stderrors.New("exit status 1"), CodePushFailed, "push failed",
				map[string]interface{}{"branch": "main"}),
			want: "push failed (branch=main): exit status 1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.Error())
		})
	}
}

func TestWrap_NilIsNil(t *testing.T) {
	assert.NoError(t, Wrap(nil, CodeInternal, "x"))
	assert.NoError(t, WrapWithContext(nil, CodeInternal, "x", nil))
}

func TestIs_MatchesByCode(t *testing.T) {
	err := WrapWithContext(stderrors.New("boom"), CodeNotFastForward, "branch diverged",
		map[string]interface{}{"branch": "main"})
	wrapped := fmt.Errorf("pull: %w", err)

	assert.True(t, Is(wrapped, ErrNotFastForward))
	assert.False(t, Is(wrapped, ErrRepositoryDirty))
}

func TestIs_FindsInnerCode(t *testing.T) {
	inner := New(CodeBranchNotFound, "branch not found")
	outer := Wrap(inner, CodeCheckoutFailed, "checkout failed")

	assert.True(t, Is(outer, ErrCheckoutFailed))
	assert.True(t, Is(outer, ErrBranchNotFound))
}

func TestGetCode(t *testing.T) {
	inner := New(CodeBranchNotFound, "branch not found")
	outer := Wrap(inner, CodeCheckoutFailed, "checkout failed")

	assert.Equal(t, CodeCheckoutFailed, GetCode(outer))
	assert.Equal(t, CodeBranchNotFound, GetCode(inner))
	assert.Equal(t, CodeUnknown, GetCode(stderrors.New("plain")))
	assert.Equal(t, CodeUnknown, GetCode(nil))
}

func TestHasCode(t *testing.T) {
	inner := New(CodeBranchNotFound, "branch not found")
	outer := fmt.Errorf("ctx: %w", Wrap(inner, CodeCheckoutFailed, "checkout failed"))

	assert.True(t, HasCode(outer, CodeBranchNotFound))
	assert.True(t, HasCode(outer, CodeCheckoutFailed))
	assert.False(t, HasCode(outer, CodePushFailed))
	assert.False(t, HasCode(nil, CodePushFailed))
}

func TestAs(t *testing.T) {
	err := fmt.Errorf("ctx: %w", Newf(CodeLocked, "locked by pid %d", 42))

	var e *Error
	require.True(t, As(err, &e))
	assert.Equal(t, CodeLocked, e.Code)
	assert.Equal(t, "locked by pid 42", e.Message)
}
