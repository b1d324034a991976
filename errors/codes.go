// Package errors provides the coded error taxonomy used across scog.
// It extends Go's standard error handling with stable error codes, wrapping
// that preserves errors.Is/errors.As, and a context map carrying the details
// (branch, path, remote) an operator needs to diagnose a failed sync by hand.
package errors

// ErrorCode identifies a specific failure condition.
// Error codes are string-based for debuggability and stable log output.
type ErrorCode string

const (
	// Repository state errors.

	// CodeRepositoryDirty indicates the working tree or index differs from HEAD.
	CodeRepositoryDirty ErrorCode = "REPOSITORY_DIRTY"

	// CodeOnBackupBranch indicates HEAD is on a backup branch.
	CodeOnBackupBranch ErrorCode = "ON_BACKUP_BRANCH"

	// CodeOrphanedBackup indicates a previous run stopped while a backup branch was live.
	CodeOrphanedBackup ErrorCode = "ORPHANED_BACKUP"

	// CodeLocked indicates another invocation holds the working copy lock.
	CodeLocked ErrorCode = "LOCKED"

	// Branch errors.

	// CodeBranchNotFound indicates no local or remote branch matches a name.
	CodeBranchNotFound ErrorCode = "BRANCH_NOT_FOUND"

	// CodeBranchExists indicates a branch cannot be created because it exists.
	CodeBranchExists ErrorCode = "BRANCH_EXISTS"

	// CodeCheckoutFailed indicates the working tree could not be switched.
	CodeCheckoutFailed ErrorCode = "CHECKOUT_FAILED"

	// CodeDeleteBranchFailed indicates a local branch could not be removed.
	CodeDeleteBranchFailed ErrorCode = "DELETE_BRANCH_FAILED"

	// History errors.

	// CodeNotFastForward indicates local history diverged from its upstream.
	CodeNotFastForward ErrorCode = "NOT_FAST_FORWARD"

	// CodeStageFailed indicates a path could not be added to the index.
	CodeStageFailed ErrorCode = "STAGE_FAILED"

	// CodeCommitFailed indicates a commit could not be created.
	CodeCommitFailed ErrorCode = "COMMIT_FAILED"

	// Remote errors.

	// CodeFetchFailed indicates fetching from a remote failed.
	CodeFetchFailed ErrorCode = "FETCH_FAILED"

	// CodePushFailed indicates pushing to a remote failed.
	CodePushFailed ErrorCode = "PUSH_FAILED"

	// CodeCloneFailed indicates the repository could not be cloned.
	CodeCloneFailed ErrorCode = "CLONE_FAILED"

	// File errors.

	// CodeCopyFailed indicates a file I/O operation failed while mirroring.
	CodeCopyFailed ErrorCode = "COPY_FAILED"

	// CodeNotAFileOrDir indicates a tracked path is neither a regular file nor a directory.
	CodeNotAFileOrDir ErrorCode = "NOT_A_FILE_OR_DIR"

	// CodeDestinationConflict indicates a file/directory kind mismatch at the destination.
	CodeDestinationConflict ErrorCode = "DESTINATION_CONFLICT"

	// Configuration errors.

	// CodeConfigLoadFailed indicates the tracked-file configuration could not be loaded.
	CodeConfigLoadFailed ErrorCode = "CONFIG_LOAD_FAILED"

	// Generic errors.

	// CodeInvalidInput indicates the provided input is invalid or malformed.
	CodeInvalidInput ErrorCode = "INVALID_INPUT"

	// CodeInternal indicates an internal error occurred.
	CodeInternal ErrorCode = "INTERNAL_ERROR"

	// CodeUnknown indicates an unknown or unclassified error occurred.
	CodeUnknown ErrorCode = "UNKNOWN"
)
