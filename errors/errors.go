package errors

import (
	stderrors "errors"
	"fmt"
	"sort"
	"strings"
)

// Error is a coded error with optional context and an underlying cause.
type Error struct {
	// Code classifies the failure.
	Code ErrorCode

	// Message is the human readable description.
	Message string

	// Context holds diagnostic key/value pairs such as branch or path.
	Context map[string]interface{}

	// Cause is the wrapped error, if any.
	Cause error
}

// Sentinel errors for errors.Is comparisons. Matching is by code, so any
// *Error carrying the same code matches regardless of message or context.
var (
	ErrRepositoryDirty     = New(CodeRepositoryDirty, "repository is dirty")
	ErrOnBackupBranch      = New(CodeOnBackupBranch, "current branch is a backup branch")
	ErrOrphanedBackup      = New(CodeOrphanedBackup, "orphaned backup branch")
	ErrLocked              = New(CodeLocked, "working copy is locked")
	ErrBranchNotFound      = New(CodeBranchNotFound, "branch not found")
	ErrBranchExists        = New(CodeBranchExists, "branch already exists")
	ErrCheckoutFailed      = New(CodeCheckoutFailed, "checkout failed")
	ErrDeleteBranchFailed  = New(CodeDeleteBranchFailed, "delete branch failed")
	ErrNotFastForward      = New(CodeNotFastForward, "not a fast-forward")
	ErrStageFailed         = New(CodeStageFailed, "stage failed")
	ErrCommitFailed        = New(CodeCommitFailed, "commit failed")
	ErrFetchFailed         = New(CodeFetchFailed, "fetch failed")
	ErrPushFailed          = New(CodePushFailed, "push failed")
	ErrCloneFailed         = New(CodeCloneFailed, "clone failed")
	ErrCopyFailed          = New(CodeCopyFailed, "copy failed")
	ErrNotAFileOrDir       = New(CodeNotAFileOrDir, "not a file or directory")
	ErrDestinationConflict = New(CodeDestinationConflict, "destination conflict")
	ErrConfigLoadFailed    = New(CodeConfigLoadFailed, "config load failed")
	ErrInvalidInput        = New(CodeInvalidInput, "invalid input")
	ErrInternal            = New(CodeInternal, "internal error")
)

// New creates an error with the given code and message.
func New(code ErrorCode, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
	}
}

// Newf creates an error with the given code and a formatted message.
func Newf(code ErrorCode, format string, args ...interface{}) *Error {
	return New(code, fmt.Sprintf(format, args...))
}

// NewWithContext creates an error with the given code, message and context.
func NewWithContext(code ErrorCode, message string, ctx map[string]interface{}) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Context: ctx,
	}
}

// Wrap wraps err with a code and message. It returns nil if err is nil.
func Wrap(err error, code ErrorCode, message string) error {
	if err == nil {
		return nil
	}
	return &Error{
		Code:    code,
		Message: message,
		Cause:   err,
	}
}

// WrapWithContext wraps err with a code, message and diagnostic context.
// It returns nil if err is nil.
func WrapWithContext(err error, code ErrorCode, message string, ctx map[string]interface{}) error {
	if err == nil {
		return nil
	}
	return &Error{
		Code:    code,
		Message: message,
		Context: ctx,
		Cause:   err,
	}
}

// Error implements the error interface.
// The format is "message (k=v, ...): cause" with context keys sorted.
func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Message)

	if len(e.Context) > 0 {
		keys := make([]string, 0, len(e.Context))
		for k := range e.Context {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		pairs := make([]string, 0, len(keys))
		for _, k := range keys {
			pairs = append(pairs, fmt.Sprintf("%s=%v", k, e.Context[k]))
		}
		b.WriteString(" (")
		b.WriteString(strings.Join(pairs, ", "))
		b.WriteString(")")
	}

	if e.Cause != nil {
		b.WriteString(": ")
		b.WriteString(e.Cause.Error())
	}

	return b.String()
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target is an *Error with the same code.
func (e *Error) Is(target error) bool {
	var t *Error
	if !stderrors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

// GetCode returns the code of the outermost *Error in err's chain,
// or CodeUnknown if there is none.
func GetCode(err error) ErrorCode {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Code
	}
	return CodeUnknown
}

// HasCode reports whether any *Error in err's chain carries code.
func HasCode(err error, code ErrorCode) bool {
	for err != nil {
		if e, ok := err.(*Error); ok && e.Code == code {
			return true
		}
		err = stderrors.Unwrap(err)
	}
	return false
}

// Is is a convenience re-export of the standard library errors.Is.
func Is(err, target error) bool {
	return stderrors.Is(err, target)
}

// As is a convenience re-export of the standard library errors.As.
func As(err error, target interface{}) bool {
	return stderrors.As(err, target)
}
