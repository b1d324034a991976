// Package syncer implements the pull and push protocols that keep tracked
// host files and a version-controlled repository in sync.
//
// Every run that touches host files first records them on a disposable
// backup branch. The backup branch is pushed when it received a commit, so
// local edits survive even when the run fails partway through; it is deleted
// again when there was nothing to record.
//
//	o, err := syncer.New(&syncer.Options{
//	    Backend: repo,
//	    Mirror:  mirror.New(hostFS, repoFS),
//	    Tracked: config.Source{FS: repoFS, Path: config.DefaultConfigName},
//	})
//	if err != nil {
//	    return err
//	}
//	res, err := o.Pull(ctx)
package syncer

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	scogerr "github.com/b1zzu/scog/errors"
	"github.com/b1zzu/scog/journal"
	"github.com/b1zzu/scog/vcs"
)

// Mirror copies tracked paths between the host and the working copy.
type Mirror interface {
	CopyToRepo(ctx context.Context, tracked []string) ([]string, error)
	CopyToHost(ctx context.Context, tracked []string) error
}

// TrackedSource provides the tracked host paths. It is consulted after the
// fast-forward, so configuration changes pulled from upstream apply at once.
type TrackedSource interface {
	Tracked(ctx context.Context) ([]string, error)
}

// Journal persists session progress across invocations.
type Journal interface {
	Begin(ctx context.Context, e journal.Entry) error
	Update(ctx context.Context, e journal.Entry) error
	Finish(ctx context.Context, id string, status journal.Status, message string) error
	Unfinished(ctx context.Context, repo string) ([]journal.Entry, error)
}

// Options configures an Orchestrator.
type Options struct {
	// Backend is the REQUIRED working copy.
	Backend vcs.Backend

	// Mirror is the REQUIRED file mirror between host and working copy.
	Mirror Mirror

	// Tracked is the REQUIRED source of tracked paths.
	Tracked TrackedSource

	// Journal records sessions. Orphaned backup detection is disabled when nil.
	Journal Journal

	// Now names backup branches and stamps commit messages. Defaults to time.Now.
	Now func() time.Time

	// NewID generates session identifiers. Defaults to random UUIDs.
	NewID func() string

	// Logger receives progress output. Defaults to a disabled logger.
	Logger *zerolog.Logger
}

// Validate checks that the Options are properly configured.
func (o *Options) Validate() error {
	switch {
	case o.Backend == nil:
		return scogerr.New(scogerr.CodeInvalidInput, "Backend is required")
	case o.Mirror == nil:
		return scogerr.New(scogerr.CodeInvalidInput, "Mirror is required")
	case o.Tracked == nil:
		return scogerr.New(scogerr.CodeInvalidInput, "Tracked is required")
	}
	return nil
}

func (o *Options) applyDefaults() {
	if o.Now == nil {
		o.Now = time.Now
	}

	if o.NewID == nil {
		o.NewID = uuid.NewString
	}

	if o.Logger == nil {
		l := zerolog.Nop()
		o.Logger = &l
	}
}

// Orchestrator sequences backend and mirror calls for one working copy.
// It is not safe for concurrent use; callers serialize runs with package lock.
type Orchestrator struct {
	backend vcs.Backend
	mirror  Mirror
	tracked TrackedSource
	journal Journal
	now     func() time.Time
	newID   func() string
	log     zerolog.Logger
}

// New creates an Orchestrator.
func New(opts *Options) (*Orchestrator, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	o := *opts
	o.applyDefaults()

	return &Orchestrator{
		backend: o.Backend,
		mirror:  o.Mirror,
		tracked: o.Tracked,
		journal: o.Journal,
		now:     o.Now,
		newID:   o.NewID,
		log:     o.Logger.With().Str("repo", o.Backend.Root()).Logger(),
	}, nil
}

// Operation names a sync protocol.
type Operation string

const (
	OperationPull Operation = "pull"
	OperationPush Operation = "push"
)

// State is a step of the sync state machine.
type State string

const (
	StateIdle       State = "idle"
	StateValidated  State = "validated"
	StateBackedUp   State = "backed-up"
	StateReconciled State = "reconciled"
	StateRestored   State = "restored"
	StateDone       State = "done"
	StateFailed     State = "failed"
)

// Session is the progress of one pull or push.
type Session struct {
	ID        string
	Operation Operation

	// Original is the branch checked out when the run started.
	Original string

	// Backup is the backup branch, empty until it is created.
	Backup string

	// Committed reports whether the backup branch received a commit.
	Committed bool

	State State
}

// Result describes a completed run.
type Result struct {
	Session Session

	// SyncCommit is the commit of host files made on the original branch by
	// a push, empty when there was nothing to commit.
	SyncCommit string

	// BackupCommit is the commit on the backup branch, empty when the
	// backup branch was deleted.
	BackupCommit string

	// Copied lists the repository paths copied from the host.
	Copied []string

	// Tracked lists the host paths restored from the working copy.
	Tracked []string
}

// BackupRetained reports whether the backup branch was kept.
func (r *Result) BackupRetained() bool {
	return r.Session.Committed
}

func (o *Orchestrator) root() string {
	return o.backend.Root()
}

// journalEntry mirrors s into a journal entry.
func (o *Orchestrator) journalEntry(s *Session) journal.Entry {
	return journal.Entry{
		ID:        s.ID,
		Repo:      o.root(),
		Operation: string(s.Operation),
		Branch:    s.Original,
		Backup:    s.Backup,
		State:     string(s.State),
		Committed: s.Committed,
	}
}

// transition moves s to state and records it. Journal failures are logged
// and never abort the run.
func (o *Orchestrator) transition(ctx context.Context, s *Session, state State) {
	s.State = state
	o.log.Debug().Str("session", s.ID).Str("state", string(state)).Msg("state changed")
	o.saveSession(ctx, s)
}

// saveSession writes the session's current fields to the journal.
func (o *Orchestrator) saveSession(ctx context.Context, s *Session) {
	if o.journal == nil {
		return
	}
	if err := o.journal.Update(ctx, o.journalEntry(s)); err != nil {
		o.log.Warn().Err(err).Str("session", s.ID).Msg("failed to update journal")
	}
}

func (o *Orchestrator) finishJournal(ctx context.Context, id string, status journal.Status, message string) {
	if o.journal == nil {
		return
	}
	if err := o.journal.Finish(ctx, id, status, message); err != nil {
		o.log.Warn().Err(err).Str("session", id).Msg("failed to finish journal session")
	}
}
