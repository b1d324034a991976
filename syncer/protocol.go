package syncer

import (
	"context"

	"github.com/b1zzu/scog/commitmsg"
	scogerr "github.com/b1zzu/scog/errors"
	"github.com/b1zzu/scog/journal"
	"github.com/b1zzu/scog/vcs"
)

// Pull fast-forwards the current branch and materializes the tracked paths
// on the host. Local edits that differ from the working copy are committed
// to a pushed backup branch first.
func (o *Orchestrator) Pull(ctx context.Context) (*Result, error) {
	s, err := o.begin(ctx, OperationPull)
	if err != nil {
		return nil, err
	}

	res := &Result{}
	err = o.reconcile(ctx, s, res)
	return o.end(ctx, s, res, err)
}

// Push commits the tracked paths on the current branch, runs the pull
// protocol and pushes the current branch to every remote.
func (o *Orchestrator) Push(ctx context.Context) (*Result, error) {
	s, err := o.begin(ctx, OperationPush)
	if err != nil {
		return nil, err
	}

	res := &Result{}
	err = o.push(ctx, s, res)
	return o.end(ctx, s, res, err)
}

func (o *Orchestrator) push(ctx context.Context, s *Session, res *Result) error {
	_, _, hash, err := o.commitTracked(ctx, func(files []string) (string, error) {
		return commitmsg.Sync(o.now(), files)
	})
	if err != nil {
		return err
	}
	res.SyncCommit = hash
	if hash != "" {
		o.log.Info().Str("branch", s.Original).Str("commit", hash).Msg("committed local changes")
	}

	if err := o.reconcile(ctx, s, res); err != nil {
		return err
	}

	branch, err := o.backend.ResolveBranch(ctx, s.Original)
	if err != nil {
		return err
	}
	if branch.Upstream == "" {
		err = o.backend.PushNewBranch(ctx, s.Original)
	} else {
		err = o.backend.PushBranch(ctx, s.Original)
	}
	if err != nil {
		return err
	}
	o.log.Info().Str("branch", s.Original).Msg("pushed")
	return nil
}

// begin validates the working copy and opens a session.
func (o *Orchestrator) begin(ctx context.Context, op Operation) (*Session, error) {
	s := &Session{ID: o.newID(), Operation: op, State: StateIdle}

	current, err := o.validate(ctx)
	if err != nil {
		return nil, err
	}
	s.Original = current
	s.State = StateValidated

	if o.journal != nil {
		if err := o.journal.Begin(ctx, o.journalEntry(s)); err != nil {
			return nil, err
		}
	}

	o.log.Debug().Str("session", s.ID).Str("operation", string(op)).Str("branch", current).Msg("session started")
	return s, nil
}

// validate refuses to run on a dirty working copy, on a backup branch, or
// while an earlier session left a backup branch behind. It never mutates
// the working copy.
func (o *Orchestrator) validate(ctx context.Context) (string, error) {
	dirty, err := o.backend.IsDirty(ctx)
	if err != nil {
		return "", err
	}
	if dirty {
		return "", scogerr.NewWithContext(scogerr.CodeRepositoryDirty,
			"repository has uncommitted changes", map[string]interface{}{"repo": o.root()})
	}

	current, err := o.backend.CurrentBranch(ctx)
	if err != nil {
		return "", err
	}
	if vcs.IsBackupBranch(current) {
		return "", scogerr.NewWithContext(scogerr.CodeOnBackupBranch,
			"current branch is a backup branch, run recover or checkout another branch",
			map[string]interface{}{"branch": current})
	}

	if err := o.checkOrphans(ctx); err != nil {
		return "", err
	}
	return current, nil
}

// checkOrphans fails when an unfinished session's backup branch still
// exists. Unfinished sessions without a live backup branch are closed.
func (o *Orchestrator) checkOrphans(ctx context.Context) error {
	if o.journal == nil {
		return nil
	}

	sessions, err := o.journal.Unfinished(ctx, o.root())
	if err != nil {
		return err
	}
	if len(sessions) == 0 {
		return nil
	}

	local, err := o.localBranches(ctx)
	if err != nil {
		return err
	}

	for _, e := range sessions {
		if e.Backup != "" && local[e.Backup] {
			return scogerr.NewWithContext(scogerr.CodeOrphanedBackup,
				"a previous run stopped while a backup branch was live, run recover",
				map[string]interface{}{"branch": e.Backup, "session": e.ID})
		}
		o.log.Debug().Str("session", e.ID).Msg("closing abandoned session")
		o.finishJournal(ctx, e.ID, journal.StatusAbandoned, "")
	}
	return nil
}

func (o *Orchestrator) localBranches(ctx context.Context) (map[string]bool, error) {
	branches, err := o.backend.Branches(ctx)
	if err != nil {
		return nil, err
	}
	local := make(map[string]bool, len(branches))
	for _, b := range branches {
		if !b.IsRemote() {
			local[b.Name] = true
		}
	}
	return local, nil
}

// reconcile runs the pull protocol from the fast-forward onwards.
func (o *Orchestrator) reconcile(ctx context.Context, s *Session, res *Result) error {
	if err := o.backend.PullFastForward(ctx, s.Original); err != nil {
		return err
	}

	backup := vcs.BackupBranchName(s.Original, o.now())
	if err := o.backend.CreateBranch(ctx, backup, ""); err != nil {
		return err
	}
	s.Backup = backup
	o.transition(ctx, s, StateBackedUp)
	o.log.Debug().Str("branch", backup).Msg("created backup branch")

	tracked, err := o.backupLocal(ctx, s, res)
	if err != nil {
		return o.abort(ctx, s, err)
	}
	o.transition(ctx, s, StateReconciled)

	if err := o.restore(ctx, s); err != nil {
		return err
	}
	o.transition(ctx, s, StateRestored)

	if err := o.mirror.CopyToHost(ctx, tracked); err != nil {
		return err
	}
	res.Tracked = tracked
	return nil
}

// backupLocal commits the host files on the backup branch and pushes it.
// It returns the tracked paths for the final copy back to the host.
func (o *Orchestrator) backupLocal(ctx context.Context, s *Session, res *Result) ([]string, error) {
	tracked, copied, hash, err := o.commitTracked(ctx, func(files []string) (string, error) {
		return commitmsg.Backup(s.Original, o.now(), files)
	})
	res.Copied = copied
	if err != nil {
		return nil, err
	}
	if hash == "" {
		o.log.Debug().Str("branch", s.Backup).Msg("no local changes")
		return tracked, nil
	}

	s.Committed = true
	res.BackupCommit = hash
	o.saveSession(ctx, s)

	if err := o.backend.PushNewBranch(ctx, s.Backup); err != nil {
		return nil, err
	}
	o.log.Info().Str("branch", s.Backup).Str("commit", hash).Msg("local changes saved to backup branch")
	return tracked, nil
}

// commitTracked copies the tracked paths into the working copy, stages them
// and commits when that left the working copy dirty. hash is empty when
// nothing changed.
func (o *Orchestrator) commitTracked(ctx context.Context, message func(files []string) (string, error)) (tracked, copied []string, hash string, err error) {
	tracked, err = o.tracked.Tracked(ctx)
	if err != nil {
		return nil, nil, "", err
	}

	copied, err = o.mirror.CopyToRepo(ctx, tracked)
	if err != nil {
		return tracked, nil, "", err
	}
	for _, p := range copied {
		if err := o.backend.Stage(ctx, p); err != nil {
			return tracked, copied, "", err
		}
	}

	dirty, err := o.backend.IsDirty(ctx)
	if err != nil {
		return tracked, copied, "", err
	}
	if !dirty {
		return tracked, copied, "", nil
	}

	msg, err := message(copied)
	if err != nil {
		return tracked, copied, "", err
	}
	hash, err = o.backend.Commit(ctx, msg)
	if err != nil {
		return tracked, copied, "", err
	}
	return tracked, copied, hash, nil
}

// restore checks out the original branch and deletes the backup branch
// unless it holds a commit.
func (o *Orchestrator) restore(ctx context.Context, s *Session) error {
	if err := o.backend.CheckoutBranch(ctx, s.Original); err != nil {
		return err
	}
	if s.Committed {
		o.log.Info().Str("branch", s.Backup).Msg("backup branch retained")
		return nil
	}
	if err := o.backend.DeleteBranch(ctx, s.Backup); err != nil {
		return err
	}
	o.log.Debug().Str("branch", s.Backup).Msg("deleted empty backup branch")
	return nil
}

// abort returns to the original branch after a failure on the backup
// branch. A dirty working copy stays on the backup branch for recover.
// cause is always returned.
func (o *Orchestrator) abort(ctx context.Context, s *Session, cause error) error {
	dirty, err := o.backend.IsDirty(ctx)
	if err != nil || dirty {
		o.log.Warn().Str("branch", s.Backup).Msg("working copy left on backup branch, run recover once it is clean")
		return cause
	}

	if err := o.restore(ctx, s); err != nil {
		o.log.Warn().Err(err).Str("branch", s.Original).Msg("failed to restore original branch")
		return cause
	}
	s.State = StateRestored
	return cause
}

// end closes the session. A session stopped on its backup branch stays
// open in the journal so the next run detects it.
func (o *Orchestrator) end(ctx context.Context, s *Session, res *Result, err error) (*Result, error) {
	if err == nil {
		o.transition(ctx, s, StateDone)
		o.finishJournal(ctx, s.ID, journal.StatusDone, "")
		res.Session = *s
		return res, nil
	}

	live := s.Backup != "" && s.State != StateRestored
	o.transition(ctx, s, StateFailed)
	if !live {
		o.finishJournal(ctx, s.ID, journal.StatusFailed, err.Error())
	}
	res.Session = *s
	return res, err
}
