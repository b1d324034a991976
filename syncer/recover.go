package syncer

import (
	"context"
	"sort"
	"time"

	scogerr "github.com/b1zzu/scog/errors"
	"github.com/b1zzu/scog/journal"
	"github.com/b1zzu/scog/vcs"
)

// Checkout fetches every remote and switches to name. With create, a branch
// that exists nowhere is created at HEAD.
func (o *Orchestrator) Checkout(ctx context.Context, name string, create bool) error {
	if name == "" {
		return scogerr.New(scogerr.CodeInvalidInput, "branch name is required")
	}

	dirty, err := o.backend.IsDirty(ctx)
	if err != nil {
		return err
	}
	if dirty {
		return scogerr.NewWithContext(scogerr.CodeRepositoryDirty,
			"repository has uncommitted changes", map[string]interface{}{"repo": o.root()})
	}

	if err := o.backend.FetchAll(ctx); err != nil {
		return err
	}

	err = o.backend.CheckoutBranch(ctx, name)
	if err != nil && create && scogerr.Is(err, scogerr.ErrBranchNotFound) {
		o.log.Debug().Str("branch", name).Msg("branch not found, creating it")
		err = o.backend.CreateBranch(ctx, name, "")
	}
	if err != nil {
		return err
	}

	o.log.Info().Str("branch", name).Msg("switched branch")
	return nil
}

// RecoverResult describes what Recover did.
type RecoverResult struct {
	// Restored is the branch checked out, empty when HEAD was not on a
	// backup branch.
	Restored string

	// Backup is the backup branch HEAD was on, if any. It is never deleted.
	Backup string

	// Sessions are the journal sessions marked recovered.
	Sessions []journal.Entry
}

// Recover resolves the state left behind by an interrupted run: when HEAD
// is on a clean backup branch it checks out the branch the backup was taken
// from, and every unfinished journal session is marked recovered.
func (o *Orchestrator) Recover(ctx context.Context) (*RecoverResult, error) {
	res := &RecoverResult{}

	current, err := o.backend.CurrentBranch(ctx)
	if err != nil {
		return nil, err
	}

	if vcs.IsBackupBranch(current) {
		backup, ok := vcs.ParseBackupBranch(current)
		if !ok {
			return nil, scogerr.NewWithContext(scogerr.CodeInvalidInput,
				"cannot tell which branch the backup was taken from", map[string]interface{}{"branch": current})
		}

		dirty, err := o.backend.IsDirty(ctx)
		if err != nil {
			return nil, err
		}
		if dirty {
			return nil, scogerr.NewWithContext(scogerr.CodeRepositoryDirty,
				"commit or discard the changes on the backup branch first", map[string]interface{}{"branch": current})
		}

		if err := o.backend.CheckoutBranch(ctx, backup.Source); err != nil {
			return nil, err
		}
		res.Backup = current
		res.Restored = backup.Source
		o.log.Info().Str("branch", backup.Source).Str("backup", current).Msg("restored branch")
	}

	if o.journal == nil {
		return res, nil
	}

	sessions, err := o.journal.Unfinished(ctx, o.root())
	if err != nil {
		return nil, err
	}
	for _, e := range sessions {
		if err := o.journal.Finish(ctx, e.ID, journal.StatusRecovered, ""); err != nil {
			return nil, err
		}
		e.Status = journal.StatusRecovered
		res.Sessions = append(res.Sessions, e)
	}

	return res, nil
}

// BackupInfo is a backup branch known locally or on remotes.
type BackupInfo struct {
	Name   string
	Source string
	Time   time.Time

	// Local reports whether a local branch exists.
	Local bool

	// Remotes lists the remotes holding the branch.
	Remotes []string

	// Hash is the local tip, or the first remote tip when there is no local branch.
	Hash string
}

// Backups lists backup branches, newest first. Branches with the backup
// prefix whose name cannot be decoded are listed with a zero Time.
func (o *Orchestrator) Backups(ctx context.Context) ([]BackupInfo, error) {
	branches, err := o.backend.Branches(ctx)
	if err != nil {
		return nil, err
	}

	byName := map[string]*BackupInfo{}
	var order []string
	for _, b := range branches {
		if !vcs.IsBackupBranch(b.Name) {
			continue
		}

		info, ok := byName[b.Name]
		if !ok {
			info = &BackupInfo{Name: b.Name}
			if parsed, ok := vcs.ParseBackupBranch(b.Name); ok {
				info.Source = parsed.Source
				info.Time = parsed.Time
			}
			byName[b.Name] = info
			order = append(order, b.Name)
		}

		if b.IsRemote() {
			info.Remotes = append(info.Remotes, b.Remote)
			if info.Hash == "" {
				info.Hash = b.Hash
			}
			continue
		}
		info.Local = true
		info.Hash = b.Hash
	}

	out := make([]BackupInfo, 0, len(order))
	for _, name := range order {
		out = append(out, *byName[name])
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].Time.Equal(out[j].Time) {
			return out[i].Time.After(out[j].Time)
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}
