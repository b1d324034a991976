package vcs

import (
	"fmt"
	"regexp"
	"strconv"
	"time"
)

const (
	// BackupPrefix marks a branch as a backup branch.
	BackupPrefix = "_backup_"

	// backupTimeLayout is followed by "_<microseconds>" zero padded to six digits.
	backupTimeLayout = "2006-01-02_15-04-05"
)

var backupPattern = regexp.MustCompile(`^_backup_(.+)_(\d{4}-\d{2}-\d{2}_\d{2}-\d{2}-\d{2})_(\d{6})$`)

// Backup is the information encoded in a backup branch name.
type Backup struct {
	// Name is the full branch name.
	Name string

	// Source is the branch the backup was taken from.
	Source string

	// Time is when the backup was taken, in the local time zone.
	Time time.Time
}

// BackupBranchName returns the backup branch name for source at t:
// _backup_<source>_<YYYY-MM-DD>_<HH-MM-SS>_<microseconds>, in local time.
func BackupBranchName(source string, t time.Time) string {
	t = t.Local()
	return fmt.Sprintf("%s%s_%s_%06d", BackupPrefix, source, t.Format(backupTimeLayout), t.Nanosecond()/int(time.Microsecond))
}

// IsBackupBranch reports whether name is a backup branch.
// Anything starting with the backup prefix counts, well formed or not.
func IsBackupBranch(name string) bool {
	return len(name) >= len(BackupPrefix) && name[:len(BackupPrefix)] == BackupPrefix
}

// ParseBackupBranch decodes a well formed backup branch name.
func ParseBackupBranch(name string) (Backup, bool) {
	m := backupPattern.FindStringSubmatch(name)
	if m == nil {
		return Backup{}, false
	}

	ts, err := time.ParseInLocation(backupTimeLayout, m[2], time.Local)
	if err != nil {
		return Backup{}, false
	}
	micros, err := strconv.Atoi(m[3])
	if err != nil {
		return Backup{}, false
	}

	return Backup{
		Name:   name,
		Source: m[1],
		Time:   ts.Add(time.Duration(micros) * time.Microsecond),
	}, true
}
