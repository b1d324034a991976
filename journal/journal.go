// Package journal records sync sessions in a SQLite database so that a run
// interrupted while a backup branch was live can be detected and recovered
// by a later invocation.
package journal

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	scogerr "github.com/b1zzu/scog/errors"
)

// Status is the lifecycle status of a session.
type Status string

const (
	// StatusOpen marks a session that has not finished.
	StatusOpen Status = "open"

	// StatusDone marks a session that completed successfully.
	StatusDone Status = "done"

	// StatusFailed marks a session that failed after restoring the original branch.
	StatusFailed Status = "failed"

	// StatusRecovered marks a session closed by an explicit recover.
	StatusRecovered Status = "recovered"

	// StatusAbandoned marks an open session whose backup branch no longer exists.
	StatusAbandoned Status = "abandoned"
)

// Entry is one recorded session.
type Entry struct {
	ID        string
	Repo      string
	Operation string
	Branch    string
	Backup    string
	State     string
	Committed bool
	Status    Status
	Error     string

	StartedAt  time.Time
	UpdatedAt  time.Time
	FinishedAt time.Time
}

// Store is a session journal backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
	now  func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the clock used for timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// Open opens or creates the journal at path, creating parent directories.
func Open(ctx context.Context, path string, opts ...Option) (*Store, error) {
	if path == "" {
		return nil, scogerr.New(scogerr.CodeInvalidInput, "journal path is required")
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, journalErr(err, "failed to create journal directory", path)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, journalErr(err, "failed to open journal", path)
	}
	db.SetMaxOpenConns(1)

	s := &Store{db: db, path: path, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}

	if err := s.init(ctx); err != nil {
		_ = db.Close()
		return nil, journalErr(err, "failed to initialize journal", path)
	}

	return s, nil
}

func (s *Store) init(ctx context.Context) error {
	ddl := []string{
		`PRAGMA journal_mode=WAL;`,
		`CREATE TABLE IF NOT EXISTS sessions (
			id TEXT PRIMARY KEY,
			repo TEXT NOT NULL,
			operation TEXT NOT NULL,
			branch TEXT NOT NULL,
			backup TEXT NOT NULL DEFAULT '',
			state TEXT NOT NULL,
			committed INTEGER NOT NULL DEFAULT 0,
			status TEXT NOT NULL,
			error TEXT NOT NULL DEFAULT '',
			started_at TEXT NOT NULL,
			updated_at TEXT NOT NULL,
			finished_at TEXT
		);`,
		`CREATE INDEX IF NOT EXISTS idx_sessions_repo_status ON sessions(repo, status);`,
	}

	for _, stmt := range ddl {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}

	return nil
}

// Path returns the database file.
func (s *Store) Path() string {
	return s.path
}

// Close closes the database.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Begin records a new open session.
func (s *Store) Begin(ctx context.Context, e Entry) error {
	if e.ID == "" || e.Repo == "" {
		return scogerr.New(scogerr.CodeInvalidInput, "session id and repository are required")
	}

	now := s.now()
	started := e.StartedAt
	if started.IsZero() {
		started = now
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sessions (id, repo, operation, branch, backup, state, committed, status, started_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID,
		e.Repo,
		e.Operation,
		e.Branch,
		e.Backup,
		e.State,
		e.Committed,
		string(StatusOpen),
		formatTime(started),
		formatTime(now),
	)
	if err != nil {
		return journalErr(err, "failed to record session", s.path, "session", e.ID)
	}
	return nil
}

// Update stores the progress of an open session: its state, backup branch
// and whether the backup branch received a commit.
func (s *Store) Update(ctx context.Context, e Entry) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE sessions
		SET state = ?, backup = ?, committed = ?, updated_at = ?
		WHERE id = ?`,
		e.State,
		e.Backup,
		e.Committed,
		formatTime(s.now()),
		e.ID,
	)
	if err != nil {
		return journalErr(err, "failed to update session", s.path, "session", e.ID)
	}
	return requireRow(res, e.ID)
}

// Finish closes a session with status and an optional error message.
func (s *Store) Finish(ctx context.Context, id string, status Status, message string) error {
	now := formatTime(s.now())
	res, err := s.db.ExecContext(ctx, `
		UPDATE sessions
		SET status = ?, error = ?, updated_at = ?, finished_at = ?
		WHERE id = ?`,
		string(status),
		message,
		now,
		now,
		id,
	)
	if err != nil {
		return journalErr(err, "failed to finish session", s.path, "session", id)
	}
	return requireRow(res, id)
}

// Get returns one session.
func (s *Store) Get(ctx context.Context, id string) (*Entry, error) {
	rows, err := s.db.QueryContext(ctx, selectSessions+` WHERE id = ?`, id)
	if err != nil {
		return nil, journalErr(err, "failed to read session", s.path, "session", id)
	}
	entries, err := scanEntries(rows)
	if err != nil {
		return nil, journalErr(err, "failed to read session", s.path, "session", id)
	}
	if len(entries) == 0 {
		return nil, scogerr.NewWithContext(scogerr.CodeInvalidInput, "unknown session", map[string]interface{}{"session": id})
	}
	return &entries[0], nil
}

// Unfinished returns the open sessions of repo, oldest first.
func (s *Store) Unfinished(ctx context.Context, repo string) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx, selectSessions+`
		WHERE repo = ? AND status = ?
		ORDER BY started_at, id`,
		repo,
		string(StatusOpen),
	)
	if err != nil {
		return nil, journalErr(err, "failed to list sessions", s.path, "repo", repo)
	}
	entries, err := scanEntries(rows)
	if err != nil {
		return nil, journalErr(err, "failed to list sessions", s.path, "repo", repo)
	}
	return entries, nil
}

// Recent returns up to limit sessions of repo, newest first.
func (s *Store) Recent(ctx context.Context, repo string, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, selectSessions+`
		WHERE repo = ?
		ORDER BY started_at DESC, id DESC
		LIMIT ?`,
		repo,
		limit,
	)
	if err != nil {
		return nil, journalErr(err, "failed to list sessions", s.path, "repo", repo)
	}
	entries, err := scanEntries(rows)
	if err != nil {
		return nil, journalErr(err, "failed to list sessions", s.path, "repo", repo)
	}
	return entries, nil
}

const selectSessions = `
	SELECT id, repo, operation, branch, backup, state, committed, status, error, started_at, updated_at, finished_at
	FROM sessions`

func scanEntries(rows *sql.Rows) ([]Entry, error) {
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			e                Entry
			status           string
			started, updated string
			finished         sql.NullString
		)
		if err := rows.Scan(&e.ID, &e.Repo, &e.Operation, &e.Branch, &e.Backup, &e.State,
			&e.Committed, &status, &e.Error, &started, &updated, &finished); err != nil {
			return nil, err
		}
		e.Status = Status(status)

		var err error
		if e.StartedAt, err = parseTime(started); err != nil {
			return nil, err
		}
		if e.UpdatedAt, err = parseTime(updated); err != nil {
			return nil, err
		}
		if finished.Valid {
			if e.FinishedAt, err = parseTime(finished.String); err != nil {
				return nil, err
			}
		}

		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func requireRow(res sql.Result, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return journalErr(err, "failed to read update result", "", "session", id)
	}
	if n == 0 {
		return scogerr.NewWithContext(scogerr.CodeInvalidInput, "unknown session", map[string]interface{}{"session": id})
	}
	return nil
}

// timeLayout keeps a fixed width so stored timestamps sort as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(timeLayout, s)
}

func journalErr(err error, msg, path string, kv ...string) error {
	ctx := map[string]interface{}{}
	if path != "" {
		ctx["journal"] = path
	}
	for i := 0; i+1 < len(kv); i += 2 {
		ctx[kv[i]] = kv[i+1]
	}
	return scogerr.WrapWithContext(err, scogerr.CodeInternal, msg, ctx)
}
