package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/b1zzu/scog/journal"
	"github.com/b1zzu/scog/syncer"
)

const (
	timeLayout = "2006-01-02 15:04:05"
	shortHash  = 8
)

// printer renders command output. Styles degrade to plain text when the
// writer is not a terminal.
type printer struct {
	stdout io.Writer
	stderr io.Writer

	successStyle lipgloss.Style
	mutedStyle   lipgloss.Style
	errorStyle   lipgloss.Style
	headerStyle  lipgloss.Style
	borderStyle  lipgloss.Style
}

func newPrinter(stdout, stderr io.Writer) *printer {
	out := lipgloss.NewRenderer(stdout)
	errOut := lipgloss.NewRenderer(stderr)

	return &printer{
		stdout:       stdout,
		stderr:       stderr,
		successStyle: out.NewStyle().Foreground(lipgloss.Color("#00FA9A")).Bold(true),
		mutedStyle:   out.NewStyle().Foreground(lipgloss.Color("#888888")),
		errorStyle:   errOut.NewStyle().Foreground(lipgloss.Color("#FF4C4C")).Bold(true),
		headerStyle:  out.NewStyle().Bold(true).Padding(0, 1),
		borderStyle:  out.NewStyle().Foreground(lipgloss.Color("#7D56F4")),
	}
}

func (p *printer) success(format string, args ...interface{}) {
	fmt.Fprintln(p.stdout, p.successStyle.Render(fmt.Sprintf(format, args...)))
}

func (p *printer) info(format string, args ...interface{}) {
	fmt.Fprintf(p.stdout, format+"\n", args...)
}

func (p *printer) muted(format string, args ...interface{}) {
	fmt.Fprintln(p.stdout, p.mutedStyle.Render(fmt.Sprintf(format, args...)))
}

// error prints the single diagnostic line of a failed invocation. Messages
// from git or the filesystem may span lines; they are folded with "; ".
func (p *printer) error(err error) {
	fmt.Fprintln(p.stderr, p.errorStyle.Render("scog: "+singleLine(err.Error())))
}

func singleLine(msg string) string {
	var lines []string
	for _, line := range strings.FieldsFunc(msg, func(r rune) bool { return r == '\n' || r == '\r' }) {
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}
	return strings.Join(lines, "; ")
}

func (p *printer) result(verb string, res *syncer.Result) {
	p.success("%s %s", verb, res.Session.Original)
	if res.SyncCommit != "" {
		p.info("committed local changes as %s", abbrev(res.SyncCommit))
	}
	if res.BackupRetained() {
		p.info("local changes saved to backup branch %s", res.Session.Backup)
	} else {
		p.muted("no local changes to back up")
	}
	if len(res.Tracked) > 0 {
		p.muted("restored %d tracked paths", len(res.Tracked))
	}
}

func (p *printer) recovered(res *syncer.RecoverResult) {
	if res.Restored == "" && len(res.Sessions) == 0 {
		p.muted("nothing to recover")
		return
	}
	if res.Restored != "" {
		p.success("switched from %s back to %s", res.Backup, res.Restored)
	}
	for _, e := range res.Sessions {
		p.info("closed %s session %s started %s", e.Operation, e.ID, e.StartedAt.Local().Format(timeLayout))
	}
}

func (p *printer) backups(backups []syncer.BackupInfo) {
	if len(backups) == 0 {
		p.muted("no backup branches")
		return
	}

	rows := make([][]string, 0, len(backups))
	for _, b := range backups {
		taken := ""
		if !b.Time.IsZero() {
			taken = b.Time.Local().Format(timeLayout)
		}
		local := "no"
		if b.Local {
			local = "yes"
		}
		rows = append(rows, []string{b.Name, b.Source, taken, local, strings.Join(b.Remotes, ", "), abbrev(b.Hash)})
	}
	p.table([]string{"BRANCH", "SOURCE", "TAKEN", "LOCAL", "REMOTES", "COMMIT"}, rows)
}

func (p *printer) history(entries []journal.Entry) {
	if len(entries) == 0 {
		p.muted("no sessions recorded")
		return
	}

	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, []string{
			e.StartedAt.Local().Format(timeLayout),
			e.Operation,
			e.Branch,
			string(e.Status),
			e.Backup,
			e.Error,
		})
	}
	p.table([]string{"STARTED", "OPERATION", "BRANCH", "STATUS", "BACKUP", "ERROR"}, rows)
}

func (p *printer) table(headers []string, rows [][]string) {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(p.borderStyle).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return p.headerStyle
			}
			return lipgloss.NewStyle().Padding(0, 1)
		}).
		Headers(headers...).
		Rows(rows...)
	fmt.Fprintln(p.stdout, t.Render())
}

func abbrev(hash string) string {
	if len(hash) > shortHash {
		return hash[:shortHash]
	}
	return hash
}
