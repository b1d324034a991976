// Package commitmsg builds the conventional-commit messages scog records for
// sync and backup commits, and parses them back.
package commitmsg

import (
	"fmt"
	"strings"
	"time"

	"github.com/leodido/go-conventionalcommits"
	"github.com/leodido/go-conventionalcommits/parser"

	scogerr "github.com/b1zzu/scog/errors"
)

const (
	// TypeChore is the commit type of every scog commit.
	TypeChore = "chore"

	// ScopeSync marks commits of host files onto the working branch.
	ScopeSync = "sync"

	// ScopeBackup marks commits on a backup branch.
	ScopeBackup = "backup"

	// SourceFooter names the branch a backup was taken from.
	SourceFooter = "Scog-Source"

	// maxListed caps the files listed in a message body.
	maxListed = 50

	timeLayout = "2006-01-02 15:04:05"
)

// Message is a parsed conventional commit.
type Message struct {
	Type        string
	Scope       string
	Description string
	Body        string
	Footers     map[string][]string
	Breaking    bool
}

// Sync returns the message for committing host files onto the working branch.
func Sync(t time.Time, files []string) (string, error) {
	desc := fmt.Sprintf("%s at %s", count(files), t.Local().Format(timeLayout))
	return build(ScopeSync, desc, fileList(files), nil)
}

// Backup returns the message for the commit preserving local files on a
// backup branch taken from source.
func Backup(source string, t time.Time, files []string) (string, error) {
	desc := fmt.Sprintf("%s before syncing %s at %s", count(files), source, t.Local().Format(timeLayout))
	return build(ScopeBackup, desc, fileList(files), map[string]string{SourceFooter: source})
}

// Parse parses a conventional-commit message.
func Parse(msg string) (*Message, error) {
	m := parser.NewMachine(parser.WithTypes(conventionalcommits.TypesConventional))

	res, err := m.Parse([]byte(msg))
	if err != nil {
		return nil, scogerr.Wrap(err, scogerr.CodeInvalidInput, "not a conventional commit message")
	}

	cc, ok := res.(*conventionalcommits.ConventionalCommit)
	if !ok || !cc.Ok() {
		return nil, scogerr.New(scogerr.CodeInvalidInput, "not a conventional commit message")
	}

	out := &Message{
		Type:        cc.Type,
		Description: cc.Description,
		Footers:     cc.Footers,
		Breaking:    cc.IsBreakingChange(),
	}
	if cc.Scope != nil {
		out.Scope = *cc.Scope
	}
	if cc.Body != nil {
		out.Body = *cc.Body
	}
	return out, nil
}

// build assembles a message and checks that it parses.
func build(scope, desc, body string, footers map[string]string) (string, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "%s(%s): %s", TypeChore, scope, desc)

	if body != "" {
		b.WriteString("\n\n")
		b.WriteString(body)
	}

	if len(footers) > 0 {
		b.WriteString("\n")
		for k, v := range footers {
			fmt.Fprintf(&b, "\n%s: %s", k, v)
		}
	}

	msg := b.String()
	if _, err := Parse(msg); err != nil {
		return "", scogerr.WrapWithContext(err, scogerr.CodeInternal, "generated commit message is invalid",
			map[string]interface{}{"header": strings.SplitN(msg, "\n", 2)[0]})
	}
	return msg, nil
}

func count(files []string) string {
	if len(files) == 1 {
		return "1 file"
	}
	return fmt.Sprintf("%d files", len(files))
}

func fileList(files []string) string {
	if len(files) == 0 {
		return ""
	}

	lines := make([]string, 0, len(files)+1)
	for i, f := range files {
		if i == maxListed {
			lines = append(lines, fmt.Sprintf("- and %d more", len(files)-maxListed))
			break
		}
		lines = append(lines, "- "+f)
	}
	return strings.Join(lines, "\n")
}
