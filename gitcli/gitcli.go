// Package gitcli implements vcs.Backend by running the git executable.
//
// Every operation is a short sequence of plumbing or porcelain commands run
// in the working copy root. A command succeeds when git exits with status 0;
// otherwise the error carries git's stderr in its context.
package gitcli

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"

	scogerr "github.com/b1zzu/scog/errors"
	"github.com/b1zzu/scog/executor"
	"github.com/b1zzu/scog/vcs"
)

// DefaultProgram is the git executable looked up on PATH.
const DefaultProgram = "git"

// Options configures a Backend.
type Options struct {
	// Root is the REQUIRED working copy directory on the host.
	Root string

	// Git runs the git executable. Defaults to a wrapped DefaultProgram.
	Git executor.Runner

	// Identity is the author and committer of commits.
	// Defaults to vcs.DefaultIdentity.
	Identity vcs.Identity

	// Now stamps commits. Defaults to time.Now.
	Now func() time.Time

	// Logger receives debug output. Defaults to a disabled logger.
	Logger *zerolog.Logger
}

// Validate checks that the Options are properly configured.
func (o *Options) Validate() error {
	if o.Root == "" {
		return scogerr.New(scogerr.CodeInvalidInput, "root is required")
	}

	if (o.Identity.Name == "") != (o.Identity.Email == "") {
		return scogerr.New(scogerr.CodeInvalidInput, "identity needs both name and email")
	}

	return nil
}

func (o *Options) applyDefaults() {
	if o.Logger == nil {
		l := zerolog.Nop()
		o.Logger = &l
	}

	if o.Git == nil {
		o.Git = executor.New(DefaultProgram, executor.WithLogger(*o.Logger))
	}

	if o.Identity.Name == "" {
		o.Identity = vcs.DefaultIdentity
	}

	if o.Now == nil {
		o.Now = time.Now
	}
}

// Backend is a working copy driven through the git executable.
type Backend struct {
	git      executor.Runner
	root     string
	identity vcs.Identity
	now      func() time.Time
	log      zerolog.Logger
}

var _ vcs.Backend = (*Backend)(nil)

// Open returns a Backend for the existing working copy at opts.Root.
func Open(ctx context.Context, opts *Options) (*Backend, error) {
	if err := opts.Validate(); err != nil {
		return nil, scogerr.Wrap(err, scogerr.CodeInvalidInput, "invalid options")
	}
	opts.applyDefaults()

	b := newBackend(opts)

	out, err := b.run(ctx, "rev-parse", "--is-inside-work-tree")
	if err != nil || out != "true" {
		if err == nil {
			err = fmt.Errorf("rev-parse reported %q", out)
		}
		return nil, wrap(err, scogerr.CodeInvalidInput, "not a git working copy", "root", b.root)
	}

	return b, nil
}

// Clone clones remoteURL into opts.Root, which must not exist or be empty.
func Clone(ctx context.Context, remoteURL string, opts *Options) (*Backend, error) {
	if remoteURL == "" {
		return nil, scogerr.New(scogerr.CodeInvalidInput, "remote URL cannot be empty")
	}

	if err := opts.Validate(); err != nil {
		return nil, scogerr.Wrap(err, scogerr.CodeInvalidInput, "invalid options")
	}
	opts.applyDefaults()

	b := newBackend(opts)
	b.log.Debug().Str("url", remoteURL).Str("root", b.root).Msg("cloning repository")

	if _, err := b.runIn(ctx, "", nil, "clone", "--quiet", "--", remoteURL, b.root); err != nil {
		return nil, wrap(err, scogerr.CodeCloneFailed, "failed to clone repository", "url", remoteURL)
	}

	return b, nil
}

func newBackend(opts *Options) *Backend {
	return &Backend{
		git:      opts.Git,
		root:     filepath.Clean(opts.Root),
		identity: opts.Identity,
		now:      opts.Now,
		log:      opts.Logger.With().Str("backend", "cli").Logger(),
	}
}

// Root returns the working copy directory.
func (b *Backend) Root() string {
	return b.root
}

// commandError is a git invocation that did not exit with status 0.
// stderr is the one-line summary from summarizeStderr; wrap carries it as
// context, so Error leaves it out.
type commandError struct {
	args     []string
	stderr   string
	exitCode int
	err      error
}

func (e *commandError) Error() string {
	if e.exitCode >= 0 {
		return fmt.Sprintf("git %s: exit status %d", strings.Join(e.args, " "), e.exitCode)
	}
	return fmt.Sprintf("git %s: %v", strings.Join(e.args, " "), e.err)
}

// summarizeStderr reduces git's stderr to a single line: the first
// error:, fatal: or rejected-ref line, otherwise every line joined by "; ".
func summarizeStderr(stderr string) string {
	var lines []string
	for _, line := range strings.Split(stderr, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "error:") || strings.HasPrefix(line, "fatal:") || strings.HasPrefix(line, "! ") {
			return line
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "; ")
}

func (e *commandError) Unwrap() error {
	return e.err
}

// exitedWith reports whether err is a git run that exited with code and
// printed nothing on stderr. Query commands use this to signal "not found".
func exitedWith(err error, code int) bool {
	var ce *commandError
	return errors.As(err, &ce) && ce.exitCode == code && ce.stderr == ""
}

// baseEnv keeps git non-interactive and its messages untranslated.
var baseEnv = map[string]string{
	"GIT_TERMINAL_PROMPT": "0",
	"LC_ALL":              "C",
}

// run executes git in the working copy and returns stdout without the
// trailing newline.
func (b *Backend) run(ctx context.Context, args ...string) (string, error) {
	return b.runIn(ctx, b.root, nil, args...)
}

func (b *Backend) runIn(ctx context.Context, dir string, env map[string]string, args ...string) (string, error) {
	opts := []executor.Option{executor.WithEnv(baseEnv)}
	if dir != "" {
		opts = append(opts, executor.WithWorkingDir(dir))
	}
	if len(env) > 0 {
		opts = append(opts, executor.WithEnv(env))
	}

	res, err := b.git.Execute(ctx, args, opts...)
	if err != nil {
		ce := &commandError{args: args, exitCode: -1, err: err}
		if res != nil {
			ce.stderr = summarizeStderr(res.Stderr)
			ce.exitCode = res.ExitCode
		}
		return "", ce
	}

	return strings.TrimRight(res.Stdout, "\n"), nil
}

// wrap classifies a git failure, attaching git's stderr when there is one.
func wrap(err error, code scogerr.ErrorCode, msg string, kv ...string) error {
	ctx := fields(kv...)

	var ce *commandError
	if errors.As(err, &ce) && ce.stderr != "" {
		ctx["stderr"] = ce.stderr
	}
	return scogerr.WrapWithContext(err, code, msg, ctx)
}

func fail(code scogerr.ErrorCode, msg string, kv ...string) error {
	return scogerr.NewWithContext(code, msg, fields(kv...))
}

func fields(kv ...string) map[string]interface{} {
	m := make(map[string]interface{}, len(kv)/2+1)
	for i := 0; i+1 < len(kv); i += 2 {
		m[kv[i]] = kv[i+1]
	}
	return m
}
