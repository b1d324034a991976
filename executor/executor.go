// Package executor runs external programs with an argument vector, capturing
// their standard streams and exit status. It is used by the process-based
// version-control backend to drive the git executable.
package executor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Result holds the output and exit status of one run.
type Result struct {
	Stdout   string
	Stderr   string
	ExitCode int
	Err      error
}

// Runner runs one program with varying arguments.
// *Program satisfies it; tests substitute a fake.
type Runner interface {
	Execute(ctx context.Context, args []string, opts ...Option) (*Result, error)
}

// Options configures a run.
type Options struct {
	// WorkingDir defaults to the current directory.
	WorkingDir string

	// Env is appended to the current environment.
	Env map[string]string

	// Input is fed to stdin when non-empty.
	Input string

	// Stdout and Stderr receive a copy of the streams besides the capture.
	Stdout io.Writer
	Stderr io.Writer

	// Logger receives one debug event per run.
	Logger zerolog.Logger
}

// Option is a function that modifies Options.
type Option func(*Options)

// DefaultOptions returns options with an empty environment and a disabled logger.
func DefaultOptions() *Options {
	return &Options{
		Env:    make(map[string]string),
		Logger: zerolog.Nop(),
	}
}

// Program runs a single executable. Options given to New apply to every run.
type Program struct {
	name    string
	options *Options
}

var _ Runner = (*Program)(nil)

// New returns a Program for name, resolved through PATH at run time.
func New(name string, opts ...Option) *Program {
	options := DefaultOptions()
	for _, opt := range opts {
		opt(options)
	}
	return &Program{name: name, options: options}
}

// Name returns the executable name.
func (p *Program) Name() string {
	return p.name
}

// Execute runs the program with args. A non-zero exit status is returned as
// an error wrapping *exec.ExitError; the Result is always populated.
func (p *Program) Execute(ctx context.Context, args []string, opts ...Option) (*Result, error) {
	options := p.merge(opts...)

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, p.name, args...)
	cmd.Dir = options.WorkingDir
	cmd.Env = environ(options.Env)
	cmd.Stdout = tee(&stdout, options.Stdout)
	cmd.Stderr = tee(&stderr, options.Stderr)
	if options.Input != "" {
		cmd.Stdin = strings.NewReader(options.Input)
	}

	start := time.Now()
	err := cmd.Run()

	res := &Result{
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		ExitCode: exitCode(err),
		Err:      err,
	}

	options.Logger.Debug().
		Str("program", p.name).
		Strs("args", args).
		Int("exit", res.ExitCode).
		Dur("took", time.Since(start)).
		Msg("exec")

	if err != nil {
		return res, fmt.Errorf("failed to execute %s %s: %w", p.name, strings.Join(args, " "), err)
	}
	return res, nil
}

func (p *Program) merge(opts ...Option) *Options {
	merged := *p.options

	// Per-call env must not leak into the shared base.
	merged.Env = make(map[string]string, len(p.options.Env))
	for k, v := range p.options.Env {
		merged.Env[k] = v
	}

	for _, opt := range opts {
		opt(&merged)
	}
	return &merged
}

// environ returns nil, meaning the inherited environment, when extra is
// empty. Keys are sorted since later entries win in exec.
func environ(extra map[string]string) []string {
	if len(extra) == 0 {
		return nil
	}

	keys := make([]string, 0, len(extra))
	for k := range extra {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	env := os.Environ()
	for _, k := range keys {
		env = append(env, k+"="+extra[k])
	}
	return env
}

func tee(capture *bytes.Buffer, extra io.Writer) io.Writer {
	if extra == nil {
		return capture
	}
	return io.MultiWriter(capture, extra)
}

func exitCode(err error) int {
	var exitErr *exec.ExitError
	switch {
	case err == nil:
		return 0
	case errors.As(err, &exitErr):
		return exitErr.ExitCode()
	default:
		return -1
	}
}

// WithWorkingDir sets the working directory.
func WithWorkingDir(dir string) Option {
	return func(o *Options) {
		o.WorkingDir = dir
	}
}

// WithEnv adds environment variables.
func WithEnv(env map[string]string) Option {
	return func(o *Options) {
		if o.Env == nil {
			o.Env = make(map[string]string)
		}
		for k, v := range env {
			o.Env[k] = v
		}
	}
}

// WithInput feeds input to stdin.
func WithInput(input string) Option {
	return func(o *Options) {
		o.Input = input
	}
}

// WithOutput copies stdout and stderr to the given writers. Either may be nil.
func WithOutput(stdout, stderr io.Writer) Option {
	return func(o *Options) {
		o.Stdout = stdout
		o.Stderr = stderr
	}
}

// WithLogger logs every run at debug level.
func WithLogger(log zerolog.Logger) Option {
	return func(o *Options) {
		o.Logger = log
	}
}
