package gitcli

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/b1zzu/scog/executor"
)

var testEpoch = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

// fakeResponse is the canned outcome of one git invocation.
type fakeResponse struct {
	stdout   string
	stderr   string
	exitCode int
}

// fakeGit is an executor.Runner answering from a table keyed by the joined
// argument vector. Unknown invocations fail the test.
type fakeGit struct {
	t         *testing.T
	responses map[string]fakeResponse
	calls     []string
	envs      []map[string]string
}

func newFakeGit(t *testing.T, responses map[string]fakeResponse) *fakeGit {
	return &fakeGit{t: t, responses: responses}
}

func (f *fakeGit) Execute(_ context.Context, args []string, opts ...executor.Option) (*executor.Result, error) {
	options := executor.DefaultOptions()
	for _, opt := range opts {
		opt(options)
	}

	key := strings.Join(args, " ")
	f.calls = append(f.calls, key)
	f.envs = append(f.envs, options.Env)

	resp, ok := f.responses[key]
	if !ok {
		f.t.Fatalf("unexpected git invocation: %q", key)
	}

	res := &executor.Result{Stdout: resp.stdout, Stderr: resp.stderr, ExitCode: resp.exitCode}
	if resp.exitCode != 0 {
		res.Err = errors.New("exit status")
		return res, res.Err
	}
	return res, nil
}

func fakeBackend(t *testing.T, responses map[string]fakeResponse) (*Backend, *fakeGit) {
	t.Helper()

	fake := newFakeGit(t, responses)
	opts := &Options{Root: "/work", Git: fake, Now: func() time.Time { return testEpoch }}
	opts.applyDefaults()
	return newBackend(opts), fake
}

func requireGit(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath(DefaultProgram); err != nil {
		t.Skip("git executable not found")
	}
}

// gitRun runs git in dir for test setup with a fixed identity.
func gitRun(t *testing.T, dir string, args ...string) string {
	t.Helper()

	ex := executor.New(DefaultProgram)
	res, err := ex.Execute(context.Background(), args,
		executor.WithWorkingDir(dir),
		executor.WithEnv(map[string]string{
			"GIT_AUTHOR_NAME":     "test",
			"GIT_AUTHOR_EMAIL":    "test@localhost",
			"GIT_COMMITTER_NAME":  "test",
			"GIT_COMMITTER_EMAIL": "test@localhost",
			"GIT_CONFIG_NOSYSTEM": "1",
		}),
	)
	if err != nil && res != nil {
		t.Fatalf("git %v: %v\n%s", args, err, res.Stderr)
	}
	require.NoError(t, err)
	return strings.TrimSpace(res.Stdout)
}

// setupBareRemote creates an empty bare repository whose HEAD is main.
func setupBareRemote(t *testing.T) string {
	t.Helper()

	dir := filepath.Join(t.TempDir(), "origin.git")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	gitRun(t, dir, "init", "--quiet", "--bare")
	gitRun(t, dir, "symbolic-ref", "HEAD", "refs/heads/main")
	return dir
}

// setupWorkingCopy creates a repository with one commit on main and opens it.
func setupWorkingCopy(t *testing.T) *Backend {
	t.Helper()

	dir := t.TempDir()
	gitRun(t, dir, "init", "--quiet")
	gitRun(t, dir, "symbolic-ref", "HEAD", "refs/heads/main")
	writeFile(t, dir, "README.md", "initial content")
	gitRun(t, dir, "add", "README.md")
	gitRun(t, dir, "commit", "--quiet", "--no-gpg-sign", "-m", "initial commit")

	return openBackend(t, dir)
}

// setupPublished creates a working copy whose main is pushed to a new bare origin.
func setupPublished(t *testing.T) (*Backend, string) {
	t.Helper()

	b := setupWorkingCopy(t)
	url := setupBareRemote(t)
	gitRun(t, b.Root(), "remote", "add", "origin", url)
	require.NoError(t, b.PushNewBranch(context.Background(), "main"))
	return b, url
}

func openBackend(t *testing.T, dir string) *Backend {
	t.Helper()

	b, err := Open(context.Background(), &Options{Root: dir, Now: func() time.Time { return testEpoch }})
	require.NoError(t, err)
	return b
}

func cloneBackend(t *testing.T, url string) *Backend {
	t.Helper()

	dir := filepath.Join(t.TempDir(), "clone")
	b, err := Clone(context.Background(), url, &Options{Root: dir, Now: func() time.Time { return testEpoch }})
	require.NoError(t, err)
	return b
}

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()

	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

// commitFile writes, stages and commits name through b, returning the hash.
func commitFile(t *testing.T, b *Backend, name, content, msg string) string {
	t.Helper()

	ctx := context.Background()
	writeFile(t, b.Root(), name, content)
	require.NoError(t, b.Stage(ctx, name))
	hash, err := b.Commit(ctx, msg)
	require.NoError(t, err)
	return hash
}

func refHash(t *testing.T, dir, ref string) string {
	t.Helper()
	return gitRun(t, dir, "rev-parse", ref)
}
