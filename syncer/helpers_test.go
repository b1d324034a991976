package syncer

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	scogerr "github.com/b1zzu/scog/errors"
	"github.com/b1zzu/scog/journal"
	"github.com/b1zzu/scog/vcs"
)

var testEpoch = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

// fakeBackend is an in-memory vcs.Backend that records every call.
type fakeBackend struct {
	current   string
	local     map[string]string
	remote    []vcs.Branch
	upstreams map[string]string

	// dirty is the state before anything is staged.
	dirty bool
	// changed holds the paths whose host copy differs from HEAD.
	changed map[string]bool
	staged  bool

	commits  int
	messages []string
	errs     map[string]error
	calls    []string
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		current:   "main",
		local:     map[string]string{"main": "c0"},
		upstreams: map[string]string{"main": "origin/main"},
		changed:   map[string]bool{},
		errs:      map[string]error{},
	}
}

func (f *fakeBackend) record(method string, args ...string) error {
	f.calls = append(f.calls, strings.TrimSpace(method+" "+strings.Join(args, " ")))
	return f.errs[method]
}

// mutations returns the calls that change refs, the index or the tree.
func (f *fakeBackend) mutations() []string {
	var out []string
	for _, c := range f.calls {
		method := strings.Fields(c)[0]
		switch method {
		case "IsDirty", "CurrentBranch", "ResolveBranch", "Branches", "Remotes", "FetchAll":
			continue
		}
		out = append(out, c)
	}
	return out
}

func (f *fakeBackend) Root() string { return "/repo" }

func (f *fakeBackend) CurrentBranch(ctx context.Context) (string, error) {
	if err := f.record("CurrentBranch"); err != nil {
		return "", err
	}
	return f.current, nil
}

func (f *fakeBackend) ResolveBranch(ctx context.Context, name string) (*vcs.Branch, error) {
	if err := f.record("ResolveBranch", name); err != nil {
		return nil, err
	}
	if hash, ok := f.local[name]; ok {
		return &vcs.Branch{Name: name, Hash: hash, Upstream: f.upstreams[name]}, nil
	}
	for _, b := range f.remote {
		if b.Name == name {
			b := b
			return &b, nil
		}
	}
	return nil, scogerr.NewWithContext(scogerr.CodeBranchNotFound, "branch not found", map[string]interface{}{"branch": name})
}

func (f *fakeBackend) CheckoutBranch(ctx context.Context, name string) error {
	if err := f.record("CheckoutBranch", name); err != nil {
		return err
	}
	if _, ok := f.local[name]; !ok {
		found := false
		for _, b := range f.remote {
			if b.Name == name {
				f.local[name] = b.Hash
				found = true
			}
		}
		if !found {
			return scogerr.NewWithContext(scogerr.CodeBranchNotFound, "branch not found", map[string]interface{}{"branch": name})
		}
	}
	f.current = name
	return nil
}

func (f *fakeBackend) CreateBranch(ctx context.Context, name, base string) error {
	if err := f.record("CreateBranch", name); err != nil {
		return err
	}
	if _, ok := f.local[name]; ok {
		return scogerr.New(scogerr.CodeBranchExists, "branch already exists")
	}
	f.local[name] = f.local[f.current]
	f.current = name
	return nil
}

func (f *fakeBackend) DeleteBranch(ctx context.Context, name string) error {
	if err := f.record("DeleteBranch", name); err != nil {
		return err
	}
	if name == f.current {
		return scogerr.New(scogerr.CodeDeleteBranchFailed, "branch is checked out")
	}
	delete(f.local, name)
	return nil
}

func (f *fakeBackend) FetchAll(ctx context.Context) error {
	return f.record("FetchAll")
}

func (f *fakeBackend) IsDirty(ctx context.Context) (bool, error) {
	if err := f.record("IsDirty"); err != nil {
		return false, err
	}
	return f.dirty || f.staged, nil
}

func (f *fakeBackend) PullFastForward(ctx context.Context, name string) error {
	return f.record("PullFastForward", name)
}

func (f *fakeBackend) Stage(ctx context.Context, path string) error {
	if err := f.record("Stage", path); err != nil {
		return err
	}
	if f.changed[path] {
		f.staged = true
	}
	return nil
}

func (f *fakeBackend) Commit(ctx context.Context, message string) (string, error) {
	if err := f.record("Commit"); err != nil {
		return "", err
	}
	f.commits++
	f.messages = append(f.messages, message)
	hash := fmt.Sprintf("c%d", f.commits)
	f.local[f.current] = hash
	f.staged = false
	f.dirty = false
	f.changed = map[string]bool{}
	return hash, nil
}

func (f *fakeBackend) PushBranch(ctx context.Context, name string) error {
	return f.record("PushBranch", name)
}

func (f *fakeBackend) PushNewBranch(ctx context.Context, name string) error {
	if err := f.record("PushNewBranch", name); err != nil {
		return err
	}
	f.upstreams[name] = "origin/" + name
	return nil
}

func (f *fakeBackend) Branches(ctx context.Context) ([]vcs.Branch, error) {
	if err := f.record("Branches"); err != nil {
		return nil, err
	}
	names := make([]string, 0, len(f.local))
	for n := range f.local {
		names = append(names, n)
	}
	sort.Strings(names)

	out := make([]vcs.Branch, 0, len(names)+len(f.remote))
	for _, n := range names {
		out = append(out, vcs.Branch{Name: n, Hash: f.local[n], Upstream: f.upstreams[n]})
	}
	return append(out, f.remote...), nil
}

func (f *fakeBackend) Remotes(ctx context.Context) ([]string, error) {
	if err := f.record("Remotes"); err != nil {
		return nil, err
	}
	return []string{"origin"}, nil
}

// fakeMirror records copies and returns the tracked paths as copied files.
type fakeMirror struct {
	calls  []string
	toRepo error
	toHost error
}

func (m *fakeMirror) CopyToRepo(ctx context.Context, tracked []string) ([]string, error) {
	m.calls = append(m.calls, "CopyToRepo")
	if m.toRepo != nil {
		return nil, m.toRepo
	}
	out := make([]string, 0, len(tracked))
	for _, p := range tracked {
		out = append(out, strings.TrimLeft(p, "/"))
	}
	return out, nil
}

func (m *fakeMirror) CopyToHost(ctx context.Context, tracked []string) error {
	m.calls = append(m.calls, "CopyToHost")
	return m.toHost
}

type staticSource []string

func (s staticSource) Tracked(ctx context.Context) ([]string, error) {
	return s, nil
}

type harness struct {
	backend *fakeBackend
	mirror  *fakeMirror
	journal *journal.Store
	o       *Orchestrator
}

func newHarness(t *testing.T, withJournal bool) *harness {
	t.Helper()

	h := &harness{backend: newFakeBackend(), mirror: &fakeMirror{}}
	opts := &Options{
		Backend: h.backend,
		Mirror:  h.mirror,
		Tracked: staticSource{"/home/u/.bashrc"},
		Now:     func() time.Time { return testEpoch },
		NewID:   sequentialIDs(),
	}
	if withJournal {
		store, err := journal.Open(context.Background(), filepath.Join(t.TempDir(), "journal.db"))
		require.NoError(t, err)
		t.Cleanup(func() { _ = store.Close() })
		h.journal = store
		opts.Journal = store
	}

	o, err := New(opts)
	require.NoError(t, err)
	h.o = o
	return h
}

func sequentialIDs() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("session-%d", n)
	}
}

func backupName(source string) string {
	return vcs.BackupBranchName(source, testEpoch)
}
