package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/adrg/xdg"

	scogerr "github.com/b1zzu/scog/errors"
	"github.com/b1zzu/scog/vcs"
)

// Backend names accepted by Settings.Backend.
const (
	BackendLibrary = "library"
	BackendCLI     = "cli"
)

// Environment variables read by Settings.ApplyEnv.
const (
	EnvRepo          = "SCOG_REPO"
	EnvBackend       = "SCOG_BACKEND"
	EnvSSHKey        = "SCOG_SSH_KEY"
	EnvIdentityName  = "SCOG_IDENTITY_NAME"
	EnvIdentityEmail = "SCOG_IDENTITY_EMAIL"
)

const (
	defaultRepoDir     = ".scog"
	defaultJournalPath = "scog/journal.db"
	lockFileName       = "scog.lock"
)

// Settings are the application settings of one scog invocation.
type Settings struct {
	// Repo is the working copy directory.
	Repo string

	// HostRoot is the host directory tracked paths are resolved against.
	HostRoot string

	// Backend selects the version-control implementation.
	Backend string

	// Config is the tracked-file configuration. Empty means
	// DefaultConfigName inside Repo.
	Config string

	// Journal is the session journal database. Empty disables the journal.
	Journal string

	// SSHKey is a private key for ssh remotes. Empty uses the SSH agent.
	SSHKey string

	// Identity is the author and committer of scog commits.
	Identity vcs.Identity

	// Verbose enables debug logging.
	Verbose bool
}

// DefaultSettings returns the settings used when nothing is configured.
func DefaultSettings() Settings {
	return Settings{
		Repo:     filepath.Join(xdg.Home, defaultRepoDir),
		HostRoot: string(filepath.Separator),
		Backend:  BackendLibrary,
		Journal:  DefaultJournalPath(),
		Identity: vcs.DefaultIdentity,
	}
}

// DefaultJournalPath is the journal location under the XDG state directory.
func DefaultJournalPath() string {
	return filepath.Join(xdg.StateHome, filepath.FromSlash(defaultJournalPath))
}

// ApplyEnv overrides settings from environment variables. lookup is
// usually os.LookupEnv.
func (s *Settings) ApplyEnv(lookup func(string) (string, bool)) {
	if v, ok := lookup(EnvRepo); ok && v != "" {
		s.Repo = v
	}
	if v, ok := lookup(EnvBackend); ok && v != "" {
		s.Backend = v
	}
	if v, ok := lookup(EnvSSHKey); ok && v != "" {
		s.SSHKey = v
	}
	if v, ok := lookup(EnvIdentityName); ok && v != "" {
		s.Identity.Name = v
	}
	if v, ok := lookup(EnvIdentityEmail); ok && v != "" {
		s.Identity.Email = v
	}
}

// ConfigPath returns the tracked-file configuration path.
func (s Settings) ConfigPath() string {
	if s.Config != "" {
		return s.Config
	}
	return filepath.Join(s.Repo, DefaultConfigName)
}

// LockPath returns the lock file guarding the working copy.
func (s Settings) LockPath() string {
	return filepath.Join(s.Repo, ".git", lockFileName)
}

// Validate checks the settings and reports all problems at once.
func (s Settings) Validate() error {
	var problems []string

	if s.Repo == "" {
		problems = append(problems, "repository path is empty")
	}
	if !filepath.IsAbs(s.HostRoot) {
		problems = append(problems, fmt.Sprintf("host root %q is not absolute", s.HostRoot))
	}
	switch s.Backend {
	case BackendLibrary, BackendCLI:
	default:
		problems = append(problems, fmt.Sprintf("unknown backend %q (available backends: %s, %s)",
			s.Backend, BackendLibrary, BackendCLI))
	}
	if s.Identity.Name == "" || s.Identity.Email == "" {
		problems = append(problems, "identity needs both name and email")
	}

	if len(problems) > 0 {
		return scogerr.New(scogerr.CodeInvalidInput,
			fmt.Sprintf("invalid settings: %s", strings.Join(problems, "; ")))
	}
	return nil
}
