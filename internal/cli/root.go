// Package cli implements the scog command line.
package cli

import (
	"context"
	"io"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/b1zzu/scog/config"
)

// app carries the settings and output streams shared by every command.
type app struct {
	settings config.Settings
	stdout   io.Writer
	stderr   io.Writer
	log      zerolog.Logger
	out      *printer
}

// Execute runs the command line and returns the process exit code.
// lookupEnv is usually os.LookupEnv.
func Execute(ctx context.Context, args []string, stdout, stderr io.Writer, lookupEnv func(string) (string, bool)) int {
	a := &app{
		settings: config.DefaultSettings(),
		stdout:   stdout,
		stderr:   stderr,
		log:      zerolog.Nop(),
		out:      newPrinter(stdout, stderr),
	}
	a.settings.ApplyEnv(lookupEnv)

	root := a.rootCommand()
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	if err := root.ExecuteContext(ctx); err != nil {
		a.out.error(err)
		return 1
	}
	return 0
}

func (a *app) rootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "scog",
		Short: "Keep dotfiles in sync with a git repository",
		Long: `scog copies a configured set of files between this machine and a git
repository. Before anything on this machine is overwritten, local edits are
committed to a backup branch and pushed, so they can always be recovered.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := a.settings.Validate(); err != nil {
				return err
			}
			a.log = newLogger(a.stderr, a.settings.Verbose)
			return nil
		},
	}

	s := &a.settings
	flags := root.PersistentFlags()
	flags.StringVar(&s.Repo, "repo", s.Repo, "working copy directory (env "+config.EnvRepo+")")
	flags.StringVar(&s.HostRoot, "host-root", s.HostRoot, "directory tracked paths are resolved against")
	flags.StringVar(&s.Backend, "backend", s.Backend,
		"version control backend, "+config.BackendLibrary+" or "+config.BackendCLI+" (env "+config.EnvBackend+")")
	flags.StringVar(&s.Config, "config", s.Config, "tracked-file configuration (default <repo>/"+config.DefaultConfigName+")")
	flags.StringVar(&s.Journal, "journal", s.Journal, "session journal database, empty to disable")
	flags.StringVar(&s.SSHKey, "ssh-key", s.SSHKey, "private key for ssh remotes, default uses the SSH agent (env "+config.EnvSSHKey+")")
	flags.StringVar(&s.Identity.Name, "identity-name", s.Identity.Name, "author name of scog commits (env "+config.EnvIdentityName+")")
	flags.StringVar(&s.Identity.Email, "identity-email", s.Identity.Email, "author email of scog commits (env "+config.EnvIdentityEmail+")")
	flags.BoolVarP(&s.Verbose, "verbose", "v", s.Verbose, "enable debug logging")

	root.AddCommand(
		a.cloneCommand(),
		a.checkoutCommand(),
		a.pullCommand(),
		a.pushCommand(),
		a.backupsCommand(),
		a.recoverCommand(),
		a.historyCommand(),
	)
	return root
}

// newLogger writes human readable logs to w, at debug level when verbose.
func newLogger(w io.Writer, verbose bool) zerolog.Logger {
	level := zerolog.InfoLevel
	if verbose {
		level = zerolog.DebugLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: w, TimeFormat: time.Kitchen}).
		Level(level).
		With().
		Timestamp().
		Logger()
}
