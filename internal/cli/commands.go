package cli

import (
	"github.com/spf13/cobra"
)

func (a *app) cloneCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "clone REPO",
		Short: "Clone the dotfiles repository into the working copy directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := a.cloneBackend(cmd.Context(), args[0]); err != nil {
				return err
			}
			a.out.success("cloned %s into %s", args[0], a.settings.Repo)
			return nil
		},
	}
}

func (a *app) checkoutCommand() *cobra.Command {
	var create bool

	cmd := &cobra.Command{
		Use:   "checkout [-b] BRANCH",
		Short: "Switch the working copy to another branch",
		Long: `Fetch every remote and switch to BRANCH. A branch that only exists on a
remote is checked out as a local branch tracking it. With -b, a branch that
exists nowhere is created from the current one.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			w, err := a.open(cmd.Context(), true)
			if err != nil {
				return err
			}
			defer w.Close()

			if err := w.sync.Checkout(cmd.Context(), args[0], create); err != nil {
				return err
			}
			a.out.success("switched to %s", args[0])
			return nil
		},
	}
	cmd.Flags().BoolVarP(&create, "create", "b", false, "create the branch when it does not exist")
	return cmd
}

func (a *app) pullCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "pull",
		Short: "Update the repository and copy tracked files onto this machine",
		Long: `Fast-forward the current branch from its upstream, then overwrite the
tracked files on this machine with the repository's version. Tracked files
that differ from the repository are first committed to a backup branch,
which is pushed and kept.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			w, err := a.open(cmd.Context(), true)
			if err != nil {
				return err
			}
			defer w.Close()

			res, err := w.sync.Pull(cmd.Context())
			if err != nil {
				return err
			}
			a.out.result("pulled", res)
			return nil
		},
	}
}

func (a *app) pushCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "push",
		Short: "Commit tracked files from this machine and push them",
		Long: `Commit the tracked files of this machine on the current branch, run the
pull protocol and push the current branch to every remote.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			w, err := a.open(cmd.Context(), true)
			if err != nil {
				return err
			}
			defer w.Close()

			res, err := w.sync.Push(cmd.Context())
			if err != nil {
				return err
			}
			a.out.result("pushed", res)
			return nil
		},
	}
}

func (a *app) backupsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "backups",
		Short: "List backup branches",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			w, err := a.open(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer w.Close()

			backups, err := w.sync.Backups(cmd.Context())
			if err != nil {
				return err
			}
			a.out.backups(backups)
			return nil
		},
	}
}

func (a *app) recoverCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "recover",
		Short: "Return to the original branch after an interrupted sync",
		Long: `Leave a backup branch that an interrupted pull or push left checked out,
returning to the branch the backup was taken from, and close the unfinished
sessions in the journal. Backup branches are never deleted.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			w, err := a.open(cmd.Context(), true)
			if err != nil {
				return err
			}
			defer w.Close()

			res, err := w.sync.Recover(cmd.Context())
			if err != nil {
				return err
			}
			a.out.recovered(res)
			return nil
		},
	}
}

func (a *app) historyCommand() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent sync sessions from the journal",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			w, err := a.open(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer w.Close()

			if w.journal == nil {
				a.out.info("the journal is disabled")
				return nil
			}
			entries, err := w.journal.Recent(cmd.Context(), w.backend.Root(), limit)
			if err != nil {
				return err
			}
			a.out.history(entries)
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "number of sessions to show")
	return cmd
}
