package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/illarion/tdvault/internal/core"
	"github.com/illarion/tdvault/internal/git"
)

func newValidateCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "validate <dir>",
		Short: "Check that a directory holds a tdata container",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := args[0]
			if err := core.Validate(dir); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "ok: %s is a tdata directory\n", dir)

			status, err := git.CheckContainer(dir)
			if err != nil {
				a.logger.Warn("git check failed", "dir", dir, "err", err)
				return nil
			}
			fmt.Fprint(cmd.OutOrStdout(), git.FormatStatus(status))
			return nil
		},
	}
}
