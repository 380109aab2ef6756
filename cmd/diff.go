package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/illarion/tdvault/internal/core"
	"github.com/illarion/tdvault/internal/crypto"
)

func newDiffCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "diff <dir-a> <dir-b>",
		Short: "Compare the accounts of two tdata directories",
		Long: `Compare two tdata directories account by account.

Only data centers and key fingerprints are printed, never the keys
themselves. Each directory resolves its passcode separately.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			left, err := a.extractOne(args[0])
			if err != nil {
				return fmt.Errorf("%s: %w", args[0], err)
			}
			right, err := a.extractOne(args[1])
			if err != nil {
				return fmt.Errorf("%s: %w", args[1], err)
			}

			patch := core.Diff(left, right)
			if patch == "" {
				fmt.Fprintln(cmd.OutOrStdout(), "No differences")
				return nil
			}
			fmt.Fprint(cmd.OutOrStdout(), patch)
			return nil
		},
	}
}

func (a *app) extractOne(dir string) (*core.Info, error) {
	passcode, err := a.passcodeFor(dir)
	if err != nil {
		return nil, err
	}
	defer crypto.ClearBytes(passcode)

	return a.td.Extract(dir, passcode)
}
