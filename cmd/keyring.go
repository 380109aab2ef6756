package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/illarion/tdvault/internal/core"
	"github.com/illarion/tdvault/internal/crypto"
	"github.com/illarion/tdvault/internal/keyring"
)

func newKeyringCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "keyring",
		Short: "Cache tdata passcodes in the OS keyring",
	}
	cmd.AddCommand(
		newKeyringSaveCommand(a),
		newKeyringDeleteCommand(),
		newKeyringStatusCommand(),
	)
	return cmd
}

func newKeyringSaveCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "save <dir>",
		Short: "Save the passcode of a tdata directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := args[0]

			var passcode []byte
			var err error
			if a.cfg.PasscodeSet {
				passcode = []byte(a.cfg.Passcode)
			} else {
				passcode, err = core.ReadPassword("Passcode: ")
				if err != nil {
					return err
				}
			}
			defer crypto.ClearBytes(passcode)

			// Verify passcode is correct
			if _, err := a.td.Extract(dir, passcode); err != nil {
				return err
			}

			id, err := keyring.ContainerID(dir)
			if err != nil {
				return err
			}
			if err := keyring.SavePasscode(id, string(passcode)); err != nil {
				return fmt.Errorf("failed to save to keyring: %w", err)
			}

			fmt.Fprintln(cmd.OutOrStdout(), "Passcode saved to keyring")
			return nil
		},
	}
}

func newKeyringDeleteCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <dir>",
		Short: "Remove the cached passcode of a tdata directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := keyring.ContainerID(args[0])
			if err != nil {
				return err
			}
			if err := keyring.DeletePasscode(id); err != nil {
				fmt.Fprintln(cmd.OutOrStdout(), "No passcode stored in keyring")
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Passcode removed from keyring")
			return nil
		},
	}
}

func newKeyringStatusCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "status <dir>",
		Short: "Show whether a passcode is cached",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := keyring.ContainerID(args[0])
			if err != nil {
				return err
			}
			if keyring.HasPasscode(id) {
				fmt.Fprintln(cmd.OutOrStdout(), "Passcode: stored in keyring")
			} else {
				fmt.Fprintln(cmd.OutOrStdout(), "Passcode: not stored")
			}
			return nil
		},
	}
}
