package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/illarion/tdvault/internal/core"
	"github.com/illarion/tdvault/internal/crypto"
	"github.com/illarion/tdvault/internal/session"
)

func newBuildCommand(a *app) *cobra.Command {
	var (
		sessions     []string
		sessionFiles []string
		input        string
		fromStore    bool
		refs         []string
		active       uint32
		askPasscode  bool
	)

	cmd := &cobra.Command{
		Use:   "build <dir>",
		Short: "Write a new tdata directory from credentials",
		Long: `Build a tdata directory that the desktop client accepts.

Credentials are taken, in this order, from --session strings, gotd
--session-file files, an --input YAML/JSON file and the credential store.
The passcode is TDVAULT_PASSCODE when set, a prompted value with
--passcode, or empty.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := args[0]

			var creds []core.Credential
			for _, s := range sessions {
				d, err := session.DecodeTelethon(s)
				if err != nil {
					return err
				}
				creds = append(creds, core.Credential{DC: d.DC, AuthKey: d.AuthKey})
			}
			for _, path := range sessionFiles {
				d, err := session.ReadFile(cmd.Context(), path)
				if err != nil {
					return fmt.Errorf("%s: %w", path, err)
				}
				creds = append(creds, core.Credential{DC: d.DC, AuthKey: d.AuthKey})
			}
			if input != "" {
				data, err := os.ReadFile(input)
				if err != nil {
					return err
				}
				parsed, err := parseCredentialInput(data)
				crypto.ClearBytes(data)
				if err != nil {
					return err
				}
				creds = append(creds, parsed...)
			}
			if fromStore || len(refs) > 0 {
				store, password, err := a.openStore()
				if err != nil {
					return err
				}
				stored, err := store.Credentials(password, refs)
				crypto.ClearBytes(password)
				store.Close()
				if err != nil {
					return err
				}
				creds = append(creds, stored...)
			}

			passcode, err := a.buildPasscode(askPasscode)
			if err != nil {
				return err
			}
			defer crypto.ClearBytes(passcode)

			if err := a.td.Build(dir, creds, passcode, active); err != nil {
				return err
			}
			if err := core.Validate(dir); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "built %s with %d account(s)\n", dir, len(creds))
			return nil
		},
	}

	cmd.Flags().StringArrayVar(&sessions, "session", nil, "telethon string session (repeatable)")
	cmd.Flags().StringArrayVar(&sessionFiles, "session-file", nil, "gotd session file (repeatable)")
	cmd.Flags().StringVarP(&input, "input", "i", "", "YAML or JSON file with dc and auth_key entries")
	cmd.Flags().BoolVar(&fromStore, "from-store", false, "add every credential in the store")
	cmd.Flags().StringArrayVar(&refs, "ref", nil, "add a stored credential by label or id (repeatable)")
	cmd.Flags().Uint32Var(&active, "active", 0, "index of the account the client opens first")
	cmd.Flags().BoolVar(&askPasscode, "passcode", false, "prompt for a local passcode")

	return cmd
}

func (a *app) buildPasscode(ask bool) ([]byte, error) {
	if a.cfg.PasscodeSet {
		return []byte(a.cfg.Passcode), nil
	}
	if ask {
		return core.ReadPasswordConfirm("New passcode: ")
	}
	return nil, nil
}
