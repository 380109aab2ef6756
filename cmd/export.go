package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/illarion/tdvault/internal/dc"
	"github.com/illarion/tdvault/internal/security"
	"github.com/illarion/tdvault/internal/session"
)

func newExportCommand(a *app) *cobra.Command {
	var out string

	cmd := &cobra.Command{
		Use:   "export <dir>",
		Short: "Write one gotd session file per account",
		Long: `Decode a tdata directory and write every account as a gotd
session file named session-<index>.json in the output directory.
Slots that fail to decode are skipped and reported.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			info, err := a.extractOne(args[0])
			if err != nil {
				return err
			}
			if err := os.MkdirAll(out, security.DirPermSecure); err != nil {
				return err
			}

			written := 0
			for _, s := range info.Slots {
				if s.Credential == nil {
					fmt.Fprintf(cmd.ErrOrStderr(), "skipping slot %d: %v\n", s.Index, s.Err)
					continue
				}
				ip, ok := dc.Address(s.Credential.DC)
				if !ok {
					fmt.Fprintf(cmd.ErrOrStderr(), "skipping slot %d: unknown dc %d\n", s.Index, s.Credential.DC)
					continue
				}

				path := filepath.Join(out, fmt.Sprintf("session-%d.json", s.Index))
				if err := session.WriteFile(cmd.Context(), path, s.Credential.DC, ip, dc.DefaultPort, s.Credential.AuthKey); err != nil {
					return fmt.Errorf("slot %d: %w", s.Index, err)
				}
				a.logger.Info("session written", "slot", s.Index, "path", path)
				written++
			}

			fmt.Fprintf(cmd.OutOrStdout(), "wrote %d session file(s) to %s\n", written, out)
			return nil
		},
	}

	cmd.Flags().StringVarP(&out, "out", "o", "", "output directory")
	_ = cmd.MarkFlagRequired("out")
	return cmd
}
