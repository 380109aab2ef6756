package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/illarion/tdvault/internal/core"
	"github.com/illarion/tdvault/internal/crypto"
	"github.com/illarion/tdvault/internal/session"
)

func newExtractCommand(a *app) *cobra.Command {
	var (
		sessions  string
		showKeys  bool
		saveStore bool
		label     string
	)

	cmd := &cobra.Command{
		Use:   "extract <dir>...",
		Short: "Print the accounts of one or more tdata directories",
		Long: `Decode every account slot of the given tdata directories.

Slots that cannot be decoded are reported individually; the other
accounts are still printed. With several directories the extractions run
in parallel using the configured number of workers and share one passcode.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var enc core.SessionEncoder
			switch sessions {
			case "":
			case "telethon":
				enc = session.Telethon{}
			default:
				return fmt.Errorf("unknown session format %q", sessions)
			}

			passcode, err := a.passcodeFor(args[0])
			if err != nil {
				return err
			}
			defer crypto.ClearBytes(passcode)

			var results []core.Result
			if len(args) == 1 {
				info, err := a.td.Extract(args[0], passcode)
				if err != nil {
					return err
				}
				results = []core.Result{{Dir: args[0], Info: info}}
			} else {
				results = a.td.ExtractAll(cmd.Context(), args, passcode, a.cfg.Workers)
			}

			opts := viewOptions{showKeys: showKeys, encoder: enc}
			views := make([]containerView, 0, len(results))
			failed := 0
			for _, r := range results {
				v, err := newContainerView(r.Dir, r.Info, r.Err, opts)
				if err != nil {
					return err
				}
				if r.Err != nil {
					failed++
				}
				views = append(views, v)
			}

			if err := writeViews(cmd.OutOrStdout(), a.cfg.Format, views); err != nil {
				return err
			}

			if saveStore {
				if err := a.saveToStore(cmd.ErrOrStderr(), results, label); err != nil {
					return err
				}
			}

			if failed > 0 {
				return fmt.Errorf("%d of %d directories could not be read", failed, len(results))
			}
			return nil
		},
	}

	cmd.Flags().StringP("format", "f", "text", "output format: text, json, yaml")
	cmd.Flags().Int("workers", 4, "parallel extractions when several directories are given")
	cmd.Flags().StringVar(&sessions, "sessions", "", "also print session strings (telethon)")
	cmd.Flags().BoolVar(&showKeys, "show-keys", false, "print auth keys in hex")
	cmd.Flags().BoolVar(&saveStore, "save-store", false, "add decoded credentials to the credential store")
	cmd.Flags().StringVar(&label, "label", "", "label prefix for stored credentials")

	return cmd
}

func (a *app) saveToStore(w io.Writer, results []core.Result, label string) error {
	store, password, err := a.openStore()
	if err != nil {
		return err
	}
	defer store.Close()
	defer crypto.ClearBytes(password)

	total := 0
	for _, r := range results {
		if r.Info == nil {
			continue
		}
		added, err := store.Import(password, r.Info, label)
		if err != nil {
			return err
		}
		total += len(added)
	}
	fmt.Fprintf(w, "saved %d credential(s) to %s\n", total, a.cfg.StorePath)
	return nil
}
