package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/goccy/go-yaml"
	"github.com/spf13/cobra"

	"github.com/illarion/tdvault/internal/core"
	"github.com/illarion/tdvault/internal/crypto"
	"github.com/illarion/tdvault/internal/keyring"
	"github.com/illarion/tdvault/internal/session"
	"github.com/illarion/tdvault/internal/storage"
)

func newStoreCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "store",
		Short: "Manage the encrypted credential store",
		Long: `The credential store keeps auth keys sealed with AES-256-GCM under a
store password. Labels, data centers and key fingerprints can be listed
without the password.`,
	}

	cmd.AddCommand(
		newStoreInitCommand(a),
		newStoreListCommand(a),
		newStoreAddCommand(a),
		newStoreRemoveCommand(a),
		newStorePasswdCommand(a),
		newStoreCompactCommand(a),
	)
	return cmd
}

func newStoreInitCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create a new credential store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var password []byte
			var err error
			if a.cfg.StorePasswordSet {
				password = []byte(a.cfg.StorePassword)
			} else {
				password, err = core.ReadPasswordConfirm("New store password: ")
				if err != nil {
					return err
				}
			}
			defer crypto.ClearBytes(password)

			store, err := core.CreateStore(a.cfg.StorePath, password)
			if err != nil {
				return err
			}
			defer store.Close()

			fmt.Fprintf(cmd.OutOrStdout(), "Created credential store %s\n", a.cfg.StorePath)

			if a.cfg.Keyring {
				a.rememberStorePassword(store, password)
			}
			return nil
		},
	}
}

// rememberStorePassword caches the store password in the OS keyring.
// Failures only produce a warning.
func (a *app) rememberStorePassword(store *core.Store, password []byte) {
	id, err := store.ID()
	if err != nil {
		a.logger.Warn("store id unavailable", "err", err)
		return
	}
	if err := keyring.SaveStorePassword(id, string(password)); err != nil {
		a.logger.Warn("could not save store password to keyring", "err", err)
		return
	}
	a.logger.Info("store password saved to keyring")
}

func newStoreListCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "ls",
		Aliases: []string{"list"},
		Short:   "List stored credentials",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := core.OpenStore(a.cfg.StorePath)
			if err != nil {
				return err
			}
			defer store.Close()

			entries, err := store.List()
			if err != nil {
				return err
			}
			return writeEntries(cmd.OutOrStdout(), a.cfg.Format, entries)
		},
	}
	cmd.Flags().StringP("format", "f", "text", "output format: text, json, yaml")
	return cmd
}

func writeEntries(w io.Writer, format string, entries []storage.Entry) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(entries)
	case "yaml":
		data, err := yaml.Marshal(entries)
		if err != nil {
			return err
		}
		_, err = w.Write(data)
		return err
	}

	if len(entries) == 0 {
		fmt.Fprintln(w, "No credentials stored")
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tLABEL\tDC\tADDED\tSOURCE")
	for _, e := range entries {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%s\n", shortID(e.ID), e.Label, e.DC, e.Added.Format("2006-01-02 15:04"), e.Source)
	}
	return tw.Flush()
}

func shortID(id string) string {
	if len(id) > 12 {
		return id[:12]
	}
	return id
}

func newStoreAddCommand(a *app) *cobra.Command {
	var (
		sessions     []string
		sessionFiles []string
		label        string
	)

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add credentials from session strings or gotd session files",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if len(sessions) == 0 && len(sessionFiles) == 0 {
				return fmt.Errorf("nothing to add: use --session or --session-file")
			}

			type pending struct {
				source string
				cred   core.Credential
			}
			var items []pending
			for _, s := range sessions {
				d, err := session.DecodeTelethon(s)
				if err != nil {
					return err
				}
				items = append(items, pending{"session", core.Credential{DC: d.DC, AuthKey: d.AuthKey}})
			}
			for _, path := range sessionFiles {
				d, err := session.ReadFile(cmd.Context(), path)
				if err != nil {
					return fmt.Errorf("%s: %w", path, err)
				}
				items = append(items, pending{path, core.Credential{DC: d.DC, AuthKey: d.AuthKey}})
			}

			store, password, err := a.openStore()
			if err != nil {
				return err
			}
			defer store.Close()
			defer crypto.ClearBytes(password)

			for i, it := range items {
				l := label
				if l != "" && len(items) > 1 {
					l = fmt.Sprintf("%s#%d", label, i)
				}
				entry, err := store.Add(password, l, it.source, it.cred)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Added %s (dc %d)\n", shortID(entry.ID), entry.DC)
			}
			return nil
		},
	}

	cmd.Flags().StringArrayVar(&sessions, "session", nil, "telethon string session (repeatable)")
	cmd.Flags().StringArrayVar(&sessionFiles, "session-file", nil, "gotd session file (repeatable)")
	cmd.Flags().StringVar(&label, "label", "", "label for the added credentials")
	return cmd
}

func newStoreRemoveCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "rm <ref>...",
		Short: "Remove credentials by label or id prefix",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := core.OpenStore(a.cfg.StorePath)
			if err != nil {
				return err
			}
			defer store.Close()

			for _, ref := range args {
				entry, err := store.Remove(ref)
				if err != nil {
					return fmt.Errorf("%s: %w", ref, err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed %s\n", shortID(entry.ID))
			}

			// Reclaim the space of the removed blobs
			if err := store.Compact(); err != nil {
				a.logger.Warn("compaction failed", "err", err)
			}
			return nil
		},
	}
}

func newStorePasswdCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "passwd",
		Short: "Change the store password",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, current, err := a.openStore()
			if err != nil {
				return err
			}
			defer store.Close()
			defer crypto.ClearBytes(current)

			if err := store.VerifyPassword(current); err != nil {
				return err
			}

			next, err := core.ReadPasswordConfirm("New store password: ")
			if err != nil {
				return err
			}
			defer crypto.ClearBytes(next)

			if err := store.ChangePassword(current, next); err != nil {
				return err
			}
			if err := store.Compact(); err != nil {
				a.logger.Warn("compaction failed", "err", err)
			}

			if a.cfg.Keyring {
				if id, err := store.ID(); err == nil && keyring.HasStorePassword(id) {
					a.rememberStorePassword(store, next)
				}
			}

			fmt.Fprintln(cmd.OutOrStdout(), "Store password changed")
			return nil
		},
	}
}

func newStoreCompactCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "compact",
		Short: "Compact the store file to reclaim unused space",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := core.OpenStore(a.cfg.StorePath)
			if err != nil {
				return err
			}
			defer store.Close()

			info, err := os.Stat(a.cfg.StorePath)
			if err != nil {
				return err
			}
			sizeBefore := info.Size()

			if err := store.Compact(); err != nil {
				return err
			}

			info, err = os.Stat(a.cfg.StorePath)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Compacted: %s -> %s\n", formatSize(sizeBefore), formatSize(info.Size()))
			return nil
		},
	}
}
