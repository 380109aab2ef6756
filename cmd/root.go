// Package cmd implements the tdvault command line.
package cmd

import (
	"context"
	"os"

	"github.com/carlmjohnson/versioninfo"
	"github.com/charmbracelet/fang"
	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/illarion/tdvault/internal/config"
	"github.com/illarion/tdvault/internal/core"
	"github.com/illarion/tdvault/internal/logging"
)

// app carries state shared by all commands once flags are parsed
type app struct {
	configFile string
	cfg        *config.Config
	logger     *log.Logger
	td         *core.TData
}

// NewRootCommand builds the command tree
func NewRootCommand() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "tdvault",
		Short: "Read and write tdata credential containers",
		Long: `tdvault extracts per-account credentials from a desktop messenger
tdata directory and builds new tdata directories from credentials held
elsewhere: session strings, YAML files or the local encrypted store.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd)
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.configFile, "config", "", "config file (default: tdvault.yaml in user config dir or cwd)")
	flags.String("log-level", "warn", "log level: debug, info, warn, error")
	flags.String("store", config.DefaultStorePath(), "credential store path")
	flags.Bool("keyring", true, "use the OS keyring for passcodes and the store password")

	root.AddCommand(
		newExtractCommand(a),
		newBuildCommand(a),
		newValidateCommand(a),
		newDiffCommand(a),
		newExportCommand(a),
		newStoreCommand(a),
		newKeyringCommand(a),
		newConfigCommand(a),
	)

	return root
}

func (a *app) setup(cmd *cobra.Command) error {
	cfg, err := config.Load(cmd, a.configFile)
	if err != nil {
		return err
	}
	if err := logging.Setup(os.Stderr, cfg.LogLevel); err != nil {
		return err
	}

	a.cfg = cfg
	a.logger = logging.L
	a.td = core.New(core.WithLogger(a.logger))
	a.logger.Debug("config loaded", "store", cfg.StorePath, "workers", cfg.Workers, "keyring", cfg.Keyring)
	return nil
}

// Execute runs the CLI and returns the process exit code
func Execute(ctx context.Context) int {
	if err := fang.Execute(
		ctx,
		NewRootCommand(),
		fang.WithVersion(versioninfo.Short()),
		fang.WithErrorHandler(ErrorHandler),
	); err != nil {
		return 1
	}
	return 0
}
