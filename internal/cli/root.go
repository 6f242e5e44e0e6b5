// Package cli is the outpost command-line agent. Every command except version,
// help and shell completion opens the configured store through app.New and
// releases it when done.
package cli

import (
	"context"
	"io"

	"github.com/spf13/cobra"

	"github.com/MrSnakeDoc/outpost/internal/app"
	"github.com/MrSnakeDoc/outpost/internal/config"
	"github.com/MrSnakeDoc/outpost/internal/logger"
)

// session holds what a command run needs. It is filled by the root
// PersistentPreRunE, after flags are parsed.
type session struct {
	cfgFile  string
	logLevel string

	cfg    *config.Config
	logger logger.Logger
	app    *app.App
}

// Execute runs the command tree with args and returns the first error. The store
// opened for the command is closed even when the command fails.
func Execute(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	s := &session{}
	defer s.shutdown()

	root := newRootCmd(s)
	root.SetArgs(args)
	root.SetIn(stdin)
	root.SetOut(stdout)
	root.SetErr(stderr)
	return root.ExecuteContext(ctx)
}

func newRootCmd(s *session) *cobra.Command {
	root := &cobra.Command{
		Use:   "outpost",
		Short: "Catalogue and sync self-hosted services",
		Long: `outpost keeps a registry of self-hosted services (containers, VMs, shares, links)
and reconciles manual entries, container discovery and imports from other instances
through one idempotent merge.

Configuration comes from OUTPOST_* environment variables and an optional YAML file.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: s.open,
	}

	root.PersistentFlags().StringVarP(&s.cfgFile, "config", "c", "", "config file (default: $OUTPOST_CONFIG)")
	root.PersistentFlags().StringVar(&s.logLevel, "log-level", "", "override log level (debug, info, warn, error)")

	root.AddCommand(
		newListCmd(s),
		newAddCmd(s),
		newExportCmd(s),
		newImportCmd(s),
		newDiscoverCmd(s),
		newServeCmd(s),
		newToggleCmd(s),
		newRemoveCmd(s),
		newVersionCmd(),
	)

	return root
}

func (s *session) open(cmd *cobra.Command, _ []string) error {
	if !needsStore(cmd) {
		return nil
	}

	cfg, err := config.LoadFile(s.cfgFile)
	if err != nil {
		return err
	}
	if s.logLevel != "" {
		cfg.LogLevel = s.logLevel
	}

	s.cfg = cfg
	s.logger = logger.New(cfg.LogLevel, cfg.PrettyLog)
	s.logger.Debug("configuration loaded", logger.String("store", cfg.Store))

	a, err := app.New(cmd.Context(), cfg, s.logger)
	if err != nil {
		return err
	}
	s.app = a
	return nil
}

// needsStore is false for cobra's help and completion commands, which only print.
func needsStore(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		switch c.Name() {
		case "help", "completion", cobra.ShellCompRequestCmd, cobra.ShellCompNoDescRequestCmd:
			return false
		}
	}
	return true
}

func (s *session) shutdown() {
	if s.app != nil {
		_ = s.app.Close()
	}
	if s.logger != nil {
		_ = s.logger.Sync()
	}
}
