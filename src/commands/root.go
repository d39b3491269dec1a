// Package commands holds the datadissem command-line interface.
package commands

import (
	"github.com/spf13/cobra"

	"github.com/username/datadissem/src/config"
	"github.com/username/datadissem/src/logger"
)

// Build-time variables (set via -ldflags).
var (
	version = "dev"
	commit  = "unknown"
)

// NewRootCommand assembles the CLI. Each call returns an independent tree.
func NewRootCommand() *cobra.Command {
	var cfg config.AppConfig

	root := &cobra.Command{
		Use:           "datadissem",
		Short:         "Filter, chart and disseminate a tabular dataset over a key-gated API",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg = *config.LoadConfig()
			if lvl, _ := cmd.Flags().GetString("log-level"); lvl != "" {
				cfg.LogLevel = lvl
			}
			logger.InitLoggerTo(cmd.ErrOrStderr(), cfg.LogLevel)
			return nil
		},
	}
	root.PersistentFlags().String("log-level", "", "log level override (debug, info, warn, error)")

	root.AddCommand(
		newVersionCommand(),
		newServeCommand(&cfg),
		newQueryCommand(&cfg),
		newKeysCommand(&cfg),
		newTokenCommand(&cfg),
	)
	return root
}

// Execute runs the CLI with os.Args.
func Execute() error {
	return NewRootCommand().Execute()
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return nil
		},
		Run: func(cmd *cobra.Command, args []string) {
			cmd.Printf("datadissem %s (commit %s)\n", version, commit)
		},
	}
}
