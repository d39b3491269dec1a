package commands

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/username/datadissem/src/config"
	"github.com/username/datadissem/src/logger"
	"github.com/username/datadissem/src/services"
)

func newKeysCommand(cfg *config.AppConfig) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "keys",
		Short: "Manage API keys in the configured key store",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "generate",
			Short: "Issue a new API key and print it once",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				warnEphemeral(cfg)
				registry, closer, err := services.NewAPIKeyRegistry(cfg)
				if err != nil {
					return err
				}
				defer closer.Close()

				key, _, err := registry.Generate()
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), key)
				return nil
			},
		},
		&cobra.Command{
			Use:   "list",
			Short: "List masked API keys with usage counters",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				warnEphemeral(cfg)
				registry, closer, err := services.NewAPIKeyRegistry(cfg)
				if err != nil {
					return err
				}
				defer closer.Close()

				records, err := registry.List()
				if err != nil {
					return err
				}
				tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
				fmt.Fprintln(tw, "KEY\tCREATED\tLAST USED\tCALLS")
				for _, rec := range records {
					lastUsed := "-"
					if rec.LastUsed != nil {
						lastUsed = rec.LastUsed.Format(time.RFC3339)
					}
					fmt.Fprintf(tw, "%s\t%s\t%s\t%d\n", rec.Key, rec.CreatedAt.Format(time.RFC3339), lastUsed, rec.CallCount)
				}
				return tw.Flush()
			},
		},
	)
	return cmd
}

func warnEphemeral(cfg *config.AppConfig) {
	if cfg.KeyStore == config.KeyStoreMemory {
		logger.L.Warn("KEY_STORE is memory; keys managed from the CLI are not visible to a running server")
	}
}
