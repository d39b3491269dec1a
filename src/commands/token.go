package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/username/datadissem/src/config"
	"github.com/username/datadissem/src/security"
)

func newTokenCommand(cfg *config.AppConfig) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint an admin bearer token signed with JWT_SECRET",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			expiry := cfg.AdminTokenExpiry
			if d, _ := cmd.Flags().GetDuration("expiry"); d > 0 {
				expiry = d
			}
			tokens, err := security.NewAdminTokens(cfg.JWTSecret, expiry)
			if err != nil {
				return err
			}
			token, err := tokens.Issue()
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().Duration("expiry", 0, "token lifetime (overrides ADMIN_TOKEN_EXPIRY)")
	return cmd
}
