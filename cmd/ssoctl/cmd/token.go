package cmd

import (
	"context"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/MediSynth-io/medisynth-sso/internal/app"
)

var tokenListEmail string

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Inspect and revoke issued tokens",
}

var tokenListCmd = &cobra.Command{
	Use:   "list",
	Short: "List issued token records",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			recs, err := a.SSO.Tokens(ctx, tokenListEmail)
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "JTI\tUSER\tISSUED\tEXPIRES\tREVOKED")
			for _, r := range recs {
				fmt.Fprintf(tw, "%s\t%d\t%s\t%s\t%t\n", r.JTI, r.UserID,
					r.IssuedAt.UTC().Format(time.RFC3339), r.ExpiresAt.UTC().Format(time.RFC3339), r.Revoked)
			}
			return tw.Flush()
		})
	},
}

var tokenRevokeCmd = &cobra.Command{
	Use:   "revoke JTI",
	Short: "Revoke a token by its jti",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			if err := a.SSO.Revoke(ctx, args[0]); err != nil {
				return fmt.Errorf("revoke %s: %w", args[0], err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "revoked %s\n", args[0])
			return nil
		})
	},
}

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "Manage server-side sessions",
}

var sessionsPruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete expired sessions",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			n, err := a.SSO.PruneSessions(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "pruned %d sessions\n", n)
			return nil
		})
	},
}

func init() {
	tokenListCmd.Flags().StringVar(&tokenListEmail, "email", "", "only tokens of this account")

	tokenCmd.AddCommand(tokenListCmd)
	tokenCmd.AddCommand(tokenRevokeCmd)
	sessionsCmd.AddCommand(sessionsPruneCmd)
	rootCmd.AddCommand(tokenCmd)
	rootCmd.AddCommand(sessionsCmd)
}
