package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/MediSynth-io/medisynth-sso/internal/app"
	"github.com/MediSynth-io/medisynth-sso/internal/audit"
)

var auditEmail string

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Token audit tooling",
}

var auditExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Upload issued token records to the configured S3 bucket",
	Long: `Writes every issued token record (or those of --email) as one JSON
line each to audit.s3_bucket under audit.s3_prefix/YYYY/MM/DD/.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			exp, err := audit.NewS3Exporter(ctx, a.Config)
			if err != nil {
				return err
			}
			recs, err := a.SSO.Tokens(ctx, auditEmail)
			if err != nil {
				return err
			}
			res, err := exp.Export(ctx, recs)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "exported %d records (%d bytes) to s3://%s/%s\n", res.Count, res.Size, res.Bucket, res.Key)
			return nil
		})
	},
}

func init() {
	auditExportCmd.Flags().StringVar(&auditEmail, "email", "", "only tokens of this account")

	auditCmd.AddCommand(auditExportCmd)
	rootCmd.AddCommand(auditCmd)
}
