package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/MediSynth-io/medisynth-sso/internal/app"
	"github.com/MediSynth-io/medisynth-sso/internal/database"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending schema migrations",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			db, ok := a.Store.(*database.DB)
			if !ok {
				fmt.Fprintf(cmd.OutOrStdout(), "%s store has no schema to migrate\n", a.Config.Database.Type)
				return nil
			}
			// Open already migrated; report where the schema now stands.
			v, err := db.SchemaVersion(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "schema at version %d (%s)\n", v, db.Type())
			return nil
		})
	},
}

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Create the demo administrator account if it is missing",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			res, err := a.SSO.Seed(ctx)
			if err != nil {
				return err
			}
			if !res.Created {
				fmt.Fprintln(cmd.OutOrStdout(), "seed account already exists")
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created %s / %s\n", res.Email, res.Password)
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(seedCmd)
}
