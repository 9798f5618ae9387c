package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/MediSynth-io/medisynth-sso/internal/app"
)

var userInactive bool

var userCmd = &cobra.Command{
	Use:   "user",
	Short: "Manage accounts",
}

var userCreateCmd = &cobra.Command{
	Use:   "create EMAIL PASSWORD",
	Short: "Create an account",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			u, err := a.SSO.Register(ctx, args[0], args[1], !userInactive)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created user %d %s (active=%t)\n", u.ID, u.Email, u.IsActive)
			return nil
		})
	},
}

func setActiveCmd(use string, active bool) *cobra.Command {
	return &cobra.Command{
		Use:   use + " EMAIL",
		Short: strings.ToUpper(use[:1]) + use[1:] + " an account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				u, err := a.SSO.SetActive(ctx, args[0], active)
				if err != nil {
					return fmt.Errorf("%s %s: %w", use, args[0], err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "user %d %s active=%t\n", u.ID, u.Email, u.IsActive)
				return nil
			})
		},
	}
}

func init() {
	userCreateCmd.Flags().BoolVar(&userInactive, "inactive", false, "create the account disabled")

	userCmd.AddCommand(userCreateCmd)
	userCmd.AddCommand(setActiveCmd("activate", true))
	userCmd.AddCommand(setActiveCmd("deactivate", false))
	rootCmd.AddCommand(userCmd)
}
