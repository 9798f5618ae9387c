package cmd

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/MediSynth-io/medisynth-sso/internal/app"
	"github.com/MediSynth-io/medisynth-sso/internal/config"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "ssoctl",
	Short: "Administer the SSO provider",
	Long: `Operator tooling for the SSO provider: schema migrations, account
management, token revocation, session pruning and audit export.`,
	SilenceUsage: true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to configuration file (defaults to $CONFIG_DIR/app.yml)")
}

// withApp loads the configuration, assembles the provider and runs fn
// against it. Logs go to the command's error stream.
func withApp(cmd *cobra.Command, fn func(ctx context.Context, a *app.App) error) error {
	load := config.Init
	if configPath != "" {
		load = func() (*config.Config, error) { return config.LoadConfig(configPath) }
	}
	cfg, err := load()
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	a, err := app.NewWithOutput(ctx, cfg, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer a.Close()

	return fn(ctx, a)
}
