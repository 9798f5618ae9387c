package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/awnumar/memguard"

	"github.com/MediSynth-io/medisynth-sso/internal/api"
	"github.com/MediSynth-io/medisynth-sso/internal/app"
	"github.com/MediSynth-io/medisynth-sso/internal/config"
)

const version = "0.1.0"

func initializeAPI(ctx context.Context, configPath string) (*api.Api, *app.App, error) {
	var (
		cfg *config.Config
		err error
	)
	if configPath == "" {
		cfg, err = config.Init()
	} else {
		cfg, err = config.LoadConfig(configPath)
	}
	if err != nil {
		return nil, nil, err
	}

	a, err := app.New(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}

	srv, err := api.NewApi(cfg, a.SSO, a.Log)
	if err != nil {
		a.Close()
		return nil, nil, err
	}
	return srv, a, nil
}

// run serves until ctx is cancelled. It returns instead of exiting so the
// caller can purge sealed key material first.
func run(ctx context.Context, configPath string) error {
	srv, a, err := initializeAPI(ctx, configPath)
	if err != nil {
		return err
	}
	defer a.Close()

	return srv.Serve(ctx)
}

func main() {
	configPath := flag.String("config", "", "Path to configuration file (defaults to $CONFIG_DIR/app.yml)")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	log.Printf("Starting SSO provider v%s with config: %q", version, *configPath)

	err := run(ctx, *configPath)
	stop()
	memguard.Purge()
	if err != nil {
		log.Fatal(err)
	}
}
