// Package app assembles the provider from configuration: logger, store,
// token codec, password hasher and the sso service.
package app

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/MediSynth-io/medisynth-sso/internal/auth"
	"github.com/MediSynth-io/medisynth-sso/internal/boltdb"
	"github.com/MediSynth-io/medisynth-sso/internal/config"
	"github.com/MediSynth-io/medisynth-sso/internal/database"
	"github.com/MediSynth-io/medisynth-sso/internal/logging"
	"github.com/MediSynth-io/medisynth-sso/internal/sso"
	"github.com/MediSynth-io/medisynth-sso/internal/store"
)

const TypeBolt = "bolt"

type App struct {
	Config *config.Config
	Log    *logging.SlogLogger
	Store  store.Store
	SSO    *sso.Service
	Tokens *auth.TokenManager
}

// New builds an App writing logs to stderr.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	return NewWithOutput(ctx, cfg, os.Stderr)
}

func NewWithOutput(ctx context.Context, cfg *config.Config, logOut io.Writer) (*App, error) {
	log, err := logging.New(logOut, cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return nil, err
	}

	if cfg.UsesDevSecret() {
		log.Warn(ctx, "JWT_SECRET_KEY not set, using the development secret")
	}

	st, err := OpenStore(ctx, cfg, log)
	if err != nil {
		return nil, err
	}

	tokens, err := auth.NewTokenManager(cfg.JWT.SecretKey, cfg.JWT.Algorithm)
	if err != nil {
		st.Close()
		return nil, err
	}

	svc := sso.NewService(st, tokens, auth.NewHasher(cfg.Password.BcryptCost), sso.Options{
		TokenTTL:   cfg.TokenTTL(),
		SessionTTL: cfg.SessionTTL(),
	}, log)

	return &App{
		Config: cfg,
		Log:    log,
		Store:  st,
		SSO:    svc,
		Tokens: tokens,
	}, nil
}

// OpenStore selects the storage engine named by database.type.
func OpenStore(ctx context.Context, cfg *config.Config, log logging.Logger) (store.Store, error) {
	switch cfg.Database.Type {
	case TypeBolt:
		st, err := boltdb.Open(cfg.Database.Path)
		if err != nil {
			return nil, err
		}
		log.Info(ctx, "database ready", "type", TypeBolt)
		return st, nil
	case database.TypeSQLite, database.TypePostgres:
		db, err := database.Open(ctx, database.OptionsFromConfig(cfg), log)
		if err != nil {
			return nil, err
		}
		return db, nil
	default:
		return nil, fmt.Errorf("unsupported database type: %s", cfg.Database.Type)
	}
}

func (a *App) Close() error {
	return a.Store.Close()
}
