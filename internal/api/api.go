// Package api is the HTTP surface of the SSO provider.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/MediSynth-io/medisynth-sso/internal/config"
	"github.com/MediSynth-io/medisynth-sso/internal/logging"
	"github.com/MediSynth-io/medisynth-sso/internal/sso"
)

type Api struct {
	Config *config.Config
	Router *chi.Mux

	sso       *sso.Service
	log       logging.Logger
	templates *templateSet
}

func NewApi(cfg *config.Config, svc *sso.Service, log logging.Logger) (*Api, error) {
	if cfg == nil || cfg.APIPort == 0 {
		return nil, errors.New("Must have at least a port to start API")
	}

	templates, err := loadTemplates()
	if err != nil {
		return nil, err
	}

	api := &Api{
		Config:    cfg,
		Router:    chi.NewRouter(),
		sso:       svc,
		log:       log,
		templates: templates,
	}
	api.setupRoutes()
	return api, nil
}

func (api *Api) setupRoutes() {
	r := api.Router
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Heartbeat("/heartbeat"))
	r.Use(middleware.Timeout(api.Config.RequestTimeout()))

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/home", http.StatusFound)
	})

	r.Get("/login", api.LoginPageHandler)
	r.Post("/login", api.LoginHandler)
	r.Post("/logout", api.LogoutHandler)

	r.Group(func(r chi.Router) {
		r.Use(api.RequireSession)
		r.Get("/home", api.HomeHandler)
	})

	// Relying parties call validation cross-origin.
	r.Group(func(r chi.Router) {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   api.Config.CORS.AllowedOrigins,
			AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
		r.Get("/validate_token", api.ValidateTokenHandler)
		r.Post("/validate_token", api.ValidateTokenHandler)
		r.Options("/validate_token", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNoContent)
		})
	})

	if api.Config.Seed.Enabled {
		r.Post("/setup_seed", api.SetupSeedHandler)
	}
}

// Serve listens on the configured port until ctx is cancelled, then shuts
// down gracefully.
func (api *Api) Serve(ctx context.Context) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf("0.0.0.0:%d", api.Config.APIPort),
		Handler:           api.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		api.log.Info(ctx, "starting API server", "addr", srv.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	api.log.Info(shutdownCtx, "shutting down API server")
	return srv.Shutdown(shutdownCtx)
}
