package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/MediSynth-io/medisynth-sso/internal/models"
	"github.com/MediSynth-io/medisynth-sso/internal/sso"
)

type contextKey string

const sessionContextKey contextKey = "session"

// RequireSession resolves the sso_session cookie and redirects to /login
// when there is no live session.
func (api *Api) RequireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess, err := api.sso.Session(r.Context(), cookieValue(r, SessionCookieName))
		if errors.Is(err, sso.ErrNoSession) {
			api.clearSessionCookie(w)
			http.Redirect(w, r, "/login", http.StatusFound)
			return
		}
		if err != nil {
			api.log.Error(r.Context(), "session lookup failed", "error", err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}

		ctx := context.WithValue(r.Context(), sessionContextKey, sess)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func sessionFromContext(ctx context.Context) (models.Session, bool) {
	sess, ok := ctx.Value(sessionContextKey).(models.Session)
	return sess, ok
}
