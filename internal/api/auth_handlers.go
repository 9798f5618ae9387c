package api

import (
	"errors"
	"net/http"

	"github.com/MediSynth-io/medisynth-sso/internal/auth"
	"github.com/MediSynth-io/medisynth-sso/internal/sso"
)

func (api *Api) LoginPageHandler(w http.ResponseWriter, r *http.Request) {
	_, err := api.sso.Session(r.Context(), cookieValue(r, SessionCookieName))
	switch {
	case err == nil:
		http.Redirect(w, r, "/home", http.StatusFound)
		return
	case !errors.Is(err, sso.ErrNoSession):
		api.log.Error(r.Context(), "session lookup failed", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	api.renderTemplate(w, r, http.StatusOK, "login.html", "Login", nil)
}

func (api *Api) LoginHandler(w http.ResponseWriter, r *http.Request) {
	email := r.FormValue("email")
	password := r.FormValue("password")

	res, err := api.sso.Login(r.Context(), email, password)
	if errors.Is(err, auth.ErrInvalidCredentials) {
		api.renderTemplate(w, r, http.StatusUnauthorized, "login.html", "Login", map[string]any{
			"Error": "Invalid credentials",
			"Email": email,
		})
		return
	}
	if err != nil {
		api.log.Error(r.Context(), "login failed", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	// A fresh login replaces whatever session the browser held before.
	if old := cookieValue(r, SessionCookieName); old != "" {
		if err := api.sso.EndSession(r.Context(), old); err != nil {
			api.log.Warn(r.Context(), "dropping previous session", "error", err)
		}
	}

	api.setSessionCookie(w, res.Session.ID, res.Session.ExpiresAt)
	api.setTokenCookie(w, res.Token.Token)
	http.Redirect(w, r, "/home", http.StatusFound)
}

func (api *Api) HomeHandler(w http.ResponseWriter, r *http.Request) {
	sess, ok := sessionFromContext(r.Context())
	if !ok {
		http.Redirect(w, r, "/login", http.StatusFound)
		return
	}

	acc, err := api.sso.Access(r.Context(), sess, tokenFromRequest(r))
	if errors.Is(err, sso.ErrSessionUser) {
		if err := api.sso.EndSession(r.Context(), sess.ID); err != nil {
			api.log.Warn(r.Context(), "ending orphaned session", "error", err)
		}
		api.clearSessionCookie(w)
		api.clearTokenCookie(w)
		http.Redirect(w, r, "/login", http.StatusFound)
		return
	}
	if err != nil {
		api.log.Error(r.Context(), "access revalidation failed", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	if acc.Reissued {
		api.setTokenCookie(w, acc.Token)
	}
	api.renderTemplate(w, r, http.StatusOK, "home.html", "Home", map[string]any{
		"Email": sess.Email,
		"Token": acc.Token,
	})
}

// LogoutHandler never reports failure to the caller; storage problems are
// logged and the browser state is cleared regardless.
func (api *Api) LogoutHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if err := api.sso.Logout(ctx, tokenFromRequest(r)); err != nil {
		api.log.Error(ctx, "logout revocation failed", "error", err)
	}
	if err := api.sso.EndSession(ctx, cookieValue(r, SessionCookieName)); err != nil {
		api.log.Error(ctx, "logout session cleanup failed", "error", err)
	}

	api.clearSessionCookie(w)
	api.clearTokenCookie(w)
	http.Redirect(w, r, "/login", http.StatusFound)
}
