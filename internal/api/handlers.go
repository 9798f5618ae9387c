package api

import (
	"encoding/json"
	"net/http"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// ValidateTokenHandler takes the token from the "token" parameter, then the
// bearer header, then the cookie.
func (api *Api) ValidateTokenHandler(w http.ResponseWriter, r *http.Request) {
	token := r.FormValue("token")
	if token == "" {
		token = tokenFromRequest(r)
	}

	res, err := api.sso.Validate(r.Context(), token)
	if err != nil {
		api.log.Error(r.Context(), "token validation failed", "error", err)
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "validation temporarily unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (api *Api) SetupSeedHandler(w http.ResponseWriter, r *http.Request) {
	res, err := api.sso.Seed(r.Context())
	if err != nil {
		api.log.Error(r.Context(), "seeding failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "seeding failed"})
		return
	}
	writeJSON(w, http.StatusOK, res)
}
