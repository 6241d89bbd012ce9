// Package handlers exposes the search session and the pick journal over HTTP.
package handlers

import (
	"encoding/json"
	"html/template"
	"net/http"
	"time"

	"github.com/rs/zerolog/hlog"

	"wheelofmeals/src/session"
	"wheelofmeals/src/token"
	"wheelofmeals/src/types"
)

type Handler struct {
	sessions *session.Registry
	journal  types.PickStore
	tmpl     *template.Template
	now      func() time.Time
}

func New(sessions *session.Registry, journal types.PickStore, tmpl *template.Template) *Handler {
	return &Handler{
		sessions: sessions,
		journal:  journal,
		tmpl:     tmpl,
		now:      time.Now,
	}
}

// Register mounts every route on mux. Everything except token issue and health
// checks sits behind the issuer's JWT middleware.
func (h *Handler) Register(mux *http.ServeMux, issuer *token.Issuer) {
	mux.HandleFunc("POST /api/get_token", issuer.GetToken)
	mux.HandleFunc("GET /api/health", HandleHealth)

	protected := func(f http.HandlerFunc) http.Handler {
		return issuer.JwtMiddleware(f)
	}
	mux.Handle("POST /api/search", protected(h.HandleSearch))
	mux.Handle("POST /api/another", protected(h.HandleAnother))
	mux.Handle("POST /api/reset", protected(h.HandleReset))
	mux.Handle("GET /api/session", protected(h.HandleSession))
	mux.Handle("GET /api/picks", protected(h.HandleGetPicksAPI))
	mux.Handle("GET /api/picks/nearby", protected(h.HandleNearbyAPI))
	mux.Handle("GET /picks", protected(h.HandleGetPicksHTML))
}

func HandleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, map[string]string{"status": "ok"})
}

// currentUser reads the user placed in the context by the JWT middleware.
func currentUser(w http.ResponseWriter, r *http.Request) (string, bool) {
	user, ok := token.UserFrom(r.Context())
	if !ok {
		http.Error(w, "Forbidden", http.StatusUnauthorized)
	}
	return user, ok
}

func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		hlog.FromRequest(r).Error().Err(err).Msg("Error encoding response")
	}
}
