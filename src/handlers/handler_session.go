package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/rs/zerolog/hlog"

	"wheelofmeals/src/db"
	"wheelofmeals/src/session"
	"wheelofmeals/src/types"
)

const (
	DefaultRadiusMeters = 1500
	metersPerMile       = 1609.344
)

type SearchRequest struct {
	Lat          *float64 `json:"lat"`
	Lng          *float64 `json:"lng"`
	RadiusMeters float64  `json:"radius_meters"`
	RadiusMiles  float64  `json:"radius_miles"`
	// TZ is the caller's IANA time zone, used to pick today's opening hours.
	TZ string `json:"tz"`
}

// Location resolves TZ; an empty TZ yields nil.
func (req SearchRequest) Location() (*time.Location, error) {
	if req.TZ == "" {
		return nil, nil
	}
	return time.LoadLocation(req.TZ)
}

// Radius prefers meters, falls back to miles, then to DefaultRadiusMeters.
func (req SearchRequest) Radius() float64 {
	switch {
	case req.RadiusMeters != 0:
		return req.RadiusMeters
	case req.RadiusMiles != 0:
		return req.RadiusMiles * metersPerMile
	default:
		return DefaultRadiusMeters
	}
}

type SessionResponse struct {
	Status       string            `json:"status"`
	Outcome      string            `json:"outcome"`
	Restaurant   *types.Restaurant `json:"restaurant,omitempty"`
	Origin       *types.GeoPoint   `json:"origin,omitempty"`
	RadiusMeters float64           `json:"radius_meters,omitempty"`
	Candidates   int               `json:"candidates"`
	Seen         int               `json:"seen"`
	Error        *ErrorBody        `json:"error,omitempty"`
}

type ErrorBody struct {
	Kind      string `json:"kind"`
	Message   string `json:"message"`
	Retryable bool   `json:"retryable"`
}

func newSessionResponse(st session.State) SessionResponse {
	resp := SessionResponse{
		Status:     st.Status.String(),
		Outcome:    st.Outcome().Kind.String(),
		Restaurant: st.Selected,
		Candidates: len(st.Candidates),
		Seen:       st.Seen(),
	}
	if st.Status != session.Idle {
		origin := st.Origin
		resp.Origin = &origin
		resp.RadiusMeters = st.RadiusMeters
	}
	if st.Status == session.Failed {
		resp.Error = &ErrorBody{
			Kind:      st.ErrKind.String(),
			Message:   errorMessage(st.ErrKind),
			Retryable: st.ErrKind.Retryable(),
		}
	}
	return resp
}

func errorMessage(kind types.ErrorKind) string {
	switch kind {
	case types.ConfigError:
		return "Restaurant search is not configured"
	case types.NetworkError:
		return "Could not reach the places service, try again"
	case types.InvalidInput:
		return "Location or radius is out of range"
	default:
		return "The places service returned an unusable response, try again"
	}
}

func statusFor(st session.State) int {
	if st.Status != session.Failed {
		return http.StatusOK
	}
	switch st.ErrKind {
	case types.InvalidInput:
		return http.StatusBadRequest
	case types.ConfigError:
		return http.StatusServiceUnavailable
	default:
		return http.StatusBadGateway
	}
}

func (h *Handler) HandleSearch(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	var req SearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request payload", http.StatusBadRequest)
		return
	}
	if req.Lat == nil || req.Lng == nil {
		http.Error(w, "Missing latitude or longitude", http.StatusBadRequest)
		return
	}

	loc, err := req.Location()
	if err != nil {
		http.Error(w, "Invalid time zone: "+req.TZ, http.StatusBadRequest)
		return
	}

	origin := types.GeoPoint{Lat: *req.Lat, Lng: *req.Lng}
	st := h.sessions.Get(user).SearchIn(r.Context(), origin, req.Radius(), loc)
	if st.Status == session.Failed {
		hlog.FromRequest(r).Warn().
			Str("kind", st.ErrKind.String()).
			AnErr("cause", st.Err).
			Msg("Search failed")
	}
	h.record(r, user, st, types.ReasonSearch)
	writeJSON(w, r, statusFor(st), newSessionResponse(st))
}

func (h *Handler) HandleAnother(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	st := h.sessions.Get(user).PickAnother()
	h.record(r, user, st, types.ReasonAnother)
	writeJSON(w, r, statusFor(st), newSessionResponse(st))
}

func (h *Handler) HandleReset(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	st := h.sessions.Get(user).Reset()
	writeJSON(w, r, http.StatusOK, newSessionResponse(st))
}

func (h *Handler) HandleSession(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	st := h.sessions.Get(user).State()
	writeJSON(w, r, statusFor(st), newSessionResponse(st))
}

// record journals the selected restaurant. Journal errors are logged and never
// change the response.
func (h *Handler) record(r *http.Request, user string, st session.State, reason string) {
	if st.Status != session.Result || st.Selected == nil {
		return
	}
	pick := db.NewPick(user, *st.Selected, st.Origin, st.RadiusMeters, reason, h.now())
	if err := h.journal.SavePick(r.Context(), pick); err != nil {
		hlog.FromRequest(r).Error().Err(err).Str("pick", pick.ID).Msg("Failed to journal pick")
	}
}
