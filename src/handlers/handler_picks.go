package handlers

import (
	"html/template"
	"net/http"
	"os"
	"strconv"

	"github.com/rs/zerolog/hlog"

	"wheelofmeals/src/types"
)

const (
	pageSize    = 10
	nearbyLimit = 3
)

type PicksPage struct {
	Name     string       `json:"name"`
	Total    int          `json:"total"`
	Picks    []types.Pick `json:"picks"`
	Page     int          `json:"page"`
	Offset   int          `json:"offset"`
	LastPage int          `json:"last_page"`
	PrevPage int          `json:"prev_page,omitempty"`
	NextPage int          `json:"next_page,omitempty"`
}

type Recommendation struct {
	Name  string       `json:"name"`
	Picks []types.Pick `json:"picks"`
}

func (h *Handler) handleGetPicks(w http.ResponseWriter, r *http.Request) (*PicksPage, bool) {
	user, ok := currentUser(w, r)
	if !ok {
		return nil, false
	}

	pageStr := r.URL.Query().Get("page")
	if pageStr == "" {
		pageStr = "1"
	}
	page, err := strconv.Atoi(pageStr)
	if err != nil || page < 1 {
		http.Error(w, "Invalid page number", http.StatusBadRequest)
		return nil, false
	}

	picks, total, err := h.journal.GetPicks(r.Context(), user, pageSize, (page-1)*pageSize)
	if err != nil {
		hlog.FromRequest(r).Error().Err(err).Msg("Error fetching picks")
		http.Error(w, "Error fetching picks", http.StatusInternalServerError)
		return nil, false
	}

	lastPage := (total + pageSize - 1) / pageSize
	if lastPage == 0 {
		lastPage = 1
	}
	if page > lastPage {
		http.Error(w, "Invalid 'page' value: "+pageStr, http.StatusBadRequest)
		return nil, false
	}

	data := &PicksPage{
		Name:     "Picks",
		Picks:    picks,
		Total:    total,
		Page:     page,
		Offset:   (page - 1) * pageSize,
		LastPage: lastPage,
	}
	if data.Picks == nil {
		data.Picks = []types.Pick{}
	}

	if page > 1 {
		data.PrevPage = page - 1
	}

	if page < lastPage {
		data.NextPage = page + 1
	}

	return data, true
}

func (h *Handler) HandleGetPicksHTML(w http.ResponseWriter, r *http.Request) {
	data, ok := h.handleGetPicks(w, r)
	if !ok {
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := h.tmpl.Execute(w, data); err != nil {
		hlog.FromRequest(r).Error().Err(err).Msg("Error rendering template")
		http.Error(w, "Error rendering template", http.StatusInternalServerError)
	}
}

func (h *Handler) HandleGetPicksAPI(w http.ResponseWriter, r *http.Request) {
	data, ok := h.handleGetPicks(w, r)
	if !ok {
		return
	}
	writeJSON(w, r, http.StatusOK, data)
}

// HandleNearbyAPI returns the user's past picks whose search origin lies closest to
// the given point.
func (h *Handler) HandleNearbyAPI(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	latStr := r.URL.Query().Get("lat")
	lngStr := r.URL.Query().Get("lng")
	if latStr == "" || lngStr == "" {
		http.Error(w, "Missing latitude or longitude", http.StatusBadRequest)
		return
	}

	lat, err := strconv.ParseFloat(latStr, 64)
	if err != nil {
		http.Error(w, "Invalid latitude", http.StatusBadRequest)
		return
	}

	lng, err := strconv.ParseFloat(lngStr, 64)
	if err != nil {
		http.Error(w, "Invalid longitude", http.StatusBadRequest)
		return
	}

	origin := types.GeoPoint{Lat: lat, Lng: lng}
	if !origin.Valid() {
		http.Error(w, "Coordinates out of range", http.StatusBadRequest)
		return
	}

	picks, err := h.journal.GetNearbyPicks(r.Context(), user, origin, nearbyLimit)
	if err != nil {
		hlog.FromRequest(r).Error().Err(err).Msg("Error fetching nearby picks")
		http.Error(w, "Error fetching recommendations", http.StatusInternalServerError)
		return
	}
	if picks == nil {
		picks = []types.Pick{}
	}

	writeJSON(w, r, http.StatusOK, Recommendation{Name: "Recommendation", Picks: picks})
}

func LoadTemplate(filename string) (*template.Template, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}

	return template.New("picks").Funcs(template.FuncMap{
		"sub": func(a, b int) int { return a - b },
		"add": func(a, b int) int { return a + b },
	}).Parse(string(data))
}
