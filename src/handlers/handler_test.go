package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/rs/zerolog"

	"wheelofmeals/src/db"
	"wheelofmeals/src/places"
	"wheelofmeals/src/session"
	"wheelofmeals/src/token"
	"wheelofmeals/src/types"
)

type fakeSearcher struct {
	mu         sync.Mutex
	results    []types.Restaurant
	err        error
	lastRadius float64
	lastLoc    *time.Location
}

func (f *fakeSearcher) SearchIn(_ context.Context, _ types.GeoPoint, radiusMeters float64, loc *time.Location) ([]types.Restaurant, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastRadius = radiusMeters
	f.lastLoc = loc
	return f.results, f.err
}

type failingStore struct {
	*db.MemoryStore
}

func (failingStore) SavePick(context.Context, types.Pick) error {
	return errors.New("journal down")
}

func restaurants(n int) []types.Restaurant {
	out := make([]types.Restaurant, n)
	for i := range out {
		id := fmt.Sprintf("place-%d", i)
		out[i] = types.Restaurant{ID: id, PlaceID: id, Name: "Spot " + id, PriceDisplay: "$$"}
	}
	return out
}

type testServer struct {
	server   *httptest.Server
	searcher *fakeSearcher
	store    types.PickStore
	token    string
}

func newTestServer(t *testing.T, store types.PickStore) *testServer {
	t.Helper()
	if store == nil {
		store = db.NewMemoryStore(db.DefaultMemoryLimit)
	}
	searcher := &fakeSearcher{results: restaurants(3)}
	registry := session.NewRegistry(searcher, zerolog.Nop(), session.WithRandIndex(func(int) int { return 0 }))

	tmpl, err := LoadTemplate("../templates/template.html")
	if err != nil {
		t.Fatalf("LoadTemplate: %v", err)
	}

	issuer := token.NewIssuer([]byte("test-key"), nil)
	tok, err := issuer.Issue("alice")
	if err != nil {
		t.Fatal(err)
	}

	mux := http.NewServeMux()
	New(registry, store, tmpl).Register(mux, issuer)
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	return &testServer{server: server, searcher: searcher, store: store, token: tok}
}

func (ts *testServer) do(t *testing.T, method, path, body string) (int, string) {
	t.Helper()
	req, err := http.NewRequest(method, ts.server.URL+path, strings.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("Authorization", "Bearer "+ts.token)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	out, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, string(out)
}

func decodeSession(t *testing.T, body string) SessionResponse {
	t.Helper()
	var resp SessionResponse
	if err := json.Unmarshal([]byte(body), &resp); err != nil {
		t.Fatalf("decode %q: %v", body, err)
	}
	return resp
}

func TestSearchThenAnother(t *testing.T) {
	ts := newTestServer(t, nil)

	code, body := ts.do(t, http.MethodPost, "/api/search", `{"lat":40.7,"lng":-74.0,"radius_meters":2000}`)
	if code != http.StatusOK {
		t.Fatalf("search status = %d: %s", code, body)
	}
	resp := decodeSession(t, body)
	if resp.Status != "result" || resp.Outcome != "selected" || resp.Candidates != 3 || resp.Seen != 1 {
		t.Fatalf("search response = %+v", resp)
	}
	if resp.Restaurant == nil || resp.Restaurant.ID != "place-0" {
		t.Fatalf("restaurant = %+v", resp.Restaurant)
	}
	if resp.RadiusMeters != 2000 || resp.Origin == nil || resp.Origin.Lat != 40.7 {
		t.Fatalf("origin/radius = %v/%v", resp.Origin, resp.RadiusMeters)
	}

	code, body = ts.do(t, http.MethodPost, "/api/another", ``)
	if code != http.StatusOK {
		t.Fatalf("another status = %d", code)
	}
	resp = decodeSession(t, body)
	if resp.Seen != 2 || resp.Restaurant == nil || resp.Restaurant.ID != "place-1" {
		t.Fatalf("another response = %+v", resp)
	}

	picks, total, err := ts.store.GetPicks(context.Background(), "alice", 10, 0)
	if err != nil {
		t.Fatal(err)
	}
	if total != 2 || picks[0].Reason != types.ReasonAnother || picks[1].Reason != types.ReasonSearch {
		t.Fatalf("journal = %+v", picks)
	}
	if picks[1].RestaurantID != "place-0" || picks[1].RadiusMeters != 2000 {
		t.Fatalf("first pick = %+v", picks[1])
	}
}

func TestSearchFailureStatus(t *testing.T) {
	tests := []struct {
		name       string
		kind       types.ErrorKind
		wantStatus int
		retryable  bool
	}{
		{name: "invalid input", kind: types.InvalidInput, wantStatus: http.StatusBadRequest},
		{name: "config", kind: types.ConfigError, wantStatus: http.StatusServiceUnavailable},
		{name: "network", kind: types.NetworkError, wantStatus: http.StatusBadGateway, retryable: true},
		{name: "provider", kind: types.ProviderError, wantStatus: http.StatusBadGateway, retryable: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := newTestServer(t, nil)
			ts.searcher.err = &places.Error{Kind: tt.kind, Op: "search", Err: errors.New("boom")}

			code, body := ts.do(t, http.MethodPost, "/api/search", `{"lat":1,"lng":2}`)
			if code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", code, tt.wantStatus)
			}
			resp := decodeSession(t, body)
			if resp.Status != "failed" || resp.Outcome != "failed" || resp.Restaurant != nil {
				t.Fatalf("response = %+v", resp)
			}
			if resp.Error == nil || resp.Error.Kind != tt.kind.String() || resp.Error.Retryable != tt.retryable {
				t.Fatalf("error = %+v", resp.Error)
			}
			if strings.Contains(resp.Error.Message, "boom") {
				t.Errorf("message leaks the cause: %q", resp.Error.Message)
			}

			if _, total, _ := ts.store.GetPicks(context.Background(), "alice", 10, 0); total != 0 {
				t.Fatalf("failed search journaled %d picks", total)
			}
		})
	}
}

func TestSearchEmpty(t *testing.T) {
	ts := newTestServer(t, nil)
	ts.searcher.results = []types.Restaurant{}

	code, body := ts.do(t, http.MethodPost, "/api/search", `{"lat":1,"lng":2}`)
	if code != http.StatusOK {
		t.Fatalf("status = %d", code)
	}
	resp := decodeSession(t, body)
	if resp.Status != "empty" || resp.Outcome != "empty" || resp.Error != nil {
		t.Fatalf("response = %+v", resp)
	}

	_, body = ts.do(t, http.MethodPost, "/api/another", ``)
	if resp := decodeSession(t, body); resp.Status != "empty" {
		t.Fatalf("another after empty = %+v", resp)
	}
}

func TestSearchRequestValidation(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "malformed", body: `{"lat":`},
		{name: "missing lat", body: `{"lng":2}`},
		{name: "missing lng", body: `{"lat":2}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := newTestServer(t, nil)
			if code, _ := ts.do(t, http.MethodPost, "/api/search", tt.body); code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400", code)
			}
		})
	}
}

func TestSearchRadius(t *testing.T) {
	tests := []struct {
		name string
		body string
		want float64
	}{
		{name: "meters", body: `{"lat":1,"lng":2,"radius_meters":800}`, want: 800},
		{name: "miles", body: `{"lat":1,"lng":2,"radius_miles":5}`, want: 8046.72},
		{name: "meters win", body: `{"lat":1,"lng":2,"radius_meters":800,"radius_miles":5}`, want: 800},
		{name: "default", body: `{"lat":1,"lng":2}`, want: DefaultRadiusMeters},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := newTestServer(t, nil)
			ts.do(t, http.MethodPost, "/api/search", tt.body)
			if math.Abs(ts.searcher.lastRadius-tt.want) > 1e-6 {
				t.Fatalf("radius = %v, want %v", ts.searcher.lastRadius, tt.want)
			}
		})
	}
}

func TestSearchTimeZone(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		wantStatus int
		wantLoc    string
	}{
		{name: "caller zone", body: `{"lat":35.68,"lng":139.76,"tz":"Asia/Tokyo"}`, wantStatus: http.StatusOK, wantLoc: "Asia/Tokyo"},
		{name: "no zone", body: `{"lat":35.68,"lng":139.76}`, wantStatus: http.StatusOK},
		{name: "unknown zone", body: `{"lat":35.68,"lng":139.76,"tz":"Mars/Olympus"}`, wantStatus: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := newTestServer(t, nil)
			code, body := ts.do(t, http.MethodPost, "/api/search", tt.body)
			if code != tt.wantStatus {
				t.Fatalf("status = %d, want %d: %s", code, tt.wantStatus, body)
			}

			ts.searcher.mu.Lock()
			loc, radius := ts.searcher.lastLoc, ts.searcher.lastRadius
			ts.searcher.mu.Unlock()

			switch {
			case tt.wantStatus != http.StatusOK:
				if radius != 0 {
					t.Fatal("rejected request reached the searcher")
				}
			case tt.wantLoc == "":
				if loc != nil {
					t.Fatalf("location = %v, want nil", loc)
				}
			default:
				if loc == nil || loc.String() != tt.wantLoc {
					t.Fatalf("location = %v, want %s", loc, tt.wantLoc)
				}
			}
		})
	}
}

func TestResetAndSession(t *testing.T) {
	ts := newTestServer(t, nil)

	_, body := ts.do(t, http.MethodGet, "/api/session", ``)
	if resp := decodeSession(t, body); resp.Status != "idle" || resp.Outcome != "pending" || resp.Origin != nil {
		t.Fatalf("initial session = %+v", resp)
	}

	ts.do(t, http.MethodPost, "/api/search", `{"lat":1,"lng":2}`)
	_, body = ts.do(t, http.MethodGet, "/api/session", ``)
	if resp := decodeSession(t, body); resp.Status != "result" {
		t.Fatalf("session after search = %+v", resp)
	}

	code, body := ts.do(t, http.MethodPost, "/api/reset", ``)
	resp := decodeSession(t, body)
	if code != http.StatusOK || resp.Status != "idle" || resp.Candidates != 0 || resp.Restaurant != nil {
		t.Fatalf("reset = %d %+v", code, resp)
	}

	_, body = ts.do(t, http.MethodPost, "/api/another", ``)
	if resp := decodeSession(t, body); resp.Status != "idle" {
		t.Fatalf("another after reset = %+v", resp)
	}
}

func TestJournalFailureKeepsResponse(t *testing.T) {
	ts := newTestServer(t, failingStore{db.NewMemoryStore(10)})

	code, body := ts.do(t, http.MethodPost, "/api/search", `{"lat":1,"lng":2}`)
	if code != http.StatusOK {
		t.Fatalf("status = %d", code)
	}
	if resp := decodeSession(t, body); resp.Status != "result" || resp.Restaurant == nil {
		t.Fatalf("response = %+v", resp)
	}
}

func TestRequiresToken(t *testing.T) {
	ts := newTestServer(t, nil)
	ts.token = "not-a-token"

	for _, path := range []string{"/api/search", "/api/another", "/api/reset"} {
		if code, _ := ts.do(t, http.MethodPost, path, `{"lat":1,"lng":2}`); code != http.StatusUnauthorized {
			t.Errorf("POST %s = %d, want 401", path, code)
		}
	}
	for _, path := range []string{"/api/session", "/api/picks", "/api/picks/nearby?lat=1&lng=2", "/picks"} {
		if code, _ := ts.do(t, http.MethodGet, path, ``); code != http.StatusUnauthorized {
			t.Errorf("GET %s = %d, want 401", path, code)
		}
	}
	if code, _ := ts.do(t, http.MethodGet, "/api/health", ``); code != http.StatusOK {
		t.Errorf("health = %d, want 200", code)
	}
	if ts.searcher.lastRadius != 0 {
		t.Error("unauthenticated request reached the searcher")
	}
}

func seedPicks(t *testing.T, store types.PickStore, n int) {
	t.Helper()
	start := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < n; i++ {
		r := types.Restaurant{ID: fmt.Sprintf("r%d", i), Name: fmt.Sprintf("Diner %d", i)}
		origin := types.GeoPoint{Lat: float64(i), Lng: float64(i)}
		pick := db.NewPick("alice", r, origin, 1500, types.ReasonSearch, start.Add(time.Duration(i)*time.Minute))
		if err := store.SavePick(context.Background(), pick); err != nil {
			t.Fatal(err)
		}
	}
}

func TestGetPicksAPI(t *testing.T) {
	ts := newTestServer(t, nil)
	seedPicks(t, ts.store, 12)

	tests := []struct {
		name       string
		query      string
		wantStatus int
		wantCount  int
		wantPrev   int
		wantNext   int
	}{
		{name: "first page", query: "", wantStatus: http.StatusOK, wantCount: 10, wantNext: 2},
		{name: "last page", query: "?page=2", wantStatus: http.StatusOK, wantCount: 2, wantPrev: 1},
		{name: "past the end", query: "?page=3", wantStatus: http.StatusBadRequest},
		{name: "not a number", query: "?page=abc", wantStatus: http.StatusBadRequest},
		{name: "zero", query: "?page=0", wantStatus: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, body := ts.do(t, http.MethodGet, "/api/picks"+tt.query, ``)
			if code != tt.wantStatus {
				t.Fatalf("status = %d, want %d: %s", code, tt.wantStatus, body)
			}
			if code != http.StatusOK {
				return
			}
			var page PicksPage
			if err := json.Unmarshal([]byte(body), &page); err != nil {
				t.Fatal(err)
			}
			if page.Total != 12 || page.LastPage != 2 || len(page.Picks) != tt.wantCount {
				t.Fatalf("page = total %d last %d count %d", page.Total, page.LastPage, len(page.Picks))
			}
			if page.PrevPage != tt.wantPrev || page.NextPage != tt.wantNext {
				t.Fatalf("prev/next = %d/%d", page.PrevPage, page.NextPage)
			}
		})
	}
}

func TestGetPicksAPIEmptyJournal(t *testing.T) {
	ts := newTestServer(t, nil)

	code, body := ts.do(t, http.MethodGet, "/api/picks", ``)
	if code != http.StatusOK {
		t.Fatalf("status = %d", code)
	}
	if !strings.Contains(body, `"picks":[]`) || !strings.Contains(body, `"last_page":1`) {
		t.Fatalf("body = %s", body)
	}
}

func TestGetPicksHTML(t *testing.T) {
	ts := newTestServer(t, nil)
	seedPicks(t, ts.store, 12)

	code, body := ts.do(t, http.MethodGet, "/picks?page=1", ``)
	if code != http.StatusOK {
		t.Fatalf("status = %d", code)
	}
	for _, want := range []string{"Total: 12", "Diner 11", "Page 1 of 2", `<ol start="1">`, "(1 more)", `href="/picks?page=2"`} {
		if !strings.Contains(body, want) {
			t.Errorf("page lacks %q", want)
		}
	}
	if strings.Contains(body, "Diner 1<") {
		t.Error("first page shows a pick from the second page")
	}

	code, body = ts.do(t, http.MethodGet, "/picks?page=2", ``)
	if code != http.StatusOK {
		t.Fatalf("page 2 status = %d", code)
	}
	if !strings.Contains(body, `<ol start="11">`) || strings.Contains(body, "more)") {
		t.Errorf("page 2 numbering or pager wrong:\n%s", body)
	}
}

func TestNearbyAPI(t *testing.T) {
	ts := newTestServer(t, nil)
	seedPicks(t, ts.store, 6)

	code, body := ts.do(t, http.MethodGet, "/api/picks/nearby?lat=4.1&lng=4.1", ``)
	if code != http.StatusOK {
		t.Fatalf("status = %d: %s", code, body)
	}
	var rec Recommendation
	if err := json.Unmarshal([]byte(body), &rec); err != nil {
		t.Fatal(err)
	}
	if len(rec.Picks) != nearbyLimit || rec.Picks[0].Name != "Diner 4" {
		t.Fatalf("picks = %+v", rec.Picks)
	}

	for _, q := range []string{"", "?lat=1", "?lat=x&lng=1", "?lat=1&lng=y", "?lat=91&lng=0"} {
		if code, _ := ts.do(t, http.MethodGet, "/api/picks/nearby"+q, ``); code != http.StatusBadRequest {
			t.Errorf("query %q = %d, want 400", q, code)
		}
	}
}
