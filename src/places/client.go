// Package places talks to the Google Places API (v1) nearby search and turns its
// records into types.Restaurant values.
package places

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"wheelofmeals/src/normalize"
	"wheelofmeals/src/types"
)

const (
	DefaultEndpoint     = "https://places.googleapis.com/v1/places:searchNearby"
	DefaultPhotoBaseURL = "https://places.googleapis.com/v1"
	DefaultTimeout      = 10 * time.Second
	DefaultPageSize     = 20
	DefaultPhotoMaxPx   = 400

	// Roughly a quarter mile to ten miles.
	MinRadiusMeters = 400.0
	MaxRadiusMeters = 16000.0

	restaurantType = "restaurant"
	maxErrorBody   = 4 << 10
)

type Config struct {
	APIKey         string
	Endpoint       string
	PhotoBaseURL   string
	Timeout        time.Duration
	PageSize       int
	PhotoMaxWidth  int
	PhotoMaxHeight int
}

func (c Config) withDefaults() Config {
	if c.Endpoint == "" {
		c.Endpoint = DefaultEndpoint
	}
	if c.PhotoBaseURL == "" {
		c.PhotoBaseURL = DefaultPhotoBaseURL
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	if c.PageSize <= 0 || c.PageSize > DefaultPageSize {
		c.PageSize = DefaultPageSize
	}
	if c.PhotoMaxWidth <= 0 {
		c.PhotoMaxWidth = DefaultPhotoMaxPx
	}
	if c.PhotoMaxHeight <= 0 {
		c.PhotoMaxHeight = DefaultPhotoMaxPx
	}
	return c
}

// Client handles Places API requests.
type Client struct {
	cfg        Config
	httpClient *http.Client
	now        func() time.Time
	log        zerolog.Logger
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithClock sets the clock used to pick today's opening hours.
func WithClock(now func() time.Time) Option {
	return func(c *Client) { c.now = now }
}

func WithLogger(log zerolog.Logger) Option {
	return func(c *Client) { c.log = log.With().Str("component", "places").Logger() }
}

func New(cfg Config, opts ...Option) *Client {
	cfg = cfg.withDefaults()
	c := &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		now:        time.Now,
		log:        zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Search finds restaurants within radiusMeters of origin. It returns either the full
// normalized list or a *Error, never a partial list. Today's hours follow the client's
// clock in its own time zone.
func (c *Client) Search(ctx context.Context, origin types.GeoPoint, radiusMeters float64) ([]types.Restaurant, error) {
	return c.SearchIn(ctx, origin, radiusMeters, nil)
}

// SearchIn is Search with today's hours taken for the caller's time zone loc.
// A nil loc behaves like Search.
func (c *Client) SearchIn(ctx context.Context, origin types.GeoPoint, radiusMeters float64, loc *time.Location) ([]types.Restaurant, error) {
	const op = "search"

	if c.cfg.APIKey == "" {
		return nil, newError(types.ConfigError, op, errors.New("API key not configured"))
	}
	if !origin.Valid() {
		return nil, newError(types.InvalidInput, op, fmt.Errorf("invalid origin (%f, %f)", origin.Lat, origin.Lng))
	}
	if radiusMeters < MinRadiusMeters || radiusMeters > MaxRadiusMeters {
		return nil, newError(types.InvalidInput, op,
			fmt.Errorf("radius %.0fm outside [%.0f, %.0f]", radiusMeters, MinRadiusMeters, MaxRadiusMeters))
	}

	body, err := json.Marshal(searchNearbyRequest{
		IncludedTypes:  []string{restaurantType},
		MaxResultCount: c.cfg.PageSize,
		LocationRestriction: locationRestriction{Circle: circle{
			Center: latLng{Latitude: origin.Lat, Longitude: origin.Lng},
			Radius: radiusMeters,
		}},
	})
	if err != nil {
		return nil, newError(types.ProviderError, op, fmt.Errorf("encode request: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.Endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, newError(types.ConfigError, op, fmt.Errorf("build request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Goog-Api-Key", c.cfg.APIKey)
	req.Header.Set("X-Goog-FieldMask", fieldMask)

	c.log.Debug().
		Float64("lat", origin.Lat).
		Float64("lng", origin.Lng).
		Float64("radius_m", radiusMeters).
		Msg("Searching nearby restaurants")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, newError(types.NetworkError, op, fmt.Errorf("call places API: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, c.statusError(op, resp)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, newError(types.NetworkError, op, fmt.Errorf("read response: %w", err))
	}

	var result searchNearbyResponse
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, newError(types.ProviderError, op, fmt.Errorf("parse response: %w", err))
	}
	if result.Error != nil {
		return nil, newError(types.ProviderError, op, fmt.Errorf("%s: %s", result.Error.Status, result.Error.Message))
	}
	if result.Places == nil {
		return nil, newError(types.ProviderError, op, errors.New("response carries no places list"))
	}

	now := c.now()
	if loc != nil {
		now = now.In(loc)
	}
	weekday := now.Weekday().String()
	restaurants := make([]types.Restaurant, 0, len(*result.Places))
	for _, p := range *result.Places {
		restaurants = append(restaurants, c.toRestaurant(p, weekday))
	}

	c.log.Info().
		Int("count", len(restaurants)).
		Float64("lat", origin.Lat).
		Float64("lng", origin.Lng).
		Msg("Found nearby restaurants")
	return restaurants, nil
}

func (c *Client) statusError(op string, resp *http.Response) error {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))

	msg := string(bytes.TrimSpace(data))
	var body searchNearbyResponse
	if json.Unmarshal(data, &body) == nil && body.Error != nil && body.Error.Message != "" {
		msg = body.Error.Message
	}

	kind := types.ProviderError
	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		kind = types.ConfigError
	}
	return newError(kind, op, fmt.Errorf("places API status %d: %s", resp.StatusCode, msg))
}

func (c *Client) toRestaurant(p place, weekday string) types.Restaurant {
	tier := normalize.ParsePriceLevel(p.PriceLevel)
	r := types.Restaurant{
		ID:           p.ID,
		PlaceID:      p.ID,
		Name:         p.DisplayName.Text,
		Address:      p.FormattedAddress,
		PriceTier:    tier,
		PriceDisplay: normalize.FormatPrice(tier),
	}
	if p.Rating != nil && *p.Rating > 0 && *p.Rating <= 5 {
		r.Rating = *p.Rating
	}
	if p.UserRatingCount != nil && *p.UserRatingCount > 0 {
		r.RatingCount = *p.UserRatingCount
	}
	if h := p.CurrentOpeningHours; h != nil {
		if h.OpenNow != nil {
			open := *h.OpenNow
			r.OpenNow = &open
		}
		if hours, ok := normalize.TodaysHours(h.WeekdayDescriptions, weekday); ok {
			r.TodayHours = hours
		}
	}
	if len(p.Photos) > 0 {
		r.PhotoReference = p.Photos[0].Name
		r.PhotoURL = c.PhotoURL(r.PhotoReference)
	}
	r.MapsURL = MapsURL(r.Name, r.PlaceID)
	return r
}
