package types

import (
	"context"
	"math"
	"time"
)

type GeoPoint struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Valid reports whether p is a usable WGS84 coordinate pair.
func (p GeoPoint) Valid() bool {
	if math.IsNaN(p.Lat) || math.IsNaN(p.Lng) {
		return false
	}
	return p.Lat >= -90 && p.Lat <= 90 && p.Lng >= -180 && p.Lng <= 180
}

type Restaurant struct {
	ID             string    `json:"id"`
	PlaceID        string    `json:"place_id"`
	Name           string    `json:"name"`
	Address        string    `json:"address"`
	Rating         float64   `json:"rating"`
	RatingCount    int       `json:"rating_count"`
	PriceTier      PriceTier `json:"price_tier"`
	PriceDisplay   string    `json:"price_display"`
	OpenNow        *bool     `json:"open_now,omitempty"`
	TodayHours     string    `json:"today_hours,omitempty"`
	PhotoReference string    `json:"photo_reference,omitempty"`
	PhotoURL       string    `json:"photo_url,omitempty"`
	MapsURL        string    `json:"maps_url"`
}

type Pick struct {
	ID           string    `json:"id"`
	User         string    `json:"user"`
	RestaurantID string    `json:"restaurant_id"`
	Name         string    `json:"name"`
	Address      string    `json:"address"`
	PriceDisplay string    `json:"price_display"`
	Rating       float64   `json:"rating"`
	Origin       GeoPoint  `json:"origin"`
	RadiusMeters float64   `json:"radius_meters"`
	Reason       string    `json:"reason"`
	PickedAt     time.Time `json:"picked_at"`
}

const (
	ReasonSearch  = "search"
	ReasonAnother = "another"
)

type PickSink interface {
	SavePick(ctx context.Context, pick Pick) error
}

type PickStore interface {
	PickSink
	GetPicks(ctx context.Context, user string, limit, offset int) ([]Pick, int, error)
	GetNearbyPicks(ctx context.Context, user string, origin GeoPoint, limit int) ([]Pick, error)
}
