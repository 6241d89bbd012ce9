package db

import (
	"time"

	"github.com/google/uuid"
	"github.com/olivere/elastic/v7"

	"wheelofmeals/src/types"
)

// NewPick builds the journal entry for a restaurant shown to user.
func NewPick(user string, r types.Restaurant, origin types.GeoPoint, radiusMeters float64, reason string, at time.Time) types.Pick {
	return types.Pick{
		ID:           uuid.NewString(),
		User:         user,
		RestaurantID: r.ID,
		Name:         r.Name,
		Address:      r.Address,
		PriceDisplay: r.PriceDisplay,
		Rating:       r.Rating,
		Origin:       origin,
		RadiusMeters: radiusMeters,
		Reason:       reason,
		PickedAt:     at.UTC(),
	}
}

func toDoc(p types.Pick) pickDoc {
	return pickDoc{
		ID:           p.ID,
		User:         p.User,
		RestaurantID: p.RestaurantID,
		Name:         p.Name,
		Address:      p.Address,
		PriceDisplay: p.PriceDisplay,
		Rating:       p.Rating,
		Origin:       elastic.GeoPoint{Lat: p.Origin.Lat, Lon: p.Origin.Lng},
		RadiusMeters: p.RadiusMeters,
		Reason:       p.Reason,
		PickedAt:     p.PickedAt.UTC().Format(time.RFC3339Nano),
	}
}

func fromDoc(d pickDoc) (types.Pick, error) {
	at, err := time.Parse(time.RFC3339Nano, d.PickedAt)
	if err != nil {
		return types.Pick{}, err
	}
	return types.Pick{
		ID:           d.ID,
		User:         d.User,
		RestaurantID: d.RestaurantID,
		Name:         d.Name,
		Address:      d.Address,
		PriceDisplay: d.PriceDisplay,
		Rating:       d.Rating,
		Origin:       types.GeoPoint{Lat: d.Origin.Lat, Lng: d.Origin.Lon},
		RadiusMeters: d.RadiusMeters,
		Reason:       d.Reason,
		PickedAt:     at,
	}, nil
}
