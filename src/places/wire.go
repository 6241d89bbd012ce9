package places

import "strings"

var fieldMask = strings.Join([]string{
	"places.id",
	"places.displayName",
	"places.formattedAddress",
	"places.rating",
	"places.userRatingCount",
	"places.priceLevel",
	"places.currentOpeningHours.openNow",
	"places.currentOpeningHours.weekdayDescriptions",
	"places.photos",
}, ",")

type searchNearbyRequest struct {
	IncludedTypes       []string            `json:"includedTypes"`
	MaxResultCount      int                 `json:"maxResultCount"`
	LocationRestriction locationRestriction `json:"locationRestriction"`
}

type locationRestriction struct {
	Circle circle `json:"circle"`
}

type circle struct {
	Center latLng  `json:"center"`
	Radius float64 `json:"radius"`
}

type latLng struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// searchNearbyResponse keeps Places as a pointer so a missing array can be told apart from an empty one.
type searchNearbyResponse struct {
	Places *[]place     `json:"places"`
	Error  *statusError `json:"error,omitempty"`
}

type statusError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Status  string `json:"status"`
}

type place struct {
	ID          string `json:"id"`
	DisplayName struct {
		Text         string `json:"text"`
		LanguageCode string `json:"languageCode"`
	} `json:"displayName"`
	FormattedAddress    string        `json:"formattedAddress"`
	Rating              *float64      `json:"rating,omitempty"`
	UserRatingCount     *int          `json:"userRatingCount,omitempty"`
	PriceLevel          string        `json:"priceLevel,omitempty"`
	CurrentOpeningHours *openingHours `json:"currentOpeningHours,omitempty"`
	Photos              []photo       `json:"photos,omitempty"`
}

type openingHours struct {
	OpenNow             *bool    `json:"openNow,omitempty"`
	WeekdayDescriptions []string `json:"weekdayDescriptions,omitempty"`
}

type photo struct {
	Name     string `json:"name"`
	WidthPx  int    `json:"widthPx"`
	HeightPx int    `json:"heightPx"`
}
