package places

import (
	"net/url"
	"strconv"
	"strings"
)

const (
	mapsSearchURL = "https://www.google.com/maps/search/"
	maxPhotoPx    = 4800
)

// PhotoURL builds the media URL for a photo reference ("places/<id>/photos/<ref>").
// It returns "" when ref is empty.
func (c *Client) PhotoURL(ref string) string {
	ref = strings.Trim(ref, "/")
	if ref == "" {
		return ""
	}
	params := url.Values{}
	params.Set("maxWidthPx", strconv.Itoa(clampPx(c.cfg.PhotoMaxWidth)))
	params.Set("maxHeightPx", strconv.Itoa(clampPx(c.cfg.PhotoMaxHeight)))
	params.Set("key", c.cfg.APIKey)
	return strings.TrimRight(c.cfg.PhotoBaseURL, "/") + "/" + ref + "/media?" + params.Encode()
}

// MapsURL is the deep link handed to a map launcher for the given restaurant.
func MapsURL(name, placeID string) string {
	params := url.Values{}
	params.Set("api", "1")
	params.Set("query", name)
	if placeID != "" {
		params.Set("query_place_id", placeID)
	}
	return mapsSearchURL + "?" + params.Encode()
}

func clampPx(px int) int {
	if px < 1 {
		return 1
	}
	if px > maxPhotoPx {
		return maxPhotoPx
	}
	return px
}
