// Package normalize maps provider-specific price and opening-hours values to display forms.
package normalize

import (
	"strings"

	"wheelofmeals/src/types"
)

const priceNotAvailable = "Price not available"

// FormatPrice is the display text for a tier: its symbol, or "Price not available"
// when the tier carries none.
func FormatPrice(tier types.PriceTier) string {
	if symbol := tier.Symbol(); symbol != "" {
		return symbol
	}
	return priceNotAvailable
}

// ParsePriceLevel maps a provider price level such as "PRICE_LEVEL_MODERATE" to a tier.
// Unrecognised or missing values map to types.PriceUnknown.
func ParsePriceLevel(level string) types.PriceTier {
	var tier types.PriceTier
	_ = tier.UnmarshalText([]byte(strings.TrimSpace(level)))
	return tier
}

// TodaysHours returns the hours text for weekday from schedule lines shaped like
// "Monday: 9:00 AM – 5:00 PM". The day prefix is compared case-insensitively.
func TodaysHours(lines []string, weekday string) (string, bool) {
	weekday = strings.TrimSpace(weekday)
	if weekday == "" {
		return "", false
	}
	for _, line := range lines {
		day, hours, found := strings.Cut(line, ":")
		if !found {
			continue
		}
		if strings.EqualFold(strings.TrimSpace(day), weekday) {
			return strings.TrimSpace(hours), true
		}
	}
	return "", false
}
