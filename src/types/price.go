package types

import "fmt"

type PriceTier int

const (
	PriceUnknown PriceTier = iota
	PriceFree
	PriceInexpensive
	PriceModerate
	PriceExpensive
	PriceVeryExpensive
)

var priceLevelNames = map[PriceTier]string{
	PriceUnknown:       "PRICE_LEVEL_UNSPECIFIED",
	PriceFree:          "PRICE_LEVEL_FREE",
	PriceInexpensive:   "PRICE_LEVEL_INEXPENSIVE",
	PriceModerate:      "PRICE_LEVEL_MODERATE",
	PriceExpensive:     "PRICE_LEVEL_EXPENSIVE",
	PriceVeryExpensive: "PRICE_LEVEL_VERY_EXPENSIVE",
}

// Symbol is the short display form of the tier: "" for Unknown, "Free", then "$" to "$$$$".
func (t PriceTier) Symbol() string {
	switch t {
	case PriceFree:
		return "Free"
	case PriceInexpensive:
		return "$"
	case PriceModerate:
		return "$$"
	case PriceExpensive:
		return "$$$"
	case PriceVeryExpensive:
		return "$$$$"
	default:
		return ""
	}
}

// String returns the provider's enum name for the tier.
func (t PriceTier) String() string {
	if name, ok := priceLevelNames[t]; ok {
		return name
	}
	return fmt.Sprintf("PriceTier(%d)", int(t))
}

func (t PriceTier) MarshalText() ([]byte, error) {
	if _, ok := priceLevelNames[t]; !ok {
		return []byte(priceLevelNames[PriceUnknown]), nil
	}
	return []byte(t.String()), nil
}

func (t *PriceTier) UnmarshalText(text []byte) error {
	for tier, name := range priceLevelNames {
		if name == string(text) {
			*t = tier
			return nil
		}
	}
	*t = PriceUnknown
	return nil
}
