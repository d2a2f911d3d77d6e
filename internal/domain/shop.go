package domain

import (
	"strings"
	"time"
)

// Shop represents a coffee shop listed in the directory. The three-level
// ordinal attributes encode low/medium/high as 1/2/3. UserID is nil for
// seeded shops that have no owner.
type Shop struct {
	ID                  string    `json:"id"`
	Name                string    `json:"name"`
	NormalizedName      string    `json:"-"`
	Address             string    `json:"address"`
	WifiQuality         int       `json:"wifi_quality"`
	HasAC               bool      `json:"has_ac"`
	LaptopFriendlySeats int       `json:"laptop_friendly_seats"`
	DogFriendly         bool      `json:"dog_friendly"`
	NoiseLevel          int       `json:"noise_level"`
	OutletAvailability  int       `json:"outlet_availability"`
	UserID              *string   `json:"user_id"`
	CreatedAt           time.Time `json:"created_at"`
}

// ShopWithRating is a shop joined with its rating summary. Shops with no
// reviews carry a nil Rating and a zero Count.
type ShopWithRating struct {
	Shop
	Rating *float64 `json:"aggregated_rating"`
	Count  int      `json:"total_reviews"`
}

// ShopFilter holds the optional predicates for directory listings. Nil fields
// are not applied; set fields combine conjunctively. The ordinal predicates
// are minimum thresholds except NoiseLevel, which is a maximum. HasAC and
// DogFriendly match exactly, MinRating is a lower bound on the shop's
// aggregated rating.
type ShopFilter struct {
	WifiQuality         *int
	HasAC               *bool
	LaptopFriendlySeats *int
	DogFriendly         *bool
	NoiseLevel          *int
	OutletAvailability  *int
	MinRating           *float64
}

// NormalizeName lowercases a shop name and strips all spaces. Two names that
// normalize to the same string are considered the same shop.
func NormalizeName(name string) string {
	return strings.ToLower(strings.ReplaceAll(name, " ", ""))
}
