// Copyright 2025 The ChapaUY Authors
// SPDX-License-Identifier: Apache-2.0

package proximity

import (
	"cmp"
	"slices"

	"github.com/jcodagnone/cercania/spatial"
)

// PlaceCategory is the static configuration of one kind of point of interest.
type PlaceCategory struct {
	Name           string   `json:"name"                      toml:"name"           validate:"required"`
	DisplayName    string   `json:"display_name"              toml:"display_name"`
	SearchKeywords []string `json:"search_keywords,omitempty" toml:"keywords"       validate:"omitempty,dive,required"`
	SearchText     string   `json:"search_text,omitempty"     toml:"text"`
	InitialRadius  int      `json:"initial_radius"            toml:"initial_radius" validate:"gt=0"`
	MaxRadius      int      `json:"max_radius"                toml:"max_radius"     validate:"gtefield=InitialRadius"`
	MinItemTarget  int      `json:"min_item_target"           toml:"min_items"      validate:"gte=0"`

	// UsedRadius is the last radius queried by the most recent run.
	UsedRadius int `json:"used_radius,omitempty" toml:"-"`
}

// Label returns the display name, falling back to the name.
func (c PlaceCategory) Label() string {
	if c.DisplayName != "" {
		return c.DisplayName
	}

	return c.Name
}

// Place is one point of interest found for a category.
//
// ID is generated locally and is the stable key used by callers; PlaceID is
// the provider's identity and may repeat across categories.
type Place struct {
	ID           string        `json:"id"`
	PlaceID      string        `json:"place_id"`
	CategoryName string        `json:"category"`
	Name         string        `json:"name"`
	Address      string        `json:"address"`
	Location     spatial.Point `json:"location"`
	Types        []string      `json:"types,omitempty"`

	IsCandidate bool `json:"is_candidate"`

	// Duration in seconds and Distance in meters from the origin.
	Duration        int    `json:"duration"`
	Distance        int    `json:"distance"`
	DurationText    string `json:"duration_text,omitempty"`
	DistanceText    string `json:"distance_text,omitempty"`
	IsDistanceError bool   `json:"is_distance_error"`
	DistanceError   string `json:"distance_error,omitempty"`

	IsDuplicateAddress          bool `json:"is_duplicate_address"`
	IsDuplicateAddressCandidate bool `json:"is_duplicate_address_candidate"`

	Phone              string `json:"phone,omitempty"`
	InternationalPhone string `json:"international_phone,omitempty"`
	Website            string `json:"website,omitempty"`
	IsDetailsError     bool   `json:"is_details_error"`
	DetailsError       string `json:"details_error,omitempty"`
	DetailsFetched     bool   `json:"details_fetched"`
}

// rankLess orders places by (duration, distance).
func rankLess(a, b Place) int {
	return cmp.Or(cmp.Compare(a.Duration, b.Duration), cmp.Compare(a.Distance, b.Distance))
}

// displayOrder sorts a category for presentation: candidates first, then the
// remaining places by (duration, distance), places with distance errors last.
func displayOrder(places []Place) []Place {
	out := slices.Clone(places)
	slices.SortStableFunc(out, func(a, b Place) int {
		if a.IsDistanceError != b.IsDistanceError {
			if a.IsDistanceError {
				return 1
			}

			return -1
		}

		if a.IsCandidate != b.IsCandidate {
			if a.IsCandidate {
				return -1
			}

			return 1
		}

		return rankLess(a, b)
	})

	return out
}

// RawPlace is a search result as returned by a PlaceSearchProvider.
type RawPlace struct {
	PlaceID  string
	Name     string
	Address  string
	Location spatial.Point
	Types    []string
}

// Element statuses of a distance matrix response.
const (
	StatusOK          = "OK"
	StatusZeroResults = "ZERO_RESULTS"
)

// DistanceElement is the origin to destination result of a distance matrix call.
type DistanceElement struct {
	Status       string
	Duration     int // seconds
	Distance     int // meters
	DurationText string
	DistanceText string
}

// MatrixResponse is a distance matrix response. Status is the request-level
// status, distinct from each element's status.
type MatrixResponse struct {
	Status   string
	Elements []DistanceElement
}

// DetailFields holds the enrichment data fetched for candidates.
type DetailFields struct {
	Phone              string `json:"phone,omitempty"`
	InternationalPhone string `json:"international_phone,omitempty"`
	Website            string `json:"website,omitempty"`
}
