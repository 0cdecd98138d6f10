// Copyright 2025 The ChapaUY Authors
// SPDX-License-Identifier: Apache-2.0

package proximity

import (
	"context"

	"github.com/jcodagnone/cercania/spatial"
)

// PlaceSearchProvider finds places around an origin. A response with zero
// results is not an error.
type PlaceSearchProvider interface {
	Search(ctx context.Context, origin spatial.Point, radius int, keywords []string, text string) ([]RawPlace, error)
}

// DistanceProvider computes travel duration and distance from one origin to
// many destinations in a single call.
type DistanceProvider interface {
	Matrix(ctx context.Context, origin spatial.Point, destinations []spatial.Point) (*MatrixResponse, error)
}

// PlaceDetailsProvider fetches enrichment data for a place.
type PlaceDetailsProvider interface {
	Details(ctx context.Context, placeID string, fields []string) (*DetailFields, error)
}

// Providers groups the remote capabilities the pipeline depends on.
type Providers struct {
	Search   PlaceSearchProvider
	Distance DistanceProvider
	Details  PlaceDetailsProvider
}

// ProvidersFrom uses a single implementation for the three capabilities.
func ProvidersFrom[P interface {
	PlaceSearchProvider
	DistanceProvider
	PlaceDetailsProvider
}](p P) Providers {
	return Providers{Search: p, Distance: p, Details: p}
}
