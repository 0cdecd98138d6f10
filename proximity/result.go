// Copyright 2025 The ChapaUY Authors
// SPDX-License-Identifier: Apache-2.0

package proximity

import (
	"slices"
	"time"

	"github.com/jcodagnone/cercania/spatial"
)

// Stats is the per-run accumulator of provider usage.
type Stats struct {
	SearchRequests int           `json:"search_requests"`
	SearchRetries  int           `json:"search_retries"`
	Distance       DistanceStats `json:"distance"`
	Details        EnrichStats   `json:"details"`
}

// Result is the outcome of a completed run. A Result is never modified once
// published; manual candidate changes produce a new Result.
type Result struct {
	Origin     spatial.Point   `json:"origin"`
	Categories []PlaceCategory `json:"categories"`
	Places     []Place         `json:"places"`
	Stats      Stats           `json:"stats"`
	StartedAt  time.Time       `json:"started_at"`
	FinishedAt time.Time       `json:"finished_at"`

	byCategory map[string][]int
	byID       map[string]int
}

// NewResult builds an indexed result.
func NewResult(origin spatial.Point, categories []PlaceCategory, places []Place) *Result {
	r := &Result{
		Origin:     origin,
		Categories: categories,
		Places:     places,
	}
	r.index()

	return r
}

func (r *Result) index() {
	r.byCategory = groupByCategory(r.Places)
	r.byID = make(map[string]int, len(r.Places))

	for i, p := range r.Places {
		r.byID[p.ID] = i
	}
}

// withPlaces returns a new version of the result holding places.
func (r *Result) withPlaces(places []Place) *Result {
	next := *r
	next.Places = places
	next.index()

	return &next
}

// Category returns the places of a category in display order: candidates by
// rank, then the rest by (duration, distance), places without distance last.
func (r *Result) Category(name string) []Place {
	idxs := r.byCategory[name]
	places := make([]Place, 0, len(idxs))

	for _, i := range idxs {
		places = append(places, r.Places[i])
	}

	return displayOrder(places)
}

// ByCategory maps every configured category to its places in display order.
func (r *Result) ByCategory() map[string][]Place {
	m := make(map[string][]Place, len(r.Categories))
	for _, c := range r.Categories {
		m[c.Name] = r.Category(c.Name)
	}

	return m
}

// Candidates returns the candidates of every category, in category order.
func (r *Result) Candidates() []Place {
	var out []Place

	for _, c := range r.Categories {
		for _, p := range r.Category(c.Name) {
			if p.IsCandidate {
				out = append(out, p)
			}
		}
	}

	return out
}

// Place looks a place up by its local id.
func (r *Result) Place(id string) (Place, bool) {
	i, ok := r.byID[id]
	if !ok {
		return Place{}, false
	}

	return r.Places[i], true
}

// PlaceCount returns the number of places of a category.
func (r *Result) PlaceCount(category string) int {
	return len(r.byCategory[category])
}

// View is the serializable projection of a Result consumed by the API and
// by report generation.
type View struct {
	Origin     spatial.Point      `json:"origin"`
	Categories []PlaceCategory    `json:"categories"`
	ByCategory map[string][]Place `json:"by_category"`
	Candidates []Place            `json:"candidates"`
	Stats      Stats              `json:"stats"`
	StartedAt  time.Time          `json:"started_at"`
	FinishedAt time.Time          `json:"finished_at"`
}

// View builds the projection of the result.
func (r *Result) View() View {
	return View{
		Origin:     r.Origin,
		Categories: slices.Clone(r.Categories),
		ByCategory: r.ByCategory(),
		Candidates: r.Candidates(),
		Stats:      r.Stats,
		StartedAt:  r.StartedAt,
		FinishedAt: r.FinishedAt,
	}
}
