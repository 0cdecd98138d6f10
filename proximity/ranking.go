// Copyright 2025 The ChapaUY Authors
// SPDX-License-Identifier: Apache-2.0

package proximity

import (
	"slices"
)

// Ranker selects the candidates of each category and flags duplicate addresses.
type Ranker struct {
	Limit int
}

// NewRanker creates a Ranker flagging at most limit candidates per category.
func NewRanker(limit int) *Ranker {
	return &Ranker{Limit: limit}
}

// groupByCategory returns the indexes of places for each category, in input order.
func groupByCategory(places []Place) map[string][]int {
	groups := make(map[string][]int)
	for i, p := range places {
		groups[p.CategoryName] = append(groups[p.CategoryName], i)
	}

	return groups
}

// RankAndFlag returns a copy of places where, within each category, the
// Limit non-errored places with the smallest (duration, distance) are
// candidates and every other place is not.
func (r *Ranker) RankAndFlag(places []Place) []Place {
	out := slices.Clone(places)

	for _, idxs := range groupByCategory(out) {
		eligible := make([]int, 0, len(idxs))

		for _, i := range idxs {
			out[i].IsCandidate = false
			if !out[i].IsDistanceError {
				eligible = append(eligible, i)
			}
		}

		slices.SortStableFunc(eligible, func(a, b int) int {
			return rankLess(out[a], out[b])
		})

		for _, i := range eligible[:min(r.Limit, len(eligible))] {
			out[i].IsCandidate = true
		}
	}

	return out
}

// ValidateDuplicates returns a copy of places with the duplicate address
// flags of the given category recomputed. Addresses are compared verbatim.
func (r *Ranker) ValidateDuplicates(places []Place, category string) []Place {
	out := slices.Clone(places)

	byAddress := make(map[string][]int)

	for i := range out {
		if out[i].CategoryName != category {
			continue
		}

		byAddress[out[i].Address] = append(byAddress[out[i].Address], i)
	}

	for _, idxs := range byAddress {
		candidates := 0

		for _, i := range idxs {
			if out[i].IsCandidate {
				candidates++
			}
		}

		for _, i := range idxs {
			out[i].IsDuplicateAddress = len(idxs) > 1
			out[i].IsDuplicateAddressCandidate = out[i].IsCandidate && candidates > 1
		}
	}

	return out
}

// ValidateAllDuplicates recomputes the duplicate flags for every category present.
func (r *Ranker) ValidateAllDuplicates(places []Place) []Place {
	out := slices.Clone(places)
	for category := range groupByCategory(places) {
		out = r.ValidateDuplicates(out, category)
	}

	return out
}

// candidateCount counts the candidates of a category.
func candidateCount(places []Place, category string) int {
	n := 0

	for _, p := range places {
		if p.CategoryName == category && p.IsCandidate {
			n++
		}
	}

	return n
}
