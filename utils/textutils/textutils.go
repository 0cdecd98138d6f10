// Copyright 2025 The ChapaUY Authors
// SPDX-License-Identifier: Apache-2.0

// Package textutils holds small string helpers shared by the CLI and the API.
package textutils

import (
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// LowerASCIIFolding normalizes a string by removing accents, lowercasing, and trimming spaces.
func LowerASCIIFolding(s string) string {
	s, _, _ = transform.String(
		transform.Chain(
			norm.NFD,
			runes.Remove(runes.In(unicode.Mn)),
			norm.NFC,
		),
		strings.TrimSpace(strings.ToLower(s)),
	)

	return s
}

// Key turns a display name into a lookup key: folded, with inner whitespace
// collapsed to a single underscore.
func Key(s string) string {
	return strings.Join(strings.Fields(LowerASCIIFolding(s)), "_")
}

// FormatInt formats an integer with commas for human readability.
func FormatInt(n int64) string {
	in := strconv.FormatInt(n, 10)

	numOfDigits := len(in)
	if n < 0 {
		numOfDigits-- // First character is the - sign (not a digit)
	}

	numOfCommas := (numOfDigits - 1) / 3

	out := make([]byte, len(in)+numOfCommas)
	if n < 0 {
		in, out[0] = in[1:], '-'
	}

	for i, j, k := len(in)-1, len(out)-1, 0; ; i, j = i-1, j-1 {
		out[j] = in[i]
		if i == 0 {
			return string(out)
		}

		if k++; k == 3 {
			j, k = j-1, 0
			out[j] = ','
		}
	}
}

// FormatMeters renders a distance in meters as "850 m" or "2.4 km".
func FormatMeters(m int) string {
	if m < 1000 {
		return strconv.Itoa(m) + " m"
	}

	return strconv.FormatFloat(float64(m)/1000, 'f', 1, 64) + " km"
}

// FormatSeconds renders a duration in seconds as "45 s", "12 min" or "1 h 05 min".
func FormatSeconds(s int) string {
	switch {
	case s < 60:
		return strconv.Itoa(s) + " s"
	case s < 3600:
		return strconv.Itoa((s+30)/60) + " min"
	default:
		mins := (s + 30) / 60

		return strconv.Itoa(mins/60) + " h " + pad2(mins%60) + " min"
	}
}

func pad2(n int) string {
	if n < 10 {
		return "0" + strconv.Itoa(n)
	}

	return strconv.Itoa(n)
}
