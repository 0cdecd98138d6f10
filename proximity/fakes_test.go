// Copyright 2025 The ChapaUY Authors
// SPDX-License-Identifier: Apache-2.0

package proximity

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/jcodagnone/cercania/spatial"
)

var montevideo = spatial.Point{Lat: -34.9011, Lng: -56.1645}

type searchCall struct {
	Radius   int
	Keywords []string
	Text     string
}

// fakeSearch answers searches with fn and records every call.
type fakeSearch struct {
	mu    sync.Mutex
	calls []searchCall
	fn    func(call searchCall) ([]RawPlace, error)
}

func (f *fakeSearch) Search(_ context.Context, _ spatial.Point, radius int, keywords []string, text string) ([]RawPlace, error) {
	call := searchCall{Radius: radius, Keywords: keywords, Text: text}

	f.mu.Lock()
	f.calls = append(f.calls, call)
	f.mu.Unlock()

	return f.fn(call)
}

func (f *fakeSearch) Calls() []searchCall {
	f.mu.Lock()
	defer f.mu.Unlock()

	return append([]searchCall(nil), f.calls...)
}

// fakeDistance answers matrix calls with fn and records the chunk sizes.
type fakeDistance struct {
	mu    sync.Mutex
	sizes []int
	fn    func(call int, dests []spatial.Point) (*MatrixResponse, error)
}

func (f *fakeDistance) Matrix(_ context.Context, _ spatial.Point, dests []spatial.Point) (*MatrixResponse, error) {
	f.mu.Lock()
	call := len(f.sizes)
	f.sizes = append(f.sizes, len(dests))
	f.mu.Unlock()

	return f.fn(call, dests)
}

func (f *fakeDistance) Sizes() []int {
	f.mu.Lock()
	defer f.mu.Unlock()

	return append([]int(nil), f.sizes...)
}

// fakeDetails answers details calls with fn and records the place ids.
type fakeDetails struct {
	mu    sync.Mutex
	calls []string
	fn    func(placeID string) (*DetailFields, error)
}

func (f *fakeDetails) Details(_ context.Context, placeID string, _ []string) (*DetailFields, error) {
	f.mu.Lock()
	f.calls = append(f.calls, placeID)
	f.mu.Unlock()

	if f.fn == nil {
		return &DetailFields{Phone: "tel-" + placeID, Website: "https://" + placeID + ".example"}, nil
	}

	return f.fn(placeID)
}

func (f *fakeDetails) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()

	return append([]string(nil), f.calls...)
}

// durationByLat builds OK elements whose duration and distance grow with the
// latitude offset of the destination, so closer fixtures rank first.
func durationByLat(_ int, dests []spatial.Point) (*MatrixResponse, error) {
	resp := &MatrixResponse{Status: StatusOK}
	for _, d := range dests {
		secs := int(math.Round((d.Lat - montevideo.Lat) * 1e5))
		resp.Elements = append(resp.Elements, DistanceElement{
			Status:       StatusOK,
			Duration:     secs,
			Distance:     secs * 10,
			DurationText: fmt.Sprintf("%d s", secs),
			DistanceText: fmt.Sprintf("%d m", secs*10),
		})
	}

	return resp, nil
}

// rawPlaces builds n search results named prefix-i, each one further north.
func rawPlaces(prefix string, n int) []RawPlace {
	out := make([]RawPlace, n)
	for i := range out {
		out[i] = RawPlace{
			PlaceID:  fmt.Sprintf("%s-%d", prefix, i),
			Name:     fmt.Sprintf("%s %d", prefix, i),
			Address:  fmt.Sprintf("Calle %s %d", prefix, i),
			Location: spatial.Point{Lat: montevideo.Lat + float64(i+1)*0.001, Lng: montevideo.Lng},
		}
	}

	return out
}

func sequentialIDs() func() string {
	var (
		mu sync.Mutex
		n  int
	)

	return func() string {
		mu.Lock()
		defer mu.Unlock()
		n++

		return fmt.Sprintf("id-%03d", n)
	}
}

func noSleep(ctx context.Context, _ time.Duration) error {
	return ctx.Err()
}

func throttled() error {
	return &ProviderError{Type: ErrorTypeThrottling, Status: "OVER_QUERY_LIMIT", Message: "límite de tasa alcanzado"}
}

func fastConfig(categories ...PlaceCategory) *Config {
	cfg := DefaultConfig()
	cfg.Categories = categories
	cfg.Search.RetryDelay = Duration(time.Millisecond)
	cfg.Distance.RetryDelay = Duration(time.Millisecond)
	cfg.Details.RetryDelay = Duration(time.Millisecond)
	cfg.Details.Interval = 0

	return cfg
}

func category(name string, minItems, initial, maxRadius int) PlaceCategory {
	return PlaceCategory{
		Name:           name,
		SearchKeywords: []string{name},
		InitialRadius:  initial,
		MaxRadius:      maxRadius,
		MinItemTarget:  minItems,
	}
}
