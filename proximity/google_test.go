// Copyright 2025 The ChapaUY Authors
// SPDX-License-Identifier: Apache-2.0

package proximity

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jcodagnone/cercania/spatial"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func newTestGoogle(t *testing.T, handler http.HandlerFunc, cacheTTL time.Duration) *GoogleMapsProvider {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	g, err := NewGoogleMapsProvider(GoogleOptions{
		APIKey:          "test-key",
		BaseURL:         srv.URL,
		Language:        "es",
		TravelMode:      "driving",
		DetailsCacheTTL: cacheTTL,
		Logger:          zaptest.NewLogger(t),
	})
	require.NoError(t, err)

	return g
}

func TestNewGoogleMapsProviderRequiresKey(t *testing.T) {
	_, err := NewGoogleMapsProvider(GoogleOptions{})
	assert.ErrorIs(t, err, ErrAPIKeyMissing)
}

func TestGoogleSearch(t *testing.T) {
	var query url.Values

	g := newTestGoogle(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/maps/api/place/nearbysearch/json", r.URL.Path)
		query = r.URL.Query()

		_, _ = w.Write([]byte(`{
			"status": "OK",
			"results": [
				{
					"place_id": "ChIJ1",
					"name": "Farmacia Central",
					"vicinity": "18 de Julio 1234, Montevideo",
					"geometry": {"location": {"lat": -34.9055, "lng": -56.1913}},
					"types": ["pharmacy", "health"]
				},
				{
					"place_id": "ChIJ2",
					"name": "Farmacia Pocitos",
					"formatted_address": "Av. Brasil 2500",
					"geometry": {"location": {"lat": -34.91, "lng": -56.15}}
				}
			]
		}`))
	}, 0)

	places, err := g.Search(context.Background(), montevideo, 1500, []string{"pharmacy", "drugstore"}, "farmacia")
	require.NoError(t, err)

	assert.Equal(t, "test-key", query.Get("key"))
	assert.Equal(t, "es", query.Get("language"))
	assert.Equal(t, "1500", query.Get("radius"))
	assert.Equal(t, "pharmacy", query.Get("type"))
	assert.Equal(t, "drugstore OR farmacia", query.Get("keyword"))
	assert.Equal(t, montevideo.LatLng(), query.Get("location"))

	require.Len(t, places, 2)
	assert.Equal(t, RawPlace{
		PlaceID:  "ChIJ1",
		Name:     "Farmacia Central",
		Address:  "18 de Julio 1234, Montevideo",
		Location: spatial.Point{Lat: -34.9055, Lng: -56.1913},
		Types:    []string{"pharmacy", "health"},
	}, places[0])
	assert.Equal(t, "Av. Brasil 2500", places[1].Address)
}

func TestGoogleSearchZeroResults(t *testing.T) {
	g := newTestGoogle(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"status": "ZERO_RESULTS", "results": []}`))
	}, 0)

	places, err := g.Search(context.Background(), montevideo, 100, []string{"bank"}, "")
	require.NoError(t, err)
	assert.Empty(t, places)
}

func TestGoogleErrorClassification(t *testing.T) {
	tests := []struct {
		name       string
		code       int
		body       string
		throttling bool
	}{
		{"over query limit", http.StatusOK, `{"status": "OVER_QUERY_LIMIT"}`, true},
		{"http 429", http.StatusTooManyRequests, ``, true},
		{"request denied", http.StatusOK, `{"status": "REQUEST_DENIED", "error_message": "bad key"}`, false},
		{"invalid request", http.StatusOK, `{"status": "INVALID_REQUEST"}`, false},
		{"http 500", http.StatusInternalServerError, ``, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := newTestGoogle(t, func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.code)
				_, _ = w.Write([]byte(tt.body))
			}, 0)

			_, err := g.Search(context.Background(), montevideo, 100, []string{"bank"}, "")
			require.Error(t, err)
			assert.Equal(t, tt.throttling, IsThrottlingError(err))
			assert.Equal(t, !tt.throttling, IsRequestError(err))
		})
	}
}

func TestGoogleMatrix(t *testing.T) {
	var query url.Values

	g := newTestGoogle(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/maps/api/distancematrix/json", r.URL.Path)
		query = r.URL.Query()

		_, _ = w.Write([]byte(`{
			"status": "OK",
			"rows": [{"elements": [
				{"status": "OK", "duration": {"value": 420, "text": "7 min"}, "distance": {"value": 2300, "text": "2.3 km"}},
				{"status": "NOT_FOUND"}
			]}]
		}`))
	}, 0)

	dests := []spatial.Point{{Lat: -34.90, Lng: -56.19}, {Lat: -34.91, Lng: -56.15}}

	resp, err := g.Matrix(context.Background(), montevideo, dests)
	require.NoError(t, err)

	assert.Equal(t, montevideo.LatLng(), query.Get("origins"))
	assert.Equal(t, dests[0].LatLng()+"|"+dests[1].LatLng(), query.Get("destinations"))
	assert.Equal(t, "driving", query.Get("mode"))

	assert.Equal(t, StatusOK, resp.Status)
	assert.Equal(t, []DistanceElement{
		{Status: StatusOK, Duration: 420, Distance: 2300, DurationText: "7 min", DistanceText: "2.3 km"},
		{Status: "NOT_FOUND"},
	}, resp.Elements)
}

func TestGoogleMatrixRequestStatus(t *testing.T) {
	g := newTestGoogle(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"status": "MAX_ELEMENTS_EXCEEDED", "rows": []}`))
	}, 0)

	resp, err := g.Matrix(context.Background(), montevideo, []spatial.Point{montevideo})
	require.NoError(t, err)
	assert.Equal(t, "MAX_ELEMENTS_EXCEEDED", resp.Status)
	assert.Empty(t, resp.Elements)
}

func TestGoogleDetailsCached(t *testing.T) {
	var calls atomic.Int32

	g := newTestGoogle(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		assert.Equal(t, "/maps/api/place/details/json", r.URL.Path)
		assert.Equal(t, "ChIJ1", r.URL.Query().Get("place_id"))
		assert.Equal(t, "formatted_phone_number,website", r.URL.Query().Get("fields"))

		_, _ = w.Write([]byte(`{
			"status": "OK",
			"result": {"formatted_phone_number": "2901 0000", "website": "https://example.uy"}
		}`))
	}, time.Hour)

	fields := []string{"formatted_phone_number", "website"}

	for range 3 {
		d, err := g.Details(context.Background(), "ChIJ1", fields)
		require.NoError(t, err)
		assert.Equal(t, &DetailFields{Phone: "2901 0000", Website: "https://example.uy"}, d)
	}

	assert.Equal(t, int32(1), calls.Load())
}

func TestGoogleDetailsErrorsNotCached(t *testing.T) {
	var calls atomic.Int32

	g := newTestGoogle(t, func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)

		_, _ = w.Write([]byte(`{"status": "NOT_FOUND"}`))
	}, time.Hour)

	for range 2 {
		_, err := g.Details(context.Background(), "gone", []string{"website"})
		require.Error(t, err)
		assert.True(t, IsRequestError(err))
	}

	assert.Equal(t, int32(2), calls.Load())
}
