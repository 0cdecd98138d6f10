// Copyright 2025 The ChapaUY Authors
// SPDX-License-Identifier: Apache-2.0

package proximity

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/jcodagnone/cercania/spatial"
	"github.com/maypok86/otter/v2"
	"go.uber.org/zap"
)

// DefaultGoogleBaseURL is the Google Maps web services endpoint.
const DefaultGoogleBaseURL = "https://maps.googleapis.com"

// GoogleOptions configures a GoogleMapsProvider.
type GoogleOptions struct {
	APIKey     string
	BaseURL    string
	Language   string
	TravelMode string

	// HTTPClient defaults to a client with a 10 second timeout.
	HTTPClient *http.Client

	// DetailsCacheTTL disables the details cache when zero.
	DetailsCacheTTL  time.Duration
	DetailsCacheSize int

	Logger *zap.Logger
}

// GoogleMapsProvider implements the search, distance and details providers
// with the Google Maps web services.
type GoogleMapsProvider struct {
	apiKey     string
	baseURL    string
	language   string
	travelMode string
	httpClient *http.Client
	cache      *otter.Cache[string, DetailFields]
	logger     *zap.Logger
}

// NewGoogleMapsProvider creates a new Google Maps provider.
func NewGoogleMapsProvider(opts GoogleOptions) (*GoogleMapsProvider, error) {
	if opts.APIKey == "" {
		return nil, ErrAPIKeyMissing
	}

	g := &GoogleMapsProvider{
		apiKey:     opts.APIKey,
		baseURL:    strings.TrimRight(opts.BaseURL, "/"),
		language:   opts.Language,
		travelMode: opts.TravelMode,
		httpClient: opts.HTTPClient,
		logger:     opts.Logger,
	}

	if g.baseURL == "" {
		g.baseURL = DefaultGoogleBaseURL
	}

	if g.httpClient == nil {
		g.httpClient = &http.Client{Timeout: 10 * time.Second}
	}

	if g.logger == nil {
		g.logger = zap.NewNop()
	}

	if opts.DetailsCacheTTL > 0 {
		size := opts.DetailsCacheSize
		if size <= 0 {
			size = 10_000
		}

		g.cache = otter.Must(&otter.Options[string, DetailFields]{
			MaximumSize:      size,
			ExpiryCalculator: otter.ExpiryWriting[string, DetailFields](opts.DetailsCacheTTL),
		})
	}

	return g, nil
}

type googleLatLng struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

type googleNearbyResponse struct {
	Results []struct {
		PlaceID          string `json:"place_id"`
		Name             string `json:"name"`
		Vicinity         string `json:"vicinity"`
		FormattedAddress string `json:"formatted_address"`
		Geometry         struct {
			Location googleLatLng `json:"location"`
		} `json:"geometry"`
		Types []string `json:"types"`
	} `json:"results"`
	Status       string `json:"status"`
	ErrorMessage string `json:"error_message"`
}

type googleValue struct {
	Value int    `json:"value"`
	Text  string `json:"text"`
}

type googleMatrixResponse struct {
	Rows []struct {
		Elements []struct {
			Status   string      `json:"status"`
			Duration googleValue `json:"duration"`
			Distance googleValue `json:"distance"`
		} `json:"elements"`
	} `json:"rows"`
	Status       string `json:"status"`
	ErrorMessage string `json:"error_message"`
}

type googleDetailsResponse struct {
	Result struct {
		FormattedPhoneNumber     string `json:"formatted_phone_number"`
		InternationalPhoneNumber string `json:"international_phone_number"`
		Website                  string `json:"website"`
	} `json:"result"`
	Status       string `json:"status"`
	ErrorMessage string `json:"error_message"`
}

// get performs a GET against a web service path and decodes the JSON body.
// Non-200 responses are classified with ClassifyHTTPError.
func (g *GoogleMapsProvider) get(ctx context.Context, path string, params url.Values, out any) error {
	params.Set("key", g.apiKey)

	if g.language != "" {
		params.Set("language", g.language)
	}

	reqURL := g.baseURL + path + "?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s request failed: %w", path, err)
	}

	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		perr := ClassifyHTTPError(resp.StatusCode)
		perr.Status = resp.Status

		return perr
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding %s response: %w", path, err)
	}

	return nil
}

// Search implements PlaceSearchProvider with a nearby search. The first
// keyword is used as the place type; the remaining keywords and the free
// text are OR-ed into the keyword parameter.
func (g *GoogleMapsProvider) Search(ctx context.Context, origin spatial.Point, radius int, keywords []string, text string) ([]RawPlace, error) {
	params := url.Values{}
	params.Set("location", origin.LatLng())
	params.Set("radius", fmt.Sprint(radius))

	var terms []string

	if len(keywords) > 0 {
		params.Set("type", keywords[0])
		terms = append(terms, keywords[1:]...)
	}

	if text != "" {
		terms = append(terms, text)
	}

	if len(terms) > 0 {
		params.Set("keyword", strings.Join(terms, " OR "))
	}

	var resp googleNearbyResponse
	if err := g.get(ctx, "/maps/api/place/nearbysearch/json", params, &resp); err != nil {
		return nil, err
	}

	if perr := ClassifyStatus(resp.Status, resp.ErrorMessage); perr != nil {
		return nil, perr
	}

	places := make([]RawPlace, 0, len(resp.Results))

	for _, r := range resp.Results {
		address := r.Vicinity
		if address == "" {
			address = r.FormattedAddress
		}

		places = append(places, RawPlace{
			PlaceID:  r.PlaceID,
			Name:     r.Name,
			Address:  address,
			Location: spatial.Point{Lat: r.Geometry.Location.Lat, Lng: r.Geometry.Location.Lng},
			Types:    r.Types,
		})
	}

	g.logger.Debug("nearby search",
		zap.Int("radius", radius),
		zap.Strings("keywords", keywords),
		zap.String("status", resp.Status),
		zap.Int("results", len(places)))

	return places, nil
}

// Matrix implements DistanceProvider. The request-level status is returned
// in the response for the caller to classify.
func (g *GoogleMapsProvider) Matrix(ctx context.Context, origin spatial.Point, destinations []spatial.Point) (*MatrixResponse, error) {
	dests := make([]string, len(destinations))
	for i, d := range destinations {
		dests[i] = d.LatLng()
	}

	params := url.Values{}
	params.Set("origins", origin.LatLng())
	params.Set("destinations", strings.Join(dests, "|"))

	if g.travelMode != "" {
		params.Set("mode", g.travelMode)
	}

	var resp googleMatrixResponse
	if err := g.get(ctx, "/maps/api/distancematrix/json", params, &resp); err != nil {
		return nil, err
	}

	out := &MatrixResponse{Status: resp.Status}
	if len(resp.Rows) == 0 {
		return out, nil
	}

	out.Elements = make([]DistanceElement, len(resp.Rows[0].Elements))
	for i, el := range resp.Rows[0].Elements {
		out.Elements[i] = DistanceElement{
			Status:       el.Status,
			Duration:     el.Duration.Value,
			Distance:     el.Distance.Value,
			DurationText: el.Duration.Text,
			DistanceText: el.Distance.Text,
		}
	}

	return out, nil
}

// Details implements PlaceDetailsProvider. Successful responses are cached
// by place id and fields.
func (g *GoogleMapsProvider) Details(ctx context.Context, placeID string, fields []string) (*DetailFields, error) {
	key := placeID + "|" + strings.Join(fields, ",")

	if g.cache != nil {
		if d, ok := g.cache.GetIfPresent(key); ok {
			g.logger.Debug("place details cache hit", zap.String("place_id", placeID))

			return &d, nil
		}
	}

	params := url.Values{}
	params.Set("place_id", placeID)
	params.Set("fields", strings.Join(fields, ","))

	var resp googleDetailsResponse
	if err := g.get(ctx, "/maps/api/place/details/json", params, &resp); err != nil {
		return nil, err
	}

	if resp.Status == StatusZeroResults {
		return nil, &ProviderError{Type: ErrorTypeRequest, Status: resp.Status, Message: "lugar no encontrado"}
	}

	if perr := ClassifyStatus(resp.Status, resp.ErrorMessage); perr != nil {
		return nil, perr
	}

	d := DetailFields{
		Phone:              resp.Result.FormattedPhoneNumber,
		InternationalPhone: resp.Result.InternationalPhoneNumber,
		Website:            resp.Result.Website,
	}

	if g.cache != nil {
		g.cache.Set(key, d)
	}

	return &d, nil
}
