// Copyright 2025 The ChapaUY Authors
// SPDX-License-Identifier: Apache-2.0

package proximity

import (
	"context"
	"slices"

	"github.com/jcodagnone/cercania/utils/throttle"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// EnrichStats accumulates the details usage of one enrichment pass.
type EnrichStats struct {
	Requests int `json:"requests"`
	Fetched  int `json:"fetched"`
	Failed   int `json:"failed"`
	Skipped  int `json:"skipped"`
	Retries  int `json:"retries"`
}

// DetailsEnricher fetches details for candidates, one request at a time.
type DetailsEnricher struct {
	provider PlaceDetailsProvider
	cfg      DetailsConfig
	limiter  *rate.Limiter
	logger   *zap.Logger
}

// NewDetailsEnricher creates an enricher spacing requests by cfg.Interval.
func NewDetailsEnricher(provider PlaceDetailsProvider, cfg DetailsConfig, logger *zap.Logger) *DetailsEnricher {
	if logger == nil {
		logger = zap.NewNop()
	}

	limit := rate.Inf
	if cfg.Interval > 0 {
		limit = rate.Every(cfg.Interval.Std())
	}

	return &DetailsEnricher{
		provider: provider,
		cfg:      cfg,
		limiter:  rate.NewLimiter(limit, 1),
		logger:   logger,
	}
}

// Enrich returns a copy of places where every candidate without details has
// been fetched. Failures are recorded on the place and do not stop the chain.
// Places that are not candidates, or already have details, are left alone.
// If ctx is cancelled the remaining candidates are not fetched.
func (e *DetailsEnricher) Enrich(ctx context.Context, places []Place) ([]Place, EnrichStats) {
	var stats EnrichStats

	out := slices.Clone(places)

	policy := throttle.RetryPolicy{
		MaxAttempts: e.cfg.RetryAttempts,
		Delay:       e.cfg.RetryDelay.Std(),
		IsRetryable: IsThrottlingError,
		OnRetry: func(attempt int, err error) {
			stats.Retries++
			e.logger.Warn("place details throttled, retrying", zap.Int("attempt", attempt), zap.Error(err))
		},
	}

	for i := range out {
		p := &out[i]
		if !p.IsCandidate {
			continue
		}

		if p.DetailsFetched {
			stats.Skipped++

			continue
		}

		if err := e.limiter.Wait(ctx); err != nil {
			e.logger.Debug("details enrichment interrupted", zap.Error(err))

			break
		}

		details, err := throttle.Retry(ctx, policy, func(ctx context.Context) (*DetailFields, error) {
			stats.Requests++

			return e.provider.Details(ctx, p.PlaceID, e.cfg.Fields)
		})
		if ctx.Err() != nil {
			break
		}

		if err != nil {
			stats.Failed++
			perr := &ProviderError{Type: ErrorTypeEnrichment, Message: "place details", Err: err}
			p.IsDetailsError = true
			p.DetailsError = perr.Error()

			e.logger.Warn("place details failed",
				zap.String("place_id", p.PlaceID),
				zap.String("name", p.Name),
				zap.Error(err))

			continue
		}

		stats.Fetched++
		p.IsDetailsError = false
		p.DetailsError = ""
		p.DetailsFetched = true

		if details != nil {
			p.Phone = details.Phone
			p.InternationalPhone = details.InternationalPhone
			p.Website = details.Website
		}
	}

	return out, stats
}
