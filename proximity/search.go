// Copyright 2025 The ChapaUY Authors
// SPDX-License-Identifier: Apache-2.0

package proximity

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jcodagnone/cercania/spatial"
	"github.com/jcodagnone/cercania/utils/throttle"
	"go.uber.org/zap"
)

// maxRadiusSteps bounds the radius growth loop even if the radius
// configuration is inconsistent.
const maxRadiusSteps = 32

// SearchOutcome is the result of searching one category.
type SearchOutcome struct {
	Category PlaceCategory
	Places   []Place
	Requests int
	Retries  int
}

// CategorySearcher performs an adaptive radius search for a category: while
// fewer than MinItemTarget places are found the radius doubles, up to
// MaxRadius.
type CategorySearcher struct {
	provider PlaceSearchProvider
	retry    throttle.RetryPolicy
	newID    func() string
	logger   *zap.Logger
}

// NewCategorySearcher creates a searcher. Throttled searches are retried
// according to cfg; every other provider error is returned as is.
func NewCategorySearcher(provider PlaceSearchProvider, cfg SearchConfig, logger *zap.Logger) *CategorySearcher {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &CategorySearcher{
		provider: provider,
		retry: throttle.RetryPolicy{
			MaxAttempts: cfg.RetryAttempts,
			Delay:       cfg.RetryDelay.Std(),
			IsRetryable: IsThrottlingError,
		},
		newID:  uuid.NewString,
		logger: logger,
	}
}

// Search runs the adaptive radius search. The returned category carries the
// radius that was finally used. No partial results are returned on error.
func (s *CategorySearcher) Search(ctx context.Context, origin spatial.Point, category PlaceCategory) (*SearchOutcome, error) {
	outcome := &SearchOutcome{Category: category}

	policy := s.retry
	policy.OnRetry = func(attempt int, err error) {
		outcome.Retries++
		s.logger.Warn("place search throttled, retrying",
			zap.String("category", category.Name),
			zap.Int("attempt", attempt),
			zap.Error(err))
	}

	radius := category.InitialRadius

	var raw []RawPlace

	for step := 0; ; step++ {
		found, err := throttle.Retry(ctx, policy, func(ctx context.Context) ([]RawPlace, error) {
			outcome.Requests++

			return s.provider.Search(ctx, origin, radius, category.SearchKeywords, category.SearchText)
		})
		if err != nil {
			return nil, fmt.Errorf("searching %q at %dm: %w", category.Name, radius, asRequestError("place search", err))
		}

		raw = found

		s.logger.Debug("place search",
			zap.String("category", category.Name),
			zap.Int("radius", radius),
			zap.Int("results", len(found)))

		if len(found) >= category.MinItemTarget || radius >= category.MaxRadius || step >= maxRadiusSteps {
			break
		}

		radius = min(radius*2, category.MaxRadius)
	}

	outcome.Category.UsedRadius = radius
	outcome.Places = make([]Place, 0, len(raw))

	for _, r := range raw {
		outcome.Places = append(outcome.Places, Place{
			ID:           s.newID(),
			PlaceID:      r.PlaceID,
			CategoryName: category.Name,
			Name:         r.Name,
			Address:      r.Address,
			Location:     r.Location,
			Types:        r.Types,
		})
	}

	return outcome, nil
}
