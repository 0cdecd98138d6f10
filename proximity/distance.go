// Copyright 2025 The ChapaUY Authors
// SPDX-License-Identifier: Apache-2.0

package proximity

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/jcodagnone/cercania/spatial"
	"github.com/jcodagnone/cercania/utils/throttle"
	"go.uber.org/zap"
)

// DistanceStats accumulates the distance matrix usage of one computation.
type DistanceStats struct {
	Requests int `json:"requests"`
	Elements int `json:"elements"`
	Retries  int `json:"retries"`
	Windows  int `json:"windows"`
	Errors   int `json:"element_errors"`
}

// DistanceComputer computes travel duration and distance from an origin to
// many places, respecting the provider's per-call and per-window limits.
type DistanceComputer struct {
	provider DistanceProvider
	cfg      DistanceConfig
	sleep    func(ctx context.Context, d time.Duration) error
	logger   *zap.Logger
}

// NewDistanceComputer creates a DistanceComputer.
func NewDistanceComputer(provider DistanceProvider, cfg DistanceConfig, logger *zap.Logger) *DistanceComputer {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &DistanceComputer{
		provider: provider,
		cfg:      cfg,
		sleep:    throttle.SleepContext,
		logger:   logger,
	}
}

// ComputeAll returns a copy of places with the distance fields populated.
//
// Element failures are recorded on the place and do not stop the batch. A
// request failure marks every place of its chunk as errored and aborts the
// computation; the returned places still carry those marks.
func (c *DistanceComputer) ComputeAll(ctx context.Context, origin spatial.Point, places []Place) ([]Place, DistanceStats, error) {
	var stats DistanceStats

	out := slices.Clone(places)
	if len(out) == 0 {
		return out, stats, nil
	}

	indexes := make([]int, len(out))
	for i := range indexes {
		indexes[i] = i
	}

	opts := throttle.BatchOptions{
		ChunkSize:   c.cfg.ChunkSize,
		WindowSize:  c.cfg.WindowSize,
		WindowDelay: c.cfg.WindowDelay.Std(),
		Sleep:       c.sleep,
		Retry: throttle.RetryPolicy{
			MaxAttempts: c.cfg.RetryAttempts,
			Delay:       c.cfg.RetryDelay.Std(),
			IsRetryable: IsThrottlingError,
			OnRetry: func(attempt int, err error) {
				stats.Retries++
				c.logger.Warn("distance matrix throttled, retrying", zap.Int("attempt", attempt), zap.Error(err))
			},
		},
		OnWindow: func(window, items int) {
			stats.Windows++
			c.logger.Debug("distance matrix window", zap.Int("window", window), zap.Int("items", items))
		},
	}

	var current []int

	_, err := throttle.Batch(ctx, indexes, opts, func(ctx context.Context, chunk []int) ([]int, error) {
		current = chunk

		destinations := make([]spatial.Point, len(chunk))
		for i, idx := range chunk {
			destinations[i] = out[idx].Location
		}

		stats.Requests++
		stats.Elements += len(chunk)

		resp, err := c.provider.Matrix(ctx, origin, destinations)
		if err != nil {
			if !IsThrottlingError(err) {
				markChunk(out, chunk, err.Error())
			}

			return nil, err
		}

		if perr := ClassifyStatus(resp.Status, ""); perr != nil {
			if perr.Type != ErrorTypeThrottling {
				markChunk(out, chunk, perr.Error())
			}

			return nil, perr
		}

		if len(resp.Elements) != len(chunk) {
			err := &ProviderError{
				Type:    ErrorTypeRequest,
				Status:  resp.Status,
				Message: fmt.Sprintf("distance matrix: %d elements for %d destinations", len(resp.Elements), len(chunk)),
				Err:     ErrElementCountMismatch,
			}
			markChunk(out, chunk, err.Error())

			return nil, err
		}

		for i, idx := range chunk {
			el := resp.Elements[i]
			p := &out[idx]

			if el.Status != StatusOK {
				stats.Errors++
				p.IsDistanceError = true
				p.DistanceError = (&ProviderError{Type: ErrorTypeElement, Status: el.Status, Message: "destino sin distancia"}).Error()
				p.Duration, p.Distance = 0, 0
				p.DurationText, p.DistanceText = "", ""

				continue
			}

			p.IsDistanceError = false
			p.DistanceError = ""
			p.Duration = el.Duration
			p.Distance = el.Distance
			p.DurationText = el.DurationText
			p.DistanceText = el.DistanceText
		}

		return chunk, nil
	})
	if err != nil {
		err = asRequestError("distance matrix", err)
		if throttle.IsExhausted(err) {
			markChunk(out, current, err.Error())
		}

		return out, stats, err
	}

	c.logger.Debug("distances computed",
		zap.Int("places", len(out)),
		zap.Int("requests", stats.Requests),
		zap.Int("element_errors", stats.Errors))

	return out, stats, nil
}

func markChunk(places []Place, chunk []int, msg string) {
	for _, idx := range chunk {
		places[idx].IsDistanceError = true
		places[idx].DistanceError = msg
	}
}
