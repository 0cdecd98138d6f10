// Copyright 2025 The ChapaUY Authors
// SPDX-License-Identifier: Apache-2.0

package throttle

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// BatchOptions configures Batch.
//
// Providers usually enforce two independent caps: items per call and items
// per time window. ChunkSize bounds the former, WindowSize and WindowDelay
// the latter.
type BatchOptions struct {
	ChunkSize   int
	WindowSize  int
	WindowDelay time.Duration

	// Retry is applied to every chunk.
	Retry RetryPolicy

	// Sleep waits between windows. Defaults to a context aware timer.
	Sleep func(ctx context.Context, d time.Duration) error

	// OnWindow is called before a window runs with its index and item count.
	OnWindow func(window, items int)
}

// Validate checks the chunk and window sizes are consistent.
func (o BatchOptions) Validate() error {
	if o.ChunkSize <= 0 {
		return fmt.Errorf("throttle: chunk size must be positive (got %d)", o.ChunkSize)
	}

	if o.WindowSize < o.ChunkSize {
		return fmt.Errorf("throttle: window size %d smaller than chunk size %d", o.WindowSize, o.ChunkSize)
	}

	if o.WindowDelay < 0 {
		return errors.New("throttle: negative window delay")
	}

	return nil
}

// Plan returns the chunk sizes of n items grouped by window.
func Plan(n, chunkSize, windowSize int) [][]int {
	if n <= 0 || chunkSize <= 0 {
		return nil
	}

	var (
		windows [][]int
		current []int
		used    int
	)

	for offset := 0; offset < n; offset += chunkSize {
		size := min(chunkSize, n-offset)

		if used+size > windowSize && len(current) > 0 {
			windows = append(windows, current)
			current, used = nil, 0
		}

		current = append(current, size)
		used += size
	}

	if len(current) > 0 {
		windows = append(windows, current)
	}

	return windows
}

// Batch drives items through perChunk in chunks of at most ChunkSize, never
// submitting more than WindowSize items per window. Windows and the chunks
// inside them run sequentially; a WindowDelay pause precedes every window but
// the first. Results are concatenated in input order. The first error that
// survives the retry policy aborts the remaining chunks.
func Batch[T, R any](
	ctx context.Context,
	items []T,
	opts BatchOptions,
	perChunk func(ctx context.Context, chunk []T) ([]R, error),
) ([]R, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	if len(items) == 0 {
		return nil, nil
	}

	sleep := opts.Sleep
	if sleep == nil {
		sleep = SleepContext
	}

	results := make([]R, 0, len(items))
	offset := 0

	for w, window := range Plan(len(items), opts.ChunkSize, opts.WindowSize) {
		if w > 0 {
			if err := sleep(ctx, opts.WindowDelay); err != nil {
				return nil, err
			}
		}

		if opts.OnWindow != nil {
			total := 0
			for _, size := range window {
				total += size
			}

			opts.OnWindow(w, total)
		}

		for _, size := range window {
			chunk := items[offset : offset+size]
			offset += size

			r, err := Retry(ctx, opts.Retry, func(ctx context.Context) ([]R, error) {
				return perChunk(ctx, chunk)
			})
			if err != nil {
				return nil, err
			}

			results = append(results, r...)
		}
	}

	return results, nil
}

// SleepContext waits for d or until ctx is done.
func SleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
