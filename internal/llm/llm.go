// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package llm cleans up OCR text with a chat model. Successful results are
// cached per attachment so reruns do not repeat paid calls.
package llm

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"
)

// DefaultMaxRetries is the number of retries after a failed call.
const DefaultMaxRetries = 3

// Formatter turns raw OCR text into cleaned Markdown.
type Formatter interface {
	Format(ctx context.Context, raw string) (string, error)
}

// Cache stores formatted text by key.
type Cache interface {
	Get(key string) (string, bool)
	Put(key, text string) error
}

// backoffBase controls the base duration for exponential backoff. Tests
// override this to avoid real sleeps.
var backoffBase = time.Second

// CachedFormatter wraps a Formatter with a result cache and retries.
type CachedFormatter struct {
	Formatter  Formatter
	Cache      Cache
	MaxRetries int
}

// FormatKey returns formatted text for raw, keyed by key (the attachment
// filename). Blank input is returned unchanged without a call. Only
// successful results are cached, so failures are retried on the next run.
func (c *CachedFormatter) FormatKey(ctx context.Context, key, raw string) (string, error) {
	if strings.TrimSpace(raw) == "" {
		return raw, nil
	}
	if c.Cache != nil {
		if text, ok := c.Cache.Get(key); ok {
			slog.DebugContext(ctx, "llm cache hit", "file", key)
			return text, nil
		}
	}

	maxRetries := c.MaxRetries
	if maxRetries <= 0 {
		maxRetries = DefaultMaxRetries
	}
	text, err := callWithRetry(ctx, c.Formatter, raw, maxRetries)
	if err != nil {
		return "", err
	}
	text = strings.TrimSpace(text)

	if c.Cache != nil && text != "" {
		if err := c.Cache.Put(key, text); err != nil {
			slog.WarnContext(ctx, "caching llm result", "file", key, "error", err)
		}
	}
	return text, nil
}

// callWithRetry calls the formatter with exponential backoff.
func callWithRetry(ctx context.Context, f Formatter, raw string, maxRetries int) (string, error) {
	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(math.Pow(2, float64(attempt-1))) * backoffBase
			slog.DebugContext(ctx, "retrying llm call", "attempt", attempt, "wait", backoff, "error", lastErr)
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(backoff):
			}
		}

		text, err := f.Format(ctx, raw)
		if err == nil {
			return text, nil
		}
		lastErr = err
	}
	return "", fmt.Errorf("after %d retries: %w", maxRetries, lastErr)
}
