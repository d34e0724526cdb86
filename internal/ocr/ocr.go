// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package ocr extracts text from note attachments. Results are cached by
// attachment filename and engine calls are bounded by a fixed number of
// slots shared across all callers of a Service.
package ocr

import (
	"context"
	"fmt"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp"
)

// DefaultWorkers is the number of concurrent engine calls.
const DefaultWorkers = 4

// Cache stores recognized text by key.
type Cache interface {
	Get(key string) (string, bool)
	Put(key, text string) error
}

// Service runs cached, bounded OCR over image files.
type Service struct {
	engine Engine
	cache  Cache
	sem    chan struct{}
}

// NewService returns a Service allowing at most workers concurrent engine
// calls. A nil cache disables caching.
func NewService(engine Engine, cache Cache, workers int) *Service {
	if workers <= 0 {
		workers = DefaultWorkers
	}
	return &Service{engine: engine, cache: cache, sem: make(chan struct{}, workers)}
}

// OCR returns the trimmed text recognized in the image at path. Cache
// hits skip the engine. Fresh results are cached even when empty.
func (s *Service) OCR(ctx context.Context, path string) (string, error) {
	key := filepath.Base(path)
	if s.cache != nil {
		if text, ok := s.cache.Get(key); ok {
			slog.DebugContext(ctx, "ocr cache hit", "file", key)
			return text, nil
		}
	}

	if err := acquireToken(ctx, s.sem); err != nil {
		return "", err
	}
	text, err := s.recognize(ctx, path)
	<-s.sem
	if err != nil {
		return "", err
	}

	if text == "" {
		slog.WarnContext(ctx, "no text recognized", "file", path)
	}
	if s.cache != nil {
		if err := s.cache.Put(key, text); err != nil {
			slog.WarnContext(ctx, "caching ocr result", "file", key, "error", err)
		}
	}
	return text, nil
}

// OCRTolerant is OCR with failures logged and reported as empty text.
func (s *Service) OCRTolerant(ctx context.Context, path string) string {
	text, err := s.OCR(ctx, path)
	if err != nil {
		slog.ErrorContext(ctx, "ocr failed", "file", path, "error", err)
		return ""
	}
	return text
}

func (s *Service) recognize(ctx context.Context, path string) (string, error) {
	img, err := imaging.Open(path, imaging.AutoOrientation(true))
	if err != nil {
		return "", fmt.Errorf("decoding %s: %w", path, err)
	}
	text, err := s.engine.Recognize(ctx, Preprocess(img))
	if err != nil {
		return "", fmt.Errorf("recognizing %s: %w", path, err)
	}
	return strings.TrimSpace(text), nil
}

// acquireToken acquires a slot from the semaphore, respecting context cancellation.
func acquireToken(ctx context.Context, sem chan struct{}) error {
	select {
	case sem <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
