// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package notion is a small client for the Notion pages and blocks API.
//
// It covers what the uploader needs:
//   - creating pages under a parent page, with content blocks
//   - appending blocks past the 100-children request limit
//   - archiving pages replaced by a re-upload
//
// Calls are spaced by a rate limiter (3 req/sec by default) and retried on
// HTTP 429 with exponential backoff.
package notion
