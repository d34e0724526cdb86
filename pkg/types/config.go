// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// HTTPConfig holds shared HTTP settings used by stages that make network requests.
type HTTPConfig struct {
	// Timeout is the HTTP request timeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests
	// (e.g. "keepnotion/0.1").
	UserAgent string `json:"user_agent" yaml:"user_agent"`

	// MaxRetries is the number of retries on HTTP 429 before giving up (default 5).
	MaxRetries int `json:"max_retries" yaml:"max_retries"`
}

// NotionConfig holds settings for the workspace API client.
type NotionConfig struct {
	HTTPConfig `yaml:",inline"`

	// Token is the integration token sent as a bearer credential.
	Token string `json:"token,omitempty" yaml:"token,omitempty"`

	// BaseURL is the API root (default https://api.notion.com/v1).
	BaseURL string `json:"base_url" yaml:"base_url"`

	// Version is the pinned Notion-Version header.
	Version string `json:"version" yaml:"version"`

	// CallDelay is the flat minimum delay between consecutive API calls
	// (default 334ms, three requests per second).
	CallDelay time.Duration `json:"call_delay" yaml:"call_delay"`
}

// UploadConfig holds settings for mirroring a directory tree into pages.
type UploadConfig struct {
	// SourceDir is the root of the directory tree to mirror.
	SourceDir string `json:"source_dir" yaml:"source_dir"`

	// ParentPageID is the page under which the tree is created.
	ParentPageID string `json:"parent_page_id" yaml:"parent_page_id"`

	// RootPage creates a page for SourceDir itself instead of placing its
	// entries directly under ParentPageID.
	RootPage bool `json:"root_page" yaml:"root_page"`

	// Extensions lists accepted file extensions, lower case with the dot
	// (default .md and .txt).
	Extensions []string `json:"extensions" yaml:"extensions"`

	// DryRun prints the pages that would be created without calling the API.
	DryRun bool `json:"dry_run" yaml:"dry_run"`

	// ManifestPath is the SQLite file recording uploaded pages. Empty disables it.
	ManifestPath string `json:"manifest_path" yaml:"manifest_path"`
}

// AIConfig holds shared settings for stages that call a Generative AI API.
type AIConfig struct {
	// Model is the AI model identifier (e.g. "gpt-4-turbo").
	Model string `json:"model" yaml:"model"`

	// APIKey is the authentication key for the AI API.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty"`

	// BaseURL is the API root (default https://api.openai.com/v1).
	BaseURL string `json:"base_url" yaml:"base_url"`

	// MaxRetries is the number of retry attempts for failed API calls (default 3).
	MaxRetries int `json:"max_retries" yaml:"max_retries"`
}

// OCRConfig holds settings for image text recognition.
type OCRConfig struct {
	// Language is the tesseract language code (default "eng").
	Language string `json:"language" yaml:"language"`

	// Workers bounds concurrent OCR calls (default 4).
	Workers int `json:"workers" yaml:"workers"`

	// Image is the container image used when no tesseract binary is on PATH.
	Image string `json:"image" yaml:"image"`
}

// ConvertConfig holds settings for the note conversion stage.
type ConvertConfig struct {
	AI  AIConfig  `json:"ai" yaml:"ai"`
	OCR OCRConfig `json:"ocr" yaml:"ocr"`

	// UseLLM enables LLM cleanup of OCR text. False means OCR only.
	UseLLM bool `json:"use_llm" yaml:"use_llm"`

	// Debug processes only the first DebugCount notes, one at a time.
	Debug bool `json:"debug" yaml:"debug"`

	// DebugCount is the number of notes processed in debug mode (default 15).
	DebugCount int `json:"debug_count" yaml:"debug_count"`

	// NoteWorkers bounds concurrently processed notes outside debug mode (default 8).
	NoteWorkers int `json:"note_workers" yaml:"note_workers"`

	// SkipTrashed ignores notes flagged as trashed in the export.
	SkipTrashed bool `json:"skip_trashed" yaml:"skip_trashed"`

	// InputDir holds the exported note JSON files.
	InputDir string `json:"input_dir" yaml:"input_dir"`

	// AttachmentsDir holds the exported attachment files.
	AttachmentsDir string `json:"attachments_dir" yaml:"attachments_dir"`

	// MarkdownDir receives the generated Markdown, one folder per label set.
	MarkdownDir string `json:"markdown_dir" yaml:"markdown_dir"`

	// HTMLDir receives the generated HTML, one folder per label set.
	HTMLDir string `json:"html_dir" yaml:"html_dir"`

	// CacheDir holds the ocr/ and llm/ result caches.
	CacheDir string `json:"cache_dir" yaml:"cache_dir"`
}
