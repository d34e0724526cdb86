// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package notion

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/pdiddy/keepnotion/internal/httputil"
	"github.com/pdiddy/keepnotion/pkg/types"
)

const (
	// DefaultBaseURL is the Notion API base URL.
	DefaultBaseURL = "https://api.notion.com/v1"
	// DefaultVersion is the pinned Notion API version.
	DefaultVersion = "2022-06-28"
	// DefaultCallDelay is the flat delay between requests (3 req/sec).
	DefaultCallDelay = 334 * time.Millisecond
	// MaxChildren is the most blocks a single create or append request may carry.
	MaxChildren = 100

	defaultTimeout = 30 * time.Second
)

// ErrInvalidPageID is returned when a page reference is not a page ID or page URL.
var ErrInvalidPageID = errors.New("invalid page ID")

// Client is a rate-limited Notion API client. Every request waits for the
// limiter and is retried on HTTP 429 through httputil.DoWithRetry.
type Client struct {
	token      string
	baseURL    string
	version    string
	userAgent  string
	maxRetries int
	httpClient *http.Client
	limiter    *rate.Limiter
}

// NewClient creates a client from cfg, filling defaults for zero fields.
func NewClient(cfg types.NotionConfig) *Client {
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	version := cfg.Version
	if version == "" {
		version = DefaultVersion
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = defaultTimeout
	}
	delay := cfg.CallDelay
	if delay == 0 {
		delay = DefaultCallDelay
	}
	limit := rate.Every(delay)
	if delay < 0 {
		limit = rate.Inf
	}
	return &Client{
		token:      cfg.Token,
		baseURL:    baseURL,
		version:    version,
		userAgent:  cfg.UserAgent,
		maxRetries: cfg.MaxRetries,
		httpClient: &http.Client{Timeout: timeout},
		limiter:    rate.NewLimiter(limit, 1),
	}
}

// do performs one API call and decodes a successful response into out
// (when out is non-nil).
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshaling request body: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Notion-Version", c.version)
	req.Header.Set("Content-Type", "application/json")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := httputil.DoWithRetry(ctx, c.httpClient, req, c.maxRetries)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode >= 400 {
		apiErr := &Error{}
		if err := json.Unmarshal(respBody, apiErr); err != nil || apiErr.Message == "" {
			apiErr = &Error{Status: resp.StatusCode, Message: strings.TrimSpace(string(respBody))}
		}
		if apiErr.Status == 0 {
			apiErr.Status = resp.StatusCode
		}
		if resp.StatusCode == http.StatusTooManyRequests && apiErr.Code == "" {
			apiErr.Code = "rate_limited"
		}
		return apiErr
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("parsing response of %s %s: %w", method, path, err)
	}
	return nil
}

// GetPage retrieves a page by ID.
func (c *Client) GetPage(ctx context.Context, id string) (*Page, error) {
	var page Page
	if err := c.do(ctx, http.MethodGet, "/pages/"+url.PathEscape(id), nil, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// CreatePage creates a page titled title under parentID. The first
// MaxChildren blocks travel with the create request; the remainder are
// appended in batches.
func (c *Client) CreatePage(ctx context.Context, parentID, title string, icon *Icon, children []Block) (*Page, error) {
	first, rest := children, []Block(nil)
	if len(children) > MaxChildren {
		first, rest = children[:MaxChildren], children[MaxChildren:]
	}

	req := createPageRequest{
		Parent: Parent{Type: "page_id", PageID: parentID},
		Icon:   icon,
		Properties: map[string]titleProperty{
			"title": {Title: TextRuns(title, nil, nil)},
		},
		Children: first,
	}

	var page Page
	if err := c.do(ctx, http.MethodPost, "/pages", req, &page); err != nil {
		return nil, fmt.Errorf("creating page %q: %w", title, err)
	}

	if len(rest) > 0 {
		if err := c.AppendBlockChildren(ctx, page.ID, rest); err != nil {
			return &page, fmt.Errorf("page %q created but content incomplete: %w", title, err)
		}
	}
	return &page, nil
}

// AppendBlockChildren appends children to a block (or page) in batches of
// MaxChildren.
func (c *Client) AppendBlockChildren(ctx context.Context, blockID string, children []Block) error {
	for start := 0; start < len(children); start += MaxChildren {
		end := min(start+MaxChildren, len(children))
		path := "/blocks/" + url.PathEscape(blockID) + "/children"
		if err := c.do(ctx, http.MethodPatch, path, appendChildrenRequest{Children: children[start:end]}, nil); err != nil {
			return fmt.Errorf("appending blocks %d-%d: %w", start, end-1, err)
		}
		slog.DebugContext(ctx, "appended blocks", "block", blockID, "from", start, "to", end-1)
	}
	return nil
}

// ArchivePage moves a page to the trash.
func (c *Client) ArchivePage(ctx context.Context, id string) error {
	if err := c.do(ctx, http.MethodPatch, "/pages/"+url.PathEscape(id), archiveRequest{Archived: true}, nil); err != nil {
		return fmt.Errorf("archiving page %s: %w", id, err)
	}
	return nil
}

// hexIDPattern finds a 32-character page ID at the end of a page URL path.
var hexIDPattern = regexp.MustCompile(`([0-9a-fA-F]{32})$`)

// NormalizeID accepts a page ID with or without dashes, or a page URL, and
// returns the canonical dashed lower-case form.
func NormalizeID(ref string) (string, error) {
	ref = strings.TrimSpace(ref)
	if u, err := url.Parse(ref); err == nil && u.Host != "" {
		ref = strings.TrimRight(u.Path, "/")
		if m := hexIDPattern.FindString(ref); m != "" {
			ref = m
		}
	}
	id, err := uuid.Parse(ref)
	if err != nil {
		return "", fmt.Errorf("%w: %q", ErrInvalidPageID, ref)
	}
	return id.String(), nil
}
