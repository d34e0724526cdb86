// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/pdiddy/keepnotion/internal/httputil"
)

// DefaultModel is the chat model used when none is configured.
const DefaultModel = "gpt-4-turbo"

// openAIBaseURL is the API root. Package-level var for test substitution.
var openAIBaseURL = "https://api.openai.com/v1"

// ErrNoChoices is returned when a completion carries no choices.
var ErrNoChoices = errors.New("no choices in completion response")

// OpenAIFormatter formats OCR text through the chat completions API.
type OpenAIFormatter struct {
	APIKey  string
	Model   string
	BaseURL string
	Client  *http.Client
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

type apiErrorBody struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

// Format sends raw to the model and returns the first choice's content.
func (f *OpenAIFormatter) Format(ctx context.Context, raw string) (string, error) {
	prompt, err := renderPrompt(raw)
	if err != nil {
		return "", fmt.Errorf("rendering prompt: %w", err)
	}

	model := f.Model
	if model == "" {
		model = DefaultModel
	}
	bodyBytes, err := json.Marshal(chatRequest{
		Model: model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: prompt},
		},
	})
	if err != nil {
		return "", fmt.Errorf("marshaling request: %w", err)
	}

	base := strings.TrimRight(f.BaseURL, "/")
	if base == "" {
		base = openAIBaseURL
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, base+"/chat/completions", bytes.NewReader(bodyBytes))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+f.APIKey)

	client := f.Client
	if client == nil {
		client = http.DefaultClient
	}

	resp, err := httputil.DoWithRetry(ctx, client, req, 0)
	if err != nil {
		return "", fmt.Errorf("calling chat completions: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		var apiErr apiErrorBody
		if json.Unmarshal(body, &apiErr) == nil && apiErr.Error.Message != "" {
			return "", fmt.Errorf("chat completions returned %d: %s", resp.StatusCode, apiErr.Error.Message)
		}
		return "", fmt.Errorf("chat completions returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var cResp chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&cResp); err != nil {
		return "", fmt.Errorf("decoding completion: %w", err)
	}
	if len(cResp.Choices) == 0 {
		return "", ErrNoChoices
	}
	return cResp.Choices[0].Message.Content, nil
}
