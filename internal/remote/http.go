package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/draftpilot/redline/internal/core/suggestion"
)

// HTTPClient talks JSON over HTTP to the analysis backend.
type HTTPClient struct {
	baseURL string
	tokens  TokenSource
	client  *http.Client
	log     zerolog.Logger
}

// NewHTTPClient creates a client for the given base URL. httpClient may be
// nil, in which case a 10s-timeout client is used.
func NewHTTPClient(baseURL string, tokens TokenSource, httpClient *http.Client, log zerolog.Logger) *HTTPClient {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &HTTPClient{
		baseURL: baseURL,
		tokens:  tokens,
		client:  httpClient,
		log:     log,
	}
}

// FetchSuggestions implements Client.
func (c *HTTPClient) FetchSuggestions(ctx context.Context, postID string) (SuggestionsResponse, error) {
	var out SuggestionsResponse
	err := c.do(ctx, http.MethodGet, fmt.Sprintf("/posts/%s/suggestions", postID), nil, &out)
	if err != nil {
		return SuggestionsResponse{}, fmt.Errorf("fetch suggestions: %w", err)
	}
	return out, nil
}

// DeleteSuggestion implements Client.
func (c *HTTPClient) DeleteSuggestion(ctx context.Context, id string) error {
	if err := c.do(ctx, http.MethodDelete, fmt.Sprintf("/suggestions/%s", id), nil, nil); err != nil {
		return fmt.Errorf("delete suggestion: %w", err)
	}
	return nil
}

// RequestSuggestions implements Client.
func (c *HTTPClient) RequestSuggestions(ctx context.Context, postID, text string, ranges []suggestion.ChangedRange) ([]suggestion.Suggestion, error) {
	body := struct {
		Text   string                    `json:"text"`
		Ranges []suggestion.ChangedRange `json:"ranges"`
	}{Text: text, Ranges: ranges}

	var out SuggestionsResponse
	err := c.do(ctx, http.MethodPost, fmt.Sprintf("/posts/%s/suggestions/request", postID), body, &out)
	if err != nil {
		return nil, fmt.Errorf("request suggestions: %w", err)
	}
	return out.Suggestions, nil
}

// StartReview implements Client.
func (c *HTTPClient) StartReview(ctx context.Context, postID string) (ReviewHandle, error) {
	var out ReviewHandle
	err := c.do(ctx, http.MethodPost, fmt.Sprintf("/posts/%s/review", postID), nil, &out)
	if err != nil {
		return ReviewHandle{}, fmt.Errorf("start review: %w", err)
	}
	return out, nil
}

func (c *HTTPClient) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	token, err := c.tokens.Token(ctx)
	if err != nil {
		return fmt.Errorf("get auth token: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.client.Do(req)
	if err != nil {
		return errors.Join(ErrUnavailable, err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			c.log.Debug().Err(err).Msg("close response body")
		}
	}()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return ErrUnauthorized
	case resp.StatusCode >= 500:
		return fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	case resp.StatusCode >= 400:
		return fmt.Errorf("status %d", resp.StatusCode)
	}

	if out == nil {
		return nil
	}

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if err := json.Unmarshal(payload, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
