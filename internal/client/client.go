// Package client talks to the classifier service: status checks, model
// listing and batch predictions.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"classifier-api/internal/shared"
)

const (
	StatusTimeout  = 10 * time.Second
	PredictTimeout = 30 * time.Second
)

var (
	ErrInvalidAPIKey = errors.New("Invalid API key")
	ErrUnreachable   = errors.New("Cannot connect to API server")
	ErrTimeout       = errors.New("Request timeout")
)

// HTTPError is any non-2xx answer other than an auth failure.
type HTTPError struct {
	StatusCode int
	Detail     string
	Type       string
}

func (e *HTTPError) Error() string {
	if e.Type != "" {
		return fmt.Sprintf("HTTP %d: %s (%s)", e.StatusCode, e.Detail, e.Type)
	}
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Detail)
}

type Client struct {
	BaseURL string
	APIKey  string
	HTTP    *http.Client
}

func New(baseURL, apiKey string) *Client {
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		APIKey:  apiKey,
		HTTP:    &http.Client{},
	}
}

// CheckStatus calls the authenticated root route.
func (c *Client) CheckStatus(ctx context.Context) (*shared.AppInfo, error) {
	ctx, cancel := context.WithTimeout(ctx, StatusTimeout)
	defer cancel()
	var info shared.AppInfo
	if err := c.do(ctx, http.MethodGet, "/", nil, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

func (c *Client) Models(ctx context.Context) ([]shared.ModelInfo, error) {
	ctx, cancel := context.WithTimeout(ctx, StatusTimeout)
	defer cancel()
	var list shared.ModelList
	if err := c.do(ctx, http.MethodGet, "/models", nil, &list); err != nil {
		return nil, err
	}
	return list.Data, nil
}

func (c *Client) Predict(ctx context.Context, model string, inputs []map[string]any) (*shared.PredictionResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, PredictTimeout)
	defer cancel()
	body, err := json.Marshal(shared.PredictRequest{Inputs: inputs})
	if err != nil {
		return nil, err
	}
	var resp shared.PredictionResponse
	if err := c.do(ctx, http.MethodPost, "/predict/"+url.PathEscape(model), body, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) do(ctx context.Context, method, path string, body []byte, out any) error {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set(shared.APIKeyHeader, c.APIKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	res, err := c.HTTP.Do(req)
	if err != nil {
		return transportError(err)
	}
	defer res.Body.Close()
	payload, err := io.ReadAll(res.Body)
	if err != nil {
		return transportError(err)
	}

	switch {
	case res.StatusCode == http.StatusForbidden:
		return ErrInvalidAPIKey
	case res.StatusCode < 200 || res.StatusCode > 299:
		herr := &HTTPError{StatusCode: res.StatusCode, Detail: strings.TrimSpace(string(payload))}
		var apiErr shared.APIError
		if json.Unmarshal(payload, &apiErr) == nil && apiErr.Detail != "" {
			herr.Detail = apiErr.Detail
			herr.Type = apiErr.Type
		}
		return herr
	}
	if err := json.Unmarshal(payload, out); err != nil {
		return fmt.Errorf("invalid response body: %w", err)
	}
	return nil
}

func transportError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return ErrTimeout
	}
	var ue *url.Error
	if errors.As(err, &ue) && ue.Timeout() {
		return ErrTimeout
	}
	return fmt.Errorf("%w: %w", ErrUnreachable, err)
}
