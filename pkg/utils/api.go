package utils

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/time/rate"
)

const userAgent = "mangadl/1.0 (+https://github.com/kerbaras/mangadl)"

// StatusError is returned for non-2xx responses.
type StatusError struct {
	URL  string
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("GET %s: unexpected status %d", e.URL, e.Code)
}

// API is a small paced HTTP client shared by the sources.
type API struct {
	client  *http.Client
	baseURL string
	limiter *rate.Limiter
}

// NewAPI paces requests to 2/s with a burst of 4.
func NewAPI(baseURL string) *API {
	return NewAPIWithLimiter(baseURL, rate.NewLimiter(rate.Every(500*time.Millisecond), 4))
}

func NewAPIWithLimiter(baseURL string, limiter *rate.Limiter) *API {
	return &API{
		client:  &http.Client{Timeout: 30 * time.Second},
		baseURL: baseURL,
		limiter: limiter,
	}
}

func (a *API) BaseURL() string {
	return a.baseURL
}

// Get decodes the JSON response of baseURL+path into v.
func (a *API) Get(ctx context.Context, path string, params url.Values, v any) error {
	if params != nil {
		path += "?" + params.Encode()
	}
	resp, err := a.do(ctx, fmt.Sprintf("%s%s", a.baseURL, path), "application/json")
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return json.NewDecoder(resp.Body).Decode(v)
}

// Download fetches an absolute URL and returns the body.
func (a *API) Download(ctx context.Context, rawURL string) ([]byte, error) {
	resp, err := a.do(ctx, rawURL, "image/*")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	content, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", rawURL, err)
	}
	return content, nil
}

func (a *API) do(ctx context.Context, rawURL, accept string) (*http.Response, error) {
	if a.limiter != nil {
		if err := a.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", accept)
	req.Header.Set("User-Agent", userAgent)

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		resp.Body.Close()
		return nil, &StatusError{URL: rawURL, Code: resp.StatusCode}
	}
	return resp, nil
}
