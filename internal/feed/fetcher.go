package feed

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// Request headers the upstream source requires.
const (
	HeaderReferer        = "https://www.oref.org.il/"
	HeaderUserAgent      = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/78.0.3904.97 Safari/537.36"
	HeaderRequestedWith  = "XMLHttpRequest"
	maxBodyBytes         = 1 << 20
	defaultFetchDeadline = 5 * time.Second
)

// FetchError wraps every failure of one round-trip to the source.
type FetchError struct {
	// URL is the requested address.
	URL string
	// StatusCode is the HTTP status when a response arrived, zero otherwise.
	StatusCode int
	// Err is the underlying cause.
	Err error
}

// Error implements error.
func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch %s: unexpected status %d", e.URL, e.StatusCode)
	}

	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

// Unwrap returns the underlying cause.
func (e *FetchError) Unwrap() error {
	return e.Err
}

// Fetcher performs one blocking GET per call.
type Fetcher struct {
	url    string
	client *http.Client
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithHTTPClient replaces the default client.
func WithHTTPClient(client *http.Client) Option {
	return func(f *Fetcher) {
		if client != nil {
			f.client = client
		}
	}
}

// WithTimeout sets the deadline of one round-trip.
func WithTimeout(timeout time.Duration) Option {
	return func(f *Fetcher) {
		if timeout > 0 {
			client := *f.client
			client.Timeout = timeout
			f.client = &client
		}
	}
}

// NewFetcher creates a fetcher for url.
func NewFetcher(url string, opts ...Option) *Fetcher {
	f := &Fetcher{
		url:    url,
		client: &http.Client{Timeout: defaultFetchDeadline},
	}

	for _, opt := range opts {
		opt(f)
	}

	return f
}

// URL returns the polled address.
func (f *Fetcher) URL() string {
	return f.url
}

// Fetch returns the decoded body of the feed. Any failure is a *FetchError.
func (f *Fetcher) Fetch(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.url, nil)
	if err != nil {
		return "", &FetchError{URL: f.url, Err: err}
	}

	req.Header.Set("Referer", HeaderReferer)
	req.Header.Set("User-Agent", HeaderUserAgent)
	req.Header.Set("X-Requested-With", HeaderRequestedWith)
	req.Header.Set("Accept", "application/json, text/plain, */*")

	resp, err := f.client.Do(req)
	if err != nil {
		return "", &FetchError{URL: f.url, Err: err}
	}

	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		// Drain so the connection can be reused.
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodyBytes))

		return "", &FetchError{
			URL:        f.url,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("status %s", resp.Status),
		}
	}

	decoder := unicode.UTF8BOM.NewDecoder()

	body, err := io.ReadAll(transform.NewReader(io.LimitReader(resp.Body, maxBodyBytes), decoder))
	if err != nil {
		return "", &FetchError{URL: f.url, Err: fmt.Errorf("read body: %w", err)}
	}

	return string(body), nil
}
