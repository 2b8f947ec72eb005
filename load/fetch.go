/*
Copyright 2026 Benny Powers. All rights reserved.
Use of this source code is governed by the GPLv3
license that can be found in the LICENSE file.
*/

package load

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"bennypowers.dev/permute/internal/version"
	"bennypowers.dev/permute/ref"
)

const (
	// DefaultTimeout bounds a single fetch.
	DefaultTimeout = 30 * time.Second

	// DefaultMaxSize is the maximum allowed response size (10 MB).
	DefaultMaxSize int64 = 10 * 1024 * 1024
)

// acceptHeader lists the formats the parser understands.
const acceptHeader = "application/json, application/yaml;q=0.9, text/yaml;q=0.9, */*;q=0.1"

// HTTPFetcher fetches remote resolver documents and the token files they
// reference. Every request is bounded in time and size, including requests
// made deep inside reference resolution where the caller sets no deadline.
type HTTPFetcher struct {
	maxSize int64
	timeout time.Duration
	client  *http.Client
}

var _ ref.Fetcher = (*HTTPFetcher)(nil)

// FetcherOption configures an HTTPFetcher.
type FetcherOption func(*HTTPFetcher)

// WithTimeout bounds each request. Zero leaves requests bounded only by
// the caller's context.
func WithTimeout(d time.Duration) FetcherOption {
	return func(f *HTTPFetcher) { f.timeout = d }
}

// WithClient sets the HTTP client, e.g. one with a proxy or custom transport.
func WithClient(c *http.Client) FetcherOption {
	return func(f *HTTPFetcher) { f.client = c }
}

// NewHTTPFetcher creates an HTTPFetcher that rejects responses larger than maxSize.
func NewHTTPFetcher(maxSize int64, opts ...FetcherOption) *HTTPFetcher {
	f := &HTTPFetcher{
		maxSize: maxSize,
		timeout: DefaultTimeout,
		client:  &http.Client{},
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Fetch implements ref.Fetcher.
func (f *HTTPFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	if !isURL(url) {
		return nil, fmt.Errorf("cannot fetch %q: only http and https URLs are supported", url)
	}
	if f.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request for %s: %w", url, err)
	}
	req.Header.Set("User-Agent", "permute/"+version.Get())
	req.Header.Set("Accept", acceptHeader)

	resp, err := f.client.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("timeout fetching %s: %w", url, err)
		}
		return nil, fmt.Errorf("fetching %s: %w", url, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetching %s: %s", url, resp.Status)
	}
	if resp.ContentLength > f.maxSize {
		return nil, f.tooLarge(url)
	}

	content, err := io.ReadAll(io.LimitReader(resp.Body, f.maxSize+1))
	if err != nil {
		return nil, fmt.Errorf("reading response from %s: %w", url, err)
	}
	if int64(len(content)) > f.maxSize {
		return nil, f.tooLarge(url)
	}
	return content, nil
}

func (f *HTTPFetcher) tooLarge(url string) error {
	return fmt.Errorf("response from %s exceeds maximum size of %d bytes", url, f.maxSize)
}
