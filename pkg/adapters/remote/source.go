// Package remote fetches survey definitions over HTTP.
package remote

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	// DefaultTimeout bounds a single fetch when the context has no deadline.
	DefaultTimeout = 10 * time.Second
	// DefaultMaxBytes caps the size of a downloaded definition.
	DefaultMaxBytes = 1 << 20
)

// Source implements ports.DefinitionSource with an HTTP GET.
type Source struct {
	client   *http.Client
	timeout  time.Duration
	maxBytes int64
	headers  http.Header
}

// Option configures a Source.
type Option func(*Source)

// WithClient replaces the HTTP client.
func WithClient(c *http.Client) Option {
	return func(s *Source) { s.client = c }
}

// WithTimeout sets the per-fetch timeout.
func WithTimeout(d time.Duration) Option {
	return func(s *Source) { s.timeout = d }
}

// WithMaxBytes caps the response body size.
func WithMaxBytes(n int64) Option {
	return func(s *Source) { s.maxBytes = n }
}

// WithHeader adds a header sent with every request (e.g. Authorization).
func WithHeader(key, value string) Option {
	return func(s *Source) { s.headers.Add(key, value) }
}

// NewSource creates an HTTP definition source.
func NewSource(opts ...Option) *Source {
	s := &Source{
		client:   http.DefaultClient,
		timeout:  DefaultTimeout,
		maxBytes: DefaultMaxBytes,
		headers:  make(http.Header),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Fetch downloads the definition at url.
func (s *Source) Fetch(ctx context.Context, url string) ([]byte, error) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json, application/yaml, text/yaml;q=0.9, */*;q=0.1")
	for k, vs := range s.headers {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch definition: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("failed to fetch definition: unexpected status %s", resp.Status)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, s.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read definition body: %w", err)
	}
	if int64(len(data)) > s.maxBytes {
		return nil, fmt.Errorf("definition exceeds %d bytes", s.maxBytes)
	}
	return data, nil
}
