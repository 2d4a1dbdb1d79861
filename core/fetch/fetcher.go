// Package fetch implements the Fetcher interface.
// It performs HTTP GET requests for the page document and its resources.
package fetch

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"time"
	"unicode/utf8"

	"github.com/gaurav-prasanna/pageloader/core"
	"golang.org/x/net/html/charset"
)

const (
	// DefaultTimeout bounds every single request, page or resource.
	DefaultTimeout   = 3 * time.Second
	DefaultUserAgent = "page-loader/1.0 (https://github.com/gaurav-prasanna/pageloader)"
)

// HTTPFetcher fetches pages and resources via HTTP.
type HTTPFetcher struct {
	client    *http.Client
	userAgent string
}

// Option configures an HTTPFetcher.
type Option func(*HTTPFetcher)

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(f *HTTPFetcher) {
		if d > 0 {
			f.client.Timeout = d
		}
	}
}

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(f *HTTPFetcher) {
		if ua != "" {
			f.userAgent = ua
		}
	}
}

// WithClient replaces the underlying client. Its Timeout is kept as is.
func WithClient(c *http.Client) Option {
	return func(f *HTTPFetcher) {
		if c != nil {
			f.client = c
		}
	}
}

// New creates an HTTPFetcher with DefaultTimeout.
func New(opts ...Option) *HTTPFetcher {
	f := &HTTPFetcher{
		client:    &http.Client{Timeout: DefaultTimeout},
		userAgent: DefaultUserAgent,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Fetch retrieves url. Binary bodies are returned as received. Text bodies
// are converted to UTF-8 only when the encoding is certain (a BOM or the
// Content-Type charset) and is not UTF-8, or when an HTML body is not valid
// UTF-8 and names its charset in a meta tag. Everything else passes through
// unchanged.
func (f *HTTPFetcher) Fetch(ctx context.Context, url string, rt core.ResponseType) (*core.FetchResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &core.NetworkError{URL: url, Err: fmt.Errorf("creating request: %w", err)}
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "*/*")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, &core.NetworkError{URL: url, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, &core.NetworkError{URL: url, StatusCode: resp.StatusCode}
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &core.NetworkError{URL: url, Err: fmt.Errorf("reading response body: %w", err)}
	}

	result := &core.FetchResult{
		URL:        url,
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       data,
	}
	if rt == core.ResponseText {
		body, from, err := toUTF8(data, resp.Header.Get("Content-Type"))
		if err != nil {
			return nil, &core.NetworkError{URL: url, Err: fmt.Errorf("decoding body: %w", err)}
		}
		result.Body, result.Transcoded = body, from
	}
	return result, nil
}

func toUTF8(data []byte, contentType string) ([]byte, string, error) {
	enc, name, certain := charset.DetermineEncoding(data, contentType)
	if name == "utf-8" {
		return data, "", nil
	}
	// Without a BOM or header charset the guess only covers the first
	// kilobyte, so it is trusted for malformed HTML alone.
	if !certain && (utf8.Valid(data) || !isHTML(contentType)) {
		return data, "", nil
	}
	out, err := enc.NewDecoder().Bytes(data)
	if err != nil {
		return nil, "", err
	}
	return out, name, nil
}

func isHTML(contentType string) bool {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return mediaType == "text/html" || mediaType == "application/xhtml+xml"
}
