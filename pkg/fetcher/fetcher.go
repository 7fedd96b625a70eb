package fetcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/dtnitsch/landing-ops/pkg/caching"
)

const (
	defaultTimeout  = 15 * time.Second
	defaultMaxBytes = 5 << 20
	userAgent       = "landing-ops-importer/1.0"
)

// ErrUnsupportedURL is returned for anything but absolute http(s) URLs.
var ErrUnsupportedURL = errors.New("only absolute http(s) URLs can be imported")

// Response is a fetched document.
type Response struct {
	URL         string
	FinalURL    string
	ContentType string
	Body        []byte
	FromCache   bool
}

type Fetcher struct {
	client   *http.Client
	cache    *caching.Cache
	maxBytes int64
}

type Option func(*Fetcher)

// WithCache serves and stores documents through c.
func WithCache(c *caching.Cache) Option {
	return func(f *Fetcher) { f.cache = c }
}

// WithClient replaces the HTTP client, mainly for tests.
func WithClient(c *http.Client) Option {
	return func(f *Fetcher) { f.client = c }
}

// WithTimeout bounds each request.
func WithTimeout(d time.Duration) Option {
	return func(f *Fetcher) { f.client.Timeout = d }
}

func NewFetcher(opts ...Option) *Fetcher {
	f := &Fetcher{
		client:   &http.Client{Timeout: defaultTimeout},
		maxBytes: defaultMaxBytes,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Fetch returns the document at rawURL, from the cache when a fresh entry
// exists. Bodies beyond the size limit are truncated.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (*Response, error) {
	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("%q: %w", rawURL, ErrUnsupportedURL)
	}

	if f.cache != nil {
		if e, ok := f.cache.Get(rawURL); ok {
			return &Response{URL: rawURL, FinalURL: e.FinalURL, ContentType: e.ContentType, Body: e.Body, FromCache: true}, nil
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to make HTTP request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to fetch HTML, status code: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	out := &Response{
		URL:         rawURL,
		FinalURL:    resp.Request.URL.String(),
		ContentType: resp.Header.Get("Content-Type"),
		Body:        body,
	}
	if f.cache != nil {
		// cache write failures are ignored
		_ = f.cache.Set(caching.Entry{URL: rawURL, FinalURL: out.FinalURL, ContentType: out.ContentType, Body: body})
	}
	return out, nil
}
