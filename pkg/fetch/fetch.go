// Package fetch retrieves web pages as Markdown for document indexing.
// It backs the link-ingestion endpoint; fetched content goes into the
// document index, never directly into a pipeline run.
package fetch

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
)

const (
	// DefaultTimeout is the overall request timeout.
	DefaultTimeout = 30 * time.Second
	// MaxBodySize caps the response body at 10MB.
	MaxBodySize = 10 * 1024 * 1024

	userAgent           = "reportflow-fetch/1.0"
	dialTimeout         = 10 * time.Second
	tlsHandshakeTimeout = 10 * time.Second
	headerTimeout       = 10 * time.Second
)

// Page is fetched content ready for indexing.
type Page struct {
	// URL is the final URL after redirects.
	URL string `json:"url"`

	// Markdown is the page content converted from HTML.
	Markdown string `json:"markdown"`
}

// Fetcher retrieves pages over HTTP. The zero value is not usable; use New.
type Fetcher struct {
	client  *http.Client
	timeout time.Duration
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithTimeout overrides the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(f *Fetcher) { f.timeout = d }
}

// WithHTTPClient overrides the HTTP client, mainly for tests.
func WithHTTPClient(c *http.Client) Option {
	return func(f *Fetcher) { f.client = c }
}

// New creates a Fetcher. Timeouts cover dialing, TLS, and headers
// separately so one slow server cannot hold a request indefinitely.
func New(opts ...Option) *Fetcher {
	f := &Fetcher{
		timeout: DefaultTimeout,
		client: &http.Client{
			Transport: &http.Transport{
				DialContext: (&net.Dialer{
					Timeout:   dialTimeout,
					KeepAlive: 30 * time.Second,
				}).DialContext,
				TLSHandshakeTimeout:   tlsHandshakeTimeout,
				ResponseHeaderTimeout: headerTimeout,
				MaxIdleConns:          100,
				MaxIdleConnsPerHost:   10,
				ForceAttemptHTTP2:     true,
			},
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 10 {
					return fmt.Errorf("too many redirects (>10)")
				}
				return nil
			},
		},
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Fetch retrieves the page at url and converts it to Markdown. Partial
// URLs like "example.com" get an https:// prefix. Non-200 statuses and
// bodies over MaxBodySize are errors.
func (f *Fetcher) Fetch(ctx context.Context, url string) (Page, error) {
	url = strings.TrimSpace(url)
	if url == "" {
		return Page{}, fmt.Errorf("url cannot be empty")
	}
	if !strings.HasPrefix(url, "http://") && !strings.HasPrefix(url, "https://") {
		url = "https://" + url
	}

	reqCtx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, url, nil)
	if err != nil {
		return Page{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		if reqCtx.Err() != nil {
			return Page{}, fmt.Errorf("request timeout or canceled: %w", err)
		}
		return Page{}, fmt.Errorf("fetch url: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Page{}, fmt.Errorf("unexpected status code: %d %s", resp.StatusCode, resp.Status)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, MaxBodySize+1))
	if err != nil {
		return Page{}, fmt.Errorf("read response body: %w", err)
	}
	if len(body) > MaxBodySize {
		return Page{}, fmt.Errorf("response body exceeds maximum size of %d bytes", MaxBodySize)
	}

	markdown, err := htmltomarkdown.ConvertString(string(body))
	if err != nil {
		return Page{}, fmt.Errorf("convert html to markdown: %w", err)
	}

	return Page{
		URL:      resp.Request.URL.String(),
		Markdown: strings.TrimSpace(markdown),
	}, nil
}
