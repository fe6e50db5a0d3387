package reader

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/temoto/robotstxt"
)

// FetchResult is a downloaded remote source.
type FetchResult struct {
	URL         string
	StatusCode  int
	ContentType string
	Format      Format
	Data        []byte
}

// FetcherOptions configures remote downloads.
type FetcherOptions struct {
	Timeout     time.Duration
	UserAgent   string
	MaxBytes    int64
	RobotsCheck bool
	// HostDelay is the minimum gap between two requests to the same host.
	HostDelay time.Duration
}

// Fetcher downloads remote quiz documents.
type Fetcher struct {
	client *http.Client
	opts   FetcherOptions

	mu     sync.Mutex
	robots map[string]*robotstxt.RobotsData
	next   map[string]time.Time
}

// NewFetcher returns a fetcher with its own HTTP client.
func NewFetcher(opts FetcherOptions) *Fetcher {
	if opts.UserAgent == "" {
		opts.UserAgent = "quizbank/1.0"
	}
	return &Fetcher{
		client: &http.Client{
			Timeout: opts.Timeout,
			Transport: &http.Transport{
				MaxIdleConns:        20,
				MaxIdleConnsPerHost: 4,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		opts:   opts,
		robots: make(map[string]*robotstxt.RobotsData),
		next:   make(map[string]time.Time),
	}
}

// Fetch downloads rawURL and determines its format from the URL path or, failing
// that, the response content type.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (*FetchResult, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid url %q: %w", rawURL, err)
	}
	if f.opts.RobotsCheck {
		allowed, err := f.allowed(ctx, u)
		if err != nil {
			return nil, err
		}
		if !allowed {
			return nil, fmt.Errorf("%w: %s", ErrDisallowed, rawURL)
		}
	}

	resp, err := f.get(ctx, rawURL)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	result := &FetchResult{
		URL:         rawURL,
		StatusCode:  resp.StatusCode,
		ContentType: resp.Header.Get("Content-Type"),
	}
	if resp.StatusCode != http.StatusOK {
		return result, fmt.Errorf("received non-200 status code: %d", resp.StatusCode)
	}

	body := io.Reader(resp.Body)
	if f.opts.MaxBytes > 0 {
		body = io.LimitReader(resp.Body, f.opts.MaxBytes+1)
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return nil, fmt.Errorf("failed to read body: %w", err)
	}
	if f.opts.MaxBytes > 0 && int64(len(data)) > f.opts.MaxBytes {
		return nil, fmt.Errorf("%s exceeds the %d byte limit", rawURL, f.opts.MaxBytes)
	}
	result.Data = data

	if format, err := FormatOf(u.Path); err == nil {
		result.Format = format
	} else if format, ok := formatOfContentType(result.ContentType); ok {
		result.Format = format
	} else {
		return nil, fmt.Errorf("%w: %s (%s)", ErrUnsupported, rawURL, result.ContentType)
	}
	return result, nil
}

func (f *Fetcher) get(ctx context.Context, rawURL string) (*http.Response, error) {
	if err := f.wait(ctx, rawURL); err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", f.opts.UserAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("network error: %w", err)
	}
	return resp, nil
}

// wait blocks until the host of rawURL may be contacted again.
func (f *Fetcher) wait(ctx context.Context, rawURL string) error {
	if f.opts.HostDelay <= 0 {
		return nil
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid url %q: %w", rawURL, err)
	}

	f.mu.Lock()
	now := time.Now()
	slot := f.next[u.Host]
	if slot.Before(now) {
		slot = now
	}
	f.next[u.Host] = slot.Add(f.opts.HostDelay)
	f.mu.Unlock()

	timer := time.NewTimer(time.Until(slot))
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// allowed consults the host's robots.txt, fetched once per host.
func (f *Fetcher) allowed(ctx context.Context, u *url.URL) (bool, error) {
	f.mu.Lock()
	data, ok := f.robots[u.Host]
	f.mu.Unlock()

	if !ok {
		robotsURL := (&url.URL{Scheme: u.Scheme, Host: u.Host, Path: "/robots.txt"}).String()
		resp, err := f.get(ctx, robotsURL)
		if err != nil {
			return false, fmt.Errorf("failed to fetch robots.txt: %w", err)
		}
		defer resp.Body.Close()

		data, err = robotstxt.FromResponse(resp)
		if err != nil {
			return false, fmt.Errorf("failed to parse robots.txt: %w", err)
		}
		f.mu.Lock()
		f.robots[u.Host] = data
		f.mu.Unlock()
	}

	p := u.EscapedPath()
	if p == "" {
		p = "/"
	}
	return data.TestAgent(p, f.opts.UserAgent), nil
}

func formatOfContentType(contentType string) (Format, bool) {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return "", false
	}
	switch mediaType {
	case "text/html", "application/xhtml+xml":
		return FormatHTML, true
	case "text/plain", "text/markdown":
		return FormatText, true
	case "application/pdf":
		return FormatPDF, true
	case "application/vnd.openxmlformats-officedocument.wordprocessingml.document":
		return FormatDOCX, true
	case "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet":
		return FormatXLSX, true
	}
	return "", false
}
