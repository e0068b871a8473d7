package offline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// ErrPayloadTooLarge is returned when a binary exceeds the configured size limit.
var ErrPayloadTooLarge = errors.New("payload exceeds size limit")

// ErrEmptyPayload is returned when a binary endpoint answers with no bytes.
var ErrEmptyPayload = errors.New("empty payload")

// BinaryFetcher retrieves the bytes behind a URL.
type BinaryFetcher interface {
	Fetch(ctx context.Context, rawURL string) ([]byte, error)
}

// FetcherConfig configures a Fetcher.
type FetcherConfig struct {
	Timeout   time.Duration
	MaxBytes  int64
	UserAgent string
	Policy    URLPolicy
	Transport http.RoundTripper
}

// Fetcher downloads cover images and PDF documents over HTTP(S).
type Fetcher struct {
	httpClient *http.Client
	policy     URLPolicy
	timeout    time.Duration
	maxBytes   int64
	userAgent  string
}

// NewFetcher creates a Fetcher. Every request gets its own timeout; expiry
// surfaces as a fetch error.
func NewFetcher(cfg FetcherConfig) *Fetcher {
	if cfg.UserAgent == "" {
		cfg.UserAgent = "OfflineShelf/1.0"
	}

	f := &Fetcher{
		policy:    cfg.Policy,
		timeout:   cfg.Timeout,
		maxBytes:  cfg.MaxBytes,
		userAgent: cfg.UserAgent,
	}
	f.httpClient = &http.Client{
		Transport: cfg.Transport,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= 5 {
				return errors.New("stopped after 5 redirects")
			}
			_, err := f.policy.Check(req.URL.String())
			return err
		},
	}
	return f
}

// Fetch retrieves rawURL and returns the response body.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) ([]byte, error) {
	u, err := f.policy.Check(rawURL)
	if err != nil {
		return nil, err
	}

	if f.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", f.userAgent)

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", u.Redacted(), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &HTTPStatusError{URL: u.Redacted(), StatusCode: resp.StatusCode}
	}

	if f.maxBytes > 0 && resp.ContentLength > f.maxBytes {
		return nil, fmt.Errorf("fetch %s: %w (%d > %d bytes)", u.Redacted(), ErrPayloadTooLarge, resp.ContentLength, f.maxBytes)
	}

	var body io.Reader = resp.Body
	if f.maxBytes > 0 {
		body = io.LimitReader(resp.Body, f.maxBytes+1)
	}

	data, err := io.ReadAll(body)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", u.Redacted(), err)
	}
	if f.maxBytes > 0 && int64(len(data)) > f.maxBytes {
		return nil, fmt.Errorf("fetch %s: %w (limit %d bytes)", u.Redacted(), ErrPayloadTooLarge, f.maxBytes)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("fetch %s: %w", u.Redacted(), ErrEmptyPayload)
	}

	return data, nil
}
