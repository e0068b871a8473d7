// Package catalog looks up books on the remote library backend so they can be
// downloaded by id alone.
package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/mrlokans/offlineshelf/internal/offline"
)

var _ offline.BookResolver = (*Client)(nil)

// ErrBookNotFound is returned when the backend does not know the book.
var ErrBookNotFound = errors.New("book not found in catalog")

// ErrBookNotReadable is returned for books that exist but have no approved PDF.
var ErrBookNotReadable = errors.New("book has no readable PDF")

// Book is the backend's view of a book.
type Book struct {
	ID       string
	Title    string
	Author   string
	CoverURL string
	PDFURL   string
	Status   string
	// Raw holds every field the backend returned, for the offline metadata snapshot.
	Raw map[string]any
}

// Config configures a Client.
type Config struct {
	BaseURL     string
	Token       string
	Timeout     time.Duration
	UserAgent   string
	MinInterval time.Duration
}

// Client fetches book records from the library backend's lookup API.
type Client struct {
	httpClient  *http.Client
	baseURL     *url.URL
	token       string
	userAgent   string
	rateLimiter *rateLimiter
}

type rateLimiter struct {
	mu       sync.Mutex
	lastCall time.Time
	interval time.Duration
}

func newRateLimiter(interval time.Duration) *rateLimiter {
	return &rateLimiter{interval: interval}
}

func (r *rateLimiter) wait(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if since := time.Since(r.lastCall); since < r.interval {
		timer := time.NewTimer(r.interval - since)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	r.lastCall = time.Now()
	return nil
}

// NewClient creates a catalog client for the backend at cfg.BaseURL.
func NewClient(cfg Config) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/") + "/")
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("invalid catalog base url %q", cfg.BaseURL)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = "OfflineShelf/1.0"
	}

	return &Client{
		httpClient:  &http.Client{Timeout: cfg.Timeout},
		baseURL:     base,
		token:       cfg.Token,
		userAgent:   cfg.UserAgent,
		rateLimiter: newRateLimiter(cfg.MinInterval),
	}, nil
}

// GetBook looks up a book by id.
func (c *Client) GetBook(ctx context.Context, id string) (*Book, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, fmt.Errorf("book id is required")
	}

	if err := c.rateLimiter.wait(ctx); err != nil {
		return nil, err
	}

	endpoint := c.baseURL.ResolveReference(&url.URL{Path: "api/books/" + url.PathEscape(id)})
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch book %s: %w", id, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("%w: %s", ErrBookNotFound, id)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	dec := json.NewDecoder(resp.Body)
	dec.UseNumber()
	var payload map[string]any
	if err := dec.Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode book response: %w", err)
	}

	// Some deployments wrap the record as {"book": {...}}.
	if inner, ok := payload["book"].(map[string]any); ok {
		payload = inner
	}

	book := c.convertToBook(payload)
	if book.ID == "" {
		book.ID = id
	}
	return book, nil
}

// Resolve implements offline.BookResolver.
func (c *Client) Resolve(ctx context.Context, id string) (*offline.RemoteBook, error) {
	book, err := c.GetBook(ctx, id)
	if err != nil {
		return nil, err
	}

	switch strings.ToLower(book.Status) {
	case "pending", "rejected":
		return nil, fmt.Errorf("%w: %s is %s", ErrBookNotReadable, book.ID, book.Status)
	}
	if book.PDFURL == "" {
		return nil, fmt.Errorf("%w: %s", ErrBookNotReadable, book.ID)
	}

	return &offline.RemoteBook{
		Book: offline.BookRef{
			ID:       book.ID,
			Title:    book.Title,
			Author:   book.Author,
			Metadata: book.Raw,
		},
		PDFURL:   book.PDFURL,
		CoverURL: book.CoverURL,
	}, nil
}

func (c *Client) convertToBook(raw map[string]any) *Book {
	book := &Book{
		ID:     stringField(raw, "id", "_id"),
		Title:  stringField(raw, "title"),
		Author: stringField(raw, "author"),
		Status: stringField(raw, "status"),
		Raw:    raw,
	}
	book.CoverURL = c.absolute(stringField(raw, "cover", "coverUrl", "cover_url"))
	book.PDFURL = c.absolute(stringField(raw, "pdfUrl", "pdf_url", "pdfFile"))
	return book
}

// absolute resolves backend-relative paths such as "/uploads/42.pdf".
func (c *Client) absolute(ref string) string {
	if ref == "" {
		return ""
	}
	u, err := url.Parse(ref)
	if err != nil {
		return ""
	}
	if u.IsAbs() {
		return u.String()
	}
	return c.baseURL.ResolveReference(u).String()
}

func stringField(raw map[string]any, keys ...string) string {
	for _, key := range keys {
		switch v := raw[key].(type) {
		case string:
			if s := strings.TrimSpace(v); s != "" {
				return s
			}
		case json.Number:
			return v.String()
		}
	}
	return ""
}
