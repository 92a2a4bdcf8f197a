package scraper

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/chromedp/chromedp"
	resty "gopkg.in/resty.v1"

	"github.com/yourorg/kharkivmetro/internal/cache"
)

// Fetcher returns the HTML of a page.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
}

const defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// ============================================================================
// HTTP
// ============================================================================

// HTTPFetcher downloads pages with a plain HTTP client. The schedule pages
// are static, so this is the default.
type HTTPFetcher struct {
	client *resty.Client
}

func NewHTTPFetcher(timeout time.Duration, userAgent string) *HTTPFetcher {
	if userAgent == "" {
		userAgent = defaultUserAgent
	}
	c := resty.New().
		SetTimeout(timeout).
		SetRetryCount(2).
		SetHeader("User-Agent", userAgent).
		SetHeader("Accept-Language", "uk,en;q=0.8")
	return &HTTPFetcher{client: c}
}

func (f *HTTPFetcher) Fetch(ctx context.Context, url string) (string, error) {
	resp, err := f.client.R().SetContext(ctx).Get(url)
	if err != nil {
		return "", fmt.Errorf("scraper: get %s: %w", url, err)
	}
	if resp.IsError() {
		return "", fmt.Errorf("scraper: get %s: status %d", url, resp.StatusCode())
	}
	return resp.String(), nil
}

// ============================================================================
// HEADLESS CHROME
// ============================================================================

// ChromeFetcher renders pages in headless Chrome. One browser is started per
// fetch.
type ChromeFetcher struct {
	Timeout   time.Duration
	UserAgent string
}

func (f *ChromeFetcher) Fetch(ctx context.Context, url string) (string, error) {
	ua := f.UserAgent
	if ua == "" {
		ua = defaultUserAgent
	}
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.UserAgent(ua),
	)

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	defer cancelAlloc()

	browserCtx, cancel := chromedp.NewContext(allocCtx)
	defer cancel()

	timeout := f.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	browserCtx, cancelTimeout := context.WithTimeout(browserCtx, timeout)
	defer cancelTimeout()

	var html string
	err := chromedp.Run(browserCtx,
		chromedp.Navigate(url),
		chromedp.WaitVisible(`body`, chromedp.ByQuery),
		chromedp.OuterHTML(`html`, &html, chromedp.ByQuery),
	)
	if err != nil {
		log.Printf("❌ [SCRAPER] Chrome failed on %s: %v", url, err)
		return "", fmt.Errorf("scraper: render %s: %w", url, err)
	}
	return html, nil
}

// ============================================================================
// PAGE CACHE
// ============================================================================

// CachedFetcher serves repeated URLs from the page LRU.
type CachedFetcher struct {
	next  Fetcher
	pages *cache.Cache[string]
}

func NewCachedFetcher(next Fetcher, pages *cache.Cache[string]) *CachedFetcher {
	return &CachedFetcher{next: next, pages: pages}
}

func (f *CachedFetcher) Fetch(ctx context.Context, url string) (string, error) {
	if html, ok := f.pages.Get(url); ok {
		return html, nil
	}
	html, err := f.next.Fetch(ctx, url)
	if err != nil {
		return "", err
	}
	f.pages.Set(url, html)
	return html, nil
}

// NewFetcher picks the implementation named by kind ("chrome" or "http").
func NewFetcher(kind string, timeout time.Duration, userAgent string) (Fetcher, error) {
	switch kind {
	case "", "http":
		return NewHTTPFetcher(timeout, userAgent), nil
	case "chrome":
		return &ChromeFetcher{Timeout: timeout, UserAgent: userAgent}, nil
	}
	return nil, fmt.Errorf("scraper: unknown fetcher %q", kind)
}
