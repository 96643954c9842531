// Package base holds the page fetching strategies shared by all scrapers.
package base

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"
)

var ErrFetchFailed = errors.New("all fetch strategies failed")

// BaseScraper handles common scraping logic
type BaseScraper struct {
	Client *http.Client
	Logger *zap.Logger
	// Headless enables the chromedp fallback when plain HTTP yields a blocked or
	// script-only page.
	Headless bool
}

// NewBaseScraper creates a new BaseScraper instance
func NewBaseScraper(logger *zap.Logger, headless bool) *BaseScraper {
	return &BaseScraper{
		Client: &http.Client{
			Timeout: 30 * time.Second,
			Transport: &http.Transport{
				ForceAttemptHTTP2:     false,
				TLSNextProto:          make(map[string]func(string, *tls.Conn) http.RoundTripper),
				MaxIdleConns:          100,
				IdleConnTimeout:       90 * time.Second,
				TLSHandshakeTimeout:   10 * time.Second,
				ExpectContinueTimeout: 1 * time.Second,
			},
		},
		Logger:   logger,
		Headless: headless,
	}
}

// FetchDocument fetches the URL over HTTP and falls back to headless Chrome when the
// validator rejects the result.
func (b *BaseScraper) FetchDocument(ctx context.Context, url string, validator func(*goquery.Document) bool) (*goquery.Document, error) {
	log := b.Logger.With(zap.String("url", url))

	doc, err := b.FetchDocumentHTTP(ctx, url)
	switch {
	case err != nil:
		log.Debug("HTTP fetch failed", zap.Error(err))
	case validator(doc):
		return doc, nil
	default:
		log.Debug("HTTP fetch yielded unusable content")
	}

	if !b.Headless {
		if err == nil {
			err = errors.New("page content rejected")
		}
		return nil, fmt.Errorf("%w for %s: %w", ErrFetchFailed, url, err)
	}

	doc, err = b.FetchDocumentChromeDP(ctx, url)
	if err == nil && validator(doc) {
		return doc, nil
	}
	if err == nil {
		err = errors.New("page content rejected")
	}
	log.Debug("ChromeDP fetch failed", zap.Error(err))
	return nil, fmt.Errorf("%w for %s: %w", ErrFetchFailed, url, err)
}

// IsValidDocument rejects bot walls and near-empty pages.
func IsValidDocument(doc *goquery.Document) bool {
	title := strings.ToLower(strings.TrimSpace(doc.Find("title").Text()))
	if strings.Contains(title, "robot check") ||
		strings.Contains(title, "captcha") ||
		strings.Contains(title, "access denied") {
		return false
	}
	return doc.Find("body").Length() > 0
}

// FetchDocumentHTTP fetches the URL and returns a GoQuery document via standard HTTP
func (b *BaseScraper) FetchDocumentHTTP(ctx context.Context, url string) (*goquery.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	// Common headers to mimic a real browser
	req.Header.Set("User-Agent", "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36")
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,image/apng,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	req.Header.Set("Upgrade-Insecure-Requests", "1")
	req.Header.Set("Sec-Fetch-Dest", "document")
	req.Header.Set("Sec-Fetch-Mode", "navigate")

	res, err := b.Client.Do(req)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status code error: %d %s", res.StatusCode, res.Status)
	}

	return goquery.NewDocumentFromReader(res.Body)
}

// MetaImages collects product pictures advertised in the page head: Open Graph,
// Twitter cards and image_src links. Relative URLs are resolved against pageURL.
func MetaImages(doc *goquery.Document, pageURL string) []string {
	var images []string
	add := func(_ int, s *goquery.Selection) {
		for _, attr := range []string{"content", "href"} {
			if v, ok := s.Attr(attr); ok && strings.TrimSpace(v) != "" {
				images = append(images, strings.TrimSpace(v))
				return
			}
		}
	}
	doc.Find(`meta[property="og:image"], meta[property="og:image:secure_url"]`).Each(add)
	doc.Find(`meta[name="twitter:image"], meta[property="twitter:image"]`).Each(add)
	doc.Find(`link[rel="image_src"]`).Each(add)
	return Absolutize(pageURL, Dedupe(images))
}

// Dedupe drops repeated and empty values, keeping first-seen order.
func Dedupe(values []string) []string {
	seen := make(map[string]bool, len(values))
	var out []string
	for _, v := range values {
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	return out
}

// Absolutize resolves refs against base. Unparsable refs are dropped.
func Absolutize(base string, refs []string) []string {
	b, err := url.Parse(base)
	if err != nil {
		return refs
	}
	var out []string
	for _, ref := range refs {
		u, err := b.Parse(ref)
		if err != nil {
			continue
		}
		out = append(out, u.String())
	}
	return out
}
