// Package scrapers imports garment pictures from shop product pages.
package scrapers

import (
	"context"

	"github.com/raushankrgupta/fitly-comfy-tryon/models"
)

// Scraper defines the interface for all product scrapers
type Scraper interface {
	// CanScrape checks if the scraper can handle the given URL
	CanScrape(url string) bool
	// ScrapeProduct scrapes the product title and image URLs from the given URL
	ScrapeProduct(ctx context.Context, url string) (*models.Product, error)
}
