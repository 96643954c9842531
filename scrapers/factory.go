package scrapers

import (
	"context"
	"errors"
	"fmt"

	"github.com/raushankrgupta/fitly-comfy-tryon/models"
	"github.com/raushankrgupta/fitly-comfy-tryon/scrapers/base"
	"github.com/raushankrgupta/fitly-comfy-tryon/scrapers/generic"
	"github.com/raushankrgupta/fitly-comfy-tryon/scrapers/myntra"
	"github.com/raushankrgupta/fitly-comfy-tryon/utils"
	"go.uber.org/zap"
)

var (
	ErrNoScraper  = errors.New("no scraper found for url")
	ErrNoImages   = errors.New("no product images found")
	ErrImageIndex = errors.New("image index out of range")
)

// Importer turns a product page URL into a garment picture ready for the registry.
type Importer struct {
	base     *base.BaseScraper
	scrapers []Scraper
	logger   *zap.Logger
}

// NewImporter registers the site scrapers in priority order; the generic scraper
// is always last.
func NewImporter(logger *zap.Logger, headless bool) *Importer {
	b := base.NewBaseScraper(logger, headless)
	return &Importer{
		base: b,
		scrapers: []Scraper{
			myntra.NewMyntraScraper(b),
			generic.NewGenericScraper(b),
		},
		logger: logger,
	}
}

// GetScraper returns the appropriate scraper and the resolved URL
func (im *Importer) GetScraper(ctx context.Context, url string) (Scraper, string, error) {
	// Resolve shortened URLs (e.g., myntr.it, bit.ly)
	resolvedURL, err := utils.ResolveShortenedURL(ctx, im.base.Client, url)
	if err != nil {
		return nil, url, fmt.Errorf("error resolving url: %w", err)
	}

	for _, s := range im.scrapers {
		if s.CanScrape(resolvedURL) {
			return s, resolvedURL, nil
		}
	}
	return nil, resolvedURL, fmt.Errorf("%w: %s", ErrNoScraper, resolvedURL)
}

// Import scrapes the product page and downloads its index-th picture.
func (im *Importer) Import(ctx context.Context, url string, index int) (*models.ImageFile, *models.Product, error) {
	scraper, resolved, err := im.GetScraper(ctx, url)
	if err != nil {
		return nil, nil, err
	}

	product, err := scraper.ScrapeProduct(ctx, resolved)
	if err != nil {
		return nil, nil, err
	}
	if len(product.Images) == 0 {
		return nil, product, fmt.Errorf("%w at %s", ErrNoImages, resolved)
	}
	if index < 0 || index >= len(product.Images) {
		return nil, product, fmt.Errorf("%w: %d of %d", ErrImageIndex, index, len(product.Images))
	}

	file, err := utils.FetchImage(ctx, im.base.Client, product.Images[index])
	if err != nil {
		return nil, product, fmt.Errorf("failed to download product image: %w", err)
	}
	im.logger.Info("Imported garment picture",
		zap.String("url", resolved),
		zap.String("image", product.Images[index]),
		zap.Int("bytes", file.Size()),
	)
	return file, product, nil
}
