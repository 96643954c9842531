// Package generic scrapes any product page that advertises its pictures through
// Open Graph tags or schema.org Product data.
package generic

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/raushankrgupta/fitly-comfy-tryon/models"
	"github.com/raushankrgupta/fitly-comfy-tryon/scrapers/base"
)

type GenericScraper struct {
	*base.BaseScraper
}

func NewGenericScraper(b *base.BaseScraper) *GenericScraper {
	return &GenericScraper{BaseScraper: b}
}

func (s *GenericScraper) CanScrape(url string) bool {
	return strings.HasPrefix(url, "http://") || strings.HasPrefix(url, "https://")
}

func (s *GenericScraper) ScrapeProduct(ctx context.Context, url string) (*models.Product, error) {
	doc, err := s.FetchDocument(ctx, url, func(doc *goquery.Document) bool {
		return base.IsValidDocument(doc) && (len(base.MetaImages(doc, url)) > 0 || len(ldImages(doc)) > 0)
	})
	if err != nil {
		return nil, err
	}

	product := &models.Product{URL: url}
	product.Title, _ = doc.Find(`meta[property="og:title"]`).Attr("content")
	if product.Title == "" {
		product.Title = strings.TrimSpace(doc.Find("title").First().Text())
	}

	images := base.MetaImages(doc, url)
	images = append(images, base.Absolutize(url, ldImages(doc))...)
	product.Images = base.Dedupe(images)
	return product, nil
}

// ldImages reads "image" of schema.org Product objects in JSON-LD blocks.
func ldImages(doc *goquery.Document) []string {
	var images []string
	doc.Find(`script[type="application/ld+json"]`).Each(func(_ int, sel *goquery.Selection) {
		var raw any
		if err := json.Unmarshal([]byte(sel.Text()), &raw); err != nil {
			return
		}
		images = append(images, productImages(raw)...)
	})
	return images
}

func productImages(v any) []string {
	switch t := v.(type) {
	case []any:
		var out []string
		for _, item := range t {
			out = append(out, productImages(item)...)
		}
		return out
	case map[string]any:
		if graph, ok := t["@graph"]; ok {
			return productImages(graph)
		}
		if typ, _ := t["@type"].(string); typ != "Product" {
			return nil
		}
		return imageValues(t["image"])
	}
	return nil
}

func imageValues(v any) []string {
	switch t := v.(type) {
	case string:
		return []string{t}
	case []any:
		var out []string
		for _, item := range t {
			out = append(out, imageValues(item)...)
		}
		return out
	case map[string]any:
		if u, ok := t["url"].(string); ok {
			return []string{u}
		}
	}
	return nil
}
