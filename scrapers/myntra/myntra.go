package myntra

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/raushankrgupta/fitly-comfy-tryon/models"
	"github.com/raushankrgupta/fitly-comfy-tryon/scrapers/base"
)

const stateMarker = "window.__myx ="

type MyntraScraper struct {
	*base.BaseScraper
}

func NewMyntraScraper(b *base.BaseScraper) *MyntraScraper {
	return &MyntraScraper{BaseScraper: b}
}

func (s *MyntraScraper) CanScrape(url string) bool {
	return strings.Contains(url, "myntra.com")
}

func (s *MyntraScraper) ScrapeProduct(ctx context.Context, url string) (*models.Product, error) {
	doc, err := s.FetchDocument(ctx, url, func(doc *goquery.Document) bool {
		return strings.Contains(doc.Text(), stateMarker) || doc.Find(".image-grid-image").Length() > 0
	})
	if err != nil {
		return nil, err
	}

	product := &models.Product{URL: url}
	if pd := pageState(doc); pd != nil {
		product.Title = getString(pd, "name")
		if product.Title == "" {
			product.Title = getString(pd, "title")
		}
		product.Images = albumImages(pd)
	}

	// Fall back to the rendered gallery when the embedded state is missing.
	if len(product.Images) == 0 {
		if product.Title == "" {
			product.Title = strings.TrimSpace(doc.Find(".pdp-title").Text())
		}
		doc.Find(".image-grid-image").Each(func(_ int, sel *goquery.Selection) {
			if u := backgroundURL(sel.AttrOr("style", "")); u != "" {
				product.Images = append(product.Images, u)
			}
		})
	}

	product.Images = base.Dedupe(base.Absolutize(url, product.Images))
	return product, nil
}

// pageState returns the pdpData object of the inline window.__myx script.
func pageState(doc *goquery.Document) map[string]interface{} {
	var pd map[string]interface{}
	doc.Find("script").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		text := sel.Text()
		i := strings.Index(text, stateMarker)
		if i < 0 {
			return true
		}
		raw := strings.TrimSuffix(strings.TrimSpace(text[i+len(stateMarker):]), ";")
		var state map[string]interface{}
		if err := json.Unmarshal([]byte(raw), &state); err != nil {
			return true
		}
		pd, _ = state["pdpData"].(map[string]interface{})
		return false
	})
	return pd
}

func albumImages(pd map[string]interface{}) []string {
	var images []string
	media, _ := pd["media"].(map[string]interface{})
	albums, _ := media["albums"].([]interface{})
	for _, album := range albums {
		albumMap, _ := album.(map[string]interface{})
		list, _ := albumMap["images"].([]interface{})
		for _, img := range list {
			if imgMap, ok := img.(map[string]interface{}); ok {
				if src := getString(imgMap, "src"); src != "" {
					// Myntra templates the size into the path.
					images = append(images, strings.NewReplacer("($height)", "1080", "($width)", "720", "($qualityPercentage)", "90").Replace(src))
				}
			}
		}
	}
	return images
}

// backgroundURL extracts the url("...") of an inline background-image style.
func backgroundURL(style string) string {
	start := strings.Index(style, "url(")
	if start < 0 {
		return ""
	}
	start += len("url(")
	end := strings.Index(style[start:], ")")
	if end < 0 {
		return ""
	}
	return strings.Trim(style[start:start+end], "\"'")
}

func getString(m map[string]interface{}, key string) string {
	if v, ok := m[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}
