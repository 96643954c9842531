package gallery

import (
	"context"

	"github.com/raushankrgupta/fitly-comfy-tryon/models"
)

const (
	DefaultPageSize = 10
	MaxPageSize     = 100
)

// GalleryResponse represents the response structure for the gallery API
type GalleryResponse struct {
	Images      []models.TryOn `json:"images"`
	Total       int64          `json:"total"`
	CurrentPage int            `json:"current_page"`
	TotalPages  int            `json:"total_pages"`
}

// Presigner turns a stored image reference into a link the client can fetch.
type Presigner func(ctx context.Context, ref string) string

// List fetches one page of the user's gallery. Out-of-range page and limit values
// fall back to the first page and the default size.
func List(ctx context.Context, store Store, presign Presigner, userID string, page, limit int) (*GalleryResponse, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = DefaultPageSize
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}

	tryOns, total, err := store.List(ctx, userID, page, limit)
	if err != nil {
		return nil, err
	}

	if presign != nil {
		for i := range tryOns {
			tryOns[i].GeneratedImageURL = presign(ctx, tryOns[i].GeneratedImageURL)
		}
	}
	// Ensure empty slice is returned as [] instead of null
	if tryOns == nil {
		tryOns = []models.TryOn{}
	}

	totalPages := 0
	if total > 0 {
		totalPages = int((total + int64(limit) - 1) / int64(limit))
	}
	return &GalleryResponse{
		Images:      tryOns,
		Total:       total,
		CurrentPage: page,
		TotalPages:  totalPages,
	}, nil
}
