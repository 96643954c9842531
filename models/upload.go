package models

import "fmt"

// Category tags an upload entry with the slot it fills in a try-on.
type Category string

const (
	CategoryModel Category = "model"
	CategoryUpper Category = "upper"
	CategoryLower Category = "lower"
	CategoryDress Category = "dress"
)

// Categories lists every category in display order.
var Categories = []Category{CategoryModel, CategoryUpper, CategoryLower, CategoryDress}

// GarmentCategories are mutually exclusive: only one garment is tried on at a time.
var GarmentCategories = []Category{CategoryUpper, CategoryLower, CategoryDress}

// ParseCategory validates a raw category name.
func ParseCategory(raw string) (Category, error) {
	c := Category(raw)
	switch c {
	case CategoryModel, CategoryUpper, CategoryLower, CategoryDress:
		return c, nil
	}
	return "", fmt.Errorf("unknown category %q", raw)
}

// IsGarment reports whether c is one of upper, lower or dress.
func (c Category) IsGarment() bool {
	return c == CategoryUpper || c == CategoryLower || c == CategoryDress
}

// ImageFile is an image chosen by the user, held in memory until submission.
type ImageFile struct {
	Name        string `json:"name"`
	ContentType string `json:"content_type"`
	Data        []byte `json:"-"`
}

// Size returns the payload length in bytes.
func (f *ImageFile) Size() int {
	if f == nil {
		return 0
	}
	return len(f.Data)
}

// UploadEntry is one picker slot in a category.
type UploadEntry struct {
	ID       string     `json:"id"`
	File     *ImageFile `json:"file,omitempty"`
	Selected bool       `json:"selected"`
	Category Category   `json:"type"`
}

// HasFile reports whether a file has been attached.
func (e UploadEntry) HasFile() bool {
	return e.File != nil && len(e.File.Data) > 0
}
