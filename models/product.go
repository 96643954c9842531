package models

// Product is the subset of a shop product page needed to import a garment picture.
type Product struct {
	URL    string   `json:"url"`
	Title  string   `json:"title"`
	Images []string `json:"image_paths"`
}
