package utils

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"path"
	"strings"

	"github.com/raushankrgupta/fitly-comfy-tryon/models"
)

// MaxImageBytes bounds every image fetched from a remote URL.
const MaxImageBytes = 20 << 20

// FetchImage downloads an image and validates it as an upload.
func FetchImage(ctx context.Context, client *http.Client, url string) (*models.ImageFile, error) {
	resp, err := send(ctx, client, http.MethodGet, url)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("bad status fetching %s: %s", url, resp.Status)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, MaxImageBytes+1))
	if err != nil {
		return nil, err
	}
	if len(data) > MaxImageBytes {
		return nil, fmt.Errorf("%w: larger than %d bytes", ErrInvalidImage, MaxImageBytes)
	}

	return NewImageFile(fileNameFromURL(url), data)
}

func fileNameFromURL(url string) string {
	name := path.Base(url)
	if i := strings.IndexAny(name, "?#"); i >= 0 {
		name = name[:i]
	}
	if name == "" || name == "." || name == "/" || len(name) > 255 {
		return ""
	}
	return name
}
