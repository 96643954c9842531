package utils

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/raushankrgupta/fitly-comfy-tryon/models"
)

var ErrInvalidImage = errors.New("file is not a supported image")

var allowedImageTypes = map[string]imaging.Format{
	"image/png":  imaging.PNG,
	"image/jpeg": imaging.JPEG,
	"image/gif":  imaging.GIF,
	"image/bmp":  imaging.BMP,
	"image/webp": -1, // accepted as-is, imaging cannot encode it
}

// DetectImageType sniffs the content type and rejects anything that is not an image
// the engine can load.
func DetectImageType(data []byte) (string, error) {
	ct := http.DetectContentType(data)
	if _, ok := allowedImageTypes[ct]; !ok {
		return "", fmt.Errorf("%w: %s", ErrInvalidImage, ct)
	}
	return ct, nil
}

// NewImageFile validates raw bytes and wraps them as an upload.
func NewImageFile(name string, data []byte) (*models.ImageFile, error) {
	ct, err := DetectImageType(data)
	if err != nil {
		return nil, err
	}
	if name == "" {
		name = "image" + extensionFor(ct)
	}
	return &models.ImageFile{Name: filepath.Base(name), ContentType: ct, Data: data}, nil
}

// ImageNormalizer returns a function that shrinks images larger than maxDim on
// either side, keeping aspect ratio and orientation. maxDim <= 0 disables resizing.
func ImageNormalizer(maxDim int) func(*models.ImageFile) (*models.ImageFile, error) {
	return func(f *models.ImageFile) (*models.ImageFile, error) {
		return NormalizeImage(f, maxDim)
	}
}

// NormalizeImage is the single-call form of ImageNormalizer.
func NormalizeImage(f *models.ImageFile, maxDim int) (*models.ImageFile, error) {
	if f == nil || len(f.Data) == 0 {
		return nil, ErrInvalidImage
	}
	cfg, _, err := image.DecodeConfig(bytes.NewReader(f.Data))
	if err != nil {
		ct, detectErr := DetectImageType(f.Data)
		if detectErr == nil && allowedImageTypes[ct] == -1 {
			return f, nil
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}
	if maxDim <= 0 || (cfg.Width <= maxDim && cfg.Height <= maxDim) {
		return f, nil
	}

	format, ok := allowedImageTypes[f.ContentType]
	if !ok || format < 0 {
		format = imaging.PNG
	}
	src, err := imaging.Decode(bytes.NewReader(f.Data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}
	dst := imaging.Fit(src, maxDim, maxDim, imaging.Lanczos)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, dst, format, imaging.JPEGQuality(92)); err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}
	ct := contentTypeFor(format)
	return &models.ImageFile{
		Name:        strings.TrimSuffix(f.Name, filepath.Ext(f.Name)) + extensionFor(ct),
		ContentType: ct,
		Data:        buf.Bytes(),
	}, nil
}

func contentTypeFor(f imaging.Format) string {
	for ct, format := range allowedImageTypes {
		if format == f {
			return ct
		}
	}
	return "image/png"
}

func extensionFor(ct string) string {
	switch ct {
	case "image/jpeg":
		return ".jpg"
	case "image/gif":
		return ".gif"
	case "image/bmp":
		return ".bmp"
	case "image/webp":
		return ".webp"
	}
	return ".png"
}
