package results

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/raushankrgupta/fitly-comfy-tryon/models"
	"go.uber.org/zap"
)

var (
	ErrNotReady       = errors.New("result is still processing")
	ErrDownloadFailed = errors.New("download failed")
)

// Image is an open result image stream.
type Image struct {
	Body        io.ReadCloser
	ContentType string
	FileName    string // display name plus extension
}

// Downloader retrieves result images by URL.
type Downloader struct {
	HTTP   *http.Client
	logger *zap.Logger
}

func NewDownloader(client *http.Client, logger *zap.Logger) *Downloader {
	if client == nil {
		client = http.DefaultClient
	}
	return &Downloader{HTTP: client, logger: logger}
}

// Open starts fetching the image of a completed entry. The caller closes Body.
func (d *Downloader) Open(ctx context.Context, e models.ResultEntry) (*Image, error) {
	if e.Status != models.ResultCompleted || e.ImageURL == "" {
		return nil, fmt.Errorf("%w: %s", ErrNotReady, e.ID)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, e.ImageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDownloadFailed, err)
	}
	res, err := d.HTTP.Do(req)
	if err != nil {
		d.logger.Warn("Result download failed", zap.String("result_id", e.ID), zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrDownloadFailed, err)
	}
	if res.StatusCode != http.StatusOK {
		res.Body.Close()
		d.logger.Warn("Result download failed", zap.String("result_id", e.ID), zap.Int("status", res.StatusCode))
		return nil, fmt.Errorf("%w: bad status: %s", ErrDownloadFailed, res.Status)
	}

	contentType := res.Header.Get("Content-Type")
	return &Image{
		Body:        res.Body,
		ContentType: contentType,
		FileName:    e.FileName + extension(e.ImageURL, contentType),
	}, nil
}

// SaveToDir downloads the entry into dir and returns the written path.
func (d *Downloader) SaveToDir(ctx context.Context, e models.ResultEntry, dir string) (string, error) {
	img, err := d.Open(ctx, e)
	if err != nil {
		return "", err
	}
	defer img.Body.Close()

	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create directory: %v", err)
	}
	dst := filepath.Join(dir, img.FileName)
	f, err := os.Create(dst)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(f, img.Body); err != nil {
		f.Close()
		os.Remove(dst)
		return "", fmt.Errorf("%w: %v", ErrDownloadFailed, err)
	}
	return dst, f.Close()
}

// extension prefers the engine's file name (?filename=out.png) over the content type.
func extension(rawURL, contentType string) string {
	if u, err := url.Parse(rawURL); err == nil {
		name := u.Query().Get("filename")
		if name == "" {
			name = path.Base(u.Path)
		}
		if ext := path.Ext(name); ext != "" && len(ext) <= 5 {
			return strings.ToLower(ext)
		}
	}
	switch strings.SplitN(contentType, ";", 2)[0] {
	case "image/png":
		return ".png"
	case "image/jpeg":
		return ".jpg"
	case "image/webp":
		return ".webp"
	}
	return ""
}
