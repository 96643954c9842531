package gallery

import (
	"context"
	"fmt"
	"io"
	"path"
	"time"

	"github.com/raushankrgupta/fitly-comfy-tryon/models"
	"github.com/raushankrgupta/fitly-comfy-tryon/results"
	"github.com/raushankrgupta/fitly-comfy-tryon/tryon"
	"go.uber.org/zap"
)

// Uploader copies a result image into object storage and returns its key.
type Uploader func(ctx context.Context, body io.Reader, key, contentType string) (string, error)

// Archive records every completed try-on. With an Uploader the image is copied out
// of the engine first, since ComfyUI output folders are not durable.
type Archive struct {
	store      Store
	downloader *results.Downloader
	upload     Uploader
	logger     *zap.Logger
	now        func() time.Time
}

// NewArchive builds the hook. upload may be nil to store engine URLs as-is.
func NewArchive(store Store, downloader *results.Downloader, upload Uploader, logger *zap.Logger) *Archive {
	return &Archive{store: store, downloader: downloader, upload: upload, logger: logger, now: time.Now}
}

func (a *Archive) OnCompleted(ctx context.Context, job tryon.CompletedJob) error {
	imageRef := job.Result.ImageURL
	if a.upload != nil {
		key, err := a.copyImage(ctx, job)
		if err != nil {
			// Keep the engine URL so the record is still useful.
			a.logger.Warn("Failed to copy result to object storage", zap.String("result_id", job.Result.ID), zap.Error(err))
		} else {
			imageRef = key
		}
	}

	record := &models.TryOn{
		UserID:            job.UserID,
		ResultID:          job.Result.ID,
		PromptID:          job.Result.PromptID,
		Category:          job.Result.Category,
		FileName:          job.Result.FileName,
		ModelImageName:    job.Submission.ModelImage,
		GarmentImageName:  job.Submission.GarmentImage,
		GeneratedImageURL: imageRef,
		Status:            string(models.ResultCompleted),
		CreatedAt:         a.now(),
	}
	if err := a.store.Insert(ctx, record); err != nil {
		return err
	}
	a.logger.Info("Try-on archived", zap.String("result_id", job.Result.ID), zap.String("image", imageRef))
	return nil
}

func (a *Archive) copyImage(ctx context.Context, job tryon.CompletedJob) (string, error) {
	img, err := a.downloader.Open(ctx, job.Result)
	if err != nil {
		return "", err
	}
	defer img.Body.Close()

	owner := job.UserID
	if owner == "" {
		owner = "anonymous"
	}
	key := path.Join("tryons", owner, img.FileName)
	contentType := img.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	if _, err := a.upload(ctx, img.Body, key, contentType); err != nil {
		return "", fmt.Errorf("upload %s: %w", key, err)
	}
	return key, nil
}
