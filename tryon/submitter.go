// Package tryon turns the user's current selections into a ComfyUI prompt and follows
// it to a result.
package tryon

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/raushankrgupta/fitly-comfy-tryon/comfy"
	"github.com/raushankrgupta/fitly-comfy-tryon/models"
	"github.com/raushankrgupta/fitly-comfy-tryon/registry"
	"github.com/raushankrgupta/fitly-comfy-tryon/workflow"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var (
	ErrNoModelSelected   = errors.New("please select a model image")
	ErrNoGarmentSelected = errors.New("please select a garment")
	ErrSubmitFailed      = errors.New("try-on submission failed")
)

// Engine is the part of the ComfyUI client used to start a job.
type Engine interface {
	UploadImage(ctx context.Context, file *models.ImageFile) (*comfy.UploadResponse, error)
	QueuePrompt(ctx context.Context, graph any, clientID string) (*comfy.PromptResponse, error)
}

// Normalizer may rewrite an image before upload, e.g. to bound its size.
type Normalizer func(*models.ImageFile) (*models.ImageFile, error)

// Selection is the validated pair of images a job is built from.
type Selection struct {
	Model    models.UploadEntry
	Garment  models.UploadEntry
	Category models.Category
}

// Select picks the selected model and garment from a snapshot. Garment categories are
// checked in upper, lower, dress order. Entries without a file do not count.
func Select(snap registry.Snapshot) (Selection, error) {
	var sel Selection
	found := false
	for _, c := range models.GarmentCategories {
		if e, ok := snap.Selected(c); ok && e.HasFile() {
			sel.Garment, sel.Category, found = e, c, true
			break
		}
	}
	if !found {
		return Selection{}, ErrNoGarmentSelected
	}
	m, ok := snap.Selected(models.CategoryModel)
	if !ok || !m.HasFile() {
		return Selection{}, ErrNoModelSelected
	}
	sel.Model = m
	return sel, nil
}

// Submission is a prompt accepted by the engine.
type Submission struct {
	PromptID     string
	ClientID     string
	Category     models.Category
	ModelImage   string // server-side names
	GarmentImage string
}

type Submitter struct {
	engine    Engine
	template  workflow.Graph
	normalize Normalizer
	logger    *zap.Logger
}

func NewSubmitter(engine Engine, template workflow.Graph, normalize Normalizer, logger *zap.Logger) *Submitter {
	return &Submitter{engine: engine, template: template, normalize: normalize, logger: logger}
}

// Submit validates the selection, uploads both images concurrently, patches the
// template and queues it. Validation errors are returned before any network call;
// every later failure is wrapped in ErrSubmitFailed.
func (s *Submitter) Submit(ctx context.Context, snap registry.Snapshot) (*Submission, error) {
	sel, err := Select(snap)
	if err != nil {
		return nil, err
	}
	modelFile, garmentFile := sel.Model.File, sel.Garment.File
	if s.normalize != nil {
		if modelFile, err = s.normalize(modelFile); err != nil {
			return nil, fmt.Errorf("model image: %w", err)
		}
		if garmentFile, err = s.normalize(garmentFile); err != nil {
			return nil, fmt.Errorf("garment image: %w", err)
		}
	}

	var modelName, garmentName string
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		resp, err := s.engine.UploadImage(gctx, modelFile)
		if err != nil {
			return fmt.Errorf("upload model image: %w", err)
		}
		modelName = resp.Name
		return nil
	})
	g.Go(func() error {
		resp, err := s.engine.UploadImage(gctx, garmentFile)
		if err != nil {
			return fmt.Errorf("upload garment image: %w", err)
		}
		garmentName = resp.Name
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSubmitFailed, err)
	}

	graph, err := workflow.Build(s.template, modelName, garmentName, sel.Category)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSubmitFailed, err)
	}

	clientID := uuid.NewString()
	resp, err := s.engine.QueuePrompt(ctx, graph, clientID)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSubmitFailed, err)
	}

	s.logger.Info("Try-on queued",
		zap.String("prompt_id", resp.PromptID),
		zap.String("category", string(sel.Category)),
		zap.String("model_image", modelName),
		zap.String("garment_image", garmentName),
	)
	return &Submission{
		PromptID:     resp.PromptID,
		ClientID:     clientID,
		Category:     sel.Category,
		ModelImage:   modelName,
		GarmentImage: garmentName,
	}, nil
}
