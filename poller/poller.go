// Package poller follows a queued prompt until the engine reports a terminal state.
package poller

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/raushankrgupta/fitly-comfy-tryon/comfy"
	"github.com/raushankrgupta/fitly-comfy-tryon/config"
	"github.com/raushankrgupta/fitly-comfy-tryon/models"
	"github.com/raushankrgupta/fitly-comfy-tryon/workflow"
	"go.uber.org/zap"
)

var ErrPollExhausted = errors.New("status polling failed after retries")

// JobError is a failure reported by the engine itself. It is never retried.
type JobError struct {
	PromptID string
	Message  string
}

func (e *JobError) Error() string {
	return fmt.Sprintf("prompt %s failed: %s", e.PromptID, e.Message)
}

// Engine is the part of the ComfyUI client the poller needs.
type Engine interface {
	History(ctx context.Context, promptID string) (*comfy.HistoryEntry, error)
	ViewURL(img comfy.OutputImage) string
}

// Observer receives progress while a prompt is still running.
type Observer func(models.ProcessingStatus)

// Outcome describes a completed prompt.
type Outcome struct {
	PromptID string
	Image    comfy.OutputImage
	ImageURL string
	Queries  int
}

type Poller struct {
	engine     Engine
	clock      Clock
	interval   time.Duration
	retryDelay time.Duration
	maxRetries int
	outputNode string
	logger     *zap.Logger
}

type Option func(*Poller)

// WithClock replaces the wall clock, mainly for tests.
func WithClock(c Clock) Option {
	return func(p *Poller) { p.clock = c }
}

func New(engine Engine, s config.Settings, logger *zap.Logger, opts ...Option) *Poller {
	p := &Poller{
		engine:     engine,
		clock:      RealClock{},
		interval:   s.PollInterval,
		retryDelay: s.RetryDelay,
		maxRetries: s.MaxRetries,
		outputNode: workflow.NodeOutput,
		logger:     logger,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Wait queries the prompt's history until it completes or fails. Queries run strictly
// one after another. A failing query is retried after the retry delay. The job gets
// maxRetries retries in total, so the next failure ends the wait with ErrPollExhausted
// even when successful queries came in between. There is no overall deadline besides ctx.
func (p *Poller) Wait(ctx context.Context, promptID string, observe Observer) (*Outcome, error) {
	log := p.logger.With(zap.String("prompt_id", promptID))
	failures := 0
	for queries := 1; ; queries++ {
		out, running, err := p.query(ctx, promptID)
		if err != nil {
			var jobErr *JobError
			if errors.As(err, &jobErr) {
				log.Warn("Prompt failed on engine", zap.String("message", jobErr.Message))
				return nil, err
			}
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			if failures >= p.maxRetries {
				log.Error("Giving up on prompt status", zap.Int("failures", failures+1), zap.Error(err))
				return nil, fmt.Errorf("%w: %v", ErrPollExhausted, err)
			}
			failures++
			log.Warn("Status query failed, retrying",
				zap.Int("retry", failures),
				zap.Int("max_retries", p.maxRetries),
				zap.Error(err),
			)
			if err := p.sleep(ctx, p.retryDelay); err != nil {
				return nil, err
			}
			continue
		}

		if out != nil {
			out.Queries = queries
			log.Info("Prompt completed", zap.String("image_url", out.ImageURL), zap.Int("queries", queries))
			return out, nil
		}
		if observe != nil {
			observe(running)
		}
		if err := p.sleep(ctx, p.interval); err != nil {
			return nil, err
		}
	}
}

// query returns the outcome when done, or the running status when not.
func (p *Poller) query(ctx context.Context, promptID string) (*Outcome, models.ProcessingStatus, error) {
	running := models.ProcessingStatus{Status: models.StateProcessing}

	entry, err := p.engine.History(ctx, promptID)
	if err != nil {
		return nil, running, err
	}
	if msg := entry.Failure(); msg != "" {
		return nil, running, &JobError{PromptID: promptID, Message: msg}
	}
	if entry.Done() {
		// History can briefly report completion before outputs are recorded; that
		// counts as a failed query and is retried.
		img, err := entry.FirstImage(p.outputNode)
		if err != nil {
			return nil, running, err
		}
		return &Outcome{PromptID: promptID, Image: img, ImageURL: p.engine.ViewURL(img)}, running, nil
	}
	if ex := entry.Status.Executing; ex != nil {
		running.CurrentStep = ex.CurrentStep
		running.TotalSteps = ex.TotalSteps
	}
	return nil, running, nil
}

func (p *Poller) sleep(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-p.clock.After(d):
		return nil
	}
}
