package tryon

import (
	"context"
	"errors"
	"sync"

	"github.com/raushankrgupta/fitly-comfy-tryon/models"
	"github.com/raushankrgupta/fitly-comfy-tryon/poller"
	"github.com/raushankrgupta/fitly-comfy-tryon/registry"
	"github.com/raushankrgupta/fitly-comfy-tryon/results"
	"go.uber.org/zap"
)

// CompletedJob is handed to hooks once a result is available.
type CompletedJob struct {
	UserID     string
	Result     models.ResultEntry
	Submission Submission
}

// Hook reacts to completed jobs (archiving, notifications). Hook errors are logged
// and never fail the job.
type Hook interface {
	OnCompleted(ctx context.Context, job CompletedJob) error
}

// Service wires registry → submitter → poller → result store. Every started job
// polls in its own goroutine and can be cancelled by result ID.
type Service struct {
	Registry *registry.Registry
	Results  *results.Store

	submitter *Submitter
	poller    *poller.Poller
	hooks     []Hook
	logger    *zap.Logger

	mu      sync.Mutex
	status  models.ProcessingStatus
	running map[string]context.CancelFunc
	wg      sync.WaitGroup
	ctx     context.Context
	stop    context.CancelFunc
}

func NewService(reg *registry.Registry, store *results.Store, submitter *Submitter, p *poller.Poller, logger *zap.Logger, hooks ...Hook) *Service {
	ctx, stop := context.WithCancel(context.Background())
	return &Service{
		Registry:  reg,
		Results:   store,
		submitter: submitter,
		poller:    p,
		hooks:     hooks,
		logger:    logger,
		status:    models.ProcessingStatus{Status: models.StateIdle},
		running:   make(map[string]context.CancelFunc),
		ctx:       ctx,
		stop:      stop,
	}
}

// Start submits the current selection and returns the processing result entry.
// Polling continues in the background after Start returns.
func (s *Service) Start(ctx context.Context, userID string) (models.ResultEntry, error) {
	sub, err := s.submit(ctx)
	if err != nil {
		return models.ResultEntry{}, err
	}
	// The entry becomes visible and cancellable under one lock, so a delete that
	// sees it can always stop the job.
	jobCtx, cancel := context.WithCancel(s.ctx)
	s.mu.Lock()
	entry := s.Results.Begin(sub.PromptID, sub.Category)
	s.running[entry.ID] = cancel
	s.mu.Unlock()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer s.forget(entry.ID)
		s.follow(jobCtx, userID, entry, sub)
	}()
	return entry, nil
}

// Run submits and blocks until the job reaches a terminal state.
func (s *Service) Run(ctx context.Context, userID string) (models.ResultEntry, error) {
	sub, err := s.submit(ctx)
	if err != nil {
		return models.ResultEntry{}, err
	}
	entry := s.Results.Begin(sub.PromptID, sub.Category)
	return s.follow(ctx, userID, entry, sub)
}

// Cancel stops polling for a running job. It reports whether the job was running.
func (s *Service) Cancel(resultID string) bool {
	s.mu.Lock()
	cancel, ok := s.running[resultID]
	s.mu.Unlock()
	if ok {
		cancel()
	}
	return ok
}

// Status returns the coarse progress of the most recent job.
func (s *Service) Status() models.ProcessingStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// Wait blocks until every background job has finished.
func (s *Service) Wait() {
	s.wg.Wait()
}

// Shutdown cancels all running jobs and waits for their goroutines, or for ctx.
func (s *Service) Shutdown(ctx context.Context) error {
	s.stop()
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Service) submit(ctx context.Context) (*Submission, error) {
	sub, err := s.submitter.Submit(ctx, s.Registry.Snapshot())
	if err != nil {
		if errors.Is(err, ErrSubmitFailed) {
			s.setStatus(models.ProcessingStatus{Status: models.StateError, Message: err.Error()})
		}
		return nil, err
	}
	s.setStatus(models.ProcessingStatus{Status: models.StateProcessing, Message: "queued " + sub.PromptID})
	return sub, nil
}

// follow polls one job and records its outcome. A failed job leaves no result entry.
func (s *Service) follow(ctx context.Context, userID string, entry models.ResultEntry, sub *Submission) (models.ResultEntry, error) {
	log := s.logger.With(zap.String("result_id", entry.ID), zap.String("prompt_id", sub.PromptID))

	out, err := s.poller.Wait(ctx, sub.PromptID, func(st models.ProcessingStatus) {
		s.setStatus(st)
	})
	if err != nil {
		if rmErr := s.Results.Remove(entry.ID); rmErr != nil && !errors.Is(rmErr, results.ErrNotFound) {
			log.Warn("Failed to drop result of failed job", zap.Error(rmErr))
		}
		if errors.Is(err, context.Canceled) {
			s.setStatus(models.ProcessingStatus{Status: models.StateIdle})
			log.Info("Try-on cancelled")
			return models.ResultEntry{}, err
		}
		s.setStatus(models.ProcessingStatus{Status: models.StateError, Message: err.Error()})
		log.Error("Try-on failed", zap.Error(err))
		return models.ResultEntry{}, err
	}

	done, err := s.Results.Complete(entry.ID, out.ImageURL)
	if err != nil {
		// The user deleted the entry while it was processing.
		log.Info("Result removed before completion", zap.Error(err))
		s.setStatus(models.ProcessingStatus{Status: models.StateCompleted})
		return models.ResultEntry{}, err
	}
	s.setStatus(models.ProcessingStatus{Status: models.StateCompleted, Message: done.FileName})

	job := CompletedJob{UserID: userID, Result: done, Submission: *sub}
	for _, h := range s.hooks {
		if err := h.OnCompleted(context.WithoutCancel(ctx), job); err != nil {
			log.Warn("Completion hook failed", zap.Error(err))
		}
	}
	return done, nil
}

func (s *Service) setStatus(st models.ProcessingStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status = st
}

func (s *Service) forget(id string) {
	s.mu.Lock()
	cancel, ok := s.running[id]
	delete(s.running, id)
	s.mu.Unlock()
	if ok {
		cancel()
	}
}
