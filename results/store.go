// Package results keeps the ordered list of try-on results shown to the user.
package results

import (
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/raushankrgupta/fitly-comfy-tryon/models"
)

var ErrNotFound = errors.New("result not found")

// Store is an append-ordered list of results. Removal keeps the order of the rest.
type Store struct {
	mu      sync.RWMutex
	entries []models.ResultEntry
	now     func() time.Time
}

func NewStore() *Store {
	return &Store{now: time.Now}
}

// Begin appends a processing entry for a submitted job.
func (s *Store) Begin(promptID string, category models.Category) models.ResultEntry {
	now := s.now()
	e := models.ResultEntry{
		ID:        uuid.NewString(),
		Status:    models.ResultProcessing,
		FileName:  DisplayName(category, now),
		PromptID:  promptID,
		Category:  category,
		CreatedAt: now,
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(slices.Clip(s.entries), e)
	return e
}

// Complete moves a processing entry to completed. Completed entries never change again.
func (s *Store) Complete(id, imageURL string) (models.ResultEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.index(id)
	if i < 0 {
		return models.ResultEntry{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if s.entries[i].Status == models.ResultCompleted {
		return s.entries[i], nil
	}
	next := slices.Clone(s.entries)
	next[i].Status = models.ResultCompleted
	next[i].ImageURL = imageURL
	s.entries = next
	return next[i], nil
}

// Remove deletes one entry.
func (s *Store) Remove(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.index(id)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	s.entries = slices.Delete(slices.Clone(s.entries), i, i+1)
	return nil
}

func (s *Store) Get(id string) (models.ResultEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	i := s.index(id)
	if i < 0 {
		return models.ResultEntry{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return s.entries[i], nil
}

// List returns a copy of every entry in insertion order.
func (s *Store) List() []models.ResultEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.entries)
}

func (s *Store) index(id string) int {
	return slices.IndexFunc(s.entries, func(e models.ResultEntry) bool { return e.ID == id })
}

// DisplayName is the file name a result is saved under.
func DisplayName(category models.Category, at time.Time) string {
	return fmt.Sprintf("Result_%s_%d", category, at.UnixMilli())
}
