// Package registry keeps the per-category image picker slots a try-on is assembled from.
package registry

import (
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/google/uuid"
	"github.com/raushankrgupta/fitly-comfy-tryon/models"
)

var (
	ErrUnknownCategory = errors.New("unknown category")
	ErrEntryNotFound   = errors.New("upload entry not found")
	ErrNoFileAttached  = errors.New("entry has no file attached")
)

// Registry holds one ordered entry list per category. Lists are never mutated in
// place: every change installs a fresh slice, so snapshots handed out stay valid.
type Registry struct {
	mu      sync.RWMutex
	entries map[models.Category][]models.UploadEntry
	newID   func() string
}

// New returns a registry with one blank entry per category.
func New() *Registry {
	r := &Registry{
		entries: make(map[models.Category][]models.UploadEntry, len(models.Categories)),
		newID:   uuid.NewString,
	}
	for _, c := range models.Categories {
		r.entries[c] = []models.UploadEntry{{ID: r.newID(), Category: c}}
	}
	return r
}

// Add appends a blank entry to category and returns it.
func (r *Registry) Add(c models.Category) (models.UploadEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	list, ok := r.entries[c]
	if !ok {
		return models.UploadEntry{}, fmt.Errorf("%w: %q", ErrUnknownCategory, c)
	}
	e := models.UploadEntry{ID: r.newID(), Category: c}
	r.entries[c] = append(slices.Clip(list), e)
	return e, nil
}

// Remove deletes the entry with id from category.
func (r *Registry) Remove(c models.Category, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	list, ok := r.entries[c]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownCategory, c)
	}
	i := indexOf(list, id)
	if i < 0 {
		return fmt.Errorf("%w: %s/%s", ErrEntryNotFound, c, id)
	}
	r.entries[c] = slices.Delete(slices.Clone(list), i, i+1)
	return nil
}

// AttachFile sets the entry's file. A newly chosen file is never auto-selected, so
// the entry's selection is cleared.
func (r *Registry) AttachFile(c models.Category, id string, file *models.ImageFile) (models.UploadEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	list, ok := r.entries[c]
	if !ok {
		return models.UploadEntry{}, fmt.Errorf("%w: %q", ErrUnknownCategory, c)
	}
	i := indexOf(list, id)
	if i < 0 {
		return models.UploadEntry{}, fmt.Errorf("%w: %s/%s", ErrEntryNotFound, c, id)
	}
	next := slices.Clone(list)
	next[i].File = file
	next[i].Selected = false
	r.entries[c] = next
	return next[i], nil
}

// Select makes id the only selected entry of its category. Selecting a garment also
// clears the other two garment categories, so at most one garment is chosen overall.
func (r *Registry) Select(c models.Category, id string) (models.UploadEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	list, ok := r.entries[c]
	if !ok {
		return models.UploadEntry{}, fmt.Errorf("%w: %q", ErrUnknownCategory, c)
	}
	i := indexOf(list, id)
	if i < 0 {
		return models.UploadEntry{}, fmt.Errorf("%w: %s/%s", ErrEntryNotFound, c, id)
	}
	if !list[i].HasFile() {
		return models.UploadEntry{}, fmt.Errorf("%w: %s/%s", ErrNoFileAttached, c, id)
	}

	r.entries[c] = withSelection(list, id)
	if c.IsGarment() {
		for _, sibling := range models.GarmentCategories {
			if sibling != c {
				r.entries[sibling] = withSelection(r.entries[sibling], "")
			}
		}
	}
	return r.entries[c][i], nil
}

// List returns a copy of the entries of one category.
func (r *Registry) List(c models.Category) ([]models.UploadEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	list, ok := r.entries[c]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownCategory, c)
	}
	return slices.Clone(list), nil
}

// Snapshot is an immutable view of every category.
type Snapshot map[models.Category][]models.UploadEntry

// Snapshot copies all categories.
func (r *Registry) Snapshot() Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()

	snap := make(Snapshot, len(r.entries))
	for c, list := range r.entries {
		snap[c] = slices.Clone(list)
	}
	return snap
}

// Selected returns the selected entry of a category, if any.
func (s Snapshot) Selected(c models.Category) (models.UploadEntry, bool) {
	for _, e := range s[c] {
		if e.Selected {
			return e, true
		}
	}
	return models.UploadEntry{}, false
}

func withSelection(list []models.UploadEntry, id string) []models.UploadEntry {
	next := slices.Clone(list)
	for i := range next {
		next[i].Selected = next[i].ID == id
	}
	return next
}

func indexOf(list []models.UploadEntry, id string) int {
	return slices.IndexFunc(list, func(e models.UploadEntry) bool { return e.ID == id })
}
