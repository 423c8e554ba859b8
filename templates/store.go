package templates

import (
	"fmt"
	"sort"
	"sync"
	"time"
)

// TemplateStore manages template persistence and retrieval.
type TemplateStore interface {
	// Add a new template
	Add(t *Template) error

	// Get a template by ID
	Get(id string) (*Template, error)

	// List all templates, active or not
	List() ([]*Template, error)

	// List all active templates
	ListActive() ([]*Template, error)

	// Update an existing template
	Update(t *Template) error

	// Delete a template
	Delete(id string) error
}

// InMemoryTemplateStore implements TemplateStore using an in-memory map.
// Templates are copied on the way in and out.
type InMemoryTemplateStore struct {
	templates map[string]*Template
	mu        sync.RWMutex
}

// NewInMemoryTemplateStore creates a new in-memory template store
func NewInMemoryTemplateStore() *InMemoryTemplateStore {
	return &InMemoryTemplateStore{
		templates: make(map[string]*Template),
	}
}

// Add adds a new template to the store and sets its timestamps.
// Section and slug must be unique together.
func (s *InMemoryTemplateStore) Add(t *Template) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.templates[t.ID]; exists {
		return fmt.Errorf("template %s: %w", t.ID, ErrAlreadyExists)
	}
	for _, other := range s.templates {
		if other.Section == t.Section && other.Slug == t.Slug {
			return fmt.Errorf("template %s/%s: %w", t.Section, t.Slug, ErrAlreadyExists)
		}
	}

	now := time.Now()
	t.CreatedAt = now
	t.UpdatedAt = now
	s.templates[t.ID] = t.Clone()
	return nil
}

// Get retrieves a template by ID
func (s *InMemoryTemplateStore) Get(id string) (*Template, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, exists := s.templates[id]
	if !exists {
		return nil, fmt.Errorf("template %s: %w", id, ErrNotFound)
	}
	return t.Clone(), nil
}

// List returns all templates ordered by creation time.
func (s *InMemoryTemplateStore) List() ([]*Template, error) {
	return s.list(false), nil
}

// ListActive returns all active templates ordered by creation time.
func (s *InMemoryTemplateStore) ListActive() ([]*Template, error) {
	return s.list(true), nil
}

func (s *InMemoryTemplateStore) list(activeOnly bool) []*Template {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*Template
	for _, t := range s.templates {
		if activeOnly && !t.Active {
			continue
		}
		out = append(out, t.Clone())
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// Update replaces an existing template, preserving CreatedAt.
func (s *InMemoryTemplateStore) Update(t *Template) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, exists := s.templates[t.ID]
	if !exists {
		return fmt.Errorf("template %s: %w", t.ID, ErrNotFound)
	}
	for id, other := range s.templates {
		if id != t.ID && other.Section == t.Section && other.Slug == t.Slug {
			return fmt.Errorf("template %s/%s: %w", t.Section, t.Slug, ErrAlreadyExists)
		}
	}

	t.CreatedAt = existing.CreatedAt
	t.UpdatedAt = time.Now()
	s.templates[t.ID] = t.Clone()
	return nil
}

// Delete removes a template from the store
func (s *InMemoryTemplateStore) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.templates[id]; !exists {
		return fmt.Errorf("template %s: %w", id, ErrNotFound)
	}

	delete(s.templates, id)
	return nil
}
