package templates

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/liamcoop/mathgen/generator"
	"github.com/liamcoop/mathgen/internal/logger"
)

const (
	// DefaultSolutionCount is used when a request does not ask for a count.
	DefaultSolutionCount = 6

	// DefaultMaxSolutions bounds the count of a single request.
	DefaultMaxSolutions = 50
)

// Options configure a Service. Zero values select the defaults.
type Options struct {
	Cache                  TemplatesCache
	MaxAttemptsPerSolution int
	WallClockLimit         time.Duration
	MaxSolutions           int
}

// VariableOverride replaces the default sampling of one template variable.
type VariableOverride struct {
	Interval        *generator.Interval `json:"interval,omitempty"`
	ProperFraction  bool                `json:"properFraction,omitempty"`
	DecimalFraction bool                `json:"decimalFraction,omitempty"`
}

// GenerateRequest asks for examples of one template.
type GenerateRequest struct {
	// Count defaults to DefaultSolutionCount.
	Count int

	Overrides map[string]VariableOverride

	// Options lists the keys of the optional conditions to enable.
	Options []string

	Seed       int64
	IsCanceled func() bool
}

// GenerateResult is the outcome of Service.Generate. Examples is only set
// when the run completed.
type GenerateResult struct {
	Template *Template
	Result   *generator.Result
	Examples []Example

	// Proper marks the variables that were sampled as proper fractions.
	Proper map[string]bool
}

// Service validates and compiles templates, keeps them in a TemplateStore
// and runs generation for them. Safe for concurrent use.
type Service struct {
	store   TemplateStore
	cache   TemplatesCache        // active templates list
	answers map[string]*AnswerSet // templateID -> compiled answers
	opts    Options
	mu      sync.RWMutex
}

// NewService creates a service over store and compiles every active
// template.
func NewService(store TemplateStore, opts Options) (*Service, error) {
	if opts.Cache == nil {
		opts.Cache = NewInMemoryTemplatesCache(DefaultCacheConfig())
	}
	if opts.MaxSolutions <= 0 {
		opts.MaxSolutions = DefaultMaxSolutions
	}

	s := &Service{
		store:   store,
		cache:   opts.Cache,
		answers: make(map[string]*AnswerSet),
		opts:    opts,
	}

	if err := s.CompileAll(); err != nil {
		return nil, fmt.Errorf("failed to compile templates: %w", err)
	}

	return s, nil
}

// compile validates t and compiles its answers.
func (s *Service) compile(t *Template) (*AnswerSet, error) {
	if err := ValidateTemplate(t); err != nil {
		return nil, err
	}
	set, err := CompileAnswers(t.Answers)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidTemplate, err)
	}
	return set, nil
}

// CompileAll compiles all active templates from the store and populates the
// cache.
func (s *Service) CompileAll() error {
	list, err := s.store.ListActive()
	if err != nil {
		return err
	}

	compiled := make(map[string]*AnswerSet, len(list))
	for _, t := range list {
		set, err := s.compile(t)
		if err != nil {
			return fmt.Errorf("template %s: %w", t.ID, err)
		}
		compiled[t.ID] = set
	}

	s.mu.Lock()
	s.answers = compiled
	s.mu.Unlock()

	s.cache.Set(list)
	logger.Debug("templates compiled", "count", len(list))
	return nil
}

// AddTemplate validates and stores a new template. An empty ID is replaced
// with a random UUID.
func (s *Service) AddTemplate(t *Template) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if _, err := s.store.Get(t.ID); err == nil {
		return fmt.Errorf("template %s: %w", t.ID, ErrAlreadyExists)
	}

	set, err := s.compile(t)
	if err != nil {
		return err
	}

	if err := s.store.Add(t); err != nil {
		return err
	}

	s.mu.Lock()
	s.answers[t.ID] = set
	s.mu.Unlock()

	s.cache.Invalidate()
	logger.Info("template added", "id", t.ID, "section", t.Section, "slug", t.Slug)
	return nil
}

// UpdateTemplate validates and replaces an existing template.
func (s *Service) UpdateTemplate(t *Template) error {
	set, err := s.compile(t)
	if err != nil {
		return err
	}

	if err := s.store.Update(t); err != nil {
		return err
	}

	s.mu.Lock()
	s.answers[t.ID] = set
	s.mu.Unlock()

	s.cache.Invalidate()
	logger.Info("template updated", "id", t.ID)
	return nil
}

// DeleteTemplate removes a template and its compiled answers.
func (s *Service) DeleteTemplate(id string) error {
	if err := s.store.Delete(id); err != nil {
		return err
	}

	s.mu.Lock()
	delete(s.answers, id)
	s.mu.Unlock()

	s.cache.Invalidate()
	logger.Info("template deleted", "id", id)
	return nil
}

// Get returns a template by ID.
func (s *Service) Get(id string) (*Template, error) {
	return s.store.Get(id)
}

// List returns every stored template.
func (s *Service) List() ([]*Template, error) {
	return s.store.List()
}

// ListActive returns the active templates, from the cache when possible.
func (s *Service) ListActive() ([]*Template, error) {
	if list := s.cache.Get(); list != nil {
		return list, nil
	}
	list, err := s.store.ListActive()
	if err != nil {
		return nil, err
	}
	s.cache.Set(list)
	return list, nil
}

// SeedCatalog adds every built-in template that is not stored yet and
// returns how many were added.
func (s *Service) SeedCatalog() (int, error) {
	catalog, err := Catalog()
	if err != nil {
		return 0, err
	}

	added := 0
	for _, t := range catalog {
		err := s.AddTemplate(t)
		if errors.Is(err, ErrAlreadyExists) {
			continue
		}
		if err != nil {
			return added, fmt.Errorf("failed to seed %s/%s: %w", t.Section, t.Slug, err)
		}
		added++
	}
	return added, nil
}

func (s *Service) answerSet(t *Template) (*AnswerSet, error) {
	s.mu.RLock()
	set, ok := s.answers[t.ID]
	s.mu.RUnlock()
	if ok {
		return set, nil
	}
	return s.compile(t)
}

// Request builds the generator request for template t. Overrides must name
// declared variables, fraction overrides require AllowFractions, and every
// option key must exist.
func (s *Service) Request(t *Template, req GenerateRequest) (generator.Request, error) {
	count := req.Count
	if count == 0 {
		count = DefaultSolutionCount
	}
	if count < 0 || count > s.opts.MaxSolutions {
		return generator.Request{}, fmt.Errorf("%w: count must be between 1 and %d, got %d", ErrInvalidRequest, s.opts.MaxSolutions, count)
	}

	declared := make(map[string]bool, len(t.Variables))
	variables := make(map[string]generator.VariableSpec, len(t.Variables))
	for _, v := range t.Variables {
		declared[v.Name] = true
		variables[v.Name] = generator.VariableSpec{Interval: v.Interval}
	}
	for name, o := range req.Overrides {
		if !declared[name] {
			return generator.Request{}, fmt.Errorf("%w: unknown variable %q", ErrInvalidRequest, name)
		}
		if (o.ProperFraction || o.DecimalFraction) && !t.AllowFractions {
			return generator.Request{}, fmt.Errorf("%w: template %s/%s does not allow fractions", ErrInvalidRequest, t.Section, t.Slug)
		}
		spec := variables[name]
		if o.Interval != nil {
			spec.Interval = *o.Interval
		}
		spec.ProperFraction = o.ProperFraction
		spec.DecimalFraction = o.DecimalFraction
		variables[name] = spec
	}

	conditions := append([]string(nil), t.Conditions...)
	enabled := make(map[string]bool, len(req.Options))
	for _, key := range req.Options {
		o, ok := t.Option(key)
		if !ok {
			return generator.Request{}, fmt.Errorf("%w: unknown option %q", ErrInvalidRequest, key)
		}
		if enabled[key] {
			continue
		}
		enabled[key] = true
		conditions = append(conditions, o.Condition)
	}

	return generator.Request{
		Variables:              variables,
		Conditions:             conditions,
		TargetCount:            count,
		IsCanceled:             req.IsCanceled,
		MaxAttemptsPerSolution: s.opts.MaxAttemptsPerSolution,
		WallClockLimit:         s.opts.WallClockLimit,
		Seed:                   req.Seed,
	}, nil
}

// Generate produces examples for the active template id. Validation
// problems return an error wrapping ErrNotFound or ErrInvalidRequest; the
// run outcome is reported through GenerateResult.Result.Status.
func (s *Service) Generate(ctx context.Context, id string, req GenerateRequest) (*GenerateResult, error) {
	t, err := s.store.Get(id)
	if err != nil {
		return nil, err
	}
	if !t.Active {
		return nil, fmt.Errorf("template %s is inactive: %w", id, ErrNotFound)
	}

	set, err := s.answerSet(t)
	if err != nil {
		return nil, err
	}

	greq, err := s.Request(t, req)
	if err != nil {
		return nil, err
	}

	res, err := generator.Generate(ctx, greq)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}

	proper := make(map[string]bool, len(greq.Variables))
	for name, spec := range greq.Variables {
		if spec.Mode() == generator.ModeProperFraction {
			proper[name] = true
		}
	}

	out := &GenerateResult{Template: t, Result: res, Proper: proper}
	if res.Status == generator.StatusCompleted {
		out.Examples = set.Examples(res.Solutions, proper, t.VariableNames())
	}
	return out, nil
}
