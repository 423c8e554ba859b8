package main

import (
	"time"

	"github.com/liamcoop/mathgen/generator"
	"github.com/liamcoop/mathgen/templates"
)

// API request and response models

// GenerateRequest is the body of an ad-hoc generation request
type GenerateRequest struct {
	SessionID  string                            `json:"sessionId,omitempty" example:"3f2b6c1e-5c43-4a55-9f0e-1f7c2f6e8a11"`
	Variables  map[string]generator.VariableSpec `json:"variables"`
	Conditions []string                          `json:"conditions,omitempty" example:"b != 0 and a % b == 0"`
	Answers    []templates.Answer                `json:"answers,omitempty"`
	Count      int                               `json:"count,omitempty" example:"6"`
	Seed       int64                             `json:"seed,omitempty" example:"42"`
}

// TemplateGenerateRequest is the body of a template generation request
type TemplateGenerateRequest struct {
	SessionID string                                `json:"sessionId,omitempty"`
	Count     int                                   `json:"count,omitempty" example:"6"`
	Overrides map[string]templates.VariableOverride `json:"overrides,omitempty"`
	Options   []string                              `json:"options,omitempty" example:"integer_root"`
	Seed      int64                                 `json:"seed,omitempty"`
}

// TemplateRequest is the body of a template create or update request
type TemplateRequest struct {
	Section        string               `json:"section" example:"linear_equations"`
	Slug           string               `json:"slug" example:"general"`
	Name           string               `json:"name" example:"General linear equation"`
	Formula        string               `json:"formula" example:"ax + b = c"`
	Variables      []templates.Variable `json:"variables"`
	AllowFractions bool                 `json:"allowFractions"`
	Conditions     []string             `json:"conditions,omitempty"`
	Options        []templates.Option   `json:"options,omitempty"`
	Answers        []templates.Answer   `json:"answers,omitempty"`
	Active         *bool                `json:"active,omitempty" example:"true"`
}

func (r *TemplateRequest) template(id string) *templates.Template {
	active := true
	if r.Active != nil {
		active = *r.Active
	}
	return &templates.Template{
		ID:             id,
		Section:        r.Section,
		Slug:           r.Slug,
		Name:           r.Name,
		Formula:        r.Formula,
		Variables:      r.Variables,
		AllowFractions: r.AllowFractions,
		Conditions:     r.Conditions,
		Options:        r.Options,
		Answers:        r.Answers,
		Active:         active,
	}
}

// TemplatesListResponse is the response for listing templates
type TemplatesListResponse struct {
	Templates []*templates.Template `json:"templates"`
}

// ValueResponse is a variable or answer of one example. Value is null when
// an answer is undefined.
type ValueResponse struct {
	Name     string   `json:"name" example:"x"`
	Value    *float64 `json:"value" example:"0.6667"`
	Fraction string   `json:"fraction,omitempty" example:"2/3"`
}

// ExampleResponse is one generated example
type ExampleResponse struct {
	Variables []ValueResponse `json:"variables"`
	Answers   []ValueResponse `json:"answers,omitempty"`
}

// GenerateResponse is the response of a completed generation
type GenerateResponse struct {
	RunID      string            `json:"runId"`
	SessionID  string            `json:"sessionId"`
	TemplateID string            `json:"templateId,omitempty"`
	Seed       int64             `json:"seed"`
	Attempts   int               `json:"attempts"`
	Elapsed    string            `json:"elapsed" example:"12.3ms"`
	Examples   []ExampleResponse `json:"examples"`
}

// InsufficientBudgetResponse is returned when the constraints could not be
// satisfied within the budget
type InsufficientBudgetResponse struct {
	Error    string `json:"error" example:"couldn't generate enough examples, check your inputs"`
	Attempts int    `json:"attempts"`
	Elapsed  string `json:"elapsed"`
	Seed     int64  `json:"seed"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error" example:"invalid request body"`
	Details string `json:"details,omitempty"`
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status          string    `json:"status" example:"healthy"`
	Storage         string    `json:"storage" example:"memory"`
	TemplatesLoaded int       `json:"templatesLoaded"`
	ActiveRuns      int       `json:"activeRuns"`
	Time            time.Time `json:"time"`
	Error           string    `json:"error,omitempty"`
}
