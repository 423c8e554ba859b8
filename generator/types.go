package generator

import (
	"fmt"
	"math"
	"time"
)

// Interval is a closed range of real numbers.
type Interval struct {
	Start float64 `json:"start" toml:"start"`
	Stop  float64 `json:"stop" toml:"stop"`
}

// Contains reports whether Start <= v <= Stop.
func (i Interval) Contains(v float64) bool {
	return i.Start <= v && v <= i.Stop
}

// Empty reports whether nothing can be sampled from i. Degenerate intervals
// with Start == Stop count as empty.
func (i Interval) Empty() bool {
	return !(i.Start < i.Stop)
}

// IntBounds returns the inclusive integer range sampled in integer mode.
// Both ends are rounded up, so [1.5, 3.0] becomes [2, 3] and [1, 2.5]
// becomes [1, 3] (3 is then rejected by Contains).
func (i Interval) IntBounds() (lo, hi float64) {
	return math.Ceil(i.Start), math.Ceil(i.Stop)
}

func (i Interval) String() string {
	return fmt.Sprintf("[%g, %g]", i.Start, i.Stop)
}

// Mode selects how a variable's values are drawn.
type Mode int

const (
	ModeInteger Mode = iota
	ModeProperFraction
	ModeDecimalFraction
)

func (m Mode) String() string {
	switch m {
	case ModeProperFraction:
		return "proper fraction"
	case ModeDecimalFraction:
		return "decimal fraction"
	default:
		return "integer"
	}
}

// VariableSpec constrains the values of one variable. ProperFraction and
// DecimalFraction are mutually exclusive; when both are set the proper
// fraction strategy is used.
type VariableSpec struct {
	Interval        Interval `json:"interval"`
	ProperFraction  bool     `json:"properFraction,omitempty"`
	DecimalFraction bool     `json:"decimalFraction,omitempty"`
}

// Mode returns the sampling strategy selected by the fraction flags.
func (s VariableSpec) Mode() Mode {
	switch {
	case s.ProperFraction:
		return ModeProperFraction
	case s.DecimalFraction:
		return ModeDecimalFraction
	default:
		return ModeInteger
	}
}

// Status is the terminal state of a generation run.
type Status int

const (
	// StatusCompleted means the requested number of distinct solutions was found.
	StatusCompleted Status = iota + 1

	// StatusInsufficientBudget means the attempt or wall-clock budget ran out
	// first. The constraints are likely unsatisfiable or too strict and the
	// caller should tell the user.
	StatusInsufficientBudget

	// StatusCanceled means the caller abandoned the run. It is not an error.
	StatusCanceled
)

func (s Status) String() string {
	switch s {
	case StatusCompleted:
		return "completed"
	case StatusInsufficientBudget:
		return "insufficient_budget"
	case StatusCanceled:
		return "canceled"
	default:
		return "unknown"
	}
}

// Result is the outcome of Generate. Solutions is only populated when
// Status is StatusCompleted, in the order they were found.
type Result struct {
	Status    Status
	Solutions []Solution
	Attempts  int
	Elapsed   time.Duration
	Seed      int64
}
