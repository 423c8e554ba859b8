package templates

import (
	"errors"
	"time"

	"github.com/liamcoop/mathgen/generator"
)

var (
	ErrNotFound        = errors.New("template not found")
	ErrAlreadyExists   = errors.New("template already exists")
	ErrInvalidTemplate = errors.New("invalid template")
	ErrInvalidRequest  = errors.New("invalid generate request")
)

// Variable is a coefficient of an exercise together with its default range.
type Variable struct {
	Name     string             `json:"name" toml:"name"`
	Interval generator.Interval `json:"interval" toml:"interval"`
}

// Option is an extra condition the caller may switch on.
type Option struct {
	Key         string `json:"key" toml:"key"`
	Description string `json:"description" toml:"description"`
	Condition   string `json:"condition" toml:"condition"`
}

// FractionRule decides whether an answer is rendered as a fraction.
type FractionRule string

const (
	FractionNever FractionRule = ""
	// FractionAlways renders the answer as a fraction regardless of inputs.
	FractionAlways FractionRule = "always"
	// FractionIfAny renders the answer as a fraction when any variable was
	// sampled as a proper fraction.
	FractionIfAny FractionRule = "any"
	// FractionIfAll renders the answer as a fraction when every variable was
	// sampled as a proper fraction.
	FractionIfAll FractionRule = "all"
)

func (r FractionRule) valid() bool {
	switch r {
	case FractionNever, FractionAlways, FractionIfAny, FractionIfAll:
		return true
	}
	return false
}

// Applies reports whether the rule selects fraction rendering given which
// variables were sampled as proper fractions.
func (r FractionRule) Applies(proper map[string]bool, variables []string) bool {
	switch r {
	case FractionAlways:
		return true
	case FractionIfAny:
		for _, name := range variables {
			if proper[name] {
				return true
			}
		}
		return false
	case FractionIfAll:
		if len(variables) == 0 {
			return false
		}
		for _, name := range variables {
			if !proper[name] {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// Answer is a formula evaluated against every generated solution.
type Answer struct {
	Name     string       `json:"name" toml:"name"`
	Formula  string       `json:"formula" toml:"formula"`
	Fraction FractionRule `json:"fraction,omitempty" toml:"fraction"`
}

// Template describes one kind of exercise: which coefficients it has, the
// conditions they always satisfy, the optional conditions a caller may
// enable and the answers computed from them.
type Template struct {
	ID             string     `json:"id" toml:"-"`
	Section        string     `json:"section" toml:"section"`
	Slug           string     `json:"slug" toml:"slug"`
	Name           string     `json:"name" toml:"name"`
	Formula        string     `json:"formula" toml:"formula"`
	Variables      []Variable `json:"variables" toml:"variables"`
	AllowFractions bool       `json:"allowFractions" toml:"allow_fractions"`
	Conditions     []string   `json:"conditions" toml:"conditions"`
	Options        []Option   `json:"options" toml:"options"`
	Answers        []Answer   `json:"answers" toml:"answers"`
	Active         bool       `json:"active" toml:"-"`
	CreatedAt      time.Time  `json:"createdAt" toml:"-"`
	UpdatedAt      time.Time  `json:"updatedAt" toml:"-"`
}

// Clone returns a deep copy of t.
func (t *Template) Clone() *Template {
	c := *t
	c.Variables = append([]Variable(nil), t.Variables...)
	c.Conditions = append([]string(nil), t.Conditions...)
	c.Options = append([]Option(nil), t.Options...)
	c.Answers = append([]Answer(nil), t.Answers...)
	return &c
}

// VariableNames returns the variable names in declaration order.
func (t *Template) VariableNames() []string {
	names := make([]string, len(t.Variables))
	for i, v := range t.Variables {
		names[i] = v.Name
	}
	return names
}

// Option returns the option with the given key.
func (t *Template) Option(key string) (Option, bool) {
	for _, o := range t.Options {
		if o.Key == key {
			return o, true
		}
	}
	return Option{}, false
}

// AnswerValue is one answer for one solution. Value is nil when the formula
// is undefined for that solution.
type AnswerValue struct {
	Name     string   `json:"name"`
	Value    *float64 `json:"value"`
	Fraction bool     `json:"fraction,omitempty"`
}

// Example is a generated solution together with its answers.
type Example struct {
	Solution generator.Solution `json:"solution"`
	Answers  []AnswerValue      `json:"answers,omitempty"`
}
