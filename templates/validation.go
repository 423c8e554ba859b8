package templates

import (
	"fmt"
	"math"
	"regexp"
	"strings"

	"github.com/liamcoop/mathgen/expr"
)

const (
	maxVariables     = 26
	maxIdentifierLen = 64
)

var identifierPattern = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// ValidateTemplate checks a template definition. Every returned error wraps
// ErrInvalidTemplate.
func ValidateTemplate(t *Template) error {
	if err := validateTemplate(t); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidTemplate, err)
	}
	return nil
}

func validateTemplate(t *Template) error {
	if strings.TrimSpace(t.Name) == "" {
		return fmt.Errorf("name is required")
	}
	if err := validateIdentifier(t.Section); err != nil {
		return fmt.Errorf("invalid section %q: %w", t.Section, err)
	}
	if err := validateIdentifier(t.Slug); err != nil {
		return fmt.Errorf("invalid slug %q: %w", t.Slug, err)
	}

	if len(t.Variables) == 0 {
		return fmt.Errorf("template must declare at least one variable")
	}
	if len(t.Variables) > maxVariables {
		return fmt.Errorf("template declares %d variables, maximum allowed is %d", len(t.Variables), maxVariables)
	}

	declared := make(map[string]bool, len(t.Variables))
	for _, v := range t.Variables {
		if err := validateName(v.Name); err != nil {
			return fmt.Errorf("invalid variable name %q: %w", v.Name, err)
		}
		if declared[v.Name] {
			return fmt.Errorf("variable %q is declared twice", v.Name)
		}
		declared[v.Name] = true

		if !finite(v.Interval.Start) || !finite(v.Interval.Stop) {
			return fmt.Errorf("variable %q has a non-finite interval %s", v.Name, v.Interval)
		}
	}

	for _, c := range t.Conditions {
		if err := validateFormula(c, declared); err != nil {
			return fmt.Errorf("condition %q: %w", c, err)
		}
	}

	keys := make(map[string]bool, len(t.Options))
	for _, o := range t.Options {
		if err := validateIdentifier(o.Key); err != nil {
			return fmt.Errorf("invalid option key %q: %w", o.Key, err)
		}
		if keys[o.Key] {
			return fmt.Errorf("option %q is declared twice", o.Key)
		}
		keys[o.Key] = true
		if err := validateFormula(o.Condition, declared); err != nil {
			return fmt.Errorf("option %q: %w", o.Key, err)
		}
	}

	answers := make(map[string]bool, len(t.Answers))
	for _, a := range t.Answers {
		if err := validateName(a.Name); err != nil {
			return fmt.Errorf("invalid answer name %q: %w", a.Name, err)
		}
		if declared[a.Name] || answers[a.Name] {
			return fmt.Errorf("answer %q collides with another name", a.Name)
		}
		answers[a.Name] = true
		if !a.Fraction.valid() {
			return fmt.Errorf("answer %q has unknown fraction rule %q", a.Name, a.Fraction)
		}
		if err := validateFormula(a.Formula, declared); err != nil {
			return fmt.Errorf("answer %q: %w", a.Name, err)
		}
	}

	return nil
}

// validateFormula requires that src compiles and only refers to declared
// variables.
func validateFormula(src string, declared map[string]bool) error {
	p, err := expr.Compile(src)
	if err != nil {
		return err
	}
	for _, name := range p.Variables() {
		if !declared[name] {
			return fmt.Errorf("refers to undeclared variable %q", name)
		}
	}
	return nil
}

// validateName checks a name that is bound in expressions.
func validateName(name string) error {
	if err := validateIdentifier(name); err != nil {
		return err
	}
	if expr.IsKeyword(name) {
		return fmt.Errorf("cannot use reserved keyword %q as a name", name)
	}
	if expr.IsBuiltin(name) {
		return fmt.Errorf("cannot use built-in function %q as a name", name)
	}
	return nil
}

func validateIdentifier(name string) error {
	if len(name) == 0 {
		return fmt.Errorf("identifier cannot be empty")
	}
	if len(name) > maxIdentifierLen {
		return fmt.Errorf("identifier length %d exceeds maximum of %d characters", len(name), maxIdentifierLen)
	}
	if !identifierPattern.MatchString(name) {
		return fmt.Errorf("must match pattern %s", identifierPattern)
	}
	return nil
}

func finite(f float64) bool {
	return !math.IsInf(f, 0) && !math.IsNaN(f)
}
