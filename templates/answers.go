package templates

import (
	"fmt"
	"math"

	"github.com/liamcoop/mathgen/expr"
	"github.com/liamcoop/mathgen/generator"
)

// AnswerPlaces is the number of decimal places answers are rounded to.
const AnswerPlaces = 4

// AnswerSet is a list of compiled answer formulas.
type AnswerSet struct {
	answers  []Answer
	programs []*expr.Program
}

// CompileAnswers compiles every answer formula.
func CompileAnswers(answers []Answer) (*AnswerSet, error) {
	set := &AnswerSet{
		answers:  append([]Answer(nil), answers...),
		programs: make([]*expr.Program, len(answers)),
	}
	for i, a := range answers {
		p, err := expr.Compile(a.Formula)
		if err != nil {
			return nil, fmt.Errorf("answer %q: %w", a.Name, err)
		}
		set.programs[i] = p
	}
	return set, nil
}

// Len returns the number of answers.
func (s *AnswerSet) Len() int { return len(s.answers) }

// Evaluate computes every answer for sol, rounded to AnswerPlaces. proper
// and variables decide the fraction rendering of each answer.
func (s *AnswerSet) Evaluate(sol generator.Solution, proper map[string]bool, variables []string) []AnswerValue {
	binding := sol.Binding()
	out := make([]AnswerValue, len(s.answers))
	for i, a := range s.answers {
		out[i] = AnswerValue{
			Name:     a.Name,
			Fraction: a.Fraction.Applies(proper, variables),
		}
		f, ok := s.programs[i].Value(binding).Float()
		if !ok || math.IsInf(f, 0) || math.IsNaN(f) {
			continue
		}
		r := expr.RoundHalfEven(f, AnswerPlaces)
		if r == 0 {
			r = 0 // fold -0
		}
		out[i].Value = &r
	}
	return out
}

// Examples pairs every solution with its answers.
func (s *AnswerSet) Examples(solutions []generator.Solution, proper map[string]bool, variables []string) []Example {
	examples := make([]Example, len(solutions))
	for i, sol := range solutions {
		examples[i] = Example{Solution: sol}
		if s.Len() > 0 {
			examples[i].Answers = s.Evaluate(sol, proper, variables)
		}
	}
	return examples
}
