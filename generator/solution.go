package generator

import (
	"encoding/json"
	"sort"
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"

	"github.com/liamcoop/mathgen/expr"
)

// identityPlaces is the number of decimal places two values must agree on to
// be considered the same solution.
const identityPlaces = 10

// Assignment is one variable's value.
type Assignment struct {
	Name  string
	Value float64
}

// Solution is an immutable assignment of values to variables. Two Solutions
// are equal when they bind the same names to values that agree after
// rounding to 10 decimal places, regardless of construction order.
type Solution struct {
	names  []string
	values []float64
	key    string
}

// NewSolution merges bindings into a Solution. When a name appears in more
// than one binding the last one wins.
func NewSolution(bindings ...map[string]float64) Solution {
	merged := make(map[string]float64)
	for _, b := range bindings {
		for name, v := range b {
			merged[name] = v
		}
	}
	assignments := make([]Assignment, 0, len(merged))
	for name, v := range merged {
		assignments = append(assignments, Assignment{Name: name, Value: v})
	}
	return SolutionOf(assignments...)
}

// SolutionOf builds a Solution from assignments in any order. When a name
// repeats the last assignment wins.
func SolutionOf(assignments ...Assignment) Solution {
	last := make(map[string]int, len(assignments))
	for i, a := range assignments {
		last[a.Name] = i
	}
	names := make([]string, 0, len(last))
	for name := range last {
		names = append(names, name)
	}
	sort.Strings(names)

	values := make([]float64, len(names))
	var sb strings.Builder
	for i, name := range names {
		values[i] = assignments[last[name]].Value
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(name)
		sb.WriteByte('=')
		sb.WriteString(strconv.FormatFloat(identityValue(values[i]), 'g', -1, 64))
	}
	return Solution{names: names, values: values, key: sb.String()}
}

// identityValue rounds v for comparison and folds -0 into 0.
func identityValue(v float64) float64 {
	r := expr.RoundHalfEven(v, identityPlaces)
	if r == 0 {
		return 0
	}
	return r
}

// Len returns the number of variables.
func (s Solution) Len() int { return len(s.names) }

// Get returns the value bound to name.
func (s Solution) Get(name string) (float64, bool) {
	i := sort.SearchStrings(s.names, name)
	if i < len(s.names) && s.names[i] == name {
		return s.values[i], true
	}
	return 0, false
}

// Names returns the variable names in sorted order.
func (s Solution) Names() []string {
	out := make([]string, len(s.names))
	copy(out, s.names)
	return out
}

// Binding returns a fresh binding holding the solution's values, suitable
// for evaluating further expressions.
func (s Solution) Binding() expr.Binding {
	b := make(expr.Binding, len(s.names))
	for i, name := range s.names {
		b[name] = s.values[i]
	}
	return b
}

// Key is the canonical identity string: sorted name=value pairs with values
// rounded to 10 decimal places.
func (s Solution) Key() string { return s.key }

// Hash is consistent with Equal.
func (s Solution) Hash() uint64 { return xxhash.Sum64String(s.key) }

// Equal reports whether s and o are the same solution.
func (s Solution) Equal(o Solution) bool { return s.key == o.key }

func (s Solution) String() string { return "{" + s.key + "}" }

// MarshalJSON encodes the solution as an object of name to value.
func (s Solution) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]float64(s.Binding()))
}

// UnmarshalJSON decodes an object of name to value.
func (s *Solution) UnmarshalJSON(data []byte) error {
	var m map[string]float64
	if err := json.Unmarshal(data, &m); err != nil {
		return err
	}
	*s = NewSolution(m)
	return nil
}
