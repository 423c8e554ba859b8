package generator

import (
	"math"
	"math/rand"

	"github.com/liamcoop/mathgen/expr"
)

// maxSpan bounds integer ranges so that hi-lo+1 cannot overflow int64.
const maxSpan = 1 << 62

// denominators are the candidate denominators for proper fractions.
var denominators = [...]int64{2, 3, 4, 5}

// Sampler draws candidate values for variables. It is not safe for
// concurrent use; each run owns its own Sampler.
type Sampler struct {
	rng *rand.Rand
}

// NewSampler returns a Sampler drawing from rng.
func NewSampler(rng *rand.Rand) *Sampler {
	return &Sampler{rng: rng}
}

// NewSeededSampler returns a Sampler with a deterministic source.
func NewSeededSampler(seed int64) *Sampler {
	return NewSampler(rand.New(rand.NewSource(seed)))
}

// Sample draws one value for spec. The second result is false when the draw
// is rejected, which is an expected outcome that simply fails the attempt:
// the interval is empty, a fraction reduced to an integer, a decimal rounded
// to an integer, or the rounded value fell outside the interval.
func (s *Sampler) Sample(spec VariableSpec) (float64, bool) {
	iv := spec.Interval
	if iv.Empty() {
		return 0, false
	}

	var (
		v  float64
		ok bool
	)
	switch spec.Mode() {
	case ModeProperFraction:
		v, ok = s.properFraction(iv)
	case ModeDecimalFraction:
		v, ok = s.decimalFraction(iv)
	default:
		v, ok = s.integer(iv)
	}
	if !ok || !iv.Contains(v) {
		return 0, false
	}
	return v, true
}

// intn returns a uniform integer in [lo, hi].
func (s *Sampler) intn(lo, hi float64) (int64, bool) {
	if math.IsInf(lo, 0) || math.IsInf(hi, 0) || math.IsNaN(lo) || math.IsNaN(hi) {
		return 0, false
	}
	if lo > hi || math.Abs(lo) > maxSpan/2 || math.Abs(hi) > maxSpan/2 {
		return 0, false
	}
	l, h := int64(lo), int64(hi)
	return l + s.rng.Int63n(h-l+1), true
}

func (s *Sampler) integer(iv Interval) (float64, bool) {
	lo, hi := iv.IntBounds()
	n, ok := s.intn(lo, hi)
	return float64(n), ok
}

// properFraction draws a denominator from {2,3,4,5}, then a numerator from
// [trunc(start*d), trunc(stop*d)], and rejects results that reduce to an
// integer.
func (s *Sampler) properFraction(iv Interval) (float64, bool) {
	d := denominators[s.rng.Intn(len(denominators))]
	fd := float64(d)
	n, ok := s.intn(math.Trunc(iv.Start*fd), math.Trunc(iv.Stop*fd))
	if !ok {
		return 0, false
	}
	if d/gcd(n, d) == 1 {
		return 0, false
	}
	return float64(n) / fd, true
}

// decimalFraction draws uniformly from the interval and keeps two decimal
// places. Values that round to an integer are rejected.
func (s *Sampler) decimalFraction(iv Interval) (float64, bool) {
	u := iv.Start + (iv.Stop-iv.Start)*s.rng.Float64()
	v := expr.RoundHalfEven(u, 2)
	if math.IsInf(v, 0) || math.IsNaN(v) || v == math.Trunc(v) {
		return 0, false
	}
	return v, true
}

func gcd(a, b int64) int64 {
	if a < 0 {
		a = -a
	}
	if b < 0 {
		b = -b
	}
	for b != 0 {
		a, b = b, a%b
	}
	return a
}
