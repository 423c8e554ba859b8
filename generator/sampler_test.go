package generator

import (
	"math"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSamplerRejectsEmptyIntervals(t *testing.T) {
	s := NewSeededSampler(1)
	intervals := []Interval{{5, 5}, {5, 1}, {0, 0}, {-1, -2}, {math.NaN(), 1}}
	modes := []VariableSpec{{}, {ProperFraction: true}, {DecimalFraction: true}}

	for _, iv := range intervals {
		for _, m := range modes {
			spec := m
			spec.Interval = iv
			for i := 0; i < 200; i++ {
				_, ok := s.Sample(spec)
				require.False(t, ok, "sample from %s in %s mode", iv, spec.Mode())
			}
		}
	}
}

func TestSamplerIntegerRange(t *testing.T) {
	s := NewSeededSampler(7)
	seen := map[float64]bool{}
	for i := 0; i < 2000; i++ {
		v, ok := s.Sample(VariableSpec{Interval: Interval{1, 10}})
		require.True(t, ok)
		require.Equal(t, math.Trunc(v), v)
		require.GreaterOrEqual(t, v, 1.0)
		require.LessOrEqual(t, v, 10.0)
		seen[v] = true
	}
	assert.Len(t, seen, 10, "every value in [1, 10] should be drawn")
}

func TestSamplerIntegerCeilsBothBounds(t *testing.T) {
	s := NewSeededSampler(3)
	seen := map[float64]bool{}
	for i := 0; i < 1000; i++ {
		v, ok := s.Sample(VariableSpec{Interval: Interval{1.5, 3.0}})
		require.True(t, ok)
		seen[v] = true
	}
	assert.Equal(t, map[float64]bool{2: true, 3: true}, seen)

	// [1, 2.5] ceils to [1, 3]; 3 is drawn but falls outside the interval.
	rejected := 0
	for i := 0; i < 1000; i++ {
		v, ok := s.Sample(VariableSpec{Interval: Interval{1, 2.5}})
		if !ok {
			rejected++
			continue
		}
		assert.Contains(t, []float64{1, 2}, v)
	}
	assert.Greater(t, rejected, 0)
}

func TestSamplerProperFractions(t *testing.T) {
	s := NewSeededSampler(11)
	accepted := 0
	for i := 0; i < 5000; i++ {
		v, ok := s.Sample(VariableSpec{Interval: Interval{-3, 3}, ProperFraction: true})
		if !ok {
			continue
		}
		accepted++
		require.NotEqual(t, math.Trunc(v), v, "proper fraction %v is an integer", v)
		require.True(t, v >= -3 && v <= 3)

		num, den, ok := LimitDenominator(v, 5)
		require.True(t, ok)
		require.Contains(t, []int64{2, 3, 4, 5}, den, "value %v", v)
		require.InDelta(t, float64(num)/float64(den), v, 1e-15)
	}
	assert.Greater(t, accepted, 1000)
}

func TestSamplerDecimalFractions(t *testing.T) {
	s := NewSeededSampler(5)
	accepted := 0
	for i := 0; i < 5000; i++ {
		v, ok := s.Sample(VariableSpec{Interval: Interval{-10, 10}, DecimalFraction: true})
		if !ok {
			continue
		}
		accepted++
		require.NotEqual(t, math.Trunc(v), v)
		require.True(t, v >= -10 && v <= 10)

		text := strconv.FormatFloat(v, 'f', -1, 64)
		dot := strings.IndexByte(text, '.')
		require.NotEqual(t, -1, dot)
		require.LessOrEqual(t, len(text)-dot-1, 2, "%s has more than two decimals", text)
	}
	assert.Greater(t, accepted, 4000)
}

func TestSamplerNarrowDecimalIntervalRejectsOutOfBounds(t *testing.T) {
	s := NewSeededSampler(9)
	for i := 0; i < 2000; i++ {
		v, ok := s.Sample(VariableSpec{Interval: Interval{0.101, 0.104}, DecimalFraction: true})
		if ok {
			t.Fatalf("0.10 is outside [0.101, 0.104] but was accepted as %v", v)
		}
	}
}

func TestSamplerHugeRangeIsRejected(t *testing.T) {
	s := NewSeededSampler(1)
	_, ok := s.Sample(VariableSpec{Interval: Interval{-math.MaxFloat64, math.MaxFloat64}})
	assert.False(t, ok)
	_, ok = s.Sample(VariableSpec{Interval: Interval{math.Inf(-1), 0}})
	assert.False(t, ok)
}

func TestVariableSpecMode(t *testing.T) {
	assert.Equal(t, ModeInteger, VariableSpec{}.Mode())
	assert.Equal(t, ModeProperFraction, VariableSpec{ProperFraction: true}.Mode())
	assert.Equal(t, ModeDecimalFraction, VariableSpec{DecimalFraction: true}.Mode())
	assert.Equal(t, ModeProperFraction, VariableSpec{ProperFraction: true, DecimalFraction: true}.Mode())
}

func TestIntervalContainsIsClosed(t *testing.T) {
	iv := Interval{-1, 1}
	assert.True(t, iv.Contains(-1))
	assert.True(t, iv.Contains(1))
	assert.True(t, iv.Contains(0))
	assert.False(t, iv.Contains(1.0000001))
	assert.False(t, iv.Contains(math.NaN()))
}
