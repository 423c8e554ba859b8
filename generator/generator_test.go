package generator

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/liamcoop/mathgen/expr"
)

func never() bool { return false }

func TestGenerateCompletesWithDistinctSolutions(t *testing.T) {
	res, err := Generate(context.Background(), Request{
		Variables:   map[string]VariableSpec{"a": {Interval: Interval{1, 10}}},
		TargetCount: 3,
		IsCanceled:  never,
		Seed:        42,
	})
	require.NoError(t, err)
	require.Equal(t, StatusCompleted, res.Status)
	require.Len(t, res.Solutions, 3)

	seen := map[float64]bool{}
	for _, s := range res.Solutions {
		v, ok := s.Get("a")
		require.True(t, ok)
		assert.False(t, seen[v], "duplicate value %v", v)
		seen[v] = true
	}
	assert.Equal(t, int64(42), res.Seed)
}

func TestGenerateCollapsesDuplicates(t *testing.T) {
	// only two distinct values exist, so the third solution can never be found
	res, err := Generate(context.Background(), Request{
		Variables:              map[string]VariableSpec{"a": {Interval: Interval{1, 2}}},
		TargetCount:            3,
		MaxAttemptsPerSolution: 100,
		Seed:                   1,
	})
	require.NoError(t, err)
	assert.Equal(t, StatusInsufficientBudget, res.Status)
	assert.Equal(t, 300, res.Attempts)
	assert.Empty(t, res.Solutions)

	res, err = Generate(context.Background(), Request{
		Variables:   map[string]VariableSpec{"a": {Interval: Interval{1, 2}}},
		TargetCount: 2,
		Seed:        1,
	})
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, res.Status)
	assert.Len(t, res.Solutions, 2)
}

func TestGenerateEmptyIntervalExhaustsBudget(t *testing.T) {
	res, err := Generate(context.Background(), Request{
		Variables: map[string]VariableSpec{
			"a": {Interval: Interval{1, 10}},
			"b": {Interval: Interval{5, 5}},
		},
		TargetCount:            4,
		MaxAttemptsPerSolution: 250,
		Seed:                   3,
	})
	require.NoError(t, err)
	assert.Equal(t, StatusInsufficientBudget, res.Status)
	assert.Equal(t, 1000, res.Attempts)
}

func TestGenerateConditionsAreRespected(t *testing.T) {
	conditions := []string{"a != 0 and b != 0", "(c - b) % a == 0", "c >= b"}
	res, err := Generate(context.Background(), Request{
		Variables: map[string]VariableSpec{
			"a": {Interval: Interval{2, 9}},
			"b": {Interval: Interval{5, 40}},
			"c": {Interval: Interval{5, 40}},
		},
		Conditions:  conditions,
		TargetCount: 10,
		Seed:        99,
	})
	require.NoError(t, err)
	require.Equal(t, StatusCompleted, res.Status)
	require.Len(t, res.Solutions, 10)

	for _, s := range res.Solutions {
		for _, c := range conditions {
			assert.True(t, expr.Evaluate(c, s.Binding()).Truthy(), "%s violates %q", s, c)
		}
	}
}

func TestGenerateFractionModes(t *testing.T) {
	res, err := Generate(context.Background(), Request{
		Variables: map[string]VariableSpec{
			"p": {Interval: Interval{0, 1}, ProperFraction: true},
			"d": {Interval: Interval{0, 1}, DecimalFraction: true},
		},
		TargetCount: 5,
		Seed:        8,
	})
	require.NoError(t, err)
	require.Equal(t, StatusCompleted, res.Status)
	for _, s := range res.Solutions {
		p, _ := s.Get("p")
		d, _ := s.Get("d")
		assert.True(t, p > 0 && p < 1)
		assert.True(t, d > 0 && d < 1)
	}
}

func TestGenerateMalformedConditionDoesNotAbort(t *testing.T) {
	res, err := Generate(context.Background(), Request{
		Variables:              map[string]VariableSpec{"a": {Interval: Interval{1, 10}}},
		Conditions:             []string{"a >", "b > 0"},
		TargetCount:            1,
		MaxAttemptsPerSolution: 50,
		Seed:                   1,
	})
	require.NoError(t, err)
	assert.Equal(t, StatusInsufficientBudget, res.Status)
	assert.Equal(t, 50, res.Attempts)
}

func TestGenerateCanceledBeforeFirstAttempt(t *testing.T) {
	calls := 0
	res, err := Generate(context.Background(), Request{
		Variables:   map[string]VariableSpec{"a": {Interval: Interval{1, 10}}},
		TargetCount: 3,
		IsCanceled: func() bool {
			calls++
			return true
		},
	})
	require.NoError(t, err)
	assert.Equal(t, StatusCanceled, res.Status)
	assert.Equal(t, 0, res.Attempts)
	assert.Equal(t, 1, calls)
	assert.Empty(t, res.Solutions)
}

func TestGenerateCanceledMidRun(t *testing.T) {
	polls := 0
	res, err := Generate(context.Background(), Request{
		Variables:   map[string]VariableSpec{"a": {Interval: Interval{5, 5}}},
		TargetCount: 1,
		IsCanceled: func() bool {
			polls++
			return polls > 10
		},
	})
	require.NoError(t, err)
	assert.Equal(t, StatusCanceled, res.Status)
	assert.Equal(t, 10, res.Attempts)
}

func TestGenerateContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := Generate(ctx, Request{
		Variables:   map[string]VariableSpec{"a": {Interval: Interval{1, 10}}},
		TargetCount: 1,
		IsCanceled:  never,
	})
	require.NoError(t, err)
	assert.Equal(t, StatusCanceled, res.Status)
}

func TestGenerateWallClockLimit(t *testing.T) {
	base := time.Unix(0, 0)
	ticks := 0
	now = func() time.Time {
		ticks++
		return base.Add(time.Duration(ticks) * time.Second)
	}
	defer func() { now = time.Now }()

	res, err := Generate(context.Background(), Request{
		Variables:      map[string]VariableSpec{"a": {Interval: Interval{5, 5}}},
		TargetCount:    1,
		WallClockLimit: 5 * time.Second,
	})
	require.NoError(t, err)
	assert.Equal(t, StatusInsufficientBudget, res.Status)
	assert.Less(t, res.Attempts, 10)
}

func TestGenerateIsReproducible(t *testing.T) {
	req := Request{
		Variables: map[string]VariableSpec{
			"a": {Interval: Interval{-12, 12}},
			"b": {Interval: Interval{-20, 20}},
			"c": {Interval: Interval{-20, 20}, DecimalFraction: true},
		},
		Conditions:  []string{"a != 0", "b*b - 4*a*c >= 0"},
		TargetCount: 6,
		Seed:        2024,
	}
	first, err := Generate(context.Background(), req)
	require.NoError(t, err)
	second, err := Generate(context.Background(), req)
	require.NoError(t, err)

	require.Equal(t, len(first.Solutions), len(second.Solutions))
	for i := range first.Solutions {
		assert.True(t, first.Solutions[i].Equal(second.Solutions[i]))
	}
}

func TestGenerateDoesNotMutateRequest(t *testing.T) {
	vars := map[string]VariableSpec{"a": {Interval: Interval{1, 10}, DecimalFraction: true}}
	conds := []string{"a > 2"}
	_, err := Generate(context.Background(), Request{Variables: vars, Conditions: conds, TargetCount: 2, Seed: 4})
	require.NoError(t, err)

	assert.Equal(t, map[string]VariableSpec{"a": {Interval: Interval{1, 10}, DecimalFraction: true}}, vars)
	assert.Equal(t, []string{"a > 2"}, conds)
}

func TestGenerateNoVariables(t *testing.T) {
	res, err := Generate(context.Background(), Request{TargetCount: 1, Seed: 1})
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, res.Status)
	assert.Equal(t, 0, res.Solutions[0].Len())
}

func TestGenerateRejectsInvalidRequests(t *testing.T) {
	tests := []struct {
		name string
		req  Request
		want error
	}{
		{"zero target", Request{TargetCount: 0}, ErrInvalidTargetCount},
		{"negative target", Request{TargetCount: -1}, ErrInvalidTargetCount},
		{"negative attempts", Request{TargetCount: 1, MaxAttemptsPerSolution: -5}, ErrInvalidAttemptBudget},
		{"negative time limit", Request{TargetCount: 1, WallClockLimit: -time.Second}, ErrInvalidTimeLimit},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := Generate(context.Background(), tt.req)
			assert.Nil(t, res)
			assert.True(t, errors.Is(err, tt.want), "got %v", err)
		})
	}
}

func TestStatusString(t *testing.T) {
	assert.Equal(t, "completed", StatusCompleted.String())
	assert.Equal(t, "insufficient_budget", StatusInsufficientBudget.String())
	assert.Equal(t, "canceled", StatusCanceled.String())
	assert.Equal(t, "unknown", Status(0).String())
}
