// Package generator produces random assignments of numbers to named variables
// that satisfy per-variable range constraints and a list of caller-supplied
// conditions, using pure rejection sampling.
package generator

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"sort"
	"time"

	"github.com/liamcoop/mathgen/expr"
	"github.com/liamcoop/mathgen/internal/logger"
)

const (
	// DefaultMaxAttemptsPerSolution multiplied by the target count bounds the
	// number of attempts in a run.
	DefaultMaxAttemptsPerSolution = 50_000

	// DefaultWallClockLimit bounds the duration of a run.
	DefaultWallClockLimit = 60 * time.Second
)

var (
	ErrInvalidTargetCount   = errors.New("target count must be positive")
	ErrInvalidAttemptBudget = errors.New("max attempts per solution must not be negative")
	ErrInvalidTimeLimit     = errors.New("wall clock limit must not be negative")
)

// now is replaced in tests to simulate a slow run.
var now = time.Now

// Request describes one generation run. Variables and Conditions are only
// read, never modified.
type Request struct {
	Variables map[string]VariableSpec

	// Conditions must all be satisfied by every solution.
	Conditions []string

	// TargetCount is the number of distinct solutions wanted.
	TargetCount int

	// IsCanceled is polled once per attempt. It may be nil.
	IsCanceled func() bool

	// MaxAttemptsPerSolution defaults to DefaultMaxAttemptsPerSolution.
	MaxAttemptsPerSolution int

	// WallClockLimit defaults to DefaultWallClockLimit.
	WallClockLimit time.Duration

	// Seed makes the run reproducible. Zero picks a random seed, which is
	// reported in the Result.
	Seed int64
}

func (r Request) validate() error {
	if r.TargetCount <= 0 {
		return fmt.Errorf("%w: got %d", ErrInvalidTargetCount, r.TargetCount)
	}
	if r.MaxAttemptsPerSolution < 0 {
		return fmt.Errorf("%w: got %d", ErrInvalidAttemptBudget, r.MaxAttemptsPerSolution)
	}
	if r.WallClockLimit < 0 {
		return fmt.Errorf("%w: got %s", ErrInvalidTimeLimit, r.WallClockLimit)
	}
	return nil
}

// CompileConditions compiles each condition once. A condition that does not
// compile is kept: it evaluates to Undefined, so it fails every attempt.
func CompileConditions(conditions []string) []*expr.Program {
	programs := make([]*expr.Program, len(conditions))
	for i, c := range conditions {
		p, err := expr.Compile(c)
		if err != nil {
			logger.Warn("condition does not compile", "condition", c, "error", err.Error())
		}
		programs[i] = p
	}
	return programs
}

// Generate samples candidate assignments until TargetCount distinct solutions
// satisfy every condition, the budget runs out, or the run is canceled
// through ctx or req.IsCanceled. Only an invalid request returns an error;
// every run-time outcome is reported through Result.Status.
func Generate(ctx context.Context, req Request) (*Result, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}

	maxPerSolution := req.MaxAttemptsPerSolution
	if maxPerSolution == 0 {
		maxPerSolution = DefaultMaxAttemptsPerSolution
	}
	limit := req.WallClockLimit
	if limit == 0 {
		limit = DefaultWallClockLimit
	}
	budget := int64(maxPerSolution) * int64(req.TargetCount)
	if budget > math.MaxInt {
		budget = math.MaxInt
	}

	seed := req.Seed
	if seed == 0 {
		var err error
		if seed, err = NewSeed(); err != nil {
			return nil, err
		}
	}
	sampler := NewSampler(rand.New(rand.NewSource(seed)))

	// stable sampling order
	names := make([]string, 0, len(req.Variables))
	for name := range req.Variables {
		names = append(names, name)
	}
	sort.Strings(names)
	specs := make([]VariableSpec, len(names))
	for i, name := range names {
		specs[i] = req.Variables[name]
	}

	conditions := CompileConditions(req.Conditions)

	canceled := func() bool {
		if ctx.Err() != nil {
			return true
		}
		return req.IsCanceled != nil && req.IsCanceled()
	}

	logger.RunsStarted.Add(1)
	logger.Debug("generation started",
		"variables", len(names),
		"conditions", len(conditions),
		"target", req.TargetCount,
		"budget", budget,
		"seed", seed,
	)

	start := now()
	res := &Result{Seed: seed}
	seen := make(map[uint64][]int, req.TargetCount) // hash -> indexes into found
	found := make([]Solution, 0, req.TargetCount)

	// The binding is reused across attempts. Every key is overwritten before
	// conditions are tested, and a partially filled binding is never read.
	binding := make(expr.Binding, len(names))

	finish := func(status Status) (*Result, error) {
		res.Status = status
		res.Elapsed = now().Sub(start)
		logger.AttemptsTotal.Add(int64(res.Attempts))

		switch status {
		case StatusCompleted:
			res.Solutions = found
			logger.RunsCompleted.Add(1)
			logger.SolutionsTotal.Add(int64(len(found)))
			logger.Debug("generation completed", "solutions", len(found), "attempts", res.Attempts, "elapsed", res.Elapsed)
		case StatusCanceled:
			logger.RunsCanceled.Add(1)
			logger.Info("generation canceled", "attempts", res.Attempts, "elapsed", res.Elapsed)
		case StatusInsufficientBudget:
			logger.RunsInsufficientBudget.Add(1)
			logger.Warn("generation ran out of budget",
				"found", len(found),
				"target", req.TargetCount,
				"attempts", res.Attempts,
				"elapsed", res.Elapsed,
			)
		}
		return res, nil
	}

attempts:
	for int64(res.Attempts) < budget {
		if canceled() {
			return finish(StatusCanceled)
		}
		if now().Sub(start) > limit {
			return finish(StatusInsufficientBudget)
		}
		res.Attempts++

		for i, name := range names {
			v, ok := sampler.Sample(specs[i])
			if !ok {
				continue attempts
			}
			binding[name] = v
		}

		for _, c := range conditions {
			if !c.Test(binding) {
				continue attempts
			}
		}

		sol := NewSolution(binding)
		h := sol.Hash()
		for _, i := range seen[h] {
			if found[i].Equal(sol) {
				continue attempts
			}
		}
		seen[h] = append(seen[h], len(found))
		found = append(found, sol)
		if len(found) == req.TargetCount {
			return finish(StatusCompleted)
		}
	}

	return finish(StatusInsufficientBudget)
}
