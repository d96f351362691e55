package conflict

import (
	"context"

	"github.com/fulmenhq/metaguard/pkg/logger"
)

// Checker is one step of the conflict pipeline. Implementations return a
// cancelled input unchanged.
type Checker[T any] interface {
	Check(ctx context.Context, in Result[T]) Result[T]
}

// CheckerFunc adapts a function to the Checker interface.
type CheckerFunc[T any] func(ctx context.Context, in Result[T]) Result[T]

// Check calls f unless the input is already cancelled.
func (f CheckerFunc[T]) Check(ctx context.Context, in Result[T]) Result[T] {
	if in.Cancelled() {
		return in
	}
	return f(ctx, in)
}

// Chain runs checkers in order and stops at the first cancellation.
type Chain[T any] struct {
	checkers []Checker[T]
}

// NewChain builds a chain over the given checkers.
func NewChain[T any](checkers ...Checker[T]) *Chain[T] {
	return &Chain[T]{checkers: checkers}
}

// Len returns the number of steps.
func (c *Chain[T]) Len() int { return len(c.checkers) }

// Check implements Checker.
func (c *Chain[T]) Check(ctx context.Context, in Result[T]) Result[T] {
	out := in
	for i, checker := range c.checkers {
		if out.Cancelled() {
			logger.Debug("Conflict chain short-circuited", logger.Int("step", i), logger.Int("steps", len(c.checkers)))
			return out
		}
		out = checker.Check(ctx, out)
	}
	return out
}

// Empty passes every input through. It stands in for the pipeline when
// conflict checking is turned off.
type Empty[T any] struct{}

// Check implements Checker.
func (Empty[T]) Check(_ context.Context, in Result[T]) Result[T] { return in }
