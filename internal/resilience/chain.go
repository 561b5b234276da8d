package resilience

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

// ErrNoMatch is returned by a chain step to decline an input without treating
// the step as broken: the chain moves on to the next step.
var ErrNoMatch = errors.New("step produced no match")

// ErrExhausted is returned when every step in a [Chain] has either declined or
// failed.
var ErrExhausted = errors.New("all steps exhausted")

// Step is a single named strategy in a [Chain].
type Step[In, Out any] struct {
	// Name labels the step in logs and in [Chain.Run] results.
	Name string

	// Run attempts to produce an output for the input. Returning [ErrNoMatch]
	// (possibly wrapped) passes the input to the next step.
	Run func(ctx context.Context, in In) (Out, error)
}

// Chain tries an ordered list of strategies against an input until one
// produces a result. Steps earlier in the list are preferred; later steps are
// cheaper or cruder fallbacks that only see inputs the earlier ones declined
// or failed on.
//
// Chain is safe for concurrent use once assembled; [Chain.Append] must not be
// called concurrently with [Chain.Run].
type Chain[In, Out any] struct {
	steps []Step[In, Out]
}

// NewChain creates a [Chain] from the given steps, tried in order.
func NewChain[In, Out any](steps ...Step[In, Out]) *Chain[In, Out] {
	return &Chain[In, Out]{steps: steps}
}

// Append adds a step after the existing ones.
func (c *Chain[In, Out]) Append(step Step[In, Out]) {
	c.steps = append(c.steps, step)
}

// Run feeds in to each step in order and returns the first successful output
// along with the name of the step that produced it. A step returning
// [ErrNoMatch] is skipped silently; any other error is logged and the next
// step is tried. When no step succeeds the result is [ErrExhausted] wrapped
// with the last real error, if any.
func (c *Chain[In, Out]) Run(ctx context.Context, in In) (Out, string, error) {
	var (
		lastErr error
		zero    Out
	)
	for _, step := range c.steps {
		if err := ctx.Err(); err != nil {
			return zero, "", err
		}
		out, err := step.Run(ctx, in)
		if err == nil {
			return out, step.Name, nil
		}
		if errors.Is(err, ErrNoMatch) {
			slog.Debug("chain step declined", "step", step.Name)
			continue
		}
		lastErr = err
		slog.Warn("chain step failed, trying next",
			"step", step.Name, "error", err)
	}
	if lastErr == nil {
		return zero, "", ErrExhausted
	}
	return zero, "", fmt.Errorf("%w: %v", ErrExhausted, lastErr)
}
