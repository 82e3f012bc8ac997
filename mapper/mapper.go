package mapper

import (
	"context"
	stderrors "errors"
)

// Func is the transformation applied to each pulled item. It receives the
// zero-based pull index alongside the item. Returning Skip (or an error
// wrapping Skip) omits the item from the output without failing the call.
type Func[I, O any] func(ctx context.Context, item I, index int) (O, error)

// Skip signals that an item should be omitted from the output. It is the
// one process-wide sentinel of this package; every other piece of state is
// scoped to a single Map or MapStream invocation.
var Skip = stderrors.New("mapper: skip item")

// IsSkip reports whether err is, or wraps, the Skip sentinel.
func IsSkip(err error) bool {
	return stderrors.Is(err, Skip)
}

// Deferred is an item that is not yet available. Resolving it may block
// and may fail.
type Deferred[T any] func(ctx context.Context) (T, error)

// Resolved adapts fn over plain items into a Func over deferred items.
// Resolution runs inside the task, under the concurrency bound, and a
// resolution failure is classified like any other task failure.
func Resolved[I, O any](fn Func[I, O]) Func[Deferred[I], O] {
	return func(ctx context.Context, d Deferred[I], index int) (O, error) {
		item, err := d(ctx)
		if err != nil {
			var zero O
			return zero, err
		}
		return fn(ctx, item, index)
	}
}

// outcome is the classified result of running one task.
type outcome[O any] struct {
	index int
	value O
	skip  bool
	err   error
}

// runTask executes fn for one pulled item and classifies the result as a
// value, a skip, or a failure. A task never retries and never runs twice
// for the same index.
func runTask[I, O any](ctx context.Context, item I, index int, fn Func[I, O]) outcome[O] {
	value, err := fn(ctx, item, index)
	switch {
	case err == nil:
		return outcome[O]{index: index, value: value}
	case stderrors.Is(err, Skip):
		return outcome[O]{index: index, skip: true}
	default:
		return outcome[O]{index: index, err: err}
	}
}

// cancellationReason extracts the reason a context was canceled with,
// falling back to the plain context error.
func cancellationReason(ctx context.Context) error {
	if cause := context.Cause(ctx); cause != nil {
		return cause
	}
	return ctx.Err()
}
