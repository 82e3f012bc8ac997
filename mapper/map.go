package mapper

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/kbukum/mapkit/errors"
	"github.com/kbukum/mapkit/logger"
	"github.com/kbukum/mapkit/observability"
)

// Map pulls every item from src, applies fn to each with bounded
// concurrency, and returns the results in input order. Items for which
// fn returns Skip are omitted; the remaining results are compacted so
// the output has no gaps.
//
// By default the first failure settles the call with that exact error
// and in-flight tasks are discarded. WithCollectErrors defers
// settlement until every task finishes and reports all failures in an
// *errors.AggregateError. Cancellation of ctx settles the call with the
// cancellation cause.
func Map[I, O any](ctx context.Context, src Source[I], fn Func[I, O], opts ...Option) ([]O, error) {
	if err := validateCall(src, fn); err != nil {
		return nil, err
	}
	o := newOptions(opts)
	if err := o.validate(false); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, cancellationReason(ctx)
	}
	defer src.Close()

	ctx, span := observability.StartSpan(ctx, observability.SpanMap)
	defer span.End()
	invocationID := uuid.NewString()
	observability.SetSpanAttribute(ctx, observability.AttrInvocationID, invocationID)
	observability.SetSpanAttribute(ctx, observability.AttrConcurrency, o.concurrency)

	log := o.invocationLogger("map", invocationID)
	start := time.Now()

	out, err := runBatch(ctx, src, fn, o, log)
	observability.SetSpanAttribute(ctx, observability.AttrDurationMs, float64(time.Since(start))/float64(time.Millisecond))
	if err != nil {
		observability.SetSpanError(ctx, err)
		observability.SetSpanAttribute(ctx, observability.AttrStatus, "error")
		if log != nil {
			log.Error("map settled with error", logger.MergeWithError(logger.DurationFields("map", time.Since(start)), err))
		}
		return nil, err
	}
	observability.SetSpanAttribute(ctx, observability.AttrStatus, "ok")
	if log != nil {
		log.Debug("map settled", logger.DurationFields("map", time.Since(start)))
	}
	return out, nil
}

// MapSlice is a convenience wrapper over Map for in-memory inputs.
func MapSlice[I, O any](ctx context.Context, items []I, fn Func[I, O], opts ...Option) ([]O, error) {
	return Map(ctx, FromSlice(items), fn, opts...)
}

// slot holds one task's settled result until compaction.
type slot[O any] struct {
	value O
	skip  bool
}

func runBatch[I, O any](ctx context.Context, src Source[I], fn Func[I, O], o *options, log *logger.Logger) ([]O, error) {
	// runCtx outlives individual tasks only as long as the invocation
	// itself; cancelling it on settlement lets abandoned task
	// goroutines unblock from the done send and exit.
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	taskCtx := ctx
	if o.cancelInFlight {
		taskCtx = runCtx
	}

	var (
		slots     []slot[O]
		errs      []error
		running   int
		exhausted bool
		srcErr    error
	)
	done := make(chan outcome[O])

	spawn := func(item I, index int) {
		if log != nil {
			log.Debug("task started", logger.Fields(
				logger.FieldIndex, index,
				logger.FieldRunning, running,
			))
		}
		go func() {
			if o.metrics != nil {
				o.metrics.RecordTaskStart(taskCtx)
			}
			start := time.Now()
			out := runTask(taskCtx, item, index, fn)
			if o.metrics != nil {
				o.metrics.RecordTaskEnd(taskCtx, "mapper", "map", taskStatus(out.skip, out.err), time.Since(start))
			}
			select {
			case done <- out:
			case <-runCtx.Done():
			}
		}()
	}

	// pull assigns the next dense index and starts a task, repeating
	// while the concurrency bound allows. Once the source reports
	// exhaustion or an error it is never consulted again.
	pull := func() {
		for !exhausted && (o.concurrency == Unlimited || running < o.concurrency) {
			item, ok, err := src.Next(runCtx)
			if err != nil {
				exhausted = true
				srcErr = err
				return
			}
			if !ok {
				exhausted = true
				return
			}
			index := len(slots)
			slots = append(slots, slot[O]{})
			running++
			spawn(item, index)
		}
	}

	pull()
	if srcErr != nil && !o.collectErrors {
		return nil, srcErr
	}

	for running > 0 {
		select {
		case out := <-done:
			running--
			switch {
			case out.err != nil:
				if !o.collectErrors {
					return nil, out.err
				}
				errs = append(errs, out.err)
			case out.skip:
				slots[out.index].skip = true
			default:
				slots[out.index].value = out.value
			}
			if srcErr == nil {
				pull()
				if srcErr != nil && !o.collectErrors {
					return nil, srcErr
				}
			}
		case <-ctx.Done():
			return nil, cancellationReason(ctx)
		}
	}

	// Reaching here with a source error implies collect mode; fail-fast
	// settled at pull time.
	if srcErr != nil {
		errs = append(errs, srcErr)
	}
	if len(errs) > 0 {
		return nil, errors.NewAggregate(errs)
	}

	out := make([]O, 0, len(slots))
	for _, s := range slots {
		if s.skip {
			continue
		}
		out = append(out, s.value)
	}
	return out, nil
}

func taskStatus(skip bool, err error) string {
	switch {
	case err != nil:
		return "error"
	case skip:
		return "skipped"
	default:
		return "ok"
	}
}
