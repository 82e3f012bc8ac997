package mapper

import (
	"context"
	"time"

	"github.com/kbukum/mapkit/logger"
	"github.com/kbukum/mapkit/observability"
)

// TracedFunc wraps a transformation with OpenTelemetry span creation.
// Each item runs in its own span carrying the item index.
func TracedFunc[I, O any](fn Func[I, O]) Func[I, O] {
	return func(ctx context.Context, item I, index int) (O, error) {
		ctx, span := observability.StartSpan(ctx, observability.SpanTask)
		defer span.End()

		observability.SetSpanAttribute(ctx, observability.AttrIndex, index)

		out, err := fn(ctx, item, index)
		if err != nil && !IsSkip(err) {
			observability.SetSpanError(ctx, err)
		}
		return out, err
	}
}

// MeasuredFunc wraps a transformation with metric recording. Records
// per-item count, duration, and errors.
func MeasuredFunc[I, O any](fn Func[I, O], metrics *observability.Metrics) Func[I, O] {
	return func(ctx context.Context, item I, index int) (O, error) {
		metrics.RecordTaskStart(ctx)
		start := time.Now()
		out, err := fn(ctx, item, index)
		duration := time.Since(start)

		skip := IsSkip(err)
		if err != nil && !skip {
			metrics.RecordError(ctx, "transform", "mapper")
		}
		metrics.RecordTaskEnd(ctx, "mapper", "transform", taskStatus(skip, errOrNil(err, skip)), duration)
		return out, err
	}
}

// LoggedFunc wraps a transformation with per-item logging. Logs the
// item index, duration, and outcome.
func LoggedFunc[I, O any](fn Func[I, O], log *logger.Logger) Func[I, O] {
	return func(ctx context.Context, item I, index int) (O, error) {
		start := time.Now()
		out, err := fn(ctx, item, index)

		fields := logger.Fields(
			logger.FieldIndex, index,
			"duration", time.Since(start).String(),
		)
		switch {
		case IsSkip(err):
			log.Debug("item skipped", fields)
		case err != nil:
			log.Error("item failed", logger.MergeWithError(fields, err))
		default:
			log.Debug("item transformed", fields)
		}
		return out, err
	}
}

func errOrNil(err error, skip bool) error {
	if skip {
		return nil
	}
	return err
}
