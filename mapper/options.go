package mapper

import (
	"github.com/kbukum/mapkit/errors"
	"github.com/kbukum/mapkit/logger"
	"github.com/kbukum/mapkit/observability"
)

// Unlimited removes a bound when passed to WithConcurrency or
// WithBackpressure.
const Unlimited = 0

// Option configures a Map or MapStream invocation.
type Option func(*options)

// WithConcurrency caps the number of tasks in flight. n must be a
// positive integer or Unlimited (the default).
func WithConcurrency(n int) Option {
	return func(o *options) { o.concurrency = n }
}

// WithBackpressure caps the number of pulled-but-unconsumed results a
// stream may accumulate ahead of its consumer. n must be a positive
// integer or Unlimited, and at least the concurrency bound. Defaults to
// the concurrency bound. Ignored by Map.
func WithBackpressure(n int) Option {
	return func(o *options) {
		o.backpressure = n
		o.backpressureSet = true
	}
}

// WithCollectErrors switches Map from fail-fast to collect mode: every
// task runs to completion and all failures are reported together in an
// *errors.AggregateError, in the order they were observed.
func WithCollectErrors() Option {
	return func(o *options) { o.collectErrors = true }
}

// WithCancelInFlight cancels the context passed to in-flight
// transformations once the invocation settles. By default in-flight
// tasks are left to finish on their own and their outcomes discarded.
func WithCancelInFlight() Option {
	return func(o *options) { o.cancelInFlight = true }
}

// WithLogger enables debug logging of scheduling decisions. Each
// invocation is tagged with a fresh invocation id.
func WithLogger(l *logger.Logger) Option {
	return func(o *options) { o.log = l }
}

// WithMetrics records task counts, durations, and errors on the given
// instruments.
func WithMetrics(m *observability.Metrics) Option {
	return func(o *options) { o.metrics = m }
}

type options struct {
	concurrency     int
	backpressure    int
	backpressureSet bool
	collectErrors   bool
	cancelInFlight  bool
	log             *logger.Logger
	metrics         *observability.Metrics
}

func newOptions(opts []Option) *options {
	o := &options{
		concurrency:  Unlimited,
		backpressure: Unlimited,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// validate checks the bounds before any work starts. Streaming
// invocations additionally require backpressure >= concurrency.
func (o *options) validate(streaming bool) error {
	if o.concurrency < 0 {
		return errors.OutOfRange("concurrency", "a positive integer or Unlimited", o.concurrency)
	}
	if !streaming {
		return nil
	}
	if o.backpressure < 0 {
		return errors.OutOfRange("backpressure", "a positive integer or Unlimited", o.backpressure)
	}
	if !o.backpressureSet {
		o.backpressure = o.concurrency
	}
	if o.backpressure != Unlimited && (o.concurrency == Unlimited || o.concurrency > o.backpressure) {
		return errors.OutOfRange("backpressure", "greater than or equal to concurrency", o.backpressure)
	}
	return nil
}

// invocationLogger tags the effective logger with the invocation id. When
// no logger was supplied via WithLogger it falls back to a registered
// "mapper" logger, so applications can enable scheduler logging once with
// logger.Register. Returns nil when neither is present.
func (o *options) invocationLogger(operation, invocationID string) *logger.Logger {
	log := o.log
	if log == nil {
		l, ok := logger.Lookup("mapper")
		if !ok {
			return nil
		}
		log = l
	}
	return log.WithFields(logger.Fields(
		logger.FieldComponent, "mapper",
		logger.FieldOperation, operation,
		logger.FieldInvocationID, invocationID,
	))
}

// validateCall rejects a nil source or transformation before any work
// starts.
func validateCall[I, O any](src Source[I], fn Func[I, O]) error {
	if src == nil {
		return errors.MissingField("source")
	}
	if fn == nil {
		return errors.MissingField("transform")
	}
	return nil
}
