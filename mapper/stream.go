package mapper

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kbukum/mapkit/logger"
	"github.com/kbukum/mapkit/observability"
)

// MapStream applies fn to items pulled from src and exposes the results
// as a Source in input order. Pulling is demand-driven: no work starts
// until the first Next call, and the backpressure bound caps how many
// results may sit pulled-but-unconsumed ahead of the consumer.
//
// Streaming is always fail-fast: the first failure is surfaced from
// Next in the position the failing item occupied, after every earlier
// result has been delivered. Option validation errors are returned
// synchronously.
func MapStream[I, O any](ctx context.Context, src Source[I], fn Func[I, O], opts ...Option) (*Stream[O], error) {
	if err := validateCall(src, fn); err != nil {
		return nil, err
	}
	o := newOptions(opts)
	if err := o.validate(true); err != nil {
		return nil, err
	}

	runCtx, cancel := context.WithCancel(ctx)
	s := &Stream[O]{
		cancel: cancel,
		queue:  newHandleQueue[O](),
	}
	s.start = func() { go runStream(runCtx, src, fn, o, s) }
	return s, nil
}

// Stream is the ordered result side of a MapStream invocation. It
// implements Source[O]. A Stream is not safe for concurrent Next calls.
type Stream[O any] struct {
	once   sync.Once
	start  func()
	cancel context.CancelFunc
	queue  *handleQueue[O]

	done bool
	err  error
}

// Next returns the next result in input order. It reports ok=false once
// the input is exhausted and every surviving result has been delivered.
// After a failure or cancellation Next keeps returning the same error.
func (s *Stream[O]) Next(ctx context.Context) (O, bool, error) {
	var zero O
	s.once.Do(s.start)

	for {
		if s.done {
			return zero, false, s.err
		}
		h, ok, err := s.queue.peek(ctx)
		if err != nil {
			s.fail(cancellationReason(ctx))
			return zero, false, s.err
		}
		if !ok {
			s.done = true
			return zero, false, nil
		}

		var out outcome[O]
		select {
		case out = <-h.ch:
		case <-ctx.Done():
			s.fail(cancellationReason(ctx))
			return zero, false, s.err
		}
		s.queue.dropHead()

		switch {
		case out.err != nil:
			s.fail(out.err)
			return zero, false, s.err
		case out.skip:
			continue
		default:
			return out.value, true, nil
		}
	}
}

// Close stops pulling from the input and releases the dispatcher. It is
// safe to call at any point, including before the first Next.
func (s *Stream[O]) Close() error {
	s.cancel()
	s.done = true
	return nil
}

// Collect drains the stream into a slice, in input order.
func (s *Stream[O]) Collect(ctx context.Context) ([]O, error) {
	defer s.Close()
	var out []O
	for {
		v, ok, err := s.Next(ctx)
		if err != nil {
			return nil, err
		}
		if !ok {
			return out, nil
		}
		out = append(out, v)
	}
}

func (s *Stream[O]) fail(err error) {
	s.done = true
	s.err = err
	s.cancel()
}

// handle carries one pending result from its task to the consumer. The
// channel is buffered so the task never blocks on delivery.
type handle[O any] struct {
	ch chan outcome[O]
}

func newHandle[O any]() *handle[O] {
	return &handle[O]{ch: make(chan outcome[O], 1)}
}

// runStream is the dispatcher: it pulls items one at a time, queues a
// handle per item in pull order, and runs the transformation under the
// concurrency bound. Backpressure tokens are acquired before pulling
// and released by the consumer, so pulled-but-unconsumed results never
// exceed the bound.
func runStream[I, O any](ctx context.Context, src Source[I], fn Func[I, O], o *options, s *Stream[O]) {
	defer src.Close()
	defer s.queue.close()

	ctx, span := observability.StartSpan(ctx, observability.SpanMapStream)
	defer span.End()
	invocationID := uuid.NewString()
	observability.SetSpanAttribute(ctx, observability.AttrInvocationID, invocationID)
	observability.SetSpanAttribute(ctx, observability.AttrConcurrency, o.concurrency)
	observability.SetSpanAttribute(ctx, observability.AttrBackpressure, o.backpressure)

	log := o.invocationLogger("map_stream", invocationID)

	sem := newSemaphore(o.concurrency)
	index := 0
	for {
		if !s.queue.acquireSlot(ctx, o.backpressure) {
			return
		}
		if !sem.acquire(ctx) {
			return
		}

		item, ok, err := src.Next(ctx)
		if err != nil {
			h := newHandle[O]()
			h.ch <- outcome[O]{index: index, err: err}
			s.queue.push(h)
			return
		}
		if !ok {
			return
		}

		h := newHandle[O]()
		s.queue.push(h)
		if log != nil {
			log.Debug("task started", logger.Fields(logger.FieldIndex, index))
		}
		go func(item I, index int, h *handle[O]) {
			defer sem.release()
			if o.metrics != nil {
				o.metrics.RecordTaskStart(ctx)
			}
			start := time.Now()
			out := runTask(ctx, item, index, fn)
			if o.metrics != nil {
				o.metrics.RecordTaskEnd(ctx, "mapper", "map_stream", taskStatus(out.skip, out.err), time.Since(start))
			}
			h.ch <- out
		}(item, index, h)
		index++
	}
}

// semaphore bounds task concurrency with the acquire-by-send idiom. A
// nil channel means unlimited.
type semaphore struct {
	ch chan struct{}
}

func newSemaphore(n int) *semaphore {
	if n == Unlimited {
		return &semaphore{}
	}
	return &semaphore{ch: make(chan struct{}, n)}
}

func (s *semaphore) acquire(ctx context.Context) bool {
	if s.ch == nil {
		return ctx.Err() == nil
	}
	select {
	case s.ch <- struct{}{}:
		return true
	case <-ctx.Done():
		return false
	}
}

func (s *semaphore) release() {
	if s.ch != nil {
		<-s.ch
	}
}

// handleQueue is the FIFO of pending results connecting the dispatcher
// to the consumer. The consumer side also accounts for backpressure:
// a slot is acquired before each pull and released when the consumer
// takes the head.
type handleQueue[O any] struct {
	mu      sync.Mutex
	items   []*handle[O]
	pending int
	closed  bool
	notify  chan struct{}
	freed   chan struct{}
}

func newHandleQueue[O any]() *handleQueue[O] {
	return &handleQueue[O]{
		notify: make(chan struct{}, 1),
		freed:  make(chan struct{}, 1),
	}
}

// acquireSlot blocks until the number of pulled-but-unconsumed handles
// drops below the backpressure bound. Returns false on cancellation.
func (q *handleQueue[O]) acquireSlot(ctx context.Context, bound int) bool {
	for {
		q.mu.Lock()
		if bound == Unlimited || q.pending < bound {
			q.pending++
			q.mu.Unlock()
			return true
		}
		q.mu.Unlock()
		select {
		case <-q.freed:
		case <-ctx.Done():
			return false
		}
	}
}

func (q *handleQueue[O]) push(h *handle[O]) {
	q.mu.Lock()
	q.items = append(q.items, h)
	q.mu.Unlock()
	q.signal(q.notify)
}

func (q *handleQueue[O]) close() {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()
	q.signal(q.notify)
}

// peek blocks until a head handle exists or the queue is closed empty.
// The head is left in place; dropHead removes it after consumption.
func (q *handleQueue[O]) peek(ctx context.Context) (*handle[O], bool, error) {
	for {
		q.mu.Lock()
		if len(q.items) > 0 {
			h := q.items[0]
			q.mu.Unlock()
			return h, true, nil
		}
		if q.closed {
			q.mu.Unlock()
			return nil, false, nil
		}
		q.mu.Unlock()
		select {
		case <-q.notify:
		case <-ctx.Done():
			return nil, false, ctx.Err()
		}
	}
}

func (q *handleQueue[O]) dropHead() {
	q.mu.Lock()
	if len(q.items) > 0 {
		q.items = q.items[1:]
		q.pending--
	}
	q.mu.Unlock()
	q.signal(q.freed)
}

func (q *handleQueue[O]) signal(ch chan struct{}) {
	select {
	case ch <- struct{}{}:
	default:
	}
}
