package mapper

import (
	"context"
	"iter"
)

// Source provides pull-based sequential access to a stream of items.
// Next returns (zero, false, nil) when the source is exhausted. Next may
// block, so asynchronous producers plug in directly.
//
// A Source handed to Map or MapStream is owned by that invocation for its
// duration and is closed when the invocation settles.
type Source[T any] interface {
	// Next returns the next item. Returns (zero, false, nil) when exhausted.
	Next(ctx context.Context) (T, bool, error)
	// Close releases any resources held by the source.
	Close() error
}

// FromSlice creates a Source over a slice of items.
func FromSlice[T any](items []T) Source[T] {
	return &sliceSource[T]{items: items}
}

// FromChannel creates a Source that drains a channel. The source is
// exhausted when the channel is closed.
func FromChannel[T any](ch <-chan T) Source[T] {
	return &channelSource[T]{ch: ch}
}

// FromSeq creates a Source over an iter.Seq.
func FromSeq[T any](seq iter.Seq[T]) Source[T] {
	next, stop := iter.Pull(seq)
	return &seqSource[T]{next: next, stop: stop}
}

// FromFunc creates a Source from a pull function. The function must
// return (zero, false, nil) once exhausted; Close is a no-op.
func FromFunc[T any](next func(ctx context.Context) (T, bool, error)) Source[T] {
	return &funcSource[T]{next: next}
}

type sliceSource[T any] struct {
	items []T
	index int
}

func (s *sliceSource[T]) Next(_ context.Context) (T, bool, error) {
	if s.index >= len(s.items) {
		var zero T
		return zero, false, nil
	}
	item := s.items[s.index]
	s.index++
	return item, true, nil
}

func (s *sliceSource[T]) Close() error { return nil }

type channelSource[T any] struct {
	ch <-chan T
}

func (s *channelSource[T]) Next(ctx context.Context) (T, bool, error) {
	select {
	case item, open := <-s.ch:
		if !open {
			var zero T
			return zero, false, nil
		}
		return item, true, nil
	case <-ctx.Done():
		var zero T
		return zero, false, cancellationReason(ctx)
	}
}

func (s *channelSource[T]) Close() error { return nil }

type seqSource[T any] struct {
	next func() (T, bool)
	stop func()
}

func (s *seqSource[T]) Next(_ context.Context) (T, bool, error) {
	item, ok := s.next()
	if !ok {
		var zero T
		return zero, false, nil
	}
	return item, true, nil
}

func (s *seqSource[T]) Close() error {
	s.stop()
	return nil
}

type funcSource[T any] struct {
	next func(ctx context.Context) (T, bool, error)
}

func (s *funcSource[T]) Next(ctx context.Context) (T, bool, error) {
	return s.next(ctx)
}

func (s *funcSource[T]) Close() error { return nil }
