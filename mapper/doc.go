// Package mapper provides concurrency-bounded, order-preserving mapping
// over pull-based sources.
//
// Map runs a transformation over every item of a Source with up to a
// configured number of tasks in flight, and returns the results in input
// order once the source is exhausted. MapStream produces the same ordered
// results lazily, with a second, independent bound on how many
// completed-but-unconsumed results may accumulate ahead of the consumer.
//
// Work is pulled one item at a time — the source is never materialized as
// a whole, so infinite or very large sources are fine as long as a bound
// is configured.
//
// # Semantics
//
//   - Output order equals pull order equals input order, no matter in
//     which order tasks finish.
//   - A transformation may return Skip to omit its item from the output.
//   - Errors fail the call with the first error observed (default), or
//     are collected into an errors.AggregateError with WithCollectErrors.
//   - Cancellation is cooperative: a canceled context stops admission of
//     new work and fails the call, but tasks already in flight are left
//     to finish on their own and their outcomes are discarded.
//
// # Usage
//
//	out, err := mapper.MapSlice(ctx, []int{1, 2, 3},
//	    func(ctx context.Context, n, _ int) (int, error) { return n * 2, nil },
//	    mapper.WithConcurrency(2),
//	)
//	// out == []int{2, 4, 6}
//
// Streaming with backpressure:
//
//	stream, err := mapper.MapStream(ctx, src, fetch,
//	    mapper.WithConcurrency(4),
//	    mapper.WithBackpressure(8),
//	)
//	defer stream.Close()
//	for {
//	    v, ok, err := stream.Next(ctx)
//	    ...
//	}
package mapper
