package mapper

import (
	"context"
	stderrors "errors"
	"fmt"
	"math/rand"
	"sync/atomic"
	"testing"
	"time"

	"github.com/kbukum/mapkit/errors"
)

func double(_ context.Context, item int, _ int) (int, error) {
	return item * 2, nil
}

func TestMapSlice(t *testing.T) {
	got, err := MapSlice(context.Background(), []int{1, 2, 3}, double, WithConcurrency(2))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []int{2, 4, 6}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("item %d: got %d, want %d", i, got[i], want[i])
		}
	}
}

func TestMapEmptyInput(t *testing.T) {
	got, err := MapSlice(context.Background(), nil, double)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("got %v, want empty", got)
	}
}

func TestMapPreservesOrderUnderRandomCompletion(t *testing.T) {
	items := make([]int, 200)
	for i := range items {
		items[i] = i
	}

	got, err := MapSlice(context.Background(), items, func(ctx context.Context, item int, _ int) (int, error) {
		time.Sleep(time.Duration(rand.Intn(3)) * time.Millisecond)
		return item, nil
	}, WithConcurrency(16))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != len(items) {
		t.Fatalf("got %d results, want %d", len(got), len(items))
	}
	for i, v := range got {
		if v != i {
			t.Fatalf("position %d holds %d; output order must match input order", i, v)
		}
	}
}

// raisePeak records n as the peak if it exceeds the current one.
func raisePeak(peak *atomic.Int64, n int64) {
	for {
		p := peak.Load()
		if n <= p || peak.CompareAndSwap(p, n) {
			return
		}
	}
}

func TestMapConcurrencyBound(t *testing.T) {
	const bound = 4
	var active, peak atomic.Int64

	_, err := MapSlice(context.Background(), make([]struct{}, 100), func(ctx context.Context, _ struct{}, _ int) (struct{}, error) {
		raisePeak(&peak, active.Add(1))
		time.Sleep(time.Millisecond)
		active.Add(-1)
		return struct{}{}, nil
	}, WithConcurrency(bound))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p := peak.Load(); p > bound {
		t.Errorf("observed %d concurrent tasks, bound is %d", p, bound)
	}
}

func TestMapSkip(t *testing.T) {
	got, err := MapSlice(context.Background(), []int{1, 2, 3, 4}, func(ctx context.Context, item int, _ int) (int, error) {
		if item == 3 {
			return 0, Skip
		}
		return item, nil
	}, WithConcurrency(2))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []int{1, 2, 4}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("item %d: got %d, want %d", i, got[i], want[i])
		}
	}
}

func TestMapWrappedSkip(t *testing.T) {
	got, err := MapSlice(context.Background(), []int{1, 2}, func(ctx context.Context, item int, _ int) (int, error) {
		if item == 2 {
			return 0, fmt.Errorf("row %d empty: %w", item, Skip)
		}
		return item, nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 || got[0] != 1 {
		t.Errorf("got %v, want [1]", got)
	}
}

func TestMapFailFastReturnsExactError(t *testing.T) {
	boom := stderrors.New("item 2 exploded")
	_, err := MapSlice(context.Background(), []int{1, 2, 3}, func(ctx context.Context, item int, _ int) (int, error) {
		if item == 2 {
			return 0, boom
		}
		return item, nil
	}, WithConcurrency(1))
	if err != boom {
		t.Errorf("got %v, want the exact task error", err)
	}
}

func TestMapCollectErrors(t *testing.T) {
	_, err := MapSlice(context.Background(), []int{1, 2, 3, 4}, func(ctx context.Context, item int, _ int) (int, error) {
		if item%2 == 0 {
			return 0, fmt.Errorf("item %d failed", item)
		}
		return item, nil
	}, WithConcurrency(2), WithCollectErrors())
	if err == nil {
		t.Fatal("expected an aggregate error")
	}

	var agg *errors.AggregateError
	if !stderrors.As(err, &agg) {
		t.Fatalf("got %T, want *errors.AggregateError", err)
	}
	if len(agg.Errors) != 2 {
		t.Errorf("aggregate holds %d errors, want 2", len(agg.Errors))
	}
}

func TestMapCollectRunsAllTasks(t *testing.T) {
	var completed atomic.Int64
	_, err := MapSlice(context.Background(), make([]int, 20), func(ctx context.Context, _ int, index int) (int, error) {
		defer completed.Add(1)
		if index == 0 {
			return 0, stderrors.New("first one fails")
		}
		time.Sleep(time.Millisecond)
		return index, nil
	}, WithConcurrency(4), WithCollectErrors())
	if err == nil {
		t.Fatal("expected an error")
	}
	if n := completed.Load(); n != 20 {
		t.Errorf("%d tasks completed, want 20: collect mode must not settle early", n)
	}
}

func TestMapCancellation(t *testing.T) {
	reason := stderrors.New("deadline moved up")
	ctx, cancel := context.WithCancelCause(context.Background())

	started := make(chan struct{})
	go func() {
		<-started
		cancel(reason)
	}()

	var once atomic.Bool
	_, err := MapSlice(ctx, make([]int, 50), func(ctx context.Context, _ int, _ int) (int, error) {
		if once.CompareAndSwap(false, true) {
			close(started)
		}
		time.Sleep(50 * time.Millisecond)
		return 0, nil
	}, WithConcurrency(2))
	if !stderrors.Is(err, reason) {
		t.Errorf("got %v, want the cancellation cause", err)
	}
}

func TestMapPreCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var calls atomic.Int64
	_, err := MapSlice(ctx, []int{1, 2, 3}, func(ctx context.Context, item int, _ int) (int, error) {
		calls.Add(1)
		return item, nil
	})
	if !stderrors.Is(err, context.Canceled) {
		t.Errorf("got %v, want context.Canceled", err)
	}
	if calls.Load() != 0 {
		t.Error("transformation ran despite pre-cancelled context")
	}
}

func TestMapSourceError(t *testing.T) {
	srcErr := stderrors.New("upstream gone")

	t.Run("fail-fast surfaces the source error", func(t *testing.T) {
		i := 0
		src := FromFunc(func(ctx context.Context) (int, bool, error) {
			if i >= 2 {
				return 0, false, srcErr
			}
			i++
			return i, true, nil
		})
		_, err := Map(context.Background(), src, double, WithConcurrency(1))
		if err != srcErr {
			t.Errorf("got %v, want the exact source error", err)
		}
	})

	t.Run("never pulls again after a source error", func(t *testing.T) {
		pulls := 0
		src := FromFunc(func(ctx context.Context) (int, bool, error) {
			pulls++
			if pulls == 2 {
				return 0, false, srcErr
			}
			return pulls, true, nil
		})
		_, err := Map(context.Background(), src, double, WithConcurrency(4), WithCollectErrors())
		if err == nil {
			t.Fatal("expected an error")
		}
		if pulls != 2 {
			t.Errorf("source pulled %d times after failing, want 2 total", pulls)
		}
	})
}

func TestMapValidation(t *testing.T) {
	tests := []struct {
		name string
		run  func() error
		code errors.ErrorCode
	}{
		{
			name: "nil source",
			run: func() error {
				_, err := Map[int, int](context.Background(), nil, double)
				return err
			},
			code: errors.ErrCodeMissingField,
		},
		{
			name: "nil transform",
			run: func() error {
				_, err := Map[int, int](context.Background(), FromSlice([]int{1}), nil)
				return err
			},
			code: errors.ErrCodeMissingField,
		},
		{
			name: "negative concurrency",
			run: func() error {
				_, err := MapSlice(context.Background(), []int{1}, double, WithConcurrency(-1))
				return err
			},
			code: errors.ErrCodeOutOfRange,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.run()
			if err == nil {
				t.Fatal("expected an error")
			}
			if got := errors.CodeOf(err); got != tt.code {
				t.Errorf("got code %s, want %s", got, tt.code)
			}
		})
	}
}

func TestMapAllSkipped(t *testing.T) {
	const n = 10_000
	got, err := MapSlice(context.Background(), make([]int, n), func(ctx context.Context, _ int, _ int) (int, error) {
		return 0, Skip
	}, WithConcurrency(8))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("got %d results from an all-skipped input, want 0", len(got))
	}
}

func TestMapSkipScalesLinearly(t *testing.T) {
	if testing.Short() {
		t.Skip("timing comparison")
	}

	skipAll := func(ctx context.Context, _ int, _ int) (int, error) {
		return 0, Skip
	}
	measure := func(n int) time.Duration {
		best := time.Duration(1<<63 - 1)
		for range 3 {
			start := time.Now()
			got, err := MapSlice(context.Background(), make([]int, n), skipAll, WithConcurrency(8))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(got) != 0 {
				t.Fatalf("got %d results from an all-skipped input, want 0", len(got))
			}
			if d := time.Since(start); d < best {
				best = d
			}
		}
		return best
	}

	small := measure(1_000)
	large := measure(10_000)

	// Skip bookkeeping must stay linear in the input size: 10x the items
	// should cost on the order of 10x the time, where quadratic
	// tombstone handling would cost ~100x. The threshold leaves wide
	// slack for scheduler noise, and the small measurement is floored so
	// a near-zero baseline cannot make the ratio meaningless.
	if small < 100*time.Microsecond {
		small = 100 * time.Microsecond
	}
	if large > 50*small {
		t.Errorf("10k all-skip took %v against a 1k baseline of %v; skip handling is not scaling linearly", large, small)
	}
}

func TestMapNoPullAfterExhaustion(t *testing.T) {
	const n = 3
	pulls := 0
	src := FromFunc(func(ctx context.Context) (int, bool, error) {
		pulls++
		if pulls > n {
			return 0, false, nil
		}
		return pulls, true, nil
	})

	if _, err := Map(context.Background(), src, double, WithConcurrency(2)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// One pull per item plus the single pull that observes exhaustion.
	if pulls != n+1 {
		t.Errorf("source pulled %d times, want %d", pulls, n+1)
	}
}

func TestMapUnlimitedConcurrency(t *testing.T) {
	got, err := MapSlice(context.Background(), []int{5, 6, 7}, double)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 3 || got[0] != 10 || got[2] != 14 {
		t.Errorf("got %v, want [10 12 14]", got)
	}
}

func TestMapClosesSource(t *testing.T) {
	closed := false
	src := &closeTrackingSource{inner: FromSlice([]int{1, 2}), onClose: func() { closed = true }}
	if _, err := Map(context.Background(), src, double); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !closed {
		t.Error("source was not closed on settlement")
	}
}

type closeTrackingSource struct {
	inner   Source[int]
	onClose func()
}

func (s *closeTrackingSource) Next(ctx context.Context) (int, bool, error) {
	return s.inner.Next(ctx)
}

func (s *closeTrackingSource) Close() error {
	s.onClose()
	return s.inner.Close()
}
