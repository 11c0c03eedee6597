package pool

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestRunRespectsCeilingAndCompletesAll(t *testing.T) {
	t.Parallel()

	const items, ceiling = 25, 3
	var inflight, peak, done atomic.Int32
	work := make([]int, items)
	for i := range work {
		work[i] = i
	}

	p := New[int](ceiling, nil)
	err := p.Run(context.Background(), work, func(context.Context, int) {
		cur := inflight.Add(1)
		for {
			old := peak.Load()
			if cur <= old || peak.CompareAndSwap(old, cur) {
				break
			}
		}
		time.Sleep(2 * time.Millisecond)
		inflight.Add(-1)
		done.Add(1)
	})

	require.NoError(t, err)
	require.Equal(t, int32(items), done.Load())
	require.LessOrEqual(t, peak.Load(), int32(ceiling))
	require.Equal(t, int32(0), inflight.Load())
}

func TestRunStartsNextItemWhenAnySlotFrees(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	started := make(chan int, 3)
	p := New[int](2, nil)

	finished := make(chan error, 1)
	go func() {
		finished <- p.Run(context.Background(), []int{0, 1, 2}, func(_ context.Context, i int) {
			started <- i
			if i == 0 {
				<-release
			}
		})
	}()

	// Item 1 finishes immediately, so item 2 must start while item 0 still blocks.
	seen := map[int]bool{}
	for len(seen) < 3 {
		select {
		case i := <-started:
			seen[i] = true
		case <-time.After(2 * time.Second):
			t.Fatalf("items started: %v", seen)
		}
	}
	close(release)
	require.NoError(t, <-finished)
}

func TestRunRecoversPanicsAndReleasesSlot(t *testing.T) {
	t.Parallel()

	var mu sync.Mutex
	var panicked []int
	var ran atomic.Int32

	p := New(1, func(item int, recovered any) {
		mu.Lock()
		defer mu.Unlock()
		panicked = append(panicked, item)
		assert.Equal(t, "kaboom", recovered)
	})
	err := p.Run(context.Background(), []int{1, 2, 3}, func(_ context.Context, i int) {
		ran.Add(1)
		if i == 2 {
			panic("kaboom")
		}
	})

	require.NoError(t, err)
	require.Equal(t, int32(3), ran.Load())
	require.Equal(t, []int{2}, panicked)
}

func TestRunStopsLaunchingOnCancel(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	var ran atomic.Int32
	p := New[int](1, nil)
	err := p.Run(ctx, []int{1, 2, 3, 4}, func(_ context.Context, _ int) {
		ran.Add(1)
		cancel()
	})

	require.ErrorIs(t, err, context.Canceled)
	require.Less(t, ran.Load(), int32(4))
}

func TestNewDefaultsLimit(t *testing.T) {
	t.Parallel()

	require.Equal(t, DefaultLimit, New[string](0, nil).Limit())
	require.Equal(t, 5, New[string](5, nil).Limit())
}
