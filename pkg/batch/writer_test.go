package batch

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriter_FlushOnMaxSize(t *testing.T) {
	flushed := make([][]string, 0)
	var mu sync.Mutex

	flushFunc := func(ctx context.Context, batch []string) error {
		mu.Lock()
		defer mu.Unlock()
		flushed = append(flushed, batch)
		return nil
	}

	w := NewWriter(Config[string]{
		FlushFunc:    flushFunc,
		Name:         "test_batch",
		MaxBatchSize: 3,
		MaxAge:       10 * time.Second, // Long enough to not trigger
	})

	ctx := context.Background()

	require.NoError(t, w.Add(ctx, "item1"))
	require.NoError(t, w.Add(ctx, "item2"))
	require.NoError(t, w.Add(ctx, "item3"))

	mu.Lock()
	assert.Equal(t, 1, len(flushed), "should have flushed once")
	assert.Equal(t, 3, len(flushed[0]))
	mu.Unlock()

	assert.Equal(t, 0, w.BufferSize())
}

func TestWriter_FlushOnTimer(t *testing.T) {
	flushed := make([][]int, 0)
	var mu sync.Mutex

	flushFunc := func(ctx context.Context, batch []int) error {
		mu.Lock()
		defer mu.Unlock()
		flushed = append(flushed, batch)
		return nil
	}

	w := NewWriter(Config[int]{
		FlushFunc:    flushFunc,
		Name:         "test_batch",
		MaxBatchSize: 100, // High enough to not trigger by size
		MaxAge:       50 * time.Millisecond,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	w.Start(ctx)

	require.NoError(t, w.Add(ctx, 1))
	require.NoError(t, w.Add(ctx, 2))

	time.Sleep(150 * time.Millisecond)

	mu.Lock()
	assert.GreaterOrEqual(t, len(flushed), 1, "should have flushed at least once")
	if len(flushed) > 0 {
		assert.Equal(t, 2, len(flushed[0]))
	}
	mu.Unlock()

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer stopCancel()
	require.NoError(t, w.Stop(stopCtx))
}

func TestWriter_StopFlushesRemainder(t *testing.T) {
	flushed := make([][]string, 0)
	var mu sync.Mutex

	flushFunc := func(ctx context.Context, batch []string) error {
		mu.Lock()
		defer mu.Unlock()
		flushed = append(flushed, batch)
		return nil
	}

	w := NewWriter(Config[string]{
		FlushFunc:    flushFunc,
		Name:         "test_batch",
		MaxBatchSize: 100,
		MaxAge:       10 * time.Second,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	w.Start(ctx)
	require.NoError(t, w.Add(ctx, "pending1"))
	require.NoError(t, w.Add(ctx, "pending2"))

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer stopCancel()
	require.NoError(t, w.Stop(stopCtx))

	mu.Lock()
	require.Equal(t, 1, len(flushed))
	assert.Equal(t, []string{"pending1", "pending2"}, flushed[0])
	mu.Unlock()
}

func TestWriter_EmptyFlushIsNoop(t *testing.T) {
	calls := 0
	w := NewWriter(Config[string]{
		FlushFunc: func(ctx context.Context, batch []string) error {
			calls++
			return nil
		},
		Name: "test_batch",
	})

	require.NoError(t, w.Flush(context.Background()))
	require.NoError(t, w.Flush(context.Background()))
	assert.Equal(t, 0, calls)
}

func TestWriter_ConcurrentAddDuringFlush(t *testing.T) {
	var mu sync.Mutex
	total := 0
	release := make(chan struct{})

	w := NewWriter(Config[int]{
		FlushFunc: func(ctx context.Context, batch []int) error {
			<-release // Hold the flush open while other adds land
			mu.Lock()
			total += len(batch)
			mu.Unlock()
			return nil
		},
		Name:         "test_batch",
		MaxBatchSize: 10,
		MaxAge:       time.Minute,
	})

	ctx := context.Background()
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			_ = w.Add(ctx, n)
		}(i)
	}

	close(release)
	wg.Wait()
	require.NoError(t, w.Flush(ctx))

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 100, total, "no item may be lost or duplicated across flushes")
}
