package tracing

import (
	"context"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// captureSink records every batch it receives
type captureSink struct {
	mu      sync.Mutex
	batches [][]Record
	err     error
}

func (s *captureSink) SendBatch(ctx context.Context, records []Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.batches = append(s.batches, records)
	return nil
}

func (s *captureSink) total() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, b := range s.batches {
		n += len(b)
	}
	return n
}

func (s *captureSink) batchCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.batches)
}

func testRecord(tool string, durationMs int64, depth int) Record {
	return Record{
		ToolName:       tool,
		ActionType:     ActionQuery,
		OrganizationID: uuid.New(),
		StartTime:      time.Now(),
		Context: Context{
			RootTraceID: uuid.NewString(),
			Depth:       depth,
			StartTime:   time.Now(),
		},
		Performance: Performance{DurationMs: durationMs},
	}
}

func waitForSends(t *testing.T, tracer *Tracer) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, tracer.Stop(ctx))
}

func TestNewContext(t *testing.T) {
	root := NewContext(nil)
	assert.NotEmpty(t, root.TraceID)
	assert.Equal(t, root.TraceID, root.RootTraceID)
	assert.Empty(t, root.ParentTraceID)
	assert.Equal(t, 1, root.Depth)

	child := NewContext(&root)
	assert.NotEqual(t, root.TraceID, child.TraceID)
	assert.Equal(t, root.RootTraceID, child.RootTraceID)
	assert.Equal(t, root.TraceID, child.ParentTraceID)
	assert.Equal(t, 2, child.Depth)
	assert.False(t, child.StartTime.Before(root.StartTime), "child start time is >= parent's")

	// At depth 3 the span must point at its actual parent, not the root,
	// or the trace tree flattens
	grandchild := NewContext(&child)
	assert.Equal(t, root.RootTraceID, grandchild.RootTraceID)
	assert.Equal(t, child.TraceID, grandchild.ParentTraceID)
	assert.NotEqual(t, root.TraceID, grandchild.ParentTraceID)
	assert.Equal(t, 3, grandchild.Depth)
}

func TestTracer_NilSinkDropsEverything(t *testing.T) {
	tracer := New(Config{Filters: Filters{SamplingRate: 1.0}})

	for i := 0; i < 20; i++ {
		tracer.Add(context.Background(), testRecord("fetch_tickets", 50, 1))
	}
	assert.Equal(t, 0, tracer.QueueSize())
}

func TestTracer_FlushOnQueueLimit(t *testing.T) {
	sink := &captureSink{}
	tracer := New(Config{
		Sink:           sink,
		Filters:        Filters{SamplingRate: 1.0},
		QueueSizeLimit: 10,
	})

	for i := 0; i < 100; i++ {
		tracer.Add(context.Background(), testRecord("fetch_tickets", 50, 1))
	}
	waitForSends(t, tracer)

	assert.Equal(t, 100, sink.total())
	assert.Equal(t, 10, sink.batchCount(), "100 records at limit 10 means 10 flushes")
	for _, b := range sink.batches {
		assert.LessOrEqual(t, len(b), 10)
	}
}

func TestTracer_SamplingConverges(t *testing.T) {
	sink := &captureSink{}
	tracer := New(Config{
		Sink:           sink,
		Filters:        Filters{SamplingRate: 0.1},
		QueueSizeLimit: 10,
	})
	tracer.randFn = rand.New(rand.NewSource(42)).Float64

	const n = 10000
	for i := 0; i < n; i++ {
		tracer.Add(context.Background(), testRecord("fetch_tickets", 50, 1))
	}
	waitForSends(t, tracer)

	queued := sink.total() + tracer.QueueSize()
	// 3-sigma band around p*n for a binomial draw
	assert.InDelta(t, 1000, queued, 120, "sampled fraction should converge to the sampling rate")
}

func TestTracer_ZeroSamplingRateDropsAll(t *testing.T) {
	sink := &captureSink{}
	tracer := New(Config{
		Sink:    sink,
		Filters: Filters{SamplingRate: 0},
	})

	for i := 0; i < 50; i++ {
		tracer.Add(context.Background(), testRecord("fetch_tickets", 50, 1))
	}
	assert.Equal(t, 0, tracer.QueueSize())
	assert.Equal(t, 0, sink.total())
}

func TestTracer_MinDurationFilter(t *testing.T) {
	sink := &captureSink{}
	tracer := New(Config{
		Sink: sink,
		Filters: Filters{
			SamplingRate: 1.0,
			MinDuration:  100 * time.Millisecond,
		},
		QueueSizeLimit: 100,
	})

	tracer.Add(context.Background(), testRecord("fast_tool", 20, 1))
	tracer.Add(context.Background(), testRecord("slow_tool", 250, 1))
	tracer.Flush(context.Background())
	// A dropped record stays dropped no matter how often flush runs
	tracer.Flush(context.Background())
	waitForSends(t, tracer)

	require.Equal(t, 1, sink.total())
	assert.Equal(t, "slow_tool", sink.batches[0][0].ToolName)
}

func TestTracer_MaxDepthFilter(t *testing.T) {
	sink := &captureSink{}
	tracer := New(Config{
		Sink: sink,
		Filters: Filters{
			SamplingRate: 1.0,
			MaxDepth:     3,
		},
		QueueSizeLimit: 100,
	})

	tracer.Add(context.Background(), testRecord("shallow", 50, 2))
	tracer.Add(context.Background(), testRecord("deep", 50, 5))
	tracer.Flush(context.Background())
	waitForSends(t, tracer)

	require.Equal(t, 1, sink.total())
	assert.Equal(t, "shallow", sink.batches[0][0].ToolName)
}

func TestTracer_RedactsExcludedFields(t *testing.T) {
	sink := &captureSink{}
	tracer := New(Config{
		Sink: sink,
		Filters: Filters{
			SamplingRate:  1.0,
			ExcludeFields: []string{"requester_email"},
		},
		QueueSizeLimit: 100,
	})

	rec := testRecord("fetch_tickets", 50, 1)
	rec.Data = map[string]interface{}{
		"requester_email": "user@example.com",
		"total":           3,
	}
	tracer.Add(context.Background(), rec)
	tracer.Flush(context.Background())
	waitForSends(t, tracer)

	require.Equal(t, 1, sink.total())
	sent := sink.batches[0][0]
	assert.NotContains(t, sent.Data, "requester_email")
	assert.Contains(t, sent.Data, "total")
	// The original record is left untouched
	assert.Contains(t, rec.Data, "requester_email")
}

func TestTracer_EmptyFlushIsNoop(t *testing.T) {
	sink := &captureSink{}
	tracer := New(Config{Sink: sink, Filters: Filters{SamplingRate: 1.0}})

	tracer.Flush(context.Background())
	tracer.Flush(context.Background())
	waitForSends(t, tracer)

	assert.Equal(t, 0, sink.batchCount())
}

func TestTracer_SinkFailureIsSwallowed(t *testing.T) {
	sink := &captureSink{err: context.DeadlineExceeded}
	tracer := New(Config{
		Sink:           sink,
		Filters:        Filters{SamplingRate: 1.0},
		QueueSizeLimit: 2,
	})

	// Must not panic or propagate despite the failing sink
	tracer.Add(context.Background(), testRecord("fetch_tickets", 50, 1))
	tracer.Add(context.Background(), testRecord("fetch_tickets", 50, 1))
	waitForSends(t, tracer)

	assert.Equal(t, 0, sink.total())
}

func TestTracer_ConcurrentAddDuringFlushLosesNothing(t *testing.T) {
	sink := &captureSink{}
	tracer := New(Config{
		Sink:           sink,
		Filters:        Filters{SamplingRate: 1.0},
		QueueSizeLimit: 7,
	})

	const n = 500
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tracer.Add(context.Background(), testRecord("fetch_tickets", 50, 1))
		}()
	}
	wg.Wait()
	tracer.Flush(context.Background())
	waitForSends(t, tracer)

	assert.Equal(t, n, sink.total(), "no record may be lost or appear in two batches")
}

func TestTracer_PeriodicFlush(t *testing.T) {
	sink := &captureSink{}
	tracer := New(Config{
		Sink:           sink,
		Filters:        Filters{SamplingRate: 1.0},
		QueueSizeLimit: 100,
		FlushInterval:  50 * time.Millisecond,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	tracer.Start(ctx)

	tracer.Add(ctx, testRecord("fetch_tickets", 50, 1))
	time.Sleep(150 * time.Millisecond)
	waitForSends(t, tracer)

	assert.Equal(t, 1, sink.total())
}
