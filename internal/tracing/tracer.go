package tracing

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"minerva/internal/metrics"
	"minerva/pkg/logger"
)

// Sink receives batches of trace records. Delivery is best-effort; the
// tracer never surfaces sink errors to its callers.
type Sink interface {
	SendBatch(ctx context.Context, records []Record) error
}

// Filters is the tracer's record-admission policy. Sampling happens before
// queuing; min-duration and max-depth thin the already-sampled set at flush.
type Filters struct {
	ExcludeFields []string
	MinDuration   time.Duration
	MaxDepth      int
	SamplingRate  float64
}

// Config configures a Tracer
type Config struct {
	Sink           Sink
	Filters        Filters
	QueueSizeLimit int           // Default: 10
	FlushInterval  time.Duration // 0 disables the periodic flush
}

// Tracer collects tool execution spans, subsamples them, batches them and
// flushes batches to the sink. It must never block or break the invocation
// path it observes.
type Tracer struct {
	sink    Sink
	filters Filters
	limit   int

	mu    sync.Mutex
	queue []Record

	flushInterval time.Duration
	ticker        *time.Ticker
	stopCh        chan struct{}
	wg            sync.WaitGroup
	running       bool

	randFn func() float64
	log    *logger.Logger
}

// New creates a new Tracer
func New(cfg Config) *Tracer {
	if cfg.QueueSizeLimit <= 0 {
		cfg.QueueSizeLimit = 10
	}
	if cfg.Filters.SamplingRate < 0 {
		cfg.Filters.SamplingRate = 0
	}
	if cfg.Filters.SamplingRate > 1 {
		cfg.Filters.SamplingRate = 1
	}

	return &Tracer{
		sink:          cfg.Sink,
		filters:       cfg.Filters,
		limit:         cfg.QueueSizeLimit,
		queue:         make([]Record, 0, cfg.QueueSizeLimit),
		flushInterval: cfg.FlushInterval,
		stopCh:        make(chan struct{}),
		randFn:        rand.Float64,
		log:           logger.Get().With("component", "tracer"),
	}
}

// Add offers a record to the tracer. Records failing the sampling draw, or
// offered while no sink is configured, are discarded immediately. A full
// queue triggers a flush.
func (t *Tracer) Add(ctx context.Context, rec Record) {
	if t.sink == nil {
		metrics.TracesDropped.WithLabelValues("no_sink").Inc()
		return
	}
	if t.randFn() >= t.filters.SamplingRate {
		metrics.TracesDropped.WithLabelValues("sampling").Inc()
		return
	}

	t.mu.Lock()
	t.queue = append(t.queue, rec)
	shouldFlush := len(t.queue) >= t.limit
	t.mu.Unlock()

	metrics.TracesQueued.Inc()

	if shouldFlush {
		t.Flush(ctx)
	}
}

// Flush swaps the queue for an empty one, applies filters and redaction,
// and sends survivors to the sink concurrently. Sink failures are logged
// and swallowed: tracing must never break the primary invocation path.
func (t *Tracer) Flush(ctx context.Context) {
	t.mu.Lock()
	if len(t.queue) == 0 {
		t.mu.Unlock()
		return
	}
	batch := t.queue
	t.queue = make([]Record, 0, t.limit)
	t.mu.Unlock()

	survivors := make([]Record, 0, len(batch))
	for _, rec := range batch {
		if t.filters.MinDuration > 0 && rec.Performance.DurationMs > 0 &&
			time.Duration(rec.Performance.DurationMs)*time.Millisecond < t.filters.MinDuration {
			metrics.TracesDropped.WithLabelValues("min_duration").Inc()
			continue
		}
		if t.filters.MaxDepth > 0 && rec.Context.Depth > t.filters.MaxDepth {
			metrics.TracesDropped.WithLabelValues("max_depth").Inc()
			continue
		}
		survivors = append(survivors, t.redact(rec))
	}

	if len(survivors) == 0 {
		return
	}

	t.wg.Add(1)
	go func() {
		defer t.wg.Done()
		sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
		defer cancel()

		if err := t.sink.SendBatch(sendCtx, survivors); err != nil {
			metrics.TraceFlushes.WithLabelValues("error").Inc()
			t.log.Errorf("Failed to send %d trace records: %v", len(survivors), err)
			return
		}
		metrics.TraceFlushes.WithLabelValues("success").Inc()
		t.log.Debugf("Sent %d trace records", len(survivors))
	}()
}

// redact removes excluded metadata fields before a record leaves the process
func (t *Tracer) redact(rec Record) Record {
	if len(t.filters.ExcludeFields) == 0 || len(rec.Data) == 0 {
		return rec
	}

	data := make(map[string]interface{}, len(rec.Data))
	for k, v := range rec.Data {
		data[k] = v
	}
	for _, field := range t.filters.ExcludeFields {
		delete(data, field)
	}
	rec.Data = data
	return rec
}

// Start begins the periodic flush loop, when configured
func (t *Tracer) Start(ctx context.Context) {
	if t.flushInterval <= 0 {
		return
	}

	t.mu.Lock()
	if t.running {
		t.mu.Unlock()
		return
	}
	t.running = true
	t.ticker = time.NewTicker(t.flushInterval)
	t.mu.Unlock()

	t.wg.Add(1)
	go func() {
		defer t.wg.Done()
		for {
			select {
			case <-ctx.Done():
				t.Flush(context.Background())
				return
			case <-t.stopCh:
				t.Flush(context.Background())
				return
			case <-t.ticker.C:
				t.Flush(ctx)
			}
		}
	}()
}

// Stop flushes remaining records and waits for in-flight sends
func (t *Tracer) Stop(ctx context.Context) error {
	t.mu.Lock()
	wasRunning := t.running
	t.running = false
	t.mu.Unlock()

	if wasRunning {
		t.ticker.Stop()
		close(t.stopCh)
	} else {
		t.Flush(context.Background())
	}

	done := make(chan struct{})
	go func() {
		t.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		t.log.Warn("Tracer stop timed out with sends in flight")
		return ctx.Err()
	}
}

// QueueSize returns the number of currently queued records (for monitoring)
func (t *Tracer) QueueSize() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.queue)
}
