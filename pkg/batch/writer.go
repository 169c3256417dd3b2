package batch

import (
	"context"
	"sync"
	"time"

	"minerva/pkg/logger"
)

// FlushFunc is called to flush a batch of accumulated items to the backing
// store. It receives ownership of the batch.
type FlushFunc[T any] func(ctx context.Context, batch []T) error

// Writer accumulates items in memory and flushes them in batches. Columnar
// stores like ClickHouse perform poorly on single-row inserts, so every
// write path that targets one goes through a Writer.
type Writer[T any] struct {
	flushFunc FlushFunc[T]
	buffer    []T
	mu        sync.Mutex
	log       *logger.Logger

	maxBatchSize int
	maxAge       time.Duration
	name         string

	lastFlush time.Time
	ticker    *time.Ticker
	stopCh    chan struct{}
	wg        sync.WaitGroup
	running   bool
}

// Config contains configuration for Writer
type Config[T any] struct {
	FlushFunc    FlushFunc[T]
	Name         string
	MaxBatchSize int           // Default: 500
	MaxAge       time.Duration // Default: 5s
}

// NewWriter creates a new batch writer
func NewWriter[T any](cfg Config[T]) *Writer[T] {
	if cfg.MaxBatchSize <= 0 {
		cfg.MaxBatchSize = 500
	}
	if cfg.MaxAge <= 0 {
		cfg.MaxAge = 5 * time.Second
	}

	return &Writer[T]{
		flushFunc:    cfg.FlushFunc,
		buffer:       make([]T, 0, cfg.MaxBatchSize),
		maxBatchSize: cfg.MaxBatchSize,
		maxAge:       cfg.MaxAge,
		name:         cfg.Name,
		lastFlush:    time.Now(),
		stopCh:       make(chan struct{}),
		log:          logger.Get().With("component", "batch_writer", "name", cfg.Name),
	}
}

// Start begins the background flush ticker
func (w *Writer[T]) Start(ctx context.Context) {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return
	}
	w.running = true
	w.ticker = time.NewTicker(w.maxAge)
	w.mu.Unlock()

	w.wg.Add(1)
	go w.flushLoop(ctx)

	w.log.Infof("Batch writer started (maxBatchSize=%d, maxAge=%v)", w.maxBatchSize, w.maxAge)
}

// Add appends an item to the buffer. A full buffer is flushed immediately.
func (w *Writer[T]) Add(ctx context.Context, item T) error {
	w.mu.Lock()
	w.buffer = append(w.buffer, item)
	shouldFlush := len(w.buffer) >= w.maxBatchSize
	w.mu.Unlock()

	if shouldFlush {
		return w.Flush(ctx)
	}
	return nil
}

// Flush writes all buffered items to the backing store. The buffer is swapped
// for an empty one under the lock so concurrent Add calls during a slow flush
// land in the new buffer.
func (w *Writer[T]) Flush(ctx context.Context) error {
	w.mu.Lock()
	if len(w.buffer) == 0 {
		w.mu.Unlock()
		return nil
	}

	batch := w.buffer
	w.buffer = make([]T, 0, w.maxBatchSize)
	w.lastFlush = time.Now()
	w.mu.Unlock()

	start := time.Now()
	err := w.flushFunc(ctx, batch)
	duration := time.Since(start)

	if err != nil {
		w.log.Errorf("Failed to flush %d items to %s: %v (took %v)",
			len(batch), w.name, err, duration)
		return err
	}

	w.log.Debugf("Flushed %d items to %s (took %v)", len(batch), w.name, duration)
	return nil
}

// flushLoop runs in background and flushes periodically
func (w *Writer[T]) flushLoop(ctx context.Context) {
	defer w.wg.Done()

	for {
		select {
		case <-ctx.Done():
			if err := w.Flush(context.Background()); err != nil {
				w.log.Errorf("Final flush failed: %v", err)
			}
			return

		case <-w.stopCh:
			if err := w.Flush(context.Background()); err != nil {
				w.log.Errorf("Final flush failed: %v", err)
			}
			return

		case <-w.ticker.C:
			w.mu.Lock()
			bufferSize := len(w.buffer)
			w.mu.Unlock()

			if bufferSize > 0 {
				if err := w.Flush(ctx); err != nil {
					w.log.Errorf("Periodic flush failed: %v", err)
				}
			}
		}
	}
}

// Stop gracefully shuts down the writer, flushing any remaining items.
func (w *Writer[T]) Stop(ctx context.Context) error {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = false
	w.mu.Unlock()

	if w.ticker != nil {
		w.ticker.Stop()
	}
	close(w.stopCh)

	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		w.log.Info("Batch writer stopped gracefully")
		return nil
	case <-ctx.Done():
		w.log.Warn("Batch writer stop timed out")
		return ctx.Err()
	}
}

// BufferSize returns the current buffer size (for monitoring)
func (w *Writer[T]) BufferSize() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.buffer)
}
