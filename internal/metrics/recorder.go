package metrics

import (
	"context"
	"time"

	"minerva/internal/domain/invocation"
	"minerva/pkg/batch"
)

// BatchedRecorder buffers invocation records and writes them to the
// repository in batches. It satisfies invocation.Recorder.
type BatchedRecorder struct {
	writer *batch.Writer[invocation.Record]
}

var _ invocation.Recorder = (*BatchedRecorder)(nil)

// NewBatchedRecorder creates a recorder flushing into repo
func NewBatchedRecorder(repo invocation.Repository, batchSize int, maxAge time.Duration) *BatchedRecorder {
	writer := batch.NewWriter(batch.Config[invocation.Record]{
		FlushFunc:    repo.InsertBatch,
		Name:         "tool_invocations",
		MaxBatchSize: batchSize,
		MaxAge:       maxAge,
	})
	return &BatchedRecorder{writer: writer}
}

// Start begins the background flush loop
func (r *BatchedRecorder) Start(ctx context.Context) {
	r.writer.Start(ctx)
}

// Record buffers a single invocation record
func (r *BatchedRecorder) Record(ctx context.Context, rec invocation.Record) error {
	return r.writer.Add(ctx, rec)
}

// Stop flushes remaining records and stops the flush loop
func (r *BatchedRecorder) Stop(ctx context.Context) error {
	return r.writer.Stop(ctx)
}

// BufferSize returns the number of records awaiting flush
func (r *BatchedRecorder) BufferSize() int {
	return r.writer.BufferSize()
}
