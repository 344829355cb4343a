package db

import (
	"context"
	"database/sql"
	"sync"

	"go.uber.org/zap"
)

type TxFn func(ctx context.Context, tx *sql.Tx) error

type job struct {
	ctx context.Context
	fn  TxFn
	ch  chan error
}

// Worker runs write transactions one at a time on a single goroutine, so
// multi-statement writes never interleave on the shared connection.
type Worker struct {
	db     *sql.DB
	logger *zap.Logger
	jobs   chan job
	done   chan struct{}

	mu     sync.RWMutex
	closed bool
}

func NewWorker(db *sql.DB, logger *zap.Logger) *Worker {
	if logger == nil {
		logger = zap.NewNop()
	}
	w := &Worker{
		db:     db,
		logger: logger,
		jobs:   make(chan job, 256),
		done:   make(chan struct{}),
	}
	go w.loop()
	return w
}

// Close stops accepting jobs and waits for queued ones to finish. Safe to
// call more than once.
func (w *Worker) Close() {
	w.mu.Lock()
	if !w.closed {
		w.closed = true
		close(w.jobs)
	}
	w.mu.Unlock()
	<-w.done
}

// Do runs fn inside a transaction. The transaction commits when fn returns
// nil and rolls back otherwise. A rollback failure is logged and the error
// from fn is returned unchanged.
func (w *Worker) Do(ctx context.Context, fn TxFn) error {
	ch := make(chan error, 1)
	j := job{ctx: ctx, fn: fn, ch: ch}

	w.mu.RLock()
	if w.closed {
		w.mu.RUnlock()
		return ErrConnection
	}
	select {
	case w.jobs <- j:
	case <-ctx.Done():
		w.mu.RUnlock()
		return ctx.Err()
	}
	w.mu.RUnlock()

	// Once queued, the job's own result is returned even if ctx is cancelled
	// meanwhile. run honours ctx in BeginTx and Commit.
	return <-ch
}

func (w *Worker) loop() {
	defer close(w.done)

	for j := range w.jobs {
		j.ch <- w.run(j)
	}
}

func (w *Worker) run(j job) error {
	tx, err := w.db.BeginTx(j.ctx, nil)
	if err != nil {
		return &QueryError{Op: "begin", Err: err}
	}

	if err := j.fn(j.ctx, tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			w.logger.Error("rollback failed",
				zap.Error(rbErr),
				zap.NamedError("cause", err),
			)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return &QueryError{Op: "commit", Err: err}
	}
	return nil
}
