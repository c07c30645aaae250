package ingest

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"
)

// WriteFunc performs database writes inside a batch transaction.
type WriteFunc func(ctx context.Context, tx *sql.Tx) error

// BatchWriter groups WriteFuncs into transactions. A batch is committed when
// it reaches the configured size, when the flush interval elapses, or on
// Close. If any WriteFunc of a batch fails, the whole batch is rolled back
// and every later batch is dropped unexecuted, so writes that depend on
// earlier ones never land without them.
type BatchWriter struct {
	db   *sql.DB
	size int

	mu     sync.Mutex
	buf    []WriteFunc
	closed bool

	ticker  *time.Ticker
	batches chan []WriteFunc
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup

	// OnError is called for every failed or dropped batch.
	OnError func(error)

	errMu    sync.Mutex
	firstErr error
}

// NewBatchWriter starts a writer committing to db. A nil db runs batches
// with a nil transaction. flushInterval 0 disables timed flushes.
func NewBatchWriter(db *sql.DB, batchSize int, flushInterval time.Duration) *BatchWriter {
	if batchSize <= 0 {
		batchSize = 10
	}
	ctx, cancel := context.WithCancel(context.Background())
	bw := &BatchWriter{
		db:      db,
		size:    batchSize,
		buf:     make([]WriteFunc, 0, batchSize),
		batches: make(chan []WriteFunc, 2),
		ctx:     ctx,
		cancel:  cancel,
	}

	bw.wg.Add(1)
	go bw.commitLoop()

	if flushInterval > 0 {
		bw.ticker = time.NewTicker(flushInterval)
		bw.wg.Add(1)
		go bw.tickLoop()
	}
	return bw
}

// Submit queues w for the next batch. It blocks while the committer is
// behind by more than two batches and returns the first batch error once one
// has occurred.
func (bw *BatchWriter) Submit(w WriteFunc) error {
	bw.mu.Lock()
	defer bw.mu.Unlock()
	if bw.closed {
		return ErrBatchWriterClosed
	}
	if err := bw.Err(); err != nil {
		return err
	}
	bw.buf = append(bw.buf, w)
	if len(bw.buf) >= bw.size {
		bw.flushLocked()
	}
	return nil
}

// Err returns the first asynchronous error seen so far.
func (bw *BatchWriter) Err() error {
	bw.errMu.Lock()
	defer bw.errMu.Unlock()
	return bw.firstErr
}

// flushLocked hands the buffer to the committer. bw.mu must be held.
func (bw *BatchWriter) flushLocked() {
	if len(bw.buf) == 0 {
		return
	}
	batch := bw.buf
	bw.buf = make([]WriteFunc, 0, bw.size)

	select {
	case bw.batches <- batch:
	case <-bw.ctx.Done():
		bw.fail(fmt.Errorf("batch writer: dropping batch of %d items due to context cancellation", len(batch)))
	}
}

func (bw *BatchWriter) fail(err error) {
	bw.errMu.Lock()
	if bw.firstErr == nil {
		bw.firstErr = err
	}
	bw.errMu.Unlock()
	if bw.OnError != nil {
		bw.OnError(err)
	}
}

func (bw *BatchWriter) commitLoop() {
	defer bw.wg.Done()
	for batch := range bw.batches {
		if bw.Err() != nil {
			bw.fail(fmt.Errorf("batch writer: dropping batch of %d items after an earlier failure", len(batch)))
			continue
		}
		if err := bw.commit(batch); err != nil {
			bw.fail(err)
		}
	}
}

func (bw *BatchWriter) commit(batch []WriteFunc) error {
	if bw.db == nil {
		for _, w := range batch {
			if err := w(bw.ctx, nil); err != nil {
				return err
			}
		}
		return nil
	}

	// Pending batches are still committed while the writer shuts down.
	ctx := context.Background()
	tx, err := bw.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin batch tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback() // ignored if committed
	}()

	for _, w := range batch {
		if err := w(ctx, tx); err != nil {
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit batch (%d items): %w", len(batch), err)
	}
	return nil
}

func (bw *BatchWriter) tickLoop() {
	defer bw.wg.Done()
	for {
		select {
		case <-bw.ctx.Done():
			return
		case <-bw.ticker.C:
			bw.mu.Lock()
			bw.flushLocked()
			bw.mu.Unlock()
		}
	}
}

// Close flushes what is buffered, waits for every batch to commit and
// returns the first error seen. Closing twice returns ErrBatchWriterClosed.
func (bw *BatchWriter) Close() error {
	bw.mu.Lock()
	if bw.closed {
		bw.mu.Unlock()
		return ErrBatchWriterClosed
	}
	bw.closed = true
	if bw.ticker != nil {
		bw.ticker.Stop()
	}
	bw.flushLocked()
	bw.mu.Unlock()

	bw.cancel()
	close(bw.batches)
	bw.wg.Wait()
	return bw.Err()
}

// ErrBatchWriterClosed is returned by Submit and Close after Close.
var ErrBatchWriterClosed = &BatchWriterError{"batch writer closed"}

// BatchWriterError is the error type of batch writer operations.
type BatchWriterError struct{ msg string }

func (e *BatchWriterError) Error() string { return e.msg }
