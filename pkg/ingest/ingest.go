package ingest

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/japaniel/qisas/pkg/db"
	"github.com/japaniel/qisas/pkg/dictionary"
	"github.com/japaniel/qisas/pkg/gloss"
)

// WorkerPoolInterface abstracts the worker pool so tests can inject failing implementations.
type WorkerPoolInterface interface {
	Start(ctx context.Context)
	Submit(Job) error
	SubmitCtx(ctx context.Context, job Job) error
	Close()
}

// Ingester tokenizes the paragraphs of a story and records which glossed
// words and phrases occur where.
type Ingester struct {
	DB    *sql.DB
	Vocab *dictionary.Importer
	// BatchSize is the number of paragraphs committed per transaction.
	BatchSize int
	// Logger receives resume and progress messages. nil disables logging.
	Logger *slog.Logger
	// OnProgress is called with the number of paragraphs handed to the
	// writer and the total.
	OnProgress func(current, total int)

	Workers int

	// PoolFactory lets tests replace the worker pool.
	PoolFactory func(workers, queue int) WorkerPoolInterface
}

// NewIngester creates an Ingester. vocab may be nil, in which case nothing
// is glossed and only the checkpoint advances.
func NewIngester(conn *sql.DB, vocab *dictionary.Importer) *Ingester {
	return &Ingester{
		DB:        conn,
		Vocab:     vocab,
		BatchSize: 50,
		Workers:   4,
	}
}

// keyCount is one glossed key found in a paragraph.
type keyCount struct {
	Key         string
	Translation string
	IsPhrase    bool
	Count       int
}

type processedParagraph struct {
	Index       int
	ParagraphID int64
	Keys        []keyCount
	Error       error
}

func (ig *Ingester) logger() *slog.Logger {
	if ig.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return ig.Logger
}

// Ingest records the glossed occurrences of paragraphs, which must be the
// story's paragraphs in position order. Work resumes after the story's
// checkpoint and the checkpoint advances in the same transaction as each
// paragraph's occurrences. It returns the number of occurrences recorded.
func (ig *Ingester) Ingest(ctx context.Context, storyID int64, paragraphs []db.Paragraph) (int, error) {
	log := ig.logger().With("story_id", storyID)

	lastProcessed, err := db.GetStoryProgress(ig.DB, storyID)
	if err != nil {
		log.Warn("failed to retrieve progress", "error", err)
		lastProcessed = -1
	}
	if lastProcessed >= 0 {
		log.Info("resuming ingest", "from", lastProcessed+1, "total", len(paragraphs))
	}

	total := len(paragraphs)
	startIdx := lastProcessed + 1
	if startIdx >= total {
		return 0, nil
	}

	tk, err := ig.tokenizer(storyID)
	if err != nil {
		return 0, err
	}

	batchSize := ig.BatchSize
	if batchSize <= 0 {
		batchSize = 50
	}
	workers := ig.Workers
	if workers <= 0 {
		workers = 1
	}
	var wp WorkerPoolInterface
	if ig.PoolFactory != nil {
		wp = ig.PoolFactory(workers, workers*2)
	} else {
		wp = NewWorkerPool(workers, workers*2)
	}
	resultCh := make(chan processedParagraph, workers*2)
	resultClosed := false
	doneCh := make(chan error, 1)

	var recorded int64

	bw := NewBatchWriter(ig.DB, batchSize, 100*time.Millisecond)
	var batchErr error
	var batchErrMu sync.Mutex
	bw.OnError = func(e error) {
		batchErrMu.Lock()
		if batchErr == nil {
			batchErr = e
		}
		batchErrMu.Unlock()
	}

	defer func() {
		wp.Close()
		if !resultClosed {
			close(resultCh)
		}
		_ = bw.Close()
	}()

	parent := ctx
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	wp.Start(ctx)

	persist := func(item processedParagraph) error {
		return bw.Submit(func(ctx context.Context, tx *sql.Tx) error {
			for _, k := range item.Keys {
				if err := db.RecordOccurrence(tx, storyID, item.ParagraphID, k.Key, k.Translation, k.IsPhrase, k.Count); err != nil {
					return fmt.Errorf("record %q: %w", k.Key, err)
				}
				atomic.AddInt64(&recorded, int64(k.Count))
			}
			if err := db.UpdateStoryProgress(tx, storyID, item.Index); err != nil {
				return fmt.Errorf("save progress: %w", err)
			}
			return nil
		})
	}

	// The consumer writes results strictly in paragraph order so that the
	// checkpoint never skips an unwritten paragraph.
	go func() {
		defer close(doneCh)
		buffer := make(map[int]processedParagraph)
		next := startIdx

		drain := func() error {
			for {
				item, ok := buffer[next]
				if !ok {
					return nil
				}
				delete(buffer, next)
				if err := persist(item); err != nil {
					return err
				}
				if ig.OnProgress != nil && (next+1)%batchSize == 0 {
					ig.OnProgress(next+1, total)
				}
				next++
			}
		}

		for {
			select {
			case <-ctx.Done():
				doneCh <- ctx.Err()
				return
			case res, ok := <-resultCh:
				if !ok {
					if err := drain(); err != nil {
						cancel()
						doneCh <- err
						return
					}
					if ig.OnProgress != nil {
						ig.OnProgress(total, total)
					}
					doneCh <- nil
					return
				}
				if res.Error != nil {
					cancel()
					doneCh <- res.Error
					return
				}
				buffer[res.Index] = res
				if err := drain(); err != nil {
					cancel()
					doneCh <- err
					return
				}
			}
		}
	}()

Loop:
	for i := startIdx; i < total; i++ {
		select {
		case <-ctx.Done():
			break Loop
		default:
		}

		idx := i
		para := paragraphs[i]
		job := func(ctx context.Context) error {
			res := processParagraph(tk, idx, para)
			select {
			case resultCh <- res:
			case <-ctx.Done():
			}
			return nil
		}

		if err := wp.SubmitCtx(ctx, job); err != nil {
			if err == ctx.Err() || err == ErrPoolClosed {
				break Loop
			}
			return 0, err
		}
	}

	// Workers are done once Close returns, so nothing sends on resultCh after this.
	wp.Close()
	close(resultCh)
	resultClosed = true

	consumerErr := <-doneCh
	if err := bw.Close(); err != nil && consumerErr == nil {
		consumerErr = err
	}
	batchErrMu.Lock()
	if batchErr != nil && consumerErr == nil {
		consumerErr = batchErr
	}
	batchErrMu.Unlock()
	if consumerErr == nil && parent.Err() != nil {
		consumerErr = parent.Err()
	}

	n := int(atomic.LoadInt64(&recorded))
	if consumerErr == nil {
		log.Info("ingest complete", "paragraphs", total-startIdx, "occurrences", n)
	}
	return n, consumerErr
}

func (ig *Ingester) tokenizer(storyID int64) (*gloss.Tokenizer, error) {
	if ig.Vocab == nil {
		return gloss.NewTokenizer(gloss.Dictionary{})
	}
	e, err := ig.Vocab.ForStory(storyID)
	if err != nil {
		return nil, fmt.Errorf("load vocabulary: %w", err)
	}
	return e.Tokenizer, nil
}

// processParagraph tokenizes one paragraph and counts its glossed keys in
// order of first appearance. A phrase counts once per matched span, not
// once per word.
func processParagraph(tk *gloss.Tokenizer, index int, p db.Paragraph) processedParagraph {
	tokens, err := tk.Tokenize(p.Arabic)
	if err != nil {
		return processedParagraph{Index: index, Error: fmt.Errorf("paragraph %d: %w", p.Position, err)}
	}

	counts := make(map[string]*keyCount)
	var order []string
	for _, t := range tokens {
		if !t.Glossed() {
			continue
		}
		key := t.LearnedKey()
		kc, ok := counts[key]
		if !ok {
			kc = &keyCount{Key: key, Translation: t.Translation, IsPhrase: t.IsPhrasePart}
			counts[key] = kc
			order = append(order, key)
		}
		kc.Count++
	}

	keys := make([]keyCount, 0, len(order))
	for _, k := range order {
		kc := *counts[k]
		if kc.IsPhrase {
			if words := len(strings.Fields(kc.Key)); words > 1 {
				kc.Count /= words
			}
		}
		keys = append(keys, kc)
	}
	return processedParagraph{Index: index, ParagraphID: p.ID, Keys: keys}
}
