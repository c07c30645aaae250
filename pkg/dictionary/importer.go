package dictionary

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"sync"

	"github.com/japaniel/qisas/pkg/db"
	"github.com/japaniel/qisas/pkg/gloss"
)

// Entry is the merged vocabulary of one story together with a tokenizer
// built for it.
type Entry struct {
	Dictionary gloss.Dictionary
	Tokenizer  *gloss.Tokenizer
}

// Importer stores vocabularies and hands out merged per-story dictionaries.
type Importer struct {
	conn *sql.DB
	opts []gloss.Option

	// cache holds one Entry per story id. An Entry is never mutated; imports
	// drop affected entries so the next ForStory rebuilds them.
	mu    sync.RWMutex
	cache map[int64]*Entry
	gen   uint64 // bumped on every invalidation
}

// NewImporter creates an importer backed by conn. opts are applied to every
// tokenizer it builds.
func NewImporter(conn *sql.DB, opts ...gloss.Option) *Importer {
	return &Importer{
		conn:  conn,
		opts:  opts,
		cache: make(map[int64]*Entry),
	}
}

// Import writes dict as the vocabulary of storyID (db.CommonVocabulary for
// the shared one) inside a single transaction and drops the cached entries
// it affects. It returns the number of entries written.
func (im *Importer) Import(ctx context.Context, storyID int64, dict gloss.Dictionary, replace bool) (int, error) {
	if dict == nil {
		return 0, gloss.ErrNilDictionary
	}
	tx, err := im.conn.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin import tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback() // ignored if committed
	}()

	count, err := StoreVocabulary(tx, storyID, dict, replace)
	if err != nil {
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit vocabulary (%d entries): %w", count, err)
	}

	im.Invalidate(storyID)
	return count, nil
}

// StoreVocabulary writes dict as the vocabulary of storyID through ex. With
// replace set, entries not present in dict are removed first. Occurrences
// indexed against the previous vocabulary are cleared along with their
// checkpoints: the story's own, or every story's for the common vocabulary.
// Callers running it in their own transaction must Invalidate the importer
// after committing.
func StoreVocabulary(ex db.DBExecutor, storyID int64, dict gloss.Dictionary, replace bool) (int, error) {
	if dict == nil {
		return 0, gloss.ErrNilDictionary
	}
	if replace {
		if err := db.DeleteVocabulary(ex, storyID); err != nil {
			return 0, fmt.Errorf("clear vocabulary: %w", err)
		}
	}

	// Sorted so a failing entry is reported deterministically.
	keys := make([]string, 0, len(dict))
	for k := range dict {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	count := 0
	for _, k := range keys {
		if gloss.IsDegenerateKey(k) {
			continue
		}
		if err := db.UpsertVocabulary(ex, storyID, k, dict[k]); err != nil {
			return 0, fmt.Errorf("store %q: %w", k, err)
		}
		count++
	}

	var err error
	if storyID == db.CommonVocabulary {
		err = db.ClearAllOccurrences(ex)
	} else {
		err = db.ClearOccurrences(ex, storyID)
	}
	if err != nil {
		return 0, fmt.Errorf("clear stale occurrences: %w", err)
	}
	return count, nil
}

// Invalidate drops cached entries affected by a change to storyID's
// vocabulary. A change to the common vocabulary affects every story.
func (im *Importer) Invalidate(storyID int64) {
	im.mu.Lock()
	defer im.mu.Unlock()
	im.gen++
	if storyID == db.CommonVocabulary {
		im.cache = make(map[int64]*Entry)
		return
	}
	delete(im.cache, storyID)
}

// ForStory returns the common vocabulary merged with storyID's own, story
// entries taking precedence.
func (im *Importer) ForStory(storyID int64) (*Entry, error) {
	im.mu.RLock()
	e, ok := im.cache[storyID]
	gen := im.gen
	im.mu.RUnlock()
	if ok {
		return e, nil
	}

	common, err := db.GetVocabulary(im.conn, db.CommonVocabulary)
	if err != nil {
		return nil, fmt.Errorf("load common vocabulary: %w", err)
	}
	var own map[string]string
	if storyID != db.CommonVocabulary {
		own, err = db.GetVocabulary(im.conn, storyID)
		if err != nil {
			return nil, fmt.Errorf("load story vocabulary: %w", err)
		}
	}

	dict := gloss.Merge(common, own)
	tk, err := gloss.NewTokenizer(dict, im.opts...)
	if err != nil {
		return nil, err
	}
	e = &Entry{Dictionary: dict, Tokenizer: tk}

	im.mu.Lock()
	// Skip caching when an import raced with this load.
	if im.gen == gen {
		im.cache[storyID] = e
	}
	im.mu.Unlock()
	return e, nil
}
