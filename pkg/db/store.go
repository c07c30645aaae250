package db

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// DBExecutor is an interface that allows methods to accept either *sql.DB or *sql.Tx
type DBExecutor interface {
	Exec(query string, args ...interface{}) (sql.Result, error)
	Query(query string, args ...interface{}) (*sql.Rows, error)
	QueryRow(query string, args ...interface{}) *sql.Row
}

// ErrNotFound is returned when a looked-up row does not exist.
var ErrNotFound = errors.New("not found")

// maxContexts bounds the paragraphs remembered per glossed key.
const maxContexts = 5

// isUniqueConstraintErr returns true when the error indicates a unique/constraint violation
func isUniqueConstraintErr(err error) bool {
	if err == nil {
		return false
	}
	s := strings.ToLower(err.Error())
	return strings.Contains(s, "unique") || strings.Contains(s, "constraint failed")
}

// CreateOrGetStory returns the id of the story with slug, inserting it when missing.
// Titles and source URL of an existing story are refreshed when non-empty.
func CreateOrGetStory(db DBExecutor, slug, titleArabic, titleEnglish, sourceURL string) (int64, error) {
	slug = strings.TrimSpace(slug)
	if slug == "" {
		return 0, fmt.Errorf("slug must be non-empty")
	}

	const maxRetries = 3

	var id int64
	for attempt := 0; attempt < maxRetries; attempt++ {
		err := db.QueryRow(`SELECT id FROM stories WHERE slug = ?`, slug).Scan(&id)
		if err == nil {
			_, err = db.Exec(`UPDATE stories SET
				title_arabic = COALESCE(NULLIF(?, ''), title_arabic),
				title_english = COALESCE(NULLIF(?, ''), title_english),
				source_url = COALESCE(NULLIF(?, ''), source_url)
				WHERE id = ?`, titleArabic, titleEnglish, sourceURL, id)
			if err != nil {
				return 0, fmt.Errorf("refresh story %q: %w", slug, err)
			}
			return id, nil
		}
		if err != sql.ErrNoRows {
			return 0, err
		}

		res, err := db.Exec(
			`INSERT INTO stories (slug, title_arabic, title_english, source_url) VALUES (?, ?, ?, ?)`,
			slug, titleArabic, titleEnglish, sourceURL,
		)
		if err != nil {
			// Another writer inserted the same slug; retry the SELECT.
			if isUniqueConstraintErr(err) {
				continue
			}
			return 0, err
		}
		return res.LastInsertId()
	}

	return 0, fmt.Errorf("could not create or get story after %d retries", maxRetries)
}

const storyColumns = `id, slug, title_arabic, title_english, source_url, added_at, last_processed_paragraph`

func scanStory(row interface{ Scan(...interface{}) error }) (Story, error) {
	var s Story
	err := row.Scan(&s.ID, &s.Slug, &s.TitleArabic, &s.TitleEnglish, &s.SourceURL, &s.AddedAt, &s.LastProcessedParagraph)
	return s, err
}

// GetStoryBySlug loads a story header; ErrNotFound when the slug is unknown.
func GetStoryBySlug(db DBExecutor, slug string) (Story, error) {
	s, err := scanStory(db.QueryRow(`SELECT `+storyColumns+` FROM stories WHERE slug = ?`, slug))
	if err == sql.ErrNoRows {
		return Story{}, fmt.Errorf("story %q: %w", slug, ErrNotFound)
	}
	return s, err
}

// ListStories returns all stories ordered by slug.
func ListStories(db DBExecutor) ([]Story, error) {
	rows, err := db.Query(`SELECT ` + storyColumns + ` FROM stories ORDER BY slug`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Story
	for rows.Next() {
		s, err := scanStory(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// ReplaceParagraphs swaps the paragraphs of a story for the given ones and
// resets its processing checkpoint. Run it inside a transaction to keep the
// swap atomic.
func ReplaceParagraphs(db DBExecutor, storyID int64, arabic, english []string) error {
	if storyID <= 0 {
		return fmt.Errorf("storyID must be positive")
	}
	if len(english) > 0 && len(english) != len(arabic) {
		return fmt.Errorf("got %d English paragraphs for %d Arabic ones", len(english), len(arabic))
	}
	if err := ClearOccurrences(db, storyID); err != nil {
		return err
	}
	if _, err := db.Exec(`DELETE FROM paragraphs WHERE story_id = ?`, storyID); err != nil {
		return err
	}
	for i, text := range arabic {
		var en string
		if len(english) > 0 {
			en = english[i]
		}
		if _, err := db.Exec(`INSERT INTO paragraphs (story_id, position, arabic, english) VALUES (?, ?, ?, ?)`,
			storyID, i, text, en); err != nil {
			return fmt.Errorf("insert paragraph %d: %w", i, err)
		}
	}
	return ResetStoryProgress(db, storyID)
}

// GetParagraphs returns a story's paragraphs in reading order.
func GetParagraphs(db DBExecutor, storyID int64) ([]Paragraph, error) {
	rows, err := db.Query(`SELECT id, story_id, position, arabic, english FROM paragraphs WHERE story_id = ? ORDER BY position`, storyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Paragraph
	for rows.Next() {
		var p Paragraph
		if err := rows.Scan(&p.ID, &p.StoryID, &p.Position, &p.Arabic, &p.English); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// UpsertVocabulary stores a gloss for surface. storyID CommonVocabulary
// targets the shared vocabulary.
func UpsertVocabulary(db DBExecutor, storyID int64, surface, translation string) error {
	if strings.TrimSpace(surface) == "" {
		return fmt.Errorf("surface must be non-empty")
	}
	if storyID < 0 {
		return fmt.Errorf("storyID must not be negative")
	}
	_, err := db.Exec(`INSERT INTO vocabulary (story_id, surface, translation) VALUES (?, ?, ?)
		ON CONFLICT(story_id, surface) DO UPDATE SET translation = excluded.translation`,
		storyID, surface, translation)
	return err
}

// GetVocabulary returns the surface→translation entries stored for storyID.
func GetVocabulary(db DBExecutor, storyID int64) (map[string]string, error) {
	rows, err := db.Query(`SELECT surface, translation FROM vocabulary WHERE story_id = ?`, storyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make(map[string]string)
	for rows.Next() {
		var surface, translation string
		if err := rows.Scan(&surface, &translation); err != nil {
			return nil, err
		}
		out[surface] = translation
	}
	return out, rows.Err()
}

// DeleteVocabulary removes every entry stored for storyID.
func DeleteVocabulary(db DBExecutor, storyID int64) error {
	_, err := db.Exec(`DELETE FROM vocabulary WHERE story_id = ?`, storyID)
	return err
}

// MarkLearned adds key to the story's learned list, or moves it to the top
// when it is already there.
func MarkLearned(db DBExecutor, storyID int64, key, translation string) error {
	if storyID <= 0 {
		return fmt.Errorf("storyID must be positive")
	}
	if strings.TrimSpace(key) == "" {
		return fmt.Errorf("key must be non-empty")
	}
	_, err := db.Exec(`INSERT INTO learned_words (story_id, key, translation, learned_seq, learned_at)
		VALUES (?, ?, ?, (SELECT COALESCE(MAX(learned_seq), 0) + 1 FROM learned_words WHERE story_id = ?), ?)
		ON CONFLICT(story_id, key) DO UPDATE SET
		  translation = excluded.translation,
		  learned_seq = excluded.learned_seq,
		  learned_at = excluded.learned_at`,
		storyID, key, translation, storyID, time.Now())
	return err
}

// ListLearned returns the learned list of a story, most recent first.
func ListLearned(db DBExecutor, storyID int64) ([]LearnedWord, error) {
	rows, err := db.Query(`SELECT id, story_id, key, translation, learned_at FROM learned_words
		WHERE story_id = ? ORDER BY learned_seq DESC`, storyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []LearnedWord
	for rows.Next() {
		var w LearnedWord
		if err := rows.Scan(&w.ID, &w.StoryID, &w.Key, &w.Translation, &w.LearnedAt); err != nil {
			return nil, err
		}
		out = append(out, w)
	}
	return out, rows.Err()
}

// LearnedKeys returns the learned keys of a story as a set.
func LearnedKeys(db DBExecutor, storyID int64) (map[string]bool, error) {
	words, err := ListLearned(db, storyID)
	if err != nil {
		return nil, err
	}
	set := make(map[string]bool, len(words))
	for _, w := range words {
		set[w.Key] = true
	}
	return set, nil
}

// ForgetLearned removes one key from a story's learned list.
func ForgetLearned(db DBExecutor, storyID int64, key string) error {
	res, err := db.Exec(`DELETE FROM learned_words WHERE story_id = ? AND key = ?`, storyID, key)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("learned word %q: %w", key, ErrNotFound)
	}
	return nil
}

// ClearLearned empties a story's learned list.
func ClearLearned(db DBExecutor, storyID int64) error {
	_, err := db.Exec(`DELETE FROM learned_words WHERE story_id = ?`, storyID)
	return err
}

// RecordOccurrence adds count occurrences of a glossed key found in a paragraph.
func RecordOccurrence(db DBExecutor, storyID, paragraphID int64, key, translation string, isPhrase bool, count int) error {
	if storyID <= 0 {
		return fmt.Errorf("storyID must be positive")
	}
	if paragraphID <= 0 {
		return fmt.Errorf("paragraphID must be positive")
	}
	if count < 1 {
		return fmt.Errorf("count must be positive, got %d", count)
	}

	var occurrenceID int64
	err := db.QueryRow(`INSERT INTO gloss_occurrences (story_id, key, translation, is_phrase, occurrence_count, first_paragraph_id)
	VALUES (?, ?, ?, ?, ?, ?)
	ON CONFLICT(story_id, key) DO UPDATE SET
	  occurrence_count = gloss_occurrences.occurrence_count + excluded.occurrence_count,
	  translation = excluded.translation
	RETURNING id`, storyID, key, translation, isPhrase, count, paragraphID).Scan(&occurrenceID)
	if err != nil {
		return fmt.Errorf("upsert occurrence %q: %w", key, err)
	}

	// Atomic insert using INSERT ... SELECT ... WHERE count < maxContexts
	_, err = db.Exec(`
		INSERT INTO occurrence_contexts (occurrence_id, paragraph_id)
		SELECT ?, ?
		WHERE (SELECT COUNT(*) FROM occurrence_contexts WHERE occurrence_id = ?) < ?
		ON CONFLICT DO NOTHING`,
		occurrenceID, paragraphID, occurrenceID, maxContexts)
	return err
}

// ClearOccurrences drops a story's recorded occurrences and resets its
// checkpoint so the next ingest starts from the first paragraph.
func ClearOccurrences(db DBExecutor, storyID int64) error {
	if _, err := db.Exec(`DELETE FROM occurrence_contexts WHERE occurrence_id IN (SELECT id FROM gloss_occurrences WHERE story_id = ?)`, storyID); err != nil {
		return err
	}
	if _, err := db.Exec(`DELETE FROM gloss_occurrences WHERE story_id = ?`, storyID); err != nil {
		return err
	}
	return ResetStoryProgress(db, storyID)
}

// ClearAllOccurrences drops the recorded occurrences of every story and
// resets every checkpoint.
func ClearAllOccurrences(db DBExecutor) error {
	if _, err := db.Exec(`DELETE FROM occurrence_contexts`); err != nil {
		return err
	}
	if _, err := db.Exec(`DELETE FROM gloss_occurrences`); err != nil {
		return err
	}
	_, err := db.Exec(`UPDATE stories SET last_processed_paragraph = -1`)
	return err
}

// GetOccurrences returns a story's glossed keys, most frequent first.
func GetOccurrences(db DBExecutor, storyID int64) ([]Occurrence, error) {
	rows, err := db.Query(`SELECT id, story_id, key, translation, is_phrase, occurrence_count, first_paragraph_id
		FROM gloss_occurrences WHERE story_id = ? ORDER BY occurrence_count DESC, key`, storyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Occurrence
	for rows.Next() {
		var o Occurrence
		var first sql.NullInt64
		if err := rows.Scan(&o.ID, &o.StoryID, &o.Key, &o.Translation, &o.IsPhrase, &o.OccurrenceCount, &first); err != nil {
			return nil, err
		}
		if first.Valid {
			o.FirstParagraphID = first.Int64
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

// GetContextParagraphs returns the paragraph ids remembered for an occurrence.
func GetContextParagraphs(db DBExecutor, occurrenceID int64) ([]int64, error) {
	rows, err := db.Query(`SELECT paragraph_id FROM occurrence_contexts WHERE occurrence_id = ? ORDER BY paragraph_id`, occurrenceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

// GetStoryProgress returns the last processed paragraph position for a story.
func GetStoryProgress(db DBExecutor, storyID int64) (int, error) {
	var index int
	err := db.QueryRow("SELECT last_processed_paragraph FROM stories WHERE id = ?", storyID).Scan(&index)
	if err != nil {
		return 0, err
	}
	return index, nil
}

// UpdateStoryProgress updates the last processed paragraph position.
func UpdateStoryProgress(db DBExecutor, storyID int64, index int) error {
	_, err := db.Exec("UPDATE stories SET last_processed_paragraph = ? WHERE id = ?", index, storyID)
	return err
}

// ResetStoryProgress forgets the processing checkpoint so the story is indexed again.
func ResetStoryProgress(db DBExecutor, storyID int64) error {
	return UpdateStoryProgress(db, storyID, -1)
}
