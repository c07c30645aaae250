package dictionary

import (
	"context"
	"database/sql"
	"testing"

	"github.com/japaniel/qisas/pkg/db"
	"github.com/japaniel/qisas/pkg/gloss"
	_ "github.com/mattn/go-sqlite3"
)

func setupDB(t *testing.T) *sql.DB {
	t.Helper()
	conn, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	conn.SetMaxOpenConns(1)
	if err := db.InitDB(conn); err != nil {
		t.Fatalf("init db: %v", err)
	}
	return conn
}

func TestImporterMergesCommonAndStory(t *testing.T) {
	conn := setupDB(t)
	defer conn.Close()
	ctx := context.Background()

	storyID, err := db.CreateOrGetStory(conn, "the-lost-phone", "", "", "")
	if err != nil {
		t.Fatal(err)
	}

	im := NewImporter(conn)
	n, err := im.Import(ctx, db.CommonVocabulary, gloss.Dictionary{"كان": "was", "رجل": "man", "": "bad"}, false)
	if err != nil {
		t.Fatalf("import common: %v", err)
	}
	if n != 2 {
		t.Errorf("expected 2 common entries, got %d", n)
	}
	if _, err := im.Import(ctx, storyID, gloss.Dictionary{"كان": "was (story)", "رجل الأمن": "security guard"}, false); err != nil {
		t.Fatalf("import story: %v", err)
	}

	e, err := im.ForStory(storyID)
	if err != nil {
		t.Fatalf("ForStory: %v", err)
	}
	if e.Dictionary["كان"] != "was (story)" || e.Dictionary["رجل"] != "man" {
		t.Fatalf("unexpected merged dictionary %v", e.Dictionary)
	}
	tokens, err := e.Tokenizer.Tokenize("كان رجل الأمن هنا")
	if err != nil {
		t.Fatal(err)
	}
	if !tokens[1].IsPhrasePart || tokens[1].PhraseKey != "رجل الأمن" {
		t.Fatalf("expected phrase match from story vocabulary, got %+v", tokens)
	}

	again, err := im.ForStory(storyID)
	if err != nil {
		t.Fatal(err)
	}
	if again != e {
		t.Errorf("expected cached entry to be reused")
	}

	// Changing the common vocabulary rebuilds every story's entry.
	if _, err := im.Import(ctx, db.CommonVocabulary, gloss.Dictionary{"بيت": "house"}, true); err != nil {
		t.Fatal(err)
	}
	fresh, err := im.ForStory(storyID)
	if err != nil {
		t.Fatal(err)
	}
	if fresh == e {
		t.Fatalf("expected cache invalidation after import")
	}
	if _, ok := fresh.Dictionary["رجل"]; ok {
		t.Errorf("replace import should have removed old common entries: %v", fresh.Dictionary)
	}
	if fresh.Dictionary["بيت"] != "house" || fresh.Dictionary["كان"] != "was (story)" {
		t.Errorf("unexpected dictionary after replace: %v", fresh.Dictionary)
	}
}

func TestImporterNilDictionary(t *testing.T) {
	conn := setupDB(t)
	defer conn.Close()
	if _, err := NewImporter(conn).Import(context.Background(), db.CommonVocabulary, nil, false); err != gloss.ErrNilDictionary {
		t.Fatalf("expected ErrNilDictionary, got %v", err)
	}
}

func TestImporterWordBoundaryOption(t *testing.T) {
	conn := setupDB(t)
	defer conn.Close()
	im := NewImporter(conn, gloss.WithWordBoundaries())
	if _, err := im.Import(context.Background(), db.CommonVocabulary, gloss.Dictionary{"big bad": "X"}, false); err != nil {
		t.Fatal(err)
	}
	e, err := im.ForStory(db.CommonVocabulary)
	if err != nil {
		t.Fatal(err)
	}
	tokens, err := e.Tokenizer.Tokenize("abig bad")
	if err != nil {
		t.Fatal(err)
	}
	for _, tok := range tokens {
		if tok.IsPhrasePart {
			t.Fatalf("word-boundary option not applied: %+v", tokens)
		}
	}
}

func TestImportClearsStaleOccurrences(t *testing.T) {
	conn := setupDB(t)
	defer conn.Close()
	ctx := context.Background()

	// Two indexed stories, each with a checkpoint past paragraph 0.
	var ids []int64
	for _, slug := range []string{"the-lost-phone", "three-little-pigs"} {
		id, err := db.CreateOrGetStory(conn, slug, "", "", "")
		if err != nil {
			t.Fatal(err)
		}
		if err := db.ReplaceParagraphs(conn, id, []string{"سارة نامت"}, nil); err != nil {
			t.Fatal(err)
		}
		paras, err := db.GetParagraphs(conn, id)
		if err != nil {
			t.Fatal(err)
		}
		if err := db.RecordOccurrence(conn, id, paras[0].ID, "سارة", "Sara", false, 1); err != nil {
			t.Fatal(err)
		}
		if err := db.UpdateStoryProgress(conn, id, 0); err != nil {
			t.Fatal(err)
		}
		ids = append(ids, id)
	}
	indexed := func(id int64) bool {
		t.Helper()
		occ, err := db.GetOccurrences(conn, id)
		if err != nil {
			t.Fatal(err)
		}
		progress, err := db.GetStoryProgress(conn, id)
		if err != nil {
			t.Fatal(err)
		}
		return len(occ) > 0 || progress != -1
	}

	im := NewImporter(conn)
	if _, err := im.Import(ctx, ids[0], gloss.Dictionary{"رجل الأمن": "security guard"}, false); err != nil {
		t.Fatal(err)
	}
	if indexed(ids[0]) {
		t.Errorf("story vocabulary import must clear that story's index")
	}
	if !indexed(ids[1]) {
		t.Errorf("story vocabulary import must leave other stories alone")
	}

	if _, err := im.Import(ctx, db.CommonVocabulary, gloss.Dictionary{"بيت": "house"}, false); err != nil {
		t.Fatal(err)
	}
	if indexed(ids[1]) {
		t.Errorf("common vocabulary import must clear every story's index")
	}
}

func TestStoreVocabularyFollowsCallerTransaction(t *testing.T) {
	conn := setupDB(t)
	defer conn.Close()

	tx, err := conn.Begin()
	if err != nil {
		t.Fatal(err)
	}
	n, err := StoreVocabulary(tx, db.CommonVocabulary, gloss.Dictionary{"بيت": "house", " ": "blank"}, true)
	if err != nil || n != 1 {
		t.Fatalf("StoreVocabulary = %d, %v; want 1, nil", n, err)
	}
	if err := tx.Rollback(); err != nil {
		t.Fatal(err)
	}
	stored, err := db.GetVocabulary(conn, db.CommonVocabulary)
	if err != nil {
		t.Fatal(err)
	}
	if len(stored) != 0 {
		t.Fatalf("rolled back vocabulary must not be stored, got %v", stored)
	}
	if _, err := StoreVocabulary(conn, db.CommonVocabulary, nil, false); err != gloss.ErrNilDictionary {
		t.Fatalf("expected ErrNilDictionary, got %v", err)
	}
}
