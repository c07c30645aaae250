package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/japaniel/qisas/internal/config"
	"github.com/japaniel/qisas/pkg/db"
	"github.com/japaniel/qisas/pkg/dictionary"
	"github.com/japaniel/qisas/pkg/gloss"
	"github.com/japaniel/qisas/pkg/story"
)

// app bundles what every subcommand needs: the store and the vocabulary
// importer built from the loaded configuration.
type app struct {
	cfg   config.Config
	conn  *sql.DB
	vocab *dictionary.Importer
	log   *slog.Logger
}

func openApp() (*app, error) {
	cfg, err := requireConfig()
	if err != nil {
		return nil, err
	}
	conn, err := db.Open(cfg.Paths.DB)
	if err != nil {
		return nil, fmt.Errorf("open database %s: %w", cfg.Paths.DB, err)
	}
	var opts []gloss.Option
	if cfg.Reader.WordBoundaries {
		opts = append(opts, gloss.WithWordBoundaries())
	}
	return &app{
		cfg:   cfg,
		conn:  conn,
		vocab: dictionary.NewImporter(conn, opts...),
		log:   slog.Default(),
	}, nil
}

func (a *app) Close() error {
	return a.conn.Close()
}

func (a *app) story(slug string) (db.Story, error) {
	s, err := db.GetStoryBySlug(a.conn, slug)
	if errors.Is(err, db.ErrNotFound) {
		return db.Story{}, fmt.Errorf("unknown story %q, see `qisas stories`", slug)
	}
	return s, err
}

// importCommon makes sure the configured common vocabulary file exists,
// downloading it when a URL is configured, and replaces the stored common
// vocabulary with its content.
func (a *app) importCommon(ctx context.Context) (int, error) {
	path := a.cfg.Paths.CommonVocab
	if path == "" {
		return 0, fmt.Errorf("no common vocabulary path configured")
	}
	if err := dictionary.EnsureVocabulary(ctx, path, a.cfg.Paths.CommonVocabURL); err != nil {
		return 0, err
	}
	dict, err := dictionary.LoadVocabulary(path)
	if err != nil {
		return 0, err
	}
	return a.vocab.Import(ctx, db.CommonVocabulary, dict, true)
}

// ensureCommon imports the common vocabulary on first use. Failures are
// logged and the caller continues with whatever vocabulary is stored.
func (a *app) ensureCommon(ctx context.Context) {
	stored, err := db.GetVocabulary(a.conn, db.CommonVocabulary)
	if err != nil {
		a.log.Warn("failed to read common vocabulary", "error", err)
		return
	}
	if len(stored) > 0 || a.cfg.Paths.CommonVocab == "" {
		return
	}
	n, err := a.importCommon(ctx)
	if err != nil {
		a.log.Warn("continuing without common vocabulary", "path", a.cfg.Paths.CommonVocab, "error", err)
		return
	}
	a.log.Info("imported common vocabulary", "entries", n)
}

// saveStory stores a story, its paragraphs and its own vocabulary in one
// transaction.
func (a *app) saveStory(ctx context.Context, s story.Story, sourceURL string) (int64, error) {
	tx, err := a.conn.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() {
		_ = tx.Rollback() // ignored if committed
	}()

	id, err := db.CreateOrGetStory(tx, s.Slug, s.Title.Arabic, s.Title.English, sourceURL)
	if err != nil {
		return 0, err
	}
	if err := db.ReplaceParagraphs(tx, id, s.Content.Arabic, s.Content.English); err != nil {
		return 0, fmt.Errorf("store paragraphs of %q: %w", s.Slug, err)
	}
	if s.Vocabulary != nil {
		if _, err := dictionary.StoreVocabulary(tx, id, s.Vocabulary, true); err != nil {
			return 0, fmt.Errorf("store vocabulary of %q: %w", s.Slug, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	a.vocab.Invalidate(id)
	return id, nil
}
