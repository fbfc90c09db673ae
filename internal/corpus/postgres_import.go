package corpus

import (
	"context"
	"fmt"
	"strings"

	"github.com/labstack/gommon/log"
)

// Schema creates the tables PostgresSource reads from
const Schema = `
CREATE TABLE IF NOT EXISTS translations (
	id   SERIAL PRIMARY KEY,
	code TEXT NOT NULL UNIQUE
);
CREATE TABLE IF NOT EXISTS books (
	id         SERIAL PRIMARY KEY,
	name       TEXT NOT NULL UNIQUE,
	book_order INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS verses (
	translation_id INTEGER NOT NULL REFERENCES translations(id) ON DELETE CASCADE,
	book_id        INTEGER NOT NULL REFERENCES books(id),
	chapter        INTEGER NOT NULL CHECK (chapter > 0),
	verse          INTEGER NOT NULL CHECK (verse > 0),
	text           TEXT NOT NULL,
	PRIMARY KEY (translation_id, book_id, chapter, verse)
);`

// EnsureSchema creates the corpus tables if they do not exist
func (s *PostgresSource) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("create corpus schema: %w", err)
	}
	return nil
}

// Import replaces the stored text of c's translation with c in a single
// transaction. Books are ordered as c lists them.
func (s *PostgresSource) Import(ctx context.Context, c *Corpus) (int, error) {
	code := strings.ToUpper(strings.TrimSpace(c.Translation))
	if code == "" {
		return 0, fmt.Errorf("import corpus: missing translation code")
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin import: %w", err)
	}
	defer tx.Rollback()

	var translationID int
	if err := tx.GetContext(ctx, &translationID, `
		INSERT INTO translations (code) VALUES ($1)
		ON CONFLICT (code) DO UPDATE SET code = EXCLUDED.code
		RETURNING id
	`, code); err != nil {
		return 0, fmt.Errorf("upsert translation %s: %w", code, err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM verses WHERE translation_id = $1`, translationID); err != nil {
		return 0, fmt.Errorf("clear verses of %s: %w", code, err)
	}

	stmt, err := tx.PreparexContext(ctx, `
		INSERT INTO verses (translation_id, book_id, chapter, verse, text)
		VALUES ($1, $2, $3, $4, $5)
	`)
	if err != nil {
		return 0, fmt.Errorf("prepare verse insert: %w", err)
	}
	defer stmt.Close()

	total := 0
	for i, b := range c.Books {
		var bookID int
		if err := tx.GetContext(ctx, &bookID, `
			INSERT INTO books (name, book_order) VALUES ($1, $2)
			ON CONFLICT (name) DO UPDATE SET book_order = EXCLUDED.book_order
			RETURNING id
		`, b.Name, i+1); err != nil {
			return 0, fmt.Errorf("upsert book %s: %w", b.Name, err)
		}

		for _, ch := range sortedInts(b.Chapters) {
			verses := b.Chapters[ch]
			for _, v := range sortedInts(verses) {
				if _, err := stmt.ExecContext(ctx, translationID, bookID, ch, v, verses[v]); err != nil {
					return 0, fmt.Errorf("insert %s %d:%d: %w", b.Name, ch, v, err)
				}
				total++
			}
		}
		logger.Debugf("imported %s into %s", b.Name, code)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit import of %s: %w", code, err)
	}
	logger.Infoj(log.JSON{"message": "corpus imported", "translation": code, "books": len(c.Books), "verses": total})
	return total, nil
}
