package corpus

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
)

// PostgresSource loads translations from the verses tables of a PostgreSQL
// database
type PostgresSource struct {
	db *sqlx.DB
}

// NewPostgresSource creates a new PostgreSQL corpus source
func NewPostgresSource(db *sqlx.DB) *PostgresSource {
	return &PostgresSource{db: db}
}

type verseRow struct {
	Book    string `db:"book"`
	Chapter int    `db:"chapter"`
	Verse   int    `db:"verse"`
	Text    string `db:"text"`
}

// Load reads every verse of a translation in canonical book order
func (s *PostgresSource) Load(ctx context.Context, translation string) (*Corpus, error) {
	translation = strings.ToUpper(strings.TrimSpace(translation))

	rows, err := s.db.QueryxContext(ctx, `
		SELECT b.name AS book, v.chapter, v.verse, v.text
		FROM verses v
		JOIN books b ON v.book_id = b.id
		JOIN translations t ON v.translation_id = t.id
		WHERE UPPER(t.code) = $1
		ORDER BY b.book_order, v.chapter, v.verse
	`, translation)
	if err != nil {
		return nil, fmt.Errorf("%w: query verses: %v", ErrCorpusUnavailable, err)
	}
	defer rows.Close()

	c := &Corpus{Translation: translation}
	for rows.Next() {
		var row verseRow
		if err := rows.StructScan(&row); err != nil {
			return nil, fmt.Errorf("%w: scan verse: %v", ErrCorpusUnavailable, err)
		}
		if row.Chapter <= 0 || row.Verse <= 0 {
			return nil, fmt.Errorf("%w: %s %d:%d has a non-positive reference",
				ErrCorpusUnavailable, row.Book, row.Chapter, row.Verse)
		}
		c.Add(row.Book, row.Chapter, row.Verse, row.Text)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterate verses: %v", ErrCorpusUnavailable, err)
	}
	return c, nil
}

// Translations lists the translation codes stored in the database
func (s *PostgresSource) Translations(ctx context.Context) ([]string, error) {
	var codes []string
	if err := s.db.SelectContext(ctx, &codes, `SELECT UPPER(code) FROM translations ORDER BY code`); err != nil {
		return nil, fmt.Errorf("%w: list translations: %v", ErrCorpusUnavailable, err)
	}
	if codes == nil {
		codes = []string{}
	}
	return codes, nil
}
