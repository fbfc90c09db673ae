package corpus

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockSource(t *testing.T) (*PostgresSource, sqlmock.Sqlmock) {
	t.Helper()
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { mockDB.Close() })
	return NewPostgresSource(sqlx.NewDb(mockDB, "sqlmock")), mock
}

func TestPostgresSource_Load(t *testing.T) {
	s, mock := newMockSource(t)

	rows := sqlmock.NewRows([]string{"book", "chapter", "verse", "text"}).
		AddRow("Genesis", 1, 1, "In the beginning God created the heaven and the earth.").
		AddRow("Genesis", 1, 2, "And the earth was without form, and void.").
		AddRow("John", 1, 1, "In the beginning was the Word.")
	mock.ExpectQuery(`SELECT b.name AS book, v.chapter, v.verse, v.text\s+FROM verses v`).
		WithArgs("KJV").
		WillReturnRows(rows)

	c, err := s.Load(context.Background(), "kjv")
	require.NoError(t, err)
	assert.Equal(t, "KJV", c.Translation)
	require.Len(t, c.Books, 2)
	assert.Equal(t, "Genesis", c.Books[0].Name)
	assert.Equal(t, "John", c.Books[1].Name)
	assert.Equal(t, 3, c.VerseCount())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresSource_LoadQueryError(t *testing.T) {
	s, mock := newMockSource(t)
	mock.ExpectQuery(`SELECT b.name AS book`).WillReturnError(errors.New("connection refused"))

	_, err := s.Load(context.Background(), "KJV")
	assert.ErrorIs(t, err, ErrCorpusUnavailable)
}

func TestPostgresSource_LoadRejectsBadReference(t *testing.T) {
	s, mock := newMockSource(t)
	rows := sqlmock.NewRows([]string{"book", "chapter", "verse", "text"}).
		AddRow("Genesis", 0, 1, "In the beginning")
	mock.ExpectQuery(`SELECT b.name AS book`).WillReturnRows(rows)

	_, err := s.Load(context.Background(), "KJV")
	assert.ErrorIs(t, err, ErrCorpusUnavailable)
}

func TestPostgresSource_Translations(t *testing.T) {
	s, mock := newMockSource(t)
	mock.ExpectQuery(`SELECT UPPER\(code\) FROM translations`).
		WillReturnRows(sqlmock.NewRows([]string{"code"}).AddRow("ASV").AddRow("KJV"))

	got, err := s.Translations(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"ASV", "KJV"}, got)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresSource_Import(t *testing.T) {
	s, mock := newMockSource(t)

	c := &Corpus{Translation: "kjv"}
	c.Add("Genesis", 1, 2, "And the earth was without form, and void.")
	c.Add("Genesis", 1, 1, "In the beginning God created the heaven and the earth.")
	c.Add("John", 11, 35, "Jesus wept.")

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO translations`).WithArgs("KJV").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(7))
	mock.ExpectExec(`DELETE FROM verses WHERE translation_id = \$1`).WithArgs(7).
		WillReturnResult(sqlmock.NewResult(0, 0))
	prep := mock.ExpectPrepare(`INSERT INTO verses`)
	mock.ExpectQuery(`INSERT INTO books`).WithArgs("Genesis", 1).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))
	prep.ExpectExec().WithArgs(7, 1, 1, 1, "In the beginning God created the heaven and the earth.").
		WillReturnResult(sqlmock.NewResult(0, 1))
	prep.ExpectExec().WithArgs(7, 1, 1, 2, "And the earth was without form, and void.").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`INSERT INTO books`).WithArgs("John", 2).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(43))
	prep.ExpectExec().WithArgs(7, 43, 11, 35, "Jesus wept.").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	n, err := s.Import(context.Background(), c)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresSource_ImportRollsBack(t *testing.T) {
	s, mock := newMockSource(t)

	c := &Corpus{Translation: "WEB"}
	c.Add("Genesis", 1, 1, "In the beginning, God created the heavens and the earth.")

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO translations`).WithArgs("WEB").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(2))
	mock.ExpectExec(`DELETE FROM verses`).WithArgs(2).
		WillReturnError(errors.New("permission denied"))
	mock.ExpectRollback()

	_, err := s.Import(context.Background(), c)
	assert.ErrorContains(t, err, "clear verses of WEB")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresSource_EnsureSchema(t *testing.T) {
	s, mock := newMockSource(t)
	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS translations`).WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, s.EnsureSchema(context.Background()))
	require.NoError(t, mock.ExpectationsWereMet())
}
