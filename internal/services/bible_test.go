package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verselens-search-api/internal/corpus"
)

const psalmsDoc = `{
	"Genesis": {"1": {"1": "In the beginning God created the heaven and the earth."}},
	"Psalms": {
		"23": {"1": "The LORD is my shepherd; I shall not want.", "2": "He maketh me to lie down in green pastures."},
		"117": {"1": "O praise the LORD, all ye nations."}
	}
}`

type docSource struct {
	docs   map[string]string
	cached []string
	loads  int
}

func (s *docSource) Load(ctx context.Context, translation string) (*corpus.Corpus, error) {
	s.loads++
	doc, ok := s.docs[translation]
	if !ok {
		return nil, corpus.ErrUnknownTranslation
	}
	return corpus.Parse(translation, strings.NewReader(doc))
}

func (s *docSource) Translations(ctx context.Context) ([]string, error) {
	out := []string{}
	for t := range s.docs {
		out = append(out, t)
	}
	return out, nil
}

func (s *docSource) CachedTranslations() ([]string, error) { return s.cached, nil }

func newBibleService(t *testing.T, src corpus.Source) *BibleService {
	t.Helper()
	svc, err := NewBibleService(src, 2)
	require.NoError(t, err)
	return svc
}

func TestBibleService_Translation(t *testing.T) {
	src := &docSource{docs: map[string]string{"KJV": psalmsDoc}}
	svc := newBibleService(t, src)

	resp, err := svc.Translation(context.Background(), "kjv")
	require.NoError(t, err)
	assert.Equal(t, "KJV", resp.Translation)
	assert.Equal(t, []string{"Genesis", "Psalms"}, resp.Books)
	assert.Equal(t, 4, resp.TotalVerses)
	assert.Equal(t, "He maketh me to lie down in green pastures.", resp.Data["Psalms"]["23"]["2"])

	_, err = svc.Translation(context.Background(), "KJV")
	require.NoError(t, err)
	assert.Equal(t, 1, src.loads, "parsed translations are cached")
}

func TestBibleService_Book(t *testing.T) {
	svc := newBibleService(t, &docSource{docs: map[string]string{"KJV": psalmsDoc}})

	resp, err := svc.Book(context.Background(), "KJV", "psalms")
	require.NoError(t, err)
	assert.Equal(t, "Psalms", resp.Book)
	assert.Equal(t, []string{"23", "117"}, resp.Chapters)
	assert.Len(t, resp.Data["Psalms"], 2)

	_, err = svc.Book(context.Background(), "KJV", "Hezekiah")
	var nf *NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, []string{"Genesis", "Psalms"}, nf.Available)
	assert.Contains(t, err.Error(), "Book 'Hezekiah' not found")
}

func TestBibleService_Chapter(t *testing.T) {
	svc := newBibleService(t, &docSource{docs: map[string]string{"KJV": psalmsDoc}})

	resp, err := svc.Chapter(context.Background(), "KJV", "PSALMS", 23)
	require.NoError(t, err)
	assert.Equal(t, "Psalms", resp.Book)
	assert.Equal(t, 23, resp.Chapter)
	assert.Equal(t, 2, resp.VerseCount)
	assert.Equal(t, "The LORD is my shepherd; I shall not want.", resp.Verses["1"])

	_, err = svc.Chapter(context.Background(), "KJV", "Psalms", 151)
	var nf *NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, []string{"23", "117"}, nf.Available)
}

func TestBibleService_UnknownTranslation(t *testing.T) {
	svc := newBibleService(t, &docSource{docs: map[string]string{"KJV": psalmsDoc}})

	_, err := svc.Translation(context.Background(), "NIV")
	assert.ErrorIs(t, err, ErrUnknownTranslation)

	_, err = svc.Chapter(context.Background(), " ", "Psalms", 23)
	assert.ErrorIs(t, err, ErrUnknownTranslation)

	empty := newBibleService(t, &docSource{docs: map[string]string{"WEB": `{}`}})
	_, err = empty.Book(context.Background(), "WEB", "Genesis")
	assert.ErrorIs(t, err, ErrUnknownTranslation)
}

func TestBibleService_Availability(t *testing.T) {
	svc := newBibleService(t, &docSource{docs: map[string]string{"KJV": psalmsDoc}, cached: []string{"KJV"}})
	available, cached := svc.Availability(context.Background())
	assert.True(t, available)
	assert.Equal(t, 1, cached)

	down := newBibleService(t, &stubSource{listErr: errors.New("rate limited")})
	available, cached = down.Availability(context.Background())
	assert.False(t, available)
	assert.Zero(t, cached)
}
