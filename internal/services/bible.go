package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/verselens-search-api/internal/corpus"
	"github.com/verselens-search-api/internal/models"
)

// ErrNotFound matches any *NotFoundError
var ErrNotFound = errors.New("not found")

// NotFoundError names a book or chapter missing from a translation
type NotFoundError struct {
	What      string
	Available []string
}

func (e *NotFoundError) Error() string {
	if len(e.Available) == 0 {
		return fmt.Sprintf("%s not found", e.What)
	}
	return fmt.Sprintf("%s not found. Available: %s", e.What, strings.Join(e.Available, ", "))
}

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// BibleService serves translation text for browsing. Parsed translations
// are kept in a small LRU.
type BibleService struct {
	source corpus.Source
	cache  *lru.Cache[string, *corpus.Corpus]
}

// NewBibleService creates a new Bible browsing service
func NewBibleService(source corpus.Source, cacheSize int) (*BibleService, error) {
	if cacheSize <= 0 {
		cacheSize = 1
	}
	cache, err := lru.New[string, *corpus.Corpus](cacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create translation cache: %w", err)
	}
	return &BibleService{source: source, cache: cache}, nil
}

func (s *BibleService) load(ctx context.Context, translation string) (*corpus.Corpus, error) {
	translation = strings.ToUpper(strings.TrimSpace(translation))
	if translation == "" {
		return nil, fmt.Errorf("%w: translation is required", ErrUnknownTranslation)
	}
	if c, ok := s.cache.Get(translation); ok {
		return c, nil
	}

	c, err := s.source.Load(ctx, translation)
	if err != nil {
		return nil, err
	}
	if c.VerseCount() == 0 {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTranslation, translation)
	}
	s.cache.Add(translation, c)
	return c, nil
}

// Translation returns a whole translation
func (s *BibleService) Translation(ctx context.Context, translation string) (*models.BibleResponse, error) {
	c, err := s.load(ctx, translation)
	if err != nil {
		return nil, err
	}

	resp := &models.BibleResponse{
		Translation:     c.Translation,
		TranslationName: c.Translation,
		Books:           make([]string, len(c.Books)),
		TotalVerses:     c.VerseCount(),
		Data:            make(map[string]map[string]map[string]string, len(c.Books)),
	}
	for i := range c.Books {
		b := &c.Books[i]
		resp.Books[i] = b.Name
		resp.Data[b.Name] = bookData(b)
	}
	return resp, nil
}

// Book returns one book, matched ignoring case
func (s *BibleService) Book(ctx context.Context, translation, book string) (*models.BookResponse, error) {
	c, err := s.load(ctx, translation)
	if err != nil {
		return nil, err
	}
	b, err := findBook(c, book)
	if err != nil {
		return nil, err
	}

	chapters := make([]string, 0, len(b.Chapters))
	for _, ch := range b.ChapterNumbers() {
		chapters = append(chapters, strconv.Itoa(ch))
	}
	return &models.BookResponse{
		Translation: c.Translation,
		Book:        b.Name,
		Chapters:    chapters,
		Data:        map[string]map[string]map[string]string{b.Name: bookData(b)},
	}, nil
}

// Chapter returns one chapter of a book
func (s *BibleService) Chapter(ctx context.Context, translation, book string, chapter int) (*models.ChapterResponse, error) {
	c, err := s.load(ctx, translation)
	if err != nil {
		return nil, err
	}
	b, err := findBook(c, book)
	if err != nil {
		return nil, err
	}

	verses, ok := b.Chapters[chapter]
	if !ok {
		available := make([]string, 0, len(b.Chapters))
		for _, ch := range b.ChapterNumbers() {
			available = append(available, strconv.Itoa(ch))
		}
		return nil, &NotFoundError{What: fmt.Sprintf("Chapter %d in %s", chapter, b.Name), Available: available}
	}
	return &models.ChapterResponse{
		Translation: c.Translation,
		Book:        b.Name,
		Chapter:     chapter,
		Verses:      chapterData(verses),
		VerseCount:  len(verses),
	}, nil
}

// Availability reports whether the source lists any translation and how many
// are cached locally. Listing errors count as nothing available.
func (s *BibleService) Availability(ctx context.Context) (available bool, cached int) {
	if names, err := s.source.Translations(ctx); err != nil {
		logger.Warnf("Failed to list translations: %v", err)
	} else {
		available = len(names) > 0
	}
	if lister, ok := s.source.(corpus.CacheLister); ok {
		if names, err := lister.CachedTranslations(); err == nil {
			cached = len(names)
		}
	}
	return available, cached
}

func findBook(c *corpus.Corpus, name string) (*corpus.Book, error) {
	if b, ok := c.FindBook(name); ok {
		return b, nil
	}
	available := make([]string, 0, 10)
	for i := 0; i < len(c.Books) && i < 10; i++ {
		available = append(available, c.Books[i].Name)
	}
	return nil, &NotFoundError{What: fmt.Sprintf("Book '%s'", name), Available: available}
}

func bookData(b *corpus.Book) map[string]map[string]string {
	out := make(map[string]map[string]string, len(b.Chapters))
	for ch, verses := range b.Chapters {
		out[strconv.Itoa(ch)] = chapterData(verses)
	}
	return out
}

func chapterData(verses map[int]string) map[string]string {
	out := make(map[string]string, len(verses))
	for v, text := range verses {
		out[strconv.Itoa(v)] = text
	}
	return out
}
