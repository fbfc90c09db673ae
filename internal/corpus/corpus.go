package corpus

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
)

var (
	// ErrCorpusUnavailable is returned when a corpus cannot be fetched or is malformed
	ErrCorpusUnavailable = errors.New("corpus unavailable")

	// ErrUnknownTranslation is returned for a translation the source does not offer
	ErrUnknownTranslation = errors.New("unknown translation")
)

// Corpus holds one translation's text keyed book -> chapter -> verse.
// Books keep the order in which the source listed them.
type Corpus struct {
	Translation string
	Books       []Book

	byName map[string]int
}

// Book is a single book of a corpus
type Book struct {
	Name     string
	Chapters map[int]map[int]string
}

// Add stores a verse, creating the book and chapter on first use
func (c *Corpus) Add(book string, chapter, verse int, text string) {
	if c.byName == nil || len(c.byName) != len(c.Books) {
		c.byName = make(map[string]int, len(c.Books))
		for i, b := range c.Books {
			c.byName[b.Name] = i
		}
	}

	i, ok := c.byName[book]
	if !ok {
		i = len(c.Books)
		c.Books = append(c.Books, Book{Name: book, Chapters: map[int]map[int]string{}})
		c.byName[book] = i
	}

	chapters := c.Books[i].Chapters
	if chapters[chapter] == nil {
		chapters[chapter] = map[int]string{}
	}
	chapters[chapter][verse] = text
}

// FindBook looks a book up by name, ignoring case
func (c *Corpus) FindBook(name string) (*Book, bool) {
	name = strings.TrimSpace(name)
	for i := range c.Books {
		if strings.EqualFold(c.Books[i].Name, name) {
			return &c.Books[i], true
		}
	}
	return nil, false
}

// ChapterNumbers returns the chapters of b in ascending order
func (b *Book) ChapterNumbers() []int {
	return sortedInts(b.Chapters)
}

func (c *Corpus) has(book string, chapter, verse int) bool {
	for _, b := range c.Books {
		if b.Name == book {
			_, ok := b.Chapters[chapter][verse]
			return ok
		}
	}
	return false
}

// VerseCount returns the number of verses across all books
func (c *Corpus) VerseCount() int {
	if c == nil {
		return 0
	}
	n := 0
	for _, b := range c.Books {
		for _, verses := range b.Chapters {
			n += len(verses)
		}
	}
	return n
}

// Parse decodes a corpus document of the form
// {"Book": {"1": {"1": "text", ...}, ...}, ...}.
// Any other shape is reported as ErrCorpusUnavailable.
func Parse(translation string, r io.Reader) (*Corpus, error) {
	dec := json.NewDecoder(r)

	if err := expectDelim(dec, '{'); err != nil {
		return nil, malformed(err)
	}

	c := &Corpus{Translation: translation}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, malformed(err)
		}
		bookName, ok := tok.(string)
		if !ok {
			return nil, malformed(fmt.Errorf("unexpected token %v", tok))
		}

		var raw map[string]map[string]*string
		if err := dec.Decode(&raw); err != nil {
			return nil, malformed(fmt.Errorf("book %q: %w", bookName, err))
		}
		chapters, err := derefChapters(bookName, raw)
		if err != nil {
			return nil, malformed(err)
		}
		if err := addBook(c, bookName, chapters); err != nil {
			return nil, malformed(err)
		}
	}

	if err := expectDelim(dec, '}'); err != nil {
		return nil, malformed(err)
	}
	return c, nil
}

func addBook(c *Corpus, name string, chapters map[string]map[string]string) error {
	if strings.TrimSpace(name) == "" {
		return errors.New("empty book name")
	}
	if chapters == nil {
		return fmt.Errorf("book %q has no chapters object", name)
	}
	for chapterKey, verses := range chapters {
		chapter, err := positiveInt(chapterKey)
		if err != nil {
			return fmt.Errorf("book %q chapter %q: %w", name, chapterKey, err)
		}
		if verses == nil {
			return fmt.Errorf("book %q chapter %d has no verses object", name, chapter)
		}
		for verseKey, text := range verses {
			verse, err := positiveInt(verseKey)
			if err != nil {
				return fmt.Errorf("book %q chapter %d verse %q: %w", name, chapter, verseKey, err)
			}
			if c.has(name, chapter, verse) {
				return fmt.Errorf("book %q %d:%d appears more than once", name, chapter, verse)
			}
			c.Add(name, chapter, verse, text)
		}
	}
	return nil
}

// positiveInt accepts only canonical decimal keys so that two spellings of
// one number cannot both reach the same slot
func positiveInt(key string) (int, error) {
	n, err := strconv.Atoi(key)
	if err != nil {
		return 0, fmt.Errorf("not a number")
	}
	if n <= 0 {
		return 0, fmt.Errorf("must be positive")
	}
	if strconv.Itoa(n) != key {
		return 0, fmt.Errorf("not in canonical form")
	}
	return n, nil
}

func expectDelim(dec *json.Decoder, want json.Delim) error {
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != want {
		return fmt.Errorf("expected %q, got %v", want, tok)
	}
	return nil
}

func malformed(err error) error {
	return fmt.Errorf("%w: malformed corpus: %v", ErrCorpusUnavailable, err)
}

// derefChapters rejects null verse texts, which encoding/json would
// otherwise decode as empty strings.
func derefChapters(book string, raw map[string]map[string]*string) (map[string]map[string]string, error) {
	if raw == nil {
		return nil, nil
	}
	chapters := make(map[string]map[string]string, len(raw))
	for chapterKey, verses := range raw {
		if verses == nil {
			chapters[chapterKey] = nil
			continue
		}
		out := make(map[string]string, len(verses))
		for verseKey, text := range verses {
			if text == nil {
				return nil, fmt.Errorf("book %q chapter %s verse %s: null text", book, chapterKey, verseKey)
			}
			out[verseKey] = *text
		}
		chapters[chapterKey] = out
	}
	return chapters, nil
}

func sortedInts[V any](m map[int]V) []int {
	keys := make([]int, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	return keys
}
