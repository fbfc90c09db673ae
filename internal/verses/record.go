package verses

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/verselens-search-api/internal/corpus"
)

// ErrEmptyCorpus is returned when a corpus yields no verses
var ErrEmptyCorpus = errors.New("corpus contains no verses")

// Reference addresses a single verse
type Reference struct {
	Book    string
	Chapter int
	Verse   int
}

// String formats the reference as "Book chapter:verse"
func (r Reference) String() string {
	return fmt.Sprintf("%s %d:%d", r.Book, r.Chapter, r.Verse)
}

// Record is one verse of a flattened corpus. Its position in the slice
// returned by Flatten is its identity within an index.
type Record struct {
	Reference
	Text string
}

// Flatten converts a corpus into a flat, deterministically ordered slice of
// records: canonical book order for known books, then unknown books in the
// order the corpus lists them, then ascending chapter and verse. Verse text
// is trimmed and verses left empty by trimming are dropped.
func Flatten(c *corpus.Corpus) ([]Record, error) {
	if c == nil {
		return nil, ErrEmptyCorpus
	}

	type rankedBook struct {
		book  *corpus.Book
		known bool
		order int
	}

	books := make([]rankedBook, len(c.Books))
	for i := range c.Books {
		order, known := BookOrder(c.Books[i].Name)
		books[i] = rankedBook{book: &c.Books[i], known: known, order: order}
	}
	sort.SliceStable(books, func(i, j int) bool {
		a, b := books[i], books[j]
		if a.known != b.known {
			return a.known
		}
		return a.known && a.order < b.order
	})

	records := make([]Record, 0, c.VerseCount())
	for _, rb := range books {
		for _, chapter := range sortedKeys(rb.book.Chapters) {
			verses := rb.book.Chapters[chapter]
			for _, verse := range sortedKeys(verses) {
				text := strings.TrimSpace(verses[verse])
				if text == "" {
					continue
				}
				records = append(records, Record{
					Reference: Reference{Book: rb.book.Name, Chapter: chapter, Verse: verse},
					Text:      text,
				})
			}
		}
	}

	if len(records) == 0 {
		return nil, ErrEmptyCorpus
	}
	return records, nil
}

func sortedKeys[V any](m map[int]V) []int {
	keys := make([]int, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	return keys
}
