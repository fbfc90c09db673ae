package models

// BibleResponse is a whole translation. Data is keyed book -> chapter -> verse.
type BibleResponse struct {
	Translation     string                                  `json:"translation"`
	TranslationName string                                  `json:"translation_name"`
	Books           []string                                `json:"books"`
	TotalVerses     int                                     `json:"total_verses"`
	Data            map[string]map[string]map[string]string `json:"data"`
}

// BookResponse is one book of a translation
type BookResponse struct {
	Translation string                                  `json:"translation"`
	Book        string                                  `json:"book"`
	Chapters    []string                                `json:"chapters"`
	Data        map[string]map[string]map[string]string `json:"data"`
}

// ChapterResponse is one chapter of a book
type ChapterResponse struct {
	Translation string            `json:"translation"`
	Book        string            `json:"book"`
	Chapter     int               `json:"chapter"`
	Verses      map[string]string `json:"verses"`
	VerseCount  int               `json:"verse_count"`
}
