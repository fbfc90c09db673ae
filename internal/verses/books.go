package verses

import "strings"

// canonicalBooks lists the 66 books in Protestant canonical order with their
// OSIS IDs and any other spellings sources are known to use
var canonicalBooks = []struct {
	name    string
	osis    string
	aliases []string
}{
	{"Genesis", "Gen", nil},
	{"Exodus", "Exod", []string{"Exo", "Ex"}},
	{"Leviticus", "Lev", nil},
	{"Numbers", "Num", nil},
	{"Deuteronomy", "Deut", []string{"Deu", "Dt"}},
	{"Joshua", "Josh", nil},
	{"Judges", "Judg", []string{"Jdg"}},
	{"Ruth", "Ruth", nil},
	{"1 Samuel", "1Sam", []string{"I Samuel", "First Samuel"}},
	{"2 Samuel", "2Sam", []string{"II Samuel", "Second Samuel"}},
	{"1 Kings", "1Kgs", []string{"I Kings", "1Ki"}},
	{"2 Kings", "2Kgs", []string{"II Kings", "2Ki"}},
	{"1 Chronicles", "1Chr", []string{"I Chronicles"}},
	{"2 Chronicles", "2Chr", []string{"II Chronicles"}},
	{"Ezra", "Ezra", nil},
	{"Nehemiah", "Neh", nil},
	{"Esther", "Esth", []string{"Est"}},
	{"Job", "Job", nil},
	{"Psalms", "Ps", []string{"Psalm", "Psa"}},
	{"Proverbs", "Prov", []string{"Pro"}},
	{"Ecclesiastes", "Eccl", []string{"Ecc", "Qoheleth"}},
	{"Song of Solomon", "Song", []string{"Song of Songs", "Canticles", "SOS"}},
	{"Isaiah", "Isa", nil},
	{"Jeremiah", "Jer", nil},
	{"Lamentations", "Lam", nil},
	{"Ezekiel", "Ezek", []string{"Eze"}},
	{"Daniel", "Dan", nil},
	{"Hosea", "Hos", nil},
	{"Joel", "Joel", nil},
	{"Amos", "Amos", nil},
	{"Obadiah", "Obad", []string{"Oba"}},
	{"Jonah", "Jonah", []string{"Jon"}},
	{"Micah", "Mic", nil},
	{"Nahum", "Nah", nil},
	{"Habakkuk", "Hab", nil},
	{"Zephaniah", "Zeph", []string{"Zep"}},
	{"Haggai", "Hag", nil},
	{"Zechariah", "Zech", []string{"Zec"}},
	{"Malachi", "Mal", nil},
	{"Matthew", "Matt", []string{"Mat", "Mt"}},
	{"Mark", "Mark", []string{"Mk"}},
	{"Luke", "Luke", []string{"Lk"}},
	{"John", "John", []string{"Jn"}},
	{"Acts", "Acts", []string{"Acts of the Apostles"}},
	{"Romans", "Rom", nil},
	{"1 Corinthians", "1Cor", []string{"I Corinthians"}},
	{"2 Corinthians", "2Cor", []string{"II Corinthians"}},
	{"Galatians", "Gal", nil},
	{"Ephesians", "Eph", nil},
	{"Philippians", "Phil", []string{"Php"}},
	{"Colossians", "Col", nil},
	{"1 Thessalonians", "1Thess", []string{"I Thessalonians"}},
	{"2 Thessalonians", "2Thess", []string{"II Thessalonians"}},
	{"1 Timothy", "1Tim", []string{"I Timothy"}},
	{"2 Timothy", "2Tim", []string{"II Timothy"}},
	{"Titus", "Titus", nil},
	{"Philemon", "Phlm", []string{"Phm"}},
	{"Hebrews", "Heb", nil},
	{"James", "Jas", nil},
	{"1 Peter", "1Pet", []string{"I Peter"}},
	{"2 Peter", "2Pet", []string{"II Peter"}},
	{"1 John", "1John", []string{"I John"}},
	{"2 John", "2John", []string{"II John"}},
	{"3 John", "3John", []string{"III John"}},
	{"Jude", "Jude", nil},
	{"Revelation", "Rev", []string{"Revelations", "Revelation of John", "Apocalypse"}},
}

var bookOrder = func() map[string]int {
	m := make(map[string]int, len(canonicalBooks)*3)
	for i, b := range canonicalBooks {
		m[bookKey(b.name)] = i
		m[bookKey(b.osis)] = i
		for _, a := range b.aliases {
			m[bookKey(a)] = i
		}
	}
	return m
}()

// BookOrder returns the canonical position of a book name, if known.
// Matching ignores case, spaces and dots.
func BookOrder(name string) (int, bool) {
	i, ok := bookOrder[bookKey(name)]
	return i, ok
}

func bookKey(name string) string {
	var b strings.Builder
	b.Grow(len(name))
	for _, r := range strings.ToLower(name) {
		if r == ' ' || r == '.' || r == '_' || r == '-' {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
