package corpus

import (
	"context"

	"github.com/labstack/gommon/log"
)

var logger = log.New("corpus")

// Source supplies verse corpora by translation ID
type Source interface {
	// Load returns the full corpus for a translation
	Load(ctx context.Context, translation string) (*Corpus, error)

	// Translations lists the translation IDs the source can load
	Translations(ctx context.Context) ([]string, error)
}

// CacheLister is implemented by sources that keep a local copy of
// downloaded translations
type CacheLister interface {
	CachedTranslations() ([]string, error)
}
