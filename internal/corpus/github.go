package corpus

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
)

const (
	DefaultBaseURL  = "https://raw.githubusercontent.com/jadenzaleski/BibleTranslations/master"
	DefaultIndexURL = "https://api.github.com/repos/jadenzaleski/BibleTranslations/contents"

	metaCacheName = "VERSES_META"
)

// GitHubConfig configures a GitHubSource
type GitHubConfig struct {
	BaseURL    string        // raw file host, files live at <BaseURL>/<T>/<T>_bible.json
	IndexURL   string        // contents API listing one directory per translation
	CacheDir   string        // downloaded translations are kept here as <T>.json
	Timeout    time.Duration // per-request timeout
	MaxRetries int
}

// GitHubSource loads translations published as JSON files in a GitHub
// repository and caches them on local disk
type GitHubSource struct {
	cfg        GitHubConfig
	httpClient *http.Client

	mu           sync.Mutex
	translations []string
}

// NewGitHubSource creates a new GitHub-backed corpus source
func NewGitHubSource(cfg GitHubConfig) (*GitHubSource, error) {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.IndexURL == "" {
		cfg.IndexURL = DefaultIndexURL
	}
	if cfg.CacheDir == "" {
		cfg.CacheDir = filepath.Join(os.TempDir(), "bible_data")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}

	if err := os.MkdirAll(cfg.CacheDir, 0o755); err != nil {
		return nil, fmt.Errorf("create corpus cache dir: %w", err)
	}

	return &GitHubSource{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}, nil
}

type contentsEntry struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// Translations lists translation directories in the repository. A successful
// listing is cached for the life of the source.
func (s *GitHubSource) Translations(ctx context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.translations != nil {
		return append([]string(nil), s.translations...), nil
	}

	body, err := s.fetch(ctx, s.cfg.IndexURL)
	if err != nil {
		return nil, fmt.Errorf("%w: list translations: %v", ErrCorpusUnavailable, err)
	}

	var entries []contentsEntry
	if err := json.Unmarshal(body, &entries); err != nil {
		return nil, fmt.Errorf("%w: decode translation listing: %v", ErrCorpusUnavailable, err)
	}

	translations := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.Type != "dir" || strings.HasPrefix(e.Name, ".") {
			continue
		}
		translations = append(translations, e.Name)
	}
	sort.Strings(translations)

	s.translations = translations
	return append([]string(nil), translations...), nil
}

// CachedTranslations lists translations already downloaded to the cache dir
func (s *GitHubSource) CachedTranslations() ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(s.cfg.CacheDir, "*.json"))
	if err != nil {
		return nil, fmt.Errorf("list cache: %w", err)
	}

	cached := make([]string, 0, len(matches))
	for _, m := range matches {
		name := strings.ToUpper(strings.TrimSuffix(filepath.Base(m), filepath.Ext(m)))
		if name == metaCacheName {
			continue
		}
		cached = append(cached, name)
	}
	sort.Strings(cached)
	return cached, nil
}

// Load returns a translation, reading the disk cache first and downloading
// on a miss
func (s *GitHubSource) Load(ctx context.Context, translation string) (*Corpus, error) {
	translation = strings.ToUpper(strings.TrimSpace(translation))
	if translation == "" {
		return nil, fmt.Errorf("%w: translation is required", ErrCorpusUnavailable)
	}

	path := s.cachePath(translation)
	if f, err := os.Open(path); err == nil {
		defer f.Close()
		c, err := Parse(translation, f)
		if err == nil {
			return c, nil
		}
		logger.Warnf("Discarding unreadable cache file %s: %v", path, err)
	}

	available, err := s.Translations(ctx)
	if err != nil {
		return nil, err
	}
	if !slices.Contains(available, translation) {
		return nil, fmt.Errorf("%w: %w %s (available: %s)",
			ErrCorpusUnavailable, ErrUnknownTranslation, translation, strings.Join(available, ", "))
	}

	url := fmt.Sprintf("%s/%s/%s_bible.json", s.cfg.BaseURL, translation, translation)
	logger.Infof("Downloading %s from %s", translation, url)
	body, err := s.fetch(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("%w: download %s: %v", ErrCorpusUnavailable, translation, err)
	}

	c, err := Parse(translation, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}

	if err := writeFileAtomic(path, body); err != nil {
		logger.Warnf("Failed to cache %s: %v", translation, err)
	}
	return c, nil
}

func (s *GitHubSource) cachePath(translation string) string {
	return filepath.Join(s.cfg.CacheDir, translation+".json")
}

// fetch GETs url, retrying transport errors and 5xx responses
func (s *GitHubSource) fetch(ctx context.Context, url string) ([]byte, error) {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 250 * time.Millisecond
	b.MaxElapsedTime = 2 * time.Minute

	return backoff.RetryWithData(func() ([]byte, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, backoff.Permanent(fmt.Errorf("create request: %w", err))
		}

		resp, err := s.httpClient.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, backoff.Permanent(ctx.Err())
			}
			return nil, err
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("read body: %w", err)
		}

		switch {
		case resp.StatusCode == http.StatusOK:
			return body, nil
		case resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests:
			return nil, fmt.Errorf("GET %s: status %d", url, resp.StatusCode)
		default:
			return nil, backoff.Permanent(fmt.Errorf("GET %s: status %d", url, resp.StatusCode))
		}
	}, backoff.WithContext(backoff.WithMaxRetries(b, uint64(s.cfg.MaxRetries)), ctx))
}

func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), path)
}
