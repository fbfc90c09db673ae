package corpus

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const kjvDoc = `{"Genesis": {"1": {"1": "In the beginning God created the heaven and the earth."}}}`

type fakeGitHub struct {
	listCalls     atomic.Int32
	downloadCalls atomic.Int32
	failDownloads atomic.Int32 // number of 503s to return before succeeding
}

func (f *fakeGitHub) server(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/contents", func(w http.ResponseWriter, r *http.Request) {
		f.listCalls.Add(1)
		_ = json.NewEncoder(w).Encode([]contentsEntry{
			{Name: "WEB", Type: "dir"},
			{Name: "KJV", Type: "dir"},
			{Name: ".github", Type: "dir"},
			{Name: "README.md", Type: "file"},
		})
	})
	mux.HandleFunc("/raw/KJV/KJV_bible.json", func(w http.ResponseWriter, r *http.Request) {
		f.downloadCalls.Add(1)
		if f.failDownloads.Load() > 0 {
			f.failDownloads.Add(-1)
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(kjvDoc))
	})
	mux.HandleFunc("/raw/WEB/WEB_bible.json", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"Genesis": "broken"}`))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newTestSource(t *testing.T, srv *httptest.Server, retries int) *GitHubSource {
	t.Helper()
	s, err := NewGitHubSource(GitHubConfig{
		BaseURL:    srv.URL + "/raw",
		IndexURL:   srv.URL + "/contents",
		CacheDir:   t.TempDir(),
		MaxRetries: retries,
	})
	require.NoError(t, err)
	return s
}

func TestGitHubSource_Translations(t *testing.T) {
	fake := &fakeGitHub{}
	s := newTestSource(t, fake.server(t), 0)

	got, err := s.Translations(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"KJV", "WEB"}, got)

	_, err = s.Translations(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(1), fake.listCalls.Load(), "listing should be cached")
}

func TestGitHubSource_LoadDownloadsAndCaches(t *testing.T) {
	fake := &fakeGitHub{}
	s := newTestSource(t, fake.server(t), 0)
	ctx := context.Background()

	c, err := s.Load(ctx, "kjv")
	require.NoError(t, err)
	assert.Equal(t, "KJV", c.Translation)
	assert.Equal(t, 1, c.VerseCount())

	_, err = os.Stat(filepath.Join(s.cfg.CacheDir, "KJV.json"))
	require.NoError(t, err)

	_, err = s.Load(ctx, "KJV")
	require.NoError(t, err)
	assert.Equal(t, int32(1), fake.downloadCalls.Load(), "second load should hit the disk cache")

	cached, err := s.CachedTranslations()
	require.NoError(t, err)
	assert.Equal(t, []string{"KJV"}, cached)
}

func TestGitHubSource_RetriesServerErrors(t *testing.T) {
	fake := &fakeGitHub{}
	fake.failDownloads.Store(2)
	s := newTestSource(t, fake.server(t), 3)

	c, err := s.Load(context.Background(), "KJV")
	require.NoError(t, err)
	assert.Equal(t, 1, c.VerseCount())
	assert.Equal(t, int32(3), fake.downloadCalls.Load())
}

func TestGitHubSource_Errors(t *testing.T) {
	fake := &fakeGitHub{}
	s := newTestSource(t, fake.server(t), 0)
	ctx := context.Background()

	_, err := s.Load(ctx, "NIV")
	assert.ErrorIs(t, err, ErrCorpusUnavailable)
	assert.ErrorIs(t, err, ErrUnknownTranslation)

	_, err = s.Load(ctx, "WEB")
	assert.ErrorIs(t, err, ErrCorpusUnavailable)

	_, err = s.Load(ctx, " ")
	assert.ErrorIs(t, err, ErrCorpusUnavailable)

	cached, err := s.CachedTranslations()
	require.NoError(t, err)
	assert.Empty(t, cached, "malformed downloads are not cached")
}

func TestGitHubSource_ListingUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	s := newTestSource(t, srv, 2)
	_, err := s.Translations(context.Background())
	assert.ErrorIs(t, err, ErrCorpusUnavailable)
}

func TestGitHubSource_CacheSkipsMetaFile(t *testing.T) {
	fake := &fakeGitHub{}
	s := newTestSource(t, fake.server(t), 0)
	require.NoError(t, os.WriteFile(filepath.Join(s.cfg.CacheDir, "verses_meta.json"), []byte(`{}`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(s.cfg.CacheDir, "web.json"), []byte(kjvDoc), 0o644))

	cached, err := s.CachedTranslations()
	require.NoError(t, err)
	assert.Equal(t, []string{"WEB"}, cached)
}
