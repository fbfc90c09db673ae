package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verselens-search-api/internal/models"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return New(srv.URL+"/api/v1/", time.Second)
}

func TestClient_Search(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/v1/search", r.URL.Path)
		require.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var req models.SearchRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "shepherd", req.Query)
		require.NotNil(t, req.K)
		assert.Equal(t, 3, *req.K)

		json.NewEncoder(w).Encode(models.SearchResponse{
			Query:   req.Query,
			Results: []models.VerseResult{{Reference: "Psalms 23:1", Rank: 1, Score: 0.9}},
			Total:   1,
		})
	})

	k := 3
	resp, err := c.Search(context.Background(), "shepherd", &k)
	require.NoError(t, err)
	assert.Equal(t, 1, resp.Total)
	assert.Equal(t, "Psalms 23:1", resp.Results[0].Reference)
}

func TestClient_SearchOmitsDefaultK(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var raw map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&raw))
		assert.NotContains(t, raw, "k")
		json.NewEncoder(w).Encode(models.SearchResponse{})
	})

	_, err := c.Search(context.Background(), "grace", nil)
	require.NoError(t, err)
}

func TestClient_Build(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/v1/build-index", r.URL.Path)
		assert.Equal(t, "WEB", r.URL.Query().Get("translation"))
		assert.Equal(t, "true", r.URL.Query().Get("force"))
		w.WriteHeader(http.StatusAccepted)
		json.NewEncoder(w).Encode(models.BuildResponse{Status: "started", Translation: "WEB", BuildID: "abc"})
	})

	resp, err := c.Build(context.Background(), "WEB", true)
	require.NoError(t, err)
	assert.Equal(t, "started", resp.Status)
	assert.Equal(t, "abc", resp.BuildID)
}

func TestClient_StatusAndTranslations(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/v1/status":
			json.NewEncoder(w).Encode(models.StatusResponse{State: "ready", Ready: true, VerseCount: 31102})
		case "/api/v1/translations":
			json.NewEncoder(w).Encode(models.TranslationsResponse{Available: []string{"KJV", "WEB"}, Cached: []string{"KJV"}})
		case "/api/v1/health":
			w.Write([]byte(`{"status":"healthy"}`))
		default:
			http.NotFound(w, r)
		}
	})

	st, err := c.Status(context.Background())
	require.NoError(t, err)
	assert.True(t, st.Ready)
	assert.Equal(t, 31102, st.VerseCount)

	tr, err := c.Translations(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"KJV", "WEB"}, tr.Available)

	assert.NoError(t, c.Health(context.Background()))
}

func TestClient_APIErrors(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/v1/search":
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"message":"Search index not ready"}`))
		default:
			w.WriteHeader(http.StatusBadGateway)
		}
	})

	_, err := c.Search(context.Background(), "hope", nil)
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusServiceUnavailable, apiErr.StatusCode)
	assert.Equal(t, "Search index not ready", apiErr.Message)
	assert.EqualError(t, err, "Search index not ready (HTTP 503)")

	_, err = c.Status(context.Background())
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "Bad Gateway", apiErr.Message)
}

func TestClient_Chapter(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/v1/bible/KJV/1 John/4", r.URL.Path)
		json.NewEncoder(w).Encode(models.ChapterResponse{
			Translation: "KJV",
			Book:        "1 John",
			Chapter:     4,
			Verses:      map[string]string{"8": "He that loveth not knoweth not God; for God is love."},
			VerseCount:  1,
		})
	})

	resp, err := c.Chapter(context.Background(), "KJV", "1 John", 4)
	require.NoError(t, err)
	assert.Equal(t, 1, resp.VerseCount)
	assert.Contains(t, resp.Verses["8"], "God is love")
}
