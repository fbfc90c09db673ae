// Command seed copies translations from the GitHub corpus into PostgreSQL so
// the API can run with CORPUS_BACKEND=postgres.
//
// Environment variables:
//
//	POSTGRES_URI      - PostgreSQL connection string (required)
//	CORPUS_BASE_URL   - raw file host of the translation repository
//	CORPUS_CACHE_DIR  - local download cache
//
// Usage:
//
//	go run ./cmd/seed -translations KJV,WEB
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/verselens-search-api/internal/config"
	"github.com/verselens-search-api/internal/corpus"
	"github.com/verselens-search-api/pkg/db"
)

func main() {
	translations := flag.String("translations", "", "Comma separated translation codes (defaults to DEFAULT_TRANSLATION)")
	skipSchema := flag.Bool("skip-schema", false, "Do not create the corpus tables")
	flag.Parse()

	_ = godotenv.Load()
	cfg := config.GetConfig()

	if cfg.PostgresURI == "" {
		log.Fatal("POSTGRES_URI environment variable is required")
	}

	codes := splitCodes(*translations)
	if len(codes) == 0 {
		codes = []string{cfg.DefaultTranslation}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := db.InitPostgres(ctx, cfg.PostgresURI); err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.ClosePostgres()

	github, err := corpus.NewGitHubSource(corpus.GitHubConfig{
		BaseURL:    cfg.CorpusBaseURL,
		IndexURL:   cfg.CorpusIndexURL,
		CacheDir:   cfg.CorpusCacheDir,
		Timeout:    cfg.CorpusHTTPTimeout,
		MaxRetries: cfg.CorpusMaxRetries,
	})
	if err != nil {
		log.Fatalf("Failed to create GitHub source: %v", err)
	}
	store := corpus.NewPostgresSource(db.GetPostgres())

	if !*skipSchema {
		if err := store.EnsureSchema(ctx); err != nil {
			log.Fatalf("Failed to create schema: %v", err)
		}
	}

	for _, code := range codes {
		c, err := github.Load(ctx, code)
		if err != nil {
			log.Fatalf("Failed to load %s: %v", code, err)
		}
		n, err := store.Import(ctx, c)
		if err != nil {
			log.Fatalf("Failed to import %s: %v", code, err)
		}
		log.Printf("Imported %d verses of %s", n, code)
	}
}

func splitCodes(s string) []string {
	var codes []string
	for _, part := range strings.Split(s, ",") {
		if code := strings.ToUpper(strings.TrimSpace(part)); code != "" {
			codes = append(codes, code)
		}
	}
	return codes
}
