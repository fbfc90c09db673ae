package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/verselens-search-api/internal/config"
	"github.com/verselens-search-api/internal/corpus"
	"github.com/verselens-search-api/internal/engine"
	"github.com/verselens-search-api/internal/handlers"
	"github.com/verselens-search-api/internal/middleware"
	"github.com/verselens-search-api/internal/services"
	"github.com/verselens-search-api/internal/worker"
	"github.com/verselens-search-api/pkg/db"
	"github.com/verselens-search-api/pkg/embeddings"
)

func main() {
	// Load .env file if present
	_ = godotenv.Load()

	// Get configuration
	cfg := config.GetConfig()

	// Create Echo instance
	e := echo.New()
	e.HideBanner = true

	// Middleware
	e.Use(echomiddleware.Logger())
	e.Use(echomiddleware.Recover())
	e.Use(middleware.CORSMiddleware(cfg.CORSOrigins))

	ctx := context.Background()

	// Corpus source
	source, err := newCorpusSource(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to initialize corpus source: %v", err)
	}

	// Embeddings
	embedder, err := embeddings.NewEmbedder(ctx, embeddings.Config{
		Provider:     cfg.EmbeddingProvider,
		ServiceURL:   cfg.EmbeddingServiceURL,
		Dimensions:   cfg.EmbeddingDimensions,
		HTTPTimeout:  cfg.EmbeddingTimeout,
		GCPProjectID: cfg.GCPProjectID,
		GCPLocation:  cfg.GCPLocation,
		VertexModel:  cfg.VertexModel,
	})
	if err != nil {
		log.Fatalf("Failed to initialize embeddings: %v", err)
	}
	embeddingsSvc, err := embeddings.NewEmbeddingsService(embedder, embeddings.ServiceConfig{
		QueryCacheSize: cfg.QueryCacheSize,
		RateLimit:      cfg.EmbedRateLimit,
		MaxRetries:     cfg.EmbedMaxRetries,
	})
	if err != nil {
		log.Fatalf("Failed to initialize embeddings service: %v", err)
	}
	log.Printf("Using %s embeddings", cfg.EmbeddingProvider)

	// Index engine, with builds on a single background worker
	pool := worker.NewPool(1, 1)
	eng := engine.New(source, embeddingsSvc, pool, engine.Config{
		BatchSize:          cfg.BuildBatchSize,
		Concurrency:        cfg.BuildConcurrency,
		BuildTimeout:       cfg.BuildTimeout,
		SearchTimeout:      cfg.SearchTimeout,
		DefaultTranslation: cfg.DefaultTranslation,
	})
	verseSearchSvc := services.NewVerseSearchService(eng, source, cfg.DefaultResults, cfg.MaxResults)
	bibleSvc, err := services.NewBibleService(source, cfg.BibleCacheSize)
	if err != nil {
		log.Fatalf("Failed to initialize bible service: %v", err)
	}

	// Create API group with prefix
	api := e.Group(cfg.APIPrefix)

	// Register handlers
	healthHandler := handlers.NewHealthHandler(bibleSvc)
	healthHandler.RegisterRoutes(api)

	bibleHandler := handlers.NewBibleHandler(bibleSvc, verseSearchSvc)
	bibleHandler.RegisterRoutes(api)

	searchHandler := handlers.NewSearchHandler(verseSearchSvc)
	searchHandler.RegisterRoutes(api)

	indexHandler := handlers.NewIndexHandler(verseSearchSvc, cfg.DefaultTranslation)
	indexHandler.RegisterRoutes(api)

	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	// Root health check
	e.GET("/", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"name":    cfg.APITitle,
			"version": cfg.APIVersion,
			"status":  "running",
		})
	})

	if cfg.BuildOnStart {
		ack, err := eng.Build(cfg.DefaultTranslation)
		if err != nil {
			log.Printf("Failed to start initial index build: %v", err)
		} else {
			log.Printf("Initial index build %s started for %s", ack.BuildID, ack.Translation)
		}
	}

	// Start server
	go func() {
		addr := fmt.Sprintf(":%s", cfg.Port)
		log.Printf("Starting %s v%s on %s", cfg.APITitle, cfg.APIVersion, addr)
		if err := e.Start(addr); err != nil {
			log.Printf("Server stopped: %v", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Printf("Error shutting down server: %v", err)
	}

	// Cancels a running build
	if err := pool.Shutdown(shutdownCtx); err != nil {
		log.Printf("Error stopping build worker: %v", err)
	}

	if err := embeddingsSvc.Close(); err != nil {
		log.Printf("Error closing embeddings client: %v", err)
	}

	if err := db.ClosePostgres(); err != nil {
		log.Printf("Error closing PostgreSQL: %v", err)
	}

	log.Println("Server stopped")
}

func newCorpusSource(ctx context.Context, cfg *config.Config) (corpus.Source, error) {
	switch cfg.CorpusBackend {
	case "postgres":
		if err := db.InitPostgres(ctx, cfg.PostgresURI); err != nil {
			return nil, err
		}
		log.Println("Using PostgreSQL corpus source")
		return corpus.NewPostgresSource(db.GetPostgres()), nil
	case "github", "":
		log.Printf("Using GitHub corpus source (cache: %s)", cfg.CorpusCacheDir)
		return corpus.NewGitHubSource(corpus.GitHubConfig{
			BaseURL:    cfg.CorpusBaseURL,
			IndexURL:   cfg.CorpusIndexURL,
			CacheDir:   cfg.CorpusCacheDir,
			Timeout:    cfg.CorpusHTTPTimeout,
			MaxRetries: cfg.CorpusMaxRetries,
		})
	default:
		return nil, fmt.Errorf("unknown corpus backend %q", cfg.CorpusBackend)
	}
}
