package config

import (
	"encoding/json"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Config holds all application configuration
type Config struct {
	// API Settings
	APITitle   string
	APIVersion string
	APIPrefix  string
	Port       string

	// CORS
	CORSOrigins []string

	// Corpus source: "github" or "postgres"
	CorpusBackend      string
	CorpusBaseURL      string
	CorpusIndexURL     string
	CorpusCacheDir     string
	CorpusHTTPTimeout  time.Duration
	CorpusMaxRetries   int
	DefaultTranslation string
	PostgresURI        string
	BibleCacheSize     int // parsed translations kept for browsing

	// Embeddings: "vertex", "custom" or "hashing"
	EmbeddingProvider   string
	EmbeddingServiceURL string // For custom provider
	EmbeddingDimensions int
	EmbeddingTimeout    time.Duration

	// Vertex AI (when EmbeddingProvider = "vertex")
	GCPProjectID string
	GCPLocation  string
	VertexModel  string

	// Embedding resilience
	EmbedRateLimit  float64
	EmbedMaxRetries int
	QueryCacheSize  int

	// Index engine
	BuildBatchSize   int
	BuildConcurrency int
	BuildTimeout     time.Duration
	SearchTimeout    time.Duration
	BuildOnStart     bool
	DefaultResults   int
	MaxResults       int
}

var (
	config *Config
	once   sync.Once
)

// GetConfig returns the singleton configuration instance
func GetConfig() *Config {
	once.Do(func() {
		config = loadConfig()
	})
	return config
}

func loadConfig() *Config {
	return &Config{
		APITitle:    getEnv("API_TITLE", "VerseLens Semantic Search API"),
		APIVersion:  getEnv("API_VERSION", "1.0.0"),
		APIPrefix:   getEnv("API_PREFIX", "/api/v1"),
		Port:        getEnv("PORT", "8001"),
		CORSOrigins: parseCORSOrigins(getEnv("CORS_ORIGINS", "*")),

		// Corpus
		CorpusBackend:      strings.ToLower(getEnv("CORPUS_BACKEND", "github")),
		CorpusBaseURL:      getEnv("CORPUS_BASE_URL", ""),
		CorpusIndexURL:     getEnv("CORPUS_INDEX_URL", ""),
		CorpusCacheDir:     getEnv("CORPUS_CACHE_DIR", "./bible_cache"),
		CorpusHTTPTimeout:  getEnvDuration("CORPUS_HTTP_TIMEOUT", 60*time.Second),
		CorpusMaxRetries:   getEnvInt("CORPUS_MAX_RETRIES", 3),
		DefaultTranslation: strings.ToUpper(getEnv("DEFAULT_TRANSLATION", "KJV")),
		PostgresURI:        getEnv("POSTGRES_URI", ""),
		BibleCacheSize:     getEnvInt("BIBLE_CACHE_SIZE", 4),

		// Embeddings
		EmbeddingProvider:   strings.ToLower(getEnv("EMBEDDING_PROVIDER", "hashing")),
		EmbeddingServiceURL: getEnv("EMBEDDING_SERVICE_URL", "http://localhost:8002"),
		EmbeddingDimensions: getEnvInt("EMBEDDING_DIMENSIONS", 0),
		EmbeddingTimeout:    getEnvDuration("EMBEDDING_TIMEOUT", 60*time.Second),

		// Vertex AI
		GCPProjectID: getEnv("GCP_PROJECT_ID", ""),
		GCPLocation:  getEnv("GCP_LOCATION", "us-central1"),
		VertexModel:  getEnv("VERTEX_MODEL", "gemini-embedding-001"),

		EmbedRateLimit:  getEnvFloat("EMBED_RATE_LIMIT", 0),
		EmbedMaxRetries: getEnvInt("EMBED_MAX_RETRIES", 3),
		QueryCacheSize:  getEnvInt("QUERY_CACHE_SIZE", 1024),

		// Index engine
		BuildBatchSize:   getEnvInt("BUILD_BATCH_SIZE", 64),
		BuildConcurrency: getEnvInt("BUILD_CONCURRENCY", 4),
		BuildTimeout:     getEnvDuration("BUILD_TIMEOUT", 0),
		SearchTimeout:    getEnvDuration("SEARCH_TIMEOUT", 10*time.Second),
		BuildOnStart:     getEnvBool("BUILD_ON_START", false),
		DefaultResults:   getEnvInt("DEFAULT_RESULTS", 8),
		MaxResults:       getEnvInt("MAX_RESULTS", 100),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		i, err := strconv.Atoi(value)
		if err != nil {
			return defaultValue
		}
		return i
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return defaultValue
		}
		return f
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		b, err := strconv.ParseBool(value)
		if err != nil {
			return defaultValue
		}
		return b
	}
	return defaultValue
}

// getEnvDuration accepts Go durations ("90s") or a bare number of seconds
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(value); err == nil {
		return time.Duration(secs) * time.Second
	}
	return defaultValue
}

func parseCORSOrigins(value string) []string {
	var origins []string
	if err := json.Unmarshal([]byte(value), &origins); err == nil {
		return origins
	}
	parts := strings.Split(value, ",")
	origins = make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			origins = append(origins, trimmed)
		}
	}
	return origins
}
