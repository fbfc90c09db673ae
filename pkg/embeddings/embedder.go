// Package embeddings turns text into vectors using a pluggable backend.
package embeddings

import (
	"context"
	"fmt"
	"time"
)

// TaskType represents the type of embedding task
type TaskType string

const (
	TaskTypeQuery    TaskType = "RETRIEVAL_QUERY"
	TaskTypeDocument TaskType = "RETRIEVAL_DOCUMENT"
)

// Embedder defines the interface for text embedding operations
type Embedder interface {
	// Embed generates an embedding for a single text with the given task type
	Embed(ctx context.Context, text string, taskType TaskType) ([]float64, error)

	// EmbedBatch generates embeddings for multiple texts with the given task type
	EmbedBatch(ctx context.Context, texts []string, taskType TaskType) ([][]float64, error)
}

// Config selects and configures an embedding backend
type Config struct {
	Provider    string // vertex, custom or hashing
	ServiceURL  string
	Dimensions  int
	HTTPTimeout time.Duration

	GCPProjectID string
	GCPLocation  string
	VertexModel  string
}

// NewEmbedder creates the backend named by cfg.Provider
func NewEmbedder(ctx context.Context, cfg Config) (Embedder, error) {
	switch cfg.Provider {
	case "vertex":
		embedder, err := NewVertexEmbedder(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to create Vertex AI embedder: %w", err)
		}
		return embedder, nil
	case "custom", "":
		if cfg.ServiceURL == "" {
			return nil, fmt.Errorf("EMBEDDING_SERVICE_URL is required for the custom embedder")
		}
		return NewCustomEmbedder(cfg.ServiceURL, cfg.HTTPTimeout), nil
	case "hashing":
		return NewHashingEmbedder(cfg.Dimensions), nil
	default:
		return nil, fmt.Errorf("unknown embedding provider %q", cfg.Provider)
	}
}
