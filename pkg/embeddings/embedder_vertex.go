package embeddings

import (
	"context"
	"fmt"

	aiplatform "cloud.google.com/go/aiplatform/apiv1"
	"cloud.google.com/go/aiplatform/apiv1/aiplatformpb"
	"google.golang.org/api/option"
	"google.golang.org/protobuf/types/known/structpb"
)

const (
	vertexBatchLimit = 250
)

// VertexEmbedder implements Embedder using Google Cloud Vertex AI
type VertexEmbedder struct {
	client     *aiplatform.PredictionClient
	endpoint   string
	parameters *structpb.Value
	dimensions int
}

// NewVertexEmbedder creates a new Vertex AI embedder
func NewVertexEmbedder(ctx context.Context, cfg Config) (*VertexEmbedder, error) {
	if cfg.GCPProjectID == "" {
		return nil, fmt.Errorf("GCP_PROJECT_ID is required for Vertex AI embeddings")
	}

	clientEndpoint := fmt.Sprintf("%s-aiplatform.googleapis.com:443", cfg.GCPLocation)
	client, err := aiplatform.NewPredictionClient(ctx, option.WithEndpoint(clientEndpoint))
	if err != nil {
		return nil, fmt.Errorf("failed to create Vertex AI client: %w", err)
	}

	parameters, err := vertexParameters(cfg.Dimensions)
	if err != nil {
		client.Close()
		return nil, err
	}

	return &VertexEmbedder{
		client:     client,
		endpoint:   vertexEndpoint(cfg),
		parameters: parameters,
		dimensions: max(cfg.Dimensions, 0),
	}, nil
}

// Dimensions returns the requested output size, 0 for the model default
func (e *VertexEmbedder) Dimensions() int { return e.dimensions }

func vertexEndpoint(cfg Config) string {
	return fmt.Sprintf("projects/%s/locations/%s/publishers/google/models/%s",
		cfg.GCPProjectID, cfg.GCPLocation, cfg.VertexModel)
}

// vertexParameters requests a reduced output size when dimensions is set
func vertexParameters(dimensions int) (*structpb.Value, error) {
	if dimensions <= 0 {
		return nil, nil
	}
	params, err := structpb.NewStruct(map[string]interface{}{
		"outputDimensionality": dimensions,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create parameters: %w", err)
	}
	return structpb.NewStructValue(params), nil
}

// Close closes the Vertex AI client
func (e *VertexEmbedder) Close() error {
	if e.client != nil {
		return e.client.Close()
	}
	return nil
}

// Embed generates an embedding for a single text
func (e *VertexEmbedder) Embed(ctx context.Context, text string, taskType TaskType) ([]float64, error) {
	embeddings, err := e.EmbedBatch(ctx, []string{text}, taskType)
	if err != nil {
		return nil, err
	}
	if len(embeddings) == 0 {
		return nil, fmt.Errorf("no embeddings returned")
	}
	return embeddings[0], nil
}

// EmbedBatch generates embeddings for multiple texts
func (e *VertexEmbedder) EmbedBatch(ctx context.Context, texts []string, taskType TaskType) ([][]float64, error) {
	if len(texts) == 0 {
		return [][]float64{}, nil
	}

	allEmbeddings := make([][]float64, 0, len(texts))
	for i := 0; i < len(texts); i += vertexBatchLimit {
		end := min(i+vertexBatchLimit, len(texts))
		req, err := e.predictRequest(texts[i:end], taskType)
		if err != nil {
			return nil, err
		}

		resp, err := e.client.Predict(ctx, req)
		if err != nil {
			return nil, fmt.Errorf("vertex AI prediction failed: %w", err)
		}
		batch, err := parsePredictions(resp.Predictions, end-i)
		if err != nil {
			return nil, err
		}
		allEmbeddings = append(allEmbeddings, batch...)
	}
	return allEmbeddings, nil
}

func (e *VertexEmbedder) predictRequest(texts []string, taskType TaskType) (*aiplatformpb.PredictRequest, error) {
	instances := make([]*structpb.Value, len(texts))
	for i, text := range texts {
		instance, err := structpb.NewStruct(map[string]interface{}{
			"content":   text,
			"task_type": string(taskType),
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create instance: %w", err)
		}
		instances[i] = structpb.NewStructValue(instance)
	}

	return &aiplatformpb.PredictRequest{
		Endpoint:   e.endpoint,
		Instances:  instances,
		Parameters: e.parameters,
	}, nil
}

func parsePredictions(predictions []*structpb.Value, want int) ([][]float64, error) {
	if len(predictions) != want {
		return nil, fmt.Errorf("vertex AI returned %d predictions for %d instances", len(predictions), want)
	}

	embeddings := make([][]float64, len(predictions))
	for i, prediction := range predictions {
		embedding, err := parsePrediction(prediction)
		if err != nil {
			return nil, fmt.Errorf("prediction %d: %w", i, err)
		}
		embeddings[i] = embedding
	}
	return embeddings, nil
}

// parsePrediction extracts embeddings.values from one prediction
func parsePrediction(prediction *structpb.Value) ([]float64, error) {
	predStruct := prediction.GetStructValue()
	if predStruct == nil {
		return nil, fmt.Errorf("unexpected prediction format")
	}

	embStruct := predStruct.Fields["embeddings"].GetStructValue()
	if embStruct == nil {
		return nil, fmt.Errorf("no embeddings field in prediction")
	}

	valuesList := embStruct.Fields["values"].GetListValue()
	if valuesList == nil {
		return nil, fmt.Errorf("no values field in embeddings")
	}
	if len(valuesList.Values) == 0 {
		return nil, fmt.Errorf("empty embedding")
	}

	embedding := make([]float64, len(valuesList.Values))
	for j, v := range valuesList.Values {
		n, ok := v.GetKind().(*structpb.Value_NumberValue)
		if !ok {
			return nil, fmt.Errorf("non-numeric value at position %d", j)
		}
		embedding[j] = n.NumberValue
	}
	return embedding, nil
}
