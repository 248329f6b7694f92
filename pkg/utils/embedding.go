package utils

import (
	"context"
	"fmt"
	"hash/fnv"
	"math"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"github.com/pgvector/pgvector-go"
	openai "github.com/sashabaranov/go-openai"
	"google.golang.org/api/option"
)

// EmbeddingClientInterface turns text into vectors for the partner place index.
type EmbeddingClientInterface interface {
	GetEmbedding(ctx context.Context, text string) (pgvector.Vector, error)
	GetEmbeddings(ctx context.Context, texts []string) ([]pgvector.Vector, error)
	Dimensions() int
}

// OpenAIEmbeddingClient implements EmbeddingClientInterface using OpenAI embedding models
type OpenAIEmbeddingClient struct {
	client     *openai.Client
	model      string
	dimensions int
}

func NewOpenAIEmbeddingClient(apiKey, model string, dimensions int) *OpenAIEmbeddingClient {
	if model == "" {
		model = string(openai.SmallEmbedding3)
	}
	return &OpenAIEmbeddingClient{
		client:     openai.NewClient(apiKey),
		model:      model,
		dimensions: dimensions,
	}
}

func (c *OpenAIEmbeddingClient) Dimensions() int { return c.dimensions }

func (c *OpenAIEmbeddingClient) GetEmbedding(ctx context.Context, text string) (pgvector.Vector, error) {
	vectors, err := c.GetEmbeddings(ctx, []string{text})
	if err != nil {
		return pgvector.Vector{}, err
	}
	return vectors[0], nil
}

func (c *OpenAIEmbeddingClient) GetEmbeddings(ctx context.Context, texts []string) ([]pgvector.Vector, error) {
	if len(texts) == 0 {
		return nil, fmt.Errorf("no input texts provided")
	}

	resp, err := c.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input:      texts,
		Model:      openai.EmbeddingModel(c.model),
		Dimensions: c.dimensions,
	})
	if err != nil {
		return nil, fmt.Errorf("openai embeddings: %w", err)
	}
	return vectorsByIndex(resp.Data, len(texts))
}

// vectorsByIndex places each embedding at the input position it reports. Every position
// must be filled exactly once.
func vectorsByIndex(data []openai.Embedding, n int) ([]pgvector.Vector, error) {
	if len(data) != n {
		return nil, fmt.Errorf("%w: got %d embeddings for %d inputs", ErrUnexpectedBehaviorOfAI, len(data), n)
	}

	vectors := make([]pgvector.Vector, n)
	filled := make([]bool, n)
	for _, d := range data {
		if d.Index < 0 || d.Index >= n || filled[d.Index] {
			return nil, fmt.Errorf("%w: embedding index %d for %d inputs", ErrUnexpectedBehaviorOfAI, d.Index, n)
		}
		filled[d.Index] = true
		vectors[d.Index] = pgvector.NewVector(d.Embedding)
	}
	return vectors, nil
}

// GeminiEmbeddingClient implements EmbeddingClientInterface using Google's embedding models
type GeminiEmbeddingClient struct {
	client     *genai.Client
	model      string
	dimensions int
}

func NewGeminiEmbeddingClient(ctx context.Context, apiKey, model string, dimensions int) (*GeminiEmbeddingClient, error) {
	if model == "" {
		model = "text-embedding-004"
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &GeminiEmbeddingClient{
		client:     client,
		model:      model,
		dimensions: dimensions,
	}, nil
}

func (c *GeminiEmbeddingClient) Dimensions() int { return c.dimensions }

func (c *GeminiEmbeddingClient) GetEmbedding(ctx context.Context, text string) (pgvector.Vector, error) {
	res, err := c.client.EmbeddingModel(c.model).EmbedContent(ctx, genai.Text(text))
	if err != nil {
		return pgvector.Vector{}, fmt.Errorf("gemini embed: %w", err)
	}
	if res == nil || res.Embedding == nil || len(res.Embedding.Values) == 0 {
		return pgvector.Vector{}, ErrUnexpectedBehaviorOfAI
	}
	return pgvector.NewVector(res.Embedding.Values), nil
}

func (c *GeminiEmbeddingClient) GetEmbeddings(ctx context.Context, texts []string) ([]pgvector.Vector, error) {
	if len(texts) == 0 {
		return nil, fmt.Errorf("no input texts provided")
	}

	em := c.client.EmbeddingModel(c.model)
	batch := em.NewBatch()
	for _, t := range texts {
		batch.AddContent(genai.Text(t))
	}

	res, err := em.BatchEmbedContents(ctx, batch)
	if err != nil {
		return nil, fmt.Errorf("gemini batch embed: %w", err)
	}
	if len(res.Embeddings) != len(texts) {
		return nil, fmt.Errorf("%w: got %d embeddings for %d inputs", ErrUnexpectedBehaviorOfAI, len(res.Embeddings), len(texts))
	}

	vectors := make([]pgvector.Vector, len(res.Embeddings))
	for i, e := range res.Embeddings {
		vectors[i] = pgvector.NewVector(e.Values)
	}
	return vectors, nil
}

// Close closes the Gemini client
func (c *GeminiEmbeddingClient) Close() error {
	return c.client.Close()
}

// HashEmbeddingClient is a deterministic word-hash embedder for local development and tests.
// Texts sharing words land close to each other; it carries no real semantics and its
// similarities can be negative.
type HashEmbeddingClient struct {
	dimensions int
}

func NewHashEmbeddingClient(dimensions int) *HashEmbeddingClient {
	if dimensions <= 0 {
		dimensions = 768
	}
	return &HashEmbeddingClient{dimensions: dimensions}
}

func (c *HashEmbeddingClient) Dimensions() int { return c.dimensions }

func (c *HashEmbeddingClient) GetEmbedding(_ context.Context, text string) (pgvector.Vector, error) {
	return pgvector.NewVector(c.textToVector(text)), nil
}

func (c *HashEmbeddingClient) GetEmbeddings(ctx context.Context, texts []string) ([]pgvector.Vector, error) {
	if len(texts) == 0 {
		return nil, fmt.Errorf("no input texts provided")
	}
	vectors := make([]pgvector.Vector, len(texts))
	for i, text := range texts {
		vectors[i], _ = c.GetEmbedding(ctx, text)
	}
	return vectors, nil
}

func (c *HashEmbeddingClient) textToVector(text string) []float32 {
	words := strings.Fields(strings.ToLower(strings.TrimSpace(text)))
	vector := make([]float32, c.dimensions)

	// signed feature hashing: each word owns one slot
	for _, word := range words {
		h := fnv.New64a()
		_, _ = h.Write([]byte(word))
		hash := h.Sum64()
		slot := int(hash % uint64(c.dimensions))
		if hash>>63 == 1 {
			vector[slot] -= 1
		} else {
			vector[slot] += 1
		}
	}

	var magnitude float64
	for _, v := range vector {
		magnitude += float64(v) * float64(v)
	}
	magnitude = math.Sqrt(magnitude)
	if magnitude > 0 {
		for i := range vector {
			vector[i] = float32(float64(vector[i]) / magnitude)
		}
	}
	return vector
}

// NewEmbeddingClient picks the provider by name.
func NewEmbeddingClient(ctx context.Context, provider, apiKey, model string, dimensions int) (EmbeddingClientInterface, error) {
	switch strings.ToLower(provider) {
	case "openai":
		return NewOpenAIEmbeddingClient(apiKey, model, dimensions), nil
	case "gemini":
		return NewGeminiEmbeddingClient(ctx, apiKey, model, dimensions)
	case "hash", "local":
		return NewHashEmbeddingClient(dimensions), nil
	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s. Use 'openai', 'gemini' or 'hash'", provider)
	}
}

// CosineSimilarity of two equal-length vectors; 0 when either is empty or zero.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
