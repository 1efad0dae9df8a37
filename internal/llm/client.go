// Package llm wraps the Gemini API behind small generation and embedding
// interfaces so the recommendation pipeline can be tested with fakes.
package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// Generator produces free-form text from a prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
	Close() error
}

// Embedder turns a batch of texts into vectors, one per input. A nil or
// empty vector marks a failed input; callers decide how to degrade.
type Embedder interface {
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Close() error
}

// GeminiClient implements Generator and Embedder on top of the Gemini API.
// One client corresponds to one API credential.
type GeminiClient struct {
	client        *genai.Client
	generateModel string
	embedModel    string
}

// Option configures a GeminiClient.
type Option func(*GeminiClient)

// WithGenerateModel overrides the generation model name.
func WithGenerateModel(name string) Option {
	return func(c *GeminiClient) { c.generateModel = name }
}

// WithEmbedModel overrides the embedding model name.
func WithEmbedModel(name string) Option {
	return func(c *GeminiClient) { c.embedModel = name }
}

// NewGeminiClient creates a client bound to a single API key.
func NewGeminiClient(ctx context.Context, apiKey string, opts ...Option) (*GeminiClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("API key is required")
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	c := &GeminiClient{
		client:        client,
		generateModel: "gemini-1.5-flash",
		embedModel:    "text-embedding-004",
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Generate produces text for the prompt with low temperature for stable,
// parseable output.
func (c *GeminiClient) Generate(ctx context.Context, prompt string) (string, error) {
	model := c.client.GenerativeModel(c.generateModel)
	model.SetTemperature(0.1)

	resp, err := model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", fmt.Errorf("failed to generate content: %w", err)
	}

	text, err := extractTextFromResponse(resp)
	if err != nil {
		return "", err
	}
	return CleanJSONBlock(text), nil
}

// EmbedBatch embeds all texts in one batched call. Blank inputs are replaced
// with a placeholder so the backend does not reject the batch.
func (c *GeminiClient) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	em := c.client.EmbeddingModel(c.embedModel)
	em.TaskType = genai.TaskTypeSemanticSimilarity

	batch := em.NewBatch()
	for _, text := range texts {
		t := strings.TrimSpace(text)
		if t == "" {
			t = "empty text"
		}
		batch = batch.AddContent(genai.Text(t))
	}

	resp, err := em.BatchEmbedContents(ctx, batch)
	if err != nil {
		return nil, fmt.Errorf("failed to embed batch: %w", err)
	}

	vectors := make([][]float32, len(texts))
	for i := range texts {
		if i < len(resp.Embeddings) && resp.Embeddings[i] != nil {
			vectors[i] = resp.Embeddings[i].Values
		}
	}
	return vectors, nil
}

// Close releases resources held by the client.
func (c *GeminiClient) Close() error {
	if c.client != nil {
		return c.client.Close()
	}
	return nil
}

// extractTextFromResponse concatenates the text parts of the first candidate.
func extractTextFromResponse(resp *genai.GenerateContentResponse) (string, error) {
	if len(resp.Candidates) == 0 {
		return "", fmt.Errorf("no candidates in response")
	}

	candidate := resp.Candidates[0]
	if candidate.Content == nil || len(candidate.Content.Parts) == 0 {
		return "", fmt.Errorf("no content in response")
	}

	var parts []string
	for _, part := range candidate.Content.Parts {
		if text, ok := part.(genai.Text); ok {
			parts = append(parts, string(text))
		}
	}
	if len(parts) == 0 {
		return "", fmt.Errorf("no text parts in response")
	}
	return strings.Join(parts, ""), nil
}
