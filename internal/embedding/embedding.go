package embedding

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"contract-review/internal/config"
	"contract-review/internal/models"

	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"
)

// ErrEmbedding is returned when the embedding provider fails.
var ErrEmbedding = errors.New("embedding failure")

// NewEmbedder creates an embedder for the configured provider. The same
// embedder instance must be used for indexing and querying; mixing providers
// puts queries in a different vector space than the index.
func NewEmbedder(llmConfig *config.LLMConfig) (*embeddings.EmbedderImpl, error) {
	if llmConfig.Provider == "ollama" {
		return newOllamaEmbedder(llmConfig)
	}
	return newOpenAIEmbedder(llmConfig)
}

func newOpenAIEmbedder(llmConfig *config.LLMConfig) (*embeddings.EmbedderImpl, error) {
	llm, err := openai.New(
		openai.WithBaseURL(llmConfig.BaseURL),
		openai.WithToken(strings.TrimPrefix(llmConfig.Key, "Bearer ")),
		openai.WithModel(llmConfig.Model),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEmbedding, err)
	}
	return embeddings.NewEmbedder(llm)
}

func newOllamaEmbedder(llmConfig *config.LLMConfig) (*embeddings.EmbedderImpl, error) {
	llm, err := ollama.New(
		ollama.WithServerURL(llmConfig.BaseURL),
		ollama.WithModel(llmConfig.Model),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEmbedding, err)
	}
	return embeddings.NewEmbedder(llm)
}

// EmbedChunks computes one embedding per chunk. The call is all-or-nothing:
// a provider error discards any embeddings computed before it.
func EmbedChunks(ctx context.Context, embedder embeddings.Embedder, chunks []models.Chunk) ([][]float32, error) {
	if len(chunks) == 0 {
		log.Info().Msg("No chunks to embed")
		return nil, nil
	}

	texts := make([]string, len(chunks))
	for i, chunk := range chunks {
		texts[i] = chunk.Content
	}

	vectors, err := embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEmbedding, err)
	}
	if len(vectors) != len(chunks) {
		return nil, fmt.Errorf("%w: got %d embeddings for %d chunks", ErrEmbedding, len(vectors), len(chunks))
	}
	return vectors, nil
}

// EmbedQuery embeds a single query text.
func EmbedQuery(ctx context.Context, embedder embeddings.Embedder, query string) ([]float32, error) {
	vector, err := embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEmbedding, err)
	}
	return vector, nil
}
