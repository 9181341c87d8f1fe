package llmservice

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"contract-review/internal/config"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"
)

// ErrGeneration is returned when the chat model call fails.
var ErrGeneration = errors.New("generation failure")

// New builds the chat model for the configured provider.
func New(llmConfig *config.LLMConfig) (llms.Model, error) {
	if llmConfig.Provider == "ollama" {
		return ollama.New(
			ollama.WithServerURL(llmConfig.BaseURL),
			ollama.WithModel(llmConfig.Model),
		)
	}
	return openai.New(
		openai.WithBaseURL(llmConfig.BaseURL),
		openai.WithToken(strings.TrimPrefix(llmConfig.Key, "Bearer ")),
		openai.WithModel(llmConfig.Model),
	)
}

// Generate performs a single completion call and returns the raw text of
// the first choice. No retries; the answer is passed through as-is.
func Generate(ctx context.Context, llm llms.Model, messages []llms.MessageContent) (string, error) {
	res, err := llm.GenerateContent(ctx, messages)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrGeneration, err)
	}
	if len(res.Choices) == 0 {
		return "", fmt.Errorf("%w: empty response", ErrGeneration)
	}
	return res.Choices[0].Content, nil
}
