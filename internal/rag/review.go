package rag

import (
	"context"
	"errors"
	"fmt"

	"contract-review/internal/config"
	"contract-review/internal/embedding"
	"contract-review/internal/llmservice"
	"contract-review/internal/models"
	"contract-review/internal/vectorstore"

	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms"
)

// ErrNotReady is returned when a query arrives before an index was built or
// loaded for the session.
var ErrNotReady = errors.New("index not built, load a contract first")

const (
	// every retrieval uses the same top-k
	defaultTopK = 5
	// source previews carry the first previewLength characters of a chunk
	previewLength = 100
)

// Review is one contract analysis session. It owns the conversation history
// and a vector index, and answers queries by retrieving the most relevant
// chunks and prompting the chat model with them. The embedder handed to
// NewReview is used for both indexing and querying, which keeps the index
// and the queries in the same vector space.
type Review struct {
	embedder embeddings.Embedder
	store    *vectorstore.Store
	llm      llms.Model
	cfg      *config.Config
	ready    bool
	messages []models.Message
}

// NewReview creates a session around the given store. A store that already
// holds documents (a loaded persistent index) is usable immediately;
// otherwise BuildIndex must run first.
func NewReview(embedder embeddings.Embedder, store *vectorstore.Store, llm llms.Model, cfg *config.Config) *Review {
	return &Review{
		embedder: embedder,
		store:    store,
		llm:      llm,
		cfg:      cfg,
		ready:    store.Count() > 0,
	}
}

// BuildIndex embeds the chunks and adds them to the session's store.
// Embedding is all-or-nothing: a provider error leaves the store unchanged.
// An empty chunk set still marks the session ready; queries against it get
// the "information not available" answer from the model.
func (r *Review) BuildIndex(ctx context.Context, chunks []models.Chunk) error {
	vectors, err := embedding.EmbedChunks(ctx, r.embedder, chunks)
	if err != nil {
		return err
	}
	if err := r.store.Add(ctx, chunks, vectors); err != nil {
		return err
	}
	log.Info().Int("chunks", len(chunks)).Msg("Indexed contract chunks")
	r.ready = true
	return nil
}

// Retrieve returns the top-k chunks most similar to the query.
func (r *Review) Retrieve(ctx context.Context, query string) ([]vectorstore.SearchResult, error) {
	if !r.ready {
		return nil, ErrNotReady
	}
	vector, err := embedding.EmbedQuery(ctx, r.embedder, query)
	if err != nil {
		return nil, err
	}
	return r.store.Search(ctx, vector, defaultTopK)
}

// Analyze answers one question about the contract. It appends the question
// and the model's answer to the session history and reports the retrieved
// chunks as source previews. Before an index exists it returns ErrNotReady
// without touching the history.
func (r *Review) Analyze(ctx context.Context, query string) (*models.AnalysisResult, error) {
	if !r.ready {
		return nil, ErrNotReady
	}

	results, err := r.Retrieve(ctx, query)
	if err != nil {
		return nil, err
	}

	r.messages = append(r.messages, models.Message{Role: models.RoleUser, Content: query})

	prompt := reviewPrompt{
		System:   models.SystemPrompt,
		Context:  contextBlock(results),
		Question: query,
	}
	answer, err := llmservice.Generate(ctx, r.llm, prompt.Messages())
	if err != nil {
		return nil, err
	}

	r.messages = append(r.messages, models.Message{Role: models.RoleAssistant, Content: answer})

	sources := make([]models.SourcePreview, len(results))
	for i, res := range results {
		sources[i] = models.SourcePreview{
			Content:    preview(res.Chunk.Content),
			SourcePath: res.Chunk.SourcePath,
			PageNumber: res.Chunk.PageNumber,
			ChunkID:    res.Chunk.ChunkID,
		}
	}

	return &models.AnalysisResult{Answer: answer, Sources: sources}, nil
}

// ExtractClauses runs the fixed clause battery and returns one finding per
// label, in label order. The first failed sub-query aborts the batch.
func (r *Review) ExtractClauses(ctx context.Context) ([]models.ClauseFinding, error) {
	findings := make([]models.ClauseFinding, 0, len(models.ClauseLabels))
	for _, label := range models.ClauseLabels {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		query := fmt.Sprintf(models.ClauseQueryTemplate, label)
		result, err := r.Analyze(ctx, query)
		if err != nil {
			return nil, fmt.Errorf("clause %q: %w", label, err)
		}
		findings = append(findings, models.ClauseFinding{Klausa: label, Isi: result.Answer})
	}
	return findings, nil
}

// IdentifyRisks runs the fixed risk battery and returns the answers keyed by
// the literal question text. The first failed sub-query aborts the batch.
func (r *Review) IdentifyRisks(ctx context.Context) (map[string]string, error) {
	risks := make(map[string]string, len(models.RiskQuestions))
	for _, question := range models.RiskQuestions {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		result, err := r.Analyze(ctx, question)
		if err != nil {
			return nil, fmt.Errorf("risk %q: %w", question, err)
		}
		risks[question] = result.Answer
	}
	return risks, nil
}

// CompareWithStandard compares the contract against company standard terms.
// Only the first 1000 characters of the standard text go into the query.
func (r *Review) CompareWithStandard(ctx context.Context, standardText string) (*models.AnalysisResult, error) {
	query := fmt.Sprintf(models.CompareQueryTemplate, truncateRunes(standardText, models.StandardTermsLimit))
	return r.Analyze(ctx, query)
}

// Messages returns a copy of the session's conversation history.
func (r *Review) Messages() []models.Message {
	return append([]models.Message(nil), r.messages...)
}

func preview(content string) string {
	return truncateRunes(content, previewLength) + "..."
}

// truncateRunes cuts on a rune boundary so multibyte characters at the
// limit are never split into invalid UTF-8.
func truncateRunes(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}
