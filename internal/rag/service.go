package rag

import (
	"context"

	"contract-review/internal/config"
	"contract-review/internal/models"
	"contract-review/internal/parser"
	"contract-review/internal/vectorstore"

	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms"
)

// Service runs one ephemeral review session per uploaded contract. Each call
// builds its own in-memory index, so concurrent uploads share no state.
type Service struct {
	embedder embeddings.Embedder
	llm      llms.Model
	cfg      *config.Config
}

func NewService(embedder embeddings.Embedder, llm llms.Model, cfg *config.Config) *Service {
	return &Service{embedder: embedder, llm: llm, cfg: cfg}
}

// AnalyzeContract loads a contract PDF, indexes it and runs the clause and
// risk batteries against it.
func (s *Service) AnalyzeContract(ctx context.Context, pdfPath string) (*models.ContractReport, error) {
	pages, err := parser.LoadPDF(pdfPath)
	if err != nil {
		return nil, err
	}

	chunks := parser.SplitPages(pages, s.cfg.RAG.ChunkSize, s.cfg.RAG.ChunkOverlap)
	log.Debug().Int("pages", len(pages)).Int("chunks", len(chunks)).Str("file", pdfPath).Msg("Split contract")

	store, err := vectorstore.New(vectorstore.StoreConfig{
		InMemory:   true,
		Collection: s.cfg.RAG.Collection,
	})
	if err != nil {
		return nil, err
	}

	review := NewReview(s.embedder, store, s.llm, s.cfg)
	if err := review.BuildIndex(ctx, chunks); err != nil {
		return nil, err
	}

	clauses, err := review.ExtractClauses(ctx)
	if err != nil {
		return nil, err
	}
	risks, err := review.IdentifyRisks(ctx)
	if err != nil {
		return nil, err
	}

	return &models.ContractReport{Clauses: clauses, Risks: risks}, nil
}
