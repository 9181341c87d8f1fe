package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"contract-review/internal/config"
	"contract-review/internal/embedding"
	"contract-review/internal/helper"
	"contract-review/internal/llmservice"
	"contract-review/internal/models"
	"contract-review/internal/parser"
	"contract-review/internal/rag"
	"contract-review/internal/vectorstore"
)

const configFilePath = "./configs/config.yaml"

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	zerolog.SetGlobalLevel(zerolog.DebugLevel)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}).With().Caller().Logger()

	configPath := flag.String("config", configFilePath, "Path to the config file")
	dir := flag.String("dir", "", "Directory of contract PDFs to index")
	query := flag.String("query", "", "Question to ask against the persisted index")
	standard := flag.String("standard", "", "Path to a standard-terms file to compare against")
	dryRun := flag.Bool("dry-run", false, "Parse and chunk only, do not index")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Error loading config")
	}

	ctx := context.Background()

	switch {
	case *dir != "":
		indexContracts(ctx, cfg, *dir, *dryRun)
	case *query != "":
		askContracts(ctx, cfg, *query)
	case *standard != "":
		compareContracts(ctx, cfg, *standard)
	default:
		log.Fatal().Msg("Provide -dir to index contracts, -query to ask a question, or -standard to compare against standard terms")
	}
}

func indexContracts(ctx context.Context, cfg *config.Config, dir string, dryRun bool) {
	var chunks []models.Chunk
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.EqualFold(filepath.Ext(path), ".pdf") {
			return nil
		}
		pages, err := parser.LoadPDF(path)
		if err != nil {
			return err
		}
		fileChunks := parser.SplitPages(pages, cfg.RAG.ChunkSize, cfg.RAG.ChunkOverlap)
		log.Info().Str("file", path).Int("pages", len(pages)).Int("chunks", len(fileChunks)).Msg("Parsed contract")
		chunks = append(chunks, fileChunks...)
		return nil
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Error loading contracts")
	}

	if dryRun {
		helper.PrettyPrint(chunks)
		return
	}

	if err := helper.CreateFolder(cfg.RAG.DBPath); err != nil {
		log.Fatal().Err(err).Msg("Error creating folder")
	}

	store, err := vectorstore.New(vectorstore.StoreConfig{
		Path:       cfg.RAG.DBPath,
		Collection: cfg.RAG.Collection,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Error creating vector store")
	}

	embedder, err := embedding.NewEmbedder(&cfg.EmbedLLM)
	if err != nil {
		log.Fatal().Err(err).Msg("Error initializing embedder")
	}

	llm, err := llmservice.New(&cfg.ChatLLM)
	if err != nil {
		log.Fatal().Err(err).Msg("Error initializing chat model")
	}

	review := rag.NewReview(embedder, store, llm, cfg)
	if err := review.BuildIndex(ctx, chunks); err != nil {
		log.Fatal().Err(err).Msg("Error building index")
	}

	log.Info().Int("chunks", len(chunks)).Str("path", cfg.RAG.DBPath).Msg("Index persisted")
}

func askContracts(ctx context.Context, cfg *config.Config, query string) {
	review := openSession(cfg)

	result, err := review.Analyze(ctx, query)
	if err != nil {
		log.Fatal().Err(err).Msg("Error analyzing contract")
	}
	printResult(query, result)
}

func compareContracts(ctx context.Context, cfg *config.Config, standardPath string) {
	standardText, err := os.ReadFile(standardPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Error reading standard terms")
	}

	review := openSession(cfg)

	result, err := review.CompareWithStandard(ctx, string(standardText))
	if err != nil {
		log.Fatal().Err(err).Msg("Error comparing contract")
	}
	printResult("standard terms comparison", result)
}

func openSession(cfg *config.Config) *rag.Review {
	store, err := vectorstore.Load(vectorstore.StoreConfig{
		Path:       cfg.RAG.DBPath,
		Collection: cfg.RAG.Collection,
	})
	if errors.Is(err, vectorstore.ErrIndexAbsent) {
		log.Fatal().Msg("No contract index found, run with -dir first")
	}
	if err != nil {
		log.Fatal().Err(err).Msg("Error loading vector store")
	}

	embedder, err := embedding.NewEmbedder(&cfg.EmbedLLM)
	if err != nil {
		log.Fatal().Err(err).Msg("Error initializing embedder")
	}

	llm, err := llmservice.New(&cfg.ChatLLM)
	if err != nil {
		log.Fatal().Err(err).Msg("Error initializing chat model")
	}

	return rag.NewReview(embedder, store, llm, cfg)
}

func printResult(query string, result *models.AnalysisResult) {
	log.Info().Msg("Query: ~~~~~~~~~~~~~~~~~~~~~~~~~>>>>>")
	fmt.Printf("%s\n\n", query)

	log.Info().Msg("Sources: ~~~~~~~~~~~~~~~~~~~~~~~~~>>>>>")
	for _, src := range result.Sources {
		fmt.Printf("%s (page %d, chunk %d)\n%s\n\n", src.SourcePath, src.PageNumber, src.ChunkID, src.Content)
	}

	log.Info().Msg("Assistant: ~~~~~~~~~~~~~~~~~~~~~~~~~>>>>>")
	fmt.Printf("%s\n\n", result.Answer)
}
