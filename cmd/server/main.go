package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"contract-review/internal/config"
	"contract-review/internal/db"
	"contract-review/internal/embedding"
	"contract-review/internal/llmservice"
	"contract-review/internal/rag"
	"contract-review/internal/server"
)

const configFilePath = "./configs/config.yaml"

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	zerolog.SetGlobalLevel(zerolog.DebugLevel)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}).With().Caller().Logger()

	configPath := flag.String("config", configFilePath, "Path to the config file")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Error loading config")
	}

	dbClient, err := db.ConnectDB(&cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("Error connecting to database")
	}
	bunDB := db.NewDB(dbClient, cfg.Database.Debug)
	defer bunDB.Close()

	if cfg.Database.Init {
		if err := db.InitDB(context.Background(), bunDB); err != nil {
			log.Fatal().Err(err).Msg("Error initializing database")
		}
	}

	embedder, err := embedding.NewEmbedder(&cfg.EmbedLLM)
	if err != nil {
		log.Fatal().Err(err).Msg("Error initializing embedder")
	}

	llm, err := llmservice.New(&cfg.ChatLLM)
	if err != nil {
		log.Fatal().Err(err).Msg("Error initializing chat model")
	}

	service := rag.NewService(embedder, llm, cfg)
	srv := server.New(cfg, service, server.NewAccounts(bunDB))

	log.Info().Str("addr", cfg.Server.Addr).Msg("Contract Review API listening")
	if err := http.ListenAndServe(cfg.Server.Addr, srv.Router()); err != nil {
		log.Fatal().Err(err).Msg("Server stopped")
	}
}
