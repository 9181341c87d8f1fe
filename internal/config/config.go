package config

import (
	"os"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	EmbedLLM LLMConfig      `yaml:"embed_llm"`
	ChatLLM  LLMConfig      `yaml:"chat_llm"`
	RAG      RAGConfig      `yaml:"rag"`
}

type ServerConfig struct {
	Addr           string   `yaml:"addr"`
	AllowedOrigins []string `yaml:"allowed_origins"`
}

type DatabaseConfig struct {
	URL      string `yaml:"url"`
	Password string `yaml:"password"`
	Debug    bool   `yaml:"debug"`
	Init     bool   `yaml:"init"` // create the account tables on startup
}

type LLMConfig struct {
	Provider string `yaml:"provider"` // "openai" or "ollama"
	BaseURL  string `yaml:"base_url"`
	Key      string `yaml:"key"`
	Model    string `yaml:"model"`
}

type RAGConfig struct {
	ChunkSize    int    `yaml:"chunk_size"`
	ChunkOverlap int    `yaml:"chunk_overlap"`
	DBPath       string `yaml:"db_path"`
	Collection   string `yaml:"collection"`
}

const (
	defaultChunkSize    = 1000
	defaultChunkOverlap = 200
	defaultAddr         = ":8000"
	defaultCollection   = "contracts"
)

func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	applyEnv(&cfg)
	applyDefaults(&cfg)
	return &cfg, nil
}

// applyEnv lets secrets come from the environment (or a .env file) instead
// of the config file checked into the deployment.
func applyEnv(cfg *Config) {
	_ = godotenv.Load()
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.Database.URL = v
	}
	if v := os.Getenv("DATABASE_PASSWORD"); v != "" {
		cfg.Database.Password = v
	}
	if v := os.Getenv("EMBED_API_KEY"); v != "" {
		cfg.EmbedLLM.Key = v
	}
	if v := os.Getenv("CHAT_API_KEY"); v != "" {
		cfg.ChatLLM.Key = v
	}
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = defaultAddr
	}
	if cfg.RAG.ChunkSize == 0 {
		cfg.RAG.ChunkSize = defaultChunkSize
	}
	if cfg.RAG.ChunkOverlap == 0 {
		cfg.RAG.ChunkOverlap = defaultChunkOverlap
	}
	if cfg.RAG.Collection == "" {
		cfg.RAG.Collection = defaultCollection
	}
}
