package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds application configuration
type Config struct {
	Database struct {
		ConnectionString string `yaml:"connection_string"`
		Collection       string `yaml:"collection"`
	} `yaml:"database"`
	Ollama struct {
		BaseURL        string        `yaml:"base_url"`
		ChatModel      string        `yaml:"chat_model"`
		VisionModel    string        `yaml:"vision_model"`
		RequestTimeout time.Duration `yaml:"request_timeout"`
	} `yaml:"ollama"`
	Embeddings struct {
		Model     string `yaml:"model"`
		Dimension int    `yaml:"dimension"`
		BatchSize int    `yaml:"batch_size"`
	} `yaml:"embeddings"`
	Processing struct {
		ChunkSize       int `yaml:"chunk_size"`
		ChunkOverlap    int `yaml:"chunk_overlap"`
		TopK            int `yaml:"top_k"`
		MinImageSize    int `yaml:"min_image_size"`
		UpsertBatchSize int `yaml:"upsert_batch_size"`
	} `yaml:"processing"`
	Paths struct {
		DocumentsDir string `yaml:"documents_dir"`
		ArtifactDir  string `yaml:"artifact_dir"`
	} `yaml:"paths"`
	Server struct {
		Host string `yaml:"host"`
		Port int    `yaml:"port"`
	} `yaml:"server"`
	Watch struct {
		Debounce   time.Duration `yaml:"debounce"`
		Extensions []string      `yaml:"extensions"`
	} `yaml:"watch"`
}

// Load loads configuration from file or returns defaults
func Load() (*Config, error) {
	cfg := Default()

	configPath := filepath.Join(os.Getenv("HOME"), ".skim", "config.yaml")
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return cfg, nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return cfg, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config: %w", err)
	}

	return cfg, nil
}

// Save saves configuration to file
func (c *Config) Save() error {
	configDir := filepath.Join(os.Getenv("HOME"), ".skim")
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	configPath := filepath.Join(configDir, "config.yaml")
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	return os.WriteFile(configPath, data, 0644)
}

// Default returns default configuration
func Default() *Config {
	cfg := &Config{}

	cfg.Database.ConnectionString = "postgres://postgres@localhost/postgres?sslmode=disable"
	cfg.Database.Collection = "skim_chunks"
	cfg.Ollama.BaseURL = "http://localhost:11434"
	cfg.Ollama.ChatModel = ""
	cfg.Ollama.VisionModel = "llava"
	cfg.Ollama.RequestTimeout = 5 * time.Minute
	cfg.Embeddings.Model = "nomic-embed-text"
	cfg.Embeddings.Dimension = 768
	cfg.Embeddings.BatchSize = 100
	cfg.Processing.ChunkSize = 500
	cfg.Processing.ChunkOverlap = 100
	cfg.Processing.TopK = 5
	cfg.Processing.MinImageSize = 10000
	cfg.Processing.UpsertBatchSize = 100
	cfg.Server.Host = "127.0.0.1"
	cfg.Server.Port = 8787
	cfg.Watch.Debounce = 400 * time.Millisecond
	cfg.Watch.Extensions = []string{".pdf", ".epub"}

	homeDir := os.Getenv("HOME")
	cfg.Paths.DocumentsDir = filepath.Join(homeDir, "documents")
	cfg.Paths.ArtifactDir = filepath.Join(os.TempDir(), "skim-artifacts")

	return cfg
}
