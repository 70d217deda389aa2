package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, "skim_chunks", cfg.Database.Collection)
	assert.Equal(t, "http://localhost:11434", cfg.Ollama.BaseURL)
	assert.Equal(t, 768, cfg.Embeddings.Dimension)
	assert.Equal(t, 500, cfg.Processing.ChunkSize)
	assert.Equal(t, 100, cfg.Processing.ChunkOverlap)
	assert.Equal(t, 10000, cfg.Processing.MinImageSize)
	assert.Equal(t, []string{".pdf", ".epub"}, cfg.Watch.Extensions)
}

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadOverridesDefaults(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	dir := filepath.Join(home, ".skim")
	require.NoError(t, os.MkdirAll(dir, 0755))
	content := "embeddings:\n  dimension: 1024\nollama:\n  chat_model: llama3.2\n  request_timeout: 2m\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(content), 0644))

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, 1024, cfg.Embeddings.Dimension)
	assert.Equal(t, "llama3.2", cfg.Ollama.ChatModel)
	assert.Equal(t, 2*time.Minute, cfg.Ollama.RequestTimeout)
	// Untouched sections keep their defaults.
	assert.Equal(t, 500, cfg.Processing.ChunkSize)
}

func TestSaveThenLoadRoundTrips(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	cfg := Default()
	cfg.Database.Collection = "custom_chunks"
	cfg.Processing.TopK = 8
	require.NoError(t, cfg.Save())

	loaded, err := Load()

	require.NoError(t, err)
	assert.Equal(t, "custom_chunks", loaded.Database.Collection)
	assert.Equal(t, 8, loaded.Processing.TopK)
}
