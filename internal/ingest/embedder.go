package ingest

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/skim-ai/cli/internal/models"
)

// TextEmbedder turns texts into vectors, one per input, in input order.
// Implemented by llm.Embedder.
type TextEmbedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// BatchEmbedder populates chunk embeddings in fixed-size batches processed
// in submission order, so a failure is attributable to a known chunk range
// and everything before it keeps its embeddings for a resumed retry.
type BatchEmbedder struct {
	embedder  TextEmbedder
	batchSize int
	dimension int
	logger    *zap.Logger
}

// NewBatchEmbedder creates a batch embedder. batchSize defaults to 100;
// dimension, when non-zero, is enforced against every returned vector.
func NewBatchEmbedder(embedder TextEmbedder, batchSize, dimension int, logger *zap.Logger) *BatchEmbedder {
	if batchSize <= 0 {
		batchSize = 100
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BatchEmbedder{
		embedder:  embedder,
		batchSize: batchSize,
		dimension: dimension,
		logger:    logger,
	}
}

// EmbedChunks fills in chunks[i].Embedding for every i. On a batch failure
// the error names the batch and chunk range; earlier batches stay populated.
func (b *BatchEmbedder) EmbedChunks(ctx context.Context, chunks []*models.Chunk) error {
	for start := 0; start < len(chunks); start += b.batchSize {
		end := start + b.batchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		batch := chunks[start:end]

		texts := make([]string, len(batch))
		for i, chunk := range batch {
			texts[i] = chunk.Text
		}

		vectors, err := b.embedder.Embed(ctx, texts)
		if err != nil {
			return fmt.Errorf("embedding batch %d (chunks %d-%d): %w",
				start/b.batchSize, start, end-1, err)
		}
		if len(vectors) != len(batch) {
			return fmt.Errorf("embedding batch %d (chunks %d-%d): expected %d vectors, got %d",
				start/b.batchSize, start, end-1, len(batch), len(vectors))
		}

		for i, vec := range vectors {
			if b.dimension > 0 && len(vec) != b.dimension {
				return fmt.Errorf("embedding dimension mismatch: got %d, want %d", len(vec), b.dimension)
			}
			batch[i].Embedding = vec
		}

		b.logger.Debug("embedded batch",
			zap.Int("done", end), zap.Int("total", len(chunks)))
	}

	return nil
}
