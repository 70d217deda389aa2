package ingest

import (
	"context"
	"crypto/sha256"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/skim-ai/cli/internal/models"
	"github.com/skim-ai/cli/internal/pdfx"
	"github.com/skim-ai/cli/internal/store"
)

// Store is the persistence surface the pipeline needs: the document
// registry and the vector collection. Implemented by store.DB.
type Store interface {
	GetDocumentByHash(ctx context.Context, hash string) (*store.Document, error)
	UpsertDocument(ctx context.Context, docID, filePath, fileHash, fileType string, pages int) (*store.Document, error)
	MarkDocumentProcessed(ctx context.Context, id uuid.UUID, chunkCount int) error
	DeleteDocumentChunks(ctx context.Context, collection, docID string) error
	UpsertChunks(ctx context.Context, collection, prefix string, chunks []*models.Chunk, batchSize int) error
}

// Pipeline ingests one document end to end: registry check, chunking,
// embedding, vector upsert. Distinct files are independent and may be
// ingested concurrently; all per-document state is local to one call.
type Pipeline struct {
	db              Store
	text            *TextChunker
	tables          *TableChunker
	visuals         *VisualChunker
	embedder        *BatchEmbedder
	collection      string
	upsertBatchSize int
	logger          *zap.Logger
	open            func(filePath string) (pdfx.Extractor, error)
}

// NewPipeline wires a pipeline from its stages.
func NewPipeline(
	db Store,
	text *TextChunker,
	tables *TableChunker,
	visuals *VisualChunker,
	embedder *BatchEmbedder,
	collection string,
	upsertBatchSize int,
	logger *zap.Logger,
) *Pipeline {
	if upsertBatchSize <= 0 {
		upsertBatchSize = 100
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{
		db:              db,
		text:            text,
		tables:          tables,
		visuals:         visuals,
		embedder:        embedder,
		collection:      collection,
		upsertBatchSize: upsertBatchSize,
		logger:          logger,
		open: func(filePath string) (pdfx.Extractor, error) {
			return pdfx.Open(filePath)
		},
	}
}

// Stats summarizes one file's ingestion.
type Stats struct {
	DocID        string
	Pages        int
	TextChunks   int
	TableChunks  int
	VisualChunks int
	Skipped      bool
}

// IngestFile ingests one PDF or EPUB file. Files whose content hash is
// already marked processed are skipped. A changed file replaces the
// document's previous vectors and registry record rather than accumulating
// next to them. extra metadata is copied onto every chunk of the document.
func (p *Pipeline) IngestFile(ctx context.Context, filePath string, extra map[string]string) (*Stats, error) {
	fileType, err := fileTypeOf(filePath)
	if err != nil {
		return nil, err
	}

	hash, err := fileHash(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to compute hash: %w", err)
	}

	existing, err := p.db.GetDocumentByHash(ctx, hash)
	if err != nil {
		return nil, fmt.Errorf("failed to check existing document: %w", err)
	}
	if existing != nil && existing.ProcessedAt != nil {
		p.logger.Info("document already ingested, skipping",
			zap.String("path", filePath), zap.String("doc_id", existing.DocID))
		return &Stats{DocID: existing.DocID, Skipped: true}, nil
	}

	docID := strings.TrimSuffix(filepath.Base(filePath), filepath.Ext(filePath))

	meta := map[string]string{
		"source":   fileType,
		"filename": filepath.Base(filePath),
	}
	for k, v := range extra {
		meta[k] = v
	}

	ex, err := p.open(filePath)
	if err != nil {
		return nil, err
	}
	defer ex.Close()

	rec, err := p.db.UpsertDocument(ctx, docID, filePath, hash, fileType, ex.NumPages())
	if err != nil {
		return nil, fmt.Errorf("failed to record document: %w", err)
	}

	stats := &Stats{DocID: docID, Pages: ex.NumPages()}

	chunks := p.text.ChunkDocument(ex, docID, meta)
	stats.TextChunks = len(chunks)

	tableChunks := p.tables.ChunkDocument(ex, docID, meta)
	stats.TableChunks = len(tableChunks)
	chunks = append(chunks, tableChunks...)

	visualChunks := p.visuals.ChunkDocument(ctx, ex, docID, meta)
	stats.VisualChunks = len(visualChunks)
	chunks = append(chunks, visualChunks...)

	p.logger.Info("chunked document",
		zap.String("doc_id", docID),
		zap.Int("pages", stats.Pages),
		zap.Int("text", stats.TextChunks),
		zap.Int("tables", stats.TableChunks),
		zap.Int("visuals", stats.VisualChunks))

	if len(chunks) > 0 {
		if err := p.embedder.EmbedChunks(ctx, chunks); err != nil {
			return nil, fmt.Errorf("failed to embed %s: %w", docID, err)
		}
	}

	// A re-ingested document that shrank must not leave the old version's
	// tail rows retrievable. Clearing happens only after embedding has
	// succeeded, so a failed embed keeps the previous version intact.
	if err := p.db.DeleteDocumentChunks(ctx, p.collection, docID); err != nil {
		return nil, fmt.Errorf("failed to clear previous chunks of %s: %w", docID, err)
	}

	if len(chunks) > 0 {
		if err := p.db.UpsertChunks(ctx, p.collection, docID, chunks, p.upsertBatchSize); err != nil {
			return nil, fmt.Errorf("failed to store %s: %w", docID, err)
		}
	}

	if err := p.db.MarkDocumentProcessed(ctx, rec.ID, len(chunks)); err != nil {
		return nil, fmt.Errorf("failed to mark document processed: %w", err)
	}

	return stats, nil
}

// IngestDir ingests every supported file under dir, up to four files in
// parallel. Per-file failures are logged and do not abort the rest.
func (p *Pipeline) IngestDir(ctx context.Context, dir string, extra map[string]string) ([]*Stats, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if _, err := fileTypeOf(path); err == nil {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk %s: %w", dir, err)
	}

	var (
		mu      sync.Mutex
		wg      sync.WaitGroup
		all     []*Stats
		workers = make(chan struct{}, 4)
	)

	for _, file := range files {
		wg.Add(1)
		workers <- struct{}{}
		go func(path string) {
			defer wg.Done()
			defer func() { <-workers }()

			stats, err := p.IngestFile(ctx, path, extra)
			if err != nil {
				p.logger.Error("failed to ingest file", zap.String("path", path), zap.Error(err))
				return
			}
			mu.Lock()
			all = append(all, stats)
			mu.Unlock()
		}(file)
	}
	wg.Wait()

	return all, nil
}

// fileTypeOf returns "pdf" or "epub", or an error for anything else.
func fileTypeOf(filePath string) (string, error) {
	switch strings.ToLower(filepath.Ext(filePath)) {
	case ".pdf":
		return "pdf", nil
	case ".epub":
		return "epub", nil
	default:
		return "", fmt.Errorf("unsupported file type: %s", filepath.Ext(filePath))
	}
}

// fileHash computes the SHA256 hash of a file.
func fileHash(filePath string) (string, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return "", err
	}
	defer file.Close()

	hash := sha256.New()
	if _, err := io.Copy(hash, file); err != nil {
		return "", err
	}

	return fmt.Sprintf("%x", hash.Sum(nil)), nil
}
