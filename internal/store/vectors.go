package store

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"unicode/utf8"

	"github.com/jackc/pgx/v5"
	"github.com/pgvector/pgvector-go"

	"github.com/skim-ai/cli/internal/models"
)

// storedTextLimit caps the text snippet persisted alongside each vector.
const storedTextLimit = 1000

// collectionNamePattern guards against interpolating anything but a plain
// identifier into DDL.
var collectionNamePattern = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

func validCollection(name string) error {
	if !collectionNamePattern.MatchString(name) {
		return fmt.Errorf("invalid collection name %q", name)
	}
	return nil
}

// EnsureCollection creates the collection table if absent. It never alters
// an existing collection: a dimension mismatch with an existing table is a
// fatal configuration error.
func (db *DB) EnsureCollection(ctx context.Context, name string, dimension int) error {
	if err := validCollection(name); err != nil {
		return err
	}
	if dimension <= 0 {
		return fmt.Errorf("invalid embedding dimension %d", dimension)
	}

	if _, err := db.pool.Exec(ctx, `CREATE EXTENSION IF NOT EXISTS vector`); err != nil {
		return fmt.Errorf("failed to ensure pgvector extension: %w", err)
	}

	var exists bool
	err := db.pool.QueryRow(ctx, `SELECT to_regclass($1) IS NOT NULL`, name).Scan(&exists)
	if err != nil {
		return fmt.Errorf("failed to inspect collection %q: %w", name, err)
	}

	if exists {
		// vector(n) stores its dimension in atttypmod. A table of this
		// name without an embedding column is not ours to adopt.
		var existing int32
		err := db.pool.QueryRow(ctx,
			`SELECT a.atttypmod FROM pg_attribute a
			 WHERE a.attrelid = to_regclass($1) AND a.attname = 'embedding'
			 AND NOT a.attisdropped`,
			name,
		).Scan(&existing)
		if err == pgx.ErrNoRows {
			return fmt.Errorf("table %q exists but has no embedding column", name)
		}
		if err != nil {
			return fmt.Errorf("failed to inspect collection %q: %w", name, err)
		}
		if int(existing) != dimension {
			return fmt.Errorf("collection %q has dimension %d, config wants %d", name, existing, dimension)
		}
		return nil
	}

	_, err = db.pool.Exec(ctx, fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id text PRIMARY KEY,
			embedding vector(%d) NOT NULL,
			metadata jsonb NOT NULL DEFAULT '{}'::jsonb
		)`, name, dimension))
	if err != nil {
		return fmt.Errorf("failed to create collection %q: %w", name, err)
	}

	_, err = db.pool.Exec(ctx, fmt.Sprintf(
		`CREATE INDEX IF NOT EXISTS %s_embedding_idx ON %s USING hnsw (embedding vector_cosine_ops)`,
		name, name))
	if err != nil {
		return fmt.Errorf("failed to index collection %q: %w", name, err)
	}
	return nil
}

// UpsertChunks writes embedded chunks in batches. Ids are positional,
// "{prefix}_chunk_{i}", so re-upserting a document replaces its vectors.
// Every batch commits in its own transaction: the whole batch lands or none
// of it does, and a failure names the batch and chunk range.
func (db *DB) UpsertChunks(ctx context.Context, collection, prefix string, chunks []*models.Chunk, batchSize int) error {
	if err := validCollection(collection); err != nil {
		return err
	}
	if batchSize <= 0 {
		batchSize = 100
	}

	for i, chunk := range chunks {
		if chunk.Embedding == nil {
			return fmt.Errorf("chunk %d has no embedding", i)
		}
	}

	sql := fmt.Sprintf(`
		INSERT INTO %s (id, embedding, metadata) VALUES ($1, $2, $3::jsonb)
		ON CONFLICT (id) DO UPDATE SET embedding = EXCLUDED.embedding, metadata = EXCLUDED.metadata`,
		collection)

	for start := 0; start < len(chunks); start += batchSize {
		end := start + batchSize
		if end > len(chunks) {
			end = len(chunks)
		}

		batch := &pgx.Batch{}
		for i := start; i < end; i++ {
			metaJSON, err := json.Marshal(FlattenMetadata(chunks[i]))
			if err != nil {
				return fmt.Errorf("failed to marshal metadata for chunk %d: %w", i, err)
			}
			id := fmt.Sprintf("%s_chunk_%d", prefix, i)
			batch.Queue(sql, id, pgvector.NewVector(chunks[i].Embedding), metaJSON)
		}

		if err := db.sendBatchTx(ctx, batch); err != nil {
			return fmt.Errorf("upsert batch %d (chunks %d-%d): %w",
				start/batchSize, start, end-1, err)
		}
	}

	return nil
}

// DeleteDocumentChunks removes every stored vector belonging to a document,
// matched by the doc_id written into each row's metadata. Run before
// re-upserting a document so a shrunk chunk list leaves no stale tail rows.
func (db *DB) DeleteDocumentChunks(ctx context.Context, collection, docID string) error {
	if err := validCollection(collection); err != nil {
		return err
	}

	filterJSON, err := json.Marshal(map[string]string{"doc_id": docID})
	if err != nil {
		return fmt.Errorf("failed to marshal filter: %w", err)
	}

	_, err = db.pool.Exec(ctx,
		fmt.Sprintf(`DELETE FROM %s WHERE metadata @> $1::jsonb`, collection),
		filterJSON)
	if err != nil {
		return fmt.Errorf("failed to delete chunks of %s: %w", docID, err)
	}
	return nil
}

// sendBatchTx runs a batch inside a transaction so it commits atomically.
func (db *DB) sendBatchTx(ctx context.Context, batch *pgx.Batch) error {
	tx, err := db.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	br := tx.SendBatch(ctx, batch)
	for i := 0; i < batch.Len(); i++ {
		if _, err := br.Exec(); err != nil {
			br.Close()
			return fmt.Errorf("failed to upsert row %d: %w", i, err)
		}
	}
	if err := br.Close(); err != nil {
		return fmt.Errorf("failed to close batch: %w", err)
	}

	return tx.Commit(ctx)
}

// QueryCollection returns up to topK matches ordered by descending cosine
// similarity. filter restricts matches to rows whose metadata contains every
// given key/value pair, applied server-side before ranking.
func (db *DB) QueryCollection(ctx context.Context, collection string, vector []float32, topK int, filter map[string]string) ([]models.SearchMatch, error) {
	if err := validCollection(collection); err != nil {
		return nil, err
	}
	if topK <= 0 {
		topK = 5
	}

	args := []any{pgvector.NewVector(vector)}
	where := ""
	if len(filter) > 0 {
		filterJSON, err := json.Marshal(filter)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal filter: %w", err)
		}
		where = " WHERE metadata @> $2::jsonb"
		args = append(args, filterJSON)
	}
	args = append(args, topK)

	sql := fmt.Sprintf(
		`SELECT id, metadata, 1 - (embedding <=> $1) AS score FROM %s%s
		 ORDER BY embedding <=> $1 LIMIT $%d`,
		collection, where, len(args))

	rows, err := db.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query collection %q: %w", collection, err)
	}
	defer rows.Close()

	var matches []models.SearchMatch
	for rows.Next() {
		var (
			id       string
			metaJSON []byte
			score    float64
		)
		if err := rows.Scan(&id, &metaJSON, &score); err != nil {
			return nil, fmt.Errorf("failed to scan match: %w", err)
		}

		metadata := map[string]any{}
		if err := json.Unmarshal(metaJSON, &metadata); err != nil {
			return nil, fmt.Errorf("failed to decode metadata for %s: %w", id, err)
		}
		text, _ := metadata["text"].(string)

		matches = append(matches, models.SearchMatch{
			ID:       id,
			Score:    score,
			Text:     text,
			Metadata: metadata,
		})
	}
	return matches, rows.Err()
}

// FlattenMetadata produces the flat metadata record persisted with each
// vector: no nested values, falsy values dropped, text truncated for
// display at retrieval time.
func FlattenMetadata(chunk *models.Chunk) map[string]any {
	flat := make(map[string]any)

	addString := func(key, value string) {
		if value != "" {
			flat[key] = value
		}
	}
	addInt := func(key string, value int) {
		if value != 0 {
			flat[key] = value
		}
	}

	text := chunk.Text
	if len(text) > storedTextLimit {
		cut := storedTextLimit
		// Never truncate mid-rune.
		for cut > 0 && !utf8.RuneStart(text[cut]) {
			cut--
		}
		text = text[:cut]
	}
	addString("text", text)

	meta := chunk.Meta
	addString("source_type", meta.SourceType)
	addString("content_type", string(chunk.ContentType))
	addString("doc_id", meta.DocID)
	addInt("page", meta.Page)
	addString("section", meta.Section)
	addString("table_id", meta.TableID)
	addString("table_markdown", meta.TableMarkdown)
	addString("dimensions", meta.Dimensions)
	if meta.ChunkID != nil {
		addInt("chunk_id", *meta.ChunkID)
	}
	if meta.VisualIndex != nil {
		addInt("visual_index", *meta.VisualIndex)
	}
	for k, v := range meta.Extra {
		addString(k, v)
	}

	return flat
}
