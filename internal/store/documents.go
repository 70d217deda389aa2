package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Document is a registry record of an ingested file, keyed by content hash
// so unchanged files are skipped on re-ingestion.
type Document struct {
	ID          uuid.UUID
	DocID       string
	FilePath    string
	FileHash    string
	FileType    string
	Pages       int
	ChunkCount  int
	ProcessedAt *time.Time
	CreatedAt   time.Time
}

// Conversation is one question/answer exchange, kept for audit.
type Conversation struct {
	ID        uuid.UUID
	Question  string
	Answer    string
	ModelName string
	CitedDocs []string
	CreatedAt time.Time
}

const documentColumns = `id, doc_id, file_path, file_hash, file_type, pages, chunk_count, processed_at, created_at`

func scanDocument(row pgx.Row) (*Document, error) {
	var doc Document
	err := row.Scan(
		&doc.ID, &doc.DocID, &doc.FilePath, &doc.FileHash, &doc.FileType,
		&doc.Pages, &doc.ChunkCount, &doc.ProcessedAt, &doc.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

// GetDocumentByHash retrieves a document by its file hash, nil when absent.
// Hashes are not unique (the same content can live under two document ids),
// so the newest record wins.
func (db *DB) GetDocumentByHash(ctx context.Context, hash string) (*Document, error) {
	doc, err := scanDocument(db.pool.QueryRow(ctx,
		`SELECT `+documentColumns+` FROM documents WHERE file_hash = $1
		 ORDER BY created_at DESC LIMIT 1`,
		hash,
	))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get document by hash: %w", err)
	}
	return doc, nil
}

// UpsertDocument creates the registry record for a document, or updates the
// existing record when the doc_id is already registered: a changed file
// keeps one record, with its hash refreshed and its processed state reset.
func (db *DB) UpsertDocument(ctx context.Context, docID, filePath, fileHash, fileType string, pages int) (*Document, error) {
	doc, err := scanDocument(db.pool.QueryRow(ctx,
		`INSERT INTO documents (id, doc_id, file_path, file_hash, file_type, pages)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (doc_id) DO UPDATE SET
			file_path = EXCLUDED.file_path,
			file_hash = EXCLUDED.file_hash,
			file_type = EXCLUDED.file_type,
			pages = EXCLUDED.pages,
			processed_at = NULL,
			chunk_count = 0
		 RETURNING `+documentColumns,
		uuid.New(), docID, filePath, fileHash, fileType, pages,
	))
	if err != nil {
		return nil, fmt.Errorf("failed to upsert document: %w", err)
	}
	return doc, nil
}

// MarkDocumentProcessed records the chunk count and the processed timestamp.
func (db *DB) MarkDocumentProcessed(ctx context.Context, id uuid.UUID, chunkCount int) error {
	_, err := db.pool.Exec(ctx,
		`UPDATE documents SET processed_at = NOW(), chunk_count = $2 WHERE id = $1`,
		id, chunkCount,
	)
	return err
}

// ListDocuments retrieves all documents, newest first.
func (db *DB) ListDocuments(ctx context.Context) ([]*Document, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT `+documentColumns+` FROM documents ORDER BY created_at DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	defer rows.Close()

	var docs []*Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan document: %w", err)
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

// DeleteDocument deletes a document registry record.
func (db *DB) DeleteDocument(ctx context.Context, id uuid.UUID) error {
	_, err := db.pool.Exec(ctx, `DELETE FROM documents WHERE id = $1`, id)
	return err
}

// SaveConversation saves a conversation record
func (db *DB) SaveConversation(ctx context.Context, conv *Conversation) error {
	if conv.ID == uuid.Nil {
		conv.ID = uuid.New()
	}
	_, err := db.pool.Exec(ctx,
		`INSERT INTO conversations (id, question, answer, model_name, cited_docs)
		 VALUES ($1, $2, $3, $4, $5)`,
		conv.ID, conv.Question, conv.Answer, conv.ModelName, conv.CitedDocs,
	)
	return err
}
