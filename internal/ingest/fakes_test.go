package ingest

import (
	"context"
	"errors"
	"image"
	"time"

	"github.com/google/uuid"

	"github.com/skim-ai/cli/internal/models"
	"github.com/skim-ai/cli/internal/store"
)

// fakeExtractor is a test double for pdfx.Extractor.
type fakeExtractor struct {
	pages []fakePage
}

type fakePage struct {
	text      string
	textErr   error
	tables    [][][]string
	tablesErr error
	images    [][]byte
	imagesErr error
}

func (f *fakeExtractor) NumPages() int { return len(f.pages) }

func (f *fakeExtractor) PageText(page int) (string, error) {
	return f.pages[page].text, f.pages[page].textErr
}

func (f *fakeExtractor) PageTables(page int) ([][][]string, error) {
	return f.pages[page].tables, f.pages[page].tablesErr
}

func (f *fakeExtractor) PageImages(page int) ([][]byte, error) {
	return f.pages[page].images, f.pages[page].imagesErr
}

func (f *fakeExtractor) Close() error { return nil }

// fakeVision is a test double for VisualDescriber.
type fakeVision struct {
	label         models.ContentType
	classifyCalls int
	describeCalls int
	failOnCall    int // 0-based classify call to fail; -1 for never
}

func newFakeVision(label models.ContentType) *fakeVision {
	return &fakeVision{label: label, failOnCall: -1}
}

func (f *fakeVision) Classify(_ context.Context, _ []byte) (models.ContentType, error) {
	call := f.classifyCalls
	f.classifyCalls++
	if call == f.failOnCall {
		return "", errors.New("vision unavailable")
	}
	return f.label, nil
}

func (f *fakeVision) Describe(_ context.Context, _ []byte, visualType models.ContentType) (string, error) {
	f.describeCalls++
	return "description of " + string(visualType), nil
}

// recordSink records artifact names and can simulate write failures.
type recordSink struct {
	pngs   []string
	csvs   []string
	pngErr error
	csvErr error
}

func (s *recordSink) SavePNG(name string, _ image.Image) error {
	s.pngs = append(s.pngs, name)
	return s.pngErr
}

func (s *recordSink) SaveCSV(name string, _ [][]string) error {
	s.csvs = append(s.csvs, name)
	return s.csvErr
}

// fakeStore is an in-memory Store recording the operation order.
type fakeStore struct {
	docs   map[string]*store.Document // by doc_id
	byHash map[string]*store.Document
	chunks map[string][]*models.Chunk // last upserted set per doc_id
	ops    []string
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		docs:   make(map[string]*store.Document),
		byHash: make(map[string]*store.Document),
		chunks: make(map[string][]*models.Chunk),
	}
}

func (f *fakeStore) GetDocumentByHash(_ context.Context, hash string) (*store.Document, error) {
	return f.byHash[hash], nil
}

func (f *fakeStore) UpsertDocument(_ context.Context, docID, filePath, fileHash, fileType string, pages int) (*store.Document, error) {
	f.ops = append(f.ops, "upsert_doc")
	doc, ok := f.docs[docID]
	if !ok {
		doc = &store.Document{ID: uuid.New(), DocID: docID}
		f.docs[docID] = doc
	}
	doc.FilePath = filePath
	doc.FileHash = fileHash
	doc.FileType = fileType
	doc.Pages = pages
	doc.ProcessedAt = nil
	doc.ChunkCount = 0
	f.byHash[fileHash] = doc
	return doc, nil
}

func (f *fakeStore) MarkDocumentProcessed(_ context.Context, id uuid.UUID, chunkCount int) error {
	f.ops = append(f.ops, "mark_processed")
	for _, doc := range f.docs {
		if doc.ID == id {
			now := time.Now()
			doc.ProcessedAt = &now
			doc.ChunkCount = chunkCount
		}
	}
	return nil
}

func (f *fakeStore) DeleteDocumentChunks(_ context.Context, _, docID string) error {
	f.ops = append(f.ops, "delete_chunks")
	delete(f.chunks, docID)
	return nil
}

func (f *fakeStore) UpsertChunks(_ context.Context, _, prefix string, chunks []*models.Chunk, _ int) error {
	f.ops = append(f.ops, "upsert_chunks")
	f.chunks[prefix] = chunks
	return nil
}

// fakeEmbedder returns vectors encoding (call index, position) so tests can
// verify batch boundaries and ordering.
type fakeEmbedder struct {
	calls      [][]string
	failOnCall int // 0-based call to fail; -1 for never
}

func newFakeEmbedder() *fakeEmbedder {
	return &fakeEmbedder{failOnCall: -1}
}

func (f *fakeEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	call := len(f.calls)
	f.calls = append(f.calls, texts)
	if call == f.failOnCall {
		return nil, errors.New("embedding service down")
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{float32(call), float32(i)}
	}
	return out, nil
}
