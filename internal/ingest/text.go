// Package ingest turns documents into embedded chunks: text and table
// chunking, visual extraction, batch embedding, and the per-file pipeline.
package ingest

import (
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/skim-ai/cli/internal/models"
	"github.com/skim-ai/cli/internal/pdfx"
)

// TextChunker splits page text into overlapping character windows, snapping
// the window end back to a sentence boundary when one falls late enough in
// the window.
type TextChunker struct {
	chunkSize int
	overlap   int
	logger    *zap.Logger
}

// NewTextChunker creates a chunker. Size and overlap default to 500/100;
// overlap must stay below size for the window to advance.
func NewTextChunker(chunkSize, overlap int, logger *zap.Logger) *TextChunker {
	if chunkSize <= 0 {
		chunkSize = 500
	}
	if overlap < 0 || overlap >= chunkSize {
		overlap = 100
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TextChunker{chunkSize: chunkSize, overlap: overlap, logger: logger}
}

// ChunkDocument produces text chunks for every non-blank page. A failed page
// extraction is logged and skipped; it never aborts the document.
func (c *TextChunker) ChunkDocument(ex pdfx.Extractor, docID string, extra map[string]string) []*models.Chunk {
	var chunks []*models.Chunk

	for page := 0; page < ex.NumPages(); page++ {
		text, err := ex.PageText(page)
		if err != nil {
			c.logger.Warn("failed to extract page text",
				zap.String("doc_id", docID), zap.Int("page", page+1), zap.Error(err))
			continue
		}
		chunks = append(chunks, c.ChunkPage(text, docID, page+1, extra)...)
	}

	return chunks
}

// ChunkPage chunks one page of text. page is 1-indexed. Blank pages yield no
// chunks; chunk ids restart at 0 on every page.
func (c *TextChunker) ChunkPage(text, docID string, page int, extra map[string]string) []*models.Chunk {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	var chunks []*models.Chunk
	for chunkID, span := range c.splitSpans(text) {
		piece := strings.TrimSpace(text[span[0]:span[1]])
		if piece == "" {
			continue
		}
		id := chunkID
		chunks = append(chunks, &models.Chunk{
			Text:        piece,
			ContentType: models.ContentText,
			Meta: models.Metadata{
				SourceType: "pdf",
				DocID:      docID,
				Page:       page,
				ChunkID:    &id,
				Extra:      extra,
			},
		})
	}
	return chunks
}

// splitSpans computes the [start, end) byte ranges of each chunk. Cut points
// never land inside a multibyte rune. The window end snaps back to the last
// '.' in the window when that period sits past 70% of the chunk size; the
// next window starts overlap bytes before the (possibly snapped) end. A
// window reaching the end of the page terminates the walk, so a page shorter
// than the chunk size yields exactly one span.
func (c *TextChunker) splitSpans(text string) [][2]int {
	var spans [][2]int

	start := 0
	for start < len(text) {
		end := start + c.chunkSize
		if end > len(text) {
			end = len(text)
		} else if end < len(text) {
			end = alignRune(text, end)
			if end <= start {
				// The window is narrower than the rune at start.
				_, size := utf8.DecodeRuneInString(text[start:])
				end = start + size
			}
			window := text[start:end]
			if lastPeriod := strings.LastIndex(window, "."); lastPeriod >= 0 &&
				float64(lastPeriod) > float64(c.chunkSize)*0.7 {
				end = start + lastPeriod + 1
			}
		}

		spans = append(spans, [2]int{start, end})

		if end >= len(text) {
			break
		}
		next := alignRune(text, end-c.overlap)
		if next <= start {
			// A snapped end inside the overlap region must still advance.
			next = end
		}
		start = next
	}

	return spans
}

// alignRune walks i back to the start of the rune it points into.
func alignRune(text string, i int) int {
	for i > 0 && i < len(text) && !utf8.RuneStart(text[i]) {
		i--
	}
	return i
}
