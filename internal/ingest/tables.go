package ingest

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/skim-ai/cli/internal/models"
	"github.com/skim-ai/cli/internal/pdfx"
)

// TableChunker turns extracted table grids into chunks, one per table, and
// writes each grid as a CSV artifact.
type TableChunker struct {
	sink   ArtifactSink
	logger *zap.Logger
}

// NewTableChunker creates a table chunker.
func NewTableChunker(sink ArtifactSink, logger *zap.Logger) *TableChunker {
	if sink == nil {
		sink = DiscardSink{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TableChunker{sink: sink, logger: logger}
}

// ChunkDocument produces one chunk per non-empty table. CSV artifact writes
// are best-effort; a failed write or page extraction never aborts the rest.
func (c *TableChunker) ChunkDocument(ex pdfx.Extractor, docID string, extra map[string]string) []*models.Chunk {
	var chunks []*models.Chunk

	for page := 0; page < ex.NumPages(); page++ {
		tables, err := ex.PageTables(page)
		if err != nil {
			c.logger.Warn("failed to extract tables",
				zap.String("doc_id", docID), zap.Int("page", page+1), zap.Error(err))
			continue
		}

		for tableIdx, table := range tables {
			if len(table) == 0 {
				continue
			}

			csvName := fmt.Sprintf("%s_page%d_table%d.csv", docID, page+1, tableIdx+1)
			if err := c.sink.SaveCSV(csvName, table); err != nil {
				c.logger.Warn("failed to save table csv",
					zap.String("artifact", csvName), zap.Error(err))
			}

			chunks = append(chunks, &models.Chunk{
				Text:        "[TABLE]\n" + tableText(table),
				ContentType: models.ContentTable,
				Meta: models.Metadata{
					SourceType:    "pdf",
					DocID:         docID,
					Page:          page + 1,
					TableID:       fmt.Sprintf("table_%d_%d", page, tableIdx),
					TableMarkdown: tableMarkdown(table),
					Extra:         extra,
				},
			})
		}
	}

	return chunks
}

// tableText renders a grid as natural language: a Columns line from the
// header row, then one Row line per data row.
func tableText(table [][]string) string {
	if len(table) == 0 {
		return ""
	}

	parts := []string{"Columns: " + strings.Join(table[0], " | ")}
	for rowIdx, row := range table[1:] {
		parts = append(parts, fmt.Sprintf("Row %d: %s", rowIdx+1, strings.Join(row, " | ")))
	}
	return strings.Join(parts, "\n")
}

// tableMarkdown renders a grid as a markdown table.
func tableMarkdown(table [][]string) string {
	if len(table) == 0 {
		return ""
	}

	headers := table[0]
	lines := []string{
		"| " + strings.Join(headers, " | ") + " |",
		"| " + strings.Join(repeat("---", len(headers)), " | ") + " |",
	}
	for _, row := range table[1:] {
		lines = append(lines, "| "+strings.Join(row, " | ")+" |")
	}
	return strings.Join(lines, "\n")
}

func repeat(s string, n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = s
	}
	return out
}
