package ingest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skim-ai/cli/internal/models"
)

var sampleTable = [][]string{
	{"Plan", "Price", "Region"},
	{"Basic", "10", "EU"},
	{"Pro", "25", "US"},
}

func TestTableText(t *testing.T) {
	want := "Columns: Plan | Price | Region\n" +
		"Row 1: Basic | 10 | EU\n" +
		"Row 2: Pro | 25 | US"
	assert.Equal(t, want, tableText(sampleTable))
	assert.Equal(t, "", tableText(nil))
}

func TestTableMarkdown(t *testing.T) {
	want := "| Plan | Price | Region |\n" +
		"| --- | --- | --- |\n" +
		"| Basic | 10 | EU |\n" +
		"| Pro | 25 | US |"
	assert.Equal(t, want, tableMarkdown(sampleTable))
	assert.Equal(t, "", tableMarkdown(nil))
}

func TestChunkDocumentTables(t *testing.T) {
	ex := &fakeExtractor{pages: []fakePage{
		{tables: [][][]string{sampleTable, {}}},
	}}
	sink := &recordSink{}
	c := NewTableChunker(sink, nil)

	chunks := c.ChunkDocument(ex, "doc-1", map[string]string{"lang": "en"})

	require.Len(t, chunks, 1, "empty tables are skipped")
	chunk := chunks[0]
	assert.Equal(t, models.ContentTable, chunk.ContentType)
	assert.Equal(t, "[TABLE]\n"+tableText(sampleTable), chunk.Text)
	assert.Equal(t, "table_0_0", chunk.Meta.TableID)
	assert.Equal(t, 1, chunk.Meta.Page)
	assert.Equal(t, tableMarkdown(sampleTable), chunk.Meta.TableMarkdown)
	assert.Equal(t, "en", chunk.Meta.Extra["lang"])

	require.Len(t, sink.csvs, 1)
	assert.Equal(t, "doc-1_page1_table1.csv", sink.csvs[0])
}

func TestChunkDocumentTablesSinkFailureIsIgnored(t *testing.T) {
	ex := &fakeExtractor{pages: []fakePage{
		{tables: [][][]string{sampleTable}},
	}}
	sink := &recordSink{csvErr: assert.AnError}
	c := NewTableChunker(sink, nil)

	chunks := c.ChunkDocument(ex, "doc-1", nil)

	require.Len(t, chunks, 1)
}

func TestChunkDocumentTablesPageFailureIsScoped(t *testing.T) {
	ex := &fakeExtractor{pages: []fakePage{
		{tablesErr: assert.AnError},
		{tables: [][][]string{sampleTable}},
	}}
	c := NewTableChunker(nil, nil)

	chunks := c.ChunkDocument(ex, "doc-1", nil)

	require.Len(t, chunks, 1)
	assert.Equal(t, 2, chunks[0].Meta.Page)
	assert.Equal(t, "table_1_0", chunks[0].Meta.TableID)
}
