package ingest

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitSpansHardCuts(t *testing.T) {
	c := NewTextChunker(30, 5, nil)
	text := strings.Repeat("abcdefghij", 10) // 100 chars, no sentence boundaries

	spans := c.splitSpans(text)

	require.Equal(t, [][2]int{{0, 30}, {25, 55}, {50, 80}, {75, 100}}, spans)
}

func TestSplitSpansSentenceSnap(t *testing.T) {
	c := NewTextChunker(10, 3, nil)
	// First window is "Hi there.Z"; the period at offset 8 is past 70% of
	// the chunk size, so the cut snaps to it.
	text := "Hi there.Zebra jumps."
	require.Len(t, text, 21)

	spans := c.splitSpans(text)

	require.Equal(t, [][2]int{{0, 9}, {6, 16}, {13, 21}}, spans)
	assert.Equal(t, "Hi there.", text[spans[0][0]:spans[0][1]])
}

func TestSplitSpansEarlyPeriodKeepsHardCut(t *testing.T) {
	c := NewTextChunker(10, 3, nil)
	// The only period in the first window sits at offset 1, well before the
	// 70% threshold, so the hard cut stands.
	text := "A. bcdefghijklmnopqrs"

	spans := c.splitSpans(text)

	assert.Equal(t, [2]int{0, 10}, spans[0])
}

func TestChunkPageExactBoundaries(t *testing.T) {
	c := NewTextChunker(10, 3, nil)
	text := "Alpha one. Beta two. Gam"
	require.Len(t, text, 24)

	chunks := c.ChunkPage(text, "doc-1", 1, nil)

	require.Len(t, chunks, 3)
	assert.Equal(t, "Alpha one.", chunks[0].Text)
	assert.Equal(t, "ne. Beta t", chunks[1].Text)
	assert.Equal(t, "a two. Gam", chunks[2].Text)
	for i, chunk := range chunks {
		require.NotNil(t, chunk.Meta.ChunkID)
		assert.Equal(t, i, *chunk.Meta.ChunkID)
		assert.Equal(t, 1, chunk.Meta.Page)
		assert.Equal(t, "doc-1", chunk.Meta.DocID)
	}
}

func TestChunkPageShortPageYieldsOneChunk(t *testing.T) {
	c := NewTextChunker(500, 100, nil)

	chunks := c.ChunkPage("Tiny page.", "doc-1", 1, nil)

	require.Len(t, chunks, 1)
	assert.Equal(t, "Tiny page.", chunks[0].Text)
}

func TestChunkPageBlankPageYieldsNothing(t *testing.T) {
	c := NewTextChunker(500, 100, nil)

	assert.Empty(t, c.ChunkPage("   \n\t  ", "doc-1", 1, nil))
}

func TestSplitSpansCoverageAndOverlap(t *testing.T) {
	c := NewTextChunker(50, 10, nil)
	text := strings.Repeat("The quick brown fox jumps over the lazy dog. ", 20)

	spans := c.splitSpans(text)
	require.NotEmpty(t, spans)

	// Full coverage: spans start at 0, end at len(text), and each span
	// begins at or before the previous span's end.
	assert.Equal(t, 0, spans[0][0])
	assert.Equal(t, len(text), spans[len(spans)-1][1])
	for i := 1; i < len(spans); i++ {
		overlap := spans[i-1][1] - spans[i][0]
		assert.GreaterOrEqual(t, overlap, 0, "span %d", i)
		assert.LessOrEqual(t, overlap, 10, "span %d", i)
	}
}

func TestSplitSpansNeverSplitsRunes(t *testing.T) {
	cases := map[string]struct {
		chunkSize, overlap int
		text               string
	}{
		"two-byte runes":   {5, 2, strings.Repeat("é", 20)},
		"three-byte runes": {10, 3, strings.Repeat("世界", 15)},
		"four-byte runes":  {7, 3, strings.Repeat("🙂", 10)},
		"mixed":            {12, 4, strings.Repeat("naïve café. ", 8)},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			c := NewTextChunker(tc.chunkSize, tc.overlap, nil)

			spans := c.splitSpans(tc.text)
			require.NotEmpty(t, spans)

			for i, span := range spans {
				piece := tc.text[span[0]:span[1]]
				assert.True(t, utf8.ValidString(piece), "span %d %q is broken", i, piece)
			}
			assert.Equal(t, 0, spans[0][0])
			assert.Equal(t, len(tc.text), spans[len(spans)-1][1])
		})
	}
}

func TestChunkPageMultibyteTextIsValid(t *testing.T) {
	c := NewTextChunker(10, 3, nil)

	chunks := c.ChunkPage(strings.Repeat("é", 20), "doc-1", 1, nil)

	require.NotEmpty(t, chunks)
	for _, chunk := range chunks {
		assert.True(t, utf8.ValidString(chunk.Text), "chunk %q is broken", chunk.Text)
	}
}

func TestChunkDocumentRestartsIDsPerPage(t *testing.T) {
	ex := &fakeExtractor{pages: []fakePage{
		{text: strings.Repeat("alpha beta gamma delta. ", 10)},
		{text: ""},
		{text: strings.Repeat("one two three four five. ", 10)},
	}}
	c := NewTextChunker(100, 20, nil)

	chunks := c.ChunkDocument(ex, "doc-1", map[string]string{"lang": "en"})
	require.NotEmpty(t, chunks)

	pagesSeen := map[int]bool{}
	lastID := map[int]int{}
	for _, chunk := range chunks {
		require.NotNil(t, chunk.Meta.ChunkID)
		if !pagesSeen[chunk.Meta.Page] {
			assert.Equal(t, 0, *chunk.Meta.ChunkID, "first chunk of page %d", chunk.Meta.Page)
			pagesSeen[chunk.Meta.Page] = true
		} else {
			assert.Equal(t, lastID[chunk.Meta.Page]+1, *chunk.Meta.ChunkID)
		}
		lastID[chunk.Meta.Page] = *chunk.Meta.ChunkID
		assert.Equal(t, "en", chunk.Meta.Extra["lang"])
	}
	// The blank page contributes nothing.
	assert.False(t, pagesSeen[2])
	assert.True(t, pagesSeen[1])
	assert.True(t, pagesSeen[3])
}

func TestChunkDocumentSkipsFailedPages(t *testing.T) {
	ex := &fakeExtractor{pages: []fakePage{
		{textErr: assert.AnError},
		{text: "Readable page."},
	}}
	c := NewTextChunker(500, 100, nil)

	chunks := c.ChunkDocument(ex, "doc-1", nil)

	require.Len(t, chunks, 1)
	assert.Equal(t, 2, chunks[0].Meta.Page)
}
