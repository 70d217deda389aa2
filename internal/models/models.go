// Package models defines the shared data types for the ingestion and
// retrieval pipeline.
package models

// ContentType tags what kind of content a chunk carries. Text and table
// chunks come from the chunkers; the remaining values are visual types
// assigned by the vision classifier.
type ContentType string

const (
	ContentText      ContentType = "text"
	ContentTable     ContentType = "table"
	ContentBarChart  ContentType = "bar_chart"
	ContentLineChart ContentType = "line_chart"
	ContentPieChart  ContentType = "pie_chart"
	ContentFlowchart ContentType = "flowchart"
	ContentDiagram   ContentType = "diagram"
	ContentOther     ContentType = "other"
)

// VisualTypes is the set of labels the vision classifier may return.
var VisualTypes = map[ContentType]bool{
	ContentBarChart:  true,
	ContentLineChart: true,
	ContentPieChart:  true,
	ContentFlowchart: true,
	ContentTable:     true,
	ContentDiagram:   true,
	ContentOther:     true,
}

// Metadata carries chunk provenance. SourceType, DocID and Page are set on
// every chunk; the remaining fields are type-specific.
type Metadata struct {
	SourceType string
	DocID      string
	Page       int // 1-indexed

	// Type-specific identifiers. Exactly one is set per chunk.
	ChunkID     *int   // text chunks, restarts at 0 per page
	TableID     string // table chunks, "table_{page}_{idx}" with 0-based page
	VisualIndex *int   // visual chunks, image index within the page

	Section       string
	TableMarkdown string // markdown rendering for LLM consumption
	Dimensions    string // visual chunks, "WxH"

	// Extra holds caller-supplied document metadata (language, region,
	// filename, ...), copied onto every chunk of the document.
	Extra map[string]string
}

// Chunk is the atomic retrievable unit. Embedding is nil until the embedder
// stage runs and is not modified afterwards.
type Chunk struct {
	Text        string
	ContentType ContentType
	Meta        Metadata
	Embedding   []float32
}

// SearchMatch is a stored vector returned from similarity search, with its
// flattened metadata and a cosine similarity score (higher is better).
type SearchMatch struct {
	ID       string         `json:"id"`
	Score    float64        `json:"score"`
	Text     string         `json:"text"`
	Metadata map[string]any `json:"metadata"`
}

// Citation attributes part of a generated answer to a search result.
// SourceID is the 0-based position in the search-result list.
type Citation struct {
	SourceID        int     `json:"source_id"`
	DocID           string  `json:"doc_id"`
	Section         string  `json:"section,omitempty"`
	SourceType      string  `json:"source_type,omitempty"`
	ContentType     string  `json:"content_type,omitempty"`
	ConfidenceScore float64 `json:"confidence_score"`
	Page            int     `json:"page,omitempty"`
	TicketID        string  `json:"ticket_id,omitempty"`
	FAQID           *int    `json:"faq_id,omitempty"`
}

// Answer is the result of one query: the generated text, up to three ranked
// citations, and the full unfiltered search results.
type Answer struct {
	Answer    string        `json:"answer"`
	Citations []Citation    `json:"citations"`
	Sources   []SearchMatch `json:"sources"`
}
