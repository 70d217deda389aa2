package rag

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skim-ai/cli/internal/models"
)

func match(score float64, meta map[string]any) models.SearchMatch {
	return models.SearchMatch{Score: score, Metadata: meta}
}

func TestExtractCitationsHighConfidence(t *testing.T) {
	results := []models.SearchMatch{
		match(0.85, map[string]any{"doc_id": "report", "page": float64(2)}),
		match(0.55, map[string]any{"doc_id": "manual"}),
	}

	citations := extractCitations("The revenue grew.", results)

	require.Len(t, citations, 1)
	assert.Equal(t, 0, citations[0].SourceID)
	assert.Equal(t, "report", citations[0].DocID)
	assert.Equal(t, 2, citations[0].Page)
	assert.Equal(t, 0.85, citations[0].ConfidenceScore)
}

func TestExtractCitationsThresholdIsExclusive(t *testing.T) {
	results := []models.SearchMatch{
		match(0.6, map[string]any{"doc_id": "report"}),
	}

	assert.Empty(t, extractCitations("No markers here.", results))
}

func TestExtractCitationsExplicitMention(t *testing.T) {
	results := []models.SearchMatch{
		match(0.3, map[string]any{"doc_id": "report"}),
		match(0.2, map[string]any{"doc_id": "manual"}),
	}

	citations := extractCitations("According to [Source 1], the fee is $5.", results)

	require.Len(t, citations, 1)
	assert.Equal(t, 1, citations[0].SourceID)
	assert.Equal(t, "manual", citations[0].DocID)
}

func TestExtractCitationsBareMention(t *testing.T) {
	results := []models.SearchMatch{
		match(0.3, map[string]any{"doc_id": "report"}),
	}

	citations := extractCitations("As Source 0 explains, limits apply.", results)

	require.Len(t, citations, 1)
}

func TestExtractCitationsSortedAndCapped(t *testing.T) {
	results := []models.SearchMatch{
		match(0.65, map[string]any{"doc_id": "a"}),
		match(0.92, map[string]any{"doc_id": "b"}),
		match(0.71, map[string]any{"doc_id": "c"}),
		match(0.88, map[string]any{"doc_id": "d"}),
	}

	citations := extractCitations("answer", results)

	require.Len(t, citations, maxCitations)
	assert.Equal(t, "b", citations[0].DocID)
	assert.Equal(t, "d", citations[1].DocID)
	assert.Equal(t, "c", citations[2].DocID)
}

func TestExtractCitationsStableOnTies(t *testing.T) {
	results := []models.SearchMatch{
		match(0.8, map[string]any{"doc_id": "first"}),
		match(0.8, map[string]any{"doc_id": "second"}),
	}

	citations := extractCitations("answer", results)

	require.Len(t, citations, 2)
	assert.Equal(t, "first", citations[0].DocID)
	assert.Equal(t, "second", citations[1].DocID)
}

func TestExtractCitationsRoundsScores(t *testing.T) {
	results := []models.SearchMatch{
		match(0.87654, map[string]any{"doc_id": "report"}),
	}

	citations := extractCitations("answer", results)

	require.Len(t, citations, 1)
	assert.Equal(t, 0.877, citations[0].ConfidenceScore)
}

func TestExtractCitationsOptionalFields(t *testing.T) {
	results := []models.SearchMatch{
		match(0.9, map[string]any{
			"doc_id":       "kb",
			"source_type":  "faq",
			"content_type": "text",
			"section":      "Billing",
			"ticket_id":    "T-42",
			"faq_id":       float64(7),
		}),
		match(0.9, map[string]any{"doc_id": "plain"}),
	}

	citations := extractCitations("answer", results)

	require.Len(t, citations, 2)
	c := citations[0]
	assert.Equal(t, "Billing", c.Section)
	assert.Equal(t, "faq", c.SourceType)
	assert.Equal(t, "T-42", c.TicketID)
	require.NotNil(t, c.FAQID)
	assert.Equal(t, 7, *c.FAQID)

	assert.Nil(t, citations[1].FAQID)
	assert.Empty(t, citations[1].TicketID)
}
