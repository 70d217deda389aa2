package rag

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/skim-ai/cli/internal/models"
)

// confidenceThreshold admits a search result as a citation regardless of
// whether the answer echoes its source marker.
const confidenceThreshold = 0.6

// maxCitations caps the returned citation list.
const maxCitations = 3

// extractCitations selects citations from the search results: a result is
// included when its score exceeds the confidence threshold or the answer
// mentions it by source marker. Citations are sorted by confidence
// descending; equal scores keep search-result order.
func extractCitations(answer string, results []models.SearchMatch) []models.Citation {
	citations := make([]models.Citation, 0, len(results))

	for idx, result := range results {
		isHighConfidence := result.Score > confidenceThreshold
		isExplicitlyCited := strings.Contains(answer, fmt.Sprintf("[Source %d]", idx)) ||
			strings.Contains(answer, fmt.Sprintf("Source %d", idx))
		if !isHighConfidence && !isExplicitlyCited {
			continue
		}

		citation := models.Citation{
			SourceID:        idx,
			DocID:           metaString(result.Metadata, "doc_id", "Unknown"),
			Section:         metaString(result.Metadata, "section", ""),
			SourceType:      metaString(result.Metadata, "source_type", ""),
			ContentType:     metaString(result.Metadata, "content_type", ""),
			ConfidenceScore: round3(result.Score),
		}

		if page := metaInt(result.Metadata, "page"); page > 0 {
			citation.Page = page
		}
		if ticketID := metaString(result.Metadata, "ticket_id", ""); ticketID != "" {
			citation.TicketID = ticketID
		}
		if _, ok := result.Metadata["faq_id"]; ok {
			faqID := metaInt(result.Metadata, "faq_id")
			citation.FAQID = &faqID
		}

		citations = append(citations, citation)
	}

	sort.SliceStable(citations, func(i, j int) bool {
		return citations[i].ConfidenceScore > citations[j].ConfidenceScore
	})

	if len(citations) > maxCitations {
		citations = citations[:maxCitations]
	}
	return citations
}

func round3(f float64) float64 {
	return math.Round(f*1000) / 1000
}
