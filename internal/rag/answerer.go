// Package rag answers questions from the vector store: embed the query,
// search, assemble a cited context, generate, and extract ranked citations.
package rag

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/skim-ai/cli/internal/llm"
	"github.com/skim-ai/cli/internal/models"
)

// notFoundAnswer is returned verbatim when search yields no matches.
const notFoundAnswer = "I couldn't find relevant information in the documents."

const systemPrompt = "You are a precise document assistant."

const answerPromptFmt = `Answer the question using ONLY the provided context.

IMPORTANT:
- Always cite your sources using [Source X] notation
- Include document ID and page number in citations
- If the answer is not in the context, say so
- Be concise but complete

CONTEXT:
%s

QUESTION: %s

Answer with citations:`

// QueryEmbedder embeds the query text. It must be the same model and
// dimension used at ingestion time.
type QueryEmbedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// Searcher performs top-k similarity search with an optional equality
// metadata filter. Implemented by store.DB.
type Searcher interface {
	QueryCollection(ctx context.Context, collection string, vector []float32, topK int, filter map[string]string) ([]models.SearchMatch, error)
}

// Completer generates the answer text. Implemented by llm.Client.
type Completer interface {
	Chat(ctx context.Context, req *llm.ChatRequest) (string, error)
}

// Answerer is the top-level query entry point.
type Answerer struct {
	embedder   QueryEmbedder
	searcher   Searcher
	completer  Completer
	collection string
	model      string
	topK       int
	logger     *zap.Logger
}

// NewAnswerer creates an answerer. topK defaults to 5.
func NewAnswerer(
	embedder QueryEmbedder,
	searcher Searcher,
	completer Completer,
	collection, model string,
	topK int,
	logger *zap.Logger,
) *Answerer {
	if topK <= 0 {
		topK = 5
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Answerer{
		embedder:   embedder,
		searcher:   searcher,
		completer:  completer,
		collection: collection,
		model:      model,
		topK:       topK,
		logger:     logger,
	}
}

// Answer runs the full query flow and returns the generated answer, up to
// three ranked citations, and the unfiltered search results.
func (a *Answerer) Answer(ctx context.Context, query string, filter map[string]string) (*models.Answer, error) {
	vectors, err := a.embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}
	if len(vectors) != 1 {
		return nil, fmt.Errorf("expected 1 query embedding, got %d", len(vectors))
	}

	results, err := a.searcher.QueryCollection(ctx, a.collection, vectors[0], a.topK, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to search: %w", err)
	}

	if len(results) == 0 {
		return &models.Answer{
			Answer:    notFoundAnswer,
			Citations: []models.Citation{},
			Sources:   []models.SearchMatch{},
		}, nil
	}

	prompt := fmt.Sprintf(answerPromptFmt, buildContext(results), query)
	answer, err := a.completer.Chat(ctx, &llm.ChatRequest{
		Model: a.model,
		Messages: []llm.ChatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: prompt},
		},
		Options: map[string]any{"temperature": 0.3},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to generate answer: %w", err)
	}

	a.logger.Debug("answered query",
		zap.Int("sources", len(results)), zap.Int("answer_len", len(answer)))

	return &models.Answer{
		Answer:    answer,
		Citations: extractCitations(answer, results),
		Sources:   results,
	}, nil
}

// buildContext renders the search results as labeled source blocks indexed
// in result order.
func buildContext(results []models.SearchMatch) string {
	parts := make([]string, 0, len(results))
	for idx, result := range results {
		info := metaString(result.Metadata, "doc_id", "Unknown")
		if page := metaInt(result.Metadata, "page"); page > 0 {
			info += fmt.Sprintf(", Page %d", page)
		}
		if section := metaString(result.Metadata, "section", ""); section != "" {
			info += ", Section: " + section
		}
		if ct := metaString(result.Metadata, "content_type", ""); ct != "" && ct != string(models.ContentText) {
			info += fmt.Sprintf(" [%s]", strings.ToUpper(ct))
		}

		parts = append(parts, fmt.Sprintf("[Source %d] %s\n%s\n", idx, info, result.Text))
	}
	return strings.Join(parts, "\n---\n")
}

// metaString reads a string value from flattened metadata.
func metaString(meta map[string]any, key, fallback string) string {
	if v, ok := meta[key].(string); ok && v != "" {
		return v
	}
	return fallback
}

// metaInt reads a numeric value from flattened metadata; JSON decoding
// yields float64 for numbers.
func metaInt(meta map[string]any, key string) int {
	switch v := meta[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	}
	return 0
}
