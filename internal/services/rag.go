package services

import (
	"context"
	"fmt"
	"math"
	"strings"

	"pdf-rag/internal/ai"
	"pdf-rag/internal/apperr"
	"pdf-rag/internal/middleware"
	"pdf-rag/internal/models"

	"go.opentelemetry.io/otel/attribute"
)

const (
	// DefaultTopK is the retrieval depth when the caller does not ask for one.
	DefaultTopK = 5

	// perDocContextChars caps each retrieved document's contribution to the
	// prompt; totalContextChars caps the concatenated context. The aggregate
	// cap is applied after the per-document one, so the budget is enforced at
	// both levels.
	perDocContextChars = 1500
	totalContextChars  = 6000

	answerMaxTokens   = 1000
	answerTemperature = 0.3

	contextSeparator = "\n---\n"

	answerSystemPrompt = "You are a helpful assistant that answers questions using only the provided context. " +
		"If the context does not contain the information needed to answer, say so explicitly instead of guessing."
)

// Source identifies one retrieved document in a RAG answer.
type Source struct {
	Filename   string  `json:"filename"`
	Similarity float64 `json:"similarity"` // percentage, one decimal
}

// RAGAnswer is the result of one query.
type RAGAnswer struct {
	Answer     string   `json:"answer"`
	Sources    []Source `json:"sources"`
	TokensUsed int      `json:"tokens_used"`
}

// RAGService answers natural-language questions over a user's documents by
// retrieving the most similar ones and conditioning the LLM on their text.
type RAGService struct {
	embedder  Embedder
	completer Completer
	docStore  DocumentStore
}

// NewRAGService creates a new RAG service
func NewRAGService(embedder Embedder, completer Completer, docStore DocumentStore) *RAGService {
	return &RAGService{
		embedder:  embedder,
		completer: completer,
		docStore:  docStore,
	}
}

// Answer runs the retrieval-augmented query pipeline: embed the query,
// fetch the topK nearest documents in scope, assemble a budgeted context,
// and synthesize a grounded answer.
//
// Provider failures propagate as ProviderErrors; an empty retrieval result
// is a NotFoundError - an answer is never synthesized from no context.
func (s *RAGService) Answer(ctx context.Context, query string, scope models.SearchScope, topK int) (*RAGAnswer, error) {
	ctx, span := middleware.StartSpan(ctx, "RAG.Answer",
		attribute.String("query", query),
		attribute.Int("top_k", topK),
	)
	defer span.End()

	if topK <= 0 {
		topK = DefaultTopK
	}

	// Queries embed differently from documents; the input-type flag matters.
	queryEmbedding, err := s.embedder.Embed(ctx, query, ai.InputSearchQuery)
	if err != nil {
		middleware.AddSpanError(ctx, err)
		return nil, err
	}

	matches, err := s.docStore.NearestNeighbors(ctx, queryEmbedding, scope, topK)
	if err != nil {
		middleware.AddSpanError(ctx, err)
		return nil, err
	}

	if len(matches) == 0 {
		return nil, apperr.NotFound("context", "")
	}

	contextText, sources := assembleContext(matches)

	answer, tokensUsed, err := s.completer.Complete(ctx, []ai.Message{
		{Role: "system", Content: answerSystemPrompt},
		{Role: "user", Content: buildAnswerPrompt(query, contextText)},
	}, answerMaxTokens, answerTemperature)
	if err != nil {
		middleware.AddSpanError(ctx, err)
		return nil, err
	}

	middleware.AddSpanEvent(ctx, "rag_completed",
		attribute.Int("context_documents", len(sources)),
		attribute.Int("context_chars", len(contextText)),
		attribute.Int("tokens_used", tokensUsed),
	)

	return &RAGAnswer{
		Answer:     strings.TrimSpace(answer),
		Sources:    sources,
		TokensUsed: tokensUsed,
	}, nil
}

// assembleContext formats each match as a labeled block and concatenates
// them under the aggregate character budget. Sources come back in retrieval
// order.
func assembleContext(matches []models.DocumentMatch) (string, []Source) {
	blocks := make([]string, 0, len(matches))
	sources := make([]Source, 0, len(matches))

	for _, match := range matches {
		similarity := roundPercent(match.Similarity())

		content := ""
		if match.Document.Content != nil {
			content = *match.Document.Content
		}
		content = truncate(content, perDocContextChars)

		blocks = append(blocks, fmt.Sprintf(
			"[Source: %s | Relevance: %.1f%%]\n%s",
			match.Document.OriginalFilename,
			similarity,
			content,
		))
		sources = append(sources, Source{
			Filename:   match.Document.OriginalFilename,
			Similarity: similarity,
		})
	}

	contextText := truncate(strings.Join(blocks, contextSeparator), totalContextChars)

	return contextText, sources
}

func buildAnswerPrompt(query, contextText string) string {
	return fmt.Sprintf(`Answer the question using the context below.

Context:
%s

Question: %s

Answer:`, contextText, query)
}

// roundPercent converts a similarity in [-1,1] to a percentage rounded to
// one decimal place.
func roundPercent(similarity float64) float64 {
	return math.Round(similarity*1000) / 10
}
