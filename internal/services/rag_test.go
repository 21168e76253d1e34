package services

import (
	"context"
	"strings"
	"testing"

	"pdf-rag/internal/apperr"
	"pdf-rag/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnswerEmptyRetrievalIsNotFound(t *testing.T) {
	store := newFakeDocStore()
	completer := &fakeCompleter{text: "should never be called"}
	svc := NewRAGService(&fakeEmbedder{}, completer, store)

	_, err := svc.Answer(context.Background(), "what is my notice period?", models.SearchScope{UserID: "u1"}, 5)
	require.Error(t, err)
	assert.True(t, apperr.IsNotFound(err))
	// No answer may be synthesized from no context.
	assert.Nil(t, completer.lastMessages)
}

func TestAnswerHappyPath(t *testing.T) {
	store := newFakeDocStore()
	store.neighbors = []models.DocumentMatch{
		{Document: *embeddedDoc("d1", "u1", "resume.pdf", "Go engineer, 5 years.", []float32{1}), Distance: 0},
		{Document: *embeddedDoc("d2", "u1", "cover-letter.pdf", "Dear team,", []float32{1}), Distance: 0.25},
	}

	completer := &fakeCompleter{text: "You have five years of Go experience.", tokens: 321}
	svc := NewRAGService(&fakeEmbedder{}, completer, store)

	got, err := svc.Answer(context.Background(), "how much Go experience?", models.SearchScope{UserID: "u1"}, 5)
	require.NoError(t, err)

	assert.Equal(t, "You have five years of Go experience.", got.Answer)
	assert.Equal(t, 321, got.TokensUsed)

	// Sources come back in retrieval order with one-decimal percentages.
	require.Len(t, got.Sources, 2)
	assert.Equal(t, Source{Filename: "resume.pdf", Similarity: 100.0}, got.Sources[0])
	assert.Equal(t, Source{Filename: "cover-letter.pdf", Similarity: 75.0}, got.Sources[1])

	// The prompt carries the labeled context blocks and the question.
	require.Len(t, completer.lastMessages, 2)
	assert.Equal(t, "system", completer.lastMessages[0].Role)
	userPrompt := completer.lastMessages[1].Content
	assert.Contains(t, userPrompt, "[Source: resume.pdf | Relevance: 100.0%]")
	assert.Contains(t, userPrompt, "[Source: cover-letter.pdf | Relevance: 75.0%]")
	assert.Contains(t, userPrompt, "how much Go experience?")

	assert.Equal(t, answerMaxTokens, completer.lastMaxTokens)
	assert.InDelta(t, answerTemperature, completer.lastTemperature, 1e-9)
}

func TestAnswerIdenticalEmbeddingIsHundredPercent(t *testing.T) {
	store := newFakeDocStore()
	store.neighbors = []models.DocumentMatch{
		{Document: *embeddedDoc("d1", "u1", "resume.pdf", "text", []float32{1}), Distance: 0},
	}

	svc := NewRAGService(&fakeEmbedder{}, &fakeCompleter{text: "ok"}, store)
	got, err := svc.Answer(context.Background(), "q", models.SearchScope{DocumentID: "d1"}, 1)
	require.NoError(t, err)
	require.Len(t, got.Sources, 1)
	assert.Equal(t, 100.0, got.Sources[0].Similarity)
}

func TestAssembleContextTwoLevelTruncation(t *testing.T) {
	long := strings.Repeat("x", 4000)
	matches := make([]models.DocumentMatch, 6)
	for i := range matches {
		matches[i] = models.DocumentMatch{
			Document: *embeddedDoc("d", "u", "doc.pdf", long, []float32{1}),
			Distance: 0.1,
		}
	}

	contextText, sources := assembleContext(matches)

	// Per-document cap first, aggregate cap second.
	assert.LessOrEqual(t, len(contextText), totalContextChars)
	assert.Len(t, sources, 6)

	firstBlock := strings.Split(contextText, contextSeparator)[0]
	body := strings.SplitN(firstBlock, "\n", 2)[1]
	assert.Len(t, body, perDocContextChars)
}

func TestAnswerSimilarityRoundsToOneDecimal(t *testing.T) {
	store := newFakeDocStore()
	store.neighbors = []models.DocumentMatch{
		{Document: *embeddedDoc("d1", "u1", "a.pdf", "text", []float32{1}), Distance: 0.123},
	}

	svc := NewRAGService(&fakeEmbedder{}, &fakeCompleter{text: "ok"}, store)
	got, err := svc.Answer(context.Background(), "q", models.SearchScope{DocumentID: "d1"}, 1)
	require.NoError(t, err)
	assert.InDelta(t, 87.7, got.Sources[0].Similarity, 1e-9)
}

func TestAnswerPropagatesProviderErrors(t *testing.T) {
	embedErr := apperr.Provider("cohere", "embed", "boom")
	svc := NewRAGService(&fakeEmbedder{err: embedErr}, &fakeCompleter{}, newFakeDocStore())

	_, err := svc.Answer(context.Background(), "q", models.SearchScope{UserID: "u1"}, 5)
	require.Error(t, err)
	assert.True(t, apperr.IsProvider(err))

	store := newFakeDocStore()
	store.neighbors = []models.DocumentMatch{
		{Document: *embeddedDoc("d1", "u1", "a.pdf", "text", []float32{1}), Distance: 0},
	}
	svc = NewRAGService(&fakeEmbedder{}, &fakeCompleter{err: apperr.Provider("groq", "complete", "down")}, store)

	_, err = svc.Answer(context.Background(), "q", models.SearchScope{UserID: "u1"}, 5)
	require.Error(t, err)
	assert.True(t, apperr.IsProvider(err))
}

func TestAnswerDefaultsTopK(t *testing.T) {
	store := newFakeDocStore()
	for i := 0; i < 10; i++ {
		store.neighbors = append(store.neighbors, models.DocumentMatch{
			Document: *embeddedDoc("d", "u", "doc.pdf", "text", []float32{1}),
			Distance: 0.1,
		})
	}

	svc := NewRAGService(&fakeEmbedder{}, &fakeCompleter{text: "ok"}, store)
	got, err := svc.Answer(context.Background(), "q", models.SearchScope{UserID: "u1"}, 0)
	require.NoError(t, err)
	assert.Len(t, got.Sources, DefaultTopK)
}
