package services

import (
	"context"
	"strings"
	"sync"

	"pdf-rag/internal/ai"
	"pdf-rag/internal/apperr"
	"pdf-rag/internal/models"

	"github.com/pgvector/pgvector-go"
)

// fakeEmbedder returns canned vectors keyed by a substring of the input
// text, or a fixed vector when no key matches.
type fakeEmbedder struct {
	byKeyword map[string][]float32
	fallback  []float32
	errFor    map[string]error
	err       error

	mu    sync.Mutex
	calls []string
}

func (f *fakeEmbedder) Embed(ctx context.Context, text string, input ai.InputType) ([]float32, error) {
	f.mu.Lock()
	f.calls = append(f.calls, text)
	f.mu.Unlock()

	if f.err != nil {
		return nil, f.err
	}
	for key, err := range f.errFor {
		if contains(text, key) {
			return nil, err
		}
	}
	for key, vec := range f.byKeyword {
		if contains(text, key) {
			return padTo768(vec), nil
		}
	}
	return padTo768(f.fallback), nil
}

func (f *fakeEmbedder) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

type fakeCompleter struct {
	text   string
	tokens int
	err    error

	lastMessages    []ai.Message
	lastMaxTokens   int
	lastTemperature float64
}

func (f *fakeCompleter) Complete(ctx context.Context, messages []ai.Message, maxTokens int, temperature float64) (string, int, error) {
	f.lastMessages = messages
	f.lastMaxTokens = maxTokens
	f.lastTemperature = temperature
	if f.err != nil {
		return "", 0, f.err
	}
	return f.text, f.tokens, nil
}

type fakeDocStore struct {
	mu        sync.Mutex
	docs      map[string]*models.Document
	neighbors []models.DocumentMatch
	latest    []*models.Document

	getErr       error
	neighborsErr error
	upsertErr    error

	upserts map[string]pgvector.Vector
}

func newFakeDocStore() *fakeDocStore {
	return &fakeDocStore{
		docs:    make(map[string]*models.Document),
		upserts: make(map[string]pgvector.Vector),
	}
}

func (f *fakeDocStore) GetByID(ctx context.Context, id string) (*models.Document, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	doc, ok := f.docs[id]
	if !ok {
		return nil, apperr.NotFound("document", id)
	}
	return doc, nil
}

func (f *fakeDocStore) UpsertEmbedding(ctx context.Context, documentID string, vec pgvector.Vector) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.upsertErr != nil {
		return f.upsertErr
	}
	f.upserts[documentID] = vec
	return nil
}

func (f *fakeDocStore) storedEmbedding(documentID string) (pgvector.Vector, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	vec, ok := f.upserts[documentID]
	return vec, ok
}

func (f *fakeDocStore) NearestNeighbors(ctx context.Context, queryVec []float32, scope models.SearchScope, topK int) ([]models.DocumentMatch, error) {
	if f.neighborsErr != nil {
		return nil, f.neighborsErr
	}
	if len(f.neighbors) > topK {
		return f.neighbors[:topK], nil
	}
	return f.neighbors, nil
}

func (f *fakeDocStore) LatestEmbeddedPerUser(ctx context.Context) ([]*models.Document, error) {
	return f.latest, nil
}

type fakeSearcher struct {
	result *models.JobSearchResult
	err    error

	lastTerm     string
	lastLocation string
	lastWanted   int
	lastRemote   bool
}

func (f *fakeSearcher) Search(ctx context.Context, term, location string, resultsWanted int, isRemote bool) (*models.JobSearchResult, error) {
	f.lastTerm = term
	f.lastLocation = location
	f.lastWanted = resultsWanted
	f.lastRemote = isRemote
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

type fakeNotifier struct {
	mu     sync.Mutex
	events []string
}

func (f *fakeNotifier) PublishDocumentStatus(userID, documentID string, status models.DocumentStatus, embedded bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, documentID)
}

func (f *fakeNotifier) eventCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.events)
}

// helpers

func contains(s, sub string) bool {
	return sub != "" && strings.Contains(s, sub)
}

func padTo768(v []float32) []float32 {
	out := make([]float32, 768)
	copy(out, v)
	return out
}

func strPtr(s string) *string { return &s }

func embeddedDoc(id, userID, filename, content string, vec []float32) *models.Document {
	v := pgvector.NewVector(padTo768(vec))
	return &models.Document{
		ID:               id,
		UserID:           userID,
		OriginalFilename: filename,
		Content:          strPtr(content),
		Status:           models.StatusProcessed,
		Embedding:        &v,
	}
}
