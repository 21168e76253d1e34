package services

import (
	"context"

	"pdf-rag/internal/ai"
	"pdf-rag/internal/models"

	"github.com/pgvector/pgvector-go"
)

// Interfaces are declared here, in the consuming package, and cover only the
// methods the services actually call. The repository, ai, jobsearch, and
// notify packages provide the implementations.

// Embedder is the embedding provider adapter. Returned vectors always have
// exactly 768 entries.
type Embedder interface {
	Embed(ctx context.Context, text string, input ai.InputType) ([]float32, error)
}

// Completer is the LLM adapter. It returns the generated text plus total
// tokens used.
type Completer interface {
	Complete(ctx context.Context, messages []ai.Message, maxTokens int, temperature float64) (string, int, error)
}

// DocumentStore is the slice of the document repository the services need:
// record access plus the vector-store operations.
type DocumentStore interface {
	GetByID(ctx context.Context, id string) (*models.Document, error)
	UpsertEmbedding(ctx context.Context, documentID string, vec pgvector.Vector) error
	NearestNeighbors(ctx context.Context, queryVec []float32, scope models.SearchScope, topK int) ([]models.DocumentMatch, error)
	LatestEmbeddedPerUser(ctx context.Context) ([]*models.Document, error)
}

// JobSearcher fetches candidate postings from the external job-search
// service.
type JobSearcher interface {
	Search(ctx context.Context, term, location string, resultsWanted int, isRemote bool) (*models.JobSearchResult, error)
}

// StatusNotifier pushes document status events to subscribed clients.
// Publishing is best-effort.
type StatusNotifier interface {
	PublishDocumentStatus(userID, documentID string, status models.DocumentStatus, embedded bool)
}
