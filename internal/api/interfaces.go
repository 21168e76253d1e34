package api

import (
	"context"

	"pdf-rag/internal/models"
	"pdf-rag/internal/services"
)

// Interfaces for the background services live here, in the consuming
// package, and cover only the methods handlers actually call. Repositories
// and the RAG/job-match services are injected as concrete types.

// EmbeddingService is the slice of the lifecycle worker pool handlers need:
// fire-and-forget submission plus queue introspection for the health
// endpoint.
type EmbeddingService interface {
	Submit(job services.EmbeddingJob) error
	QueueLength() int
}

// JobSearcher proxies raw searches to the external job-search service.
type JobSearcher interface {
	Search(ctx context.Context, term, location string, resultsWanted int, isRemote bool) (*models.JobSearchResult, error)
}
