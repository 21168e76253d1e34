package services

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"pdf-rag/internal/ai"
	"pdf-rag/internal/models"

	"github.com/pgvector/pgvector-go"
)

// EmbeddingJob is one document whose embedding still needs to be computed.
type EmbeddingJob struct {
	DocumentID string
	UserID     string
	Content    string
}

// EmbeddingServiceImpl is the embedding lifecycle manager: a fixed worker
// pool that computes and persists document embeddings after upload.
//
// Jobs run detached from the request that submitted them - the upload
// response returns before the embedding exists, and a query in that window
// legitimately sees the document as ineligible for retrieval. Failures are
// logged and dropped: no retry, no status change, the document stays visible
// and editable.
type EmbeddingServiceImpl struct {
	embedder Embedder
	docStore DocumentStore
	notifier StatusNotifier

	jobs    chan EmbeddingJob
	workers int
	wg      sync.WaitGroup

	// mu orders Submit against Shutdown: a submit in flight holds the read
	// lock, so the channel cannot close under it.
	mu     sync.RWMutex
	closed bool
}

// jobTimeout bounds one embed-and-persist run. A timeout is terminal for
// that job, like any other failure.
const jobTimeout = 60 * time.Second

// NewEmbeddingService creates the worker pool without starting it.
func NewEmbeddingService(
	embedder Embedder,
	docStore DocumentStore,
	notifier StatusNotifier,
	numWorkers int,
	queueSize int,
) *EmbeddingServiceImpl {
	return &EmbeddingServiceImpl{
		embedder: embedder,
		docStore: docStore,
		notifier: notifier,
		jobs:     make(chan EmbeddingJob, queueSize),
		workers:  numWorkers,
	}
}

// Start spawns the worker goroutines.
func (s *EmbeddingServiceImpl) Start() {
	log.Printf("🔧 Starting embedding worker pool with %d workers", s.workers)

	for i := 0; i < s.workers; i++ {
		s.wg.Add(1)
		go s.worker(i)
	}

	log.Println("✓ Embedding worker pool started")
}

func (s *EmbeddingServiceImpl) worker(id int) {
	defer s.wg.Done()

	for job := range s.jobs {
		if err := s.processEmbedding(job); err != nil {
			// Swallowed on purpose: the triggering request has already
			// returned, so the only correct outcome is a log line and an
			// unembedded document.
			log.Printf("  Worker %d: embedding for document %s failed: %v", id, job.DocumentID, err)
		} else {
			log.Printf("  Worker %d: embedded document %s", id, job.DocumentID)
		}
	}
}

// Submit enqueues a job. Blocks when the queue is full, which applies
// backpressure to uploads rather than growing memory without bound.
func (s *EmbeddingServiceImpl) Submit(job EmbeddingJob) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return fmt.Errorf("embedding service is shutting down")
	}

	s.jobs <- job
	return nil
}

// processEmbedding computes and persists one document's embedding. It runs
// on its own background context with its own store session - never the
// triggering request's, whose resources may already be released.
func (s *EmbeddingServiceImpl) processEmbedding(job EmbeddingJob) error {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	embedding, err := s.embedder.Embed(ctx, job.Content, ai.InputSearchDocument)
	if err != nil {
		return fmt.Errorf("embed failed: %w", err)
	}

	if err := s.docStore.UpsertEmbedding(ctx, job.DocumentID, pgvector.NewVector(embedding)); err != nil {
		return fmt.Errorf("store failed: %w", err)
	}

	if s.notifier != nil {
		s.notifier.PublishDocumentStatus(job.UserID, job.DocumentID, models.StatusProcessed, true)
	}

	return nil
}

// Shutdown stops accepting jobs, then waits for the workers to drain the
// queue and finish in-flight work.
func (s *EmbeddingServiceImpl) Shutdown() {
	log.Println("🛑 Shutting down embedding service...")

	s.mu.Lock()
	if !s.closed {
		s.closed = true
		close(s.jobs)
	}
	s.mu.Unlock()

	s.wg.Wait()

	log.Println("✓ Embedding service shutdown complete")
}

// QueueLength returns the number of pending jobs.
func (s *EmbeddingServiceImpl) QueueLength() int {
	return len(s.jobs)
}
