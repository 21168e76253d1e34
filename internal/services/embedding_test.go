package services

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"pdf-rag/internal/apperr"
	"pdf-rag/internal/vector"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// waitFor polls cond until it returns true or the deadline passes.
func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met within deadline")
}

func TestEmbeddingWorkerPersistsAndNotifies(t *testing.T) {
	store := newFakeDocStore()
	embedder := &fakeEmbedder{fallback: []float32{0.5, 0.5}}
	notifier := &fakeNotifier{}

	svc := NewEmbeddingService(embedder, store, notifier, 2, 10)
	svc.Start()
	defer svc.Shutdown()

	require.NoError(t, svc.Submit(EmbeddingJob{
		DocumentID: "d1",
		UserID:     "u1",
		Content:    "Experienced Go developer.",
	}))

	waitFor(t, func() bool {
		_, ok := store.storedEmbedding("d1")
		return ok
	})

	vec, _ := store.storedEmbedding("d1")
	assert.Len(t, vec.Slice(), vector.Dimensions)
	assert.Equal(t, 1, notifier.eventCount())
}

func TestEmbeddingWorkerSwallowsFailures(t *testing.T) {
	store := newFakeDocStore()
	embedder := &fakeEmbedder{err: apperr.Provider("cohere", "embed", "rate limited")}
	notifier := &fakeNotifier{}

	svc := NewEmbeddingService(embedder, store, notifier, 1, 10)
	svc.Start()

	require.NoError(t, svc.Submit(EmbeddingJob{DocumentID: "d1", UserID: "u1", Content: "text"}))

	waitFor(t, func() bool { return embedder.callCount() == 1 })

	// One attempt, no retry, nothing persisted, nothing published.
	svc.Shutdown()
	assert.Equal(t, 1, embedder.callCount())
	_, ok := store.storedEmbedding("d1")
	assert.False(t, ok)
	assert.Zero(t, notifier.eventCount())
}

func TestEmbeddingShutdownDrainsQueue(t *testing.T) {
	store := newFakeDocStore()
	embedder := &fakeEmbedder{fallback: []float32{1}}

	svc := NewEmbeddingService(embedder, store, nil, 1, 10)
	svc.Start()

	for i := 0; i < 5; i++ {
		require.NoError(t, svc.Submit(EmbeddingJob{
			DocumentID: string(rune('a' + i)),
			UserID:     "u1",
			Content:    "text",
		}))
	}

	waitFor(t, func() bool { return embedder.callCount() == 5 })
	svc.Shutdown()

	for i := 0; i < 5; i++ {
		_, ok := store.storedEmbedding(string(rune('a' + i)))
		assert.True(t, ok)
	}
}

func TestEmbeddingConcurrentSubmitAndShutdown(t *testing.T) {
	store := newFakeDocStore()
	svc := NewEmbeddingService(&fakeEmbedder{fallback: []float32{1}}, store, nil, 2, 1)
	svc.Start()

	// Submits racing the close must either enqueue or report shutdown,
	// never panic on a closed channel.
	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			_ = svc.Submit(EmbeddingJob{
				DocumentID: fmt.Sprintf("d%d", n),
				UserID:     "u1",
				Content:    "text",
			})
		}(i)
	}

	time.Sleep(2 * time.Millisecond)
	svc.Shutdown()
	wg.Wait()

	err := svc.Submit(EmbeddingJob{DocumentID: "late"})
	assert.Error(t, err)
}

func TestEmbeddingSubmitAfterShutdownFails(t *testing.T) {
	svc := NewEmbeddingService(&fakeEmbedder{}, newFakeDocStore(), nil, 1, 1)
	svc.Start()
	svc.Shutdown()

	err := svc.Submit(EmbeddingJob{DocumentID: "d1"})
	assert.Error(t, err)
}

func TestEmbeddingWithoutNotifierStillPersists(t *testing.T) {
	store := newFakeDocStore()
	svc := NewEmbeddingService(&fakeEmbedder{fallback: []float32{1}}, store, nil, 1, 1)
	svc.Start()
	defer svc.Shutdown()

	require.NoError(t, svc.Submit(EmbeddingJob{DocumentID: "d1", UserID: "u1", Content: "text"}))

	waitFor(t, func() bool {
		_, ok := store.storedEmbedding("d1")
		return ok
	})
}

func TestEmbeddingQueueLength(t *testing.T) {
	svc := NewEmbeddingService(&fakeEmbedder{}, newFakeDocStore(), nil, 1, 10)
	// Not started: jobs accumulate in the channel.
	require.NoError(t, svc.Submit(EmbeddingJob{DocumentID: "d1"}))
	require.NoError(t, svc.Submit(EmbeddingJob{DocumentID: "d2"}))
	assert.Equal(t, 2, svc.QueueLength())
}
