package jobsearch

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"pdf-rag/internal/apperr"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSearch(t *testing.T) {
	var captured searchRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &captured))

		w.Write([]byte(`{
			"count": 2,
			"jobs": [
				{"id": "j1", "title": "Go Developer", "company": "Acme", "location": "Remote",
				 "jobUrl": "https://jobs/1", "description": "Build services", "minAmount": 90000},
				{"id": "j2", "title": "Backend Engineer", "company": "Beta", "location": "Berlin",
				 "jobUrl": "https://jobs/2", "description": "APIs"}
			]
		}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	result, err := c.Search(context.Background(), "software engineer", "Remote", 10, true)
	require.NoError(t, err)

	assert.Equal(t, "software engineer", captured.SearchTerm)
	assert.Equal(t, 10, captured.ResultsWanted)
	assert.True(t, captured.IsRemote)

	assert.Equal(t, 2, result.Count)
	require.Len(t, result.Jobs, 2)
	assert.Equal(t, "Go Developer", result.Jobs[0].Title)
	require.NotNil(t, result.Jobs[0].MinAmount)
	assert.Equal(t, float64(90000), *result.Jobs[0].MinAmount)
	assert.Nil(t, result.Jobs[1].MinAmount)
}

func TestSearchZeroResults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"count": 0, "jobs": []}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	result, err := c.Search(context.Background(), "underwater basket weaver", "Remote", 10, true)
	require.NoError(t, err)
	assert.Zero(t, result.Count)
	assert.Empty(t, result.Jobs)
}

func TestSearchFailureIsProviderError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "scraper down", http.StatusBadGateway)
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	_, err := c.Search(context.Background(), "engineer", "Remote", 10, true)
	require.Error(t, err)
	assert.True(t, apperr.IsProvider(err))
}
