// Package jobsearch talks to the external JobSpy-compatible job-search API.
// The service is treated as unreliable: any failure surfaces as a single
// ProviderError and is never retried inline.
package jobsearch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"pdf-rag/internal/apperr"
	"pdf-rag/internal/models"
)

// Client queries the job-search service.
type Client struct {
	url    string
	client *http.Client
}

// NewClient creates a job-search client. Searches scrape job boards upstream,
// hence the long timeout.
func NewClient(url string) *Client {
	return &Client{
		url:    url,
		client: &http.Client{Timeout: 120 * time.Second},
	}
}

type searchRequest struct {
	SearchTerm    string `json:"searchTerm"`
	Location      string `json:"location"`
	ResultsWanted int    `json:"resultsWanted"`
	IsRemote      bool   `json:"isRemote"`
}

// Search fetches up to resultsWanted postings for the given term.
func (c *Client) Search(ctx context.Context, term, location string, resultsWanted int, isRemote bool) (*models.JobSearchResult, error) {
	req := searchRequest{
		SearchTerm:    term,
		Location:      location,
		ResultsWanted: resultsWanted,
		IsRemote:      isRemote,
	}

	reqBody, err := json.Marshal(req)
	if err != nil {
		return nil, apperr.ProviderWrap("jobspy", "search", fmt.Errorf("failed to marshal request: %w", err))
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", c.url, bytes.NewBuffer(reqBody))
	if err != nil {
		return nil, apperr.ProviderWrap("jobspy", "search", fmt.Errorf("failed to create request: %w", err))
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, apperr.ProviderWrap("jobspy", "search", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, apperr.Provider("jobspy", "search", "request failed with status %d: %s", resp.StatusCode, string(body))
	}

	var result models.JobSearchResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, apperr.ProviderWrap("jobspy", "search", fmt.Errorf("failed to decode response: %w", err))
	}

	return &result, nil
}
