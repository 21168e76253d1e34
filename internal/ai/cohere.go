// Package ai holds the remote provider adapters: Cohere for embeddings and
// Groq for chat completions. Both are plain HTTP clients with fixed timeouts
// and no retries; callers decide what a failure means.
package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
	"unicode/utf8"

	"pdf-rag/internal/apperr"
	"pdf-rag/internal/vector"
)

// InputType tells the embedding provider whether the text is a stored
// document or a search query. Cohere produces different vectors for the two.
type InputType string

const (
	InputSearchDocument InputType = "search_document"
	InputSearchQuery    InputType = "search_query"
)

const (
	// embedMaxChars caps the text sent to the provider; longer inputs are
	// truncated before submission to bound cost and latency.
	embedMaxChars = 8000

	embeddingModel = "embed-english-v3.0"
)

// CohereClient is the embedding provider adapter. Every vector it returns
// has exactly vector.Dimensions entries regardless of the model's native
// dimensionality.
type CohereClient struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

// NewCohereClient creates an embedding client. The key is explicit
// configuration, not a package global, so tests can inject fakes.
func NewCohereClient(apiKey, baseURL string) *CohereClient {
	return &CohereClient{
		apiKey:  apiKey,
		baseURL: baseURL,
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

type embedRequest struct {
	Texts          []string `json:"texts"`
	Model          string   `json:"model"`
	InputType      string   `json:"input_type"`
	EmbeddingTypes []string `json:"embedding_types"`
}

// embedResponse accepts the two shapes Cohere's API versions return for the
// embeddings field: a flat list of vectors, or an object nesting the list
// under "float". Anything else fails closed.
type embedResponse struct {
	Embeddings json.RawMessage `json:"embeddings"`
}

type nestedEmbeddings struct {
	Float [][]float32 `json:"float"`
}

// Embed returns the embedding for text, truncated to the provider's input
// ceiling and normalized to exactly 768 dimensions. All failures are
// ProviderErrors; there are no retries.
func (c *CohereClient) Embed(ctx context.Context, text string, input InputType) ([]float32, error) {
	if c.apiKey == "" {
		return nil, apperr.Provider("cohere", "embed", "COHERE_API_KEY is not set")
	}

	text = truncateRunes(text, embedMaxChars)

	req := embedRequest{
		Texts:          []string{text},
		Model:          embeddingModel,
		InputType:      string(input),
		EmbeddingTypes: []string{"float"},
	}

	reqBody, err := json.Marshal(req)
	if err != nil {
		return nil, apperr.ProviderWrap("cohere", "embed", fmt.Errorf("failed to marshal request: %w", err))
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/embed", bytes.NewBuffer(reqBody))
	if err != nil {
		return nil, apperr.ProviderWrap("cohere", "embed", fmt.Errorf("failed to create request: %w", err))
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, apperr.ProviderWrap("cohere", "embed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, apperr.Provider("cohere", "embed", "request failed with status %d: %s", resp.StatusCode, string(body))
	}

	var embResp embedResponse
	if err := json.NewDecoder(resp.Body).Decode(&embResp); err != nil {
		return nil, apperr.ProviderWrap("cohere", "embed", fmt.Errorf("failed to decode response: %w", err))
	}

	raw, err := parseEmbeddings(embResp.Embeddings)
	if err != nil {
		return nil, apperr.ProviderWrap("cohere", "embed", err)
	}

	return vector.Normalize(raw), nil
}

// parseEmbeddings unwraps the first vector from either accepted response
// shape. Exactly one level of nesting is tolerated.
func parseEmbeddings(raw json.RawMessage) ([]float32, error) {
	if len(raw) == 0 {
		return nil, fmt.Errorf("response has no embeddings field")
	}

	// Flat shape: "embeddings": [[0.1, ...]]
	var flat [][]float32
	if err := json.Unmarshal(raw, &flat); err == nil {
		if len(flat) == 0 || len(flat[0]) == 0 {
			return nil, fmt.Errorf("no embeddings returned")
		}
		return flat[0], nil
	}

	// Nested shape: "embeddings": {"float": [[0.1, ...]]}
	var nested nestedEmbeddings
	if err := json.Unmarshal(raw, &nested); err == nil && nested.Float != nil {
		if len(nested.Float) == 0 || len(nested.Float[0]) == 0 {
			return nil, fmt.Errorf("no embeddings returned")
		}
		return nested.Float[0], nil
	}

	return nil, fmt.Errorf("unrecognized embeddings shape: %s", truncateForError(raw))
}

// truncateRunes cuts text at the byte limit, backing up so the cut never
// splits a multi-byte UTF-8 rune.
func truncateRunes(text string, max int) string {
	if len(text) <= max {
		return text
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(text[cut]) {
		cut--
	}
	return text[:cut]
}

func truncateForError(raw []byte) string {
	const max = 120
	if len(raw) > max {
		return string(raw[:max]) + "..."
	}
	return string(raw)
}
