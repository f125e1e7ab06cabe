package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// Prefixes applied in asymmetric mode. Retrieval models trained with
// separate document and query encodings expect these markers.
const (
	passagePrefix = "passage: "
	queryPrefix   = "query: "
)

// EmbeddingsClient is a client for an OpenAI-compatible embeddings API.
// It validates every returned vector against the expected dimension so a
// misconfigured model cannot silently write wrong-sized vectors.
type EmbeddingsClient struct {
	BaseURL    string
	APIKey     string
	Model      string
	Dimension  int  // Expected vector size; all results are validated against it
	Asymmetric bool // Prefix documents with "passage: " and queries with "query: "
	client     *http.Client
}

// NewEmbeddingsClient creates a new embeddings client.
// dimension is the expected vector size (from EMBEDDING_DIMENSION config).
// asymmetric selects separate document-vs-query encodings; leave false for
// standard sentence-transformer style models.
func NewEmbeddingsClient(baseURL, apiKey, model string, dimension int, asymmetric bool) *EmbeddingsClient {
	return &EmbeddingsClient{
		BaseURL:    baseURL,
		APIKey:     apiKey,
		Model:      model,
		Dimension:  dimension,
		Asymmetric: asymmetric,
		client:     newHTTPClient(),
	}
}

// EmbeddingsRequest represents the request payload for embeddings API.
type EmbeddingsRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

// EmbeddingData represents a single embedding in the response.
type EmbeddingData struct {
	Embedding []float64 `json:"embedding"`
}

// EmbeddingsResponse represents the response from the embeddings API.
type EmbeddingsResponse struct {
	Data []EmbeddingData `json:"data"`
}

// EmbedTexts generates embeddings for the given texts with no mode prefix.
// Returns a slice of float32 vectors in the same order as the input, one
// vector per input text, each validated against the expected dimension.
func (c *EmbeddingsClient) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, fmt.Errorf("empty input array")
	}

	url := fmt.Sprintf("%s/v1/embeddings", c.BaseURL)

	payload := EmbeddingsRequest{
		Model: c.Model,
		Input: texts,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", c.APIKey))
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrServiceUnavailable, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(resp.Body)
		if resp.StatusCode >= http.StatusInternalServerError {
			return nil, fmt.Errorf("%w: bad status %d: %s", ErrServiceUnavailable, resp.StatusCode, string(raw))
		}
		return nil, fmt.Errorf("bad status %d: %s", resp.StatusCode, string(raw))
	}

	var embeddingsResp EmbeddingsResponse
	if err := json.NewDecoder(resp.Body).Decode(&embeddingsResp); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	if len(embeddingsResp.Data) != len(texts) {
		return nil, fmt.Errorf("expected %d embeddings, got %d", len(texts), len(embeddingsResp.Data))
	}

	result := make([][]float32, len(embeddingsResp.Data))
	for i, data := range embeddingsResp.Data {
		if len(data.Embedding) != c.Dimension {
			return nil, fmt.Errorf("embedding %d has size %d, expected %d", i, len(data.Embedding), c.Dimension)
		}

		vec := make([]float32, len(data.Embedding))
		for j, v := range data.Embedding {
			vec[j] = float32(v)
		}
		result[i] = vec
	}

	return result, nil
}

// EmbedDocuments embeds document chunks for indexing. In asymmetric mode
// each text is prefixed with the passage marker before encoding.
func (c *EmbeddingsClient) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	if !c.Asymmetric {
		return c.EmbedTexts(ctx, texts)
	}

	prefixed := make([]string, len(texts))
	for i, t := range texts {
		prefixed[i] = passagePrefix + t
	}
	return c.EmbedTexts(ctx, prefixed)
}

// EmbedQuery embeds a search query. In asymmetric mode the query marker is
// prefixed before encoding.
func (c *EmbeddingsClient) EmbedQuery(ctx context.Context, query string) ([]float32, error) {
	text := query
	if c.Asymmetric {
		text = queryPrefix + query
	}

	vectors, err := c.EmbedTexts(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vectors) == 0 {
		return nil, fmt.Errorf("no embedding returned for query")
	}
	return vectors[0], nil
}
