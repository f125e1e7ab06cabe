// Package retriever implements hybrid search over the chunk index: BM25
// keyword scoring blended with cosine similarity from the vector store.
package retriever

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_searcher.go -package=mocks purple-ai/internal/retriever Searcher

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"purple-ai/internal/contextutil"
	"purple-ai/internal/storage"
	"purple-ai/internal/vectorstore"
)

// ErrInvalidTopK is returned when a search asks for zero or fewer results.
var ErrInvalidTopK = errors.New("top_k must be greater than 0")

// minCandidates is the floor of the candidate pool gathered from each leg
// before fusion. A pool larger than top_k lets a chunk ranked well by only
// one leg still reach the fused top results.
const minCandidates = 20

// Result is one fused search hit.
type Result struct {
	ChunkID      string  `json:"chunk_id"`
	SourceName   string  `json:"source_name"`
	ChunkIndex   int     `json:"chunk_index"`
	Text         string  `json:"text"`
	Score        float64 `json:"score"`
	LexicalScore float64 `json:"lexical_score"`
	VectorScore  float64 `json:"vector_score"`
}

// QueryEmbedder embeds a search query into a vector.
type QueryEmbedder interface {
	EmbedQuery(ctx context.Context, query string) ([]float32, error)
}

// Searcher defines the retrieval interface consumed by the chat engine and
// the search handler.
type Searcher interface {
	Search(ctx context.Context, query string, topK int) ([]Result, error)
}

// Hybrid combines BM25 keyword scoring with vector similarity. Both score
// lists are min-max normalized per query and blended with a weighted mean.
type Hybrid struct {
	chunks        storage.ChunkStore
	vectors       vectorstore.VectorStore
	embedder      QueryEmbedder
	collection    string
	lexicalWeight float64
	vectorWeight  float64
}

// NewHybrid creates a hybrid retriever. Weights must be non-negative and not
// both zero; they are normalized to sum to 1 internally.
func NewHybrid(chunks storage.ChunkStore, vectors vectorstore.VectorStore, embedder QueryEmbedder, collection string, lexicalWeight, vectorWeight float64) (*Hybrid, error) {
	if lexicalWeight < 0 || vectorWeight < 0 {
		return nil, fmt.Errorf("weights must be non-negative, got lexical=%v vector=%v", lexicalWeight, vectorWeight)
	}
	if lexicalWeight+vectorWeight == 0 {
		return nil, fmt.Errorf("at least one weight must be positive")
	}

	total := lexicalWeight + vectorWeight
	return &Hybrid{
		chunks:        chunks,
		vectors:       vectors,
		embedder:      embedder,
		collection:    collection,
		lexicalWeight: lexicalWeight / total,
		vectorWeight:  vectorWeight / total,
	}, nil
}

// Search runs both retrieval legs and returns the top topK fused results,
// sorted by fused score descending with chunk ID ascending as the tie-break.
// An empty index returns an empty slice, not an error.
func (h *Hybrid) Search(ctx context.Context, query string, topK int) ([]Result, error) {
	logger := contextutil.LoggerFromContext(ctx)

	if topK <= 0 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidTopK, topK)
	}

	corpus, err := h.chunks.All(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load corpus: %w", err)
	}
	if len(corpus) == 0 {
		return []Result{}, nil
	}

	candidateK := topK * 3
	if candidateK < minCandidates {
		candidateK = minCandidates
	}

	lexicalHits := lexicalSearch(corpus, query, candidateK)

	queryVec, err := h.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	vectorHits, err := h.vectors.Search(ctx, h.collection, queryVec, candidateK, nil)
	if err != nil {
		return nil, fmt.Errorf("vector search failed: %w", err)
	}

	results := h.fuse(corpus, lexicalHits, vectorHits)
	if len(results) > topK {
		results = results[:topK]
	}

	logger.InfoContext(ctx, "hybrid search completed",
		"top_k", topK, "lexical_hits", len(lexicalHits), "vector_hits", len(vectorHits), "results", len(results))
	return results, nil
}

// fuse normalizes each leg's scores to [0,1] per query and blends them with
// the configured weights. A chunk absent from one leg contributes 0 for that
// leg.
func (h *Hybrid) fuse(corpus []*storage.ChunkRecord, lexicalHits []lexicalHit, vectorHits []vectorstore.SearchResult) []Result {
	byPointID := make(map[string]*storage.ChunkRecord, len(corpus))
	for _, chunk := range corpus {
		byPointID[chunk.PointID] = chunk
	}

	lexicalScores := make(map[string]float64, len(lexicalHits))
	for _, hit := range lexicalHits {
		lexicalScores[hit.chunk.ID] = hit.score
	}

	vectorScores := make(map[string]float64, len(vectorHits))
	chunks := make(map[string]*storage.ChunkRecord, len(lexicalHits)+len(vectorHits))
	for _, hit := range lexicalHits {
		chunks[hit.chunk.ID] = hit.chunk
	}
	for _, hit := range vectorHits {
		chunk, ok := byPointID[hit.PointID]
		if !ok {
			// Vector store has a point the chunk store doesn't know; skip it
			continue
		}
		vectorScores[chunk.ID] = float64(hit.Score)
		chunks[chunk.ID] = chunk
	}

	normLexical := minMaxNormalize(lexicalScores)
	normVector := minMaxNormalize(vectorScores)

	results := make([]Result, 0, len(chunks))
	for id, chunk := range chunks {
		lex := normLexical[id]
		vec := normVector[id]
		results = append(results, Result{
			ChunkID:      chunk.ID,
			SourceName:   chunk.SourceName,
			ChunkIndex:   chunk.ChunkIndex,
			Text:         chunk.Text,
			Score:        h.lexicalWeight*lex + h.vectorWeight*vec,
			LexicalScore: lex,
			VectorScore:  vec,
		})
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].ChunkID < results[j].ChunkID
	})

	return results
}

// minMaxNormalize rescales scores to [0,1]. When every score is identical
// the list carries no ranking signal, so each entry maps to 1.
func minMaxNormalize(scores map[string]float64) map[string]float64 {
	if len(scores) == 0 {
		return scores
	}

	first := true
	var lo, hi float64
	for _, s := range scores {
		if first {
			lo, hi = s, s
			first = false
			continue
		}
		if s < lo {
			lo = s
		}
		if s > hi {
			hi = s
		}
	}

	normalized := make(map[string]float64, len(scores))
	if hi == lo {
		for id := range scores {
			normalized[id] = 1
		}
		return normalized
	}

	for id, s := range scores {
		normalized[id] = (s - lo) / (hi - lo)
	}
	return normalized
}
