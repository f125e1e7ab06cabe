package retriever

import (
	"math"
	"sort"

	"purple-ai/internal/storage"
)

// BM25 parameters. k1 controls term-frequency saturation, b controls length
// normalization.
const (
	bm25K1 = 1.2
	bm25B  = 0.75
)

type lexicalHit struct {
	chunk *storage.ChunkRecord
	score float64
}

// lexicalSearch scores every chunk in the corpus against the query with BM25
// and returns the top k hits, sorted by score descending with chunk ID as
// the tie-break. Stopwords are stripped from the query only; chunk bodies
// keep every token so document lengths stay honest.
func lexicalSearch(corpus []*storage.ChunkRecord, query string, k int) []lexicalHit {
	queryTokens := filterStopwords(tokenize(query))
	if len(queryTokens) == 0 || len(corpus) == 0 {
		return nil
	}

	// Tokenize the corpus once and collect document frequencies.
	chunkTokens := make([][]string, len(corpus))
	docFreq := make(map[string]int)
	var totalLen int
	for i, chunk := range corpus {
		tokens := tokenize(chunk.Text)
		chunkTokens[i] = tokens
		totalLen += len(tokens)

		seen := make(map[string]struct{}, len(tokens))
		for _, t := range tokens {
			if _, ok := seen[t]; ok {
				continue
			}
			seen[t] = struct{}{}
			docFreq[t]++
		}
	}

	n := float64(len(corpus))
	avgLen := float64(totalLen) / n
	if avgLen == 0 {
		return nil
	}

	hits := make([]lexicalHit, 0, len(corpus))
	for i, chunk := range corpus {
		tokens := chunkTokens[i]
		if len(tokens) == 0 {
			continue
		}

		tf := make(map[string]int, len(tokens))
		for _, t := range tokens {
			tf[t]++
		}

		dl := float64(len(tokens))
		var score float64
		for _, term := range queryTokens {
			freq, ok := tf[term]
			if !ok {
				continue
			}

			df := float64(docFreq[term])
			idf := math.Log((n-df+0.5)/(df+0.5) + 1)

			f := float64(freq)
			score += idf * (f * (bm25K1 + 1)) / (f + bm25K1*(1-bm25B+bm25B*dl/avgLen))
		}

		if score > 0 {
			hits = append(hits, lexicalHit{chunk: chunk, score: score})
		}
	}

	sort.Slice(hits, func(i, j int) bool {
		if hits[i].score != hits[j].score {
			return hits[i].score > hits[j].score
		}
		return hits[i].chunk.ID < hits[j].chunk.ID
	})

	if len(hits) > k {
		hits = hits[:k]
	}
	return hits
}
