// Package retrieval ranks a document's embedded chunks against a query by
// cosine similarity, computed in process over the stored vector buffers.
package retrieval

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"paperbase/features/document"
	"paperbase/internal/chunks"
	"paperbase/internal/middleware"
	"paperbase/internal/vector"
)

// ErrNotReady signals a search against a document whose embeddings have not
// been built yet.
var ErrNotReady = errors.New("document embeddings not ready")

const defaultTopK = 10

// SearchResult is one ranked chunk. Raw vector bytes never leave this
// package.
type SearchResult struct {
	ChunkID string  `json:"chunk_id"`
	Content string  `json:"content"`
	Page    int     `json:"page"`
	X       float64 `json:"x"`
	Y       float64 `json:"y"`
	Width   float64 `json:"width"`
	Height  float64 `json:"height"`
	Score   float32 `json:"score"`
}

type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

type DocumentStore interface {
	Get(ctx context.Context, id string) (*document.Document, error)
}

type ChunkStore interface {
	GetEmbedded(ctx context.Context, documentID string) ([]chunks.Embedded, error)
}

type Service struct {
	embedder Embedder
	docs     DocumentStore
	chunks   ChunkStore
	logger   *QueryLogger
}

func NewService(e Embedder, docs DocumentStore, cs ChunkStore, l *QueryLogger) *Service {
	return &Service{embedder: e, docs: docs, chunks: cs, logger: l}
}

// Search ranks a document's chunks against the query, best match first.
// Scores are raw cosine similarities; use NormalizeScores for presentation.
func (s *Service) Search(ctx context.Context, documentID, query string, topK int) ([]SearchResult, error) {
	start := time.Now()

	if query == "" {
		return nil, fmt.Errorf("query must not be empty")
	}
	if topK <= 0 {
		topK = defaultTopK
	}

	doc, err := s.docs.Get(ctx, documentID)
	if err != nil {
		return nil, err
	}
	if !doc.EmbeddingsReady {
		return nil, ErrNotReady
	}

	embedded, err := s.chunks.GetEmbedded(ctx, documentID)
	if err != nil {
		return nil, err
	}
	if len(embedded) == 0 {
		return nil, ErrNotReady
	}

	queryVec, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, err
	}
	vector.Normalize(queryVec)

	results := make([]SearchResult, 0, len(embedded))
	for _, e := range embedded {
		v, err := vector.Decode(e.Vector)
		if err != nil {
			return nil, fmt.Errorf("chunk %s has a corrupt vector: %w", e.ID, err)
		}
		score, err := vector.Dot(queryVec, v)
		if err != nil {
			return nil, fmt.Errorf("chunk %s: %w", e.ID, err)
		}
		results = append(results, SearchResult{
			ChunkID: e.ID,
			Content: e.Content,
			Page:    e.Page,
			X:       e.X,
			Y:       e.Y,
			Width:   e.Width,
			Height:  e.Height,
			Score:   score,
		})
	}

	// Stable: equal scores keep reading order.
	sort.SliceStable(results, func(i, k int) bool {
		return results[i].Score > results[k].Score
	})

	if len(results) > topK {
		results = results[:topK]
	}

	if s.logger != nil {
		s.logger.Log(QueryLogEntry{
			Query:         query,
			DocumentID:    documentID,
			NumResults:    len(results),
			Duration:      time.Since(start),
			CorrelationID: middleware.GetCorrelationID(ctx),
		})
	}
	return results, nil
}

// NormalizeScores rescales scores linearly into [0, 1] in place. When every
// score is equal, including a single result, all scores become 0.5.
func NormalizeScores(results []SearchResult) {
	if len(results) == 0 {
		return
	}

	min, max := results[0].Score, results[0].Score
	for _, r := range results[1:] {
		if r.Score < min {
			min = r.Score
		}
		if r.Score > max {
			max = r.Score
		}
	}

	if min == max {
		for i := range results {
			results[i].Score = 0.5
		}
		return
	}

	span := max - min
	for i := range results {
		results[i].Score = (results[i].Score - min) / span
	}
}
