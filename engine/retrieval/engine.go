// Package retrieval ranks previously analyzed claim records against a query
// vector. The primary path is vector search; when that path errors or comes
// back empty, retrieval degrades to an unranked equality-filter scan. The two
// triggers are distinct conditions and are reported separately.
package retrieval

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ClaimSightAI/claimsight-mvp/engine/semantic"
)

// DefaultChatLimit is the result bound used by chat queries.
const DefaultChatLimit = 10

// Mode identifies which search path produced a hit.
type Mode string

const (
	ModeVector       Mode = "vector"
	ModeFallbackText Mode = "fallback-text"
)

// FallbackReason names why the degraded path was taken, if it was.
type FallbackReason string

const (
	FallbackNone        FallbackReason = ""
	FallbackSearchError FallbackReason = "search-error"
	FallbackNoResults   FallbackReason = "no-results"
)

// Hit is one ranked candidate record. Fallback hits carry no meaningful
// similarity score (it is 0) and are marked so callers can tell degraded
// results apart.
type Hit struct {
	Record semantic.SearchResult `json:"record"`
	Score  float32               `json:"score"`
	Mode   Mode                  `json:"mode"`
}

// VectorSearcher abstracts the primary vector-search capability.
type VectorSearcher interface {
	Search(ctx context.Context, embedding []float32, limit int, filters map[string]string) ([]semantic.SearchResult, error)
}

// Scanner abstracts the unranked equality-filter scan capability.
type Scanner interface {
	Scan(ctx context.Context, filters map[string]string, limit int) ([]semantic.SearchResult, error)
}

// Engine coordinates the two retrieval paths.
type Engine struct {
	vector  VectorSearcher
	scanner Scanner
	logger  *slog.Logger
}

// New creates a retrieval Engine.
func New(vector VectorSearcher, scanner Scanner, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{vector: vector, scanner: scanner, logger: logger}
}

// Search returns up to limit hits for queryVector, with optional equality
// filters. The returned FallbackReason is FallbackNone when the vector path
// served the hits. An error is returned only when both paths fail.
func (e *Engine) Search(ctx context.Context, queryVector []float32, limit int, filters map[string]string) ([]Hit, FallbackReason, error) {
	results, err := e.vector.Search(ctx, queryVector, limit, filters)
	if err == nil && len(results) > 0 {
		hits := make([]Hit, len(results))
		for i, r := range results {
			hits[i] = Hit{Record: r, Score: r.Score, Mode: ModeVector}
		}
		return hits, FallbackNone, nil
	}

	reason := FallbackNoResults
	if err != nil {
		reason = FallbackSearchError
		e.logger.Warn("retrieval: vector search failed, falling back to scan", "err", err)
	}

	scanned, scanErr := e.scanner.Scan(ctx, filters, limit)
	if scanErr != nil {
		return nil, reason, fmt.Errorf("retrieval: fallback scan: %w", scanErr)
	}

	hits := make([]Hit, len(scanned))
	for i, r := range scanned {
		hits[i] = Hit{Record: r, Score: 0, Mode: ModeFallbackText}
	}
	return hits, reason, nil
}
