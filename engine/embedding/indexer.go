// Package embedding wraps the embedding capability behind an indexer that
// never fails: blank input and capability errors both yield the all-zero
// sentinel vector instead of aborting the caller's workflow.
package embedding

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ClaimSightAI/claimsight-mvp/engine/domain"
)

const (
	// DefaultDimension matches the all-MiniLM-class sentence embedding models.
	DefaultDimension = 384
	// DefaultSimilarityThreshold is the cutoff for FindMostSimilar.
	DefaultSimilarityThreshold = 0.7
)

// Client is the embedding capability. Calls may block on a remote model.
type Client interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// Indexer turns text into fixed-dimension vectors. The dimension is fixed at
// construction and constant for the process lifetime.
type Indexer struct {
	client Client
	dim    int
	logger *slog.Logger
}

// New creates an Indexer. dim <= 0 falls back to DefaultDimension.
func New(client Client, dim int, logger *slog.Logger) *Indexer {
	if dim <= 0 {
		dim = DefaultDimension
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Indexer{client: client, dim: dim, logger: logger}
}

// Dimension returns the configured vector dimension.
func (ix *Indexer) Dimension() int { return ix.dim }

// Zero returns the all-zero "unavailable" sentinel of dimension dim.
func Zero(dim int) []float32 { return make([]float32, dim) }

// IsZero reports whether v is the unavailable sentinel (or empty).
func IsZero(v []float32) bool {
	for _, x := range v {
		if x != 0 {
			return false
		}
	}
	return true
}

// Embed returns the vector for text. Blank input returns the sentinel
// without invoking the capability; capability failures are logged and also
// return the sentinel.
func (ix *Indexer) Embed(ctx context.Context, text string) []float32 {
	if strings.TrimSpace(text) == "" {
		return Zero(ix.dim)
	}
	vec, err := ix.client.Embed(ctx, text)
	if err != nil {
		ix.logger.Warn("embedding: embed failed, using zero vector", "err", err)
		return Zero(ix.dim)
	}
	if len(vec) == 0 {
		return Zero(ix.dim)
	}
	return vec
}

// EmbedBatch embeds texts, filtering blank entries before calling the batch
// capability. An entirely-blank input yields an empty slice. Capability
// failures are logged and yield an empty slice rather than an error.
func (ix *Indexer) EmbedBatch(ctx context.Context, texts []string) [][]float32 {
	valid := make([]string, 0, len(texts))
	for _, t := range texts {
		if strings.TrimSpace(t) != "" {
			valid = append(valid, t)
		}
	}
	if len(valid) == 0 {
		return [][]float32{}
	}
	vecs, err := ix.client.EmbedBatch(ctx, valid)
	if err != nil {
		ix.logger.Warn("embedding: batch embed failed", "err", err, "texts", len(valid))
		return [][]float32{}
	}
	return vecs
}

// EmbedRecord embeds a document together with its decision so that status,
// reason, and policy reference are searchable alongside the raw content.
func (ix *Indexer) EmbedRecord(ctx context.Context, content string, decision domain.Decision) []float32 {
	return ix.Embed(ctx, composeRecordText(content, decision))
}

func composeRecordText(content string, decision domain.Decision) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Invoice Content: %s\n", content)
	fmt.Fprintf(&b, "Analysis Status: %s\n", decision.Status)
	fmt.Fprintf(&b, "Reason: %s\n", decision.Reason)
	fmt.Fprintf(&b, "Policy Reference: %s\n", decision.PolicyReference)
	return b.String()
}
