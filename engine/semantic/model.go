package semantic

import (
	"fmt"
	"time"

	"github.com/ClaimSightAI/claimsight-mvp/engine/domain"
	"github.com/google/uuid"
)

// SearchResult is a single vector search or scan hit.
type SearchResult struct {
	ID              string            `json:"id"`
	Score           float32           `json:"score"`
	Content         string            `json:"content"`
	DocumentID      string            `json:"document_id"`
	Employee        string            `json:"employee"`
	Status          string            `json:"status"`
	Reason          string            `json:"reason"`
	PolicyReference string            `json:"policy_reference"`
	CreatedAt       string            `json:"created_at"`
	Meta            map[string]string `json:"meta,omitempty"`
}

// VectorRecord is a single point to store in Qdrant.
type VectorRecord struct {
	ID        string
	Embedding []float32
	Payload   map[string]any
}

// RecordFrom converts an analyzed record into a Qdrant point. The point id is
// a deterministic UUID of the record id, so re-analysis overwrites in place.
func RecordFrom(rec domain.AnalyzedRecord) VectorRecord {
	payload := map[string]any{
		"content":          rec.Content,
		"document_id":      rec.Decision.DocumentID,
		"employee":         rec.Employee,
		"status":           string(rec.Decision.Status),
		"reason":           rec.Decision.Reason,
		"policy_reference": rec.Decision.PolicyReference,
		"category":         rec.Decision.Category,
		"created_at":       rec.CreatedAt.UTC().Format(time.RFC3339),
	}
	for k, v := range rec.Metadata {
		payload[k] = v
	}
	return VectorRecord{
		ID:        uuid.NewSHA1(uuid.NameSpaceURL, []byte(fmt.Sprintf("claim-%s", rec.ID))).String(),
		Embedding: rec.Embedding,
		Payload:   payload,
	}
}
