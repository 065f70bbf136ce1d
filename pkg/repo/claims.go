// Package repo persists analyzed claim records in Neo4j.
package repo

import (
	"context"
	"fmt"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/ClaimSightAI/claimsight-mvp/engine/domain"
)

// recordLabel is the node label for analyzed claim records.
const recordLabel = "ClaimRecord"

// defaultListLimit bounds unpaginated queries.
const defaultListLimit = 100

// result is the minimal interface needed from a neo4j result.
type result interface {
	Next(ctx context.Context) bool
	Record() *neo4j.Record
}

// runner is the minimal interface needed from a neo4j session.
type runner interface {
	Run(ctx context.Context, cypher string, params map[string]any) (result, error)
	Close(ctx context.Context) error
}

// ClaimStore is a Neo4j-backed store for analyzed claim records. Embeddings
// are not stored here; the vector index owns them.
type ClaimStore struct {
	driver     neo4j.DriverWithContext
	newSession func(ctx context.Context) runner // for testing
}

// NewClaimStore creates a claim record store on driver.
func NewClaimStore(driver neo4j.DriverWithContext) *ClaimStore {
	return &ClaimStore{driver: driver}
}

// neo4jSessionAdapter adapts neo4j.SessionWithContext to the runner interface.
type neo4jSessionAdapter struct {
	sess neo4j.SessionWithContext
}

func (a *neo4jSessionAdapter) Run(ctx context.Context, cypher string, params map[string]any) (result, error) {
	return a.sess.Run(ctx, cypher, params)
}

func (a *neo4jSessionAdapter) Close(ctx context.Context) error {
	return a.sess.Close(ctx)
}

func (s *ClaimStore) session(ctx context.Context) runner {
	if s.newSession != nil {
		return s.newSession(ctx)
	}
	return &neo4jSessionAdapter{sess: s.driver.NewSession(ctx, neo4j.SessionConfig{})}
}

// SaveBatch upserts all records in one round trip and returns their IDs.
// Records are merged on id, so re-analyzing the same batch is idempotent.
func (s *ClaimStore) SaveBatch(ctx context.Context, records []domain.AnalyzedRecord) ([]string, error) {
	if len(records) == 0 {
		return nil, nil
	}
	sess := s.session(ctx)
	defer sess.Close(ctx)

	rows := make([]map[string]any, len(records))
	for i, rec := range records {
		rows[i] = recordProps(rec)
	}

	cypher := fmt.Sprintf(`UNWIND $rows AS row
MERGE (n:%s {id: row.id})
SET n += row
RETURN n.id AS id`, recordLabel)

	res, err := sess.Run(ctx, cypher, map[string]any{"rows": rows})
	if err != nil {
		return nil, fmt.Errorf("repo: save batch: %w", err)
	}

	var ids []string
	for res.Next(ctx) {
		if id, ok := res.Record().Get("id"); ok {
			ids = append(ids, toString(id))
		}
	}
	return ids, nil
}

// Save upserts a single record.
func (s *ClaimStore) Save(ctx context.Context, rec domain.AnalyzedRecord) (string, error) {
	ids, err := s.SaveBatch(ctx, []domain.AnalyzedRecord{rec})
	if err != nil {
		return "", err
	}
	if len(ids) == 0 {
		return "", fmt.Errorf("repo: save %s: no id returned", rec.ID)
	}
	return ids[0], nil
}

// FindByID returns the record with the given id.
func (s *ClaimStore) FindByID(ctx context.Context, id string) (domain.AnalyzedRecord, error) {
	sess := s.session(ctx)
	defer sess.Close(ctx)

	cypher := fmt.Sprintf("MATCH (n:%s {id: $id}) RETURN n", recordLabel)
	res, err := sess.Run(ctx, cypher, map[string]any{"id": id})
	if err != nil {
		return domain.AnalyzedRecord{}, fmt.Errorf("repo: find %s: %w", id, err)
	}
	if !res.Next(ctx) {
		return domain.AnalyzedRecord{}, fmt.Errorf("repo: record %s not found", id)
	}
	return recordFromNode(res.Record())
}

// FindByEmployee returns up to limit records for the employee, newest first.
func (s *ClaimStore) FindByEmployee(ctx context.Context, employee string, limit int) ([]domain.AnalyzedRecord, error) {
	cypher := fmt.Sprintf("MATCH (n:%s {employee: $value}) RETURN n ORDER BY n.created_at DESC LIMIT $limit", recordLabel)
	return s.findBy(ctx, cypher, employee, limit)
}

// FindByStatus returns up to limit records with the given decision status,
// newest first.
func (s *ClaimStore) FindByStatus(ctx context.Context, status domain.Status, limit int) ([]domain.AnalyzedRecord, error) {
	cypher := fmt.Sprintf("MATCH (n:%s {status: $value}) RETURN n ORDER BY n.created_at DESC LIMIT $limit", recordLabel)
	return s.findBy(ctx, cypher, string(status), limit)
}

func (s *ClaimStore) findBy(ctx context.Context, cypher, value string, limit int) ([]domain.AnalyzedRecord, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	sess := s.session(ctx)
	defer sess.Close(ctx)

	res, err := sess.Run(ctx, cypher, map[string]any{"value": value, "limit": limit})
	if err != nil {
		return nil, fmt.Errorf("repo: find: %w", err)
	}

	var records []domain.AnalyzedRecord
	for res.Next(ctx) {
		rec, err := recordFromNode(res.Record())
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, nil
}

// recordProps flattens a record into node properties. Decision amounts are
// only set when present so absent and zero stay distinguishable.
func recordProps(rec domain.AnalyzedRecord) map[string]any {
	props := map[string]any{
		"id":               rec.ID,
		"employee":         rec.Employee,
		"content":          rec.Content,
		"document_id":      rec.Decision.DocumentID,
		"status":           string(rec.Decision.Status),
		"reason":           rec.Decision.Reason,
		"policy_reference": rec.Decision.PolicyReference,
		"category":         rec.Decision.Category,
		"created_at":       rec.CreatedAt.UTC().Format(time.RFC3339),
	}
	if rec.Decision.Amount != nil {
		props["amount"] = *rec.Decision.Amount
	}
	if rec.Decision.ReimbursedAmount != nil {
		props["reimbursed_amount"] = *rec.Decision.ReimbursedAmount
	}
	for k, v := range rec.Metadata {
		props["meta_"+k] = v
	}
	return props
}

func recordFromNode(record *neo4j.Record) (domain.AnalyzedRecord, error) {
	raw, ok := record.Get("n")
	if !ok {
		return domain.AnalyzedRecord{}, fmt.Errorf("repo: row has no node")
	}
	node, ok := raw.(neo4j.Node)
	if !ok {
		return domain.AnalyzedRecord{}, fmt.Errorf("repo: unexpected row type %T", raw)
	}
	props := node.Props

	rec := domain.AnalyzedRecord{
		ID:       toString(props["id"]),
		Employee: toString(props["employee"]),
		Content:  toString(props["content"]),
		Decision: domain.Decision{
			DocumentID:      toString(props["document_id"]),
			Status:          domain.Status(toString(props["status"])),
			Reason:          toString(props["reason"]),
			PolicyReference: toString(props["policy_reference"]),
			Category:        toString(props["category"]),
		},
		Metadata: map[string]string{},
	}
	if v, ok := props["amount"].(float64); ok {
		rec.Decision.Amount = domain.Float(v)
	}
	if v, ok := props["reimbursed_amount"].(float64); ok {
		rec.Decision.ReimbursedAmount = domain.Float(v)
	}
	if ts, err := time.Parse(time.RFC3339, toString(props["created_at"])); err == nil {
		rec.CreatedAt = ts
	}
	for k, v := range props {
		if len(k) > 5 && k[:5] == "meta_" {
			rec.Metadata[k[5:]] = toString(v)
		}
	}
	return rec, nil
}

func toString(v any) string {
	s, _ := v.(string)
	return s
}
