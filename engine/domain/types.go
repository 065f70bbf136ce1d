// Package domain defines core domain types, status vocabulary, and validation
// for the ClaimSight engine pipeline. It acts as the validation gate at
// pipeline entry points.
package domain

import "time"

// Status is the terminal reimbursement state of an analyzed document.
// There are exactly three states and no transitions between them.
type Status string

const (
	StatusFullyReimbursed     Status = "Fully Reimbursed"
	StatusPartiallyReimbursed Status = "Partially Reimbursed"
	StatusDeclined            Status = "Declined"
)

// ValidStatuses is the set of recognised decision states.
var ValidStatuses = map[Status]bool{
	StatusFullyReimbursed:     true,
	StatusPartiallyReimbursed: true,
	StatusDeclined:            true,
}

// Document is one extracted expense document awaiting analysis.
type Document struct {
	ID      string `json:"id"`
	Content string `json:"content"`
}

// Decision is the outcome of validating one expense document against policy.
// It is created once per document and never mutated afterwards. Amount and
// ReimbursedAmount are nil only when no amount could be determined at all
// (custom-mode parse gaps, processing failures).
type Decision struct {
	DocumentID       string   `json:"document_id"`
	Status           Status   `json:"status"`
	Reason           string   `json:"reason"`
	PolicyReference  string   `json:"policy_reference"`
	Amount           *float64 `json:"amount,omitempty"`
	ReimbursedAmount *float64 `json:"reimbursed_amount,omitempty"`
	Category         string   `json:"category,omitempty"`
	PolicyRule       string   `json:"policy_rule,omitempty"`
}

// Float returns a pointer to v, for the nullable Decision amount fields.
func Float(v float64) *float64 { return &v }

// AnalyzedRecord is the persisted unit: a document, its decision, and its
// embedding. The engine constructs records; the record store owns them after
// persistence.
type AnalyzedRecord struct {
	ID        string            `json:"id"`
	Employee  string            `json:"employee"`
	Content   string            `json:"content"`
	Decision  Decision          `json:"decision"`
	Embedding []float32         `json:"embedding"`
	CreatedAt time.Time         `json:"created_at"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}
