package analysis

import "github.com/ClaimSightAI/claimsight-mvp/engine/domain"

// Summary aggregates a batch's decisions. It is a pure fold over the final
// decision list and never fails; empty input yields all-zero statistics.
type Summary struct {
	TotalDocuments     int                   `json:"total_invoices"`
	StatusDistribution map[domain.Status]int `json:"status_distribution"`
	TotalAmount        float64               `json:"total_amount"`
	TotalReimbursed    float64               `json:"total_reimbursed"`
	ReimbursementRate  float64               `json:"reimbursement_rate"`
}

// Summarize computes batch statistics from decisions. The reimbursement rate
// is reimbursed/claimed as a percentage, 0 when nothing was claimed.
func Summarize(decisions []domain.Decision) Summary {
	s := Summary{
		TotalDocuments:     len(decisions),
		StatusDistribution: make(map[domain.Status]int),
	}
	for _, d := range decisions {
		s.StatusDistribution[d.Status]++
		if d.Amount != nil {
			s.TotalAmount += *d.Amount
		}
		if d.ReimbursedAmount != nil {
			s.TotalReimbursed += *d.ReimbursedAmount
		}
	}
	if s.TotalAmount > 0 {
		s.ReimbursementRate = s.TotalReimbursed / s.TotalAmount * 100
	}
	return s
}
