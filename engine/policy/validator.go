package policy

import (
	"fmt"
	"strings"

	"github.com/ClaimSightAI/claimsight-mvp/engine/domain"
)

// alcoholKeywords trigger the food_beverages restriction. The restriction
// check always precedes the amount check.
var alcoholKeywords = []string{"alcohol", "beer", "wine", "liquor"}

// Validator validates claimed amounts against a rule set. It is a pure
// function of its inputs and the immutable rules; safe for concurrent use.
type Validator struct {
	rules *RuleSet
}

// NewValidator creates a Validator over the given rule set.
func NewValidator(rules *RuleSet) *Validator {
	return &Validator{rules: rules}
}

// Validate returns the reimbursement decision for one classified document.
// docID and text are the document's identity and raw extracted text; text is
// only consulted for restriction checks.
func (v *Validator) Validate(docID, category string, amount float64, text string) domain.Decision {
	rule, ok := v.rules.Get(category)
	if !ok {
		return domain.Decision{
			DocumentID:       docID,
			Status:           domain.StatusDeclined,
			Reason:           fmt.Sprintf("Unknown expense category: %s", category),
			PolicyReference:  "Policy does not cover this category",
			Category:         category,
			Amount:           domain.Float(amount),
			ReimbursedAmount: domain.Float(0),
		}
	}

	lower := strings.ToLower(text)
	if category == "food_beverages" && containsAny(lower, alcoholKeywords) {
		return domain.Decision{
			DocumentID:       docID,
			Status:           domain.StatusDeclined,
			Reason:           "Alcoholic beverages are not reimbursable according to policy",
			PolicyReference:  rule.PolicySection,
			Category:         category,
			PolicyRule:       rule.Description,
			Amount:           domain.Float(amount),
			ReimbursedAmount: domain.Float(0),
		}
	}

	if amount > rule.MaxAmount {
		return domain.Decision{
			DocumentID:       docID,
			Status:           domain.StatusPartiallyReimbursed,
			Reason:           fmt.Sprintf("Amount (₹%g) exceeds policy limit of ₹%g for %s", amount, rule.MaxAmount, rule.Name),
			PolicyReference:  rule.PolicySection,
			Category:         category,
			PolicyRule:       rule.Description,
			Amount:           domain.Float(amount),
			ReimbursedAmount: domain.Float(rule.MaxAmount),
		}
	}

	return domain.Decision{
		DocumentID:       docID,
		Status:           domain.StatusFullyReimbursed,
		Reason:           fmt.Sprintf("Amount (₹%g) is within policy limit of ₹%g for %s", amount, rule.MaxAmount, rule.Name),
		PolicyReference:  rule.PolicySection,
		Category:         category,
		PolicyRule:       rule.Description,
		Amount:           domain.Float(amount),
		ReimbursedAmount: domain.Float(amount),
	}
}

func containsAny(s string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(s, k) {
			return true
		}
	}
	return false
}
