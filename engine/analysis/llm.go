package analysis

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ClaimSightAI/claimsight-mvp/engine/domain"
)

// Prompt size bounds keep custom-mode prompts under provider token limits.
const (
	maxPolicyPromptRunes  = 4000
	maxInvoicePromptRunes = 2000
)

// notSpecified back-fills required fields the generation capability omitted.
const notSpecified = "Not specified"

// classifyWithGenerator runs custom-mode classification: the generation
// capability reads the policy and the invoice and returns a structured
// decision. A capability failure propagates (and becomes the caller's
// isolation fallback); malformed output degrades to a fixed Declined
// decision instead.
func (o *Orchestrator) classifyWithGenerator(ctx context.Context, policyText string, doc domain.Document) (domain.Decision, error) {
	if o.deps.Generator == nil {
		return domain.Decision{}, fmt.Errorf("%w: no generation capability configured", domain.ErrCapability)
	}

	prompt := buildAnalysisPrompt(policyText, doc.Content, doc.ID)
	raw, err := o.deps.Generator.Generate(ctx, prompt)
	if err != nil {
		return domain.Decision{}, fmt.Errorf("%w: generate: %v", domain.ErrCapability, err)
	}

	decision, err := parseDecision(raw)
	if err != nil {
		o.logger.Error("analysis: unparseable generation output", "document", doc.ID, "err", err)
		return parseFallbackDecision(doc.ID), nil
	}
	decision.DocumentID = doc.ID
	return decision, nil
}

func buildAnalysisPrompt(policyText, invoiceText, docID string) string {
	var b strings.Builder
	b.WriteString("You are a financial auditor specializing in HR reimbursement policies.\n\n")
	b.WriteString("Given the following HR reimbursement policy and an employee invoice, determine the reimbursement status and provide a detailed explanation.\n\n")
	fmt.Fprintf(&b, "HR POLICY:\n%s\n\n", clip(policyText, maxPolicyPromptRunes))
	fmt.Fprintf(&b, "INVOICE (%s):\n%s\n\n", docID, clip(invoiceText, maxInvoicePromptRunes))
	b.WriteString(`Analyze this invoice against the policy and respond in the following JSON format:

{
    "status": "Fully Reimbursed" | "Partially Reimbursed" | "Declined",
    "reason": "Detailed explanation of why this status was chosen",
    "policy_reference": "Specific section or rule from the policy that applies",
    "amount": <total_invoice_amount_if_mentioned>,
    "reimbursed_amount": <amount_to_be_reimbursed>
}

Respond only with valid JSON.`)
	return b.String()
}

// parseDecision extracts a structured decision from generation output.
// Markdown code fences are tolerated; missing required fields are back-filled
// with the notSpecified placeholder rather than treated as failures.
func parseDecision(raw string) (domain.Decision, error) {
	cleaned := stripFences(raw)

	var out struct {
		Status           string   `json:"status"`
		Reason           string   `json:"reason"`
		PolicyReference  string   `json:"policy_reference"`
		Amount           *float64 `json:"amount"`
		ReimbursedAmount *float64 `json:"reimbursed_amount"`
		Category         string   `json:"category"`
	}
	if err := json.Unmarshal([]byte(cleaned), &out); err != nil {
		return domain.Decision{}, fmt.Errorf("%w: %v", domain.ErrParse, err)
	}

	if out.Status == "" {
		out.Status = notSpecified
	}
	if out.Reason == "" {
		out.Reason = notSpecified
	}
	if out.PolicyReference == "" {
		out.PolicyReference = notSpecified
	}

	return domain.Decision{
		Status:           domain.Status(out.Status),
		Reason:           out.Reason,
		PolicyReference:  out.PolicyReference,
		Amount:           out.Amount,
		ReimbursedAmount: out.ReimbursedAmount,
		Category:         out.Category,
	}, nil
}

// parseFallbackDecision is the fixed decision for unparseable generation output.
func parseFallbackDecision(docID string) domain.Decision {
	return domain.Decision{
		DocumentID:      docID,
		Status:          domain.StatusDeclined,
		Reason:          "Unable to analyze invoice due to processing error",
		PolicyReference: "Error in analysis",
	}
}

func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```json") {
		s = s[len("```json"):]
	} else if strings.HasPrefix(s, "```") {
		s = s[len("```"):]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

// clip bounds s to limit runes.
func clip(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}
