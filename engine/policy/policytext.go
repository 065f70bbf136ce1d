package policy

import (
	"fmt"
	"strings"
)

// Text renders the full policy document. The rendered text is what the
// custom-mode classification prompt presents as "the policy" when no
// uploaded policy is supplied.
func Text() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Company Name: %s\n", CompanyName)
	fmt.Fprintf(&b, "Policy Title: %s\n", PolicyTitle)
	fmt.Fprintf(&b, "Version: %s\n\n", PolicyVersion)

	b.WriteString("1. Purpose\n")
	b.WriteString("The purpose of this policy is to outline the guidelines and procedures for the reimbursement of expenses incurred by employees while performing work-related duties. This policy ensures transparency and consistency in the reimbursement process.\n\n")

	b.WriteString("2. Scope\n")
	fmt.Fprintf(&b, "This policy applies to all employees of %s who incur expenses in the course of their work duties.\n\n", CompanyName)

	b.WriteString("3. Reimbursement Categories\n")
	b.WriteString("The following categories of expenses are eligible for reimbursement under this policy:\n")
	for _, cat := range Builtin().Categories() {
		rule, _ := Builtin().Get(cat)
		fmt.Fprintf(&b, "- %s\n", rule.Name)
	}
	b.WriteString("\n")

	b.WriteString("4. General Guidelines\n")
	fmt.Fprintf(&b, "- All reimbursements must be supported by original receipts and submitted within %d days of the expense incurred.\n", SubmissionDeadlineDays)
	b.WriteString("- Employees must complete the reimbursement request form and submit it along with the required documentation to the HR department.\n\n")

	b.WriteString("5. Specific Expense Guidelines\n\n")
	rs := Builtin()
	for _, cat := range rs.Categories() {
		rule, _ := rs.Get(cat)
		fmt.Fprintf(&b, "%s\n", rule.PolicySection)
		fmt.Fprintf(&b, "- Eligibility: %s.\n", strings.Join(rule.Conditions, "; "))
		fmt.Fprintf(&b, "- Limits: up to ₹%g (%s).\n", rule.MaxAmount, rule.Description)
		fmt.Fprintf(&b, "- Restrictions: %s.\n\n", strings.Join(rule.Restrictions, "; "))
	}

	b.WriteString("6. Submission Process\n")
	b.WriteString("1. Complete the reimbursement request form.\n2. Attach all relevant receipts.\n3. Submit to the HR department for approval.\n\n")

	b.WriteString("7. Review and Approval\n")
	fmt.Fprintf(&b, "HR will review submissions for compliance with this policy and will either approve or deny the request within %d business days.\n\n", ApprovalDeadlineDays)

	b.WriteString("8. Policy Amendments\n")
	b.WriteString("This policy may be amended at any time with prior notice to employees.\n")
	return b.String()
}

// CategorySummary describes one category's rule for the policy endpoint.
type CategorySummary struct {
	Name          string   `json:"name"`
	MaxAmount     float64  `json:"max_amount"`
	Description   string   `json:"description"`
	Conditions    []string `json:"conditions"`
	Restrictions  []string `json:"restrictions"`
	PolicySection string   `json:"policy_section"`
}

// Summary is the machine-readable policy overview.
type Summary struct {
	CompanyName            string                     `json:"company_name"`
	PolicyTitle            string                     `json:"policy_title"`
	Version                string                     `json:"version"`
	SubmissionDeadlineDays int                        `json:"submission_deadline_days"`
	ApprovalDeadlineDays   int                        `json:"approval_deadline_days"`
	Categories             map[string]CategorySummary `json:"categories"`
}

// Summarize builds a Summary of the given rule set.
func Summarize(rs *RuleSet) Summary {
	s := Summary{
		CompanyName:            CompanyName,
		PolicyTitle:            PolicyTitle,
		Version:                PolicyVersion,
		SubmissionDeadlineDays: SubmissionDeadlineDays,
		ApprovalDeadlineDays:   ApprovalDeadlineDays,
		Categories:             make(map[string]CategorySummary),
	}
	for _, cat := range rs.Categories() {
		rule, _ := rs.Get(cat)
		s.Categories[cat] = CategorySummary{
			Name:          rule.Name,
			MaxAmount:     rule.MaxAmount,
			Description:   rule.Description,
			Conditions:    rule.Conditions,
			Restrictions:  rule.Restrictions,
			PolicySection: rule.PolicySection,
		}
	}
	return s
}
