// Package policy holds the reimbursement rule set and the validator that
// turns a (category, amount) pair into a terminal reimbursement decision.
package policy

// Rule is the configured limit, restrictions, and policy reference for one
// expense category. Rules are immutable after construction.
type Rule struct {
	Category      string // category id, e.g. "food_beverages"
	Name          string // human-readable label
	Description   string
	MaxAmount     float64
	Conditions    []string
	Restrictions  []string
	PolicySection string
}

// RuleSet is an immutable category-id → Rule table.
type RuleSet struct {
	rules map[string]Rule
	order []string
}

// NewRuleSet builds a RuleSet preserving the given rule order.
func NewRuleSet(rules ...Rule) *RuleSet {
	rs := &RuleSet{rules: make(map[string]Rule, len(rules))}
	for _, r := range rules {
		if _, ok := rs.rules[r.Category]; !ok {
			rs.order = append(rs.order, r.Category)
		}
		rs.rules[r.Category] = r
	}
	return rs
}

// Get returns the rule for a category id.
func (rs *RuleSet) Get(category string) (Rule, bool) {
	r, ok := rs.rules[category]
	return r, ok
}

// Categories returns category ids in rule-definition order.
func (rs *RuleSet) Categories() []string {
	out := make([]string, len(rs.order))
	copy(out, rs.order)
	return out
}

// Company policy metadata, rendered into the policy text and summary.
const (
	CompanyName            = "IAI Solution"
	PolicyTitle            = "Employee Reimbursement Policy"
	PolicyVersion          = "1.0"
	SubmissionDeadlineDays = 30
	ApprovalDeadlineDays   = 10
)

// Builtin returns the integrated reimbursement rule set. Limits are in
// currency units (₹) per the policy document.
func Builtin() *RuleSet {
	return NewRuleSet(
		Rule{
			Category:      "food_beverages",
			Name:          "Food and Beverages",
			Description:   "Meals during work travel or business meetings",
			MaxAmount:     200,
			Conditions:    []string{"Traveling for work", "Attending business meetings"},
			Restrictions:  []string{"Alcoholic beverages not reimbursable"},
			PolicySection: "5.1 Food and Beverages",
		},
		Rule{
			Category:      "travel_expenses",
			Name:          "Travel Expenses",
			Description:   "Work-related travel expenses",
			MaxAmount:     2000,
			Conditions:    []string{"Work-related travel only"},
			Restrictions:  []string{"Personal travel expenses not reimbursed"},
			PolicySection: "5.2 Travel Expenses",
		},
		Rule{
			Category:      "cab",
			Name:          "Cab Expenses",
			Description:   "Regular cab/taxi expenses for work",
			MaxAmount:     200,
			Conditions:    []string{"Work-related cab rides"},
			Restrictions:  []string{"Personal cab rides not reimbursed"},
			PolicySection: "5.2 Travel Expenses",
		},
		Rule{
			Category:      "daily_cab",
			Name:          "Daily Office Cab",
			Description:   "Daily office cab allowance",
			MaxAmount:     150,
			Conditions:    []string{"Daily office commute"},
			Restrictions:  []string{"Only for office commute"},
			PolicySection: "5.2 Travel Expenses",
		},
		Rule{
			Category:      "accommodation",
			Name:          "Accommodation",
			Description:   "Hotel stays for overnight business travel",
			MaxAmount:     50,
			Conditions:    []string{"Overnight business travel"},
			Restrictions:  []string{"Use company-approved hotels when available", "Excludes taxes and fees"},
			PolicySection: "5.3 Accommodation",
		},
	)
}
