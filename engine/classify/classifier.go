// Package classify implements the deterministic rule-based expense
// classifier: an ordered list of numeric amount patterns and an ordered list
// of keyword groups. Both orderings are policy decisions and live in rules.go
// as plain data so they stay auditable and independently testable.
package classify

import (
	"strconv"
	"strings"
)

// Classifier resolves expense document text to a (category, claimed amount)
// pair. Classify never fails: an undetectable amount comes back as 0 and
// unmatched text falls through to DefaultCategory.
type Classifier struct {
	rules []CategoryRule
}

// New creates a Classifier using the built-in rule order.
func New() *Classifier {
	return &Classifier{rules: Rules}
}

// Classify returns the expense category and the claimed amount found in text.
func (c *Classifier) Classify(text string) (string, float64) {
	lower := strings.ToLower(text)
	return c.category(lower), ExtractAmount(lower)
}

func (c *Classifier) category(lower string) string {
	for _, rule := range c.rules {
		if !containsAny(lower, rule.Keywords) {
			continue
		}
		for _, sub := range rule.Sub {
			if containsAny(lower, sub.Keywords) {
				return sub.Category
			}
		}
		return rule.Category
	}
	return DefaultCategory
}

// ExtractAmount applies the ordered amount patterns to already lower-cased
// text. Thousands separators are stripped before parsing. Returns 0 when no
// pattern yields a parseable value.
func ExtractAmount(lower string) float64 {
	for _, pat := range amountPatterns {
		m := pat.FindStringSubmatch(lower)
		if m == nil {
			continue
		}
		v, err := strconv.ParseFloat(strings.ReplaceAll(m[1], ",", ""), 64)
		if err != nil {
			continue
		}
		return v
	}
	return 0
}

func containsAny(s string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(s, k) {
			return true
		}
	}
	return false
}
