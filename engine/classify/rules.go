package classify

import "regexp"

// DefaultCategory is used when no keyword group matches. travel_expenses
// carries the highest policy limit, making it the safe fallback.
const DefaultCategory = "travel_expenses"

// SubRule refines a matched keyword group into a more specific category.
type SubRule struct {
	Category string
	Keywords []string
}

// CategoryRule maps a keyword group to an expense category. Rules are
// evaluated in slice order and the first group with any keyword hit wins.
// Sub-rules are evaluated in order within the matched group.
type CategoryRule struct {
	Category string
	Keywords []string
	Sub      []SubRule
}

// Rules is the fixed category priority order. The ordering encodes policy
// (e.g. "hotel restaurant" is food, not accommodation); do not reorder
// without a corresponding policy change.
var Rules = []CategoryRule{
	{
		Category: "food_beverages",
		Keywords: []string{"food", "meal", "restaurant", "cafe", "dining", "lunch", "dinner", "breakfast"},
	},
	{
		Category: "accommodation",
		Keywords: []string{"hotel", "accommodation", "lodging", "stay", "room"},
	},
	{
		Category: "cab",
		Keywords: []string{"cab", "taxi", "uber", "ola"},
		Sub: []SubRule{
			{Category: "daily_cab", Keywords: []string{"daily", "office", "commute", "regular"}},
			{Category: "travel_expenses", Keywords: []string{"client", "meeting", "business", "trip", "visit"}},
		},
	},
	{
		Category: "travel_expenses",
		Keywords: []string{"transport", "travel", "flight", "train", "bus"},
	},
}

// amountPatterns are tried in order against lower-cased text. The first
// pattern that yields a parseable match wins; a match that fails numeric
// parsing falls through to the next pattern.
var amountPatterns = []*regexp.Regexp{
	regexp.MustCompile(`₹\s*(\d+(?:,\d{3})*(?:\.\d{2})?)`),
	regexp.MustCompile(`rs\.?\s*(\d+(?:,\d{3})*(?:\.\d{2})?)`),
	regexp.MustCompile(`rupees?\s*(\d+(?:,\d{3})*(?:\.\d{2})?)`),
	regexp.MustCompile(`amount[:\s]*₹?\s*(\d+(?:,\d{3})*(?:\.\d{2})?)`),
	regexp.MustCompile(`total[:\s]*₹?\s*(\d+(?:,\d{3})*(?:\.\d{2})?)`),
}
