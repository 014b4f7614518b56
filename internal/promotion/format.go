package promotion

import (
	"strconv"
	"time"

	"github.com/solatis/promokeeper/internal/types"
)

// FormatDiscount renders a discount: "10%", "$5.00" or "Buy One Get One".
func FormatDiscount(discountType types.DiscountType, value float64) string {
	switch discountType {
	case types.DiscountPercentage:
		return strconv.FormatFloat(value, 'f', -1, 64) + "%"
	case types.DiscountFixed:
		return "$" + strconv.FormatFloat(value, 'f', 2, 64)
	case types.DiscountBOGO:
		return "Buy One Get One"
	default:
		return strconv.FormatFloat(value, 'f', -1, 64)
	}
}

// FormatDate renders a date as YYYY-MM-DD, or "Not set".
func FormatDate(t *time.Time) string {
	if t == nil || t.IsZero() {
		return "Not set"
	}
	return t.UTC().Format(time.DateOnly)
}

// Truncate shortens s to maxLength runes, appending "..." when cut.
func Truncate(s string, maxLength int) string {
	r := []rune(s)
	if len(r) <= maxLength {
		return s
	}
	if maxLength < 0 {
		maxLength = 0
	}
	return string(r[:maxLength]) + "..."
}

// HasOrConditions reports whether the rule uses OR anywhere: between its
// groups or inside any group.
func HasOrConditions(r types.Rule) bool {
	if r.Operator == types.OperatorOr {
		return true
	}
	for _, g := range r.RuleGroups {
		if g.Operator == types.OperatorOr {
			return true
		}
	}
	return false
}

// Summary is the dashboard rollup over a promotion list.
type Summary struct {
	Total            int `json:"total"`
	Active           int `json:"active"`
	WithOrConditions int `json:"withOrConditions"`
}

// Summarize counts promotions, active ones, and those using OR in any rule.
func Summarize(promotions []types.Promotion) Summary {
	var s Summary
	for _, p := range promotions {
		s.Total++
		if p.IsActive {
			s.Active++
		}
		for _, r := range p.Rules {
			if HasOrConditions(r) {
				s.WithOrConditions++
				break
			}
		}
	}
	return s
}
