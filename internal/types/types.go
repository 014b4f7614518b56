// Package types provides domain models shared across PromoKeeper components.
//
// Everything here is a plain value record. Mutation discipline (immutable
// edits, slot addressing, validation) lives in internal/promotion; operator
// and value typing rules live in internal/rules. Keeping this package free of
// behaviour lets storage, API, and CLI layers share the model without pulling
// in the editor.
package types

// LogicalOperator combines conditions inside a rule group, or rule groups
// inside a rule.
type LogicalOperator string

const (
	OperatorAnd LogicalOperator = "AND"
	OperatorOr  LogicalOperator = "OR"
)

// Valid reports whether op is AND or OR.
func (op LogicalOperator) Valid() bool {
	return op == OperatorAnd || op == OperatorOr
}

// RuleType selects the role a rule plays in a promotion.
// Qualifier decides which order/customer triggers eligibility, Target decides
// what receives the discount.
type RuleType string

const (
	RuleTypeQualifier RuleType = "Qualifier"
	RuleTypeTarget    RuleType = "Target"
)

// Valid reports whether t is a known rule type.
func (t RuleType) Valid() bool {
	return t == RuleTypeQualifier || t == RuleTypeTarget
}

// DiscountType is the shape of the discount a promotion grants.
type DiscountType string

const (
	DiscountPercentage DiscountType = "percentage"
	DiscountFixed      DiscountType = "fixed"
	DiscountBOGO       DiscountType = "bogo"
)

// Valid reports whether d is a known discount type.
func (d DiscountType) Valid() bool {
	switch d {
	case DiscountPercentage, DiscountFixed, DiscountBOGO:
		return true
	default:
		return false
	}
}

// EntityType groups attribute categories by the entity they describe.
type EntityType string

const (
	EntityProduct  EntityType = "Product"
	EntityCustomer EntityType = "Customer"
	EntityOrder    EntityType = "Order"
	EntityPayment  EntityType = "Payment"
	EntityEmployee EntityType = "Employee"
)

// Structural limits enforced when rule trees cross a trust boundary
// (API decode, rule compilation). The editor itself never rejects edits.
const (
	// MaxRuleGroups caps groups per slot.
	MaxRuleGroups = 64

	// MaxConditionsPerGroup caps conditions per rule group.
	MaxConditionsPerGroup = 64

	// MaxEnumOptions caps the option list of an enum attribute.
	MaxEnumOptions = 256

	// MaxNameLength is the longest promotion name the validator accepts.
	MaxNameLength = 100
)
