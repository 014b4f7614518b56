package types

import "github.com/pkg/errors"

// Sentinel errors for PromoKeeper operations.
var (
	// ErrPromotionNotFound indicates the repository holds no promotion with the id.
	ErrPromotionNotFound = errors.New("promotion not found")

	// ErrUnknownAttribute indicates a condition references an attribute the catalog lacks.
	ErrUnknownAttribute = errors.New("unknown attribute")

	// ErrInvalidOperator indicates an operator outside the legal set for the attribute type.
	ErrInvalidOperator = errors.New("invalid operator for attribute type")

	// ErrValueTypeMismatch indicates a condition value whose shape does not match the attribute type.
	ErrValueTypeMismatch = errors.New("value does not match attribute type")

	// ErrInvalidEnumOption indicates an enum value that is not one of the attribute's options.
	ErrInvalidEnumOption = errors.New("value is not an option of the enum attribute")

	// ErrEmptyRuleGroup indicates a rule group with no conditions reached compilation.
	ErrEmptyRuleGroup = errors.New("rule group has no conditions")

	// ErrTooManyRuleGroups indicates a slot exceeds MaxRuleGroups.
	ErrTooManyRuleGroups = errors.New("too many rule groups")

	// ErrTooManyConditions indicates a rule group exceeds MaxConditionsPerGroup.
	ErrTooManyConditions = errors.New("too many conditions in rule group")

	// ErrInvalidLogicalOperator indicates an operator other than AND/OR.
	ErrInvalidLogicalOperator = errors.New("logical operator must be AND or OR")

	// ErrIndexOutOfRange indicates a group or condition index outside its list.
	ErrIndexOutOfRange = errors.New("index out of range")
)
