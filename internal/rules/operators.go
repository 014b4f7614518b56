// internal/rules/operators.go
package rules

import (
	"slices"
	"strings"

	"github.com/solatis/promokeeper/internal/types"
)

/*
 * Operator/value-type compatibility table.
 *
 * Each attribute value type admits a fixed set of comparison operators:
 *   - string:  =, !=, contains, startsWith, endsWith
 *   - number:  =, !=, >, <, >=, <=
 *   - boolean: =, !=
 *   - date:    =, !=, >, <, >=, <=
 *   - enum:    =, !=
 *
 * Picking an operator outside the set for the condition's attribute is an
 * input-validation failure (ErrInvalidOperator), never a silent coercion.
 * Order inside each set is display order for pickers.
 */

// Comparison operators as stored on conditions.
const (
	OpEq         = "="
	OpNeq        = "!="
	OpGt         = ">"
	OpLt         = "<"
	OpGte        = ">="
	OpLte        = "<="
	OpContains   = "contains"
	OpStartsWith = "startsWith"
	OpEndsWith   = "endsWith"
)

// DefaultOperator is applied whenever a condition's attribute changes.
const DefaultOperator = OpEq

var legalOperators = map[types.ValueType][]string{
	types.ValueString:  {OpEq, OpNeq, OpContains, OpStartsWith, OpEndsWith},
	types.ValueNumber:  {OpEq, OpNeq, OpGt, OpLt, OpGte, OpLte},
	types.ValueBoolean: {OpEq, OpNeq},
	types.ValueDate:    {OpEq, OpNeq, OpGt, OpLt, OpGte, OpLte},
	types.ValueEnum:    {OpEq, OpNeq},
}

// Operators returns the legal operators for a value type in display order.
// Unknown types only admit equality.
func Operators(t types.ValueType) []string {
	ops, ok := legalOperators[t]
	if !ok {
		return []string{OpEq}
	}
	return slices.Clone(ops)
}

// IsLegalOperator reports whether op may be used with attributes of type t.
func IsLegalOperator(t types.ValueType, op string) bool {
	return slices.Contains(legalOperators[t], op)
}

// FormatOperator upper-cases an operator for display (AND, OR, CONTAINS).
func FormatOperator(op string) string {
	return strings.ToUpper(op)
}
