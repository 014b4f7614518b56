// internal/types/rules.go
package types

/*
 * Rule-tree types.
 *
 * A promotion's applicability is a forest of rule trees:
 *   - Condition: one attribute reference + comparison operator + typed value
 *   - RuleGroup: conditions combined by one logical operator
 *   - Rule: rule groups combined by one logical operator, scoped to a
 *     (Qualifier|Target) x (Inclusion|Exclusion) role
 *
 * Semantics: rule = group1 OP group2 OP ...; group = cond1 OP cond2 ...
 * Condition order is display order only; AND/OR are commutative.
 *
 * All three are value records. Editing happens through internal/promotion,
 * which always returns fresh slices and never writes through shared ones.
 */

// Condition compares one attribute against a typed value.
type Condition struct {
	ID          string `json:"id"`
	AttributeID string `json:"attributeId"`
	Operator    string `json:"operator"`
	Value       Value  `json:"value"`
}

// RuleGroup combines conditions with one logical operator.
type RuleGroup struct {
	ID         string          `json:"id"`
	Operator   LogicalOperator `json:"operator"`
	Conditions []Condition     `json:"conditions"`
}

// Rule combines rule groups with one logical operator for a single role.
type Rule struct {
	ID          string          `json:"id"`
	Type        RuleType        `json:"type"`
	IsInclusion bool            `json:"isInclusion"`
	RuleGroups  []RuleGroup     `json:"ruleGroups"`
	Operator    LogicalOperator `json:"operator"`
}

// NewRuleGroup returns a fresh, empty rule group.
func NewRuleGroup(op LogicalOperator) RuleGroup {
	return RuleGroup{
		ID:         NewID(),
		Operator:   op,
		Conditions: []Condition{},
	}
}

// NewRule returns a rule of the given role holding one empty AND group.
func NewRule(ruleType RuleType, isInclusion bool) Rule {
	return Rule{
		ID:          NewID(),
		Type:        ruleType,
		IsInclusion: isInclusion,
		RuleGroups:  []RuleGroup{NewRuleGroup(OperatorAnd)},
		Operator:    OperatorAnd,
	}
}

// Clone returns a deep copy of the group.
func (g RuleGroup) Clone() RuleGroup {
	out := g
	out.Conditions = make([]Condition, len(g.Conditions))
	copy(out.Conditions, g.Conditions)
	return out
}

// Clone returns a deep copy of the rule.
func (r Rule) Clone() Rule {
	out := r
	out.RuleGroups = CloneGroups(r.RuleGroups)
	return out
}

// CloneGroups deep-copies a rule group list. Nil stays nil.
func CloneGroups(groups []RuleGroup) []RuleGroup {
	if groups == nil {
		return nil
	}
	out := make([]RuleGroup, len(groups))
	for i, g := range groups {
		out[i] = g.Clone()
	}
	return out
}
