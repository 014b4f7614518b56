package rules

import (
	"strings"

	"github.com/solatis/promokeeper/internal/types"
)

// AttributeLookup resolves attribute ids to their definitions.
// catalog.Index and Engine both satisfy it.
type AttributeLookup interface {
	Attribute(id string) (types.Attribute, bool)
}

// Formatter renders rule trees as text. The zero Formatter labels attributes
// as "Attribute <id>"; with a Lookup set, known attributes render by name.
type Formatter struct {
	Lookup AttributeLookup
}

// Condition renders "<attribute> <operator> <value>".
func (f Formatter) Condition(c types.Condition) string {
	return f.attributeLabel(c.AttributeID) + " " + c.Operator + " " + c.Value.Format()
}

// Group renders conditions joined by the group operator, or "No conditions".
func (f Formatter) Group(g types.RuleGroup) string {
	if len(g.Conditions) == 0 {
		return "No conditions"
	}
	return f.joinConditions(g)
}

// Rule renders "<Qualifying|Target> <Inclusions|Exclusions>: (..) OP (..)".
// Empty groups render as "()".
func (f Formatter) Rule(r types.Rule) string {
	groups := make([]string, len(r.RuleGroups))
	for i, g := range r.RuleGroups {
		groups[i] = "(" + f.joinConditions(g) + ")"
	}
	return RuleHeading(r) + ": " + strings.Join(groups, " "+FormatOperator(string(r.Operator))+" ")
}

func (f Formatter) joinConditions(g types.RuleGroup) string {
	parts := make([]string, len(g.Conditions))
	for i, c := range g.Conditions {
		parts[i] = f.Condition(c)
	}
	return strings.Join(parts, " "+FormatOperator(string(g.Operator))+" ")
}

func (f Formatter) attributeLabel(id string) string {
	if f.Lookup != nil {
		if a, ok := f.Lookup.Attribute(id); ok {
			return a.Name
		}
	}
	return "Attribute " + id
}

// RuleHeading names a rule's role, e.g. "Qualifying Inclusions".
func RuleHeading(r types.Rule) string {
	role := "Target"
	if r.Type == types.RuleTypeQualifier {
		role = "Qualifying"
	}
	if r.IsInclusion {
		return role + " Inclusions"
	}
	return role + " Exclusions"
}
