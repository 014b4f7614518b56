// internal/rules/compile.go
package rules

import (
	"strconv"
	"strings"
	"time"

	"github.com/google/cel-go/cel"
	"github.com/pkg/errors"
	"github.com/solatis/promokeeper/internal/types"
)

/*
 * Rule export to CEL.
 *
 * Translates types.Rule trees into boolean CEL expressions over one
 * variable per attribute, then type-checks them in the engine's
 * environment. Used for interoperability and as a structural check that
 * catches references to unknown attributes and operator/type mismatches.
 *
 * Translation:
 *   condition  attr_x == "v" | attr_x > 20.0 | attr_x.contains("v")
 *              attr_x in ["a", "b"]           (enum list with =)
 *              !(attr_x in ["a", "b"])        (enum list with !=)
 *   group      (c1 && c2) or (c1 || c2)        per group operator
 *   rule       g1 && g2 or g1 || g2            per rule operator
 *
 * Per role (qualifier, target) all inclusion rules must hold and no
 * exclusion rule may hold:
 *   (I1 && I2) && !(E1 || E2)
 * A role with no inclusion rules exports "true".
 *
 * Limits (MaxRuleGroups, MaxConditionsPerGroup) are enforced here so an
 * oversize tree fails at export instead of producing a huge expression.
 */

// CompiledRule is one rule's exported expression.
type CompiledRule struct {
	RuleID      string
	Type        types.RuleType
	IsInclusion bool
	Expression  string
	Conditions  int
}

// CompiledPromotion holds the combined qualifier and target expressions plus
// each rule's own export.
type CompiledPromotion struct {
	Qualifier string
	Target    string
	Rules     []CompiledRule
}

// Compile exports a single rule and type-checks the result.
func (e *Engine) Compile(rule types.Rule) (*CompiledRule, error) {
	if len(rule.RuleGroups) == 0 {
		return nil, errors.Wrapf(types.ErrEmptyRuleGroup, "rule %s has no rule groups", rule.ID)
	}
	if len(rule.RuleGroups) > types.MaxRuleGroups {
		return nil, errors.Wrapf(types.ErrTooManyRuleGroups, "rule %s has %d", rule.ID, len(rule.RuleGroups))
	}
	joiner, err := logicalJoiner(rule.Operator)
	if err != nil {
		return nil, errors.Wrapf(err, "rule %s", rule.ID)
	}

	groups := make([]string, 0, len(rule.RuleGroups))
	total := 0
	for _, g := range rule.RuleGroups {
		expr, err := e.compileGroup(g)
		if err != nil {
			return nil, errors.Wrapf(err, "rule %s", rule.ID)
		}
		groups = append(groups, expr)
		total += len(g.Conditions)
	}

	expr := strings.Join(groups, joiner)
	if err := e.check(expr); err != nil {
		return nil, errors.Wrapf(err, "rule %s", rule.ID)
	}
	return &CompiledRule{
		RuleID:      rule.ID,
		Type:        rule.Type,
		IsInclusion: rule.IsInclusion,
		Expression:  expr,
		Conditions:  total,
	}, nil
}

// CompilePromotion exports every rule and combines them per role.
func (e *Engine) CompilePromotion(ruleList []types.Rule) (*CompiledPromotion, error) {
	out := &CompiledPromotion{Rules: make([]CompiledRule, 0, len(ruleList))}
	var qi, qe, ti, te []string

	for _, r := range ruleList {
		if !r.Type.Valid() {
			return nil, errors.Errorf("rule %s has unknown type %q", r.ID, r.Type)
		}
		cr, err := e.Compile(r)
		if err != nil {
			return nil, err
		}
		out.Rules = append(out.Rules, *cr)

		wrapped := "(" + cr.Expression + ")"
		switch {
		case r.Type == types.RuleTypeQualifier && r.IsInclusion:
			qi = append(qi, wrapped)
		case r.Type == types.RuleTypeQualifier:
			qe = append(qe, wrapped)
		case r.IsInclusion:
			ti = append(ti, wrapped)
		default:
			te = append(te, wrapped)
		}
	}

	out.Qualifier = combineRole(qi, qe)
	out.Target = combineRole(ti, te)
	if err := e.check(out.Qualifier); err != nil {
		return nil, errors.Wrap(err, "qualifier")
	}
	if err := e.check(out.Target); err != nil {
		return nil, errors.Wrap(err, "target")
	}
	return out, nil
}

func combineRole(inclusions, exclusions []string) string {
	inc := "true"
	if len(inclusions) > 0 {
		inc = strings.Join(inclusions, " && ")
	}
	if len(exclusions) == 0 {
		return inc
	}
	return "(" + inc + ") && !(" + strings.Join(exclusions, " || ") + ")"
}

// check parses and type-checks expr; the result must be bool.
func (e *Engine) check(expr string) error {
	ast, iss := e.env.Compile(expr)
	if iss != nil && iss.Err() != nil {
		return errors.Wrapf(iss.Err(), "type-check %q", expr)
	}
	if !ast.OutputType().IsExactType(cel.BoolType) {
		return errors.Errorf("expression %q yields %s, want bool", expr, ast.OutputType())
	}
	return nil
}

func (e *Engine) compileGroup(g types.RuleGroup) (string, error) {
	if len(g.Conditions) == 0 {
		return "", errors.Wrapf(types.ErrEmptyRuleGroup, "group %s", g.ID)
	}
	if len(g.Conditions) > types.MaxConditionsPerGroup {
		return "", errors.Wrapf(types.ErrTooManyConditions, "group %s has %d", g.ID, len(g.Conditions))
	}
	joiner, err := logicalJoiner(g.Operator)
	if err != nil {
		return "", errors.Wrapf(err, "group %s", g.ID)
	}

	parts := make([]string, 0, len(g.Conditions))
	for _, c := range g.Conditions {
		expr, err := e.compileCondition(c)
		if err != nil {
			return "", errors.Wrapf(err, "condition %s", c.ID)
		}
		parts = append(parts, expr)
	}
	return "(" + strings.Join(parts, joiner) + ")", nil
}

func logicalJoiner(op types.LogicalOperator) (string, error) {
	switch op {
	case types.OperatorAnd:
		return " && ", nil
	case types.OperatorOr:
		return " || ", nil
	default:
		return "", errors.Wrapf(types.ErrInvalidLogicalOperator, "%q", op)
	}
}

func (e *Engine) compileCondition(c types.Condition) (string, error) {
	attr, ok := e.attrs[c.AttributeID]
	if !ok {
		return "", errors.Wrapf(types.ErrUnknownAttribute, "%s", c.AttributeID)
	}
	if err := CheckCondition(attr, c); err != nil {
		return "", err
	}
	v := VariableName(attr.ID)

	switch attr.Type {
	case types.ValueString:
		s, _ := c.Value.AsString()
		lit := strconv.Quote(s)
		switch c.Operator {
		case OpContains, OpStartsWith, OpEndsWith:
			return v + "." + c.Operator + "(" + lit + ")", nil
		default:
			return v + " " + celComparison(c.Operator) + " " + lit, nil
		}

	case types.ValueNumber:
		n, _ := c.Value.AsNumber()
		return v + " " + celComparison(c.Operator) + " " + doubleLiteral(n), nil

	case types.ValueBoolean:
		b, _ := c.Value.AsBool()
		return v + " " + celComparison(c.Operator) + " " + strconv.FormatBool(b), nil

	case types.ValueDate:
		t, ok := c.Value.AsDate()
		if !ok {
			return "", errors.Wrapf(types.ErrValueTypeMismatch, "attribute %s: date not set", attr.ID)
		}
		return v + " " + celComparison(c.Operator) + " timestamp(" + strconv.Quote(t.Format(time.RFC3339Nano)) + ")", nil

	case types.ValueEnum:
		if items, isList := c.Value.AsList(); isList {
			quoted := make([]string, len(items))
			for i, item := range items {
				quoted[i] = strconv.Quote(item)
			}
			in := v + " in [" + strings.Join(quoted, ", ") + "]"
			if c.Operator == OpNeq {
				return "!(" + in + ")", nil
			}
			return in, nil
		}
		s, _ := c.Value.AsString()
		return v + " " + celComparison(c.Operator) + " " + strconv.Quote(s), nil
	}
	return "", errors.Wrapf(types.ErrValueTypeMismatch, "attribute %s has unknown type %q", attr.ID, attr.Type)
}

func celComparison(op string) string {
	if op == OpEq {
		return "=="
	}
	return op
}

// doubleLiteral always carries a decimal point so CEL parses a double, not
// an int.
func doubleLiteral(n float64) string {
	s := strconv.FormatFloat(n, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}
