package promotion

import (
	"slices"

	"github.com/solatis/promokeeper/internal/rules"
	"github.com/solatis/promokeeper/internal/types"
)

/*
 * Rule-tree editor.
 *
 * Pure reducers over FormState. Each takes the whole form plus a slot
 * address and returns a new form; the input is never modified and the
 * touched slot always gets freshly allocated slices.
 *
 * Addressing failures (invalid slot, group or condition index out of
 * range) are no-ops that return the input unchanged. Structural emptiness
 * is handled asymmetrically:
 *   - removing the last group of a mandatory (inclusion) slot substitutes a
 *     fresh empty AND group, so inclusion slots are never empty
 *   - removing the last condition of a group leaves the group empty; the
 *     validator rejects it at submit time
 *
 * The editor does not check operators or values against attribute types.
 * Store actions do that before calling in (see Store.AddCondition).
 */

// AddRuleGroup appends a fresh empty AND group to the slot.
func AddRuleGroup(fs FormState, s Slot) FormState {
	if !s.Valid() {
		return fs
	}
	groups := append(slices.Clone(fs.Slots[s].Groups), types.NewRuleGroup(types.OperatorAnd))
	return withGroups(fs, s, groups)
}

// RemoveRuleGroup removes the group at groupIndex. A mandatory slot left
// empty receives a fresh empty AND group.
func RemoveRuleGroup(fs FormState, s Slot, groupIndex int) FormState {
	if !validGroup(fs, s, groupIndex) {
		return fs
	}
	groups := slices.Delete(slices.Clone(fs.Slots[s].Groups), groupIndex, groupIndex+1)
	if len(groups) == 0 && s.Mandatory() {
		groups = []types.RuleGroup{types.NewRuleGroup(types.OperatorAnd)}
	}
	return withGroups(fs, s, groups)
}

// UpdateRuleGroupOperator replaces one group's operator. Conditions are
// untouched.
func UpdateRuleGroupOperator(fs FormState, s Slot, groupIndex int, op types.LogicalOperator) FormState {
	if !validGroup(fs, s, groupIndex) {
		return fs
	}
	groups := slices.Clone(fs.Slots[s].Groups)
	groups[groupIndex].Operator = op
	return withGroups(fs, s, groups)
}

// UpdateRuleGroupsOperator replaces the slot-level operator joining groups.
func UpdateRuleGroupsOperator(fs FormState, s Slot, op types.LogicalOperator) FormState {
	if !s.Valid() {
		return fs
	}
	fs.Slots[s] = RuleSlot{Groups: slices.Clone(fs.Slots[s].Groups), Operator: op}
	return fs
}

// AddCondition appends a new condition with a fresh id to the group.
func AddCondition(fs FormState, s Slot, groupIndex int, attributeID, operator string, value types.Value) FormState {
	if !validGroup(fs, s, groupIndex) {
		return fs
	}
	cond := types.Condition{
		ID:          types.NewID(),
		AttributeID: attributeID,
		Operator:    operator,
		Value:       value,
	}
	return withConditions(fs, s, groupIndex, func(conds []types.Condition) []types.Condition {
		return append(conds, cond)
	})
}

// RemoveCondition removes one condition. An emptied group is kept.
func RemoveCondition(fs FormState, s Slot, groupIndex, conditionIndex int) FormState {
	if !validCondition(fs, s, groupIndex, conditionIndex) {
		return fs
	}
	return withConditions(fs, s, groupIndex, func(conds []types.Condition) []types.Condition {
		return slices.Delete(conds, conditionIndex, conditionIndex+1)
	})
}

// UpdateCondition replaces the fields of one condition in place. The
// condition keeps its id.
func UpdateCondition(fs FormState, s Slot, groupIndex, conditionIndex int, attributeID, operator string, value types.Value) FormState {
	if !validCondition(fs, s, groupIndex, conditionIndex) {
		return fs
	}
	return withConditions(fs, s, groupIndex, func(conds []types.Condition) []types.Condition {
		conds[conditionIndex] = types.Condition{
			ID:          conds[conditionIndex].ID,
			AttributeID: attributeID,
			Operator:    operator,
			Value:       value,
		}
		return conds
	})
}

// ChangeConditionAttribute points a condition at attr and resets its
// operator to "=" and its value to the attribute type's default.
func ChangeConditionAttribute(fs FormState, s Slot, groupIndex, conditionIndex int, attr types.Attribute) FormState {
	if !validCondition(fs, s, groupIndex, conditionIndex) {
		return fs
	}
	return withConditions(fs, s, groupIndex, func(conds []types.Condition) []types.Condition {
		conds[conditionIndex] = rules.ResetCondition(conds[conditionIndex], attr)
		return conds
	})
}

func validGroup(fs FormState, s Slot, groupIndex int) bool {
	return s.Valid() && groupIndex >= 0 && groupIndex < len(fs.Slots[s].Groups)
}

func validCondition(fs FormState, s Slot, groupIndex, conditionIndex int) bool {
	if !validGroup(fs, s, groupIndex) {
		return false
	}
	return conditionIndex >= 0 && conditionIndex < len(fs.Slots[s].Groups[groupIndex].Conditions)
}

func withGroups(fs FormState, s Slot, groups []types.RuleGroup) FormState {
	fs.Slots[s] = RuleSlot{Groups: groups, Operator: fs.Slots[s].Operator}
	return fs
}

// withConditions rewrites one group's condition list. edit receives a
// private copy it may modify.
func withConditions(fs FormState, s Slot, groupIndex int, edit func([]types.Condition) []types.Condition) FormState {
	groups := slices.Clone(fs.Slots[s].Groups)
	g := groups[groupIndex]
	g.Conditions = edit(slices.Clone(g.Conditions))
	if g.Conditions == nil {
		g.Conditions = []types.Condition{}
	}
	groups[groupIndex] = g
	return withGroups(fs, s, groups)
}
