package promotion

import (
	"time"

	"github.com/pkg/errors"
	"github.com/solatis/promokeeper/internal/rules"
	"github.com/solatis/promokeeper/internal/types"
)

// ToFormState projects a promotion into the editable form.
//
// Each rule's groups go to the slot selected by (type, isInclusion). Rules
// sharing a slot have their groups concatenated in rule order and the slot
// operator is the last such rule's operator; DuplicateSlots reports when
// that happened. Rules with an unknown type are skipped.
func ToFormState(p types.PromotionData) FormState {
	fs := FormState{
		Name:          p.Name,
		Description:   p.Description,
		IsActive:      p.IsActive,
		DiscountType:  p.DiscountType,
		DiscountValue: p.DiscountValue,
	}
	if !p.StartDate.IsZero() {
		fs.StartDate = cloneTime(&p.StartDate)
	}
	if !p.EndDate.IsZero() {
		fs.EndDate = cloneTime(&p.EndDate)
	}
	for _, s := range Slots {
		fs.Slots[s] = RuleSlot{Groups: []types.RuleGroup{}, Operator: types.OperatorAnd}
	}

	for _, r := range p.Rules {
		s, ok := SlotFor(r.Type, r.IsInclusion)
		if !ok {
			continue
		}
		fs.Slots[s].Groups = append(fs.Slots[s].Groups, types.CloneGroups(r.RuleGroups)...)
		fs.Slots[s].Operator = r.Operator
	}
	return fs
}

// DuplicateSlots lists the slots targeted by more than one rule.
func DuplicateSlots(p types.PromotionData) []Slot {
	var counts [slotCount]int
	for _, r := range p.Rules {
		if s, ok := SlotFor(r.Type, r.IsInclusion); ok {
			counts[s]++
		}
	}
	var out []Slot
	for _, s := range Slots {
		if counts[s] > 1 {
			out = append(out, s)
		}
	}
	return out
}

// ToPromotionData builds the repository payload from a form. Inclusion
// slots always yield a rule, exclusion slots only when non-empty; every
// rule gets a fresh id. Unset dates default to now truncated to the day.
func ToPromotionData(fs FormState, now time.Time) types.PromotionData {
	today := now.UTC().Truncate(24 * time.Hour)
	data := types.PromotionData{
		Name:          fs.Name,
		Description:   fs.Description,
		StartDate:     today,
		EndDate:       today,
		IsActive:      fs.IsActive,
		DiscountType:  fs.DiscountType,
		DiscountValue: fs.DiscountValue,
		Rules:         make([]types.Rule, 0, len(Slots)),
	}
	if fs.StartDate != nil {
		data.StartDate = fs.StartDate.UTC()
	}
	if fs.EndDate != nil {
		data.EndDate = fs.EndDate.UTC()
	}

	for _, s := range Slots {
		slot := fs.Slots[s]
		if !s.Mandatory() && len(slot.Groups) == 0 {
			continue
		}
		groups := types.CloneGroups(slot.Groups)
		if groups == nil {
			groups = []types.RuleGroup{}
		}
		rule := types.NewRule(s.RuleType(), s.IsInclusion())
		rule.RuleGroups = groups
		rule.Operator = slot.Operator
		data.Rules = append(data.Rules, rule)
	}
	return data
}

// ToPromotion attaches identity and timestamps to the form's payload.
// An empty existingID gets a fresh one.
func ToPromotion(fs FormState, existingID string, now time.Time) types.Promotion {
	id := existingID
	if id == "" {
		id = types.NewID()
	}
	return types.Promotion{
		ID:            id,
		PromotionData: ToPromotionData(fs, now),
		CreatedAt:     now.UTC(),
		UpdatedAt:     now.UTC(),
	}
}

// CoerceConditions types every condition value of the form against the
// attribute catalog and checks operators and structural limits. Forms
// decoded from JSON/YAML carry shape-tagged values and must pass through
// here before reaching the store.
func CoerceConditions(fs FormState, lookup rules.AttributeLookup) (FormState, error) {
	out := fs.Clone()
	for _, s := range Slots {
		groups := out.Slots[s].Groups
		if len(groups) > types.MaxRuleGroups {
			return FormState{}, errors.Wrapf(types.ErrTooManyRuleGroups, "%s has %d", s, len(groups))
		}
		if op := out.Slots[s].Operator; !op.Valid() {
			return FormState{}, errors.Wrapf(types.ErrInvalidLogicalOperator, "%s operator %q", s, op)
		}
		for gi := range groups {
			g := &groups[gi]
			if g.ID == "" {
				g.ID = types.NewID()
			}
			if !g.Operator.Valid() {
				return FormState{}, errors.Wrapf(types.ErrInvalidLogicalOperator, "%s group %d operator %q", s, gi, g.Operator)
			}
			if len(g.Conditions) > types.MaxConditionsPerGroup {
				return FormState{}, errors.Wrapf(types.ErrTooManyConditions, "%s group %d has %d", s, gi, len(g.Conditions))
			}
			for ci := range g.Conditions {
				c, err := coerceCondition(g.Conditions[ci], lookup)
				if err != nil {
					return FormState{}, errors.Wrapf(err, "%s group %d condition %d", s, gi, ci)
				}
				g.Conditions[ci] = c
			}
		}
	}
	return out, nil
}

func coerceCondition(c types.Condition, lookup rules.AttributeLookup) (types.Condition, error) {
	attr, ok := lookup.Attribute(c.AttributeID)
	if !ok {
		return types.Condition{}, errors.Wrapf(types.ErrUnknownAttribute, "%s", c.AttributeID)
	}
	v, err := rules.CoerceValue(attr, c.Value)
	if err != nil {
		return types.Condition{}, err
	}
	c.Value = v
	if c.ID == "" {
		c.ID = types.NewID()
	}
	if c.Operator == "" {
		c.Operator = rules.DefaultOperator
	}
	if err := rules.CheckCondition(attr, c); err != nil {
		return types.Condition{}, err
	}
	return c, nil
}
