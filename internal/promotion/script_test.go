package promotion

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/solatis/promokeeper/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const createScript = `
ops:
  - {op: setName, name: "Winter sale"}
  - {op: setDescription, description: "Coats and boots"}
  - {op: setDates, start: "2024-11-01", end: "2025-02-28"}
  - {op: setDiscount, discountType: fixed, discountValue: 15}
  - {op: addCondition, slot: qualifierInclusions, group: 0, attribute: season1-a1, operator: "=", value: Winter}
  - {op: addCondition, slot: qualifierInclusions, group: 0, attribute: season1-a1, operator: "=", value: Fall}
  - {op: setGroupOperator, slot: qualifierInclusions, group: 0, operator: OR}
  - {op: addCondition, slot: targetInclusions, group: 0, attribute: price1-a1, operator: ">=", value: 40}
  - {op: addRuleGroup, slot: targetExclusions}
  - {op: addCondition, slot: targetExclusions, group: 0, attribute: brand1-a1, operator: "=", value: Puma}
`

func TestScript_RunCreates(t *testing.T) {
	repo := NewMemoryRepository()
	s := newTestStore(t, repo)

	sc, err := ParseScript([]byte(createScript))
	require.NoError(t, err)

	p, err := sc.Run(context.Background(), s)
	require.NoError(t, err)

	assert.Equal(t, "Winter sale", p.Name)
	assert.Equal(t, types.DiscountFixed, p.DiscountType)
	assert.Equal(t, 15.0, p.DiscountValue)
	assert.Equal(t, "2024-11-01", p.StartDate.Format("2006-01-02"))
	require.Len(t, p.Rules, 3)

	q := p.Rules[0]
	assert.Equal(t, types.RuleTypeQualifier, q.Type)
	require.Len(t, q.RuleGroups, 1)
	assert.Equal(t, types.OperatorOr, q.RuleGroups[0].Operator)
	assert.Len(t, q.RuleGroups[0].Conditions, 2)
	assert.True(t, q.RuleGroups[0].Conditions[0].Value.Equal(types.EnumValue("Winter")))

	excl := p.Rules[2]
	assert.Equal(t, types.RuleTypeTarget, excl.Type)
	assert.False(t, excl.IsInclusion)

	stored, err := repo.List(context.Background())
	require.NoError(t, err)
	assert.Len(t, stored, 1)
}

func TestScript_RunEdits(t *testing.T) {
	repo, created := seededRepository(t)
	s := newTestStore(t, repo)
	target := created[0]

	sc := &Script{Promotion: target.ID, Ops: []Op{
		{Op: "setName", Name: "Renamed"},
		{Op: "removeCondition", Slot: "qualifierInclusions", Group: 0, Condition: 1},
		{Op: "setActive", Active: new(bool)},
	}}

	p, err := sc.Run(context.Background(), s)
	require.NoError(t, err)
	assert.Equal(t, target.ID, p.ID)
	assert.Equal(t, "Renamed", p.Name)
	assert.False(t, p.IsActive)
	assert.Len(t, p.Rules[0].RuleGroups[0].Conditions, 1)
}

func TestScript_RunRejectsInvalidForm(t *testing.T) {
	repo := NewMemoryRepository()
	s := newTestStore(t, repo)

	sc := &Script{Ops: []Op{{Op: "setName", Name: "Empty rules"}}}
	_, err := sc.Run(context.Background(), s)

	var verrs ValidationErrors
	require.True(t, errors.As(err, &verrs), "err = %v", err)
	assert.ElementsMatch(t, []string{FieldQualifierInclusions, FieldTargetInclusions}, verrs.Fields())

	stored, _ := repo.List(context.Background())
	assert.Empty(t, stored)
}

func TestScript_RunMissingPromotion(t *testing.T) {
	s := newTestStore(t, NewMemoryRepository())
	sc := &Script{Promotion: "missing"}

	_, err := sc.Run(context.Background(), s)
	assert.ErrorIs(t, err, types.ErrPromotionNotFound)
}

func TestScript_ApplyErrors(t *testing.T) {
	tests := []struct {
		name string
		op   Op
		want string
	}{
		{"unknown op", Op{Op: "explode"}, `unknown op "explode"`},
		{"unknown slot", Op{Op: "addRuleGroup", Slot: "bonus"}, "bonus"},
		{"missing active", Op{Op: "setActive"}, "active is required"},
		{"bad discount", Op{Op: "setDiscount", DiscountType: "half"}, `unknown discount type "half"`},
		{"bad date", Op{Op: "setDates", Start: "yesterday"}, "start"},
		{"bad operator", Op{Op: "setSlotOperator", Slot: "targetInclusions", Operator: "NAND"}, "AND or OR"},
		{"bad value", Op{Op: "addCondition", Slot: "targetInclusions", Attribute: "price1-a1", Operator: "=", Value: "free"}, "price1-a1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestStore(t, NewMemoryRepository())
			err := (&Script{Ops: []Op{tt.op}}).Apply(s)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
			assert.Contains(t, err.Error(), "op 0")
		})
	}
}

func TestParseScript_Invalid(t *testing.T) {
	_, err := ParseScript([]byte("ops: {not: a list"))
	assert.Error(t, err)
}
