package promotion

import (
	"time"

	"github.com/solatis/promokeeper/internal/types"
)

func sampleDate(s string) time.Time {
	t, _ := time.Parse(time.DateOnly, s)
	return t
}

func sampleRule(ruleType types.RuleType, groups ...types.RuleGroup) types.Rule {
	return types.Rule{
		ID:          types.NewID(),
		Type:        ruleType,
		IsInclusion: true,
		RuleGroups:  groups,
		Operator:    types.OperatorAnd,
	}
}

func sampleGroup(op types.LogicalOperator, conds ...types.Condition) types.RuleGroup {
	return types.RuleGroup{ID: types.NewID(), Operator: op, Conditions: conds}
}

func sampleCond(attributeID string, op string, v types.Value) types.Condition {
	return types.Condition{ID: types.NewID(), AttributeID: attributeID, Operator: op, Value: v}
}

// SamplePromotions returns the demo promotions seeded by
// "promokeeper promotions seed". They reference the built-in catalog.
func SamplePromotions() []types.PromotionData {
	return []types.PromotionData{
		{
			Name:          "10% Off Black or Blue Items",
			Description:   "Get 10% off on all Black or Blue colored items",
			StartDate:     sampleDate("2023-06-01"),
			EndDate:       sampleDate("2023-12-31"),
			IsActive:      true,
			DiscountType:  types.DiscountPercentage,
			DiscountValue: 10,
			Rules: []types.Rule{
				sampleRule(types.RuleTypeQualifier, sampleGroup(types.OperatorOr,
					sampleCond("color1-a1", "=", types.EnumValue("Black")),
					sampleCond("color1-a1", "=", types.EnumValue("Blue")))),
				sampleRule(types.RuleTypeTarget, sampleGroup(types.OperatorAnd,
					sampleCond("price1-a1", ">=", types.NumberValue(20)))),
			},
		},
		{
			Name:          "20% Off Winter Season Items",
			Description:   "Get 20% off on all Winter season items",
			StartDate:     sampleDate("2023-10-01"),
			EndDate:       sampleDate("2024-02-28"),
			IsActive:      true,
			DiscountType:  types.DiscountPercentage,
			DiscountValue: 20,
			Rules: []types.Rule{
				sampleRule(types.RuleTypeQualifier, sampleGroup(types.OperatorAnd,
					sampleCond("season1-a1", "=", types.EnumValue("Winter")))),
				sampleRule(types.RuleTypeTarget, sampleGroup(types.OperatorAnd,
					sampleCond("price1-a1", ">=", types.NumberValue(30)))),
			},
		},
		{
			Name:          "Buy One Get One Free on Shirts",
			Description:   "Buy one shirt and get another one free",
			StartDate:     sampleDate("2023-07-01"),
			EndDate:       sampleDate("2023-08-31"),
			IsActive:      false,
			DiscountType:  types.DiscountBOGO,
			DiscountValue: 100,
			Rules: []types.Rule{
				sampleRule(types.RuleTypeQualifier, sampleGroup(types.OperatorAnd,
					sampleCond("pc1-a1", "=", types.EnumValue("Shirts")))),
				sampleRule(types.RuleTypeTarget, sampleGroup(types.OperatorAnd,
					sampleCond("pc1-a1", "=", types.EnumValue("Shirts")))),
			},
		},
		{
			Name:          "Complex Promo with AND/OR Conditions",
			Description:   "Example of a complex promotion with mixed AND/OR conditions",
			StartDate:     sampleDate("2023-08-01"),
			EndDate:       sampleDate("2023-09-30"),
			IsActive:      true,
			DiscountType:  types.DiscountPercentage,
			DiscountValue: 15,
			Rules: []types.Rule{
				sampleRule(types.RuleTypeQualifier,
					sampleGroup(types.OperatorOr,
						sampleCond("color1-a1", "=", types.EnumValue("Black")),
						sampleCond("color1-a1", "=", types.EnumValue("Blue"))),
					sampleGroup(types.OperatorOr,
						sampleCond("season1-a1", "=", types.EnumValue("Winter")),
						sampleCond("season1-a1", "=", types.EnumValue("Fall")))),
				sampleRule(types.RuleTypeTarget, sampleGroup(types.OperatorAnd,
					sampleCond("price1-a1", ">=", types.NumberValue(50)))),
			},
		},
	}
}
