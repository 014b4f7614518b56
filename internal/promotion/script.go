package promotion

import (
	"context"

	"github.com/pkg/errors"
	"github.com/solatis/promokeeper/internal/types"
	"gopkg.in/yaml.v3"
)

// Script is a YAML document of store actions. With Promotion set it edits
// that promotion; otherwise it builds a new one from a fresh form.
//
//	promotion: ""            # optional id to edit
//	ops:
//	  - {op: setName, name: "Winter sale"}
//	  - {op: addCondition, slot: qualifierInclusions, group: 0,
//	     attribute: season1-a1, operator: "=", value: Winter}
type Script struct {
	Promotion string `yaml:"promotion"`
	Ops       []Op   `yaml:"ops"`
}

// Op is one store action. Only the fields its kind uses are read.
type Op struct {
	Op            string  `yaml:"op"`
	Slot          string  `yaml:"slot,omitempty"`
	Group         int     `yaml:"group,omitempty"`
	Condition     int     `yaml:"condition,omitempty"`
	Attribute     string  `yaml:"attribute,omitempty"`
	Operator      string  `yaml:"operator,omitempty"`
	Value         any     `yaml:"value,omitempty"`
	Name          string  `yaml:"name,omitempty"`
	Description   string  `yaml:"description,omitempty"`
	Start         string  `yaml:"start,omitempty"`
	End           string  `yaml:"end,omitempty"`
	Active        *bool   `yaml:"active,omitempty"`
	DiscountType  string  `yaml:"discountType,omitempty"`
	DiscountValue float64 `yaml:"discountValue,omitempty"`
}

// ParseScript decodes a YAML script.
func ParseScript(data []byte) (*Script, error) {
	var sc Script
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return nil, errors.Wrap(err, "decode script")
	}
	return &sc, nil
}

// Run loads or resets the form, applies every op, validates, and persists.
// A failing form is returned as ValidationErrors without touching the
// repository.
func (sc *Script) Run(ctx context.Context, s *Store) (types.Promotion, error) {
	if sc.Promotion != "" {
		s.FetchPromotionByID(ctx, sc.Promotion)
		snap := s.Snapshot()
		if snap.Error != "" {
			return types.Promotion{}, errors.New(snap.Error)
		}
		if snap.CurrentPromotion == nil {
			return types.Promotion{}, errors.Wrapf(types.ErrPromotionNotFound, "%s", sc.Promotion)
		}
	} else {
		s.ResetFormState()
	}

	if err := sc.Apply(s); err != nil {
		return types.Promotion{}, err
	}
	if errs := s.ValidateForm(); !errs.Valid() {
		return types.Promotion{}, errs
	}

	if sc.Promotion != "" {
		return s.UpdatePromotion(ctx, sc.Promotion)
	}
	return s.CreatePromotion(ctx)
}

// Apply runs the ops against the store's current form, stopping at the
// first failing op.
func (sc *Script) Apply(s *Store) error {
	for i, op := range sc.Ops {
		if err := op.apply(s); err != nil {
			return errors.Wrapf(err, "op %d (%s)", i, op.Op)
		}
	}
	return nil
}

func (op Op) slot() (Slot, error) {
	return ParseSlot(op.Slot)
}

func (op Op) apply(s *Store) error {
	switch op.Op {
	case "setName":
		s.UpdateFormState(func(fs FormState) FormState { return fs.WithName(op.Name) })
	case "setDescription":
		s.UpdateFormState(func(fs FormState) FormState { return fs.WithDescription(op.Description) })
	case "setDates":
		start, err := decodeDate(&op.Start)
		if err != nil {
			return errors.Wrap(err, "start")
		}
		end, err := decodeDate(&op.End)
		if err != nil {
			return errors.Wrap(err, "end")
		}
		s.UpdateFormState(func(fs FormState) FormState { return fs.WithDates(start, end) })
	case "setActive":
		if op.Active == nil {
			return errors.New("active is required")
		}
		s.UpdateFormState(func(fs FormState) FormState { return fs.WithActive(*op.Active) })
	case "setDiscount":
		dt := types.DiscountType(op.DiscountType)
		if !dt.Valid() {
			return errors.Errorf("unknown discount type %q", op.DiscountType)
		}
		s.UpdateFormState(func(fs FormState) FormState { return fs.WithDiscount(dt, op.DiscountValue) })
	default:
		if !ruleOps[op.Op] {
			return errors.Errorf("unknown op %q", op.Op)
		}
		return op.applyRuleOp(s)
	}
	return nil
}

var ruleOps = map[string]bool{
	"addRuleGroup":     true,
	"removeRuleGroup":  true,
	"setGroupOperator": true,
	"setSlotOperator":  true,
	"addCondition":     true,
	"removeCondition":  true,
	"updateCondition":  true,
	"changeAttribute":  true,
}

func (op Op) applyRuleOp(s *Store) error {
	slot, err := op.slot()
	if err != nil {
		return err
	}
	switch op.Op {
	case "addRuleGroup":
		s.AddRuleGroup(slot)
	case "removeRuleGroup":
		s.RemoveRuleGroup(slot, op.Group)
	case "setGroupOperator":
		return s.UpdateRuleGroupOperator(slot, op.Group, types.LogicalOperator(op.Operator))
	case "setSlotOperator":
		return s.UpdateRuleGroupsOperator(slot, types.LogicalOperator(op.Operator))
	case "addCondition":
		return s.AddCondition(slot, op.Group, op.Attribute, op.Operator, op.Value)
	case "removeCondition":
		s.RemoveCondition(slot, op.Group, op.Condition)
	case "updateCondition":
		return s.UpdateCondition(slot, op.Group, op.Condition, op.Attribute, op.Operator, op.Value)
	case "changeAttribute":
		return s.ChangeConditionAttribute(slot, op.Group, op.Condition, op.Attribute)
	default:
		return errors.Errorf("unknown op %q", op.Op)
	}
	return nil
}
