package promotion

import (
	"encoding/json"
	"time"

	"github.com/pkg/errors"
	"github.com/solatis/promokeeper/internal/types"
	"gopkg.in/yaml.v3"
)

// DefaultDiscountValue is the discount a new form starts with.
const DefaultDiscountValue = 10

// RuleSlot is the denormalized content of one slot: its groups and the
// operator joining them. An empty Groups list means the slot holds no rule.
type RuleSlot struct {
	Groups   []types.RuleGroup
	Operator types.LogicalOperator
}

// FormState is the editable, denormalized view of a promotion. It is a
// value: every editor operation returns a new FormState and never writes
// through slices shared with its input.
type FormState struct {
	Name          string
	Description   string
	StartDate     *time.Time
	EndDate       *time.Time
	IsActive      bool
	DiscountType  types.DiscountType
	DiscountValue float64
	Slots         [slotCount]RuleSlot
}

// NewFormState returns the form for a new promotion: one empty AND group in
// each inclusion slot, no exclusions, every slot operator AND.
func NewFormState() FormState {
	fs := FormState{
		IsActive:      true,
		DiscountType:  types.DiscountPercentage,
		DiscountValue: DefaultDiscountValue,
	}
	for _, s := range Slots {
		fs.Slots[s] = RuleSlot{Groups: []types.RuleGroup{}, Operator: types.OperatorAnd}
		if s.Mandatory() {
			fs.Slots[s].Groups = []types.RuleGroup{types.NewRuleGroup(types.OperatorAnd)}
		}
	}
	return fs
}

// Slot returns a deep copy of the slot's content.
func (f FormState) Slot(s Slot) RuleSlot {
	if !s.Valid() {
		return RuleSlot{}
	}
	return RuleSlot{Groups: types.CloneGroups(f.Slots[s].Groups), Operator: f.Slots[s].Operator}
}

// Clone returns a deep copy.
func (f FormState) Clone() FormState {
	out := f
	out.StartDate = cloneTime(f.StartDate)
	out.EndDate = cloneTime(f.EndDate)
	for _, s := range Slots {
		out.Slots[s] = f.Slot(s)
	}
	return out
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}

// WithName returns f with the name replaced.
func (f FormState) WithName(name string) FormState {
	f.Name = name
	return f
}

// WithDescription returns f with the description replaced.
func (f FormState) WithDescription(description string) FormState {
	f.Description = description
	return f
}

// WithDates returns f with both dates replaced. nil clears a date.
func (f FormState) WithDates(start, end *time.Time) FormState {
	f.StartDate = cloneTime(start)
	f.EndDate = cloneTime(end)
	return f
}

// WithActive returns f with the active flag replaced.
func (f FormState) WithActive(active bool) FormState {
	f.IsActive = active
	return f
}

// WithDiscount returns f with the discount replaced.
func (f FormState) WithDiscount(discountType types.DiscountType, value float64) FormState {
	f.DiscountType = discountType
	f.DiscountValue = value
	return f
}

// formWire is the flat JSON layout of a form: one key per slot list and one
// per slot operator.
type formWire struct {
	Name                        string                `json:"name"`
	Description                 string                `json:"description"`
	StartDate                   *string               `json:"startDate"`
	EndDate                     *string               `json:"endDate"`
	IsActive                    bool                  `json:"isActive"`
	DiscountType                types.DiscountType    `json:"discountType"`
	DiscountValue               float64               `json:"discountValue"`
	QualifierInclusions         []types.RuleGroup     `json:"qualifierInclusions"`
	QualifierExclusions         []types.RuleGroup     `json:"qualifierExclusions"`
	TargetInclusions            []types.RuleGroup     `json:"targetInclusions"`
	TargetExclusions            []types.RuleGroup     `json:"targetExclusions"`
	QualifierInclusionsOperator types.LogicalOperator `json:"qualifierInclusionsOperator"`
	QualifierExclusionsOperator types.LogicalOperator `json:"qualifierExclusionsOperator"`
	TargetInclusionsOperator    types.LogicalOperator `json:"targetInclusionsOperator"`
	TargetExclusionsOperator    types.LogicalOperator `json:"targetExclusionsOperator"`
}

// MarshalJSON encodes the flat layout.
func (f FormState) MarshalJSON() ([]byte, error) {
	w := formWire{
		Name:                        f.Name,
		Description:                 f.Description,
		StartDate:                   encodeDate(f.StartDate),
		EndDate:                     encodeDate(f.EndDate),
		IsActive:                    f.IsActive,
		DiscountType:                f.DiscountType,
		DiscountValue:               f.DiscountValue,
		QualifierInclusions:         nonNil(f.Slots[QualifierInclusions].Groups),
		QualifierExclusions:         nonNil(f.Slots[QualifierExclusions].Groups),
		TargetInclusions:            nonNil(f.Slots[TargetInclusions].Groups),
		TargetExclusions:            nonNil(f.Slots[TargetExclusions].Groups),
		QualifierInclusionsOperator: f.Slots[QualifierInclusions].Operator,
		QualifierExclusionsOperator: f.Slots[QualifierExclusions].Operator,
		TargetInclusionsOperator:    f.Slots[TargetInclusions].Operator,
		TargetExclusionsOperator:    f.Slots[TargetExclusions].Operator,
	}
	return json.Marshal(w)
}

// UnmarshalJSON decodes the flat layout. Missing operators default to AND.
func (f *FormState) UnmarshalJSON(data []byte) error {
	var w formWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	start, err := decodeDate(w.StartDate)
	if err != nil {
		return errors.Wrap(err, "startDate")
	}
	end, err := decodeDate(w.EndDate)
	if err != nil {
		return errors.Wrap(err, "endDate")
	}
	*f = FormState{
		Name:          w.Name,
		Description:   w.Description,
		StartDate:     start,
		EndDate:       end,
		IsActive:      w.IsActive,
		DiscountType:  w.DiscountType,
		DiscountValue: w.DiscountValue,
	}
	f.Slots[QualifierInclusions] = decodedSlot(w.QualifierInclusions, w.QualifierInclusionsOperator)
	f.Slots[QualifierExclusions] = decodedSlot(w.QualifierExclusions, w.QualifierExclusionsOperator)
	f.Slots[TargetInclusions] = decodedSlot(w.TargetInclusions, w.TargetInclusionsOperator)
	f.Slots[TargetExclusions] = decodedSlot(w.TargetExclusions, w.TargetExclusionsOperator)
	return nil
}

func encodeDate(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.UTC().Format(time.RFC3339Nano)
	return &s
}

// decodeDate accepts RFC3339 or YYYY-MM-DD; null and "" mean unset.
func decodeDate(s *string) (*time.Time, error) {
	if s == nil || *s == "" {
		return nil, nil
	}
	t, err := types.ParseDate(*s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func decodedSlot(groups []types.RuleGroup, op types.LogicalOperator) RuleSlot {
	if op == "" {
		op = types.OperatorAnd
	}
	return RuleSlot{Groups: nonNil(groups), Operator: op}
}

func nonNil(groups []types.RuleGroup) []types.RuleGroup {
	if groups == nil {
		return []types.RuleGroup{}
	}
	return groups
}

// DecodeFormState reads a form document in YAML or JSON (flat layout).
// Condition values stay shape-tagged; run CoerceConditions to type them
// against the catalog.
func DecodeFormState(data []byte) (FormState, error) {
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return FormState{}, errors.Wrap(err, "decode form")
	}
	raw, err := json.Marshal(doc)
	if err != nil {
		return FormState{}, errors.Wrap(err, "decode form")
	}
	var fs FormState
	if err := json.Unmarshal(raw, &fs); err != nil {
		return FormState{}, errors.Wrap(err, "decode form")
	}
	return fs, nil
}
