package promotion

import (
	"github.com/pkg/errors"
	"github.com/solatis/promokeeper/internal/types"
)

// Slot addresses one of the four rule positions of a promotion:
// (Qualifier|Target) x (Inclusion|Exclusion).
type Slot int

const (
	QualifierInclusions Slot = iota
	QualifierExclusions
	TargetInclusions
	TargetExclusions

	slotCount
)

// Slots lists every slot in emission order.
var Slots = [slotCount]Slot{QualifierInclusions, QualifierExclusions, TargetInclusions, TargetExclusions}

var slotNames = [slotCount]string{
	"qualifierInclusions",
	"qualifierExclusions",
	"targetInclusions",
	"targetExclusions",
}

// SlotFor maps addressing coordinates to a slot. ok is false for an
// unknown rule type.
func SlotFor(ruleType types.RuleType, isInclusion bool) (slot Slot, ok bool) {
	switch ruleType {
	case types.RuleTypeQualifier:
		if isInclusion {
			return QualifierInclusions, true
		}
		return QualifierExclusions, true
	case types.RuleTypeTarget:
		if isInclusion {
			return TargetInclusions, true
		}
		return TargetExclusions, true
	default:
		return 0, false
	}
}

// ParseSlot accepts the camelCase slot names used in form files and the API.
func ParseSlot(name string) (Slot, error) {
	for i, n := range slotNames {
		if n == name {
			return Slot(i), nil
		}
	}
	return 0, errors.Errorf("unknown slot %q", name)
}

// Valid reports whether s is one of the four slots.
func (s Slot) Valid() bool { return s >= 0 && s < slotCount }

// RuleType returns the role half of the slot address.
func (s Slot) RuleType() types.RuleType {
	if s == QualifierInclusions || s == QualifierExclusions {
		return types.RuleTypeQualifier
	}
	return types.RuleTypeTarget
}

// IsInclusion returns the inclusion half of the slot address.
func (s Slot) IsInclusion() bool {
	return s == QualifierInclusions || s == TargetInclusions
}

// Mandatory reports whether the slot must always hold at least one group.
// Inclusions are mandatory; exclusions may be empty.
func (s Slot) Mandatory() bool { return s.IsInclusion() }

func (s Slot) String() string {
	if !s.Valid() {
		return "invalidSlot"
	}
	return slotNames[s]
}
