package promotion

import (
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/solatis/promokeeper/internal/types"
)

// Form field keys reported by Validate.
const (
	FieldName                = "name"
	FieldEndDate             = "endDate"
	FieldDiscountValue       = "discountValue"
	FieldQualifierInclusions = "qualifierInclusions"
	FieldTargetInclusions    = "targetInclusions"
)

// ValidationErrors maps a form field key to a human-readable message.
// Empty means valid. It implements error for API and CLI surfaces.
type ValidationErrors map[string]string

// Valid reports whether no field failed.
func (v ValidationErrors) Valid() bool { return len(v) == 0 }

// Fields returns the failing field keys in sorted order.
func (v ValidationErrors) Fields() []string {
	fields := make([]string, 0, len(v))
	for f := range v {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	return fields
}

func (v ValidationErrors) Error() string {
	parts := make([]string, 0, len(v))
	for _, f := range v.Fields() {
		parts = append(parts, f+": "+v[f])
	}
	return "invalid promotion: " + strings.Join(parts, "; ")
}

// Validate checks a form. Every check runs; the result holds at most one
// message per field.
//
// Exclusion slots are not checked: they may be empty, and their groups may
// be empty too.
func Validate(fs FormState) ValidationErrors {
	errs := ValidationErrors{}

	if strings.TrimSpace(fs.Name) == "" {
		errs[FieldName] = "Name is required"
	} else if utf8.RuneCountInString(fs.Name) > types.MaxNameLength {
		errs[FieldName] = "Name must be less than 100 characters"
	}

	if fs.StartDate != nil && fs.EndDate != nil && fs.StartDate.After(*fs.EndDate) {
		errs[FieldEndDate] = "End date must be after start date"
	}

	if fs.DiscountType != types.DiscountBOGO {
		if fs.DiscountValue <= 0 {
			errs[FieldDiscountValue] = "Discount value must be greater than 0"
		}
		if fs.DiscountType == types.DiscountPercentage && fs.DiscountValue > 100 {
			errs[FieldDiscountValue] = "Percentage discount cannot exceed 100%"
		}
	}

	if msg, bad := checkInclusions(fs.Slots[QualifierInclusions].Groups, "At least one qualifier inclusion is required"); bad {
		errs[FieldQualifierInclusions] = msg
	}
	if msg, bad := checkInclusions(fs.Slots[TargetInclusions].Groups, "At least one target inclusion is required"); bad {
		errs[FieldTargetInclusions] = msg
	}

	return errs
}

func checkInclusions(groups []types.RuleGroup, emptyMsg string) (string, bool) {
	if len(groups) == 0 {
		return emptyMsg, true
	}
	for _, g := range groups {
		if len(g.Conditions) == 0 {
			return "All rule groups must have at least one condition", true
		}
	}
	return "", false
}
