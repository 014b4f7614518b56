package promotion

import (
	"reflect"
	"strings"
	"testing"

	"github.com/solatis/promokeeper/internal/types"
)

// validForm is a complete promotion: a color qualifier and a price target.
func validForm() FormState {
	fs := NewFormState().WithName("Summer Sale").WithDates(day("2024-06-01"), day("2024-08-31"))
	fs = AddCondition(fs, QualifierInclusions, 0, "color1-a1", "=", types.EnumValue("Black"))
	fs = AddCondition(fs, TargetInclusions, 0, "price1-a1", ">=", types.NumberValue(20))
	return fs
}

func TestValidate_NewForm(t *testing.T) {
	errs := Validate(NewFormState())

	want := []string{FieldName, FieldQualifierInclusions, FieldTargetInclusions}
	if got := errs.Fields(); !reflect.DeepEqual(got, want) {
		t.Fatalf("Fields() = %v, want %v", got, want)
	}
	if errs[FieldName] != "Name is required" {
		t.Errorf("name message = %q", errs[FieldName])
	}
	if errs[FieldQualifierInclusions] != "All rule groups must have at least one condition" {
		t.Errorf("qualifierInclusions message = %q", errs[FieldQualifierInclusions])
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		edit func(FormState) FormState
		want map[string]string
	}{
		{
			name: "complete form",
			edit: func(fs FormState) FormState { return fs },
			want: map[string]string{},
		},
		{
			name: "blank name",
			edit: func(fs FormState) FormState { return fs.WithName("   ") },
			want: map[string]string{FieldName: "Name is required"},
		},
		{
			name: "long name",
			edit: func(fs FormState) FormState { return fs.WithName(strings.Repeat("x", 101)) },
			want: map[string]string{FieldName: "Name must be less than 100 characters"},
		},
		{
			name: "name at limit",
			edit: func(fs FormState) FormState { return fs.WithName(strings.Repeat("é", 100)) },
			want: map[string]string{},
		},
		{
			name: "end before start",
			edit: func(fs FormState) FormState { return fs.WithDates(day("2024-09-01"), day("2024-08-01")) },
			want: map[string]string{FieldEndDate: "End date must be after start date"},
		},
		{
			name: "same day",
			edit: func(fs FormState) FormState { return fs.WithDates(day("2024-09-01"), day("2024-09-01")) },
			want: map[string]string{},
		},
		{
			name: "unset dates",
			edit: func(fs FormState) FormState { return fs.WithDates(nil, day("2024-01-01")) },
			want: map[string]string{},
		},
		{
			name: "percentage over 100",
			edit: func(fs FormState) FormState { return fs.WithDiscount(types.DiscountPercentage, 150) },
			want: map[string]string{FieldDiscountValue: "Percentage discount cannot exceed 100%"},
		},
		{
			name: "zero fixed discount",
			edit: func(fs FormState) FormState { return fs.WithDiscount(types.DiscountFixed, 0) },
			want: map[string]string{FieldDiscountValue: "Discount value must be greater than 0"},
		},
		{
			name: "large fixed discount",
			edit: func(fs FormState) FormState { return fs.WithDiscount(types.DiscountFixed, 500) },
			want: map[string]string{},
		},
		{
			name: "bogo ignores value",
			edit: func(fs FormState) FormState { return fs.WithDiscount(types.DiscountBOGO, 0) },
			want: map[string]string{},
		},
		{
			name: "no target groups",
			edit: func(fs FormState) FormState {
				fs.Slots[TargetInclusions].Groups = []types.RuleGroup{}
				return fs
			},
			want: map[string]string{FieldTargetInclusions: "At least one target inclusion is required"},
		},
		{
			name: "empty second qualifier group",
			edit: func(fs FormState) FormState { return AddRuleGroup(fs, QualifierInclusions) },
			want: map[string]string{FieldQualifierInclusions: "All rule groups must have at least one condition"},
		},
		{
			name: "black or blue qualifier group",
			edit: func(fs FormState) FormState {
				fs.Slots[QualifierInclusions].Groups = []types.RuleGroup{types.NewRuleGroup(types.OperatorOr)}
				fs = AddCondition(fs, QualifierInclusions, 0, "color1-a1", "=", types.EnumValue("Black"))
				return AddCondition(fs, QualifierInclusions, 0, "color1-a1", "=", types.EnumValue("Blue"))
			},
			want: map[string]string{},
		},
		{
			name: "empty exclusion group",
			edit: func(fs FormState) FormState { return AddRuleGroup(fs, TargetExclusions) },
			want: map[string]string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Validate(tt.edit(validForm()))
			if !reflect.DeepEqual(map[string]string(got), tt.want) {
				t.Errorf("Validate() = %v, want %v", got, tt.want)
			}
			if got.Valid() != (len(tt.want) == 0) {
				t.Errorf("Valid() = %v", got.Valid())
			}
		})
	}
}

func TestValidationErrors_Error(t *testing.T) {
	errs := ValidationErrors{
		FieldTargetInclusions: "b",
		FieldName:             "a",
	}
	want := "invalid promotion: name: a; targetInclusions: b"
	if errs.Error() != want {
		t.Errorf("Error() = %q, want %q", errs.Error(), want)
	}
}
