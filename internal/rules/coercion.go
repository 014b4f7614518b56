// internal/rules/coercion.go
package rules

import (
	"math"
	"slices"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/solatis/promokeeper/internal/types"
)

/*
 * Type-indexed value construction and checking.
 *
 * Condition values are a tagged union (types.Value). They are built only
 * through this table, keyed by the attribute's declared type:
 *
 *   type     default              coercion from untyped input
 *   string   ""                   lenient: numbers/booleans rendered as text
 *   number   0                    strict: numeric strings parsed, booleans rejected
 *   boolean  false                strict: booleans only
 *   date     unset (empty)        RFC3339 or YYYY-MM-DD strings
 *   enum     first option or ""   must be one of the options; a string list
 *                                 is accepted when every item is an option
 *
 * An unset date is the "empty" default awaiting input. CheckValue accepts it
 * so a freshly reset condition is well-formed; compilation rejects it.
 */

// DefaultValue returns the value a condition takes when its attribute is
// (re)selected.
func DefaultValue(attr types.Attribute) types.Value {
	switch attr.Type {
	case types.ValueBoolean:
		return types.BoolValue(false)
	case types.ValueNumber:
		return types.NumberValue(0)
	case types.ValueEnum:
		if len(attr.Options) > 0 {
			return types.EnumValue(attr.Options[0])
		}
		return types.EnumValue("")
	case types.ValueDate:
		return types.Value{}
	default:
		return types.StringValue("")
	}
}

// ResetCondition points cond at attr with the default operator and value.
// The condition id is preserved.
func ResetCondition(cond types.Condition, attr types.Attribute) types.Condition {
	return types.Condition{
		ID:          cond.ID,
		AttributeID: attr.ID,
		Operator:    DefaultOperator,
		Value:       DefaultValue(attr),
	}
}

// CoerceValue converts untyped input (JSON/YAML scalars, strings from flags,
// or an already-tagged types.Value) into a value of the attribute's type.
// nil yields DefaultValue. Returns ErrValueTypeMismatch or
// ErrInvalidEnumOption when no conversion applies.
func CoerceValue(attr types.Attribute, raw any) (types.Value, error) {
	if raw == nil {
		return DefaultValue(attr), nil
	}
	v, err := types.FromRaw(raw)
	if err != nil {
		return types.Value{}, err
	}
	if v.IsZero() {
		return DefaultValue(attr), nil
	}

	var out types.Value
	switch attr.Type {
	case types.ValueString:
		out, err = coerceString(v)
	case types.ValueNumber:
		out, err = coerceNumber(v)
	case types.ValueBoolean:
		out, err = coerceBoolean(v)
	case types.ValueDate:
		out, err = coerceDate(v)
	case types.ValueEnum:
		out, err = coerceEnum(v)
	default:
		return types.Value{}, errors.Wrapf(types.ErrValueTypeMismatch, "attribute %s has unknown type %q", attr.ID, attr.Type)
	}
	if err != nil {
		return types.Value{}, errors.Wrapf(err, "attribute %s", attr.ID)
	}
	if err := CheckValue(attr, out); err != nil {
		return types.Value{}, err
	}
	return out, nil
}

// coerceString renders scalars as text. Lists have no text form.
func coerceString(v types.Value) (types.Value, error) {
	switch v.Kind() {
	case types.ValueString, types.ValueEnum:
		s, _ := v.AsString()
		return types.StringValue(s), nil
	case types.ValueNumber, types.ValueBoolean, types.ValueDate:
		return types.StringValue(v.Format()), nil
	default:
		return types.Value{}, errors.Wrapf(types.ErrValueTypeMismatch, "%s is not text", v.Kind())
	}
}

// coerceNumber accepts numbers and numeric strings (trimmed).
// Whitespace-only strings and booleans are rejected.
func coerceNumber(v types.Value) (types.Value, error) {
	switch v.Kind() {
	case types.ValueNumber:
		return v, nil
	case types.ValueString, types.ValueEnum:
		s, _ := v.AsString()
		s = strings.TrimSpace(s)
		if s == "" {
			return types.Value{}, errors.Wrap(types.ErrValueTypeMismatch, "empty number")
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return types.Value{}, errors.Wrapf(types.ErrValueTypeMismatch, "invalid number %q", s)
		}
		return types.NumberValue(f), nil
	default:
		return types.Value{}, errors.Wrapf(types.ErrValueTypeMismatch, "%s is not a number", v.Kind())
	}
}

// coerceBoolean is strict: no "true"/1 ambiguity.
func coerceBoolean(v types.Value) (types.Value, error) {
	if v.Kind() == types.ValueBoolean {
		return v, nil
	}
	return types.Value{}, errors.Wrapf(types.ErrValueTypeMismatch, "%s is not a boolean", v.Kind())
}

func coerceDate(v types.Value) (types.Value, error) {
	switch v.Kind() {
	case types.ValueDate:
		return v, nil
	case types.ValueString:
		s, _ := v.AsString()
		t, err := types.ParseDate(s)
		if err != nil {
			return types.Value{}, err
		}
		return types.DateValue(t), nil
	default:
		return types.Value{}, errors.Wrapf(types.ErrValueTypeMismatch, "%s is not a date", v.Kind())
	}
}

func coerceEnum(v types.Value) (types.Value, error) {
	switch v.Kind() {
	case types.ValueString, types.ValueEnum:
		s, _ := v.AsString()
		return types.EnumValue(s), nil
	case types.ValueList:
		return v, nil
	default:
		return types.Value{}, errors.Wrapf(types.ErrValueTypeMismatch, "%s is not an enum option", v.Kind())
	}
}

// CheckValue verifies the value's kind matches the attribute type and, for
// enums, that every chosen option exists.
func CheckValue(attr types.Attribute, v types.Value) error {
	switch attr.Type {
	case types.ValueString:
		if v.Kind() != types.ValueString {
			return mismatch(attr, v)
		}
	case types.ValueNumber:
		n, ok := v.AsNumber()
		if !ok {
			return mismatch(attr, v)
		}
		if math.IsNaN(n) || math.IsInf(n, 0) {
			return errors.Wrapf(types.ErrValueTypeMismatch, "attribute %s: number must be finite", attr.ID)
		}
	case types.ValueBoolean:
		if v.Kind() != types.ValueBoolean {
			return mismatch(attr, v)
		}
	case types.ValueDate:
		if v.Kind() != types.ValueDate && !v.IsZero() {
			return mismatch(attr, v)
		}
	case types.ValueEnum:
		return checkEnum(attr, v)
	default:
		return errors.Wrapf(types.ErrValueTypeMismatch, "attribute %s has unknown type %q", attr.ID, attr.Type)
	}
	return nil
}

func checkEnum(attr types.Attribute, v types.Value) error {
	switch v.Kind() {
	case types.ValueEnum:
		s, _ := v.AsString()
		if len(attr.Options) == 0 && s == "" {
			return nil
		}
		if !slices.Contains(attr.Options, s) {
			return errors.Wrapf(types.ErrInvalidEnumOption, "attribute %s: %q", attr.ID, s)
		}
		return nil
	case types.ValueList:
		items, _ := v.AsList()
		if len(items) == 0 {
			return errors.Wrapf(types.ErrValueTypeMismatch, "attribute %s: empty option list", attr.ID)
		}
		for _, item := range items {
			if !slices.Contains(attr.Options, item) {
				return errors.Wrapf(types.ErrInvalidEnumOption, "attribute %s: %q", attr.ID, item)
			}
		}
		return nil
	default:
		return mismatch(attr, v)
	}
}

func mismatch(attr types.Attribute, v types.Value) error {
	return errors.Wrapf(types.ErrValueTypeMismatch, "attribute %s is %s, value is %s", attr.ID, attr.Type, kindName(v))
}

func kindName(v types.Value) string {
	if v.IsZero() {
		return "unset"
	}
	return string(v.Kind())
}

// CheckCondition verifies operator legality and value shape for attr.
func CheckCondition(attr types.Attribute, cond types.Condition) error {
	if cond.AttributeID != attr.ID {
		return errors.Wrapf(types.ErrUnknownAttribute, "condition references %s, checked against %s", cond.AttributeID, attr.ID)
	}
	if !IsLegalOperator(attr.Type, cond.Operator) {
		return errors.Wrapf(types.ErrInvalidOperator, "%q on %s attribute %s", cond.Operator, attr.Type, attr.ID)
	}
	return CheckValue(attr, cond.Value)
}

// CheckAttribute verifies an attribute definition: a known type, and an
// option list present iff the type is enum.
func CheckAttribute(attr types.Attribute) error {
	if !attr.Type.Valid() {
		return errors.Wrapf(types.ErrValueTypeMismatch, "attribute %s has unknown type %q", attr.ID, attr.Type)
	}
	if attr.Type == types.ValueEnum {
		if len(attr.Options) == 0 {
			return errors.Errorf("enum attribute %s has no options", attr.ID)
		}
		if len(attr.Options) > types.MaxEnumOptions {
			return errors.Errorf("enum attribute %s has %d options, max %d", attr.ID, len(attr.Options), types.MaxEnumOptions)
		}
		return nil
	}
	if len(attr.Options) > 0 {
		return errors.Errorf("%s attribute %s must not declare options", attr.Type, attr.ID)
	}
	return nil
}
