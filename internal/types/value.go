package types

import (
	"encoding/json"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// ValueType is the declared type of an attribute, and the kind tag of a Value.
type ValueType string

const (
	ValueString  ValueType = "string"
	ValueNumber  ValueType = "number"
	ValueBoolean ValueType = "boolean"
	ValueDate    ValueType = "date"
	ValueEnum    ValueType = "enum"

	// ValueList tags a sequence of strings. It is never an attribute type;
	// only enum attributes accept it.
	ValueList ValueType = "list"
)

// Valid reports whether t is an attribute value type (ValueList excluded).
func (t ValueType) Valid() bool {
	switch t {
	case ValueString, ValueNumber, ValueBoolean, ValueDate, ValueEnum:
		return true
	default:
		return false
	}
}

// Value is the typed right-hand side of a condition.
// The zero Value is unset (Kind() == ""). Only the field matching the kind
// is meaningful; accessors report ok=false for any other kind.
type Value struct {
	kind    ValueType
	str     string
	num     float64
	boolean bool
	date    time.Time
	list    []string
}

// StringValue returns a string-kind value.
func StringValue(s string) Value { return Value{kind: ValueString, str: s} }

// NumberValue returns a number-kind value.
func NumberValue(f float64) Value { return Value{kind: ValueNumber, num: f} }

// BoolValue returns a boolean-kind value.
func BoolValue(b bool) Value { return Value{kind: ValueBoolean, boolean: b} }

// DateValue returns a date-kind value, normalised to UTC.
func DateValue(t time.Time) Value { return Value{kind: ValueDate, date: t.UTC()} }

// EnumValue returns an enum-kind value holding one option.
func EnumValue(option string) Value { return Value{kind: ValueEnum, str: option} }

// ListValue returns a list-kind value. The slice is copied.
func ListValue(items []string) Value {
	return Value{kind: ValueList, list: slices.Clone(items)}
}

// Kind returns the value's tag, or "" when unset.
func (v Value) Kind() ValueType { return v.kind }

// IsZero reports whether the value is unset.
func (v Value) IsZero() bool { return v.kind == "" }

// AsString returns the text of a string or enum value.
func (v Value) AsString() (string, bool) {
	if v.kind == ValueString || v.kind == ValueEnum {
		return v.str, true
	}
	return "", false
}

// AsNumber returns the number of a number value.
func (v Value) AsNumber() (float64, bool) {
	return v.num, v.kind == ValueNumber
}

// AsBool returns the flag of a boolean value.
func (v Value) AsBool() (bool, bool) {
	return v.boolean, v.kind == ValueBoolean
}

// AsDate returns the instant of a date value.
func (v Value) AsDate() (time.Time, bool) {
	return v.date, v.kind == ValueDate
}

// AsList returns a copy of the items of a list value.
func (v Value) AsList() ([]string, bool) {
	if v.kind != ValueList {
		return nil, false
	}
	return slices.Clone(v.list), true
}

// Equal reports whether both values carry the same kind and payload.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case ValueString, ValueEnum:
		return v.str == o.str
	case ValueNumber:
		return v.num == o.num
	case ValueBoolean:
		return v.boolean == o.boolean
	case ValueDate:
		return v.date.Equal(o.date)
	case ValueList:
		return slices.Equal(v.list, o.list)
	default:
		return true
	}
}

// Format renders the value for display: numbers without trailing zeros,
// dates as YYYY-MM-DD, lists comma-joined.
func (v Value) Format() string {
	switch v.kind {
	case ValueString, ValueEnum:
		return v.str
	case ValueNumber:
		return strconv.FormatFloat(v.num, 'f', -1, 64)
	case ValueBoolean:
		return strconv.FormatBool(v.boolean)
	case ValueDate:
		return v.date.Format(time.DateOnly)
	case ValueList:
		return strings.Join(v.list, ",")
	default:
		return ""
	}
}

// Raw returns the untyped payload (string, float64, bool, time.Time,
// []string) or nil when unset.
func (v Value) Raw() any {
	switch v.kind {
	case ValueString, ValueEnum:
		return v.str
	case ValueNumber:
		return v.num
	case ValueBoolean:
		return v.boolean
	case ValueDate:
		return v.date
	case ValueList:
		return slices.Clone(v.list)
	default:
		return nil
	}
}

// wireValue is the tagged JSON form: {"type":"number","value":20}.
type wireValue struct {
	Type  ValueType       `json:"type"`
	Value json.RawMessage `json:"value"`
}

// MarshalJSON encodes the value in tagged form. Unset values encode as null.
func (v Value) MarshalJSON() ([]byte, error) {
	if v.kind == "" {
		return []byte("null"), nil
	}
	var payload any
	switch v.kind {
	case ValueDate:
		payload = v.date.Format(time.RFC3339Nano)
	case ValueList:
		payload = v.list
		if v.list == nil {
			payload = []string{}
		}
	default:
		payload = v.Raw()
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(wireValue{Type: v.kind, Value: raw})
}

// UnmarshalJSON accepts the tagged form, or an untyped JSON scalar/array.
// Untyped input is tagged by JSON shape only (string, number, boolean,
// list); re-typing against an attribute is rules.CoerceValue's job.
func (v *Value) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "null" || trimmed == "" {
		*v = Value{}
		return nil
	}

	if strings.HasPrefix(trimmed, "{") {
		var w wireValue
		if err := json.Unmarshal(data, &w); err != nil {
			return errors.Wrap(err, "decode tagged value")
		}
		return v.decodeTagged(w)
	}

	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return errors.Wrap(err, "decode value")
	}
	decoded, err := FromRaw(raw)
	if err != nil {
		return err
	}
	*v = decoded
	return nil
}

func (v *Value) decodeTagged(w wireValue) error {
	switch w.Type {
	case ValueString, ValueEnum:
		var s string
		if err := json.Unmarshal(w.Value, &s); err != nil {
			return errors.Wrapf(ErrValueTypeMismatch, "%s value: %v", w.Type, err)
		}
		*v = Value{kind: w.Type, str: s}
	case ValueNumber:
		var f float64
		if err := json.Unmarshal(w.Value, &f); err != nil {
			return errors.Wrapf(ErrValueTypeMismatch, "number value: %v", err)
		}
		*v = NumberValue(f)
	case ValueBoolean:
		var b bool
		if err := json.Unmarshal(w.Value, &b); err != nil {
			return errors.Wrapf(ErrValueTypeMismatch, "boolean value: %v", err)
		}
		*v = BoolValue(b)
	case ValueDate:
		var s string
		if err := json.Unmarshal(w.Value, &s); err != nil {
			return errors.Wrapf(ErrValueTypeMismatch, "date value: %v", err)
		}
		t, err := ParseDate(s)
		if err != nil {
			return err
		}
		*v = DateValue(t)
	case ValueList:
		var items []string
		if err := json.Unmarshal(w.Value, &items); err != nil {
			return errors.Wrapf(ErrValueTypeMismatch, "list value: %v", err)
		}
		*v = ListValue(items)
	default:
		return errors.Wrapf(ErrValueTypeMismatch, "unknown value type %q", w.Type)
	}
	return nil
}

// FromRaw tags an untyped Go value by its shape. Accepts what encoding/json,
// yaml.v3 and structpb produce, plus time.Time.
func FromRaw(raw any) (Value, error) {
	switch r := raw.(type) {
	case nil:
		return Value{}, nil
	case Value:
		return r, nil
	case string:
		return StringValue(r), nil
	case bool:
		return BoolValue(r), nil
	case float64:
		return NumberValue(r), nil
	case float32:
		return NumberValue(float64(r)), nil
	case int:
		return NumberValue(float64(r)), nil
	case int64:
		return NumberValue(float64(r)), nil
	case time.Time:
		return DateValue(r), nil
	case []string:
		return ListValue(r), nil
	case []any:
		items := make([]string, 0, len(r))
		for _, item := range r {
			s, ok := item.(string)
			if !ok {
				return Value{}, errors.Wrapf(ErrValueTypeMismatch, "list element %v is not a string", item)
			}
			items = append(items, s)
		}
		return ListValue(items), nil
	default:
		return Value{}, errors.Wrapf(ErrValueTypeMismatch, "unsupported value %T", raw)
	}
}

// ParseDate accepts RFC3339 timestamps or bare YYYY-MM-DD dates (UTC).
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return time.Time{}, errors.Wrapf(ErrValueTypeMismatch, "invalid date %q", s)
	}
	return t.UTC(), nil
}
