package types

import (
	"encoding/json"
	"math"
	"testing"
	"time"

	"github.com/pkg/errors"
)

func TestValue_JSONTagged(t *testing.T) {
	date := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	tests := []struct {
		value Value
		want  string
	}{
		{StringValue("x"), `{"type":"string","value":"x"}`},
		{EnumValue("Black"), `{"type":"enum","value":"Black"}`},
		{NumberValue(20), `{"type":"number","value":20}`},
		{BoolValue(true), `{"type":"boolean","value":true}`},
		{DateValue(date), `{"type":"date","value":"2024-03-01T00:00:00Z"}`},
		{ListValue([]string{"S", "M"}), `{"type":"list","value":["S","M"]}`},
		{ListValue(nil), `{"type":"list","value":[]}`},
		{Value{}, `null`},
	}
	for _, tt := range tests {
		raw, err := json.Marshal(tt.value)
		if err != nil {
			t.Fatalf("Marshal(%v): %v", tt.value, err)
		}
		if string(raw) != tt.want {
			t.Errorf("Marshal = %s, want %s", raw, tt.want)
		}
		var back Value
		if err := json.Unmarshal(raw, &back); err != nil {
			t.Fatalf("Unmarshal(%s): %v", raw, err)
		}
		if !back.Equal(tt.value) {
			t.Errorf("Unmarshal(%s) = %#v", raw, back)
		}
	}
}

func TestValue_JSONKeepsSubSecondDates(t *testing.T) {
	v := DateValue(time.Date(2024, 6, 1, 10, 0, 0, 500_000_000, time.UTC))
	raw, err := json.Marshal(v)
	if err != nil {
		t.Fatal(err)
	}
	if want := `{"type":"date","value":"2024-06-01T10:00:00.5Z"}`; string(raw) != want {
		t.Errorf("Marshal = %s, want %s", raw, want)
	}
	var back Value
	if err := json.Unmarshal(raw, &back); err != nil {
		t.Fatal(err)
	}
	if !back.Equal(v) {
		t.Errorf("Unmarshal(%s) = %#v, want %#v", raw, back, v)
	}
}

func TestValue_JSONUntyped(t *testing.T) {
	tests := []struct {
		in   string
		want Value
	}{
		{`"Black"`, StringValue("Black")},
		{`12.5`, NumberValue(12.5)},
		{`false`, BoolValue(false)},
		{`["a","b"]`, ListValue([]string{"a", "b"})},
		{`null`, Value{}},
	}
	for _, tt := range tests {
		var v Value
		if err := json.Unmarshal([]byte(tt.in), &v); err != nil {
			t.Fatalf("Unmarshal(%s): %v", tt.in, err)
		}
		if !v.Equal(tt.want) {
			t.Errorf("Unmarshal(%s) = %#v, want %#v", tt.in, v, tt.want)
		}
	}
}

func TestValue_JSONErrors(t *testing.T) {
	for _, in := range []string{
		`{"type":"color","value":"x"}`,
		`{"type":"number","value":"x"}`,
		`{"type":"date","value":"soon"}`,
		`[1,2]`,
		`{"a":`,
	} {
		var v Value
		if err := json.Unmarshal([]byte(in), &v); err == nil {
			t.Errorf("Unmarshal(%s) error = nil, got %#v", in, v)
		}
	}
}

func TestFromRaw(t *testing.T) {
	if v, err := FromRaw(3); err != nil || !v.Equal(NumberValue(3)) {
		t.Errorf("FromRaw(int) = %v, %v", v, err)
	}
	if v, err := FromRaw([]any{"x", "y"}); err != nil || !v.Equal(ListValue([]string{"x", "y"})) {
		t.Errorf("FromRaw([]any) = %v, %v", v, err)
	}
	if _, err := FromRaw([]any{"x", 1.0}); !errors.Is(err, ErrValueTypeMismatch) {
		t.Errorf("FromRaw(mixed list) err = %v", err)
	}
	if _, err := FromRaw(struct{}{}); !errors.Is(err, ErrValueTypeMismatch) {
		t.Errorf("FromRaw(struct) err = %v", err)
	}
}

func TestValue_Format(t *testing.T) {
	tests := []struct {
		v    Value
		want string
	}{
		{NumberValue(20), "20"},
		{NumberValue(19.99), "19.99"},
		{BoolValue(true), "true"},
		{DateValue(time.Date(2024, 12, 25, 8, 0, 0, 0, time.UTC)), "2024-12-25"},
		{ListValue([]string{"S", "M"}), "S,M"},
		{Value{}, ""},
	}
	for _, tt := range tests {
		if got := tt.v.Format(); got != tt.want {
			t.Errorf("Format(%#v) = %q, want %q", tt.v, got, tt.want)
		}
	}
}

func TestValue_Equal(t *testing.T) {
	if StringValue("x").Equal(EnumValue("x")) {
		t.Error("string and enum with same text compare equal")
	}
	if NumberValue(math.NaN()).Equal(NumberValue(math.NaN())) {
		t.Error("NaN compares equal")
	}
	if !(Value{}).Equal(Value{}) {
		t.Error("unset values differ")
	}
}

func TestValue_AsListCopies(t *testing.T) {
	v := ListValue([]string{"a"})
	items, _ := v.AsList()
	items[0] = "z"
	if got, _ := v.AsList(); got[0] != "a" {
		t.Error("AsList exposed internal slice")
	}
}

func TestParseDate(t *testing.T) {
	for _, in := range []string{"2024-05-06", "2024-05-06T00:00:00Z", " 2024-05-06 ", "2024-05-06T02:00:00+02:00"} {
		got, err := ParseDate(in)
		if err != nil {
			t.Fatalf("ParseDate(%q): %v", in, err)
		}
		if !got.Equal(time.Date(2024, 5, 6, 0, 0, 0, 0, time.UTC)) || got.Location() != time.UTC {
			t.Errorf("ParseDate(%q) = %v", in, got)
		}
	}
	if _, err := ParseDate("05/06/2024"); !errors.Is(err, ErrValueTypeMismatch) {
		t.Errorf("ParseDate(bad) err = %v", err)
	}
}

func TestNewID(t *testing.T) {
	a, b := NewID(), NewID()
	if a == b {
		t.Fatal("NewID returned duplicates")
	}
	if _, err := ParseID(a); err != nil {
		t.Errorf("ParseID(%q): %v", a, err)
	}
	if _, err := ParseID("not-a-uuid"); err == nil {
		t.Error("ParseID accepted garbage")
	}
}
