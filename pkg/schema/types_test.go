package schema

import (
	"fmt"
	"testing"
)

func TestStringType(t *testing.T) {
	typ := String()

	if typ.Name() != "string" {
		t.Errorf("Name() = %q, want %q", typ.Name(), "string")
	}
	if typ.JSONType() != "string" {
		t.Errorf("JSONType() = %q, want %q", typ.JSONType(), "string")
	}

	tests := []struct {
		value   any
		wantErr bool
	}{
		{"hello", false},
		{"", false},
		{42, true},
		{3.14, true},
		{true, true},
		{nil, true},
	}

	for _, tt := range tests {
		err := typ.Validate(tt.value)
		if (err != nil) != tt.wantErr {
			t.Errorf("Validate(%v) error = %v, wantErr %v", tt.value, err, tt.wantErr)
		}
	}
}

func TestIntType(t *testing.T) {
	typ := Int()

	if typ.Name() != "int" {
		t.Errorf("Name() = %q, want %q", typ.Name(), "int")
	}
	if typ.JSONType() != "integer" {
		t.Errorf("JSONType() = %q, want %q", typ.JSONType(), "integer")
	}

	tests := []struct {
		value   any
		wantErr bool
	}{
		{42, false},
		{int8(42), false},
		{int16(42), false},
		{int32(42), false},
		{int64(42), false},
		{float64(42), false}, // whole number
		{float64(42.5), true},
		{"42", true},
		{true, true},
		{nil, true},
	}

	for _, tt := range tests {
		err := typ.Validate(tt.value)
		if (err != nil) != tt.wantErr {
			t.Errorf("Validate(%v) error = %v, wantErr %v", tt.value, err, tt.wantErr)
		}
	}
}

func TestFloatType(t *testing.T) {
	typ := Float()

	if typ.Name() != "float" {
		t.Errorf("Name() = %q, want %q", typ.Name(), "float")
	}
	if typ.JSONType() != "number" {
		t.Errorf("JSONType() = %q, want %q", typ.JSONType(), "number")
	}

	tests := []struct {
		value   any
		wantErr bool
	}{
		{3.14, false},
		{float32(3.14), false},
		{42, false},
		{int64(42), false},
		{"3.14", true},
		{true, true},
		{nil, true},
	}

	for _, tt := range tests {
		err := typ.Validate(tt.value)
		if (err != nil) != tt.wantErr {
			t.Errorf("Validate(%v) error = %v, wantErr %v", tt.value, err, tt.wantErr)
		}
	}
}

func TestBoolType(t *testing.T) {
	typ := Bool()

	if typ.Name() != "bool" {
		t.Errorf("Name() = %q, want %q", typ.Name(), "bool")
	}

	tests := []struct {
		value   any
		wantErr bool
	}{
		{true, false},
		{false, false},
		{1, true},
		{"true", true},
		{nil, true},
	}

	for _, tt := range tests {
		err := typ.Validate(tt.value)
		if (err != nil) != tt.wantErr {
			t.Errorf("Validate(%v) error = %v, wantErr %v", tt.value, err, tt.wantErr)
		}
	}
}

func TestSliceType(t *testing.T) {
	typ := Slice(Int())

	if typ.Name() != "[int]" {
		t.Errorf("Name() = %q, want %q", typ.Name(), "[int]")
	}
	if typ.JSONType() != "array" {
		t.Errorf("JSONType() = %q, want %q", typ.JSONType(), "array")
	}

	tests := []struct {
		value   any
		wantErr bool
	}{
		{[]int{1, 2, 3}, false},
		{[]any{1, 2, 3}, false},
		{[]any{float64(4)}, false},
		{[]any{1, "two"}, true},
		{"not a slice", true},
		{nil, true},
	}

	for _, tt := range tests {
		err := typ.Validate(tt.value)
		if (err != nil) != tt.wantErr {
			t.Errorf("Validate(%v) error = %v, wantErr %v", tt.value, err, tt.wantErr)
		}
	}
}

func TestAnyType(t *testing.T) {
	typ := Any()

	if typ.Name() != "any" {
		t.Errorf("Name() = %q, want %q", typ.Name(), "any")
	}
	if typ.JSONType() != "" {
		t.Errorf("JSONType() = %q, want empty", typ.JSONType())
	}

	for _, v := range []any{nil, 1, "x", true, []any{1}, map[string]any{"k": 1}} {
		if err := typ.Validate(v); err != nil {
			t.Errorf("Validate(%v) error = %v, want nil", v, err)
		}
	}
}

func TestCustomType(t *testing.T) {
	typ := Custom("positive", func(v any) error {
		f, ok := v.(float64)
		if !ok {
			return fmt.Errorf("expected number")
		}
		if f <= 0 {
			return fmt.Errorf("must be positive")
		}
		return nil
	})

	if typ.Name() != "positive" {
		t.Errorf("Name() = %q, want %q", typ.Name(), "positive")
	}
	if err := typ.Validate(float64(3)); err != nil {
		t.Errorf("Validate(3) error = %v, want nil", err)
	}
	if err := typ.Validate(float64(-1)); err == nil {
		t.Error("Validate(-1) should fail")
	}
}

func TestParseType(t *testing.T) {
	tests := []struct {
		input    string
		wantName string
		wantErr  bool
	}{
		{"string", "string", false},
		{"int", "int", false},
		{"float", "float", false},
		{"bool", "bool", false},
		{"any", "any", false},
		{"[string]", "[string]", false},
		{"[[int]]", "[[int]]", false},
		{"decimal", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		typ, err := ParseType(tt.input)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseType(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			continue
		}
		if err == nil && typ.Name() != tt.wantName {
			t.Errorf("ParseType(%q).Name() = %q, want %q", tt.input, typ.Name(), tt.wantName)
		}
	}
}

func TestFromJSONType(t *testing.T) {
	tests := []struct {
		input    string
		wantName string
	}{
		{"string", "string"},
		{"integer", "int"},
		{"number", "float"},
		{"boolean", "bool"},
		{"array", "[any]"},
		{"object", "any"},
		{"", "any"},
	}

	for _, tt := range tests {
		if got := FromJSONType(tt.input).Name(); got != tt.wantName {
			t.Errorf("FromJSONType(%q).Name() = %q, want %q", tt.input, got, tt.wantName)
		}
	}
}

func TestParseTypeMap(t *testing.T) {
	typeMap := map[string]string{
		"platform": "string",
		"players":  "[int]",
	}

	s, err := ParseTypeMap(typeMap)
	if err != nil {
		t.Fatalf("ParseTypeMap() error = %v", err)
	}
	if s["platform"].Name() != "string" {
		t.Errorf("platform type = %q, want string", s["platform"].Name())
	}
	if s["players"].Name() != "[int]" {
		t.Errorf("players type = %q, want [int]", s["players"].Name())
	}

	if _, err := ParseTypeMap(map[string]string{"x": "matrix"}); err == nil {
		t.Error("ParseTypeMap should reject unknown type names")
	}
}
