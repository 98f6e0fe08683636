package types

import (
	"testing"
)

func TestNewCollectionFlattening(t *testing.T) {
	tests := []struct {
		name  string
		items []Value
		want  Collection
	}{
		{
			name:  "scalars pass through",
			items: []Value{Integer(1), String("a")},
			want:  Collection{Integer(1), String("a")},
		},
		{
			name:  "empty items are dropped",
			items: []Value{Integer(1), EmptyValue, Integer(2), nil},
			want:  Collection{Integer(1), Integer(2)},
		},
		{
			name:  "nested collections flatten",
			items: []Value{Collection{Integer(1), Integer(2)}, Integer(3)},
			want:  Collection{Integer(1), Integer(2), Integer(3)},
		},
		{
			name:  "empty collections contribute nothing",
			items: []Value{Collection{}, Collection{Integer(1)}},
			want:  Collection{Integer(1)},
		},
		{
			name:  "no items",
			items: nil,
			want:  Collection{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NewCollection(tt.items...)
			if !got.Equal(tt.want) {
				t.Errorf("NewCollection() = %s, want %s", Repr(got), Repr(tt.want))
			}
			// No element may be a Collection or Empty after flattening.
			for i, item := range got {
				switch item.(type) {
				case Collection, Empty:
					t.Errorf("element %d is %T, collections must be flat", i, item)
				}
			}
		})
	}
}

func TestIsEmpty(t *testing.T) {
	tests := []struct {
		name string
		v    Value
		want bool
	}{
		{"nil", nil, true},
		{"empty value", EmptyValue, true},
		{"zero-length collection", Collection{}, true},
		{"non-empty collection", Collection{Integer(1)}, false},
		{"scalar", Boolean(false), false},
		{"empty string is a value", String(""), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsEmpty(tt.v); got != tt.want {
				t.Errorf("IsEmpty(%s) = %v, want %v", Repr(tt.v), got, tt.want)
			}
		})
	}
}

func TestEmptyAndEmptyCollectionInterchangeable(t *testing.T) {
	if !EmptyValue.Equal(Collection{}) {
		t.Error("Empty must equal a zero-length Collection")
	}
	if !(Collection{}).Equal(EmptyValue) {
		t.Error("a zero-length Collection must equal Empty")
	}
}

func TestFromJSON(t *testing.T) {
	tests := []struct {
		name string
		raw  interface{}
		want Value
	}{
		{"null", nil, EmptyValue},
		{"bool", true, Boolean(true)},
		{"string", "hello", String("hello")},
		{"integral float", float64(42), Integer(42)},
		{"fractional float", 3.14, Decimal(3.14)},
		{"negative integral", float64(-7), Integer(-7)},
		{
			"array flattens",
			[]interface{}{float64(1), []interface{}{float64(2), float64(3)}},
			Collection{Integer(1), Integer(2), Integer(3)},
		},
		{
			"array drops nulls",
			[]interface{}{"a", nil, "b"},
			Collection{String("a"), String("b")},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FromJSON(tt.raw)
			if !got.Equal(tt.want) {
				t.Errorf("FromJSON(%v) = %s, want %s", tt.raw, Repr(got), Repr(tt.want))
			}
		})
	}
}

func TestFromJSONObject(t *testing.T) {
	raw := map[string]interface{}{
		"resourceType": "Patient",
		"id":           "p1",
		"active":       true,
	}
	v := FromJSON(raw)
	r, ok := v.(Resource)
	if !ok {
		t.Fatalf("FromJSON(object) = %T, want Resource", v)
	}
	if r.ResourceType() != "Patient" {
		t.Errorf("ResourceType() = %q, want Patient", r.ResourceType())
	}
	if r.ID() != "p1" {
		t.Errorf("ID() = %q, want p1", r.ID())
	}
	if _, ok := r.GetString("active"); ok {
		t.Error("GetString on a boolean field must report false")
	}
}

func TestNumericCrossTypeEquality(t *testing.T) {
	if !Integer(2).Equal(Decimal(2.0)) {
		t.Error("Integer(2) must equal Decimal(2.0)")
	}
	if !Decimal(2.0).Equal(Integer(2)) {
		t.Error("Decimal(2.0) must equal Integer(2)")
	}
	if Integer(2).Equal(Decimal(2.5)) {
		t.Error("Integer(2) must not equal Decimal(2.5)")
	}
	if Integer(1).Equal(String("1")) {
		t.Error("Integer must not equal String")
	}
}

func TestResourceClone(t *testing.T) {
	original := NewResource(map[string]interface{}{
		"resourceType": "Patient",
		"name": []interface{}{
			map[string]interface{}{"family": "Chalmers"},
		},
	})
	clone := original.Clone()
	if !clone.Equal(original) {
		t.Fatal("clone must equal the original")
	}

	nested := clone.Data()["name"].([]interface{})[0].(map[string]interface{})
	nested["family"] = "Mutated"
	if original.Equal(clone) {
		t.Error("mutating the clone must not affect the original")
	}
}

func TestToNativeRoundTrip(t *testing.T) {
	c := NewCollection(Integer(1), String("x"), Boolean(true))
	native, ok := ToNative(c).([]interface{})
	if !ok {
		t.Fatalf("ToNative(Collection) = %T, want []interface{}", ToNative(c))
	}
	if len(native) != 3 {
		t.Fatalf("len = %d, want 3", len(native))
	}
	if native[0] != int64(1) || native[1] != "x" || native[2] != true {
		t.Errorf("ToNative = %v", native)
	}
	if ToNative(EmptyValue) != nil {
		t.Error("ToNative(Empty) must be nil")
	}
}

func TestSingleton(t *testing.T) {
	if _, ok := Singleton(Collection{Integer(1), Integer(2)}); ok {
		t.Error("two-element collection must not be a singleton")
	}
	if _, ok := Singleton(EmptyValue); ok {
		t.Error("empty must not be a singleton")
	}
	v, ok := Singleton(Collection{String("only")})
	if !ok || !v.Equal(String("only")) {
		t.Errorf("Singleton(one-element) = %s, %v", Repr(v), ok)
	}
	v, ok = Singleton(Integer(5))
	if !ok || !v.Equal(Integer(5)) {
		t.Errorf("Singleton(scalar) = %s, %v", Repr(v), ok)
	}
}
