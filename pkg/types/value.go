package types

import (
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"
)

// Value is the runtime value produced by FHIRPath evaluation.
//
// The concrete types are a closed set: Empty, Boolean, Integer, Decimal,
// String, Date, DateTime, Time, Resource and Collection. Values are
// immutable after construction; evaluation never mutates a Value in place.
type Value interface {
	// Equal reports structural equality with another Value.
	Equal(other Value) bool

	value()
}

// Empty is the absence of a value. It is distinct from a zero-length
// Collection at the type level, but the two are interchangeable: every
// consumer must apply the same empty-propagation rules to both.
type Empty struct{}

// EmptyValue is the shared Empty instance.
var EmptyValue = Empty{}

func (Empty) value() {}

// Equal reports true only against another Empty or a zero-length Collection.
func (Empty) Equal(other Value) bool {
	return IsEmpty(other)
}

// Boolean is a FHIRPath boolean value.
type Boolean bool

func (Boolean) value() {}

func (b Boolean) Equal(other Value) bool {
	o, ok := other.(Boolean)
	return ok && b == o
}

// Integer is a FHIRPath integer value.
type Integer int64

func (Integer) value() {}

func (i Integer) Equal(other Value) bool {
	switch o := other.(type) {
	case Integer:
		return i == o
	case Decimal:
		return float64(i) == float64(o)
	}
	return false
}

// Decimal is a FHIRPath decimal value.
type Decimal float64

func (Decimal) value() {}

func (d Decimal) Equal(other Value) bool {
	switch o := other.(type) {
	case Decimal:
		return d == o
	case Integer:
		return float64(d) == float64(o)
	}
	return false
}

// String is a FHIRPath string value.
type String string

func (String) value() {}

func (s String) Equal(other Value) bool {
	o, ok := other.(String)
	return ok && s == o
}

// Date is a FHIRPath date value.
//
// The literal form is kept verbatim (FHIR dates may be partial: "2020",
// "2020-03", "2020-03-14"). ISO-8601 literals of equal precision order
// lexicographically, which is what comparison operators rely on.
type Date struct {
	Lit string
}

func (Date) value() {}

func (d Date) Equal(other Value) bool {
	o, ok := other.(Date)
	return ok && d.Lit == o.Lit
}

func (d Date) String() string { return "@" + d.Lit }

// DateTime is a FHIRPath dateTime value, literal form kept verbatim.
type DateTime struct {
	Lit string
}

func (DateTime) value() {}

func (d DateTime) Equal(other Value) bool {
	o, ok := other.(DateTime)
	return ok && d.Lit == o.Lit
}

func (d DateTime) String() string { return "@" + d.Lit }

// Time is a FHIRPath time-of-day value, literal form kept verbatim.
type Time struct {
	Lit string
}

func (Time) value() {}

func (t Time) Equal(other Value) bool {
	o, ok := other.(Time)
	return ok && t.Lit == o.Lit
}

func (t Time) String() string { return "@T" + t.Lit }

// Resource wraps a structured document node (an object in the generic
// JSON tree sense). It exposes field lookup by key and the resourceType
// discriminator; the engine never assumes a specific serialization.
type Resource struct {
	data map[string]interface{}
}

// NewResource wraps a decoded document object. The caller must not mutate
// the map after handing it over.
func NewResource(data map[string]interface{}) Resource {
	return Resource{data: data}
}

func (Resource) value() {}

// Equal compares the underlying structured content.
func (r Resource) Equal(other Value) bool {
	o, ok := other.(Resource)
	return ok && reflect.DeepEqual(r.data, o.data)
}

// Get returns the raw field value for key.
func (r Resource) Get(key string) (interface{}, bool) {
	v, ok := r.data[key]
	return v, ok
}

// GetString returns the field value for key when it is a string.
func (r Resource) GetString(key string) (string, bool) {
	v, ok := r.data[key]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// ResourceType returns the resourceType discriminator, or "" if absent.
func (r Resource) ResourceType() string {
	rt, _ := r.GetString("resourceType")
	return rt
}

// ID returns the logical id of the resource, or "" if absent.
func (r Resource) ID() string {
	id, _ := r.GetString("id")
	return id
}

// Data returns the underlying object. Read-only by convention.
func (r Resource) Data() map[string]interface{} {
	return r.data
}

// Clone returns a Resource backed by a deep copy of the content. Used by
// reference resolution so results never alias the source document.
func (r Resource) Clone() Resource {
	return Resource{data: deepCopyObject(r.data)}
}

func (r Resource) String() string {
	rt := r.ResourceType()
	if rt == "" {
		rt = "object"
	}
	if id := r.ID(); id != "" {
		return rt + "/" + id
	}
	return rt
}

// Collection is an ordered sequence of Values. Insertion order is
// significant and duplicates are permitted. A Collection never contains
// another Collection or an Empty as a direct element; NewCollection
// enforces both invariants during construction.
type Collection []Value

func (Collection) value() {}

// Equal is recursive ordered equality.
func (c Collection) Equal(other Value) bool {
	o, ok := other.(Collection)
	if !ok {
		return IsEmpty(Value(c)) && IsEmpty(other)
	}
	if len(c) != len(o) {
		return false
	}
	for i := range c {
		if !c[i].Equal(o[i]) {
			return false
		}
	}
	return true
}

// NewCollection builds a flat Collection from items. Nested Collections
// are flattened one level (they are already flat themselves) and Empty
// items contribute nothing.
func NewCollection(items ...Value) Collection {
	out := make(Collection, 0, len(items))
	for _, item := range items {
		switch v := item.(type) {
		case nil, Empty:
		case Collection:
			out = append(out, v...)
		default:
			out = append(out, v)
		}
	}
	return out
}

// IsEmpty reports whether v denotes no value: nil, Empty or a zero-length
// Collection.
func IsEmpty(v Value) bool {
	switch t := v.(type) {
	case nil, Empty:
		return true
	case Collection:
		return len(t) == 0
	}
	return false
}

// Items returns v as a slice of scalar items: nil for empty values, the
// elements for a Collection, a one-element slice otherwise.
func Items(v Value) []Value {
	switch t := v.(type) {
	case nil, Empty:
		return nil
	case Collection:
		return t
	}
	return []Value{v}
}

// Singleton returns the single item of v when v is a non-collection value
// or a one-element Collection.
func Singleton(v Value) (Value, bool) {
	items := Items(v)
	if len(items) != 1 {
		return EmptyValue, false
	}
	return items[0], true
}

// FromJSON converts a decoded JSON tree node into a Value. Objects become
// Resources, arrays become flattened Collections, null becomes Empty.
// Whole numbers become Integer, fractional ones Decimal.
func FromJSON(raw interface{}) Value {
	switch v := raw.(type) {
	case nil:
		return EmptyValue
	case bool:
		return Boolean(v)
	case string:
		return String(v)
	case float64:
		if v == math.Trunc(v) && math.Abs(v) < 1<<53 {
			return Integer(int64(v))
		}
		return Decimal(v)
	case int:
		return Integer(int64(v))
	case int64:
		return Integer(v)
	case map[string]interface{}:
		return NewResource(v)
	case []interface{}:
		items := make([]Value, 0, len(v))
		for _, item := range v {
			items = append(items, FromJSON(item))
		}
		return NewCollection(items...)
	}
	return String(fmt.Sprintf("%v", raw))
}

// ToNative converts a Value back into a plain JSON-ready tree. Empty
// becomes nil, Collections become []interface{}.
func ToNative(v Value) interface{} {
	switch t := v.(type) {
	case nil, Empty:
		return nil
	case Boolean:
		return bool(t)
	case Integer:
		return int64(t)
	case Decimal:
		return float64(t)
	case String:
		return string(t)
	case Date:
		return t.Lit
	case DateTime:
		return t.Lit
	case Time:
		return t.Lit
	case Resource:
		return t.Data()
	case Collection:
		out := make([]interface{}, 0, len(t))
		for _, item := range t {
			out = append(out, ToNative(item))
		}
		return out
	}
	return nil
}

// Repr renders a Value for diagnostics and trace output.
func Repr(v Value) string {
	switch t := v.(type) {
	case nil, Empty:
		return "{}"
	case Boolean:
		return strconv.FormatBool(bool(t))
	case Integer:
		return strconv.FormatInt(int64(t), 10)
	case Decimal:
		return strconv.FormatFloat(float64(t), 'g', -1, 64)
	case String:
		return strconv.Quote(string(t))
	case Date, DateTime, Time:
		return fmt.Sprintf("%v", t)
	case Resource:
		return t.String()
	case Collection:
		parts := make([]string, len(t))
		for i, item := range t {
			parts[i] = Repr(item)
		}
		return "{" + strings.Join(parts, ", ") + "}"
	}
	return fmt.Sprintf("%v", v)
}

func deepCopyObject(src map[string]interface{}) map[string]interface{} {
	dst := make(map[string]interface{}, len(src))
	for k, v := range src {
		dst[k] = deepCopyValue(v)
	}
	return dst
}

func deepCopyValue(src interface{}) interface{} {
	switch v := src.(type) {
	case map[string]interface{}:
		return deepCopyObject(v)
	case []interface{}:
		dst := make([]interface{}, len(v))
		for i, item := range v {
			dst[i] = deepCopyValue(item)
		}
		return dst
	}
	return src
}
