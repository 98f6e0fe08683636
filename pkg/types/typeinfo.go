package types

// TypeKind identifies a FHIRPath type tag.
type TypeKind int

const (
	AnyKind TypeKind = iota
	BooleanKind
	IntegerKind
	DecimalKind
	StringKind
	DateKind
	DateTimeKind
	TimeKind
	ResourceKind
	CollectionKind
)

var kindNames = map[TypeKind]string{
	AnyKind:        "Any",
	BooleanKind:    "Boolean",
	IntegerKind:    "Integer",
	DecimalKind:    "Decimal",
	StringKind:     "String",
	DateKind:       "Date",
	DateTimeKind:   "DateTime",
	TimeKind:       "Time",
	ResourceKind:   "Resource",
	CollectionKind: "Collection",
}

// TypeInfo is a lightweight type descriptor used for function signature
// declarations and is/as/ofType checks. It carries no runtime payload.
//
// For ResourceKind the Name field may hold a concrete resource type
// ("Patient"); empty Name matches any resource. For CollectionKind the
// Elem field describes the element type.
type TypeInfo struct {
	Kind TypeKind
	Name string
	Elem *TypeInfo
}

// Any matches every value.
func Any() TypeInfo { return TypeInfo{Kind: AnyKind} }

// CollectionOf describes a collection whose elements match elem.
func CollectionOf(elem TypeInfo) TypeInfo {
	e := elem
	return TypeInfo{Kind: CollectionKind, Elem: &e}
}

// TypeInfoFromName maps a FHIRPath type specifier to a descriptor.
// Primitive names (case per spec, lowercase accepted) map to their kind;
// anything else is treated as a concrete resource type name.
func TypeInfoFromName(name string) TypeInfo {
	switch name {
	case "Any", "any":
		return TypeInfo{Kind: AnyKind}
	case "Boolean", "boolean":
		return TypeInfo{Kind: BooleanKind}
	case "Integer", "integer":
		return TypeInfo{Kind: IntegerKind}
	case "Decimal", "decimal":
		return TypeInfo{Kind: DecimalKind}
	case "String", "string":
		return TypeInfo{Kind: StringKind}
	case "Date", "date":
		return TypeInfo{Kind: DateKind}
	case "DateTime", "dateTime":
		return TypeInfo{Kind: DateTimeKind}
	case "Time", "time":
		return TypeInfo{Kind: TimeKind}
	}
	return TypeInfo{Kind: ResourceKind, Name: name}
}

// TypeOf returns the descriptor for a runtime value.
func TypeOf(v Value) TypeInfo {
	switch t := v.(type) {
	case Boolean:
		return TypeInfo{Kind: BooleanKind}
	case Integer:
		return TypeInfo{Kind: IntegerKind}
	case Decimal:
		return TypeInfo{Kind: DecimalKind}
	case String:
		return TypeInfo{Kind: StringKind}
	case Date:
		return TypeInfo{Kind: DateKind}
	case DateTime:
		return TypeInfo{Kind: DateTimeKind}
	case Time:
		return TypeInfo{Kind: TimeKind}
	case Resource:
		return TypeInfo{Kind: ResourceKind, Name: t.ResourceType()}
	case Collection:
		return TypeInfo{Kind: CollectionKind}
	}
	return TypeInfo{Kind: AnyKind}
}

// Matches reports whether v satisfies the descriptor. Collections match
// CollectionKind (element check against Elem when present); Any matches
// everything including Empty.
func (t TypeInfo) Matches(v Value) bool {
	if t.Kind == AnyKind {
		return true
	}
	switch t.Kind {
	case CollectionKind:
		c, ok := v.(Collection)
		if !ok {
			return false
		}
		if t.Elem == nil {
			return true
		}
		for _, item := range c {
			if !t.Elem.Matches(item) {
				return false
			}
		}
		return true
	case ResourceKind:
		r, ok := v.(Resource)
		if !ok {
			return false
		}
		return t.Name == "" || r.ResourceType() == t.Name
	}
	return TypeOf(v).Kind == t.Kind
}

// String returns the descriptor name, e.g. "Collection<Any>" or "Patient".
func (t TypeInfo) String() string {
	switch t.Kind {
	case CollectionKind:
		elem := "Any"
		if t.Elem != nil {
			elem = t.Elem.String()
		}
		return "Collection<" + elem + ">"
	case ResourceKind:
		if t.Name != "" {
			return t.Name
		}
	}
	return kindNames[t.Kind]
}
