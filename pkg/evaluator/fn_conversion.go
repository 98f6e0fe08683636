package evaluator

import (
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"

	"github.com/mooshifrew/fhirpath-go/pkg/types"
)

// Conversion functions. Per the FHIRPath conversion rules a value that
// cannot be converted yields empty rather than an error; only a
// multi-item input is a hard error.

func registerConversionFuncs(r *Registry) {
	strType := types.TypeInfo{Kind: types.StringKind}
	intType := types.TypeInfo{Kind: types.IntegerKind}
	decType := types.TypeInfo{Kind: types.DecimalKind}
	boolType := types.TypeInfo{Kind: types.BooleanKind}
	dateType := types.TypeInfo{Kind: types.DateKind}
	dateTimeType := types.TypeInfo{Kind: types.DateTimeKind}

	r.mustRegister(&builtin{
		sig:  &Signature{Name: "toString", Return: strType},
		eval: convFunc("toString", toStringValue),
	})
	r.mustRegister(&builtin{
		sig:  &Signature{Name: "toInteger", Return: intType},
		eval: convFunc("toInteger", toIntegerValue),
	})
	r.mustRegister(&builtin{
		sig:  &Signature{Name: "toDecimal", Return: decType},
		eval: convFunc("toDecimal", toDecimalValue),
	})
	r.mustRegister(&builtin{
		sig:  &Signature{Name: "toBoolean", Return: boolType},
		eval: convFunc("toBoolean", toBooleanValue),
	})
	r.mustRegister(&builtin{
		sig:  &Signature{Name: "toDate", Return: dateType},
		eval: convFunc("toDate", toDateValue),
	})
	r.mustRegister(&builtin{
		sig:  &Signature{Name: "toDateTime", Return: dateTimeType},
		eval: convFunc("toDateTime", toDateTimeValue),
	})

	r.mustRegister(&builtin{
		sig:  &Signature{Name: "convertsToInteger", Return: boolType},
		eval: convertsFunc("convertsToInteger", toIntegerValue),
	})
	r.mustRegister(&builtin{
		sig:  &Signature{Name: "convertsToDecimal", Return: boolType},
		eval: convertsFunc("convertsToDecimal", toDecimalValue),
	})
	r.mustRegister(&builtin{
		sig:  &Signature{Name: "convertsToBoolean", Return: boolType},
		eval: convertsFunc("convertsToBoolean", toBooleanValue),
	})
	r.mustRegister(&builtin{
		sig:  &Signature{Name: "convertsToDateTime", Return: boolType},
		eval: convertsFunc("convertsToDateTime", toDateTimeValue),
	})
}

// convFunc adapts a single-value conversion into a registry closure.
func convFunc(name string, conv func(v types.Value) types.Value) func([]types.Value, *Context) (types.Value, error) {
	return func(_ []types.Value, ctx *Context) (types.Value, error) {
		if types.IsEmpty(ctx.Input()) {
			return types.EmptyValue, nil
		}
		single, ok := types.Singleton(ctx.Input())
		if !ok {
			return nil, &types.TypeMismatchError{Name: name, Want: "singleton", Got: "collection"}
		}
		return conv(single), nil
	}
}

// convertsFunc reports whether the conversion would succeed.
func convertsFunc(name string, conv func(v types.Value) types.Value) func([]types.Value, *Context) (types.Value, error) {
	return func(_ []types.Value, ctx *Context) (types.Value, error) {
		if types.IsEmpty(ctx.Input()) {
			return types.EmptyValue, nil
		}
		single, ok := types.Singleton(ctx.Input())
		if !ok {
			return nil, &types.TypeMismatchError{Name: name, Want: "singleton", Got: "collection"}
		}
		return types.Boolean(!types.IsEmpty(conv(single))), nil
	}
}

func toStringValue(v types.Value) types.Value {
	switch t := v.(type) {
	case types.String:
		return t
	case types.Boolean:
		return types.String(strconv.FormatBool(bool(t)))
	case types.Integer:
		return types.String(strconv.FormatInt(int64(t), 10))
	case types.Decimal:
		return types.String(strconv.FormatFloat(float64(t), 'f', -1, 64))
	case types.Date:
		return types.String(t.Lit)
	case types.DateTime:
		return types.String(t.Lit)
	case types.Time:
		return types.String(t.Lit)
	}
	return types.EmptyValue
}

func toIntegerValue(v types.Value) types.Value {
	switch t := v.(type) {
	case types.Integer:
		return t
	case types.Boolean:
		if t {
			return types.Integer(1)
		}
		return types.Integer(0)
	case types.String:
		n, err := strconv.ParseInt(string(t), 10, 64)
		if err != nil {
			return types.EmptyValue
		}
		return types.Integer(n)
	}
	return types.EmptyValue
}

func toDecimalValue(v types.Value) types.Value {
	switch t := v.(type) {
	case types.Decimal:
		return t
	case types.Integer:
		return types.Decimal(t)
	case types.Boolean:
		if t {
			return types.Decimal(1)
		}
		return types.Decimal(0)
	case types.String:
		f, err := strconv.ParseFloat(string(t), 64)
		if err != nil {
			return types.EmptyValue
		}
		return types.Decimal(f)
	}
	return types.EmptyValue
}

func toBooleanValue(v types.Value) types.Value {
	switch t := v.(type) {
	case types.Boolean:
		return t
	case types.Integer:
		switch t {
		case 0:
			return types.Boolean(false)
		case 1:
			return types.Boolean(true)
		}
	case types.String:
		switch strings.ToLower(string(t)) {
		case "true", "t", "yes", "y", "1", "1.0":
			return types.Boolean(true)
		case "false", "f", "no", "n", "0", "0.0":
			return types.Boolean(false)
		}
	}
	return types.EmptyValue
}

// fhirDatePattern matches full or partial FHIR date literals.
func isFHIRDate(s string) bool {
	for _, layout := range []string{"2006", "2006-01", "2006-01-02"} {
		if _, err := time.Parse(layout, s); err == nil {
			return true
		}
	}
	return false
}

func toDateValue(v types.Value) types.Value {
	switch t := v.(type) {
	case types.Date:
		return t
	case types.DateTime:
		date, _, _ := strings.Cut(t.Lit, "T")
		return types.Date{Lit: date}
	case types.String:
		s := strings.TrimSpace(string(t))
		if isFHIRDate(s) {
			return types.Date{Lit: s}
		}
		// Lenient fallback for non-FHIR-formatted dates.
		if parsed, err := dateparse.ParseAny(s); err == nil {
			return types.Date{Lit: parsed.Format("2006-01-02")}
		}
	}
	return types.EmptyValue
}

func toDateTimeValue(v types.Value) types.Value {
	switch t := v.(type) {
	case types.DateTime:
		return t
	case types.Date:
		return types.DateTime{Lit: t.Lit}
	case types.String:
		s := strings.TrimSpace(string(t))
		if _, err := time.Parse(time.RFC3339, s); err == nil {
			return types.DateTime{Lit: s}
		}
		if isFHIRDate(s) {
			return types.DateTime{Lit: s}
		}
		// Lenient fallback for non-FHIR-formatted timestamps.
		if parsed, err := dateparse.ParseAny(s); err == nil {
			return types.DateTime{Lit: parsed.Format(time.RFC3339)}
		}
	}
	return types.EmptyValue
}
