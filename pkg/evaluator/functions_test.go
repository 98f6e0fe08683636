package evaluator

import (
	"errors"
	"testing"

	"github.com/mooshifrew/fhirpath-go/pkg/types"
)

func testFunction(name string) Function {
	return &builtin{
		sig: &Signature{Name: name, Return: types.Any()},
		eval: func(_ []types.Value, ctx *Context) (types.Value, error) {
			return ctx.Input(), nil
		},
	}
}

func TestRegistryRegisterAndLookup(t *testing.T) {
	r := NewRegistry()
	if err := r.Register(testFunction("custom")); err != nil {
		t.Fatalf("Register: %v", err)
	}
	fn, ok := r.Lookup("custom")
	if !ok {
		t.Fatal("Lookup failed after Register")
	}
	if fn.Name() != "custom" {
		t.Errorf("Name() = %q", fn.Name())
	}
	if _, ok := r.Lookup("missing"); ok {
		t.Error("Lookup of unregistered name must fail")
	}
}

func TestRegistryRejectsDuplicates(t *testing.T) {
	r := NewRegistry()
	if err := r.Register(testFunction("dup")); err != nil {
		t.Fatal(err)
	}
	err := r.Register(testFunction("dup"))
	var terr *types.Error
	if !errors.As(err, &terr) || terr.Code != types.ErrDuplicateFunction {
		t.Errorf("duplicate registration error = %v", err)
	}
}

func TestRegistryFreezesOnFirstLookup(t *testing.T) {
	r := NewRegistry()
	if err := r.Register(testFunction("early")); err != nil {
		t.Fatal(err)
	}
	r.Lookup("early")

	err := r.Register(testFunction("late"))
	var terr *types.Error
	if !errors.As(err, &terr) || terr.Code != types.ErrRegistryFrozen {
		t.Errorf("post-freeze registration error = %v", err)
	}
}

func TestDefaultRegistryContents(t *testing.T) {
	r := DefaultRegistry()
	for _, name := range []string{
		"empty", "count", "not", "first", "last", "distinct",
		"length", "substring", "matches", "abs", "round",
		"toString", "toInteger", "combine", "children", "resolve",
	} {
		if _, ok := r.Lookup(name); !ok {
			t.Errorf("built-in %q missing from default registry", name)
		}
	}
}

func TestDefaultRegistryIsShared(t *testing.T) {
	if DefaultRegistry() != DefaultRegistry() {
		t.Error("DefaultRegistry must return the same instance")
	}
}

func TestSignatureValidateArity(t *testing.T) {
	intType := types.TypeInfo{Kind: types.IntegerKind}
	tests := []struct {
		name    string
		sig     Signature
		actual  int
		wantErr bool
	}{
		{"no params exact", Signature{Name: "f"}, 0, false},
		{"no params with arg", Signature{Name: "f"}, 1, true},
		{"required param missing", Signature{Name: "f", Params: []Param{{Type: intType}}}, 0, true},
		{"optional param omitted", Signature{Name: "f", Params: []Param{{Type: intType, Optional: true}}}, 0, false},
		{"optional param supplied", Signature{Name: "f", Params: []Param{{Type: intType, Optional: true}}}, 1, false},
		{"too many args", Signature{Name: "f", Params: []Param{{Type: intType}}}, 2, true},
		{"variadic accepts many", Signature{Name: "f", Params: []Param{{Type: intType}}, Variadic: true}, 5, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.sig.ValidateArity(tt.actual)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateArity(%d) = %v, wantErr %v", tt.actual, err, tt.wantErr)
			}
			if tt.wantErr {
				var ae *types.ArityError
				if !errors.As(err, &ae) {
					t.Errorf("error type = %T, want *types.ArityError", err)
				}
			}
		})
	}
}
