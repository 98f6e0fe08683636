package evaluator

import (
	"math"

	"github.com/mooshifrew/fhirpath-go/pkg/types"
)

// Math functions over singleton numeric inputs. Empty input propagates
// empty; a non-numeric input is a type mismatch.

func registerMathFuncs(r *Registry) {
	intType := types.TypeInfo{Kind: types.IntegerKind}
	decType := types.TypeInfo{Kind: types.DecimalKind}

	r.mustRegister(&builtin{
		sig: &Signature{Name: "abs", Return: decType},
		eval: mathFunc("abs", func(v types.Value) (types.Value, error) {
			switch n := v.(type) {
			case types.Integer:
				if n < 0 {
					return -n, nil
				}
				return n, nil
			case types.Decimal:
				return types.Decimal(math.Abs(float64(n))), nil
			}
			return nil, nil
		}),
	})

	r.mustRegister(&builtin{
		sig: &Signature{Name: "ceiling", Return: intType},
		eval: mathFunc("ceiling", func(v types.Value) (types.Value, error) {
			switch n := v.(type) {
			case types.Integer:
				return n, nil
			case types.Decimal:
				return types.Integer(int64(math.Ceil(float64(n)))), nil
			}
			return nil, nil
		}),
	})

	r.mustRegister(&builtin{
		sig: &Signature{Name: "floor", Return: intType},
		eval: mathFunc("floor", func(v types.Value) (types.Value, error) {
			switch n := v.(type) {
			case types.Integer:
				return n, nil
			case types.Decimal:
				return types.Integer(int64(math.Floor(float64(n)))), nil
			}
			return nil, nil
		}),
	})

	r.mustRegister(&builtin{
		sig: &Signature{Name: "truncate", Return: intType},
		eval: mathFunc("truncate", func(v types.Value) (types.Value, error) {
			switch n := v.(type) {
			case types.Integer:
				return n, nil
			case types.Decimal:
				return types.Integer(int64(math.Trunc(float64(n)))), nil
			}
			return nil, nil
		}),
	})

	r.mustRegister(&builtin{
		sig: &Signature{Name: "sqrt", Return: decType},
		eval: mathFunc("sqrt", func(v types.Value) (types.Value, error) {
			f, ok := numOf(v)
			if !ok {
				return nil, nil
			}
			if f < 0 {
				return types.EmptyValue, nil
			}
			return types.Decimal(math.Sqrt(f)), nil
		}),
	})

	r.mustRegister(&builtin{
		sig: &Signature{Name: "round", Params: []Param{{Type: intType, Optional: true}}, Return: decType},
		eval: func(args []types.Value, ctx *Context) (types.Value, error) {
			single, ok := types.Singleton(ctx.Input())
			if !ok {
				return types.EmptyValue, nil
			}
			f, isNum := numOf(single)
			if !isNum {
				return nil, &types.TypeMismatchError{Name: "round", Want: "Integer or Decimal", Got: types.TypeOf(single).String()}
			}
			precision := types.Integer(0)
			if len(args) == 1 {
				p, err := integerArgument("round", args[0])
				if err != nil {
					return nil, err
				}
				precision = p
			}
			scale := math.Pow(10, float64(precision))
			rounded := math.Round(f*scale) / scale
			if precision == 0 {
				return types.Integer(int64(rounded)), nil
			}
			return types.Decimal(rounded), nil
		},
	})
}

// mathFunc adapts a numeric transformation: empty input propagates and a
// nil,nil return from impl flags a non-numeric input.
func mathFunc(name string, impl func(v types.Value) (types.Value, error)) func([]types.Value, *Context) (types.Value, error) {
	return func(_ []types.Value, ctx *Context) (types.Value, error) {
		single, ok := types.Singleton(ctx.Input())
		if !ok {
			return types.EmptyValue, nil
		}
		result, err := impl(single)
		if err != nil {
			return nil, err
		}
		if result == nil {
			return nil, &types.TypeMismatchError{Name: name, Want: "Integer or Decimal", Got: types.TypeOf(single).String()}
		}
		return result, nil
	}
}
