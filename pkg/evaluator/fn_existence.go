package evaluator

import (
	"github.com/mooshifrew/fhirpath-go/pkg/types"
)

// Existence functions. These follow the registry contract: they act on
// the context input and take no or already-evaluated arguments.
// exists(criteria) and all(criteria) take expressions and live in the
// driver as special forms.

func registerExistenceFuncs(r *Registry) {
	boolType := types.TypeInfo{Kind: types.BooleanKind}
	intType := types.TypeInfo{Kind: types.IntegerKind}

	r.mustRegister(&builtin{
		sig: &Signature{Name: "empty", Return: boolType},
		eval: func(_ []types.Value, ctx *Context) (types.Value, error) {
			return types.Boolean(types.IsEmpty(ctx.Input())), nil
		},
	})

	r.mustRegister(&builtin{
		sig: &Signature{Name: "count", Return: intType},
		eval: func(_ []types.Value, ctx *Context) (types.Value, error) {
			return types.Integer(len(types.Items(ctx.Input()))), nil
		},
	})

	r.mustRegister(&builtin{
		sig: &Signature{Name: "not", Return: boolType},
		eval: func(_ []types.Value, ctx *Context) (types.Value, error) {
			truth, known := boolOf(ctx.Input())
			if !known {
				return types.EmptyValue, nil
			}
			return types.Boolean(!truth), nil
		},
	})

	r.mustRegister(&builtin{
		sig: &Signature{Name: "allTrue", Return: boolType},
		eval: func(_ []types.Value, ctx *Context) (types.Value, error) {
			return foldBooleans(ctx.Input(), "allTrue", func(acc, b bool) bool { return acc && b }, true)
		},
	})

	r.mustRegister(&builtin{
		sig: &Signature{Name: "anyTrue", Return: boolType},
		eval: func(_ []types.Value, ctx *Context) (types.Value, error) {
			return foldBooleans(ctx.Input(), "anyTrue", func(acc, b bool) bool { return acc || b }, false)
		},
	})

	r.mustRegister(&builtin{
		sig: &Signature{Name: "allFalse", Return: boolType},
		eval: func(_ []types.Value, ctx *Context) (types.Value, error) {
			return foldBooleans(ctx.Input(), "allFalse", func(acc, b bool) bool { return acc && !b }, true)
		},
	})

	r.mustRegister(&builtin{
		sig: &Signature{Name: "anyFalse", Return: boolType},
		eval: func(_ []types.Value, ctx *Context) (types.Value, error) {
			return foldBooleans(ctx.Input(), "anyFalse", func(acc, b bool) bool { return acc || !b }, false)
		},
	})

	r.mustRegister(&builtin{
		sig: &Signature{Name: "isDistinct", Params: nil, Return: boolType},
		eval: func(_ []types.Value, ctx *Context) (types.Value, error) {
			items := types.Items(ctx.Input())
			seen := make([]types.Value, 0, len(items))
			for _, item := range items {
				if containsValue(seen, item) {
					return types.Boolean(false), nil
				}
				seen = append(seen, item)
			}
			return types.Boolean(true), nil
		},
	})

	r.mustRegister(&builtin{
		sig: &Signature{Name: "hasValue", Return: boolType},
		eval: func(_ []types.Value, ctx *Context) (types.Value, error) {
			single, ok := types.Singleton(ctx.Input())
			if !ok {
				return types.Boolean(false), nil
			}
			_, isResource := single.(types.Resource)
			return types.Boolean(!isResource), nil
		},
	})
}

// foldBooleans folds a boolean collection; non-boolean items are type
// mismatches, an empty input returns the identity.
func foldBooleans(input types.Value, name string, fold func(acc, b bool) bool, identity bool) (types.Value, error) {
	acc := identity
	for _, item := range types.Items(input) {
		b, ok := item.(types.Boolean)
		if !ok {
			return nil, &types.TypeMismatchError{Name: name, Want: "Boolean", Got: types.TypeOf(item).String()}
		}
		acc = fold(acc, bool(b))
	}
	return types.Boolean(acc), nil
}
