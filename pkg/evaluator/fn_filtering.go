package evaluator

import (
	"github.com/mooshifrew/fhirpath-go/pkg/types"
)

// Subsetting functions: positional selection over the input collection.

func registerFilteringFuncs(r *Registry) {
	anyColl := types.CollectionOf(types.Any())
	anyType := types.Any()
	intType := types.TypeInfo{Kind: types.IntegerKind}

	r.mustRegister(&builtin{
		sig: &Signature{Name: "first", Return: anyType},
		eval: func(_ []types.Value, ctx *Context) (types.Value, error) {
			items := types.Items(ctx.Input())
			if len(items) == 0 {
				return types.EmptyValue, nil
			}
			return items[0], nil
		},
	})

	r.mustRegister(&builtin{
		sig: &Signature{Name: "last", Return: anyType},
		eval: func(_ []types.Value, ctx *Context) (types.Value, error) {
			items := types.Items(ctx.Input())
			if len(items) == 0 {
				return types.EmptyValue, nil
			}
			return items[len(items)-1], nil
		},
	})

	r.mustRegister(&builtin{
		sig: &Signature{Name: "tail", Return: anyColl},
		eval: func(_ []types.Value, ctx *Context) (types.Value, error) {
			items := types.Items(ctx.Input())
			if len(items) <= 1 {
				return types.NewCollection(), nil
			}
			return types.NewCollection(items[1:]...), nil
		},
	})

	r.mustRegister(&builtin{
		sig: &Signature{Name: "skip", Params: []Param{{Type: intType}}, Return: anyColl},
		eval: func(args []types.Value, ctx *Context) (types.Value, error) {
			n, err := integerArgument("skip", args[0])
			if err != nil {
				return nil, err
			}
			items := types.Items(ctx.Input())
			if n < 0 {
				n = 0
			}
			if int(n) >= len(items) {
				return types.NewCollection(), nil
			}
			return types.NewCollection(items[n:]...), nil
		},
	})

	r.mustRegister(&builtin{
		sig: &Signature{Name: "take", Params: []Param{{Type: intType}}, Return: anyColl},
		eval: func(args []types.Value, ctx *Context) (types.Value, error) {
			n, err := integerArgument("take", args[0])
			if err != nil {
				return nil, err
			}
			items := types.Items(ctx.Input())
			if n <= 0 {
				return types.NewCollection(), nil
			}
			if int(n) > len(items) {
				n = types.Integer(len(items))
			}
			return types.NewCollection(items[:n]...), nil
		},
	})

	r.mustRegister(&builtin{
		sig: &Signature{Name: "single", Return: anyType},
		eval: func(_ []types.Value, ctx *Context) (types.Value, error) {
			items := types.Items(ctx.Input())
			switch len(items) {
			case 0:
				return types.EmptyValue, nil
			case 1:
				return items[0], nil
			}
			return nil, types.NewError(types.ErrSingletonRequired,
				"single() requires a collection with at most one item", -1)
		},
	})

	r.mustRegister(&builtin{
		sig: &Signature{Name: "distinct", Return: anyColl},
		eval: func(_ []types.Value, ctx *Context) (types.Value, error) {
			items := types.Items(ctx.Input())
			out := make([]types.Value, 0, len(items))
			for _, item := range items {
				if !containsValue(out, item) {
					out = append(out, item)
				}
			}
			return types.NewCollection(out...), nil
		},
	})
}

// integerArgument reads a required singleton Integer argument.
func integerArgument(fnName string, arg types.Value) (types.Integer, error) {
	single, ok := types.Singleton(arg)
	if !ok {
		return 0, &types.TypeMismatchError{Name: fnName, Want: "Integer", Got: "empty or collection"}
	}
	n, ok := single.(types.Integer)
	if !ok {
		return 0, &types.TypeMismatchError{Name: fnName, Want: "Integer", Got: types.TypeOf(single).String()}
	}
	return n, nil
}
