package evaluator

import (
	"github.com/mooshifrew/fhirpath-go/pkg/types"
)

// Type inspection. is()/as()/ofType() take type specifiers and live in
// the driver as special forms; type() works on the evaluated input and
// fits the registry contract.

func registerTypeFuncs(r *Registry) {
	strType := types.TypeInfo{Kind: types.StringKind}

	r.mustRegister(&builtin{
		sig: &Signature{Name: "type", Return: strType},
		eval: func(_ []types.Value, ctx *Context) (types.Value, error) {
			if types.IsEmpty(ctx.Input()) {
				return types.EmptyValue, nil
			}
			items := types.Items(ctx.Input())
			out := make([]types.Value, len(items))
			for i, item := range items {
				out[i] = types.String(types.TypeOf(item).String())
			}
			return types.NewCollection(out...), nil
		},
	})
}
