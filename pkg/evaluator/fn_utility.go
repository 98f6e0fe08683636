package evaluator

import (
	"github.com/mooshifrew/fhirpath-go/pkg/types"
)

// Combining and tree navigation functions.

func registerUtilityFuncs(r *Registry) {
	anyColl := types.CollectionOf(types.Any())

	r.mustRegister(&builtin{
		sig: &Signature{Name: "combine", Params: []Param{{Type: anyColl}}, Return: anyColl},
		eval: func(args []types.Value, ctx *Context) (types.Value, error) {
			out := append([]types.Value{}, types.Items(ctx.Input())...)
			out = append(out, types.Items(args[0])...)
			return types.NewCollection(out...), nil
		},
	})

	r.mustRegister(&builtin{
		sig: &Signature{Name: "union", Params: []Param{{Type: anyColl}}, Return: anyColl},
		eval: func(args []types.Value, ctx *Context) (types.Value, error) {
			out := make([]types.Value, 0)
			for _, item := range types.Items(ctx.Input()) {
				if !containsValue(out, item) {
					out = append(out, item)
				}
			}
			for _, item := range types.Items(args[0]) {
				if !containsValue(out, item) {
					out = append(out, item)
				}
			}
			return types.NewCollection(out...), nil
		},
	})

	r.mustRegister(&builtin{
		sig: &Signature{Name: "intersect", Params: []Param{{Type: anyColl}}, Return: anyColl},
		eval: func(args []types.Value, ctx *Context) (types.Value, error) {
			other := types.Items(args[0])
			out := make([]types.Value, 0)
			for _, item := range types.Items(ctx.Input()) {
				if containsValue(other, item) && !containsValue(out, item) {
					out = append(out, item)
				}
			}
			return types.NewCollection(out...), nil
		},
	})

	r.mustRegister(&builtin{
		sig: &Signature{Name: "exclude", Params: []Param{{Type: anyColl}}, Return: anyColl},
		eval: func(args []types.Value, ctx *Context) (types.Value, error) {
			other := types.Items(args[0])
			out := make([]types.Value, 0)
			for _, item := range types.Items(ctx.Input()) {
				if !containsValue(other, item) {
					out = append(out, item)
				}
			}
			return types.NewCollection(out...), nil
		},
	})

	r.mustRegister(&builtin{
		sig: &Signature{Name: "children", Return: anyColl},
		eval: func(_ []types.Value, ctx *Context) (types.Value, error) {
			out := make([]types.Value, 0)
			for _, item := range types.Items(ctx.Input()) {
				out = append(out, childValues(item)...)
			}
			return types.NewCollection(out...), nil
		},
	})

	r.mustRegister(&builtin{
		sig: &Signature{Name: "descendants", Return: anyColl},
		eval: func(_ []types.Value, ctx *Context) (types.Value, error) {
			out := make([]types.Value, 0)
			queue := append([]types.Value{}, types.Items(ctx.Input())...)
			for len(queue) > 0 {
				item := queue[0]
				queue = queue[1:]
				children := childValues(item)
				out = append(out, children...)
				queue = append(queue, children...)
			}
			return types.NewCollection(out...), nil
		},
	})
}

// childValues returns every immediate child node of a Resource. Scalars
// have no children. Field order is not guaranteed.
func childValues(v types.Value) []types.Value {
	r, ok := v.(types.Resource)
	if !ok {
		return nil
	}
	out := make([]types.Value, 0, len(r.Data()))
	for key, raw := range r.Data() {
		if key == "resourceType" {
			continue
		}
		child := types.FromJSON(raw)
		out = append(out, types.Items(child)...)
	}
	return out
}
