package evaluator

import (
	"context"

	"github.com/mooshifrew/fhirpath-go/pkg/types"
)

// evalPath evaluates LHS.RHS. Function steps see the whole left-hand
// collection as their input; name steps are applied to every element and
// the results flattened, so a collection of collections never exists.
func (e *Evaluator) evalPath(ctx context.Context, node *types.ASTNode, ec *Context, depth int) (types.Value, error) {
	left, err := e.evalNode(ctx, node.LHS, ec, depth+1)
	if err != nil {
		return nil, err
	}

	if node.RHS.Type == types.NodeFunction {
		return e.evalFunction(ctx, node.RHS, ec.WithInput(left), depth+1)
	}

	if types.IsEmpty(left) {
		return types.EmptyValue, nil
	}
	return e.evalNode(ctx, node.RHS, ec.WithInput(left), depth+1)
}

// evalName navigates one identifier step against the input value.
//
// Navigating into a missing field yields an empty collection, never an
// error. Navigating through a collection applies the step to every
// element and flattens the results. An identifier matching a resource's
// resourceType returns the resource itself, which makes rooted paths like
// "Patient.name" work.
func evalName(name string, input types.Value) types.Value {
	out := make([]types.Value, 0, 4)
	for _, item := range types.Items(input) {
		r, ok := item.(types.Resource)
		if !ok {
			continue
		}
		if r.ResourceType() == name {
			out = append(out, item)
			continue
		}
		if raw, found := r.Get(name); found {
			out = append(out, types.FromJSON(raw))
		}
	}
	return types.NewCollection(out...)
}
