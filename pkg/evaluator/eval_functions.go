package evaluator

import (
	"context"

	"github.com/mooshifrew/fhirpath-go/pkg/types"
)

// evalFunction evaluates a function-invocation node. Criteria-taking
// functions (where, select, ...) are special forms handled by the driver:
// their arguments are expressions evaluated per input item with a derived
// context. Everything else follows the registry contract — arguments are
// evaluated first, arity is validated against the declared signature, and
// the function receives finished values.
func (e *Evaluator) evalFunction(ctx context.Context, node *types.ASTNode, ec *Context, depth int) (types.Value, error) {
	switch node.StrValue {
	case "where":
		return e.evalWhere(ctx, node, ec, depth)
	case "select":
		return e.evalSelect(ctx, node, ec, depth)
	case "exists":
		return e.evalExists(ctx, node, ec, depth)
	case "all":
		return e.evalAll(ctx, node, ec, depth)
	case "iif":
		return e.evalIif(ctx, node, ec, depth)
	case "repeat":
		return e.evalRepeat(ctx, node, ec, depth)
	case "ofType":
		return e.evalOfType(node, ec)
	case "is", "as":
		return e.evalTypeFunction(node, ec)
	case "trace":
		return e.evalTrace(ctx, node, ec, depth)
	}

	fn, ok := e.lookupFunction(node.StrValue)
	if !ok {
		return nil, &types.UnknownFunctionError{Name: node.StrValue}
	}

	args := make([]types.Value, len(node.Arguments))
	for i, argNode := range node.Arguments {
		arg, err := e.evalNode(ctx, argNode, ec, depth+1)
		if err != nil {
			return nil, err
		}
		args[i] = arg
	}

	if err := fn.Signature().ValidateArity(len(args)); err != nil {
		return nil, err
	}
	return fn.Evaluate(args, ec)
}

// specialFormArity validates argument counts for driver special forms,
// which have no registry signature.
func specialFormArity(name string, min, max, actual int) error {
	if actual < min || (max >= 0 && actual > max) {
		return &types.ArityError{Name: name, Min: min, Max: max, Actual: actual}
	}
	return nil
}

// evalWhere filters the input collection by a criteria expression.
func (e *Evaluator) evalWhere(ctx context.Context, node *types.ASTNode, ec *Context, depth int) (types.Value, error) {
	if err := specialFormArity("where", 1, 1, len(node.Arguments)); err != nil {
		return nil, err
	}
	out := make([]types.Value, 0)
	for _, item := range types.Items(ec.Input()) {
		keep, err := e.evalCriteria(ctx, node.Arguments[0], ec.WithInput(item), depth)
		if err != nil {
			return nil, err
		}
		if keep {
			out = append(out, item)
		}
	}
	return types.NewCollection(out...), nil
}

// evalSelect projects every input item through an expression, flattening
// the per-item results.
func (e *Evaluator) evalSelect(ctx context.Context, node *types.ASTNode, ec *Context, depth int) (types.Value, error) {
	if err := specialFormArity("select", 1, 1, len(node.Arguments)); err != nil {
		return nil, err
	}
	out := make([]types.Value, 0)
	for _, item := range types.Items(ec.Input()) {
		projected, err := e.evalNode(ctx, node.Arguments[0], ec.WithInput(item), depth+1)
		if err != nil {
			return nil, err
		}
		out = append(out, projected)
	}
	return types.NewCollection(out...), nil
}

// evalExists reports whether the input (optionally filtered by criteria)
// has any items.
func (e *Evaluator) evalExists(ctx context.Context, node *types.ASTNode, ec *Context, depth int) (types.Value, error) {
	if err := specialFormArity("exists", 0, 1, len(node.Arguments)); err != nil {
		return nil, err
	}
	items := types.Items(ec.Input())
	if len(node.Arguments) == 0 {
		return types.Boolean(len(items) > 0), nil
	}
	for _, item := range items {
		keep, err := e.evalCriteria(ctx, node.Arguments[0], ec.WithInput(item), depth)
		if err != nil {
			return nil, err
		}
		if keep {
			return types.Boolean(true), nil
		}
	}
	return types.Boolean(false), nil
}

// evalAll reports whether every input item satisfies the criteria.
// An empty input is vacuously true.
func (e *Evaluator) evalAll(ctx context.Context, node *types.ASTNode, ec *Context, depth int) (types.Value, error) {
	if err := specialFormArity("all", 1, 1, len(node.Arguments)); err != nil {
		return nil, err
	}
	for _, item := range types.Items(ec.Input()) {
		keep, err := e.evalCriteria(ctx, node.Arguments[0], ec.WithInput(item), depth)
		if err != nil {
			return nil, err
		}
		if !keep {
			return types.Boolean(false), nil
		}
	}
	return types.Boolean(true), nil
}

// evalIif is the conditional. Branches are evaluated lazily.
func (e *Evaluator) evalIif(ctx context.Context, node *types.ASTNode, ec *Context, depth int) (types.Value, error) {
	if err := specialFormArity("iif", 2, 3, len(node.Arguments)); err != nil {
		return nil, err
	}
	cond, err := e.evalNode(ctx, node.Arguments[0], ec, depth+1)
	if err != nil {
		return nil, err
	}
	truth, known := boolOf(cond)
	if known && truth {
		return e.evalNode(ctx, node.Arguments[1], ec, depth+1)
	}
	if len(node.Arguments) == 3 {
		return e.evalNode(ctx, node.Arguments[2], ec, depth+1)
	}
	return types.EmptyValue, nil
}

// evalRepeat applies the projection transitively, collecting every value
// produced until no new ones appear.
func (e *Evaluator) evalRepeat(ctx context.Context, node *types.ASTNode, ec *Context, depth int) (types.Value, error) {
	if err := specialFormArity("repeat", 1, 1, len(node.Arguments)); err != nil {
		return nil, err
	}
	out := make([]types.Value, 0)
	work := types.Items(ec.Input())
	for len(work) > 0 {
		var next []types.Value
		for _, item := range work {
			projected, err := e.evalNode(ctx, node.Arguments[0], ec.WithInput(item), depth+1)
			if err != nil {
				return nil, err
			}
			for _, produced := range types.Items(projected) {
				if containsValue(out, produced) {
					continue
				}
				out = append(out, produced)
				next = append(next, produced)
			}
		}
		work = next
	}
	return types.NewCollection(out...), nil
}

// evalOfType filters the input down to items matching a type specifier.
// The argument is a type name, not a value expression.
func (e *Evaluator) evalOfType(node *types.ASTNode, ec *Context) (types.Value, error) {
	if err := specialFormArity("ofType", 1, 1, len(node.Arguments)); err != nil {
		return nil, err
	}
	info, err := typeArgument("ofType", node.Arguments[0])
	if err != nil {
		return nil, err
	}
	out := make([]types.Value, 0)
	for _, item := range types.Items(ec.Input()) {
		if info.Matches(item) {
			out = append(out, item)
		}
	}
	return types.NewCollection(out...), nil
}

// evalTypeFunction handles the function forms is(Type) and as(Type),
// mirroring the operator forms.
func (e *Evaluator) evalTypeFunction(node *types.ASTNode, ec *Context) (types.Value, error) {
	if err := specialFormArity(node.StrValue, 1, 1, len(node.Arguments)); err != nil {
		return nil, err
	}
	info, err := typeArgument(node.StrValue, node.Arguments[0])
	if err != nil {
		return nil, err
	}
	single, ok := types.Singleton(ec.Input())
	if !ok {
		return types.EmptyValue, nil
	}
	if node.StrValue == "is" {
		return types.Boolean(info.Matches(single)), nil
	}
	if info.Matches(single) {
		return single, nil
	}
	return types.EmptyValue, nil
}

// evalTrace logs the input collection through the evaluator's logger and
// returns the input unchanged.
func (e *Evaluator) evalTrace(ctx context.Context, node *types.ASTNode, ec *Context, depth int) (types.Value, error) {
	if err := specialFormArity("trace", 1, 1, len(node.Arguments)); err != nil {
		return nil, err
	}
	name, err := e.evalNode(ctx, node.Arguments[0], ec, depth+1)
	if err != nil {
		return nil, err
	}
	label := "trace"
	if s, ok := types.Singleton(name); ok {
		if str, ok := s.(types.String); ok {
			label = string(str)
		}
	}
	e.logger.Info("fhirpath trace", "name", label, "value", types.Repr(ec.Input()))
	return ec.Input(), nil
}

// evalCriteria evaluates a criteria expression to a definite boolean.
// An empty or non-true result means the criteria is not satisfied.
func (e *Evaluator) evalCriteria(ctx context.Context, criteria *types.ASTNode, ec *Context, depth int) (bool, error) {
	result, err := e.evalNode(ctx, criteria, ec, depth+1)
	if err != nil {
		return false, err
	}
	truth, known := boolOf(result)
	return known && truth, nil
}

// typeArgument reads a type-specifier argument, which must be a bare
// identifier node.
func typeArgument(fnName string, arg *types.ASTNode) (types.TypeInfo, error) {
	name := typeSpecifierName(arg)
	if name == "" {
		return types.TypeInfo{}, &types.TypeMismatchError{
			Name: fnName, Want: "type specifier", Got: string(arg.Type)}
	}
	return types.TypeInfoFromName(name), nil
}

// typeSpecifierName extracts the type name from an argument AST:
// a bare name, or a qualified path of names whose last segment wins.
func typeSpecifierName(arg *types.ASTNode) string {
	switch arg.Type {
	case types.NodeName:
		return arg.StrValue
	case types.NodePath:
		if arg.RHS != nil && arg.RHS.Type == types.NodeName {
			return arg.RHS.StrValue
		}
	}
	return ""
}

func containsValue(haystack []types.Value, needle types.Value) bool {
	for _, item := range haystack {
		if item.Equal(needle) {
			return true
		}
	}
	return false
}
