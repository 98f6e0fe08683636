package evaluator

import (
	"context"

	"github.com/mooshifrew/fhirpath-go/pkg/types"
)

// Eval evaluates an expression against a document. The document may be a
// decoded JSON tree (map/slice/scalars) or an already-built types.Value.
//
// The result is always a flat Collection: an empty result is a
// zero-length Collection, never nil.
func (e *Evaluator) Eval(ctx context.Context, expr *types.Expression, document interface{}) (types.Collection, error) {
	if expr == nil || expr.AST() == nil {
		return nil, types.NewError(types.ErrSyntaxError, "invalid expression", -1)
	}

	if e.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.opts.Timeout)
		defer cancel()
	}

	root := toValue(document)

	env := map[string]types.Value{
		"resource":     root,
		"rootResource": root,
		"context":      root,
	}
	for name, value := range e.opts.Env {
		env[name] = value
	}

	evalCtx := NewContext(root, root, env)
	result, err := e.evalNode(ctx, expr.AST(), evalCtx, 0)
	if err != nil {
		return nil, err
	}
	return types.NewCollection(result), nil
}

func toValue(document interface{}) types.Value {
	if v, ok := document.(types.Value); ok {
		return v
	}
	return types.FromJSON(document)
}

// evalNode dispatches a single AST node. Every dispatch step checks the
// caller's context, which is the cancellation/deadline hook: a caller
// wanting bounded execution cancels ctx and the walk stops at the next
// node boundary.
func (e *Evaluator) evalNode(ctx context.Context, node *types.ASTNode, ec *Context, depth int) (types.Value, error) {
	if err := ctx.Err(); err != nil {
		return nil, types.NewError(types.ErrSyntaxError, "evaluation cancelled", node.Position).WithCause(err)
	}
	if e.opts.MaxDepth > 0 && depth > e.opts.MaxDepth {
		return nil, types.NewError(types.ErrMaxDepthExceeded, "max recursion depth exceeded", node.Position)
	}

	switch node.Type {
	case types.NodeBoolean:
		return types.Boolean(node.BoolValue), nil
	case types.NodeInteger:
		return types.Integer(node.IntValue), nil
	case types.NodeDecimal:
		return types.Decimal(node.NumValue), nil
	case types.NodeString:
		return types.String(node.StrValue), nil
	case types.NodeDate:
		return types.Date{Lit: node.StrValue}, nil
	case types.NodeDateTime:
		return types.DateTime{Lit: node.StrValue}, nil
	case types.NodeTime:
		return types.Time{Lit: node.StrValue}, nil
	case types.NodeNull:
		return types.EmptyValue, nil

	case types.NodeVariable:
		return e.evalVariable(node, ec)

	case types.NodeName:
		return evalName(node.StrValue, ec.Input()), nil

	case types.NodePath:
		return e.evalPath(ctx, node, ec, depth)

	case types.NodeIndexer:
		return e.evalIndexer(ctx, node, ec, depth)

	case types.NodeUnary:
		return e.evalUnary(ctx, node, ec, depth)

	case types.NodeBinary:
		return e.evalBinary(ctx, node, ec, depth)

	case types.NodeTypeOp:
		return e.evalTypeOp(ctx, node, ec, depth)

	case types.NodeFunction:
		return e.evalFunction(ctx, node, ec, depth)
	}

	return nil, types.NewError(types.ErrSyntaxError,
		"unsupported AST node "+string(node.Type), node.Position)
}

// evalVariable resolves $this and %environment variables.
func (e *Evaluator) evalVariable(node *types.ASTNode, ec *Context) (types.Value, error) {
	name := node.StrValue
	if len(name) > 0 && name[0] == '$' {
		switch name[1:] {
		case "this":
			return ec.Input(), nil
		}
		return nil, types.NewError(types.ErrUndefinedVariable,
			"undefined variable "+name, node.Position)
	}
	if v, ok := ec.Variable(name[1:]); ok {
		return v, nil
	}
	return nil, types.NewError(types.ErrUndefinedVariable,
		"undefined environment variable "+name, node.Position)
}

// evalIndexer applies [n] to the preceding expression.
func (e *Evaluator) evalIndexer(ctx context.Context, node *types.ASTNode, ec *Context, depth int) (types.Value, error) {
	left, err := e.evalNode(ctx, node.LHS, ec, depth+1)
	if err != nil {
		return nil, err
	}
	index, err := e.evalNode(ctx, node.RHS, ec, depth+1)
	if err != nil {
		return nil, err
	}
	single, ok := types.Singleton(index)
	if !ok {
		return types.EmptyValue, nil
	}
	n, ok := single.(types.Integer)
	if !ok {
		return nil, &types.TypeMismatchError{Name: "indexer", Want: "Integer", Got: types.TypeOf(single).String()}
	}
	items := types.Items(left)
	if n < 0 || int(n) >= len(items) {
		return types.EmptyValue, nil
	}
	return items[n], nil
}

// evalUnary applies prefix +/- to a singleton number.
func (e *Evaluator) evalUnary(ctx context.Context, node *types.ASTNode, ec *Context, depth int) (types.Value, error) {
	operand, err := e.evalNode(ctx, node.LHS, ec, depth+1)
	if err != nil {
		return nil, err
	}
	single, ok := types.Singleton(operand)
	if !ok {
		return types.EmptyValue, nil
	}
	negate := node.StrValue == "-"
	switch n := single.(type) {
	case types.Integer:
		if negate {
			return -n, nil
		}
		return n, nil
	case types.Decimal:
		if negate {
			return -n, nil
		}
		return n, nil
	}
	return nil, &types.TypeMismatchError{Name: "unary " + node.StrValue,
		Want: "Integer or Decimal", Got: types.TypeOf(single).String()}
}

// evalTypeOp handles the is/as operators.
func (e *Evaluator) evalTypeOp(ctx context.Context, node *types.ASTNode, ec *Context, depth int) (types.Value, error) {
	operand, err := e.evalNode(ctx, node.LHS, ec, depth+1)
	if err != nil {
		return nil, err
	}
	info := types.TypeInfoFromName(node.RHS.StrValue)
	switch node.StrValue {
	case "is":
		single, ok := types.Singleton(operand)
		if !ok {
			return types.EmptyValue, nil
		}
		return types.Boolean(info.Matches(single)), nil
	case "as":
		single, ok := types.Singleton(operand)
		if !ok || !info.Matches(single) {
			return types.EmptyValue, nil
		}
		return single, nil
	}
	return nil, types.NewError(types.ErrSyntaxError,
		"unknown type operator "+node.StrValue, node.Position)
}
