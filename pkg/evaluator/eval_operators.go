package evaluator

import (
	"context"
	"math"

	"github.com/mooshifrew/fhirpath-go/pkg/types"
)

// evalBinary evaluates a binary operator node. Both operands are
// evaluated eagerly; errors from either abort the whole evaluation.
func (e *Evaluator) evalBinary(ctx context.Context, node *types.ASTNode, ec *Context, depth int) (types.Value, error) {
	lhs, err := e.evalNode(ctx, node.LHS, ec, depth+1)
	if err != nil {
		return nil, err
	}
	rhs, err := e.evalNode(ctx, node.RHS, ec, depth+1)
	if err != nil {
		return nil, err
	}
	return applyBinary(node.StrValue, lhs, rhs)
}

func applyBinary(op string, lhs, rhs types.Value) (types.Value, error) {
	switch op {
	case "=", "!=":
		return applyEquality(op, lhs, rhs)
	case "<", "<=", ">", ">=":
		return applyComparison(op, lhs, rhs)
	case "+", "-", "*", "/", "div", "mod":
		return applyArithmetic(op, lhs, rhs)
	case "&":
		return applyConcat(lhs, rhs)
	case "|":
		return applyUnion(lhs, rhs), nil
	case "in":
		return applyMembership(lhs, rhs)
	case "contains":
		return applyMembership(rhs, lhs)
	case "and", "or", "xor", "implies":
		return applyLogical(op, lhs, rhs)
	}
	return nil, types.NewError(types.ErrSyntaxError, "unknown operator "+op, -1)
}

// applyEquality implements = and != with collection semantics: an empty
// operand propagates empty; otherwise collections compare item-wise in
// order.
func applyEquality(op string, lhs, rhs types.Value) (types.Value, error) {
	if types.IsEmpty(lhs) || types.IsEmpty(rhs) {
		return types.EmptyValue, nil
	}
	left, right := types.Items(lhs), types.Items(rhs)
	equal := len(left) == len(right)
	if equal {
		for i := range left {
			if !left[i].Equal(right[i]) {
				equal = false
				break
			}
		}
	}
	if op == "!=" {
		equal = !equal
	}
	return types.Boolean(equal), nil
}

// applyComparison implements the ordering operators on singleton numbers,
// strings and temporals. Temporal literals of like precision are ISO-8601
// and order lexicographically.
func applyComparison(op string, lhs, rhs types.Value) (types.Value, error) {
	left, okL := types.Singleton(lhs)
	right, okR := types.Singleton(rhs)
	if !okL || !okR {
		return types.EmptyValue, nil
	}

	var cmp int
	switch l := left.(type) {
	case types.Integer, types.Decimal:
		lf, _ := numOf(left)
		rf, ok := numOf(right)
		if !ok {
			return nil, comparisonMismatch(op, left, right)
		}
		cmp = compareFloats(lf, rf)
	case types.String:
		r, ok := right.(types.String)
		if !ok {
			return nil, comparisonMismatch(op, left, right)
		}
		cmp = compareStrings(string(l), string(r))
	case types.Date:
		r, ok := right.(types.Date)
		if !ok {
			return nil, comparisonMismatch(op, left, right)
		}
		cmp = compareStrings(l.Lit, r.Lit)
	case types.DateTime:
		r, ok := right.(types.DateTime)
		if !ok {
			return nil, comparisonMismatch(op, left, right)
		}
		cmp = compareStrings(l.Lit, r.Lit)
	case types.Time:
		r, ok := right.(types.Time)
		if !ok {
			return nil, comparisonMismatch(op, left, right)
		}
		cmp = compareStrings(l.Lit, r.Lit)
	default:
		return nil, comparisonMismatch(op, left, right)
	}

	switch op {
	case "<":
		return types.Boolean(cmp < 0), nil
	case "<=":
		return types.Boolean(cmp <= 0), nil
	case ">":
		return types.Boolean(cmp > 0), nil
	}
	return types.Boolean(cmp >= 0), nil
}

// applyArithmetic implements numeric arithmetic and string +.
// Division by zero yields empty, not an error.
func applyArithmetic(op string, lhs, rhs types.Value) (types.Value, error) {
	left, okL := types.Singleton(lhs)
	right, okR := types.Singleton(rhs)
	if !okL || !okR {
		return types.EmptyValue, nil
	}

	if op == "+" {
		if l, ok := left.(types.String); ok {
			r, ok := right.(types.String)
			if !ok {
				return nil, comparisonMismatch(op, left, right)
			}
			return l + r, nil
		}
	}

	li, lIsInt := left.(types.Integer)
	ri, rIsInt := right.(types.Integer)
	if lIsInt && rIsInt {
		switch op {
		case "+":
			return li + ri, nil
		case "-":
			return li - ri, nil
		case "*":
			return li * ri, nil
		case "div":
			if ri == 0 {
				return types.EmptyValue, nil
			}
			return li / ri, nil
		case "mod":
			if ri == 0 {
				return types.EmptyValue, nil
			}
			return li % ri, nil
		case "/":
			if ri == 0 {
				return types.EmptyValue, nil
			}
			return types.Decimal(float64(li) / float64(ri)), nil
		}
	}

	lf, okL := numOf(left)
	rf, okR := numOf(right)
	if !okL || !okR {
		return nil, comparisonMismatch(op, left, right)
	}
	switch op {
	case "+":
		return types.Decimal(lf + rf), nil
	case "-":
		return types.Decimal(lf - rf), nil
	case "*":
		return types.Decimal(lf * rf), nil
	case "/":
		if rf == 0 {
			return types.EmptyValue, nil
		}
		return types.Decimal(lf / rf), nil
	case "div":
		if rf == 0 {
			return types.EmptyValue, nil
		}
		return types.Integer(int64(math.Trunc(lf / rf))), nil
	case "mod":
		if rf == 0 {
			return types.EmptyValue, nil
		}
		return types.Decimal(math.Mod(lf, rf)), nil
	}
	return nil, types.NewError(types.ErrSyntaxError, "unknown operator "+op, -1)
}

// applyConcat is the & operator: string concatenation treating empty
// operands as the empty string.
func applyConcat(lhs, rhs types.Value) (types.Value, error) {
	left, err := concatOperand(lhs)
	if err != nil {
		return nil, err
	}
	right, err := concatOperand(rhs)
	if err != nil {
		return nil, err
	}
	return types.String(left + right), nil
}

func concatOperand(v types.Value) (string, error) {
	if types.IsEmpty(v) {
		return "", nil
	}
	single, ok := types.Singleton(v)
	if !ok {
		return "", &types.TypeMismatchError{Name: "&", Want: "singleton String", Got: "collection"}
	}
	s, ok := single.(types.String)
	if !ok {
		return "", &types.TypeMismatchError{Name: "&", Want: "String", Got: types.TypeOf(single).String()}
	}
	return string(s), nil
}

// applyUnion merges two collections, eliminating duplicates while
// preserving first-seen order.
func applyUnion(lhs, rhs types.Value) types.Value {
	out := make([]types.Value, 0)
	for _, item := range append(types.Items(lhs), types.Items(rhs)...) {
		if !containsValue(out, item) {
			out = append(out, item)
		}
	}
	return types.NewCollection(out...)
}

// applyMembership implements "needle in haystack".
func applyMembership(needle, haystack types.Value) (types.Value, error) {
	if types.IsEmpty(needle) {
		return types.EmptyValue, nil
	}
	single, ok := types.Singleton(needle)
	if !ok {
		return nil, &types.TypeMismatchError{Name: "in", Want: "singleton operand", Got: "collection"}
	}
	return types.Boolean(containsValue(types.Items(haystack), single)), nil
}

// applyLogical implements three-valued boolean logic: an empty operand is
// the unknown truth value.
func applyLogical(op string, lhs, rhs types.Value) (types.Value, error) {
	l, lKnown := boolOf(lhs)
	r, rKnown := boolOf(rhs)

	switch op {
	case "and":
		if lKnown && rKnown {
			return types.Boolean(l && r), nil
		}
		// false and unknown is false; anything else is unknown.
		if (lKnown && !l) || (rKnown && !r) {
			return types.Boolean(false), nil
		}
		return types.EmptyValue, nil
	case "or":
		if lKnown && rKnown {
			return types.Boolean(l || r), nil
		}
		if (lKnown && l) || (rKnown && r) {
			return types.Boolean(true), nil
		}
		return types.EmptyValue, nil
	case "xor":
		if lKnown && rKnown {
			return types.Boolean(l != r), nil
		}
		return types.EmptyValue, nil
	case "implies":
		if lKnown && !l {
			return types.Boolean(true), nil
		}
		if rKnown && r {
			return types.Boolean(true), nil
		}
		if lKnown && rKnown {
			return types.Boolean(false), nil
		}
		return types.EmptyValue, nil
	}
	return nil, types.NewError(types.ErrSyntaxError, "unknown operator "+op, -1)
}

// boolOf converts a value to a definite boolean when possible. The second
// return is false for unknown (empty or non-boolean non-singleton input).
// Per the singleton evaluation rule, a single non-boolean item is truthy.
func boolOf(v types.Value) (value bool, known bool) {
	if types.IsEmpty(v) {
		return false, false
	}
	single, ok := types.Singleton(v)
	if !ok {
		return false, false
	}
	if b, ok := single.(types.Boolean); ok {
		return bool(b), true
	}
	return true, true
}

// numOf converts a singleton numeric value to float64.
func numOf(v types.Value) (float64, bool) {
	switch n := v.(type) {
	case types.Integer:
		return float64(n), true
	case types.Decimal:
		return float64(n), true
	}
	return 0, false
}

func compareFloats(l, r float64) int {
	switch {
	case l < r:
		return -1
	case l > r:
		return 1
	}
	return 0
}

func compareStrings(l, r string) int {
	switch {
	case l < r:
		return -1
	case l > r:
		return 1
	}
	return 0
}

func comparisonMismatch(op string, left, right types.Value) error {
	return &types.TypeMismatchError{
		Name: op,
		Want: types.TypeOf(left).String(),
		Got:  types.TypeOf(right).String(),
	}
}
