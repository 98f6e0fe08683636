// Package types defines the core type system for the FHIRPath engine.
//
// This package contains type definitions for:
//   - Value: the runtime value model (Empty, scalars, Resource, Collection)
//   - TypeInfo: type descriptors for signatures and is/as checks
//   - Expression: compiled FHIRPath expressions
//   - ASTNode: Abstract Syntax Tree nodes
//   - Error types: structured errors with codes
package types

// Expression represents a compiled FHIRPath expression.
//
// An Expression can be evaluated multiple times against different
// documents by passing it to [evaluator.Evaluator.Eval]. It is safe for
// concurrent use by multiple goroutines.
type Expression struct {
	ast    *ASTNode
	source string
}

// NewExpression creates a new Expression from an AST.
func NewExpression(ast *ASTNode, source string) *Expression {
	return &Expression{ast: ast, source: source}
}

// AST returns the Abstract Syntax Tree of the expression.
func (e *Expression) AST() *ASTNode {
	return e.ast
}

// Source returns the original source text of the expression.
func (e *Expression) Source() string {
	return e.source
}

// String returns the expression source.
func (e *Expression) String() string {
	return e.source
}
