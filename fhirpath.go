// Package fhirpath provides a FHIRPath expression engine for Go.
//
// FHIRPath is a path-based navigation and extraction language for
// FHIR-style document trees. This package parses expressions into an
// immutable AST and evaluates them against decoded JSON documents,
// always producing a flat collection of values.
//
// # Quick Start
//
//	// Simple evaluation
//	result, err := fhirpath.Eval("Patient.name.given", patient)
//
//	// Compile once, evaluate many times
//	expr, err := fhirpath.Compile("Bundle.entry.resource.ofType(Observation)")
//	result1, _ := fhirpath.EvalCompiled(ctx, expr, bundle1)
//	result2, _ := fhirpath.EvalCompiled(ctx, expr, bundle2)
//
//	// With options
//	result, err := fhirpath.Eval("subject.resolve().name", observation,
//	    evaluator.WithTimeout(5*time.Second),
//	)
//
// # Concurrency
//
// Compiled expressions, the default function registry and evaluation
// contexts are all immutable, so any number of evaluations may run
// concurrently over the same expression and document.
//
// # More Information
//
// For detailed documentation, see:
//   - Parser: github.com/mooshifrew/fhirpath-go/pkg/parser
//   - Evaluator: github.com/mooshifrew/fhirpath-go/pkg/evaluator
//   - Types: github.com/mooshifrew/fhirpath-go/pkg/types
package fhirpath

import (
	"context"
	"fmt"

	"github.com/mooshifrew/fhirpath-go/pkg/evaluator"
	"github.com/mooshifrew/fhirpath-go/pkg/parser"
	"github.com/mooshifrew/fhirpath-go/pkg/types"
)

// Version returns the current version of the engine.
func Version() string {
	return "v0.1.0-dev"
}

// Compile parses a FHIRPath expression for repeated evaluation.
//
// The compiled expression is immutable and safe for concurrent use.
func Compile(expression string) (*types.Expression, error) {
	return parser.Parse(expression)
}

// MustCompile is like Compile but panics if the expression cannot be
// parsed. It simplifies safe initialization of global variables.
func MustCompile(expression string) *types.Expression {
	expr, err := Compile(expression)
	if err != nil {
		panic(fmt.Sprintf("fhirpath: Compile(%q): %v", expression, err))
	}
	return expr
}

// Eval compiles and evaluates an expression against a document in a
// single call. The document may be a decoded JSON tree or a types.Value.
//
// For repeated evaluations of the same expression, use Compile and
// EvalCompiled instead.
func Eval(expression string, document interface{}, opts ...evaluator.EvalOption) (types.Collection, error) {
	return EvalWithContext(context.Background(), expression, document, opts...)
}

// EvalWithContext is Eval with a caller-supplied context for
// cancellation and deadlines.
func EvalWithContext(ctx context.Context, expression string, document interface{}, opts ...evaluator.EvalOption) (types.Collection, error) {
	expr, err := Compile(expression)
	if err != nil {
		return nil, err
	}
	return EvalCompiled(ctx, expr, document, opts...)
}

// EvalCompiled evaluates a previously compiled expression.
func EvalCompiled(ctx context.Context, expr *types.Expression, document interface{}, opts ...evaluator.EvalOption) (types.Collection, error) {
	eval := evaluator.New(opts...)
	return eval.Eval(ctx, expr, document)
}
