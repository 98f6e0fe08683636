// Package evaluator implements the FHIRPath expression evaluation engine.
//
// The evaluator receives a parsed Abstract Syntax Tree (AST) from the
// parser and evaluates it against a document tree. It supports:
//   - Path navigation with collection flattening and empty propagation
//   - Built-in function dispatch through a frozen registry
//   - Local reference resolution (Bundle, Parameters, contained, fragments)
//   - Timeout and cancellation via context.Context
//
// Evaluation is single-threaded and synchronous: one call, one
// non-suspending walk of the AST. Because the value model, the evaluation
// context and the registry are immutable after construction, any number
// of independent evaluations may run concurrently against the same
// document and registry without locking.
package evaluator

import (
	"log/slog"
	"time"

	"github.com/mooshifrew/fhirpath-go/pkg/types"
)

// Evaluator evaluates FHIRPath expressions against documents.
type Evaluator struct {
	opts     EvalOptions
	logger   *slog.Logger
	registry *Registry
	custom   map[string]Function
}

// EvalOptions configures evaluator behavior.
type EvalOptions struct {
	// MaxDepth limits AST recursion depth.
	MaxDepth int
	// Timeout bounds a single evaluation call. Zero disables the bound.
	Timeout time.Duration
	// Logger for structured logging; trace() writes through it.
	Logger *slog.Logger
	// Registry overrides the default built-in registry.
	Registry *Registry
	// Functions holds extra functions visible to this evaluator only.
	Functions []Function
	// Env holds additional environment variable bindings, keyed without
	// the leading '%'.
	Env map[string]types.Value
}

// EvalOption configures evaluation behavior.
type EvalOption func(*EvalOptions)

// New creates a new Evaluator with default options.
func New(opts ...EvalOption) *Evaluator {
	options := EvalOptions{
		MaxDepth: 1000,
		Timeout:  30 * time.Second,
	}
	for _, opt := range opts {
		opt(&options)
	}
	if options.Logger == nil {
		options.Logger = slog.Default()
	}
	registry := options.Registry
	if registry == nil {
		registry = DefaultRegistry()
	}
	custom := make(map[string]Function, len(options.Functions))
	for _, fn := range options.Functions {
		custom[fn.Name()] = fn
	}
	return &Evaluator{
		opts:     options,
		logger:   options.Logger,
		registry: registry,
		custom:   custom,
	}
}

// WithTimeout sets the evaluation timeout.
func WithTimeout(timeout time.Duration) EvalOption {
	return func(opts *EvalOptions) {
		opts.Timeout = timeout
	}
}

// WithMaxDepth sets the maximum AST recursion depth.
func WithMaxDepth(depth int) EvalOption {
	return func(opts *EvalOptions) {
		opts.MaxDepth = depth
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) EvalOption {
	return func(opts *EvalOptions) {
		opts.Logger = logger
	}
}

// WithRegistry replaces the built-in function registry.
func WithRegistry(r *Registry) EvalOption {
	return func(opts *EvalOptions) {
		opts.Registry = r
	}
}

// WithFunction makes an extra function visible to this evaluator without
// touching the shared registry.
func WithFunction(fn Function) EvalOption {
	return func(opts *EvalOptions) {
		opts.Functions = append(opts.Functions, fn)
	}
}

// WithEnvVar binds an environment variable (%name) for all evaluations
// run through this evaluator.
func WithEnvVar(name string, value types.Value) EvalOption {
	return func(opts *EvalOptions) {
		if opts.Env == nil {
			opts.Env = make(map[string]types.Value)
		}
		opts.Env[name] = value
	}
}

// lookupFunction resolves a name against the per-evaluator overlay first,
// then the shared registry.
func (e *Evaluator) lookupFunction(name string) (Function, bool) {
	if fn, ok := e.custom[name]; ok {
		return fn, true
	}
	return e.registry.Lookup(name)
}
