package evaluator

import (
	"fmt"

	"github.com/mooshifrew/fhirpath-go/pkg/types"
)

// Context carries the evaluation state: the value currently being
// evaluated against, the original root document, and the environment
// variable bindings.
//
// A Context is immutable. Descending into a sub-expression derives a new
// Context via WithInput; root and environment are shared by reference
// across all derived contexts of one evaluation call and are never
// mutated after construction. This keeps sibling sub-expression
// evaluations fully isolated from each other.
type Context struct {
	input types.Value
	root  types.Value
	env   map[string]types.Value
}

// NewContext creates the top-level context for one evaluation call.
// The env map is copied so later changes by the caller cannot leak in.
func NewContext(input, root types.Value, env map[string]types.Value) *Context {
	bound := make(map[string]types.Value, len(env))
	for name, value := range env {
		bound[name] = value
	}
	return &Context{input: input, root: root, env: bound}
}

// WithInput derives a context with a different input. This is the only
// way input changes; root and environment are shared with the parent.
func (c *Context) WithInput(input types.Value) *Context {
	return &Context{input: input, root: c.root, env: c.env}
}

// Input returns the value currently being evaluated against.
func (c *Context) Input() types.Value {
	return c.input
}

// Root returns the original top-level document value. It is fixed for
// the whole evaluation regardless of how far navigation has descended.
func (c *Context) Root() types.Value {
	return c.root
}

// Variable returns the environment binding for name ("resource",
// "context", ...).
func (c *Context) Variable(name string) (types.Value, bool) {
	v, ok := c.env[name]
	return v, ok
}

// String returns a short description for diagnostics.
func (c *Context) String() string {
	return fmt.Sprintf("Context{input=%s, env=%d}", types.Repr(c.input), len(c.env))
}
