package evaluator

import (
	"sort"
	"sync"
	"sync/atomic"

	"github.com/mooshifrew/fhirpath-go/pkg/types"
)

// Function is the contract every built-in operation implements.
//
// Name is the unique registry key. Signature is stable and computed once;
// callers may cache it. Evaluate receives the already-evaluated argument
// values and the evaluation context, and must not mutate either; its only
// effect is the returned Value or error.
type Function interface {
	Name() string
	Signature() *Signature
	Evaluate(args []types.Value, ctx *Context) (types.Value, error)
}

// builtin is the common implementation vehicle for most built-ins: a
// static signature plus an evaluation closure. Operations with more
// internal structure (resolve) implement Function as their own type.
type builtin struct {
	sig  *Signature
	eval func(args []types.Value, ctx *Context) (types.Value, error)
}

func (b *builtin) Name() string          { return b.sig.Name }
func (b *builtin) Signature() *Signature { return b.sig }

func (b *builtin) Evaluate(args []types.Value, ctx *Context) (types.Value, error) {
	return b.eval(args, ctx)
}

// Registry maps function names to implementations.
//
// A Registry is populated before evaluation begins and freezes itself at
// first lookup; registration after that point fails with an error rather
// than racing with running evaluations.
type Registry struct {
	mu     sync.Mutex
	fns    map[string]Function
	frozen atomic.Bool
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{fns: make(map[string]Function)}
}

// Register adds a function under its name. Duplicate names and
// registration after first use are errors.
func (r *Registry) Register(fn Function) error {
	if r.frozen.Load() {
		return types.NewError(types.ErrRegistryFrozen,
			"registry is frozen; register functions before evaluation begins", -1)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	name := fn.Name()
	if _, exists := r.fns[name]; exists {
		return types.NewError(types.ErrDuplicateFunction,
			"function "+name+" already registered", -1)
	}
	r.fns[name] = fn
	return nil
}

// mustRegister is used for the built-in set, where a duplicate is a
// programming error.
func (r *Registry) mustRegister(fn Function) {
	if err := r.Register(fn); err != nil {
		panic(err)
	}
}

// Lookup returns the function registered under name. The first call
// freezes the registry.
func (r *Registry) Lookup(name string) (Function, bool) {
	r.frozen.Store(true)
	fn, ok := r.fns[name]
	return fn, ok
}

// Names returns the registered function names, sorted.
func (r *Registry) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	names := make([]string, 0, len(r.fns))
	for name := range r.fns {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

var (
	defaultRegistry     *Registry
	defaultRegistryOnce sync.Once
)

// DefaultRegistry returns the process-wide registry holding all built-in
// functions. It is built once and treated as read-only thereafter.
func DefaultRegistry() *Registry {
	defaultRegistryOnce.Do(func() {
		defaultRegistry = NewRegistry()
		registerExistenceFuncs(defaultRegistry)
		registerFilteringFuncs(defaultRegistry)
		registerStringFuncs(defaultRegistry)
		registerMathFuncs(defaultRegistry)
		registerConversionFuncs(defaultRegistry)
		registerTypeFuncs(defaultRegistry)
		registerUtilityFuncs(defaultRegistry)
		defaultRegistry.mustRegister(&ResolveFunction{})
	})
	return defaultRegistry
}
