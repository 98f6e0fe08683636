package evaluator

import (
	"strings"

	"github.com/mooshifrew/fhirpath-go/pkg/types"
)

// Param declares one parameter of a function signature.
type Param struct {
	Type     types.TypeInfo
	Optional bool
}

// Signature declares a built-in function's name, parameters and return
// type. Signatures are built once at registry construction and are
// immutable afterwards; they are safe to share across evaluations.
//
// Parameter types are advisory: the driver validates arity against the
// signature, but functions still match on the actual Value variants they
// receive and return a typed error on mismatch.
type Signature struct {
	Name   string
	Params []Param
	Return types.TypeInfo

	// Variadic marks the last parameter as repeatable; MaxArgs is then
	// unbounded.
	Variadic bool
}

// MinArgs returns the number of required parameters.
func (s *Signature) MinArgs() int {
	n := 0
	for _, p := range s.Params {
		if !p.Optional {
			n++
		}
	}
	return n
}

// MaxArgs returns the maximum argument count, or -1 when unbounded.
func (s *Signature) MaxArgs() int {
	if s.Variadic {
		return -1
	}
	return len(s.Params)
}

// ValidateArity checks an argument count against the declared bounds.
func (s *Signature) ValidateArity(actual int) error {
	min, max := s.MinArgs(), s.MaxArgs()
	if actual < min || (max >= 0 && actual > max) {
		return &types.ArityError{Name: s.Name, Min: min, Max: max, Actual: actual}
	}
	return nil
}

// String renders the signature, e.g. "substring(Integer, Integer?) : String".
func (s *Signature) String() string {
	parts := make([]string, len(s.Params))
	for i, p := range s.Params {
		parts[i] = p.Type.String()
		if p.Optional {
			parts[i] += "?"
		}
	}
	return s.Name + "(" + strings.Join(parts, ", ") + ") : " + s.Return.String()
}
