package evaluator

import (
	"regexp"
	"strings"

	"github.com/mooshifrew/fhirpath-go/pkg/types"
)

// String functions. All of them require a singleton string input; an
// empty input propagates empty, a non-string input is a type mismatch.

func registerStringFuncs(r *Registry) {
	strType := types.TypeInfo{Kind: types.StringKind}
	intType := types.TypeInfo{Kind: types.IntegerKind}
	boolType := types.TypeInfo{Kind: types.BooleanKind}
	strColl := types.CollectionOf(strType)

	r.mustRegister(&builtin{
		sig: &Signature{Name: "length", Return: intType},
		eval: stringFunc("length", func(s string, _ []string) (types.Value, error) {
			return types.Integer(len(s)), nil
		}, 0),
	})

	r.mustRegister(&builtin{
		sig:  &Signature{Name: "startsWith", Params: []Param{{Type: strType}}, Return: boolType},
		eval: stringFunc("startsWith", func(s string, args []string) (types.Value, error) {
			return types.Boolean(strings.HasPrefix(s, args[0])), nil
		}, 1),
	})

	r.mustRegister(&builtin{
		sig: &Signature{Name: "endsWith", Params: []Param{{Type: strType}}, Return: boolType},
		eval: stringFunc("endsWith", func(s string, args []string) (types.Value, error) {
			return types.Boolean(strings.HasSuffix(s, args[0])), nil
		}, 1),
	})

	r.mustRegister(&builtin{
		sig: &Signature{Name: "contains", Params: []Param{{Type: strType}}, Return: boolType},
		eval: stringFunc("contains", func(s string, args []string) (types.Value, error) {
			return types.Boolean(strings.Contains(s, args[0])), nil
		}, 1),
	})

	r.mustRegister(&builtin{
		sig: &Signature{Name: "indexOf", Params: []Param{{Type: strType}}, Return: intType},
		eval: stringFunc("indexOf", func(s string, args []string) (types.Value, error) {
			return types.Integer(strings.Index(s, args[0])), nil
		}, 1),
	})

	r.mustRegister(&builtin{
		sig: &Signature{Name: "upper", Return: strType},
		eval: stringFunc("upper", func(s string, _ []string) (types.Value, error) {
			return types.String(strings.ToUpper(s)), nil
		}, 0),
	})

	r.mustRegister(&builtin{
		sig: &Signature{Name: "lower", Return: strType},
		eval: stringFunc("lower", func(s string, _ []string) (types.Value, error) {
			return types.String(strings.ToLower(s)), nil
		}, 0),
	})

	r.mustRegister(&builtin{
		sig: &Signature{Name: "trim", Return: strType},
		eval: stringFunc("trim", func(s string, _ []string) (types.Value, error) {
			return types.String(strings.TrimSpace(s)), nil
		}, 0),
	})

	r.mustRegister(&builtin{
		sig: &Signature{Name: "toChars", Return: strColl},
		eval: stringFunc("toChars", func(s string, _ []string) (types.Value, error) {
			out := make([]types.Value, 0, len(s))
			for _, r := range s {
				out = append(out, types.String(string(r)))
			}
			return types.NewCollection(out...), nil
		}, 0),
	})

	r.mustRegister(&builtin{
		sig: &Signature{Name: "matches", Params: []Param{{Type: strType}}, Return: boolType},
		eval: stringFunc("matches", func(s string, args []string) (types.Value, error) {
			re, err := regexp.Compile(args[0])
			if err != nil {
				return nil, types.NewError(types.ErrSyntaxError, "invalid regex in matches()", -1).WithCause(err)
			}
			return types.Boolean(re.MatchString(s)), nil
		}, 1),
	})

	r.mustRegister(&builtin{
		sig: &Signature{Name: "replace", Params: []Param{{Type: strType}, {Type: strType}}, Return: strType},
		eval: stringFunc("replace", func(s string, args []string) (types.Value, error) {
			return types.String(strings.ReplaceAll(s, args[0], args[1])), nil
		}, 2),
	})

	r.mustRegister(&builtin{
		sig: &Signature{Name: "replaceMatches", Params: []Param{{Type: strType}, {Type: strType}}, Return: strType},
		eval: stringFunc("replaceMatches", func(s string, args []string) (types.Value, error) {
			re, err := regexp.Compile(args[0])
			if err != nil {
				return nil, types.NewError(types.ErrSyntaxError, "invalid regex in replaceMatches()", -1).WithCause(err)
			}
			return types.String(re.ReplaceAllString(s, args[1])), nil
		}, 2),
	})

	r.mustRegister(&builtin{
		sig: &Signature{Name: "split", Params: []Param{{Type: strType}}, Return: strColl},
		eval: stringFunc("split", func(s string, args []string) (types.Value, error) {
			parts := strings.Split(s, args[0])
			out := make([]types.Value, len(parts))
			for i, part := range parts {
				out[i] = types.String(part)
			}
			return types.NewCollection(out...), nil
		}, 1),
	})

	r.mustRegister(&builtin{
		sig: &Signature{Name: "join", Params: []Param{{Type: strType, Optional: true}}, Return: strType},
		eval: func(args []types.Value, ctx *Context) (types.Value, error) {
			sep := ""
			if len(args) == 1 {
				s, err := stringArgument("join", args[0])
				if err != nil {
					return nil, err
				}
				sep = s
			}
			parts := make([]string, 0)
			for _, item := range types.Items(ctx.Input()) {
				s, ok := item.(types.String)
				if !ok {
					return nil, &types.TypeMismatchError{Name: "join", Want: "String", Got: types.TypeOf(item).String()}
				}
				parts = append(parts, string(s))
			}
			return types.String(strings.Join(parts, sep)), nil
		},
	})

	r.mustRegister(&builtin{
		sig: &Signature{Name: "substring", Params: []Param{{Type: intType}, {Type: intType, Optional: true}}, Return: strType},
		eval: func(args []types.Value, ctx *Context) (types.Value, error) {
			s, ok, err := stringInput("substring", ctx)
			if err != nil || !ok {
				return types.EmptyValue, err
			}
			start, err := integerArgument("substring", args[0])
			if err != nil {
				return nil, err
			}
			if start < 0 || int(start) >= len(s) {
				return types.EmptyValue, nil
			}
			end := len(s)
			if len(args) == 2 {
				length, err := integerArgument("substring", args[1])
				if err != nil {
					return nil, err
				}
				if length < 0 {
					length = 0
				}
				if int(start)+int(length) < end {
					end = int(start) + int(length)
				}
			}
			return types.String(s[start:end]), nil
		},
	})
}

// stringFunc adapts a plain string transformation into a registry eval
// closure: empty input propagates, non-string input or arguments are
// type mismatches.
func stringFunc(name string, impl func(s string, args []string) (types.Value, error), nargs int) func([]types.Value, *Context) (types.Value, error) {
	return func(args []types.Value, ctx *Context) (types.Value, error) {
		s, ok, err := stringInput(name, ctx)
		if err != nil {
			return nil, err
		}
		if !ok {
			return types.EmptyValue, nil
		}
		strArgs := make([]string, nargs)
		for i := 0; i < nargs; i++ {
			strArgs[i], err = stringArgument(name, args[i])
			if err != nil {
				return nil, err
			}
		}
		return impl(s, strArgs)
	}
}

// stringInput reads the singleton string input. ok is false for an empty
// input; a non-string input is an error.
func stringInput(fnName string, ctx *Context) (string, bool, error) {
	if types.IsEmpty(ctx.Input()) {
		return "", false, nil
	}
	single, ok := types.Singleton(ctx.Input())
	if !ok {
		return "", false, &types.TypeMismatchError{Name: fnName, Want: "singleton String", Got: "collection"}
	}
	s, ok := single.(types.String)
	if !ok {
		return "", false, &types.TypeMismatchError{Name: fnName, Want: "String", Got: types.TypeOf(single).String()}
	}
	return string(s), true, nil
}

// stringArgument reads a required singleton String argument.
func stringArgument(fnName string, arg types.Value) (string, error) {
	single, ok := types.Singleton(arg)
	if !ok {
		return "", &types.TypeMismatchError{Name: fnName, Want: "String", Got: "empty or collection"}
	}
	s, ok := single.(types.String)
	if !ok {
		return "", &types.TypeMismatchError{Name: fnName, Want: "String", Got: types.TypeOf(single).String()}
	}
	return string(s), nil
}
