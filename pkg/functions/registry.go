// Package functions holds the function catalog: signatures, function
// definitions, resolvers and the built-in function library.
//
// Users can register their own scalar functions with [CustomFunctionDef]
// and pass them to the engine, making them callable inside expressions
// like any built-in.
//
// # Example
//
//	double := functions.CustomFunctionDef{
//	    Name:      "Double",
//	    Signature: "fnn",
//	    Fn: func(ctx context.Context, args ...any) (any, error) {
//	        return args[0].(float64) * 2, nil
//	    },
//	}
//	engine, err := gomdx.New(gomdx.WithCustomFunctions(double))
package functions

import (
	"context"
	"fmt"

	"github.com/sandrolain/gomdx/pkg/calc"
	"github.com/sandrolain/gomdx/pkg/evaluator"
	"github.com/sandrolain/gomdx/pkg/types"
)

// CustomFunc is the signature for user-defined custom functions.
// args contains the evaluated scalar arguments in order: float64 for
// numeric parameters, string, bool, or nil for null.
type CustomFunc func(ctx context.Context, args ...any) (any, error)

// CustomFunctionDef describes a user-defined function.
type CustomFunctionDef struct {
	// Name is the function name as it appears inside expressions.
	Name string
	// Signature is a flag-encoded signature such as "fnnn". Only scalar
	// categories are supported. Empty means one numeric argument returning
	// a number.
	Signature string
	// Description is shown in function listings.
	Description string
	// Fn is the implementation.
	Fn CustomFunc
}

// Resolver turns the custom function into a catalog resolver.
func (f CustomFunctionDef) Resolver() (Resolver, error) {
	flags := f.Signature
	if flags == "" {
		flags = "fnn"
	}
	sig, err := ParseSignature(flags)
	if err != nil {
		return nil, err
	}
	if !sig.Return.IsScalar() {
		return nil, fmt.Errorf("custom function %s: return category %s is not scalar", f.Name, sig.Return)
	}
	for _, p := range sig.Params {
		if !p.IsScalar() {
			return nil, fmt.Errorf("custom function %s: parameter category %s is not scalar", f.Name, p)
		}
	}
	desc := f.Description
	if desc == "" {
		desc = "User-defined function " + f.Name
	}
	fn := f.Fn
	return NewDef(f.Name, desc, flags, func(call *ResolvedCall, c Compiler) (calc.Calc, error) {
		args := make([]calc.Calc, len(call.Args))
		for i, a := range call.Args {
			ac, err := compileParam(c, a, sig.Params[i])
			if err != nil {
				return nil, err
			}
			args[i] = ac
		}
		return calc.NewScalar(calc.Spec{Name: f.Name, Type: call.Type(), Children: args},
			func(ev *evaluator.Evaluator) (any, error) {
				values := make([]any, len(args))
				for i, a := range args {
					v, err := a.Evaluate(ev)
					if err != nil {
						return nil, err
					}
					values[i] = v
				}
				out, err := fn(ev.Context(), values...)
				if err != nil {
					return nil, call.Errorf(types.ErrFunctionFailed, "%v", err).WithCause(err)
				}
				return out, nil
			}), nil
	}), nil
}

// compileParam compiles an argument to the scalar shape of a parameter.
func compileParam(c Compiler, exp types.Exp, cat types.Category) (calc.Calc, error) {
	switch cat {
	case types.CategoryNumeric:
		return c.CompileDouble(exp)
	case types.CategoryInteger:
		return c.CompileInteger(exp)
	case types.CategoryString:
		return c.CompileString(exp)
	case types.CategoryLogical:
		return c.CompileBoolean(exp)
	}
	return c.CompileScalar(exp)
}
