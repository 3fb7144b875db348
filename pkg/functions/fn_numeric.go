package functions

import (
	"github.com/sandrolain/gomdx/pkg/aggregate"
	"github.com/sandrolain/gomdx/pkg/calc"
	"github.com/sandrolain/gomdx/pkg/evaluator"
	"github.com/sandrolain/gomdx/pkg/olap"
	"github.com/sandrolain/gomdx/pkg/types"
)

func numericFunctions() []Resolver {
	var rs []Resolver
	rs = append(rs, NewDef("+", "Adds two numbers.", "innn", arithmetic('+')))
	rs = append(rs, NewDef("-", "Subtracts two numbers.", "innn", arithmetic('-')))
	rs = append(rs, NewDef("*", "Multiplies two numbers.", "innn", arithmetic('*')))
	rs = append(rs, NewDef("/", "Divides two numbers.", "innn", arithmetic('/')))
	rs = append(rs, NewDef("-", "Returns the negative of a number.", "Pnn", compileNegate))
	rs = append(rs, NewDef("||", "Concatenates two strings.", "isss", compileConcat))
	rs = append(rs, NewDef("+", "Concatenates two strings.", "isss", compileConcat))
	rs = append(rs, NewGenerative("IIf", types.SyntaxFunction,
		"Returns one of two values determined by a logical test.",
		[]string{"<Value> IIf(<Logical>, <Value>, <Value>)"}, resolveIIf))
	rs = append(rs, NewGenerative("CoalesceEmpty", types.SyntaxFunction,
		"Coalesces an empty cell value to a different value.",
		[]string{"<Numeric> CoalesceEmpty(<Numeric>, <Numeric>, ...)", "<String> CoalesceEmpty(<String>, <String>, ...)"},
		resolveCoalesceEmpty))
	return rs
}

func binaryDoubles(call *ResolvedCall, c Compiler) (calc.DoubleCalc, calc.DoubleCalc, error) {
	a, err := c.CompileDouble(call.Args[0])
	if err != nil {
		return nil, nil, err
	}
	b, err := c.CompileDouble(call.Args[1])
	if err != nil {
		return nil, nil, err
	}
	return a, b, nil
}

// arithmetic compiles a binary operator. For + and - a null operand counts
// as zero unless both are null; * and / are null when either operand is.
func arithmetic(op byte) CompileFunc {
	return func(call *ResolvedCall, c Compiler) (calc.Calc, error) {
		a, b, err := binaryDoubles(call, c)
		if err != nil {
			return nil, err
		}
		return calc.NewDouble(calc.Spec{Name: call.Name(), Type: types.Numeric, Children: []calc.Calc{a, b}},
			func(ev *evaluator.Evaluator) (float64, bool, error) {
				x, xok, err := a.EvaluateDouble(ev)
				if err != nil {
					return 0, false, err
				}
				y, yok, err := b.EvaluateDouble(ev)
				if err != nil {
					return 0, false, err
				}
				switch op {
				case '+':
					return x + y, xok || yok, nil
				case '-':
					return x - y, xok || yok, nil
				case '*':
					return x * y, xok && yok, nil
				}
				return x / y, xok && yok, nil
			}), nil
	}
}

func compileNegate(call *ResolvedCall, c Compiler) (calc.Calc, error) {
	a, err := c.CompileDouble(call.Args[0])
	if err != nil {
		return nil, err
	}
	return calc.NewDouble(calc.Spec{Name: call.Name(), Type: types.Numeric, Children: []calc.Calc{a}},
		func(ev *evaluator.Evaluator) (float64, bool, error) {
			x, ok, err := a.EvaluateDouble(ev)
			return -x, ok, err
		}), nil
}

func compileConcat(call *ResolvedCall, c Compiler) (calc.Calc, error) {
	a, err := c.CompileString(call.Args[0])
	if err != nil {
		return nil, err
	}
	b, err := c.CompileString(call.Args[1])
	if err != nil {
		return nil, err
	}
	return calc.NewString(calc.Spec{Name: call.Name(), Type: types.String, Children: []calc.Calc{a, b}},
		func(ev *evaluator.Evaluator) (string, error) {
			x, err := a.EvaluateString(ev)
			if err != nil {
				return "", err
			}
			y, err := b.EvaluateString(ev)
			return x + y, err
		}), nil
}

// branchCode returns the signature code a generative definition uses for a
// value of type t.
func branchCode(t types.Type) byte {
	switch cat := t.Category(); cat {
	case types.CategoryUnknown, types.CategoryNull, types.CategoryEmpty:
		return 'v'
	default:
		return categoryCode(cat)
	}
}

// resolveIIf binds both branches to their common type. Only the branch the
// condition selects is evaluated.
func resolveIIf(args []types.Exp) (FunDef, int, bool) {
	if len(args) != 3 {
		return nil, 0, false
	}
	common := types.CommonType(args[1].Type(), args[2].Type())
	if common == nil {
		return nil, 0, false
	}
	code := string(branchCode(common))
	def := NewDef("IIf", "Returns one of two values determined by a logical test.",
		"f"+code+"b"+code+code, compileIIf,
		WithResultType(func(args []types.Exp) (types.Type, error) {
			if t := types.CommonType(args[1].Type(), args[2].Type()); t != nil && t.Category() != types.CategoryNull {
				return t, nil
			}
			return types.Value, nil
		}))
	cost, ok := def.sig.Match(args)
	if !ok {
		return nil, 0, false
	}
	return def, cost, true
}

func compileIIf(call *ResolvedCall, c Compiler) (calc.Calc, error) {
	cond, err := c.CompileBoolean(call.Args[0])
	if err != nil {
		return nil, err
	}
	spec := calc.Spec{Name: call.Name(), Type: call.Type()}
	pick := func(ev *evaluator.Evaluator) (int, error) {
		ok, err := cond.EvaluateBoolean(ev)
		if err != nil {
			return 0, err
		}
		if ok {
			return 1, nil
		}
		return 2, nil
	}
	switch call.Type().Category() {
	case types.CategoryNumeric, types.CategoryInteger:
		branches, err := compileBranches(call, func(e types.Exp) (calc.DoubleCalc, error) { return c.CompileDouble(e) })
		if err != nil {
			return nil, err
		}
		spec.Children = []calc.Calc{cond, branches[1], branches[2]}
		spec.Type = types.Numeric
		return calc.NewDouble(spec, func(ev *evaluator.Evaluator) (float64, bool, error) {
			i, err := pick(ev)
			if err != nil {
				return 0, false, err
			}
			return branches[i].EvaluateDouble(ev)
		}), nil
	case types.CategoryString:
		branches, err := compileBranches(call, func(e types.Exp) (calc.StringCalc, error) { return c.CompileString(e) })
		if err != nil {
			return nil, err
		}
		spec.Children = []calc.Calc{cond, branches[1], branches[2]}
		return calc.NewString(spec, func(ev *evaluator.Evaluator) (string, error) {
			i, err := pick(ev)
			if err != nil {
				return "", err
			}
			return branches[i].EvaluateString(ev)
		}), nil
	case types.CategoryLogical:
		branches, err := compileBranches(call, func(e types.Exp) (calc.BooleanCalc, error) { return c.CompileBoolean(e) })
		if err != nil {
			return nil, err
		}
		spec.Children = []calc.Calc{cond, branches[1], branches[2]}
		return calc.NewBoolean(spec, func(ev *evaluator.Evaluator) (bool, error) {
			i, err := pick(ev)
			if err != nil {
				return false, err
			}
			return branches[i].EvaluateBoolean(ev)
		}), nil
	case types.CategoryMember:
		branches, err := compileBranches(call, func(e types.Exp) (calc.MemberCalc, error) { return c.CompileMember(e) })
		if err != nil {
			return nil, err
		}
		spec.Children = []calc.Calc{cond, branches[1], branches[2]}
		return calc.NewMember(spec, func(ev *evaluator.Evaluator) (*olap.Member, error) {
			i, err := pick(ev)
			if err != nil {
				return nil, err
			}
			return branches[i].EvaluateMember(ev)
		}), nil
	case types.CategoryTuple:
		branches, err := compileBranches(call, func(e types.Exp) (calc.TupleCalc, error) { return c.CompileTuple(e) })
		if err != nil {
			return nil, err
		}
		spec.Children = []calc.Calc{cond, branches[1], branches[2]}
		return calc.NewTuple(spec, func(ev *evaluator.Evaluator) (olap.Tuple, error) {
			i, err := pick(ev)
			if err != nil {
				return nil, err
			}
			return branches[i].EvaluateTuple(ev)
		}), nil
	case types.CategorySet:
		branches, err := compileBranches(call, func(e types.Exp) (calc.ListCalc, error) { return c.CompileList(e, false) })
		if err != nil {
			return nil, err
		}
		spec.Children = []calc.Calc{cond, branches[1], branches[2]}
		spec.Style = calc.StyleList
		return calc.NewList(spec, func(ev *evaluator.Evaluator) (*olap.TupleList, error) {
			i, err := pick(ev)
			if err != nil {
				return nil, err
			}
			return branches[i].EvaluateList(ev)
		}), nil
	}
	branches, err := compileBranches(call, c.CompileScalar)
	if err != nil {
		return nil, err
	}
	spec.Children = []calc.Calc{cond, branches[1], branches[2]}
	return calc.NewScalar(spec, func(ev *evaluator.Evaluator) (any, error) {
		i, err := pick(ev)
		if err != nil {
			return nil, err
		}
		return branches[i].Evaluate(ev)
	}), nil
}

// compileBranches compiles arguments 1 and 2; index 0 is left empty so the
// result lines up with the argument positions.
func compileBranches[C calc.Calc](call *ResolvedCall, compile func(types.Exp) (C, error)) ([3]C, error) {
	var out [3]C
	for i := 1; i <= 2; i++ {
		b, err := compile(call.Args[i])
		if err != nil {
			return out, err
		}
		out[i] = b
	}
	return out, nil
}

// resolveCoalesceEmpty binds every argument to Numeric when all convert to
// a number, otherwise to String.
func resolveCoalesceEmpty(args []types.Exp) (FunDef, int, bool) {
	if len(args) < 2 {
		return nil, 0, false
	}
	for _, code := range []byte{'n', 's'} {
		flags := []byte{'f', code}
		for range args {
			flags = append(flags, code)
		}
		def := NewDef("CoalesceEmpty", "Coalesces an empty cell value to a different value.",
			string(flags), compileCoalesceEmpty)
		if cost, ok := def.sig.Match(args); ok {
			return def, cost, true
		}
	}
	return nil, 0, false
}

func compileCoalesceEmpty(call *ResolvedCall, c Compiler) (calc.Calc, error) {
	values := make([]calc.Calc, len(call.Args))
	for i, a := range call.Args {
		v, err := c.CompileScalar(a)
		if err != nil {
			return nil, err
		}
		values[i] = v
	}
	first := func(ev *evaluator.Evaluator) (any, error) {
		for _, v := range values {
			x, err := v.Evaluate(ev)
			if err != nil {
				return nil, err
			}
			if x, err = aggregate.Value(ev.Context(), x); err != nil || x != nil {
				return x, err
			}
		}
		return nil, nil
	}
	spec := calc.Spec{Name: call.Name(), Type: call.Type(), Children: values}
	if call.Def.Signature().Return == types.CategoryString {
		return calc.NewString(spec, func(ev *evaluator.Evaluator) (string, error) {
			x, err := first(ev)
			if err != nil {
				return "", err
			}
			return calc.ToString(ev.Context(), x)
		}), nil
	}
	return calc.NewDouble(spec, func(ev *evaluator.Evaluator) (float64, bool, error) {
		x, err := first(ev)
		if err != nil {
			return 0, false, err
		}
		return calc.ToDouble(ev.Context(), x)
	}), nil
}
