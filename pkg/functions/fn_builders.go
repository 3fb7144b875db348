package functions

import (
	"strings"

	"github.com/sandrolain/gomdx/pkg/calc"
	"github.com/sandrolain/gomdx/pkg/evaluator"
	"github.com/sandrolain/gomdx/pkg/olap"
	"github.com/sandrolain/gomdx/pkg/types"
)

const (
	bracesDesc = "Brace operator constructs a set."
	parensDesc = "Parenthesis operator constructs a tuple. A single expression in parentheses is returned unchanged."
)

func builderFunctions() []Resolver {
	return []Resolver{
		NewGenerative("{}", types.SyntaxBraces, bracesDesc,
			[]string{"<Set> {<Member>|<Tuple>|<Set>, ...}"}, resolveBraces),
		NewGenerative("()", types.SyntaxParentheses, parensDesc,
			[]string{"<Tuple> (<Member>, <Member>, ...)", "<Value> (<Value>)"}, resolveParens),
	}
}

// resolveBraces accepts members, tuples and sets and synthesizes a
// signature naming the category of each argument.
func resolveBraces(args []types.Exp) (FunDef, int, bool) {
	var flags strings.Builder
	flags.WriteString("bx")
	for _, a := range args {
		switch a.Type().Category() {
		case types.CategoryMember, types.CategoryNull:
			flags.WriteByte('m')
		case types.CategoryTuple:
			flags.WriteByte('t')
		case types.CategorySet:
			flags.WriteByte('x')
		default:
			return nil, 0, false
		}
	}
	def := NewDef("{}", bracesDesc, flags.String(), compileBraces, WithResultType(bracesType))
	cost, ok := def.sig.Match(args)
	if !ok {
		return nil, 0, false
	}
	return def, cost, true
}

func bracesType(args []types.Exp) (types.Type, error) {
	if len(args) == 0 {
		return types.UnknownSet, nil
	}
	var out types.Type
	arity := -1
	for _, a := range args {
		if a.Type().Category() == types.CategoryNull {
			continue
		}
		st := asSetType(a.Type())
		if n := st.Arity(); n > 0 {
			if arity > 0 && n != arity {
				return nil, types.Errorf(types.ErrTypeMismatch,
					"all arguments to {} must have the same arity, got %d and %d", arity, n)
			}
			arity = n
		}
		out = types.CommonType(out, st)
	}
	if st, ok := out.(*types.SetType); ok {
		return st, nil
	}
	return types.UnknownSet, nil
}

func compileBraces(call *ResolvedCall, c Compiler) (calc.Calc, error) {
	type part func(ev *evaluator.Evaluator, out *collector) error
	parts := make([]part, len(call.Args))
	children := make([]calc.Calc, len(call.Args))
	for i, a := range call.Args {
		switch a.Type().Category() {
		case types.CategoryMember, types.CategoryNull:
			mc, err := c.CompileMember(a)
			if err != nil {
				return nil, err
			}
			children[i] = mc
			parts[i] = func(ev *evaluator.Evaluator, out *collector) error {
				m, err := mc.EvaluateMember(ev)
				if err != nil || m == nil {
					return err
				}
				return out.add(olap.Tuple{m})
			}
		case types.CategoryTuple:
			tc, err := c.CompileTuple(a)
			if err != nil {
				return nil, err
			}
			children[i] = tc
			parts[i] = func(ev *evaluator.Evaluator, out *collector) error {
				t, err := tc.EvaluateTuple(ev)
				if err != nil {
					return err
				}
				return out.add(t)
			}
		default:
			lc, err := c.CompileList(a, false)
			if err != nil {
				return nil, err
			}
			children[i] = lc
			parts[i] = func(ev *evaluator.Evaluator, out *collector) error {
				l, err := lc.EvaluateList(ev)
				if err != nil {
					return err
				}
				return out.addAll(l)
			}
		}
	}
	arity := types.ArityOf(call.Type())
	return calc.NewList(listSpec(call, children...), func(ev *evaluator.Evaluator) (*olap.TupleList, error) {
		out := newCollector(call, arity, false)
		for _, p := range parts {
			if err := p(ev, out); err != nil {
				return nil, err
			}
		}
		return out.result(), nil
	}), nil
}

// resolveParens treats one argument as a parenthesized expression and
// several members as a tuple.
func resolveParens(args []types.Exp) (FunDef, int, bool) {
	switch len(args) {
	case 0:
		return nil, 0, false
	case 1:
		code := string(branchCode(args[0].Type()))
		def := NewDef("()", parensDesc, "r"+code+code, compileParens,
			WithResultType(func(args []types.Exp) (types.Type, error) { return args[0].Type(), nil }))
		return def, 0, true
	}
	flags := "rt" + strings.Repeat("m", len(args))
	def := NewDef("()", parensDesc, flags, compileTuple, WithResultType(tupleType))
	cost, ok := def.sig.Match(args)
	if !ok {
		return nil, 0, false
	}
	return def, cost, true
}

func compileParens(call *ResolvedCall, c Compiler) (calc.Calc, error) {
	return c.Compile(call.Args[0])
}

func tupleType(args []types.Exp) (types.Type, error) {
	cols := make([]*types.MemberType, len(args))
	for i, a := range args {
		mt, ok := a.Type().(*types.MemberType)
		if !ok {
			mt = types.UnknownMember
		}
		cols[i] = mt
	}
	tt, err := types.NewTupleType(cols...)
	if err != nil {
		return nil, err
	}
	return tt, nil
}

// compileTuple builds a tuple from members. Any null member makes the whole
// tuple null.
func compileTuple(call *ResolvedCall, c Compiler) (calc.Calc, error) {
	members := make([]calc.MemberCalc, len(call.Args))
	children := make([]calc.Calc, len(call.Args))
	for i, a := range call.Args {
		mc, err := c.CompileMember(a)
		if err != nil {
			return nil, err
		}
		members[i], children[i] = mc, mc
	}
	return calc.NewTuple(calc.Spec{Name: call.Name(), Type: call.Type(), Children: children},
		func(ev *evaluator.Evaluator) (olap.Tuple, error) {
			t := make(olap.Tuple, len(members))
			for i, mc := range members {
				m, err := mc.EvaluateMember(ev)
				if err != nil {
					return nil, err
				}
				if m == nil {
					return nil, nil
				}
				t[i] = m
			}
			if !distinctHierarchies(t) {
				return nil, call.Errorf(types.ErrHierarchyMismatch,
					"tuple %s contains more than one member of the same hierarchy", t)
			}
			return t, nil
		}), nil
}

func distinctHierarchies(t olap.Tuple) bool {
	seen := make(map[*olap.Hierarchy]bool, len(t))
	for _, m := range t {
		if seen[m.Hierarchy()] {
			return false
		}
		seen[m.Hierarchy()] = true
	}
	return true
}
