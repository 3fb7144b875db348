package functions

import (
	"strings"

	"github.com/sandrolain/gomdx/pkg/aggregate"
	"github.com/sandrolain/gomdx/pkg/calc"
	"github.com/sandrolain/gomdx/pkg/evaluator"
	"github.com/sandrolain/gomdx/pkg/types"
)

func logicalFunctions() []Resolver {
	var rs []Resolver
	rs = append(rs, NewDef("AND", "Returns the conjunction of two conditions.", "ibbb", compileAndOr(false)))
	rs = append(rs, NewDef("OR", "Returns the disjunction of two conditions.", "ibbb", compileAndOr(true)))
	rs = append(rs, NewDef("XOR", "Returns whether exactly one of two conditions is true.", "ibbb", compileXor))
	rs = append(rs, NewDef("NOT", "Returns the negation of a condition.", "Pbb", compileNot))
	rs = append(rs, NewDef("IS", "Returns whether two members are the same.", "ibmm", compileIs))
	rs = append(rs, NewDef("IsEmpty", "Determines whether an expression evaluates to the empty cell value.",
		"fbv", compileIsEmpty))
	for _, op := range []string{"=", "<>", "<", "<=", ">", ">="} {
		rs = append(rs, NewDef(op, "Returns whether the first value "+comparisonDesc[op]+" the second.",
			"ibnn", compareNumbers(op)))
		rs = append(rs, NewDef(op, "Returns whether the first string "+comparisonDesc[op]+" the second.",
			"ibss", compareStrings(op)))
	}
	return rs
}

var comparisonDesc = map[string]string{
	"=":  "equals",
	"<>": "differs from",
	"<":  "is less than",
	"<=": "is less than or equal to",
	">":  "is greater than",
	">=": "is greater than or equal to",
}

func binaryBooleans(call *ResolvedCall, c Compiler) (calc.BooleanCalc, calc.BooleanCalc, error) {
	a, err := c.CompileBoolean(call.Args[0])
	if err != nil {
		return nil, nil, err
	}
	b, err := c.CompileBoolean(call.Args[1])
	if err != nil {
		return nil, nil, err
	}
	return a, b, nil
}

// compileAndOr short-circuits, except while axes are evaluated: then both
// operands run so that every set they reference is visited.
func compileAndOr(or bool) CompileFunc {
	return func(call *ResolvedCall, c Compiler) (calc.Calc, error) {
		a, b, err := binaryBooleans(call, c)
		if err != nil {
			return nil, err
		}
		return calc.NewBoolean(calc.Spec{Name: call.Name(), Type: types.Logical, Children: []calc.Calc{a, b}},
			func(ev *evaluator.Evaluator) (bool, error) {
				x, err := a.EvaluateBoolean(ev)
				if err != nil {
					return false, err
				}
				if x == or && !ev.EvalAxes() {
					return x, nil
				}
				y, err := b.EvaluateBoolean(ev)
				if err != nil {
					return false, err
				}
				if or {
					return x || y, nil
				}
				return x && y, nil
			}), nil
	}
}

func compileXor(call *ResolvedCall, c Compiler) (calc.Calc, error) {
	a, b, err := binaryBooleans(call, c)
	if err != nil {
		return nil, err
	}
	return calc.NewBoolean(calc.Spec{Name: call.Name(), Type: types.Logical, Children: []calc.Calc{a, b}},
		func(ev *evaluator.Evaluator) (bool, error) {
			x, err := a.EvaluateBoolean(ev)
			if err != nil {
				return false, err
			}
			y, err := b.EvaluateBoolean(ev)
			if err != nil {
				return false, err
			}
			return x != y, nil
		}), nil
}

func compileNot(call *ResolvedCall, c Compiler) (calc.Calc, error) {
	a, err := c.CompileBoolean(call.Args[0])
	if err != nil {
		return nil, err
	}
	return calc.NewBoolean(calc.Spec{Name: call.Name(), Type: types.Logical, Children: []calc.Calc{a}},
		func(ev *evaluator.Evaluator) (bool, error) {
			x, err := a.EvaluateBoolean(ev)
			return !x, err
		}), nil
}

func compileIs(call *ResolvedCall, c Compiler) (calc.Calc, error) {
	a, err := c.CompileMember(call.Args[0])
	if err != nil {
		return nil, err
	}
	b, err := c.CompileMember(call.Args[1])
	if err != nil {
		return nil, err
	}
	return calc.NewBoolean(calc.Spec{Name: call.Name(), Type: types.Logical, Children: []calc.Calc{a, b}},
		func(ev *evaluator.Evaluator) (bool, error) {
			x, err := a.EvaluateMember(ev)
			if err != nil {
				return false, err
			}
			y, err := b.EvaluateMember(ev)
			return x == y, err
		}), nil
}

func compileIsEmpty(call *ResolvedCall, c Compiler) (calc.Calc, error) {
	v, err := c.CompileScalar(call.Args[0])
	if err != nil {
		return nil, err
	}
	return calc.NewBoolean(calc.Spec{Name: call.Name(), Type: types.Logical, Children: []calc.Calc{v}},
		func(ev *evaluator.Evaluator) (bool, error) {
			x, err := v.Evaluate(ev)
			if err != nil {
				return false, err
			}
			x, err = aggregate.Value(ev.Context(), x)
			return x == nil, err
		}), nil
}

func holds(op string, cmp int) bool {
	switch op {
	case "=":
		return cmp == 0
	case "<>":
		return cmp != 0
	case "<":
		return cmp < 0
	case "<=":
		return cmp <= 0
	case ">":
		return cmp > 0
	}
	return cmp >= 0
}

// compareNumbers treats the empty value as zero.
func compareNumbers(op string) CompileFunc {
	return func(call *ResolvedCall, c Compiler) (calc.Calc, error) {
		a, b, err := binaryDoubles(call, c)
		if err != nil {
			return nil, err
		}
		return calc.NewBoolean(calc.Spec{Name: call.Name(), Type: types.Logical, Children: []calc.Calc{a, b}},
			func(ev *evaluator.Evaluator) (bool, error) {
				x, _, err := a.EvaluateDouble(ev)
				if err != nil {
					return false, err
				}
				y, _, err := b.EvaluateDouble(ev)
				if err != nil {
					return false, err
				}
				return holds(op, calc.Compare(x, y)), nil
			}), nil
	}
}

func compareStrings(op string) CompileFunc {
	return func(call *ResolvedCall, c Compiler) (calc.Calc, error) {
		a, err := c.CompileString(call.Args[0])
		if err != nil {
			return nil, err
		}
		b, err := c.CompileString(call.Args[1])
		if err != nil {
			return nil, err
		}
		return calc.NewBoolean(calc.Spec{Name: call.Name(), Type: types.Logical, Children: []calc.Calc{a, b}},
			func(ev *evaluator.Evaluator) (bool, error) {
				x, err := a.EvaluateString(ev)
				if err != nil {
					return false, err
				}
				y, err := b.EvaluateString(ev)
				if err != nil {
					return false, err
				}
				return holds(op, strings.Compare(x, y)), nil
			}), nil
	}
}
