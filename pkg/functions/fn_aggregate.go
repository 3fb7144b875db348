package functions

import (
	"github.com/sandrolain/gomdx/pkg/aggregate"
	"github.com/sandrolain/gomdx/pkg/calc"
	"github.com/sandrolain/gomdx/pkg/evaluator"
	"github.com/sandrolain/gomdx/pkg/olap"
	"github.com/sandrolain/gomdx/pkg/types"
)

const aggregateDesc = "Returns a calculated value using the appropriate aggregate function, based on the context of the query."

func aggregateFunctions() []Resolver {
	var rs []Resolver
	rs = append(rs, NewGenerative("Aggregate", types.SyntaxFunction, aggregateDesc,
		[]string{"<Numeric> Aggregate(<Set>)", "<Numeric> Aggregate(<Set>, <Numeric>)"},
		resolveAggregate))
	rs = append(rs, NewDefs("Sum", "Returns the sum of a numeric expression evaluated over a set.",
		[]string{"fnx", "fnxn"}, compileRollup(aggregate.Sum))...)
	rs = append(rs, NewDefs("Avg", "Returns the average value of a numeric expression evaluated over a set.",
		[]string{"fnx", "fnxn"}, compileRollup(aggregate.Avg))...)
	rs = append(rs, NewDefs("Min", "Returns the minimum value of a numeric expression evaluated over a set.",
		[]string{"fnx", "fnxn"}, compileRollup(aggregate.Min))...)
	rs = append(rs, NewDefs("Max", "Returns the maximum value of a numeric expression evaluated over a set.",
		[]string{"fnx", "fnxn"}, compileRollup(aggregate.Max))...)
	rs = append(rs, NewDefs("Count", "Returns the number of tuples in a set, empty cells included unless EXCLUDEEMPTY is specified.",
		[]string{"fix", "fixy"}, compileCount, WithReserved("INCLUDEEMPTY", "EXCLUDEEMPTY"))...)
	rs = append(rs, NewDef("Count", "Returns the number of tuples in a set including empty cells.",
		"pix", compileCount))
	rs = append(rs, NewDef("DistinctCount", "Returns the count of distinct non-empty tuples in a set.",
		"fnx", compileDistinctCount))
	return rs
}

// resolveAggregate binds the optional second argument to its own category
// when it is already numeric-like, so the signature records the value type.
func resolveAggregate(args []types.Exp) (FunDef, int, bool) {
	flags := "fnx"
	switch len(args) {
	case 1:
	case 2:
		switch cat := args[1].Type().Category(); cat {
		case types.CategoryNumeric, types.CategoryInteger, types.CategoryValue:
			flags += string(categoryCode(cat))
		default:
			flags += "n"
		}
	default:
		return nil, 0, false
	}
	def := NewDef("Aggregate", aggregateDesc, flags, compileAggregate)
	cost, ok := def.sig.Match(args)
	if !ok {
		return nil, 0, false
	}
	return def, cost, true
}

func compileAggregate(call *ResolvedCall, c Compiler) (calc.Calc, error) {
	list, err := c.CompileList(call.Args[0], false)
	if err != nil {
		return nil, err
	}
	value := currentValue()
	if len(call.Args) > 1 {
		if value, err = c.CompileScalar(call.Args[1]); err != nil {
			return nil, err
		}
	}
	return calc.NewScalar(calc.Spec{
		Name:      call.Name(),
		Type:      types.Numeric,
		Children:  []calc.Calc{list, value},
		DependsOn: overSet(list, call.Args[0].Type(), value),
	}, func(ev *evaluator.Evaluator) (any, error) {
		l, err := list.EvaluateList(ev)
		if err != nil {
			return nil, err
		}
		return aggregate.Aggregate(ev, l, value)
	}), nil
}

// compileRollup compiles Sum, Avg, Min and Max, which combine values with a
// fixed aggregator regardless of the measure.
func compileRollup(agg *aggregate.Aggregator) CompileFunc {
	return func(call *ResolvedCall, c Compiler) (calc.Calc, error) {
		it, err := c.CompileIter(call.Args[0])
		if err != nil {
			return nil, err
		}
		value := currentValue()
		if len(call.Args) > 1 {
			if value, err = c.CompileDouble(call.Args[1]); err != nil {
				return nil, err
			}
		}
		return calc.NewDouble(calc.Spec{
			Name:      call.Name(),
			Type:      types.Numeric,
			Children:  []calc.Calc{it, value},
			DependsOn: overSet(it, call.Args[0].Type(), value),
		}, func(ev *evaluator.Evaluator) (float64, bool, error) {
			set, err := it.EvaluateIterable(ev)
			if err != nil {
				return 0, false, err
			}
			v, err := aggregate.Over(ev, set, value, agg)
			if err != nil {
				return 0, false, err
			}
			return calc.ToDouble(ev.Context(), v)
		}), nil
	}
}

func compileCount(call *ResolvedCall, c Compiler) (calc.Calc, error) {
	flag, err := symbolFlag(call, 1, "INCLUDEEMPTY", "INCLUDEEMPTY", "EXCLUDEEMPTY")
	if err != nil {
		return nil, err
	}
	it, err := c.CompileIter(call.Args[0])
	if err != nil {
		return nil, err
	}
	includeEmpty := flag == "INCLUDEEMPTY"
	spec := calc.Spec{Name: call.Name(), Type: types.Integer, Children: []calc.Calc{it}}
	var value calc.Calc
	if !includeEmpty {
		value = currentValue()
		spec.Children = append(spec.Children, value)
		spec.DependsOn = overSet(it, call.Args[0].Type(), value)
	}
	return calc.NewInteger(spec, func(ev *evaluator.Evaluator) (int, error) {
		set, err := it.EvaluateIterable(ev)
		if err != nil {
			return 0, err
		}
		if l, ok := set.(*olap.TupleList); ok && includeEmpty {
			return l.Len(), nil
		}
		return aggregate.CountOf(ev, set, value, includeEmpty)
	}), nil
}

// compileDistinctCount counts the distinct tuples of a set whose value is
// not empty.
func compileDistinctCount(call *ResolvedCall, c Compiler) (calc.Calc, error) {
	list, err := c.CompileList(call.Args[0], false)
	if err != nil {
		return nil, err
	}
	value := currentValue()
	return calc.NewDouble(calc.Spec{
		Name:      call.Name(),
		Type:      types.Numeric,
		Children:  []calc.Calc{list, value},
		DependsOn: overSet(list, call.Args[0].Type(), value),
	}, func(ev *evaluator.Evaluator) (float64, bool, error) {
		l, err := list.EvaluateList(ev)
		if err != nil {
			return 0, false, err
		}
		distinct := newCollector(call, l.Arity(), true)
		if err := distinct.addAll(l); err != nil {
			return 0, false, err
		}
		n, err := aggregate.CountOf(ev, distinct.result(), value, false)
		return float64(n), true, err
	}), nil
}
