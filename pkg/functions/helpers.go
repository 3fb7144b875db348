package functions

import (
	"github.com/sandrolain/gomdx/pkg/calc"
	"github.com/sandrolain/gomdx/pkg/evaluator"
	"github.com/sandrolain/gomdx/pkg/olap"
	"github.com/sandrolain/gomdx/pkg/types"
)

// currentValue reads the cell at the current coordinate. It stands in for
// the omitted numeric argument of the aggregation functions.
func currentValue() calc.Calc {
	return calc.NewScalar(calc.Spec{
		Name:      "CurrentValue",
		Type:      types.Value,
		DependsOn: dependsOnAll,
	}, func(ev *evaluator.Evaluator) (any, error) {
		return ev.EvaluateCurrent()
	})
}

// dependsOnAll is the rule of calcs whose result tracks every hierarchy.
func dependsOnAll(*olap.Hierarchy) bool { return true }

// overSet is the dependency rule of a calc that evaluates inner once per
// tuple of set: the set's own dependencies, plus those of inner on
// hierarchies the set does not override.
func overSet(set calc.Calc, setType types.Type, inner ...calc.Calc) func(*olap.Hierarchy) bool {
	shield := calc.Shielding(setType, inner)
	return func(h *olap.Hierarchy) bool {
		return set.DependsOn(h) || shield(h)
	}
}

// asSetType returns the set type an argument converts to.
func asSetType(t types.Type) *types.SetType {
	if st, ok := t.(*types.SetType); ok {
		return st
	}
	return types.SetOf(types.ElementTypesOf(t))
}

// sameArity is the result type of binary set operators: the common type of
// both operands, which must have the same arity.
func sameArity(name string) ResultTypeFunc {
	return func(args []types.Exp) (types.Type, error) {
		a, b := asSetType(args[0].Type()), asSetType(args[1].Type())
		if a.Arity() > 0 && b.Arity() > 0 && a.Arity() != b.Arity() {
			return nil, types.Errorf(types.ErrTypeMismatch,
				"arguments of %s must have the same arity, got %d and %d", name, a.Arity(), b.Arity())
		}
		if t, ok := types.CommonType(a, b).(*types.SetType); ok {
			return t, nil
		}
		return types.UnknownSet, nil
	}
}

func isEmptyArg(exp types.Exp) bool {
	return exp != nil && exp.Type().Category() == types.CategoryEmpty
}

// symbolFlag returns the symbol at argument i, def when absent. Symbols
// other than allowed are rejected.
func symbolFlag(call *ResolvedCall, i int, def string, allowed ...string) (string, error) {
	if call.Arg(i) == nil {
		return def, nil
	}
	sym := call.SymbolArg(i)
	for _, a := range allowed {
		if sym == a {
			return sym, nil
		}
	}
	return "", call.Errorf(types.ErrUnknownSymbol, "unexpected flag %s, expected one of %v", call.Arg(i), allowed)
}

// collector accumulates tuples into a list. The arity is taken from the
// first tuple when the static type does not know it.
type collector struct {
	call     *ResolvedCall
	arity    int
	list     *olap.TupleList
	distinct bool
	seen     map[string]struct{}
}

func newCollector(call *ResolvedCall, arity int, distinct bool) *collector {
	c := &collector{call: call, arity: arity, distinct: distinct}
	if distinct {
		c.seen = make(map[string]struct{})
	}
	return c
}

func (c *collector) add(t olap.Tuple) error {
	if t.IsNull() {
		return nil
	}
	if c.list == nil {
		n := c.arity
		if n < 1 {
			n = len(t)
		}
		c.list = olap.NewTupleList(n)
	}
	if c.distinct {
		k := t.Key()
		if _, dup := c.seen[k]; dup {
			return nil
		}
		c.seen[k] = struct{}{}
	}
	if !c.list.Accepts(t) {
		return c.call.Errorf(types.ErrHierarchyMismatch,
			"tuple %s does not match the hierarchies of the set", t)
	}
	c.list.Append(t)
	return nil
}

func (c *collector) addAll(l *olap.TupleList) error {
	for _, t := range l.Tuples() {
		if err := c.add(t); err != nil {
			return err
		}
	}
	return nil
}

func (c *collector) result() *olap.TupleList {
	if c.list == nil {
		n := c.arity
		if n < 1 {
			n = 1
		}
		return olap.NewTupleList(n)
	}
	return c.list
}

// listSpec builds the spec of a set-valued call.
func listSpec(call *ResolvedCall, children ...calc.Calc) calc.Spec {
	return calc.Spec{Name: call.Name(), Type: call.Type(), Children: children, Style: calc.StyleMutableList}
}

func checkCount(n int) int {
	if n < 0 {
		return 0
	}
	return n
}
