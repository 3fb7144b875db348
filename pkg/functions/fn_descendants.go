package functions

import (
	"github.com/sandrolain/gomdx/pkg/calc"
	"github.com/sandrolain/gomdx/pkg/descendants"
	"github.com/sandrolain/gomdx/pkg/evaluator"
	"github.com/sandrolain/gomdx/pkg/olap"
	"github.com/sandrolain/gomdx/pkg/types"
)

const descendantsDesc = "Returns the set of descendants of a member at a specified level or distance, optionally including or excluding descendants in other levels."

func descendantsFunctions() []Resolver {
	return NewDefs("Descendants", descendantsDesc,
		[]string{"fxm", "fxml", "fxmly", "fxmn", "fxmny", "fxx", "fxxl", "fxxly", "fxxn", "fxxny"},
		compileDescendants, WithReserved(descendants.FlagNames()...))
}

// descend enumerates the descendants of one member.
type descend func(ev *evaluator.Evaluator, m *olap.Member) ([]*olap.Member, error)

// compileDescendants handles every form. With no target the member and all
// its descendants are returned. An empty target with a flag is taken
// relative to the member's own level, except LEAVES which is unbounded.
func compileDescendants(call *ResolvedCall, c Compiler) (calc.Calc, error) {
	def := "SELF"
	if len(call.Args) == 1 {
		def = "SELF_BEFORE_AFTER"
	}
	sym, err := symbolFlag(call, 2, def, descendants.FlagNames()...)
	if err != nil {
		return nil, err
	}
	flag, _ := descendants.ParseFlag(sym)
	if len(call.Args) == 1 {
		flag = descendants.SelfBeforeAfter
	}

	var fn descend
	var children []calc.Calc
	target := call.Arg(1)
	switch {
	case target == nil || isEmptyArg(target):
		fn = func(ev *evaluator.Evaluator, m *olap.Member) ([]*olap.Member, error) {
			if flag == descendants.Leaves {
				return descendants.LeavesByDepth(ev.Context(), ev.Reader(), m, -1)
			}
			return descendants.ByLevel(ev.Context(), ev.Reader(), m, m.Level, flag)
		}
	case target.Type().Category() == types.CategoryLevel:
		lc, err := c.CompileLevel(target)
		if err != nil {
			return nil, err
		}
		children = append(children, lc)
		fn = func(ev *evaluator.Evaluator, m *olap.Member) ([]*olap.Member, error) {
			l, err := lc.EvaluateLevel(ev)
			if err != nil || l == nil {
				return nil, err
			}
			return descendants.ByLevel(ev.Context(), ev.Reader(), m, l, flag)
		}
	default:
		dc, err := c.CompileInteger(target)
		if err != nil {
			return nil, err
		}
		children = append(children, dc)
		fn = func(ev *evaluator.Evaluator, m *olap.Member) ([]*olap.Member, error) {
			depth, err := dc.EvaluateInteger(ev)
			if err != nil {
				return nil, err
			}
			return descendants.ByDepth(ev.Context(), ev.Reader(), m, depth, flag)
		}
	}

	if call.Args[0].Type().Category() == types.CategorySet {
		set, err := c.CompileList(call.Args[0], false)
		if err != nil {
			return nil, err
		}
		return calc.NewList(listSpec(call, append([]calc.Calc{set}, children...)...),
			func(ev *evaluator.Evaluator) (*olap.TupleList, error) {
				if native := ev.NativeSet("Descendants", call.Args); native != nil {
					return native.Execute(ev)
				}
				l, err := set.EvaluateList(ev)
				if err != nil {
					return nil, err
				}
				return descendantsOf(ev, call, l.Members(), fn)
			}), nil
	}
	mc, err := c.CompileMember(call.Args[0])
	if err != nil {
		return nil, err
	}
	return calc.NewList(listSpec(call, append([]calc.Calc{mc}, children...)...),
		func(ev *evaluator.Evaluator) (*olap.TupleList, error) {
			if native := ev.NativeSet("Descendants", call.Args); native != nil {
				return native.Execute(ev)
			}
			m, err := mc.EvaluateMember(ev)
			if err != nil {
				return nil, err
			}
			return descendantsOf(ev, call, []*olap.Member{m}, fn)
		}), nil
}

// descendantsOf unions the descendants of members and returns them in
// hierarchical order.
func descendantsOf(ev *evaluator.Evaluator, call *ResolvedCall, members []*olap.Member, fn descend) (*olap.TupleList, error) {
	out := newCollector(call, 1, len(members) > 1)
	for _, m := range members {
		if m == nil {
			continue
		}
		if err := ev.Err(); err != nil {
			return nil, err
		}
		found, err := fn(ev, m)
		if err != nil {
			return nil, call.withFunction(err)
		}
		for _, d := range found {
			if err := out.add(olap.Tuple{d}); err != nil {
				return nil, err
			}
		}
	}
	l := out.result()
	olap.HierarchizeTuples(l, false)
	return l, nil
}
