package functions

import (
	"github.com/sandrolain/gomdx/pkg/calc"
	"github.com/sandrolain/gomdx/pkg/evaluator"
	"github.com/sandrolain/gomdx/pkg/olap"
	"github.com/sandrolain/gomdx/pkg/types"
)

func memberFunctions() []Resolver {
	var rs []Resolver
	rs = append(rs, NewDefs("CurrentMember", "Returns the current member along a hierarchy during an iteration.",
		[]string{"pmh", "pmd"}, compileCurrentMember)...)
	rs = append(rs, NewDefs("DefaultMember", "Returns the default member of a hierarchy.",
		[]string{"pmh", "pmd"}, compileDefaultMember)...)
	rs = append(rs, NewDef("Parent", "Returns the parent of a member.", "pmm",
		navigation(func(_ *evaluator.Evaluator, m *olap.Member) (*olap.Member, error) {
			return m.Parent, nil
		})))
	rs = append(rs, NewDef("FirstChild", "Returns the first child of a member.", "pmm",
		navigation(func(ev *evaluator.Evaluator, m *olap.Member) (*olap.Member, error) {
			children, err := ev.Reader().MemberChildren(ev.Context(), m)
			if err != nil || len(children) == 0 {
				return nil, err
			}
			return children[0], nil
		})))
	rs = append(rs, NewDef("LastChild", "Returns the last child of a member.", "pmm",
		navigation(func(ev *evaluator.Evaluator, m *olap.Member) (*olap.Member, error) {
			children, err := ev.Reader().MemberChildren(ev.Context(), m)
			if err != nil || len(children) == 0 {
				return nil, err
			}
			return children[len(children)-1], nil
		})))
	rs = append(rs, NewDef("PrevMember", "Returns the previous member in the level that contains a specified member.", "pmm",
		navigation(func(ev *evaluator.Evaluator, m *olap.Member) (*olap.Member, error) {
			return ev.Reader().LeadMember(ev.Context(), m, -1)
		})))
	rs = append(rs, NewDef("NextMember", "Returns the next member in the level that contains a specified member.", "pmm",
		navigation(func(ev *evaluator.Evaluator, m *olap.Member) (*olap.Member, error) {
			return ev.Reader().LeadMember(ev.Context(), m, 1)
		})))
	rs = append(rs, NewDef("Lead", "Returns a member further along the specified member's level.", "mmmn",
		compileLead(1)))
	rs = append(rs, NewDef("Lag", "Returns a member further along the specified member's level.", "mmmn",
		compileLead(-1)))
	rs = append(rs, NewDefs("Ancestor", "Returns the ancestor of a member at a specified level or distance.",
		[]string{"fmml", "fmmn"}, compileAncestor)...)
	rs = append(rs, NewDef("Item", "Returns a member from a tuple.", "mmtn", compileTupleItem,
		WithResultType(func([]types.Exp) (types.Type, error) { return types.UnknownMember, nil })))
	return rs
}

func compileCurrentMember(call *ResolvedCall, c Compiler) (calc.Calc, error) {
	if h := call.Args[0].Type().Hierarchy(); h != nil {
		return calc.NewMember(calc.Spec{
			Name:      call.Name(),
			Type:      call.Type(),
			DependsOn: calc.Only(h),
		}, func(ev *evaluator.Evaluator) (*olap.Member, error) {
			return ev.CurrentMember(h), nil
		}), nil
	}
	hc, err := c.CompileHierarchy(call.Args[0])
	if err != nil {
		return nil, err
	}
	return calc.NewMember(calc.Spec{
		Name:      call.Name(),
		Type:      call.Type(),
		Children:  []calc.Calc{hc},
		DependsOn: dependsOnAll,
	}, func(ev *evaluator.Evaluator) (*olap.Member, error) {
		h, err := hc.EvaluateHierarchy(ev)
		if err != nil || h == nil {
			return nil, err
		}
		return ev.CurrentMember(h), nil
	}), nil
}

func compileDefaultMember(call *ResolvedCall, c Compiler) (calc.Calc, error) {
	if h := call.Args[0].Type().Hierarchy(); h != nil {
		return calc.ConstMember(hierarchyDefault(h)), nil
	}
	hc, err := c.CompileHierarchy(call.Args[0])
	if err != nil {
		return nil, err
	}
	return calc.NewMember(calc.Spec{Name: call.Name(), Type: call.Type(), Children: []calc.Calc{hc}},
		func(ev *evaluator.Evaluator) (*olap.Member, error) {
			h, err := hc.EvaluateHierarchy(ev)
			if err != nil || h == nil {
				return nil, err
			}
			return hierarchyDefault(h), nil
		}), nil
}

func hierarchyDefault(h *olap.Hierarchy) *olap.Member {
	if h.DefaultMember != nil {
		return h.DefaultMember
	}
	return h.AllMember
}

// navigation compiles a member-to-member function. The null member maps to
// the null member.
func navigation(fn func(ev *evaluator.Evaluator, m *olap.Member) (*olap.Member, error)) CompileFunc {
	return func(call *ResolvedCall, c Compiler) (calc.Calc, error) {
		mc, err := c.CompileMember(call.Args[0])
		if err != nil {
			return nil, err
		}
		return calc.NewMember(calc.Spec{Name: call.Name(), Type: call.Type(), Children: []calc.Calc{mc}},
			func(ev *evaluator.Evaluator) (*olap.Member, error) {
				m, err := mc.EvaluateMember(ev)
				if err != nil || m == nil {
					return nil, err
				}
				return fn(ev, m)
			}), nil
	}
}

func compileLead(sign int) CompileFunc {
	return func(call *ResolvedCall, c Compiler) (calc.Calc, error) {
		mc, err := c.CompileMember(call.Args[0])
		if err != nil {
			return nil, err
		}
		offset, err := c.CompileInteger(call.Args[1])
		if err != nil {
			return nil, err
		}
		return calc.NewMember(calc.Spec{Name: call.Name(), Type: call.Type(), Children: []calc.Calc{mc, offset}},
			func(ev *evaluator.Evaluator) (*olap.Member, error) {
				m, err := mc.EvaluateMember(ev)
				if err != nil || m == nil {
					return nil, err
				}
				n, err := offset.EvaluateInteger(ev)
				if err != nil {
					return nil, err
				}
				return ev.Reader().LeadMember(ev.Context(), m, sign*n)
			}), nil
	}
}

func compileAncestor(call *ResolvedCall, c Compiler) (calc.Calc, error) {
	return compileAncestorCalc(call, c)
}

// compileAncestorCalc compiles the ancestor of the first argument at the
// level, or the distance, given by the second argument. A level of another
// hierarchy is an error; a level below the member yields null.
func compileAncestorCalc(call *ResolvedCall, c Compiler) (calc.MemberCalc, error) {
	mc, err := c.CompileMember(call.Args[0])
	if err != nil {
		return nil, err
	}
	spec := calc.Spec{Name: call.Name(), Type: types.NewMemberType(call.Args[0].Type().Hierarchy(), nil, nil)}
	if call.Args[1].Type().Category() == types.CategoryLevel {
		lc, err := c.CompileLevel(call.Args[1])
		if err != nil {
			return nil, err
		}
		spec.Children = []calc.Calc{mc, lc}
		if lt, ok := call.Args[1].Type().(*types.LevelType); ok && lt.Level != nil {
			spec.Type = types.NewMemberType(nil, lt.Level, nil)
		}
		return calc.NewMember(spec, func(ev *evaluator.Evaluator) (*olap.Member, error) {
			m, err := mc.EvaluateMember(ev)
			if err != nil || m == nil {
				return nil, err
			}
			l, err := lc.EvaluateLevel(ev)
			if err != nil || l == nil {
				return nil, err
			}
			if l.Hierarchy != m.Hierarchy() {
				return nil, call.Errorf(types.ErrHierarchyMismatch,
					"level %s is not in the hierarchy of member %s", l, m)
			}
			return m.AncestorAt(l.Depth), nil
		}), nil
	}
	distance, err := c.CompileInteger(call.Args[1])
	if err != nil {
		return nil, err
	}
	spec.Children = []calc.Calc{mc, distance}
	return calc.NewMember(spec, func(ev *evaluator.Evaluator) (*olap.Member, error) {
		m, err := mc.EvaluateMember(ev)
		if err != nil || m == nil {
			return nil, err
		}
		n, err := distance.EvaluateInteger(ev)
		if err != nil {
			return nil, err
		}
		for ; n > 0 && m != nil; n-- {
			m = m.Parent
		}
		return m, nil
	}), nil
}

// compileTupleItem returns the member at a zero-based position of a tuple.
func compileTupleItem(call *ResolvedCall, c Compiler) (calc.Calc, error) {
	tc, err := c.CompileTuple(call.Args[0])
	if err != nil {
		return nil, err
	}
	index, err := c.CompileInteger(call.Args[1])
	if err != nil {
		return nil, err
	}
	return calc.NewMember(calc.Spec{Name: call.Name(), Type: call.Type(), Children: []calc.Calc{tc, index}},
		func(ev *evaluator.Evaluator) (*olap.Member, error) {
			t, err := tc.EvaluateTuple(ev)
			if err != nil {
				return nil, err
			}
			i, err := index.EvaluateInteger(ev)
			if err != nil {
				return nil, err
			}
			if i < 0 || i >= len(t) {
				return nil, call.Errorf(types.ErrIndexOutOfBounds,
					"index %d out of bounds for tuple of %d members", i, len(t))
			}
			return t[i], nil
		}), nil
}
