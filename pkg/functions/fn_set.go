package functions

import (
	"sort"

	"github.com/sandrolain/gomdx/pkg/aggregate"
	"github.com/sandrolain/gomdx/pkg/calc"
	"github.com/sandrolain/gomdx/pkg/evaluator"
	"github.com/sandrolain/gomdx/pkg/olap"
	"github.com/sandrolain/gomdx/pkg/types"
)

func setFunctions() []Resolver {
	var rs []Resolver
	rs = append(rs, NewDef("CrossJoin", "Returns the cross product of two sets.",
		"fxxx", compileCrossJoin, WithResultType(crossJoinType)))
	rs = append(rs, NewDef("*", "Returns the cross product of two sets.",
		"ixxx", compileCrossJoin, WithResultType(crossJoinType)))
	rs = append(rs, NewDefs("Union", "Returns the union of two sets, eliminating duplicates unless ALL is specified.",
		[]string{"fxxx", "fxxxy"}, compileUnion, WithResultType(sameArity("Union")), WithReserved("ALL"))...)
	rs = append(rs, NewDefs("Except", "Finds the difference between two sets, optionally retaining duplicates.",
		[]string{"fxxx", "fxxxy"}, compileExcept, WithResultType(sameArity("Except")), WithReserved("ALL"))...)
	rs = append(rs, NewDefs("Intersect", "Returns the intersection of two input sets, optionally retaining duplicates.",
		[]string{"fxxx", "fxxxy"}, compileIntersect, WithResultType(sameArity("Intersect")), WithReserved("ALL"))...)
	rs = append(rs, NewDef("Distinct", "Eliminates duplicate tuples from a set.", "fxx", compileDistinct))
	rs = append(rs, NewDefs("Head", "Returns the first specified number of elements in a set.",
		[]string{"fxx", "fxxn"}, compileHeadTail(true))...)
	rs = append(rs, NewDefs("Tail", "Returns a subset from the end of a set.",
		[]string{"fxx", "fxxn"}, compileHeadTail(false))...)
	rs = append(rs, NewDef("Filter", "Returns the set resulting from filtering a set based on a search condition.",
		"fxxb", compileFilter))
	rs = append(rs, NewDefs("Order", "Arranges members of a set, optionally preserving or breaking the hierarchy.",
		[]string{"fxxv", "fxxvy"}, compileOrder, WithReserved("ASC", "DESC", "BASC", "BDESC"))...)
	rs = append(rs, NewDefs("Hierarchize", "Orders the members of a set in a hierarchy.",
		[]string{"fxx", "fxxy"}, compileHierarchize, WithReserved("POST"))...)
	rs = append(rs, NewDefs("Generate", "Applies a set to each member of another set and joins the resulting sets by union.",
		[]string{"fxxx", "fxxxy"}, compileGenerate, WithResultType(generateType), WithReserved("ALL"))...)
	rs = append(rs, NewDefs("Members", "Returns the set of members in a level, hierarchy or dimension.",
		[]string{"pxl", "pxh", "pxd"}, compileMembers, WithResultType(membersType))...)
	rs = append(rs, NewDef("Children", "Returns the children of a member.", "pxm", compileChildren))
	rs = append(rs, NewDef("Siblings", "Returns the siblings of a specified member, including the member itself.",
		"pxm", compileSiblings))
	rs = append(rs, NewDefs("Ancestors", "Returns the set of all ancestors of a specified member at a specified level or at a specified distance from the member.",
		[]string{"fxml", "fxmn"}, compileAncestors)...)
	rs = append(rs, NewDef("Item", "Returns a tuple from a set.", "mtxn", compileSetItem, WithResultType(setItemType)))
	return rs
}

func crossJoinType(args []types.Exp) (types.Type, error) {
	var cols []*types.MemberType
	for _, a := range args {
		st := asSetType(a.Type())
		if st.Arity() < 0 {
			return types.UnknownSet, nil
		}
		cols = append(cols, widen(st.ElementTypes())...)
	}
	if _, err := types.NewTupleType(cols...); err != nil {
		return nil, err
	}
	return types.SetOf(cols), nil
}

// compileCrossJoin joins two sets. When the caller can consume an iterable
// the product is generated lazily.
func compileCrossJoin(call *ResolvedCall, c Compiler) (calc.Calc, error) {
	left, err := c.CompileList(call.Args[0], false)
	if err != nil {
		return nil, err
	}
	right, err := c.CompileList(call.Args[1], false)
	if err != nil {
		return nil, err
	}
	arity := types.ArityOf(call.Type())
	eval := func(ev *evaluator.Evaluator) (*olap.TupleList, *olap.TupleList, *olap.TupleList, error) {
		if native := ev.NativeSet("CrossJoin", call.Args); native != nil {
			l, err := native.Execute(ev)
			return l, nil, nil, err
		}
		l, err := left.EvaluateList(ev)
		if err != nil {
			return nil, nil, nil, err
		}
		r, err := right.EvaluateList(ev)
		if err != nil {
			return nil, nil, nil, err
		}
		return nil, l, r, nil
	}
	if c.ResultStyle() == calc.StyleIterable {
		spec := listSpec(call, left, right)
		spec.Style = calc.StyleIterable
		return calc.NewIter(spec, func(ev *evaluator.Evaluator) (olap.TupleIterable, error) {
			native, l, r, err := eval(ev)
			if err != nil {
				return nil, err
			}
			if native != nil {
				return native, nil
			}
			return crossIterable(l, r, arity), nil
		}), nil
	}
	return calc.NewList(listSpec(call, left, right), func(ev *evaluator.Evaluator) (*olap.TupleList, error) {
		native, l, r, err := eval(ev)
		if err != nil || native != nil {
			return native, err
		}
		out := newCollector(call, l.Arity()+r.Arity(), false)
		for _, a := range l.Tuples() {
			if err := ev.Err(); err != nil {
				return nil, err
			}
			for _, b := range r.Tuples() {
				if err := out.add(concat(a, b)); err != nil {
					return nil, err
				}
			}
		}
		return out.result(), nil
	}), nil
}

func concat(a, b olap.Tuple) olap.Tuple {
	t := make(olap.Tuple, 0, len(a)+len(b))
	return append(append(t, a...), b...)
}

func crossIterable(l, r *olap.TupleList, arity int) olap.TupleIterable {
	if arity < 1 {
		arity = l.Arity() + r.Arity()
	}
	return &olap.FuncIterable{N: arity, Open: func() func() (olap.Tuple, bool, error) {
		i, j := 0, 0
		return func() (olap.Tuple, bool, error) {
			if r.Len() == 0 || i >= l.Len() {
				return nil, false, nil
			}
			t := concat(l.Get(i), r.Get(j))
			if j++; j == r.Len() {
				i, j = i+1, 0
			}
			return t, true, nil
		}
	}}
}

// binarySet compiles a two-set operator whose optional third argument is
// ALL.
func binarySet(call *ResolvedCall, c Compiler,
	fn func(out *collector, a, b *olap.TupleList) error) (calc.Calc, error) {
	all, err := symbolFlag(call, 2, "", "ALL")
	if err != nil {
		return nil, err
	}
	left, err := c.CompileList(call.Args[0], false)
	if err != nil {
		return nil, err
	}
	right, err := c.CompileList(call.Args[1], false)
	if err != nil {
		return nil, err
	}
	arity := types.ArityOf(call.Type())
	return calc.NewList(listSpec(call, left, right), func(ev *evaluator.Evaluator) (*olap.TupleList, error) {
		a, err := left.EvaluateList(ev)
		if err != nil {
			return nil, err
		}
		b, err := right.EvaluateList(ev)
		if err != nil {
			return nil, err
		}
		out := newCollector(call, arity, all == "")
		if err := fn(out, a, b); err != nil {
			return nil, err
		}
		return out.result(), nil
	}), nil
}

func compileUnion(call *ResolvedCall, c Compiler) (calc.Calc, error) {
	return binarySet(call, c, func(out *collector, a, b *olap.TupleList) error {
		if err := out.addAll(a); err != nil {
			return err
		}
		return out.addAll(b)
	})
}

func compileExcept(call *ResolvedCall, c Compiler) (calc.Calc, error) {
	return binarySet(call, c, func(out *collector, a, b *olap.TupleList) error {
		drop := keys(b)
		for _, t := range a.Tuples() {
			if _, ok := drop[t.Key()]; ok {
				continue
			}
			if err := out.add(t); err != nil {
				return err
			}
		}
		return nil
	})
}

func compileIntersect(call *ResolvedCall, c Compiler) (calc.Calc, error) {
	return binarySet(call, c, func(out *collector, a, b *olap.TupleList) error {
		keep := keys(b)
		for _, t := range a.Tuples() {
			if _, ok := keep[t.Key()]; !ok {
				continue
			}
			if err := out.add(t); err != nil {
				return err
			}
		}
		return nil
	})
}

func keys(l *olap.TupleList) map[string]struct{} {
	out := make(map[string]struct{}, l.Len())
	for _, t := range l.Tuples() {
		out[t.Key()] = struct{}{}
	}
	return out
}

func compileDistinct(call *ResolvedCall, c Compiler) (calc.Calc, error) {
	list, err := c.CompileList(call.Args[0], false)
	if err != nil {
		return nil, err
	}
	return calc.NewList(listSpec(call, list), func(ev *evaluator.Evaluator) (*olap.TupleList, error) {
		l, err := list.EvaluateList(ev)
		if err != nil {
			return nil, err
		}
		out := newCollector(call, l.Arity(), true)
		if err := out.addAll(l); err != nil {
			return nil, err
		}
		return out.result(), nil
	}), nil
}

func compileHeadTail(head bool) CompileFunc {
	return func(call *ResolvedCall, c Compiler) (calc.Calc, error) {
		list, err := c.CompileList(call.Args[0], false)
		if err != nil {
			return nil, err
		}
		count := calc.IntegerCalc(calc.ConstInteger(1))
		if len(call.Args) > 1 {
			if count, err = c.CompileInteger(call.Args[1]); err != nil {
				return nil, err
			}
		}
		spec := listSpec(call, list, count)
		spec.Style = calc.StyleList
		return calc.NewList(spec, func(ev *evaluator.Evaluator) (*olap.TupleList, error) {
			l, err := list.EvaluateList(ev)
			if err != nil {
				return nil, err
			}
			n, err := count.EvaluateInteger(ev)
			if err != nil {
				return nil, err
			}
			n = min(checkCount(n), l.Len())
			if head {
				return l.Slice(0, n), nil
			}
			return l.Slice(l.Len()-n, l.Len()), nil
		}), nil
	}
}

func compileFilter(call *ResolvedCall, c Compiler) (calc.Calc, error) {
	it, err := c.CompileIter(call.Args[0])
	if err != nil {
		return nil, err
	}
	cond, err := c.CompileBoolean(call.Args[1])
	if err != nil {
		return nil, err
	}
	spec := listSpec(call, it, cond)
	spec.DependsOn = overSet(it, call.Args[0].Type(), cond)
	return calc.NewList(spec, func(ev *evaluator.Evaluator) (*olap.TupleList, error) {
		if native := ev.NativeSet("Filter", call.Args); native != nil {
			return native.Execute(ev)
		}
		set, err := it.EvaluateIterable(ev)
		if err != nil {
			return nil, err
		}
		out := newCollector(call, set.Arity(), false)
		err = aggregate.Each(ev, set, func(t olap.Tuple) error {
			ok, err := cond.EvaluateBoolean(ev)
			if err != nil || !ok {
				return err
			}
			return out.add(t)
		})
		if err != nil {
			return nil, err
		}
		return out.result(), nil
	}), nil
}

// compileOrder sorts a set by a value. BASC and BDESC ignore the hierarchy.
// ASC and DESC keep members of the same parent together, ordering parent
// groups hierarchically and siblings by value.
func compileOrder(call *ResolvedCall, c Compiler) (calc.Calc, error) {
	flag, err := symbolFlag(call, 2, "ASC", "ASC", "DESC", "BASC", "BDESC")
	if err != nil {
		return nil, err
	}
	list, err := c.CompileList(call.Args[0], true)
	if err != nil {
		return nil, err
	}
	key, err := c.CompileScalar(call.Args[1])
	if err != nil {
		return nil, err
	}
	desc := flag == "DESC" || flag == "BDESC"
	breaking := flag == "BASC" || flag == "BDESC"
	spec := listSpec(call, list, key)
	spec.DependsOn = overSet(list, call.Args[0].Type(), key)
	return calc.NewList(spec, func(ev *evaluator.Evaluator) (*olap.TupleList, error) {
		l, err := list.EvaluateList(ev)
		if err != nil {
			return nil, err
		}
		type entry struct {
			t   olap.Tuple
			key any
		}
		entries := make([]entry, 0, l.Len())
		err = aggregate.Each(ev, l, func(t olap.Tuple) error {
			v, err := key.Evaluate(ev)
			if err != nil {
				return err
			}
			if v, err = aggregate.Value(ev.Context(), v); err != nil {
				return err
			}
			entries = append(entries, entry{t: t, key: v})
			return nil
		})
		if err != nil {
			return nil, err
		}
		sort.SliceStable(entries, func(i, j int) bool {
			a, b := entries[i], entries[j]
			if !breaking {
				if c := olap.CompareHierarchically(parentOf(a.t), parentOf(b.t), false); c != 0 {
					return c < 0
				}
			}
			c := calc.Compare(a.key, b.key)
			if desc {
				return c > 0
			}
			return c < 0
		})
		tuples := make([]olap.Tuple, len(entries))
		for i, e := range entries {
			tuples[i] = e.t
		}
		l.Set(tuples)
		return l, nil
	}), nil
}

func parentOf(t olap.Tuple) *olap.Member {
	if len(t) == 0 || t[0] == nil {
		return nil
	}
	return t[0].Parent
}

func compileHierarchize(call *ResolvedCall, c Compiler) (calc.Calc, error) {
	flag, err := symbolFlag(call, 1, "", "POST")
	if err != nil {
		return nil, err
	}
	list, err := c.CompileList(call.Args[0], true)
	if err != nil {
		return nil, err
	}
	post := flag == "POST"
	return calc.NewList(listSpec(call, list), func(ev *evaluator.Evaluator) (*olap.TupleList, error) {
		l, err := list.EvaluateList(ev)
		if err != nil {
			return nil, err
		}
		olap.HierarchizeTuples(l, post)
		return l, nil
	}), nil
}

func generateType(args []types.Exp) (types.Type, error) {
	return asSetType(args[1].Type()), nil
}

func compileGenerate(call *ResolvedCall, c Compiler) (calc.Calc, error) {
	all, err := symbolFlag(call, 2, "", "ALL")
	if err != nil {
		return nil, err
	}
	it, err := c.CompileIter(call.Args[0])
	if err != nil {
		return nil, err
	}
	inner, err := c.CompileList(call.Args[1], false)
	if err != nil {
		return nil, err
	}
	arity := types.ArityOf(call.Type())
	spec := listSpec(call, it, inner)
	spec.DependsOn = overSet(it, call.Args[0].Type(), inner)
	return calc.NewList(spec, func(ev *evaluator.Evaluator) (*olap.TupleList, error) {
		set, err := it.EvaluateIterable(ev)
		if err != nil {
			return nil, err
		}
		out := newCollector(call, arity, all == "")
		err = aggregate.Each(ev, set, func(olap.Tuple) error {
			l, err := inner.EvaluateList(ev)
			if err != nil {
				return err
			}
			return out.addAll(l)
		})
		if err != nil {
			return nil, err
		}
		return out.result(), nil
	}), nil
}

func membersType(args []types.Exp) (types.Type, error) {
	switch t := args[0].Type().(type) {
	case *types.LevelType:
		if t.Level != nil {
			return types.SetOf([]*types.MemberType{types.NewMemberType(nil, t.Level, nil)}), nil
		}
		return types.MemberSet(t.Hier), nil
	}
	return types.MemberSet(args[0].Type().Hierarchy()), nil
}

func compileMembers(call *ResolvedCall, c Compiler) (calc.Calc, error) {
	if call.Args[0].Type().Category() == types.CategoryLevel {
		lc, err := c.CompileLevel(call.Args[0])
		if err != nil {
			return nil, err
		}
		return calc.NewList(listSpec(call, lc), func(ev *evaluator.Evaluator) (*olap.TupleList, error) {
			l, err := lc.EvaluateLevel(ev)
			if err != nil || l == nil {
				return olap.NewTupleList(1), err
			}
			members, err := ev.Reader().LevelMembers(ev.Context(), l)
			if err != nil {
				return nil, err
			}
			return olap.NewMemberList(members), nil
		}), nil
	}
	hc, err := c.CompileHierarchy(call.Args[0])
	if err != nil {
		return nil, err
	}
	return calc.NewList(listSpec(call, hc), func(ev *evaluator.Evaluator) (*olap.TupleList, error) {
		h, err := hc.EvaluateHierarchy(ev)
		if err != nil || h == nil {
			return olap.NewTupleList(1), err
		}
		var members []*olap.Member
		for _, l := range h.Levels {
			ms, err := ev.Reader().LevelMembers(ev.Context(), l)
			if err != nil {
				return nil, err
			}
			members = append(members, ms...)
		}
		olap.Hierarchize(members, false)
		return olap.NewMemberList(members), nil
	}), nil
}

// memberSetFunc compiles a function from one member to a list of members.
func memberSetFunc(call *ResolvedCall, c Compiler,
	fn func(ev *evaluator.Evaluator, m *olap.Member) ([]*olap.Member, error)) (calc.Calc, error) {
	mc, err := c.CompileMember(call.Args[0])
	if err != nil {
		return nil, err
	}
	return calc.NewList(listSpec(call, mc), func(ev *evaluator.Evaluator) (*olap.TupleList, error) {
		m, err := mc.EvaluateMember(ev)
		if err != nil || m == nil {
			return olap.NewTupleList(1), err
		}
		members, err := fn(ev, m)
		if err != nil {
			return nil, err
		}
		return olap.NewMemberList(members), nil
	}), nil
}

func compileChildren(call *ResolvedCall, c Compiler) (calc.Calc, error) {
	return memberSetFunc(call, c, func(ev *evaluator.Evaluator, m *olap.Member) ([]*olap.Member, error) {
		return ev.Reader().MemberChildren(ev.Context(), m)
	})
}

func compileSiblings(call *ResolvedCall, c Compiler) (calc.Calc, error) {
	return memberSetFunc(call, c, func(ev *evaluator.Evaluator, m *olap.Member) ([]*olap.Member, error) {
		if m.Parent == nil {
			return ev.Reader().HierarchyRootMembers(ev.Context(), m.Hierarchy())
		}
		return ev.Reader().MemberChildren(ev.Context(), m.Parent)
	})
}

func compileAncestors(call *ResolvedCall, c Compiler) (calc.Calc, error) {
	ancestor, err := compileAncestorCalc(call, c)
	if err != nil {
		return nil, err
	}
	return calc.NewList(listSpec(call, ancestor), func(ev *evaluator.Evaluator) (*olap.TupleList, error) {
		m, err := ancestor.EvaluateMember(ev)
		if err != nil || m == nil {
			return olap.NewTupleList(1), err
		}
		return olap.NewMemberList([]*olap.Member{m}), nil
	}), nil
}

func setItemType(args []types.Exp) (types.Type, error) {
	st := asSetType(args[0].Type())
	if st.Arity() == 1 {
		return st.ElementTypes()[0], nil
	}
	if tt, ok := st.Elem.(*types.TupleType); ok {
		return tt, nil
	}
	return &types.TupleType{}, nil
}

// compileSetItem returns the tuple at a zero-based position. An out of
// range position yields the null tuple.
func compileSetItem(call *ResolvedCall, c Compiler) (calc.Calc, error) {
	list, err := c.CompileList(call.Args[0], false)
	if err != nil {
		return nil, err
	}
	index, err := c.CompileInteger(call.Args[1])
	if err != nil {
		return nil, err
	}
	at := func(ev *evaluator.Evaluator) (olap.Tuple, error) {
		l, err := list.EvaluateList(ev)
		if err != nil {
			return nil, err
		}
		i, err := index.EvaluateInteger(ev)
		if err != nil {
			return nil, err
		}
		if i < 0 || i >= l.Len() {
			return nil, nil
		}
		return l.Get(i), nil
	}
	spec := calc.Spec{Name: call.Name(), Type: call.Type(), Children: []calc.Calc{list, index}}
	if call.Type().Category() == types.CategoryMember {
		return calc.NewMember(spec, func(ev *evaluator.Evaluator) (*olap.Member, error) {
			t, err := at(ev)
			if err != nil || len(t) == 0 {
				return nil, err
			}
			return t[0], nil
		}), nil
	}
	return calc.NewTuple(spec, at), nil
}
