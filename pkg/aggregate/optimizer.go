package aggregate

import (
	"github.com/sandrolain/gomdx/pkg/evaluator"
	"github.com/sandrolain/gomdx/pkg/metrics"
	"github.com/sandrolain/gomdx/pkg/olap"
)

// OptimizeTupleList shrinks a tuple list destined for a distinct-count
// predicate by replacing complete groups of siblings with their parent.
//
// The list is returned unchanged when any member belongs to a hierarchy
// with a partial rollup policy, when it is not a full cross product of its
// columns, or when no column collapses. A list of arity 1 is returned as
// the single collapsed column.
func OptimizeTupleList(ev *evaluator.Evaluator, list *olap.TupleList) (*olap.TupleList, error) {
	if list.Len() == 0 {
		return list, nil
	}
	reader := ev.Reader()
	if hasPartialPolicy(reader, list) {
		metrics.OptimizerOutcomesTotal.WithLabelValues("partial_policy").Inc()
		return list, nil
	}

	columns, ok := crossProductColumns(list)
	if !ok {
		metrics.OptimizerOutcomesTotal.WithLabelValues("not_cross_product").Inc()
		return list, nil
	}

	base := baseCube(ev)
	changed := false
	for i, col := range columns {
		collapsed, did, err := collapseColumn(ev, reader, base, col)
		if err != nil {
			return nil, err
		}
		if did {
			columns[i] = collapsed
			changed = true
		}
	}
	if !changed {
		metrics.OptimizerOutcomesTotal.WithLabelValues("unchanged").Inc()
		return list, nil
	}
	metrics.OptimizerOutcomesTotal.WithLabelValues("collapsed").Inc()
	var out *olap.TupleList
	if len(columns) == 1 {
		out = olap.NewMemberList(columns[0])
	} else {
		out = olap.CrossProduct(columns)
	}
	if logger := ev.Logger(); logger != nil {
		logger.Debug("optimized distinct-count tuple list", "before", list.Len(), "after", out.Len())
	}
	return out, nil
}

func hasPartialPolicy(reader olap.SchemaReader, list *olap.TupleList) bool {
	seen := map[*olap.Hierarchy]bool{}
	for _, t := range list.Tuples() {
		for _, m := range t {
			if m == nil {
				continue
			}
			h := m.Hierarchy()
			if seen[h] {
				continue
			}
			seen[h] = true
			if reader.AccessDetails(h).RollupPolicy() == olap.RollupPartial {
				return true
			}
		}
	}
	return false
}

// crossProductColumns returns the distinct members of each column, in
// order of first appearance, when every member of a column occurs equally
// often and the list is exactly the cross product of its columns.
func crossProductColumns(list *olap.TupleList) ([][]*olap.Member, bool) {
	arity := list.Arity()
	columns := make([][]*olap.Member, arity)
	for i := 0; i < arity; i++ {
		counts := map[*olap.Member]int{}
		for _, t := range list.Tuples() {
			m := t[i]
			if counts[m] == 0 {
				columns[i] = append(columns[i], m)
			}
			counts[m]++
		}
		want := -1
		for _, n := range counts {
			if want < 0 {
				want = n
			} else if n != want {
				return nil, false
			}
		}
	}
	product := 1
	for _, col := range columns {
		product *= len(col)
	}
	distinct := map[string]bool{}
	for _, t := range list.Tuples() {
		distinct[t.Key()] = true
	}
	if len(distinct) != list.Len() || product != list.Len() {
		return nil, false
	}
	return columns, true
}

func baseCube(ev *evaluator.Evaluator) *olap.Cube {
	if v, ok := ev.Property(olap.PropertyBaseCube); ok {
		if c, ok := v.(*olap.Cube); ok && c != nil {
			return c
		}
	}
	return ev.Cube()
}

// collapseColumn replaces complete sibling groups with their parent until
// nothing changes. An all member subsumes the whole column.
func collapseColumn(ev *evaluator.Evaluator, reader olap.SchemaReader, base *olap.Cube,
	col []*olap.Member) ([]*olap.Member, bool, error) {
	changed := false
	for {
		for _, m := range col {
			if m != nil && m.IsAll() {
				if len(col) == 1 {
					return col, changed, nil
				}
				return []*olap.Member{m}, true, nil
			}
		}
		next, did, err := collapseOnce(ev, reader, base, col)
		if err != nil {
			return nil, false, err
		}
		if !did {
			return col, changed, nil
		}
		col, changed = next, true
	}
}

func collapseOnce(ev *evaluator.Evaluator, reader olap.SchemaReader, base *olap.Cube,
	col []*olap.Member) ([]*olap.Member, bool, error) {
	groups := map[*olap.Member][]*olap.Member{}
	var parents []*olap.Member
	for _, m := range col {
		if m == nil || m.Parent == nil {
			continue
		}
		if _, ok := groups[m.Parent]; !ok {
			parents = append(parents, m.Parent)
		}
		groups[m.Parent] = append(groups[m.Parent], m)
	}
	replace := map[*olap.Member]bool{}
	for _, p := range parents {
		if !base.Joins(p.Dimension()) && p.IsAll() {
			continue
		}
		n := reader.ChildrenCountFromCache(p)
		if n < 0 {
			children, err := reader.MemberChildren(ev.Context(), p)
			if err != nil {
				return nil, false, err
			}
			n = len(children)
		}
		if n > 0 && len(groups[p]) == n {
			replace[p] = true
		}
	}
	if len(replace) == 0 {
		return col, false, nil
	}
	out := make([]*olap.Member, 0, len(col))
	emitted := map[*olap.Member]bool{}
	for _, m := range col {
		if m != nil && m.Parent != nil && replace[m.Parent] {
			m = m.Parent
		}
		if emitted[m] {
			continue
		}
		emitted[m] = true
		out = append(out, m)
	}
	return out, true, nil
}
