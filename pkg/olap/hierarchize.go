package olap

import "sort"

// CompareHierarchically orders two members of the same hierarchy in
// hierarchical order: an ancestor precedes its descendants (follows them
// when post is true), siblings follow their ordinals. Members of different
// hierarchies are ordered by hierarchy ordinal.
func CompareHierarchically(a, b *Member, post bool) int {
	if a == b {
		return 0
	}
	if a == nil {
		return -1
	}
	if b == nil {
		return 1
	}
	if ha, hb := a.Hierarchy(), b.Hierarchy(); ha != hb {
		return compareInt(ha.Ordinal, hb.Ordinal)
	}
	pa, pb := path(a), path(b)
	for i := 0; i < len(pa) && i < len(pb); i++ {
		if pa[i] != pb[i] {
			if pa[i].Ordinal != pb[i].Ordinal {
				return compareInt(pa[i].Ordinal, pb[i].Ordinal)
			}
			if pa[i].UniqueName < pb[i].UniqueName {
				return -1
			}
			return 1
		}
	}
	// One is an ancestor of the other.
	c := compareInt(len(pa), len(pb))
	if post {
		return -c
	}
	return c
}

func path(m *Member) []*Member {
	var out []*Member
	for x := m; x != nil; x = x.Parent {
		out = append(out, x)
	}
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out
}

func compareInt(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

// Hierarchize sorts members in place into hierarchical order.
func Hierarchize(members []*Member, post bool) {
	sort.SliceStable(members, func(i, j int) bool {
		return CompareHierarchically(members[i], members[j], post) < 0
	})
}

// HierarchizeTuples sorts a list in place, comparing column by column.
func HierarchizeTuples(l *TupleList, post bool) {
	tuples := l.Tuples()
	sort.SliceStable(tuples, func(i, j int) bool {
		a, b := tuples[i], tuples[j]
		for k := range a {
			if c := CompareHierarchically(a[k], b[k], post); c != 0 {
				return c < 0
			}
		}
		return false
	})
}
