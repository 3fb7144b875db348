// Package memcube is an in-memory cube: a schema built in code, a
// SchemaReader over it and a CellReader over a list of fact rows.
//
// # Example
//
//	b := memcube.NewBuilder("Sales")
//	sales := b.Measure("Unit Sales", aggregate.Sum)
//	gender := b.Hierarchy("Gender", true, "Gender")
//	f := b.Path(gender, "F")
//	store := b.Build()
//	store.AddFact(map[*olap.Member]float64{sales: 10}, f)
package memcube

import (
	"fmt"

	"github.com/sandrolain/gomdx/pkg/aggregate"
	"github.com/sandrolain/gomdx/pkg/olap"
)

// Builder assembles a cube schema.
type Builder struct {
	name     string
	measures *olap.Hierarchy
	dims     []*olap.Dimension
	tree     *tree
}

// tree holds member navigation.
type tree struct {
	children map[*olap.Member][]*olap.Member
	roots    map[*olap.Hierarchy][]*olap.Member
	levels   map[*olap.Level][]*olap.Member
	byName   map[string]*olap.Member
}

// NewBuilder starts a cube. The measures dimension is created up front.
func NewBuilder(name string) *Builder {
	b := &Builder{
		name: name,
		tree: &tree{
			children: map[*olap.Member][]*olap.Member{},
			roots:    map[*olap.Hierarchy][]*olap.Member{},
			levels:   map[*olap.Level][]*olap.Member{},
			byName:   map[string]*olap.Member{},
		},
	}
	d := &olap.Dimension{Name: "Measures", UniqueName: "[Measures]", Measures: true}
	h := &olap.Hierarchy{Name: "Measures", UniqueName: "[Measures]", Dimension: d}
	h.Levels = []*olap.Level{{Name: "MeasuresLevel", UniqueName: olap.NewLevelName(h, "MeasuresLevel"), Hierarchy: h}}
	d.Hierarchies = []*olap.Hierarchy{h}
	b.measures = h
	b.dims = append(b.dims, d)
	return b
}

// Hierarchy adds a dimension with a single hierarchy of the given levels,
// top first. With all set the hierarchy gets an all level above them.
func (b *Builder) Hierarchy(name string, all bool, levels ...string) *olap.Hierarchy {
	d := &olap.Dimension{Name: name, UniqueName: "[" + name + "]"}
	h := &olap.Hierarchy{Name: name, UniqueName: d.UniqueName, Dimension: d}
	d.Hierarchies = []*olap.Hierarchy{h}
	if all {
		levels = append([]string{"(All)"}, levels...)
	}
	for i, l := range levels {
		h.Levels = append(h.Levels, &olap.Level{
			Name:       l,
			UniqueName: olap.NewLevelName(h, l),
			Hierarchy:  h,
			Depth:      i,
		})
	}
	if all {
		m := &olap.Member{
			Name:       "All " + name,
			UniqueName: fmt.Sprintf("%s.[All %s]", h.UniqueName, name),
			Level:      h.Levels[0],
			Kind:       olap.MemberAll,
		}
		h.AllMember = m
		b.tree.add(h, m)
	}
	b.dims = append(b.dims, d)
	return h
}

// Member adds a member under parent. A nil parent adds a member at the top
// level below the all member, if any.
func (b *Builder) Member(h *olap.Hierarchy, parent *olap.Member, name string) *olap.Member {
	m := b.newMember(h, parent, name)
	b.tree.add(h, m)
	return m
}

func (b *Builder) newMember(h *olap.Hierarchy, parent *olap.Member, name string) *olap.Member {
	if parent == nil {
		parent = h.AllMember
	}
	depth, prefix := 0, h.UniqueName
	if parent != nil {
		depth, prefix = parent.Depth()+1, parent.UniqueName
	}
	if depth >= len(h.Levels) {
		panic(fmt.Sprintf("memcube: %s has no level below %s", h, parent))
	}
	return &olap.Member{
		Name:       name,
		UniqueName: fmt.Sprintf("%s.[%s]", prefix, name),
		Level:      h.Levels[depth],
		Parent:     parent,
	}
}

// Path returns the member reached by following names from the top level,
// adding the ones that do not exist yet.
func (b *Builder) Path(h *olap.Hierarchy, names ...string) *olap.Member {
	var m *olap.Member
	prefix := h.UniqueName
	if h.AllMember != nil {
		m, prefix = h.AllMember, h.AllMember.UniqueName
	}
	for _, n := range names {
		prefix = fmt.Sprintf("%s.[%s]", prefix, n)
		if x, ok := b.tree.byName[prefix]; ok {
			m = x
			continue
		}
		m = b.Member(h, m, n)
	}
	return m
}

// Measure adds a stored measure aggregated with agg.
func (b *Builder) Measure(name string, agg *aggregate.Aggregator) *olap.Member {
	m := &olap.Member{
		Name:       name,
		UniqueName: fmt.Sprintf("[Measures].[%s]", name),
		Level:      b.measures.Levels[0],
		Kind:       olap.MemberMeasure,
		Properties: map[string]any{olap.PropertyAggregationType: agg},
	}
	b.tree.add(b.measures, m)
	return m
}

// Calculated adds a calculated member to h. Its formula is supplied at
// evaluation time. Calculated members can be looked up by name but are not
// among the children or level members of the hierarchy.
func (b *Builder) Calculated(h *olap.Hierarchy, parent *olap.Member, name string, solveOrder int) *olap.Member {
	if h == nil {
		h = b.measures
	}
	var m *olap.Member
	if h == b.measures {
		m = &olap.Member{
			Name:       name,
			UniqueName: fmt.Sprintf("[Measures].[%s]", name),
			Level:      b.measures.Levels[0],
		}
	} else {
		m = b.newMember(h, parent, name)
	}
	m.Kind = olap.MemberFormula
	m.SolveOrder = solveOrder
	b.tree.byName[m.UniqueName] = m
	return m
}

// Build returns the store. Hierarchies without an all member default to
// their first top-level member.
func (b *Builder) Build() *Store {
	for _, d := range b.dims {
		for _, h := range d.Hierarchies {
			if h.DefaultMember == nil && h.AllMember == nil && len(b.tree.roots[h]) > 0 {
				h.DefaultMember = b.tree.roots[h][0]
			}
		}
	}
	cube := olap.NewCube(b.name, b.dims...)
	return &Store{Cube: cube, tree: b.tree}
}

func (t *tree) add(h *olap.Hierarchy, m *olap.Member) {
	if m.Parent == nil {
		m.Ordinal = len(t.roots[h])
		t.roots[h] = append(t.roots[h], m)
	} else {
		m.Ordinal = len(t.children[m.Parent])
		t.children[m.Parent] = append(t.children[m.Parent], m)
	}
	t.levels[m.Level] = append(t.levels[m.Level], m)
	t.byName[m.UniqueName] = m
}
