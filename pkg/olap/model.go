// Package olap defines the multidimensional model the engine computes over:
// cubes, dimensions, hierarchies, levels, members and tuples, together with
// the collaborator contracts (SchemaReader, CellReader, Dialect) through
// which the engine reaches schema metadata and stored cell values.
package olap

import "fmt"

// Cube is a named set of dimensions. The measures are members of the
// dimension flagged as Measures.
type Cube struct {
	Name       string
	Dimensions []*Dimension

	// JoinedDimensions lists the dimensions that join this cube's fact
	// table. A nil map means every dimension joins.
	JoinedDimensions map[*Dimension]bool

	hierarchies []*Hierarchy
}

// NewCube creates a cube and assigns hierarchy ordinals.
func NewCube(name string, dims ...*Dimension) *Cube {
	c := &Cube{Name: name, Dimensions: dims}
	for _, d := range dims {
		for _, h := range d.Hierarchies {
			h.Ordinal = len(c.hierarchies)
			c.hierarchies = append(c.hierarchies, h)
		}
	}
	return c
}

// Hierarchies returns all hierarchies of the cube, indexed by ordinal.
func (c *Cube) Hierarchies() []*Hierarchy {
	return c.hierarchies
}

// Joins reports whether d joins this cube's fact table.
func (c *Cube) Joins(d *Dimension) bool {
	if c.JoinedDimensions == nil {
		return true
	}
	return c.JoinedDimensions[d]
}

// MeasuresHierarchy returns the hierarchy of the measures dimension, or nil.
func (c *Cube) MeasuresHierarchy() *Hierarchy {
	for _, d := range c.Dimensions {
		if d.Measures && len(d.Hierarchies) > 0 {
			return d.Hierarchies[0]
		}
	}
	return nil
}

// LookupDimension finds a dimension by name.
func (c *Cube) LookupDimension(name string) *Dimension {
	for _, d := range c.Dimensions {
		if d.Name == name {
			return d
		}
	}
	return nil
}

// LookupHierarchy finds a hierarchy by unique name.
func (c *Cube) LookupHierarchy(uniqueName string) *Hierarchy {
	for _, h := range c.hierarchies {
		if h.UniqueName == uniqueName {
			return h
		}
	}
	return nil
}

// Dimension groups one or more hierarchies.
type Dimension struct {
	Name        string
	UniqueName  string
	Hierarchies []*Hierarchy
	Measures    bool
}

// DefaultHierarchy returns the first hierarchy of the dimension.
func (d *Dimension) DefaultHierarchy() *Hierarchy {
	if len(d.Hierarchies) == 0 {
		return nil
	}
	return d.Hierarchies[0]
}

func (d *Dimension) String() string { return d.UniqueName }

// Hierarchy is an ordered set of levels.
type Hierarchy struct {
	Name          string
	UniqueName    string
	Dimension     *Dimension
	Levels        []*Level
	AllMember     *Member // nil when the hierarchy has no all level
	DefaultMember *Member
	Ordinal       int
}

// HasAll reports whether the hierarchy has an all member.
func (h *Hierarchy) HasAll() bool { return h.AllMember != nil }

func (h *Hierarchy) String() string { return h.UniqueName }

// Level groups members of equal granularity. Depth 0 is the top level.
type Level struct {
	Name       string
	UniqueName string
	Hierarchy  *Hierarchy
	Depth      int
}

// ChildLevel returns the level below l, or nil at the bottom.
func (l *Level) ChildLevel() *Level {
	if l.Depth+1 < len(l.Hierarchy.Levels) {
		return l.Hierarchy.Levels[l.Depth+1]
	}
	return nil
}

// ParentLevel returns the level above l, or nil at the top.
func (l *Level) ParentLevel() *Level {
	if l.Depth > 0 {
		return l.Hierarchy.Levels[l.Depth-1]
	}
	return nil
}

func (l *Level) String() string { return l.UniqueName }

// MemberKind classifies members.
type MemberKind int

const (
	MemberRegular MemberKind = iota
	MemberAll
	MemberMeasure
	MemberFormula
)

// Well-known member property names.
const (
	PropertyAggregationType = "AGGREGATION_TYPE"
	PropertyBaseCube        = "BASE_CUBE"
	PropertyFormatString    = "FORMAT_STRING"
)

// Member is a single point on a hierarchy.
type Member struct {
	Name       string
	UniqueName string
	Level      *Level
	Parent     *Member
	Ordinal    int // position among siblings
	Kind       MemberKind
	SolveOrder int
	Properties map[string]any
}

// Hierarchy returns the member's hierarchy.
func (m *Member) Hierarchy() *Hierarchy { return m.Level.Hierarchy }

// Dimension returns the member's dimension.
func (m *Member) Dimension() *Dimension { return m.Level.Hierarchy.Dimension }

// Depth returns the depth of the member's level.
func (m *Member) Depth() int { return m.Level.Depth }

// IsAll reports whether m is the all member of its hierarchy.
func (m *Member) IsAll() bool { return m.Kind == MemberAll }

// IsMeasure reports whether m belongs to the measures dimension.
func (m *Member) IsMeasure() bool { return m.Level.Hierarchy.Dimension.Measures }

// IsCalculated reports whether m is defined by a formula.
func (m *Member) IsCalculated() bool { return m.Kind == MemberFormula }

// Property returns a member property.
func (m *Member) Property(name string) (any, bool) {
	if m.Properties == nil {
		return nil, false
	}
	v, ok := m.Properties[name]
	return v, ok
}

// IsChildOrEqualTo reports whether m is ancestor itself or one of its descendants.
func (m *Member) IsChildOrEqualTo(ancestor *Member) bool {
	if ancestor == nil {
		return false
	}
	for x := m; x != nil; x = x.Parent {
		if x == ancestor {
			return true
		}
	}
	return false
}

// AncestorAt returns the ancestor of m at the given depth, m itself when the
// depth equals m's depth, or nil when depth is below m.
func (m *Member) AncestorAt(depth int) *Member {
	x := m
	for x != nil && x.Depth() > depth {
		x = x.Parent
	}
	if x != nil && x.Depth() == depth {
		return x
	}
	return nil
}

func (m *Member) String() string {
	if m == nil {
		return "#null"
	}
	return m.UniqueName
}

// NewLevelName builds a unique name for a level.
func NewLevelName(h *Hierarchy, name string) string {
	return fmt.Sprintf("%s.[%s]", h.UniqueName, name)
}
