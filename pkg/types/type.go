package types

import (
	"fmt"
	"strings"

	"github.com/sandrolain/gomdx/pkg/olap"
)

// Type is the static type of an expression.
type Type interface {
	Category() Category
	// UsesHierarchy reports whether values of this type may belong to h.
	// With definitely set, it only answers true when the type is bound to h.
	UsesHierarchy(h *olap.Hierarchy, definitely bool) bool
	// Hierarchy returns the bound hierarchy, or nil.
	Hierarchy() *olap.Hierarchy
	String() string
}

// ScalarType is a scalar type with no dimensional binding.
type ScalarType struct {
	cat Category
}

var (
	Logical  Type = &ScalarType{CategoryLogical}
	String   Type = &ScalarType{CategoryString}
	DateTime Type = &ScalarType{CategoryDateTime}
	Symbol   Type = &ScalarType{CategorySymbol}
	Empty    Type = &ScalarType{CategoryEmpty}
	Null     Type = &ScalarType{CategoryNull}
	Value    Type = &ScalarType{CategoryValue}
	Unknown  Type = &ScalarType{CategoryUnknown}
	Numeric  Type = &NumericType{}
	Integer  Type = &NumericType{Integer: true}
)

func (t *ScalarType) Category() Category                       { return t.cat }
func (t *ScalarType) UsesHierarchy(*olap.Hierarchy, bool) bool { return false }
func (t *ScalarType) Hierarchy() *olap.Hierarchy               { return nil }
func (t *ScalarType) String() string                           { return t.cat.String() }

// NumericType is a number; Integer marks whole numbers.
type NumericType struct {
	Integer bool
}

func (t *NumericType) Category() Category {
	if t.Integer {
		return CategoryInteger
	}
	return CategoryNumeric
}
func (t *NumericType) UsesHierarchy(*olap.Hierarchy, bool) bool { return false }
func (t *NumericType) Hierarchy() *olap.Hierarchy               { return nil }
func (t *NumericType) String() string                           { return t.Category().String() }

// DimensionType is the type of a dimension expression.
type DimensionType struct {
	Dimension *olap.Dimension
}

func (t *DimensionType) Category() Category { return CategoryDimension }
func (t *DimensionType) UsesHierarchy(h *olap.Hierarchy, definitely bool) bool {
	return usesDimension(t.Dimension, h, definitely)
}
func (t *DimensionType) Hierarchy() *olap.Hierarchy {
	if t.Dimension != nil && len(t.Dimension.Hierarchies) == 1 {
		return t.Dimension.Hierarchies[0]
	}
	return nil
}
func (t *DimensionType) String() string {
	if t.Dimension == nil {
		return "DimensionType<>"
	}
	return "DimensionType<" + t.Dimension.UniqueName + ">"
}

// HierarchyType is the type of a hierarchy expression.
type HierarchyType struct {
	Dimension *olap.Dimension
	Hier      *olap.Hierarchy
}

// NewHierarchyType builds a hierarchy type; h may be nil.
func NewHierarchyType(h *olap.Hierarchy) *HierarchyType {
	t := &HierarchyType{Hier: h}
	if h != nil {
		t.Dimension = h.Dimension
	}
	return t
}

func (t *HierarchyType) Category() Category { return CategoryHierarchy }
func (t *HierarchyType) UsesHierarchy(h *olap.Hierarchy, definitely bool) bool {
	return usesHier(t.Dimension, t.Hier, h, definitely)
}
func (t *HierarchyType) Hierarchy() *olap.Hierarchy { return t.Hier }
func (t *HierarchyType) String() string             { return "HierarchyType<" + hierName(t.Hier) + ">" }

// LevelType is the type of a level expression.
type LevelType struct {
	Dimension *olap.Dimension
	Hier      *olap.Hierarchy
	Level     *olap.Level
}

// NewLevelType builds a level type bound to l, or to h when l is nil.
func NewLevelType(h *olap.Hierarchy, l *olap.Level) *LevelType {
	t := &LevelType{Hier: h, Level: l}
	if l != nil {
		t.Hier = l.Hierarchy
	}
	if t.Hier != nil {
		t.Dimension = t.Hier.Dimension
	}
	return t
}

func (t *LevelType) Category() Category { return CategoryLevel }
func (t *LevelType) UsesHierarchy(h *olap.Hierarchy, definitely bool) bool {
	return usesHier(t.Dimension, t.Hier, h, definitely)
}
func (t *LevelType) Hierarchy() *olap.Hierarchy { return t.Hier }
func (t *LevelType) String() string {
	if t.Level != nil {
		return "LevelType<" + t.Level.UniqueName + ">"
	}
	return "LevelType<" + hierName(t.Hier) + ">"
}

// MemberType is the type of a member expression.
type MemberType struct {
	Dimension *olap.Dimension
	Hier      *olap.Hierarchy
	Level     *olap.Level
	Member    *olap.Member
}

// NewMemberType builds a member type; the most specific of m, l, h wins.
func NewMemberType(h *olap.Hierarchy, l *olap.Level, m *olap.Member) *MemberType {
	t := &MemberType{Hier: h, Level: l, Member: m}
	if m != nil {
		t.Level = m.Level
	}
	if t.Level != nil {
		t.Hier = t.Level.Hierarchy
	}
	if t.Hier != nil {
		t.Dimension = t.Hier.Dimension
	}
	return t
}

// UnknownMember is a member type bound to no hierarchy.
var UnknownMember = &MemberType{}

func (t *MemberType) Category() Category { return CategoryMember }
func (t *MemberType) UsesHierarchy(h *olap.Hierarchy, definitely bool) bool {
	return usesHier(t.Dimension, t.Hier, h, definitely)
}
func (t *MemberType) Hierarchy() *olap.Hierarchy { return t.Hier }
func (t *MemberType) String() string {
	switch {
	case t.Member != nil:
		return "MemberType<member=" + t.Member.UniqueName + ">"
	case t.Level != nil:
		return "MemberType<level=" + t.Level.UniqueName + ">"
	}
	return "MemberType<hierarchy=" + hierName(t.Hier) + ">"
}

// TupleType is a fixed-length sequence of member types on distinct
// hierarchies.
type TupleType struct {
	Elements []*MemberType
}

// NewTupleType builds a tuple type and checks that no hierarchy repeats.
func NewTupleType(elements ...*MemberType) (*TupleType, error) {
	seen := make(map[*olap.Hierarchy]bool, len(elements))
	for _, e := range elements {
		if e.Hier == nil {
			continue
		}
		if seen[e.Hier] {
			return nil, NewError(ErrTypeMismatch,
				fmt.Sprintf("tuple contains more than one member of hierarchy %s", e.Hier.UniqueName))
		}
		seen[e.Hier] = true
	}
	return &TupleType{Elements: elements}, nil
}

func (t *TupleType) Category() Category { return CategoryTuple }
func (t *TupleType) UsesHierarchy(h *olap.Hierarchy, definitely bool) bool {
	for _, e := range t.Elements {
		if e.UsesHierarchy(h, definitely) {
			return true
		}
	}
	return false
}
func (t *TupleType) Hierarchy() *olap.Hierarchy { return nil }
func (t *TupleType) String() string {
	parts := make([]string, len(t.Elements))
	for i, e := range t.Elements {
		parts[i] = e.String()
	}
	return "TupleType<" + strings.Join(parts, ", ") + ">"
}

// SetType is a set of members or tuples. Elem is a *MemberType, a
// *TupleType, or nil when the arity is not known.
type SetType struct {
	Elem Type
}

// NewSetType builds a set type, rejecting element types other than member
// and tuple types.
func NewSetType(elem Type) (*SetType, error) {
	switch elem.(type) {
	case nil, *MemberType, *TupleType:
		return &SetType{Elem: elem}, nil
	}
	return nil, NewError(ErrTypeMismatch, fmt.Sprintf("set element must be a member or tuple, got %s", elem))
}

// MemberSet returns the set type of members of h (which may be nil).
func MemberSet(h *olap.Hierarchy) *SetType {
	return &SetType{Elem: NewMemberType(h, nil, nil)}
}

// UnknownSet is a set of unknown arity.
var UnknownSet = &SetType{}

func (t *SetType) Category() Category { return CategorySet }
func (t *SetType) UsesHierarchy(h *olap.Hierarchy, definitely bool) bool {
	if t.Elem == nil {
		return !definitely
	}
	return t.Elem.UsesHierarchy(h, definitely)
}
func (t *SetType) Hierarchy() *olap.Hierarchy {
	if t.Elem == nil {
		return nil
	}
	return t.Elem.Hierarchy()
}

// Arity returns 1 for member sets, the tuple length for tuple sets, -1 when
// unknown.
func (t *SetType) Arity() int {
	switch e := t.Elem.(type) {
	case *MemberType:
		return 1
	case *TupleType:
		return len(e.Elements)
	}
	return -1
}

// ElementTypes returns the member types of each column, nil when unknown.
func (t *SetType) ElementTypes() []*MemberType {
	switch e := t.Elem.(type) {
	case *MemberType:
		return []*MemberType{e}
	case *TupleType:
		return e.Elements
	}
	return nil
}

func (t *SetType) String() string {
	if t.Elem == nil {
		return "SetType<>"
	}
	return "SetType<" + t.Elem.String() + ">"
}

func usesDimension(d *olap.Dimension, h *olap.Hierarchy, definitely bool) bool {
	if d == nil {
		return !definitely
	}
	return h != nil && h.Dimension == d
}

func usesHier(d *olap.Dimension, hier, h *olap.Hierarchy, definitely bool) bool {
	if hier != nil {
		return hier == h
	}
	if d != nil {
		if h == nil || h.Dimension != d {
			return false
		}
		return !definitely || len(d.Hierarchies) == 1
	}
	return !definitely
}

func hierName(h *olap.Hierarchy) string {
	if h == nil {
		return ""
	}
	return h.UniqueName
}

// ElementTypesOf returns the column member types of a member, tuple or set
// type, nil otherwise.
func ElementTypesOf(t Type) []*MemberType {
	switch t := t.(type) {
	case *MemberType:
		return []*MemberType{t}
	case *TupleType:
		return t.Elements
	case *SetType:
		return t.ElementTypes()
	}
	return nil
}

// ArityOf returns the arity of member, tuple and set types, -1 otherwise.
func ArityOf(t Type) int {
	switch t := t.(type) {
	case *MemberType:
		return 1
	case *TupleType:
		return len(t.Elements)
	case *SetType:
		return t.Arity()
	}
	return -1
}

// SetOf returns the set type whose elements have the given column types.
func SetOf(cols []*MemberType) *SetType {
	switch len(cols) {
	case 0:
		return UnknownSet
	case 1:
		return &SetType{Elem: cols[0]}
	}
	tt, err := NewTupleType(cols...)
	if err != nil {
		return UnknownSet
	}
	return &SetType{Elem: tt}
}
