package types

// conversion costs, keyed by (from, to). Absent pairs are not convertible.
// Cost 0 is a lossless widening.
var conversions = map[[2]Category]int{
	{CategoryInteger, CategoryNumeric}: 0,
	{CategoryNumeric, CategoryInteger}: 1,
	{CategoryNumeric, CategoryLogical}: 1,
	{CategoryInteger, CategoryLogical}: 1,

	{CategoryLogical, CategoryValue}:  1,
	{CategoryNumeric, CategoryValue}:  1,
	{CategoryInteger, CategoryValue}:  1,
	{CategoryString, CategoryValue}:   1,
	{CategoryDateTime, CategoryValue}: 1,

	{CategoryValue, CategoryNumeric}: 1,
	{CategoryValue, CategoryInteger}: 2,
	{CategoryValue, CategoryString}:  1,
	{CategoryValue, CategoryLogical}: 1,

	{CategoryNull, CategoryNumeric}: 1,
	{CategoryNull, CategoryInteger}: 1,
	{CategoryNull, CategoryString}:  1,
	{CategoryNull, CategoryLogical}: 1,
	{CategoryNull, CategoryValue}:   1,
	{CategoryNull, CategoryMember}:  1,

	// A member or tuple used where a scalar is expected yields the value
	// of the cell it identifies.
	{CategoryMember, CategoryNumeric}: 1,
	{CategoryMember, CategoryInteger}: 2,
	{CategoryMember, CategoryString}:  1,
	{CategoryMember, CategoryLogical}: 1,
	{CategoryMember, CategoryValue}:   1,
	{CategoryTuple, CategoryNumeric}:  1,
	{CategoryTuple, CategoryInteger}:  2,
	{CategoryTuple, CategoryString}:   1,
	{CategoryTuple, CategoryLogical}:  1,
	{CategoryTuple, CategoryValue}:    1,

	{CategoryMember, CategoryTuple}: 1,
	{CategoryMember, CategorySet}:   1,
	{CategoryTuple, CategorySet}:    1,

	{CategoryHierarchy, CategoryMember}:    1,
	{CategoryDimension, CategoryHierarchy}: 1,
	{CategoryDimension, CategoryMember}:    2,
}

// ConversionCost reports whether a value of type from can be used where
// category to is expected, and at what cost. Identical categories cost 0.
func ConversionCost(from Type, to Category) (int, bool) {
	if from == nil {
		return 0, false
	}
	fc := from.Category()
	if fc == to {
		return 0, true
	}
	if to == CategoryUnknown {
		return 0, true
	}
	if fc == CategoryUnknown {
		// Type not known until run time; accept anything but count it.
		return 2, true
	}
	cost, ok := conversions[[2]Category{fc, to}]
	return cost, ok
}

// CanConvert reports whether from converts to category to.
func CanConvert(from Type, to Category) bool {
	_, ok := ConversionCost(from, to)
	return ok
}

// CommonType returns the least upper bound of two types: the type both
// convert to, keeping dimensional bindings only when they agree. It returns
// nil when no common type exists.
func CommonType(a, b Type) Type {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}
	ac, bc := a.Category(), b.Category()
	if ac == CategoryNull || ac == CategoryEmpty {
		return b
	}
	if bc == CategoryNull || bc == CategoryEmpty {
		return a
	}
	switch {
	case ac == bc:
		return commonSameCategory(a, b)
	case isNumber(ac) && isNumber(bc):
		return Numeric
	case ac.IsScalar() && bc.IsScalar():
		return Value
	case ac == CategoryMember && bc == CategoryTuple, ac == CategoryTuple && bc == CategoryMember:
		if ArityOf(a) == ArityOf(b) {
			return commonElements(ElementTypesOf(a), ElementTypesOf(b), false)
		}
		return nil
	}
	return nil
}

func isNumber(c Category) bool {
	return c == CategoryNumeric || c == CategoryInteger
}

func commonSameCategory(a, b Type) Type {
	switch a := a.(type) {
	case *NumericType:
		if a.Integer && b.(*NumericType).Integer {
			return Integer
		}
		return Numeric
	case *MemberType:
		return commonMember(a, b.(*MemberType))
	case *TupleType:
		bt := b.(*TupleType)
		if len(a.Elements) != len(bt.Elements) {
			return nil
		}
		return commonElements(a.Elements, bt.Elements, false)
	case *SetType:
		bs := b.(*SetType)
		if a.Arity() != bs.Arity() || a.Arity() < 0 {
			return UnknownSet
		}
		return commonElements(a.ElementTypes(), bs.ElementTypes(), true)
	case *LevelType:
		bl := b.(*LevelType)
		if a.Level == bl.Level {
			return a
		}
		if a.Hier == bl.Hier {
			return NewLevelType(a.Hier, nil)
		}
		return NewLevelType(nil, nil)
	case *HierarchyType:
		if a.Hier == b.(*HierarchyType).Hier {
			return a
		}
		return NewHierarchyType(nil)
	case *DimensionType:
		if a.Dimension == b.(*DimensionType).Dimension {
			return a
		}
		return &DimensionType{}
	}
	return a
}

func commonMember(a, b *MemberType) *MemberType {
	switch {
	case a.Member != nil && a.Member == b.Member:
		return a
	case a.Level != nil && a.Level == b.Level:
		return NewMemberType(nil, a.Level, nil)
	case a.Hier != nil && a.Hier == b.Hier:
		return NewMemberType(a.Hier, nil, nil)
	}
	return UnknownMember
}

func commonElements(as, bs []*MemberType, set bool) Type {
	cols := make([]*MemberType, len(as))
	for i := range as {
		cols[i] = commonMember(as[i], bs[i])
	}
	if set {
		return SetOf(cols)
	}
	if len(cols) == 1 {
		return cols[0]
	}
	tt, err := NewTupleType(cols...)
	if err != nil {
		return nil
	}
	return tt
}
