// Package types defines the static type system of the engine.
//
// This package contains type definitions for:
//   - Category: scalar and structural type tags used for signature matching
//   - Type: categories bound to a specific dimension, hierarchy or level
//   - Exp: expression trees handed to the compiler
//   - Error: structured errors with codes
package types

// Category is a type tag. It is used both for static typing and for
// signature matching.
type Category int

const (
	CategoryUnknown Category = iota
	CategoryLogical
	CategoryNumeric
	CategoryInteger
	CategoryString
	CategoryDateTime
	CategorySymbol
	CategoryDimension
	CategoryHierarchy
	CategoryLevel
	CategoryMember
	CategoryTuple
	CategorySet
	CategoryEmpty
	CategoryNull
	CategoryValue
)

var categoryNames = map[Category]string{
	CategoryUnknown:   "Unknown",
	CategoryLogical:   "Logical",
	CategoryNumeric:   "Numeric",
	CategoryInteger:   "Integer",
	CategoryString:    "String",
	CategoryDateTime:  "DateTime",
	CategorySymbol:    "Symbol",
	CategoryDimension: "Dimension",
	CategoryHierarchy: "Hierarchy",
	CategoryLevel:     "Level",
	CategoryMember:    "Member",
	CategoryTuple:     "Tuple",
	CategorySet:       "Set",
	CategoryEmpty:     "Empty",
	CategoryNull:      "Null",
	CategoryValue:     "Value",
}

func (c Category) String() string {
	if s, ok := categoryNames[c]; ok {
		return s
	}
	return "Unknown"
}

// IsScalar reports whether values of the category are scalars.
func (c Category) IsScalar() bool {
	switch c {
	case CategoryLogical, CategoryNumeric, CategoryInteger, CategoryString,
		CategoryDateTime, CategoryNull, CategoryValue:
		return true
	}
	return false
}
