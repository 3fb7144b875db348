// Package calc defines compiled expressions.
//
// A Calc is a node of a typed, executable tree produced by the compiler.
// There is one variant per result shape (double, integer, string, boolean,
// member, tuple, list, iterable, level, hierarchy, dimension, scalar); the
// function-specific behavior of each node is a closure stored in the
// variant. A calc holds no evaluation state: everything that changes while
// evaluating lives in the Evaluator, so one tree may be evaluated by many
// goroutines, each with its own Evaluator.
package calc

import (
	"github.com/sandrolain/gomdx/pkg/evaluator"
	"github.com/sandrolain/gomdx/pkg/olap"
	"github.com/sandrolain/gomdx/pkg/types"
)

// Calc is a compiled expression.
type Calc interface {
	Name() string
	Type() types.Type
	// Evaluate returns the result boxed as a value: float64, string, bool,
	// *olap.Member, olap.Tuple, *olap.TupleList, olap.TupleIterable,
	// *olap.Level, *olap.Hierarchy, *olap.Dimension or nil for null.
	Evaluate(ev *evaluator.Evaluator) (any, error)
	Children() []Calc
	// DependsOn reports whether the result may change when the current
	// member of h changes.
	DependsOn(h *olap.Hierarchy) bool
	ResultStyle() ResultStyle
}

// ResultStyle is the shape in which a set-valued calc returns its result.
type ResultStyle int

const (
	StyleValue ResultStyle = iota
	// StyleList: a materialized list the caller must not modify.
	StyleList
	// StyleMutableList: a list the caller owns.
	StyleMutableList
	// StyleIterable: a single-pass iterable.
	StyleIterable
)

func (s ResultStyle) String() string {
	switch s {
	case StyleList:
		return "LIST"
	case StyleMutableList:
		return "MUTABLE_LIST"
	case StyleIterable:
		return "ITERABLE"
	}
	return "VALUE"
}

// Spec carries the attributes shared by every variant.
type Spec struct {
	Name     string
	Type     types.Type
	Children []Calc
	// DependsOn overrides the default dependency rule, which is that a calc
	// depends on h when any child does.
	DependsOn func(h *olap.Hierarchy) bool
	Style     ResultStyle
}

type base struct {
	spec Spec
}

func (b *base) Name() string             { return b.spec.Name }
func (b *base) Type() types.Type         { return b.spec.Type }
func (b *base) Children() []Calc         { return b.spec.Children }
func (b *base) ResultStyle() ResultStyle { return b.spec.Style }

func (b *base) DependsOn(h *olap.Hierarchy) bool {
	if b.spec.DependsOn != nil {
		return b.spec.DependsOn(h)
	}
	return AnyDependsOn(b.spec.Children, h)
}

// AnyDependsOn reports whether any of calcs depends on h.
func AnyDependsOn(calcs []Calc, h *olap.Hierarchy) bool {
	for _, c := range calcs {
		if c != nil && c.DependsOn(h) {
			return true
		}
	}
	return false
}

// Never is a DependsOn rule for calcs independent of the context.
func Never(*olap.Hierarchy) bool { return false }

// Only returns a DependsOn rule true for exactly hier.
func Only(hier *olap.Hierarchy) func(*olap.Hierarchy) bool {
	return func(h *olap.Hierarchy) bool { return h == hier }
}

// Shielding returns a DependsOn rule for a calc that evaluates its children
// with the context of mt's hierarchy overridden. The calc does not depend on
// that hierarchy when mt is definitely bound to it.
func Shielding(mt types.Type, children []Calc) func(*olap.Hierarchy) bool {
	return func(h *olap.Hierarchy) bool {
		if mt != nil && mt.UsesHierarchy(h, true) {
			return false
		}
		return AnyDependsOn(children, h)
	}
}
