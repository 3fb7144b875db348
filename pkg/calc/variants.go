package calc

import (
	"github.com/sandrolain/gomdx/pkg/evaluator"
	"github.com/sandrolain/gomdx/pkg/olap"
)

// DoubleCalc yields a number. ok is false for null.
type DoubleCalc interface {
	Calc
	EvaluateDouble(ev *evaluator.Evaluator) (v float64, ok bool, err error)
}

// IntegerCalc yields an integer; null evaluates to 0.
type IntegerCalc interface {
	Calc
	EvaluateInteger(ev *evaluator.Evaluator) (int, error)
}

// StringCalc yields a string; null evaluates to "".
type StringCalc interface {
	Calc
	EvaluateString(ev *evaluator.Evaluator) (string, error)
}

// BooleanCalc yields a logical value.
type BooleanCalc interface {
	Calc
	EvaluateBoolean(ev *evaluator.Evaluator) (bool, error)
}

// MemberCalc yields a member; nil is the null member.
type MemberCalc interface {
	Calc
	EvaluateMember(ev *evaluator.Evaluator) (*olap.Member, error)
}

// TupleCalc yields a tuple; nil is the null tuple.
type TupleCalc interface {
	Calc
	EvaluateTuple(ev *evaluator.Evaluator) (olap.Tuple, error)
}

// ListCalc yields a materialized list.
type ListCalc interface {
	Calc
	EvaluateList(ev *evaluator.Evaluator) (*olap.TupleList, error)
}

// IterCalc yields a single-pass iterable.
type IterCalc interface {
	Calc
	EvaluateIterable(ev *evaluator.Evaluator) (olap.TupleIterable, error)
}

// LevelCalc yields a level.
type LevelCalc interface {
	Calc
	EvaluateLevel(ev *evaluator.Evaluator) (*olap.Level, error)
}

// HierarchyCalc yields a hierarchy.
type HierarchyCalc interface {
	Calc
	EvaluateHierarchy(ev *evaluator.Evaluator) (*olap.Hierarchy, error)
}

// DimensionCalc yields a dimension.
type DimensionCalc interface {
	Calc
	EvaluateDimension(ev *evaluator.Evaluator) (*olap.Dimension, error)
}

type doubleCalc struct {
	base
	fn func(*evaluator.Evaluator) (float64, bool, error)
}

// NewDouble builds a DoubleCalc from fn.
func NewDouble(spec Spec, fn func(ev *evaluator.Evaluator) (float64, bool, error)) DoubleCalc {
	return &doubleCalc{base{spec}, fn}
}

func (c *doubleCalc) EvaluateDouble(ev *evaluator.Evaluator) (float64, bool, error) { return c.fn(ev) }

func (c *doubleCalc) Evaluate(ev *evaluator.Evaluator) (any, error) {
	v, ok, err := c.fn(ev)
	if err != nil || !ok {
		return nil, err
	}
	return v, nil
}

type integerCalc struct {
	base
	fn func(*evaluator.Evaluator) (int, error)
}

// NewInteger builds an IntegerCalc from fn.
func NewInteger(spec Spec, fn func(ev *evaluator.Evaluator) (int, error)) IntegerCalc {
	return &integerCalc{base{spec}, fn}
}

func (c *integerCalc) EvaluateInteger(ev *evaluator.Evaluator) (int, error) { return c.fn(ev) }

func (c *integerCalc) Evaluate(ev *evaluator.Evaluator) (any, error) {
	v, err := c.fn(ev)
	if err != nil {
		return nil, err
	}
	return float64(v), nil
}

type stringCalc struct {
	base
	fn func(*evaluator.Evaluator) (string, error)
}

// NewString builds a StringCalc from fn.
func NewString(spec Spec, fn func(ev *evaluator.Evaluator) (string, error)) StringCalc {
	return &stringCalc{base{spec}, fn}
}

func (c *stringCalc) EvaluateString(ev *evaluator.Evaluator) (string, error) { return c.fn(ev) }

func (c *stringCalc) Evaluate(ev *evaluator.Evaluator) (any, error) {
	v, err := c.fn(ev)
	if err != nil {
		return nil, err
	}
	return v, nil
}

type booleanCalc struct {
	base
	fn func(*evaluator.Evaluator) (bool, error)
}

// NewBoolean builds a BooleanCalc from fn.
func NewBoolean(spec Spec, fn func(ev *evaluator.Evaluator) (bool, error)) BooleanCalc {
	return &booleanCalc{base{spec}, fn}
}

func (c *booleanCalc) EvaluateBoolean(ev *evaluator.Evaluator) (bool, error) { return c.fn(ev) }

func (c *booleanCalc) Evaluate(ev *evaluator.Evaluator) (any, error) {
	v, err := c.fn(ev)
	if err != nil {
		return nil, err
	}
	return v, nil
}

type memberCalc struct {
	base
	fn func(*evaluator.Evaluator) (*olap.Member, error)
}

// NewMember builds a MemberCalc from fn.
func NewMember(spec Spec, fn func(ev *evaluator.Evaluator) (*olap.Member, error)) MemberCalc {
	return &memberCalc{base{spec}, fn}
}

func (c *memberCalc) EvaluateMember(ev *evaluator.Evaluator) (*olap.Member, error) { return c.fn(ev) }

func (c *memberCalc) Evaluate(ev *evaluator.Evaluator) (any, error) {
	m, err := c.fn(ev)
	if err != nil || m == nil {
		return nil, err
	}
	return m, nil
}

type tupleCalc struct {
	base
	fn func(*evaluator.Evaluator) (olap.Tuple, error)
}

// NewTuple builds a TupleCalc from fn.
func NewTuple(spec Spec, fn func(ev *evaluator.Evaluator) (olap.Tuple, error)) TupleCalc {
	return &tupleCalc{base{spec}, fn}
}

func (c *tupleCalc) EvaluateTuple(ev *evaluator.Evaluator) (olap.Tuple, error) { return c.fn(ev) }

func (c *tupleCalc) Evaluate(ev *evaluator.Evaluator) (any, error) {
	t, err := c.fn(ev)
	if err != nil || t == nil {
		return nil, err
	}
	return t, nil
}

type listCalc struct {
	base
	fn func(*evaluator.Evaluator) (*olap.TupleList, error)
}

// NewList builds a ListCalc from fn. The spec's Style says whether callers
// may mutate the result; it defaults to StyleList.
func NewList(spec Spec, fn func(ev *evaluator.Evaluator) (*olap.TupleList, error)) ListCalc {
	if spec.Style == StyleValue || spec.Style == StyleIterable {
		spec.Style = StyleList
	}
	return &listCalc{base{spec}, fn}
}

func (c *listCalc) EvaluateList(ev *evaluator.Evaluator) (*olap.TupleList, error) { return c.fn(ev) }

func (c *listCalc) Evaluate(ev *evaluator.Evaluator) (any, error) {
	l, err := c.fn(ev)
	if err != nil {
		return nil, err
	}
	return l, nil
}

type iterCalc struct {
	base
	fn func(*evaluator.Evaluator) (olap.TupleIterable, error)
}

// NewIter builds an IterCalc from fn.
func NewIter(spec Spec, fn func(ev *evaluator.Evaluator) (olap.TupleIterable, error)) IterCalc {
	spec.Style = StyleIterable
	return &iterCalc{base{spec}, fn}
}

func (c *iterCalc) EvaluateIterable(ev *evaluator.Evaluator) (olap.TupleIterable, error) {
	return c.fn(ev)
}

func (c *iterCalc) Evaluate(ev *evaluator.Evaluator) (any, error) {
	it, err := c.fn(ev)
	if err != nil {
		return nil, err
	}
	return it, nil
}

type levelCalc struct {
	base
	fn func(*evaluator.Evaluator) (*olap.Level, error)
}

// NewLevel builds a LevelCalc from fn.
func NewLevel(spec Spec, fn func(ev *evaluator.Evaluator) (*olap.Level, error)) LevelCalc {
	return &levelCalc{base{spec}, fn}
}

func (c *levelCalc) EvaluateLevel(ev *evaluator.Evaluator) (*olap.Level, error) { return c.fn(ev) }

func (c *levelCalc) Evaluate(ev *evaluator.Evaluator) (any, error) {
	l, err := c.fn(ev)
	if err != nil || l == nil {
		return nil, err
	}
	return l, nil
}

type hierarchyCalc struct {
	base
	fn func(*evaluator.Evaluator) (*olap.Hierarchy, error)
}

// NewHierarchy builds a HierarchyCalc from fn.
func NewHierarchy(spec Spec, fn func(ev *evaluator.Evaluator) (*olap.Hierarchy, error)) HierarchyCalc {
	return &hierarchyCalc{base{spec}, fn}
}

func (c *hierarchyCalc) EvaluateHierarchy(ev *evaluator.Evaluator) (*olap.Hierarchy, error) {
	return c.fn(ev)
}

func (c *hierarchyCalc) Evaluate(ev *evaluator.Evaluator) (any, error) {
	h, err := c.fn(ev)
	if err != nil || h == nil {
		return nil, err
	}
	return h, nil
}

type dimensionCalc struct {
	base
	fn func(*evaluator.Evaluator) (*olap.Dimension, error)
}

// NewDimension builds a DimensionCalc from fn.
func NewDimension(spec Spec, fn func(ev *evaluator.Evaluator) (*olap.Dimension, error)) DimensionCalc {
	return &dimensionCalc{base{spec}, fn}
}

func (c *dimensionCalc) EvaluateDimension(ev *evaluator.Evaluator) (*olap.Dimension, error) {
	return c.fn(ev)
}

func (c *dimensionCalc) Evaluate(ev *evaluator.Evaluator) (any, error) {
	d, err := c.fn(ev)
	if err != nil || d == nil {
		return nil, err
	}
	return d, nil
}

type scalarCalc struct {
	base
	fn func(*evaluator.Evaluator) (any, error)
}

// NewScalar builds a calc returning a value of any scalar category.
func NewScalar(spec Spec, fn func(ev *evaluator.Evaluator) (any, error)) Calc {
	return &scalarCalc{base{spec}, fn}
}

func (c *scalarCalc) Evaluate(ev *evaluator.Evaluator) (any, error) { return c.fn(ev) }
