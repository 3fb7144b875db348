package compiler

import (
	"math"

	"github.com/sandrolain/gomdx/pkg/calc"
	"github.com/sandrolain/gomdx/pkg/evaluator"
	"github.com/sandrolain/gomdx/pkg/olap"
	"github.com/sandrolain/gomdx/pkg/types"
)

// Each CompileX method compiles exp in its natural shape and then applies
// the implicit conversion to shape X. Wrappers keep the wrapped calc as
// their only child, so they inherit its dependencies.

func wrap(name string, t types.Type, inner calc.Calc) calc.Spec {
	return calc.Spec{Name: name, Type: t, Children: []calc.Calc{inner}}
}

func mismatch(exp types.Exp, want types.Category) error {
	return types.Errorf(types.ErrTypeMismatch, "cannot convert %s of type %s to %s",
		exp, exp.Type(), want)
}

func conversionError(v any, want string) error {
	return types.Errorf(types.ErrConversion, "cannot convert %T to %s", v, want)
}

// CompileScalar compiles exp to a calc yielding a scalar. Members and
// tuples yield the value of the cell they identify.
func (c *Compiler) CompileScalar(exp types.Exp) (calc.Calc, error) {
	x, err := c.compileStyled(exp, calc.StyleValue)
	if err != nil {
		return nil, err
	}
	return c.scalar(x), nil
}

func (c *Compiler) scalar(x calc.Calc) calc.Calc {
	switch x := x.(type) {
	case calc.MemberCalc:
		return calc.ValueAtMember(x)
	case calc.TupleCalc:
		return calc.ValueAtTuple(x)
	case calc.HierarchyCalc:
		return calc.ValueAtMember(currentMember(x))
	}
	return x
}

// CompileDouble compiles exp to a number.
func (c *Compiler) CompileDouble(exp types.Exp) (calc.DoubleCalc, error) {
	x, err := c.CompileScalar(exp)
	if err != nil {
		return nil, err
	}
	switch x := x.(type) {
	case calc.DoubleCalc:
		return x, nil
	case calc.IntegerCalc:
		return calc.NewDouble(wrap("IntegerToDouble", types.Numeric, x),
			func(ev *evaluator.Evaluator) (float64, bool, error) {
				n, err := x.EvaluateInteger(ev)
				return float64(n), err == nil, err
			}), nil
	}
	return calc.NewDouble(wrap("ValueToDouble", types.Numeric, x),
		func(ev *evaluator.Evaluator) (float64, bool, error) {
			v, err := x.Evaluate(ev)
			if err != nil {
				return 0, false, err
			}
			return calc.ToDouble(ev.Context(), v)
		}), nil
}

// CompileInteger compiles exp to an integer, truncating numbers. Null
// becomes 0.
func (c *Compiler) CompileInteger(exp types.Exp) (calc.IntegerCalc, error) {
	x, err := c.CompileScalar(exp)
	if err != nil {
		return nil, err
	}
	switch x := x.(type) {
	case calc.IntegerCalc:
		return x, nil
	case calc.DoubleCalc:
		return calc.NewInteger(wrap("DoubleToInteger", types.Integer, x),
			func(ev *evaluator.Evaluator) (int, error) {
				v, _, err := x.EvaluateDouble(ev)
				return int(math.Trunc(v)), err
			}), nil
	}
	return calc.NewInteger(wrap("ValueToInteger", types.Integer, x),
		func(ev *evaluator.Evaluator) (int, error) {
			v, err := x.Evaluate(ev)
			if err != nil {
				return 0, err
			}
			f, _, err := calc.ToDouble(ev.Context(), v)
			return int(math.Trunc(f)), err
		}), nil
}

// CompileString compiles exp to a string. Null becomes "".
func (c *Compiler) CompileString(exp types.Exp) (calc.StringCalc, error) {
	x, err := c.CompileScalar(exp)
	if err != nil {
		return nil, err
	}
	if s, ok := x.(calc.StringCalc); ok {
		return s, nil
	}
	return calc.NewString(wrap("ValueToString", types.String, x),
		func(ev *evaluator.Evaluator) (string, error) {
			v, err := x.Evaluate(ev)
			if err != nil {
				return "", err
			}
			return calc.ToString(ev.Context(), v)
		}), nil
}

// CompileBoolean compiles exp to a logical value. Null is false.
func (c *Compiler) CompileBoolean(exp types.Exp) (calc.BooleanCalc, error) {
	x, err := c.CompileScalar(exp)
	if err != nil {
		return nil, err
	}
	if b, ok := x.(calc.BooleanCalc); ok {
		return b, nil
	}
	return calc.NewBoolean(wrap("ValueToBoolean", types.Logical, x),
		func(ev *evaluator.Evaluator) (bool, error) {
			v, err := x.Evaluate(ev)
			if err != nil {
				return false, err
			}
			return calc.ToBoolean(ev.Context(), v)
		}), nil
}

// CompileMember compiles exp to a member. A hierarchy or dimension
// converts to its current member.
func (c *Compiler) CompileMember(exp types.Exp) (calc.MemberCalc, error) {
	x, err := c.compileStyled(exp, calc.StyleValue)
	if err != nil {
		return nil, err
	}
	switch x.(type) {
	case calc.TupleCalc, calc.ListCalc, calc.IterCalc, calc.LevelCalc:
		return nil, mismatch(exp, types.CategoryMember)
	}
	return c.asMember(exp, x)
}

// currentMember is the hierarchy to current member conversion. It depends
// on exactly the hierarchy when that is known statically.
func currentMember(hc calc.HierarchyCalc) calc.MemberCalc {
	h := hc.Type().Hierarchy()
	spec := wrap("CurrentMember", types.NewMemberType(h, nil, nil), hc)
	if h != nil {
		spec.DependsOn = calc.Only(h)
	} else {
		spec.DependsOn = func(*olap.Hierarchy) bool { return true }
	}
	return calc.NewMember(spec, func(ev *evaluator.Evaluator) (*olap.Member, error) {
		hier, err := hc.EvaluateHierarchy(ev)
		if err != nil || hier == nil {
			return nil, err
		}
		return ev.CurrentMember(hier), nil
	})
}

func defaultHierarchy(dc calc.DimensionCalc) calc.HierarchyCalc {
	if dt, ok := dc.Type().(*types.DimensionType); ok && dt.Dimension != nil && len(dc.Children()) == 0 {
		return calc.ConstHierarchy(dt.Dimension.DefaultHierarchy())
	}
	return calc.NewHierarchy(wrap("DefaultHierarchy", types.NewHierarchyType(dc.Type().Hierarchy()), dc),
		func(ev *evaluator.Evaluator) (*olap.Hierarchy, error) {
			d, err := dc.EvaluateDimension(ev)
			if err != nil || d == nil {
				return nil, err
			}
			return d.DefaultHierarchy(), nil
		})
}

// CompileTuple compiles exp to a tuple. A member becomes a one-member
// tuple; the null member becomes the null tuple.
func (c *Compiler) CompileTuple(exp types.Exp) (calc.TupleCalc, error) {
	x, err := c.compileStyled(exp, calc.StyleValue)
	if err != nil {
		return nil, err
	}
	switch x := x.(type) {
	case calc.TupleCalc:
		return x, nil
	case calc.ListCalc, calc.IterCalc, calc.LevelCalc:
		return nil, mismatch(exp, types.CategoryTuple)
	}
	mc, err := c.asMember(exp, x)
	if err != nil {
		return nil, err
	}
	t, terr := types.NewTupleType(memberTypeOf(mc.Type()))
	if terr != nil {
		return nil, terr
	}
	return calc.NewTuple(wrap("MemberToTuple", t, mc),
		func(ev *evaluator.Evaluator) (olap.Tuple, error) {
			m, err := mc.EvaluateMember(ev)
			if err != nil || m == nil {
				return nil, err
			}
			return olap.Tuple{m}, nil
		}), nil
}

func (c *Compiler) asMember(exp types.Exp, x calc.Calc) (calc.MemberCalc, error) {
	switch x := x.(type) {
	case calc.MemberCalc:
		return x, nil
	case calc.HierarchyCalc:
		return currentMember(x), nil
	case calc.DimensionCalc:
		return currentMember(defaultHierarchy(x)), nil
	}
	switch cat := x.Type().Category(); {
	case cat == types.CategoryNull, cat == types.CategoryValue:
	case cat.IsScalar():
		return nil, mismatch(exp, types.CategoryMember)
	}
	return calc.NewMember(wrap("ValueToMember", types.UnknownMember, x),
		func(ev *evaluator.Evaluator) (*olap.Member, error) {
			v, err := x.Evaluate(ev)
			if err != nil {
				return nil, err
			}
			if m, ok := v.(*olap.Member); ok || v == nil {
				return m, nil
			}
			return nil, conversionError(v, "a member")
		}), nil
}

func memberTypeOf(t types.Type) *types.MemberType {
	if mt, ok := t.(*types.MemberType); ok {
		return mt
	}
	return types.UnknownMember
}

// CompileList compiles exp to a materialized list. With mutable set the
// caller may modify the list, so a shared list is copied.
func (c *Compiler) CompileList(exp types.Exp, mutable bool) (calc.ListCalc, error) {
	style := calc.StyleList
	if mutable {
		style = calc.StyleMutableList
	}
	x, err := c.compileStyled(exp, style)
	if err != nil {
		return nil, err
	}
	setType := types.Type(types.SetOf(types.ElementTypesOf(x.Type())))
	if x.Type().Category() == types.CategorySet {
		setType = x.Type()
	}
	switch x := x.(type) {
	case calc.ListCalc:
		if !mutable || x.ResultStyle() == calc.StyleMutableList {
			return x, nil
		}
		spec := wrap("CopyList", x.Type(), x)
		spec.Style = calc.StyleMutableList
		return calc.NewList(spec, func(ev *evaluator.Evaluator) (*olap.TupleList, error) {
			l, err := x.EvaluateList(ev)
			if err != nil {
				return nil, err
			}
			return l.Clone(), nil
		}), nil
	case calc.IterCalc:
		spec := wrap("Materialize", x.Type(), x)
		spec.Style = calc.StyleMutableList
		return calc.NewList(spec, func(ev *evaluator.Evaluator) (*olap.TupleList, error) {
			it, err := x.EvaluateIterable(ev)
			if err != nil {
				return nil, err
			}
			if l, ok := it.(*olap.TupleList); ok {
				return l.Clone(), nil
			}
			return olap.Materialize(it)
		}), nil
	case calc.TupleCalc:
		spec := wrap("TupleToSet", setType, x)
		spec.Style = calc.StyleMutableList
		return calc.NewList(spec, func(ev *evaluator.Evaluator) (*olap.TupleList, error) {
			t, err := x.EvaluateTuple(ev)
			if err != nil {
				return nil, err
			}
			l := olap.NewTupleList(max(len(t), 1))
			if !t.IsNull() {
				l.Append(t)
			}
			return l, nil
		}), nil
	case calc.LevelCalc:
		return nil, mismatch(exp, types.CategorySet)
	}
	mc, err := c.asMember(exp, x)
	if err != nil {
		return nil, err
	}
	spec := wrap("MemberToSet", setType, mc)
	spec.Style = calc.StyleMutableList
	return calc.NewList(spec, func(ev *evaluator.Evaluator) (*olap.TupleList, error) {
		m, err := mc.EvaluateMember(ev)
		if err != nil {
			return nil, err
		}
		l := olap.NewTupleList(1)
		if m != nil {
			l.Append(olap.Tuple{m})
		}
		return l, nil
	}), nil
}

// CompileIter compiles exp to a single-pass iterable. A list is iterable as
// is.
func (c *Compiler) CompileIter(exp types.Exp) (calc.IterCalc, error) {
	x, err := c.compileStyled(exp, calc.StyleIterable)
	if err != nil {
		return nil, err
	}
	if it, ok := x.(calc.IterCalc); ok {
		return it, nil
	}
	var list calc.ListCalc
	if l, ok := x.(calc.ListCalc); ok {
		list = l
	} else if list, err = c.CompileList(exp, false); err != nil {
		return nil, err
	}
	return calc.NewIter(wrap("ListToIterable", list.Type(), list),
		func(ev *evaluator.Evaluator) (olap.TupleIterable, error) {
			return list.EvaluateList(ev)
		}), nil
}

// CompileLevel compiles exp to a level.
func (c *Compiler) CompileLevel(exp types.Exp) (calc.LevelCalc, error) {
	x, err := c.compileStyled(exp, calc.StyleValue)
	if err != nil {
		return nil, err
	}
	if l, ok := x.(calc.LevelCalc); ok {
		return l, nil
	}
	if cat := x.Type().Category(); cat != types.CategoryUnknown && cat != types.CategoryValue {
		return nil, mismatch(exp, types.CategoryLevel)
	}
	return calc.NewLevel(wrap("ValueToLevel", types.NewLevelType(nil, nil), x),
		func(ev *evaluator.Evaluator) (*olap.Level, error) {
			v, err := x.Evaluate(ev)
			if err != nil {
				return nil, err
			}
			if l, ok := v.(*olap.Level); ok || v == nil {
				return l, nil
			}
			return nil, conversionError(v, "a level")
		}), nil
}

// CompileHierarchy compiles exp to a hierarchy. A dimension converts to its
// default hierarchy.
func (c *Compiler) CompileHierarchy(exp types.Exp) (calc.HierarchyCalc, error) {
	x, err := c.compileStyled(exp, calc.StyleValue)
	if err != nil {
		return nil, err
	}
	switch x := x.(type) {
	case calc.HierarchyCalc:
		return x, nil
	case calc.DimensionCalc:
		return defaultHierarchy(x), nil
	}
	return nil, mismatch(exp, types.CategoryHierarchy)
}

// CompileDimension compiles exp to a dimension.
func (c *Compiler) CompileDimension(exp types.Exp) (calc.DimensionCalc, error) {
	x, err := c.compileStyled(exp, calc.StyleValue)
	if err != nil {
		return nil, err
	}
	switch x := x.(type) {
	case calc.DimensionCalc:
		return x, nil
	case calc.HierarchyCalc:
		return calc.NewDimension(wrap("HierarchyDimension", &types.DimensionType{}, x),
			func(ev *evaluator.Evaluator) (*olap.Dimension, error) {
				h, err := x.EvaluateHierarchy(ev)
				if err != nil || h == nil {
					return nil, err
				}
				return h.Dimension, nil
			}), nil
	}
	return nil, mismatch(exp, types.CategoryDimension)
}
