package calc

import (
	"github.com/sandrolain/gomdx/pkg/evaluator"
	"github.com/sandrolain/gomdx/pkg/olap"
	"github.com/sandrolain/gomdx/pkg/types"
)

// Constant calcs have no children and depend on no hierarchy.

func constSpec(t types.Type) Spec {
	return Spec{Name: "Literal", Type: t, DependsOn: Never}
}

// ConstDouble returns a numeric constant.
func ConstDouble(v float64) DoubleCalc {
	return NewDouble(constSpec(types.Numeric), func(*evaluator.Evaluator) (float64, bool, error) {
		return v, true, nil
	})
}

// ConstNullDouble returns the null number.
func ConstNullDouble() DoubleCalc {
	return NewDouble(constSpec(types.Null), func(*evaluator.Evaluator) (float64, bool, error) {
		return 0, false, nil
	})
}

// ConstInteger returns an integer constant.
func ConstInteger(v int) IntegerCalc {
	return NewInteger(constSpec(types.Integer), func(*evaluator.Evaluator) (int, error) {
		return v, nil
	})
}

// ConstString returns a string constant.
func ConstString(s string) StringCalc {
	return NewString(constSpec(types.String), func(*evaluator.Evaluator) (string, error) {
		return s, nil
	})
}

// ConstBoolean returns a logical constant.
func ConstBoolean(b bool) BooleanCalc {
	return NewBoolean(constSpec(types.Logical), func(*evaluator.Evaluator) (bool, error) {
		return b, nil
	})
}

// ConstScalar returns a constant of type t.
func ConstScalar(t types.Type, v any) Calc {
	return NewScalar(constSpec(t), func(*evaluator.Evaluator) (any, error) {
		return v, nil
	})
}

// ConstMember returns a member constant.
func ConstMember(m *olap.Member) MemberCalc {
	return NewMember(constSpec(types.NewMemberType(nil, nil, m)), func(*evaluator.Evaluator) (*olap.Member, error) {
		return m, nil
	})
}

// ConstLevel returns a level constant.
func ConstLevel(l *olap.Level) LevelCalc {
	return NewLevel(constSpec(types.NewLevelType(nil, l)), func(*evaluator.Evaluator) (*olap.Level, error) {
		return l, nil
	})
}

// ConstHierarchy returns a hierarchy constant.
func ConstHierarchy(h *olap.Hierarchy) HierarchyCalc {
	return NewHierarchy(constSpec(types.NewHierarchyType(h)), func(*evaluator.Evaluator) (*olap.Hierarchy, error) {
		return h, nil
	})
}

// ConstDimension returns a dimension constant.
func ConstDimension(d *olap.Dimension) DimensionCalc {
	return NewDimension(constSpec(&types.DimensionType{Dimension: d}), func(*evaluator.Evaluator) (*olap.Dimension, error) {
		return d, nil
	})
}

// IsConstant reports whether c is a zero-child node that depends on no
// hierarchy of cube.
func IsConstant(c Calc, cube *olap.Cube) bool {
	if len(c.Children()) > 0 {
		return false
	}
	for _, h := range cube.Hierarchies() {
		if c.DependsOn(h) {
			return false
		}
	}
	return true
}
