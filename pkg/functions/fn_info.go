package functions

import (
	"github.com/sandrolain/gomdx/pkg/calc"
	"github.com/sandrolain/gomdx/pkg/evaluator"
	"github.com/sandrolain/gomdx/pkg/olap"
	"github.com/sandrolain/gomdx/pkg/types"
)

func infoFunctions() []Resolver {
	var rs []Resolver
	rs = append(rs, NewDef("Level", "Returns a member's level.", "plm", compileMemberLevel))
	rs = append(rs, NewDefs("Hierarchy", "Returns the hierarchy that contains a specified member or level.",
		[]string{"phm", "phl"}, compileObjectHierarchy)...)
	rs = append(rs, NewDefs("Dimension", "Returns the dimension that contains a specified member, level or hierarchy.",
		[]string{"pdm", "pdl", "pdh"}, compileObjectDimension)...)
	rs = append(rs, NewDefs("Name", "Returns the name of a dimension, hierarchy, level or member.",
		[]string{"psm", "psl", "psh", "psd"}, compileNaming(false))...)
	rs = append(rs, NewDefs("UniqueName", "Returns the unique name of a dimension, hierarchy, level or member.",
		[]string{"psm", "psl", "psh", "psd"}, compileNaming(true))...)
	rs = append(rs, NewDef("Ordinal", "Returns the zero-based ordinal value associated with a level.",
		"pil", compileOrdinal))
	rs = append(rs, NewDef("IsLeaf", "Returns whether a specified member is a leaf member.",
		"fbm", compileIsLeaf))
	rs = append(rs, NewDefs("Value", "Returns the value of the cell at a member or tuple.",
		[]string{"pvm", "pvt"}, compileValue)...)
	return rs
}

func compileMemberLevel(call *ResolvedCall, c Compiler) (calc.Calc, error) {
	if mt, ok := call.Args[0].Type().(*types.MemberType); ok && mt.Member != nil {
		return calc.ConstLevel(mt.Member.Level), nil
	}
	mc, err := c.CompileMember(call.Args[0])
	if err != nil {
		return nil, err
	}
	return calc.NewLevel(calc.Spec{Name: call.Name(), Type: call.Type(), Children: []calc.Calc{mc}},
		func(ev *evaluator.Evaluator) (*olap.Level, error) {
			m, err := mc.EvaluateMember(ev)
			if err != nil || m == nil {
				return nil, err
			}
			return m.Level, nil
		}), nil
}

// compileObjectHierarchy returns the hierarchy of a member or level.
func compileObjectHierarchy(call *ResolvedCall, c Compiler) (calc.Calc, error) {
	if h := call.Args[0].Type().Hierarchy(); h != nil {
		return calc.ConstHierarchy(h), nil
	}
	object, err := c.Compile(call.Args[0])
	if err != nil {
		return nil, err
	}
	return calc.NewHierarchy(calc.Spec{Name: call.Name(), Type: call.Type(), Children: []calc.Calc{object}},
		func(ev *evaluator.Evaluator) (*olap.Hierarchy, error) {
			v, err := object.Evaluate(ev)
			if err != nil {
				return nil, err
			}
			return hierarchyOf(v), nil
		}), nil
}

func compileObjectDimension(call *ResolvedCall, c Compiler) (calc.Calc, error) {
	if h := call.Args[0].Type().Hierarchy(); h != nil {
		return calc.ConstDimension(h.Dimension), nil
	}
	object, err := c.Compile(call.Args[0])
	if err != nil {
		return nil, err
	}
	return calc.NewDimension(calc.Spec{Name: call.Name(), Type: call.Type(), Children: []calc.Calc{object}},
		func(ev *evaluator.Evaluator) (*olap.Dimension, error) {
			v, err := object.Evaluate(ev)
			if err != nil {
				return nil, err
			}
			if h := hierarchyOf(v); h != nil {
				return h.Dimension, nil
			}
			return nil, nil
		}), nil
}

func hierarchyOf(v any) *olap.Hierarchy {
	switch x := v.(type) {
	case *olap.Member:
		if x != nil {
			return x.Hierarchy()
		}
	case *olap.Level:
		if x != nil {
			return x.Hierarchy
		}
	case *olap.Hierarchy:
		return x
	}
	return nil
}

func compileNaming(unique bool) CompileFunc {
	return func(call *ResolvedCall, c Compiler) (calc.Calc, error) {
		object, err := c.Compile(call.Args[0])
		if err != nil {
			return nil, err
		}
		return calc.NewString(calc.Spec{Name: call.Name(), Type: types.String, Children: []calc.Calc{object}},
			func(ev *evaluator.Evaluator) (string, error) {
				v, err := object.Evaluate(ev)
				if err != nil {
					return "", err
				}
				return nameOf(v, unique), nil
			}), nil
	}
}

func nameOf(v any, unique bool) string {
	pick := func(name, uniqueName string) string {
		if unique {
			return uniqueName
		}
		return name
	}
	switch x := v.(type) {
	case *olap.Member:
		if x != nil {
			return pick(x.Name, x.UniqueName)
		}
	case *olap.Level:
		if x != nil {
			return pick(x.Name, x.UniqueName)
		}
	case *olap.Hierarchy:
		if x != nil {
			return pick(x.Name, x.UniqueName)
		}
	case *olap.Dimension:
		if x != nil {
			return pick(x.Name, x.UniqueName)
		}
	}
	return ""
}

func compileOrdinal(call *ResolvedCall, c Compiler) (calc.Calc, error) {
	lc, err := c.CompileLevel(call.Args[0])
	if err != nil {
		return nil, err
	}
	return calc.NewInteger(calc.Spec{Name: call.Name(), Type: types.Integer, Children: []calc.Calc{lc}},
		func(ev *evaluator.Evaluator) (int, error) {
			l, err := lc.EvaluateLevel(ev)
			if err != nil || l == nil {
				return 0, err
			}
			return l.Depth, nil
		}), nil
}

func compileIsLeaf(call *ResolvedCall, c Compiler) (calc.Calc, error) {
	mc, err := c.CompileMember(call.Args[0])
	if err != nil {
		return nil, err
	}
	return calc.NewBoolean(calc.Spec{Name: call.Name(), Type: types.Logical, Children: []calc.Calc{mc}},
		func(ev *evaluator.Evaluator) (bool, error) {
			m, err := mc.EvaluateMember(ev)
			if err != nil || m == nil {
				return false, err
			}
			return !ev.Reader().IsDrillable(m), nil
		}), nil
}

func compileValue(call *ResolvedCall, c Compiler) (calc.Calc, error) {
	if call.Args[0].Type().Category() == types.CategoryMember {
		mc, err := c.CompileMember(call.Args[0])
		if err != nil {
			return nil, err
		}
		return calc.ValueAtMember(mc), nil
	}
	tc, err := c.CompileTuple(call.Args[0])
	if err != nil {
		return nil, err
	}
	return calc.ValueAtTuple(tc), nil
}
