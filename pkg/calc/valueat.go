package calc

import (
	"github.com/sandrolain/gomdx/pkg/evaluator"
	"github.com/sandrolain/gomdx/pkg/olap"
	"github.com/sandrolain/gomdx/pkg/types"
)

// ValueAt returns the DependsOn rule of a calc that reads the cell at a
// position of type t: it depends on the position calc and on every
// hierarchy t is not definitely bound to.
func ValueAt(t types.Type, position Calc) func(*olap.Hierarchy) bool {
	return func(h *olap.Hierarchy) bool {
		if position != nil && position.DependsOn(h) {
			return true
		}
		return !t.UsesHierarchy(h, true)
	}
}

// ValueAtMember compiles to the value of the cell at the current
// coordinate with the member of mc substituted. A null member yields null.
func ValueAtMember(mc MemberCalc) Calc {
	return NewScalar(Spec{
		Name:      "MemberValue",
		Type:      types.Value,
		Children:  []Calc{mc},
		DependsOn: ValueAt(mc.Type(), mc),
	}, func(ev *evaluator.Evaluator) (any, error) {
		m, err := mc.EvaluateMember(ev)
		if err != nil || m == nil {
			return nil, err
		}
		tok := ev.Savepoint()
		defer ev.Restore(tok)
		ev.SetContext(m)
		return ev.EvaluateCurrent()
	})
}

// ValueAtTuple is ValueAtMember for a tuple position.
func ValueAtTuple(tc TupleCalc) Calc {
	return NewScalar(Spec{
		Name:      "TupleValue",
		Type:      types.Value,
		Children:  []Calc{tc},
		DependsOn: ValueAt(tc.Type(), tc),
	}, func(ev *evaluator.Evaluator) (any, error) {
		t, err := tc.EvaluateTuple(ev)
		if err != nil || t.IsNull() {
			return nil, err
		}
		tok := ev.Savepoint()
		defer ev.Restore(tok)
		ev.SetContextTuple(t)
		return ev.EvaluateCurrent()
	})
}
