package evaluator

import (
	"fmt"

	"github.com/sandrolain/gomdx/pkg/olap"
	"github.com/sandrolain/gomdx/pkg/types"
)

type changeKind uint8

const (
	changeMember changeKind = iota
	changeNonEmpty
	changeEvalAxes
)

// change records the state a mutation replaced.
type change struct {
	kind   changeKind
	ord    int
	member *olap.Member
	flag   bool
}

// Savepoint returns a token that Restore uses to undo every mutation made
// after this call. Tokens must be restored in LIFO order.
func (e *Evaluator) Savepoint() int {
	return len(e.journal)
}

// Restore undoes all context changes made since the savepoint. Restoring a
// token that is no longer valid means a savepoint was restored out of order
// and panics with an internal error.
func (e *Evaluator) Restore(token int) {
	if token < 0 || token > len(e.journal) {
		panic(types.Errorf(types.ErrInternal,
			"restore of savepoint %d, journal holds %d changes", token, len(e.journal)))
	}
	for i := len(e.journal) - 1; i >= token; i-- {
		c := e.journal[i]
		switch c.kind {
		case changeMember:
			e.current[c.ord] = c.member
		case changeNonEmpty:
			e.nonEmpty = c.flag
		case changeEvalAxes:
			e.evalAxes = c.flag
		}
		e.journal[i] = change{}
	}
	e.journal = e.journal[:token]
}

// Scoped runs fn and restores the context on every exit path.
func (e *Evaluator) Scoped(fn func() error) error {
	defer e.Restore(e.Savepoint())
	return fn()
}

// SetContext makes m the current member of its hierarchy and returns the
// member it replaced. A nil member is ignored.
func (e *Evaluator) SetContext(m *olap.Member) *olap.Member {
	if m == nil {
		return nil
	}
	ord := m.Hierarchy().Ordinal
	prev := e.current[ord]
	if prev != m {
		e.journal = append(e.journal, change{kind: changeMember, ord: ord, member: prev})
		e.current[ord] = m
	}
	return prev
}

// SetContextTuple sets the context for every member of t.
func (e *Evaluator) SetContextTuple(t olap.Tuple) {
	for _, m := range t {
		e.SetContext(m)
	}
}

// SetNonEmpty sets the non-empty flag.
func (e *Evaluator) SetNonEmpty(v bool) {
	if e.nonEmpty != v {
		e.journal = append(e.journal, change{kind: changeNonEmpty, flag: e.nonEmpty})
		e.nonEmpty = v
	}
}

// SetEvalAxes sets the eval-axes flag.
func (e *Evaluator) SetEvalAxes(v bool) {
	if e.evalAxes != v {
		e.journal = append(e.journal, change{kind: changeEvalAxes, flag: e.evalAxes})
		e.evalAxes = v
	}
}

// NonEmpty reports whether empty cells are suppressed.
func (e *Evaluator) NonEmpty() bool { return e.nonEmpty }

// EvalAxes reports whether axes are being evaluated.
func (e *Evaluator) EvalAxes() bool { return e.evalAxes }

// CurrentMember returns the current member of h.
func (e *Evaluator) CurrentMember(h *olap.Hierarchy) *olap.Member {
	return e.current[h.Ordinal]
}

// Coordinate returns a copy of the current coordinate, indexed by hierarchy
// ordinal.
func (e *Evaluator) Coordinate() []*olap.Member {
	out := make([]*olap.Member, len(e.current))
	copy(out, e.current)
	return out
}

// State is a comparable snapshot of the ambient coordinate and flags.
type State struct {
	Coordinate string
	NonEmpty   bool
	EvalAxes   bool
}

// Snapshot captures the current state.
func (e *Evaluator) Snapshot() State {
	return State{
		Coordinate: olap.Tuple(e.current).Key(),
		NonEmpty:   e.nonEmpty,
		EvalAxes:   e.evalAxes,
	}
}

func (s State) String() string {
	return fmt.Sprintf("State{%q, nonEmpty=%t, evalAxes=%t}", s.Coordinate, s.NonEmpty, s.EvalAxes)
}
