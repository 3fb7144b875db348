package olap

import (
	"fmt"
	"strings"
)

// Tuple is an ordered combination of members on distinct hierarchies.
type Tuple []*Member

// IsNull reports whether any member of the tuple is the null member.
func (t Tuple) IsNull() bool {
	for _, m := range t {
		if m == nil {
			return true
		}
	}
	return len(t) == 0
}

// Equal reports whether two tuples contain the same members.
func (t Tuple) Equal(o Tuple) bool {
	if len(t) != len(o) {
		return false
	}
	for i := range t {
		if t[i] != o[i] {
			return false
		}
	}
	return true
}

// Key returns a string usable as a map key for the tuple.
func (t Tuple) Key() string {
	switch len(t) {
	case 0:
		return ""
	case 1:
		return t[0].String()
	}
	var b strings.Builder
	for i, m := range t {
		if i > 0 {
			b.WriteByte('\x00')
		}
		b.WriteString(m.String())
	}
	return b.String()
}

func (t Tuple) String() string {
	parts := make([]string, len(t))
	for i, m := range t {
		parts[i] = m.String()
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

// TupleCursor walks a TupleIterable once.
type TupleCursor interface {
	Next() bool
	Current() Tuple
	Err() error
}

// TupleIterable is a single-pass producer of same-arity tuples.
type TupleIterable interface {
	Arity() int
	Cursor() TupleCursor
}

// TupleList is a materialized, mutable list of same-arity tuples. All tuples
// of a list place members of the same hierarchy at each column.
type TupleList struct {
	arity  int
	tuples []Tuple
}

// NewTupleList creates an empty list of the given arity.
func NewTupleList(arity int, capacity ...int) *TupleList {
	l := &TupleList{arity: arity}
	if len(capacity) > 0 && capacity[0] > 0 {
		l.tuples = make([]Tuple, 0, capacity[0])
	}
	return l
}

// NewMemberList wraps members as a list of arity 1.
func NewMemberList(members []*Member) *TupleList {
	l := NewTupleList(1, len(members))
	for _, m := range members {
		l.tuples = append(l.tuples, Tuple{m})
	}
	return l
}

// Arity returns the number of members per tuple.
func (l *TupleList) Arity() int { return l.arity }

// Len returns the number of tuples.
func (l *TupleList) Len() int { return len(l.tuples) }

// Get returns the i-th tuple.
func (l *TupleList) Get(i int) Tuple { return l.tuples[i] }

// Tuples exposes the backing slice.
func (l *TupleList) Tuples() []Tuple { return l.tuples }

// Accepts reports whether t has the list's arity and places members of the
// list's hierarchies at each column.
func (l *TupleList) Accepts(t Tuple) bool {
	if len(t) != l.arity {
		return false
	}
	if len(l.tuples) > 0 {
		first := l.tuples[0]
		for i, m := range t {
			if m != nil && first[i] != nil && m.Hierarchy() != first[i].Hierarchy() {
				return false
			}
		}
	}
	return true
}

// Append adds a tuple. It panics when the tuple breaks the arity or column
// hierarchy invariant; both indicate a programming error in the caller.
func (l *TupleList) Append(t Tuple) {
	if !l.Accepts(t) {
		panic(fmt.Sprintf("olap: tuple %v does not fit a list of arity %d starting with %v", t, l.arity, l.first()))
	}
	l.tuples = append(l.tuples, t)
}

func (l *TupleList) first() Tuple {
	if len(l.tuples) == 0 {
		return nil
	}
	return l.tuples[0]
}

// AppendAll appends every tuple of o.
func (l *TupleList) AppendAll(o *TupleList) {
	for _, t := range o.tuples {
		l.Append(t)
	}
}

// Clone returns a shallow copy whose backing slice can be mutated freely.
func (l *TupleList) Clone() *TupleList {
	c := &TupleList{arity: l.arity, tuples: make([]Tuple, len(l.tuples))}
	copy(c.tuples, l.tuples)
	return c
}

// Slice returns the tuples in [from, to) as a new list.
func (l *TupleList) Slice(from, to int) *TupleList {
	c := &TupleList{arity: l.arity, tuples: make([]Tuple, to-from)}
	copy(c.tuples, l.tuples[from:to])
	return c
}

// Members returns the first column.
func (l *TupleList) Members() []*Member {
	return l.Column(0)
}

// Column returns the members at column i, one per tuple.
func (l *TupleList) Column(i int) []*Member {
	out := make([]*Member, len(l.tuples))
	for j, t := range l.tuples {
		out[j] = t[i]
	}
	return out
}

// Set replaces the tuples of the list.
func (l *TupleList) Set(tuples []Tuple) { l.tuples = tuples }

// Cursor implements TupleIterable.
func (l *TupleList) Cursor() TupleCursor {
	return &listCursor{list: l, i: -1}
}

// Materialize drains an iterable into a list. A *TupleList is returned as is.
func Materialize(it TupleIterable) (*TupleList, error) {
	if l, ok := it.(*TupleList); ok {
		return l, nil
	}
	l := NewTupleList(it.Arity())
	c := it.Cursor()
	for c.Next() {
		l.tuples = append(l.tuples, c.Current())
	}
	if err := c.Err(); err != nil {
		return nil, err
	}
	return l, nil
}

type listCursor struct {
	list *TupleList
	i    int
}

func (c *listCursor) Next() bool {
	c.i++
	return c.i < len(c.list.tuples)
}

func (c *listCursor) Current() Tuple { return c.list.tuples[c.i] }

func (c *listCursor) Err() error { return nil }

// FuncIterable adapts a generator closure to TupleIterable. Each call of
// Cursor starts a fresh generator.
type FuncIterable struct {
	N    int
	Open func() func() (Tuple, bool, error)
}

func (f *FuncIterable) Arity() int { return f.N }

func (f *FuncIterable) Cursor() TupleCursor {
	return &funcCursor{next: f.Open()}
}

type funcCursor struct {
	next func() (Tuple, bool, error)
	cur  Tuple
	err  error
	done bool
}

func (c *funcCursor) Next() bool {
	if c.done {
		return false
	}
	t, ok, err := c.next()
	if err != nil {
		c.err = err
		c.done = true
		return false
	}
	if !ok {
		c.done = true
		return false
	}
	c.cur = t
	return true
}

func (c *funcCursor) Current() Tuple { return c.cur }

func (c *funcCursor) Err() error { return c.err }

// CrossProduct builds the cross product of per-column member sets.
func CrossProduct(columns [][]*Member) *TupleList {
	n := 1
	for _, col := range columns {
		n *= len(col)
	}
	out := NewTupleList(len(columns), n)
	if n == 0 {
		return out
	}
	idx := make([]int, len(columns))
	for {
		t := make(Tuple, len(columns))
		for i, col := range columns {
			t[i] = col[idx[i]]
		}
		out.tuples = append(out.tuples, t)
		i := len(columns) - 1
		for ; i >= 0; i-- {
			idx[i]++
			if idx[i] < len(columns[i]) {
				break
			}
			idx[i] = 0
		}
		if i < 0 {
			return out
		}
	}
}
