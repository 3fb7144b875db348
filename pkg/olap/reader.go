package olap

import "context"

// RollupPolicy says how a role may aggregate over members it cannot fully see.
type RollupPolicy int

const (
	RollupFull RollupPolicy = iota
	// RollupPartial: only some children of a member are visible, so a
	// parent cannot stand in for the set of its visible children.
	RollupPartial
	RollupHidden
)

func (p RollupPolicy) String() string {
	switch p {
	case RollupFull:
		return "FULL"
	case RollupPartial:
		return "PARTIAL"
	case RollupHidden:
		return "HIDDEN"
	}
	return "UNKNOWN"
}

// HierarchyAccess describes what the current role may do on a hierarchy.
type HierarchyAccess interface {
	RollupPolicy() RollupPolicy
	CanAccess(m *Member) bool
}

// FullAccess grants everything.
type FullAccess struct{}

func (FullAccess) RollupPolicy() RollupPolicy { return RollupFull }
func (FullAccess) CanAccess(*Member) bool     { return true }

// SchemaReader gives the engine access to members. Implementations may block
// on I/O; ctx carries cancellation.
type SchemaReader interface {
	MemberChildren(ctx context.Context, m *Member) ([]*Member, error)
	// MembersChildren returns the children of all members, in order.
	MembersChildren(ctx context.Context, members []*Member) ([]*Member, error)
	// ChildrenCountFromCache returns the number of children, or -1 when the
	// count is not known without a lookup.
	ChildrenCountFromCache(m *Member) int
	MemberAncestors(ctx context.Context, m *Member) ([]*Member, error)
	HierarchyRootMembers(ctx context.Context, h *Hierarchy) ([]*Member, error)
	LevelMembers(ctx context.Context, l *Level) ([]*Member, error)
	// LeadMember returns the member offset positions after m on its level,
	// or nil when out of range.
	LeadMember(ctx context.Context, m *Member, offset int) (*Member, error)
	IsDrillable(m *Member) bool
	AccessDetails(h *Hierarchy) HierarchyAccess
}

// Dialect reports capabilities of the backing store.
type Dialect interface {
	SupportsUnlimitedValueList() bool
}

// DialectFunc adapts a constant to Dialect.
type DialectFunc func() bool

func (f DialectFunc) SupportsUnlimitedValueList() bool { return f() }

// AggregationRequest asks a cell reader for the aggregate of a measure over
// the union of tuples, within the ambient coordinate.
type AggregationRequest struct {
	Measure    *Member
	Coordinate []*Member
	Tuples     *TupleList
}

// CellReader supplies stored cell values.
type CellReader interface {
	// Cell returns the value at a full coordinate, nil for an empty cell.
	Cell(ctx context.Context, coordinate []*Member) (any, error)
	Aggregate(ctx context.Context, req AggregationRequest) (any, error)
}

// BatchCellReader resolves many aggregation requests in one round trip.
type BatchCellReader interface {
	CellReader
	AggregateBatch(ctx context.Context, reqs []AggregationRequest) ([]any, error)
}
