package memcube

import (
	"context"
	"sync"

	"github.com/sandrolain/gomdx/pkg/aggregate"
	"github.com/sandrolain/gomdx/pkg/olap"
)

// Fact is one row of the fact table: a leaf member per hierarchy and a
// value per stored measure.
type Fact struct {
	Members []*olap.Member // indexed by hierarchy ordinal
	Values  map[*olap.Member]float64
}

// Store holds a cube, its member tree and its facts. It implements
// olap.CellReader. Facts must be added before evaluation starts.
type Store struct {
	Cube  *olap.Cube
	tree  *tree
	facts []Fact

	mu       sync.Mutex
	requests []olap.AggregationRequest
}

var _ olap.CellReader = (*Store)(nil)

// Reader returns a schema reader over the store's members.
func (s *Store) Reader() *Reader { return &Reader{tree: s.tree} }

// Lookup finds a member by unique name.
func (s *Store) Lookup(uniqueName string) *olap.Member {
	return s.tree.byName[uniqueName]
}

// AddFact records values at the coordinate formed by members. Hierarchies
// without a member match every coordinate.
func (s *Store) AddFact(values map[*olap.Member]float64, members ...*olap.Member) {
	f := Fact{Members: make([]*olap.Member, len(s.Cube.Hierarchies())), Values: values}
	for _, m := range members {
		f.Members[m.Hierarchy().Ordinal] = m
	}
	s.facts = append(s.facts, f)
}

// Facts returns the fact rows.
func (s *Store) Facts() []Fact { return s.facts }

// Cell aggregates the facts under coordinate with the measure's
// aggregator. A cell without facts is empty.
func (s *Store) Cell(ctx context.Context, coordinate []*olap.Member) (any, error) {
	return s.aggregate(ctx, coordinate, nil)
}

// Aggregate aggregates the facts that lie under at least one tuple of the
// request and under the coordinate on every other hierarchy.
func (s *Store) Aggregate(ctx context.Context, req olap.AggregationRequest) (any, error) {
	s.mu.Lock()
	s.requests = append(s.requests, req)
	s.mu.Unlock()

	coord := append([]*olap.Member(nil), req.Coordinate...)
	if req.Measure != nil {
		coord[req.Measure.Hierarchy().Ordinal] = req.Measure
	}
	return s.aggregate(ctx, coord, req.Tuples)
}

// Requests returns the aggregation requests received so far.
func (s *Store) Requests() []olap.AggregationRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]olap.AggregationRequest(nil), s.requests...)
}

func (s *Store) aggregate(ctx context.Context, coord []*olap.Member, tuples *olap.TupleList) (any, error) {
	var measure *olap.Member
	for _, m := range coord {
		if m != nil && m.IsMeasure() {
			measure = m
		}
	}
	if measure == nil {
		return nil, nil
	}
	agg := aggregate.Sum
	if v, ok := measure.Property(olap.PropertyAggregationType); ok {
		if a, ok := v.(*aggregate.Aggregator); ok && a != nil {
			agg = a
		}
	}

	overridden := map[int]bool{}
	if tuples != nil {
		for _, t := range tuples.Tuples() {
			for _, m := range t {
				overridden[m.Hierarchy().Ordinal] = true
			}
		}
	}

	var values []any
	for i, f := range s.facts {
		if i%1024 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		v, ok := f.Values[measure]
		if !ok || !s.matches(f, coord, overridden) {
			continue
		}
		if tuples != nil && !matchesAny(f, tuples) {
			continue
		}
		values = append(values, v)
	}
	if len(values) == 0 {
		return nil, nil
	}
	return agg.Combine(values)
}

func (s *Store) matches(f Fact, coord []*olap.Member, skip map[int]bool) bool {
	for i, m := range coord {
		if m == nil || m.IsMeasure() || skip[i] {
			continue
		}
		if !s.Cube.Joins(m.Dimension()) {
			continue
		}
		if fm := f.Members[i]; fm != nil && !fm.IsChildOrEqualTo(m) {
			return false
		}
	}
	return true
}

func matchesAny(f Fact, tuples *olap.TupleList) bool {
	for _, t := range tuples.Tuples() {
		ok := true
		for _, m := range t {
			if fm := f.Members[m.Hierarchy().Ordinal]; fm != nil && !fm.IsChildOrEqualTo(m) {
				ok = false
				break
			}
		}
		if ok {
			return true
		}
	}
	return false
}
