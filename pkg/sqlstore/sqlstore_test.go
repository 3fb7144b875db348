package sqlstore_test

import (
	"context"
	"testing"

	"github.com/sandrolain/gomdx/pkg/memcube"
	"github.com/sandrolain/gomdx/pkg/olap"
	"github.com/sandrolain/gomdx/pkg/sqlstore"
	"github.com/sandrolain/gomdx/pkg/types"
)

func openSales(t *testing.T, opts ...sqlstore.Option) (*memcube.Store, *sqlstore.Store) {
	t.Helper()
	src := memcube.Sales()
	db, err := sqlstore.Open(context.Background(), ":memory:", src.Cube, opts...)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	if err := db.Import(context.Background(), src); err != nil {
		t.Fatal(err)
	}
	return src, db
}

func coordinate(s *memcube.Store, names ...string) []*olap.Member {
	out := make([]*olap.Member, len(s.Cube.Hierarchies()))
	for _, n := range names {
		m := s.Lookup(n)
		out[m.Hierarchy().Ordinal] = m
	}
	return out
}

var measures = []string{
	memcube.UnitSales,
	memcube.StoreSales,
	memcube.CustomerCount,
	memcube.AvgPrice,
	memcube.MedianSales,
}

func TestCellMatchesMemoryStore(t *testing.T) {
	src, db := openSales(t)
	positions := [][]string{
		{"[Gender].[All Gender]", "[Store].[All Store]", "[Time].[1997]"},
		{"[Gender].[All Gender].[F]", "[Store].[All Store].[USA].[CA]", "[Time].[1997].[Q2]"},
		{"[Gender].[All Gender].[M]", "[Store].[All Store].[Canada]", "[Time].[1998]"},
		{"[Store].[All Store].[USA].[WA].[Spokane]", "[Time].[1998].[Q4]"},
	}
	for _, measure := range measures {
		for _, pos := range positions {
			coord := coordinate(src, append([]string{measure}, pos...)...)
			want, err := src.Cell(context.Background(), coord)
			if err != nil {
				t.Fatal(err)
			}
			got, err := db.Cell(context.Background(), coord)
			if err != nil {
				t.Fatal(err)
			}
			if got != want {
				t.Fatalf("%s at %v: got %v, want %v", measure, pos, got, want)
			}
		}
	}
}

func TestAggregateMatchesMemoryStore(t *testing.T) {
	src, db := openSales(t)
	ca := src.Lookup("[Store].[All Store].[USA].[CA]")
	wa := src.Lookup("[Store].[All Store].[USA].[WA]")
	f := src.Lookup("[Gender].[All Gender].[F]")
	m := src.Lookup("[Gender].[All Gender].[M]")

	pairs := olap.NewTupleList(2)
	pairs.Append(olap.Tuple{f, ca})
	pairs.Append(olap.Tuple{m, wa})

	lists := map[string]*olap.TupleList{
		"members": olap.NewMemberList([]*olap.Member{ca, wa}),
		"tuples":  pairs,
	}
	var reqs []olap.AggregationRequest
	for name, list := range lists {
		for _, measure := range measures {
			req := olap.AggregationRequest{
				Measure:    src.Lookup(measure),
				Coordinate: coordinate(src, "[Time].[1997]"),
				Tuples:     list,
			}
			reqs = append(reqs, req)
			want, err := src.Aggregate(context.Background(), req)
			if err != nil {
				t.Fatal(err)
			}
			got, err := db.Aggregate(context.Background(), req)
			if err != nil {
				t.Fatal(err)
			}
			if got != want {
				t.Fatalf("%s over %s: got %v, want %v", measure, name, got, want)
			}
		}
	}

	batch, err := db.AggregateBatch(context.Background(), reqs)
	if err != nil {
		t.Fatal(err)
	}
	for i, req := range reqs {
		want, _ := src.Aggregate(context.Background(), req)
		if batch[i] != want {
			t.Fatalf("batch entry %d: got %v, want %v", i, batch[i], want)
		}
	}
}

func TestAggregateLimits(t *testing.T) {
	src, db := openSales(t, sqlstore.WithMaxConstraints(1))
	if db.SupportsUnlimitedValueList() {
		t.Fatal("SQLite must report a bounded value list")
	}
	states, err := src.Reader().MemberChildren(context.Background(), src.Lookup("[Store].[All Store].[USA]"))
	if err != nil {
		t.Fatal(err)
	}
	req := olap.AggregationRequest{
		Measure:    src.Lookup(memcube.UnitSales),
		Coordinate: coordinate(src, "[Time].[1997]"),
		Tuples:     olap.NewMemberList(states),
	}
	if _, err := db.Aggregate(context.Background(), req); types.CodeOf(err) != types.ErrAggregationTooLarge {
		t.Fatalf("expected %s, got %v", types.ErrAggregationTooLarge, err)
	}

	req.Tuples = olap.NewTupleList(1)
	if v, err := db.Aggregate(context.Background(), req); err != nil || v != nil {
		t.Fatalf("empty list aggregated to %v, %v", v, err)
	}
	if v, err := db.Cell(context.Background(), coordinate(src, "[Time].[1997]")); err != nil || v != nil {
		t.Fatalf("cell without a measure = %v, %v", v, err)
	}
}
