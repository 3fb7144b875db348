package aggregate_test

import (
	"context"
	"strings"
	"testing"

	"github.com/sandrolain/gomdx/pkg/access"
	"github.com/sandrolain/gomdx/pkg/aggregate"
	"github.com/sandrolain/gomdx/pkg/calc"
	"github.com/sandrolain/gomdx/pkg/evaluator"
	"github.com/sandrolain/gomdx/pkg/memcube"
	"github.com/sandrolain/gomdx/pkg/olap"
	"github.com/sandrolain/gomdx/pkg/types"
)

// currentValue is the value of the cell at the ambient coordinate.
var currentValue = calc.NewScalar(calc.Spec{Name: "Current", Type: types.Value},
	func(ev *evaluator.Evaluator) (any, error) { return ev.EvaluateCurrent() })

type fixture struct {
	store  *memcube.Store
	ev     *evaluator.Evaluator
	usa    *olap.Member
	states []*olap.Member
	gender []*olap.Member
}

func newFixture(t *testing.T, measure string, opts ...evaluator.EvalOption) *fixture {
	t.Helper()
	s := memcube.Sales()
	return newFixtureWith(t, s, s.Reader(), measure, opts...)
}

func newFixtureWith(t *testing.T, s *memcube.Store, reader olap.SchemaReader, measure string, opts ...evaluator.EvalOption) *fixture {
	t.Helper()
	opts = append([]evaluator.EvalOption{
		evaluator.WithCellReader(s),
		evaluator.WithSlicer(s.Lookup(measure)),
	}, opts...)
	f := &fixture{
		store: s,
		ev:    evaluator.New(context.Background(), s.Cube, reader, opts...),
		usa:   s.Lookup("[Store].[All Store].[USA]"),
	}
	var err error
	if f.states, err = s.Reader().MemberChildren(context.Background(), f.usa); err != nil {
		t.Fatal(err)
	}
	if f.gender, err = s.Reader().MemberChildren(context.Background(), s.Lookup("[Gender].[All Gender]")); err != nil {
		t.Fatal(err)
	}
	return f
}

// cellAt reads the cell at members without aggregation.
func (f *fixture) cellAt(t *testing.T, members ...*olap.Member) any {
	t.Helper()
	defer f.ev.Restore(f.ev.Savepoint())
	for _, m := range members {
		f.ev.SetContext(m)
	}
	v, err := f.ev.EvaluateCurrent()
	if err != nil {
		t.Fatal(err)
	}
	return v
}

func TestCombine(t *testing.T) {
	tests := []struct {
		name   string
		agg    *aggregate.Aggregator
		values []any
		want   any
	}{
		{"sum skips nulls", aggregate.Sum, []any{10.0, nil, 20.0}, 30.0},
		{"sum of nothing", aggregate.Sum, []any{nil}, nil},
		{"count", aggregate.Count, []any{1.0, nil, 3.0}, 2.0},
		{"min", aggregate.Min, []any{4.0, 2.0, 8.0}, 2.0},
		{"max", aggregate.Max, []any{4.0, 2.0, 8.0}, 8.0},
		{"avg", aggregate.Avg, []any{1.0, 2.0, 6.0}, 3.0},
		{"distinct count", aggregate.DistinctCount, []any{1.0, 2.0, 1.0, 3.0, 2.0}, 3.0},
		{"numeric strings", aggregate.Sum, []any{"1.5", 2.5}, 4.0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.agg.Combine(tt.values)
			if err != nil {
				t.Fatal(err)
			}
			if got != tt.want {
				t.Fatalf("Combine() = %v, want %v", got, tt.want)
			}
		})
	}
	if _, err := aggregate.Sum.Combine([]any{"abc"}); types.CodeOf(err) != types.ErrConversion {
		t.Fatalf("expected %s, got %v", types.ErrConversion, err)
	}
}

func TestLookupAndRollup(t *testing.T) {
	tests := []struct {
		name   string
		rollup *aggregate.Aggregator
	}{
		{"sum", aggregate.Sum},
		{"Count", aggregate.Sum},
		{"MIN", aggregate.Min},
		{"max", aggregate.Max},
		{"avg", nil},
		{"distinct count", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			agg, ok := aggregate.Lookup(tt.name)
			if !ok {
				t.Fatalf("Lookup(%q) failed", tt.name)
			}
			if got := agg.Rollup(); got != tt.rollup {
				t.Fatalf("Rollup() = %v, want %v", got, tt.rollup)
			}
		})
	}
	if _, ok := aggregate.Lookup("median"); ok {
		t.Fatal("median is not built in")
	}
}

func TestAggregateSumMatchesParent(t *testing.T) {
	f := newFixture(t, memcube.UnitSales)
	got, err := aggregate.Aggregate(f.ev, olap.NewMemberList(f.states), currentValue)
	if err != nil {
		t.Fatal(err)
	}
	if want := f.cellAt(t, f.usa); got != want {
		t.Fatalf("Aggregate() = %v, want %v", got, want)
	}
}

func TestAggregateRestoresContext(t *testing.T) {
	f := newFixture(t, memcube.UnitSales)
	f.ev.SetNonEmpty(true)
	before := f.ev.Snapshot()
	if _, err := aggregate.Aggregate(f.ev, olap.NewMemberList(f.states), currentValue); err != nil {
		t.Fatal(err)
	}
	if f.ev.Snapshot() != before {
		t.Fatal("Aggregate() changed the evaluation context")
	}
}

func TestAggregateWithoutAggregator(t *testing.T) {
	b := memcube.NewBuilder("NoAgg")
	units := b.Measure("Units", aggregate.Sum)
	ratio := b.Calculated(nil, nil, "Ratio", 0)
	gender := b.Hierarchy("Gender", true, "Gender")
	f := b.Path(gender, "F")
	s := b.Build()
	s.AddFact(map[*olap.Member]float64{units: 1}, f)

	ev := evaluator.New(context.Background(), s.Cube, s.Reader(),
		evaluator.WithCellReader(s), evaluator.WithSlicer(ratio))
	_, err := aggregate.Aggregate(ev, olap.NewMemberList([]*olap.Member{f}), currentValue)
	if types.CodeOf(err) != types.ErrNoAggregator {
		t.Fatalf("expected %s, got %v", types.ErrNoAggregator, err)
	}
	if !strings.Contains(err.Error(), "could not find an aggregator") {
		t.Fatalf("unexpected message %q", err)
	}
}

func TestAggregateWithoutRollup(t *testing.T) {
	f := newFixture(t, memcube.MedianSales)
	_, err := aggregate.Aggregate(f.ev, olap.NewMemberList(f.states), currentValue)
	if types.CodeOf(err) != types.ErrNoRollup {
		t.Fatalf("expected %s, got %v", types.ErrNoRollup, err)
	}
	if !strings.Contains(err.Error(), "don't know how to rollup aggregator 'median'") {
		t.Fatalf("unexpected message %q", err)
	}
}

func TestAggregateDistinctCount(t *testing.T) {
	f := newFixture(t, memcube.CustomerCount)
	list := olap.CrossProduct([][]*olap.Member{f.gender, f.states})
	got, err := aggregate.Aggregate(f.ev, list, currentValue)
	if err != nil {
		t.Fatal(err)
	}
	if want := f.cellAt(t, f.usa); got != want {
		t.Fatalf("Aggregate() = %v, want %v", got, want)
	}
	reqs := f.store.Requests()
	if len(reqs) != 1 || reqs[0].Tuples.Len() != 1 {
		t.Fatalf("expected one request over the collapsed list, got %v", reqs)
	}
}

func TestAggregateAverage(t *testing.T) {
	f := newFixture(t, memcube.AvgPrice)
	got, err := aggregate.Aggregate(f.ev, olap.NewMemberList(f.states), currentValue)
	if err != nil {
		t.Fatal(err)
	}
	if want := f.cellAt(t, f.usa); got != want {
		t.Fatalf("Aggregate() = %v, want %v", got, want)
	}
}

func TestAggregateDeferred(t *testing.T) {
	f := newFixture(t, memcube.CustomerCount, evaluator.WithDeferred(true))
	v, err := aggregate.Aggregate(f.ev, olap.NewMemberList(f.states), currentValue)
	if err != nil {
		t.Fatal(err)
	}
	d, ok := v.(*evaluator.Deferred)
	if !ok {
		t.Fatalf("Aggregate() = %T, want *evaluator.Deferred", v)
	}
	if len(f.store.Requests()) != 0 {
		t.Fatal("a deferred aggregation must not run before it is resolved")
	}
	got, err := aggregate.Value(context.Background(), d)
	if err != nil {
		t.Fatal(err)
	}
	if want := f.cellAt(t, f.usa); got != want {
		t.Fatalf("Value() = %v, want %v", got, want)
	}
}

func TestAggregateTooLarge(t *testing.T) {
	f := newFixture(t, memcube.CustomerCount,
		evaluator.WithMaxConstraints(2),
		evaluator.WithDialect(olap.DialectFunc(func() bool { return true })))
	_, err := aggregate.Aggregate(f.ev, olap.NewMemberList(f.states), currentValue)
	if types.CodeOf(err) != types.ErrAggregationTooLarge {
		t.Fatalf("expected %s, got %v", types.ErrAggregationTooLarge, err)
	}
	if err := aggregate.CheckSize(f.ev, olap.NewMemberList(f.states[:2])); err != nil {
		t.Fatalf("CheckSize() at the limit = %v", err)
	}
}

func TestOptimizeTupleList(t *testing.T) {
	f := newFixture(t, memcube.CustomerCount)
	ca := f.states[0]
	la := f.store.Lookup("[Store].[All Store].[USA].[CA].[Los Angeles]")
	sf := f.store.Lookup("[Store].[All Store].[USA].[CA].[San Francisco]")

	tests := []struct {
		name string
		list *olap.TupleList
		want []string
	}{
		{
			name: "genders by states collapse to all by country",
			list: olap.CrossProduct([][]*olap.Member{f.gender, f.states}),
			want: []string{"([Gender].[All Gender], [Store].[All Store].[USA])"},
		},
		{
			name: "cities collapse to their state",
			list: olap.NewMemberList([]*olap.Member{la, sf}),
			want: []string{"([Store].[All Store].[USA].[CA])"},
		},
		{
			name: "incomplete siblings stay",
			list: olap.NewMemberList([]*olap.Member{ca, f.states[1]}),
			want: []string{"([Store].[All Store].[USA].[CA])", "([Store].[All Store].[USA].[OR])"},
		},
		{
			name: "partially collapsing column",
			list: olap.CrossProduct([][]*olap.Member{f.gender[:1], {la, sf, f.states[1]}}),
			want: []string{
				"([Gender].[All Gender].[F], [Store].[All Store].[USA].[CA])",
				"([Gender].[All Gender].[F], [Store].[All Store].[USA].[OR])",
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := aggregate.OptimizeTupleList(f.ev, tt.list)
			if err != nil {
				t.Fatal(err)
			}
			if s := tupleStrings(got); !equal(s, tt.want) {
				t.Fatalf("OptimizeTupleList() = %v, want %v", s, tt.want)
			}
			again, err := aggregate.OptimizeTupleList(f.ev, got)
			if err != nil {
				t.Fatal(err)
			}
			if s := tupleStrings(again); !equal(s, tt.want) {
				t.Fatalf("second pass = %v, want %v", s, tt.want)
			}
		})
	}
}

func TestOptimizeTupleListKeepsNonCrossProducts(t *testing.T) {
	f := newFixture(t, memcube.CustomerCount)
	list := olap.NewTupleList(2)
	list.Append(olap.Tuple{f.gender[0], f.states[0]})
	list.Append(olap.Tuple{f.gender[1], f.states[1]})
	got, err := aggregate.OptimizeTupleList(f.ev, list)
	if err != nil {
		t.Fatal(err)
	}
	if got != list {
		t.Fatal("a list that is not a cross product must be returned unchanged")
	}
}

func TestOptimizeTupleListPartialRollup(t *testing.T) {
	s := memcube.Sales()
	storeH := s.Cube.LookupHierarchy("[Store]")
	policy, err := access.NewPolicy()
	if err != nil {
		t.Fatal(err)
	}
	if err := policy.SetRollup("analyst", storeH, olap.RollupPartial); err != nil {
		t.Fatal(err)
	}
	if err := policy.AddRole("alice", "analyst"); err != nil {
		t.Fatal(err)
	}
	f := newFixtureWith(t, s, policy.Reader(s.Reader(), "alice"), memcube.CustomerCount)

	list := olap.CrossProduct([][]*olap.Member{f.gender, f.states})
	got, err := aggregate.OptimizeTupleList(f.ev, list)
	if err != nil {
		t.Fatal(err)
	}
	if got != list {
		t.Fatal("a partial rollup policy must leave the list unchanged")
	}
}

func TestBatchResolve(t *testing.T) {
	f := newFixture(t, memcube.CustomerCount, evaluator.WithDeferred(true))
	var ds []*evaluator.Deferred
	for _, st := range f.states {
		v, err := aggregate.Aggregate(f.ev, olap.NewMemberList([]*olap.Member{st}), currentValue)
		if err != nil {
			t.Fatal(err)
		}
		ds = append(ds, v.(*evaluator.Deferred))
	}

	cells := &batchCells{Store: f.store}
	b := aggregate.NewBatch(ds...)
	if b.Len() != len(f.states) {
		t.Fatalf("Len() = %d", b.Len())
	}
	if err := b.Resolve(context.Background(), cells); err != nil {
		t.Fatal(err)
	}
	if cells.calls != 1 {
		t.Fatalf("AggregateBatch called %d times, want 1", cells.calls)
	}
	for i, d := range ds {
		got, _ := aggregate.Value(context.Background(), d)
		if want := f.cellAt(t, f.states[i]); got != want {
			t.Fatalf("state %s = %v, want %v", f.states[i].Name, got, want)
		}
	}
	if err := b.Resolve(context.Background(), cells); err != nil || cells.calls != 1 {
		t.Fatal("resolving a resolved batch must not query again")
	}
}

func TestBatchResolveOneByOne(t *testing.T) {
	f := newFixture(t, memcube.CustomerCount, evaluator.WithDeferred(true))
	v, err := aggregate.Aggregate(f.ev, olap.NewMemberList(f.states), currentValue)
	if err != nil {
		t.Fatal(err)
	}
	b := aggregate.NewBatch(f.ev.Pending()...)
	if err := b.Resolve(context.Background(), f.store); err != nil {
		t.Fatal(err)
	}
	if !v.(*evaluator.Deferred).Resolved() || len(f.store.Requests()) != 1 {
		t.Fatal("expected the deferred to be resolved through the cell reader")
	}
}

type batchCells struct {
	*memcube.Store
	calls int
}

func (b *batchCells) AggregateBatch(ctx context.Context, reqs []olap.AggregationRequest) ([]any, error) {
	b.calls++
	out := make([]any, len(reqs))
	for i, r := range reqs {
		v, err := b.Aggregate(ctx, r)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func tupleStrings(l *olap.TupleList) []string {
	out := make([]string, l.Len())
	for i, t := range l.Tuples() {
		out[i] = t.String()
	}
	return out
}

func equal(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
