package evaluator_test

import (
	"context"
	"errors"
	"testing"

	"github.com/sandrolain/gomdx/pkg/aggregate"
	"github.com/sandrolain/gomdx/pkg/evaluator"
	"github.com/sandrolain/gomdx/pkg/memcube"
	"github.com/sandrolain/gomdx/pkg/olap"
	"github.com/sandrolain/gomdx/pkg/types"
)

type formula func(ev *evaluator.Evaluator) (any, error)

func (f formula) Evaluate(ev *evaluator.Evaluator) (any, error) { return f(ev) }

func newSales(t *testing.T, opts ...evaluator.EvalOption) (*memcube.Store, *evaluator.Evaluator) {
	t.Helper()
	s := memcube.Sales()
	opts = append([]evaluator.EvalOption{evaluator.WithCellReader(s)}, opts...)
	return s, evaluator.New(context.Background(), s.Cube, s.Reader(), opts...)
}

func TestNewUsesDefaultMembers(t *testing.T) {
	s, ev := newSales(t)
	tests := []struct {
		hierarchy string
		want      string
	}{
		{"[Measures]", "[Measures].[Unit Sales]"},
		{"[Gender]", "[Gender].[All Gender]"},
		{"[Time]", "[Time].[1997]"},
	}
	for _, tt := range tests {
		t.Run(tt.hierarchy, func(t *testing.T) {
			got := ev.CurrentMember(s.Cube.LookupHierarchy(tt.hierarchy))
			if got.UniqueName != tt.want {
				t.Fatalf("CurrentMember() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestSlicerOverridesDefaults(t *testing.T) {
	s := memcube.Sales()
	f := s.Lookup("[Gender].[All Gender].[F]")
	ev := evaluator.New(context.Background(), s.Cube, s.Reader(), evaluator.WithSlicer(f))
	if got := ev.CurrentMember(f.Hierarchy()); got != f {
		t.Fatalf("CurrentMember() = %s, want %s", got, f)
	}
}

func TestSavepointRestoresState(t *testing.T) {
	s, ev := newSales(t)
	before := ev.Snapshot()

	token := ev.Savepoint()
	ev.SetContext(s.Lookup("[Gender].[All Gender].[F]"))
	ev.SetContext(s.Lookup("[Store].[All Store].[USA]"))
	ev.SetNonEmpty(true)
	inner := ev.Savepoint()
	ev.SetEvalAxes(true)
	ev.SetContext(s.Lookup("[Gender].[All Gender].[M]"))
	ev.Restore(inner)

	if got := ev.CurrentMember(s.Cube.LookupHierarchy("[Gender]")).Name; got != "F" {
		t.Fatalf("inner restore left gender %s", got)
	}
	if ev.EvalAxes() || !ev.NonEmpty() {
		t.Fatal("inner restore did not restore flags")
	}

	ev.Restore(token)
	if after := ev.Snapshot(); after != before {
		t.Fatalf("Restore() left %v, want %v", after, before)
	}
}

func TestRestoreOutOfOrderPanics(t *testing.T) {
	s, ev := newSales(t)
	outer := ev.Savepoint()
	ev.SetContext(s.Lookup("[Gender].[All Gender].[F]"))
	inner := ev.Savepoint()
	ev.Restore(outer)

	defer func() {
		r := recover()
		err, ok := r.(error)
		if !ok || types.CodeOf(err) != types.ErrInternal {
			t.Fatalf("expected an internal error panic, got %v", r)
		}
	}()
	ev.Restore(inner)
}

func TestScopedRestoresOnError(t *testing.T) {
	s, ev := newSales(t)
	before := ev.Snapshot()
	boom := errors.New("boom")
	err := ev.Scoped(func() error {
		ev.SetContext(s.Lookup("[Store].[All Store].[Canada]"))
		ev.SetNonEmpty(true)
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("Scoped() = %v, want %v", err, boom)
	}
	if ev.Snapshot() != before {
		t.Fatal("Scoped() did not restore the context")
	}
}

func TestEvaluateCurrentReadsCells(t *testing.T) {
	s, ev := newSales(t)
	ev.SetContext(s.Lookup("[Gender].[All Gender].[F]"))
	ev.SetContext(s.Lookup("[Store].[All Store].[USA].[CA].[Los Angeles]"))
	ev.SetContext(s.Lookup("[Time].[1997].[Q1]"))
	v, err := ev.EvaluateCurrent()
	if err != nil {
		t.Fatal(err)
	}
	if v != 10.0 {
		t.Fatalf("EvaluateCurrent() = %v, want 10", v)
	}
}

func TestEvaluateCurrentWithoutCells(t *testing.T) {
	s := memcube.Sales()
	ev := evaluator.New(context.Background(), s.Cube, s.Reader())
	if _, err := ev.EvaluateCurrent(); types.CodeOf(err) != types.ErrInternal {
		t.Fatalf("expected %s, got %v", types.ErrInternal, err)
	}
}

func TestCalculatedMembers(t *testing.T) {
	b := memcube.NewBuilder("Calc")
	units := b.Measure("Units", aggregate.Sum)
	gender := b.Hierarchy("Gender", true, "Gender")
	f := b.Path(gender, "F")
	double := b.Calculated(nil, nil, "Double", 0)
	loop := b.Calculated(nil, nil, "Loop", 0)
	share := b.Calculated(gender, nil, "Share", 10)
	s := b.Build()
	s.AddFact(map[*olap.Member]float64{units: 21}, f)

	formulas := map[*olap.Member]evaluator.Evaluable{
		double: formula(func(ev *evaluator.Evaluator) (any, error) {
			defer ev.Restore(ev.Savepoint())
			ev.SetContext(units)
			v, err := ev.EvaluateCurrent()
			if err != nil || v == nil {
				return v, err
			}
			return v.(float64) * 2, nil
		}),
		loop: formula(func(ev *evaluator.Evaluator) (any, error) {
			return ev.EvaluateCurrent()
		}),
		share: formula(func(ev *evaluator.Evaluator) (any, error) {
			return ev.Measure().Name, nil
		}),
	}
	newEv := func() *evaluator.Evaluator {
		return evaluator.New(context.Background(), s.Cube, s.Reader(),
			evaluator.WithCellReader(s),
			evaluator.WithCalculatedMembers(formulas),
			evaluator.WithMaxDepth(8))
	}

	t.Run("expands formula", func(t *testing.T) {
		ev := newEv()
		ev.SetContext(double)
		v, err := ev.EvaluateCurrent()
		if err != nil || v != 42.0 {
			t.Fatalf("EvaluateCurrent() = %v, %v, want 42", v, err)
		}
	})
	t.Run("highest solve order wins", func(t *testing.T) {
		ev := newEv()
		ev.SetContext(double)
		ev.SetContext(share)
		v, err := ev.EvaluateCurrent()
		if err != nil || v != "Double" {
			t.Fatalf("EvaluateCurrent() = %v, %v, want Double", v, err)
		}
	})
	t.Run("recursion limit", func(t *testing.T) {
		ev := newEv()
		ev.SetContext(loop)
		_, err := ev.EvaluateCurrent()
		if types.CodeOf(err) != types.ErrRecursionLimit {
			t.Fatalf("expected %s, got %v", types.ErrRecursionLimit, err)
		}
	})
}

func TestErrReportsCancellation(t *testing.T) {
	s := memcube.Sales()
	ctx, cancel := context.WithCancel(context.Background())
	ev := evaluator.New(ctx, s.Cube, s.Reader(), evaluator.WithCellReader(s))
	if err := ev.Err(); err != nil {
		t.Fatalf("Err() = %v before cancel", err)
	}
	cancel()
	err := ev.Err()
	if types.CodeOf(err) != types.ErrCanceled || !errors.Is(err, context.Canceled) {
		t.Fatalf("Err() = %v, want %s wrapping context.Canceled", err, types.ErrCanceled)
	}
	if _, err := ev.EvaluateCurrent(); types.CodeOf(err) != types.ErrCanceled {
		t.Fatalf("EvaluateCurrent() = %v, want %s", err, types.ErrCanceled)
	}
}

func TestPushAggregation(t *testing.T) {
	s, ev := newSales(t)
	ev.SetContext(s.Lookup(memcube.CustomerCount))
	states, _ := s.Reader().MemberChildren(context.Background(), s.Lookup("[Store].[All Store].[USA]"))
	d := ev.PushAggregation(olap.NewMemberList(states))

	if got := ev.Pending(); len(got) != 1 || got[0] != d {
		t.Fatalf("Pending() = %v", got)
	}
	if d.Request().Measure.UniqueName != memcube.CustomerCount {
		t.Fatalf("request measure = %s", d.Request().Measure)
	}
	v, err := d.Resolve(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if v == nil || !d.Resolved() || len(ev.Pending()) != 0 {
		t.Fatalf("Resolve() = %v, pending %d", v, len(ev.Pending()))
	}
	if got := len(s.Requests()); got != 1 {
		t.Fatalf("cell reader saw %d requests, want 1", got)
	}
	again, _ := d.Resolve(context.Background())
	if again != v || len(s.Requests()) != 1 {
		t.Fatal("Resolve() must run the aggregation once")
	}
}

func TestDeferredFill(t *testing.T) {
	s, ev := newSales(t)
	d := ev.PushAggregation(olap.NewMemberList([]*olap.Member{s.Lookup("[Gender].[All Gender].[F]")}))
	d.Fill(7.0, nil)
	if v, err := d.Resolve(context.Background()); v != 7.0 || err != nil {
		t.Fatalf("Resolve() after Fill = %v, %v", v, err)
	}
	if len(s.Requests()) != 0 {
		t.Fatal("a filled deferred must not reach the cell reader")
	}
}
