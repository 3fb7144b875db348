package gomdx_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/sandrolain/gomdx"
	"github.com/sandrolain/gomdx/pkg/aggregate"
	"github.com/sandrolain/gomdx/pkg/config"
	"github.com/sandrolain/gomdx/pkg/evaluator"
	"github.com/sandrolain/gomdx/pkg/functions"
	"github.com/sandrolain/gomdx/pkg/memcube"
	"github.com/sandrolain/gomdx/pkg/olap"
	"github.com/sandrolain/gomdx/pkg/sqlstore"
	"github.com/sandrolain/gomdx/pkg/types"
)

func newEngine(t *testing.T, opts ...gomdx.Option) *gomdx.Engine {
	t.Helper()
	e, err := gomdx.New(opts...)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(e.Close)
	return e
}

func usaChildren(s *memcube.Store) types.Exp {
	return types.Prop("Children", types.MemberOf(s.Lookup("[Store].[All Store].[USA]")))
}

func TestCompileAndEvaluate(t *testing.T) {
	e := newEngine(t)
	s := memcube.Sales()
	x, err := e.Compile(s.Cube, types.Fn("Sum", usaChildren(s)))
	if err != nil {
		t.Fatal(err)
	}
	if x.Type().Category() != types.CategoryNumeric || x.Cube() != s.Cube {
		t.Fatalf("Type() = %s", x.Type())
	}
	if x.String() != "Sum([Store].[All Store].[USA].Children)" {
		t.Fatalf("String() = %q", x.String())
	}

	tests := []struct {
		name   string
		slicer []*olap.Member
		want   any
	}{
		{"defaults", nil, 1248.0},
		{"female", []*olap.Member{s.Lookup("[Gender].[All Gender].[F]")}, 612.0},
		{"male in 1998", []*olap.Member{s.Lookup("[Gender].[All Gender].[M]"), s.Lookup("[Time].[1998]")}, 828.0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := x.Evaluate(context.Background(), gomdx.Session{Reader: s.Reader(), Cells: s, Slicer: tt.slicer})
			if err != nil {
				t.Fatal(err)
			}
			if v != tt.want {
				t.Fatalf("Evaluate() = %v, want %v", v, tt.want)
			}
		})
	}
}

func TestCompileCachesExpressions(t *testing.T) {
	e := newEngine(t)
	s := memcube.Sales()
	exp := types.Fn("Count", usaChildren(s))
	a, err := e.Compile(s.Cube, exp)
	if err != nil {
		t.Fatal(err)
	}
	b, err := e.Compile(s.Cube, types.Fn("Count", usaChildren(s)))
	if err != nil {
		t.Fatal(err)
	}
	if a != b {
		t.Fatal("equal expressions on the same cube must share a compilation")
	}
	other := memcube.Sales()
	c, err := e.Compile(other.Cube, types.Fn("Count", usaChildren(other)))
	if err != nil {
		t.Fatal(err)
	}
	if c == a {
		t.Fatal("compilations must not be shared across cubes")
	}
}

func TestCompileCacheKeepsLeafKinds(t *testing.T) {
	e := newEngine(t)
	s := memcube.Sales()
	gender := s.Cube.LookupHierarchy("[Gender]")
	byHierarchy := types.Prop("UniqueName", types.HierarchyOf(gender))
	byDimension := types.Prop("UniqueName", types.DimensionOf(gender.Dimension))
	if byHierarchy.String() != byDimension.String() {
		t.Fatalf("renderings differ: %s, %s", byHierarchy, byDimension)
	}

	a, err := e.Compile(s.Cube, byHierarchy)
	if err != nil {
		t.Fatal(err)
	}
	b, err := e.Compile(s.Cube, byDimension)
	if err != nil {
		t.Fatal(err)
	}
	if a == b {
		t.Fatal("a hierarchy and a dimension printed alike must not share a compilation")
	}
	for _, x := range []*gomdx.Expression{a, b} {
		v, err := x.Evaluate(context.Background(), gomdx.Session{Reader: s.Reader(), Cells: s})
		if err != nil || v != "[Gender]" {
			t.Fatalf("Evaluate() = %v, %v, want [Gender]", v, err)
		}
	}
}

func TestEvaluateConcurrently(t *testing.T) {
	e := newEngine(t)
	s := memcube.Sales()
	x := e.MustCompile(s.Cube, types.Fn("Sum", usaChildren(s)))
	want := map[string]float64{
		"[Gender].[All Gender].[F]": 612,
		"[Gender].[All Gender].[M]": 636,
	}

	var wg sync.WaitGroup
	errs := make(chan error, 16)
	for i := 0; i < 16; i++ {
		name := "[Gender].[All Gender].[F]"
		if i%2 == 1 {
			name = "[Gender].[All Gender].[M]"
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, err := x.Evaluate(context.Background(), gomdx.Session{
				Reader: s.Reader(),
				Cells:  s,
				Slicer: []*olap.Member{s.Lookup(name)},
			})
			if err == nil && v != want[name] {
				err = fmt.Errorf("%s: got %v, want %v", name, v, want[name])
			}
			if err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Error(err)
	}
}

func TestCompileErrors(t *testing.T) {
	e := newEngine(t)
	s := memcube.Sales()

	if _, err := e.Compile(s.Cube, nil); types.CodeOf(err) != types.ErrInternal {
		t.Fatalf("nil expression: %v", err)
	}
	if _, err := e.Compile(s.Cube, types.Fn("Nope")); types.CodeOf(err) != types.ErrUnknownFunction {
		t.Fatalf("unknown function: %v", err)
	}
	_, err := e.Compile(s.Cube, types.NewNumber(1),
		gomdx.CalculatedMember{Member: s.Lookup(memcube.UnitSales), Formula: types.NewNumber(2)})
	if types.CodeOf(err) != types.ErrTypeMismatch {
		t.Fatalf("stored measure as calculated member: %v", err)
	}

	defer func() {
		r := recover()
		if r == nil || !strings.Contains(fmt.Sprint(r), "Nope") {
			t.Fatalf("MustCompile() panic = %v", r)
		}
	}()
	e.MustCompile(s.Cube, types.Fn("Nope"))
}

func TestCalculatedMembers(t *testing.T) {
	b := memcube.NewBuilder("Tiny")
	units := b.Measure("Units", aggregate.Sum)
	gender := b.Hierarchy("Gender", true, "Gender")
	f := b.Path(gender, "F")
	m := b.Path(gender, "M")
	doubled := b.Calculated(nil, nil, "Doubled", 0)
	s := b.Build()
	s.AddFact(map[*olap.Member]float64{units: 4}, f)
	s.AddFact(map[*olap.Member]float64{units: 6}, m)

	e := newEngine(t)
	x, err := e.Compile(s.Cube, types.MemberOf(doubled), gomdx.CalculatedMember{
		Member:  doubled,
		Formula: types.Infix("*", types.MemberOf(units), types.NewNumber(2)),
	})
	if err != nil {
		t.Fatal(err)
	}
	session := gomdx.Session{Reader: s.Reader(), Cells: s}
	if v, err := x.Evaluate(context.Background(), session); err != nil || v != 20.0 {
		t.Fatalf("Evaluate() = %v, %v, want 20", v, err)
	}
	session.Slicer = []*olap.Member{m}
	if v, err := x.Evaluate(context.Background(), session); err != nil || v != 12.0 {
		t.Fatalf("Evaluate() at M = %v, %v, want 12", v, err)
	}
}

func TestEvaluateDeferred(t *testing.T) {
	s := memcube.Sales()
	db, err := sqlstore.Open(context.Background(), ":memory:", s.Cube)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	if err := db.Import(context.Background(), s); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name  string
		cells olap.CellReader
	}{
		{"memory", s},
		{"sqlite", db},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newEngine(t)
			x := e.MustCompile(s.Cube, types.Fn("Aggregate", usaChildren(s)))
			session := gomdx.Session{
				Reader: s.Reader(),
				Cells:  tt.cells,
				Slicer: []*olap.Member{s.Lookup(memcube.CustomerCount)},
			}

			want, err := x.Evaluate(context.Background(), session)
			if err != nil {
				t.Fatal(err)
			}
			session.Deferred = true
			v, err := x.Evaluate(context.Background(), session)
			if err != nil {
				t.Fatal(err)
			}
			d, ok := v.(*evaluator.Deferred)
			if !ok {
				t.Fatalf("deferred session returned %T", v)
			}
			// Evaluate has returned and its timeout context is gone; the
			// deferred resolves with the caller's context.
			if got, err := d.Resolve(context.Background()); err != nil || got != want {
				t.Fatalf("Resolve() = %v, %v, want %v", got, err, want)
			}
		})
	}
}

func TestDeferredResolveHonorsCallerContext(t *testing.T) {
	e := newEngine(t)
	s := memcube.Sales()
	x := e.MustCompile(s.Cube, types.Fn("Aggregate", usaChildren(s)))
	v, err := x.Evaluate(context.Background(), gomdx.Session{
		Reader:   s.Reader(),
		Cells:    s,
		Slicer:   []*olap.Member{s.Lookup(memcube.CustomerCount)},
		Deferred: true,
	})
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := aggregate.Value(ctx, v); !errors.Is(err, context.Canceled) {
		t.Fatalf("Value() with a canceled context = %v, want context.Canceled", err)
	}
}

func TestEvaluateGrid(t *testing.T) {
	check := functions.CustomFunctionDef{
		Name: "Check",
		Fn: func(_ context.Context, args ...any) (any, error) {
			if v, _ := args[0].(float64); v > 620 {
				return nil, fmt.Errorf("%v exceeds the limit", v)
			}
			return args[0], nil
		},
	}
	e := newEngine(t, gomdx.WithCustomFunctions(check))
	s := memcube.Sales()
	x := e.MustCompile(s.Cube, types.Fn("Check", types.Fn("Sum", usaChildren(s))))

	f := s.Lookup("[Gender].[All Gender].[F]")
	m := s.Lookup("[Gender].[All Gender].[M]")
	coords := [][]*olap.Member{{f}, {m}, {f, s.Lookup("[Time].[1998]")}, {nil}}
	cells, err := e.EvaluateGrid(context.Background(), x, gomdx.Session{Reader: s.Reader(), Cells: s}, coords)
	if err != nil {
		t.Fatal(err)
	}
	if len(cells) != len(coords) {
		t.Fatalf("got %d cells", len(cells))
	}
	if cells[0].Value != 612.0 || cells[0].Err != nil {
		t.Fatalf("cell F = %v, %v", cells[0].Value, cells[0].Err)
	}
	if types.CodeOf(cells[1].Err) != types.ErrFunctionFailed {
		t.Fatalf("cell M error = %v, want %s", cells[1].Err, types.ErrFunctionFailed)
	}
	if cells[2].Err == nil {
		t.Fatal("F in 1998 exceeds the limit")
	}
	if types.CodeOf(cells[3].Err) != types.ErrFunctionFailed {
		t.Fatalf("a nil member keeps the slicer, got %v, %v", cells[3].Value, cells[3].Err)
	}
	for i, c := range cells {
		if len(c.Coordinate) != len(coords[i]) || c.Coordinate[0] != coords[i][0] {
			t.Fatalf("cell %d lost its coordinate", i)
		}
	}

	empty, err := e.EvaluateGrid(context.Background(), x, gomdx.Session{Reader: s.Reader(), Cells: s}, nil)
	if err != nil || len(empty) != 0 {
		t.Fatalf("empty grid = %v, %v", empty, err)
	}
}

func TestEvaluateGridDeferred(t *testing.T) {
	e := newEngine(t, gomdx.WithConfig(func() config.Config {
		cfg := config.Default()
		cfg.Workers = 2
		return cfg
	}()))
	s := memcube.Sales()
	x := e.MustCompile(s.Cube, types.Fn("Aggregate", usaChildren(s)))

	var coords [][]*olap.Member
	for _, g := range []string{"[Gender].[All Gender].[F]", "[Gender].[All Gender].[M]"} {
		for _, q := range []string{"[Time].[1997].[Q1]", "[Time].[1997].[Q2]", "[Time].[1998].[Q3]"} {
			coords = append(coords, []*olap.Member{s.Lookup(g), s.Lookup(q)})
		}
	}
	session := gomdx.Session{Reader: s.Reader(), Cells: s, Slicer: []*olap.Member{s.Lookup(memcube.CustomerCount)}}
	direct, err := e.EvaluateGrid(context.Background(), x, session, coords)
	if err != nil {
		t.Fatal(err)
	}
	session.Deferred = true
	batched, err := e.EvaluateGrid(context.Background(), x, session, coords)
	if err != nil {
		t.Fatal(err)
	}
	for i := range coords {
		if direct[i].Err != nil || batched[i].Err != nil {
			t.Fatalf("cell %d: %v / %v", i, direct[i].Err, batched[i].Err)
		}
		if _, ok := batched[i].Value.(float64); !ok || batched[i].Value != direct[i].Value {
			t.Fatalf("cell %d: batched %v, direct %v", i, batched[i].Value, direct[i].Value)
		}
	}
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Workers = 0
	if _, err := gomdx.New(gomdx.WithConfig(cfg)); err == nil {
		t.Fatal("New() accepted zero workers")
	}
	bad := functions.CustomFunctionDef{Name: "Bad", Signature: "fxn"}
	if _, err := gomdx.New(gomdx.WithCustomFunctions(bad)); err == nil {
		t.Fatal("New() accepted a structural custom function")
	}
}

func TestVersion(t *testing.T) {
	if !strings.HasPrefix(gomdx.Version(), "v") {
		t.Fatalf("Version() = %q", gomdx.Version())
	}
}
