// Package evaluator implements the evaluation context that compiled
// expressions run against.
//
// An Evaluator holds the ambient coordinate (one current member per
// hierarchy), the non-empty and eval-axes flags, and a journal of changes
// that savepoints roll back. It is single-threaded: one Evaluator belongs to
// one evaluation at a time.
//
// # Example
//
//	ev := evaluator.New(ctx, cube, reader, evaluator.WithCellReader(cells))
//	defer ev.Restore(ev.Savepoint())
//	ev.SetContext(member)
//	v, err := ev.EvaluateCurrent()
package evaluator

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/sandrolain/gomdx/pkg/olap"
	"github.com/sandrolain/gomdx/pkg/types"
)

// Evaluable is a compiled expression that yields the value of a calculated
// member.
type Evaluable interface {
	Evaluate(ev *Evaluator) (any, error)
}

// Evaluator is the mutable evaluation state of one query execution.
type Evaluator struct {
	ctx     context.Context
	cube    *olap.Cube
	reader  olap.SchemaReader
	opts    EvalOptions
	logger  *slog.Logger
	measure int // ordinal of the measures hierarchy, -1 if none

	current  []*olap.Member
	nonEmpty bool
	evalAxes bool
	journal  []change
	depth    int
	pending  []*Deferred
}

// EvalOptions configures evaluator behavior.
type EvalOptions struct {
	// Cells supplies stored cell values and aggregations.
	Cells olap.CellReader
	// Dialect reports backing store capabilities. Nil means limited.
	Dialect olap.Dialect
	// MaxConstraints bounds the predicate entries of one aggregation.
	MaxConstraints int
	// MaxDepth limits nested calculated member expansion.
	MaxDepth int
	// CalculatedMembers maps formula members to their compiled formulas.
	CalculatedMembers map[*olap.Member]Evaluable
	// Slicer members override the default coordinate.
	Slicer []*olap.Member
	// Deferred makes distinct-count aggregations return *Deferred values
	// instead of resolving them immediately.
	Deferred bool
	// Debug enables debug logging.
	Debug bool
	// Logger for structured logging.
	Logger *slog.Logger
}

// EvalOption configures evaluation behavior.
type EvalOption func(*EvalOptions)

// New creates an evaluator positioned on the default member of every
// hierarchy of cube, then on the slicer members.
func New(ctx context.Context, cube *olap.Cube, reader olap.SchemaReader, opts ...EvalOption) *Evaluator {
	options := EvalOptions{
		MaxConstraints: 1000,
		MaxDepth:       1000,
	}
	for _, opt := range opts {
		opt(&options)
	}
	if options.Logger == nil {
		options.Logger = slog.Default()
	}
	if ctx == nil {
		ctx = context.Background()
	}

	hs := cube.Hierarchies()
	ev := &Evaluator{
		ctx:     ctx,
		cube:    cube,
		reader:  reader,
		opts:    options,
		logger:  options.Logger,
		measure: -1,
		current: make([]*olap.Member, len(hs)),
	}
	for i, h := range hs {
		ev.current[i] = defaultMember(h)
	}
	if mh := cube.MeasuresHierarchy(); mh != nil {
		ev.measure = mh.Ordinal
	}
	for _, m := range options.Slicer {
		if m != nil {
			ev.current[m.Hierarchy().Ordinal] = m
		}
	}
	return ev
}

func defaultMember(h *olap.Hierarchy) *olap.Member {
	switch {
	case h.DefaultMember != nil:
		return h.DefaultMember
	case h.AllMember != nil:
		return h.AllMember
	}
	return nil
}

// WithCellReader sets the cell reader.
func WithCellReader(cells olap.CellReader) EvalOption {
	return func(opts *EvalOptions) {
		opts.Cells = cells
	}
}

// WithDialect sets the dialect.
func WithDialect(d olap.Dialect) EvalOption {
	return func(opts *EvalOptions) {
		opts.Dialect = d
	}
}

// WithMaxConstraints sets the aggregation predicate limit.
func WithMaxConstraints(n int) EvalOption {
	return func(opts *EvalOptions) {
		opts.MaxConstraints = n
	}
}

// WithMaxDepth sets the maximum calculated member nesting.
func WithMaxDepth(depth int) EvalOption {
	return func(opts *EvalOptions) {
		opts.MaxDepth = depth
	}
}

// WithCalculatedMembers registers compiled formulas.
func WithCalculatedMembers(calcs map[*olap.Member]Evaluable) EvalOption {
	return func(opts *EvalOptions) {
		opts.CalculatedMembers = calcs
	}
}

// WithSlicer sets the slicer members.
func WithSlicer(members ...*olap.Member) EvalOption {
	return func(opts *EvalOptions) {
		opts.Slicer = append(opts.Slicer, members...)
	}
}

// WithDeferred enables or disables deferred distinct-count aggregation.
func WithDeferred(enabled bool) EvalOption {
	return func(opts *EvalOptions) {
		opts.Deferred = enabled
	}
}

// WithDebug enables or disables debug logging.
func WithDebug(enabled bool) EvalOption {
	return func(opts *EvalOptions) {
		opts.Debug = enabled
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) EvalOption {
	return func(opts *EvalOptions) {
		opts.Logger = logger
	}
}

// Context returns the context supplied at construction.
func (e *Evaluator) Context() context.Context { return e.ctx }

// Cube returns the cube being evaluated.
func (e *Evaluator) Cube() *olap.Cube { return e.cube }

// Reader returns the schema reader.
func (e *Evaluator) Reader() olap.SchemaReader { return e.reader }

// Cells returns the cell reader, possibly nil.
func (e *Evaluator) Cells() olap.CellReader { return e.opts.Cells }

// Logger returns the logger.
func (e *Evaluator) Logger() *slog.Logger { return e.logger }

// MaxConstraints returns the aggregation predicate limit.
func (e *Evaluator) MaxConstraints() int { return e.opts.MaxConstraints }

// DeferAggregations reports whether distinct-count aggregations are handed
// back as *Deferred values.
func (e *Evaluator) DeferAggregations() bool { return e.opts.Deferred }

// SupportsUnlimitedValueList reports the dialect capability.
func (e *Evaluator) SupportsUnlimitedValueList() bool {
	return e.opts.Dialect != nil && e.opts.Dialect.SupportsUnlimitedValueList()
}

// Err returns a cancellation error once the context is done. Compiled
// expressions call it inside per-tuple loops.
func (e *Evaluator) Err() error {
	if err := e.ctx.Err(); err != nil {
		return types.NewError(types.ErrCanceled, "evaluation canceled").WithCause(err)
	}
	return nil
}

// Measure returns the current measure, or nil when the cube has none.
func (e *Evaluator) Measure() *olap.Member {
	if e.measure < 0 {
		return nil
	}
	return e.current[e.measure]
}

// Property returns a property of the current measure. AGGREGATION_TYPE
// yields the measure's aggregator.
func (e *Evaluator) Property(name string) (any, bool) {
	m := e.Measure()
	if m == nil {
		return nil, false
	}
	return m.Property(name)
}

// EvaluateCurrent returns the value of the cell at the current coordinate.
// When the coordinate contains calculated members, the one with the highest
// solve order is expanded; otherwise the cell reader is asked.
func (e *Evaluator) EvaluateCurrent() (any, error) {
	if err := e.Err(); err != nil {
		return nil, err
	}
	var calc *olap.Member
	for _, m := range e.current {
		if m == nil {
			return nil, nil
		}
		if m.IsCalculated() && (calc == nil || m.SolveOrder > calc.SolveOrder) {
			calc = m
		}
	}
	if calc != nil {
		return e.expand(calc)
	}
	if e.opts.Cells == nil {
		return nil, types.NewError(types.ErrInternal, "no cell reader in evaluation context")
	}
	return e.opts.Cells.Cell(e.ctx, e.Coordinate())
}

func (e *Evaluator) expand(m *olap.Member) (any, error) {
	formula, ok := e.opts.CalculatedMembers[m]
	if !ok {
		return nil, types.Errorf(types.ErrInternal, "calculated member %s has no compiled formula", m)
	}
	if e.opts.MaxDepth > 0 && e.depth >= e.opts.MaxDepth {
		return nil, types.Errorf(types.ErrRecursionLimit,
			"calculated member %s exceeded maximum nesting depth %d", m, e.opts.MaxDepth)
	}
	if e.opts.Debug {
		e.logger.Debug("expanding calculated member", "member", m.UniqueName, "depth", e.depth)
	}
	e.depth++
	defer func() { e.depth-- }()
	return formula.Evaluate(e)
}

// PushAggregation captures the current coordinate and measure together with
// list as a deferred aggregation. The deferred is also recorded so that a
// batching layer can resolve all pending aggregations at once.
func (e *Evaluator) PushAggregation(list *olap.TupleList) *Deferred {
	d := &Deferred{
		cells: e.opts.Cells,
		req: olap.AggregationRequest{
			Measure:    e.Measure(),
			Coordinate: e.Coordinate(),
			Tuples:     list,
		},
	}
	e.pending = append(e.pending, d)
	return d
}

// Pending returns the deferred aggregations pushed so far that are still
// unresolved.
func (e *Evaluator) Pending() []*Deferred {
	out := make([]*Deferred, 0, len(e.pending))
	for _, d := range e.pending {
		if !d.Resolved() {
			out = append(out, d)
		}
	}
	return out
}

func (e *Evaluator) String() string {
	return fmt.Sprintf("Evaluator{cube=%s, journal=%d, nonEmpty=%t, evalAxes=%t}",
		e.cube.Name, len(e.journal), e.nonEmpty, e.evalAxes)
}
