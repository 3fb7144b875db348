package gomdx

import (
	"context"

	"github.com/sandrolain/gomdx/pkg/aggregate"
	"github.com/sandrolain/gomdx/pkg/calc"
	"github.com/sandrolain/gomdx/pkg/compiler"
	"github.com/sandrolain/gomdx/pkg/evaluator"
	"github.com/sandrolain/gomdx/pkg/metrics"
	"github.com/sandrolain/gomdx/pkg/olap"
	"github.com/sandrolain/gomdx/pkg/types"
)

// Expression is a compiled expression. It is safe for concurrent use: the
// calc tree is shared and every evaluation builds its own evaluator.
type Expression struct {
	engine  *Engine
	cube    *olap.Cube
	exp     types.Exp
	members []CalculatedMember
	tree    tree
}

// Session supplies what an evaluation reads from.
type Session struct {
	Reader olap.SchemaReader
	Cells  olap.CellReader
	// Dialect describes the backing store. Nil means the engine's
	// configured dialect.
	Dialect olap.Dialect
	// Slicer members fix the coordinate on their hierarchies.
	Slicer []*olap.Member
	// Deferred leaves distinct-count aggregations unresolved:
	// Evaluate returns *evaluator.Deferred values and EvaluateGrid resolves
	// them in one batch per task.
	Deferred bool
}

func (x *Expression) String() string { return x.exp.String() }

// Type returns the static type of the expression.
func (x *Expression) Type() types.Type { return x.exp.Type() }

// Cube returns the cube the expression was compiled against.
func (x *Expression) Cube() *olap.Cube { return x.cube }

// Calc returns the compiled calc tree.
func (x *Expression) Calc() calc.Calc { return x.tree.root }

// compileTree compiles the validated expression and formulas. Validation
// is not repeated.
func (x *Expression) compileTree(c *compiler.Compiler) (tree, error) {
	root, err := c.CompileExpression(x.exp, calc.StyleValue)
	if err != nil {
		return tree{}, err
	}
	t := tree{root: root, formulas: make(map[*olap.Member]evaluator.Evaluable, len(x.members))}
	for _, m := range x.members {
		f, err := c.CompileExpression(m.Formula, calc.StyleValue)
		if err != nil {
			return tree{}, err
		}
		t.formulas[m.Member] = f
	}
	return t, nil
}

func (x *Expression) newEvaluator(ctx context.Context, s Session, t tree) *evaluator.Evaluator {
	e := x.engine
	dialect := s.Dialect
	if dialect == nil {
		dialect = e.cfg.Dialect
	}
	return evaluator.New(ctx, x.cube, s.Reader,
		evaluator.WithCellReader(s.Cells),
		evaluator.WithDialect(dialect),
		evaluator.WithMaxConstraints(e.cfg.MaxConstraints),
		evaluator.WithMaxDepth(e.cfg.MaxDepth),
		evaluator.WithCalculatedMembers(t.formulas),
		evaluator.WithSlicer(s.Slicer...),
		evaluator.WithDeferred(s.Deferred),
		evaluator.WithDebug(e.opts.Debug),
		evaluator.WithLogger(e.logger))
}

func (x *Expression) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if d := x.engine.cfg.EvalTimeout; d > 0 {
		return context.WithTimeout(ctx, d)
	}
	return context.WithCancel(ctx)
}

// Evaluate evaluates the expression at the session's coordinate.
//
// Example:
//
//	v, err := x.Evaluate(ctx, gomdx.Session{Reader: store.Reader(), Cells: store})
func (x *Expression) Evaluate(ctx context.Context, s Session) (any, error) {
	ctx, cancel := x.withTimeout(ctx)
	defer cancel()
	ev := x.newEvaluator(ctx, s, x.tree)
	v, err := x.tree.root.Evaluate(ev)
	if err == nil && !s.Deferred {
		v, err = aggregate.Value(ctx, v)
	}
	record(err)
	return v, err
}

func record(err error) {
	if err != nil {
		metrics.EvaluationsTotal.WithLabelValues("error").Inc()
		return
	}
	metrics.EvaluationsTotal.WithLabelValues("ok").Inc()
}
