// Package compiler turns expression trees into calc trees.
//
// Compilation runs in two passes. Validate resolves every function call
// against the catalog and computes static types. Compilation then asks
// each resolved definition for a calc, and definitions call back into the
// compiler to get their operands in the shape they need (number, string,
// member, list, iterable...). Implicit conversions between shapes are
// applied here.
//
// # Example
//
//	c := compiler.New(cube, functions.Builtin())
//	exp := types.Fn("Sum", types.Prop("Children", types.MemberOf(all)))
//	root, err := c.CompileExpression(exp, calc.StyleValue)
package compiler

import (
	"log/slog"

	"github.com/sandrolain/gomdx/pkg/calc"
	"github.com/sandrolain/gomdx/pkg/functions"
	"github.com/sandrolain/gomdx/pkg/metrics"
	"github.com/sandrolain/gomdx/pkg/olap"
	"github.com/sandrolain/gomdx/pkg/types"
)

// Compiler compiles expressions against one cube. It is not safe for
// concurrent use; create one per compilation.
type Compiler struct {
	cube    *olap.Cube
	catalog *functions.Catalog
	opts    Options
	logger  *slog.Logger
	styles  []calc.ResultStyle
}

// Options configures a compiler.
type Options struct {
	// Debug enables debug logging of resolutions and compiled trees.
	Debug bool
	// Logger for structured logging.
	Logger *slog.Logger
}

// Option configures compiler behavior.
type Option func(*Options)

// WithDebug enables or disables debug logging.
func WithDebug(enabled bool) Option {
	return func(opts *Options) {
		opts.Debug = enabled
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(opts *Options) {
		opts.Logger = logger
	}
}

// New creates a compiler for cube. A nil catalog means the built-in one.
func New(cube *olap.Cube, catalog *functions.Catalog, opts ...Option) *Compiler {
	var options Options
	for _, opt := range opts {
		opt(&options)
	}
	if options.Logger == nil {
		options.Logger = slog.Default()
	}
	if catalog == nil {
		catalog = functions.Builtin()
	}
	return &Compiler{
		cube:    cube,
		catalog: catalog,
		opts:    options,
		logger:  options.Logger,
	}
}

var _ functions.Compiler = (*Compiler)(nil)

// Cube returns the cube expressions are compiled against.
func (c *Compiler) Cube() *olap.Cube { return c.cube }

// Logger returns the logger.
func (c *Compiler) Logger() *slog.Logger { return c.logger }

// ResultStyle returns the style requested of the expression being compiled.
func (c *Compiler) ResultStyle() calc.ResultStyle {
	if len(c.styles) == 0 {
		return calc.StyleValue
	}
	return c.styles[len(c.styles)-1]
}

// CompileExpression validates exp and compiles it in the given style. Sets
// are compiled to lists unless an iterable is requested; members and tuples
// compile to the value of the cell they identify.
func (c *Compiler) CompileExpression(exp types.Exp, style calc.ResultStyle) (calc.Calc, error) {
	root, err := c.compileExpression(exp, style)
	if err != nil {
		metrics.CompilationsTotal.WithLabelValues("error").Inc()
		return nil, err
	}
	metrics.CompilationsTotal.WithLabelValues("ok").Inc()
	if c.opts.Debug {
		c.logger.Debug("compiled expression", "expression", exp.String(), "calc", calc.Describe(root))
	}
	return root, nil
}

func (c *Compiler) compileExpression(exp types.Exp, style calc.ResultStyle) (calc.Calc, error) {
	v, err := c.Validate(exp)
	if err != nil {
		return nil, err
	}
	switch style {
	case calc.StyleList:
		return c.CompileList(v, false)
	case calc.StyleMutableList:
		return c.CompileList(v, true)
	case calc.StyleIterable:
		return c.CompileIter(v)
	}
	switch v.Type().Category() {
	case types.CategorySet:
		return c.CompileList(v, false)
	case types.CategoryMember, types.CategoryTuple:
		return c.CompileScalar(v)
	}
	return c.Compile(v)
}

// Compile compiles exp into the shape its definition produces, keeping the
// style requested of the enclosing expression.
func (c *Compiler) Compile(exp types.Exp) (calc.Calc, error) {
	switch e := exp.(type) {
	case *functions.ResolvedCall:
		out, err := e.Def.Compile(e, c)
		if err != nil {
			return nil, atPosition(withFunction(err, e.Name()), e.Position)
		}
		return out, nil
	case *types.Call:
		v, err := c.Validate(e)
		if err != nil {
			return nil, err
		}
		return c.Compile(v)
	case *types.Literal:
		return compileLiteral(e), nil
	case *types.MemberExpr:
		return calc.ConstMember(e.Member), nil
	case *types.LevelExpr:
		return calc.ConstLevel(e.Level), nil
	case *types.HierarchyExpr:
		return calc.ConstHierarchy(e.Hierarchy), nil
	case *types.DimensionExpr:
		return calc.ConstDimension(e.Dimension), nil
	case nil:
		return nil, types.NewError(types.ErrInternal, "nil expression")
	}
	return nil, types.Errorf(types.ErrInternal, "cannot compile expression of type %T", exp)
}

func compileLiteral(l *types.Literal) calc.Calc {
	switch l.Type().Category() {
	case types.CategoryInteger:
		return calc.ConstInteger(int(l.Value.(float64)))
	case types.CategoryNumeric:
		return calc.ConstDouble(l.Value.(float64))
	case types.CategoryString:
		return calc.ConstString(l.Value.(string))
	case types.CategoryLogical:
		return calc.ConstBoolean(l.Value.(bool))
	}
	return calc.ConstScalar(l.Type(), l.Value)
}

// compileStyled compiles exp with style requested.
func (c *Compiler) compileStyled(exp types.Exp, style calc.ResultStyle) (calc.Calc, error) {
	c.styles = append(c.styles, style)
	defer func() { c.styles = c.styles[:len(c.styles)-1] }()
	return c.Compile(exp)
}
