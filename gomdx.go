// Package gomdx compiles and evaluates multidimensional expressions over
// OLAP cubes.
//
// Expressions are trees of function calls (see pkg/types) over members,
// levels, hierarchies and literals. Compilation resolves every call
// against the function catalog and produces a calc tree; evaluation runs
// the tree against a schema reader and a cell reader at a coordinate.
//
// # Quick Start
//
//	engine, err := gomdx.New()
//	defer engine.Close()
//
//	store := memcube.Sales()
//	usa := store.Lookup("[Store].[All Store].[USA]")
//	exp := types.Fn("Sum", types.Prop("Children", types.MemberOf(usa)))
//
//	x, err := engine.Compile(store.Cube, exp)
//	v, err := x.Evaluate(ctx, gomdx.Session{Reader: store.Reader(), Cells: store})
//
// # More Information
//
//   - Types and errors: github.com/sandrolain/gomdx/pkg/types
//   - Function catalog: github.com/sandrolain/gomdx/pkg/functions
//   - Compiler: github.com/sandrolain/gomdx/pkg/compiler
//   - Evaluator: github.com/sandrolain/gomdx/pkg/evaluator
package gomdx

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/panjf2000/ants/v2"

	"github.com/sandrolain/gomdx/pkg/cache"
	"github.com/sandrolain/gomdx/pkg/calc"
	"github.com/sandrolain/gomdx/pkg/compiler"
	"github.com/sandrolain/gomdx/pkg/config"
	"github.com/sandrolain/gomdx/pkg/evaluator"
	"github.com/sandrolain/gomdx/pkg/functions"
	"github.com/sandrolain/gomdx/pkg/olap"
	"github.com/sandrolain/gomdx/pkg/types"
)

// Version returns the current version of gomdx.
func Version() string {
	return "v0.1.0-dev"
}

// Engine compiles expressions and evaluates them. It is safe for
// concurrent use.
type Engine struct {
	cfg      config.Config
	opts     Options
	logger   *slog.Logger
	catalog  *functions.Catalog
	pool     *ants.Pool
	compiled *cache.Cache[string, *Expression]
}

// Options configures an engine.
type Options struct {
	// Config holds the engine settings. The zero value means
	// config.Default().
	Config *config.Config
	// Logger for structured logging.
	Logger *slog.Logger
	// Resolvers are added to the built-in functions.
	Resolvers []functions.Resolver
	// CustomFunctions are added to the built-in functions.
	CustomFunctions []functions.CustomFunctionDef
	// Debug enables debug logging of compilation and evaluation.
	Debug bool
}

// Option configures an engine.
type Option func(*Options)

// WithConfig sets the engine settings.
func WithConfig(cfg config.Config) Option {
	return func(opts *Options) {
		opts.Config = &cfg
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(opts *Options) {
		opts.Logger = logger
	}
}

// WithResolvers adds function resolvers.
func WithResolvers(rs ...functions.Resolver) Option {
	return func(opts *Options) {
		opts.Resolvers = append(opts.Resolvers, rs...)
	}
}

// WithCustomFunctions adds user-defined functions.
func WithCustomFunctions(fns ...functions.CustomFunctionDef) Option {
	return func(opts *Options) {
		opts.CustomFunctions = append(opts.CustomFunctions, fns...)
	}
}

// WithDebug enables or disables debug logging.
func WithDebug(enabled bool) Option {
	return func(opts *Options) {
		opts.Debug = enabled
	}
}

// New creates an engine. Close releases it.
func New(opts ...Option) (*Engine, error) {
	var options Options
	for _, opt := range opts {
		opt(&options)
	}
	cfg := config.Default()
	if options.Config != nil {
		cfg = *options.Config
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if options.Logger == nil {
		options.Logger = slog.Default()
	}

	resolvers := append([]functions.Resolver(nil), options.Resolvers...)
	for _, f := range options.CustomFunctions {
		r, err := f.Resolver()
		if err != nil {
			return nil, err
		}
		resolvers = append(resolvers, r)
	}
	catalog := functions.NewCatalog(
		functions.WithResolvers(resolvers...),
		functions.WithCacheSize(cfg.ResolveCacheSize),
	)

	pool, err := ants.NewPool(cfg.Workers, ants.WithPanicHandler(func(v any) {
		options.Logger.Error("grid task panic", "panic", v)
	}))
	if err != nil {
		catalog.Close()
		return nil, fmt.Errorf("failed to create worker pool: %w", err)
	}

	return &Engine{
		cfg:      cfg,
		opts:     options,
		logger:   options.Logger,
		catalog:  catalog,
		pool:     pool,
		compiled: cache.New[string, *Expression](cfg.ResolveCacheSize),
	}, nil
}

// Close releases the worker pool and the catalog.
func (e *Engine) Close() {
	_ = e.pool.ReleaseTimeout(3 * time.Second)
	e.catalog.Close()
}

// Catalog returns the engine's function catalog.
func (e *Engine) Catalog() *functions.Catalog { return e.catalog }

// Config returns the engine settings.
func (e *Engine) Config() config.Config { return e.cfg }

// CalculatedMember binds a formula to a calculated member.
type CalculatedMember struct {
	Member  *olap.Member
	Formula types.Exp
}

// Compile validates and compiles exp against cube, together with the
// formulas of the calculated members it may reach. Results are cached by
// cube and expression structure.
//
// Example:
//
//	x, err := engine.Compile(cube, types.Fn("Count", types.Prop("Children", types.MemberOf(usa))))
func (e *Engine) Compile(cube *olap.Cube, exp types.Exp, members ...CalculatedMember) (*Expression, error) {
	if exp == nil {
		return nil, types.NewError(types.ErrInternal, "nil expression")
	}
	return e.compiled.GetOrCompute(compileKey(cube, exp, members), func() (*Expression, error) {
		return e.compile(cube, exp, members)
	})
}

// compileKey renders the structure of an expression. Unlike String it
// tells apart leaves that print alike, such as a hierarchy and the
// dimension of the same name or literals of different types.
func compileKey(cube *olap.Cube, exp types.Exp, members []CalculatedMember) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%p|", cube)
	writeKey(&b, exp)
	for _, m := range members {
		fmt.Fprintf(&b, "|%p=", m.Member)
		writeKey(&b, m.Formula)
	}
	return b.String()
}

func writeKey(b *strings.Builder, exp types.Exp) {
	switch x := exp.(type) {
	case nil:
		b.WriteString("nil")
	case *types.Literal:
		fmt.Fprintf(b, "L<%s>%s", x.Type(), x)
	case *types.MemberExpr:
		fmt.Fprintf(b, "M%p", x.Member)
	case *types.LevelExpr:
		fmt.Fprintf(b, "V%p", x.Level)
	case *types.HierarchyExpr:
		fmt.Fprintf(b, "H%p", x.Hierarchy)
	case *types.DimensionExpr:
		fmt.Fprintf(b, "D%p", x.Dimension)
	case *types.Call:
		fmt.Fprintf(b, "C<%d>%q(", x.Syntax, x.Name)
		for i, a := range x.Args {
			if i > 0 {
				b.WriteByte(',')
			}
			writeKey(b, a)
		}
		b.WriteByte(')')
	default:
		fmt.Fprintf(b, "%T<%s>%s", exp, exp.Type(), exp)
	}
}

func (e *Engine) newCompiler(cube *olap.Cube) *compiler.Compiler {
	return compiler.New(cube, e.catalog,
		compiler.WithDebug(e.opts.Debug),
		compiler.WithLogger(e.logger))
}

func (e *Engine) compile(cube *olap.Cube, exp types.Exp, members []CalculatedMember) (*Expression, error) {
	c := e.newCompiler(cube)
	validated, err := c.Validate(exp)
	if err != nil {
		e.logger.Warn("expression rejected", "expression", exp.String(), "error", err)
		return nil, err
	}
	x := &Expression{
		engine:  e,
		cube:    cube,
		exp:     validated,
		members: make([]CalculatedMember, len(members)),
	}
	for i, m := range members {
		if m.Member == nil || !m.Member.IsCalculated() {
			return nil, types.Errorf(types.ErrTypeMismatch, "%s is not a calculated member", m.Member)
		}
		f, err := c.Validate(m.Formula)
		if err != nil {
			return nil, err
		}
		x.members[i] = CalculatedMember{Member: m.Member, Formula: f}
	}
	if x.tree, err = x.compileTree(c); err != nil {
		return nil, err
	}
	return x, nil
}

// MustCompile is like Compile but panics if the expression cannot be
// compiled. It simplifies safe initialization of global variables.
func (e *Engine) MustCompile(cube *olap.Cube, exp types.Exp, members ...CalculatedMember) *Expression {
	x, err := e.Compile(cube, exp, members...)
	if err != nil {
		panic(fmt.Sprintf("gomdx: Compile(%s): %v", exp, err))
	}
	return x
}

// tree is a compiled expression with its calculated member formulas.
type tree struct {
	root     calc.Calc
	formulas map[*olap.Member]evaluator.Evaluable
}
