package functions

import (
	"errors"
	"log/slog"
	"strings"

	"github.com/sandrolain/gomdx/pkg/calc"
	"github.com/sandrolain/gomdx/pkg/olap"
	"github.com/sandrolain/gomdx/pkg/types"
)

// FunDef is a function definition bound to one signature.
type FunDef interface {
	Name() string
	Description() string
	Signature() Signature
	// ResultType computes the static type of a call with these arguments.
	ResultType(args []types.Exp) (types.Type, error)
	// Compile builds the calc for a validated call.
	Compile(call *ResolvedCall, c Compiler) (calc.Calc, error)
}

// Resolver selects or synthesizes a FunDef for actual argument types.
type Resolver interface {
	Name() string
	Syntax() types.Syntax
	Description() string
	// Resolve returns the definition matching args and its conversion cost.
	Resolve(args []types.Exp) (def FunDef, cost int, ok bool)
	// Signatures lists the signatures the resolver can produce.
	Signatures() []string
	// ReservedWords lists flag tokens the resolver introduces.
	ReservedWords() []string
}

// Compiler is the callback surface a FunDef uses to compile its operands
// into the shapes it needs.
type Compiler interface {
	Cube() *olap.Cube
	Logger() *slog.Logger
	// ResultStyle is the style requested of the call being compiled.
	ResultStyle() calc.ResultStyle
	Compile(exp types.Exp) (calc.Calc, error)
	CompileDouble(exp types.Exp) (calc.DoubleCalc, error)
	CompileInteger(exp types.Exp) (calc.IntegerCalc, error)
	CompileString(exp types.Exp) (calc.StringCalc, error)
	CompileBoolean(exp types.Exp) (calc.BooleanCalc, error)
	CompileScalar(exp types.Exp) (calc.Calc, error)
	CompileMember(exp types.Exp) (calc.MemberCalc, error)
	CompileTuple(exp types.Exp) (calc.TupleCalc, error)
	CompileList(exp types.Exp, mutable bool) (calc.ListCalc, error)
	CompileIter(exp types.Exp) (calc.IterCalc, error)
	CompileLevel(exp types.Exp) (calc.LevelCalc, error)
	CompileHierarchy(exp types.Exp) (calc.HierarchyCalc, error)
	CompileDimension(exp types.Exp) (calc.DimensionCalc, error)
}

// CompileFunc compiles a validated call.
type CompileFunc func(call *ResolvedCall, c Compiler) (calc.Calc, error)

// ResultTypeFunc computes the type of a call.
type ResultTypeFunc func(args []types.Exp) (types.Type, error)

// Def is a FunDef with a fixed signature. It is its own Resolver.
type Def struct {
	name       string
	desc       string
	sig        Signature
	reserved   []string
	resultType ResultTypeFunc
	compile    CompileFunc
}

// DefOption customizes a Def.
type DefOption func(*Def)

// WithResultType overrides the default result type rule.
func WithResultType(fn ResultTypeFunc) DefOption {
	return func(d *Def) { d.resultType = fn }
}

// WithReserved declares flag words accepted by the definition.
func WithReserved(words ...string) DefOption {
	return func(d *Def) { d.reserved = append(d.reserved, words...) }
}

// NewDef builds a definition from a flag-encoded signature.
func NewDef(name, desc, flags string, compile CompileFunc, opts ...DefOption) *Def {
	d := &Def{name: name, desc: desc, sig: MustSignature(flags), compile: compile}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// NewDefs builds one definition per signature, sharing the implementation.
func NewDefs(name, desc string, flags []string, compile CompileFunc, opts ...DefOption) []Resolver {
	out := make([]Resolver, len(flags))
	for i, f := range flags {
		out[i] = NewDef(name, desc, f, compile, opts...)
	}
	return out
}

func (d *Def) Name() string            { return d.name }
func (d *Def) Description() string     { return d.desc }
func (d *Def) Signature() Signature    { return d.sig }
func (d *Def) Syntax() types.Syntax    { return d.sig.Syntax }
func (d *Def) ReservedWords() []string { return d.reserved }
func (d *Def) Signatures() []string    { return []string{d.sig.Format(d.name)} }

func (d *Def) Resolve(args []types.Exp) (FunDef, int, bool) {
	cost, ok := d.sig.Match(args)
	if !ok {
		return nil, 0, false
	}
	return d, cost, true
}

func (d *Def) ResultType(args []types.Exp) (types.Type, error) {
	if d.resultType != nil {
		return d.resultType(args)
	}
	return DefaultResultType(d.sig.Return, args), nil
}

func (d *Def) Compile(call *ResolvedCall, c Compiler) (calc.Calc, error) {
	return d.compile(call, c)
}

// DefaultResultType derives a result type from the return category, binding
// dimensional results to the hierarchy of the first argument.
func DefaultResultType(ret types.Category, args []types.Exp) types.Type {
	var first types.Type
	if len(args) > 0 {
		first = args[0].Type()
	}
	var hier *olap.Hierarchy
	if first != nil {
		hier = first.Hierarchy()
	}
	switch ret {
	case types.CategoryNumeric:
		return types.Numeric
	case types.CategoryInteger:
		return types.Integer
	case types.CategoryString:
		return types.String
	case types.CategoryLogical:
		return types.Logical
	case types.CategoryDateTime:
		return types.DateTime
	case types.CategorySymbol:
		return types.Symbol
	case types.CategoryMember:
		return types.NewMemberType(hier, nil, nil)
	case types.CategoryLevel:
		return types.NewLevelType(hier, nil)
	case types.CategoryHierarchy:
		return types.NewHierarchyType(hier)
	case types.CategoryDimension:
		if hier != nil {
			return &types.DimensionType{Dimension: hier.Dimension}
		}
		return &types.DimensionType{}
	case types.CategoryTuple:
		if tt, ok := first.(*types.TupleType); ok {
			return tt
		}
		return &types.TupleType{}
	case types.CategorySet:
		if st, ok := first.(*types.SetType); ok {
			return st
		}
		if cols := types.ElementTypesOf(first); cols != nil {
			return types.SetOf(widen(cols))
		}
		return types.UnknownSet
	}
	return types.Value
}

// widen drops member and level bindings, keeping each column's hierarchy.
func widen(cols []*types.MemberType) []*types.MemberType {
	out := make([]*types.MemberType, len(cols))
	for i, col := range cols {
		if col.Hier == nil && col.Dimension != nil {
			out[i] = &types.MemberType{Dimension: col.Dimension}
			continue
		}
		out[i] = types.NewMemberType(col.Hier, nil, nil)
	}
	return out
}

// Generative synthesizes a definition from the actual argument types.
type Generative struct {
	name     string
	syntax   types.Syntax
	desc     string
	sigs     []string
	reserved []string
	resolve  func(args []types.Exp) (FunDef, int, bool)
}

// NewGenerative builds a generative resolver. sigs lists the signature
// shapes for documentation.
func NewGenerative(name string, syntax types.Syntax, desc string, sigs []string,
	resolve func(args []types.Exp) (FunDef, int, bool)) *Generative {
	return &Generative{name: name, syntax: syntax, desc: desc, sigs: sigs, resolve: resolve}
}

func (g *Generative) Name() string            { return g.name }
func (g *Generative) Syntax() types.Syntax    { return g.syntax }
func (g *Generative) Description() string     { return g.desc }
func (g *Generative) Signatures() []string    { return g.sigs }
func (g *Generative) ReservedWords() []string { return g.reserved }

func (g *Generative) Resolve(args []types.Exp) (FunDef, int, bool) {
	return g.resolve(args)
}

// ResolvedCall is a call bound to one definition.
type ResolvedCall struct {
	Def      FunDef
	Args     []types.Exp
	Position int
	typ      types.Type
}

// NewResolvedCall binds args to def with result type typ.
func NewResolvedCall(def FunDef, args []types.Exp, typ types.Type) *ResolvedCall {
	return &ResolvedCall{Def: def, Args: args, Position: -1, typ: typ}
}

func (c *ResolvedCall) Type() types.Type { return c.typ }

func (c *ResolvedCall) String() string {
	return c.Def.Signature().Syntax.Format(c.Def.Name(), types.ExpStrings(c.Args))
}

// Name returns the function name.
func (c *ResolvedCall) Name() string { return c.Def.Name() }

// Arg returns the i-th argument, or nil.
func (c *ResolvedCall) Arg(i int) types.Exp {
	if i < len(c.Args) {
		return c.Args[i]
	}
	return nil
}

// SymbolArg returns the value of a symbol argument, or "" when absent.
func (c *ResolvedCall) SymbolArg(i int) string {
	if l, ok := c.Arg(i).(*types.Literal); ok && l.Type().Category() == types.CategorySymbol {
		return strings.ToUpper(l.Value.(string))
	}
	return ""
}

// Errorf builds an error tagged with the call's function.
func (c *ResolvedCall) Errorf(code types.ErrorCode, format string, args ...any) *types.Error {
	return types.Errorf(code, format, args...).WithFunction(c.Def.Name()).WithPosition(c.Position)
}

// withFunction tags an engine error raised while evaluating the call with
// the function name and position, unless it already names a function.
func (c *ResolvedCall) withFunction(err error) error {
	var e *types.Error
	if errors.As(err, &e) && e.Function == "" {
		e.Function = c.Def.Name()
		if e.Position < 0 {
			e.Position = c.Position
		}
	}
	return err
}

// Reserving declares flag words accepted by the synthesized definitions.
func (g *Generative) Reserving(words ...string) *Generative {
	g.reserved = append(g.reserved, words...)
	return g
}
