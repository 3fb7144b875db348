package types

import (
	"math"
	"strconv"
	"strings"

	"github.com/sandrolain/gomdx/pkg/olap"
)

// Exp is a node of an expression tree. Trees arrive from an upstream parser
// or are built directly with the constructors in this file.
type Exp interface {
	Type() Type
	String() string
}

// Syntax is the syntactic form in which a function is invoked.
type Syntax int

const (
	SyntaxFunction    Syntax = iota // Name(args)
	SyntaxMethod                    // arg0.Name(args)
	SyntaxProperty                  // arg0.Name
	SyntaxInfix                     // arg0 Name arg1
	SyntaxPrefix                    // Name arg0
	SyntaxPostfix                   // arg0 Name
	SyntaxBraces                    // {args}
	SyntaxParentheses               // (args)
)

var syntaxNames = [...]string{"Function", "Method", "Property", "Infix", "Prefix", "Postfix", "Braces", "Parentheses"}

func (s Syntax) String() string {
	if int(s) < len(syntaxNames) {
		return syntaxNames[s]
	}
	return "Syntax(" + strconv.Itoa(int(s)) + ")"
}

// Format renders a call of name with already rendered arguments.
func (s Syntax) Format(name string, args []string) string {
	switch s {
	case SyntaxMethod:
		if len(args) == 0 {
			return "<?>." + name + "()"
		}
		return args[0] + "." + name + "(" + strings.Join(args[1:], ", ") + ")"
	case SyntaxProperty:
		if len(args) == 0 {
			return "<?>." + name
		}
		return args[0] + "." + name
	case SyntaxInfix:
		if len(args) != 2 {
			return name + "(" + strings.Join(args, ", ") + ")"
		}
		return args[0] + " " + name + " " + args[1]
	case SyntaxPrefix:
		sep := " "
		if name == "-" {
			sep = ""
		}
		return name + sep + strings.Join(args, " ")
	case SyntaxPostfix:
		return strings.Join(args, " ") + " " + name
	case SyntaxBraces:
		return "{" + strings.Join(args, ", ") + "}"
	case SyntaxParentheses:
		return "(" + strings.Join(args, ", ") + ")"
	}
	return name + "(" + strings.Join(args, ", ") + ")"
}

// Literal is a constant scalar or symbol.
type Literal struct {
	Value any
	typ   Type
}

// NewNumber returns a numeric literal; whole numbers get the Integer type.
func NewNumber(v float64) *Literal {
	if v == math.Trunc(v) && !math.IsInf(v, 0) {
		return &Literal{Value: v, typ: Integer}
	}
	return &Literal{Value: v, typ: Numeric}
}

// NewString returns a string literal.
func NewString(s string) *Literal { return &Literal{Value: s, typ: String} }

// NewBool returns a logical literal.
func NewBool(b bool) *Literal { return &Literal{Value: b, typ: Logical} }

// NewSymbol returns a symbol literal such as a Descendants flag.
func NewSymbol(s string) *Literal { return &Literal{Value: strings.ToUpper(s), typ: Symbol} }

// NullLiteral is the null value.
var NullLiteral = &Literal{typ: Null}

// EmptyLiteral stands for an omitted argument.
var EmptyLiteral = &Literal{typ: Empty}

func (l *Literal) Type() Type { return l.typ }

func (l *Literal) String() string {
	switch v := l.Value.(type) {
	case nil:
		if l.typ == Empty {
			return ""
		}
		return "NULL"
	case float64:
		return strconv.FormatFloat(v, 'g', -1, 64)
	case string:
		if l.typ == Symbol {
			return v
		}
		return strconv.Quote(v)
	case bool:
		if v {
			return "TRUE"
		}
		return "FALSE"
	}
	return "?"
}

// MemberExpr references a specific member.
type MemberExpr struct{ Member *olap.Member }

func (e *MemberExpr) Type() Type     { return NewMemberType(nil, nil, e.Member) }
func (e *MemberExpr) String() string { return e.Member.UniqueName }

// LevelExpr references a level.
type LevelExpr struct{ Level *olap.Level }

func (e *LevelExpr) Type() Type     { return NewLevelType(nil, e.Level) }
func (e *LevelExpr) String() string { return e.Level.UniqueName }

// HierarchyExpr references a hierarchy.
type HierarchyExpr struct{ Hierarchy *olap.Hierarchy }

func (e *HierarchyExpr) Type() Type     { return NewHierarchyType(e.Hierarchy) }
func (e *HierarchyExpr) String() string { return e.Hierarchy.UniqueName }

// DimensionExpr references a dimension.
type DimensionExpr struct{ Dimension *olap.Dimension }

func (e *DimensionExpr) Type() Type     { return &DimensionType{Dimension: e.Dimension} }
func (e *DimensionExpr) String() string { return e.Dimension.UniqueName }

// Call is an unresolved function invocation. Validation replaces it with a
// resolved call bound to one function definition.
type Call struct {
	Name     string
	Syntax   Syntax
	Args     []Exp
	Position int
}

// Type is unknown until the call is resolved.
func (c *Call) Type() Type { return Unknown }

func (c *Call) String() string {
	return c.Syntax.Format(c.Name, ExpStrings(c.Args))
}

// ExpStrings renders each expression.
func ExpStrings(exps []Exp) []string {
	out := make([]string, len(exps))
	for i, e := range exps {
		out[i] = e.String()
	}
	return out
}

// Builders for hand-written trees.

func MemberOf(m *olap.Member) Exp       { return &MemberExpr{Member: m} }
func LevelOf(l *olap.Level) Exp         { return &LevelExpr{Level: l} }
func HierarchyOf(h *olap.Hierarchy) Exp { return &HierarchyExpr{Hierarchy: h} }
func DimensionOf(d *olap.Dimension) Exp { return &DimensionExpr{Dimension: d} }

func Fn(name string, args ...Exp) *Call {
	return &Call{Name: name, Syntax: SyntaxFunction, Args: args, Position: -1}
}

func Method(name string, obj Exp, args ...Exp) *Call {
	return &Call{Name: name, Syntax: SyntaxMethod, Args: append([]Exp{obj}, args...), Position: -1}
}

func Prop(name string, obj Exp) *Call {
	return &Call{Name: name, Syntax: SyntaxProperty, Args: []Exp{obj}, Position: -1}
}

func Infix(op string, a, b Exp) *Call {
	return &Call{Name: op, Syntax: SyntaxInfix, Args: []Exp{a, b}, Position: -1}
}

func Prefix(op string, a Exp) *Call {
	return &Call{Name: op, Syntax: SyntaxPrefix, Args: []Exp{a}, Position: -1}
}

func Postfix(op string, a Exp) *Call {
	return &Call{Name: op, Syntax: SyntaxPostfix, Args: []Exp{a}, Position: -1}
}

func Braces(args ...Exp) *Call {
	return &Call{Name: "{}", Syntax: SyntaxBraces, Args: args, Position: -1}
}

func Parens(args ...Exp) *Call {
	return &Call{Name: "()", Syntax: SyntaxParentheses, Args: args, Position: -1}
}
