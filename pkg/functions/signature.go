package functions

import (
	"fmt"
	"strings"

	"github.com/sandrolain/gomdx/pkg/types"
)

// Signature describes the syntactic form, return category and parameter
// categories of a function definition.
type Signature struct {
	Syntax types.Syntax
	Return types.Category
	Params []types.Category
}

var syntaxCodes = map[byte]types.Syntax{
	'f': types.SyntaxFunction,
	'm': types.SyntaxMethod,
	'p': types.SyntaxProperty,
	'i': types.SyntaxInfix,
	'P': types.SyntaxPrefix,
	'Q': types.SyntaxPostfix,
	'b': types.SyntaxBraces,
	'r': types.SyntaxParentheses,
}

var categoryCodes = map[byte]types.Category{
	'd': types.CategoryDimension,
	'h': types.CategoryHierarchy,
	'l': types.CategoryLevel,
	'b': types.CategoryLogical,
	'm': types.CategoryMember,
	'n': types.CategoryNumeric,
	'i': types.CategoryInteger,
	's': types.CategoryString,
	't': types.CategoryTuple,
	'x': types.CategorySet,
	'y': types.CategorySymbol,
	'v': types.CategoryValue,
	'e': types.CategoryEmpty,
	'D': types.CategoryDateTime,
	'U': types.CategoryNull,
}

// ParseSignature parses a compact flag string: the first character is the
// syntax, the second the return category and the rest the parameter
// categories. "fxmly" is a function returning a set that takes a member, a
// level and a symbol.
func ParseSignature(flags string) (Signature, error) {
	if len(flags) < 2 {
		return Signature{}, fmt.Errorf("invalid signature %q: need syntax and return type", flags)
	}
	syn, ok := syntaxCodes[flags[0]]
	if !ok {
		return Signature{}, fmt.Errorf("invalid signature %q: unknown syntax code %q", flags, flags[0])
	}
	ret, ok := categoryCodes[flags[1]]
	if !ok {
		return Signature{}, fmt.Errorf("invalid signature %q: unknown return code %q", flags, flags[1])
	}
	sig := Signature{Syntax: syn, Return: ret, Params: make([]types.Category, 0, len(flags)-2)}
	for i := 2; i < len(flags); i++ {
		cat, ok := categoryCodes[flags[i]]
		if !ok {
			return Signature{}, fmt.Errorf("invalid signature %q: unknown parameter code %q", flags, flags[i])
		}
		sig.Params = append(sig.Params, cat)
	}
	return sig, nil
}

// MustSignature is like ParseSignature but panics on error. It is meant for
// static catalog tables.
func MustSignature(flags string) Signature {
	sig, err := ParseSignature(flags)
	if err != nil {
		panic("functions: " + err.Error())
	}
	return sig
}

// Match reports whether args fit the parameters and at what total
// conversion cost. Arity must match exactly.
func (s Signature) Match(args []types.Exp) (int, bool) {
	if len(args) != len(s.Params) {
		return 0, false
	}
	total := 0
	for i, a := range args {
		t := a.Type()
		if t.Category() == types.CategoryEmpty {
			// An omitted argument fits any parameter.
			total++
			continue
		}
		cost, ok := types.ConversionCost(t, s.Params[i])
		if !ok {
			return 0, false
		}
		total += cost
	}
	return total, true
}

// Format renders the signature for a function name, such as
// "<Set> Descendants(<Member>, <Level>, <Symbol>)".
func (s Signature) Format(name string) string {
	params := make([]string, len(s.Params))
	for i, p := range s.Params {
		params[i] = "<" + p.String() + ">"
	}
	return "<" + s.Return.String() + "> " + s.Syntax.Format(name, params)
}

// FormatCall renders a call with the categories of the actual arguments,
// for diagnostics.
func FormatCall(name string, syntax types.Syntax, args []types.Exp) string {
	parts := make([]string, len(args))
	for i, a := range args {
		parts[i] = "<" + a.Type().Category().String() + ">"
	}
	return syntax.Format(name, parts)
}

// Flags renders s back to its compact form.
func (s Signature) Flags() string {
	var b strings.Builder
	for c, syn := range syntaxCodes {
		if syn == s.Syntax {
			b.WriteByte(c)
			break
		}
	}
	b.WriteByte(categoryCode(s.Return))
	for _, p := range s.Params {
		b.WriteByte(categoryCode(p))
	}
	return b.String()
}

func categoryCode(cat types.Category) byte {
	for c, k := range categoryCodes {
		if k == cat {
			return c
		}
	}
	return '?'
}
