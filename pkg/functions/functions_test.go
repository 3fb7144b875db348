package functions_test

import (
	"context"
	"strings"
	"testing"

	"github.com/sandrolain/gomdx/pkg/calc"
	"github.com/sandrolain/gomdx/pkg/functions"
	"github.com/sandrolain/gomdx/pkg/memcube"
	"github.com/sandrolain/gomdx/pkg/types"
)

func TestParseSignature(t *testing.T) {
	tests := []struct {
		flags   string
		want    string
		wantErr bool
	}{
		{flags: "fxmly", want: "<Set> Descendants(<Member>, <Level>, <Symbol>)"},
		{flags: "pxm", want: "<Set> <Member>.Descendants"},
		{flags: "innn", want: "<Numeric> <Numeric> Descendants <Numeric>"},
		{flags: "mmmn", want: "<Member> <Member>.Descendants(<Numeric>)"},
		{flags: "f", wantErr: true},
		{flags: "zxx", wantErr: true},
		{flags: "fqx", wantErr: true},
		{flags: "fxq", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.flags, func(t *testing.T) {
			sig, err := functions.ParseSignature(tt.flags)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("ParseSignature(%q) succeeded", tt.flags)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if got := sig.Format("Descendants"); got != tt.want {
				t.Fatalf("Format() = %q, want %q", got, tt.want)
			}
			if got := sig.Flags(); got != tt.flags {
				t.Fatalf("Flags() = %q, want %q", got, tt.flags)
			}
		})
	}
}

func TestResolveErrors(t *testing.T) {
	s := memcube.Sales()
	usa := types.MemberOf(s.Lookup("[Store].[All Store].[USA]"))
	set := types.Prop("Children", usa)
	cat := functions.Builtin()

	tests := []struct {
		name   string
		fn     string
		syntax types.Syntax
		args   []types.Exp
		code   types.ErrorCode
	}{
		{"unknown name", "NoSuchFunction", types.SyntaxFunction, nil, types.ErrUnknownFunction},
		{"too many arguments", "CrossJoin", types.SyntaxFunction, []types.Exp{set, set, set}, types.ErrNoApplicableSignature},
		{"wrong syntax", "Children", types.SyntaxFunction, []types.Exp{usa}, types.ErrNoApplicableSignature},
		{"inconvertible argument", "Head", types.SyntaxFunction, []types.Exp{types.NewString("x")}, types.ErrNoApplicableSignature},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := validated(t, cat, tt.args)
			_, err := cat.Resolve(tt.fn, tt.syntax, args)
			if types.CodeOf(err) != tt.code {
				t.Fatalf("Resolve() error = %v, want %s", err, tt.code)
			}
		})
	}
}

func TestResolvePicksCheapestSignature(t *testing.T) {
	cat := functions.Builtin()
	tests := []struct {
		name   string
		fn     string
		syntax types.Syntax
		args   []types.Exp
		want   types.Category
	}{
		{"numbers add", "+", types.SyntaxInfix, []types.Exp{types.NewNumber(1), types.NewNumber(2)}, types.CategoryNumeric},
		{"strings concatenate", "+", types.SyntaxInfix, []types.Exp{types.NewString("a"), types.NewString("b")}, types.CategoryString},
		{"unary minus", "-", types.SyntaxPrefix, []types.Exp{types.NewNumber(1)}, types.CategoryNumeric},
		// Both signatures accept two nulls at the same cost; the smaller
		// signature text wins so the choice never depends on table order.
		{"null tie", "+", types.SyntaxInfix, []types.Exp{types.NullLiteral, types.NullLiteral}, types.CategoryNumeric},
		{"string comparison", "<", types.SyntaxInfix, []types.Exp{types.NewString("a"), types.NewString("b")}, types.CategoryLogical},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			def, err := cat.Resolve(tt.fn, tt.syntax, tt.args)
			if err != nil {
				t.Fatal(err)
			}
			if got := def.Signature().Return; got != tt.want {
				t.Fatalf("resolved %s, want return %s", def.Signature().Format(def.Name()), tt.want)
			}
		})
	}

	t.Run("comparison operands", func(t *testing.T) {
		def, err := cat.Resolve("<", types.SyntaxInfix, []types.Exp{types.NewString("a"), types.NewString("b")})
		if err != nil {
			t.Fatal(err)
		}
		if got := def.Signature().Params[0]; got != types.CategoryString {
			t.Fatalf("resolved %s", def.Signature().Format(def.Name()))
		}
	})
}

func TestResolveIsDeterministic(t *testing.T) {
	s := memcube.Sales()
	usa := types.MemberOf(s.Lookup("[Store].[All Store].[USA]"))
	args := []types.Exp{types.NullLiteral, types.NullLiteral}
	first, err := functions.NewCatalog().Resolve("+", types.SyntaxInfix, args)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 20; i++ {
		c := functions.NewCatalog()
		def, err := c.Resolve("+", types.SyntaxInfix, args)
		if err != nil {
			t.Fatal(err)
		}
		if def.Signature().Format(def.Name()) != first.Signature().Format(first.Name()) {
			t.Fatalf("resolution changed between catalogs: %s vs %s",
				def.Signature().Format(def.Name()), first.Signature().Format(first.Name()))
		}
		c.Close()
	}

	cat := functions.Builtin()
	a, err := cat.Resolve("Parent", types.SyntaxProperty, []types.Exp{usa})
	if err != nil {
		t.Fatal(err)
	}
	b, err := cat.Resolve("parent", types.SyntaxProperty, []types.Exp{usa})
	if err != nil {
		t.Fatal(err)
	}
	if a != b {
		t.Fatal("names must resolve case-insensitively to the same definition")
	}
}

func TestGenerativeIIf(t *testing.T) {
	cat := functions.Builtin()
	tests := []struct {
		name string
		then types.Exp
		els  types.Exp
		want types.Category
	}{
		{"numbers", types.NewNumber(1), types.NewNumber(2.5), types.CategoryNumeric},
		{"strings", types.NewString("a"), types.NewString("b"), types.CategoryString},
		{"mixed", types.NewString("a"), types.NewNumber(1), types.CategoryValue},
		{"null branch", types.NullLiteral, types.NewString("b"), types.CategoryString},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := []types.Exp{types.NewBool(true), tt.then, tt.els}
			def, err := cat.Resolve("IIf", types.SyntaxFunction, args)
			if err != nil {
				t.Fatal(err)
			}
			typ, err := def.ResultType(args)
			if err != nil {
				t.Fatal(err)
			}
			if typ.Category() != tt.want {
				t.Fatalf("ResultType() = %s, want %s", typ, tt.want)
			}
		})
	}
}

func TestCustomFunctionResolver(t *testing.T) {
	double := functions.CustomFunctionDef{
		Name: "Double",
		Fn: func(ctx context.Context, args ...any) (any, error) {
			return args[0].(float64) * 2, nil
		},
	}
	r, err := double.Resolver()
	if err != nil {
		t.Fatal(err)
	}
	cat := functions.NewCatalog(functions.WithResolvers(r))
	defer cat.Close()

	def, err := cat.Resolve("DOUBLE", types.SyntaxFunction, []types.Exp{types.NewNumber(2)})
	if err != nil {
		t.Fatal(err)
	}
	if def.Description() != "User-defined function Double" {
		t.Fatalf("Description() = %q", def.Description())
	}
	if _, err := functions.Builtin().Resolve("Double", types.SyntaxFunction, []types.Exp{types.NewNumber(2)}); types.CodeOf(err) != types.ErrUnknownFunction {
		t.Fatalf("the built-in catalog must not see custom functions, got %v", err)
	}

	found := false
	for _, f := range cat.Functions() {
		if f.Name == "Double" && f.Signature == "<Numeric> Double(<Numeric>)" {
			found = true
		}
	}
	if !found {
		t.Fatal("Functions() does not list the custom function")
	}
}

func TestCustomFunctionRejectsStructuralTypes(t *testing.T) {
	for _, sig := range []string{"fxn", "fnm", "f"} {
		t.Run(sig, func(t *testing.T) {
			def := functions.CustomFunctionDef{Name: "Bad", Signature: sig}
			if _, err := def.Resolver(); err == nil {
				t.Fatalf("signature %q accepted", sig)
			}
		})
	}
}

func TestReservedWords(t *testing.T) {
	if !functions.Builtin().IsReserved("excludeempty") {
		t.Fatal("EXCLUDEEMPTY must be reserved by the built-in catalog")
	}
	if !functions.IsReservedWord("SELF_BEFORE_AFTER") {
		t.Fatal("Descendants flags must be reserved")
	}

	zig := functions.NewDef("Zig", "Test function.", "fnn",
		func(call *functions.ResolvedCall, c functions.Compiler) (calc.Calc, error) {
			return c.CompileDouble(call.Args[0])
		}, functions.WithReserved("ZIGZAG"))
	cat := functions.NewCatalog(functions.WithResolvers(zig))
	if !cat.IsReserved("ZigZag") || !functions.IsReservedWord("zigzag") {
		t.Fatal("custom reserved word not registered")
	}
	cat.Close()
	cat.Close()
	if functions.IsReservedWord("ZIGZAG") {
		t.Fatal("Close() must release the catalog's reserved words")
	}
	if !functions.IsReservedWord("EXCLUDEEMPTY") {
		t.Fatal("closing one catalog must not release words held by others")
	}
}

func TestFunctionsListing(t *testing.T) {
	fs := functions.Builtin().Functions()
	if len(fs) == 0 {
		t.Fatal("empty catalog")
	}
	var sums []string
	for i, f := range fs {
		if i > 0 && strings.ToUpper(fs[i-1].Name) > strings.ToUpper(f.Name) {
			t.Fatalf("%s listed before %s", fs[i-1].Name, f.Name)
		}
		if f.Name == "Sum" {
			sums = append(sums, f.Signature)
		}
	}
	want := []string{"<Numeric> Sum(<Set>)", "<Numeric> Sum(<Set>, <Numeric>)"}
	if len(sums) != 2 || sums[0] != want[0] || sums[1] != want[1] {
		t.Fatalf("Sum signatures = %v, want %v", sums, want)
	}
}

// validated resolves nested calls so that arguments carry their types.
func validated(t *testing.T, cat *functions.Catalog, args []types.Exp) []types.Exp {
	t.Helper()
	out := make([]types.Exp, len(args))
	for i, a := range args {
		call, ok := a.(*types.Call)
		if !ok {
			out[i] = a
			continue
		}
		inner := validated(t, cat, call.Args)
		def, err := cat.Resolve(call.Name, call.Syntax, inner)
		if err != nil {
			t.Fatal(err)
		}
		typ, err := def.ResultType(inner)
		if err != nil {
			t.Fatal(err)
		}
		out[i] = functions.NewResolvedCall(def, inner, typ)
	}
	return out
}
