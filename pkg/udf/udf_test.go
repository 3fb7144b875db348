package udf_test

import (
	"context"
	"testing"

	"github.com/sandrolain/gomdx/pkg/calc"
	"github.com/sandrolain/gomdx/pkg/compiler"
	"github.com/sandrolain/gomdx/pkg/evaluator"
	"github.com/sandrolain/gomdx/pkg/functions"
	"github.com/sandrolain/gomdx/pkg/memcube"
	"github.com/sandrolain/gomdx/pkg/types"
	"github.com/sandrolain/gomdx/pkg/udf"
)

// doubleWasm exports double(x f64) f64 returning x + x.
var doubleWasm = []byte{
	0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00,
	0x01, 0x06, 0x01, 0x60, 0x01, 0x7c, 0x01, 0x7c,
	0x03, 0x02, 0x01, 0x00,
	0x07, 0x0a, 0x01, 0x06, 0x64, 0x6f, 0x75, 0x62, 0x6c, 0x65, 0x00, 0x00,
	0x0a, 0x09, 0x01, 0x07, 0x00, 0x20, 0x00, 0x20, 0x00, 0xa0, 0x0b,
}

func load(t *testing.T, opts ...udf.Option) *udf.Module {
	t.Helper()
	m, err := udf.Load(context.Background(), "math", doubleWasm, opts...)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { m.Close(context.Background()) })
	return m
}

func TestLoadExportsNumericFunctions(t *testing.T) {
	m := load(t, udf.WithPrefix("wasm_"))
	if m.Name() != "math" {
		t.Fatalf("Name() = %q", m.Name())
	}
	fs := m.Functions()
	if len(fs) != 1 {
		t.Fatalf("Functions() = %d entries, want 1", len(fs))
	}
	f := fs[0]
	if f.Name != "wasm_double" || f.Signature != "fnn" || f.Description != "WebAssembly function math.double" {
		t.Fatalf("unexpected definition %+v", f)
	}

	got, err := f.Fn(context.Background(), 21.0)
	if err != nil || got != 42.0 {
		t.Fatalf("double(21) = %v, %v", got, err)
	}
	got, err = f.Fn(context.Background(), nil)
	if err != nil || got != nil {
		t.Fatalf("double(null) = %v, %v, want null", got, err)
	}
}

func TestCallFromExpression(t *testing.T) {
	m := load(t)
	r, err := m.Functions()[0].Resolver()
	if err != nil {
		t.Fatal(err)
	}
	cat := functions.NewCatalog(functions.WithResolvers(r))
	defer cat.Close()

	s := memcube.Sales()
	c := compiler.New(s.Cube, cat)
	root, err := c.CompileExpression(types.Fn("double", types.NewNumber(2.25)), calc.StyleValue)
	if err != nil {
		t.Fatal(err)
	}
	v, err := root.Evaluate(evaluator.New(context.Background(), s.Cube, s.Reader(), evaluator.WithCellReader(s)))
	if err != nil || v != 4.5 {
		t.Fatalf("double(2.25) = %v, %v", v, err)
	}
}

func TestLoadRejectsInvalidModule(t *testing.T) {
	if _, err := udf.Load(context.Background(), "broken", []byte("not wasm")); err == nil {
		t.Fatal("Load() accepted an invalid module")
	}
}
