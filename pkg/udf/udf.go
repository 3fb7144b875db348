// Package udf loads user-defined numeric functions from WebAssembly
// modules.
//
// Every exported function whose parameters and results are all f64, with
// exactly one result, becomes a function callable from expressions under
// its export name. A null argument makes the call return null without
// entering the module.
package udf

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"

	"github.com/sandrolain/gomdx/pkg/functions"
)

// Module is an instantiated WebAssembly module.
type Module struct {
	name    string
	runtime wazero.Runtime
	module  api.Module
	defs    []functions.CustomFunctionDef
	logger  *slog.Logger

	// Exported functions are not safe for concurrent calls.
	mu sync.Mutex
}

// Options configures module loading.
type Options struct {
	// Prefix is prepended to every export name.
	Prefix string
	// Logger for structured logging.
	Logger *slog.Logger
}

// Option configures module loading.
type Option func(*Options)

// WithPrefix sets the function name prefix.
func WithPrefix(prefix string) Option {
	return func(opts *Options) {
		opts.Prefix = prefix
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(opts *Options) {
		opts.Logger = logger
	}
}

// Load compiles and instantiates wasm. Close releases it.
func Load(ctx context.Context, name string, wasm []byte, opts ...Option) (*Module, error) {
	var options Options
	for _, opt := range opts {
		opt(&options)
	}
	if options.Logger == nil {
		options.Logger = slog.Default()
	}

	rt := wazero.NewRuntime(ctx)
	compiled, err := rt.CompileModule(ctx, wasm)
	if err != nil {
		rt.Close(ctx)
		return nil, fmt.Errorf("failed to compile module %s: %w", name, err)
	}
	mod, err := rt.InstantiateModule(ctx, compiled, wazero.NewModuleConfig().WithName(name))
	if err != nil {
		rt.Close(ctx)
		return nil, fmt.Errorf("failed to instantiate module %s: %w", name, err)
	}

	m := &Module{name: name, runtime: rt, module: mod, logger: options.Logger}
	exports := compiled.ExportedFunctions()
	names := make([]string, 0, len(exports))
	for export := range exports {
		names = append(names, export)
	}
	sort.Strings(names)
	for _, export := range names {
		def := exports[export]
		if !numeric(def) {
			m.logger.Debug("skipping export", "module", name, "export", export)
			continue
		}
		m.defs = append(m.defs, m.customFunction(options.Prefix+export, export, len(def.ParamTypes())))
	}
	return m, nil
}

func numeric(def api.FunctionDefinition) bool {
	if len(def.ResultTypes()) != 1 || def.ResultTypes()[0] != api.ValueTypeF64 {
		return false
	}
	for _, p := range def.ParamTypes() {
		if p != api.ValueTypeF64 {
			return false
		}
	}
	return true
}

func (m *Module) customFunction(name, export string, arity int) functions.CustomFunctionDef {
	return functions.CustomFunctionDef{
		Name:        name,
		Signature:   "fn" + strings.Repeat("n", arity),
		Description: fmt.Sprintf("WebAssembly function %s.%s", m.name, export),
		Fn: func(ctx context.Context, args ...any) (any, error) {
			params := make([]uint64, len(args))
			for i, a := range args {
				f, ok := a.(float64)
				if !ok {
					return nil, nil
				}
				params[i] = api.EncodeF64(f)
			}
			m.mu.Lock()
			defer m.mu.Unlock()
			fn := m.module.ExportedFunction(export)
			if fn == nil {
				return nil, fmt.Errorf("module %s has no export %s", m.name, export)
			}
			results, err := fn.Call(ctx, params...)
			if err != nil {
				return nil, err
			}
			return api.DecodeF64(results[0]), nil
		},
	}
}

// Name returns the module name.
func (m *Module) Name() string { return m.name }

// Functions returns the functions the module exports.
func (m *Module) Functions() []functions.CustomFunctionDef { return m.defs }

// Close releases the module and its runtime.
func (m *Module) Close(ctx context.Context) error {
	return m.runtime.Close(ctx)
}
