package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sandrolain/gomdx"
	"github.com/sandrolain/gomdx/pkg/memcube"
	"github.com/sandrolain/gomdx/pkg/types"
	"github.com/sandrolain/gomdx/pkg/udf"
)

func udfCmd() *cobra.Command {
	var (
		call    string
		numbers []float64
		prefix  string
	)
	cmd := &cobra.Command{
		Use:   "udf module.wasm",
		Short: "List or call the numeric functions of a WebAssembly module",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			wasm, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			name := strings.TrimSuffix(filepath.Base(args[0]), filepath.Ext(args[0]))
			mod, err := udf.Load(ctx, name, wasm, udf.WithPrefix(prefix))
			if err != nil {
				return err
			}
			defer mod.Close(ctx)

			engine, _, _, err := setup(gomdx.WithCustomFunctions(mod.Functions()...))
			if err != nil {
				return err
			}
			defer engine.Close()

			out := cmd.OutOrStdout()
			if call == "" {
				var rows [][]string
				for _, f := range mod.Functions() {
					rows = append(rows, []string{f.Name, f.Signature, f.Description})
				}
				fmt.Fprintln(out, titleStyle.Render(fmt.Sprintf("%d functions in %s", len(rows), mod.Name())))
				fmt.Fprintln(out, renderTable([]string{"Name", "Signature", "Description"}, rows))
				return nil
			}

			exps := make([]types.Exp, len(numbers))
			for i, n := range numbers {
				exps[i] = types.NewNumber(n)
			}
			store := memcube.Sales()
			x, err := engine.Compile(store.Cube, types.Fn(call, exps...))
			if err != nil {
				return err
			}
			v, err := x.Evaluate(ctx, gomdx.Session{Reader: store.Reader(), Cells: store})
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "%s = %s\n", x, formatValue(v, nil))
			return nil
		},
	}
	cmd.Flags().StringVar(&call, "call", "", "function to call")
	cmd.Flags().Float64SliceVar(&numbers, "args", nil, "numeric arguments of the call")
	cmd.Flags().StringVar(&prefix, "prefix", "", "prefix for function names")
	return cmd
}
