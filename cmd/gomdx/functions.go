package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func functionsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "functions [name]",
		Short: "List the function catalog",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, _, _, err := setup()
			if err != nil {
				return err
			}
			defer engine.Close()

			var rows [][]string
			for _, f := range engine.Catalog().Functions() {
				if len(args) == 1 && !strings.EqualFold(f.Name, args[0]) {
					continue
				}
				rows = append(rows, []string{f.Name, f.Syntax.String(), f.Signature, f.Description})
			}
			if len(rows) == 0 {
				return fmt.Errorf("no function named %s", args[0])
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, titleStyle.Render(fmt.Sprintf("%d signatures", len(rows))))
			fmt.Fprintln(out, renderTable([]string{"Name", "Syntax", "Signature", "Description"}, rows))
			return nil
		},
	}
}
