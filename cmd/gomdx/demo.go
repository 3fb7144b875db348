package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sandrolain/gomdx"
	"github.com/sandrolain/gomdx/pkg/aggregate"
	"github.com/sandrolain/gomdx/pkg/memcube"
	"github.com/sandrolain/gomdx/pkg/olap"
	"github.com/sandrolain/gomdx/pkg/sqlstore"
	"github.com/sandrolain/gomdx/pkg/types"
)

func demoCmd() *cobra.Command {
	var (
		sqlitePath string
		deferred   bool
	)
	cmd := &cobra.Command{
		Use:   "demo",
		Short: "Evaluate sample expressions over the built-in sales cube",
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, cfg, logger, err := setup()
			if err != nil {
				return err
			}
			defer engine.Close()

			ctx := cmd.Context()
			store := memcube.Sales()
			session := gomdx.Session{Reader: store.Reader(), Cells: store, Deferred: deferred}
			if sqlitePath != "" {
				db, err := sqlstore.Open(ctx, sqlitePath, store.Cube,
					sqlstore.WithMaxConstraints(cfg.MaxConstraints),
					sqlstore.WithLogger(logger))
				if err != nil {
					return err
				}
				defer db.Close()
				if err := db.Import(ctx, store); err != nil {
					return err
				}
				session.Cells, session.Dialect = db, db
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, titleStyle.Render("Sample expressions"))
			rows, err := demoExpressions(ctx, engine, store, session)
			if err != nil {
				return err
			}
			fmt.Fprintln(out, renderTable([]string{"Measure", "Expression", "Value"}, rows))

			fmt.Fprintln(out, titleStyle.Render("Grid: states by gender"))
			grid, err := demoGrid(ctx, engine, store, session)
			if err != nil {
				return err
			}
			fmt.Fprintln(out, grid)
			return nil
		},
	}
	cmd.Flags().StringVar(&sqlitePath, "sqlite", "", "read cells from a SQLite database at this path (\":memory:\" for a private one)")
	cmd.Flags().BoolVar(&deferred, "deferred", false, "resolve distinct counts in one batch per grid worker")
	return cmd
}

func demoExpressions(ctx context.Context, engine *gomdx.Engine, store *memcube.Store, s gomdx.Session) ([][]string, error) {
	usa := types.MemberOf(store.Lookup("[Store].[All Store].[USA]"))
	genders := types.Prop("Children", types.MemberOf(store.Lookup("[Gender].[All Gender]")))
	states := types.Prop("Children", usa)
	city := types.LevelOf(store.Lookup("[Store].[All Store].[USA].[CA].[Los Angeles]").Level)

	cases := []struct {
		measure string
		exp     types.Exp
	}{
		{memcube.UnitSales, types.Fn("Sum", states)},
		{memcube.UnitSales, types.Fn("Aggregate", types.Fn("CrossJoin", genders, states))},
		{memcube.CustomerCount, types.Fn("Aggregate", types.Fn("CrossJoin", genders, states))},
		{memcube.AvgPrice, types.Fn("Aggregate", states)},
		{memcube.UnitSales, types.Fn("Count", types.Fn("Descendants", usa, city))},
		{memcube.UnitSales, types.Fn("Max", types.Fn("Descendants", usa, city))},
		{memcube.StoreSales, types.Fn("IIf",
			types.Infix(">", types.Fn("Sum", states), types.NewNumber(10000)),
			types.NewString("high"), types.NewString("low"))},
	}
	var rows [][]string
	for _, c := range cases {
		x, err := engine.Compile(store.Cube, c.exp)
		if err != nil {
			return nil, err
		}
		s := s
		s.Slicer = append([]*olap.Member{store.Lookup(c.measure)}, s.Slicer...)
		v, err := x.Evaluate(ctx, s)
		if err == nil {
			v, err = aggregate.Value(ctx, v)
		}
		rows = append(rows, []string{c.measure, x.String(), formatValue(v, err)})
	}
	return rows, nil
}

func demoGrid(ctx context.Context, engine *gomdx.Engine, store *memcube.Store, s gomdx.Session) (string, error) {
	storeH := store.Cube.LookupHierarchy("[Store]")
	exp := types.Fn("Aggregate", types.Fn("Descendants",
		types.Prop("CurrentMember", types.HierarchyOf(storeH)),
		types.LevelOf(storeH.Levels[len(storeH.Levels)-1])))
	x, err := engine.Compile(store.Cube, exp)
	if err != nil {
		return "", err
	}

	states := []string{"USA].[CA", "USA].[OR", "USA].[WA", "Canada].[BC"}
	genders := []string{"F", "M"}
	measures := []string{memcube.UnitSales, memcube.CustomerCount}
	var coords [][]*olap.Member
	for _, st := range states {
		for _, g := range genders {
			for _, m := range measures {
				coords = append(coords, []*olap.Member{
					store.Lookup("[Store].[All Store].[" + st + "]"),
					store.Lookup("[Gender].[All Gender].[" + g + "]"),
					store.Lookup(m),
				})
			}
		}
	}
	cells, err := engine.EvaluateGrid(ctx, x, s, coords)
	if err != nil {
		return "", err
	}

	headers := []string{"State", "Gender"}
	for _, m := range measures {
		headers = append(headers, store.Lookup(m).Name)
	}
	var rows [][]string
	for i := 0; i < len(cells); i += len(measures) {
		c := cells[i]
		row := []string{c.Coordinate[0].Name, c.Coordinate[1].Name}
		for j := range measures {
			row = append(row, formatValue(cells[i+j].Value, cells[i+j].Err))
		}
		rows = append(rows, row)
	}
	return renderTable(headers, rows), nil
}
