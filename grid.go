package gomdx

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/sandrolain/gomdx/pkg/aggregate"
	"github.com/sandrolain/gomdx/pkg/evaluator"
	"github.com/sandrolain/gomdx/pkg/metrics"
	"github.com/sandrolain/gomdx/pkg/olap"
)

// Cell is one result of a grid evaluation.
type Cell struct {
	Coordinate []*olap.Member
	Value      any
	Err        error
}

// EvaluateGrid evaluates x at every coordinate, each one applied over the
// session's slicer. Coordinates are split among the engine's workers; the
// calc tree is shared and each worker owns its evaluator. Errors of
// single cells are reported in the cell; the returned error is only set
// when the grid could not run.
func (e *Engine) EvaluateGrid(ctx context.Context, x *Expression, s Session, coordinates [][]*olap.Member) ([]Cell, error) {
	start := time.Now()
	logger := e.logger.With("query_id", uuid.NewString(), "cube", x.cube.Name)
	cells := make([]Cell, len(coordinates))
	for i, c := range coordinates {
		cells[i].Coordinate = c
	}
	if len(cells) == 0 {
		return cells, nil
	}

	ctx, cancel := x.withTimeout(ctx)
	defer cancel()

	workers := min(e.cfg.Workers, len(cells))
	size := (len(cells) + workers - 1) / workers
	var wg sync.WaitGroup
	for lo := 0; lo < len(cells); lo += size {
		chunk := cells[lo:min(lo+size, len(cells))]
		wg.Add(1)
		if err := e.pool.Submit(func() {
			defer wg.Done()
			x.evaluateChunk(ctx, s, chunk)
		}); err != nil {
			wg.Done()
			wg.Wait()
			return nil, err
		}
	}
	wg.Wait()

	failed := 0
	for _, c := range cells {
		record(c.Err)
		if c.Err != nil {
			failed++
		}
	}
	elapsed := time.Since(start)
	metrics.GridDuration.WithLabelValues(x.cube.Name).Observe(elapsed.Seconds())
	logger.Info("grid evaluated", "expression", x.String(), "cells", len(cells), "failed", failed,
		"duration", elapsed)
	return cells, nil
}

func (x *Expression) evaluateChunk(ctx context.Context, s Session, cells []Cell) {
	ev := x.newEvaluator(ctx, s, x.tree)
	for i := range cells {
		cells[i].Value, cells[i].Err = evaluateAt(ev, x.tree, cells[i].Coordinate)
	}
	if !s.Deferred {
		return
	}
	batch := aggregate.NewBatch(ev.Pending()...)
	if err := batch.Resolve(ctx, s.Cells); err != nil {
		for i := range cells {
			if _, pending := cells[i].Value.(*evaluator.Deferred); pending && cells[i].Err == nil {
				cells[i].Err = err
			}
		}
		return
	}
	for i := range cells {
		if cells[i].Err == nil {
			cells[i].Value, cells[i].Err = aggregate.Value(ctx, cells[i].Value)
		}
	}
}

func evaluateAt(ev *evaluator.Evaluator, t tree, coordinate []*olap.Member) (any, error) {
	tok := ev.Savepoint()
	defer ev.Restore(tok)
	for _, m := range coordinate {
		if m != nil {
			ev.SetContext(m)
		}
	}
	v, err := t.root.Evaluate(ev)
	if err != nil {
		return nil, err
	}
	if _, deferred := v.(*evaluator.Deferred); deferred && ev.DeferAggregations() {
		return v, nil
	}
	return aggregate.Value(ev.Context(), v)
}
