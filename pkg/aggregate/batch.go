package aggregate

import (
	"context"

	"github.com/sandrolain/gomdx/pkg/evaluator"
	"github.com/sandrolain/gomdx/pkg/olap"
)

// Batch collects deferred aggregations so that they can be resolved in one
// round trip.
type Batch struct {
	items []*evaluator.Deferred
}

// NewBatch creates an empty batch.
func NewBatch(ds ...*evaluator.Deferred) *Batch {
	b := &Batch{}
	b.Add(ds...)
	return b
}

// Add appends deferred aggregations to the batch.
func (b *Batch) Add(ds ...*evaluator.Deferred) {
	b.items = append(b.items, ds...)
}

// Len returns the number of deferred aggregations in the batch.
func (b *Batch) Len() int { return len(b.items) }

// Resolve computes every unresolved aggregation. When cells implements
// olap.BatchCellReader all requests go out in a single call; otherwise they
// are resolved one by one.
func (b *Batch) Resolve(ctx context.Context, cells olap.CellReader) error {
	var pending []*evaluator.Deferred
	for _, d := range b.items {
		if !d.Resolved() {
			pending = append(pending, d)
		}
	}
	if len(pending) == 0 {
		return nil
	}
	if br, ok := cells.(olap.BatchCellReader); ok {
		reqs := make([]olap.AggregationRequest, len(pending))
		for i, d := range pending {
			reqs[i] = d.Request()
		}
		values, err := br.AggregateBatch(ctx, reqs)
		if err != nil {
			return err
		}
		for i, d := range pending {
			d.Fill(values[i], nil)
		}
		return nil
	}
	for _, d := range pending {
		if _, err := d.Resolve(ctx); err != nil {
			return err
		}
	}
	return nil
}

// Value resolves v when it is a deferred aggregation.
func Value(ctx context.Context, v any) (any, error) {
	if d, ok := v.(*evaluator.Deferred); ok {
		return d.Resolve(ctx)
	}
	return v, nil
}
